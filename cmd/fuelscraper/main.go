// Package main provides the entry point for the fuel price scraper CLI.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-price-scraper/internal/config"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var cfg *config.Config

// globalFlags holds the values of the persistent flags. They are applied on
// top of the configuration file and environment in loadConfig.
var globalFlags struct {
	configFile   string
	logLevel     string
	logFormat    string
	httpAddr     string
	dataDir      string
	storeBackend string
	sqlitePath   string
	postgresDSN  string
	fetcher      string
	capScope     string
}

func main() {
	defaults := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "fuelscraper",
		Short: "Fuel Price Scraper - Track Swedish fuel station prices",
		Long: `Fuel Price Scraper collects fuel prices from Swedish price comparison websites
and keeps a deduplicated, append-only price history per website.

Features:
  - Multiple sources (bensinpriser.nu, bensinstation.nu)
  - Duplicate detection, plausibility bounds and per-fuel caps
  - CSV, SQLite or PostgreSQL price history
  - Daily automated scraping with configurable schedule
  - Prometheus metrics endpoint
  - Status endpoint for operational visibility`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&globalFlags.configFile, "config", "", "Configuration file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", defaults.LogFormat, "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.httpAddr, "http-addr", defaults.HTTPAddr, "HTTP server address for /metrics, /status")
	rootCmd.PersistentFlags().StringVar(&globalFlags.dataDir, "data-dir", defaults.DataDir, "Directory of the CSV price histories")
	rootCmd.PersistentFlags().StringVar(&globalFlags.storeBackend, "store", defaults.Store.Backend, "Price history backend (csv, sqlite, postgres)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.sqlitePath, "sqlite-path", defaults.Store.SQLitePath, "SQLite database file")
	rootCmd.PersistentFlags().StringVar(&globalFlags.postgresDSN, "postgres-dsn", defaults.Store.PostgresDSN, "PostgreSQL connection string")
	rootCmd.PersistentFlags().StringVar(&globalFlags.fetcher, "fetcher", defaults.Fetcher.Kind, "HTTP client used to download pages (colly, resty)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.capScope, "cap-scope", defaults.Policy.CapScope, "Records counted against a cap (category, category-date)")

	// Add subcommands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration from defaults, the configuration file,
// the environment and finally the flags set on the command line.
func loadConfig(cmd *cobra.Command) error {
	c := config.DefaultConfig()

	path := globalFlags.configFile
	if path == "" {
		path = os.Getenv("FUELSCRAPER_CONFIG")
	}
	if path != "" {
		if err := c.LoadFile(path); err != nil {
			return err
		}
	}
	c.LoadFromEnv()

	flags := cmd.Flags()
	for name, apply := range map[string]func(){
		"log-level":    func() { c.LogLevel = globalFlags.logLevel },
		"log-format":   func() { c.LogFormat = globalFlags.logFormat },
		"http-addr":    func() { c.HTTPAddr = globalFlags.httpAddr },
		"data-dir":     func() { c.DataDir = globalFlags.dataDir },
		"store":        func() { c.Store.Backend = globalFlags.storeBackend },
		"sqlite-path":  func() { c.Store.SQLitePath = globalFlags.sqlitePath },
		"postgres-dsn": func() { c.Store.PostgresDSN = globalFlags.postgresDSN },
		"fetcher":      func() { c.Fetcher.Kind = globalFlags.fetcher },
		"cap-scope":    func() { c.Policy.CapScope = globalFlags.capScope },
	} {
		if flags.Changed(name) {
			apply()
		}
	}

	cfg = c
	return nil
}

func setupLogger(w io.Writer) zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(w).
			With().
			Timestamp().
			Logger()
	}

	return logger
}
