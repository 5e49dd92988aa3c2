// Package config provides configuration structures and loading for the fuel price scraper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/andygrunwald/fuel-price-scraper/internal/dedup"
	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/models"
	"github.com/andygrunwald/fuel-price-scraper/internal/normalize"
)

// Source names known to the scraper.
const (
	SourceBensinpriser  = "bensinpriser.nu"
	SourceBensinstation = "bensinstation.nu"
)

// Store backends.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all configuration for the fuel price scraper.
type Config struct {
	// Log level (trace, debug, info, warn, error)
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	// Log format (json, console)
	LogFormat string `mapstructure:"log_format" validate:"oneof=json console"`
	// HTTP server address
	HTTPAddr string `mapstructure:"http_addr" validate:"required"`
	// Scrape hour (0-23)
	ScrapeHour int `mapstructure:"scrape_hour" validate:"gte=0,lte=23"`
	// Run a scrape as soon as the service starts
	RunOnStart bool `mapstructure:"run_on_start"`
	// Directory of the CSV stores
	DataDir string `mapstructure:"data_dir" validate:"required"`
	// Summary output format (table, json, yaml)
	ReportFormat string        `mapstructure:"report_format" validate:"oneof=table json yaml"`
	Store        StoreConfig   `mapstructure:"store"`
	Fetcher      FetcherConfig `mapstructure:"fetcher"`
	// Sources in run order
	Sources []SourceConfig `mapstructure:"sources" validate:"dive"`
	// Case-insensitive regular expressions matched against station names
	Exclusions []string     `mapstructure:"exclusions"`
	Policy     PolicyConfig `mapstructure:"policy"`
}

// StoreConfig selects where price histories are kept.
type StoreConfig struct {
	Backend     string `mapstructure:"backend" validate:"oneof=csv sqlite postgres"`
	SQLitePath  string `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
	PostgresDSN string `mapstructure:"postgres_dsn" validate:"required_if=Backend postgres"`
}

// FetcherConfig configures page downloads.
type FetcherConfig struct {
	Kind    string        `mapstructure:"kind" validate:"oneof=colly resty"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// SourceConfig configures a single source.
type SourceConfig struct {
	Name    string `mapstructure:"name" validate:"oneof=bensinpriser.nu bensinstation.nu"`
	Enabled bool   `mapstructure:"enabled"`
	// CSV file name, relative to DataDir
	File string `mapstructure:"file" validate:"required"`
	// Page URL of single-page sources
	URL string `mapstructure:"url" validate:"omitempty,url"`
	// Fuel label for price columns that name no fuel
	Fuel string `mapstructure:"fuel"`
	// Fuel pages of multi-page sources
	Pages []PageConfig `mapstructure:"pages" validate:"dive"`
}

// PageConfig is a single fuel listing.
type PageConfig struct {
	Fuel string `mapstructure:"fuel" validate:"required"`
	URL  string `mapstructure:"url" validate:"required,url"`
}

// PolicyConfig holds the acceptance rules. Map keys are fuel labels.
type PolicyConfig struct {
	CapScope string                  `mapstructure:"cap_scope" validate:"oneof=category category-date"`
	Bounds   map[string]BoundsConfig `mapstructure:"bounds" validate:"dive"`
	Fallback BoundsConfig            `mapstructure:"fallback"`
	Caps     map[string]int          `mapstructure:"caps" validate:"dive,gte=0"`
}

// BoundsConfig is an inclusive price range. A zero max means no upper bound.
type BoundsConfig struct {
	Min float64 `mapstructure:"min" validate:"gte=0"`
	Max float64 `mapstructure:"max" validate:"gte=0"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "json",
		HTTPAddr:     ":8080",
		ScrapeHour:   6,
		RunOnStart:   true,
		DataDir:      ".",
		ReportFormat: "table",
		Store: StoreConfig{
			Backend:    BackendCSV,
			SQLitePath: "fuelprices.db",
		},
		Fetcher: FetcherConfig{
			Kind:    "colly",
			Timeout: 30 * time.Second,
		},
		Sources: []SourceConfig{
			{
				Name:    SourceBensinpriser,
				Enabled: true,
				File:    "bensinpriser_prices.csv",
				Pages: []PageConfig{
					{Fuel: "95 (E10)", URL: "https://bensinpriser.nu/stationer/95/alla/alla"},
					{Fuel: "98", URL: "https://bensinpriser.nu/stationer/98/alla/alla"},
					{Fuel: "Diesel", URL: "https://bensinpriser.nu/stationer/diesel/alla/alla"},
					{Fuel: "Etanol", URL: "https://bensinpriser.nu/stationer/etanol/alla/alla"},
				},
			},
			{
				Name:    SourceBensinstation,
				Enabled: true,
				File:    "bensinstation_prices.csv",
				URL:     "https://www.bensinstation.nu/",
				Fuel:    "95 (E10)",
			},
		},
		Exclusions: []string{"costco", "medlems?skap krävs", "^tips"},
		Policy: PolicyConfig{
			CapScope: string(dedup.CapScopeCategory),
			Bounds: map[string]BoundsConfig{
				string(models.FuelRegular95): {Min: 14, Max: 35},
				string(models.FuelPremium98): {Min: 14, Max: 35},
				string(models.FuelDiesel):    {Min: 14, Max: 35},
				string(models.FuelEthanol):   {Min: 11, Max: 35},
			},
			Fallback: BoundsConfig{Min: 5, Max: 50},
			Caps: map[string]int{
				string(models.FuelRegular95): 3,
				string(models.FuelEthanol):   3,
				string(models.FuelPremium98): 10,
				string(models.FuelDiesel):    10,
			},
		},
	}
}

// LoadFile overlays the configuration file at path.
//
// The format follows the file extension (yaml, json or toml). Lists and maps
// present in the file replace the defaults instead of being merged with them.
func (c *Config) LoadFile(path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	err := v.Unmarshal(c, func(dc *mapstructure.DecoderConfig) {
		dc.ZeroFields = true
	})
	if err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv("SCRAPE_HOUR"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 && i <= 23 {
			c.ScrapeHour = i
		}
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.RunOnStart = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("REPORT_FORMAT"); v != "" {
		c.ReportFormat = v
	}
	if v := os.Getenv("STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Store.PostgresDSN = v
	}
	if v := os.Getenv("FETCHER"); v != "" {
		c.Fetcher.Kind = v
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Fetcher.Timeout = d
		}
	}
	if v := os.Getenv("CAP_SCOPE"); v != "" {
		c.Policy.CapScope = v
	}
	if v := os.Getenv("SOURCES"); v != "" {
		c.EnableOnly(strings.Split(v, ","))
	}
}

// EnableOnly enables the named sources and disables all others.
func (c *Config) EnableOnly(names []string) {
	enabled := make(map[string]bool, len(names))
	for _, n := range names {
		enabled[strings.TrimSpace(n)] = true
	}
	for i := range c.Sources {
		c.Sources[i].Enabled = enabled[c.Sources[i].Name]
	}
}

// EnabledSources returns the enabled sources in configured order.
func (c *Config) EnabledSources() []SourceConfig {
	var sources []SourceConfig
	for _, s := range c.Sources {
		if s.Enabled {
			sources = append(sources, s)
		}
	}
	return sources
}

// StorePath returns the CSV file path of a source.
func (c *Config) StorePath(s SourceConfig) string {
	if filepath.IsAbs(s.File) {
		return s.File
	}
	return filepath.Join(c.DataDir, s.File)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, formatValidationError(e))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validating configuration: %w", err)
	}

	seen := make(map[string]bool, len(c.Sources))
	for _, s := range c.Sources {
		if seen[s.Name] {
			return fmt.Errorf("invalid configuration: source %q configured twice", s.Name)
		}
		seen[s.Name] = true
	}

	for label, b := range c.Policy.Bounds {
		if b.Max > 0 && b.Max < b.Min {
			return fmt.Errorf("invalid configuration: bounds for %q have max %.2f below min %.2f", label, b.Max, b.Min)
		}
	}
	if b := c.Policy.Fallback; b.Max > 0 && b.Max < b.Min {
		return fmt.Errorf("invalid configuration: fallback bounds have max %.2f below min %.2f", b.Max, b.Min)
	}

	if _, err := extract.CompileExclusions(c.Exclusions); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DedupPolicy converts the policy configuration. Fuel labels are mapped to
// their category, so "95" and "regular-95" configure the same category.
func (c *Config) DedupPolicy() (dedup.Policy, error) {
	scope, err := dedup.ParseCapScope(c.Policy.CapScope)
	if err != nil {
		return dedup.Policy{}, err
	}

	policy := dedup.Policy{
		Bounds:   make(map[models.FuelCategory]dedup.Bounds, len(c.Policy.Bounds)),
		Fallback: dedup.Bounds{Min: c.Policy.Fallback.Min, Max: c.Policy.Fallback.Max},
		Caps:     make(map[models.FuelCategory]int, len(c.Policy.Caps)),
		CapScope: scope,
	}
	for label, b := range c.Policy.Bounds {
		category, _ := normalize.Fuel(label)
		policy.Bounds[category] = dedup.Bounds{Min: b.Min, Max: b.Max}
	}
	for label, n := range c.Policy.Caps {
		category, _ := normalize.Fuel(label)
		policy.Caps[category] = n
	}
	return policy, nil
}

func formatValidationError(e validator.FieldError) string {
	field := strings.TrimPrefix(e.Namespace(), "Config.")
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, e.Param(), fmt.Sprint(e.Value()))
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s failed %s=%s", field, e.Tag(), e.Param())
	}
}
