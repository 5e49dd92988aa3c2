package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuel-price-scraper/internal/report"
)

func scrapeCmd() *cobra.Command {
	var sources string
	var format string

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a one-time scrape",
		Long: `Runs every enabled source once, stores the accepted records and prints a
summary of the run. The summary is printed even if a source failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			// The summary goes to stdout, so logs must not.
			logger := setupLogger(os.Stderr)

			if cmd.Flags().Changed("sources") {
				selectSources(sources, logger)
			}
			if cmd.Flags().Changed("format") {
				cfg.ReportFormat = format
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := newPipeline(ctx, logger)
			if err != nil {
				return err
			}
			defer p.close()

			var names []string
			for _, src := range p.scraper.GetSources() {
				names = append(names, src.Name())
			}
			logger.Info().
				Strs("sources", names).
				Str("store", cfg.Store.Backend).
				Msg("running one-time scrape")

			runReport, scrapeErr := p.scraper.ScrapeAll(ctx)
			if err := report.Render(os.Stdout, cfg.ReportFormat, runReport); err != nil {
				return fmt.Errorf("rendering summary: %w", err)
			}
			if scrapeErr != nil {
				return fmt.Errorf("scraping: %w", scrapeErr)
			}

			logger.Info().Int("accepted", runReport.TotalAccepted()).Msg("scrape completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&sources, "sources", "bensinpriser.nu,bensinstation.nu", "Comma-separated list of sources")
	cmd.Flags().StringVar(&format, "format", "table", "Summary format (table, json, yaml)")

	return cmd
}
