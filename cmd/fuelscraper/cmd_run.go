package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/andygrunwald/fuel-price-scraper/internal/http"
	"github.com/andygrunwald/fuel-price-scraper/internal/scheduler"
	"github.com/andygrunwald/fuel-price-scraper/internal/scraper"
)

func runCmd() *cobra.Command {
	var scrapeHour int
	var runOnStart bool
	var sources string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the continuous scraper service",
		Long:  "Starts the fuel price scraper with an internal scheduler that runs daily at the specified hour.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			logger := setupLogger(os.Stdout)

			if cmd.Flags().Changed("scrape-hour") {
				cfg.ScrapeHour = scrapeHour
			}
			if cmd.Flags().Changed("run-on-start") {
				cfg.RunOnStart = runOnStart
			}
			if cmd.Flags().Changed("sources") {
				selectSources(sources, logger)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Prometheus metrics, including the Go runtime and process collectors
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics := http.NewMetrics(reg)

			p, err := newPipeline(ctx, logger, scraper.WithMetricsRecorder(metrics))
			if err != nil {
				return err
			}
			defer p.close()

			var names []string
			for _, src := range p.scraper.GetSources() {
				names = append(names, src.Name())
			}
			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Int("scrapeHour", cfg.ScrapeHour).
				Str("store", cfg.Store.Backend).
				Strs("sources", names).
				Msg("starting fuel price scraper")

			sched := scheduler.New(p.scraper, cfg.ScrapeHour, cfg.RunOnStart, logger)
			httpServer := http.NewServer(cfg.HTTPAddr, p.scraper, sched, p.store, metrics, logger)

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return httpServer.Start()
			})

			g.Go(func() error {
				if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})

			g.Go(func() error {
				<-gctx.Done()
				logger.Info().Msg("shutting down")

				// Graceful shutdown
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil {
				return err
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&scrapeHour, "scrape-hour", 6, "Hour of day (0-23) to scrape")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", true, "Scrape once immediately on start")
	cmd.Flags().StringVar(&sources, "sources", "bensinpriser.nu,bensinstation.nu", "Comma-separated list of sources")

	return cmd
}
