package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/config"
	"github.com/andygrunwald/fuel-price-scraper/internal/dedup"
	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/fetch"
	"github.com/andygrunwald/fuel-price-scraper/internal/http"
	"github.com/andygrunwald/fuel-price-scraper/internal/scraper"
	"github.com/andygrunwald/fuel-price-scraper/internal/source"
	"github.com/andygrunwald/fuel-price-scraper/internal/source/bensinpriser"
	"github.com/andygrunwald/fuel-price-scraper/internal/source/bensinstation"
	"github.com/andygrunwald/fuel-price-scraper/internal/store"
)

// pipeline is a scraper with its sources and stores registered.
type pipeline struct {
	scraper *scraper.Scraper
	store   http.StoreChecker
	close   func() error
}

func newPipeline(ctx context.Context, logger zerolog.Logger, opts ...scraper.Option) (*pipeline, error) {
	sources := cfg.EnabledSources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}

	fetcher, err := fetch.New(cfg.Fetcher.Kind, cfg.Fetcher.Timeout, logger)
	if err != nil {
		return nil, fmt.Errorf("creating fetcher: %w", err)
	}

	exclude, err := extract.CompileExclusions(cfg.Exclusions)
	if err != nil {
		return nil, err
	}

	policy, err := cfg.DedupPolicy()
	if err != nil {
		return nil, fmt.Errorf("building policy: %w", err)
	}

	p := &pipeline{
		scraper: scraper.New(dedup.New(policy, logger), logger, opts...),
		close:   func() error { return nil },
	}

	var db *store.SQLStore
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err = store.OpenSQL(ctx, store.DialectSQLite, cfg.Store.SQLitePath, sources[0].Name, logger)
	case config.BackendPostgres:
		db, err = store.OpenSQL(ctx, store.DialectPostgres, cfg.Store.PostgresDSN, sources[0].Name, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if db != nil {
		p.store = db
		p.close = db.Close
	}

	for _, sc := range sources {
		src, err := newSource(sc, fetcher, exclude, logger)
		if err != nil {
			p.close()
			return nil, err
		}

		var st store.Store
		if db != nil {
			st = db.ForSource(sc.Name)
		} else {
			csvStore := store.NewCSV(cfg.StorePath(sc), logger)
			if p.store == nil {
				p.store = csvStore
			}
			st = csvStore
		}

		p.scraper.RegisterSource(src, st)
	}

	return p, nil
}

func newSource(sc config.SourceConfig, f fetch.Fetcher, exclude extract.Exclusions, logger zerolog.Logger) (source.Source, error) {
	switch sc.Name {
	case bensinpriser.SourceName:
		pages := make([]bensinpriser.Page, 0, len(sc.Pages))
		for _, page := range sc.Pages {
			pages = append(pages, bensinpriser.Page{Fuel: page.Fuel, URL: page.URL})
		}
		return bensinpriser.New(f, pages, exclude, logger), nil
	case bensinstation.SourceName:
		return bensinstation.New(f, sc.URL, sc.Fuel, exclude, logger), nil
	default:
		return nil, fmt.Errorf("unknown source %q", sc.Name)
	}
}

// selectSources enables only the sources in the comma-separated list.
func selectSources(list string, logger zerolog.Logger) {
	names := strings.Split(list, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}

	for _, name := range names {
		known := false
		for _, sc := range cfg.Sources {
			if sc.Name == name {
				known = true
				break
			}
		}
		if !known {
			logger.Warn().Str("source", name).Msg("unknown source, skipping")
		}
	}

	cfg.EnableOnly(names)
}
