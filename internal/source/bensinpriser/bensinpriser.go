// Package bensinpriser provides a source adapter for bensinpriser.nu.
//
// The site lists one fuel per page. Each station row carries the price in
// its second cell with the report date nested in a <small> element.
package bensinpriser

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/fetch"
	"github.com/andygrunwald/fuel-price-scraper/internal/source"
)

// SourceName is the identifier for this source.
const SourceName = "bensinpriser.nu"

// Page is a single fuel listing.
type Page struct {
	// Fuel is the fuel label of the listing, e.g. "95 (E10)".
	Fuel string
	URL  string
}

// DefaultPages are the nationwide listings for every fuel.
var DefaultPages = []Page{
	{Fuel: "95 (E10)", URL: "https://bensinpriser.nu/stationer/95/alla/alla"},
	{Fuel: "98", URL: "https://bensinpriser.nu/stationer/98/alla/alla"},
	{Fuel: "Diesel", URL: "https://bensinpriser.nu/stationer/diesel/alla/alla"},
	{Fuel: "Etanol", URL: "https://bensinpriser.nu/stationer/etanol/alla/alla"},
}

// Source implements the source interface for bensinpriser.nu.
type Source struct {
	fetcher fetch.Fetcher
	pages   []Page
	exclude extract.Exclusions
	logger  zerolog.Logger
}

// New creates a new bensinpriser.nu source.
func New(f fetch.Fetcher, pages []Page, exclude extract.Exclusions, logger zerolog.Logger) *Source {
	if len(pages) == 0 {
		pages = DefaultPages
	}
	return &Source{
		fetcher: f,
		pages:   pages,
		exclude: exclude,
		logger:  logger.With().Str("source", SourceName).Logger(),
	}
}

// Name returns the source identifier.
func (s *Source) Name() string {
	return SourceName
}

// Fetch downloads every fuel page and extracts its rows.
func (s *Source) Fetch(ctx context.Context) (extract.Result, error) {
	var result extract.Result
	for _, page := range s.pages {
		s.logger.Debug().Str("fuel", page.Fuel).Str("url", page.URL).Msg("fetching fuel page")

		doc, err := source.Document(ctx, s.fetcher, page.URL)
		if err != nil {
			return extract.Result{}, fmt.Errorf("fuel page %q: %w", page.Fuel, err)
		}

		pageResult, err := extract.Table(doc, Layout(page.Fuel), s.exclude)
		if err != nil {
			return extract.Result{}, fmt.Errorf("fuel page %q: %w", page.Fuel, err)
		}

		s.logger.Debug().
			Str("fuel", page.Fuel).
			Int("rows", len(pageResult.Rows)).
			Int("excluded", pageResult.Excluded).
			Msg("extracted fuel page")

		source.Merge(&result, pageResult)
	}
	return result, nil
}

// Layout returns the table layout of a listing for the given fuel.
// Listings can be split over several tables, so rows are collected from the
// whole page.
func Layout(fuel string) extract.Layout {
	return extract.Layout{
		Table:        "body",
		Rows:         "tr.table-row",
		StationCell:  0,
		PriceCells:   []extract.PriceColumn{{Index: 1, Label: fuel}},
		DateCell:     extract.NoCell,
		DateSelector: "small",
	}
}
