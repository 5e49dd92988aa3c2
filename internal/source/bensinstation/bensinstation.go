// Package bensinstation provides a source adapter for bensinstation.nu.
package bensinstation

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/fetch"
	"github.com/andygrunwald/fuel-price-scraper/internal/normalize"
	"github.com/andygrunwald/fuel-price-scraper/internal/source"
)

const (
	// SourceName is the identifier for this source.
	SourceName = "bensinstation.nu"
	// DefaultURL is the page holding the price table.
	DefaultURL = "https://www.bensinstation.nu/"
	// DefaultFuel labels price columns whose header names no fuel.
	DefaultFuel = "95 (E10)"

	tableSelector = "table.priceTable"
)

var (
	stationKeywords = []string{"station", "namn", "name"}
	priceKeywords   = []string{"pris", "price", "kr"}
	dateKeywords    = []string{"date", "datum", "dag"}
)

// Source implements the source interface for bensinstation.nu.
type Source struct {
	fetcher fetch.Fetcher
	url     string
	fuel    string
	exclude extract.Exclusions
	logger  zerolog.Logger
}

// New creates a new bensinstation.nu source.
func New(f fetch.Fetcher, url, fuel string, exclude extract.Exclusions, logger zerolog.Logger) *Source {
	if url == "" {
		url = DefaultURL
	}
	if fuel == "" {
		fuel = DefaultFuel
	}
	return &Source{
		fetcher: f,
		url:     url,
		fuel:    fuel,
		exclude: exclude,
		logger:  logger.With().Str("source", SourceName).Logger(),
	}
}

// Name returns the source identifier.
func (s *Source) Name() string {
	return SourceName
}

// Fetch downloads the price page and extracts its rows.
func (s *Source) Fetch(ctx context.Context) (extract.Result, error) {
	doc, err := source.Document(ctx, s.fetcher, s.url)
	if err != nil {
		return extract.Result{}, err
	}

	layout, err := DetectLayout(doc, s.fuel)
	if err != nil {
		return extract.Result{}, err
	}

	s.logger.Debug().
		Int("stationCell", layout.StationCell).
		Int("priceColumns", len(layout.PriceCells)).
		Int("dateCell", layout.DateCell).
		Msg("detected table layout")

	return extract.Table(doc, layout, s.exclude)
}

// DetectLayout maps the header of the price table to cell positions.
//
// Header cells are matched by keyword: the station column by its name, the
// date column by date words, and price columns either by a header naming a
// fuel or by price words. Price columns without a fuel in their header are
// labelled with fallbackFuel. A table without a header is read as station
// followed by price.
func DetectLayout(doc *goquery.Document, fallbackFuel string) (extract.Layout, error) {
	layout := extract.Layout{
		Table:        tableSelector,
		Rows:         "tr",
		StationCell:  extract.NoCell,
		DateCell:     extract.NoCell,
		DateSelector: "small",
	}

	table := doc.Find(tableSelector).First()
	if table.Length() == 0 {
		return layout, fmt.Errorf("%w: %q", extract.ErrTableNotFound, tableSelector)
	}

	headers := table.Find("thead th")
	if headers.Length() == 0 {
		headers = table.Find("tr").First().ChildrenFiltered("th")
	}
	if headers.Length() == 0 {
		layout.StationCell = 0
		layout.PriceCells = []extract.PriceColumn{{Index: 1, Label: fallbackFuel}}
		return layout, nil
	}

	headers.Each(func(i int, th *goquery.Selection) {
		header := extract.Text(th)
		lower := strings.ToLower(header)
		switch {
		case layout.StationCell == extract.NoCell && containsAny(lower, stationKeywords):
			layout.StationCell = i
		case layout.DateCell == extract.NoCell && containsAny(lower, dateKeywords):
			layout.DateCell = i
		default:
			if _, ok := normalize.Fuel(header); ok {
				layout.PriceCells = append(layout.PriceCells, extract.PriceColumn{Index: i, Label: header})
			} else if containsAny(lower, priceKeywords) {
				layout.PriceCells = append(layout.PriceCells, extract.PriceColumn{Index: i, Label: fallbackFuel})
			}
		}
	})

	if layout.StationCell == extract.NoCell {
		layout.StationCell = 0
	}
	if len(layout.PriceCells) == 0 {
		return layout, fmt.Errorf("%w: no price column in %q", source.ErrUnknownLayout, tableSelector)
	}
	return layout, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
