// Package source provides the interface and shared helpers for fuel price websites.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/fetch"
)

// ErrUnknownLayout is returned when an adapter cannot map a page's table to a layout.
var ErrUnknownLayout = errors.New("unrecognized table layout")

// Source defines the interface for fuel price websites.
//
// Each implementation owns the layout knowledge for its site, so a markup
// change is handled in exactly one adapter.
type Source interface {
	// Name returns the source identifier. It is stored as the SourceID of every record.
	Name() string

	// Fetch downloads the source's pages and extracts their price rows.
	// A failure on any page fails the whole source.
	Fetch(ctx context.Context) (extract.Result, error)
}

// Document fetches url and parses the response as HTML.
func Document(ctx context.Context, f fetch.Fetcher, url string) (*goquery.Document, error) {
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", url, err)
	}
	return doc, nil
}

// Merge appends the rows and counters of src to dst.
func Merge(dst *extract.Result, src extract.Result) {
	dst.Rows = append(dst.Rows, src.Rows...)
	dst.Excluded += src.Excluded
	dst.Skipped += src.Skipped
}
