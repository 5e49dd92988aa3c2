// Package store persists the append-only price history of each source.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
	"github.com/andygrunwald/fuel-price-scraper/internal/normalize"
)

// Column names of the default header.
const (
	ColumnStation    = "Station"
	ColumnPrice      = "Price"
	ColumnDate       = "Date"
	ColumnFuel       = "Fuel"
	ColumnScrapeDate = "ScrapeDate"
	ColumnSource     = "Source"
)

// ErrIncompleteHeader is returned for a header without a column of the
// identity key. Rows written under such a header could never be matched as
// duplicates.
var ErrIncompleteHeader = errors.New("header lacks an identity column")

// identityColumns must all be present in a store's header.
var identityColumns = []string{ColumnStation, ColumnPrice, ColumnDate, ColumnFuel}

// DefaultHeader is the header of a new store.
var DefaultHeader = []string{ColumnStation, ColumnPrice, ColumnDate, ColumnFuel, ColumnScrapeDate, ColumnSource}

// columnAliases maps lowercased header names to default column names.
var columnAliases = map[string]string{
	"station":    ColumnStation,
	"namn":       ColumnStation,
	"price":      ColumnPrice,
	"pris":       ColumnPrice,
	"date":       ColumnDate,
	"datum":      ColumnDate,
	"fuel":       ColumnFuel,
	"bränsle":    ColumnFuel,
	"scrapedate": ColumnScrapeDate,
	"source":     ColumnSource,
}

// Store loads and persists the history of a single source.
//
// Implementations must never alter or drop a persisted row, and Persist must
// either replace the history completely or leave it untouched.
type Store interface {
	// Load returns the persisted snapshot. A store that was never written
	// returns an empty snapshot with the default header.
	Load(ctx context.Context) (*Snapshot, error)

	// Persist writes next, which is the loaded snapshot with added appended.
	Persist(ctx context.Context, next *Snapshot, added []models.PriceRecord) error

	// Close releases the store's resources.
	Close() error
}

// Row is a persisted row.
type Row struct {
	// Fields holds the raw values in header order.
	Fields []string
	// Record is the parsed row. It is only valid when OK is set.
	Record models.PriceRecord
	OK     bool
}

// Snapshot is the full history of a source.
type Snapshot struct {
	Header []string
	Rows   []Row
}

// NewSnapshot returns an empty snapshot with the default header.
func NewSnapshot() *Snapshot {
	return &Snapshot{Header: append([]string(nil), DefaultHeader...)}
}

// Len returns the number of rows.
func (s *Snapshot) Len() int {
	return len(s.Rows)
}

// Records returns the parsed records of all parseable rows.
func (s *Snapshot) Records() []models.PriceRecord {
	records := make([]models.PriceRecord, 0, len(s.Rows))
	for _, r := range s.Rows {
		if r.OK {
			records = append(records, r.Record)
		}
	}
	return records
}

// Merge returns prev with the accepted records appended.
//
// Previous rows are carried over unchanged and in order. prev is not modified.
func Merge(prev *Snapshot, accepted []models.PriceRecord) *Snapshot {
	if prev == nil {
		prev = NewSnapshot()
	}
	header := prev.Header
	if len(header) == 0 {
		header = DefaultHeader
	}

	next := &Snapshot{
		Header: append([]string(nil), header...),
		Rows:   make([]Row, 0, len(prev.Rows)+len(accepted)),
	}
	next.Rows = append(next.Rows, prev.Rows...)
	for _, r := range accepted {
		next.Rows = append(next.Rows, Row{Fields: FormatRecord(next.Header, r), Record: r, OK: true})
	}
	return next
}

// CheckHeader returns ErrIncompleteHeader unless header has a station, price,
// date and fuel column.
func CheckHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, name := range header {
		present[canonicalColumn(name)] = true
	}
	var missing []string
	for _, column := range identityColumns {
		if !present[column] {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteHeader, strings.Join(missing, ", "))
	}
	return nil
}

// FormatRecord renders r as fields in header order. Unknown columns are left
// empty. Stores check their header with CheckHeader first, so no identity
// field is dropped.
func FormatRecord(header []string, r models.PriceRecord) []string {
	fields := make([]string, len(header))
	for i, name := range header {
		switch canonicalColumn(name) {
		case ColumnStation:
			fields[i] = r.Station
		case ColumnPrice:
			fields[i] = strconv.FormatFloat(r.Price, 'f', -1, 64)
		case ColumnDate:
			fields[i] = r.ObservedDate.Format(models.DateLayout)
		case ColumnFuel:
			fields[i] = string(r.FuelCategory)
		case ColumnScrapeDate:
			if !r.ScrapeDate.IsZero() {
				fields[i] = r.ScrapeDate.Format(models.DateLayout)
			}
		case ColumnSource:
			fields[i] = r.SourceID
		}
	}
	return fields
}

// ParseRow parses fields laid out by header.
//
// Station, price, date and fuel are required. Fuel labels written by older
// versions, such as "95 (E10)", are mapped to their category so they take
// part in duplicate detection.
func ParseRow(header, fields []string) (models.PriceRecord, bool) {
	var (
		r                 models.PriceRecord
		hasPrice, hasDate bool
	)
	for i, name := range header {
		if i >= len(fields) {
			break
		}
		value := strings.TrimSpace(fields[i])
		switch canonicalColumn(name) {
		case ColumnStation:
			r.Station = value
		case ColumnPrice:
			if p, err := normalize.Price(value); err == nil {
				r.Price, hasPrice = p, true
			}
		case ColumnDate:
			if d, err := time.Parse(models.DateLayout, value); err == nil {
				r.ObservedDate, hasDate = d, true
			}
		case ColumnFuel:
			r.FuelCategory, _ = normalize.Fuel(value)
		case ColumnScrapeDate:
			if d, err := time.Parse(models.DateLayout, value); err == nil {
				r.ScrapeDate = d
			}
		case ColumnSource:
			r.SourceID = value
		}
	}
	ok := r.Station != "" && r.FuelCategory != "" && hasPrice && hasDate
	return r, ok
}

func canonicalColumn(name string) string {
	return columnAliases[strings.ToLower(strings.TrimSpace(name))]
}
