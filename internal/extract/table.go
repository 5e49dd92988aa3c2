// Package extract walks price tables in parsed HTML documents and emits raw
// station/price/date tuples for normalization.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrTableNotFound is returned when the layout's table selector matches nothing.
	ErrTableNotFound = errors.New("price table not found")
	// ErrNoRows is returned when the table has no rows matching the layout's row selector.
	ErrNoRows = errors.New("price table has no rows")
)

// NoCell marks an absent optional cell in a Layout.
const NoCell = -1

// PriceColumn describes a price-bearing cell.
type PriceColumn struct {
	// Index is the zero-based position of the cell within the row's td cells.
	Index int
	// Label is the fuel label for this column, usually the column header or
	// the fuel of the page the table was taken from.
	Label string
}

// Layout locates the price table and its columns in a source's markup.
// Every source adapter owns one, so a markup change stays local to that adapter.
type Layout struct {
	// Table selects the price table, e.g. "table.priceTable".
	Table string
	// Rows selects rows within the table. Defaults to "tr".
	Rows string
	// StationCell is the index of the cell holding the station name.
	StationCell int
	// PriceCells lists the price-bearing cells.
	PriceCells []PriceColumn
	// DateCell is the index of a dedicated date cell, or NoCell.
	DateCell int
	// DateSelector selects an element nested in a cell that holds the date, e.g. "small".
	DateSelector string
}

// Price is an unprocessed price cell.
type Price struct {
	Label string
	Text  string
	Date  string
}

// Row is an unprocessed table row.
type Row struct {
	Station string
	Prices  []Price
}

// Result is the output of Table.
type Result struct {
	Rows []Row
	// Excluded counts rows dropped by the exclusion list.
	Excluded int
	// Skipped counts rows without usable cells, such as heading rows.
	Skipped int
}

// Exclusions drops rows by station name.
type Exclusions []*regexp.Regexp

// CompileExclusions compiles case-insensitive station exclusion patterns.
func CompileExclusions(patterns []string) (Exclusions, error) {
	exclusions := make(Exclusions, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion %q: %w", p, err)
		}
		exclusions = append(exclusions, re)
	}
	return exclusions, nil
}

// Match reports whether the station is excluded.
func (e Exclusions) Match(station string) bool {
	for _, re := range e {
		if re.MatchString(station) {
			return true
		}
	}
	return false
}

// Table extracts raw rows from the table described by layout.
//
// The document is not modified: the table is cloned before nested date
// elements are removed from its cells.
func Table(doc *goquery.Document, layout Layout, exclude Exclusions) (Result, error) {
	var result Result

	table := doc.Find(layout.Table).First()
	if table.Length() == 0 {
		return result, fmt.Errorf("%w: %q", ErrTableNotFound, layout.Table)
	}
	table = table.Clone()

	rowSelector := layout.Rows
	if rowSelector == "" {
		rowSelector = "tr"
	}
	rows := table.Find(rowSelector)
	if rows.Length() == 0 {
		return result, fmt.Errorf("%w: %q", ErrNoRows, rowSelector)
	}

	rows.Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("td")
		if cells.Length() == 0 || layout.StationCell >= cells.Length() {
			result.Skipped++
			return
		}

		prices := make([]Price, 0, len(layout.PriceCells))
		for _, col := range layout.PriceCells {
			if col.Index >= cells.Length() {
				continue
			}
			cell := cells.Eq(col.Index)
			// The date must leave the cell before its price text is read.
			date := takeNested(cell, layout.DateSelector)
			prices = append(prices, Price{Label: col.Label, Text: Text(cell), Date: date})
		}
		if len(prices) == 0 {
			result.Skipped++
			return
		}

		rowDate := siblingDate(cells, layout)
		for i := range prices {
			if prices[i].Date == "" {
				prices[i].Date = rowDate
			}
		}

		station := Text(cells.Eq(layout.StationCell))
		if exclude.Match(station) {
			result.Excluded++
			return
		}

		result.Rows = append(result.Rows, Row{Station: station, Prices: prices})
	})

	return result, nil
}

// Text returns the whitespace-collapsed text of a selection.
func Text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

// takeNested reads and removes the first element matching selector inside cell.
func takeNested(cell *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	nested := cell.Find(selector).First()
	if nested.Length() == 0 {
		return ""
	}
	text := Text(nested)
	nested.Remove()
	return text
}

// siblingDate finds a date outside the price cells: the dedicated date cell
// first, then a date element in any cell other than the station cell.
func siblingDate(cells *goquery.Selection, layout Layout) string {
	if layout.DateCell >= 0 && layout.DateCell < cells.Length() {
		cell := cells.Eq(layout.DateCell)
		if date := takeNested(cell, layout.DateSelector); date != "" {
			return date
		}
		if date := Text(cell); date != "" {
			return date
		}
	}

	var date string
	cells.EachWithBreak(func(i int, cell *goquery.Selection) bool {
		if i == layout.StationCell {
			return true
		}
		date = takeNested(cell, layout.DateSelector)
		return date == ""
	})
	return date
}
