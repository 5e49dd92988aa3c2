package extract

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func readTestdata(t *testing.T, name string) *goquery.Document {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(b)))
	require.NoError(t, err)
	return doc
}

func defaultExclusions(t *testing.T) Exclusions {
	t.Helper()
	exclude, err := CompileExclusions([]string{"costco", "medlems?skap krävs", "^tips"})
	require.NoError(t, err)
	return exclude
}

var bensinpriserLayout = Layout{
	Table:        "#price_table",
	Rows:         "tr.table-row",
	StationCell:  0,
	PriceCells:   []PriceColumn{{Index: 1, Label: "95 (E10)"}},
	DateCell:     NoCell,
	DateSelector: "small",
}

func TestTable_NestedDate(t *testing.T) {
	doc := readTestdata(t, "bensinpriser.html")

	result, err := Table(doc, bensinpriserLayout, defaultExclusions(t))
	require.NoError(t, err)

	expected := []Row{
		{Station: "Circle K Kungsgatan Göteborg", Prices: []Price{{Label: "95 (E10)", Text: "17,89kr", Date: "15/9"}}},
		{Station: "OKQ8 Åby Norrköping", Prices: []Price{{Label: "95 (E10)", Text: "17,45kr", Date: "Idag"}}},
		{Station: "Preem Mölndal Mölndal", Prices: []Price{{Label: "95 (E10)", Text: "17,79kr", Date: "3/1"}}},
	}
	if diff := cmp.Diff(expected, result.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 2, result.Excluded)
	require.Equal(t, 1, result.Skipped)
}

func TestTable_DocumentUntouched(t *testing.T) {
	doc := readTestdata(t, "bensinpriser.html")
	before := doc.Find("small").Length()

	_, err := Table(doc, bensinpriserLayout, nil)
	require.NoError(t, err)

	require.Equal(t, before, doc.Find("small").Length())
}

func TestTable_DateCell(t *testing.T) {
	doc := readTestdata(t, "pricetable.html")

	layout := Layout{
		Table:       "table.priceTable",
		StationCell: 0,
		PriceCells: []PriceColumn{
			{Index: 1, Label: "95"},
			{Index: 2, Label: "Diesel"},
		},
		DateCell:     3,
		DateSelector: "small",
	}

	result, err := Table(doc, layout, defaultExclusions(t))
	require.NoError(t, err)

	expected := []Row{
		{Station: "St1 Västerås", Prices: []Price{
			{Label: "95", Text: "17,59 kr", Date: "10/1"},
			{Label: "Diesel", Text: "18,09 kr", Date: "9/1"},
		}},
		{Station: "Ingo Kalmar", Prices: []Price{
			{Label: "95", Text: "17,39 kr", Date: "Igår 18:30"},
			{Label: "Diesel", Text: "17,99 kr", Date: "Igår 18:30"},
		}},
	}
	if diff := cmp.Diff(expected, result.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, result.Excluded)
	// The thead row has no td cells.
	require.Equal(t, 1, result.Skipped)
}

func TestTable_StructuralErrors(t *testing.T) {
	doc := readTestdata(t, "pricetable.html")

	_, err := Table(doc, Layout{Table: "table.missing"}, nil)
	require.True(t, errors.Is(err, ErrTableNotFound))

	_, err = Table(doc, Layout{Table: "table.priceTable", Rows: "tr.table-row"}, nil)
	require.True(t, errors.Is(err, ErrNoRows))
}

func TestCompileExclusions(t *testing.T) {
	exclude := defaultExclusions(t)

	require.True(t, exclude.Match("COSTCO Kungens kurva"))
	require.True(t, exclude.Match("Medlemsskap krävs"))
	require.True(t, exclude.Match("Tips! Rapportera"))
	require.False(t, exclude.Match("Preem Tipsvägen"))

	_, err := CompileExclusions([]string{"("})
	require.Error(t, err)
}
