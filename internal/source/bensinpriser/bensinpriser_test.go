package bensinpriser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/fetch"
)

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	name, ok := f[url]
	if !ok {
		return nil, &fetch.StatusError{URL: url, Code: 404}
	}
	return os.ReadFile(filepath.Join("testdata", name))
}

func newSource(t *testing.T, f fetch.Fetcher, pages []Page) *Source {
	t.Helper()
	exclude, err := extract.CompileExclusions([]string{"costco", "medlems?skap krävs", "^tips"})
	require.NoError(t, err)
	return New(f, pages, exclude, zerolog.Nop())
}

func TestFetch(t *testing.T) {
	pages := []Page{
		{Fuel: "95 (E10)", URL: "https://bensinpriser.test/95"},
		{Fuel: "Diesel", URL: "https://bensinpriser.test/diesel"},
	}
	f := fakeFetcher{
		"https://bensinpriser.test/95":     "95.html",
		"https://bensinpriser.test/diesel": "diesel.html",
	}

	result, err := newSource(t, f, pages).Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Rows, 5)
	require.Equal(t, 3, result.Excluded)
	require.Equal(t, 1, result.Skipped)

	diesel := result.Rows[3]
	require.Equal(t, "Circle K Kungsgatan Göteborg", diesel.Station)
	require.Equal(t, []extract.Price{{Label: "Diesel", Text: "18,45kr", Date: "Igår"}}, diesel.Prices)

	// The listing continues in a second table.
	secondTable := result.Rows[4]
	require.Equal(t, "Preem Partille Partille", secondTable.Station)
	require.Equal(t, []extract.Price{{Label: "Diesel", Text: "18,29kr", Date: "Idag"}}, secondTable.Prices)

	for _, row := range result.Rows[:3] {
		require.Equal(t, "95 (E10)", row.Prices[0].Label)
	}
}

func TestFetch_PageFailureFailsSource(t *testing.T) {
	pages := []Page{
		{Fuel: "95 (E10)", URL: "https://bensinpriser.test/95"},
		{Fuel: "98", URL: "https://bensinpriser.test/98"},
	}
	f := fakeFetcher{"https://bensinpriser.test/95": "95.html"}

	result, err := newSource(t, f, pages).Fetch(context.Background())
	require.Error(t, err)
	require.True(t, errors.Is(err, fetch.ErrStatus))
	require.Empty(t, result.Rows)
}

func TestFetch_StructuralFailure(t *testing.T) {
	src := newSource(t, staticFetcher("<html><body><p>Underhåll</p></body></html>"), []Page{{Fuel: "95", URL: "https://bensinpriser.test/95"}})

	_, err := src.Fetch(context.Background())
	require.True(t, errors.Is(err, extract.ErrNoRows), fmt.Sprint(err))
}

type staticFetcher string

func (s staticFetcher) Fetch(context.Context, string) ([]byte, error) {
	return []byte(s), nil
}

func TestNew_DefaultPages(t *testing.T) {
	src := New(staticFetcher(""), nil, nil, zerolog.Nop())
	require.Equal(t, DefaultPages, src.pages)
	require.Equal(t, SourceName, src.Name())
}
