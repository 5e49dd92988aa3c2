package scraper

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuel-price-scraper/internal/dedup"
	"github.com/andygrunwald/fuel-price-scraper/internal/extract"
	"github.com/andygrunwald/fuel-price-scraper/internal/fetch"
	"github.com/andygrunwald/fuel-price-scraper/internal/models"
	"github.com/andygrunwald/fuel-price-scraper/internal/source/bensinpriser"
	"github.com/andygrunwald/fuel-price-scraper/internal/store"
)

var fixedNow = time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fileFetcher string

func (f fileFetcher) Fetch(context.Context, string) ([]byte, error) {
	return os.ReadFile(filepath.Join("testdata", string(f)))
}

type failingSource struct{ name string }

func (s failingSource) Name() string { return s.name }

func (s failingSource) Fetch(context.Context) (extract.Result, error) {
	return extract.Result{}, &fetch.StatusError{URL: "https://" + s.name, Code: 503}
}

type staticSource struct {
	name   string
	result extract.Result
}

func (s staticSource) Name() string { return s.name }

func (s staticSource) Fetch(context.Context) (extract.Result, error) { return s.result, nil }

type recorder struct {
	mu       sync.Mutex
	fetches  map[string]string
	outcomes map[string]models.SourceSummary
	sizes    map[string]float64
	lastRuns map[string]float64
}

func newRecorder() *recorder {
	return &recorder{
		fetches:  make(map[string]string),
		outcomes: make(map[string]models.SourceSummary),
		sizes:    make(map[string]float64),
		lastRuns: make(map[string]float64),
	}
}

func (r *recorder) RecordFetch(source, status string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches[source] = status
}

func (r *recorder) RecordOutcomes(source string, summary models.SourceSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[source] = summary
}

func (r *recorder) RecordStoreSize(source string, size float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sizes[source] = size
}

func (r *recorder) RecordLastRun(source string, timestamp float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRuns[source] = timestamp
}

func testEngine() *dedup.Engine {
	return dedup.New(dedup.Policy{
		Bounds: map[models.FuelCategory]dedup.Bounds{
			models.FuelRegular95: {Min: 14, Max: 35},
		},
		Fallback: dedup.Bounds{Min: 5, Max: 50},
		Caps:     map[models.FuelCategory]int{models.FuelRegular95: 3},
	}, zerolog.Nop())
}

func copyStore(t *testing.T) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", "bensinpriser_prices.csv"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bensinpriser_prices.csv")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func newBensinpriser(t *testing.T) *bensinpriser.Source {
	t.Helper()
	exclude, err := extract.CompileExclusions([]string{"costco"})
	require.NoError(t, err)
	pages := []bensinpriser.Page{{Fuel: "95 (E10)", URL: "https://bensinpriser.test/95"}}
	return bensinpriser.New(fileFetcher("bensinpriser_95.html"), pages, exclude, zerolog.Nop())
}

func TestScrapeAll_EndToEnd(t *testing.T) {
	ctx := context.Background()
	path := copyStore(t)
	csv := store.NewCSV(path, zerolog.Nop())
	rec := newRecorder()

	s := New(testEngine(), zerolog.Nop(), WithClock(clock), WithMetricsRecorder(rec))
	s.RegisterSource(newBensinpriser(t), csv)

	report, err := s.ScrapeAll(ctx)
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)

	summary := report.Sources[0]
	require.Equal(t, bensinpriser.SourceName, summary.Source)
	require.Equal(t, 1, summary.Accepted)
	require.Equal(t, 1, summary.Duplicate)
	require.Equal(t, 1, summary.OutOfBounds)
	require.Equal(t, 0, summary.CapReached)
	require.Equal(t, 1, summary.Invalid)
	require.Equal(t, 1, summary.Excluded)
	require.Equal(t, 4, summary.Candidates)
	require.Equal(t, 2, summary.StoreSize)
	require.Empty(t, summary.Error)

	expected := []models.PriceRecord{{
		Station:      "Circle K Kungsgatan",
		Price:        17.89,
		ObservedDate: time.Date(2024, time.September, 15, 0, 0, 0, 0, time.UTC),
		FuelCategory: models.FuelRegular95,
		ScrapeDate:   time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		SourceID:     bensinpriser.SourceName,
	}}
	if diff := cmp.Diff(expected, summary.Records); diff != "" {
		t.Errorf("accepted records mismatch (-want +got):\n%s", diff)
	}

	snapshot, err := csv.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, snapshot.Len())

	require.Equal(t, "success", rec.fetches[bensinpriser.SourceName])
	require.Equal(t, float64(2), rec.sizes[bensinpriser.SourceName])
	require.Equal(t, float64(fixedNow.Unix()), rec.lastRuns[bensinpriser.SourceName])

	metrics := s.GetMetrics(bensinpriser.SourceName).GetSnapshot()
	require.Equal(t, int64(1), metrics.TotalRuns)
	require.True(t, metrics.LastRunSuccess)
	require.Equal(t, 1, metrics.LastSummary.Accepted)
}

func TestScrapeAll_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := copyStore(t)

	s := New(testEngine(), zerolog.Nop(), WithClock(clock))
	s.RegisterSource(newBensinpriser(t), store.NewCSV(path, zerolog.Nop()))

	_, err := s.ScrapeAll(ctx)
	require.NoError(t, err)
	afterFirst, err := os.ReadFile(path)
	require.NoError(t, err)

	report, err := s.ScrapeAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, report.Sources[0].Accepted)
	require.Equal(t, 2, report.Sources[0].Duplicate)
	require.Equal(t, 0, report.TotalAccepted())

	afterSecond, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, afterFirst, afterSecond)
}

func TestScrapeAll_PartialFailure(t *testing.T) {
	ctx := context.Background()
	rec := newRecorder()
	s := New(testEngine(), zerolog.Nop(), WithClock(clock), WithMetricsRecorder(rec))

	good := staticSource{name: "good", result: extract.Result{Rows: []extract.Row{
		{Station: "Ingo", Prices: []extract.Price{{Label: "Diesel", Text: "17,99 kr", Date: "Igår"}}},
	}}}
	goodPath := filepath.Join(t.TempDir(), "good.csv")

	s.RegisterSource(failingSource{name: "down"}, store.NewCSV(filepath.Join(t.TempDir(), "down.csv"), zerolog.Nop()))
	s.RegisterSource(good, store.NewCSV(goodPath, zerolog.Nop()))

	report, err := s.ScrapeAll(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, fetch.ErrStatus))
	require.Equal(t, []string{"down"}, report.Failed())
	require.Len(t, report.Sources, 2)
	require.Equal(t, 1, report.Sources[1].Accepted)

	snapshot, err := store.NewCSV(goodPath, zerolog.Nop()).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.Len())
	require.Equal(t, models.FuelDiesel, snapshot.Rows[0].Record.FuelCategory)

	down := s.GetMetrics("down").GetSnapshot()
	require.Equal(t, int64(1), down.TotalErrors)
	require.False(t, down.LastRunSuccess)
	require.NotNil(t, down.LastError)
	require.Equal(t, "error", rec.fetches["down"])
}

func TestScrapeAll_IncompleteStoreHeaderFailsSource(t *testing.T) {
	ctx := context.Background()
	b, err := os.ReadFile(filepath.Join("testdata", "bensinstation_no_fuel.csv"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bensinstation_prices.csv")
	require.NoError(t, os.WriteFile(path, b, 0o644))

	s := New(testEngine(), zerolog.Nop(), WithClock(clock))
	s.RegisterSource(staticSource{
		name: "bensinstation.nu",
		result: extract.Result{Rows: []extract.Row{
			{Station: "Ingo", Prices: []extract.Price{{Label: "Diesel", Text: "17,99 kr", Date: "Igår"}}},
		}},
	}, store.NewCSV(path, zerolog.Nop()))

	for run := 0; run < 3; run++ {
		report, err := s.ScrapeAll(ctx)
		require.Error(t, err)
		require.True(t, errors.Is(err, store.ErrIncompleteHeader))
		require.Equal(t, 0, report.Sources[0].Accepted)
	}

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, b, after)
}

func TestScrapeSource(t *testing.T) {
	s := New(testEngine(), zerolog.Nop(), WithClock(clock))

	_, err := s.ScrapeSource(context.Background(), "unknown")
	require.Error(t, err)

	src := staticSource{name: "static"}
	s.RegisterSource(src, store.NewCSV(filepath.Join(t.TempDir(), "static.csv"), zerolog.Nop()))
	summary, err := s.ScrapeSource(context.Background(), "static")
	require.NoError(t, err)
	require.Equal(t, "static", summary.Source)
	require.Zero(t, summary.Accepted)
	require.Len(t, s.GetSources(), 1)
}

func TestCandidates(t *testing.T) {
	extracted := extract.Result{Rows: []extract.Row{
		{Station: "St1", Prices: []extract.Price{
			{Label: "95", Text: "17,59 kr", Date: "10/1"},
			{Label: "Diesel", Text: "-", Date: "10/1"},
			{Label: "Etanol", Text: "14,10", Date: ""},
			{Label: "HVO100", Text: "24,90", Date: "igår 17:00"},
		}},
		{Station: "", Prices: []extract.Price{{Label: "95", Text: "17,00", Date: "idag"}}},
	}}

	candidates, invalid := Candidates(extracted, "test", fixedNow, zerolog.Nop())
	require.Equal(t, 3, invalid)
	require.Len(t, candidates, 2)
	require.Equal(t, models.FuelRegular95, candidates[0].FuelCategory)
	require.Equal(t, "2025-01-10", candidates[0].ObservedDate.Format(models.DateLayout))
	require.Equal(t, models.FuelCategory("HVO100"), candidates[1].FuelCategory)
	require.Equal(t, "2025-01-09", candidates[1].ObservedDate.Format(models.DateLayout))
}
