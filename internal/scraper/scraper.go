// Package scraper orchestrates runs over all registered fuel price sources.
//
// A run processes sources one after another: fetch and extract, normalize,
// classify against the persisted history, merge, and persist. A failing
// source is recorded and skipped; the remaining sources still run.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/dedup"
	"github.com/andygrunwald/fuel-price-scraper/internal/models"
	"github.com/andygrunwald/fuel-price-scraper/internal/source"
	"github.com/andygrunwald/fuel-price-scraper/internal/store"
)

// MetricsRecorder receives per-source run metrics.
type MetricsRecorder interface {
	RecordFetch(source, status string, duration float64)
	RecordOutcomes(source string, summary models.SourceSummary)
	RecordStoreSize(source string, size float64)
	RecordLastRun(source string, timestamp float64)
}

// Metrics holds run metrics for a source.
type Metrics struct {
	mu              sync.RWMutex
	TotalRuns       int64
	TotalErrors     int64
	LastRunAt       *time.Time
	LastRunSuccess  bool
	LastRunDuration time.Duration
	LastError       *string
	LastSummary     *models.SourceSummary
}

// GetSnapshot returns a thread-safe snapshot of the metrics.
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		TotalRuns:       m.TotalRuns,
		TotalErrors:     m.TotalErrors,
		LastRunAt:       m.LastRunAt,
		LastRunSuccess:  m.LastRunSuccess,
		LastRunDuration: m.LastRunDuration,
		LastError:       m.LastError,
		LastSummary:     m.LastSummary,
	}
}

func (m *Metrics) record(at time.Time, summary models.SourceSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalRuns++
	m.LastRunAt = &at
	m.LastRunDuration = summary.Duration
	m.LastSummary = &summary
	if summary.Error != "" {
		m.TotalErrors++
		m.LastRunSuccess = false
		errStr := summary.Error
		m.LastError = &errStr
		return
	}
	m.LastRunSuccess = true
	m.LastError = nil
}

// MetricsSnapshot is a thread-safe copy of Metrics data.
type MetricsSnapshot struct {
	TotalRuns       int64
	TotalErrors     int64
	LastRunAt       *time.Time
	LastRunSuccess  bool
	LastRunDuration time.Duration
	LastError       *string
	LastSummary     *models.SourceSummary
}

type registration struct {
	source source.Source
	store  store.Store
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithClock sets the clock used for relative dates and scrape dates.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) {
		s.now = now
	}
}

// WithMetricsRecorder sets a recorder that receives metrics of every run.
func WithMetricsRecorder(r MetricsRecorder) Option {
	return func(s *Scraper) {
		s.recorder = r
	}
}

// Scraper orchestrates scraping from multiple sources.
type Scraper struct {
	engine   *dedup.Engine
	now      func() time.Time
	recorder MetricsRecorder
	logger   zerolog.Logger

	mu      sync.RWMutex
	sources []registration
	metrics map[string]*Metrics

	// runMu serializes runs, since every store has a single writer.
	runMu sync.Mutex
}

// New creates a new Scraper.
func New(engine *dedup.Engine, logger zerolog.Logger, opts ...Option) *Scraper {
	s := &Scraper{
		engine:  engine,
		now:     time.Now,
		metrics: make(map[string]*Metrics),
		logger:  logger.With().Str("component", "scraper").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterSource registers a source and the store holding its history.
// Sources run in registration order. Registering a name twice replaces the
// earlier registration.
func (s *Scraper) RegisterSource(src source.Source, st store.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.sources {
		if r.source.Name() == src.Name() {
			s.sources[i] = registration{source: src, store: st}
			return
		}
	}
	s.sources = append(s.sources, registration{source: src, store: st})
	s.metrics[src.Name()] = &Metrics{}
}

// GetSources returns all registered sources in registration order.
func (s *Scraper) GetSources() []source.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sources := make([]source.Source, 0, len(s.sources))
	for _, r := range s.sources {
		sources = append(sources, r.source)
	}
	return sources
}

// GetMetrics returns the metrics for a source.
func (s *Scraper) GetMetrics(sourceName string) *Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics[sourceName]
}

// ScrapeAll runs every registered source.
//
// The report is always returned, with a summary per source. The error joins
// the failures of all sources that failed.
func (s *Scraper) ScrapeAll(ctx context.Context) (*models.RunReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.RLock()
	registrations := append([]registration(nil), s.sources...)
	s.mu.RUnlock()

	report := &models.RunReport{StartedAt: s.now()}
	var errs []error
	for _, r := range registrations {
		summary, err := s.scrape(ctx, r)
		report.Sources = append(report.Sources, summary)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("source", r.source.Name()).
				Msg("failed to scrape source")
			errs = append(errs, fmt.Errorf("source %s: %w", r.source.Name(), err))
		}
	}

	return report, errors.Join(errs...)
}

// ScrapeSource runs a single registered source.
func (s *Scraper) ScrapeSource(ctx context.Context, sourceName string) (models.SourceSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.RLock()
	var (
		reg   registration
		found bool
	)
	for _, r := range s.sources {
		if r.source.Name() == sourceName {
			reg, found = r, true
			break
		}
	}
	s.mu.RUnlock()

	if !found {
		return models.SourceSummary{Source: sourceName}, fmt.Errorf("source %q not registered", sourceName)
	}
	return s.scrape(ctx, reg)
}

func (s *Scraper) scrape(ctx context.Context, r registration) (models.SourceSummary, error) {
	name := r.source.Name()
	start := time.Now()
	now := s.now()

	s.logger.Info().Str("source", name).Msg("scraping source")

	summary, err := s.run(ctx, r, now)
	summary.Source = name
	summary.Duration = time.Since(start)
	if err != nil {
		summary.Error = err.Error()
	}

	s.GetMetrics(name).record(now, summary)
	if s.recorder != nil {
		s.recorder.RecordOutcomes(name, summary)
		if err == nil {
			s.recorder.RecordStoreSize(name, float64(summary.StoreSize))
			s.recorder.RecordLastRun(name, float64(now.Unix()))
		}
	}

	if err != nil {
		return summary, err
	}

	s.logger.Info().
		Str("source", name).
		Int("candidates", summary.Candidates).
		Int("accepted", summary.Accepted).
		Int("duplicate", summary.Duplicate).
		Int("outOfBounds", summary.OutOfBounds).
		Int("capReached", summary.CapReached).
		Int("invalid", summary.Invalid).
		Int("excluded", summary.Excluded).
		Int("storeSize", summary.StoreSize).
		Dur("duration", summary.Duration).
		Msg("scraped source")

	return summary, nil
}

func (s *Scraper) run(ctx context.Context, r registration, now time.Time) (models.SourceSummary, error) {
	var summary models.SourceSummary
	name := r.source.Name()

	fetchStart := time.Now()
	extracted, err := r.source.Fetch(ctx)
	if s.recorder != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.recorder.RecordFetch(name, status, time.Since(fetchStart).Seconds())
	}
	if err != nil {
		return summary, fmt.Errorf("fetching: %w", err)
	}
	summary.Excluded = extracted.Excluded

	candidates, invalid := Candidates(extracted, name, now, s.logger)
	summary.Candidates = len(candidates) + invalid
	summary.Invalid = invalid

	snapshot, err := r.store.Load(ctx)
	if err != nil {
		return summary, fmt.Errorf("loading store: %w", err)
	}

	result := s.engine.Classify(snapshot.Records(), candidates)
	summary.Accepted = result.Counts.Accepted
	summary.Duplicate = result.Counts.Duplicate
	summary.OutOfBounds = result.Counts.OutOfBounds
	summary.CapReached = result.Counts.CapReached
	summary.StoreSize = snapshot.Len()

	next := store.Merge(snapshot, result.Accepted)
	if err := r.store.Persist(ctx, next, result.Accepted); err != nil {
		// Nothing was added, so the reported counts must not claim otherwise.
		summary.Accepted = 0
		return summary, fmt.Errorf("persisting store: %w", err)
	}
	summary.StoreSize = next.Len()
	summary.Records = result.Accepted

	return summary, nil
}
