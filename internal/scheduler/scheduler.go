// Package scheduler provides a daily scheduler for fuel price scraping.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

// Runner runs all registered sources once.
type Runner interface {
	ScrapeAll(ctx context.Context) (*models.RunReport, error)
}

// Scheduler manages the daily scraping schedule.
type Scheduler struct {
	runner     Runner
	scrapeHour int
	runOnStart bool
	now        func() time.Time
	logger     zerolog.Logger

	mu         sync.RWMutex
	nextRunAt  time.Time
	lastRunAt  *time.Time
	lastReport *models.RunReport
	running    bool
}

// New creates a new Scheduler. With runOnStart set, a run starts as soon as
// the scheduler does, before waiting for the scrape hour.
func New(r Runner, scrapeHour int, runOnStart bool, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		runner:     r,
		scrapeHour: scrapeHour,
		runOnStart: runOnStart,
		now:        time.Now,
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler and blocks until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info().
		Int("scrapeHour", s.scrapeHour).
		Bool("runOnStart", s.runOnStart).
		Msg("starting scheduler")

	if s.runOnStart {
		s.runScrape(ctx)
	}

	timer := time.NewTimer(s.scheduleNext())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
			s.runScrape(ctx)
			timer.Reset(s.scheduleNext())
		}
	}
}

// scheduleNext stores the next run time and returns the wait until then.
func (s *Scheduler) scheduleNext() time.Duration {
	now := s.now()
	next := nextRunTime(now, s.scrapeHour)

	s.mu.Lock()
	s.nextRunAt = next
	s.mu.Unlock()

	wait := next.Sub(now)
	s.logger.Info().
		Time("nextScrape", next).
		Dur("duration", wait).
		Msg("next scrape scheduled")
	return wait
}

// nextRunTime returns the next occurrence of hour:00 after now.
func nextRunTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) runScrape(ctx context.Context) {
	s.logger.Info().Msg("running scheduled scrape")

	now := s.now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	report, err := s.runner.ScrapeAll(ctx)

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled scrape failed")
		return
	}
	s.logger.Info().
		Int("accepted", report.TotalAccepted()).
		Msg("scheduled scrape completed")
}

// NextRunAt returns the time of the next scheduled run.
func (s *Scheduler) NextRunAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunAt
}

// LastRunAt returns the start time of the last run.
func (s *Scheduler) LastRunAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt
}

// LastReport returns the report of the last run.
func (s *Scheduler) LastReport() *models.RunReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
