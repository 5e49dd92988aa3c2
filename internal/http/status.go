package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
	"github.com/andygrunwald/fuel-price-scraper/internal/scheduler"
	"github.com/andygrunwald/fuel-price-scraper/internal/scraper"
)

// StoreChecker reports on the price history backend.
type StoreChecker interface {
	Backend() string
	Ping(ctx context.Context) error
}

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	scraper   *scraper.Scraper
	scheduler *scheduler.Scheduler
	store     StoreChecker
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(s *scraper.Scraper, sched *scheduler.Scheduler, st StoreChecker) *StatusHandler {
	return &StatusHandler{
		scraper:   s,
		scheduler: sched,
		store:     st,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Sources:       make(map[string]models.SourceStatus),
	}

	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastScheduledRunAt = h.scheduler.LastRunAt()
		response.LastScheduledRun = h.scheduler.LastReport()
		nextRun := h.scheduler.NextRunAt()
		if !nextRun.IsZero() {
			response.NextScrapeAt = &nextRun
		}
	}

	for _, src := range h.scraper.GetSources() {
		metrics := h.scraper.GetMetrics(src.Name())
		if metrics == nil {
			continue
		}

		snapshot := metrics.GetSnapshot()
		response.Sources[src.Name()] = models.SourceStatus{
			Enabled:           true,
			LastRunAt:         snapshot.LastRunAt,
			LastRunSuccess:    snapshot.LastRunSuccess,
			LastRunDurationMs: snapshot.LastRunDuration.Milliseconds(),
			LastError:         snapshot.LastError,
			LastSummary:       snapshot.LastSummary,
			TotalRuns:         snapshot.TotalRuns,
			TotalErrors:       snapshot.TotalErrors,
		}
	}

	response.Store = h.storeStatus(r.Context())
	if h.store != nil && !response.Store.Connected {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (h *StatusHandler) storeStatus(ctx context.Context) models.StoreStatus {
	if h.store == nil {
		return models.StoreStatus{}
	}
	status := models.StoreStatus{Backend: h.store.Backend()}
	if err := h.store.Ping(ctx); err != nil {
		return status
	}
	status.Connected = true
	return status
}
