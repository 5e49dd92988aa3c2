// Package http provides HTTP server functionality for the fuel price scraper.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/andygrunwald/fuel-price-scraper/internal/models"
)

// Metrics holds all Prometheus metrics for the scraper.
type Metrics struct {
	gatherer prometheus.Gatherer

	// Fetch metrics
	FetchRequestsTotal   *prometheus.CounterVec
	FetchRequestDuration *prometheus.HistogramVec

	// Run metrics
	RunsTotal        *prometheus.CounterVec
	RecordsTotal     *prometheus.CounterVec
	LastRunTimestamp *prometheus.GaugeVec

	// Store metrics
	StoreRecords *prometheus.GaugeVec
}

// NewMetrics creates Prometheus metrics and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		FetchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelscraper_fetch_requests_total",
				Help: "Total number of source fetches by source and status",
			},
			[]string{"source", "status"},
		),
		FetchRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelscraper_fetch_duration_seconds",
				Help:    "Source fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelscraper_runs_total",
				Help: "Total number of source runs by source and status",
			},
			[]string{"source", "status"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelscraper_records_total",
				Help: "Total number of scraped records by source and outcome",
			},
			[]string{"source", "outcome"},
		),
		LastRunTimestamp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelscraper_last_run_timestamp",
				Help: "Timestamp of the last successful run",
			},
			[]string{"source"},
		),
		StoreRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelscraper_store_records",
				Help: "Number of records in the price history by source",
			},
			[]string{"source"},
		),
	}
}

// RecordFetch records a source fetch.
func (m *Metrics) RecordFetch(source, status string, duration float64) {
	m.FetchRequestsTotal.WithLabelValues(source, status).Inc()
	m.FetchRequestDuration.WithLabelValues(source).Observe(duration)
}

// RecordOutcomes records the outcome counts of a source run.
func (m *Metrics) RecordOutcomes(source string, summary models.SourceSummary) {
	status := "success"
	if summary.Error != "" {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(source, status).Inc()

	for outcome, n := range map[string]int{
		"accepted":      summary.Accepted,
		"duplicate":     summary.Duplicate,
		"out_of_bounds": summary.OutOfBounds,
		"cap_reached":   summary.CapReached,
		"invalid":       summary.Invalid,
		"excluded":      summary.Excluded,
	} {
		m.RecordsTotal.WithLabelValues(source, outcome).Add(float64(n))
	}
}

// RecordStoreSize records the number of records held for a source.
func (m *Metrics) RecordStoreSize(source string, size float64) {
	m.StoreRecords.WithLabelValues(source).Set(size)
}

// RecordLastRun records the last successful run timestamp.
func (m *Metrics) RecordLastRun(source string, timestamp float64) {
	m.LastRunTimestamp.WithLabelValues(source).Set(timestamp)
}
