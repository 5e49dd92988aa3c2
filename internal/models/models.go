// Package models provides shared data types for the fuel price scraper.
package models

import (
	"time"
)

// DateLayout is the ISO calendar date format used for observed and scrape dates.
const DateLayout = "2006-01-02"

// FuelCategory is the canonical fuel type of a price record.
type FuelCategory string

const (
	// FuelRegular95 is 95 octane petrol (sold as E10 in Sweden).
	FuelRegular95 FuelCategory = "regular-95"
	// FuelPremium98 is 98 octane petrol.
	FuelPremium98 FuelCategory = "premium-98"
	// FuelDiesel is diesel.
	FuelDiesel FuelCategory = "diesel"
	// FuelEthanol is E85 ethanol.
	FuelEthanol FuelCategory = "ethanol"
)

// PriceRecord is a single price observation for a station.
type PriceRecord struct {
	// Station is the free-text name of the seller.
	Station string
	// Price is the price per litre in the source's currency.
	Price float64
	// ObservedDate is the calendar date the price was reported for.
	ObservedDate time.Time
	// FuelCategory is the canonical fuel type.
	FuelCategory FuelCategory
	// ScrapeDate is the calendar date the record was captured.
	ScrapeDate time.Time
	// SourceID identifies the originating website.
	SourceID string
}

// SourceSummary holds the outcome of one run for a single source.
type SourceSummary struct {
	Source      string        `json:"source" yaml:"source"`
	Candidates  int           `json:"candidates" yaml:"candidates"`
	Accepted    int           `json:"accepted" yaml:"accepted"`
	Duplicate   int           `json:"duplicate" yaml:"duplicate"`
	OutOfBounds int           `json:"out_of_bounds" yaml:"out_of_bounds"`
	CapReached  int           `json:"cap_reached" yaml:"cap_reached"`
	Invalid     int           `json:"invalid" yaml:"invalid"`
	Excluded    int           `json:"excluded" yaml:"excluded"`
	StoreSize   int           `json:"store_size" yaml:"store_size"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	// Records lists every accepted record in acceptance order.
	Records []PriceRecord `json:"-" yaml:"-"`
}

// RunReport is the summary of a run over all registered sources.
type RunReport struct {
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Sources   []SourceSummary `json:"sources" yaml:"sources"`
}

// TotalAccepted returns the number of accepted records across all sources.
func (r *RunReport) TotalAccepted() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Accepted
	}
	return total
}

// Failed returns the names of sources whose run ended with an error.
func (r *RunReport) Failed() []string {
	var failed []string
	for _, s := range r.Sources {
		if s.Error != "" {
			failed = append(failed, s.Source)
		}
	}
	return failed
}

// SourceStatus holds the operational status of a source.
type SourceStatus struct {
	Enabled           bool           `json:"enabled"`
	LastRunAt         *time.Time     `json:"last_run_at"`
	LastRunSuccess    bool           `json:"last_run_success"`
	LastRunDurationMs int64          `json:"last_run_duration_ms"`
	LastError         *string        `json:"last_error"`
	LastSummary       *SourceSummary `json:"last_summary,omitempty"`
	TotalRuns         int64          `json:"total_runs"`
	TotalErrors       int64          `json:"total_errors"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status             string                  `json:"status"`
	UptimeSeconds      int64                   `json:"uptime_seconds"`
	SchedulerRunning   bool                    `json:"scheduler_running"`
	NextScrapeAt       *time.Time              `json:"next_scrape_at,omitempty"`
	LastScheduledRunAt *time.Time              `json:"last_scheduled_run_at,omitempty"`
	LastScheduledRun   *RunReport              `json:"last_scheduled_run,omitempty"`
	Sources            map[string]SourceStatus `json:"sources"`
	Store              StoreStatus             `json:"store"`
}

// StoreStatus holds the status of the price history backend.
type StoreStatus struct {
	Backend   string `json:"backend"`
	Connected bool   `json:"connected"`
}
