package restserver

import (
	"time"

	"github.com/chrissnell/pvforecast/internal/forecast"
)

// ForecastSummary describes a forecast run without its per-instant records.
type ForecastSummary struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Start       time.Time        `json:"start"`
	StepSeconds int64            `json:"step_seconds"`
	Instants    int              `json:"instants"`
	HeldClouds  int              `json:"held_clouds"`
	Sunrise     *time.Time       `json:"sunrise,omitempty"`
	Sunset      *time.Time       `json:"sunset,omitempty"`
	Peak        *forecast.Record `json:"peak,omitempty"`
}

// ForecastResponse is the body of GET /forecast.
type ForecastResponse struct {
	ForecastSummary
	Records []forecast.Record `json:"records"`
}

// RecordsResponse is the body of GET /forecast/records.
type RecordsResponse struct {
	RunID   string            `json:"run_id"`
	Records []forecast.Record `json:"records"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status      string     `json:"status"`
	HasForecast bool       `json:"has_forecast"`
	LastRun     *time.Time `json:"last_run,omitempty"`
}
