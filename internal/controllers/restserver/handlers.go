package restserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// latest returns the current forecast, or writes a 503 and returns false.
func (h *Handlers) latest(w http.ResponseWriter, req *http.Request) (*forecast.Forecast, bool) {
	fc, ok := h.controller.source.Latest()
	if !ok {
		h.formatter.WriteError(w, req, http.StatusServiceUnavailable,
			"no forecast has been computed yet")
		return nil, false
	}
	return fc, true
}

// GetForecast handles requests for the latest forecast summary and records
func (h *Handlers) GetForecast(w http.ResponseWriter, req *http.Request) {
	fc, ok := h.latest(w, req)
	if !ok {
		return
	}

	records, err := filterRecords(fc, req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, ForecastResponse{
		ForecastSummary: summarize(fc),
		Records:         records,
	})
}

// GetRecords handles requests for the per-instant records only
func (h *Handlers) GetRecords(w http.ResponseWriter, req *http.Request) {
	fc, ok := h.latest(w, req)
	if !ok {
		return
	}

	records, err := filterRecords(fc, req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	h.formatter.WriteResponse(w, req, http.StatusOK, RecordsResponse{
		RunID:   fc.RunID.String(),
		Records: records,
	})
}

// GetHealth reports liveness and whether a forecast is available
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if fc, ok := h.controller.source.Latest(); ok {
		resp.HasForecast = true
		generated := fc.GeneratedAt
		resp.LastRun = &generated
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, resp)
}

// filterRecords honours the optional after=<RFC 3339> query parameter.
func filterRecords(fc *forecast.Forecast, req *http.Request) ([]forecast.Record, error) {
	after := req.URL.Query().Get("after")
	if after == "" {
		return fc.Records(), nil
	}
	t, err := time.Parse(time.RFC3339, after)
	if err != nil {
		return nil, fmt.Errorf("after must be an RFC 3339 timestamp: %v", err)
	}
	records := fc.RecordsAfter(t)
	if records == nil {
		records = []forecast.Record{}
	}
	return records, nil
}

func summarize(fc *forecast.Forecast) ForecastSummary {
	s := ForecastSummary{
		RunID:       fc.RunID.String(),
		GeneratedAt: fc.GeneratedAt,
		Start:       fc.Start,
		StepSeconds: int64(fc.Step / time.Second),
		Instants:    fc.Len(),
		HeldClouds:  fc.HeldClouds,
	}
	if !fc.Sunrise.IsZero() {
		sunrise, sunset := fc.Sunrise, fc.Sunset
		s.Sunrise, s.Sunset = &sunrise, &sunset
	}
	if peak, ok := fc.Peak(); ok {
		s.Peak = &peak
	}
	return s
}
