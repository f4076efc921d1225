package sinks

import (
	"context"
	"sync"

	"github.com/chrissnell/pvforecast/internal/forecast"
)

// MemorySink keeps the most recent forecast for readers such as the REST
// server. Older forecasts are dropped.
type MemorySink struct {
	mu     sync.RWMutex
	latest *forecast.Forecast
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Name() string { return "memory" }

// Publish replaces the held forecast.
func (m *MemorySink) Publish(_ context.Context, fc *forecast.Forecast) error {
	m.mu.Lock()
	m.latest = fc
	m.mu.Unlock()
	return nil
}

// Latest returns the held forecast, or false if none has been published yet.
func (m *MemorySink) Latest() (*forecast.Forecast, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.latest != nil
}

func (m *MemorySink) Close() error { return nil }
