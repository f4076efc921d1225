// Package sinks defines the destinations a finished forecast is delivered to.
package sinks

import (
	"context"

	"github.com/chrissnell/pvforecast/internal/forecast"
)

// Sink is an interface that provides a few standardized methods for the
// various forecast destinations
type Sink interface {
	Name() string
	Publish(ctx context.Context, fc *forecast.Forecast) error
	Close() error
}
