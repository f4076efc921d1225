// Package forecast runs the irradiance forecast pipeline: time grid, solar
// geometry, clear-sky model, cloud attenuation and smoothing.
package forecast

import (
	"time"

	"github.com/google/uuid"

	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

// Forecast is the immutable result of one pipeline run. All series are
// aligned with Grid.Instants.
type Forecast struct {
	RunID       uuid.UUID
	GeneratedAt time.Time
	Start       time.Time
	Step        time.Duration
	Grid        solar.TimeGrid
	Geometry    []solar.GeometrySample
	Irradiance  []solar.Irradiance
	Clouds      []weather.Sample
	Factors     []float64
	// HeldClouds counts trailing instants that reuse the last cloud sample
	// because the weather forecast ended before the grid did.
	HeldClouds int
	// Sunrise and Sunset are the first and last instants with non-zero
	// theoretical irradiance; both are zero during polar night.
	Sunrise time.Time
	Sunset  time.Time
}

// Record is the per-instant output row.
type Record struct {
	Timestamp   time.Time `json:"timestamp" msgpack:"timestamp"`
	Theoretical float64   `json:"theoretical" msgpack:"theoretical"`
	Attenuated  float64   `json:"attenuated" msgpack:"attenuated"`
	Smoothed    float64   `json:"smoothed" msgpack:"smoothed"`
	CloudLow    float64   `json:"cloud_low" msgpack:"cloud_low"`
	CloudMid    float64   `json:"cloud_mid" msgpack:"cloud_mid"`
	CloudHigh   float64   `json:"cloud_high" msgpack:"cloud_high"`
	CloudTotal  float64   `json:"cloud_total" msgpack:"cloud_total"`
	Temperature float64   `json:"temperature" msgpack:"temperature"`
}

// Len returns the number of instants in the forecast.
func (f *Forecast) Len() int {
	return len(f.Irradiance)
}

// Records flattens the forecast into one Record per instant.
func (f *Forecast) Records() []Record {
	out := make([]Record, f.Len())
	for i := range out {
		out[i] = f.record(i)
	}
	return out
}

// RecordsAfter returns the records whose timestamp is strictly after t.
func (f *Forecast) RecordsAfter(t time.Time) []Record {
	var out []Record
	for i := 0; i < f.Len(); i++ {
		if f.Grid.Instants[i].Time.After(t) {
			out = append(out, f.record(i))
		}
	}
	return out
}

// Peak returns the record with the highest smoothed irradiance. The first
// maximum wins on ties. ok is false for an empty forecast.
func (f *Forecast) Peak() (Record, bool) {
	if f.Len() == 0 {
		return Record{}, false
	}
	best := 0
	for i := 1; i < f.Len(); i++ {
		if f.Irradiance[i].Smoothed > f.Irradiance[best].Smoothed {
			best = i
		}
	}
	return f.record(best), true
}

// SunHours returns the local hours of Sunrise and Sunset. ok is false when
// the forecast never sees the sun.
func (f *Forecast) SunHours() (sunrise, sunset int, ok bool) {
	if f.Sunrise.IsZero() || f.Sunset.IsZero() {
		return 0, 0, false
	}
	return f.Sunrise.Hour(), f.Sunset.Hour(), true
}

func (f *Forecast) record(i int) Record {
	irr := f.Irradiance[i]
	c := f.Clouds[i]
	return Record{
		Timestamp:   f.Grid.Instants[i].Time,
		Theoretical: irr.Theoretical,
		Attenuated:  irr.Attenuated,
		Smoothed:    irr.Smoothed,
		CloudLow:    c.CloudLow,
		CloudMid:    c.CloudMid,
		CloudHigh:   c.CloudHigh,
		CloudTotal:  c.CloudTotal,
		Temperature: c.Temperature,
	}
}
