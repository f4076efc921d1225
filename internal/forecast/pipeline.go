package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

// CloudSource supplies the coarse cloud-cover forecast for a location.
// *weather.Client satisfies it.
type CloudSource interface {
	Fetch(ctx context.Context, latitude, longitude float64) ([]weather.Sample, error)
}

// Config is the immutable per-run pipeline configuration.
type Config struct {
	Location        solar.Location
	Panel           solar.Panel
	Step            time.Duration
	HorizonDays     int
	UTCOffsetHours  float64
	Reflectance     float64
	SmoothingWindow int
	// Timeframe is the spacing of the coarse cloud forecast.
	Timeframe time.Duration
	// Seed makes the cloud sampler reproducible; nil seeds from the clock.
	Seed     *uint64
	Timezone *time.Location
}

// ConfigFromData builds a pipeline Config from validated configuration data.
func ConfigFromData(c *config.ConfigData) (Config, error) {
	rho, ok := solar.Reflectance(c.Forecast.GroundCover)
	if !ok {
		return Config{}, fmt.Errorf("%w: unknown ground cover %q", config.ErrInvalidConfig, c.Forecast.GroundCover)
	}
	tz, err := c.Forecast.Location()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}

	lat, lon := c.Location.Coordinates()
	return Config{
		Location:        solar.Location{Latitude: lat, Longitude: lon},
		Panel:           solar.Panel{Declination: c.Panel.Declination, Tilt: c.Panel.Tilt},
		Step:            c.Forecast.Step(),
		HorizonDays:     c.Forecast.HorizonDays,
		UTCOffsetHours:  c.Forecast.UTCOffsetHours,
		Reflectance:     rho,
		SmoothingWindow: c.Forecast.SmoothingWindow,
		Timeframe:       c.Weather.Timeframe(),
		Seed:            c.Forecast.Seed,
		Timezone:        tz,
	}, nil
}

// Pipeline computes forecasts. It holds no state between runs, so
// concurrent calls to Run are independent.
type Pipeline struct {
	cfg    Config
	clouds CloudSource
	logger *zap.SugaredLogger
}

// NewPipeline returns a Pipeline for cfg that fetches clouds from clouds.
func NewPipeline(cfg Config, clouds CloudSource, logger *zap.SugaredLogger) *Pipeline {
	if cfg.Timezone == nil {
		cfg.Timezone = time.Local
	}
	if cfg.Timeframe <= 0 {
		cfg.Timeframe = config.DefaultTimeframeHours * time.Hour
	}
	if cfg.SmoothingWindow == 0 {
		cfg.SmoothingWindow = config.DefaultSmoothingWindow
	}
	return &Pipeline{
		cfg:    cfg,
		clouds: clouds,
		logger: logger,
	}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run computes a forecast starting at the local midnight of now. Any error
// aborts the run; a partial forecast is never returned.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (*Forecast, error) {
	cfg := p.cfg
	runID := uuid.New()
	started := time.Now()

	grid := solar.BuildTimeGrid(now.In(cfg.Timezone), cfg.Step, cfg.HorizonDays)
	p.logger.Debugw("built time grid",
		"run_id", runID, "start", grid.Start, "step", cfg.Step, "instants", grid.Len())

	geometry := solar.ComputeGeometry(grid, cfg.Location, cfg.Panel, cfg.UTCOffsetHours)
	if err := solar.CheckGeometry(geometry); err != nil {
		return nil, err
	}

	irradiance := solar.ComputeClearSky(grid, geometry, cfg.Panel, cfg.Reflectance)
	theoretical := solar.Theoretical(irradiance)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coarse, err := p.clouds.Fetch(ctx, cfg.Location.Latitude, cfg.Location.Longitude)
	if err != nil {
		return nil, fmt.Errorf("cloud forecast: %w", err)
	}

	clouds, held, err := weather.Align(coarse, grid.Len(), cfg.Step, cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	if held > 0 {
		p.logger.Warnw("cloud forecast shorter than grid, holding last sample",
			"run_id", runID, "held_instants", held, "coarse_samples", len(coarse))
	}

	attenuated, factors, err := NewSampler(cfg.Seed).Attenuate(theoretical, clouds)
	if err != nil {
		return nil, err
	}
	smoothed := Boxcar(attenuated, cfg.SmoothingWindow)

	for i := range irradiance {
		irradiance[i].Attenuated = attenuated[i]
		irradiance[i].Smoothed = smoothed[i]
	}

	fc := &Forecast{
		RunID:       runID,
		GeneratedAt: now,
		Start:       grid.Start,
		Step:        cfg.Step,
		Grid:        grid,
		Geometry:    geometry,
		Irradiance:  irradiance,
		Clouds:      clouds,
		Factors:     factors,
		HeldClouds:  held,
	}
	if first, last, ok := solar.DaylightSpan(grid.Times(), theoretical); ok {
		fc.Sunrise, fc.Sunset = first, last
	}

	peak, _ := fc.Peak()
	p.logger.Infow("forecast computed",
		"run_id", runID, "instants", fc.Len(), "sunrise", fc.Sunrise, "sunset", fc.Sunset,
		"peak_smoothed", peak.Smoothed, "peak_at", peak.Timestamp, "duration", time.Since(started))
	return fc, nil
}
