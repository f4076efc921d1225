package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/pvforecast/internal/forecast"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

type runner interface {
	Run(ctx context.Context, now time.Time) (*forecast.Forecast, error)
}

type distributor interface {
	Distribute(ctx context.Context, fc *forecast.Forecast) error
}

// Window is the range of local hours, both inclusive, during which the
// daemon computes forecasts.
type Window struct {
	Sunrise int
	Sunset  int
}

// Contains reports whether hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.Sunrise && hour <= w.Sunset
}

// InitialWindow returns the configured window. Hours left unset come from
// the computed sunrise and sunset for now's date at loc; polar day or
// night opens the window to the whole day.
func InitialWindow(d config.DaemonData, loc config.LocationData, now time.Time) Window {
	w := Window{Sunrise: 0, Sunset: 23}

	if d.SunriseHour == nil || d.SunsetHour == nil {
		lat, lon := loc.Coordinates()
		rise, set, err := solar.CalculateSunriseSunset(now.YearDay(), lat, lon)
		if err == nil {
			if h := solar.LocalSunHour(rise, now); h >= 0 {
				w.Sunrise = h
			}
			if h := solar.LocalSunHour(set, now); h >= 0 {
				w.Sunset = h
			}
		}
	}

	if d.SunriseHour != nil {
		w.Sunrise = *d.SunriseHour
	}
	if d.SunsetHour != nil {
		w.Sunset = *d.SunsetHour
	}
	return w
}

// Daylight returns the computed sunrise and sunset for now's date at loc as
// local clock times. Both are empty under polar day or night.
func Daylight(loc config.LocationData, now time.Time) (sunrise, sunset string) {
	lat, lon := loc.Coordinates()
	rise, set, err := solar.CalculateSunriseSunset(now.YearDay(), lat, lon)
	if err != nil {
		return "", ""
	}
	return solar.FormatSunTime(rise, now), solar.FormatSunTime(set, now)
}

type daemon struct {
	pipeline     runner
	sinks        distributor
	window       Window
	updateWindow bool
	interval     time.Duration
	tz           *time.Location
	now          func() time.Time
	logger       *zap.SugaredLogger
}

func newDaemon(p runner, s distributor, w Window, dc config.DaemonData, tz *time.Location, logger *zap.SugaredLogger) *daemon {
	return &daemon{
		pipeline:     p,
		sinks:        s,
		window:       w,
		updateWindow: dc.UpdateWindow,
		interval:     dc.LoopInterval(),
		tz:           tz,
		now:          time.Now,
		logger:       logger,
	}
}

// run ticks immediately and then every interval until ctx is cancelled.
func (d *daemon) run(ctx context.Context) error {
	d.logger.Infow("forecast loop started",
		"interval", d.interval, "sunrise_hour", d.window.Sunrise, "sunset_hour", d.window.Sunset)

	if err := d.tick(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := d.tick(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tick runs one forecast if the local hour is inside the window. Pipeline
// and sink failures are logged and the loop carries on; only cancellation
// is returned.
func (d *daemon) tick(ctx context.Context) error {
	now := d.now().In(d.tz)
	if !d.window.Contains(now.Hour()) {
		d.logger.Debugw("outside forecast window, skipping",
			"hour", now.Hour(), "sunrise_hour", d.window.Sunrise, "sunset_hour", d.window.Sunset)
		return nil
	}

	fc, err := d.pipeline.Run(ctx, now)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Errorw("forecast run failed", "error", err)
		return nil
	}

	if err := d.sinks.Distribute(ctx, fc); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Warnw("forecast delivered with errors", "run_id", fc.RunID, "error", err)
	}

	if d.updateWindow {
		if rise, set, ok := fc.SunHours(); ok && rise < set {
			if rise != d.window.Sunrise || set != d.window.Sunset {
				d.logger.Infow("updated forecast window", "sunrise_hour", rise, "sunset_hour", set)
			}
			d.window = Window{Sunrise: rise, Sunset: set}
		}
	}
	return nil
}
