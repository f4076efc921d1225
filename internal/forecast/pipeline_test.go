package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/pvforecast/internal/weather"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

type fakeClouds struct {
	samples []weather.Sample
	err     error
	calls   int
}

func (f *fakeClouds) Fetch(ctx context.Context, latitude, longitude float64) ([]weather.Sample, error) {
	f.calls++
	return f.samples, f.err
}

func uniformClouds(pct float64, n int) *fakeClouds {
	s := make([]weather.Sample, n)
	for i := range s {
		s[i] = weather.Sample{CloudTotal: pct, CloudLow: pct / 2, Temperature: 20}
	}
	return &fakeClouds{samples: s}
}

func testConfig(step time.Duration, horizon int) Config {
	return Config{
		Location:        solar.Location{Latitude: 45, Longitude: 0},
		Panel:           solar.Panel{Declination: 0, Tilt: 0},
		Step:            step,
		HorizonDays:     horizon,
		Reflectance:     0.2,
		SmoothingWindow: 21,
		Timeframe:       3 * time.Hour,
		Seed:            seed(2024),
		Timezone:        time.UTC,
	}
}

var midsummer = time.Date(2026, time.June, 21, 9, 30, 0, 0, time.UTC)

func runPipeline(t *testing.T, cfg Config, clouds CloudSource) *Forecast {
	t.Helper()
	fc, err := NewPipeline(cfg, clouds, zap.NewNop().Sugar()).Run(context.Background(), midsummer)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return fc
}

func TestRunClearSkyMatchesTheory(t *testing.T) {
	fc := runPipeline(t, testConfig(time.Minute, 1), uniformClouds(0, 8))

	if fc.Len() != 1440 {
		t.Fatalf("forecast has %d instants, expected 1440", fc.Len())
	}
	if !fc.Start.Equal(time.Date(2026, time.June, 21, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v, expected midnight", fc.Start)
	}

	var peak float64
	for _, irr := range fc.Irradiance {
		peak = math.Max(peak, irr.Theoretical)
	}
	if peak <= 0 {
		t.Fatal("clear midsummer day has no irradiance")
	}

	for i, irr := range fc.Irradiance {
		if irr.Attenuated != irr.Theoretical {
			t.Fatalf("instant %d: attenuated %v != theoretical %v with no clouds", i, irr.Attenuated, irr.Theoretical)
		}
		if math.Abs(irr.Smoothed-irr.Theoretical) > 0.01*peak {
			t.Fatalf("instant %d: smoothed %v strays from theoretical %v", i, irr.Smoothed, irr.Theoretical)
		}
	}
}

func TestRunOvercastIsDark(t *testing.T) {
	fc := runPipeline(t, testConfig(time.Minute, 1), uniformClouds(100, 8))

	for i, irr := range fc.Irradiance {
		if irr.Attenuated != 0 || irr.Smoothed != 0 {
			t.Fatalf("instant %d: attenuated %v smoothed %v under full overcast", i, irr.Attenuated, irr.Smoothed)
		}
	}
	if fc.Sunrise.IsZero() {
		t.Error("sunrise should come from theoretical irradiance, not attenuated")
	}
}

func turinHourly() Config {
	cfg := testConfig(time.Hour, 1)
	cfg.Location = solar.Location{Latitude: 45.065262, Longitude: 7.659192}
	cfg.Timezone = time.FixedZone("CEST", 2*3600)
	return cfg
}

func TestRunTurinHourlyClearSky(t *testing.T) {
	cfg := turinHourly()
	now := time.Date(2026, time.June, 21, 9, 0, 0, 0, cfg.Timezone)
	fc, err := NewPipeline(cfg, uniformClouds(0, 8), zap.NewNop().Sugar()).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fc.Len() != 24 {
		t.Fatalf("forecast has %d instants, expected 24", fc.Len())
	}

	rise, set, err := solar.CalculateSunriseSunset(now.YearDay(), cfg.Location.Latitude, cfg.Location.Longitude)
	if err != nil {
		t.Fatalf("CalculateSunriseSunset: %v", err)
	}

	peak := 0
	for i, in := range fc.Grid.Instants {
		u := in.Time.UTC()
		minutes := u.Hour()*60 + u.Minute()
		daylight := minutes > rise && minutes < set
		if got := fc.Irradiance[i].Theoretical; (got > 0) != daylight {
			t.Errorf("%s: theoretical %v, daylight %v", in.Time.Format("15:04"), got, daylight)
		}
		if fc.Irradiance[i].Theoretical > fc.Irradiance[peak].Theoretical {
			peak = i
		}
	}

	// One daily maximum: rising up to the peak, falling after it.
	for i := 1; i < fc.Len(); i++ {
		prev, cur := fc.Irradiance[i-1].Theoretical, fc.Irradiance[i].Theoretical
		if (i <= peak && cur < prev) || (i > peak && cur > prev) {
			t.Errorf("theoretical series is not single-peaked at %s", fc.Grid.Instants[i].Time.Format("15:04"))
		}
	}
	// Solar noon in Turin falls at 13:31 local summer time.
	if h := fc.Grid.Instants[peak].Time.Hour(); h != 13 && h != 14 {
		t.Errorf("theoretical peak at %02d:00, expected 13:00 or 14:00", h)
	}

	// A 21-hour window flattens the hourly curve but keeps it unimodal.
	const eps = 1e-9
	falling := false
	for i := 1; i < fc.Len(); i++ {
		d := fc.Irradiance[i].Smoothed - fc.Irradiance[i-1].Smoothed
		if d < -eps {
			falling = true
		}
		if falling && d > eps {
			t.Fatalf("smoothed series rises again at %s", fc.Grid.Instants[i].Time.Format("15:04"))
		}
	}
	best, _ := fc.Peak()
	if best.Smoothed > fc.Irradiance[peak].Theoretical {
		t.Errorf("smoothed peak %v above theoretical peak %v", best.Smoothed, fc.Irradiance[peak].Theoretical)
	}
	if best.Timestamp.Before(fc.Sunrise) || best.Timestamp.After(fc.Sunset) {
		t.Errorf("smoothed peak at %v outside daylight %v to %v", best.Timestamp, fc.Sunrise, fc.Sunset)
	}
}

func TestRunTurinHourlyOvercast(t *testing.T) {
	cfg := turinHourly()
	now := time.Date(2026, time.June, 21, 9, 0, 0, 0, cfg.Timezone)
	fc, err := NewPipeline(cfg, uniformClouds(100, 8), zap.NewNop().Sugar()).Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for i, irr := range fc.Irradiance {
		if fc.Factors[i] != 0 || irr.Attenuated != 0 || irr.Smoothed != 0 {
			t.Fatalf("instant %d: factor %v attenuated %v smoothed %v under full overcast",
				i, fc.Factors[i], irr.Attenuated, irr.Smoothed)
		}
	}
}

func TestRunHourlyGrid(t *testing.T) {
	fc := runPipeline(t, testConfig(time.Hour, 2), uniformClouds(30, 16))

	if fc.Len() != 48 {
		t.Fatalf("forecast has %d instants, expected 48", fc.Len())
	}
	if fc.Irradiance[0].Theoretical != 0 {
		t.Errorf("midnight irradiance = %v, expected 0", fc.Irradiance[0].Theoretical)
	}
	if fc.Irradiance[13].Theoretical <= 0 {
		t.Errorf("early afternoon irradiance = %v, expected > 0", fc.Irradiance[13].Theoretical)
	}
	for i := 1; i < fc.Len(); i++ {
		if d := fc.Grid.Instants[i].Time.Sub(fc.Grid.Instants[i-1].Time); d != time.Hour {
			t.Fatalf("instant %d: spacing %v", i, d)
		}
	}
}

func TestRunBounds(t *testing.T) {
	fc := runPipeline(t, testConfig(5*time.Minute, 2), uniformClouds(45, 16))

	if len(fc.Clouds) != fc.Grid.Len() || len(fc.Factors) != fc.Grid.Len() {
		t.Fatalf("series lengths clouds=%d factors=%d grid=%d", len(fc.Clouds), len(fc.Factors), fc.Grid.Len())
	}
	for i, irr := range fc.Irradiance {
		if irr.Theoretical < 0 {
			t.Fatalf("instant %d: negative theoretical %v", i, irr.Theoretical)
		}
		if irr.Attenuated > irr.Theoretical || irr.Attenuated < 0 {
			t.Fatalf("instant %d: attenuated %v outside [0, %v]", i, irr.Attenuated, irr.Theoretical)
		}
		if f := fc.Factors[i]; f < 0 || f > 1 {
			t.Fatalf("instant %d: factor %v", i, f)
		}
		if fc.Geometry[i].Altitude <= 0 && irr.Theoretical != 0 {
			t.Fatalf("instant %d: irradiance %v with the sun below the horizon", i, irr.Theoretical)
		}
	}
}

func TestRunSeedIsReproducible(t *testing.T) {
	cfg := testConfig(10*time.Minute, 1)
	a := runPipeline(t, cfg, uniformClouds(50, 8))
	b := runPipeline(t, cfg, uniformClouds(50, 8))

	if a.RunID == b.RunID {
		t.Error("run IDs should differ between runs")
	}
	for i := range a.Factors {
		if a.Factors[i] != b.Factors[i] || a.Irradiance[i].Smoothed != b.Irradiance[i].Smoothed {
			t.Fatalf("instant %d differs between seeded runs", i)
		}
	}
}

func TestRunHoldsShortCloudSeries(t *testing.T) {
	fc := runPipeline(t, testConfig(time.Hour, 1), uniformClouds(10, 5))

	if fc.HeldClouds != 9 {
		t.Errorf("held = %d, expected 9", fc.HeldClouds)
	}
	if len(fc.Clouds) != 24 {
		t.Errorf("clouds length = %d, expected 24", len(fc.Clouds))
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		clouds *fakeClouds
		target error
	}{
		{
			name:   "fetch failure",
			clouds: &fakeClouds{err: fmt.Errorf("%w: connection refused", weather.ErrFetch)},
			target: weather.ErrFetch,
		},
		{
			name:   "empty cloud series",
			clouds: &fakeClouds{},
			target: weather.ErrAlignment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc, err := NewPipeline(testConfig(time.Hour, 1), tt.clouds, zap.NewNop().Sugar()).
				Run(context.Background(), midsummer)
			if !errors.Is(err, tt.target) {
				t.Errorf("expected %v, got %v", tt.target, err)
			}
			if fc != nil {
				t.Error("a failed run must not return a forecast")
			}
		})
	}
}

func TestRunCancelledBeforeFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	clouds := uniformClouds(0, 8)
	_, err := NewPipeline(testConfig(time.Hour, 1), clouds, zap.NewNop().Sugar()).Run(ctx, midsummer)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if clouds.calls != 0 {
		t.Errorf("weather fetched %d times after cancellation", clouds.calls)
	}
}

func TestForecastRecordsAndPeak(t *testing.T) {
	fc := runPipeline(t, testConfig(10*time.Minute, 1), uniformClouds(0, 8))

	records := fc.Records()
	if len(records) != fc.Len() {
		t.Fatalf("records = %d, expected %d", len(records), fc.Len())
	}
	if records[0].Temperature != 20 || records[0].CloudLow != 0 {
		t.Errorf("first record = %+v", records[0])
	}

	peak, ok := fc.Peak()
	if !ok {
		t.Fatal("Peak() on a non-empty forecast returned !ok")
	}
	if h := peak.Timestamp.Hour(); h < 11 || h > 14 {
		t.Errorf("peak at %v, expected around solar noon", peak.Timestamp)
	}

	after := fc.RecordsAfter(midsummer)
	if len(after) == 0 {
		t.Fatal("RecordsAfter returned no records")
	}
	if !after[0].Timestamp.After(midsummer) {
		t.Errorf("first record after %v is at %v", midsummer, after[0].Timestamp)
	}

	rise, set, ok := fc.SunHours()
	if !ok || rise >= set {
		t.Errorf("SunHours() = %d, %d, %v", rise, set, ok)
	}

	if _, ok := (&Forecast{}).Peak(); ok {
		t.Error("Peak() on an empty forecast should report !ok")
	}
}

func TestConfigFromData(t *testing.T) {
	data := &config.ConfigData{
		Panel:    config.PanelData{Tilt: 30, Declination: 15},
		Forecast: config.ForecastData{Timezone: "UTC", GroundCover: "fresh_snow"},
	}
	data.ApplyDefaults()

	cfg, err := ConfigFromData(data)
	if err != nil {
		t.Fatalf("ConfigFromData: %v", err)
	}
	if cfg.Reflectance != 0.87 {
		t.Errorf("reflectance = %v, expected 0.87", cfg.Reflectance)
	}
	if cfg.Step != time.Minute || cfg.Timeframe != 3*time.Hour {
		t.Errorf("step %v timeframe %v", cfg.Step, cfg.Timeframe)
	}
	if cfg.Panel.Tilt != 30 || cfg.Panel.Declination != 15 {
		t.Errorf("panel = %+v", cfg.Panel)
	}

	data.Forecast.GroundCover = "asphalt"
	if _, err := ConfigFromData(data); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
