package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chrissnell/pvforecast/pkg/solar"
)

// ErrInvalidConfig is returned by Validate for any out-of-range or unknown setting.
var ErrInvalidConfig = errors.New("invalid configuration")

// Defaults, taken from the deployment the forecaster was first written for.
const (
	DefaultLatitude              = 45.065262
	DefaultLongitude             = 7.659192
	DefaultStepSeconds           = 60
	DefaultHorizonDays           = 2
	DefaultGroundCover           = solar.DefaultGroundCover
	DefaultSmoothingWindow       = 21
	DefaultWeatherTimeoutSeconds = 10
	DefaultTimeframeHours        = 3
	DefaultMQTTHost              = "localhost"
	DefaultMQTTPort              = 1883
	DefaultMQTTTopic             = "v1/devices/me/telemetry"
	DefaultMQTTClientID          = "pvforecast"
	DefaultCSVDirectory          = "prediction-logs"
	DefaultRESTListenAddr        = "0.0.0.0"
	DefaultRESTPort              = 8080
	DefaultLoopIntervalSeconds   = 3600
)

// ApplyDefaults fills unset fields. Each coordinate left out of the
// configuration takes the default site's value on its own.
func (c *ConfigData) ApplyDefaults() {
	if c.Location.Latitude == nil {
		lat := DefaultLatitude
		c.Location.Latitude = &lat
	}
	if c.Location.Longitude == nil {
		lon := DefaultLongitude
		c.Location.Longitude = &lon
	}

	f := &c.Forecast
	if f.StepSeconds == 0 {
		f.StepSeconds = DefaultStepSeconds
	}
	if f.HorizonDays == 0 {
		f.HorizonDays = DefaultHorizonDays
	}
	if f.Timezone == "" {
		f.Timezone = "Local"
	}
	if f.GroundCover == "" {
		f.GroundCover = DefaultGroundCover
	}
	if f.SmoothingWindow == 0 {
		f.SmoothingWindow = DefaultSmoothingWindow
	}

	w := &c.Weather
	if w.TimeoutSeconds == 0 {
		w.TimeoutSeconds = DefaultWeatherTimeoutSeconds
	}
	if w.TimeframeHours == 0 {
		w.TimeframeHours = DefaultTimeframeHours
	}

	m := &c.MQTT
	if m.Host == "" {
		m.Host = DefaultMQTTHost
	}
	if m.Port == 0 {
		m.Port = DefaultMQTTPort
	}
	if m.Topic == "" {
		m.Topic = DefaultMQTTTopic
	}
	if m.ClientID == "" {
		m.ClientID = DefaultMQTTClientID
	}

	if c.CSVLog.Directory == "" {
		c.CSVLog.Directory = DefaultCSVDirectory
	}

	if c.REST.ListenAddr == "" {
		c.REST.ListenAddr = DefaultRESTListenAddr
	}
	if c.REST.Port == 0 {
		c.REST.Port = DefaultRESTPort
	}

	if c.Daemon.LoopIntervalSeconds == 0 {
		c.Daemon.LoopIntervalSeconds = DefaultLoopIntervalSeconds
	}
}

// Validate rejects out-of-range settings. Values are never clamped.
func (c *ConfigData) Validate() error {
	var problems []string
	fail := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Location.Latitude == nil {
		fail("location.latitude is required")
	} else if lat := *c.Location.Latitude; lat < -90 || lat > 90 {
		fail("location.latitude %v outside [-90, 90]", lat)
	}
	if c.Location.Longitude == nil {
		fail("location.longitude is required")
	} else if lon := *c.Location.Longitude; lon < -180 || lon > 180 {
		fail("location.longitude %v outside [-180, 180]", lon)
	}

	if c.Panel.Tilt < 0 || c.Panel.Tilt > 90 {
		fail("panel.tilt %v outside [0, 90]", c.Panel.Tilt)
	}
	if c.Panel.Declination < -360 || c.Panel.Declination > 360 {
		fail("panel.declination %v outside [-360, 360]", c.Panel.Declination)
	}

	f := c.Forecast
	if f.StepSeconds < 1 || f.StepSeconds > 86400 {
		fail("forecast.step_seconds %d outside [1, 86400]", f.StepSeconds)
	}
	if f.HorizonDays < 1 || f.HorizonDays > 6 {
		fail("forecast.horizon_days %d outside [1, 6]", f.HorizonDays)
	}
	if f.UTCOffsetHours < -12 || f.UTCOffsetHours > 14 {
		fail("forecast.utc_offset_hours %v outside [-12, 14]", f.UTCOffsetHours)
	}
	if _, ok := solar.Reflectance(f.GroundCover); !ok {
		fail("forecast.ground_cover %q is not one of %s", f.GroundCover, strings.Join(solar.GroundCovers(), ", "))
	}
	if f.SmoothingWindow < 1 || f.SmoothingWindow%2 == 0 {
		fail("forecast.smoothing_window %d must be a positive odd number", f.SmoothingWindow)
	}
	if f.Timezone != "" {
		if _, err := time.LoadLocation(f.Timezone); err != nil {
			fail("forecast.timezone %q: %v", f.Timezone, err)
		}
	}

	if c.Weather.TimeoutSeconds < 1 {
		fail("weather.timeout_seconds %d must be at least 1", c.Weather.TimeoutSeconds)
	}
	if c.Weather.TimeframeHours < 1 {
		fail("weather.timeframe_hours %d must be at least 1", c.Weather.TimeframeHours)
	}
	if c.Weather.MaxRetries < 0 {
		fail("weather.max_retries %d must not be negative", c.Weather.MaxRetries)
	}

	if c.MQTT.Enabled {
		if len(c.MQTT.Host) < 3 {
			fail("mqtt.host %q is too short", c.MQTT.Host)
		}
		if c.MQTT.Port < 10 || c.MQTT.Port > 65535 {
			fail("mqtt.port %d outside [10, 65535]", c.MQTT.Port)
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			fail("mqtt.qos %d outside [0, 2]", c.MQTT.QoS)
		}
	}

	if c.REST.Enabled && (c.REST.Port < 1 || c.REST.Port > 65535) {
		fail("rest.port %d outside [1, 65535]", c.REST.Port)
	}

	d := c.Daemon
	if d.LoopIntervalSeconds < 1 {
		fail("daemon.loop_interval_seconds %d must be at least 1", d.LoopIntervalSeconds)
	}
	if d.SunriseHour != nil && (*d.SunriseHour < 0 || *d.SunriseHour > 23) {
		fail("daemon.sunrise_hour %d outside [0, 23]", *d.SunriseHour)
	}
	if d.SunsetHour != nil && (*d.SunsetHour < 0 || *d.SunsetHour > 23) {
		fail("daemon.sunset_hour %d outside [0, 23]", *d.SunsetHour)
	}
	if d.SunriseHour != nil && d.SunsetHour != nil && *d.SunriseHour >= *d.SunsetHour {
		fail("daemon.sunrise_hour %d must be before daemon.sunset_hour %d", *d.SunriseHour, *d.SunsetHour)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Step returns the forecast step as a duration.
func (f ForecastData) Step() time.Duration {
	return time.Duration(f.StepSeconds) * time.Second
}

// Timeframe returns the weather timeframe length as a duration.
func (w WeatherData) Timeframe() time.Duration {
	return time.Duration(w.TimeframeHours) * time.Hour
}

// LoopInterval returns the daemon loop interval as a duration.
func (d DaemonData) LoopInterval() time.Duration {
	return time.Duration(d.LoopIntervalSeconds) * time.Second
}

// Location resolves the configured timezone.
func (f ForecastData) Location() (*time.Location, error) {
	if f.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(f.Timezone)
}
