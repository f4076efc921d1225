package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Location LocationData   `json:"location" yaml:"location"`
	Panel    PanelData      `json:"panel" yaml:"panel"`
	Forecast ForecastData   `json:"forecast" yaml:"forecast"`
	Weather  WeatherData    `json:"weather" yaml:"weather"`
	MQTT     MQTTData       `json:"mqtt" yaml:"mqtt"`
	CSVLog   CSVLogData     `json:"csv_log" yaml:"csv_log"`
	REST     RESTServerData `json:"rest" yaml:"rest"`
	Daemon   DaemonData     `json:"daemon" yaml:"daemon"`
}

// LocationData is the forecast site in decimal degrees. A nil coordinate
// was left out of the configuration; zero is a real position.
type LocationData struct {
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// Coordinates returns the site's latitude and longitude. Unset coordinates
// read as zero; ApplyDefaults fills them first.
func (l LocationData) Coordinates() (latitude, longitude float64) {
	if l.Latitude != nil {
		latitude = *l.Latitude
	}
	if l.Longitude != nil {
		longitude = *l.Longitude
	}
	return latitude, longitude
}

// NewLocation returns a LocationData with both coordinates set.
func NewLocation(latitude, longitude float64) LocationData {
	return LocationData{Latitude: &latitude, Longitude: &longitude}
}

// PanelData holds the PV panel orientation in degrees
type PanelData struct {
	Declination float64 `json:"declination" yaml:"declination"`
	Tilt        float64 `json:"tilt" yaml:"tilt"`
}

// ForecastData holds the time grid and model settings
type ForecastData struct {
	StepSeconds     int     `json:"step_seconds" yaml:"step_seconds"`
	HorizonDays     int     `json:"horizon_days" yaml:"horizon_days"`
	UTCOffsetHours  float64 `json:"utc_offset_hours,omitempty" yaml:"utc_offset_hours,omitempty"`
	Timezone        string  `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	GroundCover     string  `json:"ground_cover,omitempty" yaml:"ground_cover,omitempty"`
	Seed            *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	SmoothingWindow int     `json:"smoothing_window,omitempty" yaml:"smoothing_window,omitempty"`
}

// WeatherData configures the Weather Unlocked forecast client
type WeatherData struct {
	APIEndpoint    string `json:"api_endpoint,omitempty" yaml:"api_endpoint,omitempty"`
	AppID          string `json:"app_id" yaml:"app_id"`
	AppKey         string `json:"app_key" yaml:"app_key"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	TimeframeHours int    `json:"timeframe_hours,omitempty" yaml:"timeframe_hours,omitempty"`
	MaxRetries     int    `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
}

// MQTTData configures the ThingsBoard telemetry publisher
type MQTTData struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	Host        string `json:"host,omitempty" yaml:"host,omitempty"`
	Port        int    `json:"port,omitempty" yaml:"port,omitempty"`
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	ClientID    string `json:"client_id,omitempty" yaml:"client_id,omitempty"`
	Topic       string `json:"topic,omitempty" yaml:"topic,omitempty"`
	QoS         int    `json:"qos,omitempty" yaml:"qos,omitempty"`
}

// CSVLogData configures the per-run prediction log
type CSVLogData struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty"`
}

// RESTServerData configures the read-only forecast API
type RESTServerData struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
	Port       int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// DaemonData configures the periodic forecast loop. SunriseHour and
// SunsetHour bound the local hours during which forecasts are computed.
type DaemonData struct {
	LoopIntervalSeconds int  `json:"loop_interval_seconds,omitempty" yaml:"loop_interval_seconds,omitempty"`
	SunriseHour         *int `json:"sunrise_hour,omitempty" yaml:"sunrise_hour,omitempty"`
	SunsetHour          *int `json:"sunset_hour,omitempty" yaml:"sunset_hour,omitempty"`
	UpdateWindow        bool `json:"update_window,omitempty" yaml:"update_window,omitempty"`
}
