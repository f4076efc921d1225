package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// ErrFetch wraps every failure to obtain a usable forecast from the weather
// service: transport errors, bad status codes, undecodable or empty bodies.
var ErrFetch = errors.New("weather forecast fetch failed")

// DefaultAPIEndpoint is the Weather Unlocked base URL.
const DefaultAPIEndpoint = "http://api.weatherunlocked.com"

// Client talks to the Weather Unlocked local forecast API.
type Client struct {
	endpoint   string
	appID      string
	appKey     string
	timeout    time.Duration
	maxRetries uint64
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient builds a Client from the weather section of the configuration.
func NewClient(wc config.WeatherData, logger *zap.SugaredLogger) *Client {
	endpoint := wc.APIEndpoint
	if endpoint == "" {
		endpoint = DefaultAPIEndpoint
	}
	timeout := time.Duration(wc.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultWeatherTimeoutSeconds * time.Second
	}
	maxRetries := uint64(0)
	if wc.MaxRetries > 0 {
		maxRetries = uint64(wc.MaxRetries)
	}

	return &Client{
		endpoint:   endpoint,
		appID:      wc.AppID,
		appKey:     wc.AppKey,
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Fetch retrieves the coarse cloud forecast for a location. The whole call,
// retries included, is bounded by the configured timeout.
func (c *Client) Fetch(ctx context.Context, latitude, longitude float64) ([]Sample, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var samples []Sample
	attempt := 0

	operation := func() error {
		attempt++
		s, err := c.fetchOnce(ctx, latitude, longitude)
		if err != nil {
			c.logger.Debugf("weather fetch attempt %d failed: %v", attempt, err)
			return err
		}
		samples = s
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}

	c.logger.Debugf("fetched %d weather timeframes after %d attempt(s)", len(samples), attempt)
	return samples, nil
}

func (c *Client) forecastURL(latitude, longitude float64) string {
	v := url.Values{}
	v.Set("app_id", c.appID)
	v.Set("app_key", c.appKey)

	location := fmt.Sprintf("%.6f,%.6f", latitude, longitude)
	return c.endpoint + "/api/forecast/" + location + "?" + v.Encode()
}

func (c *Client) fetchOnce(ctx context.Context, latitude, longitude float64) ([]Sample, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.forecastURL(latitude, longitude), nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("error creating Weather Unlocked HTTP request: %v", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request to Weather Unlocked: %v", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("Weather Unlocked responded with status %s", resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		// Client errors (bad credentials, bad location) will not fix themselves.
		return nil, backoff.Permanent(fmt.Errorf("Weather Unlocked responded with status %s: %s", resp.Status, truncate(bodyBytes, 200)))
	}

	response := &ForecastResponse{}
	if err := json.NewDecoder(bytes.NewReader(bodyBytes)).Decode(response); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("unable to decode Weather Unlocked response: %v", err))
	}

	samples := response.Samples()
	if len(samples) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("Weather Unlocked response contains no timeframes"))
	}
	return samples, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
