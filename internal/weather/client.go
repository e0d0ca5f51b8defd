// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package weather proxies the Open-Meteo forecast and geocoding APIs.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Default upstream endpoints.
const (
	DefaultForecastBaseURL  = "https://api.open-meteo.com/v1"
	DefaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com/v1"
)

const (
	requestTimeout  = 10 * time.Second
	maxRetries      = 3
	retryBaseDelay  = 200 * time.Millisecond
	maxSearchCount  = 50
	forecastCurrent = "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m,wind_direction_10m"
	forecastHourly  = "temperature_2m,relativehumidity_2m,apparent_temperature,precipitation,weathercode,wind_speed_10m,uv_index"
	forecastDaily   = "temperature_2m_max,temperature_2m_min,sunrise,sunset,uv_index_max"
)

// Forecast is the upstream forecast payload, trimmed to the fields the
// API serves.
type Forecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   Current `json:"current"`
	Hourly    *Hourly `json:"hourly,omitempty"`
	Daily     Daily   `json:"daily"`
}

// Current holds current conditions.
type Current struct {
	Time                string  `json:"time"`
	Temperature         float64 `json:"temperature_2m"`
	RelativeHumidity    float64 `json:"relative_humidity_2m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	Precipitation       float64 `json:"precipitation"`
	WeatherCode         int     `json:"weather_code"`
	WindSpeed           float64 `json:"wind_speed_10m"`
	WindDirection       float64 `json:"wind_direction_10m"`
}

// Hourly holds hourly series; only UV index is consumed today.
type Hourly struct {
	Time    []string  `json:"time"`
	UVIndex []float64 `json:"uv_index"`
}

// Daily holds the daily forecast series.
type Daily struct {
	Time           []string  `json:"time"`
	Sunrise        []string  `json:"sunrise"`
	Sunset         []string  `json:"sunset"`
	TemperatureMax []float64 `json:"temperature_2m_max"`
	TemperatureMin []float64 `json:"temperature_2m_min"`
	UVIndexMax     []float64 `json:"uv_index_max"`
}

// CurrentUVIndex returns the UV index for the hour containing now, or
// nil when the hourly series is absent. Falls back to the first entry
// when the current hour is missing from the series.
func (f *Forecast) CurrentUVIndex(now time.Time) *float64 {
	if f.Hourly == nil || len(f.Hourly.Time) == 0 || len(f.Hourly.UVIndex) == 0 {
		return nil
	}
	prefix := now.UTC().Format("2006-01-02T15")
	for i, ts := range f.Hourly.Time {
		if len(ts) >= len(prefix) && ts[:len(prefix)] == prefix && i < len(f.Hourly.UVIndex) {
			v := f.Hourly.UVIndex[i]
			return &v
		}
	}
	v := f.Hourly.UVIndex[0]
	return &v
}

// GeoResult is one geocoding match.
type GeoResult struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
}

// GeoResponse is the upstream geocoding payload.
type GeoResponse struct {
	Results []GeoResult `json:"results"`
}

// Client calls the Open-Meteo forecast and geocoding APIs.
type Client struct {
	forecastBase  string
	geocodingBase string
	httpClient    *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithForecastBaseURL overrides the forecast API base URL.
func WithForecastBaseURL(base string) ClientOption {
	return func(c *Client) { c.forecastBase = base }
}

// WithGeocodingBaseURL overrides the geocoding API base URL.
func WithGeocodingBaseURL(base string) ClientOption {
	return func(c *Client) { c.geocodingBase = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client with production defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		forecastBase:  DefaultForecastBaseURL,
		geocodingBase: DefaultGeocodingBaseURL,
		httpClient:    &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CurrentAndForecast fetches current conditions plus the daily forecast
// for the given coordinates.
func (c *Client) CurrentAndForecast(ctx context.Context, latitude, longitude float64) (*Forecast, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(latitude))
	params.Set("longitude", formatCoord(longitude))
	params.Set("current", forecastCurrent)
	params.Set("hourly", forecastHourly)
	params.Set("daily", forecastDaily)
	params.Set("timezone", "auto")

	var forecast Forecast
	if err := c.getJSON(ctx, c.forecastBase+"/forecast?"+params.Encode(), &forecast); err != nil {
		return nil, oops.Code("WEATHER_FETCH_FAILED").
			With("latitude", latitude).
			With("longitude", longitude).
			Wrap(err)
	}
	return &forecast, nil
}

// SearchByName geocodes a place name. count is clamped to the upstream
// maximum.
func (c *Client) SearchByName(ctx context.Context, name string, count int) ([]GeoResult, error) {
	if name == "" {
		return nil, oops.Code("WEATHER_VALIDATION").Errorf("search query cannot be empty")
	}
	if count <= 0 {
		count = 10
	}
	if count > maxSearchCount {
		count = maxSearchCount
	}

	params := url.Values{}
	params.Set("name", name)
	params.Set("count", fmt.Sprintf("%d", count))
	params.Set("language", "en")
	params.Set("format", "json")

	var resp GeoResponse
	if err := c.getJSON(ctx, c.geocodingBase+"/search?"+params.Encode(), &resp); err != nil {
		return nil, oops.Code("GEOCODING_FETCH_FAILED").
			With("query", name).
			Wrap(err)
	}
	return resp.Results, nil
}

// ReverseGeocode finds the nearest named place to the coordinates.
// Returns nil when the upstream has no match.
func (c *Client) ReverseGeocode(ctx context.Context, latitude, longitude float64) (*GeoResult, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(latitude))
	params.Set("longitude", formatCoord(longitude))
	params.Set("language", "en")
	params.Set("format", "json")

	var resp GeoResponse
	if err := c.getJSON(ctx, c.geocodingBase+"/reverse?"+params.Encode(), &resp); err != nil {
		return nil, oops.Code("GEOCODING_FETCH_FAILED").
			With("latitude", latitude).
			With("longitude", longitude).
			Wrap(err)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// getJSON fetches a URL and decodes the JSON body, retrying transient
// failures with fibonacci backoff. 4xx responses are not retried.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	backoff := retry.WithMaxRetries(maxRetries, retry.NewFibonacci(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close() //nolint:errcheck

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("upstream returned %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("upstream returned %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(out)
	})
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%g", v)
}
