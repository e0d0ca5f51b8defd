// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/skycast/skycast/internal/favorites"
	"github.com/skycast/skycast/internal/weather"
	"github.com/skycast/skycast/pkg/errutil"
)

// openMeteo has no surface pressure field; the frontend expects one.
const defaultPressure = 1013

// forecastDay is one entry of the daily forecast.
type forecastDay struct {
	Date       string   `json:"date"`
	TempMax    float64  `json:"tempMax"`
	TempMin    float64  `json:"tempMin"`
	UVIndexMax *float64 `json:"uvIndexMax"`
}

// weatherResponse is the assembled weather payload.
type weatherResponse struct {
	City        string        `json:"city"`
	Country     string        `json:"country"`
	Latitude    float64       `json:"latitude"`
	Longitude   float64       `json:"longitude"`
	Temperature float64       `json:"temperature"`
	FeelsLike   float64       `json:"feelsLike"`
	Humidity    float64       `json:"humidity"`
	WindSpeed   float64       `json:"windSpeed"`
	UVIndex     *float64      `json:"uvIndex"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Pressure    int           `json:"pressure"`
	Sunrise     string        `json:"sunrise"`
	Sunset      string        `json:"sunset"`
	Forecast    []forecastDay `json:"forecast"`
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil || (lat == 0 && lng == 0) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid coordinates"})
		return
	}

	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	forecast, err := s.opts.Weather.CurrentAndForecast(r.Context(), lat, lng)
	if err != nil {
		s.recordUpstream("forecast", err)
		writeError(w, s.logger, err)
		return
	}
	s.recordUpstream("forecast", nil)

	// A failed reverse geocode degrades to "Unknown" rather than
	// failing the whole response.
	city, country := "Unknown", "Unknown"
	place, err := s.opts.Weather.ReverseGeocode(r.Context(), lat, lng)
	s.recordUpstream("reverse", err)
	if err != nil {
		errutil.LogError(s.logger, "reverse geocoding failed", err)
	} else if place != nil {
		if place.Name != "" {
			city = place.Name
		}
		if place.Country != "" {
			country = place.Country
		}
	}

	resp := weatherResponse{
		City:        city,
		Country:     country,
		Latitude:    lat,
		Longitude:   lng,
		Temperature: forecast.Current.Temperature,
		FeelsLike:   forecast.Current.ApparentTemperature,
		Humidity:    forecast.Current.RelativeHumidity,
		WindSpeed:   forecast.Current.WindSpeed,
		UVIndex:     forecast.CurrentUVIndex(time.Now()),
		Description: weather.Description(forecast.Current.WeatherCode),
		Icon:        weather.Icon(forecast.Current.WeatherCode),
		Pressure:    defaultPressure,
		Forecast:    buildForecastDays(forecast, days),
	}
	if len(forecast.Daily.Sunrise) > 0 {
		resp.Sunrise = forecast.Daily.Sunrise[0]
	}
	if len(forecast.Daily.Sunset) > 0 {
		resp.Sunset = forecast.Daily.Sunset[0]
	}

	// Logged-in users get the lookup saved to their history; failures
	// must not break the response.
	if user := UserFromContext(r.Context()); user != nil {
		rec, recErr := favorites.NewWeatherRecord(user.ID, city, country, lat, lng,
			forecast.Current.Temperature, resp.Description)
		if recErr == nil {
			if createErr := s.opts.History.Create(r.Context(), rec); createErr != nil {
				errutil.LogError(s.logger, "failed to save weather history", createErr)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// geocodingResult is one place search match.
type geocodingResult struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
}

func (s *Server) handleGeocoding(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "query parameter is required"})
		return
	}

	limit := 10
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	matches, err := s.opts.Weather.SearchByName(r.Context(), query, limit)
	if err != nil {
		s.recordUpstream("search", err)
		writeError(w, s.logger, err)
		return
	}
	s.recordUpstream("search", nil)

	results := make([]geocodingResult, 0, len(matches))
	for _, m := range matches {
		country := m.Country
		if country == "" {
			country = m.CountryCode
		}
		results = append(results, geocodingResult{
			ID:        m.ID,
			Name:      m.Name,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
			Country:   country,
			Admin1:    m.Admin1,
		})
	}

	writeJSON(w, http.StatusOK, map[string][]geocodingResult{"results": results})
}

// buildForecastDays assembles up to days entries from the daily series.
// At least one day is always returned when the series is non-empty.
func buildForecastDays(f *weather.Forecast, days int) []forecastDay {
	if days < 1 {
		days = 1
	}
	n := len(f.Daily.Time)
	if days < n {
		n = days
	}

	out := make([]forecastDay, 0, n)
	for i := 0; i < n; i++ {
		day := forecastDay{Date: f.Daily.Time[i]}
		if i < len(f.Daily.TemperatureMax) {
			day.TempMax = f.Daily.TemperatureMax[i]
		}
		if i < len(f.Daily.TemperatureMin) {
			day.TempMin = f.Daily.TemperatureMin[i]
		}
		if i < len(f.Daily.UVIndexMax) {
			v := f.Daily.UVIndexMax[i]
			day.UVIndexMax = &v
		}
		out = append(out, day)
	}
	return out
}

func (s *Server) recordUpstream(endpoint string, err error) {
	if s.opts.Metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	s.opts.Metrics.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
}
