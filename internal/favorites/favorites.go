// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package favorites manages saved locations and weather history.
package favorites

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MaxListSize caps favorite list responses.
const MaxListSize = 100

// MaxHistorySize caps weather history responses.
const MaxHistorySize = 20

// ErrNotFound is returned when a requested entity does not exist or is
// owned by another user.
var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Favorite is a location a user saved for quick access.
type Favorite struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	City      string
	Country   string
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
}

// NewFavorite creates a validated Favorite.
func NewFavorite(userID ulid.ULID, city, country string, latitude, longitude float64) (*Favorite, error) {
	if city == "" {
		return nil, oops.Code("FAVORITE_VALIDATION").Errorf("city is required")
	}
	if latitude < -90 || latitude > 90 {
		return nil, oops.Code("FAVORITE_VALIDATION").
			With("latitude", latitude).
			Errorf("latitude out of range")
	}
	if longitude < -180 || longitude > 180 {
		return nil, oops.Code("FAVORITE_VALIDATION").
			With("longitude", longitude).
			Errorf("longitude out of range")
	}
	return &Favorite{
		ID:        ulid.Make(),
		UserID:    userID,
		City:      city,
		Country:   country,
		Latitude:  latitude,
		Longitude: longitude,
		CreatedAt: time.Now(),
	}, nil
}

// WeatherRecord is one saved weather observation in a user's history.
type WeatherRecord struct {
	ID          ulid.ULID
	UserID      ulid.ULID
	City        string
	Country     string
	Latitude    float64
	Longitude   float64
	Temperature float64
	Description string
	SavedAt     time.Time
}

// NewWeatherRecord creates a validated WeatherRecord.
func NewWeatherRecord(userID ulid.ULID, city, country string, latitude, longitude, temperature float64, description string) (*WeatherRecord, error) {
	if city == "" {
		return nil, oops.Code("WEATHER_RECORD_VALIDATION").Errorf("city is required")
	}
	return &WeatherRecord{
		ID:          ulid.Make(),
		UserID:      userID,
		City:        city,
		Country:     country,
		Latitude:    latitude,
		Longitude:   longitude,
		Temperature: temperature,
		Description: description,
		SavedAt:     time.Now(),
	}, nil
}

// Repository manages favorite persistence. List results are scoped to
// one user and ordered newest first.
type Repository interface {
	Create(ctx context.Context, fav *Favorite) error
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Favorite, error)

	// Delete removes a favorite owned by userID. Deleting another
	// user's favorite fails with ErrNotFound rather than revealing it
	// exists.
	Delete(ctx context.Context, userID, id ulid.ULID) error
}

// HistoryRepository manages weather history persistence.
type HistoryRepository interface {
	Create(ctx context.Context, rec *WeatherRecord) error
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*WeatherRecord, error)
	Delete(ctx context.Context, userID, id ulid.ULID) error
}
