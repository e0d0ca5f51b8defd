// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skycast/skycast/internal/favorites"
)

// HistoryRepository implements favorites.HistoryRepository using PostgreSQL.
type HistoryRepository struct {
	db querier
}

var _ favorites.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db querier) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create stores a new weather record.
func (r *HistoryRepository) Create(ctx context.Context, rec *favorites.WeatherRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO weather_records (
			id, user_id, city, country, latitude, longitude,
			temperature, description, saved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		rec.ID.String(),
		rec.UserID.String(),
		rec.City,
		nullableString(rec.Country),
		rec.Latitude,
		rec.Longitude,
		rec.Temperature,
		rec.Description,
		rec.SavedAt,
	)
	if err != nil {
		return oops.Code("WEATHER_RECORD_CREATE_FAILED").
			With("operation", "insert weather record").
			Wrap(err)
	}
	return nil
}

// ListByUser returns the user's weather history, newest first, capped
// at MaxHistorySize.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*favorites.WeatherRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, city, country, latitude, longitude,
		       temperature, description, saved_at
		FROM weather_records
		WHERE user_id = $1
		ORDER BY saved_at DESC
		LIMIT $2
	`, userID.String(), favorites.MaxHistorySize)
	if err != nil {
		return nil, oops.Code("WEATHER_RECORD_LIST_FAILED").
			With("operation", "list weather records").
			Wrap(err)
	}
	defer rows.Close()

	result := make([]*favorites.WeatherRecord, 0)
	for rows.Next() {
		rec, err := scanWeatherRecord(rows)
		if err != nil {
			return nil, oops.Code("WEATHER_RECORD_LIST_FAILED").
				With("operation", "scan weather record").
				Wrap(err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("WEATHER_RECORD_LIST_FAILED").
			With("operation", "iterate weather records").
			Wrap(err)
	}
	return result, nil
}

// Delete removes a weather record owned by userID.
func (r *HistoryRepository) Delete(ctx context.Context, userID, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM weather_records WHERE id = $1 AND user_id = $2
	`, id.String(), userID.String())
	if err != nil {
		return oops.Code("WEATHER_RECORD_DELETE_FAILED").
			With("operation", "delete weather record").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("WEATHER_RECORD_NOT_FOUND").
			With("id", id.String()).
			Wrap(favorites.ErrNotFound)
	}
	return nil
}

func scanWeatherRecord(row pgx.Row) (*favorites.WeatherRecord, error) {
	var (
		idStr       string
		userIDStr   string
		city        string
		country     *string
		latitude    float64
		longitude   float64
		temperature float64
		description string
		savedAt     time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &city, &country, &latitude, &longitude,
		&temperature, &description, &savedAt); err != nil {
		return nil, err
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, err
	}

	rec := &favorites.WeatherRecord{
		ID:          id,
		UserID:      userID,
		City:        city,
		Latitude:    latitude,
		Longitude:   longitude,
		Temperature: temperature,
		Description: description,
		SavedAt:     savedAt,
	}
	if country != nil {
		rec.Country = *country
	}
	return rec, nil
}
