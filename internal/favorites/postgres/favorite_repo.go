// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package postgres implements the favorites repositories on PostgreSQL.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skycast/skycast/internal/favorites"
)

// querier is the subset of pgxpool.Pool used by the repositories. It
// lets tests substitute pgxmock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// FavoriteRepository implements favorites.Repository using PostgreSQL.
type FavoriteRepository struct {
	db querier
}

var _ favorites.Repository = (*FavoriteRepository)(nil)

// NewFavoriteRepository creates a new FavoriteRepository.
func NewFavoriteRepository(db querier) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

// Create stores a new favorite.
func (r *FavoriteRepository) Create(ctx context.Context, fav *favorites.Favorite) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO favorites (id, user_id, city, country, latitude, longitude, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		fav.ID.String(),
		fav.UserID.String(),
		fav.City,
		nullableString(fav.Country),
		fav.Latitude,
		fav.Longitude,
		fav.CreatedAt,
	)
	if err != nil {
		return oops.Code("FAVORITE_CREATE_FAILED").
			With("operation", "insert favorite").
			Wrap(err)
	}
	return nil
}

// ListByUser returns the user's favorites, newest first, capped at
// MaxListSize.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*favorites.Favorite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, city, country, latitude, longitude, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID.String(), favorites.MaxListSize)
	if err != nil {
		return nil, oops.Code("FAVORITE_LIST_FAILED").
			With("operation", "list favorites").
			Wrap(err)
	}
	defer rows.Close()

	result := make([]*favorites.Favorite, 0)
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, oops.Code("FAVORITE_LIST_FAILED").
				With("operation", "scan favorite").
				Wrap(err)
		}
		result = append(result, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("FAVORITE_LIST_FAILED").
			With("operation", "iterate favorites").
			Wrap(err)
	}
	return result, nil
}

// Delete removes a favorite owned by userID.
func (r *FavoriteRepository) Delete(ctx context.Context, userID, id ulid.ULID) error {
	result, err := r.db.Exec(ctx, `
		DELETE FROM favorites WHERE id = $1 AND user_id = $2
	`, id.String(), userID.String())
	if err != nil {
		return oops.Code("FAVORITE_DELETE_FAILED").
			With("operation", "delete favorite").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("FAVORITE_NOT_FOUND").
			With("id", id.String()).
			Wrap(favorites.ErrNotFound)
	}
	return nil
}

func scanFavorite(row pgx.Row) (*favorites.Favorite, error) {
	var (
		idStr     string
		userIDStr string
		city      string
		country   *string
		latitude  float64
		longitude float64
		createdAt time.Time
	)
	if err := row.Scan(&idStr, &userIDStr, &city, &country, &latitude, &longitude, &createdAt); err != nil {
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

	fav := &favorites.Favorite{
		ID:        id,
		UserID:    userID,
		City:      city,
		Latitude:  latitude,
		Longitude: longitude,
		CreatedAt: createdAt,
	}
	if country != nil {
		fav.Country = *country
	}
	return fav, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
