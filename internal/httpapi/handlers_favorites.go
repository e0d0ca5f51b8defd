// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/skycast/skycast/internal/auth"
	"github.com/skycast/skycast/internal/favorites"
)

// favoriteResponse is the public shape of a favorite.
type favoriteResponse struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	Country   string    `json:"country,omitempty"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

func toFavoriteResponse(f *favorites.Favorite) favoriteResponse {
	return favoriteResponse{
		ID:        f.ID.String(),
		City:      f.City,
		Country:   f.Country,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
		CreatedAt: f.CreatedAt,
	}
}

// historyResponse is the public shape of a weather history record.
type historyResponse struct {
	ID          string    `json:"id"`
	City        string    `json:"city"`
	Country     string    `json:"country,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Temperature float64   `json:"temperature"`
	Description string    `json:"description"`
	SavedAt     time.Time `json:"savedAt"`
}

func toHistoryResponse(r *favorites.WeatherRecord) historyResponse {
	return historyResponse{
		ID:          r.ID.String(),
		City:        r.City,
		Country:     r.Country,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Temperature: r.Temperature,
		Description: r.Description,
		SavedAt:     r.SavedAt,
	}
}

// requireUser returns the session user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return nil, false
	}
	return user, true
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	favs, err := s.opts.Favorites.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	out := make([]favoriteResponse, 0, len(favs))
	for _, f := range favs {
		out = append(out, toFavoriteResponse(f))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		City      string  `json:"city"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	fav, err := favorites.NewFavorite(user.ID, req.City, req.Country, req.Latitude, req.Longitude)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.opts.Favorites.Create(r.Context(), fav); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFavoriteResponse(fav))
}

func (s *Server) handleDeleteFavorite(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := s.opts.Favorites.Delete(r.Context(), user.ID, id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	records, err := s.opts.History.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	out := make([]historyResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toHistoryResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, ok := parseIDParam(w, r)
	if !ok {
		return
	}

	if err := s.opts.History.Delete(r.Context(), user.ID, id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (ulid.ULID, bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "id is required"})
		return ulid.ULID{}, false
	}
	id, err := ulid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid id"})
		return ulid.ULID{}, false
	}
	return id, true
}
