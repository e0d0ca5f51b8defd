// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package httpapi_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast/internal/auth"
	"github.com/skycast/skycast/internal/auth/authtest"
	"github.com/skycast/skycast/internal/favorites"
	"github.com/skycast/skycast/internal/httpapi"
	"github.com/skycast/skycast/internal/weather"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// captureMailer records sends and signals each one on a channel.
type captureMailer struct {
	mu    sync.Mutex
	sent  []capturedEmail
	sends chan capturedEmail
}

type capturedEmail struct {
	To      string
	Subject string
	Body    string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{sends: make(chan capturedEmail, 16)}
}

func (m *captureMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	msg := capturedEmail{To: to, Subject: subject, Body: htmlBody}
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	m.sends <- msg
	return nil
}

// memFavorites is an in-memory favorites.Repository.
type memFavorites struct {
	mu    sync.Mutex
	items map[ulid.ULID]*favorites.Favorite
}

func newMemFavorites() *memFavorites {
	return &memFavorites{items: make(map[ulid.ULID]*favorites.Favorite)}
}

func (r *memFavorites) Create(_ context.Context, fav *favorites.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *fav
	r.items[fav.ID] = &clone
	return nil
}

func (r *memFavorites) ListByUser(_ context.Context, userID ulid.ULID) ([]*favorites.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*favorites.Favorite, 0)
	for _, f := range r.items {
		if f.UserID == userID {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memFavorites) Delete(_ context.Context, userID, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.items[id]
	if !ok || f.UserID != userID {
		return oops.Code("FAVORITE_NOT_FOUND").Wrap(favorites.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// memHistory is an in-memory favorites.HistoryRepository.
type memHistory struct {
	mu    sync.Mutex
	items map[ulid.ULID]*favorites.WeatherRecord
}

func newMemHistory() *memHistory {
	return &memHistory{items: make(map[ulid.ULID]*favorites.WeatherRecord)}
}

func (r *memHistory) Create(_ context.Context, rec *favorites.WeatherRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *rec
	r.items[rec.ID] = &clone
	return nil
}

func (r *memHistory) ListByUser(_ context.Context, userID ulid.ULID) ([]*favorites.WeatherRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*favorites.WeatherRecord, 0)
	for _, rec := range r.items {
		if rec.UserID == userID {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memHistory) Delete(_ context.Context, userID, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.items[id]
	if !ok || rec.UserID != userID {
		return oops.Code("WEATHER_RECORD_NOT_FOUND").Wrap(favorites.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

// testEnv bundles a wired API handler and its backing fakes.
type testEnv struct {
	server    *httpapi.Server
	users     *authtest.MemoryUserRepository
	tokens    *auth.Tokens
	mailer    *captureMailer
	favorites *memFavorites
	history   *memHistory
	upstream  *httptest.Server
}

// upstreamBody is a minimal valid Open-Meteo forecast payload.
const upstreamBody = `{
	"latitude": 52.52, "longitude": 13.41, "timezone": "Europe/Berlin",
	"current": {"time":"2026-08-31T12:00","temperature_2m":21.4,"relative_humidity_2m":58,"apparent_temperature":20.9,"precipitation":0,"weather_code":2,"wind_speed_10m":11.2,"wind_direction_10m":230},
	"daily": {"time":["2026-08-31"],"sunrise":["2026-08-31T06:21"],"sunset":["2026-08-31T19:58"],"temperature_2m_max":[23.5],"temperature_2m_min":[14.2],"uv_index_max":[5.0]}
}`

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/forecast":
			_, _ = w.Write([]byte(upstreamBody))
		case "/reverse":
			_, _ = w.Write([]byte(`{"results":[{"id":1,"name":"Berlin","latitude":52.52,"longitude":13.41,"country":"Germany"}]}`))
		case "/search":
			_, _ = w.Write([]byte(`{"results":[{"id":2950159,"name":"Berlin","latitude":52.52,"longitude":13.41,"country":"Germany","admin1":"Berlin"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	users := authtest.NewMemoryUserRepository()
	tokens, err := auth.NewTokens(testSecret)
	require.NoError(t, err)
	mailer := newCaptureMailer()
	logger := slog.New(slog.DiscardHandler)

	svc, err := auth.NewService(users, auth.NewArgon2idHasher(), tokens, mailer, "https://skycast.example", logger)
	require.NoError(t, err)

	favRepo := newMemFavorites()
	histRepo := newMemHistory()

	server, err := httpapi.NewServer(httpapi.Options{
		Addr:        "127.0.0.1:0",
		AuthService: svc,
		Sessions:    auth.NewSessionManager(tokens, users, logger),
		Weather: weather.NewClient(
			weather.WithForecastBaseURL(upstream.URL),
			weather.WithGeocodingBaseURL(upstream.URL),
		),
		Favorites: favRepo,
		History:   histRepo,
		Logger:    logger,
	})
	require.NoError(t, err)

	return &testEnv{
		server:    server,
		users:     users,
		tokens:    tokens,
		mailer:    mailer,
		favorites: favRepo,
		history:   histRepo,
		upstream:  upstream,
	}
}

// sessionCookie issues a session token for the user and wraps it in a
// cookie.
func (e *testEnv) sessionCookie(t *testing.T, user *auth.User) *http.Cookie {
	t.Helper()
	token, err := e.tokens.Issue(user.ID.String(), auth.PurposeSession)
	require.NoError(t, err)
	return &http.Cookie{Name: httpapi.SessionCookieName, Value: token}
}

// createUser registers a user directly in the store with the given
// password.
func (e *testEnv) createUser(t *testing.T, email, password string) *auth.User {
	t.Helper()
	hash, err := auth.NewArgon2idHasher().Hash(password)
	require.NoError(t, err)
	user, err := auth.NewUser(email, "Jane", "Doe", hash)
	require.NoError(t, err)
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}
