// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/skycast/skycast/internal/auth"
	authpg "github.com/skycast/skycast/internal/auth/postgres"
	favpg "github.com/skycast/skycast/internal/favorites/postgres"
	"github.com/skycast/skycast/internal/httpapi"
	"github.com/skycast/skycast/internal/mail"
	"github.com/skycast/skycast/internal/store"
	"github.com/skycast/skycast/internal/weather"
)

const tokenSecret = "0123456789abcdef0123456789abcdef"

// apiEnv holds the full stack under test: a PostgreSQL container, a fake
// Open-Meteo upstream, and the wired API server.
type apiEnv struct {
	ctx       context.Context
	container testcontainers.Container
	pool      *pgxpool.Pool
	upstream  *httptest.Server
	apiServer *httpapi.Server
	baseURL   string
	client    *http.Client
}

var api *apiEnv

var _ = BeforeSuite(func() {
	var err error
	api, err = setupAPIEnv()
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if api != nil {
		api.cleanup()
	}
})

func setupAPIEnv() (*apiEnv, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("skycast_test"),
		postgres.WithUsername("skycast"),
		postgres.WithPassword("skycast"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = container.Terminate(ctx)
		return nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/forecast":
			_, _ = w.Write([]byte(`{
				"latitude": 52.52, "longitude": 13.41, "timezone": "Europe/Berlin",
				"current": {"time":"2026-08-31T12:00","temperature_2m":21.4,"relative_humidity_2m":58,"apparent_temperature":20.9,"precipitation":0,"weather_code":2,"wind_speed_10m":11.2,"wind_direction_10m":230},
				"daily": {"time":["2026-08-31"],"sunrise":["2026-08-31T06:21"],"sunset":["2026-08-31T19:58"],"temperature_2m_max":[23.5],"temperature_2m_min":[14.2],"uv_index_max":[5.0]}
			}`))
		case "/reverse", "/search":
			_, _ = w.Write([]byte(`{"results":[{"id":1,"name":"Berlin","latitude":52.52,"longitude":13.41,"country":"Germany"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	logger := slog.New(slog.DiscardHandler)

	tokens, err := auth.NewTokens(tokenSecret)
	if err != nil {
		return nil, err
	}
	users := authpg.NewUserRepository(pool)

	authSvc, err := auth.NewService(users, auth.NewArgon2idHasher(), tokens,
		mail.NewLogMailer(logger), "http://localhost", logger)
	if err != nil {
		return nil, err
	}

	apiServer, err := httpapi.NewServer(httpapi.Options{
		Addr:        "127.0.0.1:0",
		AuthService: authSvc,
		Sessions:    auth.NewSessionManager(tokens, users, logger),
		Weather: weather.NewClient(
			weather.WithForecastBaseURL(upstream.URL),
			weather.WithGeocodingBaseURL(upstream.URL),
		),
		Favorites: favpg.NewFavoriteRepository(pool),
		History:   favpg.NewHistoryRepository(pool),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if _, err := apiServer.Start(); err != nil {
		return nil, err
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &apiEnv{
		ctx:       ctx,
		container: container,
		pool:      pool,
		upstream:  upstream,
		apiServer: apiServer,
		baseURL:   "http://" + apiServer.Addr(),
		client:    &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}, nil
}

func (e *apiEnv) cleanup() {
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if e.apiServer != nil {
		_ = e.apiServer.Stop(stopCtx)
	}
	if e.upstream != nil {
		e.upstream.Close()
	}
	if e.pool != nil {
		e.pool.Close()
	}
	if e.container != nil {
		_ = e.container.Terminate(e.ctx)
	}
}

func (e *apiEnv) post(path, body string) *http.Response {
	resp, err := e.client.Post(e.baseURL+path, "application/json", bytes.NewReader([]byte(body)))
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func (e *apiEnv) get(path string) *http.Response {
	resp, err := e.client.Get(e.baseURL + path)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func decode(resp *http.Response, v any) {
	defer func() { _ = resp.Body.Close() }()
	Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
}

var _ = Describe("API", Ordered, func() {
	It("registers a new account", func() {
		resp := api.post("/api/auth/register",
			`{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"secret123"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var user struct {
			Email         string `json:"email"`
			EmailVerified bool   `json:"emailVerified"`
		}
		decode(resp, &user)
		Expect(user.Email).To(Equal("jane@example.com"))
		Expect(user.EmailVerified).To(BeFalse())
	})

	It("logs in and establishes a session", func() {
		resp := api.post("/api/auth/login",
			`{"email":"jane@example.com","password":"secret123"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		_ = resp.Body.Close()

		me := api.get("/api/auth/me")
		Expect(me.StatusCode).To(Equal(http.StatusOK))

		var user struct {
			Email string `json:"email"`
		}
		decode(me, &user)
		Expect(user.Email).To(Equal("jane@example.com"))
	})

	It("proxies weather and saves history", func() {
		resp := api.get("/api/weather?lat=52.52&lng=13.41")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var payload struct {
			City     string `json:"city"`
			Pressure int    `json:"pressure"`
		}
		decode(resp, &payload)
		Expect(payload.City).To(Equal("Berlin"))
		Expect(payload.Pressure).To(Equal(1013))

		hist := api.get("/api/history")
		Expect(hist.StatusCode).To(Equal(http.StatusOK))

		var records []struct {
			City string `json:"city"`
		}
		decode(hist, &records)
		Expect(records).To(HaveLen(1))
		Expect(records[0].City).To(Equal("Berlin"))
	})

	It("manages favorites over the API", func() {
		resp := api.post("/api/favorites",
			`{"city":"Berlin","country":"Germany","latitude":52.52,"longitude":13.41}`)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var fav struct {
			ID string `json:"id"`
		}
		decode(resp, &fav)
		Expect(fav.ID).NotTo(BeEmpty())

		list := api.get("/api/favorites")
		Expect(list.StatusCode).To(Equal(http.StatusOK))

		var favs []struct {
			City string `json:"city"`
		}
		decode(list, &favs)
		Expect(favs).To(HaveLen(1))
	})

	It("logs out and loses the session", func() {
		resp := api.post("/api/auth/logout", "")
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		_ = resp.Body.Close()

		me := api.get("/api/auth/me")
		Expect(me.StatusCode).To(Equal(http.StatusUnauthorized))
		_ = me.Body.Close()
	})
})
