// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package httpapi serves the SkyCast HTTP API: authentication, the
// weather proxy, and per-user favorites and history.
package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/skycast/skycast/internal/auth"
	"github.com/skycast/skycast/internal/favorites"
	"github.com/skycast/skycast/internal/observability"
	"github.com/skycast/skycast/internal/weather"
)

// Options carries the dependencies and settings for a Server.
type Options struct {
	Addr          string
	SecureCookies bool
	SessionTTL    time.Duration

	AuthService *auth.Service
	Sessions    *auth.SessionManager
	Weather     *weather.Client
	Favorites   favorites.Repository
	History     favorites.HistoryRepository

	// Metrics is optional; nil disables request counters.
	Metrics *observability.Metrics

	// PublicPatterns overrides the default public route list. Nil keeps
	// the defaults.
	PublicPatterns []string

	Logger *slog.Logger

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the API HTTP server.
type Server struct {
	opts       Options
	guard      *Guard
	handler    http.Handler
	listener   net.Listener
	httpServer *http.Server
	logger     *slog.Logger
	running    atomic.Bool
}

// NewServer wires the API routes and middleware.
func NewServer(opts Options) (*Server, error) {
	if opts.AuthService == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("auth service is required")
	}
	if opts.Sessions == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("session manager is required")
	}
	if opts.Weather == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("weather client is required")
	}
	if opts.Favorites == nil || opts.History == nil {
		return nil, oops.Code("HTTPAPI_INVALID").Errorf("favorites repositories are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = auth.DefaultSessionTTL
	}

	s := &Server{
		opts:   opts,
		guard:  NewGuard(opts.Sessions, opts.PublicPatterns),
		logger: opts.Logger,
	}
	s.handler = s.buildHandler()
	return s, nil
}

// Handler returns the fully wired handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	route := func(pattern, routeLabel string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(s.logger, s.opts.Metrics, routeLabel, h))
	}

	route("POST /api/auth/register", "/api/auth/register", s.handleRegister)
	route("POST /api/auth/login", "/api/auth/login", s.handleLogin)
	route("POST /api/auth/logout", "/api/auth/logout", s.handleLogout)
	route("POST /api/auth/request-reset", "/api/auth/request-reset", s.handleRequestReset)
	route("POST /api/auth/reset", "/api/auth/reset", s.handleReset)
	route("POST /api/auth/verify", "/api/auth/verify", s.handleVerify)
	route("GET /api/auth/me", "/api/auth/me", s.handleMe)
	route("PUT /api/user", "/api/user", s.handleUpdateProfile)

	route("GET /api/weather", "/api/weather", s.handleWeather)
	route("GET /api/geocoding", "/api/geocoding", s.handleGeocoding)

	route("GET /api/favorites", "/api/favorites", s.handleListFavorites)
	route("POST /api/favorites", "/api/favorites", s.handleCreateFavorite)
	route("DELETE /api/favorites", "/api/favorites", s.handleDeleteFavorite)

	route("GET /api/history", "/api/history", s.handleListHistory)
	route("DELETE /api/history", "/api/history", s.handleDeleteHistory)

	return s.guard.Middleware(mux)
}

// Start begins serving. It returns an error channel that receives any
// serve error; the channel is closed on graceful shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("api server already running")
	}

	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.opts.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
		IdleTimeout:       s.opts.IdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			s.logger.Error("api server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("api server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_api_server").Wrap(err)
		}
	}

	s.logger.Info("api server stopped")
	return nil
}

// Addr returns the listen address, or empty when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}
