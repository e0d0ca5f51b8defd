// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/skycast/skycast/internal/auth"
	authpg "github.com/skycast/skycast/internal/auth/postgres"
	"github.com/skycast/skycast/internal/config"
	favpg "github.com/skycast/skycast/internal/favorites/postgres"
	"github.com/skycast/skycast/internal/httpapi"
	"github.com/skycast/skycast/internal/logging"
	"github.com/skycast/skycast/internal/mail"
	"github.com/skycast/skycast/internal/observability"
	"github.com/skycast/skycast/internal/store"
	"github.com/skycast/skycast/internal/weather"
	"github.com/skycast/skycast/internal/xdg"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var automigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SkyCast API server",
		Long: `Start the HTTP API server, and the metrics/health server when
metrics.addr is configured. Configuration is merged from defaults, the
--config file, and flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, automigrate)
		},
	}

	flags := cmd.Flags()
	flags.String("http.addr", "", "API listen address")
	flags.String("http.base_url", "", "externally visible base URL for email links")
	flags.Bool("http.secure_cookies", false, "mark the session cookie Secure")
	flags.String("metrics.addr", "", "metrics/health listen address (empty = disabled)")
	flags.String("database.url", "", "PostgreSQL connection URL")
	flags.String("auth.token_secret", "", "HMAC secret for signing tokens")
	flags.String("smtp.host", "", "SMTP host (empty = log-only mailer)")
	flags.Int("smtp.port", 0, "SMTP port")
	flags.String("smtp.from", "", "From address for outbound email")
	flags.String("smtp.username", "", "SMTP auth username")
	flags.String("smtp.password", "", "SMTP auth password")
	flags.String("log.format", "", "log format (json or text)")
	flags.BoolVar(&automigrate, "automigrate", false, "apply pending database migrations before serving")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, automigrate bool) error {
	path := configFile
	if path == "" {
		path = xdg.ConfigFile()
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("skycast", version, cfg.Log.Format)
	logger := slog.Default()

	logger.Info("starting skycast",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format,
	)

	if automigrate {
		if err := runMigrations(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	logger.Info("connected to database")

	tokens, err := auth.NewTokens(cfg.Auth.TokenSecret,
		auth.WithSessionTTL(cfg.Auth.SessionTTL),
		auth.WithResetTTL(cfg.Auth.ResetTTL),
		auth.WithVerifyTTL(cfg.Auth.VerifyTTL),
	)
	if err != nil {
		return err
	}

	mailer, err := buildMailer(cfg, logger)
	if err != nil {
		return err
	}

	users := authpg.NewUserRepository(pool)
	authSvc, err := auth.NewService(users, auth.NewArgon2idHasher(), tokens, mailer, cfg.HTTP.BaseURL, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Readiness tracks the database: if the pool can't ping, the
	// service shouldn't receive traffic.
	var obsServer *observability.Server
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		obsErrCh, obsErr := obsServer.Start()
		if obsErr != nil {
			return obsErr
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	apiOpts := httpapi.Options{
		Addr:          cfg.HTTP.Addr,
		SecureCookies: cfg.HTTP.SecureCookies,
		SessionTTL:    cfg.Auth.SessionTTL,
		AuthService:   authSvc,
		Sessions:      auth.NewSessionManager(tokens, users, logger),
		Weather:       weather.NewClient(),
		Favorites:     favpg.NewFavoriteRepository(pool),
		History:       favpg.NewHistoryRepository(pool),
		Logger:        logger,
		ReadTimeout:   cfg.HTTP.ReadTimeout,
		WriteTimeout:  cfg.HTTP.WriteTimeout,
		IdleTimeout:   cfg.HTTP.IdleTimeout,
	}
	if obsServer != nil {
		apiOpts.Metrics = obsServer.Metrics()
	}

	apiServer, err := httpapi.NewServer(apiOpts)
	if err != nil {
		return err
	}
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	cmd.Println("SkyCast started on " + apiServer.Addr())
	logger.Info("skycast ready", "addr", apiServer.Addr())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// buildMailer selects the SMTP mailer, or the log-only mailer when no
// SMTP host is configured.
func buildMailer(cfg *config.Config, logger *slog.Logger) (auth.Mailer, error) {
	if cfg.SMTP.Host == "" {
		logger.Info("no smtp host configured, using log-only mailer")
		return mail.NewLogMailer(logger), nil
	}
	mailer, err := mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	if err != nil {
		return nil, oops.With("operation", "configure smtp mailer").Wrap(err)
	}
	return mailer, nil
}

// monitorServerErrors watches a server's error channel and cancels the
// context on error so a failed server takes the process down cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
