// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast/internal/config"
	"github.com/skycast/skycast/internal/mail"
)

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()

	for _, name := range []string{
		"http.addr",
		"http.base_url",
		"http.secure_cookies",
		"metrics.addr",
		"database.url",
		"auth.token_secret",
		"smtp.host",
		"log.format",
		"automigrate",
	} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag %q", name)
	}
}

func TestServeCommand_InvalidConfig(t *testing.T) {
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	cmd.SetArgs([]string{
		"serve",
		"--auth.token_secret", "0123456789abcdef0123456789abcdef",
		"--log.format", "xml",
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestServeCommand_MissingTokenSecret(t *testing.T) {
	configFile = ""
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"serve"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_secret")
}

func TestBuildMailer(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("no host selects log mailer", func(t *testing.T) {
		cfg := config.Default()
		mailer, err := buildMailer(&cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &mail.LogMailer{}, mailer)
	})

	t.Run("host selects smtp mailer", func(t *testing.T) {
		cfg := config.Default()
		cfg.SMTP.Host = "smtp.example.com"
		mailer, err := buildMailer(&cfg, logger)
		require.NoError(t, err)
		assert.IsType(t, &mail.SMTPMailer{}, mailer)
	})

	t.Run("invalid smtp config fails", func(t *testing.T) {
		cfg := config.Default()
		cfg.SMTP.Host = "smtp.example.com"
		cfg.SMTP.From = ""
		_, err := buildMailer(&cfg, logger)
		require.Error(t, err)
	})
}
