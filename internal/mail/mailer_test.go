// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package mail_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast/internal/mail"
	"github.com/skycast/skycast/pkg/errutil"
)

func TestNewSMTPMailer(t *testing.T) {
	t.Run("requires host", func(t *testing.T) {
		m, err := mail.NewSMTPMailer("", 587, "noreply@skycast.app", "", "")
		require.Error(t, err)
		assert.Nil(t, m)
		errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
	})

	t.Run("requires from address", func(t *testing.T) {
		m, err := mail.NewSMTPMailer("smtp.example.com", 587, "", "", "")
		require.Error(t, err)
		assert.Nil(t, m)
		errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
	})

	t.Run("valid config", func(t *testing.T) {
		m, err := mail.NewSMTPMailer("smtp.example.com", 587, "noreply@skycast.app", "user", "pass")
		require.NoError(t, err)
		assert.NotNil(t, m)
	})
}

func TestSMTPMailer_Send_CancelledContext(t *testing.T) {
	m, err := mail.NewSMTPMailer("smtp.example.com", 587, "noreply@skycast.app", "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = m.Send(ctx, "jane@example.com", "subject", "<p>body</p>")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MAIL_SEND_FAILED")
}

func TestLogMailer_Send(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	m := mail.NewLogMailer(logger)
	err := m.Send(context.Background(), "jane@example.com", "Verify your SkyCast email", "<p>hello</p>")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "jane@example.com")
	assert.Contains(t, out, "Verify your SkyCast email")
	assert.Contains(t, out, "log-only mailer")
}
