// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package mail delivers transactional email over SMTP, with a log-only
// fallback for development and tests.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/jordan-wright/email"
	"github.com/samber/oops"
)

// SMTPMailer sends HTML email through an SMTP relay.
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer creates a mailer for the given relay. Auth is omitted
// when username is empty, for relays that accept unauthenticated local
// submission.
func NewSMTPMailer(host string, port int, from, username, password string) (*SMTPMailer, error) {
	if host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if from == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp from address is required")
	}

	m := &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m, nil
}

// Send delivers one HTML message. The context deadline is honored only
// up to SMTP dial; the underlying client does not support cancellation
// mid-transaction.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("to", to).
			Wrap(err)
	}

	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.HTML = []byte(htmlBody)

	if err := e.Send(m.addr, m.auth); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("to", to).
			With("subject", subject).
			Wrap(err)
	}
	return nil
}

// LogMailer records sends instead of delivering them. Used when no SMTP
// host is configured, so local development shows verification and reset
// links in the log.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message instead of delivering it.
func (m *LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	m.logger.InfoContext(ctx, "email send skipped (log-only mailer)",
		"to", to,
		"subject", subject,
		"body", htmlBody,
	)
	return nil
}
