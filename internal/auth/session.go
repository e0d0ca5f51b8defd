// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"

	"github.com/skycast/skycast/pkg/errutil"
)

// SessionManager maps a session cookie value to an authenticated User.
type SessionManager struct {
	tokens *Tokens
	users  UserRepository
	logger *slog.Logger
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(tokens *Tokens, users UserRepository, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{tokens: tokens, users: users, logger: logger}
}

// Resolve returns the User for a session cookie value, or nil when the
// request carries no usable session. Absence of a session is not
// exceptional: an empty, malformed, expired, or wrong-purpose token and
// a deleted user all resolve to nil. Unexpected storage failures are
// logged and also resolve to nil rather than surfacing to the caller.
func (m *SessionManager) Resolve(ctx context.Context, cookieValue string) *User {
	if cookieValue == "" {
		return nil
	}

	subject, err := m.tokens.Verify(cookieValue, PurposeSession)
	if err != nil {
		return nil
	}

	id, err := ulid.Parse(subject)
	if err != nil {
		return nil
	}

	user, err := m.users.GetByID(ctx, id)
	if err != nil {
		if !IsNotFound(err) {
			errutil.LogError(m.logger, "session user lookup failed", err)
		}
		return nil
	}
	return user
}
