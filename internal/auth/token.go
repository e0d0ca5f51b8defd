// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// Purpose tags a token with its intended use. A token minted for one
// purpose is rejected by verifiers expecting another, so a reset token
// can never be replayed as a session and vice versa.
type Purpose string

// Token purposes.
const (
	PurposeSession Purpose = "session"
	PurposeReset   Purpose = "reset"
	PurposeVerify  Purpose = "verify"
)

// Default token lifetimes.
const (
	DefaultSessionTTL = 30 * 24 * time.Hour
	DefaultResetTTL   = time.Hour
	DefaultVerifyTTL  = 24 * time.Hour
)

// MinSecretLength is the minimum length of the signing secret.
const MinSecretLength = 32

// tokenClaims is the signed payload: subject (user id), purpose, and the
// standard issued-at/expiry claims.
type tokenClaims struct {
	jwt.RegisteredClaims
	Purpose Purpose `json:"purpose"`
}

// Tokens issues and verifies signed, time-limited tokens. The signing
// secret is loaded once at startup and read-only thereafter.
type Tokens struct {
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	verifyTTL  time.Duration
}

// TokensOption customizes token lifetimes.
type TokensOption func(*Tokens)

// WithSessionTTL overrides the session token lifetime.
func WithSessionTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) { t.sessionTTL = ttl }
}

// WithResetTTL overrides the password reset token lifetime.
func WithResetTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) { t.resetTTL = ttl }
}

// WithVerifyTTL overrides the email verification token lifetime.
func WithVerifyTTL(ttl time.Duration) TokensOption {
	return func(t *Tokens) { t.verifyTTL = ttl }
}

// NewTokens creates a Tokens service signing with the given secret.
func NewTokens(secret string, opts ...TokensOption) (*Tokens, error) {
	if len(secret) < MinSecretLength {
		return nil, oops.Code("AUTH_WEAK_SECRET").
			With("min_length", MinSecretLength).
			Errorf("token secret must be at least %d characters", MinSecretLength)
	}

	t := &Tokens{
		secret:     []byte(secret),
		sessionTTL: DefaultSessionTTL,
		resetTTL:   DefaultResetTTL,
		verifyTTL:  DefaultVerifyTTL,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// TTL returns the configured lifetime for the given purpose.
func (t *Tokens) TTL(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeReset:
		return t.resetTTL
	case PurposeVerify:
		return t.verifyTTL
	default:
		return t.sessionTTL
	}
}

// Issue mints a signed token for the subject with the purpose's TTL.
func (t *Tokens) Issue(subject string, purpose Purpose) (string, error) {
	if subject == "" {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").Errorf("subject cannot be empty")
	}

	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL(purpose))),
		},
		Purpose: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_ISSUE_FAILED").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return signed, nil
}

// Verify checks the token's signature, expiry, and purpose, returning the
// subject on success. It fails closed: a malformed token, a bad
// signature, an expired token, and a purpose mismatch all yield the same
// generic error so callers cannot leak why a token was rejected.
func (t *Tokens) Verify(token string, expected Purpose) (string, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return "", invalidToken()
	}
	if claims.Purpose != expected {
		return "", invalidToken()
	}
	if claims.Subject == "" {
		return "", invalidToken()
	}
	return claims.Subject, nil
}

// invalidToken is the single rejection error for all verification
// failure modes.
func invalidToken() error {
	return oops.Code("AUTH_INVALID_TOKEN").Errorf("invalid or expired token")
}
