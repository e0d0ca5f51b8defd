// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// emailRegex is a pragmatic format check; the mailbox is proven by the
// verification email, not by the regex.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents one registered identity.
type User struct {
	ID    ulid.ULID
	Email string

	// PasswordHash is empty for passwordless accounts. An account with no
	// hash can never authenticate via password login; it must go through
	// the reset flow to set one.
	PasswordHash string

	FirstName string
	LastName  string

	// EmailVerifiedAt is nil until verification succeeds. It is set once,
	// by the verify-email flow or by a completed password reset.
	EmailVerifiedAt *time.Time

	FailedAttempts int
	LockedUntil    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a validated User with a normalized email.
// passwordHash may be empty for passwordless accounts.
func NewUser(email, firstName, lastName, passwordHash string) (*User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        normalized,
		PasswordHash: passwordHash,
		FirstName:    firstName,
		LastName:     lastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lowercases and validates an email address. All storage
// and lookups go through this so the uniqueness invariant holds
// case-insensitively.
func NormalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return "", oops.Code("AUTH_VALIDATION").Errorf("email cannot be empty")
	}
	if !emailRegex.MatchString(normalized) {
		return "", oops.Code("AUTH_VALIDATION").Errorf("invalid email address")
	}
	return normalized, nil
}

// ValidatePassword checks the password policy for new passwords.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_VALIDATION").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// HasPassword reports whether the user can attempt password login.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsVerified reports whether the user's email has been verified.
func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}

// IsLocked returns true if the user is currently locked out.
func (u *User) IsLocked() bool {
	return IsLockedOut(u.LockedUntil)
}

// RecordFailure increments the failure counter and sets lockout if threshold reached.
func (u *User) RecordFailure() {
	u.FailedAttempts++
	u.LockedUntil = ComputeLockoutTime(u.FailedAttempts)
	u.UpdatedAt = time.Now()
}

// RecordSuccess resets failure counter and lockout.
func (u *User) RecordSuccess() {
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
}

// ProfileUpdate carries optional profile changes. Nil fields are left
// untouched.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Email     *string
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. The store's uniqueness constraint is the
	// authoritative guard against duplicate emails; Create returns an
	// error wrapping ErrEmailTaken when it trips.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *User) error

	// UpdatePassword updates only the password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error

	// MarkEmailVerified records the verification timestamp. Setting it a
	// second time is a no-op; the original timestamp wins.
	MarkEmailVerified(ctx context.Context, id ulid.ULID, at time.Time) error
}
