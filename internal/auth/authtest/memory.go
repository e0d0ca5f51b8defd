// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package authtest provides test doubles for the auth package.
package authtest

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/skycast/skycast/internal/auth"
)

// MemoryUserRepository is an in-memory auth.UserRepository for tests.
// Safe for concurrent use.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[ulid.ULID]*auth.User
}

var _ auth.UserRepository = (*MemoryUserRepository)(nil)

// NewMemoryUserRepository creates an empty in-memory repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[ulid.ULID]*auth.User)}
}

// Create stores a new user, enforcing email uniqueness.
func (r *MemoryUserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return auth.ErrEmailTaken
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

// GetByID retrieves a user by ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// GetByEmail retrieves a user by normalized email.
func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, auth.ErrNotFound
}

// Update replaces a stored user, enforcing email uniqueness.
func (r *MemoryUserRepository) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return auth.ErrNotFound
	}
	for id, existing := range r.users {
		if id != user.ID && existing.Email == user.Email {
			return auth.ErrEmailTaken
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

// UpdatePassword updates only the password hash.
func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	return nil
}

// MarkEmailVerified records the verification timestamp once; the
// original timestamp wins on repeat calls.
func (r *MemoryUserRepository) MarkEmailVerified(_ context.Context, id ulid.ULID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return auth.ErrNotFound
	}
	if user.EmailVerifiedAt == nil {
		user.EmailVerifiedAt = &at
		user.UpdatedAt = time.Now()
	}
	return nil
}
