// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when a registration or profile update
// collides with an existing email.
var ErrEmailTaken = errors.New("email already registered")

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsEmailTaken reports whether err wraps ErrEmailTaken.
func IsEmailTaken(err error) bool {
	return errors.Is(err, ErrEmailTaken)
}
