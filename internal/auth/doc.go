// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

// Package auth provides authentication primitives for SkyCast.
//
// # Domain Types
//
// User is the single identity record. Create it with NewUser, which
// validates and normalizes the email; direct struct initialization
// bypasses validation and may create invalid state.
//
// # Services
//
// Service implements the account flows: register, login, password reset
// request and completion, and email verification. SessionManager maps a
// session cookie value back to a User. Tokens signs and verifies the
// purpose-tagged tokens both of them rely on.
//
// Tokens are stateless: once issued, a session token stays valid until it
// expires. There is no server-side revocation list; logout only clears
// the client cookie.
package auth
