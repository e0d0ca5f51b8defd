// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skycast/skycast/internal/auth"
)

func doJSON(t *testing.T, handler http.Handler, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()

	t.Run("creates user and sends verification email", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/register",
			`{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"secret123"}`)

		require.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			ID            string `json:"id"`
			Email         string `json:"email"`
			FirstName     string `json:"firstName"`
			EmailVerified bool   `json:"emailVerified"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, "jane@example.com", resp.Email)
		assert.Equal(t, "Jane", resp.FirstName)
		assert.False(t, resp.EmailVerified)
		assert.NotContains(t, rec.Body.String(), "passwordHash")

		// No session cookie on register; users log in explicitly.
		assert.Empty(t, rec.Result().Cookies())

		select {
		case msg := <-env.mailer.sends:
			assert.Equal(t, "jane@example.com", msg.To)
			assert.Contains(t, msg.Subject, "Verify")
		case <-time.After(2 * time.Second):
			t.Fatal("verification email was not sent")
		}
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/register",
			`{"firstName":"Jane","lastName":"Doe","email":"jane@example.com","password":"secret123"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("short password rejected", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/register",
			`{"firstName":"Jo","lastName":"Doe","email":"jo@example.com","password":"12345"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", `{not json`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()
	env.createUser(t, "jane@example.com", "secret123")

	t.Run("success sets session cookie", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/login",
			`{"email":"jane@example.com","password":"secret123"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		cookie := sessionCookieFrom(t, rec)
		assert.NotEmpty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Positive(t, cookie.MaxAge)

		// The cookie authenticates follow-up requests.
		me := doJSON(t, handler, http.MethodGet, "/api/auth/me", "", cookie)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), "jane@example.com")
	})

	t.Run("email is case-insensitive", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/login",
			`{"email":"JANE@Example.COM","password":"secret123"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/login",
			`{"email":"jane@example.com","password":"wrong-password"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid email or password")
	})

	t.Run("unknown email gets the same error", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/login",
			`{"email":"nobody@example.com","password":"secret123"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid email or password")
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()
	user := env.createUser(t, "jane@example.com", "secret123")

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/logout", "", env.sessionCookie(t, user))
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookie := sessionCookieFrom(t, rec)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestRequestReset(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()
	env.createUser(t, "jane@example.com", "secret123")

	t.Run("known email sends mail", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/request-reset",
			`{"email":"jane@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		select {
		case msg := <-env.mailer.sends:
			assert.Equal(t, "jane@example.com", msg.To)
			assert.Contains(t, msg.Body, "https://skycast.example")
		case <-time.After(2 * time.Second):
			t.Fatal("reset email was not sent")
		}
	})

	t.Run("unknown email gets the same response", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPost, "/api/auth/request-reset",
			`{"email":"nobody@example.com"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		select {
		case <-env.mailer.sends:
			t.Fatal("no email should be sent for unknown addresses")
		case <-time.After(100 * time.Millisecond):
		}
	})
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()
	user := env.createUser(t, "jane@example.com", "old-secret")

	token, err := env.tokens.Issue(user.ID.String(), auth.PurposeReset)
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/reset",
		`{"token":"`+token+`","password":"new-secret"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// Old password no longer works, the new one does.
	old := doJSON(t, handler, http.MethodPost, "/api/auth/login",
		`{"email":"jane@example.com","password":"old-secret"}`)
	assert.Equal(t, http.StatusUnauthorized, old.Code)

	fresh := doJSON(t, handler, http.MethodPost, "/api/auth/login",
		`{"email":"jane@example.com","password":"new-secret"}`)
	require.Equal(t, http.StatusOK, fresh.Code)

	// Proving control of the mailbox also verifies it.
	assert.Contains(t, fresh.Body.String(), `"emailVerified":true`)
}

func TestResetPassword_BadToken(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()
	user := env.createUser(t, "jane@example.com", "secret123")

	// A session token must not be accepted for a reset.
	token, err := env.tokens.Issue(user.ID.String(), auth.PurposeSession)
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/reset",
		`{"token":"`+token+`","password":"new-secret"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyEmail(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()
	user := env.createUser(t, "jane@example.com", "secret123")

	token, err := env.tokens.Issue(user.ID.String(), auth.PurposeVerify)
	require.NoError(t, err)

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/verify",
		`{"token":"`+token+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	me := doJSON(t, handler, http.MethodGet, "/api/auth/me", "", env.sessionCookie(t, user))
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"emailVerified":true`)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler()
	user := env.createUser(t, "jane@example.com", "secret123")
	cookie := env.sessionCookie(t, user)

	t.Run("updates names", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPut, "/api/user",
			`{"firstName":"Janet","lastName":"Smith"}`, cookie)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"firstName":"Janet"`)
		assert.Contains(t, rec.Body.String(), `"lastName":"Smith"`)
	})

	t.Run("email change conflicts with existing account", func(t *testing.T) {
		env.createUser(t, "taken@example.com", "secret123")

		rec := doJSON(t, handler, http.MethodPut, "/api/user",
			`{"email":"taken@example.com"}`, cookie)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("requires a session", func(t *testing.T) {
		rec := doJSON(t, handler, http.MethodPut, "/api/user", `{"firstName":"X"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
