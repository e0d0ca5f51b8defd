// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SkyCast Contributors

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gobwas/glob"

	"github.com/skycast/skycast/internal/auth"
)

// SessionCookieName is the session cookie issued at login.
const SessionCookieName = "session"

// loginPath is where unauthenticated browser requests are redirected.
const loginPath = "/auth/login"

// defaultPublicPatterns lists routes reachable without a session.
// Everything else requires authentication.
var defaultPublicPatterns = []string{
	"/",
	"/auth/*",
	"/api/auth/register",
	"/api/auth/login",
	"/api/auth/request-reset",
	"/api/auth/reset",
	"/api/auth/verify",
	"/api/weather",
	"/api/weather/*",
	"/api/geocoding",
	"/api/geocoding/*",
	"/healthz/*",
}

type contextKey struct{ name string }

var userContextKey = &contextKey{"user"}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *auth.User {
	user, _ := ctx.Value(userContextKey).(*auth.User)
	return user
}

func contextWithUser(ctx context.Context, user *auth.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Guard resolves the session cookie on every request and blocks
// unauthenticated access to non-public routes. API requests get a 401
// JSON body; browser requests are redirected to the login page.
type Guard struct {
	sessions *auth.SessionManager
	public   []glob.Glob
}

// NewGuard compiles the public route patterns. Invalid patterns are a
// programming error and panic at startup.
func NewGuard(sessions *auth.SessionManager, patterns []string) *Guard {
	if patterns == nil {
		patterns = defaultPublicPatterns
	}
	compiled := make([]glob.Glob, len(patterns))
	for i, p := range patterns {
		compiled[i] = glob.MustCompile(p, '/')
	}
	return &Guard{sessions: sessions, public: compiled}
}

// IsPublic reports whether the path is reachable without a session.
func (g *Guard) IsPublic(path string) bool {
	for _, pattern := range g.public {
		if pattern.Match(path) {
			return true
		}
	}
	return false
}

// Middleware enforces the guard. The resolved user, when present, is
// attached to the request context even on public routes so handlers
// can personalize responses.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := g.resolveUser(r)
		if user != nil {
			r = r.WithContext(contextWithUser(r.Context(), user))
		}

		if user == nil && !g.IsPublic(r.URL.Path) {
			if isAPIRequest(r) {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
				return
			}
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Guard) resolveUser(r *http.Request) *auth.User {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil
	}
	return g.sessions.Resolve(r.Context(), cookie.Value)
}

// isAPIRequest distinguishes API calls from browser navigation: API
// paths live under /api/, and clients that ask for JSON are treated as
// API callers regardless of path.
func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
