// Package guard is the dashboard's route guard: it keeps signed-out visitors off the admin
// pages and sends signed-in ones past the login page, based on the accessToken cookie.
package guard

import (
	"context"
	"net/http"
	"strings"

	sessiondomain "savings-admin/console/internal/session/domain"
)

const bearerPrefix = "bearer "

// Protected lists the path prefixes that require a token.
var Protected = []string{"/dashboard", "/customers", "/transactions", "/analytics"}

// Redirect targets.
const (
	LoginPath = "/"
	HomePath  = "/dashboard"
)

type contextKey struct{ name string }

var tokenKey = contextKey{"access_token"}

// WithToken returns a context carrying the request's access token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the token the guard found on the request and true if set; otherwise "", false.
func TokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenKey).(string)
	return v, ok && v != ""
}

// Middleware redirects a protected request without a token to the login page and a
// GET of the login page with a token to the dashboard. Everything else passes through,
// with the token (if any) in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		path := r.URL.Path

		if token == "" && IsProtected(path) {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		if token != "" && path == LoginPath && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
			http.Redirect(w, r, HomePath, http.StatusFound)
			return
		}
		if token != "" {
			r = r.WithContext(WithToken(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// IsProtected reports whether path is, or is below, one of the Protected prefixes.
func IsProtected(path string) bool {
	for _, p := range Protected {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// requestToken reads the accessToken cookie, falling back to an Authorization: Bearer header.
func requestToken(r *http.Request) string {
	if c, err := r.Cookie(sessiondomain.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return extractBearer(r.Header.Get("Authorization"))
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
