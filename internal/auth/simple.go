// Package auth guards the local bridge with a shared bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenParam carries the token for clients that cannot set headers, such as
// a browser opening a WebSocket.
const TokenParam = "token"

// Middleware requires token on every request except the health checks. An
// empty token disables the check; the bridge then relies on listening on
// loopback only.
func Middleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
				next.ServeHTTP(w, r)
				return
			}

			got, ok := credential(r)
			if !ok {
				http.Error(w, "missing API token", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "invalid API token", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Expect: Authorization: Bearer <token>, or ?token=<token>.
func credential(r *http.Request) (string, bool) {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")), true
	}
	if q := r.URL.Query().Get(TokenParam); q != "" {
		return q, true
	}
	return "", false
}
