// Package api implements the Othala REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/tbrandt/othala/internal/apperr"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (local dev mode).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody(apperr.CodeInvalidArgument, "unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
