/**
 * @description
 * This file contains custom middleware for the HTTP router. The service is an
 * internal backend called only by trusted host integrations (the region
 * marketplace plugin and sibling services), so authentication is a shared
 * internal API key rather than end-user tokens.
 *
 * @dependencies
 * - crypto/subtle, net/http, strings: Standard Go libraries.
 */

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const internalAPIKeyHeader = "X-Internal-API-Key"

// InternalAuthMiddleware creates a middleware that validates the shared
// internal API key. An empty configured key disables the check, which is only
// acceptable in local development.
func InternalAuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(apiKey))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			provided := []byte(strings.TrimSpace(r.Header.Get(internalAPIKeyHeader)))
			if subtle.ConstantTimeCompare(expected, provided) != 1 {
				http.Error(w, "Invalid or missing internal API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
