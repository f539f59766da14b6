package http

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// API KEY AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// authMiddleware validates the API key against the configured bcrypt hash.
// Health endpoints stay open so orchestrators can probe without credentials.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	if s.config.APIKeyHash == "" {
		return next
	}

	header := s.config.APIKeyHeader
	if header == "" {
		header = "X-API-Key"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(header)
		if key == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing_api_key", "API key is required")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.config.APIKeyHash), []byte(key)); err != nil {
			s.logger.Warn("rejected request with invalid API key",
				"path", r.URL.Path,
				"request_id", getRequestID(r.Context()))
			writeJSONError(w, http.StatusUnauthorized, "invalid_api_key", "API key is not valid")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isPublicPath reports whether the path is exempt from authentication.
func isPublicPath(path string) bool {
	switch path {
	case "/", "/health", "/healthz", "/live", "/ready":
		return true
	}
	return strings.HasPrefix(path, "/health/")
}
