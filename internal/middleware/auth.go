package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"storefront-api/internal/models"
)

// AdminAuth guards admin mutations with an X-API-Key header
type AdminAuth struct {
	keys []string
}

// NewAdminAuth builds the guard. With no keys configured every request passes,
// which is the development default.
func NewAdminAuth(keys []string) *AdminAuth {
	if len(keys) == 0 {
		slog.Warn("ADMIN_API_KEYS is empty, admin routes are open")
	}
	return &AdminAuth{keys: keys}
}

// Enabled reports whether admin keys are enforced
func (a *AdminAuth) Enabled() bool {
	return len(a.keys) > 0
}

// Middleware rejects requests without a valid admin key
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			slog.Warn("Admin authentication failed: missing API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Admin API key required")
			return
		}

		if !a.isValid(apiKey) {
			slog.Warn("Admin authentication failed: invalid admin API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeErrorResponse(w, http.StatusForbidden, "forbidden", "Admin access required")
			return
		}

		slog.Debug("Admin authentication successful", "remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// Wrap guards a single handler function
func (a *AdminAuth) Wrap(h http.HandlerFunc) http.Handler {
	return a.Middleware(h)
}

func (a *AdminAuth) isValid(apiKey string) bool {
	for _, key := range a.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return true
		}
	}
	return false
}

// writeErrorResponse is a helper function to write error responses
func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: message,
		Code:  code,
	})
}
