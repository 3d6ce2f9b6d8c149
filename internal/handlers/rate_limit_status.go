package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"storefront-api/internal/middleware"
)

// RateLimitStatusHandler exposes the request limiter to administrators
type RateLimitStatusHandler struct {
	rateLimiter *middleware.RateLimiter
}

// NewRateLimitStatusHandler creates a new rate limit status handler. rateLimiter may be nil.
func NewRateLimitStatusHandler(rateLimiter *middleware.RateLimiter) *RateLimitStatusHandler {
	return &RateLimitStatusHandler{rateLimiter: rateLimiter}
}

// Status handles GET /api/admin/rate-limit
func (h *RateLimitStatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.rateLimiter == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "rate_limiter_unavailable", "Rate limiter not available", nil)
		return
	}

	stats := h.rateLimiter.Stats()
	slog.Debug("Rate limit status retrieved", "active_clients", stats.ActiveClients, "throttled_clients", stats.ThrottledClients)
	writeJSONResponse(w, http.StatusOK, stats)
}

// Reset handles DELETE /api/admin/rate-limit
func (h *RateLimitStatusHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h.rateLimiter == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "rate_limiter_unavailable", "Rate limiter not available", nil)
		return
	}

	cleared := h.rateLimiter.Reset()
	slog.Info("Rate limits reset", "cleared_windows", cleared, "remote_addr", r.RemoteAddr)
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"message":        "Rate limits reset successfully",
		"clearedWindows": cleared,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
