package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront-api/internal/models"
)

// RateLimitType selects what a limit is counted against
type RateLimitType string

const (
	RateLimitTypeIP     RateLimitType = "ip"
	RateLimitTypeGlobal RateLimitType = "global"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	Type              RateLimitType
	RequestsPerMinute int
	Window            time.Duration
}

// ParseRateLimitType parses the limit type, defaulting to ip
func ParseRateLimitType(value string) RateLimitType {
	switch strings.ToLower(value) {
	case "", "ip":
		return RateLimitTypeIP
	case "global":
		return RateLimitTypeGlobal
	default:
		slog.Warn("Invalid rate limit type, using default", "value", value, "default", "ip")
		return RateLimitTypeIP
	}
}

type rateLimitEntry struct {
	count     int
	resetTime time.Time
}

// RateLimitInfo contains rate limit information for response headers
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetTime time.Time
}

// RateLimiter counts requests in fixed windows, per client IP or globally
type RateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	now     func() time.Time

	cleanupTicker *time.Ticker
	stopCleanup   chan struct{}
	stopOnce      sync.Once
}

// NewRateLimiter creates a new rate limiter and starts its cleanup goroutine
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 100
	}
	if config.Type == "" {
		config.Type = RateLimitTypeIP
	}

	rl := &RateLimiter{
		config:        config,
		entries:       make(map[string]*rateLimitEntry),
		now:           time.Now,
		cleanupTicker: time.NewTicker(config.Window),
		stopCleanup:   make(chan struct{}),
	}
	go rl.cleanupExpiredEntries()

	slog.Info("Rate limiter initialized",
		"enabled", config.Enabled,
		"type", config.Type,
		"requests_per_minute", config.RequestsPerMinute,
		"window", config.Window)

	return rl
}

// Stop stops the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.stopCleanup)
	})
}

func (rl *RateLimiter) cleanupExpiredEntries() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, entry := range rl.entries {
				if now.After(entry.resetTime) {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

// IsAllowed counts one request from clientIP against the current window
func (rl *RateLimiter) IsAllowed(clientIP string) (bool, RateLimitInfo) {
	if !rl.config.Enabled {
		return true, RateLimitInfo{Limit: -1, Remaining: -1}
	}

	key := clientIP
	if rl.config.Type == RateLimitTypeGlobal {
		key = "*"
	}
	limit := rl.config.RequestsPerMinute

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, exists := rl.entries[key]
	if !exists || now.After(entry.resetTime) {
		entry = &rateLimitEntry{resetTime: now.Add(rl.config.Window)}
		rl.entries[key] = entry
	}

	if entry.count >= limit {
		return false, RateLimitInfo{Limit: limit, Remaining: 0, ResetTime: entry.resetTime}
	}
	entry.count++
	return true, RateLimitInfo{Limit: limit, Remaining: limit - entry.count, ResetTime: entry.resetTime}
}

// RateLimitStats is a point-in-time view of the limiter
type RateLimitStats struct {
	Enabled           bool          `json:"enabled"`
	Type              RateLimitType `json:"type"`
	RequestsPerMinute int           `json:"requestsPerMinute"`
	ActiveClients     int           `json:"activeClients"`
	ThrottledClients  int           `json:"throttledClients"`
}

// Stats reports the active windows. Expired windows awaiting cleanup are not counted.
func (rl *RateLimiter) Stats() RateLimitStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	stats := RateLimitStats{
		Enabled:           rl.config.Enabled,
		Type:              rl.config.Type,
		RequestsPerMinute: rl.config.RequestsPerMinute,
	}
	now := rl.now()
	for _, entry := range rl.entries {
		if now.After(entry.resetTime) {
			continue
		}
		stats.ActiveClients++
		if entry.count >= rl.config.RequestsPerMinute {
			stats.ThrottledClients++
		}
	}
	return stats
}

// Reset drops every window so all clients start over
func (rl *RateLimiter) Reset() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cleared := len(rl.entries)
	rl.entries = make(map[string]*rateLimitEntry)
	return cleared
}

// Middleware rejects requests over the limit with 429. Health checks are never limited.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/health") {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := clientIPOf(r)
		allowed, info := rl.IsAllowed(clientIP)
		setRateLimitHeaders(w, info)

		if !allowed {
			slog.Warn("Rate limit exceeded",
				"client_ip", clientIP,
				"path", r.URL.Path,
				"method", r.Method,
				"limit", info.Limit,
				"reset_time", info.ResetTime.Format(time.RFC3339))
			writeRateLimitErrorResponse(w, info, rl.now())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIPOf strips the port from RemoteAddr. Proxy headers are resolved earlier by chi's RealIP.
func clientIPOf(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func setRateLimitHeaders(w http.ResponseWriter, info RateLimitInfo) {
	if info.Limit < 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	if !info.ResetTime.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

func writeRateLimitErrorResponse(w http.ResponseWriter, info RateLimitInfo, now time.Time) {
	retryAfter := int(info.ResetTime.Sub(now).Seconds() + 0.5)
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(models.ErrorResponse{
		Error: "Rate limit exceeded. Please try again later.",
		Code:  "rate_limit_exceeded",
		Details: []models.ErrorDetail{
			{Field: "rate_limit", Issue: fmt.Sprintf("Exceeded %d requests per window", info.Limit)},
			{Field: "retry_after", Issue: fmt.Sprintf("Retry after %d seconds", retryAfter)},
		},
	})
}
