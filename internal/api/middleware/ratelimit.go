package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wardscope/wardscope/internal/api/response"
	"github.com/wardscope/wardscope/internal/cache"
)

const (
	defaultRequestsPerMinute = 20
	rateWindow               = 60 * time.Second
)

// RateLimit provides fixed-window per-client rate limiting via Redis.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
	scope          string
}

// NewRateLimit creates a new RateLimit middleware. Counters for different
// scopes are independent.
func NewRateLimit(c cache.Cache, requestsPerMin int, scope string) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin, scope: scope}
}

// Limit counts requests per client address within a one minute window.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, ok := GetClientIP(r)
		if !ok {
			client = remoteHost(r.RemoteAddr)
		}

		key := cache.RateLimitKey(rl.scope, client)
		count, err := rl.cache.IncrWithExpiry(r.Context(), key, rateWindow)
		if err != nil {
			// fail open
			slog.Warn("rate limit check failed", "scope", rl.scope, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.requestsPerMin - int(count)
		if remaining < 0 {
			remaining = 0
		}
		resetTime := time.Now().Add(rateWindow).Unix()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requestsPerMin))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

		if count > int64(rl.requestsPerMin) {
			w.Header().Set("Retry-After", "60")
			response.Error(w, http.StatusTooManyRequests,
				response.CodeRateLimited, "Too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
