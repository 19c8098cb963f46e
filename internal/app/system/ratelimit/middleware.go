// internal/app/system/ratelimit/middleware.go
package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Middleware rejects requests over l's limit with 429 and a Retry-After header.
// Every response carries X-RateLimit-Limit and X-RateLimit-Remaining.
func Middleware(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			allowed := l.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Limit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(l.Remaining(key)))

			if !allowed {
				WriteTooMany(w, "Too many requests from this IP, please try again later.", l.RetryAfter(key))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WriteTooMany writes a 429 JSON error with Retry-After in whole seconds (min 1).
func WriteTooMany(w http.ResponseWriter, msg string, retry time.Duration) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    "rate_limited",
			"message": msg,
		},
	})
}
