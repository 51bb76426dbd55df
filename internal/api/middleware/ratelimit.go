package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a sliding window limiter keyed by caller. Publishing pushes
// assets to the content store, so each caller gets a budget per window.
type RateLimiter struct {
	requests int
	window   time.Duration

	mu      sync.Mutex
	callers map[string][]time.Time
	now     func() time.Time
}

func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 {
		requests = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		requests: requests,
		window:   window,
		callers:  make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Allow records a request for key and reports whether it fits in the window,
// how many requests remain and when the window frees up.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.window)

	seen := rl.callers[key]
	i := 0
	for i < len(seen) && !seen[i].After(windowStart) {
		i++
	}
	seen = seen[i:]

	if len(seen) >= rl.requests {
		rl.callers[key] = seen
		return false, 0, seen[0].Add(rl.window)
	}

	seen = append(seen, now)
	rl.callers[key] = seen
	return true, rl.requests - len(seen), seen[0].Add(rl.window)
}

// Prune drops callers with no request in the current window.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, seen := range rl.callers {
		if len(seen) == 0 || !seen[len(seen)-1].After(cutoff) {
			delete(rl.callers, key)
		}
	}
}

// RateLimit limits authenticated callers by username and anonymous ones by IP.
// It must run after Auth to see the username.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + clientIP(r)
			if username := GetUsername(r.Context()); username != "" {
				key = "user:" + username
			}

			allowed, remaining, reset := limiter.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				retry := int(time.Until(reset).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
