package middleware

import (
	"net/http"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter provides in-memory fixed-window rate limiting, keyed by client
// IP. The engine's trigger endpoints are idempotent but not free; dashboards
// polling them gain nothing from hammering.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
}

func NewLimiter() *Limiter {
	return &Limiter{windows: make(map[string]*window)}
}

// Allow returns true if the key has not exceeded limit in the current window.
func (l *Limiter) Allow(key string, limit int, span time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(span)}
		return true
	}
	w.count++
	return w.count <= limit
}

// Cleanup removes expired windows; call periodically to bound memory.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// RateLimit wraps a handler, rejecting requests over limit per span per
// client IP with 429.
func RateLimit(l *Limiter, limit int, span time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(RealIP(r), limit, span) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
