package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimiter limits requests per key using one token bucket per key.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.RWMutex
	limit   rate.Limit
	burst   int
	key     KeyFunc
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a keyed rate limiter. limit is events per second; for N per minute
// use rate.Limit(float64(N)/60.0). burst is max tokens per bucket.
func NewRateLimiter(limit rate.Limit, burst int, key KeyFunc) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   burst,
		key:     key,
	}
}

func (l *RateLimiter) getLimiter(k string) *rate.Limiter {
	now := time.Now()
	l.mu.RLock()
	b, ok := l.buckets[k]
	l.mu.RUnlock()
	if ok {
		l.mu.Lock()
		b.lastSeen = now
		l.mu.Unlock()
		return b.lim
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Double-check after acquiring write lock
	if b, ok = l.buckets[k]; ok {
		b.lastSeen = now
		return b.lim
	}
	b = &bucket{lim: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.buckets[k] = b
	return b.lim
}

// Sweep forgets buckets idle for longer than idle and returns how many were dropped.
func (l *RateLimiter) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
			n++
		}
	}
	return n
}

// ClientIP returns the client IP from X-Forwarded-For, X-Real-IP, or RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// First value is the client when behind a single proxy
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// ByAPIKey counts requests per presented api key, falling back to the client IP.
func ByAPIKey(r *http.Request) string {
	if k := apiKey(r); k != "" {
		return "key:" + k
	}
	return "ip:" + ClientIP(r)
}

// Middleware returns a chi-compatible middleware that returns 429 when the key exceeds the rate.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.getLimiter(l.key(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AuthRateLimiter returns a limiter suitable for login/register: 10 requests per minute per IP, burst 5.
func AuthRateLimiter() *RateLimiter {
	return NewRateLimiter(rate.Limit(10.0/60.0), 5, ClientIP)
}

// APIKeyRateLimiter returns a limiter for api-key endpoints: 60 requests per minute per key, burst 10.
func APIKeyRateLimiter() *RateLimiter {
	return NewRateLimiter(rate.Limit(1.0), 10, ByAPIKey)
}
