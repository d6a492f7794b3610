package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(rate.Every(time.Hour), 2, ClientIP)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("X-Real-IP", "10.0.0.9")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestByAPIKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.2.3.4:5"
	assert.Equal(t, "ip:1.2.3.4:5", ByAPIKey(req))
	req.Header.Set(APIKeyHeader, "et_x")
	assert.Equal(t, "key:et_x", ByAPIKey(req))
}

func TestRateLimiter_Sweep(t *testing.T) {
	l := NewRateLimiter(rate.Every(time.Second), 1, ClientIP)
	l.getLimiter("a")
	assert.Equal(t, 0, l.Sweep(time.Hour))
	assert.Equal(t, 1, l.Sweep(-time.Second))
}
