package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/spend-ledger/internal/metrics"
)

// unobserved paths are scraped or probed far more often than they are used.
var unobserved = map[string]bool{"/metrics": true, "/health": true, "/ready": true}

// Prometheus records duration and count per request, labelled with the chi route pattern
// (e.g. /expenses/{id}) so tenants' ids never become label values.
func Prometheus(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unobserved[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.RecordRequest(r.Method, route, wrap.status, time.Since(start).Seconds())
	})
}
