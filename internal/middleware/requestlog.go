package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter records the first status written and the body size. Shared by the request
// log and the prometheus middleware.
type responseWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *responseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// logFields is filled in by inner middleware once the caller is known.
type logFields struct {
	companyID int
	userID    int
}

type logFieldsKey struct{}

// RequestLog logs each request with request_id, method, path, status, duration, size and
// the acting company. Use after RequestID middleware so the ID is available.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		fields := &logFields{}
		wrap := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrap, r.WithContext(context.WithValue(r.Context(), logFieldsKey{}, fields)))
		dur := time.Since(start)

		attrs := []any{
			"request_id", chimw.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrap.status,
			"duration_ms", dur.Milliseconds(),
			"size", wrap.size,
		}
		if fields.companyID != 0 {
			attrs = append(attrs, "company_id", fields.companyID, "user_id", fields.userID)
		}
		level := slog.LevelInfo
		switch {
		case wrap.status >= http.StatusInternalServerError:
			level = slog.LevelError
		case wrap.status == http.StatusTooManyRequests || wrap.status == http.StatusUnauthorized:
			level = slog.LevelWarn
		}
		slog.Log(r.Context(), level, "request", attrs...)
	})
}
