package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/crucial707/spend-ledger/internal/metrics"
)

// Recoverer turns a handler panic into a 500 JSON body. http.ErrAbortHandler is re-raised
// so the server can abort the connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			metrics.IncPanics()

			attrs := []any{
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"panic", rec,
				"stack", string(debug.Stack()),
			}
			if f, ok := r.Context().Value(logFieldsKey{}).(*logFields); ok && f.companyID != 0 {
				attrs = append(attrs, "company_id", f.companyID, "user_id", f.userID)
			}
			slog.ErrorContext(r.Context(), "panic recovered", attrs...)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}
