package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crucial707/spend-ledger/internal/tenant"
)

var (
	testScope = tenant.Scope{CompanyID: 1, UserID: 7, IsAdmin: true}
	testNow   = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
)

// requestWithChiURLParams builds a request as the router would hand it to a handler:
// chi URL params set and the caller's scope resolved.
func requestWithChiURLParams(method, path string, body []byte, params map[string]string) *http.Request {
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(tenant.WithScope(ctx, testScope))
}
