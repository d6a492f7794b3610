package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

var secret = []byte("test-secret")

type fakeResolver map[string]tenant.Scope

func (f fakeResolver) Resolve(_ context.Context, key string) (tenant.Scope, error) {
	if key == "boom" {
		return tenant.Scope{}, errors.New("db down")
	}
	s, ok := f[key]
	if !ok {
		return tenant.Scope{}, &apperr.NotFoundError{Entity: "api key"}
	}
	return s, nil
}

// fakeUsers answers Authorize from in-memory state: inactive users are NotFound,
// admins holds the current admin flags.
type fakeUsers struct {
	inactive map[int]bool
	admins   map[int]bool
	err      error
}

func (f fakeUsers) Authorize(_ context.Context, s tenant.Scope) (tenant.Scope, error) {
	if f.err != nil {
		return tenant.Scope{}, f.err
	}
	if f.inactive[s.UserID] {
		return tenant.Scope{}, apperr.NotFound("user", s.UserID)
	}
	s.IsAdmin = f.admins[s.UserID]
	return s, nil
}

// echoScope writes the company id of the resolved scope.
func echoScope(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := tenant.FromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Company", strconv.Itoa(s.CompanyID))
		w.Header().Set("X-Admin", strconv.FormatBool(s.IsAdmin))
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewToken(secret, 7, 3, true, time.Hour)
	require.NoError(t, err)

	scope, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, tenant.Scope{CompanyID: 3, UserID: 7, IsAdmin: true}, scope)

	_, err = ParseToken([]byte("other"), tok)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := NewToken(secret, 7, 3, false, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, tok)
	assert.Error(t, err)
}

func TestParseToken_RejectsNoneAlg(t *testing.T) {
	claims := Claims{CompanyID: 3, RegisteredClaims: jwt.RegisteredClaims{
		Subject: "7", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(secret, tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	h := JWTMiddleware(secret, fakeUsers{})(echoScope(t))
	tok, _ := NewToken(secret, 7, 3, false, time.Hour)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-Company"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":401`)
}

func TestJWTMiddleware_DeactivatedUser(t *testing.T) {
	tok, err := NewToken(secret, 7, 3, true, 24*time.Hour)
	require.NoError(t, err)
	h := JWTMiddleware(secret, fakeUsers{inactive: map[int]bool{7: true}})(echoScope(t))

	req := httptest.NewRequest(http.MethodPost, "/expenses", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Company"))
}

func TestJWTMiddleware_AdminFlagFromUserRow(t *testing.T) {
	tok, err := NewToken(secret, 7, 3, true, time.Hour)
	require.NoError(t, err)
	h := JWTMiddleware(secret, fakeUsers{})(echoScope(t))

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "false", rec.Header().Get("X-Admin"))
}

func TestJWTMiddleware_LookupError(t *testing.T) {
	tok, err := NewToken(secret, 7, 3, false, time.Hour)
	require.NoError(t, err)
	h := JWTMiddleware(secret, fakeUsers{err: errors.New("db down")})(echoScope(t))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestDualAuth(t *testing.T) {
	resolver := fakeResolver{"et_good": {CompanyID: 4, UserID: 8, APIKeyID: 1}}
	h := DualAuth(secret, fakeUsers{inactive: map[int]bool{9: true}}, resolver)(echoScope(t))
	tok, _ := NewToken(secret, 7, 3, false, time.Hour)
	inactiveTok, _ := NewToken(secret, 9, 3, false, time.Hour)

	cases := []struct {
		name    string
		headers map[string]string
		status  int
		company string
	}{
		{"jwt", map[string]string{"Authorization": "Bearer " + tok}, http.StatusOK, "3"},
		{"api key", map[string]string{APIKeyHeader: "et_good"}, http.StatusOK, "4"},
		{"alt header", map[string]string{APIKeyHeaderAlt: "et_good"}, http.StatusOK, "4"},
		{"inactive user does not fall back", map[string]string{"Authorization": "Bearer " + inactiveTok, APIKeyHeader: "et_good"}, http.StatusUnauthorized, ""},
		{"bad jwt does not fall back", map[string]string{"Authorization": "Bearer nope", APIKeyHeader: "et_good"}, http.StatusUnauthorized, ""},
		{"unknown key", map[string]string{APIKeyHeader: "et_bad"}, http.StatusUnauthorized, ""},
		{"lookup error", map[string]string{APIKeyHeader: "boom"}, http.StatusInternalServerError, ""},
		{"nothing", nil, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.company, rec.Header().Get("X-Company"))
		})
	}
}

func TestAPIKeyMiddleware_RejectsJWT(t *testing.T) {
	h := APIKeyMiddleware(fakeResolver{})(echoScope(t))
	tok, _ := NewToken(secret, 7, 3, false, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := RequireAdmin(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{CompanyID: 1, UserID: 2})))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(tenant.WithScope(req.Context(), tenant.Scope{CompanyID: 1, UserID: 2, IsAdmin: true})))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
