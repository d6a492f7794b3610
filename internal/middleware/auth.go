package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crucial707/spend-ledger/internal/apperr"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

// APIKeyHeader carries api keys. APIKeyHeaderAlt is accepted for older clients.
const (
	APIKeyHeader    = "X-API-Key"
	APIKeyHeaderAlt = "api-key"
)

// Claims is the JWT payload. Subject holds the user id.
type Claims struct {
	CompanyID int  `json:"company_id"`
	IsAdmin   bool `json:"is_admin"`
	jwt.RegisteredClaims
}

// APIKeyResolver maps a plaintext api key to the scope it acts for.
type APIKeyResolver interface {
	Resolve(ctx context.Context, key string) (tenant.Scope, error)
}

// UserResolver reloads the user a token was issued to. It returns an apperr.NotFoundError
// when the user is gone or deactivated; the returned scope carries the user's current
// admin flag.
type UserResolver interface {
	Authorize(ctx context.Context, scope tenant.Scope) (tenant.Scope, error)
}

// NewToken signs an HS256 token for the given user.
func NewToken(secret []byte, userID, companyID int, isAdmin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		CompanyID: companyID,
		IsAdmin:   isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates a token and returns the scope it grants.
func ParseToken(secret []byte, tokenStr string) (tenant.Scope, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return tenant.Scope{}, err
	}
	if !token.Valid {
		return tenant.Scope{}, errors.New("invalid token")
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID <= 0 || claims.CompanyID <= 0 {
		return tenant.Scope{}, errors.New("invalid token claims")
	}
	return tenant.Scope{CompanyID: claims.CompanyID, UserID: userID, IsAdmin: claims.IsAdmin}, nil
}

// JWTMiddleware requires a valid bearer token whose user is still active.
func JWTMiddleware(secret []byte, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			scope, ok := resolveBearer(w, r, secret, users, strings.TrimPrefix(authHeader, "Bearer "))
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withScope(r.Context(), scope)))
		})
	}
}

// APIKeyMiddleware requires a valid api key header.
func APIKeyMiddleware(resolver APIKeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing api key")
				return
			}
			scope, ok := resolveKey(w, r, resolver, key)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withScope(r.Context(), scope)))
		})
	}
}

// DualAuth accepts a bearer token or an api key. A bearer token that fails validation
// is rejected without falling back to the api key.
func DualAuth(secret []byte, users UserResolver, resolver APIKeyResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				scope, ok := resolveBearer(w, r, secret, users, strings.TrimPrefix(authHeader, "Bearer "))
				if !ok {
					return
				}
				next.ServeHTTP(w, r.WithContext(withScope(r.Context(), scope)))
				return
			}

			key := apiKey(r)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "missing credentials")
				return
			}
			scope, ok := resolveKey(w, r, resolver, key)
			if !ok {
				return
			}
			next.ServeHTTP(w, r.WithContext(withScope(r.Context(), scope)))
		})
	}
}

// RequireAdmin rejects callers whose scope is not an admin. Use after an auth middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scope, ok := tenant.FromContext(r.Context())
		if !ok || !scope.IsAdmin {
			writeError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiKey(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return strings.TrimSpace(k)
	}
	return strings.TrimSpace(r.Header.Get(APIKeyHeaderAlt))
}

func resolveBearer(w http.ResponseWriter, r *http.Request, secret []byte, users UserResolver, token string) (tenant.Scope, bool) {
	claimed, err := ParseToken(secret, token)
	if err != nil {
		slog.DebugContext(r.Context(), "jwt rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid token")
		return tenant.Scope{}, false
	}
	scope, err := users.Authorize(r.Context(), claimed)
	if apperr.IsNotFound(err) {
		slog.InfoContext(r.Context(), "jwt for inactive user rejected",
			"user_id", claimed.UserID, "company_id", claimed.CompanyID)
		writeError(w, http.StatusUnauthorized, "invalid token")
		return tenant.Scope{}, false
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return tenant.Scope{}, false
	}
	return scope, true
}

func resolveKey(w http.ResponseWriter, r *http.Request, resolver APIKeyResolver, key string) (tenant.Scope, bool) {
	scope, err := resolver.Resolve(r.Context(), key)
	if apperr.IsNotFound(err) {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return tenant.Scope{}, false
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "api key lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return tenant.Scope{}, false
	}
	return scope, true
}

// withScope stores scope for handlers and reports the company to the request log.
func withScope(ctx context.Context, scope tenant.Scope) context.Context {
	if f, ok := ctx.Value(logFieldsKey{}).(*logFields); ok {
		f.companyID = scope.CompanyID
		f.userID = scope.UserID
	}
	return tenant.WithScope(ctx, scope)
}
