// Package tenant carries the acting company and user through a request.
package tenant

import "context"

// Scope identifies who is acting and on behalf of which company. Every store operation
// takes a Scope explicitly; nothing reads it from globals.
type Scope struct {
	CompanyID int
	UserID    int
	IsAdmin   bool
	// APIKeyID is set when the scope was resolved from an api key instead of a JWT.
	APIKeyID int
}

// ViaAPIKey reports whether the scope came from an api key.
func (s Scope) ViaAPIKey() bool { return s.APIKeyID != 0 }

type ctxKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope stored by the auth middleware.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
