package auth

import (
	"context"

	authlib "example.com/goaltracker/internal/platform/auth"
)

// Claims is the verified token payload.
type Claims = authlib.Claims

// Config holds token validation settings.
type Config = authlib.Config

// WithClaims stores the claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return authlib.WithClaims(ctx, claims)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}

// Caller is the authenticated principal behind a request.
type Caller struct {
	TenantID string
	Subject  string
}

// Key identifies the caller across tenants.
func (c Caller) Key() string {
	return c.TenantID + ":" + c.Subject
}

// CallerFrom returns the caller of an authenticated request. Tokens without a subject do not
// identify anyone and report false.
func CallerFrom(ctx context.Context) (Caller, bool) {
	claims, ok := authlib.FromContext(ctx)
	if !ok || claims.Subject == "" {
		return Caller{}, false
	}
	return Caller{TenantID: claims.TenantID, Subject: claims.Subject}, true
}

// HasAnyScope reports whether claims grant at least one of scopes.
func HasAnyScope(claims *Claims, scopes ...string) bool {
	if claims == nil {
		return false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return true
		}
	}
	return false
}
