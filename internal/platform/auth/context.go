package auth

import "context"

type claimsKey struct{}

// WithClaims attaches verified claims to ctx. Passing nil marks the request as anonymous even if an
// outer handler stored claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// FromContext returns the claims attached by WithClaims. A nil entry reports false.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims, claims != nil
}
