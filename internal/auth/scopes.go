package auth

import (
	"errors"
	"strings"
)

// Known OAuth scopes used by the activity endpoints.
const (
	ScopeActivityRead  = "activity:read"
	ScopeActivityWrite = "activity:write"
	// ScopeActivityAdmin allows acting on behalf of another user within the same tenant.
	ScopeActivityAdmin = "activity:admin"
)

// ErrForbidden is returned when the caller lacks a required scope.
var ErrForbidden = errors.New("insufficient scope")

// ResolveUser returns the user a request acts on. An empty requested id means the token subject;
// any other user requires ScopeActivityAdmin.
func ResolveUser(claims *Claims, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if claims == nil {
		return "", ErrForbidden
	}
	if requested == "" || requested == claims.Subject {
		return claims.Subject, nil
	}
	if !claims.HasScope(ScopeActivityAdmin) {
		return "", ErrForbidden
	}
	return requested, nil
}
