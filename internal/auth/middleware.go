package auth

import (
	"net/http"

	authlib "example.com/goaltracker/internal/platform/auth"
)

// PublicPaths are served without a bearer token.
var PublicPaths = []string{"/healthz", "/metrics"}

// Middleware enforces bearer-token authentication on incoming requests.
type Middleware struct {
	inner authlib.Middleware
}

// NewMiddleware constructs Middleware with validation config.
func NewMiddleware(cfg Config) Middleware {
	return Middleware{inner: authlib.NewMiddleware(cfg, authlib.SkipPaths(PublicPaths...))}
}

// Wrap attaches authentication handling to an http.Handler.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return m.inner.Wrap(next)
}
