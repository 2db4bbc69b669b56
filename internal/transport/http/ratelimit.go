package httptransport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"example.com/goaltracker/internal/auth"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per caller.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	trusted  []netip.Prefix
	now      func() time.Time
}

// RateLimiterOption configures optional behaviour for the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithTrustedProxies lists the peers whose X-Forwarded-For header is believed. Without it the
// header is ignored and callers are keyed by their socket address.
func WithTrustedProxies(prefixes []netip.Prefix) RateLimiterOption {
	return func(l *RateLimiter) {
		l.trusted = prefixes
	}
}

// NewRateLimiter constructs a limiter allowing rps requests per second with the given burst.
func NewRateLimiter(rps float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	l := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  3 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wrap rejects requests over the caller's budget with 429. Authenticated callers are keyed by
// tenant and subject, anonymous ones by client IP, so it belongs after the auth middleware.
func (l *RateLimiter) Wrap(next http.Handler) http.Handler {
	return l.wrap(next, l.clientKey)
}

// WrapByIP keys every request by client IP. It runs ahead of token verification so unauthenticated
// floods are shed before they cost a signature check.
func (l *RateLimiter) WrapByIP(next http.Handler) http.Handler {
	return l.wrap(next, func(r *http.Request) string { return "ip:" + l.clientIP(r) })
}

func (l *RateLimiter) wrap(next http.Handler, key func(*http.Request) string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.limiterFor(key(r)).Allow() {
			rateLimitedCounter.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"type": "rate_limited", "detail": "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run evicts idle visitors every minute until ctx is cancelled.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *RateLimiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idleTTL)
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
}

func (l *RateLimiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.now()
	return v.limiter
}

func (l *RateLimiter) clientKey(r *http.Request) string {
	if caller, ok := auth.CallerFrom(r.Context()); ok {
		return "sub:" + caller.Key()
	}
	return "ip:" + l.clientIP(r)
}

// clientIP returns the socket peer, or when that peer is a trusted proxy, the right-most
// X-Forwarded-For entry that is not itself a trusted proxy.
func (l *RateLimiter) clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !l.isTrusted(peer) {
		return host
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !l.isTrusted(hop) {
			return hop.String()
		}
	}
	return host
}

func (l *RateLimiter) isTrusted(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range l.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
