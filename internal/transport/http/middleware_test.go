package httptransport

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"example.com/goaltracker/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)
	handler := limiter.Wrap(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
		req.RemoteAddr = "10.0.0.1:4242"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
	other.RemoteAddr = "10.0.0.2:4242"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	require.Equal(t, http.StatusOK, rec.Code, "budgets are per client")
}

func TestRateLimiterKeysBySubject(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	claims := &auth.Claims{Subject: "user-1", TenantID: "tenant-1"}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:5555"
	require.Equal(t, "ip:198.51.100.4", limiter.clientKey(req))

	req = req.WithContext(auth.WithClaims(req.Context(), claims))
	require.Equal(t, "sub:tenant-1:user-1", limiter.clientKey(req))
}

func TestRateLimiterIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	handler := limiter.WrapByIP(okHandler)

	codes := make([]int, 0, 3)
	for _, spoofed := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
		req.RemoteAddr = "198.51.100.4:5555"
		req.Header.Set("X-Forwarded-For", spoofed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimiterHonoursTrustedProxies(t *testing.T) {
	limiter := NewRateLimiter(1, 1, WithTrustedProxies([]netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4242"
	req.Header.Set("X-Forwarded-For", "192.0.2.77, 203.0.113.9, 10.0.0.2")
	require.Equal(t, "203.0.113.9", limiter.clientIP(req), "right-most untrusted hop wins")

	req.Header.Del("X-Forwarded-For")
	require.Equal(t, "10.0.0.1", limiter.clientIP(req))

	req.RemoteAddr = "198.51.100.4:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	require.Equal(t, "198.51.100.4", limiter.clientIP(req))
}

func TestIPLimiterShedsUnauthenticatedFloodBeforeAuth(t *testing.T) {
	ipLimiter := NewRateLimiter(0.001, 2)
	verified := 0
	authStub := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verified++
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	handler := Chain(okHandler, ipLimiter.WrapByIP, authStub)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
		req.RemoteAddr = "198.51.100.4:5555"
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
	require.Equal(t, 2, verified)
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	limiter.limiterFor("ip:a")
	now = now.Add(2 * time.Minute)
	limiter.limiterFor("ip:b")
	now = now.Add(2 * time.Minute)
	limiter.sweep()

	require.NotContains(t, limiter.visitors, "ip:a")
	require.Contains(t, limiter.visitors, "ip:b")
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(okHandler, mw("outer"), mw("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestInstrumentRecordsStatus(t *testing.T) {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	before := testutil.ToFloat64(requestCounter.WithLabelValues(http.MethodGet, "/v1/activity/summary", "404"))

	Instrument(notFound).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil))

	after := testutil.ToFloat64(requestCounter.WithLabelValues(http.MethodGet, "/v1/activity/summary", "404"))
	require.InDelta(t, before+1, after, 0.0001)
}

func TestRouteLabel(t *testing.T) {
	require.Equal(t, "/v1/activity/range", routeLabel("/v1/activity/range"))
	require.Equal(t, "/healthz", routeLabel("/healthz"))
	require.Equal(t, "other", routeLabel("/v1/activity/range/extra"))
	require.Equal(t, "other", routeLabel("/wp-admin.php"))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogger(log.New(&buf, "", 0))(okHandler)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/activity/logins", nil))
	require.Contains(t, buf.String(), "POST /v1/activity/logins 200")
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/v1/activity/summary", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/activity/summary", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
