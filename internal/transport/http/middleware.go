package httptransport

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
)

var (
	requestCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goal_tracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests served, labeled by method, route and status code.",
	}, []string{"method", "route", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "goal_tracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests, labeled by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	rateLimitedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "goal_tracker",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Number of requests rejected by the rate limiter.",
	})
)

func init() {
	prometheus.MustRegister(requestCounter, requestDuration, rateLimitedCounter)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Instrument records request counts and latency. Paths outside the API are folded into one
// route label to keep cardinality bounded.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeLabel(r.URL.Path)
		requestCounter.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

var knownRoutes = map[string]struct{}{
	"/v1/activity/summary":  {},
	"/v1/activity/recent":   {},
	"/v1/activity/range":    {},
	"/v1/activity/days":     {},
	"/v1/activity/counters": {},
	"/v1/activity/logins":   {},
	"/healthz":              {},
	"/metrics":              {},
}

func routeLabel(path string) string {
	if _, ok := knownRoutes[strings.TrimSuffix(path, "/")]; ok {
		return strings.TrimSuffix(path, "/")
	}
	return "other"
}

// RequestLogger logs one line per request.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
		})
	}
}

// CORS allows browser clients from the configured origins. An empty list disables CORS handling.
func CORS(origins []string) Middleware {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler
}
