// Package api exposes HTTP handlers for the activity service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"example.com/goaltracker/internal/auth"
	"example.com/goaltracker/internal/domain"
	"example.com/goaltracker/internal/persistence"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(context.Context) error

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithHealthCheck makes /healthz fail while check returns an error.
func WithHealthCheck(check HealthCheck) Option {
	return func(h *Handler) {
		h.health = check
	}
}

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	health  HealthCheck
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, opts ...Option) *Handler {
	h := &Handler{service: service}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/activity/summary", h.summary)
	mux.HandleFunc("/v1/activity/recent", h.recent)
	mux.HandleFunc("/v1/activity/range", h.activityRange)
	mux.HandleFunc("/v1/activity/days", h.days)
	mux.HandleFunc("/v1/activity/counters", h.counters)
	mux.HandleFunc("/v1/activity/logins", h.logins)
	mux.HandleFunc("/healthz", h.healthz)
}

// healthz reports a simple OK status for container health checks.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	tenantID, userID, ok := authorize(w, r, r.URL.Query().Get("user_id"), auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	report := h.service.GetSummary(r.Context(), tenantID, userID)
	s := report.Summary
	writeJSON(w, http.StatusOK, SummaryResponse{
		UserID:               userID,
		TotalGoalsCompleted:  s.TotalGoalsCompleted,
		TotalTasksCompleted:  s.TotalTasksCompleted,
		TotalHabitsCompleted: s.TotalHabitsCompleted,
		CurrentStreak:        s.CurrentStreak,
		BestStreak:           s.BestStreak,
		TotalActiveDays:      s.TotalActiveDays,
		RecentActivity:       toRecordViews(s.RecentActivity),
		AsOf:                 report.AsOf,
		Degraded:             report.Degraded,
	})
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	tenantID, userID, ok := authorize(w, r, r.URL.Query().Get("user_id"), auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "days must be a positive integer")
			return
		}
		days = parsed
	}

	report := h.service.GetRecentSummary(r.Context(), tenantID, userID, days)
	writeJSON(w, http.StatusOK, RecentResponse{
		UserID:      userID,
		Start:       report.Start,
		End:         report.End,
		TotalGoals:  report.Summary.TotalGoals,
		TotalTasks:  report.Summary.TotalTasks,
		TotalHabits: report.Summary.TotalHabits,
		DaysActive:  report.Summary.DaysActive,
		Degraded:    report.Degraded,
	})
}

func (h *Handler) activityRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	tenantID, userID, ok := authorize(w, r, r.URL.Query().Get("user_id"), auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	start, err := parseDateParam(r, "start")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	end, err := parseDateParam(r, "end")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	report, err := h.service.GetActivityRange(r.Context(), tenantID, userID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RangeResponse{
		Start:    report.Start,
		End:      report.End,
		Items:    toRecordViews(report.Records),
		Degraded: report.Degraded,
	})
}

func (h *Handler) days(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	tenantID, userID, ok := authorize(w, r, r.URL.Query().Get("user_id"), auth.ScopeActivityRead, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := persistence.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	records, next, err := h.service.ListDays(r.Context(), tenantID, userID, cursor, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListDaysResponse{
		Items:      toRecordViews(records),
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) counters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req IncrementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	tenantID, userID, ok := authorize(w, r, req.UserID, auth.ScopeActivityWrite)
	if !ok {
		return
	}

	record, err := h.service.IncrementCounter(r.Context(), domain.IncrementInput{
		TenantID: tenantID,
		UserID:   userID,
		Category: req.Category,
		Amount:   req.Amount,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordView(*record))
}

func (h *Handler) logins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	tenantID, userID, ok := authorize(w, r, r.URL.Query().Get("user_id"), auth.ScopeActivityWrite)
	if !ok {
		return
	}

	record, err := h.service.TouchLogin(r.Context(), tenantID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordView(*record))
}

// authorize resolves the tenant and target user for the request, writing the error response itself
// when the caller is unauthenticated or holds none of the accepted scopes.
func authorize(w http.ResponseWriter, r *http.Request, requestedUser string, scopes ...string) (string, string, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return "", "", false
	}

	if !auth.HasAnyScope(claims, scopes...) {
		writeError(w, http.StatusForbidden, "forbidden", fmt.Sprintf("scope %s required", scopes[0]))
		return "", "", false
	}

	userID, err := auth.ResolveUser(claims, requestedUser)
	if err != nil {
		writeError(w, http.StatusForbidden, "forbidden", fmt.Sprintf("scope %s required to act for another user", auth.ScopeActivityAdmin))
		return "", "", false
	}
	return claims.TenantID, userID, true
}

func parseDateParam(r *http.Request, name string) (civil.Date, error) {
	raw := r.URL.Query().Get(name)
	if strings.TrimSpace(raw) == "" {
		return civil.Date{}, fmt.Errorf("missing %s parameter", name)
	}
	d, err := domain.ParseDate(raw)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%s must be a YYYY-MM-DD date", name)
	}
	return d, nil
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrMissingUser):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "request cancelled")
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
