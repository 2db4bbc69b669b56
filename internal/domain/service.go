// Package domain defines the business logic for the activity service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"example.com/goaltracker/internal/observability"
)

var (
	// ErrInvalidCategory is returned for counters other than goals, tasks and habits.
	ErrInvalidCategory = errors.New("category must be one of goals, tasks, habits")
	// ErrInvalidAmount is returned for negative increments.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidRange is returned when a date range is malformed or inverted.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrMissingUser is returned when an operation lacks a tenant or user identity.
	ErrMissingUser = errors.New("tenant and user are required")
)

const (
	// DefaultRecentDays is the window used by GetRecentSummary when none is supplied.
	DefaultRecentDays = 7
	// MaxRecentDays caps the window accepted by GetRecentSummary.
	MaxRecentDays = 365
	// MaxPageSize caps ListDays page sizes.
	MaxPageSize = 100
)

// Repository is the record store boundary. Implementations return at most one record per day;
// ordering of ListByUser results is unspecified.
type Repository interface {
	ListByUser(ctx context.Context, tenantID, userID string) ([]ActivityRecord, error)
	ListRange(ctx context.Context, tenantID, userID string, start, end civil.Date) ([]ActivityRecord, error)
	ListPage(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error)
	Increment(ctx context.Context, cmd IncrementCommand) (*ActivityRecord, error)
	TouchLogin(ctx context.Context, cmd LoginCommand) (*ActivityRecord, error)
}

// IncrementCommand creates the day's record if absent, otherwise adds Amount to the category counter.
// ID is only used when the record is created.
type IncrementCommand struct {
	ID       string
	TenantID string
	UserID   string
	Date     civil.Date
	Category Category
	Amount   int
	At       time.Time
}

// LoginCommand creates the day's record if absent and stamps its last login time.
type LoginCommand struct {
	ID       string
	TenantID string
	UserID   string
	Date     civil.Date
	At       time.Time
}

// IncrementInput captures the payload from the API layer.
type IncrementInput struct {
	TenantID string
	UserID   string
	Category string
	Amount   int
}

// SummaryReport wraps a summary with the day it was computed for.
// Degraded is set when the record fetch failed and zeros were substituted.
type SummaryReport struct {
	Summary  ActivitySummary
	AsOf     civil.Date
	Degraded bool
}

// WindowReport wraps a WindowSummary with its inclusive bounds.
type WindowReport struct {
	Summary  WindowSummary
	Start    civil.Date
	End      civil.Date
	Degraded bool
}

// RangeReport wraps the records of [Start, End] ordered by date ascending.
// Degraded is set when the record fetch failed and an empty list was substituted.
type RangeReport struct {
	Records  []ActivityRecord
	Start    civil.Date
	End      civil.Date
	Degraded bool
}

// ServiceOption configures optional behaviour for the Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used to resolve "today".
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the time zone in which calendar days are resolved.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger overrides the logger used to report degraded reads.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service orchestrates activity workflows.
type Service struct {
	repo   Repository
	now    func() time.Time
	loc    *time.Location
	logger *log.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		now:    time.Now,
		loc:    time.UTC,
		logger: log.New(log.Writer(), "[activity] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day in the service's location.
func (s *Service) Today() civil.Date {
	return DateOf(s.now(), s.loc)
}

// GetSummary recomputes the user's activity summary from the full record set.
// A failed fetch never surfaces as an error: the summary is computed over an empty set instead.
func (s *Service) GetSummary(ctx context.Context, tenantID, userID string) SummaryReport {
	today := s.Today()

	records, err := s.repo.ListByUser(ctx, tenantID, userID)
	degraded := err != nil
	if degraded {
		s.logger.Printf("summary fetch failed (tenant=%s, user=%s): %v", tenantID, userID, err)
		observability.RecordDegraded("summary")
		records = nil
	}

	summary := ComputeSummary(records, today)
	observability.RecordSummary("summary", summary.CurrentStreak)
	return SummaryReport{Summary: summary, AsOf: today, Degraded: degraded}
}

// GetRecentSummary totals the user's counters over [today-days, today].
// days <= 0 selects DefaultRecentDays; larger windows are capped at MaxRecentDays.
func (s *Service) GetRecentSummary(ctx context.Context, tenantID, userID string, days int) WindowReport {
	if days <= 0 {
		days = DefaultRecentDays
	}
	days = min(days, MaxRecentDays)

	end := s.Today()
	start := end.AddDays(-days)

	records, err := s.repo.ListRange(ctx, tenantID, userID, start, end)
	degraded := err != nil
	if degraded {
		s.logger.Printf("recent summary fetch failed (tenant=%s, user=%s): %v", tenantID, userID, err)
		observability.RecordDegraded("recent")
		records = nil
	}

	observability.RecordSummary("recent", -1)
	return WindowReport{Summary: SummarizeWindow(records), Start: start, End: end, Degraded: degraded}
}

// GetActivityRange returns records within [start, end] ordered by date ascending. Only a
// malformed range is an error; a failed fetch yields an empty, degraded report.
func (s *Service) GetActivityRange(ctx context.Context, tenantID, userID string, start, end civil.Date) (RangeReport, error) {
	if !start.IsValid() || !end.IsValid() || start.After(end) {
		return RangeReport{}, ErrInvalidRange
	}
	report := RangeReport{Records: []ActivityRecord{}, Start: start, End: end}

	records, err := s.repo.ListRange(ctx, tenantID, userID, start, end)
	if err != nil {
		s.logger.Printf("range fetch failed (tenant=%s, user=%s): %v", tenantID, userID, err)
		observability.RecordDegraded("range")
		report.Degraded = true
		return report, nil
	}

	report.Records = slices.Clone(records)
	slices.SortStableFunc(report.Records, func(a, b ActivityRecord) int {
		return compareDates(a.ActivityDate, b.ActivityDate)
	})
	return report, nil
}

// ListDays pages through the user's records, most recent first.
func (s *Service) ListDays(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, *Cursor, error) {
	if limit <= 0 {
		limit = 20
	}
	limit = min(limit, MaxPageSize)
	return s.repo.ListPage(ctx, tenantID, userID, cursor, limit)
}

// IncrementCounter records completed work against today's record. It does not recompute
// streaks; summaries are always derived fresh by GetSummary.
func (s *Service) IncrementCounter(ctx context.Context, input IncrementInput) (*ActivityRecord, error) {
	if strings.TrimSpace(input.TenantID) == "" || strings.TrimSpace(input.UserID) == "" {
		return nil, ErrMissingUser
	}
	category, err := ParseCategory(input.Category)
	if err != nil {
		return nil, err
	}
	amount := input.Amount
	if amount == 0 {
		amount = 1
	}
	if amount < 0 {
		return nil, ErrInvalidAmount
	}

	now := s.now().UTC()
	record, err := s.repo.Increment(ctx, IncrementCommand{
		ID:       uuid.NewString(),
		TenantID: input.TenantID,
		UserID:   input.UserID,
		Date:     DateOf(now, s.loc),
		Category: category,
		Amount:   amount,
		At:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("increment %s counter: %w", category, err)
	}

	observability.RecordIncrement(string(category), amount)
	return record, nil
}

// TouchLogin marks today as an active day for the user and stamps the login time.
func (s *Service) TouchLogin(ctx context.Context, tenantID, userID string) (*ActivityRecord, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}

	now := s.now().UTC()
	record, err := s.repo.TouchLogin(ctx, LoginCommand{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		UserID:   userID,
		Date:     DateOf(now, s.loc),
		At:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return record, nil
}
