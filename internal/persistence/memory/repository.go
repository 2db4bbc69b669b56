// Package memory provides an in-process activity store for local development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"example.com/goaltracker/internal/domain"
	"example.com/goaltracker/internal/observability"
)

type dayKey struct {
	tenantID string
	userID   string
	date     civil.Date
}

// Repository keeps one record per (tenant, user, day) in a map guarded by a RWMutex.
type Repository struct {
	mu      sync.RWMutex
	records map[dayKey]domain.ActivityRecord
}

// NewRepository constructs an empty Repository.
func NewRepository() *Repository {
	return &Repository{records: make(map[dayKey]domain.ActivityRecord)}
}

// ListByUser implements domain.Repository.
func (r *Repository) ListByUser(ctx context.Context, tenantID, userID string) ([]domain.ActivityRecord, error) {
	return r.collect(ctx, tenantID, userID, func(domain.ActivityRecord) bool { return true })
}

// ListRange implements domain.Repository. Both bounds are inclusive.
func (r *Repository) ListRange(ctx context.Context, tenantID, userID string, start, end civil.Date) ([]domain.ActivityRecord, error) {
	return r.collect(ctx, tenantID, userID, func(rec domain.ActivityRecord) bool {
		return !rec.ActivityDate.Before(start) && !rec.ActivityDate.After(end)
	})
}

// ListPage implements domain.Repository, ordering by (activity date, id) descending.
func (r *Repository) ListPage(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, *domain.Cursor, error) {
	records, err := r.collect(ctx, tenantID, userID, func(rec domain.ActivityRecord) bool {
		if cursor == nil {
			return true
		}
		if rec.ActivityDate.Before(cursor.ActivityDate) {
			return true
		}
		return rec.ActivityDate == cursor.ActivityDate && rec.ID < cursor.ID
	})
	if err != nil {
		return nil, nil, err
	}

	slices.SortFunc(records, func(a, b domain.ActivityRecord) int {
		switch {
		case a.ActivityDate.After(b.ActivityDate):
			return -1
		case a.ActivityDate.Before(b.ActivityDate):
			return 1
		}
		return strings.Compare(b.ID, a.ID)
	})

	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	var next *domain.Cursor
	if limit > 0 && len(records) == limit {
		last := records[len(records)-1]
		next = &domain.Cursor{ActivityDate: last.ActivityDate, ID: last.ID}
	}
	return records, next, nil
}

// Increment implements domain.Repository.
func (r *Repository) Increment(ctx context.Context, cmd domain.IncrementCommand) (*domain.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := dayKey{cmd.TenantID, cmd.UserID, cmd.Date}
	rec := r.loadOrCreate(key, cmd.ID, cmd.At)
	switch cmd.Category {
	case domain.CategoryGoals:
		rec.GoalsCompleted += cmd.Amount
	case domain.CategoryTasks:
		rec.TasksCompleted += cmd.Amount
	case domain.CategoryHabits:
		rec.HabitsCompleted += cmd.Amount
	default:
		return nil, domain.ErrInvalidCategory
	}
	rec.UpdatedAt = cmd.At
	r.records[key] = rec

	observability.RecordActivityPersisted(cmd.At)
	out := cloneRecord(rec)
	return &out, nil
}

// TouchLogin implements domain.Repository.
func (r *Repository) TouchLogin(ctx context.Context, cmd domain.LoginCommand) (*domain.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := dayKey{cmd.TenantID, cmd.UserID, cmd.Date}
	rec := r.loadOrCreate(key, cmd.ID, cmd.At)
	at := cmd.At
	rec.LastLoginAt = &at
	rec.UpdatedAt = cmd.At
	r.records[key] = rec

	observability.RecordActivityPersisted(cmd.At)
	out := cloneRecord(rec)
	return &out, nil
}

// loadOrCreate must be called with the write lock held.
func (r *Repository) loadOrCreate(key dayKey, id string, at time.Time) domain.ActivityRecord {
	if rec, ok := r.records[key]; ok {
		return cloneRecord(rec)
	}
	return domain.ActivityRecord{
		ID:           id,
		TenantID:     key.tenantID,
		UserID:       key.userID,
		ActivityDate: key.date,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func (r *Repository) collect(ctx context.Context, tenantID, userID string, keep func(domain.ActivityRecord) bool) ([]domain.ActivityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ActivityRecord, 0)
	for key, rec := range r.records {
		if key.tenantID != tenantID || key.userID != userID || !keep(rec) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func cloneRecord(rec domain.ActivityRecord) domain.ActivityRecord {
	if rec.LastLoginAt != nil {
		at := *rec.LastLoginAt
		rec.LastLoginAt = &at
	}
	return rec
}
