package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Category names one of the independently incremented per-day counters.
type Category string

const (
	CategoryGoals  Category = "goals"
	CategoryTasks  Category = "tasks"
	CategoryHabits Category = "habits"
)

// ParseCategory normalises raw input into a known Category.
func ParseCategory(raw string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case CategoryGoals, CategoryTasks, CategoryHabits:
		return c, nil
	default:
		return "", ErrInvalidCategory
	}
}

// ActivityRecord is the per-user, per-calendar-day activity row.
// At most one record exists for a (tenant, user, activity date) triple.
type ActivityRecord struct {
	ID              string
	TenantID        string
	UserID          string
	ActivityDate    civil.Date
	GoalsCompleted  int
	TasksCompleted  int
	HabitsCompleted int
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Count returns the counter matching the category.
func (r ActivityRecord) Count(c Category) int {
	switch c {
	case CategoryGoals:
		return r.GoalsCompleted
	case CategoryTasks:
		return r.TasksCompleted
	case CategoryHabits:
		return r.HabitsCompleted
	}
	return 0
}

// ActivitySummary is recomputed from the full record set on every request and never stored.
type ActivitySummary struct {
	TotalGoalsCompleted  int
	TotalTasksCompleted  int
	TotalHabitsCompleted int
	CurrentStreak        int
	BestStreak           int
	TotalActiveDays      int
	RecentActivity       []ActivityRecord
}

// Streaks holds the current and best consecutive-day run lengths.
type Streaks struct {
	Current int
	Best    int
}

// WindowSummary totals the counters over a bounded set of days.
type WindowSummary struct {
	TotalGoals  int
	TotalTasks  int
	TotalHabits int
	DaysActive  int
}

// Cursor models the pagination token for descending day listings.
type Cursor struct {
	ActivityDate civil.Date
	ID           string
}
