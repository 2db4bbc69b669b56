package api

import (
	"time"

	"cloud.google.com/go/civil"

	"example.com/goaltracker/internal/domain"
)

// IncrementRequest is the payload for POST /v1/activity/counters.
// UserID is optional and requires the admin scope when it differs from the token subject.
type IncrementRequest struct {
	Category string `json:"category"`
	Amount   int    `json:"amount"`
	UserID   string `json:"user_id,omitempty"`
}

// RecordView exposes a single day of activity.
type RecordView struct {
	RecordID        string     `json:"record_id"`
	UserID          string     `json:"user_id"`
	ActivityDate    civil.Date `json:"activity_date"`
	GoalsCompleted  int        `json:"goals_completed"`
	TasksCompleted  int        `json:"tasks_completed"`
	HabitsCompleted int        `json:"habits_completed"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// SummaryResponse is the body of GET /v1/activity/summary.
type SummaryResponse struct {
	UserID               string       `json:"user_id"`
	TotalGoalsCompleted  int          `json:"total_goals_completed"`
	TotalTasksCompleted  int          `json:"total_tasks_completed"`
	TotalHabitsCompleted int          `json:"total_habits_completed"`
	CurrentStreak        int          `json:"current_streak"`
	BestStreak           int          `json:"best_streak"`
	TotalActiveDays      int          `json:"total_active_days"`
	RecentActivity       []RecordView `json:"recent_activity"`
	AsOf                 civil.Date   `json:"as_of"`
	Degraded             bool         `json:"degraded"`
}

// RecentResponse is the body of GET /v1/activity/recent.
type RecentResponse struct {
	UserID      string     `json:"user_id"`
	Start       civil.Date `json:"start"`
	End         civil.Date `json:"end"`
	TotalGoals  int        `json:"total_goals"`
	TotalTasks  int        `json:"total_tasks"`
	TotalHabits int        `json:"total_habits"`
	DaysActive  int        `json:"days_active"`
	Degraded    bool       `json:"degraded"`
}

// RangeResponse is the body of GET /v1/activity/range.
type RangeResponse struct {
	Start    civil.Date   `json:"start"`
	End      civil.Date   `json:"end"`
	Items    []RecordView `json:"items"`
	Degraded bool         `json:"degraded"`
}

// ListDaysResponse packages paged results.
type ListDaysResponse struct {
	Items      []RecordView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func toRecordView(rec domain.ActivityRecord) RecordView {
	return RecordView{
		RecordID:        rec.ID,
		UserID:          rec.UserID,
		ActivityDate:    rec.ActivityDate,
		GoalsCompleted:  rec.GoalsCompleted,
		TasksCompleted:  rec.TasksCompleted,
		HabitsCompleted: rec.HabitsCompleted,
		LastLoginAt:     rec.LastLoginAt,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func toRecordViews(records []domain.ActivityRecord) []RecordView {
	out := make([]RecordView, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordView(rec))
	}
	return out
}
