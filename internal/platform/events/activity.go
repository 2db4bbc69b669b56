// Package events defines the activity event payloads published through the outbox.
package events

import "time"

const (
	// TypeDayStarted is emitted when the first record for a user's calendar day is created.
	TypeDayStarted = "activity.day_started"
	// TypeCounterIncremented is emitted for every accepted counter increment.
	TypeCounterIncremented = "activity.counter_incremented"
)

// ActivityDayStarted marks a new active day for a user. ActivityDate is formatted YYYY-MM-DD.
type ActivityDayStarted struct {
	RecordID     string    `json:"record_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	ActivityDate string    `json:"activity_date"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ActivityCounterIncremented carries the counter value after the increment was applied.
type ActivityCounterIncremented struct {
	RecordID     string    `json:"record_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	ActivityDate string    `json:"activity_date"`
	Category     string    `json:"category"`
	Amount       int       `json:"amount"`
	Total        int       `json:"total"`
	OccurredAt   time.Time `json:"occurred_at"`
}
