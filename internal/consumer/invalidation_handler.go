package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"example.com/goaltracker/internal/cache"
	"example.com/goaltracker/internal/platform/events"
)

// InvalidationHandler drops cached summaries for the user an activity event belongs to.
type InvalidationHandler struct {
	invalidator cache.Invalidator
	logger      *log.Logger
}

// NewInvalidationHandler constructs an InvalidationHandler.
func NewInvalidationHandler(invalidator cache.Invalidator, logger *log.Logger) *InvalidationHandler {
	if invalidator == nil {
		invalidator = cache.NoopInvalidator{}
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[invalidation] ", log.LstdFlags)
	}
	return &InvalidationHandler{invalidator: invalidator, logger: logger}
}

type eventSubject struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
}

// Handle ignores event types it does not know. An upstream failure is returned so the processor
// retries the message before committing it.
func (h *InvalidationHandler) Handle(ctx context.Context, msg Message) error {
	switch msg.EventType {
	case events.TypeDayStarted, events.TypeCounterIncremented:
	default:
		return nil
	}

	var subject eventSubject
	if err := json.Unmarshal(msg.Payload, &subject); err != nil {
		h.logger.Printf("skipping %s at offset %d: decode payload: %v", msg.EventType, msg.Offset, err)
		return nil
	}
	if subject.TenantID == "" {
		subject.TenantID = msg.TenantID
	}
	if subject.UserID == "" {
		h.logger.Printf("skipping %s at offset %d: payload has no user_id", msg.EventType, msg.Offset)
		return nil
	}

	err := h.invalidator.Invalidate(ctx, subject.TenantID, subject.UserID)
	recordInvalidation(err)
	if err != nil {
		return fmt.Errorf("invalidate summary cache (tenant=%s, user=%s): %w", subject.TenantID, subject.UserID, err)
	}
	return nil
}
