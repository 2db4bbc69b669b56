package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/goaltracker/internal/platform/events"
)

type recordingInvalidator struct {
	calls [][2]string
	err   error
}

func (r *recordingInvalidator) Invalidate(_ context.Context, tenantID, userID string) error {
	r.calls = append(r.calls, [2]string{tenantID, userID})
	return r.err
}

func TestInvalidationHandlerInvalidatesEventUser(t *testing.T) {
	inv := &recordingInvalidator{}
	handler := NewInvalidationHandler(inv, log.New(testWriter{t}, "", 0))

	payload, err := json.Marshal(events.ActivityCounterIncremented{
		RecordID: "rec-1",
		TenantID: "tenant-1",
		UserID:   "user-1",
		Category: "goals",
		Amount:   1,
		Total:    3,
	})
	require.NoError(t, err)

	require.NoError(t, handler.Handle(context.Background(), Message{
		EventType: events.TypeCounterIncremented,
		TenantID:  "tenant-1",
		Payload:   payload,
	}))
	require.Equal(t, [][2]string{{"tenant-1", "user-1"}}, inv.calls)
}

func TestInvalidationHandlerFallsBackToHeaderTenant(t *testing.T) {
	inv := &recordingInvalidator{}
	handler := NewInvalidationHandler(inv, log.New(testWriter{t}, "", 0))

	require.NoError(t, handler.Handle(context.Background(), Message{
		EventType: events.TypeDayStarted,
		TenantID:  "tenant-9",
		Payload:   json.RawMessage(`{"user_id":"user-9"}`),
	}))
	require.Equal(t, [][2]string{{"tenant-9", "user-9"}}, inv.calls)
}

func TestInvalidationHandlerSkipsUnknownAndAnonymousEvents(t *testing.T) {
	inv := &recordingInvalidator{}
	handler := NewInvalidationHandler(inv, log.New(testWriter{t}, "", 0))
	ctx := context.Background()

	require.NoError(t, handler.Handle(ctx, Message{EventType: "activity.archived", Payload: json.RawMessage(`not json`)}))
	require.NoError(t, handler.Handle(ctx, Message{EventType: events.TypeDayStarted, Payload: json.RawMessage(`{"tenant_id":"t"}`)}))
	require.NoError(t, handler.Handle(ctx, Message{EventType: events.TypeDayStarted, Payload: json.RawMessage(`[1,2]`)}), "undecodable payloads cannot succeed on retry")
	require.Empty(t, inv.calls)
}

func TestInvalidationHandlerReturnsUpstreamErrors(t *testing.T) {
	upstream := errors.New("edge unavailable")
	handler := NewInvalidationHandler(&recordingInvalidator{err: upstream}, log.New(testWriter{t}, "", 0))

	err := handler.Handle(context.Background(), Message{
		EventType: events.TypeDayStarted,
		Payload:   json.RawMessage(`{"tenant_id":"t","user_id":"u"}`),
	})
	require.ErrorIs(t, err, upstream)
}
