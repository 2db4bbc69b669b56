package outbox

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestBackoffDelayDoublesAndCaps(t *testing.T) {
	m := NewDLQManager(nil, 0, 0)
	require.Equal(t, 5, m.maxRetries)

	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 2*time.Minute, m.backoffDelay(2))
	require.Equal(t, 16*time.Minute, m.backoffDelay(5))
	require.Equal(t, time.Hour, m.backoffDelay(7))
	require.Equal(t, time.Hour, m.backoffDelay(64))
	require.Equal(t, time.Minute, m.backoffDelay(0))
}

func TestEncodeWireFormat(t *testing.T) {
	frame := encodeWireFormat(258, []byte(`{"a":1}`))
	require.Equal(t, byte(0), frame[0])
	require.Equal(t, []byte{0, 0, 1, 2}, frame[1:5])
	require.Equal(t, `{"a":1}`, string(frame[5:]))
}

func TestSchemaCatalogCoversEventTypes(t *testing.T) {
	for _, eventType := range []string{"activity.day_started", "activity.counter_incremented"} {
		entry, ok := schemaCatalog[eventType]
		require.True(t, ok, eventType)
		require.NotEmpty(t, entry.Schema)
	}
}

func TestDLQOutcomesAreLabeledByEventType(t *testing.T) {
	entry := dlqEntry{EventType: "activity.counter_incremented"}
	before := testutil.ToFloat64(dlqEntriesCounter.WithLabelValues(entry.EventType, dlqOutcomeRetryScheduled))

	recordDLQOutcome(entry, dlqOutcomeRetryScheduled)

	after := testutil.ToFloat64(dlqEntriesCounter.WithLabelValues(entry.EventType, dlqOutcomeRetryScheduled))
	require.InDelta(t, before+1, after, 0.0001)
}

func TestSetBacklogDropsDrainedEventTypes(t *testing.T) {
	setBacklog([]backlogStat{
		{EventType: "activity.day_started", Pending: 3, OldestAge: 90 * time.Second},
		{EventType: "activity.counter_incremented", Pending: 1, OldestAge: time.Second},
	})
	require.Equal(t, 2, testutil.CollectAndCount(dlqBacklogGauge))
	require.InDelta(t, 3, testutil.ToFloat64(dlqBacklogGauge.WithLabelValues("activity.day_started")), 0.0001)
	require.InDelta(t, 90, testutil.ToFloat64(dlqOldestEntryGauge.WithLabelValues("activity.day_started")), 0.0001)

	setBacklog([]backlogStat{{EventType: "activity.counter_incremented", Pending: 2}})
	require.Equal(t, 1, testutil.CollectAndCount(dlqBacklogGauge))
	require.InDelta(t, 2, testutil.ToFloat64(dlqBacklogGauge.WithLabelValues("activity.counter_incremented")), 0.0001)

	setBacklog(nil)
	require.Zero(t, testutil.CollectAndCount(dlqOldestEntryGauge))
}
