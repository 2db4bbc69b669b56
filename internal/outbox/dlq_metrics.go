package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a single DLQ manager pass over an entry.
const (
	dlqOutcomeRequeued       = "requeued"
	dlqOutcomeRetryScheduled = "retry_scheduled"
	dlqOutcomeQuarantined    = "quarantined"
)

var (
	dlqEntriesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "goal_tracker",
		Subsystem: "dlq",
		Name:      "entries_handled_total",
		Help:      "DLQ entries handled by the manager, labeled by activity event type and outcome.",
	}, []string{"event_type", "outcome"})

	dlqBacklogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "goal_tracker",
		Subsystem: "dlq",
		Name:      "pending_entries",
		Help:      "Entries awaiting replay, labeled by activity event type. Quarantined entries are excluded.",
	}, []string{"event_type"})

	dlqOldestEntryGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "goal_tracker",
		Subsystem: "dlq",
		Name:      "oldest_pending_entry_age_seconds",
		Help:      "Age of the oldest entry awaiting replay, labeled by activity event type.",
	}, []string{"event_type"})
)

func init() {
	prometheus.MustRegister(dlqEntriesCounter, dlqBacklogGauge, dlqOldestEntryGauge)
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqEntriesCounter.WithLabelValues(entry.EventType, outcome).Inc()
}

type backlogStat struct {
	EventType string
	Pending   int
	OldestAge time.Duration
}

// setBacklog replaces the backlog series so drained event types disappear.
func setBacklog(stats []backlogStat) {
	dlqBacklogGauge.Reset()
	dlqOldestEntryGauge.Reset()
	for _, stat := range stats {
		dlqBacklogGauge.WithLabelValues(stat.EventType).Set(float64(stat.Pending))
		dlqOldestEntryGauge.WithLabelValues(stat.EventType).Set(stat.OldestAge.Seconds())
	}
}

func refreshBacklog(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx,
		`SELECT event_type, COUNT(*), EXTRACT(EPOCH FROM NOW() - MIN(created_at))::float8
           FROM outbox_dlq
          WHERE quarantined_at IS NULL
          GROUP BY event_type`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stats []backlogStat
	for rows.Next() {
		var (
			stat backlogStat
			age  float64
		)
		if err := rows.Scan(&stat.EventType, &stat.Pending, &age); err != nil {
			return err
		}
		stat.OldestAge = time.Duration(age * float64(time.Second))
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	setBacklog(stats)
	return nil
}
