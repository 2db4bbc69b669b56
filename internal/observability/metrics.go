// Package observability owns the service-level Prometheus collectors.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "goal_tracker"

var (
	summaryComputedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "summaries_computed_total",
		Help:      "Number of activity summaries computed, labeled by operation.",
	}, []string{"operation"})

	summaryDegradedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "summaries_degraded_total",
		Help:      "Number of summaries served as zeros because the record fetch failed.",
	}, []string{"operation"})

	currentStreakHistogram = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "aggregator",
		Name:      "current_streak_days",
		Help:      "Distribution of current streak lengths returned by summary requests.",
		Buckets:   []float64{0, 1, 2, 3, 7, 14, 30, 60, 100, 365},
	})

	counterIncrementCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "activity",
		Name:      "counter_increments_total",
		Help:      "Sum of accepted counter increments, labeled by category.",
	}, []string{"category"})

	activityPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "persistence",
		Name:      "last_activity_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity record write.",
	})
)

func init() {
	prometheus.MustRegister(summaryComputedCounter, summaryDegradedCounter, currentStreakHistogram, counterIncrementCounter, activityPersistGauge)
}

// RecordSummary counts a computed summary and observes its current streak.
func RecordSummary(operation string, currentStreak int) {
	summaryComputedCounter.WithLabelValues(operation).Inc()
	if currentStreak >= 0 {
		currentStreakHistogram.Observe(float64(currentStreak))
	}
}

// RecordDegraded counts a summary that fell back to an empty record set.
func RecordDegraded(operation string) {
	summaryDegradedCounter.WithLabelValues(operation).Inc()
}

// RecordIncrement adds an accepted increment to the per-category counter.
func RecordIncrement(category string, amount int) {
	if amount <= 0 {
		return
	}
	counterIncrementCounter.WithLabelValues(category).Add(float64(amount))
}

// RecordActivityPersisted updates the persistence watermark gauge.
func RecordActivityPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	activityPersistGauge.Set(float64(ts.Unix()))
}
