package domain

import (
	"slices"

	"cloud.google.com/go/civil"
)

// RecentActivityLimit bounds ActivitySummary.RecentActivity.
const RecentActivityLimit = 30

// ComputeSummary folds a user's complete record set into an ActivitySummary as of today.
// Records may arrive in any order; the input slice is never modified.
func ComputeSummary(records []ActivityRecord, today civil.Date) ActivitySummary {
	sorted := sortedByDateDesc(records)

	summary := ActivitySummary{TotalActiveDays: len(sorted)}
	for _, rec := range sorted {
		summary.TotalGoalsCompleted += rec.GoalsCompleted
		summary.TotalTasksCompleted += rec.TasksCompleted
		summary.TotalHabitsCompleted += rec.HabitsCompleted
	}

	streaks := foldStreaks(sorted, today)
	summary.CurrentStreak = streaks.Current
	summary.BestStreak = streaks.Best

	recent := sorted
	if len(recent) > RecentActivityLimit {
		recent = recent[:RecentActivityLimit]
	}
	summary.RecentActivity = slices.Clip(recent)
	return summary
}

// ComputeStreaks returns the current and best consecutive-day streaks as of today.
//
// The current streak is the run anchored at the most recent record, counted only when that
// record is dated today or yesterday. Yesterday acts as a grace day: not having logged
// anything yet today does not break the streak.
func ComputeStreaks(records []ActivityRecord, today civil.Date) Streaks {
	return foldStreaks(sortedByDateDesc(records), today)
}

// SummarizeWindow totals the counters of the given records.
func SummarizeWindow(records []ActivityRecord) WindowSummary {
	var out WindowSummary
	for _, rec := range records {
		out.TotalGoals += rec.GoalsCompleted
		out.TotalTasks += rec.TasksCompleted
		out.TotalHabits += rec.HabitsCompleted
	}
	out.DaysActive = len(records)
	return out
}

// streakState is the accumulator of the descending walk over active days.
type streakState struct {
	prev          civil.Date
	run           int
	best          int
	current       int
	leadingClosed bool
}

func (s streakState) advance(date civil.Date) streakState {
	switch gap := s.prev.DaysSince(date); {
	case s.run == 0:
		s.run = 1
	case gap == 0:
		// duplicate day; uniqueness is enforced upstream
	case gap == 1:
		s.run++
	default:
		s = s.closeRun()
		s.run = 1
	}
	s.prev = date
	return s
}

func (s streakState) closeRun() streakState {
	if !s.leadingClosed {
		s.current = s.run
		s.leadingClosed = true
	}
	s.best = max(s.best, s.run)
	return s
}

// foldStreaks expects records sorted by ActivityDate descending.
func foldStreaks(sorted []ActivityRecord, today civil.Date) Streaks {
	if len(sorted) == 0 {
		return Streaks{}
	}

	var state streakState
	for _, rec := range sorted {
		state = state.advance(rec.ActivityDate)
	}
	state = state.closeRun()

	// Records dated after today (client clock skew) still anchor the leading run.
	if today.DaysSince(sorted[0].ActivityDate) > 1 {
		state.current = 0
	}
	return Streaks{Current: state.current, Best: state.best}
}

func sortedByDateDesc(records []ActivityRecord) []ActivityRecord {
	out := make([]ActivityRecord, len(records))
	copy(out, records)
	slices.SortStableFunc(out, func(a, b ActivityRecord) int {
		return compareDates(b.ActivityDate, a.ActivityDate)
	})
	return out
}
