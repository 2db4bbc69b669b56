package domain

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// DateOf returns the calendar day of t as observed in loc. A nil loc means UTC.
func DateOf(t time.Time, loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(t.In(loc))
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(raw string) (civil.Date, error) {
	return civil.ParseDate(strings.TrimSpace(raw))
}

func compareDates(a, b civil.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
