package utils

import (
	"time"
)

// DateLayout is the UTC day key used by rollups and trend rows.
const DateLayout = "2006-01-02"

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey formats t as its UTC calendar day.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Yesterday returns the UTC day before now as [start, end).
func Yesterday(now time.Time) (time.Time, time.Time) {
	end := StartOfDay(now)
	return end.AddDate(0, 0, -1), end
}
