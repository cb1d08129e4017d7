package util

import "time"

// FiscalYearBounds returns the first and last day of a calendar fiscal year in UTC
func FiscalYearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return start, end
}

// TruncateToDate drops the time-of-day component, keeping the calendar date in UTC
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
