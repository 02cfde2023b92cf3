package utils

import (
	"fmt"
	"time"
)

// offsetNaiveLayout matches timestamps without a zone designator. The
// fractional digits are optional in layouts, so it covers both second and
// sub-second precision.
const offsetNaiveLayout = "2006-01-02T15:04:05.999999999"

// ParseStageTimestamp parses a transition log timestamp. The ATS emits
// RFC 3339 strings, some with a Z suffix and some with an explicit offset;
// entries without any offset occur too and are taken as UTC.
func ParseStageTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}
	t, naiveErr := time.ParseInLocation(offsetNaiveLayout, value, time.UTC)
	if naiveErr == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse time %q: %w", value, err)
}

// MonthWindow returns the half-open UTC interval covering the given calendar
// month: [first instant of month, first instant of next month).
func MonthWindow(year, month int) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), nil
}

// InWindow reports whether t falls inside the half-open interval [start, end).
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
