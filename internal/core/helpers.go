package core

import (
	"strings"
	"time"
)

// equalFoldTrim compares two strings case-insensitively after trimming.
func equalFoldTrim(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// containsFold reports whether substr is within s, ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(strings.TrimSpace(substr)))
}

// optional trims s; a blank result means "absent".
func optional(s string) string {
	return strings.TrimSpace(s)
}

// startOfMonth returns midnight on the first day of t's month, in UTC.
func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

// upper trims and upper-cases s.
func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
