package billing

import (
	"strings"
	"time"
)

// RenewalLayout is the datetime-local form renewal dates are stored in.
const RenewalLayout = "2006-01-02T15:04"

// renewalLayouts are tried in order; zone-less layouts resolve in the caller's location.
var renewalLayouts = []string{
	RenewalLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseRenewalDate parses a stored renewal date in loc.
// It returns false for empty or unparseable input.
func ParseRenewalDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range renewalLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}
	return time.Time{}, false
}

// FormatRenewalDate formats t in the stored datetime-local form.
func FormatRenewalDate(t time.Time) string {
	return t.Format(RenewalLayout)
}

// AddMonths adds n calendar months, clamping the day to the target month's
// last day. Jan 31 + 1 month is Feb 28 (Feb 29 in leap years), never Mar 3.
// Time of day and location are preserved.
func AddMonths(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())

	// day 0 of the following month is the last day of this one
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, first.Location()).Day()
	if day > lastDay {
		day = lastDay
	}

	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysRemaining returns the whole days, rounded up, from now until the
// renewal date. Past, unset and invalid dates yield 0.
func DaysRemaining(renewalDate string, now time.Time) int {
	renewal, ok := ParseRenewalDate(renewalDate, now.Location())
	if !ok || !renewal.After(now) {
		return 0
	}
	diff := renewal.Sub(now)
	days := diff / (24 * time.Hour)
	if diff%(24*time.Hour) != 0 {
		days++
	}
	return int(days)
}
