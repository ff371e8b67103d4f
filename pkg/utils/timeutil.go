package utils

import (
	"fmt"
	"time"
)

// ISODateLayout is the date format news providers accept for date bounds.
const ISODateLayout = "2006-01-02"

// Day is a calendar day as a duration.
const Day = 24 * time.Hour

// DaysBetween returns the number of whole days elapsed from t to now.
// Future timestamps count as zero days.
func DaysBetween(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return int(d / Day)
}

// AgeInDays returns the fractional age of t in days relative to now.
func AgeInDays(t, now time.Time) float64 {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d.Hours() / 24
}

// RelativeDateLabel renders t as "Today", "Yesterday", "N days ago", or a
// calendar date once it is a week or more old.
func RelativeDateLabel(t, now time.Time) string {
	days := DaysBetween(t, now)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2, 2006")
	}
}

// FormatISODate formats t as YYYY-MM-DD in UTC.
func FormatISODate(t time.Time) string {
	return t.UTC().Format(ISODateLayout)
}

// ParseISODate parses a YYYY-MM-DD string.
func ParseISODate(s string) (time.Time, error) {
	return time.Parse(ISODateLayout, s)
}

// LookbackRange returns the from/to ISO dates covering the last n days.
func LookbackRange(now time.Time, days int) (from, to string) {
	return FormatISODate(now.AddDate(0, 0, -days)), FormatISODate(now)
}
