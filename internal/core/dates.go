package core

import "time"

const (
	// DateLayout is the day-granularity format used for record dates.
	DateLayout = "2006-01-02"
	// MonthLayout is the year-month key dates are grouped by.
	MonthLayout = "2006-01"
)

// YearMonth returns the YYYY-MM prefix of date. Dates may be plain days or
// full timestamps; only the prefix is inspected.
func YearMonth(date string) (string, bool) {
	if len(date) < 7 || date[4] != '-' {
		return "", false
	}
	for i, r := range date[:7] {
		if i == 4 {
			continue
		}
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return date[:7], true
}

// InMonth reports whether date falls in the month identified by ym.
func InMonth(date, ym string) bool {
	got, ok := YearMonth(date)
	return ok && got == ym
}

// MonthKey returns the YYYY-MM key of t.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// DateOf formats t as a record date.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// Timestamp formats t as an RFC 3339 creation timestamp in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ValidDate accepts YYYY-MM-DD dates and RFC 3339 timestamps.
func ValidDate(s string) bool {
	if _, err := time.Parse(DateLayout, s); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}
