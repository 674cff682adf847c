// Package period maps points in time to the partition keys used by the
// weekly and monthly progress ledgers. Week keys follow ISO-8601 week
// numbering (Monday-start weeks, week 1 contains the first Thursday of the
// year), month keys are plain calendar months. Both functions are pure and
// depend only on the calendar date of their input, never the time of day.
package period

import (
	"fmt"
	"regexp"
	"time"
)

var (
	weekKeyPattern  = regexp.MustCompile(`^\d{4}-W\d{2}$`)
	monthKeyPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
)

// WeekKey returns the ISO-8601 week identifier for t, e.g. "2024-W10".
// The ISO year may differ from the calendar year around January 1st.
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey returns the calendar month identifier for t, e.g. "2024-03".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// IsWeekKey reports whether s has the form YYYY-Www.
func IsWeekKey(s string) bool {
	return weekKeyPattern.MatchString(s)
}

// IsMonthKey reports whether s has the form YYYY-MM.
func IsMonthKey(s string) bool {
	return monthKeyPattern.MatchString(s)
}

// ParseMonthKey returns the first day of the month named by key.
func ParseMonthKey(key string) (time.Time, error) {
	if !IsMonthKey(key) {
		return time.Time{}, fmt.Errorf("invalid month key %q", key)
	}
	return time.Parse("2006-01", key)
}

// WeekKeysForMonth returns the ISO week keys of every week that overlaps the
// month named by key, in chronological order. Used by the calendar view,
// which renders a month as its constituent weeks.
func WeekKeysForMonth(key string) ([]string, error) {
	first, err := ParseMonthKey(key)
	if err != nil {
		return nil, err
	}
	last := first.AddDate(0, 1, -1)

	keys := make([]string, 0, 6)
	for d := startOfISOWeek(first); !d.After(last); d = d.AddDate(0, 0, 7) {
		keys = append(keys, WeekKey(d))
	}
	return keys, nil
}

// startOfISOWeek returns the Monday of the week containing d.
func startOfISOWeek(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return time.Date(d.Year(), d.Month(), d.Day()-offset, 0, 0, 0, 0, d.Location())
}
