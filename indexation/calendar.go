package indexation

import (
	"fmt"
	"time"
)

// =============================================================================
// CALENDAR KEYS - "MM/YYYY" month keys and "YYYY" year keys
// =============================================================================
// The published index table is keyed by calendar month or calendar year.
// All key derivation lives here so the engine only ever compares strings.

// MonthKey returns the "MM/YYYY" key for the date's calendar month.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%02d/%04d", int(t.Month()), t.Year())
}

// YearKey returns the "YYYY" key for the date's calendar year.
func YearKey(t time.Time) string {
	return fmt.Sprintf("%04d", t.Year())
}

// PreviousMonthKey returns the month key of the calendar month before t.
// Day-of-month is irrelevant: March 1 and March 31 both yield February.
func PreviousMonthKey(t time.Time) string {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return MonthKey(first.AddDate(0, 0, -1))
}

// monthKeyLayouts are tried in order by ParseToMonthKey. Two-part
// slash forms are month/year only: a DD/MM/YYYY string is rejected
// rather than guessed at.
var monthKeyLayouts = []string{
	"2006-01-02",
	"2006-01",
	"01/2006",
	"02.01.2006", // German dotted dates show up in free-text ERP fields
	time.RFC3339,
}

// ParseToMonthKey normalizes a date-ish string to a "MM/YYYY" key.
// Accepted inputs, in precedence order: YYYY-MM-DD, YYYY-MM, MM/YYYY,
// DD.MM.YYYY, RFC3339. Returns ("", false) when nothing matches.
func ParseToMonthKey(s string) (string, bool) {
	for _, layout := range monthKeyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthKey(t), true
		}
	}
	return "", false
}

// ParseToYearKey normalizes a date-ish string to a "YYYY" key. A bare
// 4-digit year passes through; anything else goes via ParseToMonthKey.
func ParseToYearKey(s string) (string, bool) {
	if t, err := time.Parse("2006", s); err == nil {
		return YearKey(t), true
	}
	if key, ok := ParseToMonthKey(s); ok {
		return key[3:], true
	}
	return "", false
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

// AddMonths advances t by n calendar months, re-applying the original
// day-of-month clamped to the target month's last valid day. Unlike
// time.AddDate, Jan 31 + 1 month lands on the last day of February
// instead of overflowing into March.
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	target := first.AddDate(0, n, 0)

	day := t.Day()
	if last := daysInMonth(target.Year(), target.Month()); day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, t.Location())
}

// FirstOfMonth truncates t to the first day of its calendar month.
func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// sameOrAfter compares dates at day granularity, ignoring clock time.
func sameOrAfter(a, b time.Time) bool {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return !a.Before(b)
}
