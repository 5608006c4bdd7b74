/*
Package letter renders the formal indexation notice sent to tenants.

PURPOSE:
  Turns the numbers of a confirmed indexation into a paginated German
  business letter (PDF): page 1 on the preprinted letterhead, follow-up
  pages with a masked header region, justified body text, a tabular
  index comparison, and a bordered rent-total box.

LOCALE:
  All dates, currency, and percentage values are formatted for de-DE:
  dot thousands separators, comma decimals, trailing "€" / "%".
  Formatting lives here (format.go); the engine upstream carries
  full-precision fractions and never rounds.
*/
package letter

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var german = message.NewPrinter(language.German)

// Euro formats a monetary amount: 4.850,00 €
func Euro(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return german.Sprintf("%.2f €", f)
}

// Percent formats a fraction as a percentage: 0.035 -> 3,50 %
func Percent(d decimal.Decimal) string {
	f, _ := d.Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return german.Sprintf("%.2f %%", f)
}

// Index formats a published index reading: 103,5
func Index(d decimal.Decimal) string {
	f, _ := d.Round(1).Float64()
	return german.Sprintf("%.1f", f)
}

// Date formats a calendar date the German way: 01.02.2024
func Date(t time.Time) string {
	return t.Format("02.01.2006")
}

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// DateLong spells the month out: 1. Februar 2024
func DateLong(t time.Time) string {
	return fmt.Sprintf("%d. %s %d", t.Day(), germanMonths[t.Month()-1], t.Year())
}
