package erp

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECORD COERCION - The single place raw Odoo values become typed ones
// =============================================================================
// Odoo serializes absent/empty fields as JSON false regardless of the
// field's type, numbers as float64, and many2one references as
// [id, label] pairs. Every accessor below tolerates all of that, so
// the loader can read records without per-field special cases.

// Record is one raw Odoo row.
type Record map[string]any

// ID returns the record's numeric id, 0 when absent.
func (r Record) ID() int64 {
	return r.Int("id")
}

// Str returns a string field, "" for absent/false.
func (r Record) Str(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Int returns an integer field, 0 for absent/false.
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Bool returns a boolean field. Odoo also uses false for "absent",
// which collapses to the same answer here.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Dec returns a numeric field as a decimal, zero for absent/false.
func (r Record) Dec(key string) decimal.Decimal {
	switch v := r[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case bool:
		// Legacy contracts store flag-style ratios as booleans.
		if v {
			return decimal.NewFromInt(1)
		}
	}
	return decimal.Zero
}

// Ratio coerces pass-through-style fields: numbers pass through,
// true/false become 1/0, absent becomes 0. Defaulting an absent ratio
// to full pass-through is the loader's decision, not this accessor's.
func (r Record) Ratio(key string) decimal.Decimal {
	return r.Dec(key)
}

// Date parses an Odoo date field ("2006-01-02", sometimes with a time
// suffix). Returns nil when the field is absent or unparseable; the
// raw string is available via Str for fallback key recovery.
func (r Record) Date(key string) *time.Time {
	s := r.Str(key)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}

// Many2One unpacks an [id, label] reference. Zero id means unset.
func (r Record) Many2One(key string) (int64, string) {
	pair, ok := r[key].([]any)
	if !ok || len(pair) < 2 {
		return 0, ""
	}
	id, _ := pair[0].(float64)
	label, _ := pair[1].(string)
	return int64(id), label
}

// Many2OneLabel returns just the display label of a reference.
func (r Record) Many2OneLabel(key string) string {
	_, label := r.Many2One(key)
	return label
}
