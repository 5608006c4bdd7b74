/*
engine.go - Eligibility & amount engine

PURPOSE:
  Decides, per tenancy, whether a VPI rent indexation may be applied
  now and computes the applied percentage. This is a deterministic
  rules engine over the tenancy's contractual parameters (lock date,
  waiting time, threshold, pass-through, cap) and two resolved index
  values.

PRECEDENCE:
  Verdicts are mutually exclusive. The engine walks an explicit ordered
  rule list; the first rule whose predicate matches produces the
  terminal verdict and short-circuits the rest:

    1. lock date active                      -> locked
    2. index kind unrecognized               -> index kind not handled
    manual kinds (VPI, VPI jährlich):
    3. no adjustment date                    -> no adjustment_date
    4. either index unresolved               -> missing index data
    5. waiting time not elapsed              -> waiting_time not reached
    6. delta below threshold                 -> delta below threshold
    7. capped amount                         -> eligible (if positive)
    automatic kinds (VPI automatisch, ...):
    8. missing date or index                 -> missing adjustment date or index
    9. neither wait nor threshold met        -> not triggered
   10. capped amount                         -> eligible (if positive)

NUMERIC SEMANTICS:
  delta   = current/previous - 1     (nil unless both indexes resolved)
  applied = min(delta * passThrough, cap)   with cap <= 0 meaning uncapped

  The engine carries full-precision decimals; rounding is presentation's
  concern.

TOTALITY:
  Evaluate never returns an error and never panics on malformed input.
  Every degenerate case maps to a Reason, so one bad contract can never
  fail a batch evaluation.
*/
package indexation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PUBLIC API
// =============================================================================

// DefaultReferenceKeys returns the reference keys used when the caller
// supplies none: the calendar month immediately preceding now, and the
// calendar year immediately preceding now.
func DefaultReferenceKeys(now time.Time) (monthKey, yearKey string) {
	return PreviousMonthKey(now), YearKey(now.AddDate(-1, 0, 0))
}

// Evaluate produces the eligibility verdict for a single tenancy.
// Pure: all temporal inputs are explicit parameters. Empty reference
// keys fall back to DefaultReferenceKeys(now).
func Evaluate(t Tenancy, table *IndexTable, refMonthKey, refYearKey string, now time.Time) Verdict {
	defMonth, defYear := DefaultReferenceKeys(now)
	if refMonthKey == "" {
		refMonthKey = defMonth
	}
	if refYearKey == "" {
		refYearKey = defYear
	}

	s := newEvalState(t, table, refMonthKey, refYearKey, now)
	for _, rule := range evalRules {
		if rule.applies(s) {
			rule.fire(s)
			break
		}
	}
	return s.verdict
}

// EvaluateAll evaluates a batch independently, one verdict per tenancy.
func EvaluateAll(tenancies []Tenancy, table *IndexTable, refMonthKey, refYearKey string, now time.Time) []Verdict {
	verdicts := make([]Verdict, len(tenancies))
	for i, t := range tenancies {
		verdicts[i] = Evaluate(t, table, refMonthKey, refYearKey, now)
	}
	return verdicts
}

// =============================================================================
// EVALUATION STATE
// =============================================================================

type evalState struct {
	tenancy Tenancy
	now     time.Time
	verdict Verdict

	// nextWait is the earliest date the waiting time is satisfied.
	// Zero when no adjustment date exists.
	nextWait time.Time
}

func newEvalState(t Tenancy, table *IndexTable, refMonthKey, refYearKey string, now time.Time) *evalState {
	s := &evalState{
		tenancy: t,
		now:     now,
		verdict: Verdict{
			TenancyID:   t.ID,
			TenancyName: t.Name,
			Kind:        NormalizeIndexKind(t.IndexLabel),
		},
	}
	s.resolveIndexes(table, refMonthKey, refYearKey)
	if t.AdjustmentDate != nil {
		s.nextWait = AddMonths(*t.AdjustmentDate, t.WaitingMonths)
	}
	return s
}

// resolveIndexes derives the previous/current calendar keys for the
// tenancy's kind and looks both up in the table. Keys are computed even
// for unhandled kinds so the verdict stays observable; values stay nil
// on any miss, and delta is only formed from two resolved values.
func (s *evalState) resolveIndexes(table *IndexTable, refMonthKey, refYearKey string) {
	t := s.tenancy

	if s.verdict.Kind.Annual() {
		s.verdict.CurrentKey = refYearKey
		if t.AdjustmentDate != nil {
			s.verdict.PreviousKey = YearKey(*t.AdjustmentDate)
		} else if key, ok := ParseToYearKey(t.AdjustmentDateRaw); ok {
			s.verdict.PreviousKey = key
		}
		if s.verdict.PreviousKey != "" {
			if v, ok := table.Year(s.verdict.PreviousKey); ok {
				s.verdict.PreviousIndex = &v
			}
		}
		if v, ok := table.Year(s.verdict.CurrentKey); ok {
			s.verdict.CurrentIndex = &v
		}
	} else {
		s.verdict.CurrentKey = refMonthKey
		if t.AdjustmentDate != nil {
			s.verdict.PreviousKey = MonthKey(*t.AdjustmentDate)
		} else if key, ok := ParseToMonthKey(t.AdjustmentDateRaw); ok {
			s.verdict.PreviousKey = key
		}
		if s.verdict.PreviousKey != "" {
			if v, ok := table.Month(s.verdict.PreviousKey); ok {
				s.verdict.PreviousIndex = &v
			}
		}
		if v, ok := table.Month(s.verdict.CurrentKey); ok {
			s.verdict.CurrentIndex = &v
		}
	}

	if s.verdict.PreviousIndex != nil && s.verdict.CurrentIndex != nil && !s.verdict.PreviousIndex.IsZero() {
		delta := s.verdict.CurrentIndex.Div(*s.verdict.PreviousIndex).Sub(decimal.NewFromInt(1))
		s.verdict.Delta = &delta
	}
}

func (s *evalState) indexesResolved() bool { return s.verdict.Delta != nil }

func (s *evalState) hasAdjustmentDate() bool { return s.tenancy.AdjustmentDate != nil }

// waitingReached: adjustmentDate + waitingMonths <= now, at day
// granularity. The boundary day itself counts as reached.
func (s *evalState) waitingReached() bool {
	return s.hasAdjustmentDate() && sameOrAfter(s.now, s.nextWait)
}

func (s *evalState) deltaMeetsThreshold() bool {
	return s.verdict.Delta != nil && !s.verdict.Delta.LessThan(s.tenancy.Threshold)
}

// block records a terminal not-eligible verdict.
func (s *evalState) block(reason Reason) {
	s.verdict.EligibleNow = false
	s.verdict.Reason = reason
}

func (s *evalState) emitNextWait() {
	if !s.nextWait.IsZero() {
		nw := s.nextWait
		s.verdict.NextWaitDate = &nw
	}
}

// applyAmount finishes the eligible branch: cap the passed-through
// delta and emit it when the resulting increase is positive.
func (s *evalState) applyAmount() {
	applied := s.verdict.Delta.Mul(s.tenancy.PassThrough)
	if s.tenancy.Cap.IsPositive() && applied.GreaterThan(s.tenancy.Cap) {
		applied = s.tenancy.Cap
	}
	if !applied.IsPositive() {
		s.block(ReasonNoIncrease)
		return
	}
	s.verdict.EligibleNow = true
	s.verdict.Applied = &applied
}

// =============================================================================
// DECISION TABLE
// =============================================================================

type evalRule struct {
	name    string
	applies func(*evalState) bool
	fire    func(*evalState)
}

// evalRules is the verdict precedence order. First match wins.
var evalRules = []evalRule{
	{
		name: "lock",
		applies: func(s *evalState) bool {
			return s.tenancy.LockDate != nil && sameOrAfter(*s.tenancy.LockDate, s.now)
		},
		fire: func(s *evalState) {
			s.verdict.BlockedByLock = true
			s.block(ReasonLocked)
		},
	},
	{
		name:    "kind-unhandled",
		applies: func(s *evalState) bool { return !s.verdict.Kind.Handled() },
		fire:    func(s *evalState) { s.block(ReasonKindNotHandled) },
	},

	// Manual kinds: waiting time AND threshold must both be satisfied.
	{
		name: "manual-missing-date",
		applies: func(s *evalState) bool {
			return !s.verdict.Kind.Automatic() && !s.hasAdjustmentDate()
		},
		fire: func(s *evalState) { s.block(ReasonNoAdjustmentDate) },
	},
	{
		name: "manual-missing-index",
		applies: func(s *evalState) bool {
			return !s.verdict.Kind.Automatic() && !s.indexesResolved()
		},
		fire: func(s *evalState) { s.block(ReasonMissingIndex) },
	},
	{
		name: "manual-waiting",
		applies: func(s *evalState) bool {
			return !s.verdict.Kind.Automatic() && !s.waitingReached()
		},
		fire: func(s *evalState) {
			s.block(ReasonWaitingNotReached)
			s.emitNextWait()
		},
	},
	{
		name: "manual-threshold",
		applies: func(s *evalState) bool {
			return !s.verdict.Kind.Automatic() && !s.deltaMeetsThreshold()
		},
		fire: func(s *evalState) { s.block(ReasonBelowThreshold) },
	},
	{
		name:    "manual-eligible",
		applies: func(s *evalState) bool { return !s.verdict.Kind.Automatic() },
		fire:    func(s *evalState) { s.applyAmount() },
	},

	// Automatic kinds: waiting time OR threshold, whichever first. A
	// zero threshold means the clause has no index trigger and only the
	// waiting time counts.
	{
		name: "auto-missing",
		applies: func(s *evalState) bool {
			return !s.hasAdjustmentDate() || !s.indexesResolved()
		},
		fire: func(s *evalState) { s.block(ReasonMissingDateOrIndex) },
	},
	{
		name: "auto-untriggered",
		applies: func(s *evalState) bool {
			if s.waitingReached() {
				return false
			}
			return s.tenancy.Threshold.IsZero() || !s.deltaMeetsThreshold()
		},
		fire: func(s *evalState) {
			s.block(ReasonNotTriggered)
			s.emitNextWait()
		},
	},
	{
		name:    "auto-eligible",
		applies: func(s *evalState) bool { return true },
		fire:    func(s *evalState) { s.applyAmount() },
	},
}
