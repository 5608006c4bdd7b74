/*
Package indexation provides the core rent indexation engine.

PURPOSE:
  This package contains the pure domain logic for German CPI ("VPI")
  rent indexation of commercial tenancies: calendar key handling, the
  published index lookup table, and the eligibility & amount engine
  that decides whether a tenancy may be indexed now and by how much.

KEY CONCEPTS IN THIS FILE (types.go):
  - IndexKind: Normalized index clause type (manual/automatic, monthly/annual)
  - Tenancy: Indexation-relevant snapshot of one rental contract
  - Verdict: The engine's per-tenancy evaluation result
  - Reason: Documented cause when a tenancy is not eligible

DESIGN PRINCIPLES:
  1. Purity: The engine never reads the clock or touches I/O; "now" and
     the reference calendar keys are explicit parameters.
  2. Precision: Uses decimal.Decimal for rents, ratios, and index values.
  3. Totality: Malformed input degrades to a documented not-eligible
     reason; evaluation never fails a batch because of one bad record.
  4. Statelessness: Verdicts are recomputed on every read; only a
     confirmed indexation (ledger row) is ever persisted.

SEE ALSO:
  - engine.go: Evaluation rules and precedence
  - calendar.go: Month/year key utilities
  - table.go: The VPI lookup table
*/
package indexation

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// INDEX KIND - Normalized indexation clause type
// =============================================================================

// IndexKind classifies a tenancy's free-text index clause label into one
// of the four handled VPI variants, or Other for anything unrecognized.
type IndexKind string

const (
	// KindVPI: manual monthly indexation. Requires elapsed waiting time
	// AND an index delta at or above the threshold.
	KindVPI IndexKind = "vpi"

	// KindVPIAnnual: manual indexation against yearly average index values.
	KindVPIAnnual IndexKind = "vpi_annual"

	// KindVPIAutomatic: automatic monthly indexation. Triggers on elapsed
	// waiting time OR threshold breach, whichever comes first.
	KindVPIAutomatic IndexKind = "vpi_automatic"

	// KindVPIAutomaticAnnual: automatic indexation against yearly averages.
	KindVPIAutomaticAnnual IndexKind = "vpi_automatic_annual"

	// KindOther: any label the engine does not handle.
	KindOther IndexKind = "other"
)

// Canonical clause labels as they appear on the contracts in the ERP.
// Matching is case- and whitespace-insensitive but otherwise exact.
var canonicalKinds = map[string]IndexKind{
	"vpi":                         KindVPI,
	"vpi jährlich":                KindVPIAnnual,
	"vpi automatisch":             KindVPIAutomatic,
	"vpi automatisch jährlich":    KindVPIAutomaticAnnual,
}

// NormalizeIndexKind maps a free-text index clause label to an IndexKind.
func NormalizeIndexKind(label string) IndexKind {
	key := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if kind, ok := canonicalKinds[key]; ok {
		return kind
	}
	return KindOther
}

// Handled reports whether the engine evaluates this kind at all.
func (k IndexKind) Handled() bool { return k != KindOther }

// Automatic reports whether the kind triggers on waiting time OR threshold.
func (k IndexKind) Automatic() bool {
	return k == KindVPIAutomatic || k == KindVPIAutomaticAnnual
}

// Annual reports whether the kind compares yearly average index values
// instead of monthly readings.
func (k IndexKind) Annual() bool {
	return k == KindVPIAnnual || k == KindVPIAutomaticAnnual
}

// =============================================================================
// TENANCY - Indexation-relevant snapshot of one rental contract
// =============================================================================

// TenancyID identifies a rental contract record in the ERP.
type TenancyID int64

// Tenancy is the normalized, indexation-relevant view of one rental
// contract. All coercion from the ERP's loosely-typed record fields
// happens at the ingestion boundary (package erp); by the time a
// Tenancy reaches the engine every optional field is an explicit
// pointer and every ratio is a decimal.
type Tenancy struct {
	ID   TenancyID
	Name string

	// IndexLabel is the raw index clause text from the contract.
	IndexLabel string

	// LockDate freezes the tenancy entirely while LockDate >= now.
	LockDate *time.Time

	// AdjustmentDate is the date indexation was last applied. Its
	// absence blocks both manual and automatic VPI evaluation.
	AdjustmentDate *time.Time

	// AdjustmentDateRaw keeps the unparsed ERP value so annual kinds
	// can still recover a year when the date string is not a plain date.
	AdjustmentDateRaw string

	// WaitingMonths is the minimum number of calendar months that must
	// elapse after AdjustmentDate before the next indexation.
	WaitingMonths int

	// Threshold is the minimum index delta (fraction, 0.02 = 2%)
	// required to trigger.
	Threshold decimal.Decimal

	// PassThrough is the contractual fraction of the raw index delta
	// passed on to rent. The ingestion boundary defaults it to 1 when
	// the contract leaves it empty.
	PassThrough decimal.Decimal

	// Cap bounds the applied percentage. Zero or negative means uncapped.
	Cap decimal.Decimal

	// Rent bases. CurrentRent is preferred as the old-rent basis;
	// IndexingRent is the contractual fallback.
	CurrentRent  decimal.Decimal
	IndexingRent decimal.Decimal

	// Denormalized identifiers, resolved once at load time so that
	// downstream artifacts (ledger row, letter) are stable snapshots.
	FundLabel     string
	EntityLabel   string
	PropertyLabel string
	TenantLabel   string
	TenantAddress []string

	// RentProduct is the ERP product on the rent line; the "19%
	// commercial" product marks a VAT-gross tenancy.
	RentProduct string

	// Service charges (Nebenkosten) carry their own VAT flag.
	ServiceCharge      decimal.Decimal
	ServiceChargeGross bool

	// EndOfContractPassthrough records the contractual end-of-term
	// passthrough clause; carried into the ledger snapshot unchanged.
	EndOfContractPassthrough bool
}

// OldRentBasis returns the rent the increase is computed from:
// CurrentRent when set, otherwise the contractual IndexingRent.
func (t Tenancy) OldRentBasis() decimal.Decimal {
	if t.CurrentRent.IsPositive() {
		return t.CurrentRent
	}
	return t.IndexingRent
}

// =============================================================================
// VERDICT - Per-tenancy evaluation result
// =============================================================================

// Reason documents why a tenancy is not eligible. Empty means eligible.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonLocked             Reason = "locked"
	ReasonKindNotHandled     Reason = "index kind not handled"
	ReasonNoAdjustmentDate   Reason = "no adjustment_date"
	ReasonMissingIndex       Reason = "missing index data"
	ReasonWaitingNotReached  Reason = "waiting_time not reached"
	ReasonBelowThreshold     Reason = "delta below threshold"
	ReasonMissingDateOrIndex Reason = "missing adjustment date or index"
	ReasonNotTriggered       Reason = "automatic indexation not triggered"
	ReasonNoIncrease         Reason = "applied percentage not positive"
)

// Verdict is the engine's result for one tenancy. Exactly one terminal
// state applies per evaluation: either EligibleNow is true and Applied
// is set, or Reason names the first failing rule.
type Verdict struct {
	TenancyID   TenancyID
	TenancyName string
	Kind        IndexKind

	// BlockedByLock is set when the lock date alone froze the tenancy.
	BlockedByLock bool

	// Calendar keys used for index resolution. Month keys ("MM/YYYY")
	// for monthly kinds, year keys ("YYYY") for annual kinds. Reported
	// even for unhandled kinds, for observability.
	PreviousKey string
	CurrentKey  string

	// Resolved index values; nil when the key has no published value.
	PreviousIndex *decimal.Decimal
	CurrentIndex  *decimal.Decimal

	// Delta = CurrentIndex/PreviousIndex - 1. Nil unless both indexes
	// resolved.
	Delta *decimal.Decimal

	EligibleNow bool

	// Applied is the capped, passed-through percentage. Set only when
	// the tenancy is eligible now.
	Applied *decimal.Decimal

	Reason Reason

	// NextWaitDate is the earliest date the waiting time is satisfied.
	// Set when the tenancy is blocked by waiting time alone.
	NextWaitDate *time.Time
}
