/*
ledger.go - Confirmed indexation records and persistence interfaces

PURPOSE:
  A Verdict is recomputed on every read and never stored. The only
  persisted state in this system is the ConfirmedIndexation: the
  immutable record of what an operator actually applied, written once
  at confirmation time and decoupled from later ERP edits.

APPEND-ONLY:
  Ledger rows are never updated or deleted. Corrections happen in the
  real world (a new indexation), not by editing history.
*/
package indexation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIRMED INDEXATION - The ledger row
// =============================================================================

// ConfirmedIndexation is the system of record for one applied rent
// indexation. Fund/entity/property/tenant labels are denormalized
// snapshots resolved at confirmation time, so the row stays a stable
// historical record independent of later ERP edits.
type ConfirmedIndexation struct {
	// ID is the storage identifier (UUID).
	ID string

	// Reference is the generated human-readable identifier, e.g.
	// "IDX-2024-0041". Embedded in the letter and its filename.
	Reference string

	TenancyID   TenancyID
	TenancyName string

	OldRent       decimal.Decimal
	NewRent       decimal.Decimal
	Applied       decimal.Decimal
	EffectiveDate time.Time

	// Index snapshot at confirmation time.
	PreviousKey   string
	CurrentKey    string
	PreviousIndex *decimal.Decimal
	CurrentIndex  *decimal.Decimal

	// Trigger context, copied from the verdict the operator confirmed.
	TriggerReason string
	Threshold     decimal.Decimal
	WaitingMonths int

	// NextPossibleDate = effective date + waiting months, normalized to
	// the first of the month.
	NextPossibleDate time.Time

	EndOfContractPassthrough bool
	Comment                  string

	// Denormalized tenancy snapshot.
	FundLabel     string
	EntityLabel   string
	PropertyLabel string
	TenantLabel   string

	CreatedAt time.Time
}

// =============================================================================
// PERSISTENCE INTERFACES
// =============================================================================

// Ledger persists confirmed indexations, append-only. Insert assigns
// ID, Reference, and CreatedAt on the passed row.
type Ledger interface {
	Insert(ctx context.Context, row *ConfirmedIndexation) error
	List(ctx context.Context) ([]ConfirmedIndexation, error)
	Get(ctx context.Context, id string) (*ConfirmedIndexation, error)
}

// DocumentArchive stores rendered notice letters keyed by the ledger
// row they belong to. Modeled as an external append-only object store.
type DocumentArchive interface {
	Put(ctx context.Context, indexationID, filename string, content []byte) error
	Fetch(ctx context.Context, indexationID string) (filename string, content []byte, err error)
}
