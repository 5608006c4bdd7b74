/*
Package confirm orchestrates a confirmed indexation's side effects.

PURPOSE:
  Once an operator confirms old/new rent, percentage, and effective
  date, this package derives and executes the downstream effects in a
  fixed order: ledger insert, letter render, archive upload, ERP rent
  write, ERP adjustment-date write.

SAGA SEMANTICS:
  The two side-effecting systems (ledger, ERP) share no transaction.
  Instead of one try/catch, the workflow is an explicit step sequence
  with a tagged status per step (succeeded / failed / skipped):

    - Ledger insert goes first. If it fails, nothing else is safe to
      do and the confirmation aborts with an error.
    - Letter render and archive upload come next; their failure never
      blocks the ERP write-back - the rent figure is the operationally
      important side effect.
    - The two ERP writes are independent; partial success is reported
      per field and never rolled back.

  Resubmitting the same confirmation creates a duplicate ledger row and
  duplicate ERP writes - an accepted operational risk, not a designed
  guarantee.
*/
package confirm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arealis/rent-indexation/indexation"
	"github.com/arealis/rent-indexation/letter"
)

// rentProductGross19 marks a VAT-gross tenancy: the letter's rent box
// breaks the new rent down into net, 19% VAT, and gross.
const rentProductGross19 = "Miete Gewerbe 19%"

// =============================================================================
// COLLABORATOR INTERFACES
// =============================================================================

// TenancyGateway is the slice of the ERP the workflow needs.
// Implemented by erp.Loader.
type TenancyGateway interface {
	GetTenancy(ctx context.Context, id indexation.TenancyID) (*indexation.Tenancy, error)
	WriteRent(ctx context.Context, id indexation.TenancyID, newRent decimal.Decimal) error
	WriteAdjustmentDate(ctx context.Context, id indexation.TenancyID, effective time.Time) error
}

// Renderer produces the notice PDF. Implemented by letter.Renderer.
type Renderer interface {
	Render(p letter.Params) ([]byte, error)
}

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// Request is a confirmed indexation as submitted by the operator. The
// numbers are the operator's finals: they start from the verdict the UI
// displayed but may be overridden.
type Request struct {
	TenancyID     indexation.TenancyID
	OldRent       decimal.Decimal
	NewRent       decimal.Decimal
	Applied       decimal.Decimal
	EffectiveDate time.Time
	Comment       string

	// Verdict is the snapshot of the row the UI displayed when the
	// operator confirmed; index keys/values and the trigger reason are
	// copied into the ledger from here.
	Verdict indexation.Verdict

	// ReturnDocument asks for the rendered PDF inline in the result in
	// addition to being archived.
	ReturnDocument bool
}

// StepState tags the outcome of one workflow step.
type StepState string

const (
	StepSucceeded StepState = "succeeded"
	StepFailed    StepState = "failed"
	StepSkipped   StepState = "skipped"
)

// StepStatus is the per-step outcome, with the failure reason captured
// at the call site instead of thrown to the caller.
type StepStatus struct {
	State StepState `json:"state"`
	Error string    `json:"error,omitempty"`
}

func succeeded() StepStatus        { return StepStatus{State: StepSucceeded} }
func failed(err error) StepStatus  { return StepStatus{State: StepFailed, Error: err.Error()} }
func skipped(why string) StepStatus { return StepStatus{State: StepSkipped, Error: why} }

// Result reports what actually happened, step by step, so the caller
// can distinguish "ledger saved, ERP not updated" from "nothing saved".
type Result struct {
	LedgerID  string
	Reference string

	Ledger        StepStatus
	Letter        StepStatus
	Archive       StepStatus
	ERPRent       StepStatus
	ERPAdjustDate StepStatus

	// Document holds the rendered PDF when ReturnDocument was set and
	// rendering succeeded.
	Document     []byte
	DocumentName string
}

// =============================================================================
// WORKFLOW
// =============================================================================

// Workflow executes confirmations against its collaborators.
type Workflow struct {
	Gateway  TenancyGateway
	Ledger   indexation.Ledger
	Renderer Renderer
	Archive  indexation.DocumentArchive
}

// Run validates the request and executes the step sequence. It returns
// an error only when nothing was persisted (validation failure, tenancy
// missing, ledger insert failure); any later failure is reported in the
// Result instead.
func (w *Workflow) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	tenancy, err := w.Gateway.GetTenancy(ctx, req.TenancyID)
	if err != nil {
		return nil, err
	}

	// Step 1: ledger insert. Fatal on failure.
	row := buildLedgerRow(req, *tenancy)
	if err := w.Ledger.Insert(ctx, row); err != nil {
		log.Printf("confirm: ledger insert for tenancy %d failed: %v", req.TenancyID, err)
		return nil, err
	}

	result := &Result{
		LedgerID:  row.ID,
		Reference: row.Reference,
		Ledger:    succeeded(),
	}

	// Step 2: letter render. Non-fatal.
	document, err := w.Renderer.Render(letterParams(row, *tenancy))
	if err != nil {
		log.Printf("confirm %s: letter render failed: %v", row.Reference, err)
		result.Letter = failed(err)
		result.Archive = skipped("no document rendered")
	} else {
		result.Letter = succeeded()
		result.DocumentName = row.Reference + ".pdf"
		if req.ReturnDocument {
			result.Document = document
		}

		// Step 3: archive upload. Non-fatal, never blocks the ERP write.
		if err := w.Archive.Put(ctx, row.ID, result.DocumentName, document); err != nil {
			log.Printf("confirm %s: archive upload failed: %v", row.Reference, err)
			result.Archive = failed(err)
		} else {
			result.Archive = succeeded()
		}
	}

	// Steps 4+5: independent ERP writes, reported per field.
	if err := w.Gateway.WriteRent(ctx, req.TenancyID, req.NewRent); err != nil {
		log.Printf("confirm %s: erp rent write failed: %v", row.Reference, err)
		result.ERPRent = failed(err)
	} else {
		result.ERPRent = succeeded()
	}

	if err := w.Gateway.WriteAdjustmentDate(ctx, req.TenancyID, req.EffectiveDate); err != nil {
		log.Printf("confirm %s: erp adjustment date write failed: %v", row.Reference, err)
		result.ERPAdjustDate = failed(err)
	} else {
		result.ERPAdjustDate = succeeded()
	}

	return result, nil
}

func validate(req Request) error {
	if req.TenancyID == 0 {
		return &indexation.FieldError{Field: "tenancy_id", Message: "required"}
	}
	if req.EffectiveDate.IsZero() {
		return &indexation.FieldError{Field: "effective_date", Message: "required"}
	}
	if !req.NewRent.IsPositive() {
		return &indexation.FieldError{Field: "new_rent", Message: "must be positive"}
	}
	if req.OldRent.IsNegative() {
		return &indexation.FieldError{Field: "old_rent", Message: "must not be negative"}
	}
	return nil
}

// =============================================================================
// DERIVATIONS
// =============================================================================

// buildLedgerRow derives the ledger row from the operator's finals and
// the tenancy snapshot resolved now - not re-derived later, so the row
// stays a stable historical record.
func buildLedgerRow(req Request, t indexation.Tenancy) *indexation.ConfirmedIndexation {
	return &indexation.ConfirmedIndexation{
		TenancyID:   req.TenancyID,
		TenancyName: t.Name,

		OldRent:       req.OldRent,
		NewRent:       req.NewRent,
		Applied:       req.Applied,
		EffectiveDate: req.EffectiveDate,

		PreviousKey:   req.Verdict.PreviousKey,
		CurrentKey:    req.Verdict.CurrentKey,
		PreviousIndex: req.Verdict.PreviousIndex,
		CurrentIndex:  req.Verdict.CurrentIndex,

		TriggerReason: triggerReason(req.Verdict),
		Threshold:     t.Threshold,
		WaitingMonths: t.WaitingMonths,

		NextPossibleDate: NextPossibleDate(req.EffectiveDate, t.WaitingMonths),

		EndOfContractPassthrough: t.EndOfContractPassthrough,
		Comment:                  req.Comment,

		FundLabel:     t.FundLabel,
		EntityLabel:   t.EntityLabel,
		PropertyLabel: t.PropertyLabel,
		TenantLabel:   t.TenantLabel,
	}
}

// NextPossibleDate is the earliest next indexation: effective date plus
// the waiting time, normalized to the first of the month.
func NextPossibleDate(effective time.Time, waitingMonths int) time.Time {
	return indexation.FirstOfMonth(indexation.AddMonths(effective, waitingMonths))
}

func triggerReason(v indexation.Verdict) string {
	if v.EligibleNow {
		if v.Kind.Automatic() {
			return "automatic trigger condition met"
		}
		return "waiting time elapsed and delta above threshold"
	}
	if v.Reason != indexation.ReasonNone {
		// Operator override of a non-eligible verdict; keep the cause.
		return fmt.Sprintf("manual override (%s)", v.Reason)
	}
	return "manual override"
}

// NewRentFromOld applies the percentage when the operator did not
// override the new rent explicitly.
func NewRentFromOld(oldRent, applied decimal.Decimal) decimal.Decimal {
	return oldRent.Mul(decimal.NewFromInt(1).Add(applied))
}

func letterParams(row *indexation.ConfirmedIndexation, t indexation.Tenancy) letter.Params {
	p := letter.Params{
		IndexationID:  row.Reference,
		LetterDate:    row.CreatedAt,
		TenantName:    t.TenantLabel,
		TenantAddress: t.TenantAddress,
		PropertyLabel: t.PropertyLabel,
		ContractLabel: t.Name,

		OldRent:       row.OldRent,
		NewRent:       row.NewRent,
		Applied:       row.Applied,
		EffectiveDate: row.EffectiveDate,

		PreviousIndexKey: row.PreviousKey,
		CurrentIndexKey:  row.CurrentKey,

		RentGross:          t.RentProduct == rentProductGross19,
		ServiceCharge:      t.ServiceCharge,
		ServiceChargeGross: t.ServiceChargeGross,
	}
	if row.PreviousIndex != nil {
		p.PreviousIndex = *row.PreviousIndex
	}
	if row.CurrentIndex != nil {
		p.CurrentIndex = *row.CurrentIndex
	}
	return p
}
