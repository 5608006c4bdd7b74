/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the operator UI. These decouple the internal
  domain model from the API contract: decimals become floats here and
  nowhere else, optional engine values stay nullable pointers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers
*/
package api

import (
	"encoding/base64"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arealis/rent-indexation/confirm"
	"github.com/arealis/rent-indexation/indexation"
)

// =============================================================================
// ELIGIBILITY
// =============================================================================

// VerdictDTO is one row of the eligibility table.
type VerdictDTO struct {
	TenancyID     int64  `json:"tenancy_id"`
	TenancyName   string `json:"tenancy_name"`
	IndexKind     string `json:"index_kind"`
	BlockedByLock bool   `json:"blocked_by_lock"`

	PreviousKey   string   `json:"previous_key,omitempty"`
	CurrentKey    string   `json:"current_key,omitempty"`
	PreviousIndex *float64 `json:"previous_index,omitempty"`
	CurrentIndex  *float64 `json:"current_index,omitempty"`
	Delta         *float64 `json:"delta,omitempty"`

	EligibleNow       bool     `json:"eligible_now"`
	AppliedPercentage *float64 `json:"applied_percentage,omitempty"`
	Reason            string   `json:"reason,omitempty"`
	NextWaitDate      string   `json:"next_wait_date,omitempty"`

	// Context for the operator's review.
	OldRent          float64  `json:"old_rent"`
	SuggestedNewRent *float64 `json:"suggested_new_rent,omitempty"`
	FundLabel        string   `json:"fund,omitempty"`
	EntityLabel      string   `json:"entity,omitempty"`
	PropertyLabel    string   `json:"property,omitempty"`
	TenantLabel      string   `json:"tenant,omitempty"`
}

// EligibilityResponse echoes the reference keys actually used.
type EligibilityResponse struct {
	ReferenceMonth string       `json:"reference_month"`
	ReferenceYear  string       `json:"reference_year"`
	Verdicts       []VerdictDTO `json:"verdicts"`
}

func verdictDTO(v indexation.Verdict, t indexation.Tenancy) VerdictDTO {
	dto := VerdictDTO{
		TenancyID:     int64(v.TenancyID),
		TenancyName:   v.TenancyName,
		IndexKind:     string(v.Kind),
		BlockedByLock: v.BlockedByLock,
		PreviousKey:   v.PreviousKey,
		CurrentKey:    v.CurrentKey,
		PreviousIndex: decimalPtr(v.PreviousIndex),
		CurrentIndex:  decimalPtr(v.CurrentIndex),
		Delta:         decimalPtr(v.Delta),
		EligibleNow:   v.EligibleNow,
		Reason:        string(v.Reason),
		FundLabel:     t.FundLabel,
		EntityLabel:   t.EntityLabel,
		PropertyLabel: t.PropertyLabel,
		TenantLabel:   t.TenantLabel,
	}
	dto.OldRent, _ = t.OldRentBasis().Float64()
	if v.NextWaitDate != nil {
		dto.NextWaitDate = v.NextWaitDate.Format("2006-01-02")
	}
	if v.Applied != nil {
		dto.AppliedPercentage = decimalPtr(v.Applied)
		suggested := confirm.NewRentFromOld(t.OldRentBasis(), *v.Applied).Round(2)
		dto.SuggestedNewRent = decimalPtr(&suggested)
	}
	return dto
}

// =============================================================================
// CONFIRMATION
// =============================================================================

// VerdictSnapshot is the slice of the displayed verdict the client
// echoes back on confirmation; it ends up in the ledger row.
type VerdictSnapshot struct {
	IndexKind     string   `json:"index_kind"`
	PreviousKey   string   `json:"previous_key"`
	CurrentKey    string   `json:"current_key"`
	PreviousIndex *float64 `json:"previous_index"`
	CurrentIndex  *float64 `json:"current_index"`
	EligibleNow   bool     `json:"eligible_now"`
	Reason        string   `json:"reason,omitempty"`
}

// ConfirmRequest is the operator's confirmation of specific values.
type ConfirmRequest struct {
	TenancyID         int64           `json:"tenancy_id"`
	OldRent           float64         `json:"old_rent"`
	NewRent           float64         `json:"new_rent"`
	AppliedPercentage float64         `json:"applied_percentage"`
	EffectiveDate     string          `json:"effective_date"` // YYYY-MM-DD, required
	Comment           string          `json:"comment,omitempty"`
	Verdict           VerdictSnapshot `json:"verdict"`
	ReturnDocument    bool            `json:"return_document,omitempty"`
}

func (r ConfirmRequest) toDomain(effective time.Time) confirm.Request {
	verdict := indexation.Verdict{
		TenancyID:     indexation.TenancyID(r.TenancyID),
		Kind:          indexation.IndexKind(r.Verdict.IndexKind),
		PreviousKey:   r.Verdict.PreviousKey,
		CurrentKey:    r.Verdict.CurrentKey,
		PreviousIndex: floatPtrDecimal(r.Verdict.PreviousIndex),
		CurrentIndex:  floatPtrDecimal(r.Verdict.CurrentIndex),
		EligibleNow:   r.Verdict.EligibleNow,
		Reason:        indexation.Reason(r.Verdict.Reason),
	}
	return confirm.Request{
		TenancyID:      indexation.TenancyID(r.TenancyID),
		OldRent:        decimal.NewFromFloat(r.OldRent),
		NewRent:        decimal.NewFromFloat(r.NewRent),
		Applied:        decimal.NewFromFloat(r.AppliedPercentage),
		EffectiveDate:  effective,
		Comment:        r.Comment,
		Verdict:        verdict,
		ReturnDocument: r.ReturnDocument,
	}
}

// ConfirmResponse reports per-step outcomes so partial failure is
// always distinguishable from full success.
type ConfirmResponse struct {
	LedgerID  string `json:"ledger_id"`
	Reference string `json:"reference"`

	Ledger            confirm.StepStatus `json:"ledger"`
	Letter            confirm.StepStatus `json:"letter"`
	Archive           confirm.StepStatus `json:"archive"`
	ERPRent           confirm.StepStatus `json:"erp_rent"`
	ERPAdjustmentDate confirm.StepStatus `json:"erp_adjustment_date"`

	DocumentName   string `json:"document_name,omitempty"`
	DocumentBase64 string `json:"document_base64,omitempty"`
}

func confirmResponse(result *confirm.Result) ConfirmResponse {
	resp := ConfirmResponse{
		LedgerID:          result.LedgerID,
		Reference:         result.Reference,
		Ledger:            result.Ledger,
		Letter:            result.Letter,
		Archive:           result.Archive,
		ERPRent:           result.ERPRent,
		ERPAdjustmentDate: result.ERPAdjustDate,
		DocumentName:      result.DocumentName,
	}
	if len(result.Document) > 0 {
		resp.DocumentBase64 = base64.StdEncoding.EncodeToString(result.Document)
	}
	return resp
}

// =============================================================================
// LEDGER HISTORY
// =============================================================================

// LedgerRowDTO is one confirmed indexation in history responses.
type LedgerRowDTO struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	TenancyID   int64  `json:"tenancy_id"`
	TenancyName string `json:"tenancy_name"`

	OldRent           float64 `json:"old_rent"`
	NewRent           float64 `json:"new_rent"`
	AppliedPercentage float64 `json:"applied_percentage"`
	EffectiveDate     string  `json:"effective_date"`

	PreviousKey   string   `json:"previous_key,omitempty"`
	CurrentKey    string   `json:"current_key,omitempty"`
	PreviousIndex *float64 `json:"previous_index,omitempty"`
	CurrentIndex  *float64 `json:"current_index,omitempty"`

	TriggerReason    string  `json:"trigger_reason,omitempty"`
	Threshold        float64 `json:"threshold"`
	WaitingMonths    int     `json:"waiting_months"`
	NextPossibleDate string  `json:"next_possible_date"`

	EndOfContractPassthrough bool   `json:"eoc_passthrough"`
	Comment                  string `json:"comment,omitempty"`

	FundLabel     string `json:"fund,omitempty"`
	EntityLabel   string `json:"entity,omitempty"`
	PropertyLabel string `json:"property,omitempty"`
	TenantLabel   string `json:"tenant,omitempty"`

	CreatedAt string `json:"created_at"`
}

func ledgerRowDTO(row indexation.ConfirmedIndexation) LedgerRowDTO {
	dto := LedgerRowDTO{
		ID:               row.ID,
		Reference:        row.Reference,
		TenancyID:        int64(row.TenancyID),
		TenancyName:      row.TenancyName,
		EffectiveDate:    row.EffectiveDate.Format("2006-01-02"),
		PreviousKey:      row.PreviousKey,
		CurrentKey:       row.CurrentKey,
		PreviousIndex:    decimalPtr(row.PreviousIndex),
		CurrentIndex:     decimalPtr(row.CurrentIndex),
		TriggerReason:    row.TriggerReason,
		WaitingMonths:    row.WaitingMonths,
		NextPossibleDate: row.NextPossibleDate.Format("2006-01-02"),

		EndOfContractPassthrough: row.EndOfContractPassthrough,
		Comment:                  row.Comment,
		FundLabel:                row.FundLabel,
		EntityLabel:              row.EntityLabel,
		PropertyLabel:            row.PropertyLabel,
		TenantLabel:              row.TenantLabel,
		CreatedAt:                row.CreatedAt.Format(time.RFC3339),
	}
	dto.OldRent, _ = row.OldRent.Float64()
	dto.NewRent, _ = row.NewRent.Float64()
	dto.AppliedPercentage, _ = row.Applied.Float64()
	dto.Threshold, _ = row.Threshold.Float64()
	return dto
}

// =============================================================================
// SHARED
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func decimalPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

func floatPtrDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
