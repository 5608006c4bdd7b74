/*
errors.go - Centralized error types shared across the service

PURPOSE:
  Sentinel errors and structured error types in one place. The engine
  itself never returns errors (every degenerate input becomes a verdict
  Reason); these errors belong to the surrounding workflow, storage,
  and transport layers, which wrap them with call-site context.

ERROR CATEGORIES:
  1. Validation errors - Malformed confirmation input, rejected before
     any side effect is attempted
  2. Lookup errors     - Tenancy missing upstream
  3. Downstream errors - ERP RPC, ledger insert, archive upload

USAGE:
    if errors.Is(err, indexation.ErrTenancyNotFound) {
        // respond 404
    }
*/
package indexation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTenancyNotFound is returned when the referenced tenancy does not
	// exist in the ERP.
	ErrTenancyNotFound = errors.New("tenancy not found")

	// ErrValidation is the root of all confirmation input rejections.
	ErrValidation = errors.New("invalid confirmation input")

	// ErrLedgerInsert is returned when the confirmed indexation could not
	// be persisted. Fatal to a confirmation: nothing else is safe to do
	// without a ledger row.
	ErrLedgerInsert = errors.New("ledger insert failed")

	// ErrERPUnavailable is returned when the ERP gateway cannot be
	// reached or refuses authentication.
	ErrERPUnavailable = errors.New("erp unavailable")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// FieldError reports a single invalid or missing confirmation field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is the caller's fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsNotFound reports whether the error indicates a missing upstream record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTenancyNotFound)
}
