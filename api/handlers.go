/*
handlers.go - HTTP handlers for the indexation service

PURPOSE:
  Exposes eligibility evaluation, confirmation, ledger history, and the
  index table via REST. Handlers parse HTTP, delegate to the engine and
  the confirmation workflow, and serialize responses; no business logic
  lives here.

ENDPOINTS:
  GET  /api/health
  GET  /api/indexation/eligibility      Evaluate all tenancies
  POST /api/indexation/confirm          Confirm an indexation
  GET  /api/indexation/history          All confirmed indexations
  GET  /api/indexation/history/{id}     One confirmed indexation
  GET  /api/indexation/history/{id}/letter  Archived notice PDF
  GET  /api/index/months                Monthly VPI readings
  GET  /api/index/years                 Yearly VPI averages

ERROR HANDLING:
  - 400: Malformed body, invalid confirmation fields
  - 404: Unknown tenancy / ledger row / letter
  - 502: ERP unreachable
  - 500: Everything else
  Confirmation responses report per-step statuses even on partial
  failure; only "nothing was persisted" surfaces as an error status.
*/
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arealis/rent-indexation/confirm"
	"github.com/arealis/rent-indexation/indexation"
)

// TenancySource loads the evaluation batch. Implemented by erp.Loader.
type TenancySource interface {
	LoadTenancies(ctx context.Context) ([]indexation.Tenancy, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Tenancies TenancySource
	Workflow  *confirm.Workflow
	Ledger    indexation.Ledger
	Archive   indexation.DocumentArchive
	Table     *indexation.IndexTable

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

// Eligibility evaluates every tenancy against the requested reference
// keys. Verdicts are recomputed per call, never cached or persisted.
// GET /api/indexation/eligibility?reference_month=MM/YYYY&reference_year=YYYY
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	refMonth := r.URL.Query().Get("reference_month")
	refYear := r.URL.Query().Get("reference_year")
	defMonth, defYear := indexation.DefaultReferenceKeys(now)
	if refMonth == "" {
		refMonth = defMonth
	} else if _, ok := indexation.ParseToMonthKey(refMonth); !ok {
		writeError(w, http.StatusBadRequest, "Invalid reference_month (use MM/YYYY)", nil)
		return
	}
	if refYear == "" {
		refYear = defYear
	} else if _, ok := indexation.ParseToYearKey(refYear); !ok {
		writeError(w, http.StatusBadRequest, "Invalid reference_year (use YYYY)", nil)
		return
	}

	tenancies, err := h.Tenancies.LoadTenancies(r.Context())
	if err != nil {
		writeError(w, upstreamStatus(err), "Failed to load tenancies", err)
		return
	}

	resp := EligibilityResponse{
		ReferenceMonth: refMonth,
		ReferenceYear:  refYear,
		Verdicts:       make([]VerdictDTO, 0, len(tenancies)),
	}
	for _, t := range tenancies {
		v := indexation.Evaluate(t, h.Table, refMonth, refYear, now)
		resp.Verdicts = append(resp.Verdicts, verdictDTO(v, t))
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// CONFIRMATION
// =============================================================================

// Confirm runs the confirmation workflow.
// POST /api/indexation/confirm
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.EffectiveDate == "" {
		writeError(w, http.StatusBadRequest, "effective_date is required", nil)
		return
	}
	effective, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid effective_date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.Workflow.Run(r.Context(), req.toDomain(effective))
	if err != nil {
		switch {
		case indexation.IsClientError(err):
			writeError(w, http.StatusBadRequest, "Invalid confirmation", err)
		case indexation.IsNotFound(err):
			writeError(w, http.StatusNotFound, "Tenancy not found", err)
		case errors.Is(err, indexation.ErrERPUnavailable):
			writeError(w, http.StatusBadGateway, "ERP unavailable", err)
		default:
			writeError(w, http.StatusInternalServerError, "Confirmation failed, nothing was saved", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, confirmResponse(result))
}

// =============================================================================
// LEDGER HISTORY
// =============================================================================

// History lists all confirmed indexations, newest first.
// GET /api/indexation/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Ledger.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list indexations", err)
		return
	}

	dtos := make([]LedgerRowDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, ledgerRowDTO(row))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// HistoryRow returns one confirmed indexation.
// GET /api/indexation/history/{id}
func (h *Handler) HistoryRow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	row, err := h.Ledger.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get indexation", err)
		return
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "Indexation not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ledgerRowDTO(*row))
}

// Letter serves the archived notice PDF for a ledger row.
// GET /api/indexation/history/{id}/letter
func (h *Handler) Letter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	filename, content, err := h.Archive.Fetch(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "No letter archived for this indexation", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to fetch letter", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}

// =============================================================================
// INDEX TABLE VIEWS
// =============================================================================

// IndexMonths lists the monthly VPI readings.
// GET /api/index/months
func (h *Handler) IndexMonths(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Table.MonthEntries())
}

// IndexYears lists the yearly VPI averages.
// GET /api/index/years
func (h *Handler) IndexYears(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Table.YearEntries())
}

// =============================================================================
// HELPERS
// =============================================================================

func upstreamStatus(err error) int {
	if errors.Is(err, indexation.ErrERPUnavailable) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
