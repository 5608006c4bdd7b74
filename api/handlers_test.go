package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arealis/rent-indexation/confirm"
	"github.com/arealis/rent-indexation/indexation"
	"github.com/arealis/rent-indexation/letter"
	"github.com/arealis/rent-indexation/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fakeSource struct {
	tenancies []indexation.Tenancy
}

func (f *fakeSource) LoadTenancies(context.Context) ([]indexation.Tenancy, error) {
	return f.tenancies, nil
}

func (f *fakeSource) GetTenancy(_ context.Context, id indexation.TenancyID) (*indexation.Tenancy, error) {
	for i := range f.tenancies {
		if f.tenancies[i].ID == id {
			return &f.tenancies[i], nil
		}
	}
	return nil, indexation.ErrTenancyNotFound
}

func (f *fakeSource) WriteRent(context.Context, indexation.TenancyID, decimal.Decimal) error {
	return nil
}

func (f *fakeSource) WriteAdjustmentDate(context.Context, indexation.TenancyID, time.Time) error {
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func eligibleTenancy() indexation.Tenancy {
	adjusted := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	return indexation.Tenancy{
		ID:             41,
		Name:           "MV-2020-041",
		IndexLabel:     "VPI",
		AdjustmentDate: &adjusted,
		WaitingMonths:  12,
		Threshold:      dec("0.015"),
		PassThrough:    dec("1"),
		CurrentRent:    dec("4850"),
		PropertyLabel:  "Frankfurt, Zeil 12",
		TenantLabel:    "Muster Handels GmbH",
	}
}

func newTestHandler(t *testing.T) (*Handler, *fakeSource) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source := &fakeSource{tenancies: []indexation.Tenancy{eligibleTenancy()}}
	h := &Handler{
		Tenancies: source,
		Workflow: &confirm.Workflow{
			Gateway:  source,
			Ledger:   store,
			Renderer: letter.NewRenderer(nil),
			Archive:  store,
		},
		Ledger:  store,
		Archive: store,
		Table:   indexation.DefaultTable(),
		Now: func() time.Time {
			return time.Date(2024, time.February, 5, 10, 0, 0, 0, time.UTC)
		},
	}
	return h, source
}

func doRequest(h *Handler, method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	NewRouter(h, AuthConfig{}).ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

func TestEligibility_DefaultReferenceKeysEchoed(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/indexation/eligibility", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EligibilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "01/2024", resp.ReferenceMonth) // month before "now"
	assert.Equal(t, "2023", resp.ReferenceYear)
	require.Len(t, resp.Verdicts, 1)

	v := resp.Verdicts[0]
	assert.Equal(t, int64(41), v.TenancyID)
	assert.Equal(t, "01/2023", v.PreviousKey)
	assert.True(t, v.EligibleNow)
	require.NotNil(t, v.AppliedPercentage)
	require.NotNil(t, v.SuggestedNewRent)
	assert.InDelta(t, 4850*(1+*v.AppliedPercentage), *v.SuggestedNewRent, 0.01)
}

func TestEligibility_ExplicitReferenceMonth(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/indexation/eligibility?reference_month=06/2023", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EligibilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "06/2023", resp.ReferenceMonth)
	require.Len(t, resp.Verdicts, 1)
	assert.Equal(t, "06/2023", resp.Verdicts[0].CurrentKey)
}

func TestEligibility_InvalidReferenceMonthRejected(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/indexation/eligibility?reference_month=wrong", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// CONFIRMATION
// =============================================================================

func confirmBody() ConfirmRequest {
	prev, curr := 100.0, 103.5
	return ConfirmRequest{
		TenancyID:         41,
		OldRent:           4850,
		NewRent:           5019.75,
		AppliedPercentage: 0.035,
		EffectiveDate:     "2024-03-01",
		Comment:           "Regelanpassung",
		Verdict: VerdictSnapshot{
			IndexKind:     "vpi",
			PreviousKey:   "01/2023",
			CurrentKey:    "01/2024",
			PreviousIndex: &prev,
			CurrentIndex:  &curr,
			EligibleNow:   true,
		},
	}
}

func TestConfirm_FullFlow(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/indexation/confirm", confirmBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ConfirmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.LedgerID)
	assert.Equal(t, "IDX-2024-0001", resp.Reference)
	assert.Equal(t, confirm.StepSucceeded, resp.Ledger.State)
	assert.Equal(t, confirm.StepSucceeded, resp.Letter.State)
	assert.Equal(t, confirm.StepSucceeded, resp.Archive.State)
	assert.Equal(t, confirm.StepSucceeded, resp.ERPRent.State)
	assert.Equal(t, confirm.StepSucceeded, resp.ERPAdjustmentDate.State)
	assert.Empty(t, resp.DocumentBase64)

	// The row is now in history...
	rec = doRequest(h, http.MethodGet, "/api/indexation/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []LedgerRowDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "IDX-2024-0001", rows[0].Reference)
	assert.Equal(t, "2025-03-01", rows[0].NextPossibleDate)

	// ...and its letter is retrievable.
	rec = doRequest(h, http.MethodGet, "/api/indexation/history/"+resp.LedgerID+"/letter", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

func TestConfirm_InlineDocumentWhenRequested(t *testing.T) {
	h, _ := newTestHandler(t)

	body := confirmBody()
	body.ReturnDocument = true
	rec := doRequest(h, http.MethodPost, "/api/indexation/confirm", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp ConfirmResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DocumentBase64)
	assert.Equal(t, "IDX-2024-0001.pdf", resp.DocumentName)
}

func TestConfirm_MissingEffectiveDate(t *testing.T) {
	h, _ := newTestHandler(t)

	body := confirmBody()
	body.EffectiveDate = ""
	rec := doRequest(h, http.MethodPost, "/api/indexation/confirm", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirm_BadEffectiveDateFormat(t *testing.T) {
	h, _ := newTestHandler(t)

	body := confirmBody()
	body.EffectiveDate = "01.03.2024"
	rec := doRequest(h, http.MethodPost, "/api/indexation/confirm", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirm_UnknownTenancy(t *testing.T) {
	h, _ := newTestHandler(t)

	body := confirmBody()
	body.TenancyID = 999
	rec := doRequest(h, http.MethodPost, "/api/indexation/confirm", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// HISTORY & INDEX VIEWS
// =============================================================================

func TestHistoryRow_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/indexation/history/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLetter_NotArchived(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/indexation/history/nope/letter", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndexMonths_SortedChronologically(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/api/index/months", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []indexation.IndexEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "01/2020", entries[0].Key)
}

// =============================================================================
// AUTH GATE
// =============================================================================

func TestBasicAuth_GateWhenConfigured(t *testing.T) {
	h, _ := newTestHandler(t)
	router := NewRouter(h, AuthConfig{User: "ops", Password: "geheim"})

	// API routes require credentials.
	req := httptest.NewRequest(http.MethodGet, "/api/indexation/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/indexation/history", nil)
	req.SetBasicAuth("ops", "geheim")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open for probes.
	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
