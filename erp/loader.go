/*
loader.go - Tenancy normalization boundary

PURPOSE:
  Reads tenancy, rent line, and partner records from the ERP and
  normalizes them into the engine's strict Tenancy type. This file is
  the only place that knows the ERP's field names; the engine never
  sees a raw record.

WRITE-BACK:
  Confirmed indexations write two independent fields back: the amount
  on the tenancy's most recent rent line, and the tenancy's adjustment
  date. The two writes are deliberately separate operations with
  separate failure reporting; there is no cross-system transaction.
*/
package erp

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arealis/rent-indexation/indexation"
)

// ERP record collections and the fields read from them.
const (
	ModelTenancy  = "property.tenancy"
	ModelRentLine = "property.rent.line"
	ModelPartner  = "res.partner"
)

var tenancyFields = []string{
	"name", "index_name", "lock_date", "adjustment_date",
	"waiting_time", "threshold", "passthrough", "cap",
	"current_rent", "indexing_rent",
	"fund_id", "company_id", "property_id", "partner_id",
	"rent_product_id", "service_charge", "service_charge_gross",
	"eoc_passthrough",
}

var partnerFields = []string{"name", "street", "street2", "zip", "city"}

// Loader loads and writes tenancy data through the RPC client.
type Loader struct {
	client *Client
}

func NewLoader(client *Client) *Loader {
	return &Loader{client: client}
}

// =============================================================================
// READS
// =============================================================================

// LoadTenancies returns all active tenancies, normalized. Partner
// addresses are resolved in one batched read.
func (l *Loader) LoadTenancies(ctx context.Context) ([]indexation.Tenancy, error) {
	records, err := l.client.SearchRead(ctx, ModelTenancy,
		[]any{[]any{"active", "=", true}}, tenancyFields)
	if err != nil {
		return nil, fmt.Errorf("load tenancies: %w", err)
	}

	partners, err := l.loadPartners(ctx, records)
	if err != nil {
		return nil, err
	}

	tenancies := make([]indexation.Tenancy, 0, len(records))
	for _, rec := range records {
		tenancies = append(tenancies, normalize(rec, partners))
	}
	return tenancies, nil
}

// GetTenancy returns one normalized tenancy, or ErrTenancyNotFound.
func (l *Loader) GetTenancy(ctx context.Context, id indexation.TenancyID) (*indexation.Tenancy, error) {
	// search_read instead of read: a missing id yields an empty result
	// set rather than an RPC fault.
	records, err := l.client.SearchRead(ctx, ModelTenancy,
		[]any{[]any{"id", "=", int64(id)}}, tenancyFields)
	if err != nil {
		return nil, fmt.Errorf("read tenancy %d: %w", id, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tenancy %d: %w", id, indexation.ErrTenancyNotFound)
	}

	partners, err := l.loadPartners(ctx, records)
	if err != nil {
		return nil, err
	}
	t := normalize(records[0], partners)
	return &t, nil
}

func (l *Loader) loadPartners(ctx context.Context, records []Record) (map[int64]Record, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, rec := range records {
		if id, _ := rec.Many2One("partner_id"); id != 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	partners := make(map[int64]Record, len(ids))
	if len(ids) == 0 {
		return partners, nil
	}

	rows, err := l.client.Read(ctx, ModelPartner, ids, partnerFields)
	if err != nil {
		return nil, fmt.Errorf("read partners: %w", err)
	}
	for _, row := range rows {
		partners[row.ID()] = row
	}
	return partners, nil
}

// normalize is the coercion boundary: every optional ERP field becomes
// an explicit pointer or a defaulted decimal here, never downstream.
func normalize(rec Record, partners map[int64]Record) indexation.Tenancy {
	partnerID, partnerLabel := rec.Many2One("partner_id")

	t := indexation.Tenancy{
		ID:                indexation.TenancyID(rec.ID()),
		Name:              rec.Str("name"),
		IndexLabel:        rec.Str("index_name"),
		LockDate:          rec.Date("lock_date"),
		AdjustmentDate:    rec.Date("adjustment_date"),
		AdjustmentDateRaw: rec.Str("adjustment_date"),
		WaitingMonths:     int(rec.Int("waiting_time")),
		Threshold:         rec.Dec("threshold"),
		PassThrough:       rec.Ratio("passthrough"),
		Cap:               rec.Dec("cap"),
		CurrentRent:       rec.Dec("current_rent"),
		IndexingRent:      rec.Dec("indexing_rent"),

		FundLabel:     rec.Many2OneLabel("fund_id"),
		EntityLabel:   rec.Many2OneLabel("company_id"),
		PropertyLabel: rec.Many2OneLabel("property_id"),
		TenantLabel:   partnerLabel,

		RentProduct:              rec.Many2OneLabel("rent_product_id"),
		ServiceCharge:            rec.Dec("service_charge"),
		ServiceChargeGross:       rec.Bool("service_charge_gross"),
		EndOfContractPassthrough: rec.Bool("eoc_passthrough"),
	}

	// An empty pass-through clause means the full contractual index
	// move is applied. The zero value would silently disable every
	// indexation, which no lease intends.
	if t.PassThrough.IsZero() {
		t.PassThrough = decimal.NewFromInt(1)
	}

	if partner, ok := partners[partnerID]; ok {
		t.TenantLabel = partner.Str("name")
		t.TenantAddress = partnerAddress(partner)
	}
	return t
}

func partnerAddress(p Record) []string {
	var lines []string
	if s := p.Str("street"); s != "" {
		lines = append(lines, s)
	}
	if s := p.Str("street2"); s != "" {
		lines = append(lines, s)
	}
	city := p.Str("zip")
	if c := p.Str("city"); c != "" {
		if city != "" {
			city += " "
		}
		city += c
	}
	if city != "" {
		lines = append(lines, city)
	}
	return lines
}

// =============================================================================
// WRITE-BACK
// =============================================================================

// WriteRent overwrites the amount on the tenancy's most recent rent line.
func (l *Loader) WriteRent(ctx context.Context, id indexation.TenancyID, newRent decimal.Decimal) error {
	lineIDs, err := l.client.Search(ctx, ModelRentLine,
		[]any{[]any{"tenancy_id", "=", int64(id)}},
		map[string]any{"order": "date_start desc", "limit": 1})
	if err != nil {
		return fmt.Errorf("find rent line for tenancy %d: %w", id, err)
	}
	if len(lineIDs) == 0 {
		return fmt.Errorf("tenancy %d has no rent line", id)
	}

	amount, _ := newRent.Round(2).Float64()
	if err := l.client.Write(ctx, ModelRentLine, lineIDs[:1], map[string]any{"amount": amount}); err != nil {
		return fmt.Errorf("write rent on line %d: %w", lineIDs[0], err)
	}
	return nil
}

// WriteAdjustmentDate overwrites the tenancy's adjustment date.
func (l *Loader) WriteAdjustmentDate(ctx context.Context, id indexation.TenancyID, effective time.Time) error {
	err := l.client.Write(ctx, ModelTenancy, []int64{int64(id)},
		map[string]any{"adjustment_date": effective.Format("2006-01-02")})
	if err != nil {
		return fmt.Errorf("write adjustment date on tenancy %d: %w", id, err)
	}
	return nil
}
