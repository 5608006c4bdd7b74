package erp

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// RAW FIELD COERCION
// =============================================================================

func TestRecord_AbsentFieldsArriveAsFalse(t *testing.T) {
	// Odoo serializes every empty field as JSON false, whatever its type.
	rec := Record{
		"name":            false,
		"adjustment_date": false,
		"threshold":       false,
		"waiting_time":    false,
		"partner_id":      false,
	}

	assert.Equal(t, "", rec.Str("name"))
	assert.Nil(t, rec.Date("adjustment_date"))
	assert.True(t, rec.Dec("threshold").IsZero())
	assert.Equal(t, int64(0), rec.Int("waiting_time"))
	id, label := rec.Many2One("partner_id")
	assert.Equal(t, int64(0), id)
	assert.Equal(t, "", label)
}

func TestRecord_Dec_BooleanFlagCoercion(t *testing.T) {
	// Flag-style ratio fields on legacy contracts: true -> 1, false -> 0.
	assert.True(t, Record{"passthrough": true}.Ratio("passthrough").Equal(decimal.NewFromInt(1)))
	assert.True(t, Record{"passthrough": false}.Ratio("passthrough").IsZero())
	assert.True(t, Record{"passthrough": 0.65}.Ratio("passthrough").Equal(decimal.NewFromFloat(0.65)))
}

func TestRecord_Date_AcceptsOdooLayouts(t *testing.T) {
	d := Record{"lock_date": "2024-03-31"}.Date("lock_date")
	require.NotNil(t, d)
	assert.Equal(t, "31/03/2024", d.Format("02/01/2006"))

	d = Record{"lock_date": "2024-03-31 14:22:01"}.Date("lock_date")
	require.NotNil(t, d)
	assert.Equal(t, 31, d.Day())

	assert.Nil(t, Record{"lock_date": "31.03.2024"}.Date("lock_date"))
}

func TestRecord_Many2One(t *testing.T) {
	rec := Record{"property_id": []any{float64(7), "Frankfurt, Zeil 12"}}
	id, label := rec.Many2One("property_id")
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "Frankfurt, Zeil 12", label)
	assert.Equal(t, "Frankfurt, Zeil 12", rec.Many2OneLabel("property_id"))
}

// =============================================================================
// TENANCY NORMALIZATION
// =============================================================================

func tenancyRecord() Record {
	return Record{
		"id":                   float64(41),
		"name":                 "MV-2020-041",
		"index_name":           "VPI automatisch",
		"lock_date":            false,
		"adjustment_date":      "2023-01-01",
		"waiting_time":         float64(12),
		"threshold":            0.02,
		"passthrough":          false,
		"cap":                  false,
		"current_rent":         4850.0,
		"indexing_rent":        4500.0,
		"fund_id":              []any{float64(1), "Fonds Alpha"},
		"company_id":           []any{float64(3), "Arealis Objekt GmbH"},
		"property_id":          []any{float64(7), "Frankfurt, Zeil 12"},
		"partner_id":           []any{float64(99), "Muster Handels GmbH"},
		"rent_product_id":      []any{float64(5), "Miete Gewerbe 19%"},
		"service_charge":       620.0,
		"service_charge_gross": true,
		"eoc_passthrough":      false,
	}
}

func TestNormalize_MapsAllFields(t *testing.T) {
	partners := map[int64]Record{
		99: {"id": float64(99), "name": "Muster Handels GmbH",
			"street": "Hauptstraße 1", "zip": "60311", "city": "Frankfurt am Main"},
	}

	tn := normalize(tenancyRecord(), partners)

	assert.Equal(t, int64(41), int64(tn.ID))
	assert.Equal(t, "MV-2020-041", tn.Name)
	assert.Equal(t, "VPI automatisch", tn.IndexLabel)
	assert.Nil(t, tn.LockDate)
	require.NotNil(t, tn.AdjustmentDate)
	assert.Equal(t, 12, tn.WaitingMonths)
	assert.True(t, tn.Threshold.Equal(decimal.NewFromFloat(0.02)))
	assert.True(t, tn.CurrentRent.Equal(decimal.NewFromFloat(4850)))
	assert.Equal(t, "Fonds Alpha", tn.FundLabel)
	assert.Equal(t, "Arealis Objekt GmbH", tn.EntityLabel)
	assert.Equal(t, "Frankfurt, Zeil 12", tn.PropertyLabel)
	assert.Equal(t, "Muster Handels GmbH", tn.TenantLabel)
	assert.Equal(t, []string{"Hauptstraße 1", "60311 Frankfurt am Main"}, tn.TenantAddress)
	assert.Equal(t, "Miete Gewerbe 19%", tn.RentProduct)
	assert.True(t, tn.ServiceChargeGross)
}

func TestNormalize_EmptyPassThroughDefaultsToFull(t *testing.T) {
	// An absent pass-through clause applies the full index move.
	tn := normalize(tenancyRecord(), nil)
	assert.True(t, tn.PassThrough.Equal(decimal.NewFromInt(1)))

	rec := tenancyRecord()
	rec["passthrough"] = 0.5
	tn = normalize(rec, nil)
	assert.True(t, tn.PassThrough.Equal(decimal.NewFromFloat(0.5)))
}

func TestNormalize_OldRentBasisPrefersCurrentRent(t *testing.T) {
	tn := normalize(tenancyRecord(), nil)
	assert.True(t, tn.OldRentBasis().Equal(decimal.NewFromFloat(4850)))

	rec := tenancyRecord()
	rec["current_rent"] = false
	tn = normalize(rec, nil)
	assert.True(t, tn.OldRentBasis().Equal(decimal.NewFromFloat(4500)))
}
