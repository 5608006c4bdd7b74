package letter

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// GERMAN LOCALE FORMATTING
// =============================================================================

func TestEuro_DotThousandsCommaDecimals(t *testing.T) {
	assert.Equal(t, "4.850,00 €", Euro(dec("4850")))
	assert.Equal(t, "1.234.567,89 €", Euro(dec("1234567.89")))
	assert.Equal(t, "0,50 €", Euro(dec("0.5")))
	// Rounding to cents happens here, not in the engine.
	assert.Equal(t, "5.019,75 €", Euro(dec("5019.7525")))
}

func TestPercent_FractionIn_PercentOut(t *testing.T) {
	assert.Equal(t, "3,50 %", Percent(dec("0.035")))
	assert.Equal(t, "0,00 %", Percent(decimal.Zero))
	assert.Equal(t, "12,34 %", Percent(dec("0.12336")))
}

func TestIndex_OneDecimal(t *testing.T) {
	assert.Equal(t, "103,5", Index(dec("103.5")))
	assert.Equal(t, "100,0", Index(dec("100")))
}

func TestDates(t *testing.T) {
	first := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "01.02.2024", Date(first))
	assert.Equal(t, "1. Februar 2024", DateLong(first))
	assert.Equal(t, "15. März 2023", DateLong(time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC)))
}

// =============================================================================
// RENDERING
// =============================================================================

func testParams() Params {
	return Params{
		IndexationID:     "IDX-2024-0041",
		LetterDate:       time.Date(2024, time.February, 5, 0, 0, 0, 0, time.UTC),
		TenantName:       "Muster Handels GmbH",
		TenantAddress:    []string{"Hauptstraße 1", "60311 Frankfurt am Main"},
		PropertyLabel:    "Frankfurt, Zeil 12",
		ContractLabel:    "MV-2020-041",
		OldRent:          dec("4850"),
		NewRent:          dec("5019.75"),
		Applied:          dec("0.035"),
		EffectiveDate:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		PreviousIndexKey: "01/2023",
		CurrentIndexKey:  "01/2024",
		PreviousIndex:    dec("100"),
		CurrentIndex:     dec("103.5"),
	}
}

func TestRender_ProducesValidPDF(t *testing.T) {
	renderer := NewRenderer(nil)

	out, err := renderer.Render(testParams())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "output should be a PDF")
	assert.Greater(t, len(out), 1000)
}

func TestRender_GrossVariantsDiffer(t *testing.T) {
	renderer := NewRenderer(nil)

	p := testParams()
	net, err := renderer.Render(p)
	require.NoError(t, err)

	p.RentGross = true
	p.ServiceCharge = dec("620")
	p.ServiceChargeGross = true
	gross, err := renderer.Render(p)
	require.NoError(t, err)

	// The gross letter carries extra VAT breakdown lines.
	assert.NotEqual(t, net, gross)
	assert.Greater(t, len(gross), len(net))
}
