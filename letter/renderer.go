package letter

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LETTER PARAMETERS
// =============================================================================

// Params carries everything the notice letter prints. All values are
// final at this point: the renderer computes nothing, it only lays out.
type Params struct {
	// IndexationID is the human-readable identifier of the confirmed
	// indexation, printed as the letter's reference.
	IndexationID string

	LetterDate    time.Time
	TenantName    string
	TenantAddress []string
	PropertyLabel string
	ContractLabel string

	OldRent       decimal.Decimal
	NewRent       decimal.Decimal
	Applied       decimal.Decimal
	EffectiveDate time.Time

	// Index comparison block.
	PreviousIndexKey string
	CurrentIndexKey  string
	PreviousIndex    decimal.Decimal
	CurrentIndex     decimal.Decimal

	// RentGross: the rent product is the 19% commercial one, so the
	// total box shows net, VAT, and gross lines.
	RentGross bool

	// Service charges carry their own VAT flag, independent of rent.
	ServiceCharge      decimal.Decimal
	ServiceChargeGross bool
}

// Renderer produces the notice PDF. One renderer is shared by all
// confirmations; it holds only static layout configuration.
type Renderer struct {
	// SenderLines print top-left on page 1, matching the preprinted
	// letterhead's sender block.
	SenderLines []string
}

func NewRenderer(senderLines []string) *Renderer {
	if len(senderLines) == 0 {
		senderLines = []string{"Arealis Fondsverwaltung GmbH", "Bockenheimer Landstraße 24", "60323 Frankfurt am Main"}
	}
	return &Renderer{SenderLines: senderLines}
}

// Layout constants, millimeters on A4.
const (
	marginLeft   = 25.0
	marginRight  = 20.0
	marginTop    = 45.0 // body starts below the letterhead region
	headerHeight = 38.0
	lineHeight   = 5.5
)

var vatRate = decimal.NewFromFloat(0.19)

// =============================================================================
// RENDERING
// =============================================================================

// Render lays out the letter and returns the PDF bytes.
func (r *Renderer) Render(p Params) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("") // cp1252 covers German
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, 25)

	// Page 1 prints onto the preprinted letterhead; follow-up pages use
	// the same paper with the header region masked out.
	pdf.SetHeaderFuncMode(func() {
		if pdf.PageNo() == 1 {
			pdf.SetFont("Helvetica", "", 7)
			pdf.SetXY(marginLeft, 12)
			pdf.CellFormat(0, 3.2, tr(joinLines(r.SenderLines)), "", 1, "L", false, 0, "")
		} else {
			pdf.SetFillColor(255, 255, 255)
			pdf.Rect(0, 0, 210, headerHeight, "F")
		}
		pdf.SetY(marginTop)
	}, true)
	pdf.AddPage()

	// Address window.
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetXY(marginLeft, 50)
	pdf.MultiCell(85, lineHeight, tr(p.TenantName+"\n"+joinLines(p.TenantAddress)), "", "L", false)

	// Date and reference, right-aligned.
	pdf.SetXY(marginLeft, 78)
	pdf.CellFormat(0, lineHeight, tr("Frankfurt am Main, den "+Date(p.LetterDate)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr("Unser Zeichen: "+p.IndexationID), "", 1, "R", false, 0, "")

	// Subject.
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.MultiCell(0, lineHeight, tr(fmt.Sprintf(
		"Mietanpassung gemäß Wertsicherungsklausel – %s, %s", p.PropertyLabel, p.ContractLabel)),
		"", "L", false)
	pdf.Ln(3)

	// Body.
	pdf.SetFont("Helvetica", "", 11)
	r.paragraph(pdf, tr, fmt.Sprintf(
		"Sehr geehrte Damen und Herren,\n\n"+
			"gemäß der in Ihrem Mietvertrag vereinbarten Wertsicherungsklausel sind wir berechtigt, "+
			"die Miete entsprechend der Entwicklung des vom Statistischen Bundesamt veröffentlichten "+
			"Verbraucherpreisindex für Deutschland (VPI, Basis 2020 = 100) anzupassen. "+
			"Der Index hat sich seit der letzten Anpassung wie folgt entwickelt:"))
	pdf.Ln(2)

	r.indexTable(pdf, tr, p)
	pdf.Ln(4)

	r.paragraph(pdf, tr, fmt.Sprintf(
		"Hieraus ergibt sich eine Anpassung der monatlichen Miete um %s. "+
			"Die neue Miete gilt mit Wirkung zum %s.",
		Percent(p.Applied), DateLong(p.EffectiveDate)))
	pdf.Ln(2)

	r.rentBox(pdf, tr, p)
	pdf.Ln(6)

	if p.ServiceCharge.IsPositive() {
		charge := "Die monatliche Nebenkostenvorauszahlung bleibt unverändert bei " + Euro(serviceChargeShown(p)) + "."
		if p.ServiceChargeGross {
			charge = "Die monatliche Nebenkostenvorauszahlung bleibt unverändert bei " +
				Euro(serviceChargeShown(p)) + " (inkl. 19 % USt.)."
		}
		r.paragraph(pdf, tr, charge)
		pdf.Ln(2)
	}

	r.paragraph(pdf, tr,
		"Wir bitten Sie, Ihre Zahlungen bzw. einen bestehenden Dauerauftrag entsprechend anzupassen. "+
			"Für Rückfragen steht Ihnen unsere Objektverwaltung gerne zur Verfügung.")
	pdf.Ln(6)
	r.paragraph(pdf, tr, "Mit freundlichen Grüßen\n\n\nArealis Fondsverwaltung GmbH")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render letter %s: %w", p.IndexationID, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) paragraph(pdf *fpdf.Fpdf, tr func(string) string, text string) {
	pdf.MultiCell(0, lineHeight, tr(text), "", "J", false)
}

// indexTable prints the two-row index comparison block.
func (r *Renderer) indexTable(pdf *fpdf.Fpdf, tr func(string) string, p Params) {
	const (
		col1 = 70.0
		col2 = 45.0
		rowH = 7.0
	)
	delta := decimal.Zero
	if !p.PreviousIndex.IsZero() {
		delta = p.CurrentIndex.Div(p.PreviousIndex).Sub(decimal.NewFromInt(1))
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(col1, rowH, tr("Zeitraum"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(col2, rowH, tr("Indexstand"), "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(col1, rowH, tr("VPI "+p.PreviousIndexKey), "1", 0, "L", false, 0, "")
	pdf.CellFormat(col2, rowH, Index(p.PreviousIndex), "1", 1, "R", false, 0, "")
	pdf.CellFormat(col1, rowH, tr("VPI "+p.CurrentIndexKey), "1", 0, "L", false, 0, "")
	pdf.CellFormat(col2, rowH, Index(p.CurrentIndex), "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(col1, rowH, tr("Veränderung"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(col2, rowH, Percent(delta), "1", 1, "R", false, 0, "")
}

// rentBox prints the bordered old-rent/new-rent summary. For VAT-gross
// tenancies the new rent is broken down into net, VAT, and gross.
func (r *Renderer) rentBox(pdf *fpdf.Fpdf, tr func(string) string, p Params) {
	const (
		labelW = 95.0
		valueW = 45.0
		rowH   = 7.0
	)

	row := func(bold bool, label string, value string, border string) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, rowH, tr(label), border, 0, "L", false, 0, "")
		pdf.CellFormat(valueW, rowH, value, border, 1, "R", false, 0, "")
	}

	row(false, "Bisherige Miete monatlich", Euro(p.OldRent), "LTR")
	if p.RentGross {
		vat := p.NewRent.Mul(vatRate)
		row(false, "Neue Miete monatlich (netto)", Euro(p.NewRent), "LR")
		row(false, "zzgl. 19 % Umsatzsteuer", Euro(vat), "LR")
		row(true, "Neue Miete monatlich (brutto)", Euro(p.NewRent.Add(vat)), "LBR")
	} else {
		row(true, "Neue Miete monatlich", Euro(p.NewRent), "LBR")
	}
}

func serviceChargeShown(p Params) decimal.Decimal {
	if p.ServiceChargeGross {
		return p.ServiceCharge.Mul(decimal.NewFromInt(1).Add(vatRate))
	}
	return p.ServiceCharge
}

func joinLines(lines []string) string {
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
