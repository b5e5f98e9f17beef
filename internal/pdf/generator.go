package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/duemate/duemate/internal/domain/invoice"
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/logger"
	"github.com/duemate/duemate/internal/types"
)

// A4 portrait in points.
const (
	pageWidth  = 595.28
	pageHeight = 841.89

	marginLeft  = 50.0
	marginRight = 545.0

	fontFamily = "Helvetica"
	dateLayout = "Jan 2, 2006"
)

// Generator renders an invoice into a PDF document.
type Generator interface {
	RenderInvoicePdf(ctx context.Context, inv *invoice.Invoice) ([]byte, error)
}

type generator struct {
	logger *logger.Logger
}

func NewGenerator(logger *logger.Logger) Generator {
	return &generator{logger: logger}
}

func (g *generator) RenderInvoicePdf(ctx context.Context, inv *invoice.Invoice) ([]byte, error) {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetTitle("Invoice "+inv.InvoiceNumber, true)
	doc.SetAutoPageBreak(false, 0)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	g.addHeader(doc, tr, inv)
	g.addInvoiceDetails(doc, tr, inv)
	g.addClientDetails(doc, tr, inv)
	bottom := g.addLineItems(doc, tr, inv)
	g.addTotals(doc, tr, inv, bottom)
	g.addFooter(doc, tr, inv)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to render invoice PDF").
			WithReportableDetails(map[string]any{
				"invoice_number": inv.InvoiceNumber,
			}).
			Mark(ierr.ErrSystem)
	}

	g.logger.Debugw("rendered invoice pdf",
		"invoice_number", inv.InvoiceNumber,
		"bytes", buf.Len(),
	)
	return buf.Bytes(), nil
}

func (g *generator) addHeader(doc *fpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	doc.SetFont(fontFamily, "B", 28)
	doc.SetTextColor(33, 33, 33)
	doc.Text(marginLeft, 80, tr("INVOICE"))

	doc.SetFont(fontFamily, "", 12)
	doc.SetTextColor(100, 100, 100)
	doc.Text(marginLeft, 100, tr("# "+inv.InvoiceNumber))

	identity := []string{"DueMate Invoicing", "invoices@duemate.io"}
	if inv.CustomerDetails != nil && *inv.CustomerDetails != "" {
		identity = strings.Split(*inv.CustomerDetails, "\n")
	}
	doc.SetFont(fontFamily, "", 9)
	y := 60.0
	for _, line := range identity {
		w := doc.GetStringWidth(tr(line))
		doc.Text(marginRight-w, y, tr(line))
		y += 13
	}

	doc.SetDrawColor(220, 220, 220)
	doc.Line(marginLeft, 115, marginRight, 115)
}

func (g *generator) addInvoiceDetails(doc *fpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	rows := []struct {
		label string
		value string
	}{
		{"Issue Date:", inv.IssueDate.Format(dateLayout)},
		{"Due Date:", inv.DueDate.Format(dateLayout)},
		{"Status:", strings.ToUpper(inv.Status.String())},
	}

	y := 140.0
	for _, row := range rows {
		doc.SetFont(fontFamily, "B", 10)
		doc.SetTextColor(100, 100, 100)
		doc.Text(350, y, tr(row.label))
		doc.SetFont(fontFamily, "", 10)
		doc.SetTextColor(33, 33, 33)
		doc.Text(460, y, tr(row.value))
		y += 18
	}
}

func (g *generator) addClientDetails(doc *fpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	doc.SetFont(fontFamily, "B", 10)
	doc.SetTextColor(100, 100, 100)
	doc.Text(marginLeft, 140, tr("BILL TO"))

	doc.SetFont(fontFamily, "B", 12)
	doc.SetTextColor(33, 33, 33)
	doc.Text(marginLeft, 158, tr(inv.ClientName))

	doc.SetFont(fontFamily, "", 10)
	y := 174.0
	doc.Text(marginLeft, y, tr(inv.ClientEmail))
	y += 15

	if inv.ClientAddress != nil {
		for _, line := range strings.Split(*inv.ClientAddress, "\n") {
			doc.Text(marginLeft, y, tr(line))
			y += 15
		}
	}
	if inv.ClientDetails != nil {
		for _, line := range strings.Split(*inv.ClientDetails, "\n") {
			doc.Text(marginLeft, y, tr(line))
			y += 15
		}
	}
}

// addLineItems draws the items table and returns the y position below it.
// An invoice without line items gets a single "No line items" row.
func (g *generator) addLineItems(doc *fpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) float64 {
	const (
		colDescription = marginLeft
		colQuantity    = 320.0
		colUnitPrice   = 390.0
		colAmount      = 480.0
		tableTop       = 280.0
	)

	doc.SetFont(fontFamily, "B", 10)
	doc.SetTextColor(100, 100, 100)
	doc.Text(colDescription, tableTop, tr("DESCRIPTION"))
	doc.Text(colQuantity, tableTop, tr("QTY"))
	doc.Text(colUnitPrice, tableTop, tr("UNIT PRICE"))
	doc.Text(colAmount, tableTop, tr("AMOUNT"))

	doc.SetDrawColor(220, 220, 220)
	doc.Line(marginLeft, tableTop+8, marginRight, tableTop+8)

	doc.SetFont(fontFamily, "", 10)
	doc.SetTextColor(33, 33, 33)

	y := tableTop + 26
	if len(inv.Items) == 0 {
		doc.Text(colDescription, y, tr("No line items"))
		y += 20
		doc.Line(marginLeft, y-8, marginRight, y-8)
		return y
	}

	for _, item := range inv.Items {
		doc.Text(colDescription, y, tr(truncate(item.Description, 55)))
		doc.Text(colQuantity, y, tr(item.Quantity.String()))
		doc.Text(colUnitPrice, y, tr(types.FormatAmount(item.UnitPrice, inv.Currency)))
		doc.Text(colAmount, y, tr(types.FormatAmount(item.Amount, inv.Currency)))
		y += 20
	}

	doc.Line(marginLeft, y-8, marginRight, y-8)
	return y
}

func (g *generator) addTotals(doc *fpdf.Fpdf, tr func(string) string, inv *invoice.Invoice, tableBottom float64) {
	const (
		labelX = 380.0
		valueX = marginRight
	)

	y := tableBottom + 20
	if y < 480 {
		y = 480
	}

	for _, line := range totalsBlock(inv) {
		style := ""
		if line.Emphasis {
			doc.SetDrawColor(120, 120, 120)
			doc.Line(labelX, y-12, marginRight, y-12)
			style = "B"
		}
		doc.SetFont(fontFamily, style, 10)
		doc.SetTextColor(33, 33, 33)
		doc.Text(labelX, y, tr(line.Label))
		doc.Text(valueX-doc.GetStringWidth(tr(line.Value)), y, tr(line.Value))
		y += 20
	}
}

func (g *generator) addFooter(doc *fpdf.Fpdf, tr func(string) string, inv *invoice.Invoice) {
	y := pageHeight - 80
	if inv.Notes != nil && *inv.Notes != "" {
		doc.SetFont(fontFamily, "B", 9)
		doc.SetTextColor(100, 100, 100)
		doc.Text(marginLeft, y-30, tr("NOTES"))
		doc.SetFont(fontFamily, "", 9)
		doc.Text(marginLeft, y-16, tr(truncate(*inv.Notes, 110)))
	}
	if inv.Description != nil && *inv.Description != "" {
		doc.SetFont(fontFamily, "", 9)
		doc.SetTextColor(100, 100, 100)
		doc.Text(marginLeft, y-46, tr(truncate(*inv.Description, 110)))
	}

	doc.SetFont(fontFamily, "I", 10)
	doc.SetTextColor(100, 100, 100)
	msg := tr("Thank you for your business!")
	doc.Text((pageWidth-doc.GetStringWidth(msg))/2, y, msg)

	doc.SetFont(fontFamily, "", 8)
	generated := tr(fmt.Sprintf("Generated on %s", time.Now().UTC().Format(dateLayout)))
	doc.Text((pageWidth-doc.GetStringWidth(generated))/2, y+14, generated)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
