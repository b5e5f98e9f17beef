package pdf

import (
	"bytes"
	"compress/zlib"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duemate/duemate/internal/domain/invoice"
	"github.com/duemate/duemate/internal/logger"
	"github.com/duemate/duemate/internal/types"
)

func testInvoice() *invoice.Invoice {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	return &invoice.Invoice{
		ID:            "inv_01HX5ZZKBKACTAV9WEVGEMMVR1",
		InvoiceNumber: "INV-2026-00042",
		ClientName:    "Acme Pty Ltd",
		ClientEmail:   "billing@acme.example",
		Amount:        decimal.NewFromInt(110),
		Currency:      "AUD",
		IssueDate:     now,
		DueDate:       now.AddDate(0, 1, 0),
		Status:        types.InvoiceStatusSent,
		TaxRate:       lo.ToPtr(decimal.NewFromInt(10)),
		TaxAmount:     lo.ToPtr(decimal.NewFromInt(10)),
		Subtotal:      decimal.NewFromInt(100),
		Total:         decimal.NewFromInt(110),
		AmountPaid:    decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// pdfText inflates every content stream in the document so assertions can
// run against the drawn text.
func pdfText(t *testing.T, data []byte) string {
	t.Helper()

	var out bytes.Buffer
	for {
		i := bytes.Index(data, []byte("stream"))
		if i < 0 {
			break
		}
		data = bytes.TrimLeft(data[i+len("stream"):], "\r\n")
		j := bytes.Index(data, []byte("endstream"))
		if j < 0 {
			break
		}
		if r, err := zlib.NewReader(bytes.NewReader(data[:j])); err == nil {
			_, _ = io.Copy(&out, r)
			_ = r.Close()
		}
		data = data[j+len("endstream"):]
	}
	return out.String()
}

func TestRenderInvoicePdf(t *testing.T) {
	g := NewGenerator(logger.L)

	data, err := g.RenderInvoicePdf(context.Background(), testInvoice())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderInvoicePdfWithoutLineItems(t *testing.T) {
	g := NewGenerator(logger.L)

	inv := testInvoice()
	inv.Description = lo.ToPtr("March retainer")

	data, err := g.RenderInvoicePdf(context.Background(), inv)
	require.NoError(t, err)

	text := pdfText(t, data)
	assert.Contains(t, text, "No line items")
	// the grand total is the only place the invoice amount is drawn; the
	// table must not invent a billing row from it
	assert.Equal(t, 1, strings.Count(text, "A$110.00"))
}

func TestRenderInvoicePdfWithLineItems(t *testing.T) {
	g := NewGenerator(logger.L)

	inv := testInvoice()
	inv.Items = []invoice.LineItem{
		{Description: "Consulting", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(50), Amount: decimal.NewFromInt(100)},
		{Description: "Hosting", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25), Amount: decimal.NewFromInt(25)},
	}
	inv.Notes = lo.ToPtr("Payment due within 30 days")

	data, err := g.RenderInvoicePdf(context.Background(), inv)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestTotalsBlockTaxOnly(t *testing.T) {
	lines := totalsBlock(testInvoice())

	require.Len(t, lines, 3)

	assert.Equal(t, "Subtotal", lines[0].Label)
	assert.Equal(t, "A$100.00", lines[0].Value)

	assert.Equal(t, "Tax (10%)", lines[1].Label)
	assert.Equal(t, "A$10.00", lines[1].Value)

	assert.Equal(t, "TOTAL", lines[2].Label)
	assert.Equal(t, "AUD A$110.00", lines[2].Value)
	assert.True(t, lines[2].Emphasis)
}

func TestTotalsBlockAllSections(t *testing.T) {
	inv := testInvoice()
	inv.Discount = lo.ToPtr(decimal.NewFromInt(5))
	inv.DiscountAmount = lo.ToPtr(decimal.NewFromInt(5))
	inv.Shipping = lo.ToPtr(decimal.NewFromInt(15))
	inv.AmountPaid = decimal.NewFromInt(50)
	inv.BalanceDue = lo.ToPtr(decimal.NewFromInt(70))

	lines := totalsBlock(inv)
	require.Len(t, lines, 7)

	assert.Equal(t, "Subtotal", lines[0].Label)
	assert.Equal(t, "Discount (5%)", lines[1].Label)
	assert.Equal(t, "-A$5.00", lines[1].Value)
	assert.Equal(t, "Shipping", lines[2].Label)
	assert.Equal(t, "A$15.00", lines[2].Value)
	assert.Equal(t, "Tax (10%)", lines[3].Label)
	assert.Equal(t, "TOTAL", lines[4].Label)
	assert.Equal(t, "Amount Paid", lines[5].Label)
	assert.Equal(t, "-A$50.00", lines[5].Value)
	assert.Equal(t, "BALANCE DUE", lines[6].Label)
	assert.Equal(t, "AUD A$70.00", lines[6].Value)
	assert.True(t, lines[6].Emphasis)
}

func TestTotalsBlockDerivesAmountsFromRates(t *testing.T) {
	inv := testInvoice()
	inv.TaxAmount = nil
	inv.Discount = lo.ToPtr(decimal.NewFromInt(10))
	inv.DiscountAmount = nil

	lines := totalsBlock(inv)

	// subtotal 100, discount 10% -> 10, tax 10% -> 10
	assert.Equal(t, "-A$10.00", lines[1].Value)
	assert.Equal(t, "A$10.00", lines[2].Value)
}

func TestTotalsBlockSkipsZeroSections(t *testing.T) {
	inv := testInvoice()
	inv.TaxRate = nil
	inv.TaxAmount = nil
	inv.Discount = lo.ToPtr(decimal.Zero)
	inv.Shipping = lo.ToPtr(decimal.Zero)

	lines := totalsBlock(inv)
	require.Len(t, lines, 2)
	assert.Equal(t, "Subtotal", lines[0].Label)
	assert.Equal(t, "TOTAL", lines[1].Label)
}
