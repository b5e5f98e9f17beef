package pdf

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/duemate/duemate/internal/domain/invoice"
	"github.com/duemate/duemate/internal/types"
)

// totalsLine is one row of the totals block. Emphasis marks the grand total
// style rows.
type totalsLine struct {
	Label    string
	Value    string
	Emphasis bool
}

// totalsBlock computes the rows of the totals section. Stored amounts win
// over derived ones: a tax or discount amount on the invoice is printed as
// is, and only derived from the rate when absent.
func totalsBlock(inv *invoice.Invoice) []totalsLine {
	cur := inv.Currency

	lines := []totalsLine{
		{Label: "Subtotal", Value: types.FormatAmount(inv.Subtotal, cur)},
	}

	if inv.Discount != nil && inv.Discount.IsPositive() {
		amount := derivedAmount(inv.DiscountAmount, inv.Subtotal, *inv.Discount)
		lines = append(lines, totalsLine{
			Label: fmt.Sprintf("Discount (%s%%)", inv.Discount.String()),
			Value: "-" + types.FormatAmount(amount, cur),
		})
	}

	if inv.Shipping != nil && inv.Shipping.IsPositive() {
		lines = append(lines, totalsLine{
			Label: "Shipping",
			Value: types.FormatAmount(*inv.Shipping, cur),
		})
	}

	if inv.TaxRate != nil && inv.TaxRate.IsPositive() {
		amount := derivedAmount(inv.TaxAmount, inv.Subtotal, *inv.TaxRate)
		lines = append(lines, totalsLine{
			Label: fmt.Sprintf("Tax (%s%%)", inv.TaxRate.String()),
			Value: types.FormatAmount(amount, cur),
		})
	}

	lines = append(lines, totalsLine{
		Label:    "TOTAL",
		Value:    cur + " " + types.FormatAmount(inv.Total, cur),
		Emphasis: true,
	})

	if inv.AmountPaid.IsPositive() {
		lines = append(lines, totalsLine{
			Label: "Amount Paid",
			Value: "-" + types.FormatAmount(inv.AmountPaid, cur),
		})
	}

	if inv.BalanceDue != nil {
		lines = append(lines, totalsLine{
			Label:    "BALANCE DUE",
			Value:    cur + " " + types.FormatAmount(*inv.BalanceDue, cur),
			Emphasis: true,
		})
	}

	return lines
}

// derivedAmount prefers the stored amount, falling back to rate applied to
// the base.
func derivedAmount(stored *decimal.Decimal, base, rate decimal.Decimal) decimal.Decimal {
	if stored != nil {
		return *stored
	}
	return base.Mul(rate).Div(decimal.NewFromInt(100))
}
