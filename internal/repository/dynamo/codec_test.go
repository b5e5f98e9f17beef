package dynamo

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duemate/duemate/internal/domain/invoice"
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/types"
)

func sampleInvoice() *invoice.Invoice {
	now := time.Date(2026, 3, 15, 10, 30, 0, 500*int(time.Millisecond), time.UTC)
	return &invoice.Invoice{
		ID:            "inv_01HX5ZZKBKACTAV9WEVGEMMVR1",
		InvoiceNumber: "INV-2026-00042",
		ClientName:    "Acme Pty Ltd",
		ClientEmail:   "billing@acme.example",
		ClientAddress: lo.ToPtr("1 Example St\nSydney NSW 2000"),
		Amount:        decimal.NewFromFloat(110.5),
		Currency:      "AUD",
		IssueDate:     now,
		DueDate:       now.AddDate(0, 1, 0),
		Status:        types.InvoiceStatusSent,
		Items: []invoice.LineItem{
			{
				Description: "Consulting",
				Quantity:    decimal.NewFromInt(2),
				UnitPrice:   decimal.NewFromFloat(50.25),
				Amount:      decimal.NewFromFloat(100.5),
			},
		},
		TaxRate:    lo.ToPtr(decimal.NewFromInt(10)),
		TaxAmount:  lo.ToPtr(decimal.NewFromFloat(10.05)),
		Subtotal:   decimal.NewFromFloat(100.5),
		Total:      decimal.NewFromFloat(110.55),
		AmountPaid: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestToItemIndexKeys(t *testing.T) {
	inv := sampleInvoice()

	item, err := toItem(inv)
	require.NoError(t, err)

	assert.Equal(t, "INVOICE#inv_01HX5ZZKBKACTAV9WEVGEMMVR1", item.PK)
	assert.Equal(t, item.PK, item.SK)
	assert.Equal(t, "INVOICE_NUMBER#INV-2026-00042", item.GSI1PK)
	assert.Equal(t, item.GSI1PK, item.GSI1SK)
	assert.Equal(t, "STATUS#sent", item.GSI2PK)
	assert.Equal(t, "2026-03-15T10:30:00.500Z", item.GSI2SK)
	assert.Equal(t, "CLIENT_EMAIL#billing@acme.example", item.GSI3PK)
	assert.Equal(t, item.GSI2SK, item.GSI3SK)
	assert.Equal(t, "INVOICE", item.EntityType)
}

func TestItemRoundTrip(t *testing.T) {
	inv := sampleInvoice()

	item, err := toItem(inv)
	require.NoError(t, err)

	got, err := fromItem(item)
	require.NoError(t, err)

	assert.Equal(t, inv.ID, got.ID)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
	assert.Equal(t, inv.ClientName, got.ClientName)
	assert.Equal(t, inv.ClientAddress, got.ClientAddress)
	assert.True(t, inv.Amount.Equal(got.Amount))
	assert.True(t, inv.Subtotal.Equal(got.Subtotal))
	assert.True(t, inv.Total.Equal(got.Total))
	assert.True(t, got.TaxRate.Equal(*inv.TaxRate))
	assert.Nil(t, got.Discount)
	assert.True(t, inv.IssueDate.Equal(got.IssueDate))
	assert.True(t, inv.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, inv.Status, got.Status)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "Consulting", got.Items[0].Description)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromFloat(50.25)))
}

func TestToItemOmitsEmptyItems(t *testing.T) {
	inv := sampleInvoice()
	inv.Items = nil

	item, err := toItem(inv)
	require.NoError(t, err)
	assert.Nil(t, item.Items)

	got, err := fromItem(item)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestFromItemMalformed(t *testing.T) {
	t.Run("missing_required_fields", func(t *testing.T) {
		item, err := toItem(sampleInvoice())
		require.NoError(t, err)
		item.InvoiceNumber = ""

		_, err = fromItem(item)
		assert.True(t, ierr.IsMalformedRecord(err))
	})

	t.Run("invalid_date", func(t *testing.T) {
		item, err := toItem(sampleInvoice())
		require.NoError(t, err)
		item.DueDate = "not-a-date"

		_, err = fromItem(item)
		assert.True(t, ierr.IsMalformedRecord(err))
	})

	t.Run("corrupt_items_blob", func(t *testing.T) {
		item, err := toItem(sampleInvoice())
		require.NoError(t, err)
		item.Items = lo.ToPtr("{broken")

		_, err = fromItem(item)
		assert.True(t, ierr.IsMalformedRecord(err))
	})
}

// The sort keys on the status and client email indexes are ISO strings, so
// their lexicographic order must match chronological order.
func TestTimeLayoutOrdering(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 12, 31, 23, 59, 59, 999*int(time.Millisecond), time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 5*int(time.Millisecond), time.UTC),
		time.Date(2026, 1, 1, 0, 0, 0, 50*int(time.Millisecond), time.UTC),
	}

	for i := 1; i < len(times); i++ {
		assert.Less(t, formatTime(times[i-1]), formatTime(times[i]))
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	_, err := parseTime("2026-01-01")
	assert.Error(t, err)
}
