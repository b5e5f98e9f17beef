package dynamo

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/duemate/duemate/internal/domain/invoice"
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/types"
)

const (
	entityTypeInvoice = "INVOICE"

	pkPrefix            = "INVOICE#"
	invoiceNumberPrefix = "INVOICE_NUMBER#"
	statusPrefix        = "STATUS#"
	clientEmailPrefix   = "CLIENT_EMAIL#"

	gsiInvoiceNumber = "GSI1"
	gsiStatus        = "GSI2"
	gsiClientEmail   = "GSI3"

	// Fixed-width millisecond layout so the ISO strings used as index sort
	// keys order lexicographically by instant.
	timeLayout = "2006-01-02T15:04:05.000Z07:00"
)

// storageItem is the flat DynamoDB projection of an invoice: dates as ISO
// strings, line items as a JSON blob, and every index key precomputed. All
// key construction lives here so the accepted index staleness on partial
// updates stays a single auditable code path.
type storageItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GSI1PK string `dynamodbav:"GSI1PK"`
	GSI1SK string `dynamodbav:"GSI1SK"`
	GSI2PK string `dynamodbav:"GSI2PK"`
	GSI2SK string `dynamodbav:"GSI2SK"`
	GSI3PK string `dynamodbav:"GSI3PK"`
	GSI3SK string `dynamodbav:"GSI3SK"`

	ID              string   `dynamodbav:"id"`
	InvoiceNumber   string   `dynamodbav:"invoiceNumber"`
	ClientName      string   `dynamodbav:"clientName"`
	ClientEmail     string   `dynamodbav:"clientEmail"`
	ClientAddress   *string  `dynamodbav:"clientAddress,omitempty"`
	ClientDetails   *string  `dynamodbav:"clientDetails,omitempty"`
	CustomerDetails *string  `dynamodbav:"customerDetails,omitempty"`
	Amount          float64  `dynamodbav:"amount"`
	Currency        string   `dynamodbav:"currency"`
	IssueDate       string   `dynamodbav:"issueDate"`
	DueDate         string   `dynamodbav:"dueDate"`
	Status          string   `dynamodbav:"status"`
	Description     *string  `dynamodbav:"description,omitempty"`
	Items           *string  `dynamodbav:"items,omitempty"`
	Notes           *string  `dynamodbav:"notes,omitempty"`
	TaxRate         *float64 `dynamodbav:"taxRate,omitempty"`
	TaxAmount       *float64 `dynamodbav:"taxAmount,omitempty"`
	Discount        *float64 `dynamodbav:"discount,omitempty"`
	DiscountAmount  *float64 `dynamodbav:"discountAmount,omitempty"`
	Shipping        *float64 `dynamodbav:"shipping,omitempty"`
	Subtotal        float64  `dynamodbav:"subtotal"`
	Total           float64  `dynamodbav:"total"`
	AmountPaid      float64  `dynamodbav:"amountPaid"`
	BalanceDue      *float64 `dynamodbav:"balanceDue,omitempty"`
	CreatedAt       string   `dynamodbav:"createdAt"`
	UpdatedAt       string   `dynamodbav:"updatedAt"`
	EntityType      string   `dynamodbav:"entityType"`
}

func invoicePK(id string) string {
	return pkPrefix + id
}

func invoiceNumberKey(number string) string {
	return invoiceNumberPrefix + number
}

func statusKey(status types.InvoiceStatus) string {
	return statusPrefix + status.String()
}

func clientEmailKey(email string) string {
	return clientEmailPrefix + email
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// toItem produces the storage projection, recomputing every index key from
// the fields present on the invoice.
func toItem(inv *invoice.Invoice) (*storageItem, error) {
	item := &storageItem{
		PK:              invoicePK(inv.ID),
		SK:              invoicePK(inv.ID),
		GSI1PK:          invoiceNumberKey(inv.InvoiceNumber),
		GSI1SK:          invoiceNumberKey(inv.InvoiceNumber),
		GSI2PK:          statusKey(inv.Status),
		GSI2SK:          formatTime(inv.CreatedAt),
		GSI3PK:          clientEmailKey(inv.ClientEmail),
		GSI3SK:          formatTime(inv.CreatedAt),
		ID:              inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		ClientName:      inv.ClientName,
		ClientEmail:     inv.ClientEmail,
		ClientAddress:   inv.ClientAddress,
		ClientDetails:   inv.ClientDetails,
		CustomerDetails: inv.CustomerDetails,
		Amount:          inv.Amount.InexactFloat64(),
		Currency:        inv.Currency,
		IssueDate:       formatTime(inv.IssueDate),
		DueDate:         formatTime(inv.DueDate),
		Status:          inv.Status.String(),
		Description:     inv.Description,
		Notes:           inv.Notes,
		TaxRate:         decimalToFloat(inv.TaxRate),
		TaxAmount:       decimalToFloat(inv.TaxAmount),
		Discount:        decimalToFloat(inv.Discount),
		DiscountAmount:  decimalToFloat(inv.DiscountAmount),
		Shipping:        decimalToFloat(inv.Shipping),
		Subtotal:        inv.Subtotal.InexactFloat64(),
		Total:           inv.Total.InexactFloat64(),
		AmountPaid:      inv.AmountPaid.InexactFloat64(),
		BalanceDue:      decimalToFloat(inv.BalanceDue),
		CreatedAt:       formatTime(inv.CreatedAt),
		UpdatedAt:       formatTime(inv.UpdatedAt),
		EntityType:      entityTypeInvoice,
	}

	// An empty items list is omitted entirely, never written as an empty
	// placeholder: the store's query operators treat absent and null
	// attributes differently.
	if len(inv.Items) > 0 {
		blob, err := marshalItems(inv.Items)
		if err != nil {
			return nil, err
		}
		item.Items = &blob
	}

	return item, nil
}

// fromItem is the inverse of toItem. A record missing required fields or
// carrying an undecodable items blob is unrecoverable.
func fromItem(item *storageItem) (*invoice.Invoice, error) {
	if item.ID == "" || item.InvoiceNumber == "" || item.CreatedAt == "" || item.UpdatedAt == "" {
		return nil, ierr.NewError("stored invoice record is missing required fields").
			WithHint("Stored invoice record is corrupted").
			WithReportableDetails(map[string]any{
				"id": item.ID,
			}).
			Mark(ierr.ErrMalformedRecord)
	}

	issueDate, err := parseTime(item.IssueDate)
	if err != nil {
		return nil, malformedDate(item.ID, "issueDate", err)
	}
	dueDate, err := parseTime(item.DueDate)
	if err != nil {
		return nil, malformedDate(item.ID, "dueDate", err)
	}
	createdAt, err := parseTime(item.CreatedAt)
	if err != nil {
		return nil, malformedDate(item.ID, "createdAt", err)
	}
	updatedAt, err := parseTime(item.UpdatedAt)
	if err != nil {
		return nil, malformedDate(item.ID, "updatedAt", err)
	}

	var items []invoice.LineItem
	if item.Items != nil {
		items, err = unmarshalItems(*item.Items)
		if err != nil {
			return nil, err
		}
	}

	return &invoice.Invoice{
		ID:              item.ID,
		InvoiceNumber:   item.InvoiceNumber,
		ClientName:      item.ClientName,
		ClientEmail:     item.ClientEmail,
		ClientAddress:   item.ClientAddress,
		ClientDetails:   item.ClientDetails,
		CustomerDetails: item.CustomerDetails,
		Amount:          decimal.NewFromFloat(item.Amount),
		Currency:        item.Currency,
		IssueDate:       issueDate,
		DueDate:         dueDate,
		Status:          types.InvoiceStatus(item.Status),
		Description:     item.Description,
		Items:           items,
		Notes:           item.Notes,
		TaxRate:         floatToDecimal(item.TaxRate),
		TaxAmount:       floatToDecimal(item.TaxAmount),
		Discount:        floatToDecimal(item.Discount),
		DiscountAmount:  floatToDecimal(item.DiscountAmount),
		Shipping:        floatToDecimal(item.Shipping),
		Subtotal:        decimal.NewFromFloat(item.Subtotal),
		Total:           decimal.NewFromFloat(item.Total),
		AmountPaid:      decimal.NewFromFloat(item.AmountPaid),
		BalanceDue:      floatToDecimal(item.BalanceDue),
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

func marshalItems(items []invoice.LineItem) (string, error) {
	blob, err := json.Marshal(items)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to serialize invoice line items").
			Mark(ierr.ErrSystem)
	}
	return string(blob), nil
}

func unmarshalItems(blob string) ([]invoice.LineItem, error) {
	var items []invoice.LineItem
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Stored invoice line items are corrupted").
			Mark(ierr.ErrMalformedRecord)
	}
	return items, nil
}

func malformedDate(id, field string, err error) error {
	return ierr.WithError(err).
		WithHintf("Stored invoice record has an invalid %s", field).
		WithReportableDetails(map[string]any{
			"id":    id,
			"field": field,
		}).
		Mark(ierr.ErrMalformedRecord)
}

func decimalToFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func floatToDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
