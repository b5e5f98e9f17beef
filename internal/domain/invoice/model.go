package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/types"
)

// Invoice represents the invoice domain model. A single DynamoDB record
// backs every instance; the storage projection with its index keys lives at
// the repository boundary.
type Invoice struct {
	ID              string              `json:"id"`
	InvoiceNumber   string              `json:"invoiceNumber"`
	ClientName      string              `json:"clientName"`
	ClientEmail     string              `json:"clientEmail"`
	ClientAddress   *string             `json:"clientAddress,omitempty"`
	ClientDetails   *string             `json:"clientDetails,omitempty"`
	CustomerDetails *string             `json:"customerDetails,omitempty"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	IssueDate       time.Time           `json:"issueDate"`
	DueDate         time.Time           `json:"dueDate"`
	Status          types.InvoiceStatus `json:"status"`
	Description     *string             `json:"description,omitempty"`
	Items           []LineItem          `json:"items,omitempty"`
	Notes           *string             `json:"notes,omitempty"`
	TaxRate         *decimal.Decimal    `json:"taxRate,omitempty"`
	TaxAmount       *decimal.Decimal    `json:"taxAmount,omitempty"`
	Discount        *decimal.Decimal    `json:"discount,omitempty"`
	DiscountAmount  *decimal.Decimal    `json:"discountAmount,omitempty"`
	Shipping        *decimal.Decimal    `json:"shipping,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Total           decimal.Decimal     `json:"total"`
	AmountPaid      decimal.Decimal     `json:"amountPaid"`
	BalanceDue      *decimal.Decimal    `json:"balanceDue,omitempty"`
	CreatedAt       time.Time           `json:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// LineItem is a single row of an invoice. Line items live inside the invoice
// record as a serialized block and have no identity of their own.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

func (li LineItem) Validate() error {
	if li.Description == "" {
		return ierr.NewError("invalid line item").
			WithHint("Line item description is required").
			Mark(ierr.ErrValidation)
	}
	if !li.Quantity.IsPositive() {
		return ierr.NewError("invalid line item").
			WithHint("Line item quantity must be positive").
			Mark(ierr.ErrValidation)
	}
	if li.UnitPrice.IsNegative() {
		return ierr.NewError("invalid line item").
			WithHint("Line item unit price must be non negative").
			Mark(ierr.ErrValidation)
	}
	if li.Amount.IsNegative() {
		return ierr.NewError("invalid line item").
			WithHint("Line item amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (i *Invoice) Validate() error {
	if i.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Amount must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.Subtotal.IsNegative() {
		return ierr.NewError("invalid subtotal").
			WithHint("Subtotal must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.Total.IsNegative() {
		return ierr.NewError("invalid total").
			WithHint("Total must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.AmountPaid.IsNegative() {
		return ierr.NewError("invalid amount paid").
			WithHint("Amount paid must be non negative").
			Mark(ierr.ErrValidation)
	}
	if i.Status != "" {
		if err := i.Status.Validate(); err != nil {
			return err
		}
	}
	if i.Currency != "" {
		if err := types.ValidateCurrency(i.Currency); err != nil {
			return err
		}
	}
	for _, item := range i.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}
