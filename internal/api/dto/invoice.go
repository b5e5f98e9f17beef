package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/duemate/duemate/internal/domain/invoice"
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/types"
)

// CreateInvoiceRequest is the payload for creating an invoice. Monetary
// amounts are decimals; omitted totals are stored as zero, never derived.
type CreateInvoiceRequest struct {
	InvoiceNumber   string              `json:"invoiceNumber,omitempty"`
	ClientName      string              `json:"clientName" validate:"required,min=2,max=255"`
	ClientEmail     string              `json:"clientEmail" validate:"required,email"`
	ClientAddress   *string             `json:"clientAddress,omitempty" validate:"omitempty,max=1000"`
	ClientDetails   *string             `json:"clientDetails,omitempty" validate:"omitempty,max=2000"`
	CustomerDetails *string             `json:"customerDetails,omitempty" validate:"omitempty,max=2000"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency,omitempty"`
	IssueDate       *time.Time          `json:"issueDate,omitempty"`
	DueDate         time.Time           `json:"dueDate" validate:"required"`
	Status          types.InvoiceStatus `json:"status,omitempty"`
	Description     *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Items           []LineItemRequest   `json:"items,omitempty" validate:"omitempty,dive"`
	Notes           *string             `json:"notes,omitempty" validate:"omitempty,max=2000"`
	TaxRate         *decimal.Decimal    `json:"taxRate,omitempty"`
	TaxAmount       *decimal.Decimal    `json:"taxAmount,omitempty"`
	Discount        *decimal.Decimal    `json:"discount,omitempty"`
	DiscountAmount  *decimal.Decimal    `json:"discountAmount,omitempty"`
	Shipping        *decimal.Decimal    `json:"shipping,omitempty"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	Total           decimal.Decimal     `json:"total"`
	AmountPaid      decimal.Decimal     `json:"amountPaid"`
	BalanceDue      *decimal.Decimal    `json:"balanceDue,omitempty"`
}

// LineItemRequest is one line of an invoice payload.
type LineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Amount      decimal.Decimal `json:"amount"`
}

// Validate covers the constraints struct tags cannot express: decimal
// ranges and enum membership.
func (r *CreateInvoiceRequest) Validate() error {
	if err := validateAmounts(
		amountField{"amount", &r.Amount},
		amountField{"subtotal", &r.Subtotal},
		amountField{"total", &r.Total},
		amountField{"amountPaid", &r.AmountPaid},
		amountField{"taxAmount", r.TaxAmount},
		amountField{"discountAmount", r.DiscountAmount},
		amountField{"shipping", r.Shipping},
		amountField{"balanceDue", r.BalanceDue},
	); err != nil {
		return err
	}
	if err := validatePercentage("taxRate", r.TaxRate); err != nil {
		return err
	}
	if err := validatePercentage("discount", r.Discount); err != nil {
		return err
	}
	if r.Currency != "" {
		if err := types.ValidateCurrency(r.Currency); err != nil {
			return err
		}
	}
	if r.Status != "" {
		if err := r.Status.Validate(); err != nil {
			return err
		}
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *LineItemRequest) Validate() error {
	if !r.Quantity.IsPositive() {
		return ierr.NewError("invalid items.quantity").
			WithHint("items.quantity must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return validateAmounts(
		amountField{"items.unitPrice", &r.UnitPrice},
		amountField{"items.amount", &r.Amount},
	)
}

func (r *CreateInvoiceRequest) ToInvoice() *invoice.Invoice {
	inv := &invoice.Invoice{
		InvoiceNumber:   r.InvoiceNumber,
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
		ClientAddress:   r.ClientAddress,
		ClientDetails:   r.ClientDetails,
		CustomerDetails: r.CustomerDetails,
		Amount:          r.Amount,
		Currency:        r.Currency,
		DueDate:         r.DueDate,
		Status:          r.Status,
		Description:     r.Description,
		Notes:           r.Notes,
		TaxRate:         r.TaxRate,
		TaxAmount:       r.TaxAmount,
		Discount:        r.Discount,
		DiscountAmount:  r.DiscountAmount,
		Shipping:        r.Shipping,
		Subtotal:        r.Subtotal,
		Total:           r.Total,
		AmountPaid:      r.AmountPaid,
		BalanceDue:      r.BalanceDue,
	}
	if r.IssueDate != nil {
		inv.IssueDate = *r.IssueDate
	}
	for _, item := range r.Items {
		inv.Items = append(inv.Items, item.toLineItem())
	}
	return inv
}

func (r LineItemRequest) toLineItem() invoice.LineItem {
	return invoice.LineItem{
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		Amount:      r.Amount,
	}
}

// UpdateInvoiceRequest is a partial update. Absent fields keep their stored
// values; present fields are written as sent, including zero values.
type UpdateInvoiceRequest struct {
	ClientName      *string              `json:"clientName,omitempty" validate:"omitempty,min=2,max=255"`
	ClientEmail     *string              `json:"clientEmail,omitempty" validate:"omitempty,email"`
	ClientAddress   *string              `json:"clientAddress,omitempty" validate:"omitempty,max=1000"`
	ClientDetails   *string              `json:"clientDetails,omitempty" validate:"omitempty,max=2000"`
	CustomerDetails *string              `json:"customerDetails,omitempty" validate:"omitempty,max=2000"`
	Amount          *decimal.Decimal     `json:"amount,omitempty"`
	Currency        *string              `json:"currency,omitempty"`
	IssueDate       *time.Time           `json:"issueDate,omitempty"`
	DueDate         *time.Time           `json:"dueDate,omitempty"`
	Status          *types.InvoiceStatus `json:"status,omitempty"`
	Description     *string              `json:"description,omitempty" validate:"omitempty,max=2000"`
	Items           *[]LineItemRequest   `json:"items,omitempty" validate:"omitempty,dive"`
	Notes           *string              `json:"notes,omitempty" validate:"omitempty,max=2000"`
	TaxRate         *decimal.Decimal     `json:"taxRate,omitempty"`
	TaxAmount       *decimal.Decimal     `json:"taxAmount,omitempty"`
	Discount        *decimal.Decimal     `json:"discount,omitempty"`
	DiscountAmount  *decimal.Decimal     `json:"discountAmount,omitempty"`
	Shipping        *decimal.Decimal     `json:"shipping,omitempty"`
	Subtotal        *decimal.Decimal     `json:"subtotal,omitempty"`
	Total           *decimal.Decimal     `json:"total,omitempty"`
	AmountPaid      *decimal.Decimal     `json:"amountPaid,omitempty"`
	BalanceDue      *decimal.Decimal     `json:"balanceDue,omitempty"`
}

func (r *UpdateInvoiceRequest) Validate() error {
	if !r.hasUpdates() {
		return ierr.NewError("empty update").
			WithHint("At least one field must be provided").
			Mark(ierr.ErrValidation)
	}
	if err := validateAmounts(
		amountField{"amount", r.Amount},
		amountField{"subtotal", r.Subtotal},
		amountField{"total", r.Total},
		amountField{"amountPaid", r.AmountPaid},
		amountField{"taxAmount", r.TaxAmount},
		amountField{"discountAmount", r.DiscountAmount},
		amountField{"shipping", r.Shipping},
		amountField{"balanceDue", r.BalanceDue},
	); err != nil {
		return err
	}
	if err := validatePercentage("taxRate", r.TaxRate); err != nil {
		return err
	}
	if err := validatePercentage("discount", r.Discount); err != nil {
		return err
	}
	if r.Currency != nil {
		if err := types.ValidateCurrency(*r.Currency); err != nil {
			return err
		}
	}
	if r.Status != nil {
		if err := r.Status.Validate(); err != nil {
			return err
		}
	}
	if r.Items != nil {
		for i := range *r.Items {
			if err := (*r.Items)[i].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *UpdateInvoiceRequest) hasUpdates() bool {
	return r.ClientName != nil || r.ClientEmail != nil || r.ClientAddress != nil ||
		r.ClientDetails != nil || r.CustomerDetails != nil || r.Amount != nil ||
		r.Currency != nil || r.IssueDate != nil || r.DueDate != nil ||
		r.Status != nil || r.Description != nil || r.Items != nil ||
		r.Notes != nil || r.TaxRate != nil || r.TaxAmount != nil ||
		r.Discount != nil || r.DiscountAmount != nil || r.Shipping != nil ||
		r.Subtotal != nil || r.Total != nil || r.AmountPaid != nil ||
		r.BalanceDue != nil
}

func (r *UpdateInvoiceRequest) ToUpdateParams() invoice.UpdateParams {
	params := invoice.UpdateParams{
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
		ClientAddress:   r.ClientAddress,
		ClientDetails:   r.ClientDetails,
		CustomerDetails: r.CustomerDetails,
		Amount:          r.Amount,
		Currency:        r.Currency,
		IssueDate:       r.IssueDate,
		DueDate:         r.DueDate,
		Status:          r.Status,
		Description:     r.Description,
		Notes:           r.Notes,
		TaxRate:         r.TaxRate,
		TaxAmount:       r.TaxAmount,
		Discount:        r.Discount,
		DiscountAmount:  r.DiscountAmount,
		Shipping:        r.Shipping,
		Subtotal:        r.Subtotal,
		Total:           r.Total,
		AmountPaid:      r.AmountPaid,
		BalanceDue:      r.BalanceDue,
	}
	if r.Items != nil {
		items := make([]invoice.LineItem, 0, len(*r.Items))
		for _, item := range *r.Items {
			items = append(items, item.toLineItem())
		}
		params.Items = &items
	}
	return params
}

// InvoiceResponse is the API projection of a stored invoice.
type InvoiceResponse struct {
	*invoice.Invoice
}

// ListInvoicesResponse is the paginated listing envelope.
type ListInvoicesResponse struct {
	Invoices   []*InvoiceResponse       `json:"invoices"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// InvoicePdfResponse carries a rendered document and the metadata needed to
// serve it.
type InvoicePdfResponse struct {
	InvoiceNumber string
	Data          []byte
}

type amountField struct {
	name  string
	value *decimal.Decimal
}

func validateAmounts(fields ...amountField) error {
	for _, f := range fields {
		if f.value != nil && f.value.IsNegative() {
			return ierr.NewError("invalid " + f.name).
				WithHintf("%s must not be negative", f.name).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func validatePercentage(field string, d *decimal.Decimal) error {
	if d == nil {
		return nil
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("invalid " + field).
			WithHintf("%s must be between 0 and 100", field).
			Mark(ierr.ErrValidation)
	}
	return nil
}
