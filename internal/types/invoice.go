package types

import (
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/samber/lo"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// InvoiceSortBy is the set of fields a listing can be sorted on
type InvoiceSortBy string

const (
	InvoiceSortByInvoiceNumber InvoiceSortBy = "invoiceNumber"
	InvoiceSortByIssueDate     InvoiceSortBy = "issueDate"
	InvoiceSortByDueDate       InvoiceSortBy = "dueDate"
	InvoiceSortByAmount        InvoiceSortBy = "amount"
	InvoiceSortByStatus        InvoiceSortBy = "status"
	InvoiceSortByCreatedAt     InvoiceSortBy = "createdAt"
)

func (s InvoiceSortBy) String() string {
	return string(s)
}

func (s InvoiceSortBy) Validate() error {
	allowed := []InvoiceSortBy{
		InvoiceSortByInvoiceNumber,
		InvoiceSortByIssueDate,
		InvoiceSortByDueDate,
		InvoiceSortByAmount,
		InvoiceSortByStatus,
		InvoiceSortByCreatedAt,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid sort field").
			WithHint("Please provide a valid sort field").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
