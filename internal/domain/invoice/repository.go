package invoice

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/duemate/duemate/internal/types"
)

// ScanFilter is the optional predicate set for the unindexed scan path,
// evaluated by the store engine itself.
type ScanFilter struct {
	Status              *types.InvoiceStatus
	ClientEmailContains *string
	IssueDateFrom       *time.Time
	IssueDateTo         *time.Time
}

// UpdateParams carries the fields of a partial update. Nil means "leave the
// stored value untouched"; a non-nil pointer is written even when it points
// at a zero value.
type UpdateParams struct {
	ClientName      *string
	ClientEmail     *string
	ClientAddress   *string
	ClientDetails   *string
	CustomerDetails *string
	Amount          *decimal.Decimal
	Currency        *string
	IssueDate       *time.Time
	DueDate         *time.Time
	Status          *types.InvoiceStatus
	Description     *string
	Items           *[]LineItem
	Notes           *string
	TaxRate         *decimal.Decimal
	TaxAmount       *decimal.Decimal
	Discount        *decimal.Decimal
	DiscountAmount  *decimal.Decimal
	Shipping        *decimal.Decimal
	Subtotal        *decimal.Decimal
	Total           *decimal.Decimal
	AmountPaid      *decimal.Decimal
	BalanceDue      *decimal.Decimal
}

// Repository defines the persistence operations for invoices. List
// operations page forward through an opaque continuation cursor; an empty
// cursor starts from the beginning and an empty returned cursor means the
// end was reached.
type Repository interface {
	// Create persists a new invoice, assigning its id, timestamps and
	// defaults on the passed model.
	Create(ctx context.Context, inv *Invoice) error

	// Get retrieves an invoice by ID
	Get(ctx context.Context, id string) (*Invoice, error)

	// GetByInvoiceNumber retrieves an invoice by its business key
	GetByInvoiceNumber(ctx context.Context, number string) (*Invoice, error)

	// GetByInvoiceNumberPrefix returns the invoice with the highest number
	// sharing the given prefix
	GetByInvoiceNumberPrefix(ctx context.Context, prefix string) (*Invoice, error)

	// ListByStatus pages through the status index, newest first
	ListByStatus(ctx context.Context, status types.InvoiceStatus, limit int, cursor string) ([]*Invoice, string, error)

	// ListByClientEmail pages through the client email index, newest first
	ListByClientEmail(ctx context.Context, email string, limit int, cursor string) ([]*Invoice, string, error)

	// Scan walks the whole collection with optional store-evaluated
	// predicates. limit caps the records pulled from the store, not the
	// records matching the filter.
	Scan(ctx context.Context, limit int, cursor string, filter *ScanFilter) ([]*Invoice, string, error)

	// Update applies a partial update and returns the updated invoice
	Update(ctx context.Context, id string, params UpdateParams) (*Invoice, error)

	// Delete removes an invoice; deleting a missing id is not an error
	Delete(ctx context.Context, id string) error

	// Count scans the collection and counts matches. Approximate and
	// expensive; not a cheap aggregate.
	Count(ctx context.Context, filter *ScanFilter) (int, error)
}
