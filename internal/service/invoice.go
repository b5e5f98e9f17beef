package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/duemate/duemate/internal/api/dto"
	"github.com/duemate/duemate/internal/domain/invoice"
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/logger"
	"github.com/duemate/duemate/internal/pdf"
	"github.com/duemate/duemate/internal/types"
	"github.com/duemate/duemate/internal/validator"
)

const (
	invoiceNumberPrefix = "INV"
	sequenceDigits      = 5

	// Cap on records pulled by the unindexed listing path. Listings over
	// larger collections than this see a truncated, approximate result.
	scanListingLimit = 1000
)

// InvoiceService exposes the invoice operations of the API.
type InvoiceService interface {
	CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error)
	UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error)
	DeleteInvoice(ctx context.Context, id string) error
	GetInvoicePdf(ctx context.Context, id string) (*dto.InvoicePdfResponse, error)
}

type invoiceService struct {
	repo      invoice.Repository
	generator pdf.Generator
	logger    *logger.Logger
}

func NewInvoiceService(repo invoice.Repository, generator pdf.Generator, logger *logger.Logger) InvoiceService {
	return &invoiceService{
		repo:      repo,
		generator: generator,
		logger:    logger,
	}
}

func (s *invoiceService) CreateInvoice(ctx context.Context, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validator.ValidateRequest(&req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	inv := req.ToInvoice()
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	if inv.InvoiceNumber == "" {
		number, err := s.generateInvoiceNumber(ctx)
		if err != nil {
			return nil, err
		}
		inv.InvoiceNumber = number
	} else {
		existing, err := s.repo.GetByInvoiceNumber(ctx, inv.InvoiceNumber)
		if err != nil && !ierr.IsNotFound(err) {
			return nil, err
		}
		if existing != nil {
			return nil, ierr.NewError("invoice number already in use").
				WithHintf("An invoice with number %s already exists", inv.InvoiceNumber).
				WithReportableDetails(map[string]any{
					"invoice_number": inv.InvoiceNumber,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Infow("created invoice", "invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

func (s *invoiceService) UpdateInvoice(ctx context.Context, id string, req dto.UpdateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := validator.ValidateRequest(&req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Existence check up front so a bad id fails the same way on every
	// update, not only when the store evaluates the write condition.
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}

	inv, err := s.repo.Update(ctx, id, req.ToUpdateParams())
	if err != nil {
		return nil, err
	}

	s.logger.Infow("updated invoice", "invoice_id", id)
	return &dto.InvoiceResponse{Invoice: inv}, nil
}

func (s *invoiceService) DeleteInvoice(ctx context.Context, id string) error {
	// The store delete is idempotent; the API surface reports a missing
	// invoice as not found.
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infow("deleted invoice", "invoice_id", id)
	return nil
}

func (s *invoiceService) GetInvoicePdf(ctx context.Context, id string) (*dto.InvoicePdfResponse, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.generator.RenderInvoicePdf(ctx, inv)
	if err != nil {
		return nil, err
	}

	return &dto.InvoicePdfResponse{
		InvoiceNumber: inv.InvoiceNumber,
		Data:          data,
	}, nil
}

// ListInvoices routes a listing to the cheapest access path its filters
// allow: a single status or client email filter walks the matching index
// newest first, anything else falls back to a bounded scan with in-memory
// sorting.
func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	if filter == nil {
		filter = types.NewDefaultInvoiceFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	// Routing looks at filters only. Sort parameters never move a
	// single-filter listing off its index; the indexed paths always serve
	// the default newest-first order.
	statusOnly := filter.Status != nil && filter.ClientEmail == nil &&
		filter.StartDate == nil && filter.EndDate == nil
	emailOnly := filter.ClientEmail != nil && filter.Status == nil &&
		filter.StartDate == nil && filter.EndDate == nil

	switch {
	case statusOnly:
		return s.listIndexed(ctx, filter, func(limit int, cursor string) ([]*invoice.Invoice, string, error) {
			return s.repo.ListByStatus(ctx, *filter.Status, limit, cursor)
		})
	case emailOnly:
		return s.listIndexed(ctx, filter, func(limit int, cursor string) ([]*invoice.Invoice, string, error) {
			return s.repo.ListByClientEmail(ctx, *filter.ClientEmail, limit, cursor)
		})
	default:
		return s.listScanned(ctx, filter)
	}
}

// listIndexed walks index pages from the start, discarding them until the
// requested page. The reported total is only an approximation, covering the
// pages skipped plus the page returned.
func (s *invoiceService) listIndexed(ctx context.Context, filter *types.InvoiceFilter, fetch func(limit int, cursor string) ([]*invoice.Invoice, string, error)) (*dto.ListInvoicesResponse, error) {
	page := filter.GetPage()
	limit := filter.GetLimit()

	var pageItems []*invoice.Invoice
	cursor := ""
	for current := 1; ; current++ {
		items, nextCursor, err := fetch(limit, cursor)
		if err != nil {
			return nil, err
		}
		if current == page {
			pageItems = items
			break
		}
		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	total := (page-1)*limit + len(pageItems)

	return buildListResponse(pageItems, page, limit, total), nil
}

// listScanned pulls a bounded window of the collection, filters at the
// store, then sorts and pages in memory.
func (s *invoiceService) listScanned(ctx context.Context, filter *types.InvoiceFilter) (*dto.ListInvoicesResponse, error) {
	page := filter.GetPage()
	limit := filter.GetLimit()

	scanFilter := &invoice.ScanFilter{
		Status:              filter.Status,
		ClientEmailContains: filter.ClientEmail,
		IssueDateFrom:       filter.StartDate,
		IssueDateTo:         filter.EndDate,
	}

	matched, _, err := s.repo.Scan(ctx, scanListingLimit, "", scanFilter)
	if err != nil {
		return nil, err
	}

	sortInvoices(matched, filter.GetSortBy(), filter.GetSortOrder())

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return buildListResponse(matched[start:end], page, limit, total), nil
}

func buildListResponse(items []*invoice.Invoice, page, limit, total int) *dto.ListInvoicesResponse {
	invoices := make([]*dto.InvoiceResponse, 0, len(items))
	for _, inv := range items {
		invoices = append(invoices, &dto.InvoiceResponse{Invoice: inv})
	}
	return &dto.ListInvoicesResponse{
		Invoices:   invoices,
		Pagination: types.NewPaginationResponse(page, limit, total),
	}
}

// sortInvoices orders invoices by the given field, type aware: amounts
// compare numerically and dates by instant, never as strings.
func sortInvoices(invoices []*invoice.Invoice, sortBy types.InvoiceSortBy, order string) {
	less := func(a, b *invoice.Invoice) bool {
		switch sortBy {
		case types.InvoiceSortByAmount:
			return a.Amount.Cmp(b.Amount) < 0
		case types.InvoiceSortByIssueDate:
			return a.IssueDate.Before(b.IssueDate)
		case types.InvoiceSortByDueDate:
			return a.DueDate.Before(b.DueDate)
		case types.InvoiceSortByInvoiceNumber:
			return a.InvoiceNumber < b.InvoiceNumber
		case types.InvoiceSortByStatus:
			return a.Status < b.Status
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(invoices, func(i, j int) bool {
		if order == types.OrderDesc {
			return less(invoices[j], invoices[i])
		}
		return less(invoices[i], invoices[j])
	})
}

// generateInvoiceNumber issues the next number in the INV-<year>-<seq>
// series by looking up the highest number already stored for the year.
// Concurrent creates can race to the same number; the series is a
// convenience, not a uniqueness guarantee.
func (s *invoiceService) generateInvoiceNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", invoiceNumberPrefix, time.Now().UTC().Year())

	sequence := 1
	latest, err := s.repo.GetByInvoiceNumberPrefix(ctx, prefix)
	switch {
	case err == nil:
		parts := strings.Split(latest.InvoiceNumber, "-")
		if len(parts) == 3 {
			if n, perr := strconv.Atoi(parts[2]); perr == nil {
				sequence = n + 1
			}
		}
	case ierr.IsNotFound(err):
		// first invoice of the year
	default:
		return "", err
	}

	return fmt.Sprintf("%s%0*d", prefix, sequenceDigits, sequence), nil
}
