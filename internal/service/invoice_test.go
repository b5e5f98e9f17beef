package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/duemate/duemate/internal/api/dto"
	"github.com/duemate/duemate/internal/domain/invoice"
	ierr "github.com/duemate/duemate/internal/errors"
	"github.com/duemate/duemate/internal/logger"
	"github.com/duemate/duemate/internal/pdf"
	"github.com/duemate/duemate/internal/repository/dynamo"
	"github.com/duemate/duemate/internal/testutil"
	"github.com/duemate/duemate/internal/types"
)

type InvoiceServiceSuite struct {
	suite.Suite
	ctx            context.Context
	repo           invoice.Repository
	invoiceService InvoiceService
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = dynamo.NewInvoiceRepository(testutil.NewInMemoryDynamoDB(), "duemate-invoices", logger.L)
	s.invoiceService = NewInvoiceService(s.repo, pdf.NewGenerator(logger.L), logger.L)
}

func (s *InvoiceServiceSuite) createRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		ClientName:  "Acme Pty Ltd",
		ClientEmail: "billing@acme.example",
		Amount:      decimal.NewFromInt(100),
		DueDate:     time.Now().UTC().AddDate(0, 1, 0),
		Subtotal:    decimal.NewFromInt(100),
		Total:       decimal.NewFromInt(100),
	}
}

// seed stores an invoice directly through the repository, spacing creation
// timestamps so the index order is deterministic.
func (s *InvoiceServiceSuite) seed(number, email string, status types.InvoiceStatus, amount float64) *invoice.Invoice {
	inv := &invoice.Invoice{
		InvoiceNumber: number,
		ClientName:    "Acme Pty Ltd",
		ClientEmail:   email,
		Amount:        decimal.NewFromFloat(amount),
		Status:        status,
		DueDate:       time.Now().UTC().AddDate(0, 1, 0),
		Subtotal:      decimal.NewFromFloat(amount),
		Total:         decimal.NewFromFloat(amount),
	}
	s.Require().NoError(s.repo.Create(s.ctx, inv))
	time.Sleep(2 * time.Millisecond)
	return inv
}

func (s *InvoiceServiceSuite) TestCreateInvoiceGeneratesNumberSeries() {
	year := time.Now().UTC().Year()

	for i := 1; i <= 3; i++ {
		resp, err := s.invoiceService.CreateInvoice(s.ctx, s.createRequest())
		s.Require().NoError(err)
		s.Equal(fmt.Sprintf("INV-%d-%05d", year, i), resp.InvoiceNumber)
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoiceKeepsExplicitNumber() {
	req := s.createRequest()
	req.InvoiceNumber = "CUSTOM-001"

	resp, err := s.invoiceService.CreateInvoice(s.ctx, req)
	s.Require().NoError(err)
	s.Equal("CUSTOM-001", resp.InvoiceNumber)

	// the same number cannot be used twice
	_, err = s.invoiceService.CreateInvoice(s.ctx, req)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceValidation() {
	testCases := []struct {
		name   string
		mutate func(req *dto.CreateInvoiceRequest)
	}{
		{"missing_client_name", func(req *dto.CreateInvoiceRequest) { req.ClientName = "" }},
		{"short_client_name", func(req *dto.CreateInvoiceRequest) { req.ClientName = "A" }},
		{"invalid_email", func(req *dto.CreateInvoiceRequest) { req.ClientEmail = "not-an-email" }},
		{"missing_due_date", func(req *dto.CreateInvoiceRequest) { req.DueDate = time.Time{} }},
		{"negative_amount", func(req *dto.CreateInvoiceRequest) { req.Amount = decimal.NewFromInt(-1) }},
		{"unknown_currency", func(req *dto.CreateInvoiceRequest) { req.Currency = "XXX" }},
		{"invalid_status", func(req *dto.CreateInvoiceRequest) { req.Status = "archived" }},
		{"tax_rate_over_100", func(req *dto.CreateInvoiceRequest) { req.TaxRate = lo.ToPtr(decimal.NewFromInt(101)) }},
		{"zero_item_quantity", func(req *dto.CreateInvoiceRequest) {
			req.Items = []dto.LineItemRequest{{
				Description: "Consulting",
				Quantity:    decimal.Zero,
				UnitPrice:   decimal.NewFromInt(50),
				Amount:      decimal.NewFromInt(100),
			}}
		}},
		{"negative_item_quantity", func(req *dto.CreateInvoiceRequest) {
			req.Items = []dto.LineItemRequest{{
				Description: "Consulting",
				Quantity:    decimal.NewFromInt(-1),
				UnitPrice:   decimal.NewFromInt(50),
				Amount:      decimal.NewFromInt(100),
			}}
		}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			req := s.createRequest()
			tc.mutate(&req)
			_, err := s.invoiceService.CreateInvoice(s.ctx, req)
			s.True(ierr.IsValidation(err))
		})
	}
}

func (s *InvoiceServiceSuite) TestGetInvoice() {
	created := s.seed("INV-2026-00001", "a@example.com", types.InvoiceStatusSent, 10)

	resp, err := s.invoiceService.GetInvoice(s.ctx, created.ID)
	s.NoError(err)
	s.Equal(created.ID, resp.ID)

	_, err = s.invoiceService.GetInvoice(s.ctx, "inv_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestListInvoicesByStatusWalksIndex() {
	for i := 1; i <= 5; i++ {
		s.seed(fmt.Sprintf("INV-2026-%05d", i), "a@example.com", types.InvoiceStatusSent, float64(i))
	}
	s.seed("INV-2026-00099", "a@example.com", types.InvoiceStatusPaid, 99)

	resp, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		Status: lo.ToPtr(types.InvoiceStatusSent),
		Page:   lo.ToPtr(2),
		Limit:  lo.ToPtr(2),
	})
	s.Require().NoError(err)
	s.Require().Len(resp.Invoices, 2)

	// index listings are newest first; page 2 of size 2 holds the third
	// and fourth newest
	s.Equal("INV-2026-00003", resp.Invoices[0].InvoiceNumber)
	s.Equal("INV-2026-00002", resp.Invoices[1].InvoiceNumber)
	s.Equal(2, resp.Pagination.Page)

	// the indexed total is approximated as pages skipped plus this page
	s.Equal(4, resp.Pagination.Total)
}

func (s *InvoiceServiceSuite) TestListInvoicesSortParamsKeepIndexRoute() {
	for i := 1; i <= 5; i++ {
		s.seed(fmt.Sprintf("INV-2026-%05d", i), "a@example.com", types.InvoiceStatusSent, float64(i))
	}

	indexed, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		Status: lo.ToPtr(types.InvoiceStatusSent),
	})
	s.Require().NoError(err)

	// spelling out the default order must not change the route or the total
	sorted, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		Status:    lo.ToPtr(types.InvoiceStatusSent),
		SortBy:    lo.ToPtr(types.InvoiceSortByCreatedAt),
		SortOrder: lo.ToPtr(types.OrderDesc),
	})
	s.Require().NoError(err)

	s.Equal(indexed.Pagination.Total, sorted.Pagination.Total)
	s.Require().Len(sorted.Invoices, 5)
	s.Equal("INV-2026-00005", sorted.Invoices[0].InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestListInvoicesByClientEmail() {
	s.seed("INV-2026-00001", "alice@example.com", types.InvoiceStatusSent, 10)
	s.seed("INV-2026-00002", "bob@example.com", types.InvoiceStatusSent, 20)
	s.seed("INV-2026-00003", "alice@example.com", types.InvoiceStatusPaid, 30)

	resp, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		ClientEmail: lo.ToPtr("alice@example.com"),
	})
	s.Require().NoError(err)
	s.Require().Len(resp.Invoices, 2)
	s.Equal("INV-2026-00003", resp.Invoices[0].InvoiceNumber)
	s.Equal("INV-2026-00001", resp.Invoices[1].InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestListInvoicesSortsNumerically() {
	s.seed("INV-2026-00001", "a@example.com", types.InvoiceStatusSent, 10)
	s.seed("INV-2026-00002", "a@example.com", types.InvoiceStatusSent, 9)
	s.seed("INV-2026-00003", "a@example.com", types.InvoiceStatusSent, 100)

	resp, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		SortBy:    lo.ToPtr(types.InvoiceSortByAmount),
		SortOrder: lo.ToPtr(types.OrderAsc),
	})
	s.Require().NoError(err)
	s.Require().Len(resp.Invoices, 3)

	// 9 < 10 < 100, not "10" < "100" < "9"
	s.True(resp.Invoices[0].Amount.Equal(decimal.NewFromInt(9)))
	s.True(resp.Invoices[1].Amount.Equal(decimal.NewFromInt(10)))
	s.True(resp.Invoices[2].Amount.Equal(decimal.NewFromInt(100)))
	s.Equal(3, resp.Pagination.Total)
}

func (s *InvoiceServiceSuite) TestListInvoicesCombinedFilters() {
	s.seed("INV-2026-00001", "alice@example.com", types.InvoiceStatusSent, 10)
	s.seed("INV-2026-00002", "bob@example.com", types.InvoiceStatusSent, 20)
	s.seed("INV-2026-00003", "alice@example.com", types.InvoiceStatusPaid, 30)

	resp, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		Status:      lo.ToPtr(types.InvoiceStatusSent),
		ClientEmail: lo.ToPtr("alice@example.com"),
	})
	s.Require().NoError(err)
	s.Require().Len(resp.Invoices, 1)
	s.Equal("INV-2026-00001", resp.Invoices[0].InvoiceNumber)
	s.Equal(1, resp.Pagination.Total)
	s.Equal(1, resp.Pagination.TotalPages)
}

func (s *InvoiceServiceSuite) TestListInvoicesDateRange() {
	s.seed("INV-2026-00001", "a@example.com", types.InvoiceStatusSent, 10)

	resp, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		StartDate: lo.ToPtr(time.Now().UTC().Add(time.Hour)),
	})
	s.Require().NoError(err)
	s.Empty(resp.Invoices)
	s.Equal(0, resp.Pagination.Total)
}

func (s *InvoiceServiceSuite) TestListInvoicesInvalidFilter() {
	_, err := s.invoiceService.ListInvoices(s.ctx, &types.InvoiceFilter{
		Limit: lo.ToPtr(1000),
	})
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoice() {
	created := s.seed("INV-2026-00001", "a@example.com", types.InvoiceStatusDraft, 100)

	resp, err := s.invoiceService.UpdateInvoice(s.ctx, created.ID, dto.UpdateInvoiceRequest{
		Status:     lo.ToPtr(types.InvoiceStatusPaid),
		AmountPaid: lo.ToPtr(decimal.NewFromInt(100)),
	})
	s.Require().NoError(err)
	s.Equal(types.InvoiceStatusPaid, resp.Status)
	s.Equal(created.InvoiceNumber, resp.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceErrors() {
	created := s.seed("INV-2026-00001", "a@example.com", types.InvoiceStatusDraft, 100)

	s.Run("missing_invoice", func() {
		_, err := s.invoiceService.UpdateInvoice(s.ctx, "inv_missing", dto.UpdateInvoiceRequest{
			Notes: lo.ToPtr("hello"),
		})
		s.True(ierr.IsNotFound(err))
	})

	s.Run("empty_update", func() {
		_, err := s.invoiceService.UpdateInvoice(s.ctx, created.ID, dto.UpdateInvoiceRequest{})
		s.True(ierr.IsValidation(err))
	})

	s.Run("negative_amount", func() {
		_, err := s.invoiceService.UpdateInvoice(s.ctx, created.ID, dto.UpdateInvoiceRequest{
			Amount: lo.ToPtr(decimal.NewFromInt(-5)),
		})
		s.True(ierr.IsValidation(err))
	})
}

func (s *InvoiceServiceSuite) TestDeleteInvoice() {
	created := s.seed("INV-2026-00001", "a@example.com", types.InvoiceStatusDraft, 100)

	s.NoError(s.invoiceService.DeleteInvoice(s.ctx, created.ID))

	_, err := s.invoiceService.GetInvoice(s.ctx, created.ID)
	s.True(ierr.IsNotFound(err))

	// a second delete reports not found at the API surface
	s.True(ierr.IsNotFound(s.invoiceService.DeleteInvoice(s.ctx, created.ID)))
}

func (s *InvoiceServiceSuite) TestGetInvoicePdf() {
	created := s.seed("INV-2026-00001", "a@example.com", types.InvoiceStatusSent, 100)

	resp, err := s.invoiceService.GetInvoicePdf(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal("INV-2026-00001", resp.InvoiceNumber)
	s.NotEmpty(resp.Data)
	s.Equal("%PDF", string(resp.Data[:4]))

	_, err = s.invoiceService.GetInvoicePdf(s.ctx, "inv_missing")
	s.True(ierr.IsNotFound(err))
}
