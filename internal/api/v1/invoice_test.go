package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/duemate/duemate/internal/api"
	v1 "github.com/duemate/duemate/internal/api/v1"
	"github.com/duemate/duemate/internal/dynamodb"
	"github.com/duemate/duemate/internal/logger"
	"github.com/duemate/duemate/internal/pdf"
	"github.com/duemate/duemate/internal/repository/dynamo"
	"github.com/duemate/duemate/internal/service"
	"github.com/duemate/duemate/internal/testutil"
	"github.com/duemate/duemate/internal/types"
)

type InvoiceAPISuite struct {
	suite.Suite
	db     dynamodb.API
	router *gin.Engine
}

func TestInvoiceAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(InvoiceAPISuite))
}

func (s *InvoiceAPISuite) SetupTest() {
	s.db = testutil.NewInMemoryDynamoDB()
	repo := dynamo.NewInvoiceRepository(s.db, "duemate-invoices", logger.L)
	invoiceService := service.NewInvoiceService(repo, pdf.NewGenerator(logger.L), logger.L)

	s.router = api.NewRouter(api.Handlers{
		Health:  v1.NewHealthHandler(logger.L),
		Invoice: v1.NewInvoiceHandler(invoiceService, logger.L),
	})
}

func (s *InvoiceAPISuite) request(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *InvoiceAPISuite) createInvoice() map[string]any {
	w := s.request(http.MethodPost, "/api/invoices", map[string]any{
		"clientName":  "Acme Pty Ltd",
		"clientEmail": "billing@acme.example",
		"amount":      100,
		"subtotal":    100,
		"total":       100,
		"dueDate":     time.Now().UTC().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	s.Require().Equal(http.StatusCreated, w.Code)

	var body struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Require().True(body.Success)
	return body.Data
}

func (s *InvoiceAPISuite) TestHealth() {
	w := s.request(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"ok"}`, w.Body.String())
}

func (s *InvoiceAPISuite) TestCreateAndGetInvoice() {
	created := s.createInvoice()
	id := created["id"].(string)
	s.Contains(created["invoiceNumber"], "INV-")
	s.Equal("draft", created["status"])
	s.Equal("AUD", created["currency"])

	w := s.request(http.MethodGet, "/api/invoices/"+id, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"success":true`)
	s.Contains(w.Body.String(), id)

	// X-Request-ID is always set on responses
	s.NotEmpty(w.Header().Get(types.HeaderRequestID))
}

func (s *InvoiceAPISuite) TestCreateInvoiceRejectsBadPayload() {
	w := s.request(http.MethodPost, "/api/invoices", map[string]any{
		"clientName": "Acme Pty Ltd",
	})
	s.Equal(http.StatusBadRequest, w.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal(false, body["success"])
	s.NotNil(body["error"])
}

func (s *InvoiceAPISuite) TestGetMissingInvoice() {
	w := s.request(http.MethodGet, "/api/invoices/inv_missing", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Contains(w.Body.String(), `"success":false`)
}

func (s *InvoiceAPISuite) TestListInvoices() {
	s.createInvoice()
	s.createInvoice()

	w := s.request(http.MethodGet, "/api/invoices?limit=1&page=1", nil)
	s.Equal(http.StatusOK, w.Code)

	var body struct {
		Success    bool             `json:"success"`
		Data       []map[string]any `json:"data"`
		Pagination map[string]any   `json:"pagination"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.True(body.Success)
	s.Len(body.Data, 1)
	s.EqualValues(1, body.Pagination["page"])
	s.EqualValues(2, body.Pagination["total"])
}

func (s *InvoiceAPISuite) TestListInvoicesRejectsBadQuery() {
	w := s.request(http.MethodGet, "/api/invoices?limit=500", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *InvoiceAPISuite) TestUpdateInvoice() {
	created := s.createInvoice()
	id := created["id"].(string)

	w := s.request(http.MethodPut, "/api/invoices/"+id, map[string]any{
		"status": "paid",
	})
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"paid"`)

	w = s.request(http.MethodPut, "/api/invoices/inv_missing", map[string]any{
		"status": "paid",
	})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *InvoiceAPISuite) TestDeleteInvoice() {
	created := s.createInvoice()
	id := created["id"].(string)

	w := s.request(http.MethodDelete, "/api/invoices/"+id, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Invoice deleted successfully")

	w = s.request(http.MethodDelete, "/api/invoices/"+id, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *InvoiceAPISuite) TestInvoicePdfEndpoints() {
	created := s.createInvoice()
	id := created["id"].(string)
	number := created["invoiceNumber"].(string)

	w := s.request(http.MethodGet, "/api/invoices/"+id+"/preview", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("application/pdf", w.Header().Get("Content-Type"))
	s.Equal("inline; filename=invoice-"+number+".pdf", w.Header().Get("Content-Disposition"))
	s.Equal("%PDF", w.Body.String()[:4])

	w = s.request(http.MethodGet, "/api/invoices/"+id+"/download", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("attachment; filename=invoice-"+number+".pdf", w.Header().Get("Content-Disposition"))
}
