package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/infrastructure/cache"
	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func purchaseBody(invoice, date string) map[string]any {
	return map[string]any{
		"operation_date":         date + "T00:00:00Z",
		"counterparty_name":      "Distribuidora El Sol",
		"counterparty_rif":       "J-12345678-8",
		"invoice_number":         invoice,
		"invoice_control_number": "00-7788",
		"base_amount":            "500",
		"iva_rate":               "16",
		"iva_amount":             "80",
	}
}

func mustDate(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func salesDocument(tenantID uuid.UUID, number string) *fiscal.BillingDocument {
	return &fiscal.BillingDocument{
		DocumentID:     uuid.New(),
		TenantID:       tenantID,
		ControlNumber:  "00-001234",
		Type:           fiscal.BillingInvoice,
		DocumentNumber: number,
		IssueDate:      mustDate("2026-03-20"),
		Customer:       fiscal.BillingCustomer{ID: "CUST-9", Name: "Comercial Andes", RIF: "J-30123456-5"},
		Subtotal:       decimal.NewFromInt(1000),
		TaxAmount:      decimal.NewFromInt(160),
		Total:          decimal.NewFromInt(1160),
		Taxes:          []fiscal.BillingTax{{Type: "IVA", Rate: decimal.NewFromInt(16), Amount: decimal.NewFromInt(160)}},
		Currency:       "VES",
	}
}

func (s *testServer) purchase(t *testing.T, invoice, date string) appfiscal.BookEntryResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/books/purchase/entries", purchaseBody(invoice, date))
	requireStatus(t, w, http.StatusCreated)
	return decodeData[appfiscal.BookEntryResponse](t, w)
}

func TestBookHandler_PurchaseEntries(t *testing.T) {
	s := newTestServer(t)
	entry := s.purchase(t, "C-1", "2026-03-08")
	assert.Equal(t, "purchase", entry.Book)
	assert.Equal(t, "confirmed", entry.Status)
	assert.Equal(t, 3, entry.Month)
	assert.True(t, decimal.NewFromInt(580).Equal(entry.TotalAmount))

	path := "/api/v1/books/purchase/entries/" + entry.ID.String()

	t.Run("get", func(t *testing.T) {
		w := s.do(t, http.MethodGet, path, nil)
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, "C-1", decodeData[appfiscal.BookEntryResponse](t, w).InvoiceNumber)
	})

	t.Run("the same invoice cannot be registered twice", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/books/purchase/entries", purchaseBody("C-1", "2026-03-09"))
		requireStatus(t, w, http.StatusConflict)
		assert.Equal(t, "ALREADY_EXISTS", errorCode(t, w))
	})

	t.Run("rows are readable only through their own book", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/books/sales/entries/"+entry.ID.String(), nil)
		requireStatus(t, w, http.StatusNotFound)
	})

	t.Run("validate a row", func(t *testing.T) {
		w := s.do(t, http.MethodGet, path+"/validate", nil)
		requireStatus(t, w, http.StatusOK)
		assert.True(t, decodeData[fiscal.ValidationResult](t, w).Valid)
	})

	t.Run("list filters by month", func(t *testing.T) {
		s.purchase(t, "C-2", "2026-04-02")

		w := s.do(t, http.MethodGet, "/api/v1/books/purchase/entries?month=3&year=2026", nil)
		requireStatus(t, w, http.StatusOK)
		items := decodeData[[]appfiscal.BookEntryResponse](t, w)
		require.Len(t, items, 1)
		assert.Equal(t, "C-1", items[0].InvoiceNumber)
		assert.Equal(t, int64(1), metaOf(t, w).Total)
	})
}

func TestBookHandler_DraftLifecycle(t *testing.T) {
	s := newTestServer(t)
	body := purchaseBody("C-10", "2026-03-11")
	body["draft"] = true

	w := s.do(t, http.MethodPost, "/api/v1/books/purchase/entries", body)
	requireStatus(t, w, http.StatusCreated)
	draft := decodeData[appfiscal.BookEntryResponse](t, w)
	assert.Equal(t, "draft", draft.Status)
	path := "/api/v1/books/purchase/entries/" + draft.ID.String()

	body["counterparty_name"] = "Distribuidora El Sol C.A."
	w = s.do(t, http.MethodPut, path, body)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "Distribuidora El Sol C.A.", decodeData[appfiscal.BookEntryResponse](t, w).CounterpartyName)

	w = s.do(t, http.MethodPost, path+"/confirm", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "confirmed", decodeData[appfiscal.BookEntryResponse](t, w).Status)

	w = s.do(t, http.MethodPost, path+"/confirm", nil)
	requireStatus(t, w, http.StatusConflict)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))

	w = s.do(t, http.MethodPost, path+"/annul", map[string]any{"reason": "Factura mal emitida"})
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "annulled", decodeData[appfiscal.BookEntryResponse](t, w).Status)

	w = s.do(t, http.MethodDelete, path, nil)
	requireStatus(t, w, http.StatusConflict)

	removable := s.purchase(t, "C-11", "2026-03-12")
	w = s.do(t, http.MethodDelete, "/api/v1/books/purchase/entries/"+removable.ID.String(), nil)
	requireStatus(t, w, http.StatusNoContent)
}

func TestBookHandler_MonthlyBook(t *testing.T) {
	s := newTestServer(t)
	s.purchase(t, "C-1", "2026-03-08")
	s.purchase(t, "C-2", "2026-03-15")

	t.Run("book and summary", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/books/purchase?month=3&year=2026", nil)
		requireStatus(t, w, http.StatusOK)
		book := decodeData[appfiscal.BookResponse](t, w)
		require.Len(t, book.Entries, 2)
		assert.Equal(t, "C-1", book.Entries[0].InvoiceNumber)

		w = s.do(t, http.MethodGet, "/api/v1/books/purchase/summary?month=3&year=2026", nil)
		requireStatus(t, w, http.StatusOK)
		summary := decodeData[fiscal.BookSummary](t, w)
		assert.Equal(t, 2, summary.TotalEntries)
		assert.True(t, decimal.NewFromInt(160).Equal(summary.TotalIVAAmount))
	})

	t.Run("month is required", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/books/purchase/summary?year=2026", nil)
		requireStatus(t, w, http.StatusBadRequest)
	})

	t.Run("validate the month", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/books/purchase/validate?month=3&year=2026", nil)
		requireStatus(t, w, http.StatusOK)
		result := decodeData[fiscal.ValidationResult](t, w)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("export downloads the TXT and marks rows exported", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/books/purchase/export?month=3&year=2026", nil)
		requireStatus(t, w, http.StatusOK)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "LIBRO_COMPRAS_032026.txt")
		assert.Equal(t, "2", w.Header().Get("X-Export-Records"))
		assert.Len(t, strings.Split(strings.TrimSpace(w.Body.String()), "\n"), 2)

		w = s.do(t, http.MethodGet, "/api/v1/books/purchase/entries?status=exported", nil)
		requireStatus(t, w, http.StatusOK)
		assert.Len(t, decodeData[[]appfiscal.BookEntryResponse](t, w), 2)
	})

	t.Run("an empty month has nothing to export", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/books/purchase/export?month=7&year=2026", nil)
		requireStatus(t, w, http.StatusUnprocessableEntity)
		assert.Equal(t, "NO_RECORDS", errorCode(t, w))
	})
}

func TestBookHandler_InvalidBook(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/books/ledger?month=3&year=2026", nil)
	requireStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodPost, "/api/v1/books/purchase/entries", map[string]any{
		"operation_date":    "2026-03-08T00:00:00Z",
		"counterparty_name": "Sin RIF",
		"counterparty_rif":  "12345",
		"invoice_number":    "C-1",
	})
	requireStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, dto.ErrCodeValidation, errorCode(t, w))
}

func TestBookHandler_Resync(t *testing.T) {
	s := newTestServer(t)
	doc := salesDocument(s.tenantID, "FAC-0001")
	path := "/api/v1/sales-sync/" + doc.DocumentID.String()

	t.Run("without a stored payload", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, nil)
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "INVALID_INPUT", errorCode(t, w))
	})

	t.Run("replays the stored payload", func(t *testing.T) {
		store := cache.NewInMemoryBillingDocumentStore()
		require.NoError(t, store.Save(context.Background(), doc))
		s.books.SetDocumentResolver(store)

		w := s.do(t, http.MethodPost, path, nil)
		requireStatus(t, w, http.StatusOK)
		result := decodeData[appfiscal.SyncResult](t, w)
		assert.True(t, result.Created)
		assert.Equal(t, "FAC-0001", result.Entry.InvoiceNumber)
		assert.Equal(t, "confirmed", result.Entry.Status)

		w = s.do(t, http.MethodPost, path, nil)
		requireStatus(t, w, http.StatusOK)
		assert.False(t, decodeData[appfiscal.SyncResult](t, w).Created)
	})
}
