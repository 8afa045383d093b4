package integration

import (
	"net/http"
	"testing"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/interfaces/http/handler"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billingPayload(documentID uuid.UUID, number string) map[string]any {
	return map[string]any{
		"documentId":     documentID.String(),
		"documentNumber": number,
		"controlNumber":  "00-001234",
		"type":           "invoice",
		"issueDate":      "2026-03-20T00:00:00Z",
		"customer":       map[string]any{"id": "CUST-9", "name": "Comercial Andes", "rif": "J-30123456-5"},
		"subtotal":       "1000",
		"taxAmount":      "160",
		"total":          "1160",
		"taxes":          []map[string]any{{"type": "IVA", "rate": "16", "amount": "160"}},
		"currency":       "VES",
	}
}

func purchasePayload(invoice string) map[string]any {
	return map[string]any{
		"operation_date":         "2026-03-08T00:00:00Z",
		"counterparty_name":      "Distribuidora El Sol",
		"counterparty_rif":       "J-12345678-8",
		"invoice_number":         invoice,
		"invoice_control_number": "00-7788",
		"base_amount":            "500",
		"iva_rate":               "16",
		"iva_amount":             "80",
	}
}

func TestLedgerFlow_BillingToDeclaration(t *testing.T) {
	db := NewSharedTestDB(t)
	s := newLedgerServer(t, db)
	tenantID := uuid.New()
	s.as(tenantID)

	w := s.do(t, http.MethodPost, "/api/v1/accounts/system", nil)
	requireStatus(t, w, http.StatusOK)

	w = s.do(t, http.MethodPost, "/api/v1/periods", map[string]any{
		"name":       "Marzo 2026",
		"start_date": "2026-03-01T00:00:00Z",
		"end_date":   "2026-03-31T00:00:00Z",
	})
	requireStatus(t, w, http.StatusCreated)
	period := decodeData[appaccounting.PeriodResponse](t, w)

	documentID := uuid.New()
	t.Run("issued invoice reaches the sales book and the journal", func(t *testing.T) {
		s.asSystem(tenantID)
		w := s.do(t, http.MethodPost, "/internal/billing-documents", billingPayload(documentID, "FAC-0001"))
		requireStatus(t, w, http.StatusAccepted)
		assert.Equal(t, documentID, decodeData[handler.BillingDocumentAccepted](t, w).DocumentID)

		// Redelivery of the same document is absorbed
		w = s.do(t, http.MethodPost, "/internal/billing-documents", billingPayload(documentID, "FAC-0001"))
		requireStatus(t, w, http.StatusAccepted)
		s.as(tenantID)

		assert.EqualValues(t, 1, db.Count("sales_book_entries", "tenant_id = ?", tenantID))
		assert.EqualValues(t, 1, db.Count("journal_entries", "tenant_id = ? AND is_automatic AND description LIKE ?", tenantID, "%FAC-0001%"))

		w = s.do(t, http.MethodGet, "/api/v1/books/sales?month=3&year=2026", nil)
		requireStatus(t, w, http.StatusOK)
		book := decodeData[appfiscal.BookResponse](t, w)
		require.Len(t, book.Entries, 1)
		assert.Equal(t, "FAC-0001", book.Entries[0].InvoiceNumber)
		assert.True(t, decimal.NewFromInt(160).Equal(book.Summary.TotalIVAAmount))
	})

	t.Run("manual resync reports the existing entry", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/sales-sync/"+documentID.String(), nil)
		requireStatus(t, w, http.StatusOK)
		result := decodeData[appfiscal.SyncResult](t, w)
		assert.False(t, result.Created)
		assert.Equal(t, "FAC-0001", result.Entry.InvoiceNumber)
	})

	t.Run("purchase book entry", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/books/purchase/entries", purchasePayload("C-1"))
		requireStatus(t, w, http.StatusCreated)

		w = s.do(t, http.MethodPost, "/api/v1/books/purchase/entries", purchasePayload("C-1"))
		requireStatus(t, w, http.StatusConflict)
	})

	var declarationID uuid.UUID
	t.Run("declaration nets sales against purchases", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/declarations/calculate", map[string]any{"month": 3, "year": 2026})
		requireStatus(t, w, http.StatusOK)
		d := decodeData[appfiscal.DeclarationResponse](t, w)
		assert.True(t, decimal.NewFromInt(160).Equal(d.TotalDebitFiscal))
		assert.True(t, decimal.NewFromInt(80).Equal(d.TotalCreditFiscal))
		assert.True(t, decimal.NewFromInt(80).Equal(d.IVAToPay))
		declarationID = d.ID

		w = s.do(t, http.MethodPost, "/api/v1/declarations/"+d.ID.String()+"/file", nil)
		requireStatus(t, w, http.StatusOK)
		w = s.do(t, http.MethodPost, "/api/v1/declarations/"+d.ID.String()+"/payment",
			map[string]any{"amount": "80", "reference": "BDV-778899"})
		requireStatus(t, w, http.StatusOK)
		assert.Equal(t, "paid", decodeData[appfiscal.DeclarationResponse](t, w).Status)
	})
	require.NotEqual(t, uuid.Nil, declarationID)

	t.Run("IVA withholding posts a balanced entry", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/withholdings/iva", map[string]any{
			"supplier_rif":           "J-12345678-8",
			"supplier_name":          "Distribuidora El Sol",
			"invoice_number":         "C-1",
			"invoice_control_number": "00-7788",
			"invoice_date":           "2026-03-08T00:00:00Z",
			"base_amount":            "500",
			"iva_rate":               "16",
			"iva_amount":             "80",
			"withholding_percentage": "75",
			"operation_type":         "compra_bienes",
			"retention_date":         "2026-03-09T00:00:00Z",
		})
		requireStatus(t, w, http.StatusCreated)
		draft := decodeData[appfiscal.WithholdingResponse](t, w)
		assert.True(t, decimal.NewFromInt(60).Equal(draft.WithholdingAmount))

		w = s.do(t, http.MethodPost, "/api/v1/withholdings/iva/"+draft.ID.String()+"/post", nil)
		requireStatus(t, w, http.StatusOK)
		assert.NotNil(t, decodeData[appfiscal.WithholdingResponse](t, w).JournalEntryID)
	})

	t.Run("trial balance stays balanced", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/reports/trial-balance?from=2026-03-01&to=2026-03-31", nil)
		requireStatus(t, w, http.StatusOK)
		tb := decodeData[accounting.TrialBalance](t, w)
		assert.True(t, tb.IsBalanced)
		assert.True(t, tb.TotalDebits.Equal(tb.TotalCredits))
	})

	t.Run("closing the period blocks further postings", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/periods/"+period.ID.String()+"/close", map[string]any{"notes": "cierre marzo"})
		requireStatus(t, w, http.StatusOK)
		closed := decodeData[appaccounting.PeriodResponse](t, w)
		assert.Equal(t, "closed", closed.Status)
		assert.True(t, decimal.NewFromInt(1000).Equal(closed.TotalRevenue))

		s.asSystem(tenantID)
		w = s.do(t, http.MethodPost, "/internal/billing-documents", func() map[string]any {
			p := billingPayload(uuid.New(), "FAC-0002")
			p["issueDate"] = "2026-03-25T00:00:00Z"
			return p
		}())
		requireStatus(t, w, http.StatusAccepted)
		s.as(tenantID)

		// The sales book still takes the document; only the journal refuses it
		assert.EqualValues(t, 2, db.Count("sales_book_entries", "tenant_id = ?", tenantID))
		assert.EqualValues(t, 0, db.Count("journal_entries", "tenant_id = ? AND description LIKE ?", tenantID, "%FAC-0002%"))
	})
}

func TestLedgerFlow_Readiness(t *testing.T) {
	s := newLedgerServer(t, NewSharedTestDB(t))

	w := s.do(t, http.MethodGet, "/ready", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, "ok", decodeData[handler.ReadinessResponse](t, w).Checks["database"])
}
