package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"

	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *testServer) seedMarch(t *testing.T) {
	t.Helper()
	doc := salesDocument(s.tenantID, "FAC-0001")
	_, err := s.books.SyncFromBillingDocument(context.Background(), s.tenantID, doc.DocumentID, doc,
		shared.SystemActor(s.tenantID, appfiscal.BillingSyncSource))
	require.NoError(t, err)
	s.purchase(t, "C-1", "2026-03-08")
}

func TestDeclarationHandler_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	s.seedMarch(t)

	w := s.do(t, http.MethodPost, "/api/v1/declarations/calculate", map[string]any{"month": 3, "year": 2026})
	requireStatus(t, w, http.StatusOK)
	d := decodeData[appfiscal.DeclarationResponse](t, w)
	assert.Equal(t, "DEC-IVA-032026-000001", d.DeclarationNumber)
	assert.Equal(t, "calculated", d.Status)
	assert.True(t, decimal.NewFromInt(80).Equal(d.IVAToPay))
	assert.True(t, d.Validated, "errors: %v", d.ValidationErrors)

	path := "/api/v1/declarations/" + d.ID.String()

	w = s.do(t, http.MethodGet, path, nil)
	requireStatus(t, w, http.StatusOK)
	assert.Equal(t, d.DeclarationNumber, decodeData[appfiscal.DeclarationResponse](t, w).DeclarationNumber)

	w = s.do(t, http.MethodPost, path+"/file", nil)
	requireStatus(t, w, http.StatusOK)
	filed := decodeData[appfiscal.DeclarationResponse](t, w)
	assert.Equal(t, "filed", filed.Status)
	assert.True(t, strings.HasPrefix(filed.XMLContent, "<?xml"))

	t.Run("a filed month cannot be recalculated", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/declarations/calculate", map[string]any{"month": 3, "year": 2026})
		requireStatus(t, w, http.StatusConflict)
		assert.Equal(t, "INVALID_STATE", errorCode(t, w))
	})

	t.Run("payment must cover the IVA due", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path+"/payment", map[string]any{"amount": "50", "reference": "BDV-1"})
		requireStatus(t, w, http.StatusBadRequest)
		assert.Equal(t, "INVALID_AMOUNT", errorCode(t, w))
	})

	t.Run("payment requires a reference", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path+"/payment", map[string]any{"amount": "80"})
		requireStatus(t, w, http.StatusBadRequest)
	})

	w = s.do(t, http.MethodPost, path+"/payment", map[string]any{"amount": "80", "reference": "BDV-123456"})
	requireStatus(t, w, http.StatusOK)
	paid := decodeData[appfiscal.DeclarationResponse](t, w)
	assert.Equal(t, "paid", paid.Status)

	w = s.do(t, http.MethodDelete, path, nil)
	requireStatus(t, w, http.StatusConflict)

	w = s.do(t, http.MethodGet, "/api/v1/declarations?year=2026", nil)
	requireStatus(t, w, http.StatusOK)
	assert.Len(t, decodeData[[]appfiscal.DeclarationResponse](t, w), 1)
}

func TestDeclarationHandler_Validation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/declarations/calculate", map[string]any{"month": 13, "year": 2026})
	requireStatus(t, w, http.StatusBadRequest)

	w = s.do(t, http.MethodPost, "/api/v1/declarations/calculate", map[string]any{"month": 1, "year": 2026})
	requireStatus(t, w, http.StatusOK)
	d := decodeData[appfiscal.DeclarationResponse](t, w)
	assert.True(t, d.IVAToPay.IsZero())

	w = s.do(t, http.MethodDelete, "/api/v1/declarations/"+d.ID.String(), nil)
	requireStatus(t, w, http.StatusNoContent)

	w = s.do(t, http.MethodGet, "/api/v1/declarations/"+d.ID.String(), nil)
	requireStatus(t, w, http.StatusNotFound)

	w = s.do(t, http.MethodGet, "/api/v1/declarations?status=open", nil)
	requireStatus(t, w, http.StatusBadRequest)
}
