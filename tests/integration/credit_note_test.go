package integration

import (
	"net/http"
	"testing"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerFlow_CreditNoteReversesInvoice(t *testing.T) {
	db := NewSharedTestDB(t)
	s := newLedgerServer(t, db)
	tenantID := uuid.New()

	s.asSystem(tenantID)
	w := s.do(t, http.MethodPost, "/internal/billing-documents", billingPayload(uuid.New(), "FAC-0300"))
	requireStatus(t, w, http.StatusAccepted)

	credit := billingPayload(uuid.New(), "NC-0300")
	credit["type"] = "credit_note"
	credit["issueDate"] = "2026-03-22T00:00:00Z"
	w = s.do(t, http.MethodPost, "/internal/billing-documents", credit)
	requireStatus(t, w, http.StatusAccepted)
	s.as(tenantID)

	assert.EqualValues(t, 1, db.Count("journal_entries", "tenant_id = ? AND is_automatic AND description LIKE ?", tenantID, "Nota de Crédito NC-0300%"))
	assert.EqualValues(t, 6, db.Count("journal_lines", "tenant_id = ?", tenantID))
	assert.EqualValues(t, 0, db.Count("journal_lines", "tenant_id = ? AND (debit < 0 OR credit < 0)", tenantID))

	w = s.do(t, http.MethodGet, "/api/v1/reports/trial-balance?from=2026-03-01&to=2026-03-31", nil)
	requireStatus(t, w, http.StatusOK)
	tb := decodeData[accounting.TrialBalance](t, w)
	require.NotEmpty(t, tb.Accounts)
	for _, row := range tb.Accounts {
		assert.True(t, row.Balance.IsZero(), "%s balance %s", row.AccountCode, row.Balance)
	}
	assert.True(t, tb.IsBalanced)
}
