package accounting_test

import (
	"context"
	"testing"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBillingDocument(tenantID uuid.UUID, docType, number string) fiscal.BillingDocument {
	return fiscal.BillingDocument{
		DocumentID:     uuid.New(),
		TenantID:       tenantID,
		ControlNumber:  "00-000123",
		Type:           docType,
		DocumentNumber: number,
		IssueDate:      day(2026, time.March, 12),
		Customer:       fiscal.BillingCustomer{Name: "Inversiones Caribe C.A.", RIF: "J-12345678-9"},
		Subtotal:       dec("1000"),
		TaxAmount:      dec("160"),
		Total:          dec("1160"),
		Currency:       "VES",
	}
}

func linesByCode(entry *accounting.JournalEntry) map[string]accounting.JournalLine {
	out := map[string]accounting.JournalLine{}
	for _, l := range entry.Lines {
		out[l.AccountCode] = l
	}
	return out
}

func TestBillingPostingHandler_Post(t *testing.T) {
	ctx := context.Background()

	t.Run("invoice debits receivables and credits revenue and IVA", func(t *testing.T) {
		l := newLedger(t)
		doc := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0001")

		entry, err := l.billing.Post(ctx, &doc)
		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.True(t, entry.IsAutomatic)
		assert.Equal(t, "Factura F-0001 - Inversiones Caribe C.A.", entry.Description)

		lines := linesByCode(entry)
		require.Len(t, lines, 3)
		assert.True(t, dec("1160").Equal(lines[accounting.AccountsReceivable.Code].Debit))
		assert.True(t, dec("1000").Equal(lines[accounting.SalesRevenue.Code].Credit))
		assert.True(t, dec("160").Equal(lines[accounting.IVAPayable.Code].Credit))
		assert.Equal(t, doc.DocumentID.String(), entry.Metadata[accounting.MetaBillingDocumentID])
	})

	t.Run("credit note reverses the sides with positive amounts", func(t *testing.T) {
		l := newLedger(t)
		doc := newBillingDocument(l.tenantID, fiscal.BillingCreditNote, "NC-0001")
		doc.Subtotal, doc.TaxAmount, doc.Total = dec("-1000"), dec("-160"), dec("-1160")

		entry, err := l.billing.Post(ctx, &doc)
		require.NoError(t, err)
		assert.Equal(t, "Nota de Crédito NC-0001 - Inversiones Caribe C.A.", entry.Description)

		lines := linesByCode(entry)
		require.Len(t, lines, 3)
		assert.True(t, dec("1160").Equal(lines[accounting.AccountsReceivable.Code].Credit))
		assert.True(t, lines[accounting.AccountsReceivable.Code].Debit.IsZero())
		assert.True(t, dec("1000").Equal(lines[accounting.SalesRevenue.Code].Debit))
		assert.True(t, dec("160").Equal(lines[accounting.IVAPayable.Code].Debit))
		for _, line := range entry.Lines {
			assert.False(t, line.Debit.IsNegative() || line.Credit.IsNegative(), line.AccountCode)
		}
	})

	t.Run("invoice and credit note net to zero on every account", func(t *testing.T) {
		l := newLedger(t)
		invoice := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0010")
		credit := newBillingDocument(l.tenantID, fiscal.BillingCreditNote, "NC-0010")

		_, err := l.billing.Post(ctx, &invoice)
		require.NoError(t, err)
		_, err = l.billing.Post(ctx, &credit)
		require.NoError(t, err)

		tb, err := l.journal.GetTrialBalance(ctx, l.tenantID, appaccounting.TrialBalanceQuery{})
		require.NoError(t, err)
		require.NotEmpty(t, tb.Accounts)
		for _, row := range tb.Accounts {
			assert.True(t, row.Balance.IsZero(), "%s balance %s", row.AccountCode, row.Balance)
		}
		assert.True(t, tb.IsBalanced)
	})

	t.Run("document without tax has no IVA line", func(t *testing.T) {
		l := newLedger(t)
		doc := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0002")
		doc.TaxAmount = dec("0")
		doc.Total = dec("1000")

		entry, err := l.billing.Post(ctx, &doc)
		require.NoError(t, err)
		assert.Len(t, entry.Lines, 2)
	})

	t.Run("zero total is skipped", func(t *testing.T) {
		l := newLedger(t)
		doc := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0003")
		doc.Subtotal, doc.TaxAmount, doc.Total = dec("0"), dec("0"), dec("0")

		entry, err := l.billing.Post(ctx, &doc)
		require.NoError(t, err)
		assert.Nil(t, entry)
	})

	t.Run("foreign currency is converted with the exchange rate", func(t *testing.T) {
		l := newLedger(t)
		doc := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0004")
		doc.Currency = "USD"
		doc.ExchangeRate = dec("36.50")
		doc.Subtotal, doc.TaxAmount, doc.Total = dec("100"), dec("16"), dec("116")

		entry, err := l.billing.Post(ctx, &doc)
		require.NoError(t, err)
		assert.True(t, dec("4234").Equal(entry.TotalDebit()), "got %s", entry.TotalDebit())
	})

	t.Run("the same document posts once", func(t *testing.T) {
		l := newLedger(t)
		doc := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0005")

		first, err := l.billing.Post(ctx, &doc)
		require.NoError(t, err)
		second, err := l.billing.Post(ctx, &doc)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		page, err := l.journal.ListJournalEntries(ctx, l.tenantID, appaccounting.JournalEntryListFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})
}

func TestBillingPostingHandler_MigratedSchema(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewSQLiteSchemaDB(t)
	l := newLedgerOn(t, db)

	invoice := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0200")
	credit := newBillingDocument(l.tenantID, fiscal.BillingCreditNote, "NC-0200")
	credit.TaxAmount = dec("0")
	credit.Subtotal, credit.Total = dec("400"), dec("400")

	_, err := l.billing.Post(ctx, &invoice)
	require.NoError(t, err)
	entry, err := l.billing.Post(ctx, &credit)
	require.NoError(t, err, "credit note must satisfy the journal_lines checks")
	require.Len(t, entry.Lines, 2)

	var negative, twoSided int64
	require.NoError(t, db.Table("journal_lines").Where("debit < 0 OR credit < 0").Count(&negative).Error)
	require.NoError(t, db.Table("journal_lines").Where("debit <> 0 AND credit <> 0").Count(&twoSided).Error)
	assert.Zero(t, negative)
	assert.Zero(t, twoSided)

	t.Run("the schema refuses negative and two-sided lines", func(t *testing.T) {
		insert := `INSERT INTO journal_lines (id, entry_id, tenant_id, line_no, account_id, account_code, account_name, debit, credit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		line := entry.Lines[0]
		assert.Error(t, db.Exec(insert, uuid.New(), entry.ID, l.tenantID, 90, line.AccountID, line.AccountCode, line.AccountName, -1, 0).Error)
		assert.Error(t, db.Exec(insert, uuid.New(), entry.ID, l.tenantID, 91, line.AccountID, line.AccountCode, line.AccountName, 1, 1).Error)
		assert.NoError(t, db.Exec(insert, uuid.New(), entry.ID, l.tenantID, 92, line.AccountID, line.AccountCode, line.AccountName, 0, 0).Error)
	})
}

func TestBillingPostingHandler_Handle(t *testing.T) {
	l := newLedger(t)
	doc := newBillingDocument(l.tenantID, fiscal.BillingInvoice, "F-0100")

	assert.Equal(t, []string{fiscal.EventTypeBillingDocumentIssued}, l.billing.EventTypes())
	require.NoError(t, l.billing.Handle(context.Background(), fiscal.NewBillingDocumentIssuedEvent(doc)))
	assert.Contains(t, l.publisher.Types(), accounting.EventTypeJournalEntryPosted)
}
