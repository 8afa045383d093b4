package fiscal

import (
	"testing"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func billingInvoice() *BillingDocument {
	return &BillingDocument{
		DocumentID:     uuid.New(),
		ControlNumber:  "00-001234",
		Type:           BillingInvoice,
		DocumentNumber: "FAC-2026-00000012",
		IssueDate:      day(2026, 3, 20),
		Customer:       BillingCustomer{ID: "CUST-9", Name: "Comercial Andes", RIF: "J-30123456-5"},
		Subtotal:       dec("1000"),
		TaxAmount:      dec("160"),
		Total:          dec("1160"),
		Taxes:          []BillingTax{{Type: "IVA", Rate: dec("16"), Amount: dec("160")}},
		Currency:       "VES",
	}
}

func hasDiag(diags []Diagnostic, code string) bool {
	for _, d := range diags {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestBuildSalesEntryFromBilling(t *testing.T) {
	tenantID := uuid.New()
	actor := shared.SystemActor(tenantID, "billing-sync")

	t.Run("clean VES invoice", func(t *testing.T) {
		doc := billingInvoice()
		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.Empty(t, diags)
		assert.Equal(t, BookEntryConfirmed, e.Status)
		assert.Equal(t, TransactionSale, e.TransactionType)
		assert.True(t, e.IsElectronic)
		assert.Equal(t, "00-001234", e.ElectronicCode)
		assert.Equal(t, 3, e.Month)
		assert.True(t, e.TotalAmount.Equal(dec("1160")))
		require.NotNil(t, e.BillingDocumentID)
		assert.Equal(t, doc.DocumentID, *e.BillingDocumentID)
		assert.True(t, ValidateForSENIAT(&e.BookEntry).Valid)
	})

	t.Run("foreign currency uses VES fields and keeps originals", func(t *testing.T) {
		doc := billingInvoice()
		doc.Currency = "USD"
		doc.ExchangeRate = dec("36.5")
		doc.Subtotal, doc.TaxAmount, doc.Total = dec("100"), dec("16"), dec("116")
		doc.Taxes = []BillingTax{{Type: "IVA", Rate: dec("16"), Amount: dec("16")}}
		doc.SubtotalVES, doc.TaxAmountVES, doc.TotalVES = dec("3650"), dec("584"), dec("4234")

		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.Empty(t, diags)
		assert.True(t, e.IsForeignCurrency)
		assert.Equal(t, valueobject.USD, e.OriginalCurrency)
		assert.True(t, e.BaseAmount.Equal(dec("3650")))
		assert.True(t, e.IVAAmount.Equal(dec("584")))
		assert.True(t, e.TotalAmount.Equal(dec("4234")))
		assert.True(t, e.OriginalBaseAmount.Equal(dec("100")))
		assert.True(t, e.ExchangeRate.Equal(dec("36.5")))
	})

	t.Run("foreign currency without VES fields multiplies by rate", func(t *testing.T) {
		doc := billingInvoice()
		doc.Currency = "USD"
		doc.ExchangeRate = dec("36.5")
		doc.Subtotal, doc.TaxAmount, doc.Total = dec("100"), dec("16"), dec("116")
		doc.Taxes = []BillingTax{{Type: "IVA", Rate: dec("16"), Amount: dec("16")}}

		e, _, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.True(t, e.BaseAmount.Equal(dec("3650")))
		assert.True(t, e.IVAAmount.Equal(dec("584")))
		assert.True(t, e.TotalAmount.Equal(dec("4234")))
	})

	t.Run("heals stale tax amount", func(t *testing.T) {
		doc := billingInvoice()
		doc.Taxes[0].Amount = dec("150")
		doc.Total = dec("1150")

		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.True(t, hasDiag(diags, DiagTaxAmountHealed))
		assert.True(t, hasDiag(diags, DiagTotalHealed))
		assert.True(t, e.IVAAmount.Equal(dec("160")))
		assert.True(t, e.TotalAmount.Equal(dec("1160")))
	})

	t.Run("drift inside tolerance is kept", func(t *testing.T) {
		doc := billingInvoice()
		doc.Taxes[0].Amount = dec("158.5")
		doc.Total = dec("1158.5")

		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.Empty(t, diags)
		assert.True(t, e.IVAAmount.Equal(dec("158.5")))
	})

	t.Run("no taxes and no tax amount is exempt", func(t *testing.T) {
		doc := billingInvoice()
		doc.Taxes = nil
		doc.TaxAmount = dec("0")
		doc.Total = dec("1000")

		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.Empty(t, diags)
		assert.True(t, e.IVARate.IsZero())
		assert.True(t, e.IVAAmount.IsZero())
	})

	t.Run("no tax lines but a tax amount infers the rate", func(t *testing.T) {
		doc := billingInvoice()
		doc.Taxes = nil

		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.True(t, hasDiag(diags, DiagRateInferred))
		assert.True(t, e.IVARate.Equal(dec("16")))
	})

	t.Run("defaults missing customer", func(t *testing.T) {
		doc := billingInvoice()
		doc.Customer = BillingCustomer{}

		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.True(t, hasDiag(diags, DiagCustomerDefaulted))
		assert.Equal(t, DefaultCustomerName, e.Counterparty.Name)
		assert.Equal(t, DefaultCustomerRIF, e.Counterparty.RIF)
		assert.Equal(t, "BILLING-"+doc.DocumentID.String(), e.Counterparty.ID)
	})

	t.Run("normalizes customer RIF", func(t *testing.T) {
		doc := billingInvoice()
		doc.Customer.RIF = "12.345.678"

		e, diags, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		require.NoError(t, err)
		assert.True(t, hasDiag(diags, DiagRIFNormalized))
		assert.Equal(t, "V-12345678-5", e.Counterparty.RIF)
	})

	t.Run("maps document types", func(t *testing.T) {
		assert.Equal(t, TransactionCreditNote, TransactionTypeForBilling("credit_note"))
		assert.Equal(t, TransactionDebitNote, TransactionTypeForBilling("debit_note"))
		assert.Equal(t, TransactionSale, TransactionTypeForBilling("delivery_note"))
		assert.Equal(t, TransactionSale, TransactionTypeForBilling("proforma"))
	})

	t.Run("requires document number", func(t *testing.T) {
		doc := billingInvoice()
		doc.DocumentNumber = ""
		_, _, err := BuildSalesEntryFromBilling(tenantID, actor, doc.DocumentID, doc, DefaultSyncOptions())
		assert.Equal(t, "REQUIRED_FIELD", shared.CodeOf(err))
	})
}

func TestOverwriteFromKeepsIdentity(t *testing.T) {
	oldTenant, newTenant := uuid.New(), uuid.New()
	existing, err := NewSalesBookEntry(oldTenant, testActor(oldTenant), salesInput())
	require.NoError(t, err)
	id, created := existing.ID, existing.CreatedAt

	doc := billingInvoice()
	fresh, _, err := BuildSalesEntryFromBilling(newTenant, shared.SystemActor(newTenant, "billing-sync"), doc.DocumentID, doc, DefaultSyncOptions())
	require.NoError(t, err)

	require.True(t, existing.CanResync())
	existing.OverwriteFrom(&fresh.BookEntry)
	assert.Equal(t, id, existing.ID)
	assert.Equal(t, created, existing.CreatedAt)
	assert.Equal(t, newTenant, existing.TenantID)
	assert.Equal(t, doc.DocumentNumber, existing.InvoiceNumber)

	existing.MarkExported(day(2026, 4, 1))
	assert.False(t, existing.CanResync())
}
