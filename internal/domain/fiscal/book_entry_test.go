package fiscal

import (
	"strings"
	"testing"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesInput() BookEntryInput {
	return BookEntryInput{
		OperationDate:        day(2026, 3, 12),
		Counterparty:         Counterparty{ID: "C-1", Name: "Comercial Andes", RIF: "J-30123456-5"},
		InvoiceNumber:        "FAC-0001",
		InvoiceControlNumber: "00-000101",
		BaseAmount:           dec("1000"),
		IVARate:              dec("16"),
		IVAAmount:            dec("160"),
		IsElectronic:         true,
		ElectronicCode:       "00-000101",
	}
}

func TestNewSalesBookEntry(t *testing.T) {
	tenantID := uuid.New()
	actor := testActor(tenantID)

	t.Run("derives total, period and status", func(t *testing.T) {
		e, err := NewSalesBookEntry(tenantID, actor, salesInput())
		require.NoError(t, err)
		assert.True(t, e.TotalAmount.Equal(dec("1160")))
		assert.Equal(t, 3, e.Month)
		assert.Equal(t, 2026, e.Year)
		assert.Equal(t, BookEntryConfirmed, e.Status)
		assert.Equal(t, TransactionSale, e.TransactionType)
		assert.Equal(t, SalesBook, e.Book)
		assert.False(t, e.IsForeignCurrency)
	})

	t.Run("total subtracts withheld IVA", func(t *testing.T) {
		in := salesInput()
		in.WithheldIVAAmount = dec("120")
		e, err := NewSalesBookEntry(tenantID, actor, in)
		require.NoError(t, err)
		assert.True(t, e.TotalAmount.Equal(dec("1040")))
	})

	t.Run("draft flag", func(t *testing.T) {
		in := salesInput()
		in.Draft = true
		e, err := NewSalesBookEntry(tenantID, actor, in)
		require.NoError(t, err)
		assert.Equal(t, BookEntryDraft, e.Status)
		require.NoError(t, e.Confirm())
		assert.Equal(t, BookEntryConfirmed, e.Status)
		assert.Error(t, e.Confirm())
	})

	tests := []struct {
		name   string
		mutate func(*BookEntryInput)
		code   string
	}{
		{"illegal rate", func(in *BookEntryInput) { in.IVARate = dec("12"); in.IVAAmount = dec("120") }, "INVALID_RATE"},
		{"bad RIF", func(in *BookEntryInput) { in.Counterparty.RIF = "30123456" }, "INVALID_RIF"},
		{"missing invoice", func(in *BookEntryInput) { in.InvoiceNumber = " " }, "REQUIRED_FIELD"},
		{"iva mismatch", func(in *BookEntryInput) { in.IVAAmount = dec("150") }, "INVALID_AMOUNT"},
		{"total mismatch", func(in *BookEntryInput) { in.TotalAmount = dec("1100") }, "INVALID_AMOUNT"},
		{"purchase type in sales book", func(in *BookEntryInput) { in.TransactionType = TransactionImport }, "INVALID_INPUT"},
		{"electronic without code", func(in *BookEntryInput) { in.ElectronicCode = "" }, "REQUIRED_FIELD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := salesInput()
			tt.mutate(&in)
			_, err := NewSalesBookEntry(tenantID, actor, in)
			assert.Equal(t, tt.code, shared.CodeOf(err))
		})
	}
}

func TestNewPurchaseBookEntry(t *testing.T) {
	tenantID := uuid.New()
	in := salesInput()
	in.TransactionType = TransactionImport
	e, err := NewPurchaseBookEntry(tenantID, testActor(tenantID), in)
	require.NoError(t, err)
	assert.False(t, e.IsElectronic, "purchase rows are never electronic")
	assert.Empty(t, e.ElectronicCode)
	assert.Equal(t, "I", e.TransactionType.ExportCode())
}

func TestBookEntryLifecycle(t *testing.T) {
	tenantID := uuid.New()
	actor := testActor(tenantID)

	t.Run("update recomputes total", func(t *testing.T) {
		e, err := NewSalesBookEntry(tenantID, actor, salesInput())
		require.NoError(t, err)
		in := salesInput()
		in.BaseAmount = dec("2000")
		in.IVAAmount = dec("320")
		in.TotalAmount = dec("1")
		require.NoError(t, e.Update(actor, in))
		assert.True(t, e.TotalAmount.Equal(dec("2320")))
	})

	t.Run("annul then nothing else", func(t *testing.T) {
		e, err := NewSalesBookEntry(tenantID, actor, salesInput())
		require.NoError(t, err)
		assert.Equal(t, "REQUIRED_FIELD", shared.CodeOf(e.Annul(actor, "")))
		require.NoError(t, e.Annul(actor, "Factura emitida por error"))
		assert.Equal(t, BookEntryAnnulled, e.Status)
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(e.Annul(actor, "otra")))
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(e.Update(actor, salesInput())))
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(e.CheckDeletable()))
	})

	t.Run("exported is frozen", func(t *testing.T) {
		e, err := NewSalesBookEntry(tenantID, actor, salesInput())
		require.NoError(t, err)
		e.MarkExported(day(2026, 4, 1))
		assert.Equal(t, BookEntryExported, e.Status)
		assert.True(t, e.Status.InBook())
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(e.Update(actor, salesInput())))
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(e.CheckDeletable()))
	})
}

func TestNearestIVARate(t *testing.T) {
	assert.True(t, NearestIVARate(dec("1000"), dec("159")).Equal(dec("16")))
	assert.True(t, NearestIVARate(dec("1000"), dec("81")).Equal(dec("8")))
	assert.True(t, NearestIVARate(dec("1000"), dec("1")).Equal(decimal.Zero))
}

func TestRenderBookTXT(t *testing.T) {
	tenantID := uuid.New()
	actor := testActor(tenantID)
	in := salesInput()
	in.Counterparty.Name = strings.Repeat("A", 60)
	in.TransactionType = TransactionExport
	sale, err := NewSalesBookEntry(tenantID, actor, in)
	require.NoError(t, err)

	out := RenderBookTXT(SalesBook, []*BookEntry{&sale.BookEntry})
	cols := strings.Split(strings.TrimSuffix(out, "\n"), "\t")
	require.Len(t, cols, 14)
	assert.Equal(t, "12/03/2026", cols[0])
	assert.Equal(t, "E", cols[1])
	assert.Equal(t, "J301234565", cols[2])
	assert.Len(t, cols[3], 50)
	assert.Equal(t, "1000.00", cols[6])
	assert.Equal(t, "16.00", cols[7])
	assert.Equal(t, "160.00", cols[8])
	assert.Equal(t, "0.00", cols[9])
	assert.Equal(t, "", cols[10])
	assert.Equal(t, "1160.00", cols[11])
	assert.Equal(t, "E", cols[12])
	assert.Equal(t, "00-000101", cols[13])

	purchase, err := NewPurchaseBookEntry(tenantID, actor, salesInput())
	require.NoError(t, err)
	out = RenderBookTXT(PurchaseBook, []*BookEntry{&purchase.BookEntry})
	cols = strings.Split(strings.TrimSuffix(out, "\n"), "\t")
	require.Len(t, cols, 12)
	assert.Equal(t, "R", cols[1])
}
