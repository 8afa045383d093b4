package fiscal

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeBook(t *testing.T) {
	tenantID := uuid.New()
	actor := testActor(tenantID)

	mk := func(invoice, customer, base, rate, iva string, electronic bool) *BookEntry {
		in := salesInput()
		in.InvoiceNumber = invoice
		in.Counterparty.ID = customer
		in.BaseAmount, in.IVARate, in.IVAAmount = dec(base), dec(rate), dec(iva)
		in.IsElectronic = electronic
		if !electronic {
			in.ElectronicCode = ""
		}
		e, err := NewSalesBookEntry(tenantID, actor, in)
		require.NoError(t, err)
		return &e.BookEntry
	}

	s := SummarizeBook(3, 2026, []*BookEntry{
		mk("1", "A", "100", "16", "16", true),
		mk("2", "B", "200", "8", "16", false),
		mk("3", "A", "50", "16", "8", true),
	})

	assert.Equal(t, 3, s.TotalEntries)
	assert.True(t, s.TotalBaseAmount.Equal(dec("350")))
	assert.True(t, s.TotalIVAAmount.Equal(dec("40")))
	assert.True(t, s.TotalAmount.Equal(dec("390")))
	assert.Equal(t, 2, s.ElectronicInvoices)
	assert.Equal(t, 1, s.PhysicalInvoices)

	require.Len(t, s.ByCounterparty, 2)
	assert.Equal(t, "A", s.ByCounterparty[0].ID)
	assert.Equal(t, 2, s.ByCounterparty[0].Count)
	assert.True(t, s.ByCounterparty[0].Total.Equal(dec("174")))

	require.Len(t, s.ByIVARate, 2)
	assert.True(t, s.ByIVARate[0].IVARate.Equal(dec("16")))
	assert.True(t, s.ByIVARate[0].TotalIVA.Equal(dec("24")))
}

func TestSummarizeWithholdings(t *testing.T) {
	tenantID := uuid.New()
	actor := testActor(tenantID)

	posted, err := NewIVAWithholding(tenantID, actor, "RET-IVA-2026-000001", ivaInput())
	require.NoError(t, err)
	require.NoError(t, posted.MarkPosted(uuid.New()))

	in := ivaInput()
	in.OperationType = IVACompraServicios
	second, err := NewIVAWithholding(tenantID, actor, "RET-IVA-2026-000002", in)
	require.NoError(t, err)
	require.NoError(t, second.MarkPosted(uuid.New()))

	draft, err := NewIVAWithholding(tenantID, actor, "RET-IVA-2026-000003", ivaInput())
	require.NoError(t, err)

	s := SummarizeWithholdings(TaxIVA, 3, 2026, IVASummaryItems([]*IVAWithholding{posted, second, draft}))
	assert.Equal(t, 2, s.TotalWithholdings)
	assert.True(t, s.TotalAmount.Equal(dec("240")))
	require.Len(t, s.ByBeneficiary, 1)
	assert.Equal(t, 2, s.ByBeneficiary[0].Count)
	require.Len(t, s.ByOperationType, 2)
	assert.Equal(t, "compra_bienes", s.ByOperationType[0].OperationType)
}
