package accounting_test

import (
	"context"
	"testing"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodService_CloseAndReopen(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	cash := l.account(t, "101", "Caja", accounting.AccountTypeAsset)
	revenue := l.account(t, "401", "Ventas", accounting.AccountTypeIncome)
	rent := l.account(t, "501", "Alquiler", accounting.AccountTypeExpense)

	period, err := l.periods.Create(ctx, l.tenantID, l.actor, appaccounting.CreatePeriodRequest{
		Name:      "Enero 2026",
		StartDate: day(2026, time.January, 1),
		EndDate:   day(2026, time.January, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, 2026, period.FiscalYear)
	assert.Equal(t, "open", period.Status)

	l.post(t, day(2026, time.January, 10), cash.ID, revenue.ID, "1000.00")
	l.post(t, day(2026, time.January, 15), rent.ID, cash.ID, "400.00")

	closed, err := l.periods.Close(ctx, l.tenantID, l.actor, period.ID, "cierre mensual")
	require.NoError(t, err)
	assert.Equal(t, "closed", closed.Status)
	assert.True(t, dec("1000").Equal(closed.TotalRevenue))
	assert.True(t, dec("400").Equal(closed.TotalExpenses))
	assert.True(t, dec("600").Equal(closed.NetIncome))
	require.NotNil(t, closed.ClosingEntryID)
	assert.Contains(t, l.publisher.Types(), accounting.EventTypePeriodClosed)

	closing, err := l.journal.GetJournalEntry(ctx, l.tenantID, *closed.ClosingEntryID)
	require.NoError(t, err)
	assert.True(t, closing.IsAutomatic)
	assert.True(t, closing.TotalDebit.Equal(closing.TotalCredit))
	assert.Equal(t, "2026-01-31", closing.Date.Format("2006-01-02"))

	t.Run("closed period rejects new postings", func(t *testing.T) {
		_, err := l.journal.CreateJournalEntry(ctx, l.tenantID, l.actor, appaccounting.CreateJournalEntryRequest{
			Date:        day(2026, time.January, 20),
			Description: "Venta tardía",
			Lines: []appaccounting.JournalLineRequest{
				{AccountID: cash.ID, Debit: dec("10")},
				{AccountID: revenue.ID, Credit: dec("10")},
			},
		})
		require.Error(t, err)
		assert.Equal(t, "PERIOD_CLOSED", shared.CodeOf(err))
	})

	t.Run("closing twice is rejected", func(t *testing.T) {
		_, err := l.periods.Close(ctx, l.tenantID, l.actor, period.ID, "")
		require.Error(t, err)
		assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))
	})

	t.Run("reopen removes the closing entry", func(t *testing.T) {
		reopened, err := l.periods.Reopen(ctx, l.tenantID, period.ID)
		require.NoError(t, err)
		assert.Equal(t, "open", reopened.Status)
		assert.Nil(t, reopened.ClosingEntryID)
		assert.True(t, reopened.NetIncome.IsZero())

		_, err = l.journal.GetJournalEntry(ctx, l.tenantID, *closed.ClosingEntryID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		l.post(t, day(2026, time.January, 20), cash.ID, revenue.ID, "10.00")
	})
}

func TestPeriodService_CloseCarriesNetIncomeIntoEquity(t *testing.T) {
	tests := []struct {
		name      string
		revenue   string
		expense   string
		netIncome string
	}{
		{name: "profit", revenue: "1000", expense: "400", netIncome: "600"},
		{name: "loss", revenue: "200", expense: "500", netIncome: "-300"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l := newLedger(t)
			cash := l.account(t, "101", "Caja", accounting.AccountTypeAsset)
			capital := l.account(t, "301", "Capital social", accounting.AccountTypeEquity)
			revenue := l.account(t, "401", "Ventas", accounting.AccountTypeIncome)
			rent := l.account(t, "501", "Alquiler", accounting.AccountTypeExpense)

			period, err := l.periods.Create(ctx, l.tenantID, l.actor, appaccounting.CreatePeriodRequest{
				Name:      "Febrero 2026",
				StartDate: day(2026, time.February, 1),
				EndDate:   day(2026, time.February, 28),
			})
			require.NoError(t, err)

			l.post(t, day(2026, time.February, 2), cash.ID, capital.ID, "5000")
			l.post(t, day(2026, time.February, 10), cash.ID, revenue.ID, tt.revenue)
			l.post(t, day(2026, time.February, 15), rent.ID, cash.ID, tt.expense)

			asOf := day(2026, time.February, 28)
			before, err := l.journal.GetBalanceSheet(ctx, l.tenantID, asOf)
			require.NoError(t, err)
			require.True(t, before.Verification.IsBalanced)
			equityBefore := before.Equity.Total.Sub(before.NetIncome)
			assert.True(t, dec("5000").Equal(equityBefore), "got %s", equityBefore)

			closed, err := l.periods.Close(ctx, l.tenantID, l.actor, period.ID, "")
			require.NoError(t, err)
			assert.True(t, dec(tt.netIncome).Equal(closed.NetIncome), "got %s", closed.NetIncome)
			require.NotNil(t, closed.ClosingEntryID)

			closing, err := l.journal.GetJournalEntry(ctx, l.tenantID, *closed.ClosingEntryID)
			require.NoError(t, err)
			assert.True(t, closing.TotalDebit.Equal(closing.TotalCredit))
			assert.True(t, dec(tt.netIncome).Abs().Equal(closing.TotalDebit), "got %s", closing.TotalDebit)

			after, err := l.journal.GetBalanceSheet(ctx, l.tenantID, asOf)
			require.NoError(t, err)
			assert.True(t, after.Verification.IsBalanced)
			assert.True(t, equityBefore.Add(closed.NetIncome).Equal(after.Equity.Total),
				"equity %s, want %s + %s", after.Equity.Total, equityBefore, closed.NetIncome)
			assert.True(t, before.Assets.Total.Equal(after.Assets.Total))

			var retained decimal.Decimal
			for _, line := range after.Equity.Lines {
				if line.Code == accounting.RetainedEarnings.Code {
					retained = line.Balance
				}
			}
			assert.True(t, closed.NetIncome.Equal(retained), "retained earnings %s", retained)
		})
	}
}

func TestPeriodService_Lock(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	period, err := l.periods.Create(ctx, l.tenantID, l.actor, appaccounting.CreatePeriodRequest{
		Name:      "Febrero 2026",
		StartDate: day(2026, time.February, 1),
		EndDate:   day(2026, time.February, 28),
	})
	require.NoError(t, err)

	_, err = l.periods.Lock(ctx, l.tenantID, period.ID)
	require.Error(t, err, "open periods cannot be locked")
	assert.Equal(t, "INVALID_STATE", shared.CodeOf(err))

	_, err = l.periods.Close(ctx, l.tenantID, l.actor, period.ID, "")
	require.NoError(t, err)
	locked, err := l.periods.Lock(ctx, l.tenantID, period.ID)
	require.NoError(t, err)
	assert.Equal(t, "locked", locked.Status)

	_, err = l.periods.Reopen(ctx, l.tenantID, period.ID)
	require.Error(t, err, "locked periods must be unlocked before reopening")

	unlocked, err := l.periods.Unlock(ctx, l.tenantID, period.ID)
	require.NoError(t, err)
	assert.Equal(t, "closed", unlocked.Status)
}

func TestPeriodService_Create_Overlap(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)

	_, err := l.periods.Create(ctx, l.tenantID, l.actor, appaccounting.CreatePeriodRequest{
		Name:      "Q1 2026",
		StartDate: day(2026, time.January, 1),
		EndDate:   day(2026, time.March, 31),
	})
	require.NoError(t, err)

	_, err = l.periods.Create(ctx, l.tenantID, l.actor, appaccounting.CreatePeriodRequest{
		Name:      "Marzo 2026",
		StartDate: day(2026, time.March, 1),
		EndDate:   day(2026, time.March, 31),
	})
	require.Error(t, err)
	assert.Equal(t, "PERIOD_OVERLAP", shared.CodeOf(err))
}

func TestPeriodService_Delete(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	cash := l.account(t, "101", "Caja", accounting.AccountTypeAsset)
	revenue := l.account(t, "401", "Ventas", accounting.AccountTypeIncome)

	period, err := l.periods.Create(ctx, l.tenantID, l.actor, appaccounting.CreatePeriodRequest{
		Name:      "Marzo 2026",
		StartDate: day(2026, time.March, 1),
		EndDate:   day(2026, time.March, 31),
	})
	require.NoError(t, err)
	l.post(t, day(2026, time.March, 3), cash.ID, revenue.ID, "50")

	err = l.periods.Delete(ctx, l.tenantID, period.ID)
	require.Error(t, err)
	assert.Equal(t, "PERIOD_HAS_ENTRIES", shared.CodeOf(err))
}
