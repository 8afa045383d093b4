package accounting

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	accounts []Account
	cash     *Account
	payable  *Account
	capital  *Account
	sales    *Account
	rent     *Account
	entries  []JournalEntry
}

func newLedgerFixture(t *testing.T) ledgerFixture {
	t.Helper()
	tenantID := uuid.New()
	f := ledgerFixture{
		cash:    mustAccount(t, tenantID, "1101", "Caja", AccountTypeAsset),
		payable: mustAccount(t, tenantID, "2201", "Proveedores", AccountTypeLiability),
		capital: mustAccount(t, tenantID, "3101", "Capital Social", AccountTypeEquity),
		sales:   mustAccount(t, tenantID, "4101", "Ventas", AccountTypeIncome),
		rent:    mustAccount(t, tenantID, "5101", "Alquiler", AccountTypeExpense),
	}
	f.accounts = []Account{*f.rent, *f.cash, *f.sales, *f.payable, *f.capital}
	actor := testActor(tenantID)
	post := func(d time.Time, desc string, lines ...LineInput) {
		e, err := NewJournalEntry(tenantID, actor, d, desc, lines, false, nil)
		require.NoError(t, err)
		f.entries = append(f.entries, *e)
	}
	post(day(2026, 1, 1), "Aporte", LineInput{Account: f.cash, Debit: dec("5000")}, LineInput{Account: f.capital, Credit: dec("5000")})
	post(day(2026, 1, 10), "Venta", LineInput{Account: f.cash, Debit: dec("2000")}, LineInput{Account: f.sales, Credit: dec("2000")})
	post(day(2026, 1, 20), "Alquiler", LineInput{Account: f.rent, Debit: dec("800")}, LineInput{Account: f.payable, Credit: dec("800")})
	return f
}

func TestBuildProfitAndLoss(t *testing.T) {
	f := newLedgerFixture(t)
	pl := BuildProfitAndLoss(day(2026, 1, 1), day(2026, 1, 31), f.accounts, f.entries)
	assert.True(t, pl.TotalRevenue.Equal(dec("2000")))
	assert.True(t, pl.TotalExpenses.Equal(dec("800")))
	assert.True(t, pl.NetProfit.Equal(dec("1200")))
	require.Len(t, pl.Revenues, 1)
	assert.Equal(t, "4101", pl.Revenues[0].Code)
}

func TestBuildBalanceSheet(t *testing.T) {
	f := newLedgerFixture(t)
	bs := BuildBalanceSheet(day(2026, 1, 31), f.accounts, f.entries)

	assert.True(t, bs.Assets.Total.Equal(dec("7000")))
	assert.True(t, bs.Liabilities.Total.Equal(dec("800")), "liabilities are presented positive")
	assert.True(t, bs.NetIncome.Equal(dec("1200")))
	assert.True(t, bs.Equity.Total.Equal(dec("6200")))

	last := bs.Equity.Lines[len(bs.Equity.Lines)-1]
	assert.Equal(t, NetIncomeLineCode, last.Code)
	assert.Equal(t, NetIncomeLineName, last.Name)
	assert.True(t, last.IsSynthetic)

	assert.True(t, bs.Verification.IsBalanced)
	assert.True(t, bs.Verification.Difference.IsZero())
}

func TestBuildBalanceSheet_ReportsDifference(t *testing.T) {
	f := newLedgerFixture(t)
	// a one-sided line that bypassed validation shows up as a difference, not an error
	f.entries = append(f.entries, JournalEntry{Lines: []JournalLine{{AccountID: f.cash.ID, Debit: dec("10")}}})
	bs := BuildBalanceSheet(day(2026, 1, 31), f.accounts, f.entries)
	assert.False(t, bs.Verification.IsBalanced)
	assert.True(t, bs.Verification.Difference.Equal(dec("10")))
}

func TestBuildTrialBalance(t *testing.T) {
	f := newLedgerFixture(t)
	tb := BuildTrialBalance(f.accounts, f.entries, false)
	assert.Len(t, tb.Accounts, 5)
	assert.Equal(t, "1101", tb.Accounts[0].AccountCode, "sorted by code")
	assert.True(t, tb.TotalDebits.Equal(dec("7800")))
	assert.True(t, tb.TotalDebits.Equal(tb.TotalCredits))
	assert.True(t, tb.IsBalanced)

	extra := mustAccount(t, f.cash.TenantID, "1102", "Banco", AccountTypeAsset)
	accounts := append(f.accounts, *extra)
	assert.Len(t, BuildTrialBalance(accounts, f.entries, false).Accounts, 5)
	assert.Len(t, BuildTrialBalance(accounts, f.entries, true).Accounts, 6)
}

func TestBuildGeneralLedger(t *testing.T) {
	f := newLedgerFixture(t)
	gl := BuildGeneralLedger(f.cash, f.entries[:1], f.entries[1:])
	assert.True(t, gl.OpeningBalance.Equal(dec("5000")))
	require.Len(t, gl.Movements, 1)
	assert.True(t, gl.Movements[0].Balance.Equal(dec("7000")))
	assert.True(t, gl.ClosingBalance.Equal(dec("7000")))

	all := BuildGeneralLedger(f.cash, nil, f.entries)
	assert.Equal(t, 2, all.Total)
	page := all.Page(2, 1)
	require.Len(t, page.Movements, 1)
	assert.True(t, page.Movements[0].Balance.Equal(dec("7000")))
	assert.Empty(t, all.Page(5, 1).Movements)
}

func TestAccountBalance(t *testing.T) {
	f := newLedgerFixture(t)
	assert.True(t, AccountBalance(f.cash, f.entries).Equal(dec("7000")))
	assert.True(t, AccountBalance(f.payable, f.entries).Equal(dec("800")))
	assert.True(t, AccountBalance(f.sales, f.entries).Equal(dec("2000")))
}
