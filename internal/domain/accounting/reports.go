package accounting

import (
	"sort"
	"time"

	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountTotals accumulates raw debits and credits per account
type AccountTotals struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// FoldLines sums debits and credits per account over entries
func FoldLines(entries []JournalEntry) map[uuid.UUID]AccountTotals {
	out := make(map[uuid.UUID]AccountTotals)
	for _, e := range entries {
		for _, l := range e.Lines {
			t := out[l.AccountID]
			t.Debit = t.Debit.Add(l.Debit)
			t.Credit = t.Credit.Add(l.Credit)
			out[l.AccountID] = t
		}
	}
	return out
}

// AccountBalance folds entries into the natural balance of account
func AccountBalance(account *Account, entries []JournalEntry) decimal.Decimal {
	t := FoldLines(entries)[account.ID]
	return account.Type.NaturalBalance(t.Debit, t.Credit)
}

// ReportLine is one account row in a financial statement
type ReportLine struct {
	AccountID   uuid.UUID       `json:"account_id,omitempty"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	IsSynthetic bool            `json:"is_synthetic,omitempty"`
}

// ProfitAndLoss is the income statement of a date range
type ProfitAndLoss struct {
	From          time.Time       `json:"from"`
	To            time.Time       `json:"to"`
	Revenues      []ReportLine    `json:"revenues"`
	Expenses      []ReportLine    `json:"expenses"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetProfit     decimal.Decimal `json:"net_profit"`
}

// BuildProfitAndLoss sums income (credit-debit) and expense (debit-credit)
// accounts over entries already filtered to the range
func BuildProfitAndLoss(from, to time.Time, accounts []Account, entries []JournalEntry) ProfitAndLoss {
	totals := FoldLines(entries)
	pl := ProfitAndLoss{From: from, To: to, Revenues: []ReportLine{}, Expenses: []ReportLine{}}
	for _, a := range sortedByCode(accounts) {
		t, ok := totals[a.ID]
		if !ok {
			continue
		}
		line := ReportLine{AccountID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, Balance: a.Type.NaturalBalance(t.Debit, t.Credit)}
		switch a.Type {
		case AccountTypeIncome:
			pl.Revenues = append(pl.Revenues, line)
			pl.TotalRevenue = pl.TotalRevenue.Add(line.Balance)
		case AccountTypeExpense:
			pl.Expenses = append(pl.Expenses, line)
			pl.TotalExpenses = pl.TotalExpenses.Add(line.Balance)
		}
	}
	pl.NetProfit = pl.TotalRevenue.Sub(pl.TotalExpenses)
	return pl
}

// BalanceSheetSection groups lines with their total
type BalanceSheetSection struct {
	Lines []ReportLine    `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// BalanceVerification compares assets against liabilities plus equity.
// A non-zero difference is reported, never enforced.
type BalanceVerification struct {
	TotalAssets               decimal.Decimal `json:"total_assets"`
	TotalLiabilitiesAndEquity decimal.Decimal `json:"total_liabilities_and_equity"`
	Difference                decimal.Decimal `json:"difference"`
	IsBalanced                bool            `json:"is_balanced"`
}

// BalanceSheet is the financial position at a date
type BalanceSheet struct {
	AsOf         time.Time           `json:"as_of"`
	Assets       BalanceSheetSection `json:"assets"`
	Liabilities  BalanceSheetSection `json:"liabilities"`
	Equity       BalanceSheetSection `json:"equity"`
	NetIncome    decimal.Decimal     `json:"net_income"`
	Verification BalanceVerification `json:"verification"`
}

// BuildBalanceSheet folds every entry up to asOf. Liability and equity
// balances are presented positive; net income is appended to equity as a
// synthetic line.
func BuildBalanceSheet(asOf time.Time, accounts []Account, entries []JournalEntry) BalanceSheet {
	totals := FoldLines(entries)
	bs := BalanceSheet{
		AsOf:        asOf,
		Assets:      BalanceSheetSection{Lines: []ReportLine{}},
		Liabilities: BalanceSheetSection{Lines: []ReportLine{}},
		Equity:      BalanceSheetSection{Lines: []ReportLine{}},
	}
	var revenue, expenses decimal.Decimal
	for _, a := range sortedByCode(accounts) {
		t, ok := totals[a.ID]
		if !ok {
			continue
		}
		balance := a.Type.NaturalBalance(t.Debit, t.Credit)
		line := ReportLine{AccountID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, Balance: balance}
		switch a.Type {
		case AccountTypeAsset:
			bs.Assets.Lines = append(bs.Assets.Lines, line)
			bs.Assets.Total = bs.Assets.Total.Add(balance)
		case AccountTypeLiability:
			bs.Liabilities.Lines = append(bs.Liabilities.Lines, line)
			bs.Liabilities.Total = bs.Liabilities.Total.Add(balance)
		case AccountTypeEquity:
			bs.Equity.Lines = append(bs.Equity.Lines, line)
			bs.Equity.Total = bs.Equity.Total.Add(balance)
		case AccountTypeIncome:
			revenue = revenue.Add(balance)
		case AccountTypeExpense:
			expenses = expenses.Add(balance)
		}
	}
	bs.NetIncome = revenue.Sub(expenses)
	bs.Equity.Lines = append(bs.Equity.Lines, ReportLine{
		Code:        NetIncomeLineCode,
		Name:        NetIncomeLineName,
		Type:        AccountTypeEquity,
		Balance:     bs.NetIncome,
		IsSynthetic: true,
	})
	bs.Equity.Total = bs.Equity.Total.Add(bs.NetIncome)

	le := bs.Liabilities.Total.Add(bs.Equity.Total)
	diff := bs.Assets.Total.Sub(le)
	bs.Verification = BalanceVerification{
		TotalAssets:               bs.Assets.Total,
		TotalLiabilitiesAndEquity: le,
		Difference:                diff,
		IsBalanced:                diff.Abs().LessThan(valueobject.ManualTolerance),
	}
	return bs
}

// TrialBalanceRow is one account of the trial balance
type TrialBalanceRow struct {
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AccountType AccountType     `json:"account_type"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

// TrialBalance lists raw debit/credit totals per account
type TrialBalance struct {
	Accounts     []TrialBalanceRow `json:"accounts"`
	TotalDebits  decimal.Decimal   `json:"total_debits"`
	TotalCredits decimal.Decimal   `json:"total_credits"`
	Difference   decimal.Decimal   `json:"difference"`
	IsBalanced   bool              `json:"is_balanced"`
}

// BuildTrialBalance folds entries per account. Accounts without movement are
// skipped unless includeZero is set.
func BuildTrialBalance(accounts []Account, entries []JournalEntry, includeZero bool) TrialBalance {
	totals := FoldLines(entries)
	tb := TrialBalance{Accounts: []TrialBalanceRow{}}
	for _, a := range sortedByCode(accounts) {
		t := totals[a.ID]
		if !includeZero && t.Debit.IsZero() && t.Credit.IsZero() {
			continue
		}
		tb.Accounts = append(tb.Accounts, TrialBalanceRow{
			AccountCode: a.Code,
			AccountName: a.Name,
			AccountType: a.Type,
			Debit:       t.Debit,
			Credit:      t.Credit,
			Balance:     t.Debit.Sub(t.Credit),
		})
		tb.TotalDebits = tb.TotalDebits.Add(t.Debit)
		tb.TotalCredits = tb.TotalCredits.Add(t.Credit)
	}
	tb.Difference = tb.TotalDebits.Sub(tb.TotalCredits)
	tb.IsBalanced = tb.Difference.Abs().LessThan(valueobject.ManualTolerance)
	return tb
}

// LedgerMovement is one line of the general ledger with its running balance
type LedgerMovement struct {
	Date        time.Time       `json:"date"`
	EntryID     uuid.UUID       `json:"entry_id"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
	IsAutomatic bool            `json:"is_automatic"`
}

// GeneralLedger is the movement history of one account
type GeneralLedger struct {
	AccountCode    string           `json:"account_code"`
	AccountName    string           `json:"account_name"`
	AccountType    AccountType      `json:"account_type"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	ClosingBalance decimal.Decimal  `json:"closing_balance"`
	Movements      []LedgerMovement `json:"movements"`
	Total          int              `json:"total"`
}

// BuildGeneralLedger computes the running debit-minus-credit balance of
// account. opening holds entries before the range and inRange the entries
// inside it, sorted by date.
func BuildGeneralLedger(account *Account, opening, inRange []JournalEntry) GeneralLedger {
	running := decimal.Zero
	for _, e := range opening {
		for _, l := range e.Lines {
			if l.AccountID == account.ID {
				running = running.Add(l.Debit.Sub(l.Credit))
			}
		}
	}
	gl := GeneralLedger{
		AccountCode:    account.Code,
		AccountName:    account.Name,
		AccountType:    account.Type,
		OpeningBalance: running,
		Movements:      []LedgerMovement{},
	}
	for _, e := range inRange {
		for _, l := range e.Lines {
			if l.AccountID != account.ID {
				continue
			}
			running = running.Add(l.Debit.Sub(l.Credit))
			gl.Movements = append(gl.Movements, LedgerMovement{
				Date:        e.Date,
				EntryID:     e.ID,
				Description: l.Description,
				Debit:       l.Debit,
				Credit:      l.Credit,
				Balance:     running,
				IsAutomatic: e.IsAutomatic,
			})
		}
	}
	gl.ClosingBalance = running
	gl.Total = len(gl.Movements)
	return gl
}

// Page slices the movements for pagination
func (g GeneralLedger) Page(page, limit int) GeneralLedger {
	if limit <= 0 {
		return g
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > len(g.Movements) {
		start = len(g.Movements)
	}
	end := min(start+limit, len(g.Movements))
	g.Movements = g.Movements[start:end]
	return g
}

func sortedByCode(accounts []Account) []Account {
	out := make([]Account, len(accounts))
	copy(out, accounts)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
