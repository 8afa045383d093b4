package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodStatus is the lifecycle state of an accounting period
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "open"
	PeriodStatusClosed PeriodStatus = "closed"
	PeriodStatusLocked PeriodStatus = "locked"
)

// IsValid checks if the status is known
func (s PeriodStatus) IsValid() bool {
	switch s {
	case PeriodStatusOpen, PeriodStatusClosed, PeriodStatusLocked:
		return true
	}
	return false
}

func (s PeriodStatus) String() string { return string(s) }

// CanClose returns true if the period can be closed
func (s PeriodStatus) CanClose() bool { return s == PeriodStatusOpen }

// CanLock returns true if the period can be locked
func (s PeriodStatus) CanLock() bool { return s == PeriodStatusClosed }

// CanUnlock returns true if the period can be unlocked
func (s PeriodStatus) CanUnlock() bool { return s == PeriodStatusLocked }

// CanReopen returns true if the period can be reopened. Locked periods must be unlocked first.
func (s PeriodStatus) CanReopen() bool { return s == PeriodStatusClosed }

// AcceptsPostings returns true if new journal entries may be dated inside the period
func (s PeriodStatus) AcceptsPostings() bool { return s == PeriodStatusOpen }

// AccountingPeriod is a calendar range whose totals are frozen on close
type AccountingPeriod struct {
	shared.TenantAggregateRoot
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	FiscalYear     int
	Status         PeriodStatus
	ClosedAt       *time.Time
	ClosedBy       *uuid.UUID
	ClosingEntryID *uuid.UUID
	TotalRevenue   decimal.Decimal
	TotalExpenses  decimal.Decimal
	NetIncome      decimal.Decimal
	Notes          string
}

// NewAccountingPeriod creates an open period. fiscalYear defaults to the start year.
func NewAccountingPeriod(tenantID uuid.UUID, actor shared.Actor, name string, start, end time.Time, fiscalYear int) (*AccountingPeriod, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("REQUIRED_FIELD", "Period name is required")
	}
	start, end = DayStart(start), DayEnd(end)
	if !start.Before(end) {
		return nil, shared.NewDomainError("INVALID_DATE_RANGE", "Start date must be before end date")
	}
	if fiscalYear == 0 {
		fiscalYear = start.Year()
	}
	p := &AccountingPeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRootForActor(tenantID, actor),
		Name:                name,
		StartDate:           start,
		EndDate:             end,
		FiscalYear:          fiscalYear,
		Status:              PeriodStatusOpen,
	}
	p.AddDomainEvent(NewPeriodEvent(EventTypePeriodCreated, p))
	return p, nil
}

// Reschedule changes name and dates of an open period
func (p *AccountingPeriod) Reschedule(name string, start, end time.Time, fiscalYear int) error {
	if p.Status != PeriodStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot update period in %s status", p.Status))
	}
	if name = strings.TrimSpace(name); name != "" {
		p.Name = name
	}
	if !start.IsZero() {
		p.StartDate = DayStart(start)
	}
	if !end.IsZero() {
		p.EndDate = DayEnd(end)
	}
	if !p.StartDate.Before(p.EndDate) {
		return shared.NewDomainError("INVALID_DATE_RANGE", "Start date must be before end date")
	}
	if fiscalYear != 0 {
		p.FiscalYear = fiscalYear
	}
	p.Touch()
	return nil
}

// Overlaps reports whether the period's range intersects [start, end]
func (p *AccountingPeriod) Overlaps(start, end time.Time) bool {
	return !p.StartDate.After(end) && !p.EndDate.Before(start)
}

// Contains reports whether date falls inside the period
func (p *AccountingPeriod) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// ClosingTotals holds the aggregates computed when a period is closed
type ClosingTotals struct {
	TotalRevenue  decimal.Decimal
	TotalExpenses decimal.Decimal
	NetIncome     decimal.Decimal
}

// ComputeClosingTotals aggregates income (credit-debit) and expense
// (debit-credit) lines. accountTypes maps account id to its type.
func ComputeClosingTotals(entries []JournalEntry, accountTypes map[uuid.UUID]AccountType) ClosingTotals {
	var revenue, expenses decimal.Decimal
	for _, e := range entries {
		for _, l := range e.Lines {
			switch accountTypes[l.AccountID] {
			case AccountTypeIncome:
				revenue = revenue.Add(l.Credit.Sub(l.Debit))
			case AccountTypeExpense:
				expenses = expenses.Add(l.Debit.Sub(l.Credit))
			}
		}
	}
	return ClosingTotals{TotalRevenue: revenue, TotalExpenses: expenses, NetIncome: revenue.Sub(expenses)}
}

// breakEvenAmount is posted when net income is zero so every close leaves an audit entry
var breakEvenAmount = decimal.RequireFromString("0.01")

// ClosingLines builds the two lines transferring net income between the
// income summary and retained earnings accounts
func ClosingLines(netIncome decimal.Decimal, incomeSummary, retainedEarnings *Account) []LineInput {
	switch {
	case netIncome.IsPositive():
		return []LineInput{
			{Account: incomeSummary, Debit: netIncome, Description: "Cierre de resultados"},
			{Account: retainedEarnings, Credit: netIncome, Description: "Utilidad del período"},
		}
	case netIncome.IsNegative():
		loss := netIncome.Abs()
		return []LineInput{
			{Account: retainedEarnings, Debit: loss, Description: "Pérdida del período"},
			{Account: incomeSummary, Credit: loss, Description: "Cierre de resultados"},
		}
	default:
		return []LineInput{
			{Account: incomeSummary, Debit: breakEvenAmount, Description: "Cierre sin resultado"},
			{Account: retainedEarnings, Credit: breakEvenAmount, Description: "Cierre sin resultado"},
		}
	}
}

// ClosingDescription is the description of the closing entry
func (p *AccountingPeriod) ClosingDescription() string {
	return "Asiento de cierre - " + p.Name
}

// Close freezes the period with the computed totals
func (p *AccountingPeriod) Close(actor shared.Actor, totals ClosingTotals, closingEntryID uuid.UUID, notes string) error {
	if !p.Status.CanClose() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot close period in %s status", p.Status))
	}
	now := time.Now()
	p.Status = PeriodStatusClosed
	p.ClosedAt = &now
	p.ClosedBy = actor.UserIDPtr()
	p.ClosingEntryID = &closingEntryID
	p.TotalRevenue = totals.TotalRevenue
	p.TotalExpenses = totals.TotalExpenses
	p.NetIncome = totals.NetIncome
	if notes != "" {
		p.Notes = notes
	}
	p.UpdatedAt = now
	p.AddDomainEvent(NewPeriodEvent(EventTypePeriodClosed, p))
	return nil
}

// Lock makes a closed period terminal until unlocked
func (p *AccountingPeriod) Lock() error {
	if !p.Status.CanLock() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot lock period in %s status", p.Status))
	}
	p.Status = PeriodStatusLocked
	p.Touch()
	p.AddDomainEvent(NewPeriodEvent(EventTypePeriodLocked, p))
	return nil
}

// Unlock returns a locked period to closed
func (p *AccountingPeriod) Unlock() error {
	if !p.Status.CanUnlock() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot unlock period in %s status", p.Status))
	}
	p.Status = PeriodStatusClosed
	p.Touch()
	return nil
}

// Reopen clears closing data and returns the id of the closing entry to delete
func (p *AccountingPeriod) Reopen() (*uuid.UUID, error) {
	if !p.Status.CanReopen() {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reopen period in %s status", p.Status))
	}
	closing := p.ClosingEntryID
	p.Status = PeriodStatusOpen
	p.ClosedAt = nil
	p.ClosedBy = nil
	p.ClosingEntryID = nil
	p.TotalRevenue = decimal.Zero
	p.TotalExpenses = decimal.Zero
	p.NetIncome = decimal.Zero
	p.Touch()
	p.AddDomainEvent(NewPeriodEvent(EventTypePeriodReopened, p))
	return closing, nil
}

// CanDelete checks the period is open and has no entries in range
func (p *AccountingPeriod) CanDelete(entryCount int64) error {
	if p.Status != PeriodStatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot delete period in %s status", p.Status))
	}
	if entryCount > 0 {
		return shared.NewDomainError("PERIOD_HAS_ENTRIES",
			fmt.Sprintf("Cannot delete period with %d journal entries", entryCount))
	}
	return nil
}

// CheckPosting rejects postings into closed or locked periods
func (p *AccountingPeriod) CheckPosting() error {
	switch p.Status {
	case PeriodStatusLocked:
		return shared.NewDomainError("PERIOD_LOCKED", fmt.Sprintf("Period %s is locked", p.Name))
	case PeriodStatusClosed:
		return shared.NewDomainError("PERIOD_CLOSED", fmt.Sprintf("Period %s is closed", p.Name))
	}
	return nil
}

// DayStart truncates t to midnight in its location
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayEnd returns the last nanosecond of t's day
func DayEnd(t time.Time) time.Time {
	return DayStart(t).Add(24*time.Hour - time.Nanosecond)
}
