package accounting

import (
	"time"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Account DTOs
// =============================================================================

// CreateAccountRequest represents a request to add an account to the chart.
// Code is generated from the type prefix when empty.
type CreateAccountRequest struct {
	Code        string     `json:"code" binding:"omitempty,numeric,max=20"`
	Name        string     `json:"name" binding:"required,min=1,max=200"`
	Type        string     `json:"type" binding:"required,oneof=Activo Pasivo Patrimonio Ingreso Gasto"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Description string     `json:"description" binding:"max=500"`
}

// UpdateAccountRequest represents a request to update an account
type UpdateAccountRequest struct {
	Name        string     `json:"name" binding:"omitempty,max=200"`
	Description string     `json:"description" binding:"max=500"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// SeedAccount is one account of a chart-of-accounts seed file
type SeedAccount struct {
	Code        string `toml:"code" json:"code"`
	Name        string `toml:"name" json:"name"`
	Type        string `toml:"type" json:"type"`
	Parent      string `toml:"parent" json:"parent,omitempty"`
	Description string `toml:"description" json:"description,omitempty"`
}

// SeedResult reports what a seed run did
type SeedResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// AccountListFilter represents filter options for the chart of accounts
type AccountListFilter struct {
	Search   string `form:"search"`
	Type     string `form:"type" binding:"omitempty,oneof=Activo Pasivo Patrimonio Ingreso Gasto"`
	IsSystem *bool  `form:"is_system"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Description string     `json:"description,omitempty"`
	IsSystem    bool       `json:"is_system"`
	IsEditable  bool       `json:"is_editable"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ToAccountResponse converts a domain Account to AccountResponse
func ToAccountResponse(a *accounting.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		TenantID:    a.TenantID,
		Code:        a.Code,
		Name:        a.Name,
		Type:        a.Type.String(),
		ParentID:    a.ParentID,
		Description: a.Description,
		IsSystem:    a.IsSystem,
		IsEditable:  a.IsEditable,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// =============================================================================
// Journal DTOs
// =============================================================================

// JournalLineRequest is one line of a journal entry request
type JournalLineRequest struct {
	AccountID   uuid.UUID       `json:"accountId" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" binding:"max=500"`
}

// CreateJournalEntryRequest is the journal input accepted by the API
type CreateJournalEntryRequest struct {
	Date        time.Time            `json:"date" binding:"required"`
	Description string               `json:"description" binding:"required,max=500"`
	Lines       []JournalLineRequest `json:"lines" binding:"required,min=1,dive"`
	IsAutomatic bool                 `json:"isAutomatic"`
	Metadata    map[string]any       `json:"metadata"`
}

// JournalEntryListFilter represents filter options for the journal
type JournalEntryListFilter struct {
	Search      string     `form:"search"`
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
	IsAutomatic *bool      `form:"is_automatic"`
	AccountID   string     `form:"account_id" binding:"omitempty,uuid"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// JournalLineResponse represents a journal line in API responses
type JournalLineResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID          uuid.UUID             `json:"id"`
	TenantID    uuid.UUID             `json:"tenant_id"`
	Date        time.Time             `json:"date"`
	Description string                `json:"description"`
	Lines       []JournalLineResponse `json:"lines"`
	TotalDebit  decimal.Decimal       `json:"total_debit"`
	TotalCredit decimal.Decimal       `json:"total_credit"`
	IsAutomatic bool                  `json:"is_automatic"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	SourceRef   string                `json:"source_ref,omitempty"`
	CreatedBy   *uuid.UUID            `json:"created_by,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// ToJournalEntryResponse converts a domain JournalEntry to JournalEntryResponse
func ToJournalEntryResponse(e *accounting.JournalEntry) JournalEntryResponse {
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return JournalEntryResponse{
		ID:          e.ID,
		TenantID:    e.TenantID,
		Date:        e.Date,
		Description: e.Description,
		Lines:       lines,
		TotalDebit:  e.TotalDebit(),
		TotalCredit: e.TotalCredit(),
		IsAutomatic: e.IsAutomatic,
		Metadata:    e.Metadata,
		SourceRef:   e.SourceRef,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

// TrialBalanceQuery selects the range and accounts of a trial balance
type TrialBalanceQuery struct {
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
	AccountType string     `form:"account_type" binding:"omitempty,oneof=Activo Pasivo Patrimonio Ingreso Gasto"`
	IncludeZero bool       `form:"include_zero"`
}

// GeneralLedgerQuery selects the account, range and page of a general ledger
type GeneralLedgerQuery struct {
	AccountCode string     `form:"account_code" binding:"required"`
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
	Page        int        `form:"page" binding:"omitempty,min=1"`
	Limit       int        `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// AccountBalanceResponse is the balance of one account at a date
type AccountBalanceResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountCode string          `json:"account_code"`
	AccountName string          `json:"account_name"`
	AsOf        time.Time       `json:"as_of"`
	Balance     decimal.Decimal `json:"balance"`
}

// =============================================================================
// Period DTOs
// =============================================================================

// CreatePeriodRequest represents a request to open an accounting period
type CreatePeriodRequest struct {
	Name       string    `json:"name" binding:"required,min=1,max=100"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`
	FiscalYear int       `json:"fiscal_year" binding:"omitempty,min=1900,max=9999"`
}

// UpdatePeriodRequest represents a request to change an open period
type UpdatePeriodRequest struct {
	Name       string    `json:"name" binding:"omitempty,max=100"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	FiscalYear int       `json:"fiscal_year" binding:"omitempty,min=1900,max=9999"`
}

// ClosePeriodRequest carries the optional closing notes
type ClosePeriodRequest struct {
	Notes string `json:"notes" binding:"max=1000"`
}

// PeriodListFilter represents filter options for accounting periods
type PeriodListFilter struct {
	FiscalYear *int   `form:"fiscal_year"`
	Status     string `form:"status" binding:"omitempty,oneof=open closed locked"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// PeriodResponse represents an accounting period in API responses
type PeriodResponse struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	Name           string          `json:"name"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	FiscalYear     int             `json:"fiscal_year"`
	Status         string          `json:"status"`
	ClosedAt       *time.Time      `json:"closed_at,omitempty"`
	ClosedBy       *uuid.UUID      `json:"closed_by,omitempty"`
	ClosingEntryID *uuid.UUID      `json:"closing_entry_id,omitempty"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	NetIncome      decimal.Decimal `json:"net_income"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToPeriodResponse converts a domain AccountingPeriod to PeriodResponse
func ToPeriodResponse(p *accounting.AccountingPeriod) PeriodResponse {
	return PeriodResponse{
		ID:             p.ID,
		TenantID:       p.TenantID,
		Name:           p.Name,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		FiscalYear:     p.FiscalYear,
		Status:         p.Status.String(),
		ClosedAt:       p.ClosedAt,
		ClosedBy:       p.ClosedBy,
		ClosingEntryID: p.ClosingEntryID,
		TotalRevenue:   p.TotalRevenue,
		TotalExpenses:  p.TotalExpenses,
		NetIncome:      p.NetIncome,
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// =============================================================================
// Recurring entry DTOs
// =============================================================================

// RecurringLineRequest is one line of a recurring template
type RecurringLineRequest struct {
	AccountID   uuid.UUID       `json:"account_id" binding:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description" binding:"max=500"`
}

// CreateRecurringEntryRequest represents a request to create a recurring template
type CreateRecurringEntryRequest struct {
	Name        string                 `json:"name" binding:"required,min=1,max=200"`
	Description string                 `json:"description" binding:"required,max=500"`
	Lines       []RecurringLineRequest `json:"lines" binding:"required,min=2,dive"`
	Frequency   string                 `json:"frequency" binding:"required,oneof=weekly monthly quarterly yearly"`
	StartDate   time.Time              `json:"start_date" binding:"required"`
	EndDate     *time.Time             `json:"end_date"`
	DayOfMonth  *int                   `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	DayOfWeek   *int                   `json:"day_of_week" binding:"omitempty,min=0,max=6"`
}

// UpdateRecurringEntryRequest represents a partial update of a recurring template
type UpdateRecurringEntryRequest struct {
	Name        *string                `json:"name" binding:"omitempty,max=200"`
	Description *string                `json:"description" binding:"omitempty,max=500"`
	Lines       []RecurringLineRequest `json:"lines" binding:"omitempty,min=2,dive"`
	Frequency   *string                `json:"frequency" binding:"omitempty,oneof=weekly monthly quarterly yearly"`
	StartDate   *time.Time             `json:"start_date"`
	EndDate     *time.Time             `json:"end_date"`
	DayOfMonth  *int                   `json:"day_of_month" binding:"omitempty,min=1,max=31"`
	DayOfWeek   *int                   `json:"day_of_week" binding:"omitempty,min=0,max=6"`
}

// RecurringListFilter represents filter options for recurring templates
type RecurringListFilter struct {
	Search    string `form:"search"`
	IsActive  *bool  `form:"is_active"`
	Frequency string `form:"frequency" binding:"omitempty,oneof=weekly monthly quarterly yearly"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=500"`
}

// RecurringLineResponse represents a template line in API responses
type RecurringLineResponse struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// RecurringEntryResponse represents a recurring template in API responses
type RecurringEntryResponse struct {
	ID                uuid.UUID               `json:"id"`
	TenantID          uuid.UUID               `json:"tenant_id"`
	Name              string                  `json:"name"`
	Description       string                  `json:"description"`
	Lines             []RecurringLineResponse `json:"lines"`
	Frequency         string                  `json:"frequency"`
	StartDate         time.Time               `json:"start_date"`
	EndDate           *time.Time              `json:"end_date,omitempty"`
	DayOfMonth        *int                    `json:"day_of_month,omitempty"`
	DayOfWeek         *int                    `json:"day_of_week,omitempty"`
	LastExecutionDate *time.Time              `json:"last_execution_date,omitempty"`
	NextExecutionDate time.Time               `json:"next_execution_date"`
	ExecutionCount    int                     `json:"execution_count"`
	IsActive          bool                    `json:"is_active"`
	GeneratedEntries  []uuid.UUID             `json:"generated_entries"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// ToRecurringEntryResponse converts a domain RecurringEntry to RecurringEntryResponse
func ToRecurringEntryResponse(r *accounting.RecurringEntry) RecurringEntryResponse {
	lines := make([]RecurringLineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = RecurringLineResponse{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Description: l.Description}
	}
	var dayOfWeek *int
	if r.Schedule.DayOfWeek != nil {
		d := int(*r.Schedule.DayOfWeek)
		dayOfWeek = &d
	}
	generated := r.GeneratedEntries
	if generated == nil {
		generated = []uuid.UUID{}
	}
	return RecurringEntryResponse{
		ID:                r.ID,
		TenantID:          r.TenantID,
		Name:              r.Name,
		Description:       r.Description,
		Lines:             lines,
		Frequency:         r.Schedule.Frequency.String(),
		StartDate:         r.Schedule.StartDate,
		EndDate:           r.Schedule.EndDate,
		DayOfMonth:        r.Schedule.DayOfMonth,
		DayOfWeek:         dayOfWeek,
		LastExecutionDate: r.LastExecutionDate,
		NextExecutionDate: r.NextExecutionDate,
		ExecutionCount:    r.ExecutionCount,
		IsActive:          r.IsActive,
		GeneratedEntries:  generated,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

// ExecutionFailure records a template that could not be executed
type ExecutionFailure struct {
	RecurringEntryID uuid.UUID `json:"recurring_entry_id"`
	Name             string    `json:"name"`
	Error            string    `json:"error"`
}

// ExecutionResult summarizes a run of due recurring templates
type ExecutionResult struct {
	ExecutionDate time.Time              `json:"execution_date"`
	ExecutedCount int                    `json:"executed_count"`
	Entries       []JournalEntryResponse `json:"entries"`
	Skipped       int                    `json:"skipped"`
	Deactivated   int                    `json:"deactivated"`
	Failures      []ExecutionFailure     `json:"failures"`
}

func toRecurringLines(in []RecurringLineRequest) []accounting.RecurringLine {
	if in == nil {
		return nil
	}
	out := make([]accounting.RecurringLine, len(in))
	for i, l := range in {
		out[i] = accounting.RecurringLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit, Description: l.Description}
	}
	return out
}

func toWeekday(d *int) *time.Weekday {
	if d == nil {
		return nil
	}
	w := time.Weekday(*d)
	return &w
}
