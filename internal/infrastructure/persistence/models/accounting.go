package models

import (
	"encoding/json"
	"time"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("persistence.models")

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	TenantAggregateModel
	Code        string                 `gorm:"type:varchar(20);not null;index"`
	Name        string                 `gorm:"type:varchar(200);not null"`
	Type        accounting.AccountType `gorm:"type:varchar(20);not null;index"`
	ParentID    *uuid.UUID             `gorm:"type:uuid;index"`
	Description string                 `gorm:"type:text"`
	IsSystem    bool                   `gorm:"not null;default:false"`
	IsEditable  bool                   `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *accounting.Account {
	a := &accounting.Account{
		Code:        m.Code,
		Name:        m.Name,
		Type:        m.Type,
		ParentID:    m.ParentID,
		Description: m.Description,
		IsSystem:    m.IsSystem,
		IsEditable:  m.IsEditable,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain Account entity.
func (m *AccountModel) FromDomain(a *accounting.Account) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Type = a.Type
	m.ParentID = a.ParentID
	m.Description = a.Description
	m.IsSystem = a.IsSystem
	m.IsEditable = a.IsEditable
}

// AccountModelFromDomain creates a new persistence model from a domain Account entity.
func AccountModelFromDomain(a *accounting.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// JournalEntryModel is the persistence model for the JournalEntry aggregate root.
type JournalEntryModel struct {
	TenantAggregateModel
	Date         time.Time          `gorm:"not null;index"`
	Description  string             `gorm:"type:varchar(500);not null"`
	IsAutomatic  bool               `gorm:"not null;default:false;index"`
	MetadataJSON string             `gorm:"column:metadata;type:jsonb;default:'{}'"`
	SourceRef    string             `gorm:"type:varchar(100);index"`
	Lines        []JournalLineModel `gorm:"foreignKey:EntryID;references:ID"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the persistence model to a domain JournalEntry. Lines
// are returned in line_no order when they were preloaded that way.
func (m *JournalEntryModel) ToDomain() *accounting.JournalEntry {
	e := &accounting.JournalEntry{
		Date:        m.Date,
		Description: m.Description,
		IsAutomatic: m.IsAutomatic,
		SourceRef:   m.SourceRef,
		Metadata:    map[string]any{},
		Lines:       make([]accounting.JournalLine, 0, len(m.Lines)),
	}
	m.PopulateTenantAggregateRoot(&e.TenantAggregateRoot)
	if m.MetadataJSON != "" && m.MetadataJSON != "{}" {
		if err := json.Unmarshal([]byte(m.MetadataJSON), &e.Metadata); err != nil {
			modelLogger.Warn("failed to parse journal entry metadata",
				zap.String("entry_id", m.ID.String()),
				zap.Error(err))
		}
	}
	for _, l := range m.Lines {
		e.Lines = append(e.Lines, l.ToDomain())
	}
	return e
}

// FromDomain populates the persistence model and its lines from a domain JournalEntry.
func (m *JournalEntryModel) FromDomain(e *accounting.JournalEntry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.Date = e.Date
	m.Description = e.Description
	m.IsAutomatic = e.IsAutomatic
	m.SourceRef = e.SourceRef
	m.MetadataJSON = "{}"
	if len(e.Metadata) > 0 {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			m.MetadataJSON = string(raw)
		}
	}
	m.Lines = make([]JournalLineModel, 0, len(e.Lines))
	for i, l := range e.Lines {
		m.Lines = append(m.Lines, JournalLineModel{
			ID:          uuid.New(),
			EntryID:     e.ID,
			TenantID:    e.TenantID,
			LineNo:      i + 1,
			AccountID:   l.AccountID,
			AccountCode: l.AccountCode,
			AccountName: l.AccountName,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
}

// JournalEntryModelFromDomain creates a new persistence model from a domain JournalEntry.
func JournalEntryModelFromDomain(e *accounting.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{}
	m.FromDomain(e)
	return m
}

// JournalLineModel is one ordered line of a journal entry. Lines are
// denormalized with tenant id so report aggregation never joins entries.
type JournalLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	EntryID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo      int             `gorm:"not null"`
	AccountID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountCode string          `gorm:"type:varchar(20);not null"`
	AccountName string          `gorm:"type:varchar(200);not null"`
	Debit       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Credit      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Description string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the line model to a domain JournalLine
func (m *JournalLineModel) ToDomain() accounting.JournalLine {
	return accounting.JournalLine{
		AccountID:   m.AccountID,
		AccountCode: m.AccountCode,
		AccountName: m.AccountName,
		Debit:       m.Debit,
		Credit:      m.Credit,
		Description: m.Description,
	}
}

// AccountingPeriodModel is the persistence model for the AccountingPeriod aggregate root.
type AccountingPeriodModel struct {
	TenantAggregateModel
	Name           string                  `gorm:"type:varchar(100);not null"`
	StartDate      time.Time               `gorm:"not null;index"`
	EndDate        time.Time               `gorm:"not null;index"`
	FiscalYear     int                     `gorm:"not null;index"`
	Status         accounting.PeriodStatus `gorm:"type:varchar(20);not null;default:'open';index"`
	ClosedAt       *time.Time
	ClosedBy       *uuid.UUID      `gorm:"type:uuid"`
	ClosingEntryID *uuid.UUID      `gorm:"type:uuid"`
	TotalRevenue   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TotalExpenses  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	NetIncome      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Notes          string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AccountingPeriodModel) TableName() string {
	return "accounting_periods"
}

// ToDomain converts the persistence model to a domain AccountingPeriod.
func (m *AccountingPeriodModel) ToDomain() *accounting.AccountingPeriod {
	p := &accounting.AccountingPeriod{
		Name:           m.Name,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		FiscalYear:     m.FiscalYear,
		Status:         m.Status,
		ClosedAt:       m.ClosedAt,
		ClosedBy:       m.ClosedBy,
		ClosingEntryID: m.ClosingEntryID,
		TotalRevenue:   m.TotalRevenue,
		TotalExpenses:  m.TotalExpenses,
		NetIncome:      m.NetIncome,
		Notes:          m.Notes,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain AccountingPeriod.
func (m *AccountingPeriodModel) FromDomain(p *accounting.AccountingPeriod) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.Name = p.Name
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
	m.FiscalYear = p.FiscalYear
	m.Status = p.Status
	m.ClosedAt = p.ClosedAt
	m.ClosedBy = p.ClosedBy
	m.ClosingEntryID = p.ClosingEntryID
	m.TotalRevenue = p.TotalRevenue
	m.TotalExpenses = p.TotalExpenses
	m.NetIncome = p.NetIncome
	m.Notes = p.Notes
}

// AccountingPeriodModelFromDomain creates a new persistence model from a domain AccountingPeriod.
func AccountingPeriodModelFromDomain(p *accounting.AccountingPeriod) *AccountingPeriodModel {
	m := &AccountingPeriodModel{}
	m.FromDomain(p)
	return m
}

// recurringLineJSON is the stored shape of a template line
type recurringLineJSON struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description,omitempty"`
}

// RecurringEntryModel is the persistence model for the RecurringEntry aggregate root.
// Template lines and generated entry ids are stored as JSON documents.
type RecurringEntryModel struct {
	TenantAggregateModel
	Name                 string               `gorm:"type:varchar(200);not null"`
	Description          string               `gorm:"type:varchar(500);not null"`
	LinesJSON            string               `gorm:"column:lines;type:jsonb;not null;default:'[]'"`
	Frequency            accounting.Frequency `gorm:"type:varchar(20);not null"`
	StartDate            time.Time            `gorm:"not null"`
	EndDate              *time.Time
	DayOfMonth           *int
	DayOfWeek            *int
	LastExecutionDate    *time.Time
	NextExecutionDate    time.Time  `gorm:"not null;index"`
	ExecutionCount       int        `gorm:"not null;default:0"`
	IsActive             bool       `gorm:"not null;index"`
	GeneratedEntriesJSON string     `gorm:"column:generated_entries;type:jsonb;not null;default:'[]'"`
	UpdatedBy            *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (RecurringEntryModel) TableName() string {
	return "recurring_entries"
}

// ToDomain converts the persistence model to a domain RecurringEntry.
func (m *RecurringEntryModel) ToDomain() *accounting.RecurringEntry {
	r := &accounting.RecurringEntry{
		Name:        m.Name,
		Description: m.Description,
		Schedule: accounting.Schedule{
			Frequency:  m.Frequency,
			StartDate:  m.StartDate,
			EndDate:    m.EndDate,
			DayOfMonth: m.DayOfMonth,
		},
		LastExecutionDate: m.LastExecutionDate,
		NextExecutionDate: m.NextExecutionDate,
		ExecutionCount:    m.ExecutionCount,
		IsActive:          m.IsActive,
		UpdatedBy:         m.UpdatedBy,
	}
	m.PopulateTenantAggregateRoot(&r.TenantAggregateRoot)
	if m.DayOfWeek != nil {
		wd := time.Weekday(*m.DayOfWeek)
		r.Schedule.DayOfWeek = &wd
	}

	var lines []recurringLineJSON
	if err := json.Unmarshal([]byte(m.LinesJSON), &lines); err != nil {
		modelLogger.Warn("failed to parse recurring entry lines",
			zap.String("recurring_entry_id", m.ID.String()),
			zap.Error(err))
	}
	r.Lines = make([]accounting.RecurringLine, 0, len(lines))
	for _, l := range lines {
		r.Lines = append(r.Lines, accounting.RecurringLine{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	if m.GeneratedEntriesJSON != "" && m.GeneratedEntriesJSON != "[]" {
		if err := json.Unmarshal([]byte(m.GeneratedEntriesJSON), &r.GeneratedEntries); err != nil {
			modelLogger.Warn("failed to parse recurring generated entries",
				zap.String("recurring_entry_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return r
}

// FromDomain populates the persistence model from a domain RecurringEntry.
func (m *RecurringEntryModel) FromDomain(r *accounting.RecurringEntry) {
	m.FromDomainTenantAggregateRoot(r.TenantAggregateRoot)
	m.Name = r.Name
	m.Description = r.Description
	m.Frequency = r.Schedule.Frequency
	m.StartDate = r.Schedule.StartDate
	m.EndDate = r.Schedule.EndDate
	m.DayOfMonth = r.Schedule.DayOfMonth
	m.DayOfWeek = nil
	if r.Schedule.DayOfWeek != nil {
		wd := int(*r.Schedule.DayOfWeek)
		m.DayOfWeek = &wd
	}
	m.LastExecutionDate = r.LastExecutionDate
	m.NextExecutionDate = r.NextExecutionDate
	m.ExecutionCount = r.ExecutionCount
	m.IsActive = r.IsActive
	m.UpdatedBy = r.UpdatedBy

	lines := make([]recurringLineJSON, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, recurringLineJSON{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		})
	}
	m.LinesJSON = "[]"
	if raw, err := json.Marshal(lines); err == nil {
		m.LinesJSON = string(raw)
	}
	m.GeneratedEntriesJSON = "[]"
	if len(r.GeneratedEntries) > 0 {
		if raw, err := json.Marshal(r.GeneratedEntries); err == nil {
			m.GeneratedEntriesJSON = string(raw)
		}
	}
}

// RecurringEntryModelFromDomain creates a new persistence model from a domain RecurringEntry.
func RecurringEntryModelFromDomain(r *accounting.RecurringEntry) *RecurringEntryModel {
	m := &RecurringEntryModel{}
	m.FromDomain(r)
	return m
}
