package accounting

import (
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeAccountCreated         = "AccountCreated"
	EventTypeJournalEntryPosted     = "JournalEntryPosted"
	EventTypePeriodCreated          = "AccountingPeriodCreated"
	EventTypePeriodClosed           = "AccountingPeriodClosed"
	EventTypePeriodLocked           = "AccountingPeriodLocked"
	EventTypePeriodReopened         = "AccountingPeriodReopened"
	EventTypeRecurringEntryExecuted = "RecurringEntryExecuted"
)

// AccountCreatedEvent is raised when an account is added to the chart
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	Code string      `json:"code"`
	Name string      `json:"name"`
	Type AccountType `json:"type"`
}

// EventType returns the event type name
func (e *AccountCreatedEvent) EventType() string { return EventTypeAccountCreated }

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAccountCreated, "Account", a.ID, a.TenantID),
		Code:            a.Code,
		Name:            a.Name,
		Type:            a.Type,
	}
}

// JournalEntryPostedEvent is raised when an entry is written to the ledger
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Total       decimal.Decimal `json:"total"`
	IsAutomatic bool            `json:"is_automatic"`
	LineCount   int             `json:"line_count"`
}

// EventType returns the event type name
func (e *JournalEntryPostedEvent) EventType() string { return EventTypeJournalEntryPosted }

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(e *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalEntryPosted, "JournalEntry", e.ID, e.TenantID),
		Date:            e.Date,
		Description:     e.Description,
		Total:           e.TotalDebit(),
		IsAutomatic:     e.IsAutomatic,
		LineCount:       len(e.Lines),
	}
}

// PeriodEvent carries period lifecycle transitions
type PeriodEvent struct {
	shared.BaseDomainEvent
	Name      string          `json:"name"`
	Status    PeriodStatus    `json:"status"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// NewPeriodEvent creates a period lifecycle event of the given type
func NewPeriodEvent(eventType string, p *AccountingPeriod) *PeriodEvent {
	return &PeriodEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "AccountingPeriod", p.ID, p.TenantID),
		Name:            p.Name,
		Status:          p.Status,
		NetIncome:       p.NetIncome,
	}
}

// RecurringEntryExecutedEvent is raised each time a template posts an entry
type RecurringEntryExecutedEvent struct {
	shared.BaseDomainEvent
	JournalEntryID uuid.UUID `json:"journal_entry_id"`
	ExecutionDate  time.Time `json:"execution_date"`
	ExecutionCount int       `json:"execution_count"`
}

// EventType returns the event type name
func (e *RecurringEntryExecutedEvent) EventType() string { return EventTypeRecurringEntryExecuted }

// NewRecurringEntryExecutedEvent creates a new RecurringEntryExecutedEvent
func NewRecurringEntryExecutedEvent(r *RecurringEntry, entryID uuid.UUID, date time.Time) *RecurringEntryExecutedEvent {
	return &RecurringEntryExecutedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRecurringEntryExecuted, "RecurringEntry", r.ID, r.TenantID),
		JournalEntryID:  entryID,
		ExecutionDate:   date,
		ExecutionCount:  r.ExecutionCount,
	}
}
