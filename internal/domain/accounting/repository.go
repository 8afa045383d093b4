package accounting

import (
	"context"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountFilter defines filtering options for chart of accounts queries
type AccountFilter struct {
	shared.Filter
	Type     *AccountType
	IsSystem *bool
}

// AccountRepository defines persistence for the chart of accounts
type AccountRepository interface {
	// FindByIDForTenant finds an account by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by its code for a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)

	// FindByIDs loads several accounts of a tenant, keyed by id
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*Account, error)

	// FindAllForTenant lists accounts ordered by code
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]Account, error)

	// CountForTenant counts accounts matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) (int64, error)

	// LastCodeWithPrefix returns the highest code starting with prefix, or "" when none exists
	LastCodeWithPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error
}

// JournalEntryFilter defines filtering options for journal queries
type JournalEntryFilter struct {
	shared.Filter
	From        *time.Time
	To          *time.Time
	IsAutomatic *bool
	AccountID   *uuid.UUID
}

// JournalEntryRepository defines persistence for journal entries
type JournalEntryRepository interface {
	// FindByIDForTenant finds an entry with its lines
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)

	// FindAllForTenant lists entries, newest first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) ([]JournalEntry, error)

	// CountForTenant counts entries matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) (int64, error)

	// FindInRange returns entries dated inside [from, to] ordered by date then creation.
	// A nil bound is open.
	FindInRange(ctx context.Context, tenantID uuid.UUID, from, to *time.Time) ([]JournalEntry, error)

	// CountInRange counts entries dated inside [from, to]
	CountInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)

	// FindBySourceRef finds an automatic entry by its source reference,
	// optionally restricted to the day of date
	FindBySourceRef(ctx context.Context, tenantID uuid.UUID, ref string, date *time.Time) (*JournalEntry, error)

	// Create inserts a new entry and its lines
	Create(ctx context.Context, entry *JournalEntry) error

	// Delete removes an entry and its lines. Only period reopening uses it.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// PeriodFilter defines filtering options for period queries
type PeriodFilter struct {
	shared.Filter
	FiscalYear *int
	Status     *PeriodStatus
}

// AccountingPeriodRepository defines persistence for accounting periods
type AccountingPeriodRepository interface {
	// FindByIDForTenant finds a period by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AccountingPeriod, error)

	// FindByName finds a period by its unique name
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*AccountingPeriod, error)

	// FindOverlapping returns periods intersecting [start, end], excluding excludeID
	FindOverlapping(ctx context.Context, tenantID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]AccountingPeriod, error)

	// FindForDate returns the period containing date
	FindForDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*AccountingPeriod, error)

	// FindAllForTenant lists periods, most recent first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter PeriodFilter) ([]AccountingPeriod, error)

	// CountForTenant counts periods matching the filter
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter PeriodFilter) (int64, error)

	// FiscalYears returns the distinct fiscal years, descending
	FiscalYears(ctx context.Context, tenantID uuid.UUID) ([]int, error)

	// Save creates or updates a period
	Save(ctx context.Context, period *AccountingPeriod) error

	// Delete removes a period
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// RecurringEntryFilter defines filtering options for recurring templates
type RecurringEntryFilter struct {
	shared.Filter
	IsActive  *bool
	Frequency *Frequency
}

// RecurringEntryRepository defines persistence for recurring templates
type RecurringEntryRepository interface {
	// FindByIDForTenant finds a template by ID for a tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*RecurringEntry, error)

	// FindByName finds a template by its unique name
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*RecurringEntry, error)

	// FindAllForTenant lists templates ordered by name
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter RecurringEntryFilter) ([]RecurringEntry, error)

	// FindDue returns active templates with next execution on or before date
	FindDue(ctx context.Context, tenantID uuid.UUID, date time.Time, onlyID *uuid.UUID) ([]RecurringEntry, error)

	// FindUpcoming returns active templates due on or before until, soonest first
	FindUpcoming(ctx context.Context, tenantID uuid.UUID, until time.Time) ([]RecurringEntry, error)

	// TenantsWithDue returns tenants that have at least one active template due on or before date
	TenantsWithDue(ctx context.Context, date time.Time) ([]uuid.UUID, error)

	// Save creates or updates a template
	Save(ctx context.Context, entry *RecurringEntry) error

	// Delete removes a template. Generated journal entries are kept.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
