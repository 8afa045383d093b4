package accounting

import (
	"context"

	"github.com/erp/fiscal/internal/domain/accounting"
)

// TransactionScope provides transactional access to ledger repositories.
// When a function is executed within a transaction scope, all repository operations
// are part of the same database transaction and are committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos LedgerRepositories) error) error
}

// LedgerRepositories provides access to the ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type LedgerRepositories interface {
	// Accounts returns the chart of accounts repository
	Accounts() accounting.AccountRepository
	// JournalEntries returns the journal repository
	JournalEntries() accounting.JournalEntryRepository
	// Periods returns the accounting period repository
	Periods() accounting.AccountingPeriodRepository
	// RecurringEntries returns the recurring template repository
	RecurringEntries() accounting.RecurringEntryRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with in-memory repositories.
type NoOpTransactionScope struct {
	accounts  accounting.AccountRepository
	journal   accounting.JournalEntryRepository
	periods   accounting.AccountingPeriodRepository
	recurring accounting.RecurringEntryRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	accounts accounting.AccountRepository,
	journal accounting.JournalEntryRepository,
	periods accounting.AccountingPeriodRepository,
	recurring accounting.RecurringEntryRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		accounts:  accounts,
		journal:   journal,
		periods:   periods,
		recurring: recurring,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos LedgerRepositories) error) error {
	return fn(s)
}

// Accounts returns the account repository.
func (s *NoOpTransactionScope) Accounts() accounting.AccountRepository { return s.accounts }

// JournalEntries returns the journal repository.
func (s *NoOpTransactionScope) JournalEntries() accounting.JournalEntryRepository { return s.journal }

// Periods returns the period repository.
func (s *NoOpTransactionScope) Periods() accounting.AccountingPeriodRepository { return s.periods }

// RecurringEntries returns the recurring template repository.
func (s *NoOpTransactionScope) RecurringEntries() accounting.RecurringEntryRepository {
	return s.recurring
}

var (
	_ TransactionScope   = (*NoOpTransactionScope)(nil)
	_ LedgerRepositories = (*NoOpTransactionScope)(nil)
)
