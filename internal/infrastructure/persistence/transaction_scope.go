package persistence

import (
	"context"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"gorm.io/gorm"
)

// GormTransactionScope implements the ledger and fiscal transaction scopes
// using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction over the ledger repositories.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appaccounting.LedgerRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Fiscal returns the scope view used by the fiscal services
func (s *GormTransactionScope) Fiscal() *GormFiscalTransactionScope {
	return &GormFiscalTransactionScope{db: s.db}
}

// GormFiscalTransactionScope runs functions over the fiscal repositories in one transaction
type GormFiscalTransactionScope struct {
	db *gorm.DB
}

// Execute runs fn within a database transaction over the fiscal repositories.
func (s *GormFiscalTransactionScope) Execute(ctx context.Context, fn func(repos appfiscal.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Accounts() accounting.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) JournalEntries() accounting.JournalEntryRepository {
	return NewGormJournalEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Periods() accounting.AccountingPeriodRepository {
	return NewGormAccountingPeriodRepository(r.tx)
}

func (r *gormTransactionalRepositories) RecurringEntries() accounting.RecurringEntryRepository {
	return NewGormRecurringEntryRepository(r.tx)
}

func (r *gormTransactionalRepositories) IVAWithholdings() fiscal.IVAWithholdingRepository {
	return NewGormIVAWithholdingRepository(r.tx)
}

func (r *gormTransactionalRepositories) ISLRWithholdings() fiscal.ISLRWithholdingRepository {
	return NewGormISLRWithholdingRepository(r.tx)
}

func (r *gormTransactionalRepositories) SalesBook() fiscal.SalesBookRepository {
	return NewGormSalesBookRepository(r.tx)
}

func (r *gormTransactionalRepositories) PurchaseBook() fiscal.BookEntryRepository {
	return NewGormPurchaseBookRepository(r.tx)
}

func (r *gormTransactionalRepositories) Declarations() fiscal.IVADeclarationRepository {
	return NewGormIVADeclarationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Sequences() fiscal.SequenceRepository {
	return NewGormSequenceRepository(r.tx)
}

var (
	_ appaccounting.TransactionScope = (*GormTransactionScope)(nil)
	_ appfiscal.TransactionScope     = (*GormFiscalTransactionScope)(nil)
	_ appfiscal.Repositories         = (*gormTransactionalRepositories)(nil)
)
