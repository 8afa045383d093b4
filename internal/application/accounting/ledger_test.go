package accounting_test

import (
	"context"
	"testing"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/persistence"
	"github.com/erp/fiscal/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ledger wires every accounting service over a private SQLite database
type ledger struct {
	tenantID  uuid.UUID
	actor     shared.Actor
	accounts  *appaccounting.AccountService
	journal   *appaccounting.JournalService
	periods   *appaccounting.PeriodService
	recurring *appaccounting.RecurringService
	billing   *appaccounting.BillingPostingHandler
	publisher *testutil.RecordingPublisher
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	return newLedgerOn(t, testutil.NewSQLiteDB(t))
}

func newLedgerOn(t *testing.T, db *gorm.DB) *ledger {
	t.Helper()
	logger := zap.NewNop()

	accountRepo := persistence.NewGormAccountRepository(db)
	journalRepo := persistence.NewGormJournalEntryRepository(db)
	periodRepo := persistence.NewGormAccountingPeriodRepository(db)
	recurringRepo := persistence.NewGormRecurringEntryRepository(db)
	txScope := persistence.NewGormTransactionScope(db)
	poster := appaccounting.NewJournalPoster(logger)
	publisher := testutil.NewRecordingPublisher()

	tenantID := uuid.New()
	l := &ledger{
		tenantID:  tenantID,
		actor:     shared.UserActor(uuid.New(), tenantID),
		accounts:  appaccounting.NewAccountService(accountRepo, logger),
		journal:   appaccounting.NewJournalService(accountRepo, journalRepo, txScope, poster, logger),
		periods:   appaccounting.NewPeriodService(periodRepo, journalRepo, txScope, poster, logger),
		recurring: appaccounting.NewRecurringService(recurringRepo, accountRepo, txScope, poster, logger),
		billing:   appaccounting.NewBillingPostingHandler(txScope, poster, logger),
		publisher: publisher,
	}
	l.accounts.SetEventPublisher(publisher)
	l.journal.SetEventPublisher(publisher)
	l.periods.SetEventPublisher(publisher)
	l.recurring.SetEventPublisher(publisher)
	l.billing.SetEventPublisher(publisher)
	return l
}

func (l *ledger) account(t *testing.T, code, name string, accountType accounting.AccountType) *appaccounting.AccountResponse {
	t.Helper()
	a, err := l.accounts.Create(context.Background(), l.tenantID, appaccounting.CreateAccountRequest{
		Code: code,
		Name: name,
		Type: string(accountType),
	})
	require.NoError(t, err)
	return a
}

func (l *ledger) post(t *testing.T, date time.Time, debit, credit uuid.UUID, amount string) *appaccounting.JournalEntryResponse {
	t.Helper()
	entry, err := l.journal.CreateJournalEntry(context.Background(), l.tenantID, l.actor, appaccounting.CreateJournalEntryRequest{
		Date:        date,
		Description: "Movimiento de prueba",
		Lines: []appaccounting.JournalLineRequest{
			{AccountID: debit, Debit: dec(amount)},
			{AccountID: credit, Credit: dec(amount)},
		},
	})
	require.NoError(t, err)
	return entry
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
