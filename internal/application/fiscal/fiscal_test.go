package fiscal_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/persistence"
	"github.com/erp/fiscal/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db           *gorm.DB
	tenantID     uuid.UUID
	actor        shared.Actor
	withholdings *appfiscal.WithholdingService
	books        *appfiscal.BookService
	declarations *appfiscal.DeclarationService
	journal      *appaccounting.JournalService
	publisher    *testutil.RecordingPublisher
	archiver     *memoryArchiver
	recorder     *countingRecorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	logger := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db)
	poster := appaccounting.NewJournalPoster(logger)

	e := &env{
		db:        db,
		tenantID:  uuid.New(),
		publisher: testutil.NewRecordingPublisher(),
		archiver:  &memoryArchiver{objects: map[string][]byte{}},
		recorder:  newCountingRecorder(),
	}
	e.actor = shared.UserActor(uuid.New(), e.tenantID)

	e.withholdings = appfiscal.NewWithholdingService(
		persistence.NewGormIVAWithholdingRepository(db),
		persistence.NewGormISLRWithholdingRepository(db),
		scope.Fiscal(), poster, logger,
	)
	e.withholdings.SetEventPublisher(e.publisher)
	e.withholdings.SetArchiver(e.archiver)
	e.withholdings.SetRecorder(e.recorder)

	e.books = appfiscal.NewBookService(
		persistence.NewGormSalesBookRepository(db),
		persistence.NewGormPurchaseBookRepository(db),
		fiscal.DefaultSyncOptions(), logger,
	)
	e.books.SetEventPublisher(e.publisher)
	e.books.SetArchiver(e.archiver)
	e.books.SetRecorder(e.recorder)

	e.declarations = appfiscal.NewDeclarationService(persistence.NewGormIVADeclarationRepository(db), scope.Fiscal(), logger)
	e.declarations.SetEventPublisher(e.publisher)

	e.journal = appaccounting.NewJournalService(
		persistence.NewGormAccountRepository(db),
		persistence.NewGormJournalEntryRepository(db),
		scope, poster, logger,
	)
	return e
}

type memoryArchiver struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (a *memoryArchiver) Upload(_ context.Context, key string, data []byte, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = data
	return nil
}

func (a *memoryArchiver) keys() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.objects))
	for k := range a.objects {
		out = append(out, k)
	}
	return out
}

type countingRecorder struct {
	mu          sync.Mutex
	syncs       map[string]int
	diagnostics map[string]int
	posted      map[string]int
	exports     map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		syncs:       map[string]int{},
		diagnostics: map[string]int{},
		posted:      map[string]int{},
		exports:     map[string]int{},
	}
}

func (r *countingRecorder) SyncCompleted(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs[outcome]++
}

func (r *countingRecorder) DiagnosticRaised(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics[code]++
}

func (r *countingRecorder) WithholdingPosted(tax string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posted[tax]++
}

func (r *countingRecorder) ExportGenerated(kind string, records int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exports[kind] += records
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }
