package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/cache"
	"github.com/erp/fiscal/internal/infrastructure/event"
	"github.com/erp/fiscal/internal/infrastructure/persistence"
	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/erp/fiscal/internal/interfaces/http/handler"
	"github.com/erp/fiscal/internal/interfaces/http/middleware"
	"github.com/erp/fiscal/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

// ledgerServer wires the production router over PostgreSQL. Requests run as
// whatever actor is current, so one server can play several tenants.
type ledgerServer struct {
	db     *TestDB
	engine *gin.Engine
	actor  shared.Actor
	bus    *event.InMemoryEventBus
	books  *appfiscal.BookService
}

func newLedgerServer(t *testing.T, db *TestDB) *ledgerServer {
	t.Helper()
	log := zap.NewNop()
	gdb := db.DB

	accountRepo := persistence.NewGormAccountRepository(gdb)
	journalRepo := persistence.NewGormJournalEntryRepository(gdb)
	scope := persistence.NewGormTransactionScope(gdb)
	poster := appaccounting.NewJournalPoster(log)

	books := appfiscal.NewBookService(
		persistence.NewGormSalesBookRepository(gdb),
		persistence.NewGormPurchaseBookRepository(gdb),
		fiscal.DefaultSyncOptions(), log,
	)
	documents := cache.NewInMemoryBillingDocumentStore()
	books.SetDocumentResolver(documents)

	bus := event.NewInMemoryEventBus(log)
	handlers := event.WrapHandlersWithIdempotency(
		[]shared.EventHandler{
			appfiscal.NewBillingSyncHandler(books, log),
			appaccounting.NewBillingPostingHandler(scope, poster, log),
		},
		cache.NewInMemoryIdempotencyStore(),
		log,
		event.WithIdempotencyConfig(shared.DefaultIdempotencyConfig()),
	)
	for _, h := range handlers {
		bus.Subscribe(h)
	}
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	s := &ledgerServer{db: db, engine: gin.New(), bus: bus, books: books}
	s.actor = shared.UserActor(uuid.New(), uuid.New())

	lh := router.LedgerHandlers{
		Accounts: handler.NewAccountHandler(appaccounting.NewAccountService(accountRepo, log)),
		Journal:  handler.NewJournalHandler(appaccounting.NewJournalService(accountRepo, journalRepo, scope, poster, log)),
		Periods: handler.NewPeriodHandler(appaccounting.NewPeriodService(
			persistence.NewGormAccountingPeriodRepository(gdb), journalRepo, scope, poster, log)),
		Recurring: handler.NewRecurringHandler(appaccounting.NewRecurringService(
			persistence.NewGormRecurringEntryRepository(gdb), accountRepo, scope, poster, log)),
		Withholdings: handler.NewWithholdingHandler(appfiscal.NewWithholdingService(
			persistence.NewGormIVAWithholdingRepository(gdb),
			persistence.NewGormISLRWithholdingRepository(gdb),
			scope.Fiscal(), poster, log,
		)),
		Books:        handler.NewBookHandler(books),
		Declarations: handler.NewDeclarationHandler(appfiscal.NewDeclarationService(persistence.NewGormIVADeclarationRepository(gdb), scope.Fiscal(), log)),
		System:       handler.NewSystemHandler("fiscal-ledger", "test").AddCheck("database", (&persistence.Database{DB: gdb}).Ping),
	}

	s.engine.Use(middleware.RequestID())
	s.engine.GET("/ready", lh.System.Ready)
	authenticate := func(c *gin.Context) {
		c.Set(middleware.ActorKey, s.actor)
		c.Next()
	}
	router.NewRouter(s.engine).
		Use(authenticate).
		Register(router.AccountingRoutes(lh), router.FiscalRoutes(lh), router.SystemRoutes(lh)).
		Setup()
	router.InternalRoutes(s.engine, handler.NewInternalHandler(bus, documents, nil), authenticate)
	return s
}

// as switches the caller to a user of tenantID
func (s *ledgerServer) as(tenantID uuid.UUID) {
	s.actor = shared.UserActor(uuid.New(), tenantID)
}

func (s *ledgerServer) asSystem(tenantID uuid.UUID) {
	s.actor = shared.SystemActor(tenantID, middleware.InternalSource)
}

func (s *ledgerServer) tenant() uuid.UUID {
	return s.actor.TenantID
}

func (s *ledgerServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.True(t, envelope.Success, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.NotNil(t, resp.Error, w.Body.String())
	return resp.Error.Code
}
