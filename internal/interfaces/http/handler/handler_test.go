package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/persistence"
	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/erp/fiscal/internal/interfaces/http/middleware"
	"github.com/erp/fiscal/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

// testServer mounts the ledger handlers over real services on SQLite. Every
// request runs as a user of tenantID unless anonymous is set.
type testServer struct {
	engine    *gin.Engine
	tenantID  uuid.UUID
	actor     shared.Actor
	anonymous bool
	publisher *testutil.RecordingPublisher

	accounts  *appaccounting.AccountService
	recurring *appaccounting.RecurringService
	books     *appfiscal.BookService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	log := zap.NewNop()

	accountRepo := persistence.NewGormAccountRepository(db)
	journalRepo := persistence.NewGormJournalEntryRepository(db)
	scope := persistence.NewGormTransactionScope(db)
	poster := appaccounting.NewJournalPoster(log)

	tenantID := uuid.New()
	s := &testServer{
		engine:    gin.New(),
		tenantID:  tenantID,
		actor:     shared.UserActor(uuid.New(), tenantID),
		publisher: testutil.NewRecordingPublisher(),
		accounts:  appaccounting.NewAccountService(accountRepo, log),
		recurring: appaccounting.NewRecurringService(persistence.NewGormRecurringEntryRepository(db), accountRepo, scope, poster, log),
		books: appfiscal.NewBookService(
			persistence.NewGormSalesBookRepository(db),
			persistence.NewGormPurchaseBookRepository(db),
			fiscal.DefaultSyncOptions(), log,
		),
	}
	journal := appaccounting.NewJournalService(accountRepo, journalRepo, scope, poster, log)
	periods := appaccounting.NewPeriodService(persistence.NewGormAccountingPeriodRepository(db), journalRepo, scope, poster, log)
	withholdings := appfiscal.NewWithholdingService(
		persistence.NewGormIVAWithholdingRepository(db),
		persistence.NewGormISLRWithholdingRepository(db),
		scope.Fiscal(), poster, log,
	)
	declarations := appfiscal.NewDeclarationService(persistence.NewGormIVADeclarationRepository(db), scope.Fiscal(), log)

	s.engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-test")
		if !s.anonymous {
			c.Set(middleware.ActorKey, s.actor)
		}
		c.Next()
	})
	api := s.engine.Group("/api/v1")

	ah := NewAccountHandler(s.accounts)
	api.POST("/accounts", ah.Create)
	api.POST("/accounts/system", ah.EnsureSystemAccounts)
	api.POST("/accounts/seed", ah.Seed)
	api.GET("/accounts", ah.List)
	api.GET("/accounts/:id", ah.Get)
	api.GET("/accounts/code/:code", ah.GetByCode)
	api.PUT("/accounts/:id", ah.Update)

	jh := NewJournalHandler(journal)
	api.POST("/journal-entries", jh.Create)
	api.GET("/journal-entries", jh.List)
	api.GET("/journal-entries/:id", jh.Get)
	api.GET("/accounts/:id/balance", jh.AccountBalance)
	api.GET("/reports/trial-balance", jh.TrialBalance)
	api.GET("/reports/profit-loss", jh.ProfitAndLoss)

	ph := NewPeriodHandler(periods)
	api.POST("/periods", ph.Create)
	api.GET("/periods", ph.List)
	api.GET("/periods/for-date", ph.ForDate)
	api.GET("/periods/:id", ph.Get)
	api.POST("/periods/:id/close", ph.Close)
	api.POST("/periods/:id/lock", ph.Lock)
	api.POST("/periods/:id/reopen", ph.Reopen)
	api.DELETE("/periods/:id", ph.Delete)

	rh := NewRecurringHandler(s.recurring)
	api.POST("/recurring-entries", rh.Create)
	api.GET("/recurring-entries", rh.List)
	api.GET("/recurring-entries/upcoming", rh.Upcoming)
	api.POST("/recurring-entries/run", rh.RunPending)
	api.GET("/recurring-entries/:id", rh.Get)
	api.POST("/recurring-entries/:id/toggle", rh.Toggle)
	api.POST("/recurring-entries/:id/execute", rh.Execute)
	api.DELETE("/recurring-entries/:id", rh.Delete)

	wh := NewWithholdingHandler(withholdings)
	api.POST("/withholdings/:tax", wh.Create)
	api.GET("/withholdings/:tax", wh.List)
	api.GET("/withholdings/:tax/summary", wh.Summary)
	api.POST("/withholdings/:tax/export", wh.ExportARC)
	api.GET("/withholdings/:tax/:id", wh.Get)
	api.PUT("/withholdings/:tax/:id", wh.Update)
	api.DELETE("/withholdings/:tax/:id", wh.Delete)
	api.POST("/withholdings/:tax/:id/post", wh.Post)
	api.POST("/withholdings/:tax/:id/annul", wh.Annul)

	bh := NewBookHandler(s.books)
	api.GET("/books/:book", bh.GetBook)
	api.GET("/books/:book/summary", bh.Summary)
	api.GET("/books/:book/validate", bh.Validate)
	api.POST("/books/:book/export", bh.Export)
	api.POST("/books/:book/entries", bh.CreateEntry)
	api.GET("/books/:book/entries", bh.ListEntries)
	api.GET("/books/:book/entries/:id", bh.GetEntry)
	api.PUT("/books/:book/entries/:id", bh.UpdateEntry)
	api.DELETE("/books/:book/entries/:id", bh.DeleteEntry)
	api.POST("/books/:book/entries/:id/confirm", bh.ConfirmEntry)
	api.POST("/books/:book/entries/:id/annul", bh.AnnulEntry)
	api.GET("/books/:book/entries/:id/validate", bh.ValidateEntry)
	api.POST("/sales-sync/:documentId", bh.Resync)

	dh := NewDeclarationHandler(declarations)
	api.POST("/declarations/calculate", dh.Calculate)
	api.GET("/declarations", dh.List)
	api.GET("/declarations/:id", dh.Get)
	api.POST("/declarations/:id/file", dh.File)
	api.POST("/declarations/:id/payment", dh.RecordPayment)
	api.DELETE("/declarations/:id", dh.Delete)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(data)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data field of a success envelope into T
func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Meta    *dto.Meta       `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope), w.Body.String())
	require.True(t, envelope.Success, w.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(envelope.Data, &out))
	return out
}

// errorCode returns the error code of a failure envelope
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func metaOf(t *testing.T, w *httptest.ResponseRecorder) dto.Meta {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Meta)
	return *resp.Meta
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
