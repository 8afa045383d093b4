package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/fiscal/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouter_Setup(t *testing.T) {
	engine := gin.New()
	var order []string
	r := NewRouter(engine).
		Use(func(c *gin.Context) {
			order = append(order, "auth")
			c.Next()
		})

	g := NewDomainGroup("accounting", "/accounting").
		Use(func(c *gin.Context) {
			order = append(order, "group")
			c.Header("X-Group", "accounting")
			c.Next()
		}).
		GET("/accounts", func(c *gin.Context) { c.String(http.StatusOK, "accounts") })
	g.Group("reports", "/reports").
		GET("/trial-balance", func(c *gin.Context) { c.String(http.StatusOK, "tb") })

	r.Register(g).Setup()
	engine.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	w := serve(engine, http.MethodGet, "/api/v1/accounting/accounts")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "accounting", w.Header().Get("X-Group"))
	assert.Equal(t, []string{"auth", "group"}, order)

	w = serve(engine, http.MethodGet, "/api/v1/accounting/reports/trial-balance")
	assert.Equal(t, "tb", w.Body.String())

	order = nil
	serve(engine, http.MethodGet, "/health")
	assert.Empty(t, order, "API middleware must not run outside the versioned group")
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	g := NewDomainGroup("periods", "/periods").
		GET("/:id", ok).
		POST("/:id/close", ok).
		PUT("/:id", ok).
		DELETE("/:id", ok)
	g.RegisterRoutes(engine.Group("/api/v1"))

	assert.Equal(t, "periods", g.Name())
	assert.Equal(t, "/periods", g.Prefix())
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		assert.Equal(t, http.StatusNoContent, serve(engine, method, "/api/v1/periods/p1").Code, method)
	}
	assert.Equal(t, http.StatusNoContent, serve(engine, http.MethodPost, "/api/v1/periods/p1/close").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodPost, "/api/v1/periods/p1/archive").Code)
}

func ledgerHandlers(withExports bool) LedgerHandlers {
	h := LedgerHandlers{
		Accounts:     handler.NewAccountHandler(nil),
		Journal:      handler.NewJournalHandler(nil),
		Periods:      handler.NewPeriodHandler(nil),
		Recurring:    handler.NewRecurringHandler(nil),
		Withholdings: handler.NewWithholdingHandler(nil),
		Books:        handler.NewBookHandler(nil),
		Declarations: handler.NewDeclarationHandler(nil),
		System:       handler.NewSystemHandler("fiscal-ledger", "test"),
	}
	if withExports {
		h.Exports = handler.NewExportHandler(nil, time.Minute)
	}
	return h
}

func registered(engine *gin.Engine) map[string]bool {
	routes := make(map[string]bool)
	for _, r := range engine.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	return routes
}

func TestLedgerRoutes(t *testing.T) {
	engine := gin.New()
	h := ledgerHandlers(true)
	require.NotPanics(t, func() {
		NewRouter(engine).Register(AccountingRoutes(h), FiscalRoutes(h), SystemRoutes(h)).Setup()
		InternalRoutes(engine, handler.NewInternalHandler(nil, nil, nil))
	})

	routes := registered(engine)
	for _, want := range []string{
		"POST /api/v1/accounts",
		"GET /api/v1/accounts/code/:code",
		"GET /api/v1/accounts/:id/balance",
		"POST /api/v1/journal-entries",
		"GET /api/v1/reports/trial-balance",
		"POST /api/v1/periods/:id/close",
		"GET /api/v1/periods/current",
		"POST /api/v1/recurring-entries/run",
		"POST /api/v1/withholdings/:tax/:id/post",
		"POST /api/v1/withholdings/:tax/export",
		"POST /api/v1/books/:book/export",
		"POST /api/v1/sales-sync/:documentId",
		"POST /api/v1/declarations/:id/payment",
		"GET /api/v1/exports/download-url",
		"GET /api/v1/system/info",
		"POST /internal/billing-documents",
		"POST /internal/recurring/run",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
}

func TestFiscalRoutes_WithoutArchive(t *testing.T) {
	engine := gin.New()
	NewRouter(engine).Register(FiscalRoutes(ledgerHandlers(false))).Setup()

	assert.False(t, registered(engine)["GET /api/v1/exports/download-url"])
}
