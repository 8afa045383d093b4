package router

import (
	"github.com/erp/fiscal/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// LedgerHandlers are the handlers behind the authenticated API. Export may
// be nil when no archive is configured.
type LedgerHandlers struct {
	Accounts     *handler.AccountHandler
	Journal      *handler.JournalHandler
	Periods      *handler.PeriodHandler
	Recurring    *handler.RecurringHandler
	Withholdings *handler.WithholdingHandler
	Books        *handler.BookHandler
	Declarations *handler.DeclarationHandler
	Exports      *handler.ExportHandler
	System       *handler.SystemHandler
}

// AccountingRoutes covers the chart of accounts, the journal, fiscal periods
// and recurring entries
func AccountingRoutes(h LedgerHandlers) *DomainGroup {
	g := NewDomainGroup("accounting", "")

	g.GET("/accounts", h.Accounts.List).
		POST("/accounts", h.Accounts.Create).
		POST("/accounts/system", h.Accounts.EnsureSystemAccounts).
		POST("/accounts/seed", h.Accounts.Seed).
		GET("/accounts/code/:code", h.Accounts.GetByCode).
		GET("/accounts/:id", h.Accounts.Get).
		PUT("/accounts/:id", h.Accounts.Update).
		GET("/accounts/:id/balance", h.Journal.AccountBalance)

	g.GET("/journal-entries", h.Journal.List).
		POST("/journal-entries", h.Journal.Create).
		GET("/journal-entries/:id", h.Journal.Get)

	g.GET("/reports/trial-balance", h.Journal.TrialBalance).
		GET("/reports/profit-loss", h.Journal.ProfitAndLoss).
		GET("/reports/balance-sheet", h.Journal.BalanceSheet).
		GET("/reports/general-ledger", h.Journal.GeneralLedger)

	g.GET("/periods", h.Periods.List).
		POST("/periods", h.Periods.Create).
		GET("/periods/current", h.Periods.Current).
		GET("/periods/for-date", h.Periods.ForDate).
		GET("/periods/fiscal-years", h.Periods.FiscalYears).
		GET("/periods/:id", h.Periods.Get).
		PUT("/periods/:id", h.Periods.Update).
		DELETE("/periods/:id", h.Periods.Delete).
		POST("/periods/:id/close", h.Periods.Close).
		POST("/periods/:id/lock", h.Periods.Lock).
		POST("/periods/:id/unlock", h.Periods.Unlock).
		POST("/periods/:id/reopen", h.Periods.Reopen)

	g.GET("/recurring-entries", h.Recurring.List).
		POST("/recurring-entries", h.Recurring.Create).
		GET("/recurring-entries/upcoming", h.Recurring.Upcoming).
		POST("/recurring-entries/run", h.Recurring.RunPending).
		GET("/recurring-entries/:id", h.Recurring.Get).
		PUT("/recurring-entries/:id", h.Recurring.Update).
		DELETE("/recurring-entries/:id", h.Recurring.Delete).
		POST("/recurring-entries/:id/toggle", h.Recurring.Toggle).
		POST("/recurring-entries/:id/execute", h.Recurring.Execute)
	return g
}

// FiscalRoutes covers withholdings, the IVA books and the IVA declaration
func FiscalRoutes(h LedgerHandlers) *DomainGroup {
	g := NewDomainGroup("fiscal", "")

	g.GET("/withholdings/:tax", h.Withholdings.List).
		POST("/withholdings/:tax", h.Withholdings.Create).
		GET("/withholdings/:tax/summary", h.Withholdings.Summary).
		POST("/withholdings/:tax/export", h.Withholdings.ExportARC).
		GET("/withholdings/:tax/:id", h.Withholdings.Get).
		PUT("/withholdings/:tax/:id", h.Withholdings.Update).
		DELETE("/withholdings/:tax/:id", h.Withholdings.Delete).
		POST("/withholdings/:tax/:id/post", h.Withholdings.Post).
		POST("/withholdings/:tax/:id/annul", h.Withholdings.Annul)

	g.GET("/books/:book", h.Books.GetBook).
		GET("/books/:book/summary", h.Books.Summary).
		GET("/books/:book/validate", h.Books.Validate).
		POST("/books/:book/export", h.Books.Export).
		GET("/books/:book/entries", h.Books.ListEntries).
		POST("/books/:book/entries", h.Books.CreateEntry).
		GET("/books/:book/entries/:id", h.Books.GetEntry).
		PUT("/books/:book/entries/:id", h.Books.UpdateEntry).
		DELETE("/books/:book/entries/:id", h.Books.DeleteEntry).
		POST("/books/:book/entries/:id/confirm", h.Books.ConfirmEntry).
		POST("/books/:book/entries/:id/annul", h.Books.AnnulEntry).
		GET("/books/:book/entries/:id/validate", h.Books.ValidateEntry).
		POST("/sales-sync/:documentId", h.Books.Resync)

	g.GET("/declarations", h.Declarations.List).
		POST("/declarations/calculate", h.Declarations.Calculate).
		GET("/declarations/:id", h.Declarations.Get).
		DELETE("/declarations/:id", h.Declarations.Delete).
		POST("/declarations/:id/file", h.Declarations.File).
		POST("/declarations/:id/payment", h.Declarations.RecordPayment)

	if h.Exports != nil {
		g.GET("/exports/download-url", h.Exports.DownloadURL)
	}
	return g
}

// SystemRoutes exposes build information to authenticated callers
func SystemRoutes(h LedgerHandlers) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)
}

// InternalRoutes mounts the service-to-service endpoints under /internal.
// auth must authenticate the caller and set its actor.
func InternalRoutes(engine *gin.Engine, h *handler.InternalHandler, auth ...gin.HandlerFunc) {
	internal := engine.Group("/internal", auth...)
	internal.POST("/billing-documents", h.BillingDocumentIssued)
	internal.POST("/recurring/run", h.RunRecurring)
}
