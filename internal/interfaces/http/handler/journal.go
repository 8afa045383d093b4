package handler

import (
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/gin-gonic/gin"
)

// JournalHandler serves journal entries and the financial reports built
// from them
type JournalHandler struct {
	BaseHandler
	journal *appaccounting.JournalService
	now     func() time.Time
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journal *appaccounting.JournalService) *JournalHandler {
	return &JournalHandler{journal: journal, now: time.Now}
}

// Create handles POST /journal-entries
func (h *JournalHandler) Create(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req appaccounting.CreateJournalEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.journal.CreateJournalEntry(c.Request.Context(), actor.TenantID, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// Get handles GET /journal-entries/:id
func (h *JournalHandler) Get(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.journal.GetJournalEntry(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// List handles GET /journal-entries
func (h *JournalHandler) List(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var filter appaccounting.JournalEntryListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	result, err := h.journal.ListJournalEntries(c.Request.Context(), actor.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// AccountBalance handles GET /accounts/:id/balance?as_of=YYYY-MM-DD
func (h *JournalHandler) AccountBalance(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	asOf, ok := h.queryDate(c, "as_of", h.now())
	if !ok {
		return
	}
	balance, err := h.journal.GetAccountBalance(c.Request.Context(), actor.TenantID, id, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// ProfitAndLoss handles GET /reports/profit-loss?from=&to=. The range
// defaults to the current year to date.
func (h *JournalHandler) ProfitAndLoss(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	now := h.now()
	from, ok := h.queryDate(c, "from", time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC))
	if !ok {
		return
	}
	to, ok := h.queryDate(c, "to", now)
	if !ok {
		return
	}
	report, err := h.journal.GetProfitAndLoss(c.Request.Context(), actor.TenantID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// BalanceSheet handles GET /reports/balance-sheet?as_of=
func (h *JournalHandler) BalanceSheet(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	asOf, ok := h.queryDate(c, "as_of", h.now())
	if !ok {
		return
	}
	report, err := h.journal.GetBalanceSheet(c.Request.Context(), actor.TenantID, asOf)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// TrialBalance handles GET /reports/trial-balance
func (h *JournalHandler) TrialBalance(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var q appaccounting.TrialBalanceQuery
	if !h.bindQuery(c, &q) {
		return
	}
	report, err := h.journal.GetTrialBalance(c.Request.Context(), actor.TenantID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// GeneralLedger handles GET /reports/general-ledger?account_code=
func (h *JournalHandler) GeneralLedger(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var q appaccounting.GeneralLedgerQuery
	if !h.bindQuery(c, &q) {
		return
	}
	report, err := h.journal.GetGeneralLedger(c.Request.Context(), actor.TenantID, q)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
