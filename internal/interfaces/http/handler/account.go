package handler

import (
	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/gin-gonic/gin"
)

// AccountHandler serves the chart of accounts
type AccountHandler struct {
	BaseHandler
	accounts *appaccounting.AccountService
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(accounts *appaccounting.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Create handles POST /accounts
func (h *AccountHandler) Create(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req appaccounting.CreateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.Create(c.Request.Context(), actor.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// Update handles PUT /accounts/:id
func (h *AccountHandler) Update(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appaccounting.UpdateAccountRequest
	if !h.bindJSON(c, &req) {
		return
	}
	account, err := h.accounts.Update(c.Request.Context(), actor.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Get handles GET /accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	account, err := h.accounts.GetByID(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// GetByCode handles GET /accounts/code/:code
func (h *AccountHandler) GetByCode(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	account, err := h.accounts.GetByCode(c.Request.Context(), actor.TenantID, c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// List handles GET /accounts
func (h *AccountHandler) List(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var filter appaccounting.AccountListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	result, err := h.accounts.List(c.Request.Context(), actor.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// EnsureSystemAccounts handles POST /accounts/system. It creates the
// accounts automatic postings rely on and is safe to repeat.
func (h *AccountHandler) EnsureSystemAccounts(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	accounts, err := h.accounts.EnsureSystemAccounts(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, accounts)
}

// Seed handles POST /accounts/seed with a list of accounts ordered parents
// first
func (h *AccountHandler) Seed(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req []appaccounting.SeedAccount
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.accounts.Seed(c.Request.Context(), actor.TenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
