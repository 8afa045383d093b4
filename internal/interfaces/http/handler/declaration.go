package handler

import (
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/gin-gonic/gin"
)

// DeclarationHandler serves monthly IVA declarations
type DeclarationHandler struct {
	BaseHandler
	declarations *appfiscal.DeclarationService
}

// NewDeclarationHandler creates a new DeclarationHandler
func NewDeclarationHandler(declarations *appfiscal.DeclarationService) *DeclarationHandler {
	return &DeclarationHandler{declarations: declarations}
}

// Calculate handles POST /declarations/calculate. Recalculating a month that
// has not been filed replaces its figures.
func (h *DeclarationHandler) Calculate(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req appfiscal.CalculateDeclarationRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.declarations.Calculate(c.Request.Context(), actor.TenantID, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// File handles POST /declarations/:id/file
func (h *DeclarationHandler) File(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfiscal.FileDeclarationRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.declarations.File(c.Request.Context(), actor.TenantID, actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RecordPayment handles POST /declarations/:id/payment
func (h *DeclarationHandler) RecordPayment(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfiscal.RecordPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.declarations.RecordPayment(c.Request.Context(), actor.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /declarations/:id
func (h *DeclarationHandler) Delete(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.declarations.Delete(c.Request.Context(), actor.TenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get handles GET /declarations/:id
func (h *DeclarationHandler) Get(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.declarations.Get(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /declarations
func (h *DeclarationHandler) List(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var filter appfiscal.DeclarationListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.declarations.List(c.Request.Context(), actor.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
