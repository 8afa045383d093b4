package handler

import (
	"strings"

	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/gin-gonic/gin"
)

// WithholdingHandler serves IVA and ISLR withholding certificates. The tax
// is selected by the :tax path segment (iva or islr).
type WithholdingHandler struct {
	BaseHandler
	withholdings *appfiscal.WithholdingService
}

// NewWithholdingHandler creates a new WithholdingHandler
func NewWithholdingHandler(withholdings *appfiscal.WithholdingService) *WithholdingHandler {
	return &WithholdingHandler{withholdings: withholdings}
}

func (h *WithholdingHandler) taxFrom(c *gin.Context) (fiscal.TaxKind, bool) {
	tax := fiscal.TaxKind(strings.ToUpper(c.Param("tax")))
	if !tax.IsValid() {
		h.BadRequest(c, "Invalid tax: must be iva or islr")
		return "", false
	}
	return tax, true
}

// Create handles POST /withholdings/:tax
func (h *WithholdingHandler) Create(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}

	var (
		resp *appfiscal.WithholdingResponse
		err  error
	)
	if tax == fiscal.TaxIVA {
		var req appfiscal.IVAWithholdingRequest
		if !h.bindJSON(c, &req) {
			return
		}
		resp, err = h.withholdings.CreateIVA(c.Request.Context(), actor.TenantID, actor, req)
	} else {
		var req appfiscal.ISLRWithholdingRequest
		if !h.bindJSON(c, &req) {
			return
		}
		resp, err = h.withholdings.CreateISLR(c.Request.Context(), actor.TenantID, actor, req)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Update handles PUT /withholdings/:tax/:id. Only drafts are editable.
func (h *WithholdingHandler) Update(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	var (
		resp *appfiscal.WithholdingResponse
		err  error
	)
	if tax == fiscal.TaxIVA {
		var req appfiscal.UpdateIVAWithholdingRequest
		if !h.bindJSON(c, &req) {
			return
		}
		resp, err = h.withholdings.UpdateIVA(c.Request.Context(), actor.TenantID, id, req)
	} else {
		var req appfiscal.UpdateISLRWithholdingRequest
		if !h.bindJSON(c, &req) {
			return
		}
		resp, err = h.withholdings.UpdateISLR(c.Request.Context(), actor.TenantID, id, req)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get handles GET /withholdings/:tax/:id
func (h *WithholdingHandler) Get(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.withholdings.Get(c.Request.Context(), actor.TenantID, tax, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete handles DELETE /withholdings/:tax/:id
func (h *WithholdingHandler) Delete(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.withholdings.DeleteDraft(c.Request.Context(), actor.TenantID, tax, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Post handles POST /withholdings/:tax/:id/post
func (h *WithholdingHandler) Post(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.withholdings.Post(c.Request.Context(), actor.TenantID, actor, tax, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Annul handles POST /withholdings/:tax/:id/annul
func (h *WithholdingHandler) Annul(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appfiscal.AnnulRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.withholdings.Annul(c.Request.Context(), actor.TenantID, actor, tax, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List handles GET /withholdings/:tax
func (h *WithholdingHandler) List(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	var filter appfiscal.WithholdingListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.withholdings.List(c.Request.Context(), actor.TenantID, tax, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Summary handles GET /withholdings/:tax/summary?month=&year=
func (h *WithholdingHandler) Summary(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	var q appfiscal.MonthQuery
	if !h.bindQuery(c, &q) {
		return
	}
	summary, err := h.withholdings.Summary(c.Request.Context(), actor.TenantID, tax, q.Month, q.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// ExportARC handles POST /withholdings/:tax/export. Exported certificates are
// flagged; the file is returned as an attachment unless ?format=json.
func (h *WithholdingHandler) ExportARC(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	tax, ok := h.taxFrom(c)
	if !ok {
		return
	}
	var req appfiscal.ExportARCRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.withholdings.ExportARC(c.Request.Context(), actor.TenantID, tax, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.sendExport(c, result)
}
