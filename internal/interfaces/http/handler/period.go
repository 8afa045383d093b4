package handler

import (
	"context"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PeriodHandler serves accounting periods and their close cycle
type PeriodHandler struct {
	BaseHandler
	periods *appaccounting.PeriodService
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods *appaccounting.PeriodService) *PeriodHandler {
	return &PeriodHandler{periods: periods}
}

// Create handles POST /periods
func (h *PeriodHandler) Create(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req appaccounting.CreatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	period, err := h.periods.Create(c.Request.Context(), actor.TenantID, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, period)
}

// Update handles PUT /periods/:id
func (h *PeriodHandler) Update(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appaccounting.UpdatePeriodRequest
	if !h.bindJSON(c, &req) {
		return
	}
	period, err := h.periods.Update(c.Request.Context(), actor.TenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Close handles POST /periods/:id/close. Closing posts the closing entry
// that zeroes the result accounts into retained earnings.
func (h *PeriodHandler) Close(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appaccounting.ClosePeriodRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	period, err := h.periods.Close(c.Request.Context(), actor.TenantID, actor, id, req.Notes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Lock handles POST /periods/:id/lock
func (h *PeriodHandler) Lock(c *gin.Context) {
	h.transition(c, h.periods.Lock)
}

// Unlock handles POST /periods/:id/unlock
func (h *PeriodHandler) Unlock(c *gin.Context) {
	h.transition(c, h.periods.Unlock)
}

// Reopen handles POST /periods/:id/reopen
func (h *PeriodHandler) Reopen(c *gin.Context) {
	h.transition(c, h.periods.Reopen)
}

func (h *PeriodHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID, uuid.UUID) (*appaccounting.PeriodResponse, error)) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	period, err := fn(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Delete handles DELETE /periods/:id
func (h *PeriodHandler) Delete(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.periods.Delete(c.Request.Context(), actor.TenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get handles GET /periods/:id
func (h *PeriodHandler) Get(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	period, err := h.periods.GetByID(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// List handles GET /periods
func (h *PeriodHandler) List(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var filter appaccounting.PeriodListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	result, err := h.periods.List(c.Request.Context(), actor.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// ForDate handles GET /periods/for-date?date=YYYY-MM-DD
func (h *PeriodHandler) ForDate(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	if c.Query("date") == "" {
		h.BadRequest(c, "date is required")
		return
	}
	date, ok := h.queryDate(c, "date", time.Time{})
	if !ok {
		return
	}
	period, err := h.periods.GetPeriodForDate(c.Request.Context(), actor.TenantID, date)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// Current handles GET /periods/current
func (h *PeriodHandler) Current(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	period, err := h.periods.GetCurrentPeriod(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, period)
}

// FiscalYears handles GET /periods/fiscal-years
func (h *PeriodHandler) FiscalYears(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	years, err := h.periods.GetFiscalYears(c.Request.Context(), actor.TenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, years)
}
