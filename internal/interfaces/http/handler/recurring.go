package handler

import (
	"strconv"
	"time"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxUpcomingDays bounds the look-ahead of the upcoming executions view
const maxUpcomingDays = 366

// RecurringHandler serves recurring entry templates and their execution
type RecurringHandler struct {
	BaseHandler
	recurring *appaccounting.RecurringService
	now       func() time.Time
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurring *appaccounting.RecurringService) *RecurringHandler {
	return &RecurringHandler{recurring: recurring, now: time.Now}
}

// ExecuteRequest is the optional body of the execute endpoints
type ExecuteRequest struct {
	Date             *time.Time `json:"date"`
	RecurringEntryID *uuid.UUID `json:"recurring_entry_id"`
}

// Create handles POST /recurring-entries
func (h *RecurringHandler) Create(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req appaccounting.CreateRecurringEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.recurring.Create(c.Request.Context(), actor.TenantID, actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// Update handles PUT /recurring-entries/:id
func (h *RecurringHandler) Update(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req appaccounting.UpdateRecurringEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.recurring.Update(c.Request.Context(), actor.TenantID, actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Toggle handles POST /recurring-entries/:id/toggle
func (h *RecurringHandler) Toggle(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.recurring.ToggleActive(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Delete handles DELETE /recurring-entries/:id
func (h *RecurringHandler) Delete(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.recurring.Delete(c.Request.Context(), actor.TenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Get handles GET /recurring-entries/:id
func (h *RecurringHandler) Get(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	entry, err := h.recurring.GetByID(c.Request.Context(), actor.TenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// List handles GET /recurring-entries
func (h *RecurringHandler) List(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var filter appaccounting.RecurringListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	entries, err := h.recurring.List(c.Request.Context(), actor.TenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Upcoming handles GET /recurring-entries/upcoming?days=30
func (h *RecurringHandler) Upcoming(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	days := 30
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxUpcomingDays {
			h.BadRequest(c, "days must be between 1 and 366")
			return
		}
		days = n
	}
	entries, err := h.recurring.Upcoming(c.Request.Context(), actor.TenantID, days)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// Execute handles POST /recurring-entries/:id/execute. The entry posts as of
// the given date, today by default, regardless of its schedule.
func (h *RecurringHandler) Execute(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req ExecuteRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.recurring.ExecuteOne(c.Request.Context(), actor.TenantID, actor, id, h.dateOrToday(req.Date))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// RunPending handles POST /recurring-entries/run. Every due entry of the
// tenant executes; a failing entry does not stop the others.
func (h *RecurringHandler) RunPending(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var req ExecuteRequest
	if c.Request.ContentLength > 0 && !h.bindJSON(c, &req) {
		return
	}
	result, err := h.recurring.ExecuteAllPending(c.Request.Context(), actor.TenantID, h.dateOrToday(req.Date), req.RecurringEntryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *RecurringHandler) dateOrToday(d *time.Time) time.Time {
	if d != nil && !d.IsZero() {
		return *d
	}
	return h.now()
}
