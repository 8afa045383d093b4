package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/logger"
	"github.com/erp/fiscal/internal/infrastructure/scheduler"
	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentSaver keeps billing document payloads for later re-sync
type DocumentSaver interface {
	Save(ctx context.Context, doc *fiscal.BillingDocument) error
}

// RecurringTrigger queues a recurring entry run outside the daily schedule
type RecurringTrigger interface {
	TriggerNow(tenantID *uuid.UUID, executionDate time.Time) (*scheduler.Job, error)
}

// InternalHandler serves service-to-service endpoints authenticated by API key
type InternalHandler struct {
	BaseHandler
	publisher shared.EventPublisher
	documents DocumentSaver
	trigger   RecurringTrigger
	now       func() time.Time
}

// NewInternalHandler creates a new InternalHandler. documents and trigger
// may be nil.
func NewInternalHandler(publisher shared.EventPublisher, documents DocumentSaver, trigger RecurringTrigger) *InternalHandler {
	return &InternalHandler{publisher: publisher, documents: documents, trigger: trigger, now: time.Now}
}

// BillingDocumentAccepted acknowledges a received billing document
type BillingDocumentAccepted struct {
	DocumentID uuid.UUID `json:"document_id"`
	EventID    uuid.UUID `json:"event_id"`
}

// JobAccepted acknowledges a queued recurring run
type JobAccepted struct {
	JobID         uuid.UUID  `json:"job_id"`
	TenantID      *uuid.UUID `json:"tenant_id,omitempty"`
	ExecutionDate time.Time  `json:"execution_date"`
	Status        string     `json:"status"`
}

// BillingDocumentIssued handles POST /internal/billing-documents. The
// payload is stored for re-sync and published as BillingDocumentIssued.
func (h *InternalHandler) BillingDocumentIssued(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	var doc fiscal.BillingDocument
	if !h.bindJSON(c, &doc) {
		return
	}
	if doc.DocumentID == uuid.Nil {
		h.BadRequest(c, "documentId is required")
		return
	}
	if doc.TenantID == uuid.Nil {
		doc.TenantID = actor.TenantID
	}
	if doc.TenantID != actor.TenantID {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Document belongs to another tenant")
		return
	}

	ctx := c.Request.Context()
	if h.documents != nil {
		if err := h.documents.Save(ctx, &doc); err != nil {
			logger.GetGinLogger(c).Warn("Failed to store billing document",
				zap.String("document_id", doc.DocumentID.String()),
				zap.Error(err),
			)
		}
	}

	evt := fiscal.NewBillingDocumentIssuedEvent(doc)
	if err := h.publisher.Publish(ctx, evt); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(BillingDocumentAccepted{
		DocumentID: doc.DocumentID,
		EventID:    evt.EventID(),
	}))
}

// RunRecurring handles POST /internal/recurring/run?date=YYYY-MM-DD for the
// tenant of the X-Tenant-ID header
func (h *InternalHandler) RunRecurring(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	if h.trigger == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Scheduler is not running")
		return
	}
	date, ok := h.queryDate(c, "date", h.now())
	if !ok {
		return
	}
	tenantID := actor.TenantID
	job, err := h.trigger.TriggerNow(&tenantID, date)
	if errors.Is(err, scheduler.ErrSchedulerNotRunning) || errors.Is(err, scheduler.ErrJobQueueFull) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, err.Error())
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(JobAccepted{
		JobID:         job.ID,
		TenantID:      job.TenantID,
		ExecutionDate: job.ExecutionDate,
		Status:        string(job.Status),
	}))
}
