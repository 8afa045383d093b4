package fiscal

import (
	"context"
	"fmt"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"go.uber.org/zap"
)

// BillingSyncSource names the system actor of sales book reconciliation
const BillingSyncSource = "billing-sync"

// BillingSyncHandler reconciles the sales book whenever billing issues a document
type BillingSyncHandler struct {
	books  *BookService
	logger *zap.Logger
}

// NewBillingSyncHandler creates a new BillingSyncHandler
func NewBillingSyncHandler(books *BookService, logger *zap.Logger) *BillingSyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingSyncHandler{books: books, logger: logger}
}

// Name identifies the handler in logs and idempotency keys
func (h *BillingSyncHandler) Name() string {
	return BillingSyncSource
}

// EventTypes returns the event types this handler is interested in
func (h *BillingSyncHandler) EventTypes() []string {
	return []string{fiscal.EventTypeBillingDocumentIssued}
}

// Handle writes the sales book row of the issued document
func (h *BillingSyncHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	issued, ok := event.(*fiscal.BillingDocumentIssuedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", fiscal.EventTypeBillingDocumentIssued),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			fiscal.EventTypeBillingDocumentIssued, event.EventType())
	}

	doc := issued.Document
	actor := shared.SystemActor(doc.TenantID, BillingSyncSource)
	if _, err := h.books.SyncFromBillingDocument(ctx, doc.TenantID, doc.DocumentID, &doc, actor); err != nil {
		h.logger.Error("failed to sync sales book",
			zap.String("tenant_id", doc.TenantID.String()),
			zap.String("document_id", doc.DocumentID.String()),
			zap.String("document_number", doc.DocumentNumber),
			zap.Error(err),
		)
		return err
	}
	return nil
}
