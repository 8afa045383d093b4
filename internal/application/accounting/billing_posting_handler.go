package accounting

import (
	"context"
	"fmt"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BillingListenerSource names the system actor of billing postings
const BillingListenerSource = "billing-listener"

// BillingPostingHandler handles BillingDocumentIssuedEvent and posts the
// receivable, revenue and IVA payable of the document into the journal
type BillingPostingHandler struct {
	txScope        TransactionScope
	poster         *JournalPoster
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewBillingPostingHandler creates a new handler for billing issued events
func NewBillingPostingHandler(txScope TransactionScope, poster *JournalPoster, logger *zap.Logger) *BillingPostingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingPostingHandler{txScope: txScope, poster: poster, logger: logger}
}

// SetEventPublisher sets the publisher of JournalEntryPosted events
func (h *BillingPostingHandler) SetEventPublisher(publisher shared.EventPublisher) {
	h.eventPublisher = publisher
}

// Name identifies the handler in logs and idempotency keys
func (h *BillingPostingHandler) Name() string {
	return BillingListenerSource
}

// EventTypes returns the event types this handler is interested in
func (h *BillingPostingHandler) EventTypes() []string {
	return []string{fiscal.EventTypeBillingDocumentIssued}
}

// Handle posts the automatic entry of an issued billing document
func (h *BillingPostingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	issued, ok := event.(*fiscal.BillingDocumentIssuedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", fiscal.EventTypeBillingDocumentIssued),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			fiscal.EventTypeBillingDocumentIssued, event.EventType())
	}
	_, err := h.Post(ctx, &issued.Document)
	return err
}

// Post writes the entry of doc. Documents with a zero total are skipped and
// return nil; a document already posted returns the existing entry.
func (h *BillingPostingHandler) Post(ctx context.Context, doc *fiscal.BillingDocument) (*accounting.JournalEntry, error) {
	subtotal, tax, total := doc.VESAmounts()
	if total.IsZero() {
		h.logger.Info("skipping billing posting, document total is zero",
			zap.String("document_id", doc.DocumentID.String()),
			zap.String("document_number", doc.DocumentNumber),
		)
		return nil, nil
	}
	subtotal, tax, total = subtotal.Abs(), tax.Abs(), total.Abs()

	tenantID := doc.TenantID
	actor := shared.SystemActor(tenantID, BillingListenerSource)
	var result PostingResult
	err := h.txScope.Execute(ctx, func(repos LedgerRepositories) error {
		resolved, err := ResolveSystemAccounts(ctx, repos.Accounts(), tenantID,
			accounting.AccountsReceivable, accounting.SalesRevenue, accounting.IVAPayable)
		if err != nil {
			return err
		}
		result, err = h.poster.Post(ctx, repos, tenantID, actor, PostingRequest{
			Date:        doc.IssueDate,
			Description: fmt.Sprintf("%s %s - %s", documentLabel(doc.Type), doc.DocumentNumber, customerName(doc)),
			Lines:       billingLines(doc, subtotal, tax, total, resolved[0], resolved[1], resolved[2]),
			IsAutomatic: true,
			Metadata: map[string]any{
				accounting.MetaBillingDocumentID: doc.DocumentID.String(),
				accounting.MetaDocumentType:      doc.Type,
			},
			SourceKind: accounting.SourceBilling,
			SourceID:   doc.DocumentID,
		})
		return err
	})
	if err != nil {
		h.logger.Error("failed to post billing document",
			zap.String("tenant_id", tenantID.String()),
			zap.String("document_id", doc.DocumentID.String()),
			zap.String("document_number", doc.DocumentNumber),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to post billing document %s: %w", doc.DocumentNumber, err)
	}

	if !result.Duplicate {
		h.logger.Info("billing document posted",
			zap.String("tenant_id", tenantID.String()),
			zap.String("document_number", doc.DocumentNumber),
			zap.String("entry_id", result.Entry.ID.String()),
			zap.String("total", total.StringFixed(2)),
		)
		PublishEvents(ctx, h.eventPublisher, h.logger, result.Entry)
	}
	return result.Entry, nil
}

// billingLines debits receivables against revenue and IVA. A credit note
// reverses the sides with the same positive amounts.
func billingLines(doc *fiscal.BillingDocument, subtotal, tax, total decimal.Decimal, receivable, revenue, ivaPayable *accounting.Account) []accounting.LineInput {
	number := doc.DocumentNumber
	lines := []accounting.LineInput{
		{Account: receivable, Debit: total, Description: "Cuentas por cobrar doc " + number},
		{Account: revenue, Credit: subtotal, Description: "Ingreso doc " + number},
	}
	if !tax.IsZero() {
		lines = append(lines, accounting.LineInput{Account: ivaPayable, Credit: tax, Description: "IVA doc " + number})
	}
	if doc.IsCreditNote() {
		for i := range lines {
			lines[i].Debit, lines[i].Credit = lines[i].Credit, lines[i].Debit
		}
	}
	return lines
}

func documentLabel(docType string) string {
	switch docType {
	case fiscal.BillingCreditNote:
		return "Nota de Crédito"
	case fiscal.BillingDebitNote:
		return "Nota de Débito"
	}
	return "Factura"
}

func customerName(doc *fiscal.BillingDocument) string {
	if doc.Customer.Name == "" {
		return fiscal.DefaultCustomerName
	}
	return doc.Customer.Name
}
