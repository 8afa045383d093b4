package fiscal

import (
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeWithholdingCreated  = "WithholdingCreated"
	EventTypeWithholdingPosted   = "WithholdingPosted"
	EventTypeWithholdingAnnulled = "WithholdingAnnulled"
	EventTypeBookEntryAnnulled   = "BookEntryAnnulled"
	EventTypeSalesBookSynced     = "SalesBookSynced"
	EventTypeDeclarationFiled    = "IVADeclarationFiled"
	EventTypeDeclarationPaid     = "IVADeclarationPaid"
)

// WithholdingEvent carries withholding lifecycle transitions
type WithholdingEvent struct {
	shared.BaseDomainEvent
	Tax               TaxKind           `json:"tax"`
	CertificateNumber string            `json:"certificate_number"`
	Status            WithholdingStatus `json:"status"`
	Amount            decimal.Decimal   `json:"amount"`
	JournalEntryID    *uuid.UUID        `json:"journal_entry_id,omitempty"`
}

// NewWithholdingEvent creates a withholding event of the given type
func NewWithholdingEvent(eventType string, w *Withholding) *WithholdingEvent {
	return &WithholdingEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, w.Tax.String()+"Withholding", w.ID, w.TenantID),
		Tax:               w.Tax,
		CertificateNumber: w.CertificateNumber,
		Status:            w.Status,
		Amount:            w.WithholdingAmount,
		JournalEntryID:    w.JournalEntryID,
	}
}

// BookEntryEvent carries sales and purchase book transitions
type BookEntryEvent struct {
	shared.BaseDomainEvent
	Book          Book            `json:"book"`
	InvoiceNumber string          `json:"invoice_number"`
	Status        BookEntryStatus `json:"status"`
	Total         decimal.Decimal `json:"total"`
}

// NewBookEntryEvent creates a book entry event of the given type
func NewBookEntryEvent(eventType string, e *BookEntry) *BookEntryEvent {
	return &BookEntryEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "BookEntry", e.ID, e.TenantID),
		Book:            e.Book,
		InvoiceNumber:   e.InvoiceNumber,
		Status:          e.Status,
		Total:           e.TotalAmount,
	}
}

// SalesBookSyncedEvent is raised after a billing document was reconciled
type SalesBookSyncedEvent struct {
	shared.BaseDomainEvent
	BillingDocumentID uuid.UUID    `json:"billing_document_id"`
	InvoiceNumber     string       `json:"invoice_number"`
	Created           bool         `json:"created"`
	Reclaimed         bool         `json:"reclaimed"`
	Diagnostics       []Diagnostic `json:"diagnostics,omitempty"`
}

// NewSalesBookSyncedEvent creates a SalesBookSyncedEvent
func NewSalesBookSyncedEvent(e *BookEntry, documentID uuid.UUID, created, reclaimed bool, diags []Diagnostic) *SalesBookSyncedEvent {
	return &SalesBookSyncedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeSalesBookSynced, "BookEntry", e.ID, e.TenantID),
		BillingDocumentID: documentID,
		InvoiceNumber:     e.InvoiceNumber,
		Created:           created,
		Reclaimed:         reclaimed,
		Diagnostics:       diags,
	}
}

// DeclarationEvent carries IVA declaration transitions
type DeclarationEvent struct {
	shared.BaseDomainEvent
	Month             int               `json:"month"`
	Year              int               `json:"year"`
	DeclarationNumber string            `json:"declaration_number"`
	Status            DeclarationStatus `json:"status"`
	IVAToPay          decimal.Decimal   `json:"iva_to_pay"`
}

// NewDeclarationEvent creates a declaration event of the given type
func NewDeclarationEvent(eventType string, d *IVADeclaration) *DeclarationEvent {
	return &DeclarationEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(eventType, "IVADeclaration", d.ID, d.TenantID),
		Month:             d.Month,
		Year:              d.Year,
		DeclarationNumber: d.DeclarationNumber,
		Status:            d.Status,
		IVAToPay:          d.IVAToPay,
	}
}
