package fiscal

import (
	"context"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventTypeBillingDocumentIssued is published by billing when a document is issued
const EventTypeBillingDocumentIssued = "BillingDocumentIssued"

// Billing document types
const (
	BillingInvoice      = "invoice"
	BillingCreditNote   = "credit_note"
	BillingDebitNote    = "debit_note"
	BillingDeliveryNote = "delivery_note"
)

// BillingCustomer is the customer block of a billing document
type BillingCustomer struct {
	ID      string `json:"customerId,omitempty"`
	Name    string `json:"name"`
	RIF     string `json:"rif"`
	Address string `json:"address,omitempty"`
}

// BillingTax is a tax line of a billing document
type BillingTax struct {
	Type   string          `json:"type"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// BillingDocument is the payload of BillingDocumentIssued. VES fields are
// authoritative for posting; the original currency fields are kept as trace.
type BillingDocument struct {
	DocumentID             uuid.UUID       `json:"documentId"`
	TenantID               uuid.UUID       `json:"tenantId"`
	ControlNumber          string          `json:"controlNumber"`
	Type                   string          `json:"type"`
	DocumentNumber         string          `json:"documentNumber"`
	IssueDate              time.Time       `json:"issueDate"`
	Customer               BillingCustomer `json:"customer"`
	Subtotal               decimal.Decimal `json:"subtotal"`
	TaxAmount              decimal.Decimal `json:"taxAmount"`
	Total                  decimal.Decimal `json:"total"`
	Taxes                  []BillingTax    `json:"taxes"`
	Currency               string          `json:"currency"`
	ExchangeRate           decimal.Decimal `json:"exchangeRate"`
	SubtotalVES            decimal.Decimal `json:"subtotalVes"`
	TaxAmountVES           decimal.Decimal `json:"taxAmountVes"`
	TotalVES               decimal.Decimal `json:"totalVes"`
	WithheldIVAAmount      decimal.Decimal `json:"withheldIvaAmount"`
	WithholdingCertificate string          `json:"withholdingCertificate,omitempty"`
}

// IsCreditNote reports whether the document reverses revenue
func (d *BillingDocument) IsCreditNote() bool {
	return strings.EqualFold(d.Type, BillingCreditNote)
}

// IVATax returns the IVA tax line, or the first tax line when none is tagged IVA
func (d *BillingDocument) IVATax() (BillingTax, bool) {
	for _, t := range d.Taxes {
		if strings.EqualFold(strings.TrimSpace(t.Type), "IVA") {
			return t, true
		}
	}
	if len(d.Taxes) > 0 {
		return d.Taxes[0], true
	}
	return BillingTax{}, false
}

// VESAmounts returns subtotal, tax and total in VES. A non-zero VES field
// wins; otherwise the foreign amount is multiplied by the exchange rate.
func (d *BillingDocument) VESAmounts() (subtotal, tax, total decimal.Decimal) {
	convert := func(amount, ves decimal.Decimal) decimal.Decimal {
		if !ves.IsZero() {
			return ves
		}
		if d.IsFunctionalCurrency() || !d.ExchangeRate.IsPositive() {
			return amount
		}
		return valueobject.Convert(amount, d.ExchangeRate)
	}
	return convert(d.Subtotal, d.SubtotalVES), convert(d.TaxAmount, d.TaxAmountVES), convert(d.Total, d.TotalVES)
}

// IsFunctionalCurrency reports whether the document is already in VES
func (d *BillingDocument) IsFunctionalCurrency() bool {
	return valueobject.ParseCurrency(d.Currency).IsFunctional()
}

// BillingDocumentIssuedEvent carries an issued billing document across the bus
type BillingDocumentIssuedEvent struct {
	shared.BaseDomainEvent
	Document BillingDocument `json:"document"`
}

// EventType returns the event type name
func (e *BillingDocumentIssuedEvent) EventType() string { return EventTypeBillingDocumentIssued }

// NewBillingDocumentIssuedEvent wraps a document for publishing
func NewBillingDocumentIssuedEvent(doc BillingDocument) *BillingDocumentIssuedEvent {
	return &BillingDocumentIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBillingDocumentIssued, "BillingDocument", doc.DocumentID, doc.TenantID),
		Document:        doc,
	}
}

// BillingDocumentResolver loads billing documents owned by the billing context
type BillingDocumentResolver interface {
	// Resolve returns the document with the given id for the tenant
	Resolve(ctx context.Context, tenantID, documentID uuid.UUID) (*BillingDocument, error)
}
