package fiscal

import (
	"fmt"
	"strings"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Diagnostic codes raised while reconciling a billing document
const (
	DiagTaxAmountHealed     = "TAX_AMOUNT_HEALED"
	DiagTotalHealed         = "TOTAL_HEALED"
	DiagRateInferred        = "RATE_INFERRED"
	DiagMissingExchangeRate = "MISSING_EXCHANGE_RATE"
	DiagRIFNormalized       = "RIF_NORMALIZED"
	DiagRIFUnrecognized     = "RIF_UNRECOGNIZED"
	DiagCustomerDefaulted   = "CUSTOMER_DEFAULTED"
	DiagEntryLocked         = "ENTRY_LOCKED"
)

// DefaultCustomerName is used when a billing document has no customer name
const DefaultCustomerName = "Cliente sin nombre"

// Diagnostic is an integrity warning: the sync proceeded with a corrected value
type Diagnostic struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SyncOptions tunes the reconciliation
type SyncOptions struct {
	// Tolerance bounds the tax and total drift accepted before healing
	Tolerance decimal.Decimal
	// DefaultPersonType prefixes bare RIF numbers
	DefaultPersonType byte
}

// DefaultSyncOptions returns a 2.0 tolerance and V as default person type
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{Tolerance: valueobject.ConversionTolerance, DefaultPersonType: PersonTypeNatural}
}

var billingTransactionTypes = map[string]TransactionType{
	BillingInvoice:      TransactionSale,
	BillingCreditNote:   TransactionCreditNote,
	BillingDebitNote:    TransactionDebitNote,
	BillingDeliveryNote: TransactionSale,
}

// TransactionTypeForBilling maps a billing document type to a sales book type
func TransactionTypeForBilling(docType string) TransactionType {
	if t, ok := billingTransactionTypes[strings.ToLower(strings.TrimSpace(docType))]; ok {
		return t
	}
	return TransactionSale
}

// BuildSalesEntryFromBilling derives a confirmed sales book row from a billing
// document. Inconsistent upstream data is corrected and reported as diagnostics.
func BuildSalesEntryFromBilling(tenantID uuid.UUID, actor shared.Actor, documentID uuid.UUID, doc *BillingDocument, opts SyncOptions) (*SalesBookEntry, []Diagnostic, error) {
	if strings.TrimSpace(doc.DocumentNumber) == "" {
		return nil, nil, shared.NewDomainError("REQUIRED_FIELD", "Billing document number is required")
	}
	if doc.IssueDate.IsZero() {
		return nil, nil, shared.NewDomainError("REQUIRED_FIELD", "Billing document issue date is required")
	}
	if opts.Tolerance.IsZero() {
		opts.Tolerance = valueobject.ConversionTolerance
	}
	if opts.DefaultPersonType == 0 {
		opts.DefaultPersonType = PersonTypeNatural
	}

	var diags []Diagnostic
	warn := func(code, field, format string, args ...any) {
		diags = append(diags, Diagnostic{Code: code, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Tax line
	var rate, taxAmount decimal.Decimal
	if t, ok := doc.IVATax(); ok {
		rate = t.Rate
		taxAmount = t.Amount
		if taxAmount.IsZero() {
			taxAmount = doc.TaxAmount
		}
	} else if doc.TaxAmount.IsZero() {
		rate = decimal.Zero
	} else {
		taxAmount = doc.TaxAmount
		rate = NearestIVARate(doc.Subtotal, taxAmount)
		warn(DiagRateInferred, "ivaRate", "No tax lines on document %s, inferred rate %s%%", doc.DocumentNumber, rate)
	}
	if !IsValidIVARate(rate) {
		inferred := NearestIVARate(doc.Subtotal, taxAmount)
		warn(DiagRateInferred, "ivaRate", "Rate %s%% on document %s is not legal, using %s%%", rate, doc.DocumentNumber, inferred)
		rate = inferred
	}

	// Currency
	currency := valueobject.ParseCurrency(doc.Currency)
	base, total := doc.Subtotal, doc.Total
	foreign := !currency.IsFunctional()
	exchangeRate := decimal.NewFromInt(1)
	if foreign {
		exchangeRate = doc.ExchangeRate
		if !exchangeRate.IsPositive() && doc.SubtotalVES.IsZero() {
			warn(DiagMissingExchangeRate, "exchangeRate", "Document %s is in %s without an exchange rate, amounts kept unconverted", doc.DocumentNumber, currency)
		}
		base = pickVES(doc.Subtotal, doc.SubtotalVES, exchangeRate)
		taxAmount = pickVES(taxAmount, doc.TaxAmountVES, exchangeRate)
		total = pickVES(doc.Total, doc.TotalVES, exchangeRate)
	}

	// Heal tax
	expectedTax := valueobject.Percent(base, rate)
	if !valueobject.WithinTolerance(expectedTax, taxAmount, opts.Tolerance) {
		warn(DiagTaxAmountHealed, "ivaAmount", "Tax %s on document %s differs from %s%% of %s, using %s",
			taxAmount.StringFixed(2), doc.DocumentNumber, rate, base.StringFixed(2), expectedTax.StringFixed(2))
		taxAmount = expectedTax
	}

	withheld := doc.WithheldIVAAmount
	if foreign && exchangeRate.IsPositive() {
		withheld = valueobject.Convert(withheld, exchangeRate)
	}
	expectedTotal := ExpectedTotal(base, taxAmount, withheld)
	if total.IsZero() {
		total = expectedTotal
	} else if !valueobject.WithinTolerance(expectedTotal, total, opts.Tolerance) {
		warn(DiagTotalHealed, "totalAmount", "Total %s on document %s differs from base + IVA - withheld, using %s",
			total.StringFixed(2), doc.DocumentNumber, expectedTotal.StringFixed(2))
		total = expectedTotal
	}

	// Customer
	customer := Counterparty{
		ID:      strings.TrimSpace(doc.Customer.ID),
		Name:    strings.TrimSpace(doc.Customer.Name),
		Address: strings.TrimSpace(doc.Customer.Address),
	}
	if customer.ID == "" {
		customer.ID = "BILLING-" + documentID.String()
	}
	if customer.Name == "" {
		customer.Name = DefaultCustomerName
		warn(DiagCustomerDefaulted, "customerName", "Document %s has no customer name", doc.DocumentNumber)
	}
	if strings.TrimSpace(doc.Customer.RIF) == "" {
		customer.RIF = DefaultCustomerRIF
		warn(DiagCustomerDefaulted, "customerRif", "Document %s has no customer RIF, using %s", doc.DocumentNumber, DefaultCustomerRIF)
	} else if rif, changed, ok := NormalizeRIF(doc.Customer.RIF, opts.DefaultPersonType); !ok {
		customer.RIF = CleanRIF(doc.Customer.RIF)
		warn(DiagRIFUnrecognized, "customerRif", "Customer RIF %q on document %s could not be normalized", doc.Customer.RIF, doc.DocumentNumber)
	} else {
		customer.RIF = rif
		if changed {
			warn(DiagRIFNormalized, "customerRif", "Customer RIF %q normalized to %s", doc.Customer.RIF, rif)
		}
	}

	docID := documentID
	e := &SalesBookEntry{BookEntry: BookEntry{
		TenantAggregateRoot:    shared.NewTenantAggregateRootForActor(tenantID, actor),
		Book:                   SalesBook,
		Month:                  int(doc.IssueDate.Month()),
		Year:                   doc.IssueDate.Year(),
		OperationDate:          doc.IssueDate,
		InvoiceDate:            doc.IssueDate,
		Counterparty:           customer,
		InvoiceNumber:          strings.TrimSpace(doc.DocumentNumber),
		InvoiceControlNumber:   strings.TrimSpace(doc.ControlNumber),
		TransactionType:        TransactionTypeForBilling(doc.Type),
		BaseAmount:             base,
		IVARate:                rate,
		IVAAmount:              taxAmount,
		WithheldIVAAmount:      withheld,
		WithholdingCertificate: doc.WithholdingCertificate,
		TotalAmount:            total,
		OriginalCurrency:       currency,
		ExchangeRate:           exchangeRate,
		OriginalBaseAmount:     doc.Subtotal,
		OriginalIVAAmount:      doc.TaxAmount,
		OriginalTotalAmount:    doc.Total,
		IsForeignCurrency:      foreign,
		IsElectronic:           true,
		ElectronicCode:         strings.TrimSpace(doc.ControlNumber),
		BillingDocumentID:      &docID,
		Status:                 BookEntryConfirmed,
	}}
	return e, diags, nil
}

func pickVES(amount, ves, rate decimal.Decimal) decimal.Decimal {
	if !ves.IsZero() {
		return ves
	}
	if !rate.IsPositive() {
		return amount
	}
	return valueobject.Convert(amount, rate)
}

// CanResync reports whether a sync may overwrite the row
func (e *BookEntry) CanResync() bool {
	return e.Status != BookEntryAnnulled && !e.ExportedToSENIAT && e.Status != BookEntryExported
}

// OverwriteFrom copies every fiscal field of src onto e, keeping e's identity.
// The tenant is taken from src, which reassigns an orphaned row.
func (e *BookEntry) OverwriteFrom(src *BookEntry) {
	id, createdAt, version := e.ID, e.CreatedAt, e.Version
	createdBy := e.CreatedBy
	events := e.GetDomainEvents()

	*e = *src
	e.ClearDomainEvents()
	for _, ev := range events {
		e.AddDomainEvent(ev)
	}
	e.ID = id
	e.CreatedAt = createdAt
	e.Version = version
	e.CreatedBy = createdBy
	e.Touch()
}
