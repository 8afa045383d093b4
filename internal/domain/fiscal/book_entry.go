package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Book identifies the IVA register an entry belongs to
type Book string

const (
	SalesBook    Book = "sales"
	PurchaseBook Book = "purchase"
)

// TransactionType is the fiscal nature of a book row
type TransactionType string

const (
	TransactionSale       TransactionType = "sale"
	TransactionExport     TransactionType = "export"
	TransactionPurchase   TransactionType = "purchase"
	TransactionImport     TransactionType = "import"
	TransactionService    TransactionType = "service"
	TransactionDebitNote  TransactionType = "debit_note"
	TransactionCreditNote TransactionType = "credit_note"
)

// ValidFor reports whether the type may appear in the given book
func (t TransactionType) ValidFor(book Book) bool {
	switch t {
	case TransactionService, TransactionDebitNote, TransactionCreditNote:
		return true
	case TransactionSale, TransactionExport:
		return book == SalesBook
	case TransactionPurchase, TransactionImport:
		return book == PurchaseBook
	}
	return false
}

// ExportCode is the single-letter type column of the SENIAT TXT
func (t TransactionType) ExportCode() string {
	switch t {
	case TransactionExport:
		return "E"
	case TransactionImport:
		return "I"
	}
	return "R"
}

// BookEntryStatus is the lifecycle state of a book row
type BookEntryStatus string

const (
	BookEntryDraft     BookEntryStatus = "draft"
	BookEntryConfirmed BookEntryStatus = "confirmed"
	BookEntryExported  BookEntryStatus = "exported"
	BookEntryAnnulled  BookEntryStatus = "annulled"
)

// IsValid checks if the status is known
func (s BookEntryStatus) IsValid() bool {
	switch s {
	case BookEntryDraft, BookEntryConfirmed, BookEntryExported, BookEntryAnnulled:
		return true
	}
	return false
}

// InBook reports whether rows in this status are part of the monthly book
func (s BookEntryStatus) InBook() bool {
	return s == BookEntryConfirmed || s == BookEntryExported
}

var validIVARates = []decimal.Decimal{
	decimal.Zero,
	decimal.NewFromInt(8),
	decimal.NewFromInt(16),
}

// IsValidIVARate reports whether rate is one of the legal IVA rates 0, 8 or 16
func IsValidIVARate(rate decimal.Decimal) bool {
	for _, r := range validIVARates {
		if rate.Equal(r) {
			return true
		}
	}
	return false
}

// NearestIVARate returns the legal rate whose expected tax is closest to taxAmount
func NearestIVARate(base, taxAmount decimal.Decimal) decimal.Decimal {
	best := validIVARates[len(validIVARates)-1]
	bestDiff := decimal.Decimal{}
	for i, r := range validIVARates {
		diff := valueobject.Percent(base, r).Sub(taxAmount).Abs()
		if i == 0 || diff.LessThan(bestDiff) {
			best, bestDiff = r, diff
		}
	}
	return best
}

// Counterparty is the customer of a sales row or the supplier of a purchase row
type Counterparty struct {
	ID      string
	Name    string
	RIF     string
	Address string
}

// ForeignAmounts keeps the pre-conversion figures of a foreign currency document
type ForeignAmounts struct {
	Currency     valueobject.Currency
	ExchangeRate decimal.Decimal
	Base         decimal.Decimal
	IVA          decimal.Decimal
	Total        decimal.Decimal
}

// BookEntry is a row of the IVA sales or purchase book. Amounts are in VES.
type BookEntry struct {
	shared.TenantAggregateRoot
	Book                   Book
	Month                  int
	Year                   int
	OperationDate          time.Time
	InvoiceDate            time.Time
	Counterparty           Counterparty
	InvoiceNumber          string
	InvoiceControlNumber   string
	TransactionType        TransactionType
	BaseAmount             decimal.Decimal
	IVARate                decimal.Decimal
	IVAAmount              decimal.Decimal
	WithheldIVAAmount      decimal.Decimal
	WithholdingCertificate string
	TotalAmount            decimal.Decimal
	OriginalCurrency       valueobject.Currency
	ExchangeRate           decimal.Decimal
	OriginalBaseAmount     decimal.Decimal
	OriginalIVAAmount      decimal.Decimal
	OriginalTotalAmount    decimal.Decimal
	IsForeignCurrency      bool
	IsElectronic           bool
	ElectronicCode         string
	BillingDocumentID      *uuid.UUID
	Status                 BookEntryStatus
	ExportedToSENIAT       bool
	ExportDate             *time.Time
	AnnulmentReason        string
	AnnulledAt             *time.Time
	UpdatedBy              *uuid.UUID
}

// SalesBookEntry is a row of the IVA sales book
type SalesBookEntry struct {
	BookEntry
}

// PurchaseBookEntry is a row of the IVA purchase book
type PurchaseBookEntry struct {
	BookEntry
}

// BookEntryInput holds manually entered values of a book row
type BookEntryInput struct {
	OperationDate          time.Time
	InvoiceDate            time.Time
	Counterparty           Counterparty
	InvoiceNumber          string
	InvoiceControlNumber   string
	TransactionType        TransactionType
	BaseAmount             decimal.Decimal
	IVARate                decimal.Decimal
	IVAAmount              decimal.Decimal
	WithheldIVAAmount      decimal.Decimal
	WithholdingCertificate string
	// TotalAmount is derived when zero
	TotalAmount    decimal.Decimal
	IsElectronic   bool
	ElectronicCode string
	Draft          bool
}

// ExpectedTotal is base + iva - withheld
func ExpectedTotal(base, iva, withheld decimal.Decimal) decimal.Decimal {
	return base.Add(iva).Sub(withheld)
}

func (in *BookEntryInput) validate(book Book) error {
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Invoice number is required")
	}
	if strings.TrimSpace(in.Counterparty.Name) == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Counterparty name is required")
	}
	if in.OperationDate.IsZero() {
		return shared.NewDomainError("REQUIRED_FIELD", "Operation date is required")
	}
	in.Counterparty.RIF = CleanRIF(in.Counterparty.RIF)
	if !rifPattern.MatchString(in.Counterparty.RIF) {
		return shared.NewDomainError("INVALID_RIF", fmt.Sprintf("RIF %q has an invalid format", in.Counterparty.RIF))
	}
	if in.TransactionType == "" {
		if book == SalesBook {
			in.TransactionType = TransactionSale
		} else {
			in.TransactionType = TransactionPurchase
		}
	}
	if !in.TransactionType.ValidFor(book) {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Transaction type %q is not valid for the %s book", in.TransactionType, book))
	}
	if !IsValidIVARate(in.IVARate) {
		return shared.NewDomainError("INVALID_RATE", fmt.Sprintf("IVA rate %s is not 0, 8 or 16", in.IVARate))
	}
	if in.BaseAmount.IsNegative() || in.IVAAmount.IsNegative() || in.WithheldIVAAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amounts cannot be negative")
	}
	expectedIVA := valueobject.Percent(in.BaseAmount, in.IVARate)
	if !valueobject.WithinTolerance(expectedIVA, in.IVAAmount, valueobject.ManualTolerance) {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("IVA amount %s does not match %s%% of %s", in.IVAAmount.StringFixed(2), in.IVARate, in.BaseAmount.StringFixed(2)))
	}
	expectedTotal := ExpectedTotal(in.BaseAmount, in.IVAAmount, in.WithheldIVAAmount)
	if in.TotalAmount.IsZero() {
		in.TotalAmount = expectedTotal
	} else if !valueobject.WithinTolerance(expectedTotal, in.TotalAmount, valueobject.ManualTolerance) {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Total %s does not equal base + IVA - withheld (%s)", in.TotalAmount.StringFixed(2), expectedTotal.StringFixed(2)))
	}
	if in.IsElectronic && strings.TrimSpace(in.ElectronicCode) == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Electronic invoices require an authorization code")
	}
	return nil
}

func newBookEntry(tenantID uuid.UUID, actor shared.Actor, book Book, in BookEntryInput) (BookEntry, error) {
	if err := in.validate(book); err != nil {
		return BookEntry{}, err
	}
	status := BookEntryConfirmed
	if in.Draft {
		status = BookEntryDraft
	}
	e := BookEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRootForActor(tenantID, actor),
		Book:                book,
		OriginalCurrency:    valueobject.FunctionalCurrency,
		ExchangeRate:        decimal.NewFromInt(1),
		Status:              status,
	}
	e.apply(in)
	return e, nil
}

func (e *BookEntry) apply(in BookEntryInput) {
	e.OperationDate = in.OperationDate
	e.Month = int(in.OperationDate.Month())
	e.Year = in.OperationDate.Year()
	e.InvoiceDate = in.InvoiceDate
	if e.InvoiceDate.IsZero() {
		e.InvoiceDate = in.OperationDate
	}
	e.Counterparty = in.Counterparty
	e.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	e.InvoiceControlNumber = strings.TrimSpace(in.InvoiceControlNumber)
	e.TransactionType = in.TransactionType
	e.BaseAmount = in.BaseAmount
	e.IVARate = in.IVARate
	e.IVAAmount = in.IVAAmount
	e.WithheldIVAAmount = in.WithheldIVAAmount
	e.WithholdingCertificate = in.WithholdingCertificate
	e.TotalAmount = in.TotalAmount
	e.IsElectronic = in.IsElectronic
	e.ElectronicCode = in.ElectronicCode
	if !e.IsForeignCurrency {
		e.OriginalBaseAmount = e.BaseAmount
		e.OriginalIVAAmount = e.IVAAmount
		e.OriginalTotalAmount = e.TotalAmount
	}
}

// NewSalesBookEntry creates a manual sales book row, confirmed unless Draft is set
func NewSalesBookEntry(tenantID uuid.UUID, actor shared.Actor, in BookEntryInput) (*SalesBookEntry, error) {
	e, err := newBookEntry(tenantID, actor, SalesBook, in)
	if err != nil {
		return nil, err
	}
	return &SalesBookEntry{BookEntry: e}, nil
}

// NewPurchaseBookEntry creates a manual purchase book row. Purchase rows are never electronic.
func NewPurchaseBookEntry(tenantID uuid.UUID, actor shared.Actor, in BookEntryInput) (*PurchaseBookEntry, error) {
	in.IsElectronic = false
	in.ElectronicCode = ""
	e, err := newBookEntry(tenantID, actor, PurchaseBook, in)
	if err != nil {
		return nil, err
	}
	return &PurchaseBookEntry{BookEntry: e}, nil
}

// CheckEditable rejects changes to annulled or exported rows
func (e *BookEntry) CheckEditable() error {
	if e.Status == BookEntryAnnulled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Invoice %s is annulled", e.InvoiceNumber))
	}
	if e.ExportedToSENIAT || e.Status == BookEntryExported {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Invoice %s was already exported to SENIAT", e.InvoiceNumber))
	}
	return nil
}

// Update replaces the manual values of the row; the total is recomputed
func (e *BookEntry) Update(actor shared.Actor, in BookEntryInput) error {
	if err := e.CheckEditable(); err != nil {
		return err
	}
	in.TotalAmount = decimal.Zero
	if err := in.validate(e.Book); err != nil {
		return err
	}
	if e.Book == PurchaseBook {
		in.IsElectronic = false
		in.ElectronicCode = ""
	}
	e.apply(in)
	e.UpdatedBy = actor.UserIDPtr()
	e.Touch()
	return nil
}

// Confirm moves a draft into the book
func (e *BookEntry) Confirm() error {
	if e.Status != BookEntryDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Only draft entries can be confirmed, invoice %s is %s", e.InvoiceNumber, e.Status))
	}
	e.Status = BookEntryConfirmed
	e.Touch()
	return nil
}

// Annul takes the row out of the book, keeping it for audit
func (e *BookEntry) Annul(actor shared.Actor, reason string) error {
	if e.Status == BookEntryAnnulled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Invoice %s is already annulled", e.InvoiceNumber))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Annulment reason is required")
	}
	now := time.Now()
	e.Status = BookEntryAnnulled
	e.AnnulmentReason = reason
	e.AnnulledAt = &now
	e.UpdatedBy = actor.UserIDPtr()
	e.Touch()
	e.AddDomainEvent(NewBookEntryEvent(EventTypeBookEntryAnnulled, e))
	return nil
}

// CheckDeletable allows deleting rows that were neither exported nor annulled
func (e *BookEntry) CheckDeletable() error {
	if e.ExportedToSENIAT || e.Status == BookEntryExported {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Invoice %s was already exported to SENIAT", e.InvoiceNumber))
	}
	if e.Status == BookEntryAnnulled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Invoice %s is annulled", e.InvoiceNumber))
	}
	return nil
}

// MarkExported flags the row as included in a SENIAT TXT file
func (e *BookEntry) MarkExported(at time.Time) {
	e.Status = BookEntryExported
	e.ExportedToSENIAT = true
	e.ExportDate = &at
	e.UpdatedAt = at
}
