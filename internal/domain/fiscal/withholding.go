package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxKind identifies the withheld tax
type TaxKind string

const (
	TaxIVA  TaxKind = "IVA"
	TaxISLR TaxKind = "ISLR"
)

// IsValid checks if the tax kind is known
func (t TaxKind) IsValid() bool {
	return t == TaxIVA || t == TaxISLR
}

func (t TaxKind) String() string { return string(t) }

// PostingAccounts returns the debit and credit accounts used when a
// withholding of this tax is posted. Reversals swap them.
func (t TaxKind) PostingAccounts() (debit, credit accounting.SystemAccountDef) {
	if t == TaxISLR {
		return accounting.ISLRWithheldAsset, accounting.AccountsPayable
	}
	return accounting.AccountsPayable, accounting.IVAWithheldPayable
}

// FormatCertificateNumber renders RET-{TAX}-{YYYY}-{seq6}
func FormatCertificateNumber(tax TaxKind, year int, seq int64) string {
	return fmt.Sprintf("RET-%s-%d-%06d", tax, year, seq)
}

// WithholdingStatus is the lifecycle state of a withholding certificate
type WithholdingStatus string

const (
	WithholdingStatusDraft    WithholdingStatus = "draft"
	WithholdingStatusPosted   WithholdingStatus = "posted"
	WithholdingStatusAnnulled WithholdingStatus = "annulled"
)

// IsValid checks if the status is known
func (s WithholdingStatus) IsValid() bool {
	switch s {
	case WithholdingStatusDraft, WithholdingStatusPosted, WithholdingStatusAnnulled:
		return true
	}
	return false
}

func (s WithholdingStatus) String() string { return string(s) }

// CanEdit returns true while the certificate is a draft
func (s WithholdingStatus) CanEdit() bool { return s == WithholdingStatusDraft }

// CanPost returns true if the certificate can be posted to the ledger
func (s WithholdingStatus) CanPost() bool { return s == WithholdingStatusDraft }

// CanAnnul returns true unless the certificate is already annulled
func (s WithholdingStatus) CanAnnul() bool { return s != WithholdingStatusAnnulled }

// Party identifies the withholding beneficiary
type Party struct {
	RIF     string
	Name    string
	Address string
}

// DocumentRef points to the source invoice
type DocumentRef struct {
	InvoiceNumber string
	ControlNumber string
	Date          time.Time
}

// Withholding is the lifecycle shared by IVA and ISLR certificates
type Withholding struct {
	shared.TenantAggregateRoot
	Tax               TaxKind
	CertificateNumber string
	Beneficiary       Party
	Document          DocumentRef
	BaseAmount        decimal.Decimal
	Percentage        decimal.Decimal
	WithholdingAmount decimal.Decimal
	RetentionDate     time.Time
	JournalEntryID    *uuid.UUID
	ReversalEntryID   *uuid.UUID
	Status            WithholdingStatus
	PostedAt          *time.Time
	AnnulledAt        *time.Time
	AnnulmentReason   string
	ExportedToARC     bool
	ExportDate        *time.Time
	Notes             string
}

func newWithholding(tenantID uuid.UUID, actor shared.Actor, tax TaxKind, certificate string, beneficiary Party, doc DocumentRef, retentionDate time.Time) (Withholding, error) {
	beneficiary.RIF = CleanRIF(beneficiary.RIF)
	if !ValidateRIF(beneficiary.RIF) {
		return Withholding{}, shared.NewDomainError("INVALID_RIF", fmt.Sprintf("Beneficiary RIF %q is invalid", beneficiary.RIF))
	}
	if strings.TrimSpace(beneficiary.Name) == "" {
		return Withholding{}, shared.NewDomainError("REQUIRED_FIELD", "Beneficiary name is required")
	}
	if strings.TrimSpace(doc.InvoiceNumber) == "" {
		return Withholding{}, shared.NewDomainError("REQUIRED_FIELD", "Document number is required")
	}
	if certificate == "" {
		return Withholding{}, shared.NewDomainError("REQUIRED_FIELD", "Certificate number is required")
	}
	if retentionDate.IsZero() {
		retentionDate = time.Now()
	}
	return Withholding{
		TenantAggregateRoot: shared.NewTenantAggregateRootForActor(tenantID, actor),
		Tax:                 tax,
		CertificateNumber:   certificate,
		Beneficiary:         beneficiary,
		Document:            doc,
		RetentionDate:       retentionDate,
		Status:              WithholdingStatusDraft,
	}, nil
}

// computeAmount returns round2(base * pct / 100) and rejects non-positive results
func computeAmount(base, pct decimal.Decimal) (decimal.Decimal, error) {
	if pct.IsNegative() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, shared.NewDomainError("INVALID_RATE", "Withholding percentage must be between 0 and 100")
	}
	amount := base.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Withholding amount must be greater than zero")
	}
	return amount, nil
}

// CheckEditable rejects changes once the certificate left draft
func (w *Withholding) CheckEditable() error {
	if !w.Status.CanEdit() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit %s withholding in %s status", w.Tax, w.Status))
	}
	return nil
}

// CheckDeletable allows deleting drafts only
func (w *Withholding) CheckDeletable() error {
	if w.Status != WithholdingStatusDraft {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot delete %s withholding in %s status", w.Tax, w.Status))
	}
	return nil
}

// EntryDescription is the description of the posting entry
func (w *Withholding) EntryDescription() string {
	return fmt.Sprintf("Retención %s #%s - %s", w.Tax, w.CertificateNumber, w.Beneficiary.Name)
}

// ReversalDescription is the description of the annulment entry
func (w *Withholding) ReversalDescription(reason string) string {
	return fmt.Sprintf("ANULACIÓN - Retención %s #%s - Razón: %s", w.Tax, w.CertificateNumber, reason)
}

// PostingLines builds the two journal lines of the posting entry
func (w *Withholding) PostingLines(debit, credit *accounting.Account, debitDesc, creditDesc string) []accounting.LineInput {
	return []accounting.LineInput{
		{Account: debit, Debit: w.WithholdingAmount, Description: debitDesc},
		{Account: credit, Credit: w.WithholdingAmount, Description: creditDesc},
	}
}

// ReversalLines builds the mirror of the posting entry
func (w *Withholding) ReversalLines(debit, credit *accounting.Account) []accounting.LineInput {
	desc := "Reversión de retención " + w.Tax.String()
	return []accounting.LineInput{
		{Account: credit, Debit: w.WithholdingAmount, Description: desc},
		{Account: debit, Credit: w.WithholdingAmount, Description: desc},
	}
}

// MarkPosted records the posting entry and freezes the certificate
func (w *Withholding) MarkPosted(entryID uuid.UUID) error {
	if !w.Status.CanPost() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot post %s withholding in %s status", w.Tax, w.Status))
	}
	now := time.Now()
	w.Status = WithholdingStatusPosted
	w.JournalEntryID = &entryID
	w.PostedAt = &now
	w.UpdatedAt = now
	w.AddDomainEvent(NewWithholdingEvent(EventTypeWithholdingPosted, w))
	return nil
}

// NeedsReversal reports whether annulling requires a reversing entry
func (w *Withholding) NeedsReversal() bool {
	return w.Status == WithholdingStatusPosted
}

// Annul terminates the certificate. reversalEntryID must be set when the
// certificate was posted.
func (w *Withholding) Annul(reason string, reversalEntryID *uuid.UUID) error {
	if !w.Status.CanAnnul() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("%s withholding %s is already annulled", w.Tax, w.CertificateNumber))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Annulment reason is required")
	}
	if w.NeedsReversal() && reversalEntryID == nil {
		return shared.NewDomainError("INVALID_STATE", "Posted withholding requires a reversal entry before annulment")
	}
	now := time.Now()
	w.Status = WithholdingStatusAnnulled
	w.AnnulmentReason = reason
	w.AnnulledAt = &now
	w.ReversalEntryID = reversalEntryID
	w.UpdatedAt = now
	w.AddDomainEvent(NewWithholdingEvent(EventTypeWithholdingAnnulled, w))
	return nil
}

// MarkExported flags the certificate as included in an ARC file
func (w *Withholding) MarkExported(at time.Time) {
	w.ExportedToARC = true
	w.ExportDate = &at
	w.UpdatedAt = at
}

// InMonth reports whether the retention date falls inside month/year
func (w *Withholding) InMonth(month, year int) bool {
	return int(w.RetentionDate.Month()) == month && w.RetentionDate.Year() == year
}

// MonthRange returns the first and last instant of month/year in UTC
func MonthRange(month, year int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// ValidateMonth checks month/year inputs
func ValidateMonth(month, year int) error {
	if month < 1 || month > 12 {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Month %d is out of range", month))
	}
	if year < 2000 || year > 2100 {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Year %d is out of range", year))
	}
	return nil
}
