package accounting

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Metadata keys written on automatic entries
const (
	MetaRecurringEntryID   = "recurringEntryId"
	MetaRecurringEntryName = "recurringEntryName"
	MetaExecutionCount     = "executionCount"
	MetaFrequency          = "frequency"
	MetaBillingDocumentID  = "billingDocumentId"
	MetaDocumentType       = "documentType"
	MetaWithholdingID      = "withholdingId"
	MetaCertificateNumber  = "certificateNumber"
	MetaPeriodID           = "periodId"
	MetaSource             = "source"
)

// JournalLine is one side of a journal entry
type JournalLine struct {
	AccountID   uuid.UUID
	AccountCode string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// LineInput is the caller-supplied shape of a line
type LineInput struct {
	Account     *Account
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// JournalEntry is an immutable balanced transaction
type JournalEntry struct {
	shared.TenantAggregateRoot
	Date        time.Time
	Description string
	Lines       []JournalLine
	IsAutomatic bool
	Metadata    map[string]any
	// SourceRef identifies the process that produced an automatic entry, e.g.
	// "recurring:<id>" or "billing:<documentId>". Empty for manual entries.
	SourceRef string
}

// SourceRef builds the reference stored on entries produced by kind
func SourceRef(kind string, id uuid.UUID) string {
	return kind + ":" + id.String()
}

// Source kinds
const (
	SourceRecurring   = "recurring"
	SourceBilling     = "billing"
	SourceWithholding = "withholding"
	SourceReversal    = "withholding-reversal"
	SourceClosing     = "period-closing"
)

// WithSource tags the entry with the producing process
func (e *JournalEntry) WithSource(kind string, id uuid.UUID) *JournalEntry {
	e.SourceRef = SourceRef(kind, id)
	return e
}

// NewJournalEntry builds a balanced entry. Amounts are non-negative and a
// line carries a debit or a credit, never both; zero lines are kept.
func NewJournalEntry(
	tenantID uuid.UUID,
	actor shared.Actor,
	date time.Time,
	description string,
	lines []LineInput,
	isAutomatic bool,
	metadata map[string]any,
) (*JournalEntry, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.NewDomainError("REQUIRED_FIELD", "Journal entry description is required")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError("REQUIRED_FIELD", "Journal entry date is required")
	}
	if len(lines) == 0 {
		return nil, ErrEmptyEntry
	}

	built := make([]JournalLine, 0, len(lines))
	for i, in := range lines {
		if in.Account == nil {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d has no account", i+1))
		}
		if in.Account.TenantID != tenantID {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Account %s belongs to another tenant", in.Account.Code))
		}
		if in.Debit.IsNegative() || in.Credit.IsNegative() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Line %d has a negative amount", i+1))
		}
		if !in.Debit.IsZero() && !in.Credit.IsZero() {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Line %d has both a debit and a credit", i+1))
		}
		lineDesc := strings.TrimSpace(in.Description)
		if lineDesc == "" {
			lineDesc = description
		}
		built = append(built, JournalLine{
			AccountID:   in.Account.ID,
			AccountCode: in.Account.Code,
			AccountName: in.Account.Name,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Description: lineDesc,
		})
	}
	if err := CheckBalanced(built); err != nil {
		return nil, err
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	if actor.IsSystem() {
		metadata[MetaSource] = actor.Source
	}
	entry := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRootForActor(tenantID, actor),
		Date:                date,
		Description:         description,
		Lines:               built,
		IsAutomatic:         isAutomatic,
		Metadata:            metadata,
	}
	entry.AddDomainEvent(NewJournalEntryPostedEvent(entry))
	return entry, nil
}

// CheckBalanced verifies the debit and credit totals of lines
func CheckBalanced(lines []JournalLine) error {
	debits, credits := SumLines(lines)
	if !valueobject.WithinTolerance(debits, credits, valueobject.EntryTolerance) {
		return NewUnbalancedEntryError(debits, credits)
	}
	if debits.IsZero() && credits.IsZero() {
		return ErrEmptyEntry
	}
	return nil
}

// SumLines returns the debit and credit totals
func SumLines(lines []JournalLine) (debits, credits decimal.Decimal) {
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// TotalDebit returns the sum of debits
func (e *JournalEntry) TotalDebit() decimal.Decimal {
	d, _ := SumLines(e.Lines)
	return d
}

// TotalCredit returns the sum of credits
func (e *JournalEntry) TotalCredit() decimal.Decimal {
	_, c := SumLines(e.Lines)
	return c
}

// MetaString reads a string metadata value
func (e *JournalEntry) MetaString(key string) string {
	if e.Metadata == nil {
		return ""
	}
	switch v := e.Metadata[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// ReversalLines returns the lines of a mirror entry with debit and credit swapped
func (e *JournalEntry) ReversalLines(accounts map[uuid.UUID]*Account) ([]LineInput, error) {
	out := make([]LineInput, 0, len(e.Lines))
	for _, l := range e.Lines {
		acc, ok := accounts[l.AccountID]
		if !ok {
			return nil, shared.NewDomainError("INVALID_LINE", fmt.Sprintf("Account %s not loaded for reversal", l.AccountCode))
		}
		out = append(out, LineInput{Account: acc, Debit: l.Credit, Credit: l.Debit, Description: "Reverso: " + l.Description})
	}
	return out, nil
}

// ErrEmptyEntry is returned when every line amount is zero
var ErrEmptyEntry = shared.NewDomainError("EMPTY_ENTRY", "Journal entry must have at least one non-zero amount")

// NewUnbalancedEntryError reports the totals of an unbalanced entry
func NewUnbalancedEntryError(debits, credits decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError("UNBALANCED_ENTRY",
		fmt.Sprintf("Total debits must equal total credits (debits %s, credits %s)", debits.StringFixed(2), credits.StringFixed(2)))
}
