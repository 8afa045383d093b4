package accounting

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies an account within the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "Activo"
	AccountTypeLiability AccountType = "Pasivo"
	AccountTypeEquity    AccountType = "Patrimonio"
	AccountTypeIncome    AccountType = "Ingreso"
	AccountTypeExpense   AccountType = "Gasto"
)

// AllAccountTypes lists account types in code-prefix order
var AllAccountTypes = []AccountType{
	AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense,
}

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	return t.Prefix() != ""
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// Prefix returns the leading digit that codes of this type must start with
func (t AccountType) Prefix() string {
	switch t {
	case AccountTypeAsset:
		return "1"
	case AccountTypeLiability:
		return "2"
	case AccountTypeEquity:
		return "3"
	case AccountTypeIncome:
		return "4"
	case AccountTypeExpense:
		return "5"
	}
	return ""
}

// IsDebitNormal reports whether balances of this type grow with debits
func (t AccountType) IsDebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// NaturalBalance converts raw debit and credit totals into a balance with the
// sign convention of the account type
func (t AccountType) NaturalBalance(debit, credit decimal.Decimal) decimal.Decimal {
	if t.IsDebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountTypeFromCode infers the account type from a code's leading digit
func AccountTypeFromCode(code string) (AccountType, bool) {
	if code == "" {
		return "", false
	}
	for _, t := range AllAccountTypes {
		if strings.HasPrefix(code, t.Prefix()) {
			return t, true
		}
	}
	return "", false
}

// Account is a chart of accounts entry
type Account struct {
	shared.TenantAggregateRoot
	Code        string
	Name        string
	Type        AccountType
	ParentID    *uuid.UUID
	Description string
	IsSystem    bool
	IsEditable  bool
}

// NewAccount creates a new account. The code must already carry the type prefix.
func NewAccount(tenantID uuid.UUID, code, name string, accountType AccountType) (*Account, error) {
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Unknown account type %q", accountType))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("REQUIRED_FIELD", "Account name is required")
	}
	if err := ValidateAccountCode(code, accountType); err != nil {
		return nil, err
	}

	account := &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		IsEditable:          true,
	}
	account.AddDomainEvent(NewAccountCreatedEvent(account))
	return account, nil
}

// NewSystemAccount creates a non-editable account provisioned by the ledger itself
func NewSystemAccount(tenantID uuid.UUID, def SystemAccountDef) (*Account, error) {
	account, err := NewAccount(tenantID, def.Code, def.Name, def.Type)
	if err != nil {
		return nil, err
	}
	account.IsSystem = true
	account.IsEditable = false
	account.Description = def.Description
	return account, nil
}

// SetParent attaches the account under another account of the same type
func (a *Account) SetParent(parent *Account) error {
	if parent == nil {
		a.ParentID = nil
		return nil
	}
	if parent.TenantID != a.TenantID {
		return shared.NewDomainError("INVALID_PARENT", "Parent account belongs to another tenant")
	}
	if parent.ID == a.ID {
		return shared.NewDomainError("INVALID_PARENT", "Account cannot be its own parent")
	}
	if parent.Type != a.Type {
		return shared.NewDomainError("INVALID_PARENT", fmt.Sprintf("Parent account %s is %s, expected %s", parent.Code, parent.Type, a.Type))
	}
	id := parent.ID
	a.ParentID = &id
	a.Touch()
	return nil
}

// Update renames the account and replaces its description. System accounts are read-only.
func (a *Account) Update(name, description string) error {
	if !a.IsEditable {
		return shared.NewDomainError("ACCOUNT_NOT_EDITABLE", fmt.Sprintf("Account %s cannot be modified", a.Code))
	}
	if name = strings.TrimSpace(name); name != "" {
		a.Name = name
	}
	a.Description = strings.TrimSpace(description)
	a.Touch()
	return nil
}

// ValidateAccountCode checks that code is numeric and starts with the type prefix
func ValidateAccountCode(code string, accountType AccountType) error {
	if code == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Account code is required")
	}
	if _, err := strconv.ParseUint(code, 10, 64); err != nil {
		return shared.NewDomainError("INVALID_ACCOUNT_CODE", fmt.Sprintf("Account code %q must be numeric", code))
	}
	if !strings.HasPrefix(code, accountType.Prefix()) {
		return shared.NewDomainError("INVALID_ACCOUNT_CODE",
			fmt.Sprintf("Account code %s must start with %s for %s accounts", code, accountType.Prefix(), accountType))
	}
	return nil
}

// NextAccountCode derives the next code for accountType given the highest
// existing code with the same prefix. An empty lastCode yields "<prefix>01".
func NextAccountCode(accountType AccountType, lastCode string) (string, error) {
	prefix := accountType.Prefix()
	if prefix == "" {
		return "", shared.NewDomainError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Unknown account type %q", accountType))
	}
	if lastCode == "" {
		return prefix + "01", nil
	}
	suffix := strings.TrimPrefix(lastCode, prefix)
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return "", shared.NewDomainError("INVALID_ACCOUNT_CODE", fmt.Sprintf("Cannot continue numbering after %q", lastCode))
	}
	return fmt.Sprintf("%s%02d", prefix, n+1), nil
}
