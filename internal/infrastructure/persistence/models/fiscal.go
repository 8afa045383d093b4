package models

import (
	"encoding/json"
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// WithholdingColumns holds the columns shared by both withholding tables.
type WithholdingColumns struct {
	TenantAggregateModel
	CertificateNumber  string                   `gorm:"type:varchar(30);not null"`
	BeneficiaryRIF     string                   `gorm:"column:beneficiary_rif;type:varchar(20);not null;index"`
	BeneficiaryName    string                   `gorm:"type:varchar(200);not null"`
	BeneficiaryAddress string                   `gorm:"type:varchar(500)"`
	InvoiceNumber      string                   `gorm:"type:varchar(50);not null;index"`
	ControlNumber      string                   `gorm:"type:varchar(50)"`
	DocumentDate       *time.Time               `gorm:"type:date"`
	BaseAmount         decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Percentage         decimal.Decimal          `gorm:"type:decimal(18,6);not null"`
	WithholdingAmount  decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	RetentionDate      time.Time                `gorm:"not null;index"`
	JournalEntryID     *uuid.UUID               `gorm:"type:uuid"`
	ReversalEntryID    *uuid.UUID               `gorm:"type:uuid"`
	Status             fiscal.WithholdingStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	PostedAt           *time.Time
	AnnulledAt         *time.Time
	AnnulmentReason    string `gorm:"type:varchar(500)"`
	ExportedToARC      bool   `gorm:"column:exported_to_arc;not null;default:false"`
	ExportDate         *time.Time
	Notes              string `gorm:"type:text"`
}

func (c *WithholdingColumns) fromCore(w *fiscal.Withholding) {
	c.FromDomainTenantAggregateRoot(w.TenantAggregateRoot)
	c.CertificateNumber = w.CertificateNumber
	c.BeneficiaryRIF = w.Beneficiary.RIF
	c.BeneficiaryName = w.Beneficiary.Name
	c.BeneficiaryAddress = w.Beneficiary.Address
	c.InvoiceNumber = w.Document.InvoiceNumber
	c.ControlNumber = w.Document.ControlNumber
	c.DocumentDate = nil
	if !w.Document.Date.IsZero() {
		d := w.Document.Date
		c.DocumentDate = &d
	}
	c.BaseAmount = w.BaseAmount
	c.Percentage = w.Percentage
	c.WithholdingAmount = w.WithholdingAmount
	c.RetentionDate = w.RetentionDate
	c.JournalEntryID = w.JournalEntryID
	c.ReversalEntryID = w.ReversalEntryID
	c.Status = w.Status
	c.PostedAt = w.PostedAt
	c.AnnulledAt = w.AnnulledAt
	c.AnnulmentReason = w.AnnulmentReason
	c.ExportedToARC = w.ExportedToARC
	c.ExportDate = w.ExportDate
	c.Notes = w.Notes
}

func (c *WithholdingColumns) toCore(tax fiscal.TaxKind) fiscal.Withholding {
	w := fiscal.Withholding{
		Tax:               tax,
		CertificateNumber: c.CertificateNumber,
		Beneficiary: fiscal.Party{
			RIF:     c.BeneficiaryRIF,
			Name:    c.BeneficiaryName,
			Address: c.BeneficiaryAddress,
		},
		Document: fiscal.DocumentRef{
			InvoiceNumber: c.InvoiceNumber,
			ControlNumber: c.ControlNumber,
		},
		BaseAmount:        c.BaseAmount,
		Percentage:        c.Percentage,
		WithholdingAmount: c.WithholdingAmount,
		RetentionDate:     c.RetentionDate,
		JournalEntryID:    c.JournalEntryID,
		ReversalEntryID:   c.ReversalEntryID,
		Status:            c.Status,
		PostedAt:          c.PostedAt,
		AnnulledAt:        c.AnnulledAt,
		AnnulmentReason:   c.AnnulmentReason,
		ExportedToARC:     c.ExportedToARC,
		ExportDate:        c.ExportDate,
		Notes:             c.Notes,
	}
	if c.DocumentDate != nil {
		w.Document.Date = *c.DocumentDate
	}
	c.PopulateTenantAggregateRoot(&w.TenantAggregateRoot)
	return w
}

// IVAWithholdingModel is the persistence model for IVA withholding certificates.
type IVAWithholdingModel struct {
	WithholdingColumns
	SupplierID    *uuid.UUID              `gorm:"type:uuid;index"`
	IVAAmount     decimal.Decimal         `gorm:"column:iva_amount;type:decimal(18,4);not null"`
	IVARate       decimal.Decimal         `gorm:"column:iva_rate;type:decimal(18,6);not null"`
	OperationType fiscal.IVAOperationType `gorm:"type:varchar(40);not null"`
}

// TableName returns the table name for GORM
func (IVAWithholdingModel) TableName() string {
	return "iva_withholdings"
}

// ToDomain converts the persistence model to a domain IVAWithholding.
func (m *IVAWithholdingModel) ToDomain() *fiscal.IVAWithholding {
	return &fiscal.IVAWithholding{
		Withholding:   m.toCore(fiscal.TaxIVA),
		SupplierID:    m.SupplierID,
		IVAAmount:     m.IVAAmount,
		IVARate:       m.IVARate,
		OperationType: m.OperationType,
	}
}

// FromDomain populates the persistence model from a domain IVAWithholding.
func (m *IVAWithholdingModel) FromDomain(w *fiscal.IVAWithholding) {
	m.fromCore(&w.Withholding)
	m.SupplierID = w.SupplierID
	m.IVAAmount = w.IVAAmount
	m.IVARate = w.IVARate
	m.OperationType = w.OperationType
}

// IVAWithholdingModelFromDomain creates a new persistence model from a domain IVAWithholding.
func IVAWithholdingModelFromDomain(w *fiscal.IVAWithholding) *IVAWithholdingModel {
	m := &IVAWithholdingModel{}
	m.FromDomain(w)
	return m
}

// ISLRWithholdingModel is the persistence model for ISLR withholding certificates.
type ISLRWithholdingModel struct {
	WithholdingColumns
	BeneficiaryKind    fiscal.BeneficiaryKind   `gorm:"type:varchar(20);not null"`
	SupplierID         *uuid.UUID               `gorm:"type:uuid;index"`
	EmployeeID         *uuid.UUID               `gorm:"type:uuid;index"`
	OperationType      fiscal.ISLROperationType `gorm:"type:varchar(40);not null"`
	ConceptCode        string                   `gorm:"type:varchar(20);not null"`
	ConceptDescription string                   `gorm:"type:varchar(200)"`
	DocumentType       string                   `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (ISLRWithholdingModel) TableName() string {
	return "islr_withholdings"
}

// ToDomain converts the persistence model to a domain ISLRWithholding.
func (m *ISLRWithholdingModel) ToDomain() *fiscal.ISLRWithholding {
	return &fiscal.ISLRWithholding{
		Withholding: m.toCore(fiscal.TaxISLR),
		BeneficiaryRef: fiscal.BeneficiaryRef{
			Kind:       m.BeneficiaryKind,
			SupplierID: m.SupplierID,
			EmployeeID: m.EmployeeID,
		},
		OperationType: m.OperationType,
		Concept: fiscal.Concept{
			Code:        m.ConceptCode,
			Description: m.ConceptDescription,
		},
		DocumentType: m.DocumentType,
	}
}

// FromDomain populates the persistence model from a domain ISLRWithholding.
func (m *ISLRWithholdingModel) FromDomain(w *fiscal.ISLRWithholding) {
	m.fromCore(&w.Withholding)
	m.BeneficiaryKind = w.BeneficiaryRef.Kind
	m.SupplierID = w.BeneficiaryRef.SupplierID
	m.EmployeeID = w.BeneficiaryRef.EmployeeID
	m.OperationType = w.OperationType
	m.ConceptCode = w.Concept.Code
	m.ConceptDescription = w.Concept.Description
	m.DocumentType = w.DocumentType
}

// ISLRWithholdingModelFromDomain creates a new persistence model from a domain ISLRWithholding.
func ISLRWithholdingModelFromDomain(w *fiscal.ISLRWithholding) *ISLRWithholdingModel {
	m := &ISLRWithholdingModel{}
	m.FromDomain(w)
	return m
}

// BookEntryModel holds one row of the sales or purchase book. Repositories
// select the table explicitly; SalesBookEntryModel and PurchaseBookEntryModel
// exist for schema migration.
type BookEntryModel struct {
	TenantAggregateModel
	Month                  int                    `gorm:"not null;index"`
	Year                   int                    `gorm:"not null;index"`
	OperationDate          time.Time              `gorm:"not null;index"`
	InvoiceDate            time.Time              `gorm:"not null"`
	CounterpartyID         string                 `gorm:"type:varchar(100)"`
	CounterpartyName       string                 `gorm:"type:varchar(200);not null"`
	CounterpartyRIF        string                 `gorm:"column:counterparty_rif;type:varchar(20);not null;index"`
	CounterpartyAddress    string                 `gorm:"type:varchar(500)"`
	InvoiceNumber          string                 `gorm:"type:varchar(50);not null"`
	InvoiceControlNumber   string                 `gorm:"type:varchar(50)"`
	TransactionType        fiscal.TransactionType `gorm:"type:varchar(20);not null"`
	BaseAmount             decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	IVARate                decimal.Decimal        `gorm:"column:iva_rate;type:decimal(18,6);not null"`
	IVAAmount              decimal.Decimal        `gorm:"column:iva_amount;type:decimal(18,4);not null"`
	WithheldIVAAmount      decimal.Decimal        `gorm:"column:withheld_iva_amount;type:decimal(18,4);not null;default:0"`
	WithholdingCertificate string                 `gorm:"type:varchar(30)"`
	TotalAmount            decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	OriginalCurrency       string                 `gorm:"type:varchar(3)"`
	ExchangeRate           decimal.Decimal        `gorm:"type:decimal(18,6);not null;default:0"`
	OriginalBaseAmount     decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	OriginalIVAAmount      decimal.Decimal        `gorm:"column:original_iva_amount;type:decimal(18,4);not null;default:0"`
	OriginalTotalAmount    decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	IsForeignCurrency      bool                   `gorm:"not null;default:false"`
	IsElectronic           bool                   `gorm:"not null;default:false"`
	ElectronicCode         string                 `gorm:"type:varchar(100)"`
	BillingDocumentID      *uuid.UUID             `gorm:"type:uuid;index"`
	Status                 fiscal.BookEntryStatus `gorm:"type:varchar(20);not null;index"`
	ExportedToSENIAT       bool                   `gorm:"column:exported_to_seniat;not null;default:false"`
	ExportDate             *time.Time
	AnnulmentReason        string `gorm:"type:varchar(500)"`
	AnnulledAt             *time.Time
	UpdatedBy              *uuid.UUID `gorm:"type:uuid"`
}

// ToDomain converts the persistence model to a domain BookEntry of book.
func (m *BookEntryModel) ToDomain(book fiscal.Book) *fiscal.BookEntry {
	e := &fiscal.BookEntry{
		Book:          book,
		Month:         m.Month,
		Year:          m.Year,
		OperationDate: m.OperationDate,
		InvoiceDate:   m.InvoiceDate,
		Counterparty: fiscal.Counterparty{
			ID:      m.CounterpartyID,
			Name:    m.CounterpartyName,
			RIF:     m.CounterpartyRIF,
			Address: m.CounterpartyAddress,
		},
		InvoiceNumber:          m.InvoiceNumber,
		InvoiceControlNumber:   m.InvoiceControlNumber,
		TransactionType:        m.TransactionType,
		BaseAmount:             m.BaseAmount,
		IVARate:                m.IVARate,
		IVAAmount:              m.IVAAmount,
		WithheldIVAAmount:      m.WithheldIVAAmount,
		WithholdingCertificate: m.WithholdingCertificate,
		TotalAmount:            m.TotalAmount,
		OriginalCurrency:       valueobject.Currency(m.OriginalCurrency),
		ExchangeRate:           m.ExchangeRate,
		OriginalBaseAmount:     m.OriginalBaseAmount,
		OriginalIVAAmount:      m.OriginalIVAAmount,
		OriginalTotalAmount:    m.OriginalTotalAmount,
		IsForeignCurrency:      m.IsForeignCurrency,
		IsElectronic:           m.IsElectronic,
		ElectronicCode:         m.ElectronicCode,
		BillingDocumentID:      m.BillingDocumentID,
		Status:                 m.Status,
		ExportedToSENIAT:       m.ExportedToSENIAT,
		ExportDate:             m.ExportDate,
		AnnulmentReason:        m.AnnulmentReason,
		AnnulledAt:             m.AnnulledAt,
		UpdatedBy:              m.UpdatedBy,
	}
	m.PopulateTenantAggregateRoot(&e.TenantAggregateRoot)
	return e
}

// FromDomain populates the persistence model from a domain BookEntry.
func (m *BookEntryModel) FromDomain(e *fiscal.BookEntry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.Month = e.Month
	m.Year = e.Year
	m.OperationDate = e.OperationDate
	m.InvoiceDate = e.InvoiceDate
	m.CounterpartyID = e.Counterparty.ID
	m.CounterpartyName = e.Counterparty.Name
	m.CounterpartyRIF = e.Counterparty.RIF
	m.CounterpartyAddress = e.Counterparty.Address
	m.InvoiceNumber = e.InvoiceNumber
	m.InvoiceControlNumber = e.InvoiceControlNumber
	m.TransactionType = e.TransactionType
	m.BaseAmount = e.BaseAmount
	m.IVARate = e.IVARate
	m.IVAAmount = e.IVAAmount
	m.WithheldIVAAmount = e.WithheldIVAAmount
	m.WithholdingCertificate = e.WithholdingCertificate
	m.TotalAmount = e.TotalAmount
	m.OriginalCurrency = string(e.OriginalCurrency)
	m.ExchangeRate = e.ExchangeRate
	m.OriginalBaseAmount = e.OriginalBaseAmount
	m.OriginalIVAAmount = e.OriginalIVAAmount
	m.OriginalTotalAmount = e.OriginalTotalAmount
	m.IsForeignCurrency = e.IsForeignCurrency
	m.IsElectronic = e.IsElectronic
	m.ElectronicCode = e.ElectronicCode
	m.BillingDocumentID = e.BillingDocumentID
	m.Status = e.Status
	m.ExportedToSENIAT = e.ExportedToSENIAT
	m.ExportDate = e.ExportDate
	m.AnnulmentReason = e.AnnulmentReason
	m.AnnulledAt = e.AnnulledAt
	m.UpdatedBy = e.UpdatedBy
}

// BookEntryModelFromDomain creates a new persistence model from a domain BookEntry.
func BookEntryModelFromDomain(e *fiscal.BookEntry) *BookEntryModel {
	m := &BookEntryModel{}
	m.FromDomain(e)
	return m
}

// BookTable returns the table holding rows of book
func BookTable(book fiscal.Book) string {
	if book == fiscal.PurchaseBook {
		return PurchaseBookEntryModel{}.TableName()
	}
	return SalesBookEntryModel{}.TableName()
}

// SalesBookEntryModel maps the sales book table.
type SalesBookEntryModel struct {
	BookEntryModel
}

// TableName returns the table name for GORM
func (SalesBookEntryModel) TableName() string {
	return "sales_book_entries"
}

// PurchaseBookEntryModel maps the purchase book table.
type PurchaseBookEntryModel struct {
	BookEntryModel
}

// TableName returns the table name for GORM
func (PurchaseBookEntryModel) TableName() string {
	return "purchase_book_entries"
}

// IVADeclarationModel is the persistence model for monthly IVA declarations.
type IVADeclarationModel struct {
	TenantAggregateModel
	Month                      int                      `gorm:"not null"`
	Year                       int                      `gorm:"not null;index"`
	DeclarationNumber          string                   `gorm:"type:varchar(30);not null"`
	SalesBaseAmount            decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	SalesIVAAmount             decimal.Decimal          `gorm:"column:sales_iva_amount;type:decimal(18,4);not null;default:0"`
	TotalDebitFiscal           decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	PurchasesBaseAmount        decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	PurchasesIVAAmount         decimal.Decimal          `gorm:"column:purchases_iva_amount;type:decimal(18,4);not null;default:0"`
	TotalCreditFiscal          decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	IVAWithheldOnSales         decimal.Decimal          `gorm:"column:iva_withheld_on_sales;type:decimal(18,4);not null;default:0"`
	IVAWithheldOnPurchases     decimal.Decimal          `gorm:"column:iva_withheld_on_purchases;type:decimal(18,4);not null;default:0"`
	PreviousCreditBalance      decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	TotalCreditToApply         decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	IVAToPay                   decimal.Decimal          `gorm:"column:iva_to_pay;type:decimal(18,4);not null;default:0"`
	CreditBalance              decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	RateBreakdownJSON          string                   `gorm:"column:rate_breakdown;type:jsonb;not null;default:'[]'"`
	TotalSalesTransactions     int                      `gorm:"not null;default:0"`
	TotalPurchasesTransactions int                      `gorm:"not null;default:0"`
	ElectronicInvoices         int                      `gorm:"not null;default:0"`
	PhysicalInvoices           int                      `gorm:"not null;default:0"`
	Validated                  bool                     `gorm:"not null;default:false"`
	ValidationErrorsJSON       string                   `gorm:"column:validation_errors;type:jsonb;not null;default:'[]'"`
	Status                     fiscal.DeclarationStatus `gorm:"type:varchar(20);not null;index"`
	FilingDate                 *time.Time
	FiledBy                    *uuid.UUID `gorm:"type:uuid"`
	XMLContent                 string     `gorm:"column:xml_content;type:text"`
	PaymentDate                *time.Time
	PaymentReference           string          `gorm:"type:varchar(100)"`
	AmountPaid                 decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Notes                      string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (IVADeclarationModel) TableName() string {
	return "iva_declarations"
}

// ToDomain converts the persistence model to a domain IVADeclaration.
func (m *IVADeclarationModel) ToDomain() *fiscal.IVADeclaration {
	d := &fiscal.IVADeclaration{
		Month:                      m.Month,
		Year:                       m.Year,
		DeclarationNumber:          m.DeclarationNumber,
		SalesBaseAmount:            m.SalesBaseAmount,
		SalesIVAAmount:             m.SalesIVAAmount,
		TotalDebitFiscal:           m.TotalDebitFiscal,
		PurchasesBaseAmount:        m.PurchasesBaseAmount,
		PurchasesIVAAmount:         m.PurchasesIVAAmount,
		TotalCreditFiscal:          m.TotalCreditFiscal,
		IVAWithheldOnSales:         m.IVAWithheldOnSales,
		IVAWithheldOnPurchases:     m.IVAWithheldOnPurchases,
		PreviousCreditBalance:      m.PreviousCreditBalance,
		TotalCreditToApply:         m.TotalCreditToApply,
		IVAToPay:                   m.IVAToPay,
		CreditBalance:              m.CreditBalance,
		TotalSalesTransactions:     m.TotalSalesTransactions,
		TotalPurchasesTransactions: m.TotalPurchasesTransactions,
		ElectronicInvoices:         m.ElectronicInvoices,
		PhysicalInvoices:           m.PhysicalInvoices,
		Validated:                  m.Validated,
		ValidationErrors:           []string{},
		Status:                     m.Status,
		FilingDate:                 m.FilingDate,
		FiledBy:                    m.FiledBy,
		XMLContent:                 m.XMLContent,
		PaymentDate:                m.PaymentDate,
		PaymentReference:           m.PaymentReference,
		AmountPaid:                 m.AmountPaid,
		Notes:                      m.Notes,
	}
	m.PopulateTenantAggregateRoot(&d.TenantAggregateRoot)
	if m.RateBreakdownJSON != "" && m.RateBreakdownJSON != "[]" {
		if err := json.Unmarshal([]byte(m.RateBreakdownJSON), &d.RateBreakdown); err != nil {
			modelLogger.Warn("failed to parse declaration rate breakdown",
				zap.String("declaration_id", m.ID.String()),
				zap.Error(err))
		}
	}
	if m.ValidationErrorsJSON != "" && m.ValidationErrorsJSON != "[]" {
		if err := json.Unmarshal([]byte(m.ValidationErrorsJSON), &d.ValidationErrors); err != nil {
			modelLogger.Warn("failed to parse declaration validation errors",
				zap.String("declaration_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return d
}

// FromDomain populates the persistence model from a domain IVADeclaration.
func (m *IVADeclarationModel) FromDomain(d *fiscal.IVADeclaration) {
	m.FromDomainTenantAggregateRoot(d.TenantAggregateRoot)
	m.Month = d.Month
	m.Year = d.Year
	m.DeclarationNumber = d.DeclarationNumber
	m.SalesBaseAmount = d.SalesBaseAmount
	m.SalesIVAAmount = d.SalesIVAAmount
	m.TotalDebitFiscal = d.TotalDebitFiscal
	m.PurchasesBaseAmount = d.PurchasesBaseAmount
	m.PurchasesIVAAmount = d.PurchasesIVAAmount
	m.TotalCreditFiscal = d.TotalCreditFiscal
	m.IVAWithheldOnSales = d.IVAWithheldOnSales
	m.IVAWithheldOnPurchases = d.IVAWithheldOnPurchases
	m.PreviousCreditBalance = d.PreviousCreditBalance
	m.TotalCreditToApply = d.TotalCreditToApply
	m.IVAToPay = d.IVAToPay
	m.CreditBalance = d.CreditBalance
	m.TotalSalesTransactions = d.TotalSalesTransactions
	m.TotalPurchasesTransactions = d.TotalPurchasesTransactions
	m.ElectronicInvoices = d.ElectronicInvoices
	m.PhysicalInvoices = d.PhysicalInvoices
	m.Validated = d.Validated
	m.Status = d.Status
	m.FilingDate = d.FilingDate
	m.FiledBy = d.FiledBy
	m.XMLContent = d.XMLContent
	m.PaymentDate = d.PaymentDate
	m.PaymentReference = d.PaymentReference
	m.AmountPaid = d.AmountPaid
	m.Notes = d.Notes

	m.RateBreakdownJSON = "[]"
	if len(d.RateBreakdown) > 0 {
		if raw, err := json.Marshal(d.RateBreakdown); err == nil {
			m.RateBreakdownJSON = string(raw)
		}
	}
	m.ValidationErrorsJSON = "[]"
	if len(d.ValidationErrors) > 0 {
		if raw, err := json.Marshal(d.ValidationErrors); err == nil {
			m.ValidationErrorsJSON = string(raw)
		}
	}
}

// IVADeclarationModelFromDomain creates a new persistence model from a domain IVADeclaration.
func IVADeclarationModelFromDomain(d *fiscal.IVADeclaration) *IVADeclarationModel {
	m := &IVADeclarationModel{}
	m.FromDomain(d)
	return m
}

// CertificateSequenceModel is a per-tenant named counter. Rows are
// incremented atomically, never read-then-written.
type CertificateSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	SeqKey    string    `gorm:"type:varchar(50);primaryKey"`
	Value     int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CertificateSequenceModel) TableName() string {
	return "certificate_sequences"
}
