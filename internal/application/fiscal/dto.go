package fiscal

import (
	"time"

	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Withholding DTOs
// ============================================================================

// IVAWithholdingRequest represents a request to create an IVA certificate
type IVAWithholdingRequest struct {
	SupplierID           *uuid.UUID      `json:"supplier_id"`
	SupplierRIF          string          `json:"supplier_rif" binding:"required,rif"`
	SupplierName         string          `json:"supplier_name" binding:"required,max=200"`
	SupplierAddress      string          `json:"supplier_address" binding:"max=500"`
	InvoiceNumber        string          `json:"invoice_number" binding:"required,max=50"`
	InvoiceControlNumber string          `json:"invoice_control_number" binding:"max=50"`
	InvoiceDate          *time.Time      `json:"invoice_date"`
	BaseAmount           decimal.Decimal `json:"base_amount"`
	IVARate              decimal.Decimal `json:"iva_rate"`
	IVAAmount            decimal.Decimal `json:"iva_amount"`
	WithholdingPercent   decimal.Decimal `json:"withholding_percentage"`
	OperationType        string          `json:"operation_type" binding:"required,oneof=compra_bienes compra_servicios importacion arrendamiento honorarios_profesionales otros"`
	RetentionDate        *time.Time      `json:"retention_date"`
	Notes                string          `json:"notes" binding:"max=2000"`
}

func (r IVAWithholdingRequest) input() fiscal.IVAWithholdingInput {
	in := fiscal.IVAWithholdingInput{
		SupplierID: r.SupplierID,
		Supplier:   fiscal.Party{RIF: r.SupplierRIF, Name: r.SupplierName, Address: r.SupplierAddress},
		Document: fiscal.DocumentRef{
			InvoiceNumber: r.InvoiceNumber,
			ControlNumber: r.InvoiceControlNumber,
		},
		BaseAmount:    r.BaseAmount,
		IVARate:       r.IVARate,
		IVAAmount:     r.IVAAmount,
		Percentage:    r.WithholdingPercent,
		OperationType: fiscal.IVAOperationType(r.OperationType),
		Notes:         r.Notes,
	}
	if r.InvoiceDate != nil {
		in.Document.Date = *r.InvoiceDate
	}
	if r.RetentionDate != nil {
		in.RetentionDate = *r.RetentionDate
	}
	return in
}

// UpdateIVAWithholdingRequest changes a draft IVA certificate. Nil fields keep their value.
type UpdateIVAWithholdingRequest struct {
	SupplierRIF          *string          `json:"supplier_rif" binding:"omitempty,rif"`
	SupplierName         *string          `json:"supplier_name" binding:"omitempty,max=200"`
	SupplierAddress      *string          `json:"supplier_address" binding:"omitempty,max=500"`
	InvoiceNumber        *string          `json:"invoice_number" binding:"omitempty,max=50"`
	InvoiceControlNumber *string          `json:"invoice_control_number" binding:"omitempty,max=50"`
	BaseAmount           *decimal.Decimal `json:"base_amount"`
	IVARate              *decimal.Decimal `json:"iva_rate"`
	IVAAmount            *decimal.Decimal `json:"iva_amount"`
	WithholdingPercent   *decimal.Decimal `json:"withholding_percentage"`
	OperationType        *string          `json:"operation_type" binding:"omitempty,oneof=compra_bienes compra_servicios importacion arrendamiento honorarios_profesionales otros"`
	RetentionDate        *time.Time       `json:"retention_date"`
	Notes                *string          `json:"notes" binding:"omitempty,max=2000"`
}

func (r UpdateIVAWithholdingRequest) merge(w *fiscal.IVAWithholding) fiscal.IVAWithholdingInput {
	in := fiscal.IVAWithholdingInput{
		SupplierID:    w.SupplierID,
		Supplier:      w.Beneficiary,
		Document:      w.Document,
		BaseAmount:    w.BaseAmount,
		IVARate:       w.IVARate,
		IVAAmount:     w.IVAAmount,
		Percentage:    w.Percentage,
		OperationType: w.OperationType,
		RetentionDate: w.RetentionDate,
		Notes:         w.Notes,
	}
	setString(&in.Supplier.RIF, r.SupplierRIF)
	setString(&in.Supplier.Name, r.SupplierName)
	setString(&in.Supplier.Address, r.SupplierAddress)
	setString(&in.Document.InvoiceNumber, r.InvoiceNumber)
	setString(&in.Document.ControlNumber, r.InvoiceControlNumber)
	setDecimal(&in.BaseAmount, r.BaseAmount)
	setDecimal(&in.IVARate, r.IVARate)
	setDecimal(&in.IVAAmount, r.IVAAmount)
	setDecimal(&in.Percentage, r.WithholdingPercent)
	if r.OperationType != nil {
		in.OperationType = fiscal.IVAOperationType(*r.OperationType)
	}
	if r.RetentionDate != nil {
		in.RetentionDate = *r.RetentionDate
	}
	setString(&in.Notes, r.Notes)
	return in
}

// ISLRWithholdingRequest represents a request to create an ISLR certificate
type ISLRWithholdingRequest struct {
	BeneficiaryType    string          `json:"beneficiary_type" binding:"required,oneof=supplier employee"`
	SupplierID         *uuid.UUID      `json:"supplier_id"`
	EmployeeID         *uuid.UUID      `json:"employee_id"`
	BeneficiaryRIF     string          `json:"beneficiary_rif" binding:"required,rif"`
	BeneficiaryName    string          `json:"beneficiary_name" binding:"required,max=200"`
	BeneficiaryAddress string          `json:"beneficiary_address" binding:"max=500"`
	OperationType      string          `json:"operation_type" binding:"required"`
	ConceptCode        string          `json:"concept_code" binding:"required,max=20"`
	ConceptDescription string          `json:"concept_description" binding:"max=200"`
	DocumentType       string          `json:"document_type" binding:"max=50"`
	DocumentNumber     string          `json:"document_number" binding:"required,max=50"`
	DocumentDate       *time.Time      `json:"document_date"`
	BaseAmount         decimal.Decimal `json:"base_amount"`
	WithholdingPercent decimal.Decimal `json:"withholding_percentage"`
	RetentionDate      *time.Time      `json:"retention_date"`
	Notes              string          `json:"notes" binding:"max=2000"`
}

func (r ISLRWithholdingRequest) input() fiscal.ISLRWithholdingInput {
	in := fiscal.ISLRWithholdingInput{
		BeneficiaryRef: fiscal.BeneficiaryRef{
			Kind:       fiscal.BeneficiaryKind(r.BeneficiaryType),
			SupplierID: r.SupplierID,
			EmployeeID: r.EmployeeID,
		},
		Beneficiary:   fiscal.Party{RIF: r.BeneficiaryRIF, Name: r.BeneficiaryName, Address: r.BeneficiaryAddress},
		Document:      fiscal.DocumentRef{InvoiceNumber: r.DocumentNumber},
		DocumentType:  r.DocumentType,
		BaseAmount:    r.BaseAmount,
		Percentage:    r.WithholdingPercent,
		OperationType: fiscal.ISLROperationType(r.OperationType),
		Concept:       fiscal.Concept{Code: r.ConceptCode, Description: r.ConceptDescription},
		Notes:         r.Notes,
	}
	if r.DocumentDate != nil {
		in.Document.Date = *r.DocumentDate
	}
	if r.RetentionDate != nil {
		in.RetentionDate = *r.RetentionDate
	}
	return in
}

// UpdateISLRWithholdingRequest changes a draft ISLR certificate. Nil fields keep their value.
type UpdateISLRWithholdingRequest struct {
	BeneficiaryRIF     *string          `json:"beneficiary_rif" binding:"omitempty,rif"`
	BeneficiaryName    *string          `json:"beneficiary_name" binding:"omitempty,max=200"`
	BeneficiaryAddress *string          `json:"beneficiary_address" binding:"omitempty,max=500"`
	OperationType      *string          `json:"operation_type"`
	ConceptCode        *string          `json:"concept_code" binding:"omitempty,max=20"`
	ConceptDescription *string          `json:"concept_description" binding:"omitempty,max=200"`
	DocumentType       *string          `json:"document_type" binding:"omitempty,max=50"`
	DocumentNumber     *string          `json:"document_number" binding:"omitempty,max=50"`
	BaseAmount         *decimal.Decimal `json:"base_amount"`
	WithholdingPercent *decimal.Decimal `json:"withholding_percentage"`
	RetentionDate      *time.Time       `json:"retention_date"`
	Notes              *string          `json:"notes" binding:"omitempty,max=2000"`
}

func (r UpdateISLRWithholdingRequest) merge(w *fiscal.ISLRWithholding) fiscal.ISLRWithholdingInput {
	in := fiscal.ISLRWithholdingInput{
		BeneficiaryRef: w.BeneficiaryRef,
		Beneficiary:    w.Beneficiary,
		Document:       w.Document,
		DocumentType:   w.DocumentType,
		BaseAmount:     w.BaseAmount,
		Percentage:     w.Percentage,
		OperationType:  w.OperationType,
		Concept:        w.Concept,
		RetentionDate:  w.RetentionDate,
		Notes:          w.Notes,
	}
	setString(&in.Beneficiary.RIF, r.BeneficiaryRIF)
	setString(&in.Beneficiary.Name, r.BeneficiaryName)
	setString(&in.Beneficiary.Address, r.BeneficiaryAddress)
	if r.OperationType != nil {
		in.OperationType = fiscal.ISLROperationType(*r.OperationType)
	}
	setString(&in.Concept.Code, r.ConceptCode)
	setString(&in.Concept.Description, r.ConceptDescription)
	setString(&in.DocumentType, r.DocumentType)
	setString(&in.Document.InvoiceNumber, r.DocumentNumber)
	setDecimal(&in.BaseAmount, r.BaseAmount)
	setDecimal(&in.Percentage, r.WithholdingPercent)
	if r.RetentionDate != nil {
		in.RetentionDate = *r.RetentionDate
	}
	setString(&in.Notes, r.Notes)
	return in
}

// AnnulRequest carries the mandatory annulment reason
type AnnulRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// WithholdingListFilter defines query parameters for listing certificates
type WithholdingListFilter struct {
	Page            int        `form:"page" binding:"omitempty,min=1"`
	PageSize        int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status          string     `form:"status" binding:"omitempty,oneof=draft posted annulled"`
	From            *time.Time `form:"from" time_format:"2006-01-02"`
	To              *time.Time `form:"to" time_format:"2006-01-02"`
	BeneficiaryRIF  string     `form:"rif"`
	InvoiceNumber   string     `form:"invoice_number"`
	OnlyNotExported bool       `form:"only_not_exported"`
}

// ExportARCRequest selects the certificates of an ARC file
type ExportARCRequest struct {
	Month           int  `json:"month" form:"month" binding:"required,min=1,max=12"`
	Year            int  `json:"year" form:"year" binding:"required,min=2000,max=2100"`
	OnlyNotExported bool `json:"only_not_exported" form:"only_not_exported"`
}

// ExportResult is a rendered declaration file
type ExportResult struct {
	FileName   string `json:"file_name"`
	Content    string `json:"content"`
	Records    int    `json:"records"`
	StorageKey string `json:"storage_key,omitempty"`
}

// WithholdingResponse represents a certificate of either tax in API responses
type WithholdingResponse struct {
	ID                   uuid.UUID       `json:"id"`
	TenantID             uuid.UUID       `json:"tenant_id"`
	Tax                  string          `json:"tax"`
	CertificateNumber    string          `json:"certificate_number"`
	Status               string          `json:"status"`
	BeneficiaryRIF       string          `json:"beneficiary_rif"`
	BeneficiaryName      string          `json:"beneficiary_name"`
	BeneficiaryAddress   string          `json:"beneficiary_address,omitempty"`
	BeneficiaryType      string          `json:"beneficiary_type,omitempty"`
	SupplierID           *uuid.UUID      `json:"supplier_id,omitempty"`
	EmployeeID           *uuid.UUID      `json:"employee_id,omitempty"`
	InvoiceNumber        string          `json:"invoice_number"`
	InvoiceControlNumber string          `json:"invoice_control_number,omitempty"`
	DocumentType         string          `json:"document_type,omitempty"`
	OperationType        string          `json:"operation_type"`
	OperationCode        string          `json:"operation_code"`
	ConceptCode          string          `json:"concept_code,omitempty"`
	ConceptDescription   string          `json:"concept_description,omitempty"`
	BaseAmount           decimal.Decimal `json:"base_amount"`
	IVARate              decimal.Decimal `json:"iva_rate,omitempty"`
	IVAAmount            decimal.Decimal `json:"iva_amount,omitempty"`
	WithholdingPercent   decimal.Decimal `json:"withholding_percentage"`
	WithholdingAmount    decimal.Decimal `json:"withholding_amount"`
	RetentionDate        time.Time       `json:"retention_date"`
	JournalEntryID       *uuid.UUID      `json:"journal_entry_id,omitempty"`
	ReversalEntryID      *uuid.UUID      `json:"reversal_entry_id,omitempty"`
	PostedAt             *time.Time      `json:"posted_at,omitempty"`
	AnnulledAt           *time.Time      `json:"annulled_at,omitempty"`
	AnnulmentReason      string          `json:"annulment_reason,omitempty"`
	ExportedToARC        bool            `json:"exported_to_arc"`
	ExportDate           *time.Time      `json:"export_date,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func baseWithholdingResponse(w *fiscal.Withholding) WithholdingResponse {
	return WithholdingResponse{
		ID:                   w.ID,
		TenantID:             w.TenantID,
		Tax:                  w.Tax.String(),
		CertificateNumber:    w.CertificateNumber,
		Status:               w.Status.String(),
		BeneficiaryRIF:       w.Beneficiary.RIF,
		BeneficiaryName:      w.Beneficiary.Name,
		BeneficiaryAddress:   w.Beneficiary.Address,
		InvoiceNumber:        w.Document.InvoiceNumber,
		InvoiceControlNumber: w.Document.ControlNumber,
		BaseAmount:           w.BaseAmount,
		WithholdingPercent:   w.Percentage,
		WithholdingAmount:    w.WithholdingAmount,
		RetentionDate:        w.RetentionDate,
		JournalEntryID:       w.JournalEntryID,
		ReversalEntryID:      w.ReversalEntryID,
		PostedAt:             w.PostedAt,
		AnnulledAt:           w.AnnulledAt,
		AnnulmentReason:      w.AnnulmentReason,
		ExportedToARC:        w.ExportedToARC,
		ExportDate:           w.ExportDate,
		Notes:                w.Notes,
		CreatedAt:            w.CreatedAt,
		UpdatedAt:            w.UpdatedAt,
	}
}

// ToIVAWithholdingResponse converts an IVA certificate to its response
func ToIVAWithholdingResponse(w *fiscal.IVAWithholding) WithholdingResponse {
	r := baseWithholdingResponse(&w.Withholding)
	r.SupplierID = w.SupplierID
	r.OperationType = w.OperationType.String()
	r.OperationCode = w.OperationType.Code()
	r.IVARate = w.IVARate
	r.IVAAmount = w.IVAAmount
	return r
}

// ToISLRWithholdingResponse converts an ISLR certificate to its response
func ToISLRWithholdingResponse(w *fiscal.ISLRWithholding) WithholdingResponse {
	r := baseWithholdingResponse(&w.Withholding)
	r.BeneficiaryType = string(w.BeneficiaryRef.Kind)
	r.SupplierID = w.BeneficiaryRef.SupplierID
	r.EmployeeID = w.BeneficiaryRef.EmployeeID
	r.OperationType = w.OperationType.String()
	r.OperationCode = w.OperationType.Code()
	r.ConceptCode = w.Concept.Code
	r.ConceptDescription = w.Concept.Description
	r.DocumentType = w.DocumentType
	return r
}

// ============================================================================
// Book DTOs
// ============================================================================

// BookEntryRequest represents a manually entered sales or purchase book row
type BookEntryRequest struct {
	OperationDate          time.Time       `json:"operation_date" binding:"required"`
	InvoiceDate            *time.Time      `json:"invoice_date"`
	CounterpartyID         string          `json:"counterparty_id" binding:"max=100"`
	CounterpartyName       string          `json:"counterparty_name" binding:"required,max=200"`
	CounterpartyRIF        string          `json:"counterparty_rif" binding:"required,rif"`
	CounterpartyAddress    string          `json:"counterparty_address" binding:"max=500"`
	InvoiceNumber          string          `json:"invoice_number" binding:"required,max=50"`
	InvoiceControlNumber   string          `json:"invoice_control_number" binding:"max=50"`
	TransactionType        string          `json:"transaction_type" binding:"omitempty,oneof=sale export purchase import service debit_note credit_note"`
	BaseAmount             decimal.Decimal `json:"base_amount"`
	IVARate                decimal.Decimal `json:"iva_rate"`
	IVAAmount              decimal.Decimal `json:"iva_amount"`
	WithheldIVAAmount      decimal.Decimal `json:"withheld_iva_amount"`
	WithholdingCertificate string          `json:"withholding_certificate" binding:"max=50"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	IsElectronic           bool            `json:"is_electronic"`
	ElectronicCode         string          `json:"electronic_code" binding:"max=100"`
	Draft                  bool            `json:"draft"`
}

func (r BookEntryRequest) input() fiscal.BookEntryInput {
	in := fiscal.BookEntryInput{
		OperationDate: r.OperationDate,
		Counterparty: fiscal.Counterparty{
			ID:      r.CounterpartyID,
			Name:    r.CounterpartyName,
			RIF:     r.CounterpartyRIF,
			Address: r.CounterpartyAddress,
		},
		InvoiceNumber:          r.InvoiceNumber,
		InvoiceControlNumber:   r.InvoiceControlNumber,
		TransactionType:        fiscal.TransactionType(r.TransactionType),
		BaseAmount:             r.BaseAmount,
		IVARate:                r.IVARate,
		IVAAmount:              r.IVAAmount,
		WithheldIVAAmount:      r.WithheldIVAAmount,
		WithholdingCertificate: r.WithholdingCertificate,
		TotalAmount:            r.TotalAmount,
		IsElectronic:           r.IsElectronic,
		ElectronicCode:         r.ElectronicCode,
		Draft:                  r.Draft,
	}
	if r.InvoiceDate != nil {
		in.InvoiceDate = *r.InvoiceDate
	}
	return in
}

// BookListFilter defines query parameters for listing book rows
type BookListFilter struct {
	Page            int    `form:"page" binding:"omitempty,min=1"`
	PageSize        int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search          string `form:"search" binding:"max=100"`
	Month           *int   `form:"month" binding:"omitempty,min=1,max=12"`
	Year            *int   `form:"year" binding:"omitempty,min=2000,max=2100"`
	Status          string `form:"status" binding:"omitempty,oneof=draft confirmed exported annulled"`
	CounterpartyRIF string `form:"rif"`
	InvoiceNumber   string `form:"invoice_number"`
}

// MonthQuery selects a fiscal month
type MonthQuery struct {
	Month int `json:"month" form:"month" binding:"required,min=1,max=12"`
	Year  int `json:"year" form:"year" binding:"required,min=2000,max=2100"`
}

// BookEntryResponse represents a book row in API responses
type BookEntryResponse struct {
	ID                     uuid.UUID       `json:"id"`
	TenantID               uuid.UUID       `json:"tenant_id"`
	Book                   string          `json:"book"`
	Month                  int             `json:"month"`
	Year                   int             `json:"year"`
	OperationDate          time.Time       `json:"operation_date"`
	InvoiceDate            time.Time       `json:"invoice_date"`
	CounterpartyID         string          `json:"counterparty_id,omitempty"`
	CounterpartyName       string          `json:"counterparty_name"`
	CounterpartyRIF        string          `json:"counterparty_rif"`
	CounterpartyAddress    string          `json:"counterparty_address,omitempty"`
	InvoiceNumber          string          `json:"invoice_number"`
	InvoiceControlNumber   string          `json:"invoice_control_number"`
	TransactionType        string          `json:"transaction_type"`
	BaseAmount             decimal.Decimal `json:"base_amount"`
	IVARate                decimal.Decimal `json:"iva_rate"`
	IVAAmount              decimal.Decimal `json:"iva_amount"`
	WithheldIVAAmount      decimal.Decimal `json:"withheld_iva_amount"`
	WithholdingCertificate string          `json:"withholding_certificate,omitempty"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	OriginalCurrency       string          `json:"original_currency"`
	ExchangeRate           decimal.Decimal `json:"exchange_rate"`
	OriginalBaseAmount     decimal.Decimal `json:"original_base_amount"`
	OriginalIVAAmount      decimal.Decimal `json:"original_iva_amount"`
	OriginalTotalAmount    decimal.Decimal `json:"original_total_amount"`
	IsForeignCurrency      bool            `json:"is_foreign_currency"`
	IsElectronic           bool            `json:"is_electronic"`
	ElectronicCode         string          `json:"electronic_code,omitempty"`
	BillingDocumentID      *uuid.UUID      `json:"billing_document_id,omitempty"`
	Status                 string          `json:"status"`
	ExportedToSENIAT       bool            `json:"exported_to_seniat"`
	ExportDate             *time.Time      `json:"export_date,omitempty"`
	AnnulmentReason        string          `json:"annulment_reason,omitempty"`
	AnnulledAt             *time.Time      `json:"annulled_at,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// ToBookEntryResponse converts a book row to its response
func ToBookEntryResponse(e *fiscal.BookEntry) BookEntryResponse {
	return BookEntryResponse{
		ID:                     e.ID,
		TenantID:               e.TenantID,
		Book:                   string(e.Book),
		Month:                  e.Month,
		Year:                   e.Year,
		OperationDate:          e.OperationDate,
		InvoiceDate:            e.InvoiceDate,
		CounterpartyID:         e.Counterparty.ID,
		CounterpartyName:       e.Counterparty.Name,
		CounterpartyRIF:        e.Counterparty.RIF,
		CounterpartyAddress:    e.Counterparty.Address,
		InvoiceNumber:          e.InvoiceNumber,
		InvoiceControlNumber:   e.InvoiceControlNumber,
		TransactionType:        string(e.TransactionType),
		BaseAmount:             e.BaseAmount,
		IVARate:                e.IVARate,
		IVAAmount:              e.IVAAmount,
		WithheldIVAAmount:      e.WithheldIVAAmount,
		WithholdingCertificate: e.WithholdingCertificate,
		TotalAmount:            e.TotalAmount,
		OriginalCurrency:       e.OriginalCurrency.String(),
		ExchangeRate:           e.ExchangeRate,
		OriginalBaseAmount:     e.OriginalBaseAmount,
		OriginalIVAAmount:      e.OriginalIVAAmount,
		OriginalTotalAmount:    e.OriginalTotalAmount,
		IsForeignCurrency:      e.IsForeignCurrency,
		IsElectronic:           e.IsElectronic,
		ElectronicCode:         e.ElectronicCode,
		BillingDocumentID:      e.BillingDocumentID,
		Status:                 string(e.Status),
		ExportedToSENIAT:       e.ExportedToSENIAT,
		ExportDate:             e.ExportDate,
		AnnulmentReason:        e.AnnulmentReason,
		AnnulledAt:             e.AnnulledAt,
		CreatedAt:              e.CreatedAt,
		UpdatedAt:              e.UpdatedAt,
	}
}

// SyncResult reports the outcome of reconciling a billing document
type SyncResult struct {
	Entry       BookEntryResponse   `json:"entry"`
	Created     bool                `json:"created"`
	Reclaimed   bool                `json:"reclaimed"`
	Diagnostics []fiscal.Diagnostic `json:"diagnostics"`
}

// BookResponse is the ordered monthly book with its totals
type BookResponse struct {
	Month   int                 `json:"month"`
	Year    int                 `json:"year"`
	Entries []BookEntryResponse `json:"entries"`
	Summary fiscal.BookSummary  `json:"summary"`
}

// ============================================================================
// Declaration DTOs
// ============================================================================

// CalculateDeclarationRequest computes the IVA return of a month
type CalculateDeclarationRequest struct {
	Month                 int             `json:"month" binding:"required,min=1,max=12"`
	Year                  int             `json:"year" binding:"required,min=2000,max=2100"`
	PreviousCreditBalance decimal.Decimal `json:"previous_credit_balance"`
}

// FileDeclarationRequest submits a calculated declaration
type FileDeclarationRequest struct {
	FilingDate *time.Time `json:"filing_date"`
	Force      bool       `json:"force"`
}

// RecordPaymentRequest settles a filed declaration
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Date      *time.Time      `json:"date"`
	Reference string          `json:"reference" binding:"required,max=100"`
	Notes     string          `json:"notes" binding:"max=1000"`
}

// DeclarationListFilter defines query parameters for listing declarations
type DeclarationListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Year     *int   `form:"year" binding:"omitempty,min=2000,max=2100"`
	Status   string `form:"status" binding:"omitempty,oneof=draft calculated filed paid"`
}

// DeclarationResponse represents an IVA declaration in API responses
type DeclarationResponse struct {
	ID                         uuid.UUID              `json:"id"`
	TenantID                   uuid.UUID              `json:"tenant_id"`
	Month                      int                    `json:"month"`
	Year                       int                    `json:"year"`
	DeclarationNumber          string                 `json:"declaration_number"`
	SalesBaseAmount            decimal.Decimal        `json:"sales_base_amount"`
	SalesIVAAmount             decimal.Decimal        `json:"sales_iva_amount"`
	TotalDebitFiscal           decimal.Decimal        `json:"total_debit_fiscal"`
	PurchasesBaseAmount        decimal.Decimal        `json:"purchases_base_amount"`
	PurchasesIVAAmount         decimal.Decimal        `json:"purchases_iva_amount"`
	TotalCreditFiscal          decimal.Decimal        `json:"total_credit_fiscal"`
	IVAWithheldOnSales         decimal.Decimal        `json:"iva_withheld_on_sales"`
	IVAWithheldOnPurchases     decimal.Decimal        `json:"iva_withheld_on_purchases"`
	PreviousCreditBalance      decimal.Decimal        `json:"previous_credit_balance"`
	TotalCreditToApply         decimal.Decimal        `json:"total_credit_to_apply"`
	IVAToPay                   decimal.Decimal        `json:"iva_to_pay"`
	CreditBalance              decimal.Decimal        `json:"credit_balance"`
	RateBreakdown              []fiscal.RateBreakdown `json:"rate_breakdown"`
	TotalSalesTransactions     int                    `json:"total_sales_transactions"`
	TotalPurchasesTransactions int                    `json:"total_purchases_transactions"`
	ElectronicInvoices         int                    `json:"electronic_invoices"`
	PhysicalInvoices           int                    `json:"physical_invoices"`
	Validated                  bool                   `json:"validated"`
	ValidationErrors           []string               `json:"validation_errors"`
	Status                     string                 `json:"status"`
	FilingDate                 *time.Time             `json:"filing_date,omitempty"`
	FiledBy                    *uuid.UUID             `json:"filed_by,omitempty"`
	XMLContent                 string                 `json:"xml_content,omitempty"`
	PaymentDate                *time.Time             `json:"payment_date,omitempty"`
	PaymentReference           string                 `json:"payment_reference,omitempty"`
	AmountPaid                 decimal.Decimal        `json:"amount_paid"`
	Notes                      string                 `json:"notes,omitempty"`
	CreatedAt                  time.Time              `json:"created_at"`
	UpdatedAt                  time.Time              `json:"updated_at"`
}

// ToDeclarationResponse converts a declaration to its response
func ToDeclarationResponse(d *fiscal.IVADeclaration) DeclarationResponse {
	validationErrors := d.ValidationErrors
	if validationErrors == nil {
		validationErrors = []string{}
	}
	return DeclarationResponse{
		ID:                         d.ID,
		TenantID:                   d.TenantID,
		Month:                      d.Month,
		Year:                       d.Year,
		DeclarationNumber:          d.DeclarationNumber,
		SalesBaseAmount:            d.SalesBaseAmount,
		SalesIVAAmount:             d.SalesIVAAmount,
		TotalDebitFiscal:           d.TotalDebitFiscal,
		PurchasesBaseAmount:        d.PurchasesBaseAmount,
		PurchasesIVAAmount:         d.PurchasesIVAAmount,
		TotalCreditFiscal:          d.TotalCreditFiscal,
		IVAWithheldOnSales:         d.IVAWithheldOnSales,
		IVAWithheldOnPurchases:     d.IVAWithheldOnPurchases,
		PreviousCreditBalance:      d.PreviousCreditBalance,
		TotalCreditToApply:         d.TotalCreditToApply,
		IVAToPay:                   d.IVAToPay,
		CreditBalance:              d.CreditBalance,
		RateBreakdown:              d.RateBreakdown,
		TotalSalesTransactions:     d.TotalSalesTransactions,
		TotalPurchasesTransactions: d.TotalPurchasesTransactions,
		ElectronicInvoices:         d.ElectronicInvoices,
		PhysicalInvoices:           d.PhysicalInvoices,
		Validated:                  d.Validated,
		ValidationErrors:           validationErrors,
		Status:                     string(d.Status),
		FilingDate:                 d.FilingDate,
		FiledBy:                    d.FiledBy,
		XMLContent:                 d.XMLContent,
		PaymentDate:                d.PaymentDate,
		PaymentReference:           d.PaymentReference,
		AmountPaid:                 d.AmountPaid,
		Notes:                      d.Notes,
		CreatedAt:                  d.CreatedAt,
		UpdatedAt:                  d.UpdatedAt,
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}
