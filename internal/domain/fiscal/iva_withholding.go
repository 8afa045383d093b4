package fiscal

import (
	"fmt"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IVAOperationType classifies the purchase an IVA withholding applies to
type IVAOperationType string

const (
	IVACompraBienes            IVAOperationType = "compra_bienes"
	IVACompraServicios         IVAOperationType = "compra_servicios"
	IVAImportacion             IVAOperationType = "importacion"
	IVAArrendamiento           IVAOperationType = "arrendamiento"
	IVAHonorariosProfesionales IVAOperationType = "honorarios_profesionales"
	IVAOtros                   IVAOperationType = "otros"
)

var ivaOperationCodes = map[IVAOperationType]string{
	IVACompraBienes:            "01",
	IVACompraServicios:         "02",
	IVAImportacion:             "03",
	IVAArrendamiento:           "04",
	IVAHonorariosProfesionales: "05",
}

// IsValid checks if the operation type is known
func (t IVAOperationType) IsValid() bool {
	_, ok := ivaOperationCodes[t]
	return ok || t == IVAOtros
}

// Code returns the two-digit ARC operation code, 99 for anything unmapped
func (t IVAOperationType) Code() string {
	if c, ok := ivaOperationCodes[t]; ok {
		return c
	}
	return "99"
}

func (t IVAOperationType) String() string { return string(t) }

// IVAWithholding is a withholding applied on the IVA of a supplier invoice.
// The withholding base is the IVA amount, not the taxable base.
type IVAWithholding struct {
	Withholding
	SupplierID    *uuid.UUID
	IVAAmount     decimal.Decimal
	IVARate       decimal.Decimal
	OperationType IVAOperationType
}

// IVAWithholdingInput holds the values a new or edited IVA certificate is built from
type IVAWithholdingInput struct {
	SupplierID    *uuid.UUID
	Supplier      Party
	Document      DocumentRef
	BaseAmount    decimal.Decimal
	IVARate       decimal.Decimal
	IVAAmount     decimal.Decimal
	Percentage    decimal.Decimal
	OperationType IVAOperationType
	RetentionDate time.Time
	Notes         string
}

func (in IVAWithholdingInput) validate() error {
	if !in.OperationType.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown IVA operation type %q", in.OperationType))
	}
	if in.BaseAmount.IsNegative() || in.IVAAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amounts cannot be negative")
	}
	if !IsValidIVARate(in.IVARate) {
		return shared.NewDomainError("INVALID_RATE", fmt.Sprintf("IVA rate %s is not 0, 8 or 16", in.IVARate))
	}
	return nil
}

// NewIVAWithholding creates a draft IVA certificate
func NewIVAWithholding(tenantID uuid.UUID, actor shared.Actor, certificate string, in IVAWithholdingInput) (*IVAWithholding, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	amount, err := computeAmount(in.IVAAmount, in.Percentage)
	if err != nil {
		return nil, err
	}
	core, err := newWithholding(tenantID, actor, TaxIVA, certificate, in.Supplier, in.Document, in.RetentionDate)
	if err != nil {
		return nil, err
	}
	core.BaseAmount = in.BaseAmount
	core.Percentage = in.Percentage
	core.WithholdingAmount = amount
	core.Notes = in.Notes

	w := &IVAWithholding{
		Withholding:   core,
		SupplierID:    in.SupplierID,
		IVAAmount:     in.IVAAmount,
		IVARate:       in.IVARate,
		OperationType: in.OperationType,
	}
	w.AddDomainEvent(NewWithholdingEvent(EventTypeWithholdingCreated, &w.Withholding))
	return w, nil
}

// Update replaces the editable values of a draft and recomputes the amount
func (w *IVAWithholding) Update(in IVAWithholdingInput) error {
	if err := w.CheckEditable(); err != nil {
		return err
	}
	if err := in.validate(); err != nil {
		return err
	}
	amount, err := computeAmount(in.IVAAmount, in.Percentage)
	if err != nil {
		return err
	}
	in.Supplier.RIF = CleanRIF(in.Supplier.RIF)
	if !ValidateRIF(in.Supplier.RIF) {
		return shared.NewDomainError("INVALID_RIF", fmt.Sprintf("Beneficiary RIF %q is invalid", in.Supplier.RIF))
	}
	w.SupplierID = in.SupplierID
	w.Beneficiary = in.Supplier
	w.Document = in.Document
	w.BaseAmount = in.BaseAmount
	w.IVARate = in.IVARate
	w.IVAAmount = in.IVAAmount
	w.Percentage = in.Percentage
	w.WithholdingAmount = amount
	w.OperationType = in.OperationType
	if !in.RetentionDate.IsZero() {
		w.RetentionDate = in.RetentionDate
	}
	w.Notes = in.Notes
	w.Touch()
	return nil
}

// PostingLineDescriptions returns the debit and credit line descriptions
func (w *IVAWithholding) PostingLineDescriptions() (string, string) {
	return fmt.Sprintf("Retención IVA %s%% sobre factura %s", w.Percentage.String(), w.Document.InvoiceNumber),
		fmt.Sprintf("Retención IVA %s%% - %s", w.Percentage.String(), w.OperationType)
}
