package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BeneficiaryKind tells whether an ISLR beneficiary is a supplier or an employee
type BeneficiaryKind string

const (
	BeneficiarySupplier BeneficiaryKind = "supplier"
	BeneficiaryEmployee BeneficiaryKind = "employee"
)

// IsValid checks if the beneficiary kind is known
func (k BeneficiaryKind) IsValid() bool {
	return k == BeneficiarySupplier || k == BeneficiaryEmployee
}

// BeneficiaryRef references exactly one supplier or employee
type BeneficiaryRef struct {
	Kind       BeneficiaryKind
	SupplierID *uuid.UUID
	EmployeeID *uuid.UUID
}

// SupplierRef builds a supplier beneficiary reference
func SupplierRef(id uuid.UUID) BeneficiaryRef {
	return BeneficiaryRef{Kind: BeneficiarySupplier, SupplierID: &id}
}

// EmployeeRef builds an employee beneficiary reference
func EmployeeRef(id uuid.UUID) BeneficiaryRef {
	return BeneficiaryRef{Kind: BeneficiaryEmployee, EmployeeID: &id}
}

// Validate enforces that the id matching Kind is the only one set
func (r BeneficiaryRef) Validate() error {
	switch r.Kind {
	case BeneficiarySupplier:
		if r.SupplierID == nil {
			return shared.NewDomainError("INVALID_INPUT", "supplierId is required for a supplier beneficiary")
		}
		if r.EmployeeID != nil {
			return shared.NewDomainError("INVALID_INPUT", "employeeId cannot be set for a supplier beneficiary")
		}
	case BeneficiaryEmployee:
		if r.EmployeeID == nil {
			return shared.NewDomainError("INVALID_INPUT", "employeeId is required for an employee beneficiary")
		}
		if r.SupplierID != nil {
			return shared.NewDomainError("INVALID_INPUT", "supplierId cannot be set for an employee beneficiary")
		}
	default:
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown beneficiary type %q", r.Kind))
	}
	return nil
}

// ID returns the referenced supplier or employee id
func (r BeneficiaryRef) ID() uuid.UUID {
	if r.Kind == BeneficiaryEmployee && r.EmployeeID != nil {
		return *r.EmployeeID
	}
	if r.SupplierID != nil {
		return *r.SupplierID
	}
	return uuid.Nil
}

// ISLROperationType classifies the payment subject to ISLR withholding
type ISLROperationType string

const (
	ISLRSalarios                ISLROperationType = "salarios"
	ISLRHonorariosProfesionales ISLROperationType = "honorarios_profesionales"
	ISLRComisiones              ISLROperationType = "comisiones"
	ISLRIntereses               ISLROperationType = "intereses"
	ISLRDividendos              ISLROperationType = "dividendos"
	ISLRArrendamiento           ISLROperationType = "arrendamiento"
	ISLRRegalias                ISLROperationType = "regalias"
	ISLRServicioTransporte      ISLROperationType = "servicio_transporte"
	ISLROtrosServicios          ISLROperationType = "otros_servicios"
)

var islrOperationCodes = map[ISLROperationType]string{
	ISLRSalarios:                "01",
	ISLRHonorariosProfesionales: "02",
	ISLRComisiones:              "03",
	ISLRIntereses:               "04",
	ISLRDividendos:              "05",
	ISLRArrendamiento:           "06",
	ISLRRegalias:                "07",
	ISLRServicioTransporte:      "08",
	ISLROtrosServicios:          "99",
}

// IsValid checks if the operation type is known
func (t ISLROperationType) IsValid() bool {
	_, ok := islrOperationCodes[t]
	return ok
}

// Code returns the two-digit ARC operation code
func (t ISLROperationType) Code() string {
	if c, ok := islrOperationCodes[t]; ok {
		return c
	}
	return "99"
}

func (t ISLROperationType) String() string { return string(t) }

// Concept is the SENIAT ISLR concept of the payment
type Concept struct {
	Code        string
	Description string
}

// ISLRWithholding is an income tax withholding on a payment to a supplier or employee
type ISLRWithholding struct {
	Withholding
	BeneficiaryRef BeneficiaryRef
	OperationType  ISLROperationType
	Concept        Concept
	DocumentType   string
}

// ISLRWithholdingInput holds the values an ISLR certificate is built from
type ISLRWithholdingInput struct {
	BeneficiaryRef BeneficiaryRef
	Beneficiary    Party
	Document       DocumentRef
	DocumentType   string
	BaseAmount     decimal.Decimal
	Percentage     decimal.Decimal
	OperationType  ISLROperationType
	Concept        Concept
	RetentionDate  time.Time
	Notes          string
}

func (in ISLRWithholdingInput) validate() error {
	if err := in.BeneficiaryRef.Validate(); err != nil {
		return err
	}
	if !in.OperationType.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown ISLR operation type %q", in.OperationType))
	}
	if strings.TrimSpace(in.Concept.Code) == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Concept code is required")
	}
	if in.BaseAmount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Base amount cannot be negative")
	}
	return nil
}

// NewISLRWithholding creates a draft ISLR certificate
func NewISLRWithholding(tenantID uuid.UUID, actor shared.Actor, certificate string, in ISLRWithholdingInput) (*ISLRWithholding, error) {
	beneficiary := in.Beneficiary
	beneficiary.RIF = CleanRIF(beneficiary.RIF)
	if !ValidateRIF(beneficiary.RIF) {
		return nil, shared.NewDomainError("INVALID_RIF", fmt.Sprintf("Beneficiary RIF %q is invalid", beneficiary.RIF))
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	amount, err := computeAmount(in.BaseAmount, in.Percentage)
	if err != nil {
		return nil, err
	}
	core, err := newWithholding(tenantID, actor, TaxISLR, certificate, beneficiary, in.Document, in.RetentionDate)
	if err != nil {
		return nil, err
	}
	core.BaseAmount = in.BaseAmount
	core.Percentage = in.Percentage
	core.WithholdingAmount = amount
	core.Notes = in.Notes

	w := &ISLRWithholding{
		Withholding:    core,
		BeneficiaryRef: in.BeneficiaryRef,
		OperationType:  in.OperationType,
		Concept:        in.Concept,
		DocumentType:   in.DocumentType,
	}
	w.AddDomainEvent(NewWithholdingEvent(EventTypeWithholdingCreated, &w.Withholding))
	return w, nil
}

// Update replaces the editable values of a draft and recomputes the amount
func (w *ISLRWithholding) Update(in ISLRWithholdingInput) error {
	if err := w.CheckEditable(); err != nil {
		return err
	}
	in.Beneficiary.RIF = CleanRIF(in.Beneficiary.RIF)
	if !ValidateRIF(in.Beneficiary.RIF) {
		return shared.NewDomainError("INVALID_RIF", fmt.Sprintf("Beneficiary RIF %q is invalid", in.Beneficiary.RIF))
	}
	if err := in.validate(); err != nil {
		return err
	}
	amount, err := computeAmount(in.BaseAmount, in.Percentage)
	if err != nil {
		return err
	}
	w.BeneficiaryRef = in.BeneficiaryRef
	w.Beneficiary = in.Beneficiary
	w.Document = in.Document
	w.DocumentType = in.DocumentType
	w.BaseAmount = in.BaseAmount
	w.Percentage = in.Percentage
	w.WithholdingAmount = amount
	w.OperationType = in.OperationType
	w.Concept = in.Concept
	if !in.RetentionDate.IsZero() {
		w.RetentionDate = in.RetentionDate
	}
	w.Notes = in.Notes
	w.Touch()
	return nil
}

// PostingLineDescriptions returns the debit and credit line descriptions
func (w *ISLRWithholding) PostingLineDescriptions() (string, string) {
	return fmt.Sprintf("Retención ISLR %s%% - %s", w.Percentage.String(), w.OperationType),
		fmt.Sprintf("Retención ISLR a %s - Doc. %s", w.Beneficiary.Name, w.Document.InvoiceNumber)
}
