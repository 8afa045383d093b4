package fiscal

import (
	"fmt"
	"strings"

	"github.com/erp/fiscal/internal/domain/shared/valueobject"
)

// ValidationResult collects every problem found instead of stopping at the first
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func newValidationResult(errs []string) ValidationResult {
	if errs == nil {
		errs = []string{}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateForSENIAT checks that a row can be declared. It never mutates the entry.
func ValidateForSENIAT(e *BookEntry) ValidationResult {
	var errs []string
	if strings.TrimSpace(e.InvoiceControlNumber) == "" {
		errs = append(errs, "Falta número de control SENIAT")
	}
	if !IsSENIATFormat(e.Counterparty.RIF) {
		errs = append(errs, fmt.Sprintf("RIF inválido: %q. Formato esperado: J-12345678-9", e.Counterparty.RIF))
	}
	if strings.TrimSpace(e.InvoiceNumber) == "" {
		errs = append(errs, "Falta número de factura")
	}
	if e.InvoiceDate.IsZero() && e.OperationDate.IsZero() {
		errs = append(errs, "Falta fecha de emisión")
	}
	if e.BaseAmount.IsNegative() {
		errs = append(errs, "Base imponible no puede ser negativa")
	}
	if e.IVAAmount.IsNegative() {
		errs = append(errs, "Monto de IVA no puede ser negativo")
	}
	if !IsValidIVARate(e.IVARate) {
		errs = append(errs, fmt.Sprintf("Alícuota de IVA inválida: %s%%. Valores válidos: 0, 8, 16%%", e.IVARate))
	}
	expected := valueobject.Percent(e.BaseAmount, e.IVARate)
	if !valueobject.WithinTolerance(expected, e.IVAAmount, valueobject.ConversionTolerance) {
		errs = append(errs, fmt.Sprintf("IVA calculado (%s) no coincide con IVA registrado (%s)", expected.StringFixed(2), e.IVAAmount.StringFixed(2)))
	}
	if e.IsElectronic && strings.TrimSpace(e.ElectronicCode) == "" {
		errs = append(errs, "Factura electrónica requiere código de autorización SENIAT")
	}
	if strings.TrimSpace(e.Counterparty.Name) == "" {
		errs = append(errs, "Falta nombre del contribuyente")
	}
	return newValidationResult(errs)
}

// ValidateBook checks the integrity of a monthly book. Every message is
// prefixed with the invoice it refers to.
func ValidateBook(entries []*BookEntry) ValidationResult {
	var errs []string
	for _, e := range entries {
		prefix := "Factura " + e.InvoiceNumber + ": "
		if !rifPattern.MatchString(e.Counterparty.RIF) {
			errs = append(errs, fmt.Sprintf("%sRIF %s tiene formato inválido", prefix, e.Counterparty.RIF))
		}
		if strings.TrimSpace(e.InvoiceControlNumber) == "" {
			errs = append(errs, prefix+"Falta número de control")
		}
		tolerance := valueobject.ManualTolerance
		if e.IsForeignCurrency || e.BillingDocumentID != nil {
			tolerance = valueobject.ConversionTolerance
		}
		expectedIVA := valueobject.Percent(e.BaseAmount, e.IVARate)
		if !valueobject.WithinTolerance(expectedIVA, e.IVAAmount, tolerance) {
			errs = append(errs, fmt.Sprintf("%sIVA calculado (%s) no coincide con IVA registrado (%s)", prefix, expectedIVA.StringFixed(2), e.IVAAmount.StringFixed(2)))
		}
		expectedTotal := ExpectedTotal(e.BaseAmount, e.IVAAmount, e.WithheldIVAAmount)
		if !valueobject.WithinTolerance(expectedTotal, e.TotalAmount, tolerance) {
			errs = append(errs, fmt.Sprintf("%sTotal calculado (%s) no coincide con total registrado (%s)", prefix, expectedTotal.StringFixed(2), e.TotalAmount.StringFixed(2)))
		}
		if e.Book == SalesBook && e.IsElectronic && strings.TrimSpace(e.ElectronicCode) == "" {
			errs = append(errs, prefix+"Es electrónica pero falta código de autorización")
		}
	}
	return newValidationResult(errs)
}
