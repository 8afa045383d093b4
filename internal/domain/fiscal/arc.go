package fiscal

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	arcDateFormat      = "02/01/2006"
	arcTimestampFormat = "02/01/2006 15:04:05"
)

var (
	islrARCColumns = []string{
		"RIF_BENEFICIARIO", "NOMBRE_BENEFICIARIO", "CONCEPTO", "TIPO_OPERACION", "BASE_IMPONIBLE",
		"PORCENTAJE", "MONTO_RETENIDO", "FECHA_RETENCION", "NRO_CERTIFICADO", "NRO_DOCUMENTO",
	}
	ivaARCColumns = []string{
		"FECHA", "RIF_PROVEEDOR", "NOMBRE_PROVEEDOR", "NRO_FACTURA", "NRO_CONTROL",
		"NRO_COMPROBANTE", "BASE_IMPONIBLE", "MONTO_IVA", "IVA_RETENIDO", "TIPO_OPERACION",
	}
)

func arcHeader(b *strings.Builder, tax TaxKind, month, year int, generatedAt time.Time, count int, total decimal.Decimal, columns []string) {
	fmt.Fprintf(b, "RETENCIONES %s - PERÍODO %02d/%d\n", tax, month, year)
	fmt.Fprintf(b, "FECHA GENERACIÓN: %s\n", generatedAt.Format(arcTimestampFormat))
	fmt.Fprintf(b, "TOTAL RETENCIONES: %d | MONTO TOTAL: %s\n\n", count, total.StringFixed(2))
	b.WriteString(strings.Join(columns, "\t"))
	b.WriteByte('\n')
}

// RenderISLRARC renders the ISLR withholding declaration file
func RenderISLRARC(records []*ISLRWithholding, month, year int, generatedAt time.Time) string {
	total := decimal.Zero
	for _, w := range records {
		total = total.Add(w.WithholdingAmount)
	}

	var b strings.Builder
	arcHeader(&b, TaxISLR, month, year, generatedAt, len(records), total, islrARCColumns)
	for _, w := range records {
		row := []string{
			StripRIF(w.Beneficiary.RIF),
			SanitizeField(w.Beneficiary.Name, 100),
			SanitizeField(w.Concept.Code, 0),
			w.OperationType.Code(),
			w.BaseAmount.StringFixed(2),
			w.Percentage.StringFixed(2),
			w.WithholdingAmount.StringFixed(2),
			w.RetentionDate.Format(arcDateFormat),
			w.CertificateNumber,
			SanitizeField(w.Document.InvoiceNumber, 0),
		}
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderIVAARC renders the IVA withholding declaration file
func RenderIVAARC(records []*IVAWithholding, month, year int, generatedAt time.Time) string {
	total := decimal.Zero
	for _, w := range records {
		total = total.Add(w.WithholdingAmount)
	}

	var b strings.Builder
	arcHeader(&b, TaxIVA, month, year, generatedAt, len(records), total, ivaARCColumns)
	for _, w := range records {
		row := []string{
			w.RetentionDate.Format(arcDateFormat),
			StripRIF(w.Beneficiary.RIF),
			SanitizeField(w.Beneficiary.Name, 50),
			SanitizeField(w.Document.InvoiceNumber, 0),
			SanitizeField(w.Document.ControlNumber, 0),
			w.CertificateNumber,
			w.BaseAmount.StringFixed(2),
			w.IVAAmount.StringFixed(2),
			w.WithholdingAmount.StringFixed(2),
			w.OperationType.Code(),
		}
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}
