package fiscal

import (
	"strings"
)

// RenderBookTXT renders the monthly SENIAT TXT of a book, one tab separated row per entry
func RenderBookTXT(book Book, entries []*BookEntry) string {
	var b strings.Builder
	for _, e := range entries {
		row := []string{
			e.OperationDate.Format(arcDateFormat),
			e.TransactionType.ExportCode(),
			StripRIF(e.Counterparty.RIF),
			SanitizeField(e.Counterparty.Name, 50),
			SanitizeField(e.InvoiceNumber, 0),
			SanitizeField(e.InvoiceControlNumber, 0),
			e.BaseAmount.StringFixed(2),
			e.IVARate.StringFixed(2),
			e.IVAAmount.StringFixed(2),
			e.WithheldIVAAmount.StringFixed(2),
			SanitizeField(e.WithholdingCertificate, 0),
			e.TotalAmount.StringFixed(2),
		}
		if book == SalesBook {
			flag := "F"
			if e.IsElectronic {
				flag = "E"
			}
			row = append(row, flag, SanitizeField(e.ElectronicCode, 0))
		}
		b.WriteString(strings.Join(row, "\t"))
		b.WriteByte('\n')
	}
	return b.String()
}
