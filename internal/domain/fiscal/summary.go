package fiscal

import (
	"github.com/shopspring/decimal"
)

// CounterpartySummary aggregates the book rows of one customer or supplier
type CounterpartySummary struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	RIF           string          `json:"rif"`
	Count         int             `json:"count"`
	TotalBase     decimal.Decimal `json:"total_base"`
	TotalIVA      decimal.Decimal `json:"total_iva"`
	TotalWithheld decimal.Decimal `json:"total_withheld"`
	Total         decimal.Decimal `json:"total"`
}

// RateSummary aggregates the book rows of one IVA rate
type RateSummary struct {
	IVARate   decimal.Decimal `json:"iva_rate"`
	Count     int             `json:"count"`
	TotalBase decimal.Decimal `json:"total_base"`
	TotalIVA  decimal.Decimal `json:"total_iva"`
}

// BookSummary is the monthly overview of a book
type BookSummary struct {
	Month              int                   `json:"month"`
	Year               int                   `json:"year"`
	TotalEntries       int                   `json:"total_entries"`
	TotalBaseAmount    decimal.Decimal       `json:"total_base_amount"`
	TotalIVAAmount     decimal.Decimal       `json:"total_iva_amount"`
	TotalWithheldIVA   decimal.Decimal       `json:"total_withheld_iva"`
	TotalAmount        decimal.Decimal       `json:"total_amount"`
	ElectronicInvoices int                   `json:"electronic_invoices"`
	PhysicalInvoices   int                   `json:"physical_invoices"`
	ByCounterparty     []CounterpartySummary `json:"by_counterparty"`
	ByIVARate          []RateSummary         `json:"by_iva_rate"`
}

// SummarizeBook aggregates rows in the order they are given
func SummarizeBook(month, year int, entries []*BookEntry) BookSummary {
	s := BookSummary{Month: month, Year: year, TotalEntries: len(entries)}
	parties := map[string]int{}
	rates := map[string]int{}
	for _, e := range entries {
		s.TotalBaseAmount = s.TotalBaseAmount.Add(e.BaseAmount)
		s.TotalIVAAmount = s.TotalIVAAmount.Add(e.IVAAmount)
		s.TotalWithheldIVA = s.TotalWithheldIVA.Add(e.WithheldIVAAmount)
		s.TotalAmount = s.TotalAmount.Add(e.TotalAmount)
		if e.IsElectronic {
			s.ElectronicInvoices++
		} else {
			s.PhysicalInvoices++
		}

		key := e.Counterparty.ID
		if key == "" {
			key = e.Counterparty.RIF
		}
		i, ok := parties[key]
		if !ok {
			i = len(s.ByCounterparty)
			parties[key] = i
			s.ByCounterparty = append(s.ByCounterparty, CounterpartySummary{ID: e.Counterparty.ID, Name: e.Counterparty.Name, RIF: e.Counterparty.RIF})
		}
		p := &s.ByCounterparty[i]
		p.Count++
		p.TotalBase = p.TotalBase.Add(e.BaseAmount)
		p.TotalIVA = p.TotalIVA.Add(e.IVAAmount)
		p.TotalWithheld = p.TotalWithheld.Add(e.WithheldIVAAmount)
		p.Total = p.Total.Add(e.TotalAmount)

		rk := e.IVARate.String()
		j, ok := rates[rk]
		if !ok {
			j = len(s.ByIVARate)
			rates[rk] = j
			s.ByIVARate = append(s.ByIVARate, RateSummary{IVARate: e.IVARate})
		}
		r := &s.ByIVARate[j]
		r.Count++
		r.TotalBase = r.TotalBase.Add(e.BaseAmount)
		r.TotalIVA = r.TotalIVA.Add(e.IVAAmount)
	}
	return s
}

// BeneficiarySummary aggregates withholdings of one beneficiary
type BeneficiarySummary struct {
	RIF           string          `json:"rif"`
	Name          string          `json:"name"`
	Count         int             `json:"count"`
	TotalBase     decimal.Decimal `json:"total_base"`
	TotalWithheld decimal.Decimal `json:"total_withheld"`
}

// OperationSummary aggregates withholdings of one operation type
type OperationSummary struct {
	OperationType string          `json:"operation_type"`
	Count         int             `json:"count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// WithholdingSummary is the monthly overview of posted certificates
type WithholdingSummary struct {
	Tax               TaxKind              `json:"tax"`
	Month             int                  `json:"month"`
	Year              int                  `json:"year"`
	TotalWithholdings int                  `json:"total_withholdings"`
	TotalAmount       decimal.Decimal      `json:"total_amount"`
	ByBeneficiary     []BeneficiarySummary `json:"by_beneficiary"`
	ByOperationType   []OperationSummary   `json:"by_operation_type"`
}

// SummaryItem is the view of a certificate needed for summaries
type SummaryItem struct {
	Core          *Withholding
	OperationType string
}

// SummarizeWithholdings aggregates posted certificates, skipping any other status
func SummarizeWithholdings(tax TaxKind, month, year int, items []SummaryItem) WithholdingSummary {
	s := WithholdingSummary{Tax: tax, Month: month, Year: year}
	parties := map[string]int{}
	ops := map[string]int{}
	for _, it := range items {
		w := it.Core
		if w.Status != WithholdingStatusPosted {
			continue
		}
		s.TotalWithholdings++
		s.TotalAmount = s.TotalAmount.Add(w.WithholdingAmount)

		i, ok := parties[w.Beneficiary.RIF]
		if !ok {
			i = len(s.ByBeneficiary)
			parties[w.Beneficiary.RIF] = i
			s.ByBeneficiary = append(s.ByBeneficiary, BeneficiarySummary{RIF: w.Beneficiary.RIF, Name: w.Beneficiary.Name})
		}
		b := &s.ByBeneficiary[i]
		b.Count++
		b.TotalBase = b.TotalBase.Add(w.BaseAmount)
		b.TotalWithheld = b.TotalWithheld.Add(w.WithholdingAmount)

		j, ok := ops[it.OperationType]
		if !ok {
			j = len(s.ByOperationType)
			ops[it.OperationType] = j
			s.ByOperationType = append(s.ByOperationType, OperationSummary{OperationType: it.OperationType})
		}
		o := &s.ByOperationType[j]
		o.Count++
		o.TotalAmount = o.TotalAmount.Add(w.WithholdingAmount)
	}
	return s
}

// IVASummaryItems adapts IVA certificates for SummarizeWithholdings
func IVASummaryItems(records []*IVAWithholding) []SummaryItem {
	items := make([]SummaryItem, len(records))
	for i, w := range records {
		items[i] = SummaryItem{Core: &w.Withholding, OperationType: w.OperationType.String()}
	}
	return items
}

// ISLRSummaryItems adapts ISLR certificates for SummarizeWithholdings
func ISLRSummaryItems(records []*ISLRWithholding) []SummaryItem {
	items := make([]SummaryItem, len(records))
	for i, w := range records {
		items[i] = SummaryItem{Core: &w.Withholding, OperationType: w.OperationType.String()}
	}
	return items
}
