package fiscal

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeclarationStatus is the lifecycle state of a monthly IVA declaration
type DeclarationStatus string

const (
	DeclarationDraft      DeclarationStatus = "draft"
	DeclarationCalculated DeclarationStatus = "calculated"
	DeclarationFiled      DeclarationStatus = "filed"
	DeclarationPaid       DeclarationStatus = "paid"
)

// IsValid checks if the status is known
func (s DeclarationStatus) IsValid() bool {
	switch s {
	case DeclarationDraft, DeclarationCalculated, DeclarationFiled, DeclarationPaid:
		return true
	}
	return false
}

// IsSubmitted reports whether the declaration already reached SENIAT
func (s DeclarationStatus) IsSubmitted() bool {
	return s == DeclarationFiled || s == DeclarationPaid
}

// DeclarationNumberKey is the sequence key of declaration numbers for a month
func DeclarationNumberKey(month, year int) string {
	return fmt.Sprintf("DEC-IVA-%02d%d", month, year)
}

// FormatDeclarationNumber renders DEC-IVA-MMYYYY-{seq6}
func FormatDeclarationNumber(month, year int, seq int64) string {
	return fmt.Sprintf("%s-%06d", DeclarationNumberKey(month, year), seq)
}

// RateBreakdown compares sales and purchases for one IVA rate
type RateBreakdown struct {
	Rate          decimal.Decimal `json:"rate"`
	SalesBase     decimal.Decimal `json:"sales_base"`
	SalesIVA      decimal.Decimal `json:"sales_iva"`
	PurchasesBase decimal.Decimal `json:"purchases_base"`
	PurchasesIVA  decimal.Decimal `json:"purchases_iva"`
}

// IVADeclaration is the monthly IVA return computed from both books
type IVADeclaration struct {
	shared.TenantAggregateRoot
	Month                      int
	Year                       int
	DeclarationNumber          string
	SalesBaseAmount            decimal.Decimal
	SalesIVAAmount             decimal.Decimal
	TotalDebitFiscal           decimal.Decimal
	PurchasesBaseAmount        decimal.Decimal
	PurchasesIVAAmount         decimal.Decimal
	TotalCreditFiscal          decimal.Decimal
	IVAWithheldOnSales         decimal.Decimal
	IVAWithheldOnPurchases     decimal.Decimal
	PreviousCreditBalance      decimal.Decimal
	TotalCreditToApply         decimal.Decimal
	IVAToPay                   decimal.Decimal
	CreditBalance              decimal.Decimal
	RateBreakdown              []RateBreakdown
	TotalSalesTransactions     int
	TotalPurchasesTransactions int
	ElectronicInvoices         int
	PhysicalInvoices           int
	Validated                  bool
	ValidationErrors           []string
	Status                     DeclarationStatus
	FilingDate                 *time.Time
	FiledBy                    *uuid.UUID
	XMLContent                 string
	PaymentDate                *time.Time
	PaymentReference           string
	AmountPaid                 decimal.Decimal
	Notes                      string
}

// DeclarationInputs are the monthly figures a declaration is computed from
type DeclarationInputs struct {
	Sales                 BookSummary
	Purchases             BookSummary
	SalesValidation       ValidationResult
	PurchasesValidation   ValidationResult
	PreviousCreditBalance decimal.Decimal
}

// NewIVADeclaration creates an empty draft for month/year
func NewIVADeclaration(tenantID uuid.UUID, actor shared.Actor, month, year int, number string) (*IVADeclaration, error) {
	if err := ValidateMonth(month, year); err != nil {
		return nil, err
	}
	return &IVADeclaration{
		TenantAggregateRoot: shared.NewTenantAggregateRootForActor(tenantID, actor),
		Month:               month,
		Year:                year,
		DeclarationNumber:   number,
		Status:              DeclarationDraft,
	}, nil
}

// Calculate fills the declaration from the books. Debit fiscal is the sales
// IVA; credits are purchase IVA plus IVA withheld by customers plus the
// carried balance.
func (d *IVADeclaration) Calculate(in DeclarationInputs) error {
	if d.Status.IsSubmitted() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Declaration for %02d/%d is already %s", d.Month, d.Year, d.Status))
	}
	if in.PreviousCreditBalance.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Previous credit balance cannot be negative")
	}
	d.SalesBaseAmount = in.Sales.TotalBaseAmount
	d.SalesIVAAmount = in.Sales.TotalIVAAmount
	d.TotalDebitFiscal = in.Sales.TotalIVAAmount
	d.PurchasesBaseAmount = in.Purchases.TotalBaseAmount
	d.PurchasesIVAAmount = in.Purchases.TotalIVAAmount
	d.TotalCreditFiscal = in.Purchases.TotalIVAAmount
	d.IVAWithheldOnSales = in.Sales.TotalWithheldIVA
	d.IVAWithheldOnPurchases = in.Purchases.TotalWithheldIVA
	d.PreviousCreditBalance = in.PreviousCreditBalance
	d.recalculate()

	d.RateBreakdown = buildRateBreakdown(in.Sales.ByIVARate, in.Purchases.ByIVARate)
	d.TotalSalesTransactions = in.Sales.TotalEntries
	d.TotalPurchasesTransactions = in.Purchases.TotalEntries
	d.ElectronicInvoices = in.Sales.ElectronicInvoices
	d.PhysicalInvoices = in.Sales.PhysicalInvoices

	errs := make([]string, 0, len(in.PurchasesValidation.Errors)+len(in.SalesValidation.Errors))
	for _, e := range in.PurchasesValidation.Errors {
		errs = append(errs, "[Compras] "+e)
	}
	for _, e := range in.SalesValidation.Errors {
		errs = append(errs, "[Ventas] "+e)
	}
	d.ValidationErrors = errs
	d.Validated = len(errs) == 0
	d.Status = DeclarationCalculated
	d.Touch()
	return nil
}

func (d *IVADeclaration) recalculate() {
	d.TotalCreditToApply = d.TotalCreditFiscal.Add(d.IVAWithheldOnSales).Add(d.PreviousCreditBalance)
	net := d.TotalDebitFiscal.Sub(d.TotalCreditToApply)
	d.IVAToPay = decimal.Zero
	d.CreditBalance = decimal.Zero
	if net.IsPositive() {
		d.IVAToPay = net
	} else if net.IsNegative() {
		d.CreditBalance = net.Abs()
	}
}

func buildRateBreakdown(sales, purchases []RateSummary) []RateBreakdown {
	var out []RateBreakdown
	index := map[string]int{}
	row := func(rate decimal.Decimal) *RateBreakdown {
		k := rate.String()
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, RateBreakdown{Rate: rate})
		}
		return &out[i]
	}
	for _, p := range purchases {
		r := row(p.IVARate)
		r.PurchasesBase = r.PurchasesBase.Add(p.TotalBase)
		r.PurchasesIVA = r.PurchasesIVA.Add(p.TotalIVA)
	}
	for _, s := range sales {
		r := row(s.IVARate)
		r.SalesBase = r.SalesBase.Add(s.TotalBase)
		r.SalesIVA = r.SalesIVA.Add(s.TotalIVA)
	}
	return out
}

// File submits the declaration. Unless force is set, it must have passed validation.
func (d *IVADeclaration) File(actor shared.Actor, filingDate time.Time, force bool) error {
	if d.Status.IsSubmitted() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Declaration %s was already filed", d.DeclarationNumber))
	}
	if d.Status != DeclarationCalculated {
		return shared.NewDomainError("INVALID_STATE", "Declaration must be calculated before filing")
	}
	if !force && !d.Validated {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot file: %d validation errors found", len(d.ValidationErrors)))
	}
	if filingDate.IsZero() {
		filingDate = time.Now()
	}
	d.FilingDate = &filingDate
	d.FiledBy = actor.UserIDPtr()
	d.Status = DeclarationFiled
	xmlContent, err := d.RenderXML()
	if err != nil {
		return err
	}
	d.XMLContent = xmlContent
	d.Touch()
	d.AddDomainEvent(NewDeclarationEvent(EventTypeDeclarationFiled, d))
	return nil
}

// RecordPayment settles a filed declaration
func (d *IVADeclaration) RecordPayment(amount decimal.Decimal, date time.Time, reference, notes string) error {
	if d.Status != DeclarationFiled {
		return shared.NewDomainError("INVALID_STATE", "Only filed declarations can be paid")
	}
	if amount.LessThan(d.IVAToPay) {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Amount paid %s is less than the amount due %s", amount.StringFixed(2), d.IVAToPay.StringFixed(2)))
	}
	if strings.TrimSpace(reference) == "" {
		return shared.NewDomainError("REQUIRED_FIELD", "Payment reference is required")
	}
	if date.IsZero() {
		date = time.Now()
	}
	d.PaymentDate = &date
	d.PaymentReference = reference
	d.AmountPaid = amount
	d.Status = DeclarationPaid
	if notes = strings.TrimSpace(notes); notes != "" {
		d.Notes = strings.TrimSpace(d.Notes + "\n[PAGO] " + notes)
	}
	d.Touch()
	d.AddDomainEvent(NewDeclarationEvent(EventTypeDeclarationPaid, d))
	return nil
}

// CheckDeletable rejects deleting submitted declarations
func (d *IVADeclaration) CheckDeletable() error {
	if d.Status.IsSubmitted() {
		return shared.NewDomainError("INVALID_STATE", "Cannot delete a filed or paid declaration")
	}
	return nil
}

type xmlMoney decimal.Decimal

func (m xmlMoney) MarshalText() ([]byte, error) {
	return []byte(decimal.Decimal(m).StringFixed(2)), nil
}

type declarationXML struct {
	XMLName xml.Name `xml:"DeclaracionIVA"`
	Periodo struct {
		Mes  string `xml:"Mes"`
		Anio int    `xml:"Año"`
	} `xml:"Periodo"`
	NumeroDeclaracion string `xml:"NumeroDeclaracion"`
	DebitoFiscal      struct {
		BaseImponible xmlMoney `xml:"BaseImponible"`
		IVA           xmlMoney `xml:"IVA"`
		Total         xmlMoney `xml:"Total"`
	} `xml:"DebitoFiscal"`
	CreditoFiscal struct {
		BaseImponible xmlMoney `xml:"BaseImponible"`
		IVA           xmlMoney `xml:"IVA"`
		Total         xmlMoney `xml:"Total"`
	} `xml:"CreditoFiscal"`
	Retenciones struct {
		Recibidas   xmlMoney `xml:"RetencionesRecibidas"`
		Practicadas xmlMoney `xml:"RetencionesPracticadas"`
	} `xml:"Retenciones"`
	Calculo struct {
		ExcedenteAnterior   xmlMoney `xml:"ExcedentePeriodoAnterior"`
		TotalCreditoAplicar xmlMoney `xml:"TotalCreditoAplicar"`
		IVAaPagar           xmlMoney `xml:"IVAaPagar"`
		Excedente           xmlMoney `xml:"Excedente"`
	} `xml:"Calculo"`
	Estadisticas struct {
		OperacionesVenta     int `xml:"OperacionesVenta"`
		OperacionesCompra    int `xml:"OperacionesCompra"`
		FacturasElectronicas int `xml:"FacturasElectronicas"`
	} `xml:"Estadisticas"`
	FechaPresentacion string `xml:"FechaPresentacion"`
}

// RenderXML renders the simplified SENIAT XML of the declaration
func (d *IVADeclaration) RenderXML() (string, error) {
	var doc declarationXML
	doc.Periodo.Mes = fmt.Sprintf("%02d", d.Month)
	doc.Periodo.Anio = d.Year
	doc.NumeroDeclaracion = d.DeclarationNumber
	doc.DebitoFiscal.BaseImponible = xmlMoney(d.SalesBaseAmount)
	doc.DebitoFiscal.IVA = xmlMoney(d.SalesIVAAmount)
	doc.DebitoFiscal.Total = xmlMoney(d.TotalDebitFiscal)
	doc.CreditoFiscal.BaseImponible = xmlMoney(d.PurchasesBaseAmount)
	doc.CreditoFiscal.IVA = xmlMoney(d.PurchasesIVAAmount)
	doc.CreditoFiscal.Total = xmlMoney(d.TotalCreditFiscal)
	doc.Retenciones.Recibidas = xmlMoney(d.IVAWithheldOnSales)
	doc.Retenciones.Practicadas = xmlMoney(d.IVAWithheldOnPurchases)
	doc.Calculo.ExcedenteAnterior = xmlMoney(d.PreviousCreditBalance)
	doc.Calculo.TotalCreditoAplicar = xmlMoney(d.TotalCreditToApply)
	doc.Calculo.IVAaPagar = xmlMoney(d.IVAToPay)
	doc.Calculo.Excedente = xmlMoney(d.CreditBalance)
	doc.Estadisticas.OperacionesVenta = d.TotalSalesTransactions
	doc.Estadisticas.OperacionesCompra = d.TotalPurchasesTransactions
	doc.Estadisticas.FacturasElectronicas = d.ElectronicInvoices
	if d.FilingDate != nil {
		doc.FechaPresentacion = d.FilingDate.Format(arcDateFormat)
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to render declaration XML: %w", err)
	}
	return xml.Header + string(out), nil
}
