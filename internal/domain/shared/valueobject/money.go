package valueobject

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	VES Currency = "VES" // Bolívar, the functional currency of the books
	USD Currency = "USD"
	EUR Currency = "EUR"
)

// FunctionalCurrency is the currency every book entry and journal line is kept in
const FunctionalCurrency = VES

// ParseCurrency normalizes a currency code. Empty and "BS"/"BSF" aliases map to VES.
func ParseCurrency(code string) Currency {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch c {
	case "", "BS", "BSF", "BSS", "BSD":
		return VES
	}
	return Currency(c)
}

// IsFunctional reports whether amounts in c need no conversion
func (c Currency) IsFunctional() bool {
	return c == FunctionalCurrency
}

func (c Currency) String() string { return string(c) }

var (
	hundred = decimal.NewFromInt(100)

	// EntryTolerance bounds the debit/credit difference of a journal entry
	EntryTolerance = decimal.RequireFromString("0.001")
	// ManualTolerance bounds rounding drift on manually entered book rows and templates
	ManualTolerance = decimal.RequireFromString("0.01")
	// ConversionTolerance absorbs rounding drift from currency conversion
	ConversionTolerance = decimal.NewFromInt(2)
)

// Round2 rounds half away from zero to two decimals
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns round2(base * pct / 100)
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(pct).Div(hundred))
}

// WithinTolerance reports whether |a-b| <= tol
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// Convert multiplies an amount in a foreign currency by the exchange rate
// into the functional currency
func Convert(amount, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}
