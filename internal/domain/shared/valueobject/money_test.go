package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name string
		base string
		pct  string
		want string
	}{
		{"three percent of ten thousand", "10000", "3", "300"},
		{"seventy five percent of iva", "160", "75", "120"},
		{"rounds half up", "33.33", "1.5", "0.5"},
		{"zero base", "0", "16", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(decimal.RequireFromString(tt.base), decimal.RequireFromString(tt.pct))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParseCurrency(t *testing.T) {
	assert.Equal(t, VES, ParseCurrency(""))
	assert.Equal(t, VES, ParseCurrency("bs"))
	assert.Equal(t, USD, ParseCurrency(" usd "))
	assert.True(t, ParseCurrency("VES").IsFunctional())
	assert.False(t, USD.IsFunctional())
}

func TestWithinTolerance(t *testing.T) {
	a := decimal.RequireFromString("100.000")
	assert.True(t, WithinTolerance(a, decimal.RequireFromString("100.001"), EntryTolerance))
	assert.False(t, WithinTolerance(a, decimal.RequireFromString("100.002"), EntryTolerance))
	assert.True(t, WithinTolerance(a, decimal.RequireFromString("102"), ConversionTolerance))
}

func TestConvert(t *testing.T) {
	got := Convert(decimal.RequireFromString("10.5"), decimal.RequireFromString("36.4521"))
	assert.Equal(t, "382.75", got.StringFixed(2))
}
