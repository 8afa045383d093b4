package fiscal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRIF(t *testing.T) {
	tests := []struct {
		rif   string
		valid bool
	}{
		{"J-12345678-8", true},
		{"V-12345678-5", true},
		{"j-30123456-5", true},
		{" G-20000001-2 ", true},
		{"E-123456789-5", true},
		{"J-00000000-0", true},
		{"J-12345678-9", false},
		{"X-12345678-8", false},
		{"J12345678-8", false},
		{"J-1234567-8", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.rif, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateRIF(tt.rif))
		})
	}
}

func TestIsSENIATFormat(t *testing.T) {
	assert.True(t, IsSENIATFormat("J-12345678-9"), "check digit is not verified")
	assert.True(t, IsSENIATFormat("E-123456789-1"))
	assert.False(t, IsSENIATFormat("V-123456789-1"), "only foreigners carry nine digits")
	assert.False(t, IsSENIATFormat("J-1234567-1"))
}

func TestStripRIF(t *testing.T) {
	assert.Equal(t, "J123456788", StripRIF("j-12345678-8"))
}

func TestNormalizeRIF(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		changed bool
		ok      bool
	}{
		{"already normalized", "J-12345678-8", "J-12345678-8", false, true},
		{"lower case", "j-12345678-8", "J-12345678-8", true, true},
		{"prefixed label", "RIF:J-12345678-8", "J-12345678-8", true, true},
		{"dotted", "J.12.345.678-8", "J-12345678-8", true, true},
		{"bare number gets default type and check digit", "12345678", "V-12345678-5", true, true},
		{"short number is zero padded", "123456", "V-00123456-3", true, true},
		{"cedula label", "CI V12345678", "V-12345678-5", true, true},
		{"foreigner without check digit", "E84512345", "E-84512345-5", true, true},
		{"no digits", "sin rif", "SINRIF", false, false},
		{"empty", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, ok := NormalizeRIF(tt.raw, PersonTypeNatural)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.changed, changed)
			}
		})
	}
}

func TestSanitizeField(t *testing.T) {
	assert.Equal(t, "Inversiones \u00d1and\u00fa", SanitizeField("Inversiones N\u0303andu\u0301", 0), "decomposed accents are composed")
	assert.Equal(t, "ABCD", SanitizeField("AB\tCD\n", 0))
	assert.Equal(t, "Pan", SanitizeField("Panadería", 3))
	assert.Equal(t, "Mañ", SanitizeField("Mañana", 3), "truncation counts runes")
}
