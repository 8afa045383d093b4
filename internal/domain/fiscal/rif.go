package fiscal

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// RIF person types. V: Venezuelan national, E: foreigner, J: legal entity,
// P: passport, G: government.
const (
	PersonTypeNatural    = 'V'
	PersonTypeForeign    = 'E'
	PersonTypeLegal      = 'J'
	PersonTypePassport   = 'P'
	PersonTypeGovernment = 'G'
)

// DefaultCustomerRIF is used when a billing document carries no tax id
const DefaultCustomerRIF = "J-00000000-0"

var (
	rifPattern      = regexp.MustCompile(`^[VEJPG]-\d{8,9}-\d$`)
	foreignPattern  = regexp.MustCompile(`^E-\d{9}-\d$`)
	standardPattern = regexp.MustCompile(`^[VJGP]-\d{8}-\d$`)

	rifTypeWeight = map[byte]int{'V': 1, 'E': 2, 'J': 3, 'P': 4, 'G': 5}
	rifWeights    = []int{4, 3, 2, 7, 6, 5, 4, 3, 2}
)

// CleanRIF removes whitespace and upper-cases a RIF
func CleanRIF(rif string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, rif))
}

// RIFCheckDigit computes the modulo-11 check digit for a person type and number
func RIFCheckDigit(personType byte, number string) int {
	sum := rifTypeWeight[personType] * 4
	for i := 0; i < len(number) && i < len(rifWeights); i++ {
		sum += int(number[i]-'0') * rifWeights[i]
	}
	digit := 11 - sum%11
	if digit >= 10 {
		return 0
	}
	return digit
}

// ValidateRIF checks the format [VEJPG]-########-# and the modulo-11 check digit
func ValidateRIF(rif string) bool {
	clean := CleanRIF(rif)
	if !rifPattern.MatchString(clean) {
		return false
	}
	parts := strings.Split(clean, "-")
	return RIFCheckDigit(parts[0][0], parts[1]) == int(parts[2][0]-'0')
}

// IsSENIATFormat checks the layout accepted in book exports: foreigners may
// carry nine digits, every other type exactly eight. The check digit is not verified.
func IsSENIATFormat(rif string) bool {
	clean := strings.ToUpper(strings.TrimSpace(rif))
	return foreignPattern.MatchString(clean) || standardPattern.MatchString(clean)
}

// StripRIF removes dashes for export files
func StripRIF(rif string) string {
	return strings.ReplaceAll(CleanRIF(rif), "-", "")
}

// NormalizeRIF rewrites a counterparty tax id into the X-########-# layout.
// Non-standard prefixes ("RIF:", "CI", "NRO") are dropped, bare numbers get
// defaultType, and a missing check digit is computed. changed reports whether
// the output differs from the input; ok is false when no usable id remains.
func NormalizeRIF(raw string, defaultType byte) (normalized string, changed bool, ok bool) {
	clean := CleanRIF(raw)
	if clean == "" {
		return "", false, false
	}
	if rifPattern.MatchString(clean) {
		return clean, clean != raw, true
	}

	var personType byte
	var digits strings.Builder
	for i := 0; i < len(clean); i++ {
		c := clean[i]
		switch {
		case c >= '0' && c <= '9':
			digits.WriteByte(c)
		case personType == 0 && digits.Len() == 0 && rifTypeWeight[c] != 0 && nextIsSeparatorOrDigit(clean, i):
			personType = c
		}
	}
	if personType == 0 {
		personType = defaultType
	}
	d := digits.String()
	if d == "" || len(d) > 10 {
		return clean, false, false
	}

	var number string
	var check int
	switch {
	case len(d) == 10:
		number, check = d[:9], int(d[9]-'0')
	case len(d) == 9 && personType != PersonTypeForeign:
		number, check = d[:8], int(d[8]-'0')
	default:
		number = strings.Repeat("0", max(0, 8-len(d))) + d
		check = RIFCheckDigit(personType, number)
	}
	out := fmt.Sprintf("%c-%s-%d", personType, number, check)
	return out, out != raw, true
}

// nextIsSeparatorOrDigit accepts a type letter only when followed by a digit or separator,
// so words like "RIF" or "CI" are not mistaken for a person type.
func nextIsSeparatorOrDigit(s string, i int) bool {
	if i+1 >= len(s) {
		return false
	}
	n := s[i+1]
	return n == '-' || n == '.' || n == ':' || (n >= '0' && n <= '9')
}
