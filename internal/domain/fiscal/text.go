package fiscal

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// exportCleaner composes accents and removes control characters so a value
// cannot break the tab separated layout. Chains carry state, so each call
// builds its own.
func exportCleaner() transform.Transformer {
	return transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cc)))
}

// SanitizeField prepares a free-text value for a SENIAT export column,
// truncating to max runes when max > 0
func SanitizeField(value string, max int) string {
	out, _, err := transform.String(exportCleaner(), value)
	if err != nil {
		out = value
	}
	out = strings.TrimSpace(out)
	if max > 0 {
		r := []rune(out)
		if len(r) > max {
			out = string(r[:max])
		}
	}
	return out
}
