package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims input and caps it at maxLen characters when maxLen > 0.
// Truncation never splits a multi-byte character.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(input)
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:maxLen]))
}

// NormalizePostalCode upper-cases and collapses inner whitespace so
// "sw1a  1aa" and "SW1A 1AA" hit the same eligibility row.
func NormalizePostalCode(input string) string {
	return SanitizeString(strings.ToUpper(strings.Join(strings.Fields(input), " ")), 16)
}
