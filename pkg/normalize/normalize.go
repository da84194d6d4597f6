// Package normalize provides the number normalization used for tenant lookups.
package normalize

import (
	"strings"
	"unicode"
)

// Phone strips the leading run of non-digit characters from a raw number, so
// "+15550100" and "whatsapp:+15550100" both normalize to "15550100". Interior
// characters are left alone: lookups are exact-match against service numbers
// stored in the same normalized form. Sends always use the raw number.
func Phone(raw string) string {
	return strings.TrimLeftFunc(raw, func(r rune) bool {
		return !unicode.IsDigit(r)
	})
}

// Digits keeps only digit characters. Used when storing service numbers so
// the lookup key is canonical regardless of how the admin formatted it.
func Digits(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
