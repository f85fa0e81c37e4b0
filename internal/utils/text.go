// Package utils holds small text helpers shared by the adapters.
package utils

import (
	"strings"
	"unicode/utf8"
)

// SanitizeUTF8 replaces invalid byte sequences so the result is always
// valid UTF-8, which the detector APIs require.
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	return strings.ToValidUTF8(text, "�")
}

// TruncateUTF8 shortens text to at most maxBytes without splitting a rune.
func TruncateUTF8(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
