package httputil

import (
	"html"
	"strings"
	"unicode"
)

// SanitizeText cleans free-text user input (locations, cancellation
// reasons): trims whitespace, strips control characters, and escapes
// HTML.
func SanitizeText(input string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	return html.EscapeString(cleaned)
}
