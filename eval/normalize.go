package eval

import (
	"strings"
	"unicode"
)

// normalizeLLMText maps Unicode characters commonly inserted by LLMs to
// their ASCII forms so pattern matching works reliably. Handles:
//   - Unicode whitespace → ASCII space (U+202F, U+00A0, etc.)
//   - Unicode hyphens → ASCII hyphen (U+2010 through U+2014)
//   - Unicode slashes → ASCII slash (U+2044, U+2215)
//   - Strips zero-width characters (U+200B, U+200C, U+200D, U+FEFF)
//
// Newlines are kept so line-anchored patterns still apply.
func normalizeLLMText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteByte('\n')
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r >= '\u2010' && r <= '\u2014':
			b.WriteByte('-')
		case r == '\u2044' || r == '\u2215':
			b.WriteByte('/')
		case r == '\u200B' || r == '\u200C' || r == '\u200D' || r == '\uFEFF':
			// strip zero-width characters
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
