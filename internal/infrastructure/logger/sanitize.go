package logger

import (
	"fmt"
	"strings"
)

// SanitizeForLog escapes control characters in server-provided strings
// before they reach a log line or the terminal. Newlines would forge log
// entries and ANSI escapes would drive the terminal, so both are rendered
// as literal escapes; printable Unicode passes through untouched.
func SanitizeForLog(s string) string {
	if !strings.ContainsFunc(s, isUnsafeRune) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		if !isUnsafeRune(r) {
			b.WriteRune(r)
			continue
		}
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			fmt.Fprintf(&b, `\x%02x`, r)
		}
	}
	return b.String()
}

func isUnsafeRune(r rune) bool {
	return r < 32 || r == 127
}
