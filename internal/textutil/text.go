// Package textutil cleans text received from the log service before it is
// written to a terminal.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// SanitizeTerminal removes ANSI escape sequences and control characters
// other than newline and tab. CRLF becomes LF and invalid UTF-8 bytes
// become U+FFFD.
func SanitizeTerminal(s string) string {
	s = SanitizeUTF8(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.ContainsRune(s, '\x1b') || strings.ContainsRune(s, '\u009b') {
		s = ansi.Strip(s)
	}
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// SingleLine sanitizes s and collapses every whitespace run, newlines
// included, into a single space.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(SanitizeTerminal(s)), " ")
}

// SanitizeUTF8 replaces invalid UTF-8 bytes with replacement character.
func SanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune('�')
			i++
		} else {
			sb.WriteRune(r)
			i += size
		}
	}
	return sb.String()
}

// FirstLine returns the first line of a string.
// Useful for extracting clean error messages from multi-line outputs.
// Leading newlines are trimmed before extracting the first line.
func FirstLine(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		return strings.TrimRight(s[:idx], "\r")
	}
	return s
}
