// Package strings normalises user supplied text and route prefixes
package strings

import (
	std "strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean returns s in NFC form with control characters removed and outer space trimmed
// Newlines and tabs survive so capsule messages keep their layout
func Clean(s string) string {
	s = norm.NFC.String(s)
	s = std.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return std.TrimSpace(s)
}

// MustString returns s if it has non whitespace content otherwise panics
// name is used in the panic message so you can tell what was missing
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// MustPrefix normalizes a root path like /capsules
// ensures a single leading slash and no trailing slash; panics on empty input
func MustPrefix(s string) string {
	s = "/" + std.Trim(std.TrimSpace(s), " /")
	if s == "/" {
		panic("root path is required")
	}
	return s
}
