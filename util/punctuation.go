// Package util holds text helpers shared by the commands.
package util

import "unicode"

// IsPunctuation reports whether s consists only of punctuation or symbol
// runes, CJK and full-width forms included. The empty string is not
// punctuation.
func IsPunctuation(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isPunct(r) {
			return false
		}
	}
	return true
}

func isPunct(r rune) bool {
	if unicode.IsPunct(r) || unicode.IsSymbol(r) {
		return true
	}
	// CJK Symbols and Punctuation
	if r >= 0x3000 && r <= 0x303F {
		return true
	}
	// Full-width forms
	return r >= 0xFF00 && r <= 0xFFEF
}
