package utils

import (
	"strings"
	"unicode"
)

// MaxTickerLen is the longest symbol treated as a ticker.
const MaxTickerLen = 5

// NormalizeSymbol trims, upper-cases and strips a leading "$" (common in chat).
func NormalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))
	return strings.TrimPrefix(symbol, "$")
}

// IsTickerLike reports whether input reads as a bare ticker ("aapl", "$NVDA")
// rather than free text.
func IsTickerLike(input string) bool {
	s := NormalizeSymbol(input)
	if s == "" || len(s) > MaxTickerLen {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// NormalizeQuery lower-cases free text and collapses internal whitespace.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
