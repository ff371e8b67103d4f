package relevance

import (
	"regexp"
	"strings"

	"github.com/seenimoa/stockpulse/internal/reference"
)

// tickerPattern matches runs of one to five capitals standing alone as a word.
var tickerPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

// Extractor proposes ticker symbols from free text.
//
// Two passes are merged: every known symbol appearing anywhere in the
// upper-cased text, then every standalone capitalized token of 2 to 5
// letters. The second pass also admits unlisted tickers ("UBER") and
// incidental acronyms ("CEO").
type Extractor struct {
	dict *reference.Dictionary
}

// NewExtractor creates an Extractor. A nil dict uses reference.Default().
func NewExtractor(dict *reference.Dictionary) *Extractor {
	if dict == nil {
		dict = reference.Default()
	}
	return &Extractor{dict: dict}
}

// ExtractSymbols returns the candidate symbols in text, unique, in the order
// first found.
func (e *Extractor) ExtractSymbols(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	push := func(sym string) {
		if _, ok := seen[sym]; ok {
			return
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}

	upper := strings.ToUpper(text)
	for _, sym := range e.dict.Symbols() {
		if strings.Contains(upper, sym) {
			push(sym)
		}
	}
	for _, m := range tickerPattern.FindAllString(text, -1) {
		if len(m) >= 2 {
			push(m)
		}
	}
	return out
}
