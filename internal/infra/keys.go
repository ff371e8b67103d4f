package infra

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/seenimoa/stockpulse/pkg/utils"
)

// Cache key namespaces.
const (
	KindInsight = "insight"
	KindQuery   = "query"
	KindContext = "context"
)

// KeyParams are the request parameters that change a cached result.
type KeyParams struct {
	LookbackDays int
	MaxArticles  int
}

// hashLen is the number of hex characters kept from a digest.
const hashLen = 16

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// Hash returns a stable digest of the parameters.
func (p KeyParams) Hash() string {
	return shortHash(fmt.Sprintf("lookbackDays=%d;maxArticles=%d", p.LookbackDays, p.MaxArticles))
}

// SymbolKey derives the key for a ticker under namespace kind:
// "<kind>:<SYMBOL>:<paramhash>".
func SymbolKey(kind, symbol string, p KeyParams) string {
	return kind + ":" + utils.NormalizeSymbol(symbol) + ":" + p.Hash()
}

// TextKey derives the key for free text under namespace kind:
// "<kind>:<queryhash>:<paramhash>". Case and spacing of the text do not
// change the key.
func TextKey(kind, text string, p KeyParams) string {
	return kind + ":" + shortHash(utils.NormalizeQuery(text)) + ":" + p.Hash()
}

// InsightKey is the key of a generated insight for symbol.
func InsightKey(symbol string, p KeyParams) string {
	return SymbolKey(KindInsight, symbol, p)
}

// QueryKey is the key of a generated insight for a free-text query.
func QueryKey(query string, p KeyParams) string {
	return TextKey(KindQuery, query, p)
}
