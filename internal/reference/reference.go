// Package reference holds the immutable lookup tables used to score and
// extract tickers: symbol profiles, financial vocabulary, credible outlets
// and company names. A Dictionary is built once and then only read, so it is
// safe to share between concurrent requests.
package reference

import (
	"strings"

	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// Dictionary is a read-only set of reference tables.
type Dictionary struct {
	profiles        map[string]models.SymbolProfile
	symbols         []string // declaration order, for deterministic scans
	keywords        []string
	credibleSources []string
}

// Option customizes a Dictionary at construction time.
type Option func(*Dictionary)

// WithKeywords replaces the financial keyword vocabulary.
func WithKeywords(keywords []string) Option {
	return func(d *Dictionary) { d.keywords = lowerAll(keywords) }
}

// WithCredibleSources replaces the credible outlet fragments.
func WithCredibleSources(sources []string) Option {
	return func(d *Dictionary) { d.credibleSources = lowerAll(sources) }
}

// NewDictionary builds a Dictionary from profiles. Symbols are upper-cased;
// a later profile with the same symbol replaces an earlier one.
func NewDictionary(profiles []models.SymbolProfile, opts ...Option) *Dictionary {
	d := &Dictionary{
		profiles:        make(map[string]models.SymbolProfile, len(profiles)),
		keywords:        lowerAll(DefaultKeywords),
		credibleSources: lowerAll(DefaultCredibleSources),
	}
	for _, p := range profiles {
		sym := utils.NormalizeSymbol(p.Symbol)
		if sym == "" {
			continue
		}
		if _, exists := d.profiles[sym]; !exists {
			d.symbols = append(d.symbols, sym)
		}
		p.Symbol = sym
		p.Aliases = append([]string(nil), p.Aliases...)
		d.profiles[sym] = p
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Default returns a Dictionary over the built-in tables.
func Default() *Dictionary {
	return NewDictionary(DefaultProfiles)
}

// Lookup returns the profile for symbol, if known.
func (d *Dictionary) Lookup(symbol string) (models.SymbolProfile, bool) {
	p, ok := d.profiles[utils.NormalizeSymbol(symbol)]
	if !ok {
		return models.SymbolProfile{}, false
	}
	p.Aliases = append([]string(nil), p.Aliases...)
	return p, true
}

// Profile returns the profile for symbol, synthesizing a degenerate one for
// unknown symbols instead of failing.
func (d *Dictionary) Profile(symbol string) models.SymbolProfile {
	if p, ok := d.Lookup(symbol); ok {
		return p
	}
	return DegenerateProfile(symbol)
}

// CompanyName returns the display name for symbol, or "{SYMBOL} Corporation".
func (d *Dictionary) CompanyName(symbol string) string {
	return d.Profile(symbol).CompanyName
}

// Symbols returns the known symbols in declaration order.
func (d *Dictionary) Symbols() []string {
	return append([]string(nil), d.symbols...)
}

// Keywords returns the lower-cased financial vocabulary.
func (d *Dictionary) Keywords() []string {
	return append([]string(nil), d.keywords...)
}

// CredibleSources returns the lower-cased credible outlet fragments.
func (d *Dictionary) CredibleSources() []string {
	return append([]string(nil), d.credibleSources...)
}

// CompanyNames returns a symbol → company name map.
func (d *Dictionary) CompanyNames() map[string]string {
	out := make(map[string]string, len(d.profiles))
	for sym, p := range d.profiles {
		out[sym] = p.CompanyName
	}
	return out
}

// DegenerateProfile is the profile used for symbols with no reference entry.
func DegenerateProfile(symbol string) models.SymbolProfile {
	sym := utils.NormalizeSymbol(symbol)
	return models.SymbolProfile{
		Symbol:      sym,
		Aliases:     []string{sym, strings.ToLower(sym)},
		CompanyName: sym + " Corporation",
	}
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
