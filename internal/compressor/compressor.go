// Package compressor renders a prioritized article list into one
// size-bounded block of text for the analysis model.
//
// Articles are included greedily in priority order. The first article that
// does not fit ends inclusion; later, smaller articles are not tried.
package compressor

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// TokensPerChar is the fixed ratio used to estimate tokens from characters.
const TokensPerChar = 0.25

// Rendering limits, in characters.
const (
	MaxTitleLen       = 100
	MaxDescriptionLen = 150
)

// EmptyContextText is returned when there is nothing to compress.
const EmptyContextText = "No recent news articles found."

// Unit is the measure a Budget is expressed in.
type Unit int

const (
	UnitTokens Unit = iota
	UnitChars
)

// String returns the config name of u.
func (u Unit) String() string {
	if u == UnitChars {
		return "chars"
	}
	return "tokens"
}

// ParseUnit parses "tokens" or "chars". Anything else is tokens.
func ParseUnit(s string) Unit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "chars", "characters", "char":
		return UnitChars
	default:
		return UnitTokens
	}
}

// Budget bounds the size of a compressed context.
type Budget struct {
	Limit int
	Unit  Unit
}

// DefaultBudget is used when a Budget has no positive limit.
var DefaultBudget = Budget{Limit: 2000, Unit: UnitTokens}

// Tokens returns a token budget of n.
func Tokens(n int) Budget { return Budget{Limit: n, Unit: UnitTokens} }

// Chars returns a character budget of n.
func Chars(n int) Budget { return Budget{Limit: n, Unit: UnitChars} }

// CharLimit converts the budget into characters. A token budget of B allows
// B / TokensPerChar characters, so any text within it estimates to at most B
// tokens.
func (b Budget) CharLimit() int {
	if b.Limit <= 0 {
		b = DefaultBudget
	}
	if b.Unit == UnitChars {
		return b.Limit
	}
	return int(float64(b.Limit) / TokensPerChar)
}

// Size measures text in the budget's unit.
func (b Budget) Size(text string) int {
	if b.Unit == UnitChars {
		return utf8.RuneCountInString(text)
	}
	return EstimateTokens(text)
}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) * TokensPerChar))
}

// Compressor renders article lists. The zero value is not usable; use New.
type Compressor struct {
	now func() time.Time
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithClock sets the clock used for relative date labels.
func WithClock(now func() time.Time) Option {
	return func(c *Compressor) { c.now = now }
}

// New creates a Compressor.
func New(opts ...Option) *Compressor {
	c := &Compressor{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompressArticles orders articles (those mentioning target first, then
// newest first) and compresses them.
func (c *Compressor) CompressArticles(articles []models.Article, target string, budget Budget) models.CompressedContext {
	return c.compress(Prioritize(articles, target), target, budget)
}

// CompressScored compresses scored articles in the order given.
func (c *Compressor) CompressScored(scored []models.ScoredArticle, target string, budget Budget) models.CompressedContext {
	articles := make([]models.Article, len(scored))
	for i, sa := range scored {
		articles[i] = sa.Article
	}
	return c.compress(articles, target, budget)
}

func (c *Compressor) compress(articles []models.Article, target string, budget Budget) models.CompressedContext {
	if len(articles) == 0 {
		return models.CompressedContext{SummaryText: EmptyContextText}
	}

	limit := budget.CharLimit()
	now := c.now()
	h := header(target)

	lines := make([]string, len(articles))
	for i, a := range articles {
		lines[i] = renderArticle(a, now)
	}

	if full := assemble(h, lines, 0); runeLen(full) <= limit {
		return models.CompressedContext{SummaryText: full, ArticleCount: len(lines)}
	}

	// Something must be left out, so every prefix is measured with the
	// footer it would need.
	used := runeLen(h)
	n := 0
	for i, line := range lines {
		cost := 1 + runeLen(line)
		if used+cost+1+runeLen(footer(len(lines)-(i+1))) > limit {
			break
		}
		used += cost
		n++
	}

	if n == 0 {
		// Not even one article fits: the sentinel if it fits, else nothing.
		text := EmptyContextText
		if runeLen(text) > limit {
			text = ""
		}
		return models.CompressedContext{SummaryText: text, Truncated: true}
	}
	return models.CompressedContext{
		SummaryText:  assemble(h, lines[:n], len(lines)-n),
		ArticleCount: n,
		Truncated:    true,
	}
}

// Prioritize returns a copy of articles with those mentioning target (in the
// title or description) first, each group newest first. An empty target
// only sorts by recency.
func Prioritize(articles []models.Article, target string) []models.Article {
	out := append([]models.Article(nil), articles...)
	t := strings.ToLower(strings.TrimSpace(target))
	mentions := func(a models.Article) bool {
		return t != "" && (strings.Contains(strings.ToLower(a.Title), t) ||
			strings.Contains(strings.ToLower(a.Description), t))
	}
	sort.SliceStable(out, func(i, j int) bool {
		mi, mj := mentions(out[i]), mentions(out[j])
		if mi != mj {
			return mi
		}
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

func header(target string) string {
	if target = strings.TrimSpace(target); target != "" {
		return fmt.Sprintf("Recent news about %s:", target)
	}
	return "Recent news articles:"
}

func footer(remaining int) string {
	if remaining == 1 {
		return "(1 more article not shown)"
	}
	return fmt.Sprintf("(%d more articles not shown)", remaining)
}

func assemble(h string, lines []string, remaining int) string {
	var b strings.Builder
	b.WriteString(h)
	for _, l := range lines {
		b.WriteByte('\n')
		b.WriteString(l)
	}
	if remaining > 0 {
		b.WriteByte('\n')
		b.WriteString(footer(remaining))
	}
	return b.String()
}

// renderArticle renders one article as a header line plus, when there is a
// description, an indented summary line.
func renderArticle(a models.Article, now time.Time) string {
	line := fmt.Sprintf("- %s (%s, %s)",
		truncate(a.Title, MaxTitleLen), a.SourceName, utils.RelativeDateLabel(a.PublishedAt, now))
	if desc := strings.TrimSpace(a.Description); desc != "" {
		line += "\n  " + truncate(desc, MaxDescriptionLen)
	}
	return line
}

// truncate cuts s to at most max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max-3])) + "..."
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
