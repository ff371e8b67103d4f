package datasource

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// MockName identifies the terminal mock tier.
const MockName = "mock"

// MockBatchSize is the number of articles the mock tier synthesizes.
const MockBatchSize = 5

// mockTemplate is one synthesized article: title and description take the
// company name and ticker, in that order.
type mockTemplate struct {
	title       string
	description string
	source      string
	slug        string
}

var mockTemplates = [MockBatchSize]mockTemplate{
	{
		title:       "%s (%s) Shares Rise After Quarterly Earnings Beat Estimates",
		description: "%s reported quarterly revenue and profit ahead of analyst forecasts, sending %s stock higher in early trading.",
		source:      "Reuters",
		slug:        "earnings-beat",
	},
	{
		title:       "Analysts Raise Price Target on %s (%s) Citing Strong Outlook",
		description: "Several analysts lifted their price target on %s, pointing to improving guidance for %s over the coming year.",
		source:      "Bloomberg",
		slug:        "price-target-raised",
	},
	{
		title:       "%s (%s) Expands Share Buyback Program",
		description: "The board of %s approved an expanded repurchase plan, a move investors read as confidence in %s valuation.",
		source:      "CNBC",
		slug:        "buyback-expanded",
	},
	{
		title:       "What %s (%s) Guidance Means for Investors",
		description: "A look at the annual forecast from %s and what it implies for %s shareholders and dividend expectations.",
		source:      "MarketWatch",
		slug:        "guidance-explained",
	},
	{
		title:       "%s (%s) Stock: Is It Still a Buy After the Recent Rally?",
		description: "After a strong run for %s, market watchers weigh whether %s shares still offer value at current prices.",
		source:      "Yahoo Finance",
		slug:        "still-a-buy",
	},
}

// MockSource synthesizes plausible articles without touching the network.
// It never fails: it is the guaranteed terminal tier of the Aggregator.
type MockSource struct {
	companies map[string]string
	now       func() time.Time
}

// MockOption configures a MockSource.
type MockOption func(*MockSource)

// WithMockClock sets the clock used for publishedAt timestamps.
func WithMockClock(now func() time.Time) MockOption {
	return func(m *MockSource) { m.now = now }
}

// NewMockSource creates a mock tier over a ticker → company name table.
func NewMockSource(companies map[string]string, opts ...MockOption) *MockSource {
	m := &MockSource{
		companies: make(map[string]string, len(companies)),
		now:       time.Now,
	}
	for sym, name := range companies {
		m.companies[utils.NormalizeSymbol(sym)] = name
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the provider name.
func (m *MockSource) Name() string { return MockName }

// Configured is always true.
func (m *MockSource) Configured() bool { return true }

// Search returns the mock batch for spec.Query. The error is always nil.
func (m *MockSource) Search(_ context.Context, spec SearchSpec) ([]models.Article, error) {
	return m.Generate(spec.Query), nil
}

// Generate deterministically builds MockBatchSize articles for query. Titles,
// URLs and sources depend only on the query; timestamps step back one whole
// day per article from the current time.
func (m *MockSource) Generate(query string) []models.Article {
	ticker := m.mockTicker(query)
	company, ok := m.companies[ticker]
	if !ok {
		company = ticker + " Corporation"
	}

	now := m.now()
	slugBase := strings.ToLower(ticker)
	articles := make([]models.Article, 0, MockBatchSize)
	for i, tpl := range mockTemplates {
		articles = append(articles, models.Article{
			Title:       fmt.Sprintf(tpl.title, company, ticker),
			Description: fmt.Sprintf(tpl.description, company, ticker),
			URL:         fmt.Sprintf("https://example.com/mock-news/%s/%s", slugBase, tpl.slug),
			SourceName:  tpl.source,
			PublishedAt: now.Add(-time.Duration(i) * utils.Day),
			Provider:    MockName,
		})
	}
	return articles
}

// mockTicker picks the ticker a query is about: the first token naming a
// known ticker, otherwise the first token, otherwise "MARKET".
func (m *MockSource) mockTicker(query string) string {
	var tokens []string
	for _, f := range strings.Fields(query) {
		tok := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToUpper(r)
			}
			return -1
		}, f)
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	for _, tok := range tokens {
		if _, ok := m.companies[tok]; ok {
			return tok
		}
	}
	if len(tokens) > 0 {
		return tokens[0]
	}
	return "MARKET"
}
