package datasource

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockpulse/internal/metrics"
	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// Outcome tags the result of one tier attempt.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeEmpty   Outcome = "empty"
	OutcomeError   Outcome = "error"
	OutcomeSkipped Outcome = "skipped"
)

// Attempt records what one tier did during a search.
type Attempt struct {
	Provider string
	Outcome  Outcome
	Count    int
	Err      error
}

// SearchResult is the output of one fallback-chain run. Provider names the
// tier that served the articles.
type SearchResult struct {
	Articles []models.Article
	Provider string
	Attempts []Attempt
}

// Mock reports whether the result came from the synthetic tier.
func (r SearchResult) Mock() bool { return r.Provider == MockName }

// Aggregator runs a search through providers in priority order and falls back
// to the next tier on failure or an empty result. The mock source is always
// the last tier, so Search never fails.
type Aggregator struct {
	providers []Provider
	mock      *MockSource
	logger    *slog.Logger
}

// NewAggregator creates an aggregator over providers, tried in the given
// order. A nil mock gets an empty company table; a nil logger uses
// slog.Default().
func NewAggregator(providers []Provider, mock *MockSource, logger *slog.Logger) *Aggregator {
	if mock == nil {
		mock = NewMockSource(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		providers: providers,
		mock:      mock,
		logger:    logger,
	}
}

// Providers returns the network tiers in priority order.
func (a *Aggregator) Providers() []Provider {
	out := make([]Provider, len(a.providers))
	copy(out, a.providers)
	return out
}

// attempt runs one tier and tags its result.
func attempt(ctx context.Context, p Provider, spec SearchSpec) ([]models.Article, Attempt) {
	at := Attempt{Provider: p.Name()}
	if !p.Configured() {
		at.Outcome = OutcomeSkipped
		at.Err = providerErr(p.Name(), ErrProviderNotConfigured)
		return nil, at
	}

	articles, err := p.Search(ctx, spec)
	switch {
	case err != nil:
		at.Outcome = OutcomeError
		at.Err = err
		return nil, at
	case len(articles) == 0:
		at.Outcome = OutcomeEmpty
		at.Err = providerErr(p.Name(), ErrEmptyResult)
		return nil, at
	}
	at.Outcome = OutcomeOK
	at.Count = len(articles)
	return articles, at
}

// Search returns the first non-empty tier's articles. It is total: when
// every provider fails, is skipped or comes back empty, the mock batch is
// returned.
func (a *Aggregator) Search(ctx context.Context, spec SearchSpec) SearchResult {
	var res SearchResult
	for _, p := range a.providers {
		articles, at := attempt(ctx, p, spec)
		res.Attempts = append(res.Attempts, at)
		metrics.RecordProviderAttempt(at.Provider, string(at.Outcome))

		if at.Outcome == OutcomeOK {
			a.logger.Debug("news tier served",
				"provider", at.Provider, "query", spec.Query, "count", at.Count)
			res.Articles = articles
			res.Provider = at.Provider
			metrics.RecordTierServed(at.Provider)
			return res
		}
		if at.Outcome == OutcomeSkipped {
			a.logger.Debug("news tier skipped", "provider", at.Provider, "query", spec.Query)
			continue
		}
		a.logger.Warn("news tier failed",
			"provider", at.Provider, "query", spec.Query, "error", at.Err)
	}

	articles, _ := a.mock.Search(ctx, spec)
	res.Attempts = append(res.Attempts, Attempt{Provider: MockName, Outcome: OutcomeOK, Count: len(articles)})
	metrics.RecordProviderAttempt(MockName, string(OutcomeOK))
	metrics.RecordTierServed(MockName)
	a.logger.Debug("news tier served", "provider", MockName, "query", spec.Query, "count", len(articles))

	res.Articles = articles
	res.Provider = MockName
	return res
}

// StockQueryVariants returns the fixed, ordered query variants searched for
// a symbol. The order decides which copy of a duplicate URL survives.
func StockQueryVariants(symbol string) []string {
	return []string{
		symbol,
		symbol + " stock",
		symbol + " earnings",
		symbol + " financial",
	}
}

// SearchStockNews searches every query variant of symbol concurrently, each
// through the full fallback chain, and returns the deduplicated union in
// variant order. It fails only on an empty symbol.
func (a *Aggregator) SearchStockNews(ctx context.Context, symbol string, spec SearchSpec) ([]models.Article, error) {
	sym := utils.NormalizeSymbol(symbol)
	if sym == "" {
		return nil, models.NewValidationError("symbol", "must not be empty")
	}

	variants := StockQueryVariants(sym)
	results := make([][]models.Article, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range variants {
		g.Go(func() error {
			vspec := spec
			vspec.Query = q
			results[i] = a.searchVariant(gctx, vspec)
			return nil
		})
	}
	_ = g.Wait()

	var union []models.Article
	for _, r := range results {
		union = append(union, r...)
	}
	return Deduplicate(union), nil
}

// searchVariant runs one variant; a panic inside a provider costs only that
// variant's articles.
func (a *Aggregator) searchVariant(ctx context.Context, spec SearchSpec) (articles []models.Article) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("news variant failed", "query", spec.Query, "panic", r)
			articles = nil
		}
	}()
	return a.Search(ctx, spec).Articles
}

// Deduplicate drops articles whose URL was already seen, keeping the first
// occurrence and the relative order of the rest.
func Deduplicate(articles []models.Article) []models.Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if _, dup := seen[a.URL]; dup {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}
