// Package insight runs the news pipeline end to end: fetch news for a ticker
// or a free-text question, rank it by relevance, compress it into a bounded
// context and, on request, have the generative model turn that context into
// a structured insight. Generated insights are cached per target and
// parameters.
package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/stockpulse/internal/analysis/relevance"
	"github.com/seenimoa/stockpulse/internal/analysis/sentiment"
	"github.com/seenimoa/stockpulse/internal/compressor"
	"github.com/seenimoa/stockpulse/internal/datasource"
	"github.com/seenimoa/stockpulse/internal/infra"
	"github.com/seenimoa/stockpulse/internal/llm"
	"github.com/seenimoa/stockpulse/internal/metrics"
	"github.com/seenimoa/stockpulse/internal/reference"
	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// Defaults applied to zero-valued Params.
const (
	DefaultLookbackDays = 7
	DefaultMaxArticles  = 10
)

// MaxQuerySymbols bounds how many extracted symbols a free-text query fans
// out to.
const MaxQuerySymbols = 3

// ErrAnalysisFailed wraps any failure of the generative model. There is no
// fallback insight.
var ErrAnalysisFailed = errors.New("insight: analysis failed")

// Params are the per-request knobs. Zero means default; negative is invalid.
type Params struct {
	LookbackDays int `json:"lookbackDays"`
	MaxArticles  int `json:"maxArticles"`
}

// Validate rejects negative values.
func (p Params) Validate() error {
	if p.LookbackDays < 0 {
		return models.NewValidationError("lookbackDays", "must not be negative")
	}
	if p.MaxArticles < 0 {
		return models.NewValidationError("maxArticles", "must not be negative")
	}
	return nil
}

// WithDefaults fills zero fields.
func (p Params) WithDefaults() Params {
	if p.LookbackDays == 0 {
		p.LookbackDays = DefaultLookbackDays
	}
	if p.MaxArticles == 0 {
		p.MaxArticles = DefaultMaxArticles
	}
	return p
}

func (p Params) keyParams() infra.KeyParams {
	return infra.KeyParams{LookbackDays: p.LookbackDays, MaxArticles: p.MaxArticles}
}

// ContextResult is a compressed news context plus the articles behind it.
type ContextResult struct {
	Target    string                   `json:"target"`
	Symbols   []string                 `json:"symbols"`
	Context   models.CompressedContext `json:"context"`
	Tokens    int                      `json:"tokens"`
	Articles  []models.ScoredArticle   `json:"articles"`
	Citations []models.Citation        `json:"citations"`
	Tone      sentiment.Tone           `json:"tone"`
}

// Result is a generated insight with its supporting context.
type Result struct {
	Target      string                   `json:"target"`
	Symbols     []string                 `json:"symbols"`
	Insight     models.Insight           `json:"insight"`
	Citations   []models.Citation        `json:"citations"`
	Context     models.CompressedContext `json:"context"`
	Tone        sentiment.Tone           `json:"tone"`
	Provider    string                   `json:"provider"`
	Model       string                   `json:"model"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Cached      bool                     `json:"cached"`
}

// NewsSearcher is the news fetching the pipeline depends on.
// *datasource.Aggregator implements it.
type NewsSearcher interface {
	Search(ctx context.Context, spec datasource.SearchSpec) datasource.SearchResult
	SearchStockNews(ctx context.Context, symbol string, spec datasource.SearchSpec) ([]models.Article, error)
}

// ServiceConfig holds the collaborators of a Service. Only News is required.
type ServiceConfig struct {
	News       NewsSearcher
	Dictionary *reference.Dictionary
	Generator  llm.Generator // nil disables GenerateInsight
	Cache      infra.Store[Result]
	CacheTTL   time.Duration
	Budget     compressor.Budget
	PageSize   int
	Language   string
	Country    string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Service is the pipeline entry point used by the API and the CLI.
type Service struct {
	news       NewsSearcher
	dict       *reference.Dictionary
	scorer     *relevance.Scorer
	extractor  *relevance.Extractor
	compressor *compressor.Compressor
	generator  llm.Generator
	cache      infra.Store[Result]
	cacheTTL   time.Duration
	budget     compressor.Budget
	pageSize   int
	language   string
	country    string
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.News == nil {
		return nil, errors.New("insight: news searcher is required")
	}
	s := &Service{
		news:      cfg.News,
		generator: cfg.Generator,
		cache:     cfg.Cache,
		cacheTTL:  cfg.CacheTTL,
		budget:    cfg.Budget,
		pageSize:  cfg.PageSize,
		language:  cfg.Language,
		country:   cfg.Country,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = infra.DefaultTTL
	}
	if s.budget.Limit <= 0 {
		s.budget = compressor.DefaultBudget
	}
	if s.pageSize <= 0 {
		s.pageSize = datasource.DefaultPageSize
	}
	s.dict = cfg.Dictionary
	if s.dict == nil {
		s.dict = reference.Default()
	}
	s.scorer = relevance.NewScorer(s.dict, relevance.WithClock(s.now))
	s.extractor = relevance.NewExtractor(s.dict)
	s.compressor = compressor.New(compressor.WithClock(s.now))
	return s, nil
}

// Budget returns the context size budget.
func (s *Service) Budget() compressor.Budget { return s.budget }

// CanGenerate reports whether a generative model is configured.
func (s *Service) CanGenerate() bool { return s.generator != nil }

// validate normalizes target and params.
func validate(target string, p Params) (string, Params, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", p, models.NewValidationError("target", "must not be empty")
	}
	if err := p.Validate(); err != nil {
		return "", p, err
	}
	return target, p.WithDefaults(), nil
}

func (s *Service) searchSpec(p Params) datasource.SearchSpec {
	from, to := utils.LookbackRange(s.now(), p.LookbackDays)
	return datasource.SearchSpec{
		PageSize: s.pageSize,
		Language: s.language,
		Country:  s.country,
		From:     from,
		To:       to,
	}
}

// ExtractSymbols returns the candidate ticker symbols in text.
func (s *Service) ExtractSymbols(text string) []string {
	return s.extractor.ExtractSymbols(text)
}

// SearchNews returns the deduplicated news for symbol, scored and sorted
// best first, at most p.MaxArticles long. Irrelevant articles are kept.
func (s *Service) SearchNews(ctx context.Context, symbol string, p Params) ([]models.ScoredArticle, error) {
	symbol, p, err := validate(symbol, p)
	if err != nil {
		return nil, err
	}
	sym := utils.NormalizeSymbol(symbol)
	articles, err := s.news.SearchStockNews(ctx, sym, s.searchSpec(p))
	if err != nil {
		return nil, err
	}
	scored := s.scorer.ScoreArticlesForSymbol(articles, sym)
	if len(scored) > p.MaxArticles {
		scored = scored[:p.MaxArticles]
	}
	return scored, nil
}

// GetInsightContext builds the compressed news context for a ticker
// ("NVDA", "$aapl") or a free-text question. A question is fanned out to the
// symbols it names; one that names none is searched as is.
func (s *Service) GetInsightContext(ctx context.Context, symbolOrQuery string, p Params) (*ContextResult, error) {
	target, p, err := validate(symbolOrQuery, p)
	if err != nil {
		return nil, err
	}

	var res *ContextResult
	switch {
	case s.isTicker(target):
		res, err = s.symbolContext(ctx, utils.NormalizeSymbol(target), p)
	default:
		symbols := s.extractor.ExtractSymbols(target)
		if len(symbols) > MaxQuerySymbols {
			symbols = symbols[:MaxQuerySymbols]
		}
		if len(symbols) > 0 {
			res, err = s.multiSymbolContext(ctx, target, symbols, p)
		} else {
			res = s.queryContext(ctx, target, p)
		}
	}
	if err != nil {
		return nil, err
	}

	res.Tokens = compressor.EstimateTokens(res.Context.SummaryText)
	res.Citations = citations(res.Articles, res.Context.ArticleCount)
	res.Tone = sentiment.Analyze(includedArticles(res.Articles, res.Context.ArticleCount), s.now())
	metrics.ObserveContextTokens(res.Tokens)
	s.logger.Debug("context built",
		"target", target,
		"symbols", res.Symbols,
		"articles", res.Context.ArticleCount,
		"truncated", res.Context.Truncated,
		"tokens", res.Tokens,
	)
	return res, nil
}

func (s *Service) symbolContext(ctx context.Context, sym string, p Params) (*ContextResult, error) {
	articles, err := s.news.SearchStockNews(ctx, sym, s.searchSpec(p))
	if err != nil {
		return nil, err
	}
	top := s.scorer.TopRelevantArticles(articles, sym, p.MaxArticles)
	return &ContextResult{
		Target:   sym,
		Symbols:  []string{sym},
		Context:  s.compressor.CompressScored(top, sym, s.budget),
		Articles: top,
	}, nil
}

// multiSymbolContext scores each symbol's news against that symbol and
// merges the lists by score. An article found for several symbols keeps its
// best score.
func (s *Service) multiSymbolContext(ctx context.Context, query string, symbols []string, p Params) (*ContextResult, error) {
	spec := s.searchSpec(p)
	perSymbol := make([][]models.ScoredArticle, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			articles, err := s.news.SearchStockNews(gctx, sym, spec)
			if err != nil {
				return fmt.Errorf("search %s: %w", sym, err)
			}
			perSymbol[i] = s.scorer.TopRelevantArticles(articles, sym, p.MaxArticles)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []models.ScoredArticle
	for _, list := range perSymbol {
		merged = append(merged, list...)
	}
	relevance.SortByScore(merged)
	merged = dedupScored(merged)
	if len(merged) > p.MaxArticles {
		merged = merged[:p.MaxArticles]
	}

	label := strings.Join(symbols, ", ")
	return &ContextResult{
		Target:   query,
		Symbols:  symbols,
		Context:  s.compressor.CompressScored(merged, label, s.budget),
		Articles: merged,
	}, nil
}

// queryContext searches free text that names no symbol. Articles are not
// scored; they are ordered by mention of the query, then recency.
func (s *Service) queryContext(ctx context.Context, query string, p Params) *ContextResult {
	spec := s.searchSpec(p)
	spec.Query = query
	found := s.news.Search(ctx, spec)

	ordered := compressor.Prioritize(datasource.Deduplicate(found.Articles), query)
	if len(ordered) > p.MaxArticles {
		ordered = ordered[:p.MaxArticles]
	}
	articles := make([]models.ScoredArticle, len(ordered))
	for i, a := range ordered {
		articles[i] = models.ScoredArticle{Article: a}
	}
	return &ContextResult{
		Target:   query,
		Symbols:  []string{},
		Context:  s.compressor.CompressScored(articles, "", s.budget),
		Articles: articles,
	}
}

// GenerateInsight returns the cached insight for (target, params) or builds
// the context, asks the model and caches the answer. Model failures wrap
// ErrAnalysisFailed.
func (s *Service) GenerateInsight(ctx context.Context, symbolOrQuery string, p Params) (*Result, error) {
	target, p, err := validate(symbolOrQuery, p)
	if err != nil {
		return nil, err
	}

	key := s.CacheKey(target, p)
	if s.cache != nil {
		if cached, ok := s.cache.Load(ctx, key); ok {
			metrics.RecordCacheLookup(true)
			cached.Cached = true
			return &cached, nil
		}
		metrics.RecordCacheLookup(false)
	}

	if s.generator == nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, llm.ErrNoAPIKey)
	}

	cr, err := s.GetInsightContext(ctx, target, p)
	if err != nil {
		return nil, err
	}

	subject := cr.Target
	if len(cr.Symbols) > 0 {
		subject = strings.Join(cr.Symbols, ", ")
	}
	resp, err := s.generator.Generate(ctx, llm.BuildInsightPrompt(subject, cr.Context))
	if err != nil {
		metrics.RecordLLMRequest(false)
		s.logger.Warn("insight generation failed", "target", target, "provider", s.generator.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	ins, err := llm.ParseInsight(resp.Text)
	if err != nil {
		metrics.RecordLLMRequest(false)
		s.logger.Warn("insight reply unusable", "target", target, "provider", resp.Provider, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	metrics.RecordLLMRequest(true)

	result := Result{
		Target:      cr.Target,
		Symbols:     cr.Symbols,
		Insight:     ins,
		Citations:   cr.Citations,
		Context:     cr.Context,
		Tone:        cr.Tone,
		Provider:    resp.Provider,
		Model:       resp.Model,
		GeneratedAt: s.now(),
	}
	if s.cache != nil {
		s.cache.Save(ctx, key, result, s.cacheTTL)
	}
	s.logger.Info("insight generated",
		"target", target,
		"sentiment", ins.Sentiment,
		"recommendation", ins.Recommendation,
		"latency", resp.Latency,
	)
	return &result, nil
}

// CacheKey is the result cache key for a validated target: a per-symbol key
// for tickers, a query-hash key for free text.
func (s *Service) CacheKey(target string, p Params) string {
	kp := p.WithDefaults().keyParams()
	if s.isTicker(target) {
		return infra.InsightKey(target, kp)
	}
	return infra.QueryKey(target, kp)
}

// isTicker reports whether target is handled as a single symbol. A short
// word qualifies when it is written in upper case, carries a "$" prefix, or
// names a dictionary symbol in any casing. "Apple" and "tesla" are free text.
func (s *Service) isTicker(target string) bool {
	if !utils.IsTickerLike(target) {
		return false
	}
	t := strings.TrimSpace(target)
	if strings.HasPrefix(t, "$") || t == strings.ToUpper(t) {
		return true
	}
	_, known := s.dict.Lookup(utils.NormalizeSymbol(t))
	return known
}

// dedupScored keeps the first occurrence of each URL.
func dedupScored(scored []models.ScoredArticle) []models.ScoredArticle {
	seen := make(map[string]struct{}, len(scored))
	out := scored[:0:0]
	for _, sa := range scored {
		if _, dup := seen[sa.Article.URL]; dup {
			continue
		}
		seen[sa.Article.URL] = struct{}{}
		out = append(out, sa)
	}
	return out
}

// includedArticles returns the first n articles, the ones the context shows.
func includedArticles(scored []models.ScoredArticle, n int) []models.Article {
	n = min(n, len(scored))
	out := make([]models.Article, n)
	for i := range n {
		out[i] = scored[i].Article
	}
	return out
}

func citations(scored []models.ScoredArticle, n int) []models.Citation {
	included := includedArticles(scored, n)
	out := make([]models.Citation, len(included))
	for i, a := range included {
		out[i] = models.CitationFor(a)
	}
	return out
}
