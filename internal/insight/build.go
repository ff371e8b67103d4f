package insight

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seenimoa/stockpulse/internal/compressor"
	"github.com/seenimoa/stockpulse/internal/config"
	"github.com/seenimoa/stockpulse/internal/datasource"
	"github.com/seenimoa/stockpulse/internal/infra"
	"github.com/seenimoa/stockpulse/internal/llm"
	"github.com/seenimoa/stockpulse/internal/reference"
)

// redisConnectTimeout bounds the startup ping of the Redis cache.
const redisConnectTimeout = 5 * time.Second

// Components is a Service wired from configuration together with the
// resources it owns.
type Components struct {
	Service    *Service
	Aggregator *datasource.Aggregator

	// Memory is the in-process cache; nil when Redis serves the cache.
	Memory *infra.Cache[Result]
	redis  *redis.Client
}

// Close releases the Redis connection, if any.
func (c *Components) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

// CacheBackend names the cache actually in use.
func (c *Components) CacheBackend() string {
	if c.redis != nil {
		return "redis"
	}
	return "memory"
}

// Build wires the news tiers, the generative model and the result cache
// described by cfg. A missing model credential leaves generation disabled;
// an unreachable Redis falls back to the in-process cache.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dict := reference.Default()
	agg := NewAggregator(cfg, dict, logger)

	gen, err := llm.New(llm.ProviderConfig{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.GeminiKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout(),
	})
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Info("insight generation disabled", "provider", cfg.LLM.Provider, "reason", err)
		gen = nil
	case err != nil:
		return nil, err
	}

	comps := &Components{Aggregator: agg}
	var store infra.Store[Result]
	if cfg.Cache.Backend == "redis" {
		cctx, cancel := context.WithTimeout(ctx, redisConnectTimeout)
		client, rerr := infra.NewRedisClient(cctx, cfg.Cache.RedisURL)
		cancel()
		if rerr != nil {
			logger.Warn("redis unavailable, using in-memory cache", "error", rerr)
		} else {
			comps.redis = client
			store = infra.NewRedisStore[Result](client, infra.DefaultKeyPrefix).WithLogger(logger)
		}
	}
	if store == nil {
		comps.Memory = infra.NewCache[Result](cfg.Cache.TTL())
		store = comps.Memory
	}

	svc, err := NewService(ServiceConfig{
		News:       agg,
		Dictionary: dict,
		Generator:  gen,
		Cache:      store,
		CacheTTL:   cfg.Cache.TTL(),
		Budget:     compressor.Budget{Limit: cfg.Context.Budget, Unit: compressor.ParseUnit(cfg.Context.Unit)},
		PageSize:   cfg.News.PageSize,
		Language:   cfg.News.Language,
		Country:    cfg.News.Country,
		Logger:     logger,
	})
	if err != nil {
		_ = comps.Close()
		return nil, err
	}
	comps.Service = svc
	return comps, nil
}

// NewAggregator builds the fallback chain from cfg: NewsAPI, GNews, the RSS
// tier when enabled, and the mock tier last.
func NewAggregator(cfg *config.Config, dict *reference.Dictionary, logger *slog.Logger) *datasource.Aggregator {
	opts := []datasource.Option{
		datasource.WithTimeout(cfg.News.Timeout()),
		datasource.WithRateLimit(cfg.News.RequestsPerSecond),
	}
	providers := []datasource.Provider{
		datasource.NewNewsAPI(cfg.News.NewsAPIKey, opts...),
		datasource.NewGNews(cfg.News.GNewsKey, opts...),
	}
	if cfg.News.RSS.Enabled {
		providers = append(providers, datasource.NewRSSSource(cfg.News.RSS.Feeds, datasource.WithTimeout(cfg.News.Timeout())))
	}
	return datasource.NewAggregator(providers, datasource.NewMockSource(dict.CompanyNames()), logger)
}
