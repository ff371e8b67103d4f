// Package config handles configuration loading for stockpulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/seenimoa/stockpulse/internal/datasource"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// EnvPrefix prefixes every environment override, e.g. STOCKPULSE_API_PORT.
const EnvPrefix = "STOCKPULSE"

// Config represents the complete application configuration.
type Config struct {
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	Context ContextConfig `mapstructure:"context" yaml:"context"`
	Cache   CacheConfig   `mapstructure:"cache"   yaml:"cache"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// NewsConfig holds news provider settings.
type NewsConfig struct {
	NewsAPIKey        string    `mapstructure:"newsapi_key"         yaml:"newsapi_key"`
	GNewsKey          string    `mapstructure:"gnews_key"           yaml:"gnews_key"`
	PageSize          int       `mapstructure:"page_size"           yaml:"page_size"`
	Language          string    `mapstructure:"language"            yaml:"language"`
	Country           string    `mapstructure:"country"             yaml:"country"`
	TimeoutSec        int       `mapstructure:"timeout_sec"         yaml:"timeout_sec"`
	RequestsPerSecond float64   `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	RSS               RSSConfig `mapstructure:"rss"                 yaml:"rss"`
}

// RSSConfig holds the optional RSS tier.
type RSSConfig struct {
	Enabled bool                    `mapstructure:"enabled" yaml:"enabled"`
	Feeds   []datasource.FeedConfig `mapstructure:"feeds"   yaml:"feeds"`
}

// Timeout returns the per-request provider timeout.
func (n NewsConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSec) * time.Second
}

// LLMConfig holds generative model settings.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"    yaml:"provider"` // "gemini" or "ollama"
	GeminiKey   string  `mapstructure:"gemini_key"  yaml:"gemini_key"`
	Model       string  `mapstructure:"model"       yaml:"model"`
	BaseURL     string  `mapstructure:"base_url"    yaml:"base_url"`
	TimeoutSec  int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"  yaml:"max_tokens"`
}

// Timeout returns the generation timeout.
func (l LLMConfig) Timeout() time.Duration {
	return time.Duration(l.TimeoutSec) * time.Second
}

// ContextConfig holds context compression and retrieval defaults.
type ContextConfig struct {
	Budget       int    `mapstructure:"budget"        yaml:"budget"`
	Unit         string `mapstructure:"unit"          yaml:"unit"` // "tokens" or "chars"
	LookbackDays int    `mapstructure:"lookback_days" yaml:"lookback_days"`
	MaxArticles  int    `mapstructure:"max_articles"  yaml:"max_articles"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	Backend          string `mapstructure:"backend"            yaml:"backend"` // "memory" or "redis"
	TTLMinutes       int    `mapstructure:"ttl_minutes"        yaml:"ttl_minutes"`
	RedisURL         string `mapstructure:"redis_url"          yaml:"redis_url"`
	SweepIntervalSec int    `mapstructure:"sweep_interval_sec" yaml:"sweep_interval_sec"`
}

// TTL returns the cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// SweepInterval returns the expired-entry sweep period.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns host:port.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// DefaultFeeds are used when the RSS tier is enabled without feeds.
var DefaultFeeds = []datasource.FeedConfig{
	{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex"},
	{Name: "CNBC", URL: "https://www.cnbc.com/id/10001147/device/rss/rss.html"},
	{Name: "MarketWatch", URL: "https://feeds.content.dowjones.io/public/rss/mw_topstories"},
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.stockpulse/config.yaml (home directory)
//  3. /etc/stockpulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: STOCKPULSE_<SECTION>_<KEY>, e.g., STOCKPULSE_CACHE_TTL_MINUTES
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".stockpulse"))
	v.AddConfigPath("/etc/stockpulse")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	overrideFromEnv(&cfg)
	if cfg.News.RSS.Enabled && len(cfg.News.RSS.Feeds) == 0 {
		cfg.News.RSS.Feeds = append([]datasource.FeedConfig(nil), DefaultFeeds...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// News defaults
	v.SetDefault("news.newsapi_key", "")
	v.SetDefault("news.gnews_key", "")
	v.SetDefault("news.page_size", datasource.DefaultPageSize)
	v.SetDefault("news.language", "en")
	v.SetDefault("news.country", "us")
	v.SetDefault("news.timeout_sec", 10)
	v.SetDefault("news.requests_per_second", 1.0)
	v.SetDefault("news.rss.enabled", false)

	// LLM defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.gemini_key", "")
	v.SetDefault("llm.model", "") // empty: the provider's own default
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout_sec", 30)
	v.SetDefault("llm.temperature", 0.3)
	v.SetDefault("llm.max_tokens", 1024)

	// Context defaults
	v.SetDefault("context.budget", 2000)
	v.SetDefault("context.unit", "tokens")
	v.SetDefault("context.lookback_days", 7)
	v.SetDefault("context.max_articles", 10)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl_minutes", 15)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.sweep_interval_sec", 60)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Context.Budget <= 0:
		return fmt.Errorf("config: context.budget must be positive, got %d", c.Context.Budget)
	case c.Context.Unit != "tokens" && c.Context.Unit != "chars":
		return fmt.Errorf("config: context.unit must be tokens or chars, got %q", c.Context.Unit)
	case c.Context.LookbackDays < 0 || c.Context.MaxArticles < 0:
		return fmt.Errorf("config: context.lookback_days and context.max_articles must not be negative")
	case c.Cache.Backend != "memory" && c.Cache.Backend != "redis":
		return fmt.Errorf("config: cache.backend must be memory or redis, got %q", c.Cache.Backend)
	case c.Cache.TTLMinutes <= 0:
		return fmt.Errorf("config: cache.ttl_minutes must be positive, got %d", c.Cache.TTLMinutes)
	}
	return nil
}

// secretEnv lists, per secret, the prefixed and the conventional variable
// names. The prefixed name wins when both are set.
var secretEnv = []struct {
	prefixed, conventional string
	field                  func(*Config) *string
}{
	{"STOCKPULSE_NEWS_NEWSAPI_KEY", "NEWSAPI_KEY", func(c *Config) *string { return &c.News.NewsAPIKey }},
	{"STOCKPULSE_NEWS_GNEWS_KEY", "GNEWS_API_KEY", func(c *Config) *string { return &c.News.GNewsKey }},
	{"STOCKPULSE_LLM_GEMINI_KEY", "GEMINI_API_KEY", func(c *Config) *string { return &c.LLM.GeminiKey }},
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	for _, s := range secretEnv {
		if key := os.Getenv(s.prefixed); key != "" {
			*s.field(cfg) = key
		} else if key := os.Getenv(s.conventional); key != "" {
			*s.field(cfg) = key
		}
	}
}

// IsPlaceholder reports whether a credential is empty or still set to a
// sample value; such a provider is skipped.
func IsPlaceholder(key string) bool {
	return utils.IsPlaceholderKey(key)
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// Redacted returns a copy of the configuration safe to display: credentials
// are masked, placeholders and empty keys are blanked.
func (c Config) Redacted() Config {
	mask := func(key string) string {
		if IsPlaceholder(key) {
			return ""
		}
		return utils.MaskKey(key)
	}
	c.News.NewsAPIKey = mask(c.News.NewsAPIKey)
	c.News.GNewsKey = mask(c.News.GNewsKey)
	c.LLM.GeminiKey = mask(c.LLM.GeminiKey)
	c.News.RSS.Feeds = append([]datasource.FeedConfig(nil), c.News.RSS.Feeds...)
	c.API.CORSOrigins = append([]string(nil), c.API.CORSOrigins...)
	return c
}
