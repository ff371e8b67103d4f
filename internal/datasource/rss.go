package datasource

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// RSSName identifies the RSS feed tier.
const RSSName = "rss"

// FeedConfig is one RSS/Atom feed.
type FeedConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url"  yaml:"url"`
}

// RSSSource searches a fixed set of market news feeds. It needs no
// credentials and is used as an optional tier ahead of the mock source.
type RSSSource struct {
	httpSource
	feeds  []FeedConfig
	parser *gofeed.Parser
}

// NewRSSSource creates an RSS tier over feeds.
func NewRSSSource(feeds []FeedConfig, opts ...Option) *RSSSource {
	s := &RSSSource{
		httpSource: newHTTPSource("", "", opts),
		feeds:      feeds,
		parser:     gofeed.NewParser(),
	}
	s.parser.Client = s.client
	s.parser.UserAgent = DefaultUserAgent
	return s
}

// Name returns the provider name.
func (s *RSSSource) Name() string { return RSSName }

// Configured reports whether any feed is set.
func (s *RSSSource) Configured() bool { return len(s.feeds) > 0 }

// Search fetches every feed and keeps items mentioning any query term,
// newest first. Feeds that fail are skipped; the tier fails only when every
// feed does.
func (s *RSSSource) Search(ctx context.Context, spec SearchSpec) ([]models.Article, error) {
	if !s.Configured() {
		return nil, providerErr(s.Name(), ErrProviderNotConfigured)
	}

	var (
		all     []models.Article
		lastErr error
		okFeeds int
	)
	now := time.Now()
	for _, feed := range s.feeds {
		articles, err := s.fetchFeed(ctx, feed, now)
		if err != nil {
			lastErr = err
			continue
		}
		okFeeds++
		all = append(all, articles...)
	}
	if okFeeds == 0 {
		return nil, providerErr(s.Name(), lastErr)
	}

	terms := queryTerms(spec.Query)
	from, hasFrom := parseBound(spec.From)

	filtered := make([]models.Article, 0, len(all))
	for _, a := range all {
		if hasFrom && a.PublishedAt.Before(from) {
			continue
		}
		if len(terms) > 0 && !matchesAny(a.Title+" "+a.Description, terms) {
			continue
		}
		filtered = append(filtered, a)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].PublishedAt.After(filtered[j].PublishedAt)
	})
	if n := spec.pageSize(MaxPageSize); len(filtered) > n {
		filtered = filtered[:n]
	}
	return filtered, nil
}

// fetchFeed parses one feed into articles.
func (s *RSSSource) fetchFeed(ctx context.Context, feed FeedConfig, fetchedAt time.Time) ([]models.Article, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	parsed, err := s.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse RSS %s: %w", feed.Name, err)
	}

	raws := make([]rawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		raw := rawArticle{
			Title:       item.Title,
			Description: item.Description,
			URL:         item.Link,
			SourceName:  feed.Name,
		}
		if item.Image != nil {
			raw.ImageURL = item.Image.URL
		}
		if item.PublishedParsed != nil {
			raw.PublishedAt = item.PublishedParsed.Format(time.RFC3339)
		}
		raws = append(raws, raw)
	}
	return normalizeAll(raws, s.Name(), fetchedAt), nil
}

// queryTerms splits a query into lower-case search terms, dropping
// one-letter noise.
func queryTerms(query string) []string {
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, `"'.,!?()`)
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// matchesAny checks if text contains any of the keywords (case-insensitive).
func matchesAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func parseBound(date string) (time.Time, bool) {
	if date == "" {
		return time.Time{}, false
	}
	t, err := utils.ParseISODate(date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
