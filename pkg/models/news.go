package models

import "time"

// DefaultSourceName is used when a provider omits the publisher name.
const DefaultSourceName = "Unknown"

// Article is a normalized news item. URL is the identity of an article:
// two articles with the same URL are the same article.
type Article struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	SourceName  string    `json:"sourceName"`
	PublishedAt time.Time `json:"publishedAt"`
	Provider    string    `json:"provider,omitempty"` // fetch tier that produced the article
}

// MaxScoreReasons caps the diagnostic explanations kept on a ScoredArticle.
const MaxScoreReasons = 5

// ScoredArticle is an Article annotated with its relevance to a symbol.
type ScoredArticle struct {
	Article Article  `json:"article"`
	Score   float64  `json:"score"`   // 0..10
	Reasons []string `json:"reasons"` // at most MaxScoreReasons, in evaluation order
}

// SymbolProfile is static reference data for a ticker.
type SymbolProfile struct {
	Symbol      string   `json:"symbol"`
	Aliases     []string `json:"aliases"`
	CompanyName string   `json:"companyName"`
}

// CompressedContext is the size-bounded text handed to the analysis model.
type CompressedContext struct {
	SummaryText  string `json:"summaryText"`
	ArticleCount int    `json:"articleCount"`
	Truncated    bool   `json:"truncated"`
}

// Citation references an article included in a compressed context.
type Citation struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	SourceName  string    `json:"sourceName"`
	PublishedAt time.Time `json:"publishedAt"`
}

// CitationFor builds a Citation from an article.
func CitationFor(a Article) Citation {
	return Citation{
		Title:       a.Title,
		URL:         a.URL,
		SourceName:  a.SourceName,
		PublishedAt: a.PublishedAt,
	}
}
