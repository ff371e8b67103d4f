package datasource

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/stockpulse/pkg/models"
)

// rawArticle is the loosely-typed shape every adapter maps its provider
// record into before normalization.
type rawArticle struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
	SourceName  string
	PublishedAt string
}

// publishedLayouts are tried in order when parsing provider timestamps.
var publishedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"20060102T150405",
	time.RFC1123Z,
	time.RFC1123,
}

// normalize maps a raw record onto an Article. ok is false when the record
// lacks a title or URL; such records are dropped, never surfaced partially.
func normalize(raw rawArticle, provider string, fetchedAt time.Time) (models.Article, bool) {
	title := strings.TrimSpace(cleanHTML(raw.Title))
	url := strings.TrimSpace(raw.URL)
	if title == "" || url == "" {
		return models.Article{}, false
	}

	source := strings.TrimSpace(raw.SourceName)
	if source == "" {
		source = models.DefaultSourceName
	}

	return models.Article{
		Title:       title,
		Description: cleanHTML(raw.Description),
		URL:         url,
		ImageURL:    strings.TrimSpace(raw.ImageURL),
		SourceName:  source,
		PublishedAt: parsePublished(raw.PublishedAt, fetchedAt),
		Provider:    provider,
	}, true
}

// normalizeAll normalizes a batch, preserving order and dropping invalid records.
func normalizeAll(raws []rawArticle, provider string, fetchedAt time.Time) []models.Article {
	out := make([]models.Article, 0, len(raws))
	for _, r := range raws {
		if a, ok := normalize(r, provider, fetchedAt); ok {
			out = append(out, a)
		}
	}
	return out
}

// parsePublished parses a provider timestamp, defaulting to fetchedAt.
func parsePublished(s string, fetchedAt time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fetchedAt
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fetchedAt
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" || !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
