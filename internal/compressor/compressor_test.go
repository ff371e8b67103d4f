package compressor

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stockpulse/pkg/models"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCompressor() *Compressor {
	return New(WithClock(func() time.Time { return testNow }))
}

func sampleArticles(n int) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{
			Title:       fmt.Sprintf("Headline number %d about the market", i),
			Description: strings.Repeat("Detail ", 10+i),
			URL:         fmt.Sprintf("https://news.example/%d", i),
			SourceName:  "Reuters",
			PublishedAt: testNow.Add(-time.Duration(i) * 24 * time.Hour),
		}
	}
	return out
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
	assert.Equal(t, 1, EstimateTokens("日本"))
}

func TestBudgetCharLimit(t *testing.T) {
	assert.Equal(t, 400, Tokens(100).CharLimit())
	assert.Equal(t, 100, Chars(100).CharLimit())
	assert.Equal(t, DefaultBudget.CharLimit(), Budget{}.CharLimit())
	assert.Equal(t, UnitChars, ParseUnit("Chars"))
	assert.Equal(t, UnitTokens, ParseUnit("tokens"))
	assert.Equal(t, UnitTokens, ParseUnit(""))
}

func TestCompressEmpty(t *testing.T) {
	c := newTestCompressor()
	want := models.CompressedContext{SummaryText: "No recent news articles found.", ArticleCount: 0, Truncated: false}

	assert.Equal(t, want, c.CompressArticles(nil, "AAPL", Tokens(500)))
	assert.Equal(t, want, c.CompressScored([]models.ScoredArticle{}, "", Chars(10)))
}

func TestCompressEverythingFits(t *testing.T) {
	c := newTestCompressor()
	articles := []models.Article{
		{Title: "Apple beats", Description: "Record revenue.", SourceName: "Reuters", PublishedAt: testNow},
		{Title: "Apple guidance", SourceName: "CNBC", PublishedAt: testNow.Add(-30 * time.Hour)},
	}

	got := c.CompressArticles(articles, "AAPL", Tokens(1000))
	assert.False(t, got.Truncated)
	assert.Equal(t, 2, got.ArticleCount)
	assert.Equal(t,
		"Recent news about AAPL:\n"+
			"- Apple beats (Reuters, Today)\n"+
			"  Record revenue.\n"+
			"- Apple guidance (CNBC, Yesterday)",
		got.SummaryText)
}

func TestCompressHeaderWithoutTarget(t *testing.T) {
	c := newTestCompressor()
	got := c.CompressArticles(sampleArticles(1), "", Tokens(1000))
	assert.True(t, strings.HasPrefix(got.SummaryText, "Recent news articles:\n"))
}

func TestCompressTruncatesWithFooter(t *testing.T) {
	c := newTestCompressor()
	articles := sampleArticles(8)

	full := c.CompressArticles(articles, "", Chars(1_000_000))
	require.False(t, full.Truncated)

	limit := len(full.SummaryText) / 2
	got := c.CompressArticles(articles, "", Chars(limit))
	assert.True(t, got.Truncated)
	assert.Greater(t, got.ArticleCount, 0)
	assert.Less(t, got.ArticleCount, 8)
	assert.LessOrEqual(t, len([]rune(got.SummaryText)), limit)
	assert.True(t, strings.HasSuffix(got.SummaryText,
		fmt.Sprintf("(%d more articles not shown)", 8-got.ArticleCount)))
}

func TestCompressGreedyPrefixStopsAtFirstMiss(t *testing.T) {
	c := newTestCompressor()
	articles := []models.Article{
		{Title: "short one", SourceName: "A", PublishedAt: testNow},
		{Title: strings.Repeat("long ", 19), Description: strings.Repeat("words ", 25), SourceName: "B", PublishedAt: testNow},
		{Title: "tiny", SourceName: "C", PublishedAt: testNow},
	}
	scored := make([]models.ScoredArticle, len(articles))
	for i, a := range articles {
		scored[i] = models.ScoredArticle{Article: a, Score: 5}
	}

	got := c.CompressScored(scored, "X", Chars(100))
	assert.True(t, got.Truncated)
	assert.Equal(t, 1, got.ArticleCount)
	assert.Contains(t, got.SummaryText, "short one")
	assert.NotContains(t, got.SummaryText, "tiny")
	assert.True(t, strings.HasSuffix(got.SummaryText, "(2 more articles not shown)"))
}

func TestCompressNoArticleFits(t *testing.T) {
	c := newTestCompressor()
	articles := sampleArticles(5)

	tests := []struct {
		budget Budget
		want   string
	}{
		{Chars(10), ""},
		{Chars(29), ""},
		{Chars(40), EmptyContextText},
		{Tokens(10), EmptyContextText},
	}
	for _, tt := range tests {
		got := c.CompressArticles(articles, "AAPL", tt.budget)
		assert.Equal(t, tt.want, got.SummaryText, "budget %d %s", tt.budget.Limit, tt.budget.Unit)
		assert.Equal(t, 0, got.ArticleCount)
		assert.True(t, got.Truncated)
		assert.NotContains(t, got.SummaryText, "Recent news")
		assert.NotContains(t, got.SummaryText, "more articles")
	}
}

func TestCompressBudgetProperty(t *testing.T) {
	c := newTestCompressor()
	for _, n := range []int{1, 2, 5, 13} {
		articles := sampleArticles(n)
		full := c.CompressArticles(articles, "MARKET", Chars(1_000_000)).SummaryText
		fullLen := len([]rune(full))

		for _, b := range []int{1, 5, 10, 24, 40, 80, 150, 300, 700, 1500, 5000} {
			for _, budget := range []Budget{Chars(b), Tokens(b)} {
				got := c.CompressArticles(articles, "MARKET", budget)
				assert.LessOrEqual(t, budget.Size(got.SummaryText), b,
					"n=%d budget=%d %s", n, b, budget.Unit)
				assert.Equal(t, fullLen > budget.CharLimit(), got.Truncated,
					"n=%d budget=%d %s", n, b, budget.Unit)
				if !got.Truncated {
					assert.Equal(t, n, got.ArticleCount)
				}
			}
		}
	}
}

func TestCompressScoredKeepsOrder(t *testing.T) {
	c := newTestCompressor()
	scored := []models.ScoredArticle{
		{Article: models.Article{Title: "older but better", SourceName: "S", PublishedAt: testNow.Add(-5 * 24 * time.Hour)}, Score: 8},
		{Article: models.Article{Title: "newer but worse", SourceName: "S", PublishedAt: testNow}, Score: 2},
	}
	got := c.CompressScored(scored, "X", Tokens(1000))
	assert.Less(t, strings.Index(got.SummaryText, "older but better"), strings.Index(got.SummaryText, "newer but worse"))
	assert.Contains(t, got.SummaryText, "(S, 5 days ago)")
}

func TestPrioritize(t *testing.T) {
	articles := []models.Article{
		{Title: "Market wrap", URL: "1", PublishedAt: testNow},
		{Title: "Old TSLA story", URL: "2", PublishedAt: testNow.Add(-72 * time.Hour)},
		{Title: "Autos", Description: "tsla deliveries", URL: "3", PublishedAt: testNow.Add(-24 * time.Hour)},
		{Title: "Older wrap", URL: "4", PublishedAt: testNow.Add(-48 * time.Hour)},
	}
	got := Prioritize(articles, "TSLA")

	var urls []string
	for _, a := range got {
		urls = append(urls, a.URL)
	}
	assert.Equal(t, []string{"3", "2", "1", "4"}, urls)
	assert.Equal(t, "1", articles[0].URL, "input must not be reordered")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b c", truncate("a   b\n c", 10))

	long := strings.Repeat("x", 120)
	got := truncate(long, MaxTitleLen)
	assert.Len(t, []rune(got), MaxTitleLen)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestRenderArticleCapsFields(t *testing.T) {
	a := models.Article{
		Title:       strings.Repeat("T", 300),
		Description: strings.Repeat("D", 300),
		SourceName:  "Bloomberg",
		PublishedAt: testNow.Add(-10 * 24 * time.Hour),
	}
	line := renderArticle(a, testNow)
	parts := strings.Split(line, "\n")
	require.Len(t, parts, 2)
	assert.Contains(t, parts[0], strings.Repeat("T", MaxTitleLen-3)+"...")
	assert.NotContains(t, parts[0], strings.Repeat("T", MaxTitleLen-2))
	assert.Equal(t, "  "+strings.Repeat("D", MaxDescriptionLen-3)+"...", parts[1])
	assert.Contains(t, parts[0], "(Bloomberg, Feb 20, 2024)")
}
