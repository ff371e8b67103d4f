package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// ── Insight Tests ──

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		input string
		want  Sentiment
		ok    bool
	}{
		{"bullish", SentimentBullish, true},
		{" Bearish ", SentimentBearish, true},
		{"NEUTRAL", SentimentNeutral, true},
		{"positive", SentimentNeutral, false},
		{"", SentimentNeutral, false},
	}
	for _, tt := range tests {
		got, ok := ParseSentiment(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSentiment(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRecommendation(t *testing.T) {
	tests := []struct {
		input string
		want  Recommendation
		ok    bool
	}{
		{"BUY", RecommendBuy, true},
		{"sell", RecommendSell, true},
		{" hold", RecommendHold, true},
		{"STRONG BUY", RecommendHold, false},
	}
	for _, tt := range tests {
		got, ok := ParseRecommendation(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRecommendation(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseRiskLevel(t *testing.T) {
	tests := []struct {
		input string
		want  RiskLevel
		ok    bool
	}{
		{"Low", RiskLow, true},
		{"MEDIUM", RiskMedium, true},
		{"high ", RiskHigh, true},
		{"extreme", RiskMedium, false},
	}
	for _, tt := range tests {
		got, ok := ParseRiskLevel(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseRiskLevel(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInsightJSONFieldNames(t *testing.T) {
	ins := Insight{
		Sentiment:      SentimentBullish,
		Recommendation: RecommendBuy,
		KeyPoints:      []string{"Strong quarter"},
		RiskLevel:      RiskLow,
		Confidence:     80,
	}
	data, err := json.Marshal(ins)
	if err != nil {
		t.Fatalf("json.Marshal(Insight) error: %v", err)
	}
	for _, key := range []string{`"sentiment":"bullish"`, `"recommendation":"BUY"`, `"keyPoints"`, `"riskLevel":"Low"`, `"confidence":80`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

// ── News Tests ──

func TestCitationFor(t *testing.T) {
	published := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	a := Article{
		Title:       "Apple beats estimates",
		Description: "Long body that citations do not carry.",
		URL:         "https://example.com/a",
		SourceName:  "Reuters",
		PublishedAt: published,
		Provider:    "newsapi",
	}
	c := CitationFor(a)
	if c.Title != a.Title || c.URL != a.URL || c.SourceName != a.SourceName || !c.PublishedAt.Equal(published) {
		t.Errorf("CitationFor: got %+v", c)
	}
}

func TestArticleOmitsEmptyOptionalFields(t *testing.T) {
	data, err := json.Marshal(Article{Title: "t", URL: "u"})
	if err != nil {
		t.Fatalf("json.Marshal(Article) error: %v", err)
	}
	if strings.Contains(string(data), "imageUrl") || strings.Contains(string(data), "provider") {
		t.Errorf("optional fields should be omitted: %s", data)
	}
}

// ── Error Tests ──

func TestValidationError(t *testing.T) {
	var err error = NewValidationError("target", "must not be empty")
	if err.Error() != "invalid target: must not be empty" {
		t.Errorf("Error() = %q", err.Error())
	}

	wrapped := errors.Join(errors.New("context"), err)
	var verr *ValidationError
	if !errors.As(wrapped, &verr) || verr.Field != "target" {
		t.Errorf("errors.As should unwrap ValidationError, got %v", verr)
	}
}
