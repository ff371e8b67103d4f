// Package sentiment grades the tone of news coverage with a keyword lexicon.
// It is offline and deterministic; the generative model produces the real
// insight, this only labels the article list that backs it.
package sentiment

import (
	"math"
	"strings"
	"time"

	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// Tone labels.
const (
	LabelBullish         = "Bullish"
	LabelSlightlyBullish = "Slightly Bullish"
	LabelNeutral         = "Neutral"
	LabelSlightlyBearish = "Slightly Bearish"
	LabelBearish         = "Bearish"
)

// noSignalConfidence is reported for text without any lexicon hit.
const noSignalConfidence = 0.1

// bullish / bearish keyword dictionaries (lowercase).
var bullishWords = map[string]float64{
	"bullish": 0.7, "rally": 0.6, "surge": 0.7, "upbeat": 0.5,
	"positive": 0.4, "growth": 0.4, "upgrade": 0.6, "outperform": 0.6,
	"buy": 0.5, "strong": 0.4, "recovery": 0.5, "breakout": 0.6,
	"record high": 0.7, "all-time high": 0.7, "beat": 0.5,
	"exceeds": 0.5, "beats estimate": 0.6, "expansion": 0.4,
	"profit": 0.3, "dividend": 0.4, "raises guidance": 0.6,
}

var bearishWords = map[string]float64{
	"bearish": 0.7, "crash": 0.8, "plunge": 0.7, "slump": 0.6,
	"negative": 0.4, "downgrade": 0.6, "underperform": 0.6,
	"sell": 0.5, "weak": 0.4, "decline": 0.5, "loss": 0.4,
	"selloff": 0.7, "fall": 0.4, "correction": 0.5,
	"default": 0.7, "fraud": 0.8, "lawsuit": 0.6, "investigation": 0.5,
	"cut": 0.3, "miss": 0.5, "warning": 0.5, "concern": 0.3,
	"layoffs": 0.5,
}

// ArticleScore is the tone of one article.
type ArticleScore struct {
	URL         string    `json:"url"`
	Headline    string    `json:"headline"`
	Score       float64   `json:"score"`      // -1 (bearish) .. +1 (bullish)
	Confidence  float64   `json:"confidence"` // 0..1
	PublishedAt time.Time `json:"publishedAt"`
}

// Tone is the recency-weighted tone of a set of articles.
type Tone struct {
	Label        string  `json:"label"`
	Score        float64 `json:"score"`
	Confidence   float64 `json:"confidence"`
	ArticleCount int     `json:"articleCount"`
}

// ScoreHeadline returns a sentiment score for a single headline.
// Score ranges from -1.0 (very bearish) to +1.0 (very bullish).
func ScoreHeadline(headline string) (score float64, confidence float64) {
	lower := strings.ToLower(headline)

	bullScore := 0.0
	bearScore := 0.0
	matches := 0

	for word, weight := range bullishWords {
		if strings.Contains(lower, word) {
			bullScore += weight
			matches++
		}
	}
	for word, weight := range bearishWords {
		if strings.Contains(lower, word) {
			bearScore += weight
			matches++
		}
	}

	total := bullScore + bearScore
	if matches == 0 || total == 0 {
		return 0, noSignalConfidence
	}

	// Net score normalized to -1..+1.
	score = (bullScore - bearScore) / total

	// Confidence grows with the number of keyword matches.
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)
	return score, confidence
}

// ScoreArticle scores the title and description of a news article.
func ScoreArticle(a models.Article) ArticleScore {
	text := a.Title
	if a.Description != "" {
		text += " " + a.Description
	}
	score, confidence := ScoreHeadline(text)
	return ArticleScore{
		URL:         a.URL,
		Headline:    a.Title,
		Score:       score,
		Confidence:  confidence,
		PublishedAt: a.PublishedAt,
	}
}

// Aggregate computes the recency-weighted tone of scores as of now. Weight
// halves every 24 hours of article age.
func Aggregate(scores []ArticleScore, now time.Time) Tone {
	if len(scores) == 0 {
		return Tone{Label: LabelNeutral}
	}

	weightedSum := 0.0
	totalWeight := 0.0
	confSum := 0.0
	for _, s := range scores {
		age := utils.AgeInDays(s.PublishedAt, now)
		w := math.Exp(-math.Ln2*age) * s.Confidence

		weightedSum += s.Score * w
		totalWeight += w
		confSum += s.Confidence
	}

	avg := 0.0
	if totalWeight > 0 {
		avg = weightedSum / totalWeight
	}
	return Tone{
		Label:        label(avg),
		Score:        avg,
		Confidence:   confSum / float64(len(scores)),
		ArticleCount: len(scores),
	}
}

// Analyze scores and aggregates articles in one step.
func Analyze(articles []models.Article, now time.Time) Tone {
	scores := make([]ArticleScore, 0, len(articles))
	for _, a := range articles {
		scores = append(scores, ScoreArticle(a))
	}
	return Aggregate(scores, now)
}

func label(score float64) string {
	switch {
	case score > 0.3:
		return LabelBullish
	case score > 0.1:
		return LabelSlightlyBullish
	case score < -0.3:
		return LabelBearish
	case score < -0.1:
		return LabelSlightlyBearish
	default:
		return LabelNeutral
	}
}
