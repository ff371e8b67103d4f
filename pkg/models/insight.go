package models

import "strings"

// Sentiment is the overall market tone of an insight.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// Recommendation is the suggested position.
type Recommendation string

const (
	RecommendBuy  Recommendation = "BUY"
	RecommendHold Recommendation = "HOLD"
	RecommendSell Recommendation = "SELL"
)

// RiskLevel grades the risk of acting on an insight.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Insight limits.
const (
	MinKeyPoints = 1
	MaxKeyPoints = 5
)

// Insight is the structured analysis returned by the generative model.
type Insight struct {
	Sentiment      Sentiment      `json:"sentiment"`
	Recommendation Recommendation `json:"recommendation"`
	KeyPoints      []string       `json:"keyPoints"`
	RiskLevel      RiskLevel      `json:"riskLevel"`
	Confidence     int            `json:"confidence"` // 0..100
}

// ParseSentiment maps free-form text onto a Sentiment. ok is false when the
// value is not one of the known labels.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentBullish:
		return SentimentBullish, true
	case SentimentBearish:
		return SentimentBearish, true
	case SentimentNeutral:
		return SentimentNeutral, true
	}
	return SentimentNeutral, false
}

// ParseRecommendation maps free-form text onto a Recommendation.
func ParseRecommendation(s string) (Recommendation, bool) {
	switch Recommendation(strings.ToUpper(strings.TrimSpace(s))) {
	case RecommendBuy:
		return RecommendBuy, true
	case RecommendHold:
		return RecommendHold, true
	case RecommendSell:
		return RecommendSell, true
	}
	return RecommendHold, false
}

// ParseRiskLevel maps free-form text onto a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow, true
	case "medium":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	}
	return RiskMedium, false
}
