// Package relevance ranks news articles by how pertinent they are to a
// ticker, and proposes tickers from free text.
//
// Scores are additive: every signal can only raise an article's score, and
// the total is capped at MaxScore once all signals are summed.
package relevance

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/stockpulse/internal/reference"
	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// Signal weights.
const (
	WeightSymbolInTitle       = 3.0
	WeightSymbolInDescription = 2.0
	WeightAlias               = 1.5
	WeightKeyword             = 0.5
	WeightCredibleSource      = 0.3

	RecencyBonusDay   = 1.0 // age <= 1 day
	RecencyBonusThree = 0.5 // age <= 3 days
	RecencyBonusWeek  = 0.2 // age <= 7 days

	MaxScore = 10.0

	// MinRelevantScore is the threshold an article must exceed to be
	// considered relevant at all.
	MinRelevantScore = 0.1
)

// Scorer computes relevance scores against a reference Dictionary.
type Scorer struct {
	dict *reference.Dictionary
	now  func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithClock sets the clock recency is measured against.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) { s.now = now }
}

// NewScorer creates a Scorer. A nil dict uses reference.Default().
func NewScorer(dict *reference.Dictionary, opts ...ScorerOption) *Scorer {
	if dict == nil {
		dict = reference.Default()
	}
	s := &Scorer{dict: dict, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreArticle scores one article against profile.
func (s *Scorer) ScoreArticle(a models.Article, profile models.SymbolProfile) models.ScoredArticle {
	return s.score(a, profile, s.now())
}

func (s *Scorer) score(a models.Article, profile models.SymbolProfile, now time.Time) models.ScoredArticle {
	var (
		score   float64
		reasons []string
	)
	add := func(w float64, reason string) {
		score += w
		if len(reasons) < models.MaxScoreReasons {
			reasons = append(reasons, reason)
		}
	}

	title := strings.ToLower(a.Title)
	desc := strings.ToLower(a.Description)
	text := title + " " + desc
	sym := strings.ToLower(profile.Symbol)

	if sym != "" && strings.Contains(title, sym) {
		add(WeightSymbolInTitle, "symbol in title")
	}
	if sym != "" && strings.Contains(desc, sym) {
		add(WeightSymbolInDescription, "symbol in description")
	}
	for _, alias := range profile.Aliases {
		if alias != "" && strings.Contains(text, strings.ToLower(alias)) {
			add(WeightAlias, "mentions "+alias)
		}
	}
	for _, kw := range s.dict.Keywords() {
		if strings.Contains(text, kw) {
			add(WeightKeyword, "keyword "+kw)
		}
	}

	age := utils.AgeInDays(a.PublishedAt, now)
	switch {
	case age <= 1:
		add(RecencyBonusDay, "published within a day")
	case age <= 3:
		add(RecencyBonusThree, "published within 3 days")
	case age <= 7:
		add(RecencyBonusWeek, "published within a week")
	}

	source := strings.ToLower(a.SourceName)
	for _, frag := range s.dict.CredibleSources() {
		if strings.Contains(source, frag) {
			add(WeightCredibleSource, fmt.Sprintf("credible source (%s)", a.SourceName))
			break
		}
	}

	return models.ScoredArticle{
		Article: a,
		Score:   math.Min(score, MaxScore),
		Reasons: reasons,
	}
}

// ScoreArticlesForSymbol scores every article against symbol and sorts them
// by descending score. Ties keep their input order. Unknown symbols are
// scored against a degenerate profile.
func (s *Scorer) ScoreArticlesForSymbol(articles []models.Article, symbol string) []models.ScoredArticle {
	profile := s.dict.Profile(symbol)
	now := s.now()

	scored := make([]models.ScoredArticle, 0, len(articles))
	for _, a := range articles {
		scored = append(scored, s.score(a, profile, now))
	}
	SortByScore(scored)
	return scored
}

// TopRelevantArticles returns at most max articles scoring above
// MinRelevantScore, best first.
func (s *Scorer) TopRelevantArticles(articles []models.Article, symbol string, max int) []models.ScoredArticle {
	if max <= 0 {
		return nil
	}
	return FilterRelevant(s.ScoreArticlesForSymbol(articles, symbol), max)
}

// FilterRelevant keeps the leading articles of an already sorted list that
// score above MinRelevantScore, up to max.
func FilterRelevant(scored []models.ScoredArticle, max int) []models.ScoredArticle {
	if max <= 0 {
		return nil
	}
	out := make([]models.ScoredArticle, 0, min(len(scored), max))
	for _, sa := range scored {
		if len(out) == max {
			break
		}
		if sa.Score > MinRelevantScore {
			out = append(out, sa)
		}
	}
	return out
}

// SortByScore stable-sorts scored articles by descending score.
func SortByScore(scored []models.ScoredArticle) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}
