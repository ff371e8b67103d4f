package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/seenimoa/stockpulse/pkg/models"
)

// BuildInsightPrompt asks the model for a structured insight about target,
// grounded only in the compressed news context.
func BuildInsightPrompt(target string, news models.CompressedContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial news analyst. Using only the news below about %s, ", target)
	b.WriteString("return a single JSON object with exactly these fields:\n")
	b.WriteString(`{"sentiment": "bullish" | "bearish" | "neutral", `)
	b.WriteString(`"recommendation": "BUY" | "HOLD" | "SELL", `)
	fmt.Fprintf(&b, `"keyPoints": [%d to %d short strings], `, models.MinKeyPoints, models.MaxKeyPoints)
	b.WriteString(`"riskLevel": "Low" | "Medium" | "High", `)
	b.WriteString(`"confidence": integer from 0 to 100}`)
	b.WriteString("\nRespond with the JSON object only, without markdown.\n")
	if news.ArticleCount == 0 {
		b.WriteString("No recent coverage is available, so keep confidence low.\n")
	}
	b.WriteString("\n")
	b.WriteString(news.SummaryText)
	return b.String()
}

// rawInsight accepts the loose shapes models actually return.
type rawInsight struct {
	Sentiment      string          `json:"sentiment"`
	Recommendation string          `json:"recommendation"`
	KeyPoints      json.RawMessage `json:"keyPoints"`
	KeyPointsAlt   json.RawMessage `json:"key_points"`
	RiskLevel      string          `json:"riskLevel"`
	RiskLevelAlt   string          `json:"risk_level"`
	Confidence     json.RawMessage `json:"confidence"`
}

// ParseInsight extracts an Insight from model output. The JSON may be wrapped
// in markdown fences, surrounded by prose or cut off mid-object; unknown enum
// values fall back to neutral/HOLD/Medium and confidence is clamped to
// 0..100. At least one key point is required.
func ParseInsight(text string) (models.Insight, error) {
	s := stripFences(text)
	start := strings.Index(s, "{")
	if start < 0 {
		return models.Insight{}, fmt.Errorf("%w: no JSON object in response", ErrMalformedInsight)
	}

	var raw rawInsight
	err := errNoObject
	if end := strings.LastIndex(s, "}"); end > start {
		err = json.Unmarshal([]byte(s[start:end+1]), &raw)
	}
	if err != nil {
		raw = rawInsight{}
		if rerr := json.Unmarshal([]byte(RepairJSON(s[start:])), &raw); rerr != nil {
			return models.Insight{}, fmt.Errorf("%w: %v", ErrMalformedInsight, rerr)
		}
	}
	return normalizeInsight(raw)
}

var errNoObject = errors.New("unterminated object")

func normalizeInsight(raw rawInsight) (models.Insight, error) {
	points := keyPoints(raw.KeyPoints)
	if len(points) == 0 {
		points = keyPoints(raw.KeyPointsAlt)
	}
	if len(points) < models.MinKeyPoints {
		return models.Insight{}, fmt.Errorf("%w: no key points", ErrMalformedInsight)
	}
	if len(points) > models.MaxKeyPoints {
		points = points[:models.MaxKeyPoints]
	}

	sentiment, _ := models.ParseSentiment(raw.Sentiment)
	rec, _ := models.ParseRecommendation(raw.Recommendation)
	riskText := raw.RiskLevel
	if riskText == "" {
		riskText = raw.RiskLevelAlt
	}
	risk, _ := models.ParseRiskLevel(riskText)

	return models.Insight{
		Sentiment:      sentiment,
		Recommendation: rec,
		KeyPoints:      points,
		RiskLevel:      risk,
		Confidence:     confidence(raw.Confidence),
	}, nil
}

// keyPoints reads a list of strings, or a single string, dropping blanks.
func keyPoints(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []any
	if json.Unmarshal(raw, &list) != nil {
		var one string
		if json.Unmarshal(raw, &one) != nil {
			return nil
		}
		list = []any{one}
	}
	var out []string
	for _, v := range list {
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case nil:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// confidence reads a number or numeric string ("85", "85%") and clamps it.
func confidence(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if json.Unmarshal(raw, &f) != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
		if err != nil {
			return 0
		}
		f = v
	}
	if math.IsNaN(f) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}

// stripFences removes a surrounding markdown code fence.
func stripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimLeft(s, "`")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var danglingKey = regexp.MustCompile(`([{,])\s*"(?:[^"\\]|\\.)*"\s*$`)

// RepairJSON closes a JSON document that was cut off: it terminates an open
// string, drops a key left without a value, removes trailing commas and
// closes open arrays and objects. It does not fix any other syntax error.
func RepairJSON(s string) string {
	var (
		b        strings.Builder
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			trimmed := strings.TrimRight(b.String(), " \t\r\n,")
			b.Reset()
			b.WriteString(trimmed)
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
		b.WriteByte(c)
	}

	out := b.String()
	if inString {
		if escaped {
			out = out[:len(out)-1]
		}
		out += `"`
	}
	out = strings.TrimRight(out, " \t\r\n")
	if len(stack) > 0 && stack[len(stack)-1] == '{' {
		if loc := danglingKey.FindStringSubmatchIndex(out); loc != nil {
			out = out[:loc[3]]
		}
	}
	out = strings.TrimRight(out, " \t\r\n,")
	if strings.HasSuffix(out, ":") {
		out += "null"
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			out += "}"
		} else {
			out += "]"
		}
	}
	return out
}
