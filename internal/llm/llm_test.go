package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/stockpulse/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// gemini.go
// ════════════════════════════════════════════════════════════════════

func TestGeminiProviderNew(t *testing.T) {
	for _, key := range []string{"", "your_gemini_api_key_here"} {
		_, err := NewGeminiProvider(key)
		assert.ErrorIs(t, err, ErrNoAPIKey)
	}

	p, err := NewGeminiProvider("test-key", WithGeminiModel("gemini-1.5-pro"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	assert.Equal(t, "gemini-1.5-pro", p.Model())
	assert.Equal(t, DefaultTimeout, p.client.Timeout)
}

func TestGeminiGenerate(t *testing.T) {
	var gotReq geminiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gem-key", r.URL.Query().Get("key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{
					Role:  "model",
					Parts: []geminiPart{{Text: `{"sentiment":`}, {Text: `"bullish"}`}},
				},
				FinishReason: "STOP",
			}},
			UsageMetadata: geminiUsageMetadata{PromptTokenCount: 10, CandidatesTokenCount: 8, TotalTokenCount: 18},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewGeminiProvider("gem-key", WithGeminiBaseURL(server.URL), WithGeminiTemperature(0.2), WithGeminiMaxTokens(512))
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), "analyze AAPL")
	require.NoError(t, err)
	assert.Equal(t, `{"sentiment":"bullish"}`, resp.Text)
	assert.Equal(t, "gemini", resp.Provider)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, FinishStop, resp.FinishReason)

	require.Len(t, gotReq.Contents, 1)
	assert.Equal(t, "user", gotReq.Contents[0].Role)
	assert.Equal(t, "analyze AAPL", gotReq.Contents[0].Parts[0].Text)
	require.NotNil(t, gotReq.GenerationConfig)
	assert.Equal(t, 0.2, gotReq.GenerationConfig.Temperature)
	assert.Equal(t, 512, gotReq.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, "application/json", gotReq.GenerationConfig.ResponseMIMEType)
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad key", http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`, ErrNoAPIKey},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, ErrRateLimit},
		{"bad model", http.StatusNotFound, `{"error":{"code":404,"message":"models/nope is not found","status":"NOT_FOUND"}}`, ErrInvalidModel},
		{"server down", http.StatusBadGateway, `bad gateway`, ErrProviderDown},
		{"no candidates", http.StatusOK, `{"candidates":[]}`, ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, _ := NewGeminiProvider("gem-key", WithGeminiBaseURL(server.URL))
			_, err := p.Generate(context.Background(), "hi")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGeminiTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p, _ := NewGeminiProvider("gem-key", WithGeminiBaseURL(server.URL), WithGeminiTimeout(20*time.Millisecond))
	_, err := p.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrProviderDown)
}

func TestGeminiPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/models") {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p, _ := NewGeminiProvider("gem-key", WithGeminiBaseURL(server.URL))
	assert.NoError(t, p.Ping(context.Background()))
}

func TestGeminiCustomHTTPClient(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	p, _ := NewGeminiProvider("key", WithGeminiHTTPClient(client))
	assert.Same(t, client, p.client)
}

// ════════════════════════════════════════════════════════════════════
// ollama.go
// ════════════════════════════════════════════════════════════════════

func TestOllamaGenerate(t *testing.T) {
	var gotReq ollamaGenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write([]byte(`{"model":"qwen2.5:7b","response":"{\"sentiment\":\"neutral\"}","done":true,"done_reason":"stop","prompt_eval_count":12,"eval_count":6}`))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(server.URL+"/", WithOllamaMaxTokens(300))
	require.NoError(t, err)

	resp, err := p.Generate(context.Background(), "analyze TSLA")
	require.NoError(t, err)
	assert.Equal(t, `{"sentiment":"neutral"}`, resp.Text)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.Equal(t, "ollama", resp.Provider)

	assert.Equal(t, "analyze TSLA", gotReq.Prompt)
	assert.Equal(t, "json", gotReq.Format)
	assert.False(t, gotReq.Stream)
	require.NotNil(t, gotReq.Options)
	assert.Equal(t, 300, gotReq.Options.NumPredict)
}

func TestOllamaHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'nope' not found"}`))
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL, WithOllamaModel("nope"))
	_, err := p.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrInvalidModel)
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p, _ := NewOllamaProvider(server.URL)
	assert.NoError(t, p.Ping(context.Background()))
}

// ════════════════════════════════════════════════════════════════════
// provider.go
// ════════════════════════════════════════════════════════════════════

func TestNewGenerator(t *testing.T) {
	g, err := New(ProviderConfig{Provider: ProviderGemini, APIKey: "k", Model: "gemini-1.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, g.Name())

	g, err = New(ProviderConfig{Provider: ProviderOllama})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, g.Name())

	_, err = New(ProviderConfig{Provider: ProviderGemini, APIKey: "your_gemini_api_key_here"})
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = New(ProviderConfig{Provider: "clippy"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestResponseString(t *testing.T) {
	r := &Response{Provider: "gemini", Model: "m", Text: strings.Repeat("x", 150), Latency: time.Second}
	s := r.String()
	assert.Contains(t, s, "[gemini/m]")
	assert.Contains(t, s, "...")
}

// ════════════════════════════════════════════════════════════════════
// insight.go
// ════════════════════════════════════════════════════════════════════

func TestBuildInsightPrompt(t *testing.T) {
	ctx := models.CompressedContext{SummaryText: "Recent news about AAPL:\n- Apple beats (Reuters, Today)", ArticleCount: 1}
	p := BuildInsightPrompt("AAPL", ctx)
	assert.Contains(t, p, "about AAPL")
	assert.Contains(t, p, `"keyPoints": [1 to 5 short strings]`)
	assert.True(t, strings.HasSuffix(p, ctx.SummaryText))
	assert.NotContains(t, p, "keep confidence low")

	empty := BuildInsightPrompt("AAPL", models.CompressedContext{SummaryText: "No recent news articles found."})
	assert.Contains(t, empty, "keep confidence low")
}

func TestParseInsight(t *testing.T) {
	full := models.Insight{
		Sentiment:      models.SentimentBullish,
		Recommendation: models.RecommendBuy,
		KeyPoints:      []string{"Record revenue", "Raised guidance"},
		RiskLevel:      models.RiskLow,
		Confidence:     82,
	}
	tests := []struct {
		name string
		in   string
		want models.Insight
	}{
		{
			name: "plain",
			in:   `{"sentiment":"bullish","recommendation":"BUY","keyPoints":["Record revenue","Raised guidance"],"riskLevel":"Low","confidence":82}`,
			want: full,
		},
		{
			name: "fenced",
			in:   "```json\n{\"sentiment\":\"bullish\",\"recommendation\":\"BUY\",\"keyPoints\":[\"Record revenue\",\"Raised guidance\"],\"riskLevel\":\"Low\",\"confidence\":82}\n```",
			want: full,
		},
		{
			name: "prose around",
			in:   `Here is the analysis: {"sentiment":"Bullish","recommendation":"buy","keyPoints":["Record revenue","Raised guidance"],"riskLevel":"low","confidence":"82%"} Hope this helps.`,
			want: full,
		},
		{
			name: "truncated mid string",
			in:   `{"sentiment":"bearish","recommendation":"SELL","keyPoints":["Weak demand","Margin pres`,
			want: models.Insight{
				Sentiment:      models.SentimentBearish,
				Recommendation: models.RecommendSell,
				KeyPoints:      []string{"Weak demand", "Margin pres"},
				RiskLevel:      models.RiskMedium,
				Confidence:     0,
			},
		},
		{
			name: "truncated after key",
			in:   "```json\n{\"sentiment\":\"neutral\",\"keyPoints\":[\"Mixed signals\"],\"confidence\":55,\"riskLev",
			want: models.Insight{
				Sentiment:      models.SentimentNeutral,
				Recommendation: models.RecommendHold,
				KeyPoints:      []string{"Mixed signals"},
				RiskLevel:      models.RiskMedium,
				Confidence:     55,
			},
		},
		{
			name: "unknown enums and out of range confidence",
			in:   `{"sentiment":"euphoric","recommendation":"STRONG BUY","keyPoints":["a","b","c","d","e","f","g"],"riskLevel":"extreme","confidence":140}`,
			want: models.Insight{
				Sentiment:      models.SentimentNeutral,
				Recommendation: models.RecommendHold,
				KeyPoints:      []string{"a", "b", "c", "d", "e"},
				RiskLevel:      models.RiskMedium,
				Confidence:     100,
			},
		},
		{
			name: "snake case and single key point",
			in:   `{"sentiment":"bearish","recommendation":"HOLD","key_points":"Only one","risk_level":"High","confidence":-5}`,
			want: models.Insight{
				Sentiment:      models.SentimentBearish,
				Recommendation: models.RecommendHold,
				KeyPoints:      []string{"Only one"},
				RiskLevel:      models.RiskHigh,
				Confidence:     0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInsight(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInsightFailures(t *testing.T) {
	for _, in := range []string{
		"",
		"I cannot help with that.",
		`{"sentiment":"bullish","keyPoints":[]}`,
		`{"sentiment":"bullish"}`,
		`{"sentiment": tru`,
	} {
		_, err := ParseInsight(in)
		assert.True(t, errors.Is(err, ErrMalformedInsight), "input %q: %v", in, err)
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{`{"a":"x`, `{"a":"x"}`},
		{`{"a":["x","y`, `{"a":["x","y"]}`},
		{`{"a":1,"b`, `{"a":1}`},
		{`{"a":1,"b":`, `{"a":1,"b":null}`},
		{`{"a":[1,2,],}`, `{"a":[1,2]}`},
		{`{"a":"say \"hi\"`, `{"a":"say \"hi\""}`},
		{`{"a":"trailing \`, `{"a":"trailing "}`},
		{`{"a":{"b":[{"c":"d`, `{"a":{"b":[{"c":"d"}]}}`},
	}
	for _, tt := range tests {
		got := RepairJSON(tt.in)
		assert.Equal(t, tt.want, got, "RepairJSON(%q)", tt.in)
		assert.True(t, json.Valid([]byte(got)), "RepairJSON(%q) = %q is not valid JSON", tt.in, got)
	}
}
