package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seenimoa/stockpulse/internal/config"
	"github.com/seenimoa/stockpulse/internal/datasource"
	"github.com/seenimoa/stockpulse/internal/infra"
	"github.com/seenimoa/stockpulse/internal/insight"
	"github.com/seenimoa/stockpulse/internal/llm"
	"github.com/seenimoa/stockpulse/internal/reference"
	"github.com/seenimoa/stockpulse/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type stubNews struct {
	articles []models.Article
}

func (n *stubNews) Search(context.Context, datasource.SearchSpec) datasource.SearchResult {
	return datasource.SearchResult{Articles: n.articles, Provider: "stub"}
}

func (n *stubNews) SearchStockNews(_ context.Context, symbol string, _ datasource.SearchSpec) ([]models.Article, error) {
	if symbol == "AAPL" {
		return n.articles, nil
	}
	return nil, nil
}

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Name() string               { return "stub" }
func (g *stubGenerator) Ping(context.Context) error { return nil }

func (g *stubGenerator) Generate(context.Context, string) (*llm.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Response{Text: g.reply, Provider: "stub", Model: "stub-1"}, nil
}

const insightReply = `{"sentiment":"bullish","recommendation":"BUY","keyPoints":["iPhone demand strong"],"riskLevel":"Low","confidence":80}`

func appleNews() *stubNews {
	return &stubNews{articles: []models.Article{
		{
			Title:       "Apple (AAPL) shares surge on record iPhone sales",
			Description: "Apple beat earnings estimates.",
			URL:         "https://example.com/aapl-1",
			SourceName:  "Reuters",
			PublishedAt: testNow.Add(-2 * time.Hour),
		},
		{
			Title:       "Weekend weather report",
			Description: "Sunny skies ahead.",
			URL:         "https://example.com/weather",
			SourceName:  "Local",
			PublishedAt: testNow.Add(-10 * 24 * time.Hour),
		},
	}}
}

func testServer(t *testing.T, gen llm.Generator) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.Context = config.ContextConfig{Budget: 2000, Unit: "tokens", LookbackDays: 7, MaxArticles: 10}
	cfg.LLM.GeminiKey = "AIzaSyExampleKey123"

	mem := infra.NewCache[insight.Result](15*time.Minute, infra.WithClock(func() time.Time { return testNow }))
	svcCfg := insight.ServiceConfig{
		News:       appleNews(),
		Dictionary: reference.Default(),
		Cache:      mem,
		CacheTTL:   15 * time.Minute,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        func() time.Time { return testNow },
	}
	if gen != nil {
		svcCfg.Generator = gen
	}
	svc, err := insight.NewService(svcCfg)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	srv := NewServer(cfg, &insight.Components{Service: svc, Memory: mem}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv.now = func() time.Time { return testNow }
	return srv
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

// decodeData decodes the envelope's data into v.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !env.Success {
		t.Fatalf("expected success=true, error: %q", env.Error)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, contains string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if !strings.Contains(resp.Error, contains) {
		t.Errorf("error should mention %q: %q", contains, resp.Error)
	}
}

// ════════════════════════════════════════════════════════════════════
// Health
// ════════════════════════════════════════════════════════════════════

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, &stubGenerator{reply: insightReply})
	srv.SetVersion("1.2.3")

	for _, path := range []string{"/health", "/api/health", "/api/v1/health"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, srv, "GET", path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type: got %q", ct)
			}
			var h HealthResponse
			decodeData(t, rec, &h)
			if h.Status != "ok" || h.Version != "1.2.3" {
				t.Errorf("unexpected health: %+v", h)
			}
			if h.CacheBackend != "memory" {
				t.Errorf("cache backend: got %q", h.CacheBackend)
			}
			if !h.GenerationEnabled {
				t.Error("expected generation enabled")
			}
			if !h.Time.Equal(testNow) {
				t.Errorf("time: got %v", h.Time)
			}
		})
	}
}

func TestHandleHealth_GenerationDisabled(t *testing.T) {
	srv := testServer(t, nil)
	var h HealthResponse
	decodeData(t, do(t, srv, "GET", "/health", ""), &h)
	if h.GenerationEnabled {
		t.Error("expected generation disabled")
	}
}

// ════════════════════════════════════════════════════════════════════
// News
// ════════════════════════════════════════════════════════════════════

func TestHandleNews(t *testing.T) {
	srv := testServer(t, nil)
	rec := do(t, srv, "GET", "/api/v1/news/AAPL", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	var resp NewsResponse
	decodeData(t, rec, &resp)
	if resp.Symbol != "AAPL" {
		t.Errorf("symbol: got %q", resp.Symbol)
	}
	if len(resp.Articles) != 2 {
		t.Fatalf("articles: got %d, want 2", len(resp.Articles))
	}
	if resp.Articles[0].Article.URL != "https://example.com/aapl-1" {
		t.Errorf("best article: got %q", resp.Articles[0].Article.URL)
	}
	if resp.Articles[0].Score <= resp.Articles[1].Score {
		t.Errorf("articles not sorted by score: %v, %v", resp.Articles[0].Score, resp.Articles[1].Score)
	}
	if resp.Tone.ArticleCount != 2 {
		t.Errorf("tone article count: got %d", resp.Tone.ArticleCount)
	}
}

func TestHandleNews_Limit(t *testing.T) {
	srv := testServer(t, nil)
	var resp NewsResponse
	decodeData(t, do(t, srv, "GET", "/api/v1/news/AAPL?max=1&lookback=3", ""), &resp)
	if len(resp.Articles) != 1 {
		t.Fatalf("articles: got %d, want 1", len(resp.Articles))
	}
}

func TestHandleNews_InvalidParams(t *testing.T) {
	srv := testServer(t, nil)
	tests := []struct {
		path     string
		contains string
	}{
		{"/api/v1/news/AAPL?lookback=abc", "lookback"},
		{"/api/v1/news/AAPL?max=1.5", "max"},
		{"/api/v1/news/AAPL?lookback=-1", "lookbackDays"},
		{"/api/v1/news/AAPL?max=-3", "maxArticles"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			expectError(t, do(t, srv, "GET", tt.path, ""), http.StatusBadRequest, tt.contains)
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Context
// ════════════════════════════════════════════════════════════════════

func TestHandleContext(t *testing.T) {
	srv := testServer(t, nil)
	rec := do(t, srv, "GET", "/api/v1/context?target=%24aapl", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}

	var res insight.ContextResult
	decodeData(t, rec, &res)
	if res.Target != "AAPL" {
		t.Errorf("target: got %q", res.Target)
	}
	if !strings.HasPrefix(res.Context.SummaryText, "Recent news about AAPL:") {
		t.Errorf("summary: %q", res.Context.SummaryText)
	}
	// The weather article is irrelevant and dropped.
	if res.Context.ArticleCount != 1 || len(res.Citations) != 1 {
		t.Errorf("expected one included article, got %d (%d citations)", res.Context.ArticleCount, len(res.Citations))
	}
	if res.Tokens <= 0 {
		t.Errorf("tokens: got %d", res.Tokens)
	}
}

func TestHandleContext_MissingTarget(t *testing.T) {
	srv := testServer(t, nil)
	expectError(t, do(t, srv, "GET", "/api/v1/context", ""), http.StatusBadRequest, "target")
}

// ════════════════════════════════════════════════════════════════════
// Insights
// ════════════════════════════════════════════════════════════════════

func TestHandleInsightSymbol(t *testing.T) {
	srv := testServer(t, &stubGenerator{reply: insightReply})

	var first insight.Result
	decodeData(t, do(t, srv, "GET", "/api/v1/insights/AAPL", ""), &first)
	if first.Insight.Sentiment != models.SentimentBullish || first.Insight.Recommendation != models.RecommendBuy {
		t.Errorf("unexpected insight: %+v", first.Insight)
	}
	if first.Insight.Confidence != 80 {
		t.Errorf("confidence: got %d", first.Insight.Confidence)
	}
	if first.Cached {
		t.Error("first call should not be cached")
	}
	if len(first.Citations) != 1 {
		t.Errorf("citations: got %d", len(first.Citations))
	}

	var second insight.Result
	decodeData(t, do(t, srv, "GET", "/api/v1/insights/AAPL", ""), &second)
	if !second.Cached {
		t.Error("second call should be served from cache")
	}
}

func TestHandleInsightQuery(t *testing.T) {
	srv := testServer(t, &stubGenerator{reply: insightReply})
	var res insight.Result
	decodeData(t, do(t, srv, "GET", "/api/v1/insights?q=How+is+AAPL+doing", ""), &res)
	if len(res.Symbols) != 1 || res.Symbols[0] != "AAPL" {
		t.Errorf("symbols: got %v", res.Symbols)
	}
	if res.Insight.RiskLevel != models.RiskLow {
		t.Errorf("risk level: got %q", res.Insight.RiskLevel)
	}
}

func TestHandleInsightPost(t *testing.T) {
	srv := testServer(t, &stubGenerator{reply: insightReply})
	var res insight.Result
	decodeData(t, do(t, srv, "POST", "/api/v1/insights", `{"target":"AAPL","maxArticles":1}`), &res)
	if res.Target != "AAPL" {
		t.Errorf("target: got %q", res.Target)
	}
}

func TestHandleInsight_Failures(t *testing.T) {
	tests := []struct {
		name     string
		gen      llm.Generator
		method   string
		path     string
		body     string
		status   int
		contains string
	}{
		{"no generator", nil, "GET", "/api/v1/insights/AAPL", "", http.StatusBadGateway, "analysis failed"},
		{"rate limited", &stubGenerator{err: llm.ErrRateLimit}, "GET", "/api/v1/insights/AAPL", "", http.StatusBadGateway, "rate limit"},
		{"malformed reply", &stubGenerator{reply: "I cannot help with that."}, "GET", "/api/v1/insights/AAPL", "", http.StatusBadGateway, "analysis failed"},
		{"empty query", &stubGenerator{reply: insightReply}, "GET", "/api/v1/insights?q=", "", http.StatusBadRequest, "target"},
		{"invalid body", &stubGenerator{reply: insightReply}, "POST", "/api/v1/insights", "{bad", http.StatusBadRequest, "invalid request body"},
		{"negative max", &stubGenerator{reply: insightReply}, "POST", "/api/v1/insights", `{"target":"AAPL","maxArticles":-1}`, http.StatusBadRequest, "maxArticles"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := testServer(t, tt.gen)
			expectError(t, do(t, srv, tt.method, tt.path, tt.body), tt.status, tt.contains)
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Symbols
// ════════════════════════════════════════════════════════════════════

func TestHandleExtractSymbols(t *testing.T) {
	srv := testServer(t, nil)
	var resp ExtractResponse
	decodeData(t, do(t, srv, "POST", "/api/v1/symbols/extract", `{"text":"compare AAPL with MSFT"}`), &resp)
	if len(resp.Symbols) != 2 || resp.Symbols[0] != "AAPL" || resp.Symbols[1] != "MSFT" {
		t.Errorf("symbols: got %v", resp.Symbols)
	}
}

func TestHandleExtractSymbols_NoneFound(t *testing.T) {
	srv := testServer(t, nil)
	rec := do(t, srv, "POST", "/api/v1/symbols/extract", `{"text":"what moved markets today?"}`)
	if !strings.Contains(rec.Body.String(), `"symbols":[]`) {
		t.Errorf("expected an empty list: %s", rec.Body.String())
	}
}

func TestHandleExtractSymbols_Invalid(t *testing.T) {
	srv := testServer(t, nil)
	expectError(t, do(t, srv, "POST", "/api/v1/symbols/extract", "{bad"), http.StatusBadRequest, "invalid request body")
	expectError(t, do(t, srv, "POST", "/api/v1/symbols/extract", `{"text":""}`), http.StatusBadRequest, "text")
}

// ════════════════════════════════════════════════════════════════════
// Config
// ════════════════════════════════════════════════════════════════════

func TestHandleGetConfig(t *testing.T) {
	srv := testServer(t, nil)
	rec := do(t, srv, "GET", "/api/v1/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if strings.Contains(body, "AIzaSyExampleKey123") {
		t.Error("config response leaks the raw API key")
	}
	if !strings.Contains(body, "AIz...123") {
		t.Errorf("expected masked key in %s", body)
	}
}

func TestHandleGetConfigKeys(t *testing.T) {
	srv := testServer(t, nil)
	var keys []config.KeyStatus
	decodeData(t, do(t, srv, "GET", "/api/v1/config/keys", ""), &keys)
	if len(keys) != 3 {
		t.Fatalf("keys: got %d, want 3", len(keys))
	}
}

// ════════════════════════════════════════════════════════════════════
// Metrics and plumbing
// ════════════════════════════════════════════════════════════════════

func TestMetricsEndpoint(t *testing.T) {
	srv := testServer(t, nil)
	do(t, srv, "GET", "/api/v1/context?target=AAPL", "")

	rec := do(t, srv, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "stockpulse_") {
		t.Error("expected stockpulse metrics in exposition")
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusCreated, APIResponse{
		Success: true,
		Data:    "hello",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusCreated)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}

	resp := decodeResponse(t, rec)
	if !resp.Success || resp.Data != "hello" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusNotFound, "not found")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusNotFound)
	}

	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error != "not found" {
		t.Errorf("error: got %q, want %q", resp.Error, "not found")
	}
}

func TestWriteServiceError(t *testing.T) {
	srv := testServer(t, nil)
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", models.NewValidationError("target", "must not be empty"), http.StatusBadRequest},
		{"analysis", errors.Join(insight.ErrAnalysisFailed, llm.ErrProviderDown), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.writeServiceError(rec, httptest.NewRequest("GET", "/x", nil), tt.err)
			if rec.Code != tt.status {
				t.Errorf("status: got %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestListenAndServeShutsDownOnCancel(t *testing.T) {
	srv := testServer(t, nil)
	srv.cfg.Cache.SweepIntervalSec = 1

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServe: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
