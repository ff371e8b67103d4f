package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seenimoa/stockpulse/pkg/utils"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements Generator for Google's Gemini generateContent API.
type GeminiProvider struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// GeminiOption configures the Gemini provider.
type GeminiOption func(*GeminiProvider)

// WithGeminiModel sets the model.
func WithGeminiModel(model string) GeminiOption {
	return func(p *GeminiProvider) { p.model = model }
}

// WithGeminiHTTPClient sets a custom HTTP client.
func WithGeminiHTTPClient(client *http.Client) GeminiOption {
	return func(p *GeminiProvider) { p.client = client }
}

// WithGeminiBaseURL overrides the API endpoint.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(p *GeminiProvider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithGeminiTimeout sets the per-call timeout of the default client.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(p *GeminiProvider) {
		if d > 0 {
			p.client = &http.Client{Timeout: d}
		}
	}
}

// WithGeminiTemperature sets the sampling temperature.
func WithGeminiTemperature(t float64) GeminiOption {
	return func(p *GeminiProvider) { p.temperature = t }
}

// WithGeminiMaxTokens caps the reply length.
func WithGeminiMaxTokens(n int) GeminiOption {
	return func(p *GeminiProvider) { p.maxTokens = n }
}

// NewGeminiProvider creates a Gemini provider. An empty or placeholder key
// returns ErrNoAPIKey.
func NewGeminiProvider(apiKey string, opts ...GeminiOption) (*GeminiProvider, error) {
	if utils.IsPlaceholderKey(apiKey) {
		return nil, ErrNoAPIKey
	}
	p := &GeminiProvider{
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
		model:   DefaultGeminiModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

// Model returns the configured model.
func (p *GeminiProvider) Model() string { return p.model }

// Ping verifies the API key by listing models.
func (p *GeminiProvider) Ping(ctx context.Context) error {
	u := fmt.Sprintf("%s/models?key=%s", p.baseURL, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: invalid API key", ErrNoAPIKey)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}
	return nil
}

// Generate sends a single-prompt generateContent request.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (*Response, error) {
	start := time.Now()

	data, err := json.Marshal(p.buildRequest(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	if err := p.checkError(resp); err != nil {
		return nil, err
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}

	r := p.parseResponse(&result, start)
	if strings.TrimSpace(r.Text) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return r, nil
}

// ── Internal Types ──

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generation_config,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate   `json:"candidates"`
	UsageMetadata geminiUsageMetadata `json:"usageMetadata"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ── Helpers ──

func (p *GeminiProvider) buildRequest(prompt string) geminiRequest {
	return geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: prompt}},
		}},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:      p.temperature,
			MaxOutputTokens:  p.maxTokens,
			ResponseMIMEType: "application/json",
		},
	}
}

func (p *GeminiProvider) checkError(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr geminiErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		switch resp.StatusCode {
		case http.StatusForbidden, http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrNoAPIKey, apiErr.Error.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimit, apiErr.Error.Message)
		case http.StatusBadRequest, http.StatusNotFound:
			if strings.Contains(apiErr.Error.Message, "not found") {
				return fmt.Errorf("%w: %s", ErrInvalidModel, apiErr.Error.Message)
			}
		}
		return fmt.Errorf("gemini: API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d", ErrProviderDown, resp.StatusCode)
	}
	return fmt.Errorf("gemini: HTTP %d: %s", resp.StatusCode, string(body))
}

func (p *GeminiProvider) parseResponse(raw *geminiResponse, start time.Time) *Response {
	r := &Response{
		Model:    p.model,
		Provider: ProviderGemini,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     raw.UsageMetadata.PromptTokenCount,
			CompletionTokens: raw.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      raw.UsageMetadata.TotalTokenCount,
		},
		FinishReason: FinishStop,
	}

	if len(raw.Candidates) > 0 {
		candidate := raw.Candidates[0]
		r.FinishReason = mapGeminiFinishReason(candidate.FinishReason)

		var textParts []string
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
		}
		r.Text = strings.Join(textParts, "")
	}
	return r
}

func mapGeminiFinishReason(reason string) FinishReason {
	switch reason {
	case "STOP", "":
		return FinishStop
	case "MAX_TOKENS":
		return FinishLength
	default:
		return FinishReason(strings.ToLower(reason))
	}
}
