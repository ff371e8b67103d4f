package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOllamaURL is the local Ollama server.
const DefaultOllamaURL = "http://localhost:11434"

// DefaultOllamaModel is used when no model is configured.
const DefaultOllamaModel = "qwen2.5:7b"

// OllamaProvider implements Generator for a local Ollama server.
type OllamaProvider struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
}

// OllamaOption configures the Ollama provider.
type OllamaOption func(*OllamaProvider)

// WithOllamaModel sets the model.
func WithOllamaModel(model string) OllamaOption {
	return func(p *OllamaProvider) { p.model = model }
}

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(p *OllamaProvider) { p.client = client }
}

// WithOllamaTimeout sets the per-call timeout of the default client.
func WithOllamaTimeout(d time.Duration) OllamaOption {
	return func(p *OllamaProvider) {
		if d > 0 {
			p.client = &http.Client{Timeout: d}
		}
	}
}

// WithOllamaTemperature sets the sampling temperature.
func WithOllamaTemperature(t float64) OllamaOption {
	return func(p *OllamaProvider) { p.temperature = t }
}

// WithOllamaMaxTokens caps the reply length.
func WithOllamaMaxTokens(n int) OllamaOption {
	return func(p *OllamaProvider) { p.maxTokens = n }
}

// NewOllamaProvider creates an Ollama provider.
// baseURL is the Ollama server URL (e.g., "http://localhost:11434").
func NewOllamaProvider(baseURL string, opts ...OllamaOption) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	p := &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   DefaultOllamaModel,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *OllamaProvider) Name() string { return ProviderOllama }

// Ping checks if the Ollama server is reachable.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderDown, resp.StatusCode)
	}
	return nil
}

// Generate sends prompt to /api/generate with JSON output requested.
func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (*Response, error) {
	start := time.Now()

	body := ollamaGenerateRequest{
		Model:  p.model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
	}
	if p.temperature > 0 || p.maxTokens > 0 {
		body.Options = &ollamaOptions{Temperature: p.temperature, NumPredict: p.maxTokens}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrInvalidModel, string(bodyBytes))
		}
		return nil, fmt.Errorf("ollama: HTTP %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if strings.TrimSpace(result.Response) == "" {
		return nil, fmt.Errorf("ollama: %w", ErrEmptyResponse)
	}

	finish := FinishStop
	if result.DoneReason == "length" {
		finish = FinishLength
	}
	return &Response{
		Text:         result.Response,
		FinishReason: finish,
		Usage: Usage{
			PromptTokens:     result.PromptEvalCount,
			CompletionTokens: result.EvalCount,
			TotalTokens:      result.PromptEvalCount + result.EvalCount,
		},
		Model:    p.model,
		Provider: ProviderOllama,
		Latency:  time.Since(start),
	}, nil
}

// ── Internal Types ──

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Format  string         `json:"format,omitempty"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}
