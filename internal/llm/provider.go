// Package llm talks to the generative-analysis model. A Generator sends one
// text prompt and returns the model's text; the insight helpers build that
// prompt from a compressed news context and recover the structured insight
// from the reply.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names for configuration.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 30 * time.Second

// Common errors returned by generators.
var (
	ErrNoAPIKey         = errors.New("llm: API key not configured")
	ErrRateLimit        = errors.New("llm: rate limit exceeded")
	ErrProviderDown     = errors.New("llm: provider unavailable")
	ErrInvalidModel     = errors.New("llm: invalid model")
	ErrEmptyResponse    = errors.New("llm: empty response")
	ErrMalformedInsight = errors.New("llm: malformed insight")
	ErrUnknownProvider  = errors.New("llm: unknown provider")
)

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishError  FinishReason = "error"
)

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a complete generation.
type Response struct {
	Text         string        `json:"text"`
	FinishReason FinishReason  `json:"finish_reason"`
	Usage        Usage         `json:"usage"`
	Model        string        `json:"model"`
	Provider     string        `json:"provider"`
	Latency      time.Duration `json:"latency"`
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	text := r.Text
	if len(text) > 100 {
		text = text[:100] + "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, text, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}

// Generator is a model backend that answers a single prompt.
type Generator interface {
	// Name returns the provider identifier (e.g., "gemini").
	Name() string

	// Generate sends prompt and returns the complete reply.
	Generate(ctx context.Context, prompt string) (*Response, error)

	// Ping checks that the provider is reachable and the credentials work.
	Ping(ctx context.Context) error
}

// ProviderConfig holds the settings used to build a Generator.
type ProviderConfig struct {
	Provider    string        `json:"provider"`
	APIKey      string        `json:"api_key,omitempty"`
	BaseURL     string        `json:"base_url,omitempty"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultProviderConfig returns the defaults for insight generation.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Provider:    ProviderGemini,
		Model:       DefaultGeminiModel,
		Temperature: 0.3,
		MaxTokens:   1024,
		Timeout:     DefaultTimeout,
	}
}

// New builds the Generator named by cfg.Provider.
func New(cfg ProviderConfig) (Generator, error) {
	switch cfg.Provider {
	case "", ProviderGemini:
		opts := []GeminiOption{
			WithGeminiTemperature(cfg.Temperature),
			WithGeminiMaxTokens(cfg.MaxTokens),
			WithGeminiTimeout(cfg.Timeout),
		}
		if cfg.Model != "" {
			opts = append(opts, WithGeminiModel(cfg.Model))
		}
		if cfg.BaseURL != "" {
			opts = append(opts, WithGeminiBaseURL(cfg.BaseURL))
		}
		return NewGeminiProvider(cfg.APIKey, opts...)
	case ProviderOllama:
		opts := []OllamaOption{
			WithOllamaTemperature(cfg.Temperature),
			WithOllamaMaxTokens(cfg.MaxTokens),
			WithOllamaTimeout(cfg.Timeout),
		}
		if cfg.Model != "" {
			opts = append(opts, WithOllamaModel(cfg.Model))
		}
		return NewOllamaProvider(cfg.BaseURL, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
