package config

import (
	"os"

	"github.com/seenimoa/stockpulse/pkg/utils"
)

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name        string       `json:"name"`
	EnvVar      string       `json:"env_var"`
	Source      APIKeySource `json:"source"`
	IsSet       bool         `json:"is_set"`
	Placeholder bool         `json:"placeholder"`
	Masked      string       `json:"masked,omitempty"` // e.g., "abc...xyz"
}

// Usable reports whether the key can be sent to its provider.
func (k KeyStatus) Usable() bool { return k.IsSet && !k.Placeholder }

// CheckAPIKeys returns the status of every provider credential.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("NewsAPI Key", cfg.News.NewsAPIKey, "NEWSAPI_KEY", "STOCKPULSE_NEWS_NEWSAPI_KEY"),
		checkKey("GNews API Key", cfg.News.GNewsKey, "GNEWS_API_KEY", "STOCKPULSE_NEWS_GNEWS_KEY"),
		checkKey("Gemini API Key", cfg.LLM.GeminiKey, "GEMINI_API_KEY", "STOCKPULSE_LLM_GEMINI_KEY"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:   name,
		EnvVar: envVars[0],
		IsSet:  value != "",
		Source: KeySourceNone,
	}
	if value == "" {
		return status
	}

	status.Source = KeySourceConfig
	for _, env := range envVars {
		if os.Getenv(env) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Placeholder = IsPlaceholder(value)
	if !status.Placeholder {
		status.Masked = utils.MaskKey(value)
	}
	return status
}
