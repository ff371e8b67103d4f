package utils

import "strings"

// placeholderKeys are the default values shipped in sample configs and .env
// files. A key still set to one of these is treated as absent.
var placeholderKeys = map[string]struct{}{
	"your_newsapi_key_here":    {},
	"your_gnews_api_key_here":  {},
	"your_gemini_api_key_here": {},
	"your-api-key":             {},
	"your_api_key":             {},
	"changeme":                 {},
	"placeholder":              {},
	"xxx":                      {},
}

// IsPlaceholderKey reports whether key is empty or a known placeholder.
func IsPlaceholderKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return true
	}
	if _, ok := placeholderKeys[k]; ok {
		return true
	}
	return strings.HasPrefix(k, "your_") || strings.HasPrefix(k, "your-")
}

// MaskKey masks an API key for display, showing only the first and last 3 chars.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
