package api

import (
	"net/http"

	"github.com/seenimoa/stockpulse/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config       config.Config `json:"config"`
	CacheBackend string        `json:"cacheBackend"`
}

// handleGetConfig returns the running configuration with credentials masked.
// The cache backend reported is the one in use, which differs from the
// configured one after a Redis fallback.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:       s.cfg.Redacted(),
			CacheBackend: s.cacheBackend,
		},
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	keys := config.CheckAPIKeys(s.cfg)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    keys,
	})
}
