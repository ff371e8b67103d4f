// Package api provides the HTTP REST API server for stockpulse.
//
// It exposes endpoints for scored news, compressed insight contexts,
// generated insights, symbol extraction, configuration status and
// Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seenimoa/stockpulse/internal/analysis/sentiment"
	"github.com/seenimoa/stockpulse/internal/config"
	"github.com/seenimoa/stockpulse/internal/infra"
	"github.com/seenimoa/stockpulse/internal/insight"
	"github.com/seenimoa/stockpulse/pkg/models"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 15 * time.Second

// Server is the HTTP API server.
type Server struct {
	router       chi.Router
	cfg          *config.Config
	svc          *insight.Service
	memory       *infra.Cache[insight.Result] // nil when Redis holds the cache
	cacheBackend string
	logger       *slog.Logger
	version      string
	now          func() time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, comps *insight.Components, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		cfg:          cfg,
		svc:          comps.Service,
		memory:       comps.Memory,
		cacheBackend: comps.CacheBackend(),
		logger:       logger,
		version:      "dev",
		now:          time.Now,
	}
	srv.router = srv.buildRouter()
	return srv
}

// SetVersion sets the version reported by the health endpoint.
func (s *Server) SetVersion(v string) {
	s.version = v
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. The in-memory cache is swept while the server runs.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.memory != nil && s.cfg.Cache.SweepInterval() > 0 {
		go s.memory.RunSweeper(ctx, s.cfg.Cache.SweepInterval(), s.logger)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)
	r.Get("/api/health", s.handleHealth)

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// News
		r.Get("/news/{symbol}", s.handleNews)

		// Context
		r.Get("/context", s.handleContext)

		// Insights
		r.Get("/insights", s.handleInsightQuery)
		r.Post("/insights", s.handleInsightPost)
		r.Get("/insights/{symbol}", s.handleInsightSymbol)
		r.Get("/insights/{symbol}/report", s.handleInsightReport)

		// Symbols
		r.Post("/symbols/extract", s.handleExtractSymbols)

		// Configuration
		r.Get("/config", s.handleGetConfig)
		r.Get("/config/keys", s.handleGetConfigKeys)
	})

	return r
}

// requestLogger logs one line per request through slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse is the payload of the health endpoints.
type HealthResponse struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	CacheBackend      string    `json:"cacheBackend"`
	GenerationEnabled bool      `json:"generationEnabled"`
	Time              time.Time `json:"time"`
}

// NewsResponse is the payload of GET /api/v1/news/{symbol}.
type NewsResponse struct {
	Symbol   string                 `json:"symbol"`
	Articles []models.ScoredArticle `json:"articles"`
	Tone     sentiment.Tone         `json:"tone"`
}

// InsightRequest is the body for POST /api/v1/insights.
type InsightRequest struct {
	Target       string `json:"target"`
	LookbackDays int    `json:"lookbackDays,omitempty"`
	MaxArticles  int    `json:"maxArticles,omitempty"`
}

// ExtractRequest is the body for POST /api/v1/symbols/extract.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse lists the symbols found in a text.
type ExtractResponse struct {
	Symbols []string `json:"symbols"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:            "ok",
			Version:           s.version,
			CacheBackend:      s.cacheBackend,
			GenerationEnabled: s.svc.CanGenerate(),
			Time:              s.now().UTC(),
		},
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	p, err := s.paramsFromQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	symbol := chi.URLParam(r, "symbol")
	scored, err := s.svc.SearchNews(r.Context(), symbol, p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	articles := make([]models.Article, len(scored))
	for i, sa := range scored {
		articles[i] = sa.Article
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: NewsResponse{
			Symbol:   symbol,
			Articles: scored,
			Tone:     sentiment.Analyze(articles, s.now()),
		},
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	p, err := s.paramsFromQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	res, err := s.svc.GetInsightContext(r.Context(), r.URL.Query().Get("target"), p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleInsightSymbol(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, chi.URLParam(r, "symbol"))
}

func (s *Server) handleInsightQuery(w http.ResponseWriter, r *http.Request) {
	s.generate(w, r, r.URL.Query().Get("q"))
}

func (s *Server) handleInsightPost(w http.ResponseWriter, r *http.Request) {
	var req InsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p := s.defaultParams()
	if req.LookbackDays != 0 {
		p.LookbackDays = req.LookbackDays
	}
	if req.MaxArticles != 0 {
		p.MaxArticles = req.MaxArticles
	}
	s.respondInsight(w, r, req.Target, p)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, target string) {
	p, err := s.paramsFromQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respondInsight(w, r, target, p)
}

func (s *Server) respondInsight(w http.ResponseWriter, r *http.Request, target string, p insight.Params) {
	res, err := s.svc.GenerateInsight(r.Context(), target, p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

func (s *Server) handleExtractSymbols(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	symbols := s.svc.ExtractSymbols(req.Text)
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    ExtractResponse{Symbols: symbols},
	})
}

// ============================================================
// Helpers
// ============================================================

// defaultParams are the configured retrieval defaults.
func (s *Server) defaultParams() insight.Params {
	return insight.Params{
		LookbackDays: s.cfg.Context.LookbackDays,
		MaxArticles:  s.cfg.Context.MaxArticles,
	}
}

// paramsFromQuery reads ?lookback= and ?max= over the configured defaults.
func (s *Server) paramsFromQuery(r *http.Request) (insight.Params, error) {
	p := s.defaultParams()
	q := r.URL.Query()
	if v := q.Get("lookback"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, models.NewValidationError("lookback", "must be an integer")
		}
		p.LookbackDays = n
	}
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, models.NewValidationError("max", "must be an integer")
		}
		p.MaxArticles = n
	}
	return p, nil
}

// writeServiceError maps pipeline errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *models.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, insight.ErrAnalysisFailed):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
