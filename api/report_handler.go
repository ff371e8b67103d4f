package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/stockpulse/internal/report"
)

// handleInsightReport generates an insight and renders it as a document.
// Query: format=text|html|markdown, context=true to embed the news context.
func (s *Server) handleInsightReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	p, err := s.paramsFromQuery(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	res, err := s.svc.GenerateInsight(r.Context(), chi.URLParam(r, "symbol"), p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	rcfg := report.DefaultReportConfig()
	rcfg.Format = format
	rcfg.Now = s.now
	rcfg.ShowContext, _ = strconv.ParseBool(q.Get("context"))

	out, err := report.Generate(res, rcfg)
	if err != nil {
		s.logger.Error("report rendering failed", "target", res.Target, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
