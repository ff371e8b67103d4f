package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/seenimoa/stockpulse/internal/analysis/sentiment"
	"github.com/seenimoa/stockpulse/internal/insight"
	"github.com/seenimoa/stockpulse/pkg/models"
	"github.com/seenimoa/stockpulse/pkg/utils"
)

// ErrNoResult is returned when there is nothing to render.
var ErrNoResult = errors.New("report: result is nil")

// ReportFormat specifies the output format.
type ReportFormat string

const (
	FormatHTML     ReportFormat = "html"
	FormatMarkdown ReportFormat = "markdown"
	FormatText     ReportFormat = "text"
)

// ParseFormat maps a user-supplied name onto a ReportFormat.
func ParseFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "html":
		return FormatHTML, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", models.NewValidationError("format", fmt.Sprintf("unknown report format %q", s))
	}
}

// ContentType is the MIME type of a rendered report.
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ReportConfig controls report generation behaviour.
type ReportConfig struct {
	Format      ReportFormat
	Title       string // default: "<target>: News Insight"
	Author      string // default: "stockpulse"
	ShowContext bool   // include the compressed news context verbatim
	Now         func() time.Time
}

// DefaultReportConfig returns sensible defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Format: FormatText,
		Author: "stockpulse",
		Now:    time.Now,
	}
}

// ════════════════════════════════════════════════════════════════════
// Report Data: flattened for template rendering
// ════════════════════════════════════════════════════════════════════

// ReportData is the template model passed to the renderers.
type ReportData struct {
	Title       string
	Target      string
	Symbols     string
	Author      string
	GeneratedAt string
	Model       string
	Cached      bool

	Sentiment           string
	Recommendation      string
	RecommendationClass string // CSS class: buy, hold, sell
	RiskLevel           string
	Confidence          int
	KeyPoints           []string

	ToneLabel    string
	ToneScore    string
	ToneArticles int

	Sources     []SourceRow
	Context     string
	ShowContext bool

	ConfidenceGauge template.HTML
	ToneGauge       template.HTML
}

// SourceRow is a flattened citation.
type SourceRow struct {
	Title  string
	URL    string
	Source string
	Age    string
}

// ════════════════════════════════════════════════════════════════════
// Generate Report
// ════════════════════════════════════════════════════════════════════

// Generate renders res in cfg.Format.
func Generate(res *insight.Result, cfg ReportConfig) (string, error) {
	switch cfg.Format {
	case FormatHTML:
		return GenerateHTML(res, cfg)
	case FormatMarkdown:
		return GenerateMarkdown(res, cfg)
	default:
		return GenerateText(res, cfg)
	}
}

// GenerateHTML renders a self-contained HTML report.
func GenerateHTML(res *insight.Result, cfg ReportConfig) (string, error) {
	if res == nil {
		return "", ErrNoResult
	}
	data := buildReportData(res, cfg)

	tmpl, err := template.New("report").Parse(ReportTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// GenerateText renders a plain-text report (terminal / CLI friendly).
func GenerateText(res *insight.Result, cfg ReportConfig) (string, error) {
	if res == nil {
		return "", ErrNoResult
	}
	return renderTextReport(buildReportData(res, cfg)), nil
}

// GenerateMarkdown renders a Markdown report.
func GenerateMarkdown(res *insight.Result, cfg ReportConfig) (string, error) {
	if res == nil {
		return "", ErrNoResult
	}
	return renderMarkdownReport(buildReportData(res, cfg)), nil
}

// ════════════════════════════════════════════════════════════════════
// Internal: build template data
// ════════════════════════════════════════════════════════════════════

func buildReportData(res *insight.Result, cfg ReportConfig) ReportData {
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	ins := res.Insight

	data := ReportData{
		Title:       cfg.Title,
		Target:      res.Target,
		Symbols:     strings.Join(res.Symbols, ", "),
		Author:      cfg.Author,
		GeneratedAt: res.GeneratedAt.UTC().Format("02 Jan 2006, 15:04 UTC"),
		Model:       strings.Trim(res.Provider+"/"+res.Model, "/"),
		Cached:      res.Cached,

		Sentiment:           titleCase(string(ins.Sentiment)),
		Recommendation:      string(ins.Recommendation),
		RecommendationClass: strings.ToLower(string(ins.Recommendation)),
		RiskLevel:           string(ins.RiskLevel),
		Confidence:          ins.Confidence,
		KeyPoints:           ins.KeyPoints,

		ToneLabel:    res.Tone.Label,
		ToneScore:    fmt.Sprintf("%+.2f", res.Tone.Score),
		ToneArticles: res.Tone.ArticleCount,

		Context:     res.Context.SummaryText,
		ShowContext: cfg.ShowContext,

		ConfidenceGauge: template.HTML(GaugeChart(float64(ins.Confidence), "Confidence", 180)),
		ToneGauge:       template.HTML(ToneGauge(res.Tone.Score, "News tone", 180)),
	}
	if data.Title == "" {
		data.Title = res.Target + ": News Insight"
	}
	if data.Author == "" {
		data.Author = "stockpulse"
	}
	if data.ToneLabel == "" {
		data.ToneLabel = sentiment.LabelNeutral
	}
	if res.GeneratedAt.IsZero() {
		data.GeneratedAt = now().UTC().Format("02 Jan 2006, 15:04 UTC")
	}

	at := now()
	for _, c := range res.Citations {
		data.Sources = append(data.Sources, SourceRow{
			Title:  c.Title,
			URL:    c.URL,
			Source: c.SourceName,
			Age:    utils.RelativeDateLabel(c.PublishedAt, at),
		})
	}
	return data
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ════════════════════════════════════════════════════════════════════
// Plain-text renderer
// ════════════════════════════════════════════════════════════════════

func renderTextReport(d ReportData) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	sb.WriteString(fmt.Sprintf("  Generated: %s | Author: %s\n", d.GeneratedAt, d.Author))
	if d.Model != "" {
		cached := ""
		if d.Cached {
			cached = " (cached)"
		}
		sb.WriteString(fmt.Sprintf("  Model: %s%s\n", d.Model, cached))
	}
	sb.WriteString(line + "\n\n")

	if d.Symbols != "" && d.Symbols != d.Target {
		sb.WriteString(fmt.Sprintf("  Symbols: %s\n", d.Symbols))
	}

	sb.WriteString("\n  ★ RECOMMENDATION\n")
	sb.WriteString(fmt.Sprintf("  %s (Confidence: %d%%)\n", d.Recommendation, d.Confidence))
	sb.WriteString(fmt.Sprintf("  Sentiment: %s | Risk: %s\n", d.Sentiment, d.RiskLevel))
	sb.WriteString(thinLine + "\n")

	sb.WriteString("\n  ■ KEY POINTS\n")
	for _, kp := range d.KeyPoints {
		sb.WriteString(fmt.Sprintf("    • %s\n", kp))
	}
	sb.WriteString(thinLine + "\n")

	sb.WriteString("\n  ■ NEWS TONE\n")
	sb.WriteString(fmt.Sprintf("    %s (%s) across %d articles\n", d.ToneLabel, d.ToneScore, d.ToneArticles))
	sb.WriteString(thinLine + "\n")

	if len(d.Sources) > 0 {
		sb.WriteString("\n  ■ SOURCES\n")
		for i, s := range d.Sources {
			sb.WriteString(fmt.Sprintf("    [%d] %s (%s, %s)\n        %s\n", i+1, s.Title, s.Source, s.Age, s.URL))
		}
		sb.WriteString(thinLine + "\n")
	}

	if d.ShowContext && d.Context != "" {
		sb.WriteString("\n  ■ NEWS CONTEXT\n")
		for _, l := range strings.Split(d.Context, "\n") {
			sb.WriteString("    " + l + "\n")
		}
		sb.WriteString(thinLine + "\n")
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  Disclaimer: This report is AI-generated for educational purposes.\n")
	sb.WriteString("  Not financial advice.\n")
	sb.WriteString(line + "\n")

	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Markdown renderer
// ════════════════════════════════════════════════════════════════════

func renderMarkdownReport(d ReportData) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", d.Title))
	sb.WriteString(fmt.Sprintf("_Generated %s by %s", d.GeneratedAt, d.Author))
	if d.Model != "" {
		sb.WriteString(fmt.Sprintf(" using %s", d.Model))
	}
	sb.WriteString("_\n\n")

	sb.WriteString("| Recommendation | Sentiment | Risk | Confidence |\n")
	sb.WriteString("|---|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| **%s** | %s | %s | %d%% |\n\n", d.Recommendation, d.Sentiment, d.RiskLevel, d.Confidence))

	sb.WriteString("## Key points\n\n")
	for _, kp := range d.KeyPoints {
		sb.WriteString(fmt.Sprintf("- %s\n", kp))
	}

	sb.WriteString("\n## News tone\n\n")
	sb.WriteString(fmt.Sprintf("%s (%s) across %d articles\n", d.ToneLabel, d.ToneScore, d.ToneArticles))

	if len(d.Sources) > 0 {
		sb.WriteString("\n## Sources\n\n")
		for i, s := range d.Sources {
			sb.WriteString(fmt.Sprintf("%d. [%s](%s) (%s, %s)\n", i+1, escapeMarkdown(s.Title), s.URL, s.Source, s.Age))
		}
	}

	if d.ShowContext && d.Context != "" {
		sb.WriteString("\n## News context\n\n```text\n")
		sb.WriteString(d.Context)
		sb.WriteString("\n```\n")
	}

	sb.WriteString("\n---\n_AI-generated for educational purposes. Not financial advice._\n")
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
