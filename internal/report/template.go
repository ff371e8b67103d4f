package report

// ReportTemplate is the HTML template for the insight report.
// It is a Go constant, so a report needs no external files.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; font-weight: 600; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); font-weight: 600; }
  p { margin: 6px 0; }
  .muted { color: var(--muted); font-size: 0.85rem; }

  /* Header */
  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-left h1 { color: var(--accent); }
  .header-right { text-align: right; }
  .ticker-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    font-size: 1.1rem;
    margin-right: 8px;
  }

  /* Recommendation badge */
  .rec-box {
    display: flex;
    align-items: center;
    gap: 16px;
    padding: 16px;
    border-radius: 8px;
    margin: 12px 0;
  }
  .rec-box.buy { background: #ecfdf5; border-left: 5px solid var(--green); }
  .rec-box.hold { background: #fefce8; border-left: 5px solid #eab308; }
  .rec-box.sell { background: #fef2f2; border-left: 5px solid var(--red); }
  .rec-label { font-size: 1.4rem; font-weight: 700; }
  .rec-box.buy .rec-label { color: var(--green); }
  .rec-box.hold .rec-label { color: #eab308; }
  .rec-box.sell .rec-label { color: var(--red); }

  /* Gauges */
  .gauges { display: flex; gap: 24px; flex-wrap: wrap; }
  .gauges svg { flex-shrink: 0; }

  /* Sources */
  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 8px; border-bottom: 1px solid var(--border); }
  a { color: var(--accent); text-decoration: none; }

  pre {
    background: var(--section-bg);
    padding: 12px;
    border-radius: 6px;
    white-space: pre-wrap;
    font-size: 0.85rem;
  }

  /* Footer */
  .footer {
    margin-top: 30px;
    padding-top: 12px;
    border-top: 2px solid var(--border);
    font-size: 0.8rem;
    color: var(--muted);
    text-align: center;
  }

  @media print {
    body { max-width: 100%; padding: 10px; }
  }
</style>
</head>
<body>

<!-- ═══════ HEADER ═══════ -->
<div class="header">
  <div class="header-left">
    <h1><span class="ticker-badge">{{.Target}}</span> News Insight</h1>
    {{if .Symbols}}<p class="muted">Symbols: {{.Symbols}}</p>{{end}}
  </div>
  <div class="header-right">
    <p class="muted">{{.GeneratedAt}}</p>
    <p class="muted">{{.Author}}{{if .Model}} · {{.Model}}{{end}}{{if .Cached}} · cached{{end}}</p>
  </div>
</div>

<!-- ═══════ RECOMMENDATION ═══════ -->
<div class="rec-box {{.RecommendationClass}}">
  <span class="rec-label">{{.Recommendation}}</span>
  <span>Sentiment: <strong>{{.Sentiment}}</strong> · Risk: <strong>{{.RiskLevel}}</strong> · Confidence: <strong>{{.Confidence}}%</strong></span>
</div>

<div class="gauges">
  {{.ConfidenceGauge}}
  {{.ToneGauge}}
</div>

<!-- ═══════ KEY POINTS ═══════ -->
<h2>Key points</h2>
<ul>
{{range .KeyPoints}}  <li>{{.}}</li>
{{end}}</ul>

<!-- ═══════ NEWS TONE ═══════ -->
<h2>News tone</h2>
<p>{{.ToneLabel}} ({{.ToneScore}}) across {{.ToneArticles}} articles</p>

<!-- ═══════ SOURCES ═══════ -->
{{if .Sources}}
<h2>Sources</h2>
<table>
  <tr><th>Headline</th><th>Source</th><th>Published</th></tr>
  {{range .Sources}}
  <tr><td><a href="{{.URL}}">{{.Title}}</a></td><td>{{.Source}}</td><td>{{.Age}}</td></tr>
  {{end}}
</table>
{{end}}

{{if and .ShowContext .Context}}
<h2>News context</h2>
<pre>{{.Context}}</pre>
{{end}}

<div class="footer">
  AI-generated for educational purposes. Not financial advice.
</div>

</body>
</html>
`
