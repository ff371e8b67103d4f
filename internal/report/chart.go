// Package report renders generated insights as HTML, Markdown or plain-text
// reports. Charts are inline SVG so a report is a single self-contained file.
package report

import (
	"fmt"
	"math"
	"strings"
)

// ════════════════════════════════════════════════════════════════════
// SVG Gauges
// ════════════════════════════════════════════════════════════════════

// GaugeChart draws a half-circle gauge for value in 0..100.
func GaugeChart(value float64, label string, width int) string {
	if width == 0 {
		width = 200
	}
	height := width/2 + 30

	cx := float64(width) / 2
	cy := float64(width)/2 - 10
	radius := float64(width)/2 - 20

	value = math.Max(0, math.Min(100, value))

	// Angle: 180° (left) to 0° (right), value maps 0→180°, 100→0°
	angle := math.Pi - (value/100)*math.Pi
	needleX := cx + radius*0.85*math.Cos(angle)
	needleY := cy - radius*0.85*math.Sin(angle)
	color := gaugeColor(value)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height))
	sb.WriteString(fmt.Sprintf(`<rect width="%d" height="%d" fill="white"/>`, width, height))

	// Background arc
	sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="#e0e0e0" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, cx+radius, cy))

	// Value arc. A half circle never needs the large-arc flag.
	endX := cx + radius*math.Cos(angle)
	endY := cy - radius*math.Sin(angle)
	sb.WriteString(fmt.Sprintf(`<path d="M%.1f,%.1f A%.1f,%.1f 0 0,1 %.1f,%.1f" fill="none" stroke="%s" stroke-width="12" stroke-linecap="round"/>`,
		cx-radius, cy, radius, radius, endX, endY, color))

	// Needle
	sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333" stroke-width="2"/>`,
		cx, cy, needleX, needleY))
	sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="5" fill="#333"/>`, cx, cy))

	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="22" font-weight="bold" fill="%s" text-anchor="middle">%.0f</text>`,
		cx, cy+25, color, value))
	sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="11" fill="#666" text-anchor="middle">%s</text>`,
		cx, height-5, escapeXML(label)))

	sb.WriteString("</svg>")
	return sb.String()
}

// ToneGauge draws a news tone score in -1..1 on the same gauge, with
// neutral at the top.
func ToneGauge(score float64, label string, width int) string {
	return GaugeChart((math.Max(-1, math.Min(1, score))+1)*50, label, width)
}

func gaugeColor(value float64) string {
	switch {
	case value < 30:
		return "#ef5350" // red
	case value < 50:
		return "#ff9800" // orange
	case value < 70:
		return "#ffc107" // yellow
	default:
		return "#4caf50" // green
	}
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
