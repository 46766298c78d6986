package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 6

// renderHeader produces the header string from report data.
func renderHeader(report *models.ParsedReport, trend *models.Trend, history []int, width int) string {
	var b strings.Builder

	// Line 1: host and hardening index
	host := report.SystemInfo.Hostname
	if host == "" {
		host = "unknown host"
	}
	scoreText := statusStyle(report.Score.Status).Render(
		fmt.Sprintf("%d/100 %s", report.Score.HardeningIndex, strings.ToUpper(report.Score.Status)),
	)
	b.WriteString(fmt.Sprintf("Hardenscope  %s  Index: %s", host, scoreText))

	if trend != nil {
		b.WriteString(fmt.Sprintf("  %s %+d", aggregator.GetTrendIndicator(trend.Direction), trend.HardeningDelta))
	}
	b.WriteString("\n")

	// Line 2: risk summary
	b.WriteString(report.RiskSummary)
	b.WriteString("\n")

	// Line 3: severity breakdown
	sevParts := make([]string, 0, len(models.AllSeverities))
	for _, sev := range models.AllSeverities {
		if count := report.SeveritySummary[sev]; count > 0 {
			label := fmt.Sprintf("%s:%d", strings.ToUpper(string(sev)[:1]), count)
			sevParts = append(sevParts, severityStyle(sev).Render(label))
		}
	}
	if len(sevParts) > 0 {
		b.WriteString(strings.Join(sevParts, "  "))
	}
	b.WriteString("\n")

	// Line 4: hardening index history
	if len(history) > 0 {
		b.WriteString("History: ")
		b.WriteString(renderSparkline(history))
	}

	return styleHeader.Width(width).Render(b.String())
}

// renderSparkline converts an int slice to a unicode sparkline string.
func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	var b strings.Builder
	for _, v := range values {
		if hi == lo {
			b.WriteRune(bars[len(bars)/2])
		} else {
			normalized := float64(v-lo) / float64(hi-lo)
			idx := int(normalized * float64(len(bars)-1))
			b.WriteRune(bars[idx])
		}
	}

	b.WriteString(fmt.Sprintf(" [%d→%d]", values[0], values[len(values)-1]))
	return b.String()
}
