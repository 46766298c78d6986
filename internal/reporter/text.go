package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
)

const rule = "--------------------------------------------------\n"

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
}

// NewTextReporter creates a new text reporter
func NewTextReporter(writer io.Writer) *TextReporter {
	return &TextReporter{
		writer: writer,
	}
}

// Generate writes the full report for one audit.
func (r *TextReporter) Generate(report *Report) error {
	if report == nil {
		return fmt.Errorf("nothing to report")
	}
	dm := report.Display

	r.printHeader("Hardenscope Security Audit Report")
	if report.ScanID != "" {
		r.printf("Scan: %s\n", report.ScanID)
	}
	if report.Source != "" {
		r.printf("Source: %s\n", report.Source)
	}
	r.printf("Generated: %s\n\n", formatTimestamp(report.GeneratedAt))

	r.printScore(dm, report.Trend)
	r.printSystemInfo(dm)
	r.printSeveritySummary(dm)
	r.printFindings(dm)

	if len(report.Recommendations) > 0 {
		r.printRecommendations(report.Recommendations)
	}
	if report.Trend != nil {
		r.printTrendInfo(report.Trend)
	}
	if report.Policy != nil {
		r.printPolicy(report)
	}

	return nil
}

// GenerateFleet writes a summary across many hosts.
func (r *TextReporter) GenerateFleet(fleet *models.FleetSummary) error {
	if fleet == nil {
		return fmt.Errorf("nothing to report")
	}

	r.printHeader("Hardenscope Fleet Summary")
	r.printf("Hosts: %d   Average index: %d   Lowest: %d (%s)\n\n",
		fleet.TotalHosts, fleet.AverageIndex, fleet.LowestIndex, fleet.WeakestHost)

	r.printf("Hosts (weakest first):\n")
	r.printf(rule)
	r.printf("  %-28s %5s  %-9s %4s %4s %4s %4s\n", "HOST", "INDEX", "STATUS", "CRIT", "HIGH", "MED", "LOW")
	for _, h := range fleet.Hosts {
		name := h.Hostname
		if name == "" {
			name = h.Source
		}
		r.printf("  %-28s %5d  %-9s %4d %4d %4d %4d\n",
			truncate(name, 28), h.HardeningIndex, h.Status,
			h.SeveritySummary[models.SeverityCritical],
			h.SeveritySummary[models.SeverityHigh],
			h.SeveritySummary[models.SeverityMedium],
			h.SeveritySummary[models.SeverityLow])
	}
	r.printf("\n")

	r.printf("Findings by Severity:\n")
	r.printf(rule)
	for _, s := range models.AllSeverities {
		r.printf("  %-10s %d\n", strings.ToUpper(string(s)), fleet.SeverityTotals[s])
	}
	r.printf("\n  %s\n", fleet.RiskSummary)

	if len(fleet.Recommendations) > 0 {
		r.printRecommendations(fleet.Recommendations)
	}
	return nil
}

// printHeader prints the report header
func (r *TextReporter) printHeader(title string) {
	const width = 44
	pad := width - len(title)
	if pad < 0 {
		pad = 0
	}
	left := pad / 2
	r.printf("╔%s╗\n", strings.Repeat("═", width))
	r.printf("║%s%s%s║\n", strings.Repeat(" ", left), title, strings.Repeat(" ", pad-left))
	r.printf("╚%s╝\n\n", strings.Repeat("═", width))
}

func (r *TextReporter) printScore(dm formatter.DisplayModel, trend *models.Trend) {
	r.printf("Hardening Index: %s %s (%s)", dm.Score.Display, scoreBar(dm.Score.HardeningIndex), strings.ToUpper(dm.Score.Status))
	if trend != nil {
		r.printf(" %s %+d from previous run", aggregator.GetTrendIndicator(trend.Direction), trend.HardeningDelta)
	}
	r.printf("\n")
	r.printf("Risk: %s\n\n", dm.RiskSummary)
}

func (r *TextReporter) printSystemInfo(dm formatter.DisplayModel) {
	si := dm.SystemInfo
	r.printf("System Information:\n")
	r.printf(rule)
	r.printf("  Hostname:  %s\n", si.Hostname)
	r.printf("  OS:        %s %s\n", si.OSName, si.OSVersion)
	r.printf("  Kernel:    %s\n", si.KernelVersion)
	r.printf("  Platform:  %s\n", si.HardwarePlatform)
	r.printf("  Tests:     %d performed, %d plugin(s)\n", dm.Statistics.TestsPerformed, dm.Statistics.PluginsEnabled)
	r.printf("  Firewall: %s  IDS: %s  Malware scanner: %s\n\n",
		check(dm.SecurityComponents.Firewall),
		check(dm.SecurityComponents.IntrusionSoftware),
		check(dm.SecurityComponents.MalwareScanner))
}

func (r *TextReporter) printSeveritySummary(dm formatter.DisplayModel) {
	r.printf("Findings by Severity (%d total, %d warnings, %d suggestions):\n",
		dm.TotalFindings, dm.Statistics.WarningsCount, dm.Statistics.SuggestionsCount)
	r.printf(rule)
	for _, sev := range severityOrder() {
		r.printf("  %-10s %d\n", strings.ToUpper(sev), dm.SeveritySummary[sev])
	}
	r.printf("\n")
}

func (r *TextReporter) printFindings(dm formatter.DisplayModel) {
	for _, sev := range severityOrder() {
		findings := dm.Findings[sev]
		if len(findings) == 0 {
			continue
		}
		r.printf("%s Findings:\n", strings.ToUpper(sev))
		r.printf(rule)
		for i, f := range findings {
			r.printf("  %d. %s", i+1, f.Message)
			if f.TestID != "" {
				r.printf(" [%s]", f.TestID)
			}
			r.printf("\n")
			if f.Path != "" {
				r.printf("     Path: %s\n", f.Path)
			}
			for _, d := range f.Details {
				r.printf("     - %s\n", d)
			}
		}
		if omitted := dm.Truncated[sev]; omitted > 0 {
			r.printf("  ... and %d more\n", omitted)
		}
		r.printf("\n")
	}
}

// printRecommendations prints the recommendations section
func (r *TextReporter) printRecommendations(recommendations []models.Recommendation) {
	r.printf("Recommended Actions:\n")
	r.printf(rule)

	grouped := aggregator.NewRecommendationGenerator().GroupBySeverity(recommendations)
	n := 0
	for _, severity := range models.AllSeverities {
		for _, rec := range grouped[severity] {
			n++
			r.printf("  %d. [%s] %s\n", n, strings.ToUpper(string(rec.Severity)), rec.Action)
			r.printf("     Impact: %s\n", rec.Impact)
		}
	}
	r.printf("\n")
}

// printTrendInfo prints trend information
func (r *TextReporter) printTrendInfo(trend *models.Trend) {
	r.printf("Trend Analysis:\n")
	r.printf(rule)
	r.printf("  Direction: %s %s\n", trend.Direction, aggregator.GetTrendIndicator(trend.Direction))
	r.printf("  Hardening index: %d → %d (%+d)\n", trend.PreviousIndex, trend.CurrentIndex, trend.HardeningDelta)
	if trend.NewFindings > 0 {
		r.printf("  New findings: %d\n", trend.NewFindings)
	}
	if trend.Resolved > 0 {
		r.printf("  Resolved: %d\n", trend.Resolved)
	}
	if !trend.ComparedWith.IsZero() {
		r.printf("  Compared With: %s\n", formatTimestamp(trend.ComparedWith))
	}
	r.printf("\n")
}

func (r *TextReporter) printPolicy(report *Report) {
	r.printf("Policy:\n")
	r.printf(rule)
	if report.Policy.Pass {
		r.printf("  PASS\n\n")
		return
	}
	r.printf("  FAIL (%d violation(s))\n", len(report.Policy.Violations))
	for _, v := range report.Policy.Violations {
		r.printf("  - %s: %s\n", v.Rule, v.Message)
	}
	r.printf("\n")
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}

// formatTimestamp formats a timestamp for display
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func scoreBar(index int) string {
	filled := max(0, min(20, index/5))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", 20-filled) + "]"
}

func check(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
