// Package formatter projects a ParsedReport into the shapes consumed by
// the dashboard API and the printable report.
package formatter

import (
	"fmt"

	"github.com/ppiankov/hardenscope/internal/models"
)

// Placeholder is rendered for system facts that were not found.
const Placeholder = "Unknown"

// Defaults for bounded views.
const (
	DefaultTopN          = 5
	DefaultPrintFindings = 30
	DefaultPrintDetails  = 3
)

// Options controls how many findings the summary views carry.
type Options struct {
	TopN int // findings per severity in TopFindings
}

// DisplayModel is the consumer-ready form of a ParsedReport.
// Every key is always present so consumers never test for absence.
type DisplayModel struct {
	SystemInfo         SystemInfoView            `json:"system_info"`
	Score              ScoreView                 `json:"score"`
	Statistics         models.Statistics         `json:"statistics"`
	SecurityComponents models.SecurityComponents `json:"security_components"`
	SeveritySummary    map[string]int            `json:"severity_summary"`
	RiskSummary        string                    `json:"risk_summary"`
	TotalFindings      int                       `json:"total_findings"`
	Findings           map[string][]FindingView  `json:"findings"`
	TopFindings        map[string][]FindingView  `json:"top_findings"`
	Truncated          map[string]int            `json:"truncated,omitempty"` // findings omitted per severity
}

// SystemInfoView is SystemInfo with placeholders filled in.
type SystemInfoView struct {
	OSName           string `json:"os_name"`
	OSVersion        string `json:"os_version"`
	KernelVersion    string `json:"kernel_version"`
	Hostname         string `json:"hostname"`
	HardwarePlatform string `json:"hardware_platform"`
}

// ScoreView carries the hardening index in display-ready forms.
type ScoreView struct {
	HardeningIndex int     `json:"hardening_index"`
	Status         string  `json:"status"`
	Display        string  `json:"display"` // "64/100"
	Percent        float64 `json:"percent"` // 0-100, for progress bars
}

// FindingView is one finding as shown to users.
type FindingView struct {
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	TestID  string   `json:"test_id,omitempty"`
	Details []string `json:"details,omitempty"`
	Path    string   `json:"path,omitempty"`
}

// FormatForDisplay builds the full DisplayModel. It reads report and
// never changes it; severities are taken as already assigned.
func FormatForDisplay(report *models.ParsedReport, opts Options) DisplayModel {
	if report == nil {
		report = models.NewParsedReport()
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	dm := base(report)
	dm.Findings = make(map[string][]FindingView, len(models.AllSeverities))
	dm.TopFindings = make(map[string][]FindingView, len(models.AllSeverities))

	for _, sev := range models.AllSeverities {
		views := toViews(report.Findings[sev], -1)
		dm.Findings[string(sev)] = views
		dm.TopFindings[string(sev)] = views[:min(topN, len(views))]
	}
	return dm
}

// PrintOptions bounds the printable report.
type PrintOptions struct {
	MaxFindings int // per severity
	MaxDetails  int // per finding
}

// FormatForPrint builds a DisplayModel whose finding lists are capped per
// section. Omitted counts are recorded in Truncated.
func FormatForPrint(report *models.ParsedReport, opts PrintOptions) DisplayModel {
	if report == nil {
		report = models.NewParsedReport()
	}
	maxFindings := opts.MaxFindings
	if maxFindings <= 0 {
		maxFindings = DefaultPrintFindings
	}
	maxDetails := opts.MaxDetails
	if maxDetails <= 0 {
		maxDetails = DefaultPrintDetails
	}

	dm := base(report)
	dm.Findings = make(map[string][]FindingView, len(models.AllSeverities))
	dm.TopFindings = make(map[string][]FindingView, len(models.AllSeverities))
	dm.Truncated = make(map[string]int)

	for _, sev := range models.AllSeverities {
		all := report.Findings[sev]
		shown := all[:min(maxFindings, len(all))]
		views := toViews(shown, maxDetails)
		dm.Findings[string(sev)] = views
		dm.TopFindings[string(sev)] = views[:min(DefaultTopN, len(views))]
		if omitted := len(all) - len(shown); omitted > 0 {
			dm.Truncated[string(sev)] = omitted
		}
	}
	return dm
}

func base(report *models.ParsedReport) DisplayModel {
	summary := make(map[string]int, len(models.AllSeverities))
	for _, sev := range models.AllSeverities {
		summary[string(sev)] = report.SeveritySummary[sev]
	}

	index := report.Score.HardeningIndex
	status := report.Score.Status
	if status == "" {
		status = models.ScoreStatus(index)
	}

	return DisplayModel{
		SystemInfo: SystemInfoView{
			OSName:           orPlaceholder(report.SystemInfo.OSName),
			OSVersion:        orPlaceholder(report.SystemInfo.OSVersion),
			KernelVersion:    orPlaceholder(report.SystemInfo.KernelVersion),
			Hostname:         orPlaceholder(report.SystemInfo.Hostname),
			HardwarePlatform: orPlaceholder(report.SystemInfo.HardwarePlatform),
		},
		Score: ScoreView{
			HardeningIndex: index,
			Status:         status,
			Display:        fmt.Sprintf("%d/100", index),
			Percent:        float64(index),
		},
		Statistics:         report.Statistics,
		SecurityComponents: report.SecurityComponents,
		SeveritySummary:    summary,
		RiskSummary:        report.RiskSummary,
		TotalFindings:      report.TotalFindings(),
	}
}

// toViews copies findings; maxDetails < 0 keeps every detail line.
func toViews(findings []models.Finding, maxDetails int) []FindingView {
	views := make([]FindingView, 0, len(findings))
	for _, f := range findings {
		details := f.Details
		if maxDetails >= 0 && len(details) > maxDetails {
			details = details[:maxDetails]
		}
		views = append(views, FindingView{
			Kind:    string(f.Kind),
			Message: f.Message,
			TestID:  f.TestID,
			Details: append([]string(nil), details...),
			Path:    f.Path,
		})
	}
	return views
}

func orPlaceholder(s string) string {
	if s == "" {
		return Placeholder
	}
	return s
}
