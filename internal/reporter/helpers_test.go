package reporter

import (
	"time"

	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/policy"
)

func sampleParsed() *models.ParsedReport {
	r := models.NewParsedReport()
	r.SystemInfo = models.SystemInfo{OSName: "Ubuntu", OSVersion: "22.04", KernelVersion: "5.15.0", Hostname: "web-01"}
	r.Statistics = models.Statistics{TestsPerformed: 240, WarningsCount: 2, SuggestionsCount: 1}
	r.Score = models.Score{HardeningIndex: 64, Status: models.StatusGood}
	r.SecurityComponents = models.SecurityComponents{Firewall: true}
	r.Findings[models.SeverityCritical] = []models.Finding{
		{Kind: models.KindWarning, TestID: "AUTH-9262", Message: "No password set on /etc/shadow entry", Path: "/etc/shadow", Severity: models.SeverityCritical},
	}
	r.Findings[models.SeverityHigh] = []models.Finding{
		{Kind: models.KindWarning, TestID: "FIRE-4512", Message: "Firewall is not running", Severity: models.SeverityHigh},
	}
	r.Findings[models.SeverityLow] = []models.Finding{
		{Kind: models.KindSuggestion, TestID: "BANN-7126", Message: "Consider adding a <legal> banner", Details: []string{"Edit /etc/issue"}, Severity: models.SeverityLow},
	}
	r.SeveritySummary[models.SeverityCritical] = 1
	r.SeveritySummary[models.SeverityHigh] = 1
	r.SeveritySummary[models.SeverityLow] = 1
	r.RiskSummary = models.RiskSummary(r.SeveritySummary)
	return r
}

func sampleReport() *Report {
	parsed := sampleParsed()
	return &Report{
		ScanID:      "scan_0123abcd",
		GeneratedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Display:     formatter.FormatForPrint(parsed, formatter.PrintOptions{}),
		Recommendations: []models.Recommendation{
			{Severity: models.SeverityCritical, Action: "Fix 1 critical finding(s) immediately", Impact: "The host is exposed to direct compromise", Count: 1},
			{Severity: models.SeverityMedium, Action: "Install a malware scanner", Impact: "Malware goes unnoticed", Count: 1},
		},
	}
}

func failingPolicy() *policy.Result {
	return &policy.Result{Pass: false, Violations: []policy.Violation{{Rule: "max_critical", Message: "critical findings 1 exceeds limit 0"}}}
}
