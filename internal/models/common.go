package models

import (
	"fmt"
	"time"
)

// Severity is the risk tier assigned to a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// AllSeverities lists every severity, most severe first.
var AllSeverities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// Rank returns a sort weight (lower = more severe). Unknown values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// IsValid reports whether s is one of the known severities.
func (s Severity) IsValid() bool {
	return s.Rank() < 5
}

// ParseSeverity maps a case-sensitive lowercase name to a Severity.
func ParseSeverity(name string) (Severity, bool) {
	s := Severity(name)
	return s, s.IsValid()
}

// FindingKind distinguishes warnings from suggestions.
type FindingKind string

const (
	KindWarning    FindingKind = "warning"
	KindSuggestion FindingKind = "suggestion"
)

// Score status values derived from the hardening index.
const (
	StatusExcellent = "excellent"
	StatusGood      = "good"
	StatusFair      = "fair"
	StatusPoor      = "poor"
)

// ScoreStatus maps a hardening index to its qualitative status.
func ScoreStatus(index int) string {
	switch {
	case index >= 80:
		return StatusExcellent
	case index >= 60:
		return StatusGood
	case index >= 40:
		return StatusFair
	default:
		return StatusPoor
	}
}

// RiskSummary renders the one-sentence verdict for a severity summary.
// The most severe non-zero tier decides the message.
func RiskSummary(summary map[Severity]int) string {
	switch {
	case summary[SeverityCritical] > 0:
		return fmt.Sprintf("CRITICAL: %d critical issues require immediate attention!", summary[SeverityCritical])
	case summary[SeverityHigh] > 0:
		return fmt.Sprintf("HIGH: %d high-priority issues should be addressed soon.", summary[SeverityHigh])
	case summary[SeverityMedium] > 0:
		return fmt.Sprintf("MEDIUM: %d issues should be planned for remediation.", summary[SeverityMedium])
	case summary[SeverityLow] > 0:
		return fmt.Sprintf("LOW: %d minor recommendations available.", summary[SeverityLow])
	default:
		return "No significant issues detected."
	}
}

// Trend represents change between a baseline report and the current one.
type Trend struct {
	Direction      string           `json:"direction"` // "improving", "degrading", "stable"
	HardeningDelta int              `json:"hardening_delta"`
	PreviousIndex  int              `json:"previous_index"`
	CurrentIndex   int              `json:"current_index"`
	SeverityDelta  map[Severity]int `json:"severity_delta"` // positive = more findings
	ComparedWith   time.Time        `json:"compared_with,omitempty"`
	NewFindings    int              `json:"new_findings"`
	Resolved       int              `json:"resolved_findings"`
}

// Recommendation is a prioritized next step derived from a report.
type Recommendation struct {
	Severity Severity `json:"severity"`
	Action   string   `json:"action"` // What to do
	Impact   string   `json:"impact"` // Why it matters
	Count    int      `json:"count"`  // How many findings it covers
}
