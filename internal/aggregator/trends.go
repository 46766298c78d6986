package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/hardenscope/internal/models"
)

// Trend directions.
const (
	DirectionImproving = "improving"
	DirectionDegrading = "degrading"
	DirectionStable    = "stable"
)

// Comparison is the finding-level difference between two reports.
type Comparison struct {
	Trend            *models.Trend    `json:"trend"`
	NewFindings      []models.Finding `json:"new_findings"`
	ResolvedFindings []models.Finding `json:"resolved_findings"`
	Unchanged        int              `json:"unchanged"`
}

// HistoryPoint is one stored run used for trend analysis.
type HistoryPoint struct {
	Timestamp      time.Time
	HardeningIndex int
	TotalFindings  int
}

// TrendSummary describes how the hardening index moved across runs.
type TrendSummary struct {
	RunsAnalyzed   int    `json:"runs_analyzed"`
	TimeRange      string `json:"time_range"`
	IndexSparkline []int  `json:"index_sparkline"`
	FindingCounts  []int  `json:"finding_counts"`
	Direction      string `json:"direction"`
	BestIndex      int    `json:"best_index"`
	WorstIndex     int    `json:"worst_index"`
}

// TrendAnalyzer analyzes trends across multiple runs
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// Compare diffs current against baseline. Findings are matched by
// models.Finding.Key, so a finding that only changed severity is unchanged.
func (t *TrendAnalyzer) Compare(baseline, current *models.ParsedReport, baselineTime time.Time) *Comparison {
	if baseline == nil || current == nil {
		return nil
	}

	before := indexFindings(baseline)
	after := indexFindings(current)

	cmp := &Comparison{
		NewFindings:      []models.Finding{},
		ResolvedFindings: []models.Finding{},
	}
	for _, f := range current.AllFindings() {
		if _, ok := before[f.Key()]; ok {
			cmp.Unchanged++
			continue
		}
		cmp.NewFindings = append(cmp.NewFindings, f)
	}
	for _, f := range baseline.AllFindings() {
		if _, ok := after[f.Key()]; !ok {
			cmp.ResolvedFindings = append(cmp.ResolvedFindings, f)
		}
	}

	trend := t.CalculateTrend(current, baseline)
	trend.ComparedWith = baselineTime
	trend.NewFindings = len(cmp.NewFindings)
	trend.Resolved = len(cmp.ResolvedFindings)
	cmp.Trend = trend

	return cmp
}

// CalculateTrend compares the headline numbers of two reports. The hardening
// index decides the direction; on a tie the severity-weighted finding load
// does.
func (t *TrendAnalyzer) CalculateTrend(current, previous *models.ParsedReport) *models.Trend {
	if previous == nil || current == nil {
		return nil
	}

	trend := &models.Trend{
		PreviousIndex:  previous.Score.HardeningIndex,
		CurrentIndex:   current.Score.HardeningIndex,
		HardeningDelta: current.Score.HardeningIndex - previous.Score.HardeningIndex,
		SeverityDelta:  make(map[models.Severity]int, len(models.AllSeverities)),
	}
	for _, s := range models.AllSeverities {
		trend.SeverityDelta[s] = current.SeveritySummary[s] - previous.SeveritySummary[s]
	}

	switch {
	case trend.HardeningDelta > 0:
		trend.Direction = DirectionImproving
	case trend.HardeningDelta < 0:
		trend.Direction = DirectionDegrading
	default:
		load := weightedLoad(current.SeveritySummary) - weightedLoad(previous.SeveritySummary)
		switch {
		case load < 0:
			trend.Direction = DirectionImproving
		case load > 0:
			trend.Direction = DirectionDegrading
		default:
			trend.Direction = DirectionStable
		}
	}

	return trend
}

// AnalyzeHistory summarizes runs ordered oldest first.
func (t *TrendAnalyzer) AnalyzeHistory(points []HistoryPoint) *TrendSummary {
	if len(points) == 0 {
		return nil
	}

	sorted := make([]HistoryPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	summary := &TrendSummary{
		RunsAnalyzed:   len(sorted),
		IndexSparkline: make([]int, len(sorted)),
		FindingCounts:  make([]int, len(sorted)),
		BestIndex:      sorted[0].HardeningIndex,
		WorstIndex:     sorted[0].HardeningIndex,
		Direction:      DirectionStable,
	}

	if len(sorted) > 1 {
		days := int(sorted[len(sorted)-1].Timestamp.Sub(sorted[0].Timestamp).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d days", days)
	} else {
		summary.TimeRange = "Single run"
	}

	for i, p := range sorted {
		summary.IndexSparkline[i] = p.HardeningIndex
		summary.FindingCounts[i] = p.TotalFindings
		summary.BestIndex = max(summary.BestIndex, p.HardeningIndex)
		summary.WorstIndex = min(summary.WorstIndex, p.HardeningIndex)
	}

	first, last := sorted[0], sorted[len(sorted)-1]
	switch {
	case last.HardeningIndex > first.HardeningIndex:
		summary.Direction = DirectionImproving
	case last.HardeningIndex < first.HardeningIndex:
		summary.Direction = DirectionDegrading
	}

	return summary
}

// GenerateComparisonReport renders a short plain-text comparison.
func (t *TrendAnalyzer) GenerateComparisonReport(cmp *Comparison) string {
	if cmp == nil || cmp.Trend == nil {
		return "No previous run to compare with"
	}
	tr := cmp.Trend

	var b strings.Builder
	if !tr.ComparedWith.IsZero() {
		fmt.Fprintf(&b, "Compared with run from %s\n\n", formatDate(tr.ComparedWith))
	}
	fmt.Fprintf(&b, "Hardening index: %d → %d (%+d, %s %s)\n\n",
		tr.PreviousIndex, tr.CurrentIndex, tr.HardeningDelta, GetTrendIndicator(tr.Direction), tr.Direction)

	for _, s := range models.AllSeverities {
		if d := tr.SeverityDelta[s]; d != 0 {
			fmt.Fprintf(&b, "  %-8s %+d\n", s, d)
		}
	}

	if len(cmp.NewFindings) > 0 {
		fmt.Fprintf(&b, "\nNew findings: %d\n", len(cmp.NewFindings))
		for _, f := range cmp.NewFindings {
			fmt.Fprintf(&b, "  + [%s] %s\n", f.Severity, describe(f))
		}
	}
	if len(cmp.ResolvedFindings) > 0 {
		fmt.Fprintf(&b, "\nResolved findings: %d\n", len(cmp.ResolvedFindings))
		for _, f := range cmp.ResolvedFindings {
			fmt.Fprintf(&b, "  - [%s] %s\n", f.Severity, describe(f))
		}
	}

	return b.String()
}

func describe(f models.Finding) string {
	if f.TestID != "" {
		return f.Message + " (" + f.TestID + ")"
	}
	return f.Message
}

func indexFindings(r *models.ParsedReport) map[string]models.Finding {
	out := make(map[string]models.Finding)
	for _, f := range r.AllFindings() {
		out[f.Key()] = f
	}
	return out
}

// weightedLoad scores a severity summary, critical counting most.
func weightedLoad(summary map[models.Severity]int) int {
	return summary[models.SeverityCritical]*8 +
		summary[models.SeverityHigh]*4 +
		summary[models.SeverityMedium]*2 +
		summary[models.SeverityLow]
}

// formatDate formats a timestamp for display
func formatDate(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}

// GetTrendIndicator returns a visual indicator for trend direction
func GetTrendIndicator(direction string) string {
	switch direction {
	case DirectionImproving:
		return "↑"
	case DirectionDegrading:
		return "↓"
	case DirectionStable:
		return "→"
	default:
		return "?"
	}
}
