package reporter

import (
	"encoding/json"
	"io"

	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/policy"
)

// JSONReporter generates machine-readable JSON reports
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter
func NewJSONReporter(writer io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		pretty: pretty,
	}
}

// Generate writes the full report, including every finding.
func (r *JSONReporter) Generate(report *Report) error {
	return r.write(report)
}

// GenerateSummaryOnly writes headline numbers and top findings without the
// complete finding lists.
func (r *JSONReporter) GenerateSummaryOnly(report *Report) error {
	dm := report.Display
	summary := struct {
		ScanID          string                             `json:"scan_id,omitempty"`
		GeneratedAt     string                             `json:"generated_at"`
		SystemInfo      formatter.SystemInfoView           `json:"system_info"`
		Score           formatter.ScoreView                `json:"score"`
		SeveritySummary map[string]int                     `json:"severity_summary"`
		RiskSummary     string                             `json:"risk_summary"`
		TopFindings     map[string][]formatter.FindingView `json:"top_findings"`
		Recommendations []models.Recommendation            `json:"recommendations"`
		Trend           *models.Trend                      `json:"trend,omitempty"`
		Policy          *policy.Result                     `json:"policy,omitempty"`
	}{
		ScanID:          report.ScanID,
		GeneratedAt:     report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		SystemInfo:      dm.SystemInfo,
		Score:           dm.Score,
		SeveritySummary: dm.SeveritySummary,
		RiskSummary:     dm.RiskSummary,
		TopFindings:     dm.TopFindings,
		Recommendations: report.Recommendations,
		Trend:           report.Trend,
		Policy:          report.Policy,
	}
	return r.write(summary)
}

// GenerateFleet writes a multi-host summary.
func (r *JSONReporter) GenerateFleet(fleet *models.FleetSummary) error {
	return r.write(fleet)
}

func (r *JSONReporter) write(v any) error {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	if _, err = r.writer.Write(data); err != nil {
		return err
	}

	// Add trailing newline for terminal output
	_, err = r.writer.Write([]byte("\n"))
	return err
}
