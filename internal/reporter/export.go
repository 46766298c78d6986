package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/hardenscope/internal/models"
)

// ExportEntry is one stored scan handed to the exporters.
type ExportEntry struct {
	Meta   *models.ScanMetadata
	Report *models.ParsedReport
}

// ComplianceRecord is a single row in the compliance export.
type ComplianceRecord struct {
	ScanID         string `json:"scan_id"`
	ScanTimestamp  string `json:"scan_timestamp"`
	Hostname       string `json:"hostname"`
	Severity       string `json:"severity"`
	Kind           string `json:"kind"`
	TestID         string `json:"test_id"`
	Message        string `json:"message"`
	Path           string `json:"path"`
	Details        string `json:"details"`
	HardeningIndex int    `json:"hardening_index"`
	Status         string `json:"status"` // "open" while the finding is reported
}

// ComplianceExport is the full export payload.
type ComplianceExport struct {
	ExportedAt   string             `json:"exported_at"`
	ScanCount    int                `json:"scan_count"`
	FindingCount int                `json:"finding_count"`
	Framework    string             `json:"framework"`
	Records      []ComplianceRecord `json:"records"`
}

// BuildComplianceExport flattens scans into one row per finding, most
// severe first.
func BuildComplianceExport(entries []ExportEntry, now time.Time) *ComplianceExport {
	records := []ComplianceRecord{}

	for _, e := range entries {
		if e.Report == nil {
			continue
		}
		var id, ts string
		if e.Meta != nil {
			id = e.Meta.ID
			ts = e.Meta.CreatedAt.UTC().Format(time.RFC3339)
		}
		for _, f := range e.Report.AllFindings() {
			records = append(records, ComplianceRecord{
				ScanID:         id,
				ScanTimestamp:  ts,
				Hostname:       e.Report.SystemInfo.Hostname,
				Severity:       string(f.Severity),
				Kind:           string(f.Kind),
				TestID:         f.TestID,
				Message:        f.Message,
				Path:           f.Path,
				Details:        strings.Join(f.Details, "; "),
				HardeningIndex: e.Report.Score.HardeningIndex,
				Status:         "open",
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		si := models.Severity(records[i].Severity).Rank()
		sj := models.Severity(records[j].Severity).Rank()
		if si != sj {
			return si < sj
		}
		return records[i].ScanTimestamp > records[j].ScanTimestamp
	})

	return &ComplianceExport{
		ExportedAt:   now.UTC().Format(time.RFC3339),
		ScanCount:    len(entries),
		FindingCount: len(records),
		Framework:    "CIS/SOC2",
		Records:      records,
	}
}

// WriteCSV writes one row per finding.
func WriteCSV(w io.Writer, export *ComplianceExport) error {
	writer := csv.NewWriter(w)

	header := []string{
		"scan_id", "scan_timestamp", "hostname", "severity", "kind",
		"test_id", "message", "path", "details", "hardening_index", "status",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, r := range export.Records {
		row := []string{
			r.ScanID, r.ScanTimestamp, r.Hostname, r.Severity, r.Kind,
			r.TestID, r.Message, r.Path, r.Details, strconv.Itoa(r.HardeningIndex), r.Status,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteExportJSON writes the export payload as indented JSON.
func WriteExportJSON(w io.Writer, export *ComplianceExport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// SARIF 2.1.0 output for code scanning dashboards.
// Minimal structures, only what's needed for valid SARIF.

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string             `json:"id"`
	ShortDescription sarifMessage       `json:"shortDescription"`
	DefaultConfig    sarifDefaultConfig `json:"defaultConfiguration"`
}

type sarifDefaultConfig struct {
	Level string `json:"level"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysical `json:"physicalLocation"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

// WriteSARIF writes findings as SARIF results. Test IDs become rule IDs;
// findings without one share a per-kind rule.
func WriteSARIF(w io.Writer, entries []ExportEntry, toolVersion string) error {
	rulesMap := map[string]sarifRule{}
	results := []sarifResult{}

	for _, e := range entries {
		if e.Report == nil {
			continue
		}
		host := e.Report.SystemInfo.Hostname
		for _, f := range e.Report.AllFindings() {
			ruleID := f.TestID
			if ruleID == "" {
				ruleID = "hardenscope/" + string(f.Kind)
			}
			level := sarifLevel(f.Severity)
			if existing, ok := rulesMap[ruleID]; !ok || levelRank(level) > levelRank(existing.DefaultConfig.Level) {
				rulesMap[ruleID] = sarifRule{
					ID:               ruleID,
					ShortDescription: sarifMessage{Text: f.Message},
					DefaultConfig:    sarifDefaultConfig{Level: level},
				}
			}

			results = append(results, sarifResult{
				RuleID:  ruleID,
				Level:   level,
				Message: sarifMessage{Text: sarifText(f)},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysical{
						ArtifactLocation: sarifArtifact{URI: sarifURI(f, host)},
					},
				}},
			})
		}
	}

	rules := make([]sarifRule, 0, len(rulesMap))
	for _, r := range rulesMap {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:    "hardenscope",
					Version: toolVersion,
					Rules:   rules,
				},
			},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}

func sarifLevel(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func levelRank(level string) int {
	switch level {
	case "error":
		return 2
	case "warning":
		return 1
	default:
		return 0
	}
}

func sarifText(f models.Finding) string {
	parts := []string{fmt.Sprintf("[%s] %s", f.Severity, f.Message)}
	parts = append(parts, f.Details...)
	return strings.Join(parts, ". ")
}

// sarifURI points at the referenced file, or at the host when there is none.
func sarifURI(f models.Finding, host string) string {
	if f.Path != "" {
		return "file://" + f.Path
	}
	if host == "" {
		host = "localhost"
	}
	return "host://" + host
}
