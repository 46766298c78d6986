package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/ppiankov/hardenscope/internal/models"
)

func sampleEntries() []ExportEntry {
	return []ExportEntry{{
		Meta:   &models.ScanMetadata{ID: "scan_0123abcd", CreatedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)},
		Report: sampleParsed(),
	}}
}

func TestBuildComplianceExport(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	export := BuildComplianceExport(sampleEntries(), now)

	if export.ScanCount != 1 || export.FindingCount != 3 {
		t.Errorf("counts = %d scans, %d findings", export.ScanCount, export.FindingCount)
	}
	if export.ExportedAt != "2026-03-01T00:00:00Z" {
		t.Errorf("ExportedAt = %s", export.ExportedAt)
	}
	first := export.Records[0]
	if first.Severity != "critical" || first.ScanID != "scan_0123abcd" || first.Hostname != "web-01" || first.HardeningIndex != 64 {
		t.Errorf("first record = %+v", first)
	}
	if last := export.Records[2]; last.Details != "Edit /etc/issue" {
		t.Errorf("details = %q", last.Details)
	}
}

func TestBuildComplianceExportEmpty(t *testing.T) {
	export := BuildComplianceExport(nil, time.Now())
	if export.FindingCount != 0 || export.Records == nil {
		t.Errorf("expected empty, non-nil records: %+v", export)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	export := BuildComplianceExport(sampleEntries(), time.Now())
	if err := WriteCSV(&buf, export); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "scan_id" || rows[0][len(rows[0])-1] != "status" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][3] != "critical" || rows[1][5] != "AUTH-9262" || rows[1][9] != "64" {
		t.Errorf("first row = %v", rows[1])
	}
}

func TestWriteExportJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExportJSON(&buf, BuildComplianceExport(sampleEntries(), time.Now())); err != nil {
		t.Fatal(err)
	}
	var decoded ComplianceExport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.FindingCount != 3 || len(decoded.Records) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteSARIF(t *testing.T) {
	entries := sampleEntries()
	entries[0].Report.Findings[models.SeverityInfo] = []models.Finding{
		{Kind: models.KindSuggestion, Message: "Informational note", Severity: models.SeverityInfo},
	}

	var buf bytes.Buffer
	if err := WriteSARIF(&buf, entries, "1.2.3"); err != nil {
		t.Fatal(err)
	}

	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if log.Version != "2.1.0" || len(log.Runs) != 1 {
		t.Fatalf("unexpected envelope: %+v", log)
	}
	run := log.Runs[0]
	if run.Tool.Driver.Name != "hardenscope" || run.Tool.Driver.Version != "1.2.3" {
		t.Errorf("driver = %+v", run.Tool.Driver)
	}
	if len(run.Results) != 4 || len(run.Tool.Driver.Rules) != 4 {
		t.Fatalf("expected 4 results and rules, got %d/%d", len(run.Results), len(run.Tool.Driver.Rules))
	}

	byRule := map[string]sarifResult{}
	for _, r := range run.Results {
		byRule[r.RuleID] = r
	}
	if r := byRule["AUTH-9262"]; r.Level != "error" || r.Locations[0].PhysicalLocation.ArtifactLocation.URI != "file:///etc/shadow" {
		t.Errorf("critical result = %+v", r)
	}
	if r := byRule["BANN-7126"]; r.Level != "note" || r.Locations[0].PhysicalLocation.ArtifactLocation.URI != "host://web-01" {
		t.Errorf("low result = %+v", r)
	}
	if _, ok := byRule["hardenscope/suggestion"]; !ok {
		t.Error("finding without test ID should use a per-kind rule")
	}
}

func TestSarifLevel(t *testing.T) {
	tests := map[models.Severity]string{
		models.SeverityCritical: "error",
		models.SeverityHigh:     "error",
		models.SeverityMedium:   "warning",
		models.SeverityLow:      "note",
		models.SeverityInfo:     "note",
	}
	for sev, want := range tests {
		if got := sarifLevel(sev); got != want {
			t.Errorf("sarifLevel(%s) = %s, want %s", sev, got, want)
		}
	}
}
