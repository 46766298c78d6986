package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/hardenscope/internal/aggregator"
)

func withDiffFlags(t *testing.T, format, baseline string, failNew bool) {
	t.Helper()
	oldFormat, oldOutput, oldBaseline, oldFail := diffFormat, diffOutput, diffBaseline, diffFailNew
	t.Cleanup(func() {
		diffFormat, diffOutput, diffBaseline, diffFailNew = oldFormat, oldOutput, oldBaseline, oldFail
	})
	diffFormat, diffOutput, diffBaseline, diffFailNew = format, "", baseline, failNew
}

func TestRunDiffStoredScans(t *testing.T) {
	testConfig(t)
	_, metas := seedScans(t, sampleAudit, improvedAudit)
	withDiffFlags(t, "json", "", false)

	var err error
	out := captureStdout(t, func() { err = runDiff(diffCmd, nil) })
	if err != nil {
		t.Fatalf("runDiff: %v", err)
	}

	var result DiffResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if result.Baseline != metas[0].ID || result.Current != metas[1].ID {
		t.Errorf("baseline=%s current=%s", result.Baseline, result.Current)
	}
	if len(result.NewFindings) != 0 || len(result.ResolvedFindings) != 2 || result.Unchanged != 1 {
		t.Errorf("new=%d resolved=%d unchanged=%d", len(result.NewFindings), len(result.ResolvedFindings), result.Unchanged)
	}
	if result.Trend == nil || result.Trend.HardeningDelta != 7 {
		t.Errorf("trend = %+v", result.Trend)
	}
}

func TestRunDiffFailNewAgainstFileBaseline(t *testing.T) {
	testConfig(t)
	seedScans(t, sampleAudit)
	baseline := writeFile(t, t.TempDir(), "golden.txt", improvedAudit)
	withDiffFlags(t, "text", baseline, true)

	var err error
	out := captureStdout(t, func() { err = runDiff(diffCmd, nil) })

	var te *ThresholdExceededError
	if !errors.As(err, &te) || te.FindingCount != 2 {
		t.Fatalf("expected 2 new findings to fail, got %v", err)
	}
	for _, want := range []string{"Drift Delta", "Baseline: " + baseline, "New findings: 2", "FIRE-4512"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestRunDiffNeedsTwoScans(t *testing.T) {
	testConfig(t)
	seedScans(t, sampleAudit)
	withDiffFlags(t, "text", "", false)

	var err error
	out := captureStdout(t, func() { err = runDiff(diffCmd, nil) })
	if err != nil {
		t.Fatalf("runDiff: %v", err)
	}
	if !strings.Contains(out, "Need at least 2 stored scans") {
		t.Errorf("output = %q", out)
	}
}

func TestRunDiffValidation(t *testing.T) {
	testConfig(t)
	var ve *ValidationError

	withDiffFlags(t, "xml", "", false)
	if err := runDiff(diffCmd, nil); !errors.As(err, &ve) {
		t.Errorf("bad format: expected ValidationError, got %v", err)
	}

	withDiffFlags(t, "text", "", false)
	_ = captureStderr(t, func() {
		_ = captureStdout(t, func() {
			if err := runDiff(diffCmd, nil); !errors.As(err, &ve) {
				t.Errorf("empty store: expected ValidationError, got %v", err)
			}
		})
	})
}

func TestLoadBaselineScanID(t *testing.T) {
	testConfig(t)
	store, metas := seedScans(t, sampleAudit)

	label, report, ts, err := loadBaseline(store, metas[0].ID)
	if err != nil {
		t.Fatalf("loadBaseline: %v", err)
	}
	if label != metas[0].ID || report.TotalFindings() != 3 || ts.IsZero() {
		t.Errorf("label=%s findings=%d ts=%v", label, report.TotalFindings(), ts)
	}

	if _, _, _, err := loadBaseline(store, filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing baseline file")
	}
}

func TestPrintDiffTextNoDrift(t *testing.T) {
	testConfig(t)
	p, err := newParser()
	if err != nil {
		t.Fatal(err)
	}
	report := p.Parse(sampleAudit)
	result := &DiffResult{
		Baseline:   "a",
		Current:    "b",
		Comparison: aggregator.NewTrendAnalyzer().Compare(report, report, time.Time{}),
	}

	var buf strings.Builder
	if err := printDiffText(&buf, result); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No drift detected.") || !strings.Contains(buf.String(), "Unchanged: 3") {
		t.Errorf("output = %q", buf.String())
	}
}
