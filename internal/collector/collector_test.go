package collector

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/hardenscope/internal/models"
)

const screenOutput = `[ Lynis 3.0.9 ]

  -[ Lynis 3.0.9 Results ]-

  Warnings (2):
  ----------------------------
  ! Root login permitted over SSH [SSH-7412]
  ! Firewall is not running [FIRE-4512]

  Suggestions (1):
  ----------------------------
  * Consider hardening SSH configuration [SSH-7408]
      - Details  : AllowTcpForwarding (set YES to NO)

  Hardening index : 58 [###########         ]
  Tests performed : 240
`

const reportFile = `report_version_major=1
lynis_version=3.0.9
hardening_index=82
warning[]=AUTH-9262|No password set for single mode|-|-|
suggestion[]=BANN-7126|Add a legal banner to /etc/issue|-|-|
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewDefaults(t *testing.T) {
	c := New(Config{}, nil)
	if c.config.MaxConcurrency != 10 {
		t.Errorf("expected default MaxConcurrency=10, got %d", c.config.MaxConcurrency)
	}
	if c.config.Timeout <= 0 {
		t.Error("expected positive default timeout")
	}
	if c.parser == nil {
		t.Error("expected default parser")
	}
}

func TestCollectFromPathsEmpty(t *testing.T) {
	c := New(Config{}, nil)
	if _, err := c.CollectFromPaths(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty paths")
	}
}

func TestCollectFromPathsNonexistent(t *testing.T) {
	c := New(Config{}, nil)
	if _, err := c.CollectFromPaths(context.Background(), []string{"/nonexistent/lynis.txt"}); err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestCollectFromPathsEmptyDirectory(t *testing.T) {
	c := New(Config{}, nil)
	if _, err := c.CollectFromPaths(context.Background(), []string{t.TempDir()}); err == nil {
		t.Fatal("expected error for directory without audit files")
	}
}

func TestCollectFromPathsSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "audit.txt", screenOutput)

	c := New(Config{MaxConcurrency: 1}, nil)
	outcome, err := c.CollectFromPaths(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(outcome.Results))
	}

	res := outcome.Results[0]
	if res.Source != SourceScreen {
		t.Errorf("expected screen source, got %s", res.Source)
	}
	if res.Report.Score.HardeningIndex != 58 {
		t.Errorf("expected hardening index 58, got %d", res.Report.Score.HardeningIndex)
	}
	if res.Report.SeveritySummary[models.SeverityCritical] != 1 {
		t.Errorf("expected 1 critical finding, got %v", res.Report.SeveritySummary)
	}
}

func TestCollectFromPathsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "host-a.txt", screenOutput)
	writeFile(t, dir, "nested/lynis-report.dat", reportFile)
	writeFile(t, dir, "notes.md", "# not picked up")

	c := New(Config{MaxConcurrency: 2}, nil)
	outcome, err := c.CollectFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(outcome.Results))
	}
	if len(outcome.Errors) != 0 {
		t.Errorf("expected no errors, got %v", outcome.Errors)
	}

	// Sorted by path.
	if filepath.Base(outcome.Results[0].Path) != "host-a.txt" {
		t.Errorf("unexpected order: %s", outcome.Results[0].Path)
	}
	dat := outcome.Results[1]
	if dat.Source != SourceReportFile || dat.Report.Score.HardeningIndex != 82 {
		t.Errorf("unexpected report file result: %s %d", dat.Source, dat.Report.Score.HardeningIndex)
	}
}

func TestCollectFromPathsDeduplicate(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "audit.txt", screenOutput)

	c := New(Config{MaxConcurrency: 2}, nil)
	outcome, err := c.CollectFromPaths(context.Background(), []string{path, path, dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Results) != 1 {
		t.Fatalf("expected 1 result (deduplicated), got %d", len(outcome.Results))
	}
}

func TestCollectFromPathsPartial(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.txt", screenOutput)
	bad := writeFile(t, dir, "bad.txt", "grocery list\nmilk\n")

	c := New(Config{MaxConcurrency: 2}, nil)
	outcome, err := c.CollectFromPaths(context.Background(), []string{good, bad})
	if err != nil {
		t.Fatalf("partial success should not fail: %v", err)
	}
	if len(outcome.Results) != 1 || len(outcome.Errors) != 1 {
		t.Fatalf("expected 1 result and 1 error, got %d/%d", len(outcome.Results), len(outcome.Errors))
	}
	if !errors.Is(outcome.Errors[0], ErrUnrecognized) {
		t.Errorf("expected ErrUnrecognized, got %v", outcome.Errors[0])
	}
	if outcome.Errors[0].Path != bad {
		t.Errorf("expected error path %s, got %s", bad, outcome.Errors[0].Path)
	}
}

func TestCollectFromPathsAllInvalid(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.log", "nothing to see")

	c := New(Config{MaxConcurrency: 1}, nil)
	outcome, err := c.CollectFromPaths(context.Background(), []string{bad})
	if err == nil {
		t.Fatal("expected error when all files fail")
	}
	if outcome == nil || len(outcome.Errors) != 1 {
		t.Fatalf("expected the failure to be reported, got %+v", outcome)
	}
}

func TestCollectFromPathsCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "audit.txt", screenOutput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(Config{MaxConcurrency: 1, Timeout: time.Minute}, nil)
	_, err := c.CollectFromPaths(ctx, []string{path})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCollectManyFilesConcurrently(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 25; i++ {
		writeFile(t, dir, filepath.Join("runs", string(rune('a'+i))+".txt"), screenOutput)
	}

	c := New(Config{MaxConcurrency: 4}, nil)
	outcome, err := c.CollectFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(outcome.Results) != 25 {
		t.Fatalf("expected 25 results, got %d", len(outcome.Results))
	}
	for _, r := range outcome.Results {
		if r.Report.TotalFindings() != outcome.Results[0].Report.TotalFindings() {
			t.Fatalf("inconsistent parse results across workers")
		}
	}
}
