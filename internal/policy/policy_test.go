package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/hardenscope/internal/models"
)

func intPtr(v int) *int { return &v }

func baseReport() *models.ParsedReport {
	r := models.NewParsedReport()
	r.Score = models.Score{HardeningIndex: 64, Status: models.StatusGood}
	r.Findings[models.SeverityCritical] = []models.Finding{
		{Kind: models.KindWarning, TestID: "SSH-7412", Message: "Root login permitted", Severity: models.SeverityCritical},
	}
	r.Findings[models.SeverityLow] = []models.Finding{
		{Kind: models.KindSuggestion, TestID: "BANN-7126", Message: "Add a banner", Severity: models.SeverityLow},
	}
	r.SeveritySummary[models.SeverityCritical] = 1
	r.SeveritySummary[models.SeverityLow] = 1
	r.SecurityComponents = models.SecurityComponents{Firewall: true}
	return r
}

func TestEvaluateNilPolicy(t *testing.T) {
	var p *Policy
	result := p.Evaluate(baseReport())
	if !result.Pass {
		t.Error("nil policy should pass")
	}
}

func TestEvaluateRules(t *testing.T) {
	tests := []struct {
		name     string
		rules    Rules
		wantRule string // empty means pass
	}{
		{"max_findings pass", Rules{MaxFindings: intPtr(2)}, ""},
		{"max_findings fail", Rules{MaxFindings: intPtr(1)}, "max_findings"},
		{"max_critical pass", Rules{MaxCritical: intPtr(1)}, ""},
		{"max_critical fail", Rules{MaxCritical: intPtr(0)}, "max_critical"},
		{"max_high pass", Rules{MaxHigh: intPtr(0)}, ""},
		{"min index pass", Rules{MinHardeningIndex: intPtr(64)}, ""},
		{"min index fail", Rules{MinHardeningIndex: intPtr(70)}, "min_hardening_index"},
		{"firewall present", Rules{RequireComponents: []string{"firewall"}}, ""},
		{"malware missing", Rules{RequireComponents: []string{"malware_scanner"}}, "require_components"},
		{"ids alias missing", Rules{RequireComponents: []string{"IDS"}}, "require_components"},
		{"forbidden test present", Rules{ForbidTests: []string{"ssh-7412"}}, "forbid_tests"},
		{"forbidden test absent", Rules{ForbidTests: []string{"KRNL-5820"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Policy{Rules: tt.rules}
			result := p.Evaluate(baseReport())
			if tt.wantRule == "" {
				if !result.Pass {
					t.Fatalf("expected pass, got %v", result.Violations)
				}
				return
			}
			if result.Pass {
				t.Fatal("expected fail")
			}
			if len(result.Violations) != 1 || result.Violations[0].Rule != tt.wantRule {
				t.Errorf("expected single %s violation, got %v", tt.wantRule, result.Violations)
			}
		})
	}
}

func TestEvaluateMultipleViolations(t *testing.T) {
	p := &Policy{Rules: Rules{
		MaxCritical:       intPtr(0),
		MinHardeningIndex: intPtr(90),
		RequireComponents: []string{"firewall", "intrusion_software", "malware_scanner"},
	}}
	result := p.Evaluate(baseReport())
	if result.Pass {
		t.Fatal("expected fail")
	}
	if len(result.Violations) != 4 {
		t.Errorf("expected 4 violations, got %d: %v", len(result.Violations), result.Violations)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".hardenscope-policy.yaml")
	content := `version: "1"
rules:
  max_critical: 0
  min_hardening_index: 70
  require_components: [firewall]
  forbid_tests: [SSH-7412]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Rules.MaxCritical == nil || *p.Rules.MaxCritical != 0 {
		t.Errorf("max_critical = %v", p.Rules.MaxCritical)
	}
	if p.Rules.MinHardeningIndex == nil || *p.Rules.MinHardeningIndex != 70 {
		t.Errorf("min_hardening_index = %v", p.Rules.MinHardeningIndex)
	}
	if p.Rules.MaxHigh != nil {
		t.Error("unset max_high should stay nil")
	}
	if len(p.Rules.ForbidTests) != 1 {
		t.Errorf("forbid_tests = %v", p.Rules.ForbidTests)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	p, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || p != nil {
		t.Errorf("expected nil policy and nil error, got %v, %v", p, err)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":          "rules: [",
		"negative limit":    "rules:\n  max_high: -1\n",
		"index over 100":    "rules:\n  min_hardening_index: 101\n",
		"unknown component": "rules:\n  require_components: [antivirus]\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromFile(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFindPolicyFileWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(root, ".hardenscope-policy.yml")
	if err := os.WriteFile(want, []byte("version: \"1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := findFrom(nested); got != want {
		t.Errorf("findFrom = %q, want %q", got, want)
	}
}

func TestFindPolicyFileNone(t *testing.T) {
	got := findFrom(t.TempDir())
	if got != "" && !strings.HasSuffix(got, FileNames[0]) && !strings.HasSuffix(got, FileNames[1]) {
		t.Errorf("unexpected result %q", got)
	}
}
