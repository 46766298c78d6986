package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
	"gopkg.in/yaml.v3"
)

// FileNames are the policy file names searched for, in order.
var FileNames = []string{".hardenscope-policy.yaml", ".hardenscope-policy.yml"}

// Security component names accepted by require_components.
const (
	ComponentFirewall  = "firewall"
	ComponentIntrusion = "intrusion_software"
	ComponentMalware   = "malware_scanner"
)

// Policy defines enforcement rules for audit results.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable policy rules. Nil limits are not enforced.
type Rules struct {
	MaxFindings       *int     `yaml:"max_findings,omitempty"`
	MaxCritical       *int     `yaml:"max_critical,omitempty"`
	MaxHigh           *int     `yaml:"max_high,omitempty"`
	MinHardeningIndex *int     `yaml:"min_hardening_index,omitempty"`
	RequireComponents []string `yaml:"require_components,omitempty"`
	ForbidTests       []string `yaml:"forbid_tests,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// LoadFromFile reads a policy file. A missing file yields a nil policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}

	return &p, nil
}

// Validate rejects limits and component names that can never be met.
func (p *Policy) Validate() error {
	r := p.Rules
	for name, v := range map[string]*int{
		"max_findings": r.MaxFindings,
		"max_critical": r.MaxCritical,
		"max_high":     r.MaxHigh,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	if v := r.MinHardeningIndex; v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("min_hardening_index must be between 0 and 100, got %d", *v)
	}
	for _, c := range r.RequireComponents {
		if _, ok := componentPresent(models.SecurityComponents{}, c); !ok {
			return fmt.Errorf("unknown component %q (use %s, %s or %s)", c, ComponentFirewall, ComponentIntrusion, ComponentMalware)
		}
	}
	return nil
}

// FindPolicyFile searches for a policy file in the current directory
// and parent directories up to the filesystem root.
func FindPolicyFile() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return findFrom(dir)
}

func findFrom(dir string) string {
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Evaluate checks a parsed report against the policy rules.
func (p *Policy) Evaluate(report *models.ParsedReport) *Result {
	if p == nil || report == nil {
		return &Result{Pass: true, Violations: []Violation{}}
	}

	violations := []Violation{}
	add := func(rule, format string, args ...any) {
		violations = append(violations, Violation{Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	if limit := p.Rules.MaxFindings; limit != nil {
		if total := report.TotalFindings(); total > *limit {
			add("max_findings", "total findings %d exceeds limit %d", total, *limit)
		}
	}

	if limit := p.Rules.MaxCritical; limit != nil {
		if count := report.SeveritySummary[models.SeverityCritical]; count > *limit {
			add("max_critical", "critical findings %d exceeds limit %d", count, *limit)
		}
	}

	if limit := p.Rules.MaxHigh; limit != nil {
		if count := report.SeveritySummary[models.SeverityHigh]; count > *limit {
			add("max_high", "high findings %d exceeds limit %d", count, *limit)
		}
	}

	if minimum := p.Rules.MinHardeningIndex; minimum != nil {
		if idx := report.Score.HardeningIndex; idx < *minimum {
			add("min_hardening_index", "hardening index %d below minimum %d", idx, *minimum)
		}
	}

	for _, c := range p.Rules.RequireComponents {
		present, known := componentPresent(report.SecurityComponents, c)
		if known && !present {
			add("require_components", "required component %q not detected", c)
		}
	}

	if len(p.Rules.ForbidTests) > 0 {
		forbidden := make(map[string]bool, len(p.Rules.ForbidTests))
		for _, id := range p.Rules.ForbidTests {
			forbidden[strings.ToUpper(strings.TrimSpace(id))] = true
		}
		reported := make(map[string]bool)
		for _, f := range report.AllFindings() {
			id := strings.ToUpper(f.TestID)
			if forbidden[id] && !reported[id] {
				reported[id] = true
				add("forbid_tests", "forbidden test %s reported: %s", f.TestID, f.Message)
			}
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}

func componentPresent(c models.SecurityComponents, name string) (present, known bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ComponentFirewall:
		return c.Firewall, true
	case ComponentIntrusion, "ids", "intrusion":
		return c.IntrusionSoftware, true
	case ComponentMalware, "malware":
		return c.MalwareScanner, true
	}
	return false, false
}
