package classifier

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
	"gopkg.in/yaml.v3"
)

// KeywordTiers are the severities that carry keyword tables, in scan order.
var KeywordTiers = []models.Severity{
	models.SeverityCritical,
	models.SeverityHigh,
	models.SeverityMedium,
	models.SeverityLow,
}

// Rules is the data that drives classification.
// Keywords are matched as case-insensitive substrings of the message.
// Path patterns are regular expressions matched against the referenced path.
type Rules struct {
	Keywords      map[models.Severity][]string `yaml:"keywords"`
	CriticalPaths []string                     `yaml:"critical_paths,omitempty"`
	HighPaths     []string                     `yaml:"high_paths,omitempty"`

	// TestIDs pins specific audit test identifiers to a severity.
	TestIDs map[string]models.Severity `yaml:"test_ids,omitempty"`
}

// DefaultRules returns the built-in tables. Each call returns a fresh copy.
func DefaultRules() Rules {
	return Rules{
		Keywords: map[models.Severity][]string{
			models.SeverityCritical: {
				"root password",
				"no password",
				"empty password",
				"weak password",
				"default password",
				"remote root login",
				"ssh root login",
				"root login",
				"disabled security",
				"unpatched vulnerability",
				"critical vulnerability",
				"vulnerable package",
				"remote code execution",
				"privilege escalation",
				"compromised",
				"backdoor",
				"rootkit found",
				"malware found",
				"malware detected",
			},
			models.SeverityHigh: {
				"firewall",
				"disabled",
				"not installed",
				"not running",
				"unencrypted",
				"weak cipher",
				"outdated",
				"deprecated",
				"world writable",
				"world readable",
				"permission 777",
				"selinux",
				"apparmor",
				"security module",
				"kernel parameter",
				"sysctl",
				"insecure protocol",
				"telnet",
				"ftp server",
				"ftp service",
				"rsh service",
				"rlogin",
				"no authentication",
			},
			models.SeverityMedium: {
				"warning",
				"configuration",
				"update available",
				"upgrade",
				"missing",
				"not found",
				"permission",
				"ownership",
				"log file",
				"logging",
				"audit",
				"monitoring",
				"integrity",
				"certificate",
				"ssl",
				"tls",
				"encryption",
				"network service",
				"open port",
				"listening",
			},
			models.SeverityLow: {
				"suggestion",
				"recommendation",
				"consider",
				"optional",
				"banner",
				"informational",
				"documentation",
				"optimization",
				"performance",
				"best practice",
			},
		},
		CriticalPaths: []string{
			`^/etc/shadow`,
			`^/etc/gshadow`,
			`^/etc/passwd`,
			`^/root/\.ssh`,
			`\.pem$`,
			`\.key$`,
			`private.*key`,
		},
		HighPaths: []string{
			`^/etc/sudoers`,
			`^/etc/ssh/sshd_config`,
			`^/etc/pam\.d/`,
			`^/boot/`,
			`authorized_keys`,
		},
		TestIDs: map[string]models.Severity{},
	}
}

// RuleFile is the on-disk form of custom rules.
type RuleFile struct {
	// Mode is "extend" (default) to add to the built-in tables
	// or "replace" to use only the file's tables.
	Mode  string `yaml:"mode"`
	Rules `yaml:",inline"`
}

// Rule file modes.
const (
	ModeExtend  = "extend"
	ModeReplace = "replace"
)

// LoadRuleFile reads a YAML rule file.
func LoadRuleFile(path string) (*RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if rf.Mode == "" {
		rf.Mode = ModeExtend
	}
	if rf.Mode != ModeExtend && rf.Mode != ModeReplace {
		return nil, fmt.Errorf("invalid rules mode %q (must be %s or %s)", rf.Mode, ModeExtend, ModeReplace)
	}
	for sev := range rf.Keywords {
		if !isKeywordTier(sev) {
			return nil, fmt.Errorf("invalid keyword tier %q", sev)
		}
	}
	for id, sev := range rf.TestIDs {
		if !sev.IsValid() {
			return nil, fmt.Errorf("invalid severity %q for test %s", sev, id)
		}
	}
	return &rf, nil
}

// Apply combines the file's tables with base according to the file's mode.
func (rf *RuleFile) Apply(base Rules) Rules {
	if rf.Mode == ModeReplace {
		return rf.Rules.clone()
	}
	return base.Merge(rf.Rules)
}

// Merge returns r extended with other's entries. Duplicates are dropped.
func (r Rules) Merge(other Rules) Rules {
	out := r.clone()
	for _, sev := range KeywordTiers {
		out.Keywords[sev] = appendUnique(out.Keywords[sev], other.Keywords[sev]...)
	}
	out.CriticalPaths = appendUnique(out.CriticalPaths, other.CriticalPaths...)
	out.HighPaths = appendUnique(out.HighPaths, other.HighPaths...)
	for id, sev := range other.TestIDs {
		out.TestIDs[id] = sev
	}
	return out
}

func (r Rules) clone() Rules {
	out := Rules{
		Keywords:      make(map[models.Severity][]string, len(KeywordTiers)),
		CriticalPaths: append([]string(nil), r.CriticalPaths...),
		HighPaths:     append([]string(nil), r.HighPaths...),
		TestIDs:       make(map[string]models.Severity, len(r.TestIDs)),
	}
	for sev, kws := range r.Keywords {
		out.Keywords[sev] = append([]string(nil), kws...)
	}
	for id, sev := range r.TestIDs {
		out.TestIDs[id] = sev
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(dst))
	for _, v := range dst {
		seen[strings.ToLower(v)] = true
	}
	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		dst = append(dst, v)
	}
	return dst
}

func isKeywordTier(sev models.Severity) bool {
	for _, t := range KeywordTiers {
		if t == sev {
			return true
		}
	}
	return false
}
