package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/classifier"
	"github.com/ppiankov/hardenscope/internal/config"
	"github.com/ppiankov/hardenscope/internal/discovery"
	"github.com/ppiankov/hardenscope/internal/policy"
)

var doctorFormat string

// Host probes used by doctor and run; tests replace them.
var (
	probeLookPath discovery.LookPathFunc = exec.LookPath
	probeGeteuid  discovery.EUIDFunc     = os.Geteuid
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment readiness and diagnose common problems",
	Long: `Doctor validates your hardenscope setup end-to-end:

  1. Config file      found and readable?
  2. Lynis            installed?
  3. Privileges       root, or sudo available?
  4. Lynis profiles   present?
  5. Report files     saved audits available to parse?
  6. Rules and policy loadable?
  7. Storage          directory writable?

Fix the issues it reports, then run 'hardenscope run' with confidence.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text",
		"output format: text or json")
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

type doctorResult struct {
	Checks  []doctorCheck `json:"checks"`
	Summary string        `json:"summary"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	plan := discovery.New(probeLookPath, probeGeteuid).Discover(discovery.Options{
		LynisBinary: cfg.LynisBinary,
		SudoBinary:  cfg.SudoBinary,
		UseSudo:     cfg.UseSudo,
	})

	var checks []doctorCheck
	checks = append(checks, checkConfig())
	checks = append(checks, checkLynis(plan))
	checks = append(checks, checkPrivileges(plan))
	checks = append(checks, checkProfiles(plan))
	checks = append(checks, checkReportFiles(plan))
	checks = append(checks, checkRules())
	checks = append(checks, checkPolicy())
	checks = append(checks, checkStorage())

	result := doctorResult{Checks: checks, Summary: summarizeChecks(checks)}

	if doctorFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	return writeDoctorText(result)
}

func summarizeChecks(checks []doctorCheck) string {
	fails, warns := 0, 0
	for _, c := range checks {
		switch c.Status {
		case "fail":
			fails++
		case "warn":
			warns++
		}
	}

	switch {
	case fails > 0:
		return fmt.Sprintf("%d issue(s) found", fails)
	case warns > 0:
		return fmt.Sprintf("ok with %d warning(s)", warns)
	}
	return "all checks passed"
}

func writeDoctorText(result doctorResult) error {
	icons := map[string]string{
		"ok":   "✓",
		"warn": "△",
		"fail": "✗",
	}

	for _, c := range result.Checks {
		icon := icons[c.Status]
		if c.Detail != "" {
			fmt.Printf("  %s %-14s %s\n", icon, c.Name, c.Detail)
		} else {
			fmt.Printf("  %s %s\n", icon, c.Name)
		}
	}

	fmt.Printf("\n%s\n", result.Summary)
	return nil
}

func checkConfig() doctorCheck {
	path := configFile
	if path == "" {
		for _, candidate := range []string{"hardenscope.yaml", config.ConfigPath()} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path == "" {
		return doctorCheck{
			Name:   "config",
			Status: "warn",
			Detail: "no config file found (using defaults). Run: hardenscope init",
		}
	}
	if _, err := os.Stat(path); err != nil {
		return doctorCheck{Name: "config", Status: "fail", Detail: fmt.Sprintf("%s: %v", path, err)}
	}

	return doctorCheck{Name: "config", Status: "ok", Detail: path}
}

func checkLynis(plan *discovery.Plan) doctorCheck {
	if !plan.Lynis.Available {
		return doctorCheck{
			Name:   "lynis",
			Status: "fail",
			Detail: fmt.Sprintf("%s not found in PATH. Install it from your package manager or cisofy.com/lynis", plan.Lynis.Name),
		}
	}
	return doctorCheck{Name: "lynis", Status: "ok", Detail: plan.Lynis.Path}
}

func checkPrivileges(plan *discovery.Plan) doctorCheck {
	switch {
	case plan.IsRoot:
		return doctorCheck{Name: "privileges", Status: "ok", Detail: "running as root"}
	case plan.NeedsSudo && plan.Sudo.Available:
		return doctorCheck{
			Name:   "privileges",
			Status: "ok",
			Detail: fmt.Sprintf("audit will run through %s -n (needs passwordless sudo)", plan.Sudo.Path),
		}
	case plan.NeedsSudo:
		return doctorCheck{Name: "privileges", Status: "fail", Detail: plan.Reason}
	}
	return doctorCheck{
		Name:   "privileges",
		Status: "warn",
		Detail: "not root and use_sudo is off; many tests will be skipped",
	}
}

func checkProfiles(plan *discovery.Plan) doctorCheck {
	var found []string
	for _, p := range plan.Profiles {
		if p.Exists {
			found = append(found, p.Path)
		}
	}
	if len(found) == 0 {
		return doctorCheck{Name: "profiles", Status: "warn", Detail: "no Lynis profile found (lynis uses its built-in defaults)"}
	}
	return doctorCheck{Name: "profiles", Status: "ok", Detail: joinMax(found, 2)}
}

func checkReportFiles(plan *discovery.Plan) doctorCheck {
	found := plan.ExistingReportFiles()
	if len(found) == 0 {
		return doctorCheck{Name: "report files", Status: "ok", Detail: "none yet (created by the first audit)"}
	}
	return doctorCheck{
		Name:   "report files",
		Status: "ok",
		Detail: fmt.Sprintf("%s (parse with: hardenscope parse <file>)", joinMax(found, 2)),
	}
}

func checkRules() doctorCheck {
	if cfg.RulesFile == "" {
		return doctorCheck{Name: "rules", Status: "ok", Detail: "built-in classification rules"}
	}
	rf, err := classifier.LoadRuleFile(cfg.RulesFile)
	if err != nil {
		return doctorCheck{Name: "rules", Status: "fail", Detail: err.Error()}
	}
	if _, err := classifier.New(rf.Apply(classifier.DefaultRules())); err != nil {
		return doctorCheck{Name: "rules", Status: "fail", Detail: err.Error()}
	}
	return doctorCheck{Name: "rules", Status: "ok", Detail: fmt.Sprintf("%s (%s)", cfg.RulesFile, rf.Mode)}
}

func checkPolicy() doctorCheck {
	path := policy.FindPolicyFile()
	if path == "" {
		return doctorCheck{Name: "policy", Status: "ok", Detail: "no policy file (only --fail-threshold gates)"}
	}
	if _, err := policy.LoadFromFile(path); err != nil {
		return doctorCheck{Name: "policy", Status: "fail", Detail: err.Error()}
	}
	return doctorCheck{Name: "policy", Status: "ok", Detail: path}
}

func checkStorage() doctorCheck {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		return doctorCheck{Name: "storage", Status: "fail", Detail: err.Error()}
	}

	info, err := os.Stat(storagePath)
	if err != nil {
		return doctorCheck{
			Name:   "storage",
			Status: "ok",
			Detail: fmt.Sprintf("%s (will be created on first --store)", storagePath),
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s exists but is not a directory", storagePath),
		}
	}

	tmpFile := filepath.Join(storagePath, ".doctor-check")
	if err := os.WriteFile(tmpFile, []byte("ok"), 0o600); err != nil {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s not writable: %v", storagePath, err),
		}
	}
	_ = os.Remove(tmpFile)

	return doctorCheck{Name: "storage", Status: "ok", Detail: storagePath}
}

// joinMax joins up to n strings with ", ".
func joinMax(s []string, n int) string {
	if len(s) <= n {
		return strings.Join(s, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(s[:n], ", "), len(s)-n)
}
