package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/hardenscope/internal/discovery"
)

func TestJoinMax(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		n    int
		want string
	}{
		{"under limit", []string{"a", "b"}, 3, "a, b"},
		{"exact limit", []string{"a", "b", "c"}, 3, "a, b, c"},
		{"over limit", []string{"a", "b", "c", "d", "e"}, 2, "a, b +3 more"},
		{"empty", nil, 3, ""},
		{"single", []string{"only"}, 1, "only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinMax(tt.in, tt.n); got != tt.want {
				t.Errorf("joinMax = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteDoctorText(t *testing.T) {
	result := doctorResult{
		Checks: []doctorCheck{
			{Name: "config", Status: "ok", Detail: "/etc/hardenscope.yaml"},
			{Name: "lynis", Status: "fail", Detail: "lynis not found in PATH"},
			{Name: "profiles", Status: "warn"},
		},
		Summary: "1 issue(s) found",
	}

	out := captureStdout(t, func() {
		if err := writeDoctorText(result); err != nil {
			t.Errorf("writeDoctorText: %v", err)
		}
	})
	for _, want := range []string{"✓ config", "✗ lynis", "△ profiles", "1 issue(s) found"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSummarizeChecks(t *testing.T) {
	tests := []struct {
		statuses []string
		want     string
	}{
		{[]string{"ok", "ok"}, "all checks passed"},
		{[]string{"ok", "warn", "warn"}, "ok with 2 warning(s)"},
		{[]string{"fail", "warn"}, "1 issue(s) found"},
	}
	for _, tt := range tests {
		var checks []doctorCheck
		for _, s := range tt.statuses {
			checks = append(checks, doctorCheck{Status: s})
		}
		if got := summarizeChecks(checks); got != tt.want {
			t.Errorf("summarizeChecks(%v) = %q, want %q", tt.statuses, got, tt.want)
		}
	}
}

func TestCheckLynisAndPrivileges(t *testing.T) {
	tests := []struct {
		name      string
		plan      discovery.Plan
		lynis     string
		privilege string
	}{
		{
			name:      "root with lynis",
			plan:      discovery.Plan{Lynis: discovery.BinaryStatus{Name: "lynis", Path: "/usr/sbin/lynis", Available: true}, IsRoot: true},
			lynis:     "ok",
			privilege: "ok",
		},
		{
			name: "sudo available",
			plan: discovery.Plan{
				Lynis:     discovery.BinaryStatus{Name: "lynis", Path: "/usr/sbin/lynis", Available: true},
				Sudo:      discovery.BinaryStatus{Name: "sudo", Path: "/usr/bin/sudo", Available: true},
				NeedsSudo: true,
			},
			lynis:     "ok",
			privilege: "ok",
		},
		{
			name:      "sudo missing",
			plan:      discovery.Plan{Lynis: discovery.BinaryStatus{Name: "lynis"}, NeedsSudo: true, Reason: "sudo not found"},
			lynis:     "fail",
			privilege: "fail",
		},
		{
			name:      "unprivileged without sudo",
			plan:      discovery.Plan{Lynis: discovery.BinaryStatus{Name: "lynis", Available: true}},
			lynis:     "ok",
			privilege: "warn",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkLynis(&tt.plan).Status; got != tt.lynis {
				t.Errorf("lynis status = %s, want %s", got, tt.lynis)
			}
			if got := checkPrivileges(&tt.plan).Status; got != tt.privilege {
				t.Errorf("privilege status = %s, want %s", got, tt.privilege)
			}
		})
	}
}

func TestCheckConfig(t *testing.T) {
	testConfig(t)
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	old := configFile
	t.Cleanup(func() { configFile = old })

	configFile = ""
	if c := checkConfig(); c.Status != "warn" {
		t.Errorf("no config: status = %s", c.Status)
	}

	path := writeFile(t, t.TempDir(), "hardenscope.yaml", "format: json\n")
	configFile = path
	if c := checkConfig(); c.Status != "ok" || c.Detail != path {
		t.Errorf("config: %+v", c)
	}

	configFile = filepath.Join(t.TempDir(), "gone.yaml")
	if c := checkConfig(); c.Status != "fail" {
		t.Errorf("missing explicit config: status = %s", c.Status)
	}
}

func TestCheckRules(t *testing.T) {
	c := testConfig(t)
	if got := checkRules(); got.Status != "ok" {
		t.Errorf("built-in rules: %+v", got)
	}

	c.RulesFile = writeFile(t, t.TempDir(), "rules.yaml", "mode: replace\nkeywords:\n  high: [telnet]\n")
	if got := checkRules(); got.Status != "ok" || !strings.Contains(got.Detail, "replace") {
		t.Errorf("valid rules: %+v", got)
	}

	c.RulesFile = writeFile(t, t.TempDir(), "bad.yaml", "mode: merge\n")
	if got := checkRules(); got.Status != "fail" {
		t.Errorf("invalid rules: %+v", got)
	}
}

func TestCheckPolicy(t *testing.T) {
	dir := chdirTemp(t)
	if got := checkPolicy(); got.Status != "ok" {
		t.Errorf("no policy: %+v", got)
	}
	writeFile(t, dir, ".hardenscope-policy.yaml", "rules:\n  min_hardening_index: 150\n")
	if got := checkPolicy(); got.Status != "fail" {
		t.Errorf("invalid policy: %+v", got)
	}
}

func TestCheckStorage(t *testing.T) {
	c := testConfig(t)
	if got := checkStorage(); got.Status != "ok" || got.Detail != c.StorageDir {
		t.Errorf("writable dir: %+v", got)
	}

	c.StorageDir = filepath.Join(t.TempDir(), "not-yet")
	if got := checkStorage(); got.Status != "ok" || !strings.Contains(got.Detail, "will be created") {
		t.Errorf("missing dir: %+v", got)
	}

	c.StorageDir = writeFile(t, t.TempDir(), "file", "x")
	if got := checkStorage(); got.Status != "fail" {
		t.Errorf("file instead of dir: %+v", got)
	}
}

func TestRunDoctorJSON(t *testing.T) {
	testConfig(t)
	chdirTemp(t)

	oldLook, oldEUID, oldFormat := probeLookPath, probeGeteuid, doctorFormat
	t.Cleanup(func() { probeLookPath, probeGeteuid, doctorFormat = oldLook, oldEUID, oldFormat })
	probeLookPath = func(file string) (string, error) {
		if file == "lynis" {
			return "/usr/sbin/lynis", nil
		}
		return "", errors.New("not found")
	}
	probeGeteuid = func() int { return 0 }
	doctorFormat = "json"

	var err error
	out := captureStdout(t, func() { err = runDoctor(doctorCmd, nil) })
	if err != nil {
		t.Fatalf("runDoctor: %v", err)
	}

	var result doctorResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	statuses := map[string]string{}
	for _, c := range result.Checks {
		statuses[c.Name] = c.Status
	}
	if statuses["lynis"] != "ok" || statuses["privileges"] != "ok" || statuses["storage"] != "ok" {
		t.Errorf("statuses = %v", statuses)
	}
	if result.Summary == "" {
		t.Error("summary should be set")
	}
}

