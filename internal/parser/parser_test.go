package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/hardenscope/internal/classifier"
	"github.com/ppiankov/hardenscope/internal/models"
)

func newParser() *Parser {
	return New(classifier.Default(), Options{})
}

func TestParseSample(t *testing.T) {
	r := newParser().Parse(sampleOutput)

	want := models.SystemInfo{
		OSName:           "Ubuntu",
		OSVersion:        "22.04",
		KernelVersion:    "5.15.0",
		Hostname:         "web01",
		HardwarePlatform: "x86_64",
	}
	if r.SystemInfo != want {
		t.Errorf("system info = %+v, want %+v", r.SystemInfo, want)
	}

	if r.Score.HardeningIndex != 64 || r.Score.Status != models.StatusGood {
		t.Errorf("score = %+v", r.Score)
	}
	if r.Statistics.TestsPerformed != 256 {
		t.Errorf("tests performed = %d", r.Statistics.TestsPerformed)
	}
	if r.Statistics.PluginsEnabled != 1 {
		t.Errorf("plugins enabled = %d", r.Statistics.PluginsEnabled)
	}
	if r.Statistics.WarningsCount != 2 || r.Statistics.SuggestionsCount != 3 {
		t.Errorf("counts = %d warnings, %d suggestions", r.Statistics.WarningsCount, r.Statistics.SuggestionsCount)
	}
	if r.Statistics.ReportedWarnings != 2 || r.Statistics.ReportedSuggestions != 3 {
		t.Errorf("reported = %d/%d", r.Statistics.ReportedWarnings, r.Statistics.ReportedSuggestions)
	}

	if !r.SecurityComponents.Firewall {
		t.Error("expected firewall present")
	}
	if r.SecurityComponents.IntrusionSoftware || r.SecurityComponents.MalwareScanner {
		t.Errorf("unexpected components: %+v", r.SecurityComponents)
	}

	wantSummary := map[models.Severity]int{
		models.SeverityCritical: 2, // root login, /etc/shadow
		models.SeverityHigh:     1,
		models.SeverityMedium:   0,
		models.SeverityLow:      1,
		models.SeverityInfo:     1,
	}
	for sev, n := range wantSummary {
		if r.SeveritySummary[sev] != n {
			t.Errorf("summary[%s] = %d, want %d", sev, r.SeveritySummary[sev], n)
		}
	}
	if r.RiskSummary != "CRITICAL: 2 critical issues require immediate attention!" {
		t.Errorf("risk summary = %q", r.RiskSummary)
	}
}

func TestParseSuggestionDetails(t *testing.T) {
	r := newParser().Parse(sampleOutput)

	low := r.Findings[models.SeverityLow]
	if len(low) != 1 {
		t.Fatalf("expected 1 low finding, got %d", len(low))
	}
	f := low[0]
	if f.TestID != "PKGS-7392" || f.Message != "Consider updating package" {
		t.Errorf("finding = %+v", f)
	}
	if len(f.Details) != DefaultMaxDetails {
		t.Fatalf("details = %v", f.Details)
	}
	if f.Details[0] != "Details  : apt-get upgrade" {
		t.Errorf("first detail = %q", f.Details[0])
	}

	crit := r.Findings[models.SeverityCritical]
	if crit[1].Path != "/etc/shadow" {
		t.Errorf("path = %q", crit[1].Path)
	}
	if crit[0].Kind != models.KindWarning || crit[1].Kind != models.KindSuggestion {
		t.Errorf("kinds out of order: %s, %s", crit[0].Kind, crit[1].Kind)
	}
}

func TestParseMaxDetailsOption(t *testing.T) {
	p := New(classifier.Default(), Options{MaxDetails: 1})
	r := p.Parse(sampleOutput)
	if got := len(r.Findings[models.SeverityLow][0].Details); got != 1 {
		t.Errorf("details = %d, want 1", got)
	}
}

func TestParseRoundTrip(t *testing.T) {
	text := "Warnings (3):\n" +
		"  ! SSH root login enabled\n" +
		"  ! Firewall is not running\n" +
		"  ! Consider updating package\n"

	r := newParser().Parse(text)

	want := map[models.Severity]int{
		models.SeverityCritical: 1,
		models.SeverityHigh:     1,
		models.SeverityMedium:   0,
		models.SeverityLow:      1,
		models.SeverityInfo:     0,
	}
	for sev, n := range want {
		if r.SeveritySummary[sev] != n {
			t.Errorf("summary[%s] = %d, want %d", sev, r.SeveritySummary[sev], n)
		}
	}
	if r.RiskSummary != "CRITICAL: 1 critical issues require immediate attention!" {
		t.Errorf("risk summary = %q", r.RiskSummary)
	}
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "   \n\n", "completely unrelated text"} {
		r := newParser().Parse(in)

		if r.Statistics != (models.Statistics{}) {
			t.Errorf("%q: statistics = %+v", in, r.Statistics)
		}
		if r.Score.HardeningIndex != 0 || r.Score.Status != models.StatusPoor {
			t.Errorf("%q: score = %+v", in, r.Score)
		}
		for _, sev := range models.AllSeverities {
			list, ok := r.Findings[sev]
			if !ok || len(list) != 0 {
				t.Errorf("%q: bucket %s = %v (present=%v)", in, sev, list, ok)
			}
		}
		if r.RiskSummary != "No significant issues detected." {
			t.Errorf("%q: risk summary = %q", in, r.RiskSummary)
		}
	}
}

func TestParseBytesNil(t *testing.T) {
	_, err := newParser().ParseBytes(nil)
	if !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}

	r, err := newParser().ParseBytes([]byte{})
	if err != nil {
		t.Fatalf("empty slice should parse: %v", err)
	}
	if r.TotalFindings() != 0 {
		t.Errorf("expected no findings")
	}
}

func TestParseReader(t *testing.T) {
	if _, err := newParser().ParseReader(nil); !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	r, err := newParser().ParseReader(strings.NewReader(sampleOutput))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}
	if r.Score.HardeningIndex != 64 {
		t.Errorf("hardening index = %d", r.Score.HardeningIndex)
	}
}

func TestParseMalformedNumbers(t *testing.T) {
	text := "Hardening index : abc\nTests performed : -5\nPlugins enabled : 2x\n"
	r := newParser().Parse(text)
	if r.Score.HardeningIndex != 0 || r.Statistics.TestsPerformed != 0 || r.Statistics.PluginsEnabled != 0 {
		t.Errorf("expected zeros, got score=%d stats=%+v", r.Score.HardeningIndex, r.Statistics)
	}
}

func TestParseHardeningIndexClamped(t *testing.T) {
	r := newParser().Parse("Hardening index : 250\n")
	if r.Score.HardeningIndex != 100 || r.Score.Status != models.StatusExcellent {
		t.Errorf("score = %+v", r.Score)
	}
}

func TestParseWarningMarkers(t *testing.T) {
	text := "some preamble\n[WARNING]: Test KRNL-5830 had a long execution: 31 seconds\n" +
		"  - Checking for vulnerable packages                 [ WARNING ]\n" +
		"[WARNING]:   \n"
	r := newParser().Parse(text)
	if r.Statistics.WarningsCount != 1 {
		t.Fatalf("warnings = %d, want 1", r.Statistics.WarningsCount)
	}
	f := r.AllFindings()[0]
	if f.Kind != models.KindWarning || !strings.HasPrefix(f.Message, "Test KRNL-5830") {
		t.Errorf("finding = %+v", f)
	}
}

func TestParseReportFileEntries(t *testing.T) {
	text := strings.Join([]string{
		"hostname=db02",
		"os_name=Debian",
		"os_kernel_version=6.1.0",
		"hardening_index=81",
		"lynis_tests_done=230",
		"warning[]=PKGS-7392|Found one or more vulnerable packages.|-|-|",
		"suggestion[]=SSH-7408|Consider hardening SSH configuration|AllowTcpForwarding (set YES to NO)|-|",
		"suggestion[]=SSH-7408|Consider hardening SSH configuration|ClientAliveCountMax (set 3 to 2)|-|",
		"malware_scanner_installed=1",
		"ids_ips_tooling[]=fail2ban",
		"suggestion[]=BROKEN",
	}, "\n")

	r := newParser().Parse(text)

	if r.SystemInfo.Hostname != "db02" || r.SystemInfo.OSName != "Debian" || r.SystemInfo.KernelVersion != "6.1.0" {
		t.Errorf("system info = %+v", r.SystemInfo)
	}
	if r.Score.HardeningIndex != 81 || r.Statistics.TestsPerformed != 230 {
		t.Errorf("score=%d tests=%d", r.Score.HardeningIndex, r.Statistics.TestsPerformed)
	}
	if r.Statistics.WarningsCount != 1 || r.Statistics.SuggestionsCount != 2 {
		t.Errorf("warnings=%d suggestions=%d", r.Statistics.WarningsCount, r.Statistics.SuggestionsCount)
	}
	if !r.SecurityComponents.MalwareScanner || !r.SecurityComponents.IntrusionSoftware {
		t.Errorf("components = %+v", r.SecurityComponents)
	}

	var sugg models.Finding
	for _, f := range r.AllFindings() {
		if f.Kind == models.KindSuggestion {
			sugg = f
		}
	}
	if sugg.TestID != "SSH-7408" || len(sugg.Details) != 1 || sugg.Details[0] != "ClientAliveCountMax (set 3 to 2)" {
		t.Errorf("suggestion = %+v", sugg)
	}
}

func TestSummaryMatchesBuckets(t *testing.T) {
	inputs := []string{sampleOutput, "", "Warnings (1):\n ! Telnet enabled\n"}
	for _, in := range inputs {
		r := newParser().Parse(in)
		total := 0
		for _, sev := range models.AllSeverities {
			if r.SeveritySummary[sev] != len(r.Findings[sev]) {
				t.Errorf("summary[%s]=%d, bucket=%d", sev, r.SeveritySummary[sev], len(r.Findings[sev]))
			}
			total += r.SeveritySummary[sev]
		}
		if total != r.Statistics.WarningsCount+r.Statistics.SuggestionsCount {
			t.Errorf("total %d != warnings+suggestions %d", total, r.Statistics.WarningsCount+r.Statistics.SuggestionsCount)
		}
	}
}

func TestSplitTestID(t *testing.T) {
	tests := []struct {
		in, msg, id string
	}{
		{" Set a password on GRUB [BOOT-5122]", "Set a password on GRUB", "BOOT-5122"},
		{"No identifier here", "No identifier here", ""},
		{"Brackets [mid] sentence", "Brackets [mid] sentence", ""},
		{"Custom [CUST-0010]  ", "Custom", "CUST-0010"},
	}
	for _, tt := range tests {
		msg, id := splitTestID(tt.in)
		if msg != tt.msg || id != tt.id {
			t.Errorf("splitTestID(%q) = (%q, %q), want (%q, %q)", tt.in, msg, id, tt.msg, tt.id)
		}
	}
}

func TestDetectPaths(t *testing.T) {
	tests := []struct {
		msg  string
		want []string
	}{
		{"Check permissions of /etc/shadow.", []string{"/etc/shadow"}},
		{"Default umask in (/etc/login.defs) could be stricter", []string{"/etc/login.defs"}},
		{"Found server.KEY in web root", []string{"server.KEY"}},
		{"Backup copy /var/backups/old is a copy of /etc/shadow", []string{"/var/backups/old", "/etc/shadow"}},
		{"See https://cisofy.com/x", nil},
		{"Nothing here", nil},
	}
	for _, tt := range tests {
		got := detectPaths(tt.msg)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("detectPaths(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestPickPathPrefersSensitive(t *testing.T) {
	p := newParser()
	tests := []struct {
		name  string
		paths []string
		want  string
	}{
		{"none", nil, ""},
		{"harmless only keeps first", []string{"/var/tmp/a", "/var/tmp/b"}, "/var/tmp/a"},
		{"critical after harmless", []string{"/var/backups/old", "/etc/shadow"}, "/etc/shadow"},
		{"critical beats earlier high", []string{"/etc/sudoers", "/root/.ssh/id_rsa"}, "/root/.ssh/id_rsa"},
		{"high after harmless", []string{"/tmp/x", "/etc/pam.d/sshd"}, "/etc/pam.d/sshd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.pickPath(tt.paths); got != tt.want {
				t.Errorf("pickPath(%v) = %q, want %q", tt.paths, got, tt.want)
			}
		})
	}
}

func TestParseSensitivePathAfterHarmlessPath(t *testing.T) {
	text := "  Warnings (1):\n  ----------------------------\n" +
		"  ! Backup copy /var/backups/old is a copy of /etc/shadow [FILE-0001]\n"
	r := newParser().Parse(text)

	crit := r.Findings[models.SeverityCritical]
	if len(crit) != 1 {
		t.Fatalf("expected 1 critical finding, got summary %v", r.SeveritySummary)
	}
	if crit[0].Path != "/etc/shadow" || crit[0].TestID != "FILE-0001" {
		t.Errorf("finding = %+v", crit[0])
	}
}

func TestParseRepeatedSuggestionsKeepDetails(t *testing.T) {
	text := `
  Suggestions (3):
  ----------------------------
  * Consider hardening SSH configuration [SSH-7408]
    - Details  : AllowTcpForwarding (set YES to NO)

  * Consider hardening SSH configuration [SSH-7408]
    - Details  : ClientAliveCountMax (set 3 to 2)

  * Consider hardening SSH configuration [SSH-7408]
    - Details  : MaxAuthTries (set 6 to 3)

  Follow-up:
`
	r := newParser().Parse(text)

	if r.Statistics.SuggestionsCount != 3 || r.Statistics.ReportedSuggestions != 3 {
		t.Fatalf("extracted=%d reported=%d", r.Statistics.SuggestionsCount, r.Statistics.ReportedSuggestions)
	}
	if r.TotalFindings() != 3 {
		t.Errorf("total = %d", r.TotalFindings())
	}

	var details []string
	for _, f := range r.AllFindings() {
		if f.TestID != "SSH-7408" || len(f.Details) != 1 {
			t.Fatalf("finding = %+v", f)
		}
		details = append(details, f.Details[0])
	}
	want := []string{
		"Details  : AllowTcpForwarding (set YES to NO)",
		"Details  : ClientAliveCountMax (set 3 to 2)",
		"Details  : MaxAuthTries (set 6 to 3)",
	}
	if strings.Join(details, "|") != strings.Join(want, "|") {
		t.Errorf("details = %v", details)
	}
}

func TestParseOperatingSystemFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"fallback alone", "  Operating system:   Linux\n", "Linux"},
		{"name wins when later", "  Operating system:   Linux\n  Operating system name:  Ubuntu\n", "Ubuntu"},
		{"name wins when earlier", "  Operating system name:  Ubuntu\n  Operating system:   Linux\n", "Ubuntu"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newParser().Parse(tt.text).SystemInfo.OSName; got != tt.want {
				t.Errorf("os_name = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripANSI(t *testing.T) {
	in := "\x1b[1;32mOK\x1b[0m and \x1b[2Kcleared"
	if got := StripANSI(in); got != "OK and cleared" {
		t.Errorf("StripANSI = %q", got)
	}
}

func TestDetectComponentsKeywords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.SecurityComponents
	}{
		{"tool found", "  - Checking for ClamAV   [ FOUND ]\n", models.SecurityComponents{MalwareScanner: true}},
		{"tool not found", "  - Checking for AIDE   [ NOT FOUND ]\n", models.SecurityComponents{}},
		{"suggestion mentions tool", "  * Install fail2ban [DEB-0880]\n", models.SecurityComponents{}},
		{"explicit X wins over hint", "  - ufw status [ ACTIVE ]\n  - Firewall [X]\n", models.SecurityComponents{}},
		{"explicit V", "  - Intrusion software [V]\n", models.SecurityComponents{IntrusionSoftware: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectComponents(splitLines(tt.text)); got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseConcurrent(t *testing.T) {
	p := newParser()
	done := make(chan *models.ParsedReport, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- p.Parse(sampleOutput) }()
	}
	for i := 0; i < 8; i++ {
		r := <-done
		if r.TotalFindings() != 5 {
			t.Errorf("total findings = %d, want 5", r.TotalFindings())
		}
	}
}
