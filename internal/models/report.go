package models

// Finding is one warning or suggestion extracted from audit output.
type Finding struct {
	Kind     FindingKind `json:"kind"`
	Message  string      `json:"message"`
	TestID   string      `json:"test_id,omitempty"`
	Details  []string    `json:"details,omitempty"`
	Path     string      `json:"path,omitempty"` // filesystem path referenced by the message
	Severity Severity    `json:"severity"`
}

// Key identifies a finding across runs.
func (f Finding) Key() string {
	return string(f.Kind) + "|" + f.TestID + "|" + f.Message
}

// SystemInfo holds host facts. Empty fields were not found in the output.
type SystemInfo struct {
	OSName           string `json:"os_name,omitempty"`
	OSVersion        string `json:"os_version,omitempty"`
	KernelVersion    string `json:"kernel_version,omitempty"`
	Hostname         string `json:"hostname,omitempty"`
	HardwarePlatform string `json:"hardware_platform,omitempty"`
}

// Statistics are the numeric counters of one audit pass.
type Statistics struct {
	TestsPerformed   int `json:"tests_performed"`
	WarningsCount    int `json:"warnings_count"`
	SuggestionsCount int `json:"suggestions_count"`
	PluginsEnabled   int `json:"plugins_enabled"`

	// Counts announced by the audit tool itself, e.g. "Warnings (3):".
	ReportedWarnings    int `json:"reported_warnings,omitempty"`
	ReportedSuggestions int `json:"reported_suggestions,omitempty"`
}

// Score is the hardening index and its derived status.
type Score struct {
	HardeningIndex int    `json:"hardening_index"`
	Status         string `json:"status"`
}

// SecurityComponents records which protective tools the host appears to run.
type SecurityComponents struct {
	Firewall          bool `json:"firewall"`
	IntrusionSoftware bool `json:"intrusion_software"`
	MalwareScanner    bool `json:"malware_scanner"`
}

// ParsedReport is the structured result of one audit pass.
// It is built once by the parser and treated as read-only afterwards.
type ParsedReport struct {
	SystemInfo         SystemInfo             `json:"system_info"`
	Statistics         Statistics             `json:"statistics"`
	Score              Score                  `json:"score"`
	SecurityComponents SecurityComponents     `json:"security_components"`
	Findings           map[Severity][]Finding `json:"findings"`
	SeveritySummary    map[Severity]int       `json:"severity_summary"`
	RiskSummary        string                 `json:"risk_summary"`
}

// NewParsedReport returns a zeroed report with every severity bucket present.
func NewParsedReport() *ParsedReport {
	r := &ParsedReport{
		Score:           Score{Status: ScoreStatus(0)},
		Findings:        make(map[Severity][]Finding, len(AllSeverities)),
		SeveritySummary: make(map[Severity]int, len(AllSeverities)),
	}
	for _, s := range AllSeverities {
		r.Findings[s] = []Finding{}
		r.SeveritySummary[s] = 0
	}
	r.RiskSummary = RiskSummary(r.SeveritySummary)
	return r
}

// TotalFindings returns the number of findings across all buckets.
func (r *ParsedReport) TotalFindings() int {
	total := 0
	for _, s := range AllSeverities {
		total += len(r.Findings[s])
	}
	return total
}

// AllFindings returns findings ordered by severity, then appearance.
func (r *ParsedReport) AllFindings() []Finding {
	out := make([]Finding, 0, r.TotalFindings())
	for _, s := range AllSeverities {
		out = append(out, r.Findings[s]...)
	}
	return out
}
