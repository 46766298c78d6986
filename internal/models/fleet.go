package models

// HostSummary is one parsed report reduced to its headline numbers.
type HostSummary struct {
	Source          string           `json:"source"` // file path or scan ID
	Hostname        string           `json:"hostname,omitempty"`
	HardeningIndex  int              `json:"hardening_index"`
	Status          string           `json:"status"`
	TotalFindings   int              `json:"total_findings"`
	SeveritySummary map[Severity]int `json:"severity_summary"`
	RiskSummary     string           `json:"risk_summary"`
}

// FleetSummary combines many reports, e.g. one per host.
type FleetSummary struct {
	Hosts           []HostSummary    `json:"hosts"`
	TotalHosts      int              `json:"total_hosts"`
	AverageIndex    int              `json:"average_hardening_index"`
	LowestIndex     int              `json:"lowest_hardening_index"`
	WeakestHost     string           `json:"weakest_host,omitempty"`
	SeverityTotals  map[Severity]int `json:"severity_totals"`
	RiskSummary     string           `json:"risk_summary"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}
