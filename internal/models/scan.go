package models

import "time"

// Scan lifecycle states, matching the storage directory names.
const (
	ScanPending   = "pending"
	ScanCompleted = "completed"
	ScanArchived  = "archived"
)

// ScanMetadata describes one stored audit run.
type ScanMetadata struct {
	ID          string        `json:"scan_id"`
	Status      string        `json:"status"`
	Source      string        `json:"source"` // "run" or the path the output was read from
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt time.Time     `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	ExitCode    int           `json:"exit_code"`
	OutputBytes int           `json:"output_bytes"`
	Preview     string        `json:"preview,omitempty"`
	Error       string        `json:"error,omitempty"`

	HardeningIndex int              `json:"hardening_index"`
	RiskSummary    string           `json:"risk_summary,omitempty"`
	Summary        map[Severity]int `json:"severity_summary,omitempty"`
}
