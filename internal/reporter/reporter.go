// Package reporter renders audit results for terminals, files and other
// tools.
package reporter

import (
	"time"

	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/policy"
)

// Report bundles everything rendered for one audit.
type Report struct {
	ScanID          string                  `json:"scan_id,omitempty"`
	Source          string                  `json:"source,omitempty"`
	GeneratedAt     time.Time               `json:"generated_at"`
	Display         formatter.DisplayModel  `json:"report"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Trend           *models.Trend           `json:"trend,omitempty"`
	Policy          *policy.Result          `json:"policy,omitempty"`
}

// severityOrder lists display keys most severe first.
func severityOrder() []string {
	out := make([]string, 0, len(models.AllSeverities))
	for _, s := range models.AllSeverities {
		out = append(out, string(s))
	}
	return out
}
