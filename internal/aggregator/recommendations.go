package aggregator

import (
	"fmt"
	"sort"

	"github.com/ppiankov/hardenscope/internal/models"
)

// RecommendationGenerator turns a report into prioritized next steps.
type RecommendationGenerator struct{}

// NewRecommendationGenerator creates a new recommendation generator
func NewRecommendationGenerator() *RecommendationGenerator {
	return &RecommendationGenerator{}
}

// GenerateRecommendations builds one recommendation per populated severity
// tier, one per missing security component and one for a weak hardening
// index, ordered most severe first. A report with no findings and no tests
// performed carries no audit data and yields nothing.
func (r *RecommendationGenerator) GenerateRecommendations(report *models.ParsedReport) []models.Recommendation {
	if report == nil || (report.TotalFindings() == 0 && report.Statistics.TestsPerformed == 0) {
		return []models.Recommendation{}
	}

	recommendations := []models.Recommendation{}

	for _, s := range models.AllSeverities {
		n := len(report.Findings[s])
		if n == 0 || s == models.SeverityInfo {
			continue
		}
		recommendations = append(recommendations, models.Recommendation{
			Severity: s,
			Action:   r.generateAction(s, n),
			Impact:   r.generateImpact(s),
			Count:    n,
		})
	}

	recommendations = append(recommendations, r.componentRecommendations(report.SecurityComponents)...)

	if idx := report.Score.HardeningIndex; idx < 60 && report.TotalFindings() > 0 {
		sev := models.SeverityMedium
		if idx < 40 {
			sev = models.SeverityHigh
		}
		recommendations = append(recommendations, models.Recommendation{
			Severity: sev,
			Action:   fmt.Sprintf("Raise the hardening index from %d to at least 60", idx),
			Impact:   "A low index means many baseline controls are absent",
			Count:    1,
		})
	}

	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Severity.Rank() < recommendations[j].Severity.Rank()
	})

	return recommendations
}

func (r *RecommendationGenerator) componentRecommendations(c models.SecurityComponents) []models.Recommendation {
	var out []models.Recommendation
	if !c.Firewall {
		out = append(out, models.Recommendation{
			Severity: models.SeverityHigh,
			Action:   "Enable a host firewall (iptables, nftables, ufw or firewalld)",
			Impact:   "All listening services are reachable from the network",
			Count:    1,
		})
	}
	if !c.IntrusionSoftware {
		out = append(out, models.Recommendation{
			Severity: models.SeverityMedium,
			Action:   "Install intrusion detection software (e.g. fail2ban, OSSEC, AIDE)",
			Impact:   "Attacks and unauthorized changes may go unnoticed",
			Count:    1,
		})
	}
	if !c.MalwareScanner {
		out = append(out, models.Recommendation{
			Severity: models.SeverityMedium,
			Action:   "Install a malware scanner (e.g. ClamAV, rkhunter, chkrootkit)",
			Impact:   "Malicious files and rootkits will not be detected",
			Count:    1,
		})
	}
	return out
}

// generateAction creates actionable text for a severity tier
func (r *RecommendationGenerator) generateAction(s models.Severity, n int) string {
	switch s {
	case models.SeverityCritical:
		return fmt.Sprintf("Fix %d critical finding(s) immediately", n)
	case models.SeverityHigh:
		return fmt.Sprintf("Address %d high-priority finding(s) soon", n)
	case models.SeverityMedium:
		return fmt.Sprintf("Plan remediation for %d medium finding(s)", n)
	case models.SeverityLow:
		return fmt.Sprintf("Review %d low-priority suggestion(s)", n)
	default:
		return fmt.Sprintf("Review %d finding(s)", n)
	}
}

// generateImpact describes what leaving a tier unaddressed means
func (r *RecommendationGenerator) generateImpact(s models.Severity) string {
	switch s {
	case models.SeverityCritical:
		return "The host is exposed to direct compromise"
	case models.SeverityHigh:
		return "Key protections are missing or disabled"
	case models.SeverityMedium:
		return "Defense in depth is weakened"
	case models.SeverityLow:
		return "Minor hardening and hygiene improvements"
	default:
		return "Review and address as needed"
	}
}

// GetTopRecommendations returns the top N most critical recommendations
func (r *RecommendationGenerator) GetTopRecommendations(recommendations []models.Recommendation, n int) []models.Recommendation {
	if n < 0 || n >= len(recommendations) {
		return recommendations
	}
	return recommendations[:n]
}

// GroupBySeverity groups recommendations by severity level
func (r *RecommendationGenerator) GroupBySeverity(recommendations []models.Recommendation) map[models.Severity][]models.Recommendation {
	grouped := make(map[models.Severity][]models.Recommendation)
	for _, rec := range recommendations {
		grouped[rec.Severity] = append(grouped[rec.Severity], rec)
	}
	return grouped
}
