// Package aggregator derives cross-report views: fleet summaries over many
// hosts, run-to-run comparisons and prioritized recommendations.
package aggregator

import (
	"fmt"
	"sort"

	"github.com/ppiankov/hardenscope/internal/models"
)

// Input is one report with a label identifying where it came from.
type Input struct {
	Source string
	Report *models.ParsedReport
}

// Aggregator merges reports from multiple hosts
type Aggregator struct {
	recommender *RecommendationGenerator
}

// New creates a new aggregator
func New() *Aggregator {
	return &Aggregator{
		recommender: NewRecommendationGenerator(),
	}
}

// Aggregate combines reports into a fleet summary. Hosts are ordered weakest
// first (lowest hardening index, then most critical findings).
func (a *Aggregator) Aggregate(inputs []Input) (*models.FleetSummary, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no reports to aggregate")
	}

	fleet := &models.FleetSummary{
		SeverityTotals: make(map[models.Severity]int, len(models.AllSeverities)),
	}
	for _, s := range models.AllSeverities {
		fleet.SeverityTotals[s] = 0
	}

	combined := models.NewParsedReport()
	sum := 0

	for _, in := range inputs {
		if in.Report == nil {
			return nil, fmt.Errorf("report for %s is nil", in.Source)
		}
		r := in.Report

		host := models.HostSummary{
			Source:          in.Source,
			Hostname:        r.SystemInfo.Hostname,
			HardeningIndex:  r.Score.HardeningIndex,
			Status:          r.Score.Status,
			TotalFindings:   r.TotalFindings(),
			SeveritySummary: make(map[models.Severity]int, len(models.AllSeverities)),
			RiskSummary:     r.RiskSummary,
		}
		for _, s := range models.AllSeverities {
			host.SeveritySummary[s] = r.SeveritySummary[s]
			fleet.SeverityTotals[s] += r.SeveritySummary[s]
			combined.Findings[s] = append(combined.Findings[s], r.Findings[s]...)
		}
		combined.SecurityComponents.Firewall = combined.SecurityComponents.Firewall || r.SecurityComponents.Firewall
		combined.SecurityComponents.IntrusionSoftware = combined.SecurityComponents.IntrusionSoftware || r.SecurityComponents.IntrusionSoftware
		combined.SecurityComponents.MalwareScanner = combined.SecurityComponents.MalwareScanner || r.SecurityComponents.MalwareScanner

		sum += host.HardeningIndex
		fleet.Hosts = append(fleet.Hosts, host)
	}

	sort.SliceStable(fleet.Hosts, func(i, j int) bool {
		hi, hj := fleet.Hosts[i], fleet.Hosts[j]
		if hi.HardeningIndex != hj.HardeningIndex {
			return hi.HardeningIndex < hj.HardeningIndex
		}
		return hi.SeveritySummary[models.SeverityCritical] > hj.SeveritySummary[models.SeverityCritical]
	})

	fleet.TotalHosts = len(fleet.Hosts)
	fleet.AverageIndex = sum / fleet.TotalHosts
	fleet.LowestIndex = fleet.Hosts[0].HardeningIndex
	fleet.WeakestHost = hostLabel(fleet.Hosts[0])
	fleet.RiskSummary = models.RiskSummary(fleet.SeverityTotals)

	for s, n := range fleet.SeverityTotals {
		combined.SeveritySummary[s] = n
	}
	combined.Score = models.Score{
		HardeningIndex: fleet.LowestIndex,
		Status:         models.ScoreStatus(fleet.LowestIndex),
	}
	fleet.Recommendations = a.recommender.GenerateRecommendations(combined)

	return fleet, nil
}

func hostLabel(h models.HostSummary) string {
	if h.Hostname != "" {
		return h.Hostname
	}
	return h.Source
}
