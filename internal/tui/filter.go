package tui

import (
	"sort"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
)

// filterState holds current active filters.
type filterState struct {
	Severity   models.Severity
	Kind       models.FindingKind // "" shows both kinds
	SearchText string
}

// sortField enumerates columns that can be sorted.
type sortField int

const (
	sortBySeverity sortField = iota
	sortByKind
	sortByTestID
	sortByMessage
)

// sortFieldCount is the total number of sortable columns.
const sortFieldCount = 4

// applyFilters returns findings matching all active filters.
func applyFilters(findings []models.Finding, f filterState) []models.Finding {
	result := make([]models.Finding, 0, len(findings))
	searchLower := strings.ToLower(f.SearchText)

	for _, finding := range findings {
		if f.Severity != "" && finding.Severity != f.Severity {
			continue
		}
		if f.Kind != "" && finding.Kind != f.Kind {
			continue
		}
		if searchLower != "" && !matchesSearch(finding, searchLower) {
			continue
		}
		result = append(result, finding)
	}
	return result
}

func matchesSearch(f models.Finding, searchLower string) bool {
	if strings.Contains(strings.ToLower(f.Message), searchLower) ||
		strings.Contains(strings.ToLower(f.TestID), searchLower) ||
		strings.Contains(strings.ToLower(f.Path), searchLower) ||
		strings.Contains(string(f.Severity), searchLower) {
		return true
	}
	for _, d := range f.Details {
		if strings.Contains(strings.ToLower(d), searchLower) {
			return true
		}
	}
	return false
}

// sortFindings sorts a slice of findings in place by the given field.
// Ties keep their current order.
func sortFindings(findings []models.Finding, field sortField) {
	sort.SliceStable(findings, func(i, j int) bool {
		switch field {
		case sortBySeverity:
			return findings[i].Severity.Rank() < findings[j].Severity.Rank()
		case sortByKind:
			return findings[i].Kind < findings[j].Kind
		case sortByTestID:
			return findings[i].TestID < findings[j].TestID
		case sortByMessage:
			return strings.ToLower(findings[i].Message) < strings.ToLower(findings[j].Message)
		default:
			return false
		}
	})
}

// presentSeverities returns the severities that have findings, most severe first.
func presentSeverities(findings []models.Finding) []models.Severity {
	seen := make(map[models.Severity]bool)
	for _, f := range findings {
		seen[f.Severity] = true
	}
	var out []models.Severity
	for _, sev := range models.AllSeverities {
		if seen[sev] {
			out = append(out, sev)
		}
	}
	return out
}

// sortFieldName returns a human-readable name for the sort field.
func sortFieldName(f sortField) string {
	switch f {
	case sortBySeverity:
		return "severity"
	case sortByKind:
		return "kind"
	case sortByTestID:
		return "test id"
	case sortByMessage:
		return "message"
	default:
		return "unknown"
	}
}
