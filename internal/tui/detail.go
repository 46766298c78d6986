package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/hardenscope/internal/models"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 6

// renderDetail produces the detail view for a selected finding.
func renderDetail(f *models.Finding, width int) string {
	if f == nil {
		return styleDetailPanel.Width(width).Render("No finding selected")
	}

	var b strings.Builder

	sevStyled := severityStyle(f.Severity).Render(strings.ToUpper(string(f.Severity)))
	b.WriteString(fmt.Sprintf("%s  %s", sevStyled, f.Kind))
	if f.TestID != "" {
		b.WriteString(fmt.Sprintf("  [%s]", f.TestID))
	}
	b.WriteString("\n")
	b.WriteString(f.Message)
	b.WriteString("\n")

	if f.Path != "" {
		b.WriteString(fmt.Sprintf("Path: %s\n", f.Path))
	}
	for _, d := range f.Details {
		b.WriteString(fmt.Sprintf("  - %s\n", d))
	}

	return styleDetailPanel.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}
