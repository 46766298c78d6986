package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/hardenscope/internal/models"
)

var tableColumns = []table.Column{
	{Title: "Severity", Width: 10},
	{Title: "Kind", Width: 11},
	{Title: "Test", Width: 11},
	{Title: "Message", Width: 52},
}

// buildRows converts findings to table rows.
func buildRows(findings []models.Finding) []table.Row {
	rows := make([]table.Row, 0, len(findings))
	for _, f := range findings {
		testID := f.TestID
		if testID == "" {
			testID = "-"
		}
		rows = append(rows, table.Row{
			strings.ToUpper(string(f.Severity)),
			string(f.Kind),
			testID,
			truncate(f.Message, tableColumns[3].Width),
		})
	}
	return rows
}

// truncate shortens s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-len(ellipsis)]) + ellipsis
}

// newTable creates a bubbles table with standard columns and styling.
func newTable(rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorAccent).
		Bold(false)
	t.SetStyles(s)

	return t
}
