package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/ppiankov/hardenscope/internal/models"
)

// keyMap lists the bindings active in normal mode.
type keyMap struct {
	Quit           key.Binding
	Search         key.Binding
	FilterSeverity key.Binding
	CycleKind      key.Binding
	Sort           key.Binding
	Copy           key.Binding
	ClearFilter    key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	FilterSeverity: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "severity"),
	),
	CycleKind: key.NewBinding(
		key.WithKeys("w"),
		key.WithHelp("w", "warnings/suggestions"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c", "y"),
		key.WithHelp("c", "copy"),
	),
	ClearFilter: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
}

// nextKind cycles all -> warnings -> suggestions -> all.
func nextKind(k models.FindingKind) models.FindingKind {
	switch k {
	case "":
		return models.KindWarning
	case models.KindWarning:
		return models.KindSuggestion
	default:
		return ""
	}
}
