// Package tui is the interactive findings browser behind "hardenscope view".
package tui

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/hardenscope/internal/models"
)

// mode represents the current UI interaction mode.
type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeFilterSeverity
)

const defaultTableHeight = 15

// Options carries context shown next to the report.
type Options struct {
	Trend   *models.Trend // comparison with the previous scan, if any
	History []int         // hardening index of recent scans, oldest first
}

// Model is the top-level Bubble Tea model for the findings browser.
type Model struct {
	// Data (immutable after init)
	report      *models.ParsedReport
	opts        Options
	allFindings []models.Finding

	// UI state
	table            table.Model
	searchInput      textinput.Model
	filteredFindings []models.Finding
	filters          filterState
	sortBy           sortField
	mode             mode
	severityChoices  []models.Severity
	severityCursor   int
	width            int
	height           int
	statusMsg        string
	// clipboard is captured here for testing; the escape goes to clipOut
	clipboard string
	clipOut   io.Writer
}

// New creates a new TUI model from a parsed report.
func New(report *models.ParsedReport, opts Options) Model {
	if report == nil {
		report = models.NewParsedReport()
	}
	findings := report.AllFindings()

	sortFindings(findings, sortBySeverity)
	t := newTable(buildRows(findings), defaultTableHeight)

	ti := textinput.New()
	ti.Placeholder = "search..."
	ti.CharLimit = 64

	return Model{
		report:           report,
		opts:             opts,
		allFindings:      findings,
		filteredFindings: findings,
		table:            t,
		searchInput:      ti,
		sortBy:           sortBySeverity,
		mode:             modeNormal,
		severityChoices:  presentSeverities(findings),
		width:            80,
		height:           24,
		clipOut:          os.Stdout,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width)
		tableH := msg.Height - headerHeight - detailHeight - 3
		if tableH < 3 {
			tableH = 3
		}
		m.table.SetHeight(tableH)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeSearch:
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	default:
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSearch:
		return m.handleSearchKey(msg)
	case modeFilterSeverity:
		return m.handleFilterSeverityKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

func (m Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Search):
		m.mode = modeSearch
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, keys.FilterSeverity):
		m.mode = modeFilterSeverity
		m.severityCursor = 0
		return m, nil
	case key.Matches(msg, keys.CycleKind):
		m.filters.Kind = nextKind(m.filters.Kind)
		m.rebuildTable()
		if m.filters.Kind != "" {
			m.statusMsg = fmt.Sprintf("Kind: %ss", m.filters.Kind)
		} else {
			m.statusMsg = "Kind: all"
		}
		return m, nil
	case key.Matches(msg, keys.Sort):
		m.sortBy = (m.sortBy + 1) % sortField(sortFieldCount)
		m.rebuildTable()
		m.statusMsg = fmt.Sprintf("Sort: %s", sortFieldName(m.sortBy))
		return m, nil
	case key.Matches(msg, keys.Copy):
		m.copySelectedFinding()
		return m, nil
	case key.Matches(msg, keys.ClearFilter):
		m.filters = filterState{}
		m.searchInput.SetValue("")
		m.statusMsg = ""
		m.rebuildTable()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filters.SearchText = m.searchInput.Value()
		m.mode = modeNormal
		m.searchInput.Blur()
		m.rebuildTable()
		return m, nil
	case "esc":
		m.mode = modeNormal
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m Model) handleFilterSeverityKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.severityCursor > 0 {
			m.severityCursor--
		}
	case "down", "j":
		if m.severityCursor < len(m.severityChoices) {
			m.severityCursor++
		}
	case "enter":
		if m.severityCursor == 0 {
			m.filters.Severity = ""
		} else if m.severityCursor <= len(m.severityChoices) {
			m.filters.Severity = m.severityChoices[m.severityCursor-1]
		}
		m.mode = modeNormal
		m.rebuildTable()
		if m.filters.Severity != "" {
			m.statusMsg = fmt.Sprintf("Filter: %s", m.filters.Severity)
		} else {
			m.statusMsg = ""
		}
	case "esc":
		m.mode = modeNormal
	}
	return m, nil
}

func (m *Model) rebuildTable() {
	filtered := applyFilters(m.allFindings, m.filters)
	sortFindings(filtered, m.sortBy)
	m.filteredFindings = filtered
	m.table.SetRows(buildRows(filtered))
	if m.table.Cursor() >= len(filtered) {
		m.table.SetCursor(max(len(filtered)-1, 0))
	}
}

func (m *Model) selectedFinding() *models.Finding {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.filteredFindings) {
		return nil
	}
	return &m.filteredFindings[cursor]
}

// copySelectedFinding writes the selected finding to the clipboard via OSC 52.
func (m *Model) copySelectedFinding() {
	f := m.selectedFinding()
	if f == nil {
		m.statusMsg = "Nothing to copy"
		return
	}
	text := fmt.Sprintf("[%s] %s: %s", f.Severity, f.Kind, f.Message)
	if f.TestID != "" {
		text += " (" + f.TestID + ")"
	}
	m.clipboard = text
	m.statusMsg = "Copied!"
	if m.clipOut != nil {
		fmt.Fprintf(m.clipOut, "\033]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(text)))
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(renderHeader(m.report, m.opts.Trend, m.opts.History, m.width))
	b.WriteString("\n")

	// Search bar overlay
	if m.mode == modeSearch {
		b.WriteString(styleSearchPrompt.Render("/ "))
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	}

	// Severity filter overlay
	if m.mode == modeFilterSeverity {
		b.WriteString(m.renderSeverityFilter())
		b.WriteString("\n")
	}

	b.WriteString(m.table.View())
	b.WriteString("\n")

	b.WriteString(renderDetail(m.selectedFinding(), m.width))
	b.WriteString("\n")

	b.WriteString(m.renderFooter())

	return b.String()
}

func (m *Model) renderSeverityFilter() string {
	var b strings.Builder
	b.WriteString("Filter by severity:\n")

	options := []string{"All"}
	for _, sev := range m.severityChoices {
		options = append(options, fmt.Sprintf("%s (%d)", sev, m.report.SeveritySummary[sev]))
	}
	for i, opt := range options {
		cursor := "  "
		if i == m.severityCursor {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s\n", cursor, opt))
	}
	return b.String()
}

func (m *Model) renderFooter() string {
	left := "q:quit  /:search  f:severity  w:kind  s:sort  c:copy  esc:clear"
	right := fmt.Sprintf("%d/%d findings", len(m.filteredFindings), len(m.allFindings))

	if m.statusMsg != "" {
		right = m.statusMsg + "  " + right
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return styleFooter.Render(left + strings.Repeat(" ", gap) + right)
}

// Run starts the Bubble Tea program. Called from the view command.
func Run(report *models.ParsedReport, opts Options) error {
	m := New(report, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
