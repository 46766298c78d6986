package reporter

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// htmlData is passed to the report template.
type htmlData struct {
	Title        string
	GeneratedAt  string
	Report       *Report
	Display      formatter.DisplayModel
	SeverityList []string
}

// HTMLReporter renders a self-contained printable document. It is also the
// layout fed to PDF converters, so it never embeds raw audit output.
type HTMLReporter struct {
	writer io.Writer
	tmpl   *template.Template
}

// NewHTMLReporter parses the embedded template.
func NewHTMLReporter(writer io.Writer) (*HTMLReporter, error) {
	tmpl, err := template.New("report.html").Funcs(template.FuncMap{
		"severityClass": severityClass,
		"statusClass":   statusClass,
		"upper":         strings.ToUpper,
		"yesNo":         check,
	}).ParseFS(templateFS, "templates/report.html")
	if err != nil {
		return nil, fmt.Errorf("parsing report template: %w", err)
	}
	return &HTMLReporter{writer: writer, tmpl: tmpl}, nil
}

// Generate writes the HTML document.
func (r *HTMLReporter) Generate(report *Report) error {
	if report == nil {
		return fmt.Errorf("nothing to report")
	}

	title := "Security Audit Report"
	if h := report.Display.SystemInfo.Hostname; h != "" && h != formatter.Placeholder {
		title += " - " + h
	}

	data := htmlData{
		Title:        title,
		GeneratedAt:  report.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"),
		Report:       report,
		Display:      report.Display,
		SeverityList: severityOrder(),
	}
	if err := r.tmpl.Execute(r.writer, data); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	return nil
}

func severityClass(s string) string {
	if sev, ok := models.ParseSeverity(s); ok {
		return "sev-" + string(sev)
	}
	return "sev-unknown"
}

func statusClass(status string) string {
	switch status {
	case models.StatusExcellent, models.StatusGood, models.StatusFair, models.StatusPoor:
		return "status-" + status
	default:
		return ""
	}
}
