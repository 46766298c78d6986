package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/reporter"
)

var (
	exportFormat string
	exportOutput string
	exportLastN  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit data for compliance reporting",
	Long: `Export stored scans in formats suitable for CIS, SOC2 and other
compliance frameworks. Each finding becomes one evidence record.

Supported formats:
  csv    Tabular format for spreadsheets and compliance tools
  json   Structured JSON for programmatic consumption
  sarif  SARIF 2.1.0 for GitHub Advanced Security and code scanning

Example:
  hardenscope export --format csv -o audit-evidence.csv
  hardenscope export --format sarif -o results.sarif --last 1
  hardenscope export --format json --last 30 -o evidence.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv, json, or sarif")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default: stdout)")
	exportCmd.Flags().IntVarP(&exportLastN, "last", "n", 1,
		"number of recent scans to include")
}

func runExport(cmd *cobra.Command, args []string) error {
	switch exportFormat {
	case "csv", "json", "sarif":
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use csv, json, or sarif)", exportFormat)}
	}
	if exportLastN < 1 {
		return &ValidationError{Message: "--last must be at least 1"}
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	scans, err := store.GetLastN(exportLastN)
	if err != nil || len(scans) == 0 {
		fmt.Println("No stored scans found. Run 'hardenscope run --store' first.")
		return nil
	}

	entries := make([]reporter.ExportEntry, 0, len(scans))
	for _, meta := range scans {
		report, err := store.LoadReport(meta.ID)
		if err != nil {
			logError("Skipping %s: %v", meta.ID, err)
			continue
		}
		entries = append(entries, reporter.ExportEntry{Meta: meta, Report: report})
	}
	logVerbose("Exporting %d scans", len(entries))

	writer, closeFn, err := openOutput(exportOutput)
	if err != nil {
		return err
	}
	defer closeFn()

	switch exportFormat {
	case "csv":
		return reporter.WriteCSV(writer, reporter.BuildComplianceExport(entries, time.Now()))
	case "json":
		return reporter.WriteExportJSON(writer, reporter.BuildComplianceExport(entries, time.Now()))
	default:
		return reporter.WriteSARIF(writer, entries, version)
	}
}
