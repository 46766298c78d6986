package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/reporter"
	"github.com/ppiankov/hardenscope/internal/storage"
)

var (
	showFormat  string
	showOutput  string
	showSummary bool
)

var showCmd = &cobra.Command{
	Use:   "show [scan-id|latest]",
	Short: "Render a stored scan",
	Long: `Show re-renders a scan saved with --store. Without an argument the most
recent completed scan is shown. The trend is computed against the
completed scan that preceded it.

The html format produces the printable report with every finding listed.

Example:
  hardenscope show
  hardenscope show scan_1a2b3c4d --format json
  hardenscope show latest --format html -o report.html`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "text",
		"output format: text, json, or html")
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "",
		"write output to file")
	showCmd.Flags().BoolVar(&showSummary, "summary", false,
		"json only: headline numbers and top findings without the full lists")
}

func runShow(cmd *cobra.Command, args []string) error {
	id := "latest"
	if len(args) == 1 {
		id = args[0]
	}
	if id != "latest" && !storage.ValidScanID(id) {
		return &ValidationError{Message: fmt.Sprintf("invalid scan ID: %s", id)}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	meta, parsed, err := reportFromStore(store, id)
	if err != nil {
		return err
	}
	logVerbose("Loaded %s (%d findings)", meta.ID, parsed.TotalFindings())

	format := strings.ToLower(showFormat)
	doc := &reporter.Report{
		ScanID:          meta.ID,
		Source:          meta.Source,
		GeneratedAt:     meta.CreatedAt,
		Recommendations: aggregator.NewRecommendationGenerator().GenerateRecommendations(parsed),
		Trend:           previousTrend(store, meta, parsed),
	}
	if format == "html" {
		doc.Display = formatter.FormatForPrint(parsed, formatter.PrintOptions{
			MaxFindings: cfg.MaxPrintFindings,
			MaxDetails:  cfg.MaxSuggestionDetails,
		})
	} else {
		doc.Display = formatter.FormatForDisplay(parsed, formatter.Options{TopN: cfg.TopFindings})
	}

	switch format {
	case "json":
		if showSummary {
			writer, closeFn, err := openOutput(showOutput)
			if err != nil {
				return err
			}
			defer closeFn()
			return reporter.NewJSONReporter(writer, true).GenerateSummaryOnly(doc)
		}
		return generateOutput(doc, format, showOutput)
	case "text", "html":
		return generateOutput(doc, format, showOutput)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or html)", showFormat)}
	}
}

// previousTrend compares a scan with the completed scan created just
// before it. It returns nil when there is none.
func previousTrend(store storage.Storage, meta *models.ScanMetadata, current *models.ParsedReport) *models.Trend {
	scans, err := store.ListScans(models.ScanCompleted)
	if err != nil {
		logDebug("Failed to list scans: %v", err)
		return nil
	}
	for i, s := range scans {
		if s.ID != meta.ID || i+1 >= len(scans) {
			continue
		}
		prev := scans[i+1]
		prevReport, err := store.LoadReport(prev.ID)
		if err != nil {
			logDebug("Failed to load %s: %v", prev.ID, err)
			return nil
		}
		return aggregator.NewTrendAnalyzer().Compare(prevReport, current, prev.CreatedAt).Trend
	}
	return nil
}
