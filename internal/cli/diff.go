package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/storage"
)

var (
	diffFormat   string
	diffOutput   string
	diffBaseline string
	diffFailNew  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what changed between two audits",
	Long: `Compare the latest stored scan against a baseline to show drift.

Shows new findings, resolved findings, the hardening index delta and the
per-severity deltas. Findings are matched by kind, test ID and message,
so a finding whose severity was reclassified counts as unchanged.

By default compares the two most recent completed scans. Use --baseline
with a scan ID, or with the path of saved Lynis output.

Exit codes:
  0  No new findings (or --fail-new not set)
  1  New findings detected (with --fail-new)

Example:
  hardenscope diff
  hardenscope diff --fail-new
  hardenscope diff --baseline ./golden-audit.txt --format json`,
	Args: cobra.NoArgs,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text",
		"output format: text or json")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "",
		"write output to file instead of stdout")
	diffCmd.Flags().StringVar(&diffBaseline, "baseline", "",
		"scan ID or audit output file to compare against (default: previous stored scan)")
	diffCmd.Flags().BoolVar(&diffFailNew, "fail-new", false,
		"exit 1 if new findings are found (for CI gating)")
}

// DiffResult is the structured output of a diff operation.
type DiffResult struct {
	Baseline string `json:"baseline"`
	Current  string `json:"current"`
	*aggregator.Comparison
}

func runDiff(cmd *cobra.Command, args []string) error {
	switch diffFormat {
	case "text", "json":
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", diffFormat)}
	}

	store, err := openStore()
	if err != nil {
		return err
	}

	// Load current (latest) scan.
	current, currentReport, err := reportFromStore(store, "latest")
	if err != nil {
		logError("No current scan found: %v", err)
		fmt.Println("No stored scans found. Run 'hardenscope run --store' first.")
		return err
	}

	// Load baseline.
	var (
		baselineLabel  string
		baselineReport *models.ParsedReport
		baselineTime   time.Time
	)
	if diffBaseline != "" {
		baselineLabel, baselineReport, baselineTime, err = loadBaseline(store, diffBaseline)
		if err != nil {
			logError("Failed to load baseline: %v", err)
			return err
		}
	} else {
		scans, err := store.GetLastN(2)
		if err != nil || len(scans) < 2 {
			fmt.Println("Need at least 2 stored scans for diff.")
			fmt.Println("Run 'hardenscope run --store' to record more scans.")
			return nil
		}
		prev := scans[1]
		baselineReport, err = store.LoadReport(prev.ID)
		if err != nil {
			return err
		}
		baselineLabel, baselineTime = prev.ID, prev.CreatedAt
	}

	logVerbose("Comparing %s (current) vs %s (baseline)", current.ID, baselineLabel)

	result := &DiffResult{
		Baseline:   baselineLabel,
		Current:    current.ID,
		Comparison: aggregator.NewTrendAnalyzer().Compare(baselineReport, currentReport, baselineTime),
	}

	if err := outputDiff(result, diffFormat, diffOutput); err != nil {
		return err
	}

	// CI gate.
	if diffFailNew && len(result.NewFindings) > 0 {
		return &ThresholdExceededError{
			FindingCount: len(result.NewFindings),
			Reason:       fmt.Sprintf("%d new finding(s) since %s", len(result.NewFindings), baselineLabel),
		}
	}
	return nil
}

// loadBaseline resolves --baseline as a stored scan ID, then as a file of
// saved audit output.
func loadBaseline(store storage.Storage, ref string) (string, *models.ParsedReport, time.Time, error) {
	if storage.ValidScanID(ref) {
		meta, report, err := reportFromStore(store, ref)
		if err != nil {
			return "", nil, time.Time{}, err
		}
		return meta.ID, report, meta.CreatedAt, nil
	}

	raw, source, err := readInput(os.Stdin, ref)
	if err != nil {
		return "", nil, time.Time{}, err
	}
	p, err := newParser()
	if err != nil {
		return "", nil, time.Time{}, err
	}
	report, err := p.ParseBytes(raw)
	if err != nil {
		return "", nil, time.Time{}, &ValidationError{Message: fmt.Sprintf("failed to parse baseline: %v", err)}
	}

	var modTime time.Time
	if info, err := os.Stat(ref); err == nil {
		modTime = info.ModTime()
	}
	return source, report, modTime, nil
}

// outputDiff renders the diff result to the chosen format.
func outputDiff(result *DiffResult, format, outputPath string) error {
	writer, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	if format == "json" {
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printDiffText(writer, result)
}

func printDiffText(w io.Writer, r *DiffResult) error {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║          Hardenscope Drift Delta           ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Baseline: %s\n", r.Baseline)
	p("Current:  %s\n\n", r.Current)

	p("%s\n", aggregator.NewTrendAnalyzer().GenerateComparisonReport(r.Comparison))
	p("Unchanged: %d\n", r.Unchanged)

	switch {
	case len(r.NewFindings) == 0 && len(r.ResolvedFindings) == 0:
		p("No drift detected.\n")
	case len(r.NewFindings) == 0:
		p("No new findings, only improvements.\n")
	}
	return nil
}
