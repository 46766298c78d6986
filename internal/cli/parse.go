package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/collector"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/reporter"
)

var (
	parseFormat      string
	parseOutput      string
	parseStore       bool
	parseThreshold   int
	parseConcurrency int
)

var parseCmd = &cobra.Command{
	Use:   "parse <file|dir|->...",
	Short: "Parse saved Lynis output into a classified report",
	Long: `Parse reads Lynis output that was captured earlier: screen output saved
with "lynis audit system > audit.txt", /var/log/lynis.log, or the
machine-readable /var/log/lynis-report.dat. Use "-" to read from stdin.

With a single input the full report is printed. With several files or a
directory (walked for .txt, .log and .dat files) the reports are parsed
concurrently and a fleet summary is printed instead, weakest host first.

Example:
  hardenscope parse /var/log/lynis-report.dat
  sudo lynis audit system --quick | hardenscope parse - --store
  hardenscope parse ./audits/ --format json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "",
		"output format: text, json, html, or both (default from config)")
	parseCmd.Flags().StringVarP(&parseOutput, "output", "o", "",
		"write output to file")
	parseCmd.Flags().BoolVar(&parseStore, "store", false,
		"persist scans for history and comparison")
	parseCmd.Flags().IntVar(&parseThreshold, "fail-threshold", -1,
		"exit 1 if findings exceed threshold (0 = disabled, default from config)")
	parseCmd.Flags().IntVar(&parseConcurrency, "concurrency", 4,
		"number of files parsed in parallel")
}

func runParse(cmd *cobra.Command, args []string) error {
	format := orDefault(parseFormat, cfg.Format)
	threshold := parseThreshold
	if threshold < 0 {
		threshold = cfg.FailThreshold
	}

	if len(args) == 1 && (args[0] == "-" || isRegularFile(args[0])) {
		raw, source, err := readInput(cmd.InOrStdin(), args[0])
		if err != nil {
			return err
		}
		return RunPipeline(raw, PipelineConfig{
			Format:    format,
			Output:    parseOutput,
			Store:     parseStore,
			Threshold: threshold,
			Source:    source,
		})
	}

	return parseMany(cmd.Context(), args, format, threshold)
}

// readInput reads one file or stdin and checks it looks like Lynis output.
func readInput(stdin io.Reader, path string) ([]byte, string, error) {
	var (
		raw    []byte
		err    error
		source = path
	)
	if path == "-" {
		source = "stdin"
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", source, err)
	}

	kind, err := collector.DetectSource(raw)
	if err != nil {
		return nil, "", &ValidationError{Message: fmt.Sprintf("%s: %v", source, err)}
	}
	logVerbose("Detected %s from %s (%d bytes)", kind, source, len(raw))
	return raw, source, nil
}

// parseMany parses several inputs concurrently and prints a fleet summary.
func parseMany(ctx context.Context, paths []string, format string, threshold int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := newParser()
	if err != nil {
		return err
	}

	coll := collector.New(collector.Config{
		MaxConcurrency: parseConcurrency,
		Verbose:        cfg.Verbose,
	}, p)
	outcome, err := coll.CollectFromPaths(ctx, paths)
	if err != nil {
		if outcome != nil {
			for _, fe := range outcome.Errors {
				logError("%v", fe)
			}
		}
		return &ValidationError{Message: fmt.Sprintf("failed to collect audit output: %v", err)}
	}
	for _, fe := range outcome.Errors {
		logError("Skipped %v", fe)
	}

	inputs := make([]aggregator.Input, 0, len(outcome.Results))
	total := 0
	for _, res := range outcome.Results {
		inputs = append(inputs, aggregator.Input{Source: res.Path, Report: res.Report})
		total += res.Report.TotalFindings()
	}

	if parseStore {
		store, err := openStore()
		if err != nil {
			return err
		}
		for _, res := range outcome.Results {
			raw, err := os.ReadFile(res.Path)
			if err != nil {
				return fmt.Errorf("failed to re-read %s: %w", res.Path, err)
			}
			meta, err := storeScan(store, raw, res.Report, PipelineConfig{Source: res.Path})
			if err != nil {
				logError("Failed to store scan: %v", err)
				return err
			}
			logVerbose("Stored %s as %s", res.Path, meta.ID)
		}
	}

	fleet, err := aggregator.New().Aggregate(inputs)
	if err != nil {
		return err
	}
	if err := generateFleetOutput(fleet, format, parseOutput); err != nil {
		logError("Failed to generate output: %v", err)
		return err
	}

	return checkThreshold(total, threshold)
}

func generateFleetOutput(fleet *models.FleetSummary, format, outputPath string) error {
	writer, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	switch format {
	case "text", "both":
		return reporter.NewTextReporter(writer).GenerateFleet(fleet)
	case "json":
		return reporter.NewJSONReporter(writer, true).GenerateFleet(fleet)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported fleet format: %s (use text or json)", format)}
	}
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
