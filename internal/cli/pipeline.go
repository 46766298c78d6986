package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/classifier"
	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/parser"
	"github.com/ppiankov/hardenscope/internal/policy"
	"github.com/ppiankov/hardenscope/internal/reporter"
	"github.com/ppiankov/hardenscope/internal/runner"
	"github.com/ppiankov/hardenscope/internal/storage"
)

// bothJSONFile receives the JSON half of "--format both" when printing to stdout.
const bothJSONFile = "hardenscope-report.json"

// PipelineConfig holds options for the shared report pipeline.
type PipelineConfig struct {
	Format    string
	Output    string
	Store     bool
	Threshold int
	Source    string            // "run" or the path the output came from
	Run       *runner.RunResult // execution details when the audit was run here
}

// RunPipeline turns raw audit output into a rendered report. This is the
// shared logic between the parse and run commands:
// parse → trend → recommendations → store → output → policy → threshold.
func RunPipeline(raw []byte, pcfg PipelineConfig) error {
	// Step 1: Parse
	p, err := newParser()
	if err != nil {
		return err
	}
	parsed, err := p.ParseBytes(raw)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("failed to parse audit output: %v", err)}
	}
	logVerbose("Parsed %d findings (hardening index %d)", parsed.TotalFindings(), parsed.Score.HardeningIndex)

	doc := &reporter.Report{
		Source:      pcfg.Source,
		GeneratedAt: time.Now().UTC(),
		Display:     formatter.FormatForDisplay(parsed, formatter.Options{TopN: cfg.TopFindings}),
	}

	// Step 2: Trend against the previous stored scan
	var store *storage.LocalStorage
	if pcfg.Store {
		store, err = openStore()
		if err != nil {
			return err
		}
		if trend, err := latestTrend(store, parsed); err == nil {
			doc.Trend = trend
			logVerbose("Compared with scan from %s", trend.ComparedWith.Format("2006-01-02 15:04"))
		} else {
			logDebug("No previous scan to compare with: %v", err)
		}
	}

	// Step 3: Recommendations
	doc.Recommendations = aggregator.NewRecommendationGenerator().GenerateRecommendations(parsed)
	logVerbose("Generated %d recommendations", len(doc.Recommendations))

	// Step 4: Store
	if store != nil {
		meta, err := storeScan(store, raw, parsed, pcfg)
		if err != nil {
			logError("Failed to store scan: %v", err)
			return err
		}
		doc.ScanID = meta.ID
		logVerbose("Stored scan %s in %s", meta.ID, store.GetStoragePath())
	}

	// Step 5: Policy (evaluated before output so the report carries it)
	pol, err := loadPolicy()
	if err != nil {
		return err
	}
	if pol != nil {
		doc.Policy = pol.Evaluate(parsed)
	}

	// Step 6: Output
	if err := generateOutput(doc, pcfg.Format, pcfg.Output); err != nil {
		logError("Failed to generate output: %v", err)
		return err
	}

	// Step 7: Policy enforcement
	if doc.Policy != nil && !doc.Policy.Pass {
		for _, v := range doc.Policy.Violations {
			logError("Policy violation [%s]: %s", v.Rule, v.Message)
		}
		return &ThresholdExceededError{
			FindingCount: len(doc.Policy.Violations),
			Reason:       fmt.Sprintf("%d policy violation(s)", len(doc.Policy.Violations)),
		}
	}

	// Step 8: Threshold
	return checkThreshold(parsed.TotalFindings(), pcfg.Threshold)
}

// newParser builds a parser from the configured classification rules.
func newParser() (*parser.Parser, error) {
	rules := classifier.DefaultRules()
	if cfg.RulesFile != "" {
		rf, err := classifier.LoadRuleFile(cfg.RulesFile)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("failed to load rules file: %v", err)}
		}
		if cfg.RulesMode == classifier.ModeReplace {
			rf.Mode = classifier.ModeReplace
		}
		rules = rf.Apply(rules)
		logVerbose("Loaded classification rules from %s (%s)", cfg.RulesFile, rf.Mode)
	}

	c, err := classifier.New(rules)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid classification rules: %v", err)}
	}
	return parser.New(c, parser.Options{MaxDetails: cfg.MaxSuggestionDetails}), nil
}

// openStore opens the configured scan storage.
func openStore() (*storage.LocalStorage, error) {
	storagePath, err := cfg.GetStoragePath()
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return nil, err
	}
	return storage.NewLocal(storagePath), nil
}

func latestTrend(store storage.Storage, current *models.ParsedReport) (*models.Trend, error) {
	prev, err := store.GetLatest()
	if err != nil {
		return nil, err
	}
	prevReport, err := store.LoadReport(prev.ID)
	if err != nil {
		return nil, err
	}
	return aggregator.NewTrendAnalyzer().Compare(prevReport, current, prev.CreatedAt).Trend, nil
}

// storeScan persists raw output, the parsed report and metadata, then
// marks the scan completed.
func storeScan(store storage.Storage, raw []byte, parsed *models.ParsedReport, pcfg PipelineConfig) (*models.ScanMetadata, error) {
	source := pcfg.Source
	if source == "" {
		source = "stdin"
	}
	meta, err := store.CreateScan(source)
	if err != nil {
		return nil, err
	}
	if err := store.SaveRawOutput(meta.ID, raw); err != nil {
		return nil, err
	}
	if err := store.SaveReport(meta.ID, parsed); err != nil {
		return nil, err
	}

	meta.CompletedAt = time.Now().UTC()
	meta.OutputBytes = len(raw)
	meta.Preview = runner.Preview(string(raw), cfg.PreviewLength)
	if pcfg.Run != nil {
		meta.Duration = pcfg.Run.Duration
		meta.ExitCode = pcfg.Run.ExitCode
	}
	meta.HardeningIndex = parsed.Score.HardeningIndex
	meta.RiskSummary = parsed.RiskSummary
	meta.Summary = parsed.SeveritySummary
	if err := store.SaveMetadata(meta); err != nil {
		return nil, err
	}

	if err := store.Complete(meta.ID); err != nil {
		return nil, err
	}
	meta.Status = models.ScanCompleted
	return meta, nil
}

// loadPolicy finds and loads a policy file from the working directory up.
func loadPolicy() (*policy.Policy, error) {
	policyPath := policy.FindPolicyFile()
	if policyPath == "" {
		return nil, nil
	}
	logVerbose("Found policy file: %s", policyPath)

	pol, err := policy.LoadFromFile(policyPath)
	if err != nil {
		logError("Failed to load policy: %v", err)
		return nil, &ValidationError{Message: err.Error()}
	}
	return pol, nil
}

func checkThreshold(total, threshold int) error {
	if threshold > 0 && total > threshold {
		logError("Finding count (%d) exceeds threshold (%d)", total, threshold)
		return &ThresholdExceededError{FindingCount: total, Threshold: threshold}
	}
	return nil
}

// openOutput returns stdout or a created file, plus its closer.
func openOutput(outputPath string) (io.Writer, func(), error) {
	if outputPath == "" || outputPath == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// generateOutput renders the report in the requested format(s).
func generateOutput(doc *reporter.Report, format, outputPath string) error {
	writer, closeFn, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeFn()

	switch strings.ToLower(format) {
	case "text":
		return reporter.NewTextReporter(writer).Generate(doc)

	case "json":
		return reporter.NewJSONReporter(writer, true).Generate(doc)

	case "html":
		html, err := reporter.NewHTMLReporter(writer)
		if err != nil {
			return err
		}
		return html.Generate(doc)

	case "both":
		if err := reporter.NewTextReporter(writer).Generate(doc); err != nil {
			return err
		}
		if outputPath == "" || outputPath == "-" {
			jsonFile, err := os.Create(bothJSONFile)
			if err != nil {
				return fmt.Errorf("failed to create JSON file: %w", err)
			}
			defer func() { _ = jsonFile.Close() }()
			return reporter.NewJSONReporter(jsonFile, true).Generate(doc)
		}
		if _, err := fmt.Fprintf(writer, "\n=== JSON Output ===\n\n"); err != nil {
			return err
		}
		return reporter.NewJSONReporter(writer, true).Generate(doc)

	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, html, or both)", format)}
	}
}

// reportFromStore loads a stored scan and builds its printable report.
// id may be "latest" or empty for the newest completed scan.
func reportFromStore(store storage.Storage, id string) (*models.ScanMetadata, *models.ParsedReport, error) {
	var (
		meta *models.ScanMetadata
		err  error
	)
	if id == "" || id == "latest" {
		meta, err = store.GetLatest()
	} else {
		meta, err = store.LoadScan(id)
	}
	if err != nil {
		if errors.Is(err, storage.ErrScanNotFound) {
			return nil, nil, &ValidationError{Message: fmt.Sprintf("scan not found: %v", err)}
		}
		return nil, nil, err
	}

	parsed, err := store.LoadReport(meta.ID)
	if err != nil {
		return nil, nil, err
	}
	return meta, parsed, nil
}
