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
	scansFormat    string
	scansStatus    string
	scansLimit     int
	scansOlderThan int
	historyLast    int
)

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "Manage stored scans",
	Long: `Scans lists, archives and cleans up the scans saved with --store.

Scans live under the storage directory in pending/, completed/ and
archived/ subdirectories. Each holds the raw audit output, the parsed
report and the scan metadata.`,
}

var scansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored scans, newest first",
	Args:  cobra.NoArgs,
	RunE:  runScansList,
}

var scansArchiveCmd = &cobra.Command{
	Use:   "archive <scan-id>",
	Short: "Move a completed scan to the archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runScansArchive,
}

var scansCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete scans older than the retention period",
	Args:  cobra.NoArgs,
	RunE:  runScansCleanup,
}

var scansHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show how the hardening index moved across recent scans",
	Args:  cobra.NoArgs,
	RunE:  runScansHistory,
}

func init() {
	scansListCmd.Flags().StringVarP(&scansFormat, "format", "f", "text",
		"output format: text or json")
	scansListCmd.Flags().StringVar(&scansStatus, "status", "",
		"only show scans in this state: pending, completed, or archived")
	scansListCmd.Flags().IntVarP(&scansLimit, "limit", "n", 20,
		"maximum number of scans to show (0 = all)")

	scansCleanupCmd.Flags().IntVar(&scansOlderThan, "older-than", -1,
		"age in days (default: retention_days from config)")

	scansHistoryCmd.Flags().StringVarP(&scansFormat, "format", "f", "text",
		"output format: text or json")
	scansHistoryCmd.Flags().IntVarP(&historyLast, "last", "n", 0,
		"number of scans to analyze (default: last_runs from config)")

	scansCmd.AddCommand(scansListCmd, scansHistoryCmd, scansArchiveCmd, scansCleanupCmd)
}

func runScansList(cmd *cobra.Command, args []string) error {
	switch scansStatus {
	case "", models.ScanPending, models.ScanCompleted, models.ScanArchived:
	default:
		return &ValidationError{Message: fmt.Sprintf("invalid status: %s (use pending, completed, or archived)", scansStatus)}
	}
	if scansLimit < 0 {
		return &ValidationError{Message: "--limit cannot be negative"}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	scans, err := store.ListScans(scansStatus)
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}
	if scansLimit > 0 && len(scans) > scansLimit {
		scans = scans[:scansLimit]
	}
	logVerbose("Listing %d scans from %s", len(scans), store.GetStoragePath())

	switch scansFormat {
	case "json":
		if scans == nil {
			scans = []*models.ScanMetadata{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(scans)
	case "text":
		writeScansText(os.Stdout, scans)
		return nil
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", scansFormat)}
	}
}

func writeScansText(w io.Writer, scans []*models.ScanMetadata) {
	if len(scans) == 0 {
		_, _ = fmt.Fprintln(w, "No stored scans. Run 'hardenscope run --store' first.")
		return
	}
	_, _ = fmt.Fprintf(w, "%-13s  %-9s  %-16s  %5s  %8s  %s\n",
		"ID", "STATUS", "CREATED", "INDEX", "FINDINGS", "SOURCE")
	for _, s := range scans {
		total := 0
		for _, n := range s.Summary {
			total += n
		}
		_, _ = fmt.Fprintf(w, "%-13s  %-9s  %-16s  %5d  %8d  %s\n",
			s.ID, s.Status, s.CreatedAt.Local().Format("2006-01-02 15:04"),
			s.HardeningIndex, total, s.Source)
	}
}

func runScansArchive(cmd *cobra.Command, args []string) error {
	id := args[0]
	if !storage.ValidScanID(id) {
		return &ValidationError{Message: fmt.Sprintf("invalid scan ID: %s", id)}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.Archive(id); err != nil {
		if storage.IsNotFound(err) {
			return &ValidationError{Message: fmt.Sprintf("no completed scan with ID %s", id)}
		}
		return fmt.Errorf("failed to archive scan: %w", err)
	}
	fmt.Printf("Archived %s\n", id)
	return nil
}

func runScansCleanup(cmd *cobra.Command, args []string) error {
	days := scansOlderThan
	if days < 0 {
		days = cfg.RetentionDays
	}
	if days == 0 {
		fmt.Println("Retention is disabled (retention_days: 0). Use --older-than to clean up.")
		return nil
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	removed, err := store.Cleanup(time.Duration(days) * 24 * time.Hour)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}
	fmt.Printf("Removed %d scan(s) older than %d days\n", removed, days)
	return nil
}

func runScansHistory(cmd *cobra.Command, args []string) error {
	if scansFormat != "text" && scansFormat != "json" {
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", scansFormat)}
	}
	n := historyLast
	if n <= 0 {
		n = cfg.LastRuns
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	summary, err := historySummary(store, n)
	if err != nil {
		if storage.IsNotFound(err) {
			fmt.Println("No stored scans. Run 'hardenscope run --store' first.")
			return nil
		}
		return err
	}

	if scansFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	writeHistoryText(os.Stdout, summary)
	return nil
}

// historySummary analyzes the last n completed scans.
func historySummary(store storage.Storage, n int) (*aggregator.TrendSummary, error) {
	scans, err := store.GetLastN(n)
	if err != nil {
		return nil, err
	}
	points := make([]aggregator.HistoryPoint, 0, len(scans))
	for _, s := range scans {
		total := 0
		for _, c := range s.Summary {
			total += c
		}
		points = append(points, aggregator.HistoryPoint{
			Timestamp:      s.CreatedAt,
			HardeningIndex: s.HardeningIndex,
			TotalFindings:  total,
		})
	}
	return aggregator.NewTrendAnalyzer().AnalyzeHistory(points), nil
}

func writeHistoryText(w io.Writer, s *aggregator.TrendSummary) {
	_, _ = fmt.Fprintf(w, "Scans analyzed: %d (%s)\n", s.RunsAnalyzed, s.TimeRange)
	_, _ = fmt.Fprintf(w, "Direction:      %s %s\n", aggregator.GetTrendIndicator(s.Direction), s.Direction)
	_, _ = fmt.Fprintf(w, "Best index:     %d\n", s.BestIndex)
	_, _ = fmt.Fprintf(w, "Worst index:    %d\n\n", s.WorstIndex)
	_, _ = fmt.Fprintf(w, "%-6s  %5s  %8s\n", "SCAN", "INDEX", "FINDINGS")
	for i := range s.IndexSparkline {
		_, _ = fmt.Fprintf(w, "%-6d  %5d  %8d\n", i+1, s.IndexSparkline[i], s.FindingCounts[i])
	}
}
