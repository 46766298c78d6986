package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ppiankov/hardenscope/internal/storage"
	"github.com/ppiankov/hardenscope/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view [scan-id|latest]",
	Short: "Browse a stored scan in an interactive terminal UI",
	Long: `View opens the findings of a stored scan in a full-screen table with
search, severity filtering, sorting and copy to clipboard.

The header shows the hardening index, the trend against the previous
scan and a sparkline of the last runs (last_runs in config).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runView,
}

func runView(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return &ValidationError{Message: "view needs an interactive terminal; use 'hardenscope show' instead"}
	}

	ref := "latest"
	if len(args) == 1 {
		ref = args[0]
	}
	if ref != "latest" && !storage.ValidScanID(ref) {
		return &ValidationError{Message: fmt.Sprintf("invalid scan ID: %s", ref)}
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	meta, report, err := reportFromStore(store, ref)
	if err != nil {
		return err
	}

	return tui.Run(report, tui.Options{
		Trend:   previousTrend(store, meta, report),
		History: indexHistory(store, cfg.LastRuns),
	})
}

// indexHistory returns hardening indexes of the last n scans, oldest first.
func indexHistory(store storage.Storage, n int) []int {
	summary, err := historySummary(store, n)
	if err != nil || summary == nil {
		return nil
	}
	return summary.IndexSparkline
}
