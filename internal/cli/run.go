package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/discovery"
	"github.com/ppiankov/hardenscope/internal/runner"
)

var (
	runFormat    string
	runOutput    string
	runStore     bool
	runThreshold int
	runTimeout   time.Duration
	runDryRun    bool
	runNoSudo    bool
)

// runExec lets tests replace the audit process.
var runExec runner.ExecFunc

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a Lynis audit on this host and report the results",
	Long: `Run performs a full audit cycle:

  1. Discover  find the lynis binary and check privileges
  2. Execute   run "lynis audit system" and capture its output
  3. Parse     classify findings and compute the risk summary
  4. Report    print results (text, json, html, or both)

Lynis needs root for most tests. When not running as root the audit is
started through "sudo -n", which fails instead of prompting.

Use --dry-run to print the command without executing anything.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "",
		"output format: text, json, html, or both (default from config)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "",
		"write output to file")
	runCmd.Flags().BoolVar(&runStore, "store", false,
		"persist the scan for history and comparison")
	runCmd.Flags().IntVar(&runThreshold, "fail-threshold", -1,
		"exit 1 if findings exceed threshold (0 = disabled, default from config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0,
		"audit execution timeout (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"show the audit command without executing it")
	runCmd.Flags().BoolVar(&runNoSudo, "no-sudo", false,
		"never wrap the audit in sudo")
}

func runRun(cmd *cobra.Command, args []string) error {
	// Step 1: Discover
	logVerbose("Looking for %s...", cfg.LynisBinary)
	useSudo := cfg.UseSudo && !runNoSudo
	plan := discovery.New(probeLookPath, probeGeteuid).Discover(discovery.Options{
		LynisBinary: cfg.LynisBinary,
		SudoBinary:  cfg.SudoBinary,
		UseSudo:     useSudo,
	})

	rc := runner.RunConfig{
		Binary:        plan.Lynis.Path,
		Args:          cfg.LynisArgs,
		UseSudo:       plan.NeedsSudo,
		SudoBinary:    plan.Sudo.Path,
		Timeout:       cfg.ScanTimeout,
		PreviewLength: cfg.PreviewLength,
	}
	if runTimeout > 0 {
		rc.Timeout = runTimeout
	}
	if rc.Binary == "" {
		rc.Binary = cfg.LynisBinary
	}

	// Dry-run: show the command and exit
	if runDryRun {
		fmt.Printf("Dry run, would execute:\n\n  %s\n\n", strings.Join(runner.Command(rc), " "))
		if !plan.Runnable {
			fmt.Printf("Note: %s\n", plan.Reason)
		}
		return nil
	}

	if !plan.Runnable {
		return &ValidationError{Message: fmt.Sprintf("cannot run audit: %s. Run 'hardenscope doctor' for details", plan.Reason)}
	}

	// Step 2: Execute
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logVerbose("Executing %s (timeout %s)", strings.Join(runner.Command(rc), " "), rc.Timeout)
	res := runner.New(runExec).Run(ctx, rc)
	if !res.Success {
		logError("Audit failed after %s: %s", res.Duration.Round(time.Second), res.Error)
		return fmt.Errorf("audit execution failed: %s", res.Error)
	}
	logVerbose("Audit finished in %s (exit %d, %d bytes)", res.Duration.Round(time.Second), res.ExitCode, res.OutputBytes)

	// Step 3-4: Parse and report through the shared pipeline
	threshold := runThreshold
	if threshold < 0 {
		threshold = cfg.FailThreshold
	}
	return RunPipeline(res.Output, PipelineConfig{
		Format:    orDefault(runFormat, cfg.Format),
		Output:    runOutput,
		Store:     runStore,
		Threshold: threshold,
		Source:    "run",
		Run:       &res,
	})
}
