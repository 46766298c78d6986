package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/config"
)

const (
	ExitOK           = 0 // Success
	ExitPolicyFail   = 1 // Findings exceed threshold or policy violated
	ExitInvalidInput = 2 // Unreadable or unparseable audit output
	ExitRuntimeError = 3 // I/O, permissions, or runtime error
)

var (
	// Global config instance
	cfg *config.Config

	// Global flags
	configFile string
	verbose    bool
	debug      bool

	version = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "hardenscope",
	Short: "Hardenscope - Lynis audit parser and hardening tracker",
	Long: `Hardenscope runs or reads Lynis security audits and turns the raw output
into a structured report: every warning and suggestion is classified as
critical, high, medium, low or info, counted, and summarized.

It provides:
- Severity classification of Lynis findings
- Stored scan history with run-to-run comparison
- Text, JSON, HTML, CSV and SARIF output
- An HTTP API, an MCP server and an interactive terminal viewer
- CI/CD integration with exit codes and policy files

Quick start:
  hardenscope doctor
  hardenscope run --store
  hardenscope scans list

Other commands:
  hardenscope parse /var/log/lynis-report.dat
  hardenscope diff
  hardenscope export --format sarif
  hardenscope view`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return &ValidationError{Message: fmt.Sprintf("failed to load config: %v", err)}
		}

		// Override config with flags if provided
		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
			cfg.Verbose = true
		}

		return nil
	},
}

// SetVersion records the build version shown by "version" and reported by
// the API and MCP servers.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var threshold *ThresholdExceededError
		if !errors.As(err, &threshold) {
			logError("%v", err)
		}
		os.Exit(HandleError(err))
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./hardenscope.yaml or ~/hardenscope.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scansCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Hardenscope %s\n", version)
		fmt.Fprintln(cmd.OutOrStdout(), "Lynis audit parser and hardening tracker")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	var validation *ValidationError
	var threshold *ThresholdExceededError
	switch {
	case errors.As(err, &validation):
		return ExitInvalidInput
	case errors.As(err, &threshold):
		return ExitPolicyFail
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents unusable input
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ThresholdExceededError represents a threshold or policy failure
type ThresholdExceededError struct {
	FindingCount int
	Threshold    int
	Reason       string // set for policy violations
}

func (e *ThresholdExceededError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("finding count (%d) exceeds threshold (%d)", e.FindingCount, e.Threshold)
}

// logVerbose prints a message if verbose mode is enabled
func logVerbose(format string, args ...interface{}) {
	if cfg != nil && cfg.Verbose {
		fmt.Fprintf(os.Stderr, "[INFO] "+format+"\n", args...)
	}
}

// logDebug prints a message if debug mode is enabled
func logDebug(format string, args ...interface{}) {
	if cfg != nil && cfg.Debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// logError prints an error message
func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+format+"\n", args...)
}
