package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hardenscope/internal/aggregator"
	"github.com/ppiankov/hardenscope/internal/mcpserver"
	"github.com/ppiankov/hardenscope/internal/models"
	"github.com/ppiankov/hardenscope/internal/storage"
)

var mcpFile string

// maxMCPRecommendations caps the recommendations handed to the assistant.
const maxMCPRecommendations = 10

var mcpCmd = &cobra.Command{
	Use:   "mcp [scan-id|latest]",
	Short: "Expose a scan to AI assistants over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout that lets an
assistant browse one audit: list and filter findings, fetch a single
finding, and read the summary and system information.

The scan is the latest stored one unless an ID or --file is given.

Example:
  hardenscope mcp
  hardenscope mcp --file /var/log/lynis-report.dat`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpFile, "file", "",
		"serve audit output from this file instead of a stored scan")
}

func runMCP(cmd *cobra.Command, args []string) error {
	data, err := loadAuditData(args)
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs stay on stderr.
	logVerbose("Serving %d findings over MCP", data.Report.TotalFindings())
	return mcpserver.ServeStdio(data, version)
}

func loadAuditData(args []string) (*mcpserver.AuditData, error) {
	var (
		id     string
		report *models.ParsedReport
	)
	if mcpFile != "" {
		raw, _, err := readInput(os.Stdin, mcpFile)
		if err != nil {
			return nil, err
		}
		p, err := newParser()
		if err != nil {
			return nil, err
		}
		if report, err = p.ParseBytes(raw); err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("failed to parse %s: %v", mcpFile, err)}
		}
	} else {
		ref := "latest"
		if len(args) == 1 {
			ref = args[0]
		}
		if ref != "latest" && !storage.ValidScanID(ref) {
			return nil, &ValidationError{Message: fmt.Sprintf("invalid scan ID: %s", ref)}
		}
		store, err := openStore()
		if err != nil {
			return nil, err
		}
		meta, parsed, err := reportFromStore(store, ref)
		if err != nil {
			return nil, err
		}
		id, report = meta.ID, parsed
	}

	gen := aggregator.NewRecommendationGenerator()
	return &mcpserver.AuditData{
		ScanID:          id,
		Report:          report,
		Recommendations: gen.GetTopRecommendations(gen.GenerateRecommendations(report), maxMCPRecommendations),
	}, nil
}
