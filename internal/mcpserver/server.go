// Package mcpserver exposes a parsed audit report to AI assistants over MCP.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ppiankov/hardenscope/internal/formatter"
	"github.com/ppiankov/hardenscope/internal/models"
)

const (
	summaryURI = "hardenscope://summary"

	// maxInputLength caps string arguments.
	maxInputLength = 64
)

// AuditData holds the report served by the MCP tools.
type AuditData struct {
	ScanID          string
	Report          *models.ParsedReport
	Recommendations []models.Recommendation
}

// Summary is the overview returned by get_summary and the summary resource.
type Summary struct {
	ScanID             string                    `json:"scan_id,omitempty"`
	Hostname           string                    `json:"hostname"`
	HardeningIndex     int                       `json:"hardening_index"`
	Status             string                    `json:"status"`
	RiskSummary        string                    `json:"risk_summary"`
	TotalFindings      int                       `json:"total_findings"`
	SeveritySummary    map[string]int            `json:"severity_summary"`
	Statistics         models.Statistics         `json:"statistics"`
	SecurityComponents models.SecurityComponents `json:"security_components"`
	Recommendations    []models.Recommendation   `json:"recommendations,omitempty"`
}

type findingEntry struct {
	Index    int             `json:"index"`
	Severity models.Severity `json:"severity"`
	Kind     string          `json:"kind"`
	TestID   string          `json:"test_id,omitempty"`
	Message  string          `json:"message"`
}

// NewMCPServer creates an MCP server with the audit tools registered.
func NewMCPServer(data *AuditData, version string) *server.MCPServer {
	if data.Report == nil {
		data.Report = models.NewParsedReport()
	}

	s := server.NewMCPServer(
		"hardenscope",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	registerTools(s, data)
	registerResources(s, data)

	return s
}

// ServeStdio serves data over stdin/stdout until the client disconnects.
func ServeStdio(data *AuditData, version string) error {
	return server.ServeStdio(NewMCPServer(data, version))
}

func registerTools(s *server.MCPServer, data *AuditData) {
	s.AddTool(
		mcp.NewTool("list_findings",
			mcp.WithDescription("List audit findings ordered by severity. Optionally filter by severity."),
			mcp.WithString("severity",
				mcp.Description("Filter by severity: critical, high, medium, low, info"),
			),
		),
		listFindingsHandler(data),
	)

	s.AddTool(
		mcp.NewTool("get_summary",
			mcp.WithDescription("Get the hardening index, risk summary, finding counts per severity and recommendations."),
		),
		getSummaryHandler(data),
	)

	s.AddTool(
		mcp.NewTool("get_finding",
			mcp.WithDescription("Get one finding with its details, by index from list_findings or by test ID."),
			mcp.WithNumber("index",
				mcp.Description("Position of the finding as returned by list_findings"),
			),
			mcp.WithString("test_id",
				mcp.Description("Lynis test identifier (e.g. SSH-7408)"),
			),
		),
		getFindingHandler(data),
	)

	s.AddTool(
		mcp.NewTool("get_system_info",
			mcp.WithDescription("Get the audited host's operating system, kernel, hostname and installed security components."),
		),
		getSystemInfoHandler(data),
	)
}

func registerResources(s *server.MCPServer, data *AuditData) {
	s.AddResource(
		mcp.NewResource(
			summaryURI,
			"Audit Summary",
			mcp.WithResourceDescription("Hardening index and findings per severity"),
			mcp.WithMIMEType("application/json"),
		),
		func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			summaryJSON, err := json.MarshalIndent(buildSummary(data), "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to encode summary: %w", err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      summaryURI,
					MIMEType: "application/json",
					Text:     string(summaryJSON),
				},
			}, nil
		},
	)
}

func listFindingsHandler(data *AuditData) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := strings.ToLower(strings.TrimSpace(req.GetString("severity", "")))
		var want models.Severity
		if filter != "" {
			sev, ok := models.ParseSeverity(filter)
			if !ok {
				return mcp.NewToolResultError(
					fmt.Sprintf("invalid severity %q; allowed values: critical, high, medium, low, info", filter),
				), nil
			}
			want = sev
		}

		entries := []findingEntry{}
		for i, f := range data.Report.AllFindings() {
			if want != "" && f.Severity != want {
				continue
			}
			entries = append(entries, findingEntry{
				Index:    i,
				Severity: f.Severity,
				Kind:     string(f.Kind),
				TestID:   f.TestID,
				Message:  f.Message,
			})
		}

		return jsonResult(map[string]interface{}{
			"count":    len(entries),
			"findings": entries,
		})
	}
}

func getSummaryHandler(data *AuditData) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(buildSummary(data))
	}
}

func getFindingHandler(data *AuditData) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		all := data.Report.AllFindings()

		testID := strings.TrimSpace(req.GetString("test_id", ""))
		if len(testID) > maxInputLength {
			return mcp.NewToolResultError("test_id exceeds maximum length"), nil
		}
		if testID != "" {
			for _, f := range all {
				if strings.EqualFold(f.TestID, testID) {
					return jsonResult(f)
				}
			}
			return mcp.NewToolResultError(fmt.Sprintf("no finding with test ID %q", testID)), nil
		}

		index := int(req.GetFloat("index", -1))
		if index < 0 {
			return mcp.NewToolResultError("either index or test_id is required"), nil
		}
		if index >= len(all) {
			return mcp.NewToolResultError(fmt.Sprintf("index %d out of range; report has %d findings", index, len(all))), nil
		}
		return jsonResult(all[index])
	}
}

func getSystemInfoHandler(data *AuditData) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dm := formatter.FormatForDisplay(data.Report, formatter.Options{})
		return jsonResult(map[string]interface{}{
			"system_info":         dm.SystemInfo,
			"security_components": dm.SecurityComponents,
			"tests_performed":     dm.Statistics.TestsPerformed,
		})
	}
}

func buildSummary(data *AuditData) Summary {
	dm := formatter.FormatForDisplay(data.Report, formatter.Options{})
	return Summary{
		ScanID:             data.ScanID,
		Hostname:           dm.SystemInfo.Hostname,
		HardeningIndex:     dm.Score.HardeningIndex,
		Status:             dm.Score.Status,
		RiskSummary:        dm.RiskSummary,
		TotalFindings:      dm.TotalFindings,
		SeveritySummary:    dm.SeveritySummary,
		Statistics:         dm.Statistics,
		SecurityComponents: dm.SecurityComponents,
		Recommendations:    data.Recommendations,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
