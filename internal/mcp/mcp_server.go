// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/cistat/internal/circleci"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/github"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the cistat MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.CacheManager) *server.MCPServer {
	h := &toolHandler{
		baseCfg:        baseCfg,
		mgr:            mgr,
		newEventSource: github.NewEventSource,
		newInsights: func(cfg *contract.Config) contract.InsightsClient {
			return circleci.NewClient(cfg.CircleCIToken, circleci.WithBaseURL(cfg.CircleCIURL))
		},
	}
	return newServer(h)
}

func newServer(h *toolHandler) *server.MCPServer {
	s := server.NewMCPServer(
		"cistat CI Telemetry Server",
		"1.0.0",
		server.WithLogging(),
	)

	// --- 1. Tool: get_github_metrics ---
	s.AddTool(mcp.NewTool("get_github_metrics",
		mcp.WithDescription("Summarize GitHub Actions workflow runs and jobs of a repository: run counts, success rate, duration statistics and throughput."),
		mcp.WithString("owner", mcp.Description("Repository owner (defaults to the configured owner).")),
		mcp.WithString("repo", mcp.Description("Repository name (defaults to the configured repository).")),
		mcp.WithNumber("days", mcp.Description("Lookback window in days. Defaults to 7.")),
		mcp.WithString("branches", mcp.Description("Comma-separated branches to include. Defaults to 'master'.")),
		mcp.WithString("source", mcp.Description("Where to read runs from."), mcp.Enum("events", "api")),
	), h.handleGetGitHubMetrics)

	// --- 2. Tool: get_circleci_metrics ---
	s.AddTool(mcp.NewTool("get_circleci_metrics",
		mcp.WithDescription("Fetch CircleCI Insights workflow and job metrics of a project."),
		mcp.WithString("org", mcp.Description("CircleCI organization (defaults to the configured owner).")),
		mcp.WithString("project", mcp.Description("CircleCI project (defaults to the configured repository).")),
		mcp.WithString("reporting_window", mcp.Description("Insights reporting window. Defaults to 'last-7-days'."),
			mcp.Enum("last-90-days", "last-60-days", "last-30-days", "last-7-days", "last-24-hours")),
		mcp.WithBoolean("all_branches", mcp.Description("Include every branch instead of the default branch only.")),
	), h.handleGetCircleCIMetrics)

	// --- 3. Tool: flatten_records ---
	s.AddTool(mcp.NewTool("flatten_records",
		mcp.WithDescription("Flatten a JSON array of nested objects into a delimited table with dot-joined column names."),
		mcp.WithString("records", mcp.Description("JSON array of objects to flatten."), mcp.Required()),
		mcp.WithString("delimiter", mcp.Description("Cell delimiter. Defaults to ', '.")),
	), h.handleFlattenRecords)

	return s
}

// StartMCPServer starts the cistat MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.CacheManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
