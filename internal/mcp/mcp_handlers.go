package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/huangsam/cistat/core"
	"github.com/huangsam/cistat/core/flatten"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.CacheManager
	newEventSource func(ctx context.Context, cfg *contract.Config, cache contract.CacheStore) (contract.EventSource, error)
	newInsights    func(cfg *contract.Config) contract.InsightsClient
}

func (h *toolHandler) handleGetGitHubMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if o := request.GetString("owner", ""); o != "" {
		cfg.Owner = o
	}
	if r := request.GetString("repo", ""); r != "" {
		cfg.Repo = r
	}
	if b := contract.ParseList(request.GetString("branches", "")); len(b) > 0 {
		cfg.Branches = b
	}
	if s := request.GetString("source", ""); s != "" {
		cfg.Source = schema.SourceKind(strings.ToLower(s))
	}
	if d := request.GetInt("days", 0); d != 0 {
		if d < 0 || d > contract.MaxDays {
			return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: days must be between 1 and %d", contract.MaxDays)), nil
		}
		cfg.SetDays(d)
	}
	if err := validateAll(cfg, contract.ValidateRepoScope, contract.ValidateGitHubSource); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	var cache contract.CacheStore
	if h.mgr != nil {
		cache = h.mgr.GetEventStore()
	}
	source, err := h.newEventSource(ctx, cfg, cache)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot open source: %v", err)), nil
	}
	defer func() { _ = source.Close() }()

	report, err := core.BuildGitHubReport(ctx, cfg, source)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleGetCircleCIMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if o := request.GetString("org", ""); o != "" {
		cfg.Owner = o
	}
	if p := request.GetString("project", ""); p != "" {
		cfg.Repo = p
	}
	if w := request.GetString("reporting_window", ""); w != "" {
		window := schema.ReportingWindow(strings.ToLower(w))
		if _, ok := schema.ValidReportingWindows[window]; !ok {
			return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: unknown reporting window '%s'", w)), nil
		}
		cfg.ReportingWindow = window
	}
	cfg.AllBranches = request.GetBool("all_branches", cfg.AllBranches)
	if err := validateAll(cfg, contract.ValidateRepoScope, contract.ValidateCircleCIToken); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}

	report, err := core.BuildCircleCIReport(ctx, cfg, h.newInsights(cfg))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("report failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (h *toolHandler) handleFlattenRecords(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records := request.GetString("records", "")
	if strings.TrimSpace(records) == "" {
		return mcp.NewToolResultError("records is required"), nil
	}
	delim := request.GetString("delimiter", flatten.DefaultDelimiter)

	value, err := flatten.Parse([]byte(records))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot parse records: %v", err)), nil
	}
	objects, err := flatten.Records(value)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot flatten records: %v", err)), nil
	}

	var sb strings.Builder
	if err := flatten.Flatten(objects).Render(&sb, delim); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot render table: %v", err)), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// validateAll runs the validators in order and returns the first error.
func validateAll(cfg *contract.Config, validators ...func(*contract.Config) error) error {
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return err
		}
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
