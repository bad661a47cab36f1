package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/iocache"
	"github.com/huangsam/cistat/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *contract.Config {
	return &contract.Config{
		Owner:           "acme",
		Repo:            "app",
		Branches:        []string{"master"},
		Source:          schema.APISource,
		StartTime:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Workers:         1,
		CircleCIToken:   "token",
		ReportingWindow: schema.Last7Days,
	}
}

func call(t *testing.T, h *toolHandler, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := newServer(h).GetTool(name)
	require.NotNil(t, tool)
	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func TestHandleGetGitHubMetrics(t *testing.T) {
	src := &contract.MockEventSource{}
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	src.On("ListWorkflowRuns", mock.Anything, "octo", "app", created).Return([]schema.WorkflowRun{
		{ID: 1, WorkflowID: 5, Name: "CI", HeadBranch: "main", Conclusion: "success", CreatedAt: created, UpdatedAt: created.Add(time.Minute)},
	}, nil)
	src.On("ListJobs", mock.Anything, "octo", "app", created, int64(1), 1).Return([]schema.Job{}, nil)
	src.On("Close").Return(nil)

	cache := &iocache.MockCacheStore{}
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetEventStore").Return(cache)

	var gotCache contract.CacheStore
	h := &toolHandler{
		baseCfg: testConfig(),
		mgr:     mgr,
		newEventSource: func(_ context.Context, cfg *contract.Config, c contract.CacheStore) (contract.EventSource, error) {
			gotCache = c
			assert.Equal(t, []string{"main"}, cfg.Branches)
			return src, nil
		},
	}

	res := call(t, h, "get_github_metrics", map[string]any{"owner": "octo", "branches": "main"})
	require.False(t, res.IsError, res.Content[0].(mcp.TextContent).Text)

	var report schema.Report
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &report))
	assert.Equal(t, "GitHub Actions metrics for octo/app", report.Title)
	require.Len(t, report.Sections, 2)
	assert.Len(t, report.Sections[0].Rows, 1)
	assert.Same(t, cache, gotCache)
	src.AssertExpectations(t)
}

func TestHandleGetGitHubMetrics_SourceError(t *testing.T) {
	h := &toolHandler{
		baseCfg: testConfig(),
		newEventSource: func(context.Context, *contract.Config, contract.CacheStore) (contract.EventSource, error) {
			return nil, errors.New("no route to host")
		},
	}
	res := call(t, h, "get_github_metrics", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "no route to host")
}

func TestHandleGetCircleCIMetrics(t *testing.T) {
	client := &contract.MockInsightsClient{}
	client.On("GetProjectWorkflowMetrics", mock.Anything, "acme", "web", schema.Last30Days, true).Return([]schema.WorkflowMetrics{{Name: "build"}}, nil)
	client.On("GetProjectWorkflowJobMetrics", mock.Anything, "acme", "web", "build", schema.Last30Days, true).Return([]schema.WorkflowMetrics{{Name: "compile"}}, nil)

	h := &toolHandler{
		baseCfg:     testConfig(),
		newInsights: func(*contract.Config) contract.InsightsClient { return client },
	}
	res := call(t, h, "get_circleci_metrics", map[string]any{
		"project":          "web",
		"reporting_window": "last-30-days",
		"all_branches":     true,
	})
	require.False(t, res.IsError, res.Content[0].(mcp.TextContent).Text)
	text := res.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, `"name": "build"`)
	assert.Contains(t, text, `"name": "compile"`)
	client.AssertExpectations(t)
}

func TestHandleGetCircleCIMetrics_UpstreamError(t *testing.T) {
	client := &contract.MockInsightsClient{}
	client.On("GetProjectWorkflowMetrics", mock.Anything, "acme", "app", schema.Last7Days, false).Return(nil, errors.New("403"))

	h := &toolHandler{
		baseCfg:     testConfig(),
		newInsights: func(*contract.Config) contract.InsightsClient { return client },
	}
	res := call(t, h, "get_circleci_metrics", nil)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Content[0].(mcp.TextContent).Text, "report failed")
}
