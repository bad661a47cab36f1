package core

import (
	"context"
	"errors"
	"testing"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func circleConfig() *contract.Config {
	return &contract.Config{
		Owner:           "acme",
		Repo:            "app",
		Workers:         2,
		ReportingWindow: schema.Last7Days,
	}
}

func metrics(runs, successful int) *schema.InsightsMetrics {
	return &schema.InsightsMetrics{
		TotalRuns:       runs,
		SuccessfulRuns:  successful,
		FailedRuns:      runs - successful,
		SuccessRate:     float64(successful) / float64(runs),
		DurationMetrics: schema.CircleDurationMetrics{Min: 1, Max: 9, Median: 5},
	}
}

func TestBuildCircleCIReport(t *testing.T) {
	client := &contract.MockInsightsClient{}
	client.On("GetProjectWorkflowMetrics", mock.Anything, "acme", "app", schema.Last7Days, false).Return([]schema.WorkflowMetrics{
		{Name: "build", Metrics: metrics(4, 3)},
		{Name: "deploy", Metrics: metrics(2, 2)},
	}, nil)
	client.On("GetProjectWorkflowJobMetrics", mock.Anything, "acme", "app", "build", schema.Last7Days, false).Return([]schema.WorkflowMetrics{
		{Name: "compile", Metrics: metrics(4, 4)},
		{Name: "unit", Metrics: metrics(4, 3)},
	}, nil)
	client.On("GetProjectWorkflowJobMetrics", mock.Anything, "acme", "app", "deploy", schema.Last7Days, false).Return([]schema.WorkflowMetrics{
		{Name: "ship"},
	}, nil)

	report, err := BuildCircleCIReport(context.Background(), circleConfig(), client)
	require.NoError(t, err)
	client.AssertExpectations(t)

	assert.Equal(t, "CircleCI metrics for acme/app (last-7-days)", report.Title)
	require.Len(t, report.Sections, 2)

	workflows := report.Sections[0].Rows
	require.Len(t, workflows, 2)
	build := workflows[0].(schema.CircleWorkflowRow)
	assert.Equal(t, "acme", build.Org)
	assert.Equal(t, "app", build.Project)
	assert.Equal(t, "build", build.GroupKey())
	assert.Equal(t, 3, build.Summary().SuccessfulRuns)

	// Job rows keep the workflow order
	jobs := report.Sections[1].Rows
	require.Len(t, jobs, 3)
	var keys []string
	for _, row := range jobs {
		keys = append(keys, row.(schema.Summarized).GroupKey())
	}
	assert.Equal(t, []string{"build-compile", "build-unit", "deploy-ship"}, keys)
	assert.Equal(t, 0, jobs[2].(schema.CircleJobRow).Summary().TotalRuns)
}

func TestBuildCircleCIReport_Errors(t *testing.T) {
	t.Run("workflows", func(t *testing.T) {
		client := &contract.MockInsightsClient{}
		client.On("GetProjectWorkflowMetrics", mock.Anything, "acme", "app", schema.Last7Days, false).Return(nil, errors.New("401 unauthorized"))

		_, err := BuildCircleCIReport(context.Background(), circleConfig(), client)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "401 unauthorized")
	})

	t.Run("jobs", func(t *testing.T) {
		client := &contract.MockInsightsClient{}
		client.On("GetProjectWorkflowMetrics", mock.Anything, "acme", "app", schema.Last7Days, false).Return([]schema.WorkflowMetrics{{Name: "build"}}, nil)
		client.On("GetProjectWorkflowJobMetrics", mock.Anything, "acme", "app", "build", schema.Last7Days, false).Return(nil, errors.New("boom"))

		_, err := BuildCircleCIReport(context.Background(), circleConfig(), client)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get job metrics for workflow build")
	})
}
