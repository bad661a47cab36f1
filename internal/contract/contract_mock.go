package contract

import (
	"context"
	"time"

	"github.com/huangsam/cistat/schema"
	"github.com/stretchr/testify/mock"
)

// MockEventSource is a mock implementation of EventSource for testing.
type MockEventSource struct {
	mock.Mock
}

var _ EventSource = &MockEventSource{} // Compile-time check

// ListWorkflowRuns implements the EventSource interface.
func (m *MockEventSource) ListWorkflowRuns(ctx context.Context, owner, repo string, created time.Time) ([]schema.WorkflowRun, error) {
	ret := m.Called(ctx, owner, repo, created)
	runs, _ := ret.Get(0).([]schema.WorkflowRun)
	return runs, ret.Error(1)
}

// ListJobs implements the EventSource interface.
func (m *MockEventSource) ListJobs(ctx context.Context, owner, repo string, created time.Time, runID int64, attempt int) ([]schema.Job, error) {
	ret := m.Called(ctx, owner, repo, created, runID, attempt)
	jobs, _ := ret.Get(0).([]schema.Job)
	return jobs, ret.Error(1)
}

// Close implements the EventSource interface.
func (m *MockEventSource) Close() error {
	ret := m.Called()
	return ret.Error(0)
}

// MockInsightsClient is a mock implementation of InsightsClient for testing.
type MockInsightsClient struct {
	mock.Mock
}

var _ InsightsClient = &MockInsightsClient{} // Compile-time check

// GetOrgSummaryData implements the InsightsClient interface.
func (m *MockInsightsClient) GetOrgSummaryData(ctx context.Context, org string, window schema.ReportingWindow) (schema.OrgSummaryData, error) {
	ret := m.Called(ctx, org, window)
	data, _ := ret.Get(0).(schema.OrgSummaryData)
	return data, ret.Error(1)
}

// GetProjectWorkflowsPageData implements the InsightsClient interface.
func (m *MockInsightsClient) GetProjectWorkflowsPageData(ctx context.Context, org, project string, window schema.ReportingWindow) (schema.ProjectWorkflowsPageData, error) {
	ret := m.Called(ctx, org, project, window)
	data, _ := ret.Get(0).(schema.ProjectWorkflowsPageData)
	return data, ret.Error(1)
}

// GetProjectBySlug implements the InsightsClient interface.
func (m *MockInsightsClient) GetProjectBySlug(ctx context.Context, org, project string) (schema.ProjectBySlug, error) {
	ret := m.Called(ctx, org, project)
	data, _ := ret.Get(0).(schema.ProjectBySlug)
	return data, ret.Error(1)
}

// GetProjectWorkflowMetrics implements the InsightsClient interface.
func (m *MockInsightsClient) GetProjectWorkflowMetrics(ctx context.Context, org, project string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowMetrics, error) {
	ret := m.Called(ctx, org, project, window, allBranches)
	data, _ := ret.Get(0).([]schema.WorkflowMetrics)
	return data, ret.Error(1)
}

// GetProjectWorkflowRuns implements the InsightsClient interface.
func (m *MockInsightsClient) GetProjectWorkflowRuns(ctx context.Context, org, project, workflow string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowRunItem, error) {
	ret := m.Called(ctx, org, project, workflow, window, allBranches)
	data, _ := ret.Get(0).([]schema.WorkflowRunItem)
	return data, ret.Error(1)
}

// GetProjectWorkflowJobMetrics implements the InsightsClient interface.
func (m *MockInsightsClient) GetProjectWorkflowJobMetrics(ctx context.Context, org, project, workflow string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowMetrics, error) {
	ret := m.Called(ctx, org, project, workflow, window, allBranches)
	data, _ := ret.Get(0).([]schema.WorkflowMetrics)
	return data, ret.Error(1)
}

// ListWorkflowJobs implements the InsightsClient interface.
func (m *MockInsightsClient) ListWorkflowJobs(ctx context.Context, workflowID string) ([]schema.WorkflowJob, error) {
	ret := m.Called(ctx, workflowID)
	data, _ := ret.Get(0).([]schema.WorkflowJob)
	return data, ret.Error(1)
}

// GetJobDetails implements the InsightsClient interface.
func (m *MockInsightsClient) GetJobDetails(ctx context.Context, org, project string, jobNumber int) (schema.JobDetails, error) {
	ret := m.Called(ctx, org, project, jobNumber)
	data, _ := ret.Get(0).(schema.JobDetails)
	return data, ret.Error(1)
}
