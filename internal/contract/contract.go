// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/cistat/schema"
)

// EventSource defines the operations needed to read GitHub Actions telemetry.
// This allows the report logic to be tested without a database or network.
type EventSource interface {
	// ListWorkflowRuns returns the workflow runs of a repository created at or after the given time.
	ListWorkflowRuns(ctx context.Context, owner, repo string, created time.Time) ([]schema.WorkflowRun, error)

	// ListJobs returns the jobs of one attempt of a workflow run. The created time
	// is the same lower bound used to list the runs.
	ListJobs(ctx context.Context, owner, repo string, created time.Time, runID int64, attempt int) ([]schema.Job, error)

	// Close releases the underlying resources.
	Close() error
}

// InsightsClient defines the CircleCI Insights operations used by the reports.
type InsightsClient interface {
	// --- Org / Project ---

	GetOrgSummaryData(ctx context.Context, org string, window schema.ReportingWindow) (schema.OrgSummaryData, error)
	GetProjectWorkflowsPageData(ctx context.Context, org, project string, window schema.ReportingWindow) (schema.ProjectWorkflowsPageData, error)
	GetProjectBySlug(ctx context.Context, org, project string) (schema.ProjectBySlug, error)

	// --- Workflows ---

	GetProjectWorkflowMetrics(ctx context.Context, org, project string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowMetrics, error)
	GetProjectWorkflowRuns(ctx context.Context, org, project, workflow string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowRunItem, error)
	GetProjectWorkflowJobMetrics(ctx context.Context, org, project, workflow string, window schema.ReportingWindow, allBranches bool) ([]schema.WorkflowMetrics, error)

	// --- Jobs ---

	ListWorkflowJobs(ctx context.Context, workflowID string) ([]schema.WorkflowJob, error)
	GetJobDetails(ctx context.Context, org, project string, jobNumber int) (schema.JobDetails, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetEventStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking report runs and their group summaries.
type HistoryStore interface {
	// BeginReport creates a new report run and returns its unique ID
	BeginReport(startTime time.Time, source, scope string, configParams map[string]any) (string, error)

	// EndReport updates the report run with completion data
	EndReport(reportID string, endTime time.Time, totalGroups int) error

	// RecordGroupSummary stores the computed summary of one group
	RecordGroupSummary(reportID, section, groupKey string, summary schema.StatSummary) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllReportRuns returns every recorded report run
	GetAllReportRuns() ([]schema.ReportRunRecord, error)

	// GetAllGroupSummaries returns every recorded group summary
	GetAllGroupSummaries() ([]schema.GroupSummaryRecord, error)

	// Close closes the underlying connection
	Close() error
}
