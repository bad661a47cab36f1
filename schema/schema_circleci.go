package schema

import "time"

// Paged is one page of a CircleCI list endpoint.
type Paged[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token"`
}

// TrendsOrMetrics holds the org-level aggregate figures.
type TrendsOrMetrics struct {
	TotalCreditsUsed  float64 `json:"total_credits_used"`
	TotalDurationSecs float64 `json:"total_duration_secs"`
	Throughput        float64 `json:"throughput"`
	TotalRuns         int     `json:"total_runs"`
	SuccessRate       float64 `json:"success_rate"`
}

// TrendsAndMetrics pairs the current figures with their trend over the previous window.
type TrendsAndMetrics struct {
	Metrics TrendsOrMetrics `json:"metrics"`
	Trends  TrendsOrMetrics `json:"trends"`
}

// OrgProjectData is one project entry of the org summary.
type OrgProjectData struct {
	ProjectName string `json:"project_name"`
	TrendsAndMetrics
}

// OrgSummaryData is returned by the org summary endpoint.
type OrgSummaryData struct {
	OrgData        TrendsAndMetrics `json:"org_data"`
	AllProjects    []string         `json:"all_projects"`
	OrgProjectData []OrgProjectData `json:"org_project_data"`
}

// WorkflowTrends is the per-workflow block of the project summary page.
type WorkflowTrends struct {
	WorkflowName string `json:"workflow_name"`
	TrendsAndMetrics
}

// WorkflowBranchTrends is the per-workflow, per-branch block of the project summary page.
type WorkflowBranchTrends struct {
	WorkflowName string `json:"workflow_name"`
	Branch       string `json:"branch"`
	TrendsAndMetrics
}

// ProjectWorkflowsPageData is returned by the project summary page endpoint.
type ProjectWorkflowsPageData struct {
	OrgID                     string                 `json:"org_id"`
	ProjectID                 string                 `json:"project_id"`
	ProjectData               TrendsAndMetrics       `json:"project_data"`
	ProjectWorkflowData       []WorkflowTrends       `json:"project_workflow_data"`
	ProjectWorkflowBranchData []WorkflowBranchTrends `json:"project_workflow_branch_data"`
	AllBranches               []string               `json:"all_branches"`
	AllWorkflows              []string               `json:"all_workflows"`
}

// CircleDurationMetrics is the duration block of CircleCI insights metrics.
type CircleDurationMetrics struct {
	Min               float64 `json:"min"`
	Mean              float64 `json:"mean"`
	Median            float64 `json:"median"`
	P95               float64 `json:"p95"`
	Max               float64 `json:"max"`
	StandardDeviation float64 `json:"standard_deviation"`
	TotalDuration     float64 `json:"total_duration,omitempty"`
}

// InsightsMetrics are the aggregate metrics CircleCI reports for a workflow or job.
type InsightsMetrics struct {
	TotalRuns         int                   `json:"total_runs"`
	SuccessfulRuns    int                   `json:"successful_runs"`
	Mttr              float64               `json:"mttr"`
	TotalCreditsUsed  float64               `json:"total_credits_used"`
	FailedRuns        int                   `json:"failed_runs"`
	MedianCreditsUsed float64               `json:"median_credits_used"`
	SuccessRate       float64               `json:"success_rate"`
	DurationMetrics   CircleDurationMetrics `json:"duration_metrics"`
	TotalRecoveries   int                   `json:"total_recoveries"`
	Throughput        float64               `json:"throughput"`
}

// WorkflowMetrics is one workflow (or job) entry of the insights metrics endpoints.
type WorkflowMetrics struct {
	Name        string           `json:"name"`
	ProjectID   string           `json:"project_id,omitempty"`
	Metrics     *InsightsMetrics `json:"metrics,omitempty"`
	WindowStart time.Time        `json:"window_start"`
	WindowEnd   time.Time        `json:"window_end"`
}

// WorkflowRunItem is one recent run of a CircleCI workflow.
type WorkflowRunItem struct {
	ID          string    `json:"id"`
	Branch      string    `json:"branch"`
	Duration    float64   `json:"duration"`
	CreatedAt   time.Time `json:"created_at"`
	StoppedAt   time.Time `json:"stopped_at"`
	CreditsUsed float64   `json:"credits_used"`
	Status      string    `json:"status"`
	IsApproval  bool      `json:"is_approval"`
}

// WorkflowJob is one job of a CircleCI workflow run.
type WorkflowJob struct {
	Dependencies []string  `json:"dependencies"`
	JobNumber    int       `json:"job_number"`
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	Name         string    `json:"name"`
	ProjectSlug  string    `json:"project_slug"`
	Status       string    `json:"status"`
	Type         string    `json:"type"`
	StoppedAt    time.Time `json:"stopped_at"`
}

// Executor describes where a CircleCI job ran.
type Executor struct {
	ResourceClass string `json:"resource_class"`
	Type          string `json:"type"`
}

// JobDetails is the detailed view of a single CircleCI job.
type JobDetails struct {
	WebURL         string         `json:"web_url"`
	Project        map[string]any `json:"project"`
	ParallelRuns   []any          `json:"parallel_runs"`
	StartedAt      time.Time      `json:"started_at"`
	LatestWorkflow map[string]any `json:"latest_workflow"`
	Name           string         `json:"name"`
	Executor       Executor       `json:"executor"`
	Parallelism    int            `json:"parallelism"`
	Status         string         `json:"status"`
	Number         int            `json:"number"`
	Pipeline       map[string]any `json:"pipeline"`
	Duration       float64        `json:"duration"`
	CreatedAt      time.Time      `json:"created_at"`
	Messages       []any          `json:"messages"`
	Contexts       []any          `json:"contexts"`
	Organization   map[string]any `json:"organization"`
	QueuedAt       time.Time      `json:"queued_at"`
	StoppedAt      time.Time      `json:"stopped_at"`
}

// VCSInfo is the version control block of a project.
type VCSInfo struct {
	VCSURL        string `json:"vcs_url"`
	Provider      string `json:"provider"`
	DefaultBranch string `json:"default_branch"`
}

// ProjectBySlug is returned by the project endpoint.
type ProjectBySlug struct {
	Slug             string  `json:"slug"`
	Name             string  `json:"name"`
	ID               string  `json:"id"`
	OrganizationName string  `json:"organization_name"`
	OrganizationSlug string  `json:"organization_slug"`
	OrganizationID   string  `json:"organization_id"`
	VCSInfo          VCSInfo `json:"vcs_info"`
}

// UsagePercentages are the CPU and RAM utilization figures of a job.
type UsagePercentages struct {
	AvgPercentCPUUsage float64 `json:"avg_percent_cpu_usage"`
	MaxPercentCPUUsage float64 `json:"max_percent_cpu_usage"`
	AvgPercentRAMUsage float64 `json:"avg_percent_ram_usage"`
	MaxPercentRAMUsage float64 `json:"max_percent_ram_usage"`
}

// UsageTrends are the change of the utilization figures over the previous window.
type UsageTrends struct {
	AvgCPUUsage float64 `json:"avg_cpu_usage"`
	MaxCPUUsage float64 `json:"max_cpu_usage"`
	AvgRAMUsage float64 `json:"avg_ram_usage"`
	MaxRAMUsage float64 `json:"max_ram_usage"`
}

// JobUsage is the aggregate utilization of one job.
type JobUsage struct {
	JobName string           `json:"job_name"`
	Usage   UsagePercentages `json:"usage"`
	Trends  UsageTrends      `json:"trends"`
}

// UsageSample is one point of a job's utilization time series.
type UsageSample struct {
	UsagePercentages
	TS       string `json:"ts"`
	Size     string `json:"size"`
	Executor string `json:"executor"`
}

// JobTimeSeries is the utilization time series of one job.
type JobTimeSeries struct {
	JobName string        `json:"job_name"`
	Usage   []UsageSample `json:"usage"`
}

// ResourceUsage is the contents of a downloaded resource usage export.
type ResourceUsage struct {
	JobUsages           []JobUsage      `json:"job_usages"`
	JobTimeSeriesUsages []JobTimeSeries `json:"job_time_series_usages"`
}

// UsageExecutor is a distinct (size, executor) pair used by a job.
type UsageExecutor struct {
	Size     string `json:"size"`
	Executor string `json:"executor"`
}

// ResourceUsageRow is one row of the resource usage report.
type ResourceUsageRow struct {
	Org       string           `json:"org"`
	Project   string           `json:"project"`
	Workflow  string           `json:"workflow"`
	JobName   string           `json:"job_name"`
	Usage     UsagePercentages `json:"usage"`
	Executors []UsageExecutor  `json:"executors"`
}

// CircleWorkflowRow is one row of the CircleCI workflow section.
type CircleWorkflowRow struct {
	Org     string `json:"org"`
	Project string `json:"project"`
	WorkflowMetrics
}

// GroupKey implements Summarized.
func (r CircleWorkflowRow) GroupKey() string { return r.Name }

// CircleJobRow is one row of the CircleCI job section.
type CircleJobRow struct {
	Org      string `json:"org"`
	Project  string `json:"project"`
	Workflow string `json:"workflow"`
	WorkflowMetrics
}

// GroupKey implements Summarized.
func (r CircleJobRow) GroupKey() string { return r.Workflow + "-" + r.Name }

// Summary converts the CircleCI metrics to a StatSummary. Missing metrics
// yield a summary with only the window bounds set.
func (m WorkflowMetrics) Summary() StatSummary {
	summary := StatSummary{WindowStart: m.WindowStart, WindowEnd: m.WindowEnd}
	if m.Metrics == nil {
		return summary
	}
	d := m.Metrics.DurationMetrics
	summary.TotalRuns = m.Metrics.TotalRuns
	summary.SuccessfulRuns = m.Metrics.SuccessfulRuns
	summary.FailedRuns = m.Metrics.FailedRuns
	summary.SuccessRate = m.Metrics.SuccessRate
	summary.Throughput = m.Metrics.Throughput
	summary.DurationMetrics = DurationMetrics{
		Min:               d.Min,
		Mean:              d.Mean,
		Median:            d.Median,
		P95:               d.P95,
		Max:               d.Max,
		StandardDeviation: d.StandardDeviation,
		TotalDuration:     d.TotalDuration,
	}
	return summary
}

// InsightsWorkflowRow is one workflow row of the insights crawl.
type InsightsWorkflowRow struct {
	Org             string           `json:"org"`
	Project         string           `json:"project"`
	Workflow        string           `json:"workflow"`
	Metrics         *InsightsMetrics `json:"metrics"`
	ResourceUsage   string           `json:"resourceUsage"`
	AllBranches     bool             `json:"allBranches"`
	ReportingWindow ReportingWindow  `json:"reportingWindow"`
}

// InsightsJobRow is one job row of the insights crawl.
type InsightsJobRow struct {
	Org             string           `json:"org"`
	Project         string           `json:"project"`
	Workflow        string           `json:"workflow"`
	Job             string           `json:"job"`
	Executor        *Executor        `json:"executor,omitempty"`
	Metrics         *InsightsMetrics `json:"metrics,omitempty"`
	AllBranches     bool             `json:"allBranches"`
	ReportingWindow ReportingWindow  `json:"reportingWindow"`
}
