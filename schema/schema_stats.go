package schema

import "time"

// DurationSample is one timed outcome fed to the aggregator.
type DurationSample struct {
	Duration   float64   // seconds, never negative
	Succeeded  bool      // conclusion was success
	OccurredAt time.Time // used for the window bounds
}

// DurationMetrics summarizes the duration distribution of a group, in seconds.
type DurationMetrics struct {
	Min               float64 `json:"min"`
	Mean              float64 `json:"mean"`
	Median            float64 `json:"median"`
	P95               float64 `json:"p95"`
	Max               float64 `json:"max"`
	StandardDeviation float64 `json:"standard_deviation"`
	TotalDuration     float64 `json:"total_duration"`
}

// StatSummary is the fixed summary computed for one group of samples.
type StatSummary struct {
	TotalRuns       int             `json:"total_runs"`
	SuccessfulRuns  int             `json:"successful_runs"`
	FailedRuns      int             `json:"failed_runs"`
	SuccessRate     float64         `json:"success_rate"`
	DurationMetrics DurationMetrics `json:"duration_metrics"`
	WindowStart     time.Time       `json:"window_start"`
	WindowEnd       time.Time       `json:"window_end"`
	Throughput      float64         `json:"throughput"`
}

// WorkflowRunMetrics is one row of the GitHub Actions workflow section.
type WorkflowRunMetrics struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Workflow string `json:"workflow"`
	StatSummary
}

// GroupKey implements Summarized.
func (m WorkflowRunMetrics) GroupKey() string { return m.Workflow }

// Summary implements Summarized.
func (m WorkflowRunMetrics) Summary() StatSummary { return m.StatSummary }

// JobMetrics is one row of the GitHub Actions job section.
type JobMetrics struct {
	Owner    string `json:"owner"`
	Repo     string `json:"repo"`
	Workflow string `json:"workflow"`
	Job      string `json:"job"`
	StatSummary
}

// GroupKey implements Summarized.
func (m JobMetrics) GroupKey() string { return m.Workflow + "-" + m.Job }

// Summary implements Summarized.
func (m JobMetrics) Summary() StatSummary { return m.StatSummary }
