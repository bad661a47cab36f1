package schema

import "time"

// ConclusionSuccess is the only conclusion counted as a successful run.
const ConclusionSuccess = "success"

// ConclusionCancelled marks runs that are excluded from workflow metrics.
const ConclusionCancelled = "cancelled"

// WorkflowRun is a GitHub Actions workflow run as delivered by the REST API
// or the workflow_run webhook payload. Null timestamps decode to the zero time.
type WorkflowRun struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	WorkflowID   int64     `json:"workflow_id"`
	RunNumber    int       `json:"run_number"`
	RunAttempt   int       `json:"run_attempt"`
	HeadBranch   string    `json:"head_branch"`
	Event        string    `json:"event"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	RunStartedAt time.Time `json:"run_started_at"`
}

// Attempt returns the run attempt, treating a missing attempt as the first one.
func (r WorkflowRun) Attempt() int {
	if r.RunAttempt <= 0 {
		return 1
	}
	return r.RunAttempt
}

// Job is a GitHub Actions job belonging to one attempt of a workflow run.
type Job struct {
	ID           int64     `json:"id"`
	RunID        int64     `json:"run_id"`
	RunAttempt   int       `json:"run_attempt"`
	WorkflowName string    `json:"workflow_name"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Conclusion   string    `json:"conclusion"`
	CreatedAt    time.Time `json:"created_at"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	RunnerName   string    `json:"runner_name"`
	Labels       []string  `json:"labels"`
}

// Attempt returns the run attempt of the job, treating a missing attempt as the first one.
func (j Job) Attempt() int {
	if j.RunAttempt <= 0 {
		return 1
	}
	return j.RunAttempt
}
