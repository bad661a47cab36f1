package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/cistat/core/algo"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/github"
	"github.com/huangsam/cistat/internal/outwriter"
	"github.com/huangsam/cistat/schema"
	"golang.org/x/sync/errgroup"
)

// Fallback names for groups whose upstream name is missing.
const (
	unknownWorkflow   = "unknown"
	undefinedWorkflow = "undefined"
)

// ExecuteGitHubReport builds the GitHub Actions metrics of one repository and
// writes them out. It serves as the main entry point for the 'github' command.
func ExecuteGitHubReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	var cache contract.CacheStore
	if mgr != nil {
		cache = mgr.GetEventStore()
	}
	source, err := github.NewEventSource(ctx, cfg, cache)
	if err != nil {
		return err
	}
	defer func() { _ = source.Close() }()

	scope := cfg.Owner + "/" + cfg.Repo
	return runReport(ctx, cfg, mgr, githubSource, scope, func(ctx context.Context) (*schema.Report, error) {
		return BuildGitHubReport(ctx, cfg, source)
	})
}

// BuildGitHubReport summarizes the workflow runs and jobs of cfg.Owner/cfg.Repo
// created since the configured start time.
func BuildGitHubReport(ctx context.Context, cfg *contract.Config, source contract.EventSource) (*schema.Report, error) {
	created := cfg.GetQueryStartTime()
	runs, err := source.ListWorkflowRuns(ctx, cfg.Owner, cfg.Repo, created)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow runs for %s/%s: %w", cfg.Owner, cfg.Repo, err)
	}

	report := &schema.Report{Title: fmt.Sprintf("GitHub Actions metrics for %s/%s", cfg.Owner, cfg.Repo)}
	runs = selectRuns(algo.LatestAttempt(validRuns(report, runs)), cfg.Branches)

	workflows := algo.GroupBy(runs, func(r schema.WorkflowRun) int64 { return r.WorkflowID })
	slices.SortStableFunc(workflows, func(a, b algo.Group[int64, schema.WorkflowRun]) int {
		return cmp.Compare(a.Key, b.Key)
	})

	workflowSection := report.AddSection(schema.WorkflowSection)
	var kept []schema.WorkflowRun
	for _, group := range workflows {
		name := cmp.Or(group.Records[0].Name, unknownWorkflow)
		summary, ok := summarizeGroup(report, "workflow "+name, runSamples(group.Records))
		if ok {
			workflowSection.Rows = append(workflowSection.Rows, schema.WorkflowRunMetrics{
				Owner:       cfg.Owner,
				Repo:        cfg.Repo,
				Workflow:    name,
				StatSummary: summary,
			})
		}
		kept = append(kept, group.Records...)
	}

	jobs, err := fetchJobs(ctx, cfg, source, created, kept)
	if err != nil {
		return nil, err
	}
	jobs = algo.LatestJobs(selectJobs(report, jobs))

	type jobGroup struct{ workflow, name string }
	jobSection := report.AddSection(schema.JobSection)
	for _, group := range algo.GroupBy(jobs, func(j schema.Job) jobGroup {
		return jobGroup{cmp.Or(j.WorkflowName, undefinedWorkflow), j.Name}
	}) {
		label := fmt.Sprintf("job %s-%s", group.Key.workflow, group.Key.name)
		summary, ok := summarizeGroup(report, label, jobSamples(group.Records))
		if !ok {
			continue
		}
		jobSection.Rows = append(jobSection.Rows, schema.JobMetrics{
			Owner:       cfg.Owner,
			Repo:        cfg.Repo,
			Workflow:    group.Key.workflow,
			Job:         group.Key.name,
			StatSummary: summary,
		})
	}
	return report, nil
}

// validRuns drops malformed runs.
func validRuns(report *schema.Report, runs []schema.WorkflowRun) []schema.WorkflowRun {
	valid := make([]schema.WorkflowRun, 0, len(runs))
	for _, run := range runs {
		if err := checkRun(run); err != nil {
			skipRecord(report, err)
			continue
		}
		valid = append(valid, run)
	}
	return valid
}

// selectRuns drops cancelled runs and runs of other branches. Runs must
// already be deduplicated.
// An empty head branch counts as the default branch.
func selectRuns(runs []schema.WorkflowRun, branches []string) []schema.WorkflowRun {
	selected := make([]schema.WorkflowRun, 0, len(runs))
	for _, run := range runs {
		if run.Conclusion == schema.ConclusionCancelled {
			continue
		}
		if !slices.Contains(branches, cmp.Or(run.HeadBranch, contract.DefaultBranch)) {
			continue
		}
		selected = append(selected, run)
	}
	return selected
}

// selectJobs drops malformed jobs.
func selectJobs(report *schema.Report, jobs []schema.Job) []schema.Job {
	selected := make([]schema.Job, 0, len(jobs))
	for _, job := range jobs {
		if err := checkJob(job); err != nil {
			skipRecord(report, err)
			continue
		}
		selected = append(selected, job)
	}
	return selected
}

func checkRun(run schema.WorkflowRun) error {
	switch {
	case run.ID == 0:
		return &contract.MalformedRecordError{Kind: "run", Reason: "missing id"}
	case run.CreatedAt.IsZero():
		return &contract.MalformedRecordError{Kind: "run", ID: run.ID, Reason: "missing created_at"}
	case run.UpdatedAt.IsZero():
		return &contract.MalformedRecordError{Kind: "run", ID: run.ID, Reason: "missing updated_at"}
	}
	return nil
}

func checkJob(job schema.Job) error {
	switch {
	case job.ID == 0:
		return &contract.MalformedRecordError{Kind: "job", Reason: "missing id"}
	case job.StartedAt.IsZero():
		return &contract.MalformedRecordError{Kind: "job", ID: job.ID, Reason: "missing started_at"}
	}
	return nil
}

// fetchJobs lists the jobs of every run attempt with at most cfg.Workers
// requests in flight. Jobs are returned in run order.
func fetchJobs(ctx context.Context, cfg *contract.Config, source contract.EventSource, created time.Time, runs []schema.WorkflowRun) ([]schema.Job, error) {
	perRun := make([][]schema.Job, len(runs))
	bar := outwriter.NewProgressBar(len(runs), "Fetching jobs")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(cfg))
	for i, run := range runs {
		g.Go(func() error {
			jobs, err := source.ListJobs(gctx, cfg.Owner, cfg.Repo, created, run.ID, run.Attempt())
			if err != nil {
				return fmt.Errorf("failed to list jobs of run %d attempt %d: %w", run.ID, run.Attempt(), err)
			}
			perRun[i] = jobs
			_ = bar.Add(1)
			return nil
		})
	}
	err := g.Wait()
	_ = bar.Finish()
	if err != nil {
		return nil, err
	}
	return slices.Concat(perRun...), nil
}

// runSamples converts runs to samples. A run lasts from creation to its last update.
func runSamples(runs []schema.WorkflowRun) []schema.DurationSample {
	samples := make([]schema.DurationSample, len(runs))
	for i, run := range runs {
		samples[i] = schema.DurationSample{
			Duration:   run.UpdatedAt.Sub(run.CreatedAt).Seconds(),
			Succeeded:  run.Conclusion == schema.ConclusionSuccess,
			OccurredAt: run.CreatedAt,
		}
	}
	return samples
}

// jobSamples converts jobs to samples. A job that has not completed lasts zero seconds.
func jobSamples(jobs []schema.Job) []schema.DurationSample {
	samples := make([]schema.DurationSample, len(jobs))
	for i, job := range jobs {
		end := job.CompletedAt
		if end.IsZero() {
			end = job.StartedAt
		}
		occurred := job.CreatedAt
		if occurred.IsZero() {
			occurred = job.StartedAt
		}
		samples[i] = schema.DurationSample{
			Duration:   end.Sub(job.StartedAt).Seconds(),
			Succeeded:  job.Conclusion == schema.ConclusionSuccess,
			OccurredAt: occurred,
		}
	}
	return samples
}
