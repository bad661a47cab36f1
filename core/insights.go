package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/cistat/internal/circleci"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
)

// ExecuteInsightsReport crawls the CircleCI Insights of every project of the
// configured orgs and writes the result. It serves as the main entry point for
// the 'insights' command.
func ExecuteInsightsReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	client := newInsightsClient(cfg)
	scope := strings.Join(cfg.Orgs, ",")
	return runReport(ctx, cfg, mgr, insightsSource, scope, func(ctx context.Context) (*schema.Report, error) {
		return BuildInsightsReport(ctx, cfg, client)
	})
}

// insightsScope is one (project, window, branch filter) combination of the crawl.
type insightsScope struct {
	org         string
	project     string
	details     schema.ProjectBySlug
	window      schema.ReportingWindow
	allBranches bool
}

// insightsCrawl collects the rows of the crawl.
type insightsCrawl struct {
	client    contract.InsightsClient
	workflows []any
	jobs      []any
}

// BuildInsightsReport walks every project of cfg.Orgs over the 30, 60 and 90
// day windows, for all branches and then the default branch only.
func BuildInsightsReport(ctx context.Context, cfg *contract.Config, client contract.InsightsClient) (*schema.Report, error) {
	crawl := &insightsCrawl{client: client}
	for _, org := range cfg.Orgs {
		contract.LogInfo("# %s", org)
		summary, err := client.GetOrgSummaryData(ctx, org, schema.Last90Days)
		if err != nil {
			return nil, fmt.Errorf("failed to get org summary for %s: %w", org, err)
		}
		for _, project := range summary.AllProjects {
			contract.LogInfo("## %s", project)
			details, err := client.GetProjectBySlug(ctx, org, project)
			if err != nil {
				return nil, fmt.Errorf("failed to get project %s/%s: %w", org, project, err)
			}
			for _, window := range schema.InsightsWindows {
				contract.LogInfo("### %s", window)
				for _, allBranches := range []bool{true, false} {
					contract.LogInfo("#### %s", branchLabel(allBranches))
					scope := insightsScope{org: org, project: project, details: details, window: window, allBranches: allBranches}
					if err := crawl.visitScope(ctx, scope); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	report := &schema.Report{Title: "CircleCI insights for " + strings.Join(cfg.Orgs, ", ")}
	report.AddSection(schema.WorkflowSection).Rows = append([]any{}, crawl.workflows...)
	report.AddSection(schema.JobSection).Rows = append([]any{}, crawl.jobs...)
	return report, nil
}

func branchLabel(allBranches bool) string {
	if allBranches {
		return "All Branches"
	}
	return "Default Branch"
}

// visitScope collects the workflow and job rows of one scope. Workflows
// without metrics get no workflow row but their jobs are still visited.
func (c *insightsCrawl) visitScope(ctx context.Context, s insightsScope) error {
	workflows, err := c.client.GetProjectWorkflowMetrics(ctx, s.org, s.project, s.window, s.allBranches)
	if err != nil {
		return fmt.Errorf("failed to get workflow metrics for %s/%s: %w", s.org, s.project, err)
	}
	for _, wf := range workflows {
		contract.LogInfo("##### %s", wf.Name)
		if wf.Metrics != nil {
			c.workflows = append(c.workflows, schema.InsightsWorkflowRow{
				Org:             s.org,
				Project:         s.project,
				Workflow:        wf.Name,
				Metrics:         wf.Metrics,
				ResourceUsage:   circleci.ResourceUsageURL(s.details.OrganizationID, s.details.ID, wf.Name, s.allBranches, s.window),
				AllBranches:     s.allBranches,
				ReportingWindow: s.window,
			})
		}
		if err := c.visitJobs(ctx, s, wf.Name); err != nil {
			return err
		}
	}
	return nil
}

// visitJobs collects the job rows of one workflow. The executor of a job is
// taken from the first successful run of the workflow.
func (c *insightsCrawl) visitJobs(ctx context.Context, s insightsScope, workflow string) error {
	runs, err := c.client.GetProjectWorkflowRuns(ctx, s.org, s.project, workflow, s.window, s.allBranches)
	if err != nil {
		return fmt.Errorf("failed to get runs of workflow %s: %w", workflow, err)
	}
	jobMetrics, err := c.client.GetProjectWorkflowJobMetrics(ctx, s.org, s.project, workflow, s.window, s.allBranches)
	if err != nil {
		return fmt.Errorf("failed to get job metrics of workflow %s: %w", workflow, err)
	}

	var workflowJobs []schema.WorkflowJob
	if i := slices.IndexFunc(runs, func(r schema.WorkflowRunItem) bool { return r.Status == schema.ConclusionSuccess }); i >= 0 {
		workflowJobs, err = c.client.ListWorkflowJobs(ctx, runs[i].ID)
		if err != nil {
			return fmt.Errorf("failed to list jobs of workflow run %s: %w", runs[i].ID, err)
		}
	}

	for _, job := range jobMetrics {
		contract.LogInfo("###### %s", job.Name)
		executor, err := c.executorOf(ctx, s, workflowJobs, job.Name)
		if err != nil {
			return err
		}
		c.jobs = append(c.jobs, schema.InsightsJobRow{
			Org:             s.org,
			Project:         s.project,
			Workflow:        workflow,
			Job:             job.Name,
			Executor:        executor,
			Metrics:         job.Metrics,
			AllBranches:     s.allBranches,
			ReportingWindow: s.window,
		})
	}
	return nil
}

// executorOf returns the executor of the last workflow job with the given
// name, or nil when the run has no such job.
func (c *insightsCrawl) executorOf(ctx context.Context, s insightsScope, jobs []schema.WorkflowJob, name string) (*schema.Executor, error) {
	for i := len(jobs) - 1; i >= 0; i-- {
		if jobs[i].Name != name {
			continue
		}
		details, err := c.client.GetJobDetails(ctx, s.org, s.project, jobs[i].JobNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to get details of job %d: %w", jobs[i].JobNumber, err)
		}
		return &details.Executor, nil
	}
	return nil, nil
}
