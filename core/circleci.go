package core

import (
	"context"
	"fmt"

	"github.com/huangsam/cistat/internal/circleci"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
	"golang.org/x/sync/errgroup"
)

// newInsightsClient returns the CircleCI client configured by cfg.
func newInsightsClient(cfg *contract.Config) contract.InsightsClient {
	return circleci.NewClient(cfg.CircleCIToken, circleci.WithBaseURL(cfg.CircleCIURL))
}

// ExecuteCircleCIReport builds the CircleCI workflow and job metrics of one
// project and writes them out. It serves as the main entry point for the
// 'circleci' command.
func ExecuteCircleCIReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	client := newInsightsClient(cfg)
	scope := cfg.Owner + "/" + cfg.Repo
	return runReport(ctx, cfg, mgr, circleciSource, scope, func(ctx context.Context) (*schema.Report, error) {
		return BuildCircleCIReport(ctx, cfg, client)
	})
}

// BuildCircleCIReport lists the workflow metrics of cfg.Owner/cfg.Repo for the
// configured reporting window and the job metrics of every workflow.
func BuildCircleCIReport(ctx context.Context, cfg *contract.Config, client contract.InsightsClient) (*schema.Report, error) {
	org, project := cfg.Owner, cfg.Repo
	window, allBranches := cfg.ReportingWindow, cfg.AllBranches

	workflows, err := client.GetProjectWorkflowMetrics(ctx, org, project, window, allBranches)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow metrics for %s/%s: %w", org, project, err)
	}

	report := &schema.Report{Title: fmt.Sprintf("CircleCI metrics for %s/%s (%s)", org, project, window)}
	workflowSection := report.AddSection(schema.WorkflowSection)
	for _, wf := range workflows {
		workflowSection.Rows = append(workflowSection.Rows, schema.CircleWorkflowRow{
			Org:             org,
			Project:         project,
			WorkflowMetrics: wf,
		})
	}

	perWorkflow := make([][]schema.WorkflowMetrics, len(workflows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(cfg))
	for i, wf := range workflows {
		g.Go(func() error {
			jobs, err := client.GetProjectWorkflowJobMetrics(gctx, org, project, wf.Name, window, allBranches)
			if err != nil {
				return fmt.Errorf("failed to get job metrics for workflow %s: %w", wf.Name, err)
			}
			perWorkflow[i] = jobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	jobSection := report.AddSection(schema.JobSection)
	for i, jobs := range perWorkflow {
		for _, job := range jobs {
			jobSection.Rows = append(jobSection.Rows, schema.CircleJobRow{
				Org:             org,
				Project:         project,
				Workflow:        workflows[i].Name,
				WorkflowMetrics: job,
			})
		}
	}
	return report, nil
}
