package cmd

import (
	"github.com/huangsam/cistat/core"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/spf13/cobra"
)

// githubCmd summarizes GitHub Actions workflow runs and jobs.
var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Summarize GitHub Actions workflow runs and jobs",
	Long: `Summarize the GitHub Actions workflow runs and jobs of one repository.

Runs are read from the webhook events store (--source events) or from the
GitHub REST API (--source api). Re-run attempts collapse to the latest attempt
and cancelled runs are ignored.

Examples:
  # Last 7 days of the master branch from the events store
  PGHOST=db PGUSER=ci PGPASSWORD=... cistat github --owner acme --repo app

  # Last 30 days of two branches straight from the API
  GITHUB_TOKEN=... cistat github --owner acme --repo app --source api --days 30 --branches main,release`,
	Args:    cobra.NoArgs,
	PreRunE: setupWith(contract.ValidateRepoScope, contract.ValidateGitHubSource),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteGitHubReport(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build GitHub report", err)
		}
	},
}

// circleciCmd lists CircleCI Insights metrics of one project.
var circleciCmd = &cobra.Command{
	Use:   "circleci",
	Short: "List CircleCI Insights metrics of one project",
	Long: `List the workflow and job metrics CircleCI Insights computed for one project.

Examples:
  # Default branch over the last 7 days
  CIRCLECI_TOKEN=... cistat circleci --owner acme --repo app

  # Every branch over the last 30 days as JSON
  cistat circleci --owner acme --repo app --reporting-window last-30-days --all-branches --output json`,
	Args:    cobra.NoArgs,
	PreRunE: setupWith(contract.ValidateRepoScope, contract.ValidateCircleCIToken),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCircleCIReport(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build CircleCI report", err)
		}
	},
}

// insightsCmd crawls CircleCI Insights for whole organizations.
var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Crawl CircleCI Insights of every project of some organizations",
	Long: `Crawl CircleCI Insights of every project of the given organizations.

Every project is visited over the last 30, 60 and 90 days, for all branches
and for the default branch only. Job rows carry the executor of the job in the
first successful run of its workflow.

Examples:
  CIRCLECI_TOKEN=... cistat insights --orgs acme,acme-labs --output xlsx --output-file insights.xlsx`,
	Args:    cobra.NoArgs,
	PreRunE: setupWith(contract.ValidateOrgs, contract.ValidateCircleCIToken),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteInsightsReport(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build insights report", err)
		}
	},
}

// usageCmd summarizes downloaded CircleCI resource usage files.
var usageCmd = &cobra.Command{
	Use:   "usage DIR",
	Short: "Summarize downloaded CircleCI resource usage files",
	Long: `Summarize the resource usage JSON files downloaded from CircleCI Insights.

File names follow "<org> <project> <workflow>.json", which is the name the
Insights page gives them.

Examples:
  cistat usage ./resource-usage --output csv`,
	Args: cobra.ExactArgs(1),
	PreRunE: setupWith(func(c *contract.Config) error {
		c.UsageDir = input.PathArg
		return nil
	}),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteUsageReport(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot build usage report", err)
		}
	},
}

// flattenCmd turns a JSON array of records into a delimited table.
var flattenCmd = &cobra.Command{
	Use:   "flatten [FILE]",
	Short: "Flatten a JSON array of records into a table",
	Long: `Flatten a JSON array of records into one column per dotted leaf path.

Reads FILE, or standard input when FILE is omitted or "-".

Examples:
  curl -s .../insights/acme/app/workflows | jq .items | cistat flatten
  cistat flatten records.json --delimiter "," --output-file records.csv`,
	Args: cobra.MaximumNArgs(1),
	PreRunE: setupWith(func(c *contract.Config) error {
		c.FlattenInput = input.PathArg
		return nil
	}),
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFlatten(cfg); err != nil {
			contract.LogFatal("Cannot flatten records", err)
		}
	},
}
