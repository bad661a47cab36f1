// Package cmd defines the command-line interface for cistat.
package cmd

import (
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(githubCmd)
	rootCmd.AddCommand(circleciCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(usageCmd)
	rootCmd.AddCommand(flattenCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("owner", "", "GitHub owner or CircleCI organization of the repository")
	rootCmd.PersistentFlags().String("repo", "", "Repository or CircleCI project name")
	rootCmd.PersistentFlags().String("orgs", "", "Comma-separated list of CircleCI organizations")
	rootCmd.PersistentFlags().String("branches", contract.DefaultBranch, "Comma-separated list of branches to keep")
	rootCmd.PersistentFlags().Int("days", contract.DefaultDays, "Number of days to look back")
	rootCmd.PersistentFlags().String("circleci-token", "", "CircleCI API token (prefer CIRCLECI_TOKEN)")
	rootCmd.PersistentFlags().String("circleci-url", contract.DefaultCircleCIURL, "CircleCI API base URL")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or table or csv or json or xlsx")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().String("delimiter", ", ", "Field delimiter for text output")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent upstream requests")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or redis or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Connection string for mysql/postgresql/redis (e.g., redis://localhost:6379/0)")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "Age after which cached pages are fetched again")
	rootCmd.PersistentFlags().String("history-backend", "", "History tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Connection string for history tracking (must differ from cache-db-connect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("debug", "no", "Log every upstream request (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of githubCmd to Viper
	githubCmd.Flags().String("source", string(schema.EventsSource), "Where to read runs from: events or api")
	githubCmd.Flags().String("github-token", "", "GitHub API token (prefer GITHUB_TOKEN)")
	githubCmd.Flags().String("github-api-url", contract.DefaultGitHubAPIURL, "GitHub API base URL")
	githubCmd.Flags().String("events-dsn", "", "PostgreSQL connection string of the webhook events store")
	if err := viper.BindPFlags(githubCmd.Flags()); err != nil {
		contract.LogFatal("Error binding github flags", err)
	}

	// Bind all flags of circleciCmd to Viper
	circleciCmd.Flags().String("reporting-window", string(contract.DefaultReportingWindow), "Insights window: last-90-days or last-60-days or last-30-days or last-7-days or last-24-hours")
	circleciCmd.Flags().Bool("all-branches", false, "Include every branch instead of the default branch only")
	if err := viper.BindPFlags(circleciCmd.Flags()); err != nil {
		contract.LogFatal("Error binding circleci flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
