package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/iocache"
	"github.com/huangsam/cistat/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager

// legacyEnv maps config keys to the environment variables CI jobs already export.
var legacyEnv = map[string][]string{
	"owner":          {"GITHUB_ORG"},
	"orgs":           {"GITHUB_ORG"},
	"repo":           {"GITHUB_REPO"},
	"github-token":   {"GITHUB_TOKEN"},
	"circleci-token": {"CIRCLECI_TOKEN"},
	"pghost":         {"PGHOST"},
	"pguser":         {"PGUSER"},
	"pgpassword":     {"PGPASSWORD"},
	"debug":          {"DEBUG"},
}

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "cistat",
	Short:              "Reduce CI telemetry to workflow and job metrics.",
	Long:               `Cistat pulls GitHub Actions and CircleCI telemetry and reduces it to duration, success rate and throughput summaries.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Set environment variable prefix
	viper.SetEnvPrefix("CISTAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// The prefixed name wins over the legacy one
	for key, names := range legacyEnv {
		envNames := append([]string{"CISTAT_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))}, names...)
		if err := viper.BindEnv(append([]string{key}, envNames...)...); err != nil {
			contract.LogFatal("Error binding environment", err)
		}
	}

	// Set defaults in Viper
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("days", contract.DefaultDays)
	viper.SetDefault("branches", contract.DefaultBranch)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("delimiter", ", ")
	viper.SetDefault("cache-backend", schema.SQLiteBackend)
	viper.SetDefault("cache-db-connect", "")
	viper.SetDefault("cache-ttl", contract.DefaultCacheTTL.String())
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("source", schema.EventsSource)
	viper.SetDefault("reporting-window", contract.DefaultReportingWindow)
	viper.SetDefault("color", "yes")
	viper.SetDefault("debug", "no")
}

// sharedSetup unmarshals config and runs validation.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := loadConfigFile(); err != nil {
		return err
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.PathArg = ""
	if len(args) == 1 {
		input.PathArg = args[0]
	}

	// 4. Run all validation and complex parsing.
	// This function populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	contract.SetColors(cfg.UseColors)
	contract.SetDebug(cfg.Debug)

	// 5. Initialize persistence layer with validated config
	if err := iocache.InitStores(cfg.CacheBackend, cfg.CacheDBConnect, cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	return nil
}

// setupWith returns a PreRunE that runs sharedSetup and then the given
// command-specific validators.
func setupWith(validators ...func(*contract.Config) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := sharedSetup(rootCtx, cmd, args); err != nil {
			return err
		}
		for _, validate := range validators {
			if err := validate(cfg); err != nil {
				return err
			}
		}
		return nil
	}
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	// Handle config file
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".cistat")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Load config file if present
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
