package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cistat/schema"
)

// Default values for configuration.
const (
	DefaultDays            = 7
	MaxDays                = 400
	DefaultBranch          = "master"
	DefaultCacheTTL        = 7 * 24 * time.Hour
	DefaultGitHubAPIURL    = "https://api.github.com"
	DefaultCircleCIURL     = "https://circleci.com/api/v2"
	DefaultReportingWindow = schema.Last7Days
	DefaultEventsPort      = 5432
	DefaultEventsDatabase  = "postgres"
)

// CacheGranularity defines the time granularity for query windows.
// This ensures consistent cache key generation and time window alignment across
// the application and tests.
const CacheGranularity = time.Hour

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// Config holds the runtime configuration for a report.
// This struct remains the "final, validated" config.
type Config struct {
	Owner     string
	Repo      string
	Orgs      []string
	Branches  []string
	Days      int
	StartTime time.Time
	EndTime   time.Time
	Workers   int

	Source       schema.SourceKind
	GitHubToken  string // Please use env var as this is plaintext
	GitHubAPIURL string
	EventsDSN    string // Please use env var as this is plaintext

	CircleCIToken   string // Please use env var as this is plaintext
	CircleCIURL     string
	ReportingWindow schema.ReportingWindow
	AllBranches     bool

	Output     schema.OutputMode
	OutputFile string
	Delimiter  string
	Width      int // Terminal width override (0 = auto-detect)

	UsageDir     string
	FlattenInput string // "" or "-" means stdin

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	Debug     bool // Log every upstream request
	UseColors bool // Enable colored console output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	PathArg string

	// --- Fields from rootCmd.PersistentFlags() ---
	Output           string `mapstructure:"output"`
	OutputFile       string `mapstructure:"output-file"`
	Delimiter        string `mapstructure:"delimiter"`
	Width            int    `mapstructure:"width"`
	Workers          int    `mapstructure:"workers"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	CacheTTL         string `mapstructure:"cache-ttl"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
	Color            string `mapstructure:"color"`
	Debug            string `mapstructure:"debug"`

	// --- Fields shared by the report commands ---
	Owner    string `mapstructure:"owner"`
	Repo     string `mapstructure:"repo"`
	Orgs     string `mapstructure:"orgs"`
	Branches string `mapstructure:"branches"`
	Days     int    `mapstructure:"days"`

	// --- Fields from githubCmd.Flags() ---
	Source       string `mapstructure:"source"`
	GitHubToken  string `mapstructure:"github-token"`
	GitHubAPIURL string `mapstructure:"github-api-url"`
	EventsDSN    string `mapstructure:"events-dsn"`
	PGHost       string `mapstructure:"pghost"`
	PGUser       string `mapstructure:"pguser"`
	PGPassword   string `mapstructure:"pgpassword"`

	// --- Fields from circleciCmd.Flags() ---
	CircleCIToken   string `mapstructure:"circleci-token"`
	CircleCIURL     string `mapstructure:"circleci-url"`
	ReportingWindow string `mapstructure:"reporting-window"`
	AllBranches     bool   `mapstructure:"all-branches"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Orgs != nil {
		clone.Orgs = slices.Clone(c.Orgs)
	}
	if c.Branches != nil {
		clone.Branches = slices.Clone(c.Branches)
	}
	return &clone
}

// GetQueryStartTime returns the configured start time, truncated to the caching granularity.
// This ensures consistent time window alignment across the application and tests.
func (c *Config) GetQueryStartTime() time.Time {
	return c.StartTime.Truncate(CacheGranularity)
}

// SetDays updates the lookback window relative to now.
func (c *Config) SetDays(days int) {
	c.Days = days
	c.EndTime = time.Now()
	c.StartTime = c.EndTime.Add(-time.Duration(days) * 24 * time.Hour)
}

// Params returns the config values recorded with a report run.
// Secrets and connection strings are never included.
func (c *Config) Params() map[string]any {
	return map[string]any{
		"owner":            c.Owner,
		"repo":             c.Repo,
		"orgs":             c.Orgs,
		"branches":         c.Branches,
		"days":             c.Days,
		"source":           c.Source,
		"reporting_window": c.ReportingWindow,
		"all_branches":     c.AllBranches,
		"workers":          c.Workers,
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processScope(cfg, input); err != nil {
		return err
	}
	if err := processGitHubSource(cfg, input); err != nil {
		return err
	}
	return processCircleCI(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL, PostgreSQL and Redis backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' followed by host:port")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr != "" && !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must be a redis:// or rediss:// URL")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := time.ParseDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid --cache-ttl value '%s': %w", input.CacheTTL, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("cache-ttl must be greater than 0 (received %s)", input.CacheTTL)
		}
		cfg.CacheTTL = ttl
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidHistoryBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("history-db-connect: %w", err)
	}

	// Validate that cache and history use different databases
	if cfg.CacheBackend == cfg.HistoryBackend && cfg.CacheBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and runtime fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(defaultString(input.Color, "yes"))
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	debug, err := ParseBoolString(defaultString(input.Debug, "no"))
	if err != nil {
		return fmt.Errorf("invalid --debug value: %w", err)
	}
	cfg.Debug = debug

	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}

	cfg.Output = schema.OutputMode(strings.ToLower(defaultString(input.Output, string(schema.TextOut))))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, table, csv, json, xlsx", input.Output)
	}
	if cfg.Output == schema.XLSXOut && cfg.OutputFile == "" {
		return fmt.Errorf("xlsx output requires --output-file")
	}

	cfg.Delimiter = input.Delimiter
	if cfg.Delimiter == "" {
		cfg.Delimiter = ", "
	}
	if strings.ContainsAny(cfg.Delimiter, "\r\n") {
		return fmt.Errorf("delimiter cannot contain line breaks")
	}
	return nil
}

// processScope handles the owner, repository, organization, branch and time window inputs.
func processScope(cfg *Config, input *ConfigRawInput) error {
	cfg.Owner = strings.TrimSpace(input.Owner)
	cfg.Repo = strings.TrimSpace(input.Repo)
	cfg.Orgs = ParseList(input.Orgs)
	cfg.Branches = ParseList(input.Branches)
	if len(cfg.Branches) == 0 {
		cfg.Branches = []string{DefaultBranch}
	}

	days := input.Days
	if days == 0 {
		days = DefaultDays
	}
	if days < 0 || days > MaxDays {
		return fmt.Errorf("days must be greater than 0 and cannot exceed %d (received %d)", MaxDays, input.Days)
	}
	cfg.SetDays(days)
	return nil
}

// processGitHubSource resolves the GitHub Actions source and its credentials.
func processGitHubSource(cfg *Config, input *ConfigRawInput) error {
	cfg.Source = schema.SourceKind(strings.ToLower(defaultString(input.Source, string(schema.EventsSource))))
	if _, ok := schema.ValidSources[cfg.Source]; !ok {
		return fmt.Errorf("invalid source '%s'. must be events, api", input.Source)
	}
	cfg.GitHubToken = input.GitHubToken
	cfg.GitHubAPIURL = strings.TrimSuffix(defaultString(input.GitHubAPIURL, DefaultGitHubAPIURL), "/")

	cfg.EventsDSN = input.EventsDSN
	if cfg.EventsDSN == "" && input.PGHost != "" {
		cfg.EventsDSN = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			input.PGHost, DefaultEventsPort, input.PGUser, input.PGPassword, DefaultEventsDatabase)
	}
	return nil
}

// processCircleCI resolves the CircleCI credentials and reporting window.
func processCircleCI(cfg *Config, input *ConfigRawInput) error {
	cfg.CircleCIToken = input.CircleCIToken
	cfg.CircleCIURL = strings.TrimSuffix(defaultString(input.CircleCIURL, DefaultCircleCIURL), "/")
	cfg.AllBranches = input.AllBranches

	cfg.ReportingWindow = schema.ReportingWindow(strings.ToLower(defaultString(input.ReportingWindow, string(DefaultReportingWindow))))
	if _, ok := schema.ValidReportingWindows[cfg.ReportingWindow]; !ok {
		return fmt.Errorf("invalid reporting window '%s'. must be last-90-days, last-60-days, last-30-days, last-7-days, last-24-hours", input.ReportingWindow)
	}
	return nil
}

// ValidateRepoScope checks that a single repository was selected.
func ValidateRepoScope(cfg *Config) error {
	if cfg.Owner == "" {
		return fmt.Errorf("--owner is required (or set GITHUB_ORG)")
	}
	if cfg.Repo == "" {
		return fmt.Errorf("--repo is required (or set GITHUB_REPO)")
	}
	return nil
}

// ValidateOrgs checks that at least one organization was selected.
func ValidateOrgs(cfg *Config) error {
	if len(cfg.Orgs) == 0 {
		return fmt.Errorf("--orgs is required (comma-separated list of organizations)")
	}
	return nil
}

// ValidateGitHubSource checks that the selected GitHub Actions source can be reached.
func ValidateGitHubSource(cfg *Config) error {
	if cfg.Source == schema.EventsSource {
		if cfg.EventsDSN == "" {
			return fmt.Errorf("events source requires --events-dsn (or PGHOST, PGUSER, PGPASSWORD)")
		}
		return ValidateDatabaseConnectionString(schema.PostgreSQLBackend, cfg.EventsDSN)
	}
	return nil
}

// ValidateCircleCIToken checks that a CircleCI token was provided.
func ValidateCircleCIToken(cfg *Config) error {
	if cfg.CircleCIToken == "" {
		return fmt.Errorf("--circleci-token is required (or set CIRCLECI_TOKEN)")
	}
	return nil
}

// ParseList splits a comma-separated list, dropping blanks and duplicates.
func ParseList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" && !slices.Contains(out, part) {
			out = append(out, part)
		}
	}
	return out
}

// defaultString returns fallback when s is blank.
func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	return homeFile(".cistat_cache.db")
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for history storage.
func GetHistoryDBFilePath() string {
	return homeFile(".cistat_history.db")
}

func homeFile(name string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(homeDir, name)
}
