// Package schema has the records, reports and constants shared across cistat.
package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and history.
	DatabaseBackend string

	// SourceKind represents where GitHub Actions telemetry is read from.
	SourceKind string

	// ReportingWindow is a CircleCI Insights reporting window.
	ReportingWindow string
)

// All output modes supported.
const (
	TextOut  OutputMode = "text" // default
	TableOut OutputMode = "table"
	CSVOut   OutputMode = "csv"
	JSONOut  OutputMode = "json"
	XLSXOut  OutputMode = "xlsx"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis" // cache only
	NoneBackend       DatabaseBackend = "none"
)

// All GitHub Actions sources supported.
const (
	EventsSource SourceKind = "events" // default
	APISource    SourceKind = "api"
)

// All CircleCI reporting windows.
const (
	Last90Days  ReportingWindow = "last-90-days"
	Last60Days  ReportingWindow = "last-60-days"
	Last30Days  ReportingWindow = "last-30-days"
	Last7Days   ReportingWindow = "last-7-days"
	Last24Hours ReportingWindow = "last-24-hours"
)

// Section titles shared by the metrics reports.
const (
	WorkflowSection = "Workflow Data"
	JobSection      = "Job Data"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut:  {},
	TableOut: {},
	CSVOut:   {},
	JSONOut:  {},
	XLSXOut:  {},
}

// ValidCacheBackends lists all valid cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidHistoryBackends lists all valid history backends.
var ValidHistoryBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidSources lists all valid GitHub Actions sources.
var ValidSources = map[SourceKind]struct{}{
	EventsSource: {},
	APISource:    {},
}

// ValidReportingWindows lists all valid CircleCI reporting windows.
var ValidReportingWindows = map[ReportingWindow]struct{}{
	Last90Days:  {},
	Last60Days:  {},
	Last30Days:  {},
	Last7Days:   {},
	Last24Hours: {},
}

// InsightsWindows are the reporting windows crawled by the insights report, in order.
var InsightsWindows = []ReportingWindow{Last30Days, Last60Days, Last90Days}

// Days returns the number of days covered by the window.
func (w ReportingWindow) Days() int {
	switch w {
	case Last90Days:
		return 90
	case Last60Days:
		return 60
	case Last30Days:
		return 30
	case Last7Days:
		return 7
	default: // Last24Hours
		return 1
	}
}
