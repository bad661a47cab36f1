package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
)

// Table names for report history.
const (
	reportRunsTable     = "cistat_report_runs"
	groupSummariesTable = "cistat_group_summaries"
)

// historyTables lists the history tables in dependency order.
var historyTables = []string{reportRunsTable, groupSummariesTable}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	now     func() time.Time
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend. The
// schema is migrated to the latest version before the store is returned.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if _, ok := schema.ValidHistoryBackends[backend]; !ok {
		return nil, fmt.Errorf("unsupported history backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend, now: time.Now}, nil
	}

	if _, err := runHistoryMigrations(backend, connStr, -1); err != nil {
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}
	return &HistoryStoreImpl{db: db, backend: backend, now: time.Now}, nil
}

func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

func (hs *HistoryStoreImpl) table(name string) string {
	return quoteTableName(name, hs.backend)
}

// BeginReport creates a new report run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginReport(startTime time.Time, source, scope string, configParams map[string]any) (string, error) {
	// Skip for NoneBackend
	if hs.disabled() {
		return "", nil
	}

	// Serialize config params to JSON
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config params: %w", err)
	}

	reportID := uuid.NewString()
	query := rebind(fmt.Sprintf(`INSERT INTO %s (report_id, source, scope, start_time, total_groups, config_params) VALUES (?, ?, ?, ?, 0, ?)`,
		hs.table(reportRunsTable)), hs.backend)
	if _, err := hs.db.Exec(query, reportID, source, scope, formatTime(startTime, hs.backend), string(configJSON)); err != nil {
		return "", fmt.Errorf("failed to insert report run: %w", err)
	}
	return reportID, nil
}

// EndReport updates the report run with completion data.
func (hs *HistoryStoreImpl) EndReport(reportID string, endTime time.Time, totalGroups int) error {
	// Skip for NoneBackend
	if hs.disabled() {
		return nil
	}

	// First, get the start_time to calculate duration
	var startTime dbTime
	query := rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE report_id = ?`, hs.table(reportRunsTable)), hs.backend)
	if err := hs.db.QueryRow(query, reportID).Scan(&startTime); err != nil {
		return fmt.Errorf("failed to get start_time for report %s: %w", reportID, err)
	}

	durationMs := endTime.Sub(startTime.Time).Milliseconds()

	update := rebind(fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_groups = ? WHERE report_id = ?`,
		hs.table(reportRunsTable)), hs.backend)
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, totalGroups, reportID); err != nil {
		return fmt.Errorf("failed to update report run: %w", err)
	}
	return nil
}

// RecordGroupSummary stores the computed summary of one group.
func (hs *HistoryStoreImpl) RecordGroupSummary(reportID, section, groupKey string, summary schema.StatSummary) error {
	// Skip for NoneBackend
	if hs.disabled() {
		return nil
	}

	query := rebind(fmt.Sprintf(`
		INSERT INTO %s (report_id, section, group_key, recorded_at, total_runs, successful_runs, failed_runs,
		                success_rate, min_duration, mean_duration, median_duration, p95_duration, max_duration,
		                stddev_duration, total_duration, window_start, window_end, throughput)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, hs.table(groupSummariesTable)), hs.backend)

	d := summary.DurationMetrics
	args := []any{
		reportID, section, groupKey, formatTime(hs.now(), hs.backend),
		summary.TotalRuns, summary.SuccessfulRuns, summary.FailedRuns, summary.SuccessRate,
		d.Min, d.Mean, d.Median, d.P95, d.Max, d.StandardDeviation, d.TotalDuration,
		formatTime(summary.WindowStart, hs.backend), formatTime(summary.WindowEnd, hs.backend), summary.Throughput,
	}
	if _, err := hs.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to insert group summary %s/%s: %w", section, groupKey, err)
	}
	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if hs.disabled() {
		return status, nil
	}

	// Get total runs
	runsQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.table(reportRunsTable))
	if err := hs.db.QueryRow(runsQuery).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		// Get last run info
		var lastRunTime dbTime
		lastRunQuery := fmt.Sprintf("SELECT report_id, start_time FROM %s ORDER BY start_time DESC LIMIT 1", hs.table(reportRunsTable))
		if err := hs.db.QueryRow(lastRunQuery).Scan(&status.LastRunID, &lastRunTime); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		status.LastRunTime = lastRunTime.Time

		// Get oldest run time
		var oldestRunTime dbTime
		oldestRunQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY start_time ASC LIMIT 1", hs.table(reportRunsTable))
		if err := hs.db.QueryRow(oldestRunQuery).Scan(&oldestRunTime); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime.Time

		// Get total groups summarized
		groupsQuery := fmt.Sprintf("SELECT COALESCE(SUM(total_groups), 0) FROM %s", hs.table(reportRunsTable))
		if err := hs.db.QueryRow(groupsQuery).Scan(&status.TotalGroups); err != nil {
			return status, fmt.Errorf("failed to get total groups: %w", err)
		}
	}

	// Get table sizes
	for _, table := range historyTables {
		var count int64
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.table(table))
		if err := hs.db.QueryRow(countQuery).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllReportRuns retrieves all report runs from the store.
func (hs *HistoryStoreImpl) GetAllReportRuns() ([]schema.ReportRunRecord, error) {
	// Skip for NoneBackend
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT report_id, source, scope, start_time, end_time, run_duration_ms, total_groups, config_params
		FROM %s ORDER BY start_time, report_id`, hs.table(reportRunsTable))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query report runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ReportRunRecord
	for rows.Next() {
		var record schema.ReportRunRecord
		var start, end dbTime
		if err := rows.Scan(&record.ReportID, &record.Source, &record.Scope, &start, &end,
			&record.RunDurationMs, &record.TotalGroups, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan report run: %w", err)
		}
		record.StartTime = start.Time
		record.EndTime = end.Ptr()
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report runs: %w", err)
	}
	return results, nil
}

// GetAllGroupSummaries retrieves all group summaries from the store.
func (hs *HistoryStoreImpl) GetAllGroupSummaries() ([]schema.GroupSummaryRecord, error) {
	// Skip for NoneBackend
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT report_id, section, group_key, recorded_at, total_runs, successful_runs, failed_runs,
		success_rate, min_duration, mean_duration, median_duration, p95_duration, max_duration,
		stddev_duration, total_duration, window_start, window_end, throughput
		FROM %s ORDER BY report_id, section, group_key`, hs.table(groupSummariesTable))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query group summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.GroupSummaryRecord
	for rows.Next() {
		var r schema.GroupSummaryRecord
		var recorded, start, end dbTime
		if err := rows.Scan(&r.ReportID, &r.Section, &r.GroupKey, &recorded, &r.TotalRuns, &r.SuccessfulRuns, &r.FailedRuns,
			&r.SuccessRate, &r.MinDuration, &r.MeanDuration, &r.MedianDuration, &r.P95Duration, &r.MaxDuration,
			&r.StdDevDuration, &r.TotalDuration, &start, &end, &r.Throughput); err != nil {
			return nil, fmt.Errorf("failed to scan group summary: %w", err)
		}
		r.RecordedAt = recorded.Time
		r.WindowStart = start.Time
		r.WindowEnd = end.Time
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group summaries: %w", err)
	}
	return results, nil
}
