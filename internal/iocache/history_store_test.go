package iocache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cistat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteHistory(t *testing.T) (*HistoryStoreImpl, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := NewHistoryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*HistoryStoreImpl), path
}

func sampleSummary() schema.StatSummary {
	return schema.StatSummary{
		TotalRuns:      4,
		SuccessfulRuns: 3,
		FailedRuns:     1,
		SuccessRate:    0.75,
		DurationMetrics: schema.DurationMetrics{
			Min: 60, Mean: 90, Median: 85, P95: 130, Max: 135, StandardDeviation: 27.5, TotalDuration: 360,
		},
		WindowStart: time.Date(2024, 4, 24, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Throughput:  0.5,
	}
}

func TestHistoryStore_NoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	id, err := store.BeginReport(time.Now(), "github", "acme/api", nil)
	assert.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, store.EndReport("x", time.Now(), 3))
	assert.NoError(t, store.RecordGroupSummary("x", "workflows", "CI", sampleSummary()))

	runs, err := store.GetAllReportRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, store.Close())
}

func TestHistoryStore_SQLite(t *testing.T) {
	store, _ := newSQLiteHistory(t)
	recordedAt := time.Date(2024, 5, 1, 10, 0, 30, 0, time.UTC)
	store.now = func() time.Time { return recordedAt }

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reportID, err := store.BeginReport(start, "github", "acme/api", map[string]any{"days": 7})
	require.NoError(t, err)
	assert.Len(t, reportID, 36)

	require.NoError(t, store.RecordGroupSummary(reportID, "workflows", "CI", sampleSummary()))
	require.NoError(t, store.RecordGroupSummary(reportID, "jobs", "CI-build", sampleSummary()))
	require.NoError(t, store.EndReport(reportID, start.Add(1500*time.Millisecond), 2))

	t.Run("report runs", func(t *testing.T) {
		runs, err := store.GetAllReportRuns()
		require.NoError(t, err)
		require.Len(t, runs, 1)

		run := runs[0]
		assert.Equal(t, reportID, run.ReportID)
		assert.Equal(t, "github", run.Source)
		assert.Equal(t, "acme/api", run.Scope)
		assert.True(t, start.Equal(run.StartTime))
		require.NotNil(t, run.EndTime)
		assert.True(t, start.Add(1500*time.Millisecond).Equal(*run.EndTime))
		require.NotNil(t, run.RunDurationMs)
		assert.Equal(t, int32(1500), *run.RunDurationMs)
		assert.Equal(t, int32(2), run.TotalGroups)
		require.NotNil(t, run.ConfigParams)
		assert.JSONEq(t, `{"days":7}`, *run.ConfigParams)
	})

	t.Run("group summaries", func(t *testing.T) {
		summaries, err := store.GetAllGroupSummaries()
		require.NoError(t, err)
		require.Len(t, summaries, 2)

		// Ordered by section then group key
		assert.Equal(t, "jobs", summaries[0].Section)
		assert.Equal(t, "CI-build", summaries[0].GroupKey)

		s := summaries[1]
		assert.Equal(t, "CI", s.GroupKey)
		assert.Equal(t, int32(4), s.TotalRuns)
		assert.Equal(t, int32(1), s.FailedRuns)
		assert.InDelta(t, 0.75, s.SuccessRate, 1e-9)
		assert.InDelta(t, 130.0, s.P95Duration, 1e-9)
		assert.InDelta(t, 27.5, s.StdDevDuration, 1e-9)
		assert.True(t, recordedAt.Equal(s.RecordedAt))
		assert.True(t, sampleSummary().WindowStart.Equal(s.WindowStart))
	})

	t.Run("duplicate group rejected", func(t *testing.T) {
		assert.Error(t, store.RecordGroupSummary(reportID, "workflows", "CI", sampleSummary()))
	})

	t.Run("unknown report", func(t *testing.T) {
		assert.Error(t, store.EndReport("missing", time.Now(), 0))
	})

	t.Run("status", func(t *testing.T) {
		later, err := store.BeginReport(start.Add(time.Hour), "circleci", "acme", nil)
		require.NoError(t, err)

		status, err := store.GetStatus()
		require.NoError(t, err)
		assert.Equal(t, "sqlite", status.Backend)
		assert.Equal(t, 2, status.TotalRuns)
		assert.Equal(t, later, status.LastRunID)
		assert.True(t, start.Equal(status.OldestRunTime))
		assert.Equal(t, 2, status.TotalGroups)
		assert.Equal(t, int64(2), status.TableSizes[reportRunsTable])
		assert.Equal(t, int64(2), status.TableSizes[groupSummariesTable])
	})
}

func TestHistoryStore_ReopenKeepsData(t *testing.T) {
	store, path := newSQLiteHistory(t)
	_, err := store.BeginReport(time.Now(), "usage", "acme/api", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewHistoryStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.GetAllReportRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Nil(t, runs[0].EndTime)
	assert.Nil(t, runs[0].RunDurationMs)
}

func TestRunHistoryMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	result, err := runHistoryMigrations(schema.SQLiteBackend, path, -1)
	require.NoError(t, err)
	assert.Equal(t, migrationResult{From: 0, To: 2, Changed: true}, result)

	result, err = runHistoryMigrations(schema.SQLiteBackend, path, -1)
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, uint(2), result.To)

	result, err = runHistoryMigrations(schema.SQLiteBackend, path, 1)
	require.NoError(t, err)
	assert.Equal(t, migrationResult{From: 2, To: 1, Changed: true}, result)

	result, err = runHistoryMigrations(schema.SQLiteBackend, path, 0)
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, uint(0), result.To)
}

func TestMigrateHistory_Unsupported(t *testing.T) {
	assert.Error(t, MigrateHistory(schema.NoneBackend, "", -1))
	_, err := runHistoryMigrations(schema.RedisBackend, "", -1)
	assert.Error(t, err)
}

func TestClearHistory_SQLite(t *testing.T) {
	store, path := newSQLiteHistory(t)
	require.NoError(t, store.Close())

	require.NoError(t, ClearHistory(schema.SQLiteBackend, path, ""))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
}

func TestExecuteHistoryExport(t *testing.T) {
	store, _ := newSQLiteHistory(t)
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reportID, err := store.BeginReport(start, "github", "acme/api", nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordGroupSummary(reportID, "workflows", "CI", sampleSummary()))
	require.NoError(t, store.EndReport(reportID, start.Add(time.Second), 1))

	out := filepath.Join(t.TempDir(), "export")
	var buf bytes.Buffer
	require.NoError(t, ExecuteHistoryExport(&buf, store, out))

	for _, suffix := range []string{".report_runs.parquet", ".group_summaries.parquet"} {
		info, err := os.Stat(out + suffix)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Contains(t, buf.String(), "Exported 1 report runs")
	assert.Contains(t, buf.String(), "Exported 1 group summaries")
}

func TestExecuteHistoryExport_Errors(t *testing.T) {
	store := &MockHistoryStore{}

	assert.Error(t, ExecuteHistoryExport(&bytes.Buffer{}, store, ""))
	assert.Error(t, ExecuteHistoryExport(&bytes.Buffer{}, nil, "out"))

	store.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite"}, nil).Once()
	err := ExecuteHistoryExport(&bytes.Buffer{}, store, "out")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no report history")

	store.On("GetStatus").Return(schema.HistoryStatus{}, errors.New("closed")).Once()
	assert.Error(t, ExecuteHistoryExport(&bytes.Buffer{}, store, "out"))
	store.AssertExpectations(t)
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Equal(t, "Cache Backend: none\nConnected: false\n", buf.String())

	buf.Reset()
	PrintHistoryStatus(&buf, schema.HistoryStatus{
		Backend:    "sqlite",
		Connected:  true,
		TableSizes: map[string]int64{groupSummariesTable: 5, reportRunsTable: 2},
	})
	assert.Contains(t, buf.String(), "Total Runs: 0\n")
	assert.Contains(t, buf.String(), "  cistat_group_summaries: 5 rows\n  cistat_report_runs: 2 rows\n")
}
