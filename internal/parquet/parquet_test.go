package parquet

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/cistat/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReportRuns() []ReportRun {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	duration := int32(90000)
	params := `{"days":7,"branches":["master"]}`

	return []ReportRun{
		{
			ReportID:      "2f1c9a7e-0d4b-4a57-9f39-6c1e2b8d5a10",
			Source:        "github",
			Scope:         "acme/api",
			StartTime:     start,
			EndTime:       &end,
			RunDurationMs: &duration,
			TotalGroups:   4,
			ConfigParams:  &params,
		},
		{
			ReportID:  "8b0e61f4-3c2a-4f0e-b7d2-91a4c5e7f083",
			Source:    "circleci",
			Scope:     "acme",
			StartTime: start.Add(time.Hour),
			// Still running
		},
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return rows[:n]
}

func TestReportRunStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(ReportRun))
	for _, col := range []string{"report_id", "source", "scope", "start_time", "end_time", "run_duration_ms", "total_groups", "config_params"} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestGroupSummaryStructTags(t *testing.T) {
	s := parquet.SchemaOf(new(GroupSummary))
	for _, col := range []string{
		"report_id", "section", "group_key", "recorded_at", "total_runs", "successful_runs", "failed_runs",
		"success_rate", "min_duration", "mean_duration", "median_duration", "p95_duration", "max_duration",
		"stddev_duration", "total_duration", "window_start", "window_end", "throughput",
	} {
		_, ok := s.Lookup(col)
		assert.True(t, ok, "Column %s should exist in schema", col)
	}
}

func TestWriteReportRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report_runs.parquet")
	data := sampleReportRuns()

	require.NoError(t, WriteReportRunsParquet(data, outputPath))

	got := readAll[ReportRun](t, outputPath)
	require.Len(t, got, len(data))

	assert.Equal(t, data[0].ReportID, got[0].ReportID)
	assert.Equal(t, "acme/api", got[0].Scope)
	require.NotNil(t, got[0].EndTime)
	assert.WithinDuration(t, *data[0].EndTime, *got[0].EndTime, time.Nanosecond)
	require.NotNil(t, got[0].RunDurationMs)
	assert.Equal(t, int32(90000), *got[0].RunDurationMs)

	// Nullable fields survive the round trip as nil
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].RunDurationMs)
	assert.Nil(t, got[1].ConfigParams)
}

func TestWriteGroupSummariesParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "group_summaries.parquet")
	recorded := time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)
	data := ConvertGroupSummaryRecords([]schema.GroupSummaryRecord{
		{ReportID: "r1", Section: "workflows", GroupKey: "CI", RecordedAt: recorded, TotalRuns: 3, SuccessfulRuns: 2, FailedRuns: 1, SuccessRate: 2.0 / 3, MeanDuration: 120, Throughput: 0.375},
		{ReportID: "r1", Section: "jobs", GroupKey: "CI-build", RecordedAt: recorded, TotalRuns: 3, SuccessfulRuns: 3, SuccessRate: 1, P95Duration: 80},
	})

	require.NoError(t, WriteGroupSummariesParquet(data, outputPath))

	got := readAll[GroupSummary](t, outputPath)
	require.Len(t, got, 2)
	assert.Equal(t, "CI", got[0].GroupKey)
	assert.Equal(t, int32(1), got[0].FailedRuns)
	assert.InDelta(t, 0.375, got[0].Throughput, 1e-9)
	assert.Equal(t, "CI-build", got[1].GroupKey)
	assert.InDelta(t, 80.0, got[1].P95Duration, 1e-9)
}

func TestWriteParquetBadPath(t *testing.T) {
	err := WriteReportRunsParquet(sampleReportRuns(), filepath.Join(t.TempDir(), "missing", "out.parquet"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create output file")
}

func TestConvertReportRunRecords(t *testing.T) {
	end := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	records := []schema.ReportRunRecord{
		{ReportID: "r1", Source: "github", Scope: "acme/api", StartTime: end.Add(-time.Minute), EndTime: &end, TotalGroups: 2},
	}

	got := ConvertReportRunRecords(records)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ReportID)
	assert.Equal(t, "github", got[0].Source)
	assert.Equal(t, &end, got[0].EndTime)
	assert.Equal(t, int32(2), got[0].TotalGroups)

	assert.Empty(t, ConvertReportRunRecords(nil))
}
