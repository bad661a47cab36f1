// Package parquet provides data structures and functions for exporting cistat
// report history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/cistat/schema"
	"github.com/parquet-go/parquet-go"
)

// ReportRun represents a single report run with metadata.
// This struct maps to the cistat_report_runs database table.
type ReportRun struct {
	// ReportID is the unique identifier for this report run
	ReportID string `parquet:"report_id,snappy"`

	// Source names the report that ran, such as github or circleci
	Source string `parquet:"source,snappy"`

	// Scope is the owner/repo or org the report covered
	Scope string `parquet:"scope,snappy"`

	// StartTime is when the report began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the report completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalGroups is the number of groups summarized in this run
	TotalGroups int32 `parquet:"total_groups,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// GroupSummary represents the statistics of one workflow or job group in a report.
// This struct maps to the cistat_group_summaries database table.
type GroupSummary struct {
	ReportID       string    `parquet:"report_id,snappy"`
	Section        string    `parquet:"section,snappy"`
	GroupKey       string    `parquet:"group_key,snappy"`
	RecordedAt     time.Time `parquet:"recorded_at,snappy"`
	TotalRuns      int32     `parquet:"total_runs,snappy"`
	SuccessfulRuns int32     `parquet:"successful_runs,snappy"`
	FailedRuns     int32     `parquet:"failed_runs,snappy"`
	SuccessRate    float64   `parquet:"success_rate,snappy"`

	// Durations are in seconds
	MinDuration    float64 `parquet:"min_duration,snappy"`
	MeanDuration   float64 `parquet:"mean_duration,snappy"`
	MedianDuration float64 `parquet:"median_duration,snappy"`
	P95Duration    float64 `parquet:"p95_duration,snappy"`
	MaxDuration    float64 `parquet:"max_duration,snappy"`
	StdDevDuration float64 `parquet:"stddev_duration,snappy"`
	TotalDuration  float64 `parquet:"total_duration,snappy"`

	WindowStart time.Time `parquet:"window_start,snappy"`
	WindowEnd   time.Time `parquet:"window_end,snappy"`

	// Throughput is runs per day over the window
	Throughput float64 `parquet:"throughput,snappy"`
}

// WriteReportRunsParquet writes a slice of ReportRun structs to a Parquet file.
func WriteReportRunsParquet(data []ReportRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteGroupSummariesParquet writes a slice of GroupSummary structs to a Parquet file.
func WriteGroupSummariesParquet(data []GroupSummary, outputPath string) error {
	return writeParquet(data, outputPath)
}

// writeParquet writes rows using the schema inferred from the tags of T.
func writeParquet[T any](data []T, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	// Close flushes the footer, so its error matters
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// ConvertReportRunRecords converts schema.ReportRunRecord to ReportRun for Parquet export.
func ConvertReportRunRecords(records []schema.ReportRunRecord) []ReportRun {
	result := make([]ReportRun, len(records))
	for i, record := range records {
		result[i] = ReportRun{
			ReportID:      record.ReportID,
			Source:        record.Source,
			Scope:         record.Scope,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalGroups:   record.TotalGroups,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertGroupSummaryRecords converts schema.GroupSummaryRecord to GroupSummary for Parquet export.
func ConvertGroupSummaryRecords(records []schema.GroupSummaryRecord) []GroupSummary {
	result := make([]GroupSummary, len(records))
	for i, r := range records {
		result[i] = GroupSummary{
			ReportID:       r.ReportID,
			Section:        r.Section,
			GroupKey:       r.GroupKey,
			RecordedAt:     r.RecordedAt,
			TotalRuns:      r.TotalRuns,
			SuccessfulRuns: r.SuccessfulRuns,
			FailedRuns:     r.FailedRuns,
			SuccessRate:    r.SuccessRate,
			MinDuration:    r.MinDuration,
			MeanDuration:   r.MeanDuration,
			MedianDuration: r.MedianDuration,
			P95Duration:    r.P95Duration,
			MaxDuration:    r.MaxDuration,
			StdDevDuration: r.StdDevDuration,
			TotalDuration:  r.TotalDuration,
			WindowStart:    r.WindowStart,
			WindowEnd:      r.WindowEnd,
			Throughput:     r.Throughput,
		}
	}
	return result
}
