package schema

import "time"

// CacheStatus represents the status of the event cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the report history store.
type HistoryStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     string           `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalGroups   int              `json:"total_groups"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// ReportRunRecord represents a row from the cistat_report_runs table.
type ReportRunRecord struct {
	ReportID      string
	Source        string
	Scope         string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalGroups   int32
	ConfigParams  *string
}

// GroupSummaryRecord represents a row from the cistat_group_summaries table.
type GroupSummaryRecord struct {
	ReportID       string
	Section        string
	GroupKey       string
	RecordedAt     time.Time
	TotalRuns      int32
	SuccessfulRuns int32
	FailedRuns     int32
	SuccessRate    float64
	MinDuration    float64
	MeanDuration   float64
	MedianDuration float64
	P95Duration    float64
	MaxDuration    float64
	StdDevDuration float64
	TotalDuration  float64
	WindowStart    time.Time
	WindowEnd      time.Time
	Throughput     float64
}
