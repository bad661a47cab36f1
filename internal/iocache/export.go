package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/parquet"
)

// ExecuteHistoryExport exports the report history of store to two Parquet
// files named after outputFile.
func ExecuteHistoryExport(w io.Writer, store contract.HistoryStore, outputFile string) error {
	// Validate that output file is specified
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not initialized")
	}

	// Check if there's any data to export
	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no report history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total report runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total group summaries: %d\n", status.TableSizes[groupSummariesTable])

	reportRuns, err := store.GetAllReportRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve report runs: %w", err)
	}
	groupSummaries, err := store.GetAllGroupSummaries()
	if err != nil {
		return fmt.Errorf("failed to retrieve group summaries: %w", err)
	}

	runs := parquet.ConvertReportRunRecords(reportRuns)
	runsFile := outputFile + ".report_runs.parquet"
	if err := parquet.WriteReportRunsParquet(runs, runsFile); err != nil {
		return fmt.Errorf("failed to write report runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d report runs to: %s\n", len(runs), runsFile)

	summaries := parquet.ConvertGroupSummaryRecords(groupSummaries)
	summariesFile := outputFile + ".group_summaries.parquet"
	if err := parquet.WriteGroupSummariesParquet(summaries, summariesFile); err != nil {
		return fmt.Errorf("failed to write group summaries: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d group summaries to: %s\n", len(summaries), summariesFile)

	return nil
}
