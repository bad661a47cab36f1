// Package core has the report builders that reduce CI telemetry to summaries.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/cistat/core/agg"
	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/internal/outwriter"
	"github.com/huangsam/cistat/schema"
)

// BuilderFunc builds one report.
type BuilderFunc func(ctx context.Context) (*schema.Report, error)

// Report sources recorded in the history store.
const (
	githubSource   = "github"
	circleciSource = "circleci"
	insightsSource = "insights"
	usageSource    = "usage"
)

// runReport builds a report, records it in the history store when one is
// configured, and writes it in the configured output mode.
func runReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, source, scope string, build BuilderFunc) error {
	start := time.Now()
	report, err := build(ctx)
	if err != nil {
		return err
	}
	logReportIssues(report)

	if mgr != nil {
		if err := recordHistory(mgr.GetHistoryStore(), start, source, scope, cfg.Params(), report); err != nil {
			contract.LogWarn("Cannot record report history", err)
		}
	}
	return outwriter.WriteReport(report, cfg)
}

// recordHistory stores the report run and the summary of every group in it.
// A nil store disables recording.
func recordHistory(store contract.HistoryStore, start time.Time, source, scope string, params map[string]any, report *schema.Report) error {
	if store == nil {
		return nil
	}
	reportID, err := store.BeginReport(start, source, scope, params)
	if err != nil {
		return err
	}
	if reportID == "" {
		return nil
	}

	groups := 0
	for _, section := range report.Sections {
		for _, row := range section.Rows {
			summarized, ok := row.(schema.Summarized)
			if !ok {
				continue
			}
			if err := store.RecordGroupSummary(reportID, section.Title, summarized.GroupKey(), summarized.Summary()); err != nil {
				return err
			}
			groups++
		}
	}
	return store.EndReport(reportID, time.Now(), groups)
}

// logReportIssues warns about the records and groups left out of a report.
func logReportIssues(report *schema.Report) {
	if report.Skipped > 0 {
		contract.LogWarn("Skipped malformed records",
			fmt.Errorf("%d records lacked an identity or timestamps", report.Skipped))
	}
	if len(report.FailedGroups) > 0 {
		contract.LogWarn("Left out groups that could not be summarized",
			fmt.Errorf("%d groups: %v", len(report.FailedGroups), report.FailedGroups))
	}
}

// summarizeGroup summarizes the samples of one group. A group that cannot be
// summarized is logged and recorded in the report, and ok is false.
func summarizeGroup(report *schema.Report, label string, samples []schema.DurationSample) (summary schema.StatSummary, ok bool) {
	summary, err := agg.Summarize(samples)
	if err != nil {
		contract.LogWarn(fmt.Sprintf("Cannot summarize %s", label), err)
		report.FailedGroups = append(report.FailedGroups, label)
		return summary, false
	}
	return summary, true
}

// skipRecord counts a malformed record in the report.
func skipRecord(report *schema.Report, err error) {
	report.Skipped++
	contract.LogDebug("Skipping %v", err)
}

// workerLimit returns the configured worker count, at least one.
func workerLimit(cfg *contract.Config) int {
	return max(cfg.Workers, 1)
}
