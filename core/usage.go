package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
)

// ExecuteUsageReport summarizes a directory of CircleCI resource usage
// exports and writes the result. It serves as the main entry point for the
// 'usage' command.
func ExecuteUsageReport(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	return runReport(ctx, cfg, mgr, usageSource, cfg.UsageDir, func(context.Context) (*schema.Report, error) {
		return BuildUsageReport(cfg.UsageDir)
	})
}

// BuildUsageReport reads every export in dir. Files are named
// "<org> <project> <workflow>.json" and yield one row per job usage.
func BuildUsageReport(dir string) (*schema.Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resource usage directory: %w", err)
	}

	report := &schema.Report{Title: "CircleCI resource usage in " + dir}
	section := report.AddSection("")
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		rows, err := readUsageFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			section.Rows = append(section.Rows, row)
		}
	}
	return report, nil
}

func readUsageFile(path string) ([]schema.ResourceUsageRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var usage schema.ResourceUsage
	if err := json.Unmarshal(data, &usage); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	org, project, workflow := parseUsageFileName(filepath.Base(path))
	rows := make([]schema.ResourceUsageRow, 0, len(usage.JobUsages))
	for _, job := range usage.JobUsages {
		rows = append(rows, schema.ResourceUsageRow{
			Org:       org,
			Project:   project,
			Workflow:  workflow,
			JobName:   job.JobName,
			Usage:     job.Usage,
			Executors: jobExecutors(usage.JobTimeSeriesUsages, job.JobName),
		})
	}
	return rows, nil
}

// parseUsageFileName splits "<org> <project> <workflow>.json". Missing parts
// are empty.
func parseUsageFileName(name string) (org, project, workflow string) {
	base, _, _ := strings.Cut(name, ".")
	parts := strings.Split(base, " ")
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}

// jobExecutors returns the distinct (size, executor) pairs of the first time
// series of a job, in order of first use.
func jobExecutors(series []schema.JobTimeSeries, jobName string) []schema.UsageExecutor {
	executors := []schema.UsageExecutor{}
	for _, ts := range series {
		if ts.JobName != jobName {
			continue
		}
		seen := make(map[schema.UsageExecutor]struct{})
		for _, sample := range ts.Usage {
			e := schema.UsageExecutor{Size: sample.Size, Executor: sample.Executor}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			executors = append(executors, e)
		}
		break
	}
	return executors
}
