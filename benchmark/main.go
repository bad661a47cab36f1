// Package main measures how much the page cache speeds up the cistat github
// report. Every repository is reported several times with caching disabled and
// then with the SQLite cache, the first cached run being the cold one.
//
// Prerequisites:
// - cistat binary installed and available in PATH
// - GITHUB_TOKEN set to a token that can read the repositories
//
// Usage: go run benchmark/main.go owner/repo [owner/repo ...]
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Repository  string
	Days        int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Repos       []string
	Days        []int
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
}

func main() {
	if len(os.Args) < 2 {
		fmt.Printf("Usage: %s owner/repo [owner/repo ...]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		Repos:       os.Args[1:],
		Days:        []int{7, 30},
		Timeout:     10 * time.Minute,
		Workers:     8,
		NoCacheRuns: 2,
		CacheRuns:   4,
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	if output, err := exec.Command("cistat", "cache", "clear").CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies the cistat binary, the token and the repository names.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("cistat"); err != nil {
		return errors.New("cistat binary not found in PATH")
	}
	if os.Getenv("GITHUB_TOKEN") == "" {
		return errors.New("GITHUB_TOKEN is not set")
	}
	for _, repo := range config.Repos {
		if owner, name, ok := strings.Cut(repo, "/"); !ok || owner == "" || name == "" {
			return fmt.Errorf("repository %q is not of the form owner/repo", repo)
		}
	}
	return nil
}

// runBenchmarks executes the benchmark of every repository and window.
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Repos), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, repo := range config.Repos {
		for _, days := range config.Days {
			results = append(results, runBenchmarkSuite(config, repo, days))
		}
	}
	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for one repository and window.
func runBenchmarkSuite(config BenchmarkConfig, repo string, days int) BenchmarkResult {
	fmt.Printf("Benchmarking %s over %d days\n", repo, days)

	noCache := runBenchmark(config, repo, days, "none", config.NoCacheRuns)
	cached := runBenchmark(config, repo, days, "sqlite", config.CacheRuns)

	result := BenchmarkResult{
		Repository:  repo,
		Days:        days,
		NoCacheTime: average(noCache),
		ColdTime:    "TIMEOUT",
		WarmTime:    "TIMEOUT",
	}
	if len(cached) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", cached[0])
		result.WarmTime = average(cached[1:])
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", result.NoCacheTime, result.ColdTime, result.WarmTime)
	return result
}

// runBenchmark runs the github report numRuns times and returns the times of
// the runs that succeeded within the timeout.
func runBenchmark(config BenchmarkConfig, repo string, days int, cacheBackend string, numRuns int) []float64 {
	owner, name, _ := strings.Cut(repo, "/")
	args := []string{
		"github",
		"--owner", owner,
		"--repo", name,
		"--source", "api",
		"--days", fmt.Sprint(days),
		"--workers", fmt.Sprint(config.Workers),
		"--cache-backend", cacheBackend,
		"--output", "json",
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "cistat", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err != nil {
			fmt.Printf("  run failed: %v\n%s\n", err, lastLines(string(output), 5))
			continue
		}
		times = append(times, elapsed)
	}
	return times
}

func average(times []float64) string {
	if len(times) == 0 {
		return "TIMEOUT"
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return fmt.Sprintf("%.3fs", sum/float64(len(times)))
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/cistat_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"repo", "days", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		record := []string{result.Repository, fmt.Sprint(result.Days), result.NoCacheTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-30s %3dd: No-cache: %s, Cold: %s, Warm: %s\n",
			result.Repository, result.Days, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
