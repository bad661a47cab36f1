// Package agg reduces groups of timed outcomes to statistical summaries.
package agg

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/huangsam/cistat/schema"
)

// ErrEmptyInput is returned when a group has no samples to summarize.
var ErrEmptyInput = errors.New("no samples to summarize")

// ErrInvalidSample is returned when a sample has a negative or non-finite duration.
var ErrInvalidSample = errors.New("invalid duration sample")

// Summarize computes the fixed summary of a group of samples. Percentiles use
// the nearest-rank rule on the ascending durations: the median is the element
// at index n/2 and p95 the element at index floor(n*0.95), clamped to n-1.
// Neither is interpolated. The result does not depend on the order of samples.
func Summarize(samples []schema.DurationSample) (schema.StatSummary, error) {
	n := len(samples)
	if n == 0 {
		return schema.StatSummary{}, ErrEmptyInput
	}

	durations := make([]float64, n)
	successful := 0
	start, end := samples[0].OccurredAt, samples[0].OccurredAt
	for i, s := range samples {
		if math.IsNaN(s.Duration) || math.IsInf(s.Duration, 0) || s.Duration < 0 {
			return schema.StatSummary{}, fmt.Errorf("%w: sample %d has duration %v", ErrInvalidSample, i, s.Duration)
		}
		durations[i] = s.Duration
		if s.Succeeded {
			successful++
		}
		if s.OccurredAt.Before(start) {
			start = s.OccurredAt
		}
		if s.OccurredAt.After(end) {
			end = s.OccurredAt
		}
	}
	slices.Sort(durations)

	total := 0.0
	for _, d := range durations {
		total += d
	}
	mean := total / float64(n)

	variance := 0.0
	for _, d := range durations {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(n)

	p95 := int(math.Floor(float64(n) * 0.95))
	if p95 > n-1 {
		p95 = n - 1
	}

	return schema.StatSummary{
		TotalRuns:      n,
		SuccessfulRuns: successful,
		FailedRuns:     n - successful,
		SuccessRate:    float64(successful) / float64(n),
		DurationMetrics: schema.DurationMetrics{
			Min:               durations[0],
			Mean:              mean,
			Median:            durations[n/2],
			P95:               durations[p95],
			Max:               durations[n-1],
			StandardDeviation: math.Sqrt(variance),
			TotalDuration:     total,
		},
		WindowStart: start,
		WindowEnd:   end,
		Throughput:  float64(n) / WindowDays(start, end),
	}, nil
}

// WindowDays is the number of days spanned by a window, counting a partial
// day as a fraction and never less than one.
func WindowDays(start, end time.Time) float64 {
	return end.Sub(start).Hours()/24 + 1
}
