// Package algo has the record reduction algorithms applied before aggregation.
package algo

import (
	"slices"
	"time"

	"github.com/huangsam/cistat/schema"
)

// Recency is an ordering on records that share an identity.
type Recency[R any] interface {
	Compare(other R) int
}

// Timestamp orders records by a single point in time.
type Timestamp time.Time

// Compare implements Recency.
func (t Timestamp) Compare(other Timestamp) int {
	return time.Time(t).Compare(time.Time(other))
}

// AttemptRecency orders workflow runs by attempt number, then by last update.
type AttemptRecency struct {
	Attempt   int
	UpdatedAt time.Time
}

// Compare implements Recency.
func (a AttemptRecency) Compare(other AttemptRecency) int {
	if a.Attempt != other.Attempt {
		if a.Attempt < other.Attempt {
			return -1
		}
		return 1
	}
	return a.UpdatedAt.Compare(other.UpdatedAt)
}

// Dedupe keeps one record per identity: the one with the greatest recency.
// A record whose recency is equal to the stored one replaces it, so on ties
// the last record in input order wins. The result is sorted ascending by
// recency; records with equal recency keep the order in which their identity
// first appeared. Dedupe never mutates its input.
func Dedupe[T any, K comparable, R Recency[R]](records []T, identityOf func(T) K, recencyOf func(T) R) []T {
	type entry struct {
		record  T
		recency R
	}
	index := make(map[K]int, len(records))
	entries := make([]entry, 0, len(records))

	for _, rec := range records {
		id := identityOf(rec)
		rc := recencyOf(rec)
		if i, ok := index[id]; ok {
			if rc.Compare(entries[i].recency) >= 0 {
				entries[i] = entry{record: rec, recency: rc}
			}
			continue
		}
		index[id] = len(entries)
		entries = append(entries, entry{record: rec, recency: rc})
	}

	slices.SortStableFunc(entries, func(a, b entry) int {
		return a.recency.Compare(b.recency)
	})

	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.record
	}
	return out
}

// AttemptKey identifies one attempt of a workflow run.
type AttemptKey struct {
	RunID     int64
	RunNumber int
	Attempt   int
}

// RunKey identifies a workflow run across its attempts.
type RunKey struct {
	RunID     int64
	RunNumber int
}

// JobKey identifies a job within one attempt of a workflow run.
type JobKey struct {
	RunID   int64
	Attempt int
	JobID   int64
}

// LatestAttempt collapses workflow runs delivered more than once into their
// latest state per attempt, then keeps only the latest attempt of each run.
func LatestAttempt(runs []schema.WorkflowRun) []schema.WorkflowRun {
	perAttempt := Dedupe(runs,
		func(r schema.WorkflowRun) AttemptKey { return AttemptKey{r.ID, r.RunNumber, r.Attempt()} },
		func(r schema.WorkflowRun) Timestamp { return Timestamp(r.UpdatedAt) },
	)
	return Dedupe(perAttempt,
		func(r schema.WorkflowRun) RunKey { return RunKey{r.ID, r.RunNumber} },
		func(r schema.WorkflowRun) AttemptRecency { return AttemptRecency{r.Attempt(), r.UpdatedAt} },
	)
}

// LatestJobs keeps the most recent state of every job.
func LatestJobs(jobs []schema.Job) []schema.Job {
	return Dedupe(jobs,
		func(j schema.Job) JobKey { return JobKey{j.RunID, j.Attempt(), j.ID} },
		func(j schema.Job) Timestamp { return Timestamp(JobRecency(j)) },
	)
}

// JobRecency is completed_at, else started_at, else created_at.
func JobRecency(j schema.Job) time.Time {
	switch {
	case !j.CompletedAt.IsZero():
		return j.CompletedAt
	case !j.StartedAt.IsZero():
		return j.StartedAt
	default:
		return j.CreatedAt
	}
}
