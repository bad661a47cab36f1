package algo

import (
	"testing"
	"time"

	"github.com/huangsam/cistat/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type rec struct {
	id  string
	at  int
	tag string
}

func dedupeRecs(in []rec) []rec {
	return Dedupe(in,
		func(r rec) string { return r.id },
		func(r rec) Timestamp { return Timestamp(base.Add(time.Duration(r.at) * time.Minute)) },
	)
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name     string
		input    []rec
		expected []rec
	}{
		{
			name:     "empty input",
			input:    nil,
			expected: []rec{},
		},
		{
			name:     "distinct identities sorted by recency",
			input:    []rec{{"a", 3, ""}, {"b", 1, ""}, {"c", 2, ""}},
			expected: []rec{{"b", 1, ""}, {"c", 2, ""}, {"a", 3, ""}},
		},
		{
			name:     "keeps greatest recency",
			input:    []rec{{"a", 1, "old"}, {"a", 5, "new"}, {"a", 3, "mid"}},
			expected: []rec{{"a", 5, "new"}},
		},
		{
			name:     "tie goes to the last record in input order",
			input:    []rec{{"a", 2, "first"}, {"a", 2, "second"}},
			expected: []rec{{"a", 2, "second"}},
		},
		{
			name:     "equal recency keeps first appearance order",
			input:    []rec{{"b", 1, ""}, {"a", 1, ""}, {"b", 1, "again"}},
			expected: []rec{{"b", 1, "again"}, {"a", 1, ""}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, dedupeRecs(tt.input))
		})
	}
}

func TestDedupeIdempotent(t *testing.T) {
	input := []rec{{"a", 4, "x"}, {"b", 2, ""}, {"a", 1, "y"}, {"c", 9, ""}, {"b", 2, "z"}}
	once := dedupeRecs(input)
	assert.Equal(t, once, dedupeRecs(once))
}

func TestDedupeDoesNotMutateInput(t *testing.T) {
	input := []rec{{"a", 3, ""}, {"a", 1, ""}, {"b", 2, ""}}
	snapshot := append([]rec(nil), input...)
	_ = dedupeRecs(input)
	assert.Equal(t, snapshot, input)
}

func TestAttemptRecencyCompare(t *testing.T) {
	early := AttemptRecency{Attempt: 1, UpdatedAt: base.Add(time.Hour)}
	late := AttemptRecency{Attempt: 2, UpdatedAt: base}
	assert.Equal(t, -1, early.Compare(late))
	assert.Equal(t, 1, late.Compare(early))
	assert.Equal(t, 0, early.Compare(early))
	assert.Equal(t, 1, AttemptRecency{1, base.Add(time.Minute)}.Compare(AttemptRecency{1, base}))
}

func run(id int64, number, attempt int, updated time.Duration, conclusion string) schema.WorkflowRun {
	return schema.WorkflowRun{
		ID:         id,
		RunNumber:  number,
		RunAttempt: attempt,
		Conclusion: conclusion,
		CreatedAt:  base,
		UpdatedAt:  base.Add(updated),
	}
}

func TestLatestAttempt(t *testing.T) {
	t.Run("keeps highest attempt even when updated earlier", func(t *testing.T) {
		runs := []schema.WorkflowRun{
			run(1, 10, 2, time.Minute, "success"),
			run(1, 10, 1, time.Hour, "failure"),
		}
		out := LatestAttempt(runs)
		require.Len(t, out, 1)
		assert.Equal(t, 2, out[0].RunAttempt)
		assert.Equal(t, "success", out[0].Conclusion)
	})

	t.Run("collapses redelivered webhooks of one attempt", func(t *testing.T) {
		runs := []schema.WorkflowRun{
			run(1, 10, 1, time.Minute, ""),
			run(1, 10, 1, 5*time.Minute, "failure"),
			run(2, 11, 1, 2*time.Minute, "success"),
		}
		out := LatestAttempt(runs)
		require.Len(t, out, 2)
		assert.Equal(t, int64(2), out[0].ID)
		assert.Equal(t, int64(1), out[1].ID)
		assert.Equal(t, "failure", out[1].Conclusion)
	})

	t.Run("missing attempt counts as the first", func(t *testing.T) {
		runs := []schema.WorkflowRun{
			run(1, 10, 0, time.Hour, "failure"),
			run(1, 10, 2, time.Minute, "success"),
		}
		out := LatestAttempt(runs)
		require.Len(t, out, 1)
		assert.Equal(t, 2, out[0].RunAttempt)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, LatestAttempt(nil))
	})
}

func TestLatestJobs(t *testing.T) {
	jobs := []schema.Job{
		{ID: 7, RunID: 1, RunAttempt: 1, Status: "in_progress", StartedAt: base},
		{ID: 7, RunID: 1, RunAttempt: 1, Status: "completed", StartedAt: base, CompletedAt: base.Add(time.Minute)},
		{ID: 7, RunID: 1, RunAttempt: 2, Status: "queued", CreatedAt: base.Add(-time.Minute)},
		{ID: 8, RunID: 1, RunAttempt: 1, Status: "completed", StartedAt: base, CompletedAt: base.Add(2 * time.Minute)},
	}
	out := LatestJobs(jobs)
	require.Len(t, out, 3)

	assert.Equal(t, 2, out[0].RunAttempt) // created before the others started
	assert.Equal(t, "completed", out[1].Status)
	assert.Equal(t, int64(7), out[1].ID)
	assert.Equal(t, int64(8), out[2].ID)
}

func TestJobRecency(t *testing.T) {
	assert.Equal(t, base, JobRecency(schema.Job{CreatedAt: base}))
	assert.Equal(t, base.Add(time.Minute), JobRecency(schema.Job{CreatedAt: base, StartedAt: base.Add(time.Minute)}))
	assert.Equal(t, base.Add(time.Hour), JobRecency(schema.Job{CreatedAt: base, StartedAt: base.Add(time.Minute), CompletedAt: base.Add(time.Hour)}))
}

func TestGroupBy(t *testing.T) {
	groups := GroupBy([]string{"apple", "bean", "avocado", "corn", "beet"}, func(s string) byte { return s[0] })
	require.Len(t, groups, 3)
	assert.Equal(t, byte('a'), groups[0].Key)
	assert.Equal(t, []string{"apple", "avocado"}, groups[0].Records)
	assert.Equal(t, []string{"bean", "beet"}, groups[1].Records)
	assert.Equal(t, []string{"corn"}, groups[2].Records)
	assert.Empty(t, GroupBy([]string{}, func(s string) string { return s }))
}

func FuzzDedupeIdempotent(f *testing.F) {
	f.Add([]byte{1, 2, 1, 3, 2})
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		var input []rec
		for i, b := range data {
			input = append(input, rec{id: string(rune('a' + b%5)), at: int(b % 7), tag: string(rune('A' + i%26))})
		}
		once := dedupeRecs(input)
		assert.Equal(t, once, dedupeRecs(once))
		for i := 1; i < len(once); i++ {
			assert.LessOrEqual(t, once[i-1].at, once[i].at)
		}
	})
}
