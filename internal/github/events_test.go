package github

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/cistat/internal/iocache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeQuerier struct {
	mu       sync.Mutex
	calls    map[string]int
	payloads map[string][]json.RawMessage
	err      error
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{calls: map[string]int{}, payloads: map[string][]json.RawMessage{}}
}

func (f *fakeQuerier) QueryPayloads(_ context.Context, event, owner, repo string, created time.Time) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := memoKey(event, owner, repo, created)
	f.calls[key]++
	if f.err != nil {
		return nil, f.err
	}
	return f.payloads[event], nil
}

func (f *fakeQuerier) callCount(event, owner, repo string, created time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[memoKey(event, owner, repo, created)]
}

var created = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestListWorkflowRunsDecodesAndMemoizes(t *testing.T) {
	q := newFakeQuerier()
	q.payloads[workflowRunEvent] = []json.RawMessage{
		json.RawMessage(`{"action":"completed","workflow_run":{"id":1,"name":"CI","workflow_id":10,"run_number":5,"run_attempt":1,"conclusion":"success"}}`),
		json.RawMessage(`{"action":"completed","workflow_run":{"id":2,"name":"CI","workflow_id":10,"run_number":6}}`),
	}
	store := newEventsStore(q, nil, time.Hour)

	runs, err := store.ListWorkflowRuns(context.Background(), "acme", "api", created)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, int64(1), runs[0].ID)
	assert.Equal(t, 1, runs[1].Attempt())

	_, err = store.ListWorkflowRuns(context.Background(), "acme", "api", created)
	require.NoError(t, err)
	assert.Equal(t, 1, q.callCount(workflowRunEvent, "acme", "api", created))

	// A different window is a different query.
	_, err = store.ListWorkflowRuns(context.Background(), "acme", "api", created.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, q.callCount(workflowRunEvent, "acme", "api", created.Add(time.Hour)))
}

func TestListWorkflowRunsSkipsUndecodable(t *testing.T) {
	q := newFakeQuerier()
	q.payloads[workflowRunEvent] = []json.RawMessage{
		json.RawMessage(`{"workflow_run":{"id":1}}`),
		json.RawMessage(`{"workflow_job":{"id":2}}`),
		json.RawMessage(`{"workflow_run":null}`),
		json.RawMessage(`{"workflow_run":{"id":"not a number"}}`),
		json.RawMessage(`[]`),
	}
	store := newEventsStore(q, nil, time.Hour)

	runs, err := store.ListWorkflowRuns(context.Background(), "acme", "api", created)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(1), runs[0].ID)
}

func TestListJobsFiltersByRunAttempt(t *testing.T) {
	q := newFakeQuerier()
	q.payloads[workflowJobEvent] = []json.RawMessage{
		json.RawMessage(`{"workflow_job":{"id":100,"run_id":1,"run_attempt":1,"name":"build"}}`),
		json.RawMessage(`{"workflow_job":{"id":101,"run_id":1,"run_attempt":2,"name":"build"}}`),
		json.RawMessage(`{"workflow_job":{"id":102,"run_id":1,"name":"lint"}}`),
		json.RawMessage(`{"workflow_job":{"id":200,"run_id":2,"run_attempt":1,"name":"build"}}`),
	}
	store := newEventsStore(q, nil, time.Hour)
	ctx := context.Background()

	jobs, err := store.ListJobs(ctx, "acme", "api", created, 1, 1)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, int64(100), jobs[0].ID)
	assert.Equal(t, int64(102), jobs[1].ID)

	jobs, err = store.ListJobs(ctx, "acme", "api", created, 1, 2)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(101), jobs[0].ID)

	jobs, err = store.ListJobs(ctx, "acme", "api", created, 3, 1)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	assert.Equal(t, 1, q.callCount(workflowJobEvent, "acme", "api", created))
}

func TestListJobsConcurrentCallsShareQuery(t *testing.T) {
	q := newFakeQuerier()
	q.payloads[workflowJobEvent] = []json.RawMessage{
		json.RawMessage(`{"workflow_job":{"id":100,"run_id":1,"run_attempt":1}}`),
	}
	store := newEventsStore(q, nil, time.Hour)

	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			jobs, err := store.ListJobs(context.Background(), "acme", "api", created, 1, 1)
			assert.NoError(t, err)
			assert.Len(t, jobs, 1)
		})
	}
	wg.Wait()
	assert.Equal(t, 1, q.callCount(workflowJobEvent, "acme", "api", created))
}

func TestEventsStoreQueryError(t *testing.T) {
	q := newFakeQuerier()
	q.err = errors.New("connection refused")
	store := newEventsStore(q, nil, time.Hour)

	_, err := store.ListWorkflowRuns(context.Background(), "acme", "api", created)
	assert.ErrorContains(t, err, "connection refused")

	// Failures are not memoized.
	q.err = nil
	_, err = store.ListWorkflowRuns(context.Background(), "acme", "api", created)
	assert.NoError(t, err)
}

func TestEventsStoreCache(t *testing.T) {
	key := cacheKey(memoKey(workflowRunEvent, "acme", "api", created))
	cached, err := json.Marshal([]json.RawMessage{json.RawMessage(`{"workflow_run":{"id":7}}`)})
	require.NoError(t, err)

	t.Run("hit skips the database", func(t *testing.T) {
		q := newFakeQuerier()
		cache := &iocache.MockCacheStore{}
		cache.On("Get", key).Return(cached, currentCacheVersion, time.Now().Unix(), nil)
		store := newEventsStore(q, cache, time.Hour)

		runs, err := store.ListWorkflowRuns(context.Background(), "acme", "api", created)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, int64(7), runs[0].ID)
		assert.Zero(t, q.callCount(workflowRunEvent, "acme", "api", created))
		cache.AssertExpectations(t)
	})

	t.Run("stale entry is refetched and stored", func(t *testing.T) {
		q := newFakeQuerier()
		q.payloads[workflowRunEvent] = []json.RawMessage{json.RawMessage(`{"workflow_run":{"id":8}}`)}
		cache := &iocache.MockCacheStore{}
		stale := time.Now().Add(-2 * time.Hour).Unix()
		cache.On("Get", key).Return(cached, currentCacheVersion, stale, nil)
		cache.On("Set", key, mock.Anything, currentCacheVersion, mock.Anything).Return(nil)
		store := newEventsStore(q, cache, time.Hour)

		runs, err := store.ListWorkflowRuns(context.Background(), "acme", "api", created)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, int64(8), runs[0].ID)
		cache.AssertExpectations(t)
	})

	t.Run("version mismatch is a miss", func(t *testing.T) {
		q := newFakeQuerier()
		cache := &iocache.MockCacheStore{}
		cache.On("Get", key).Return(cached, currentCacheVersion+1, time.Now().Unix(), nil)
		cache.On("Set", key, mock.Anything, currentCacheVersion, mock.Anything).Return(errors.New("read only"))
		store := newEventsStore(q, cache, time.Hour)

		runs, err := store.ListWorkflowRuns(context.Background(), "acme", "api", created)
		require.NoError(t, err)
		assert.Empty(t, runs)
		assert.Equal(t, 1, q.callCount(workflowRunEvent, "acme", "api", created))
	})
}

func TestMemoKeyDistinct(t *testing.T) {
	keys := map[string]struct{}{}
	for _, k := range []string{
		memoKey(workflowRunEvent, "acme", "api", created),
		memoKey(workflowJobEvent, "acme", "api", created),
		memoKey(workflowRunEvent, "acme", "web", created),
		memoKey(workflowRunEvent, "other", "api", created),
		memoKey(workflowRunEvent, "acme", "api", created.Add(time.Second)),
	} {
		keys[k] = struct{}{}
	}
	assert.Len(t, keys, 5)
	assert.Len(t, cacheKey("x"), 64)
}
