// Package github reads GitHub Actions workflow runs and jobs, either from a
// PostgreSQL table of webhook events or from the GitHub REST API.
package github

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// currentCacheVersion defines the version of the cached payload format
const currentCacheVersion = 1

// payloadQuery selects the raw payloads of one event kind. The event name
// doubles as the payload key holding the record.
const payloadQuery = `
SELECT payload
FROM github_events
WHERE event = $1::text
  AND organization = $2
  AND repository = $3
  AND (payload -> $1::text ->> 'created_at')::timestamptz >= $4`

// payloadQuerier runs the payload query against the events table.
type payloadQuerier interface {
	QueryPayloads(ctx context.Context, event, owner, repo string, created time.Time) ([]json.RawMessage, error)
}

// poolQuerier is the pgxpool backed payloadQuerier.
type poolQuerier struct {
	pool *pgxpool.Pool
}

func (q poolQuerier) QueryPayloads(ctx context.Context, event, owner, repo string, created time.Time) ([]json.RawMessage, error) {
	rows, err := q.pool.Query(ctx, payloadQuery, event, owner, repo, created)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s events: %w", event, err)
	}
	payloads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (json.RawMessage, error) {
		var payload []byte
		if err := row.Scan(&payload); err != nil {
			return nil, err
		}
		return payload, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s events: %w", event, err)
	}
	return payloads, nil
}

// runAttempt identifies one attempt of a workflow run.
type runAttempt struct {
	runID   int64
	attempt int
}

// EventsStore is an EventSource over the github_events table. Payloads are
// memoized per (event, owner, repo, created) for the life of the store and
// persisted through the cache store when one is configured.
type EventsStore struct {
	querier payloadQuerier
	cache   contract.CacheStore
	ttl     time.Duration
	closeFn func()

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string][]json.RawMessage
	jobs  map[string]map[runAttempt][]schema.Job
}

var _ contract.EventSource = &EventsStore{} // Compile-time check

// NewEventsStore connects to the events database described by dsn.
// The cache store may be nil.
func NewEventsStore(ctx context.Context, dsn string, cache contract.CacheStore, ttl time.Duration) (*EventsStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open events database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to events database: %w", err)
	}
	store := newEventsStore(poolQuerier{pool: pool}, cache, ttl)
	store.closeFn = pool.Close
	return store, nil
}

func newEventsStore(querier payloadQuerier, cache contract.CacheStore, ttl time.Duration) *EventsStore {
	return &EventsStore{
		querier: querier,
		cache:   cache,
		ttl:     ttl,
		memo:    make(map[string][]json.RawMessage),
		jobs:    make(map[string]map[runAttempt][]schema.Job),
	}
}

// ListWorkflowRuns implements the EventSource interface.
func (s *EventsStore) ListWorkflowRuns(ctx context.Context, owner, repo string, created time.Time) ([]schema.WorkflowRun, error) {
	contract.LogDebug("listWorkflowRuns(%s, %s, %s)", owner, repo, created.UTC().Format(time.RFC3339))
	payloads, err := s.payloads(ctx, workflowRunEvent, owner, repo, created)
	if err != nil {
		return nil, err
	}
	return decodePayloads[schema.WorkflowRun](workflowRunEvent, payloads), nil
}

// ListJobs implements the EventSource interface. The job payloads of the whole
// window are read once and indexed by run attempt.
func (s *EventsStore) ListJobs(ctx context.Context, owner, repo string, created time.Time, runID int64, attempt int) ([]schema.Job, error) {
	contract.LogDebug("listJobs(%s, %s, %d, %d)", owner, repo, runID, attempt)
	key := memoKey(workflowJobEvent, owner, repo, created)

	s.mu.Lock()
	index, ok := s.jobs[key]
	s.mu.Unlock()
	if !ok {
		v, err, _ := s.group.Do("index:"+key, func() (any, error) {
			payloads, err := s.payloads(ctx, workflowJobEvent, owner, repo, created)
			if err != nil {
				return nil, err
			}
			built := make(map[runAttempt][]schema.Job)
			for _, job := range decodePayloads[schema.Job](workflowJobEvent, payloads) {
				k := runAttempt{runID: job.RunID, attempt: job.Attempt()}
				built[k] = append(built[k], job)
			}
			s.mu.Lock()
			s.jobs[key] = built
			s.mu.Unlock()
			return built, nil
		})
		if err != nil {
			return nil, err
		}
		index = v.(map[runAttempt][]schema.Job)
	}
	return slices.Clone(index[runAttempt{runID: runID, attempt: attempt}]), nil
}

// Close implements the EventSource interface.
func (s *EventsStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// payloads returns the memoized payloads for one query, reading through the
// cache store and then the database on a miss. Concurrent callers of the same
// query share one database round trip.
func (s *EventsStore) payloads(ctx context.Context, event, owner, repo string, created time.Time) ([]json.RawMessage, error) {
	key := memoKey(event, owner, repo, created)

	s.mu.Lock()
	payloads, ok := s.memo[key]
	s.mu.Unlock()
	if ok {
		return payloads, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		if cached, ok := s.checkCacheHit(key); ok {
			s.remember(key, cached)
			return cached, nil
		}
		fetched, err := s.querier.QueryPayloads(ctx, event, owner, repo, created)
		if err != nil {
			return nil, err
		}
		s.store(key, fetched)
		s.remember(key, fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]json.RawMessage), nil
}

func (s *EventsStore) remember(key string, payloads []json.RawMessage) {
	s.mu.Lock()
	s.memo[key] = payloads
	s.mu.Unlock()
}

// checkCacheHit attempts to retrieve and validate cached payloads
func (s *EventsStore) checkCacheHit(key string) ([]json.RawMessage, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, version, ts, err := s.cache.Get(cacheKey(key))
	if err != nil {
		return nil, false // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > s.ttl {
		return nil, false
	}
	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, false
	}
	return payloads, true
}

// store persists fetched payloads. Cache write failures never fail a query.
func (s *EventsStore) store(key string, payloads []json.RawMessage) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(payloads)
	if err != nil {
		return
	}
	if err := s.cache.Set(cacheKey(key), data, currentCacheVersion, time.Now().Unix()); err != nil {
		contract.LogWarn("Failed to cache events", err)
	}
}

// memoKey identifies one payload query. Distinct parameters never share a key.
func memoKey(event, owner, repo string, created time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s", event, owner, repo, created.UTC().Format(time.RFC3339Nano))
}

// cacheKey hashes a memo key into a fixed-length cache key.
func cacheKey(key string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
