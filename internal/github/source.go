package github

import (
	"context"
	"fmt"

	"github.com/huangsam/cistat/internal/contract"
	"github.com/huangsam/cistat/schema"
)

// NewEventSource opens the GitHub Actions source selected by cfg. The cache
// store backs the events source and may be nil.
func NewEventSource(ctx context.Context, cfg *contract.Config, cache contract.CacheStore) (contract.EventSource, error) {
	switch cfg.Source {
	case schema.EventsSource:
		store, err := NewEventsStore(ctx, cfg.EventsDSN, cache, cfg.CacheTTL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case schema.APISource:
		return NewRESTClient(cfg.GitHubToken, WithBaseURL(cfg.GitHubAPIURL)), nil
	default:
		return nil, fmt.Errorf("unsupported source: %s", cfg.Source)
	}
}
