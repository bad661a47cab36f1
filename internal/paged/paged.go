// Package paged drains token-paginated upstream listings.
package paged

import (
	"context"
	"fmt"
)

// Page is one page of an upstream listing. An empty NextToken marks the last page.
type Page[T any] struct {
	Items     []T
	NextToken string
}

// FetchFunc requests the page identified by token. The first request uses "".
type FetchFunc[T any] func(ctx context.Context, token string) (Page[T], error)

// FetchAll requests pages one at a time, passing each page's continuation token
// to the next request, until a page arrives without a token. Items are returned
// in page order. Any page error aborts the listing and no partial result is returned.
func FetchAll[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	var (
		items []T
		token string
		seen  = make(map[string]struct{})
	)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := fetch(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}
		items = append(items, p.Items...)

		if p.NextToken == "" {
			break
		}
		// An upstream that hands back a token twice would never terminate.
		if _, ok := seen[p.NextToken]; ok {
			return nil, fmt.Errorf("page %d repeated continuation token %q", page, p.NextToken)
		}
		seen[p.NextToken] = struct{}{}
		token = p.NextToken
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
