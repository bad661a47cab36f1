package paged

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagesFetcher serves fixed pages keyed by the token that requests them.
func pagesFetcher(pages map[string]Page[int], calls *[]string) FetchFunc[int] {
	return func(_ context.Context, token string) (Page[int], error) {
		*calls = append(*calls, token)
		p, ok := pages[token]
		if !ok {
			return Page[int]{}, errors.New("unknown token " + token)
		}
		return p, nil
	}
}

func TestFetchAll(t *testing.T) {
	t.Run("single page", func(t *testing.T) {
		var calls []string
		items, err := FetchAll(context.Background(), pagesFetcher(map[string]Page[int]{
			"": {Items: []int{1, 2}},
		}, &calls))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, items)
		assert.Equal(t, []string{""}, calls)
	})

	t.Run("follows tokens in order", func(t *testing.T) {
		var calls []string
		items, err := FetchAll(context.Background(), pagesFetcher(map[string]Page[int]{
			"":   {Items: []int{1, 2}, NextToken: "p2"},
			"p2": {Items: []int{3}, NextToken: "p3"},
			"p3": {Items: []int{4, 5}},
		}, &calls))
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
		assert.Equal(t, []string{"", "p2", "p3"}, calls)
	})

	t.Run("empty pages still advance", func(t *testing.T) {
		var calls []string
		items, err := FetchAll(context.Background(), pagesFetcher(map[string]Page[int]{
			"":   {NextToken: "p2"},
			"p2": {},
		}, &calls))
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.NotNil(t, items)
		assert.Len(t, calls, 2)
	})

	t.Run("page error aborts without partial results", func(t *testing.T) {
		var calls []string
		items, err := FetchAll(context.Background(), pagesFetcher(map[string]Page[int]{
			"": {Items: []int{1}, NextToken: "missing"},
		}, &calls))
		require.Error(t, err)
		assert.Nil(t, items)
		assert.Contains(t, err.Error(), "page 2")
	})

	t.Run("repeated token is an error", func(t *testing.T) {
		var calls []string
		_, err := FetchAll(context.Background(), pagesFetcher(map[string]Page[int]{
			"":  {Items: []int{1}, NextToken: "a"},
			"a": {Items: []int{2}, NextToken: "a"},
		}, &calls))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "repeated continuation token")
	})

	t.Run("canceled context stops before fetching", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		var calls []string
		_, err := FetchAll(ctx, pagesFetcher(map[string]Page[int]{"": {}}, &calls))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, calls)
	})
}
