package interfaces

import (
	"context"

	"sec-rag-agent/internal/types"
)

// Searcher issues one semantic query against the vector index and returns
// passages ordered by descending relevance. An empty corpus yields an empty
// slice, not an error.
type Searcher interface {
	Search(ctx context.Context, q types.SearchQuery) ([]types.Passage, error)
}
