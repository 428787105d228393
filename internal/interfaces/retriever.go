package interfaces

import (
	"context"

	"sec-rag-agent/internal/types"
)

// Retriever scopes index queries to a ticker and a document partition.
type Retriever interface {
	// QueryDocuments searches SEC filing chunks of the given form type
	// (10-K or 10-Q) for one query string.
	QueryDocuments(ctx context.Context, ticker, query, formType string, limit int) ([]types.Passage, error)
	// QueryNews searches news chunks; passages carry title and date metadata.
	QueryNews(ctx context.Context, ticker, query string, limit int) ([]types.Passage, error)
}
