package retrieval

import (
	"context"
	"strings"

	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/types"
)

// Filter keys stored in chunk metadata at ingestion time.
const (
	filterTicker    = "ticker"
	filterFormType  = "formType"
	filterChunkType = "chunk_type"

	chunkTypeNews = "news"
)

// DocumentRetriever scopes vector index queries to a ticker and a document
// partition (annual filings, quarterly filings, news).
type DocumentRetriever struct {
	searcher interfaces.Searcher
}

func NewDocumentRetriever(searcher interfaces.Searcher) *DocumentRetriever {
	return &DocumentRetriever{searcher: searcher}
}

// QueryDocuments searches SEC filing chunks of the given form type.
func (r *DocumentRetriever) QueryDocuments(ctx context.Context, ticker, query, formType string, limit int) ([]types.Passage, error) {
	passages, err := r.searcher.Search(ctx, types.SearchQuery{
		Text:  query,
		Limit: limit,
		Filters: map[string]string{
			filterTicker:   ticker,
			filterFormType: formType,
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "Retrieved filing passages", "ticker", ticker, "form_type", formType, "count", len(passages))
	return passages, nil
}

// QueryNews searches news chunks for the ticker.
func (r *DocumentRetriever) QueryNews(ctx context.Context, ticker, query string, limit int) ([]types.Passage, error) {
	passages, err := r.searcher.Search(ctx, types.SearchQuery{
		Text:  query,
		Limit: limit,
		Filters: map[string]string{
			filterTicker:    ticker,
			filterChunkType: chunkTypeNews,
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "Retrieved news passages", "ticker", ticker, "count", len(passages))
	return passages, nil
}

const truncationMarker = "\n\n[Content truncated due to length...]"

// ContextBlock joins passages into one prompt context, dropping duplicate
// source documents and truncating at maxChars. Order is preserved, so the
// most relevant passage of each query plan stays first.
func ContextBlock(passages []types.Passage, maxChars int) string {
	if len(passages) == 0 {
		return "No relevant content found"
	}

	seen := make(map[string]bool, len(passages))
	parts := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.Text == "" {
			continue
		}
		if p.SourceID != "" {
			if seen[p.SourceID] {
				continue
			}
			seen[p.SourceID] = true
		}
		parts = append(parts, p.Text)
	}

	full := strings.Join(parts, "\n\n")
	if maxChars > 0 && len(full) > maxChars {
		full = full[:maxChars] + truncationMarker
	}
	return full
}

// NewsContextBlock formats news passages with their title and date metadata
// so the model can weigh recency.
func NewsContextBlock(passages []types.Passage) string {
	if len(passages) == 0 {
		return "No news found"
	}

	var b strings.Builder
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("=", 50) + "\n")
		}
		title := p.Title
		if title == "" {
			title = "No title"
		}
		date := p.Date
		if date == "" {
			date = "No date"
		}
		b.WriteString("TITLE: " + title + "\n")
		b.WriteString("DATE: " + date + "\n")
		b.WriteString("CONTENT: " + p.Text + "\n")
	}
	return b.String()
}

// SourceIDs returns the distinct source document IDs across passages, in
// first-seen order. Used for retrieval detail reporting.
func SourceIDs(passages []types.Passage) []string {
	seen := make(map[string]bool, len(passages))
	ids := make([]string, 0, len(passages))
	for _, p := range passages {
		if p.SourceID == "" || seen[p.SourceID] {
			continue
		}
		seen[p.SourceID] = true
		ids = append(ids, p.SourceID)
	}
	return ids
}
