package retrieval

import (
	"context"
	"strings"
	"testing"

	"sec-rag-agent/internal/types"
)

type fakeSearcher struct {
	lastQuery types.SearchQuery
	passages  []types.Passage
	err       error
}

func (f *fakeSearcher) Search(ctx context.Context, q types.SearchQuery) ([]types.Passage, error) {
	f.lastQuery = q
	return f.passages, f.err
}

func TestQueryDocumentsFilters(t *testing.T) {
	fake := &fakeSearcher{passages: []types.Passage{{Text: "revenue grew", SourceID: "doc1"}}}
	r := NewDocumentRetriever(fake)

	passages, err := r.QueryDocuments(context.Background(), "AAPL", "revenue growth", "10-K", 3)
	if err != nil {
		t.Fatalf("QueryDocuments failed: %v", err)
	}
	if len(passages) != 1 {
		t.Fatalf("Expected 1 passage, got %d", len(passages))
	}

	if fake.lastQuery.Filters["ticker"] != "AAPL" {
		t.Errorf("Expected ticker filter, got %v", fake.lastQuery.Filters)
	}
	if fake.lastQuery.Filters["formType"] != "10-K" {
		t.Errorf("Expected formType filter, got %v", fake.lastQuery.Filters)
	}
	if fake.lastQuery.Limit != 3 {
		t.Errorf("Expected limit 3, got %d", fake.lastQuery.Limit)
	}
}

func TestQueryNewsFilters(t *testing.T) {
	fake := &fakeSearcher{}
	r := NewDocumentRetriever(fake)

	if _, err := r.QueryNews(context.Background(), "MSFT", "recent news", 10); err != nil {
		t.Fatalf("QueryNews failed: %v", err)
	}

	if fake.lastQuery.Filters["chunk_type"] != "news" {
		t.Errorf("Expected chunk_type filter, got %v", fake.lastQuery.Filters)
	}
	if _, ok := fake.lastQuery.Filters["formType"]; ok {
		t.Error("News query must not filter on formType")
	}
}

func TestContextBlockEmpty(t *testing.T) {
	if got := ContextBlock(nil, 1000); got != "No relevant content found" {
		t.Errorf("Unexpected empty-corpus context: %q", got)
	}
}

func TestContextBlockDeduplicatesSources(t *testing.T) {
	passages := []types.Passage{
		{Text: "first", SourceID: "doc1"},
		{Text: "duplicate", SourceID: "doc1"},
		{Text: "second", SourceID: "doc2"},
	}
	got := ContextBlock(passages, 1000)
	if got != "first\n\nsecond" {
		t.Errorf("Expected deduplicated context, got %q", got)
	}
}

func TestContextBlockTruncates(t *testing.T) {
	passages := []types.Passage{{Text: strings.Repeat("a", 200), SourceID: "doc1"}}
	got := ContextBlock(passages, 100)

	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("Expected truncation marker on oversized context")
	}
	if len(got) != 100+len(truncationMarker) {
		t.Errorf("Expected 100 content chars plus marker, got %d total", len(got))
	}
}

func TestNewsContextBlockFormat(t *testing.T) {
	passages := []types.Passage{
		{Text: "earnings beat", SourceID: "n1", Title: "Q3 Results", Date: "2025-08-01"},
		{Text: "guidance cut", SourceID: "n2"},
	}
	got := NewsContextBlock(passages)

	if !strings.Contains(got, "TITLE: Q3 Results") {
		t.Errorf("Expected title line, got %q", got)
	}
	if !strings.Contains(got, "DATE: 2025-08-01") {
		t.Errorf("Expected date line, got %q", got)
	}
	if !strings.Contains(got, "TITLE: No title") || !strings.Contains(got, "DATE: No date") {
		t.Error("Expected placeholders for missing metadata")
	}
	if !strings.Contains(got, strings.Repeat("=", 50)) {
		t.Error("Expected separator between articles")
	}

	if NewsContextBlock(nil) != "No news found" {
		t.Error("Unexpected empty-news context")
	}
}

func TestSourceIDs(t *testing.T) {
	passages := []types.Passage{
		{SourceID: "b"},
		{SourceID: "a"},
		{SourceID: "b"},
		{SourceID: ""},
	}
	got := SourceIDs(passages)
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Errorf("Expected first-seen order [b a], got %v", got)
	}
}
