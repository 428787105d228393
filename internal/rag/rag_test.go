package rag

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/prompt"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/types"
)

type fakeSearcher struct {
	passages  []types.Passage
	lastQuery types.SearchQuery
	err       error
}

func (f *fakeSearcher) Search(ctx context.Context, q types.SearchQuery) ([]types.Passage, error) {
	f.lastQuery = q
	return f.passages, f.err
}

// fakeCompleter answers plain completions; add streaming with fakeStreamer.
type fakeCompleter struct {
	response   string
	lastSystem string
}

func (f *fakeCompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	f.lastSystem = req.System
	return f.response, nil
}

type fakeStreamer struct {
	fakeCompleter
	deltas []string
}

func (f *fakeStreamer) CompleteStream(ctx context.Context, req types.CompletionRequest, emit func(delta string) error) error {
	f.lastSystem = req.System
	for _, d := range f.deltas {
		if err := emit(d); err != nil {
			return err
		}
	}
	return nil
}

func testService(t *testing.T, searcher *fakeSearcher, completer interfaces.Completer) *Service {
	t.Helper()
	dir := t.TempDir()
	content := "Context:\n{context}\n\nQuestion: {query}"
	if err := os.WriteFile(filepath.Join(dir, promptResponse+".md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &store.Config{}
	cfg.Retrieval.NewsLimit = 10
	cfg.Retrieval.MaxContextChars = 15000
	cfg.LLM.MaxTokens = 4096

	return NewService(searcher, completer, prompt.NewManager(dir), cfg)
}

func TestAnswer(t *testing.T) {
	searcher := &fakeSearcher{passages: []types.Passage{
		{Text: "revenue grew 12%", SourceID: "doc1"},
	}}
	completer := &fakeCompleter{response: "Revenue grew 12% last quarter."}
	svc := testService(t, searcher, completer)

	answer, passages, err := svc.Answer(context.Background(), "how did revenue do?", map[string]string{"ticker": "AAPL"}, 5)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}

	if answer != "Revenue grew 12% last quarter." {
		t.Errorf("Unexpected answer: %s", answer)
	}
	if len(passages) != 1 {
		t.Errorf("Expected passages returned, got %d", len(passages))
	}

	if searcher.lastQuery.Filters["ticker"] != "AAPL" {
		t.Errorf("Expected filters passed through, got %v", searcher.lastQuery.Filters)
	}
	if searcher.lastQuery.Limit != 5 {
		t.Errorf("Expected limit 5, got %d", searcher.lastQuery.Limit)
	}

	if !strings.Contains(completer.lastSystem, "revenue grew 12%") {
		t.Error("Expected retrieved context in the rendered prompt")
	}
	if !strings.Contains(completer.lastSystem, "how did revenue do?") {
		t.Error("Expected question in the rendered prompt")
	}
}

func TestAnswerDefaultLimit(t *testing.T) {
	searcher := &fakeSearcher{}
	svc := testService(t, searcher, &fakeCompleter{response: "no data"})

	if _, _, err := svc.Answer(context.Background(), "q", nil, 0); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if searcher.lastQuery.Limit != 10 {
		t.Errorf("Expected default limit 10, got %d", searcher.lastQuery.Limit)
	}
}

func TestAnswerSearchFailure(t *testing.T) {
	searcher := &fakeSearcher{err: faults.New(faults.KindRetrieval, "index down")}
	svc := testService(t, searcher, &fakeCompleter{})

	_, _, err := svc.Answer(context.Background(), "q", nil, 3)
	if !faults.IsKind(err, faults.KindRetrieval) {
		t.Fatalf("Expected retrieval fault, got %v", err)
	}
}

func TestAnswerStream(t *testing.T) {
	searcher := &fakeSearcher{passages: []types.Passage{{Text: "ctx", SourceID: "doc1"}}}
	streamer := &fakeStreamer{deltas: []string{"Revenue ", "grew."}}
	svc := testService(t, searcher, streamer)

	var got []string
	passages, err := svc.AnswerStream(context.Background(), "q", nil, 3, func(delta string) error {
		got = append(got, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("AnswerStream failed: %v", err)
	}
	if len(passages) != 1 {
		t.Errorf("Expected passages returned, got %d", len(passages))
	}
	if strings.Join(got, "") != "Revenue grew." {
		t.Errorf("Unexpected deltas: %v", got)
	}
}

func TestAnswerStreamUnsupported(t *testing.T) {
	svc := testService(t, &fakeSearcher{}, &fakeCompleter{})

	_, err := svc.AnswerStream(context.Background(), "q", nil, 3, func(string) error { return nil })
	if !faults.IsKind(err, faults.KindModelInvocation) {
		t.Fatalf("Expected model invocation fault for non-streaming provider, got %v", err)
	}
}
