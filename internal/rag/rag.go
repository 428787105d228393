// Package rag answers free-form questions with a single retrieval pass over
// the index, without the multi-stream analysis pipeline.
package rag

import (
	"context"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/prompt"
	"sec-rag-agent/internal/retrieval"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

const promptResponse = "rag_response"

// Service is the single-shot question answering pipeline: search, build a
// context block, prompt the model once.
type Service struct {
	searcher  interfaces.Searcher
	completer interfaces.Completer
	prompts   *prompt.Manager
	cfg       *store.Config
}

func NewService(searcher interfaces.Searcher, completer interfaces.Completer, prompts *prompt.Manager, cfg *store.Config) *Service {
	return &Service{searcher: searcher, completer: completer, prompts: prompts, cfg: cfg}
}

// Answer runs one retrieval-augmented completion. Filters narrow the search
// to metadata values such as ticker or form type; a nil map searches the
// whole index.
func (s *Service) Answer(ctx context.Context, query string, filters map[string]string, limit int) (string, []types.Passage, error) {
	ctx, span := trace.StartSpan(ctx, "rag-answer")
	defer span.End()

	passages, system, err := s.prepare(ctx, query, filters, limit)
	if err != nil {
		return "", nil, err
	}

	answer, err := s.completer.Complete(ctx, types.CompletionRequest{
		System:      system,
		User:        query,
		Temperature: s.cfg.LLM.Temperature,
		MaxTokens:   s.cfg.LLM.MaxTokens,
	})
	if err != nil {
		return "", nil, err
	}
	return answer, passages, nil
}

// AnswerStream is Answer with the completion delivered incrementally. The
// completer must support streaming; emit receives each text delta.
func (s *Service) AnswerStream(ctx context.Context, query string, filters map[string]string, limit int, emit func(delta string) error) ([]types.Passage, error) {
	ctx, span := trace.StartSpan(ctx, "rag-answer-stream")
	defer span.End()

	streamer, ok := s.completer.(interfaces.StreamCompleter)
	if !ok {
		return nil, faults.New(faults.KindModelInvocation, "configured model provider does not support streaming")
	}

	passages, system, err := s.prepare(ctx, query, filters, limit)
	if err != nil {
		return nil, err
	}

	err = streamer.CompleteStream(ctx, types.CompletionRequest{
		System:      system,
		User:        query,
		Temperature: s.cfg.LLM.Temperature,
		MaxTokens:   s.cfg.LLM.MaxTokens,
	}, emit)
	if err != nil {
		return nil, err
	}
	return passages, nil
}

func (s *Service) prepare(ctx context.Context, query string, filters map[string]string, limit int) ([]types.Passage, string, error) {
	if limit <= 0 {
		limit = s.cfg.Retrieval.NewsLimit
	}
	passages, err := s.searcher.Search(ctx, types.SearchQuery{
		Text:    query,
		Filters: filters,
		Limit:   limit,
	})
	if err != nil {
		return nil, "", err
	}
	logger.Debug(ctx, "Retrieved context for question", "passages", len(passages))

	system, err := s.prompts.Render(promptResponse, map[string]string{
		"context": retrieval.ContextBlock(passages, s.cfg.Retrieval.MaxContextChars),
		"query":   query,
	})
	if err != nil {
		return nil, "", faults.Wrap(faults.KindModelInvocation, err, "prompt %s unavailable", promptResponse)
	}
	return passages, system, nil
}
