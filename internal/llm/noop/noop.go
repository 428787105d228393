package noop

import (
	"context"

	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/types"
)

// Completer is a fallback used when no model provider is configured. It
// returns a fixed response so the server can still start and the retrieval
// endpoints stay usable.
type Completer struct {
	response string
}

// NewCompleter returns a completer that always answers with response.
func NewCompleter(response string) *Completer {
	if response == "" {
		response = "{}"
	}
	return &Completer{response: response}
}

// Complete implements the Completer interface with a canned answer.
func (c *Completer) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	logger.Debug(ctx, "Noop completer called - returning canned response", "chars", len(c.response))
	return c.response, nil
}
