package interfaces

import (
	"context"

	"sec-rag-agent/internal/types"
)

// Completer is one chat call to the language model: system + user prompt in,
// raw assistant text out. Transport or auth failures come back as
// model-invocation faults; parsing the text is the caller's job.
type Completer interface {
	Complete(ctx context.Context, req types.CompletionRequest) (string, error)
}

// StreamCompleter is implemented by providers that can deliver the answer
// incrementally. emit is called once per text delta; returning an error
// aborts the stream.
type StreamCompleter interface {
	CompleteStream(ctx context.Context, req types.CompletionRequest, emit func(delta string) error) error
}
