package llmobs

import (
	"context"
	"time"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

// observableCompleter wraps a Completer with observability (logging & tracing)
type observableCompleter struct {
	completer interfaces.Completer
}

// Compile-time interface checks
var (
	_ interfaces.Completer       = (*observableCompleter)(nil)
	_ interfaces.StreamCompleter = (*observableCompleter)(nil)
)

// Wrap wraps a completer with observability middleware
func Wrap(completer interfaces.Completer) interfaces.Completer {
	return &observableCompleter{
		completer: completer,
	}
}

// Complete performs a model call with observability
func (oc *observableCompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Use DebugSkip(1) to report the actual caller, not this middleware wrapper
	logger.DebugSkip(ctx, 1, "Requesting model completion",
		"system_chars", len(req.System),
		"user_chars", len(req.User),
		"force_json", req.ForceJSON,
	)

	start := time.Now()
	text, err := oc.completer.Complete(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Model completion failed", err,
			"user_chars", len(req.User),
		)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Model completion received",
		"response_chars", len(text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// CompleteStream delegates to the wrapped completer when it supports
// streaming.
func (oc *observableCompleter) CompleteStream(ctx context.Context, req types.CompletionRequest, emit func(delta string) error) error {
	sc, ok := oc.completer.(interfaces.StreamCompleter)
	if !ok {
		return faults.New(faults.KindModelInvocation, "configured model provider does not support streaming")
	}

	ctx, span := trace.StartSpan(ctx, "llm.CompleteStream")
	defer span.End()

	start := time.Now()
	deltas := 0
	err := sc.CompleteStream(ctx, req, func(delta string) error {
		deltas++
		return emit(delta)
	})
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Model stream failed", err, "deltas", deltas)
		return err
	}

	logger.InfoSkip(ctx, 1, "Model stream completed",
		"deltas", deltas,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
