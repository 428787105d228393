package resolver

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/jsonutil"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/prompt"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

const extractionPrompt = "ticker_extraction"

// maxTickerLen rejects model answers that are clearly not a symbol.
const maxTickerLen = 6

// TickerResolver maps free-text company references to ticker symbols:
// static mapping first, model extraction as fallback for unseen names.
type TickerResolver struct {
	mappings  store.TickerMappings
	names     []string // mapping keys, longest first, for deterministic matching
	completer interfaces.Completer
	prompts   *prompt.Manager
	maxTokens int
}

func NewTickerResolver(mappings store.TickerMappings, completer interfaces.Completer, prompts *prompt.Manager, maxTokens int) *TickerResolver {
	names := make([]string, 0, len(mappings))
	for name := range mappings {
		names = append(names, name)
	}
	// Longest name wins when several match ("alphabet inc" before "alphabet"),
	// and ties break alphabetically so resolution is deterministic.
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return &TickerResolver{
		mappings:  mappings,
		names:     names,
		completer: completer,
		prompts:   prompts,
		maxTokens: maxTokens,
	}
}

// Resolve returns the single ticker the message refers to, or
// faults.ErrNoCompany when no company can be identified.
func (r *TickerResolver) Resolve(ctx context.Context, message string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "resolve-ticker")
	defer span.End()

	if ticker, ok := r.tryDirectMapping(message); ok {
		logger.Info(ctx, "Direct mapping found ticker", "ticker", ticker)
		return ticker, nil
	}
	return r.tryModelExtraction(ctx, message)
}

// tryDirectMapping matches known company names as substrings of the message.
func (r *TickerResolver) tryDirectMapping(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, name := range r.names {
		if strings.Contains(lower, name) {
			return r.mappings[name], true
		}
	}
	return "", false
}

// extractionResult is the schema the extraction prompt instructs the model
// to produce. Ticker is "NONE" when the message names no company.
type extractionResult struct {
	Ticker    string `json:"ticker"`
	Reasoning string `json:"reasoning"`
}

func (r *TickerResolver) tryModelExtraction(ctx context.Context, message string) (string, error) {
	logger.Info(ctx, "Using model to extract ticker from message")

	system, err := r.prompts.Get(extractionPrompt)
	if err != nil {
		return "", faults.Wrap(faults.KindResolution, err, "extraction prompt unavailable")
	}

	raw, err := r.completer.Complete(ctx, types.CompletionRequest{
		System:    system,
		User:      "Extract ticker from: " + message,
		MaxTokens: r.maxTokens,
		ForceJSON: true,
	})
	if err != nil {
		return "", faults.Wrap(faults.KindResolution, err, "ticker extraction call failed")
	}

	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return "", faults.New(faults.KindResolution, "ticker extraction returned no JSON object")
	}
	var result extractionResult
	if err := json.Unmarshal([]byte(obj), &result); err != nil {
		return "", faults.Wrap(faults.KindResolution, err, "ticker extraction returned unparseable JSON")
	}

	ticker := strings.ToUpper(strings.TrimSpace(result.Ticker))
	if ticker == "" || ticker == "NONE" || len(ticker) > maxTickerLen {
		logger.Info(ctx, "Model could not extract valid ticker", "reasoning", result.Reasoning)
		return "", faults.ErrNoCompany
	}

	logger.Info(ctx, "Model extracted ticker", "ticker", ticker, "reasoning", result.Reasoning)
	return ticker, nil
}
