// Package analysis runs the three retrieval-augmented pipelines that feed the
// final recommendation: fundamentals from 10-K filings, momentum from 10-Q
// filings, and sentiment from recent news.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/prompt"
	"sec-rag-agent/internal/retrieval"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

const (
	formType10K = "10-K"
	formType10Q = "10-Q"

	promptFundamental = "fundamental_analysis"
	promptMomentum    = "momentum_analysis"
	promptSentiment   = "sentiment_analysis"
)

// Engine implements interfaces.Streams. Each stream retrieves its own slice
// of the corpus, prompts the model against it, and validates the structured
// output before returning.
type Engine struct {
	retriever interfaces.Retriever
	completer interfaces.Completer
	prompts   *prompt.Manager
	plans     *store.QueryPlans
	cfg       *store.Config
	validate  *validator.Validate
}

var _ interfaces.Streams = (*Engine)(nil)

func NewEngine(retriever interfaces.Retriever, completer interfaces.Completer, prompts *prompt.Manager, plans *store.QueryPlans, cfg *store.Config) *Engine {
	return &Engine{
		retriever: retriever,
		completer: completer,
		prompts:   prompts,
		plans:     plans,
		cfg:       cfg,
		validate:  validator.New(),
	}
}

// Fundamental analyzes 10-K content for long-term investment quality.
func (e *Engine) Fundamental(ctx context.Context, ticker string) (types.FundamentalAnalysis, error) {
	ctx, span := trace.StartSpan(ctx, "stream-fundamental")
	defer span.End()

	var out types.FundamentalAnalysis

	passages, detail, err := e.retrieveFilings(ctx, ticker, e.plans.Fundamental.Queries, formType10K)
	if err != nil {
		return out, err.ForStream(types.StreamFundamental)
	}
	if len(passages) == 0 {
		logger.Info(ctx, "No 10-K content found, returning insufficient-data result", "ticker", ticker)
		out = insufficientFundamental()
		out.Retrieval = detail
		return out, nil
	}

	raw, ferr := e.complete(ctx, promptFundamental,
		fmt.Sprintf("Analyze this 10-K content for %s:\n\n%s", ticker, retrieval.ContextBlock(passages, e.cfg.Retrieval.MaxContextChars)))
	if ferr != nil {
		return out, ferr.ForStream(types.StreamFundamental)
	}

	if ferr := parseInto(e.validate, raw, &out, normalizeFundamental, "confidence_score"); ferr != nil {
		return out, ferr.ForStream(types.StreamFundamental)
	}
	out.Retrieval = detail
	return out, nil
}

// Momentum analyzes 10-Q content for near-term business trajectory.
func (e *Engine) Momentum(ctx context.Context, ticker string) (types.MomentumAnalysis, error) {
	ctx, span := trace.StartSpan(ctx, "stream-momentum")
	defer span.End()

	var out types.MomentumAnalysis

	passages, detail, err := e.retrieveFilings(ctx, ticker, e.plans.Momentum.Queries, formType10Q)
	if err != nil {
		return out, err.ForStream(types.StreamMomentum)
	}
	if len(passages) == 0 {
		logger.Info(ctx, "No 10-Q content found, returning insufficient-data result", "ticker", ticker)
		out = insufficientMomentum()
		out.Retrieval = detail
		return out, nil
	}

	raw, ferr := e.complete(ctx, promptMomentum,
		fmt.Sprintf("Analyze this 10-Q content for %s:\n\n%s", ticker, retrieval.ContextBlock(passages, e.cfg.Retrieval.MaxContextChars)))
	if ferr != nil {
		return out, ferr.ForStream(types.StreamMomentum)
	}

	if ferr := parseInto(e.validate, raw, &out, normalizeMomentum, "momentum_score"); ferr != nil {
		return out, ferr.ForStream(types.StreamMomentum)
	}
	out.Retrieval = detail
	return out, nil
}

// Sentiment analyzes recent news coverage. An empty news corpus is common
// for thinly covered tickers, so it pins a neutral score instead of failing.
func (e *Engine) Sentiment(ctx context.Context, ticker string) (types.MarketSentiment, error) {
	ctx, span := trace.StartSpan(ctx, "stream-sentiment")
	defer span.End()

	var out types.MarketSentiment

	query := e.plans.Sentiment.QueryFor(ticker)
	passages, err := e.retriever.QueryNews(ctx, ticker, query, e.cfg.Retrieval.NewsLimit)
	if err != nil {
		return out, faults.Wrap(faults.KindRetrieval, err, "news retrieval failed").ForStream(types.StreamSentiment)
	}
	detail := &types.RetrievalDetail{
		Queries:  []string{query},
		Passages: len(passages),
		Sources:  retrieval.SourceIDs(passages),
	}
	if len(passages) == 0 {
		logger.Info(ctx, "No news found, returning neutral sentiment", "ticker", ticker)
		out = neutralSentiment()
		out.Retrieval = detail
		return out, nil
	}

	raw, ferr := e.complete(ctx, promptSentiment,
		fmt.Sprintf("Analyze recent news sentiment for %s:\n\n%s", ticker, retrieval.NewsContextBlock(passages)))
	if ferr != nil {
		return out, ferr.ForStream(types.StreamSentiment)
	}

	if ferr := parseInto(e.validate, raw, &out, normalizeSentiment, "sentiment_score"); ferr != nil {
		return out, ferr.ForStream(types.StreamSentiment)
	}
	out.Retrieval = detail
	return out, nil
}

// retrieveFilings runs every plan query sequentially against one form type
// and concatenates the hits. Retrieval order follows plan order so the
// context block is stable across runs.
func (e *Engine) retrieveFilings(ctx context.Context, ticker string, queries []string, formType string) ([]types.Passage, *types.RetrievalDetail, *faults.Error) {
	var all []types.Passage
	for _, q := range queries {
		passages, err := e.retriever.QueryDocuments(ctx, ticker, q, formType, e.cfg.Retrieval.DocumentLimit)
		if err != nil {
			return nil, nil, faults.Wrap(faults.KindRetrieval, err, "%s retrieval failed for query %q", formType, q)
		}
		all = append(all, passages...)
	}
	detail := &types.RetrievalDetail{
		Queries:  queries,
		Passages: len(all),
		Sources:  retrieval.SourceIDs(all),
	}
	return all, detail, nil
}

func (e *Engine) complete(ctx context.Context, promptName, user string) (string, *faults.Error) {
	system, err := e.prompts.Get(promptName)
	if err != nil {
		return "", faults.Wrap(faults.KindModelInvocation, err, "prompt %s unavailable", promptName)
	}
	raw, err := e.completer.Complete(ctx, types.CompletionRequest{
		System:      system,
		User:        user,
		Temperature: e.cfg.LLM.Temperature,
		MaxTokens:   e.cfg.LLM.MaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		if fe, ok := err.(*faults.Error); ok {
			return "", fe
		}
		return "", faults.Wrap(faults.KindModelInvocation, err, "completion failed")
	}
	return raw, nil
}

// Enum normalization happens before validation: models sometimes answer
// "Buy" or "POSITIVE" and the contract is case-sensitive.

func normalizeFundamental(a *types.FundamentalAnalysis) {
	a.InvestmentGrade = strings.ToUpper(strings.TrimSpace(a.InvestmentGrade))
	a.Recommendation = strings.ToLower(strings.TrimSpace(a.Recommendation))
}

func normalizeMomentum(a *types.MomentumAnalysis) {
	a.OverallMomentum = strings.ToLower(strings.TrimSpace(a.OverallMomentum))
	a.MomentumStrength = strings.ToLower(strings.TrimSpace(a.MomentumStrength))
	a.ShortTermOutlook = strings.ToLower(strings.TrimSpace(a.ShortTermOutlook))
}

func normalizeSentiment(s *types.MarketSentiment) {
	s.SentimentDirection = strings.ToLower(strings.TrimSpace(s.SentimentDirection))
}

// Insufficient-data results satisfy the same output contract as model
// answers so downstream aggregation never special-cases them.

func insufficientFundamental() types.FundamentalAnalysis {
	return types.FundamentalAnalysis{
		InvestmentThesis: "Insufficient 10-K filing data available for analysis.",
		InvestmentGrade:  "C",
		ConfidenceScore:  0,
		KeyStrengths:     []string{"No data available", "No data available", "No data available"},
		KeyConcerns:      []string{"No filing data in index", "Analysis could not be performed", "Coverage gap for this ticker"},
		Recommendation:   "hold",
		InsufficientData: true,
	}
}

func insufficientMomentum() types.MomentumAnalysis {
	return types.MomentumAnalysis{
		OverallMomentum:  "neutral",
		MomentumStrength: "weak",
		KeyDrivers:       []string{"No data available", "No data available", "No data available"},
		MomentumRisks:    []string{"No filing data in index", "Analysis could not be performed", "Coverage gap for this ticker"},
		ShortTermOutlook: "neutral",
		MomentumScore:    5,
		InsufficientData: true,
	}
}

func neutralSentiment() types.MarketSentiment {
	return types.MarketSentiment{
		SentimentScore:     5.5,
		SentimentDirection: "neutral",
		KeyNewsThemes:      []string{"No recent news coverage found"},
		RecentCatalysts:    []string{},
		MarketOutlook:      "No recent news coverage available to assess market outlook.",
		InsufficientData:   true,
	}
}
