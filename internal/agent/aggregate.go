package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/jsonutil"
	"sec-rag-agent/internal/prompt"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

const promptFinal = "final_recommendation"

// Synthesizer implements interfaces.Aggregator by prompting the model with
// all three stream results labeled in one context block.
type Synthesizer struct {
	completer interfaces.Completer
	prompts   *prompt.Manager
	cfg       *store.Config
	validate  *validator.Validate
}

var _ interfaces.Aggregator = (*Synthesizer)(nil)

func NewSynthesizer(completer interfaces.Completer, prompts *prompt.Manager, cfg *store.Config) *Synthesizer {
	return &Synthesizer{completer: completer, prompts: prompts, cfg: cfg, validate: validator.New()}
}

func (s *Synthesizer) Aggregate(ctx context.Context, ticker string, f types.FundamentalAnalysis, m types.MomentumAnalysis, sent types.MarketSentiment) (types.FinalRecommendation, error) {
	ctx, span := trace.StartSpan(ctx, "aggregate")
	defer span.End()

	var out types.FinalRecommendation

	system, err := s.prompts.Get(promptFinal)
	if err != nil {
		return out, faults.Wrap(faults.KindAggregation, err, "prompt %s unavailable", promptFinal)
	}
	user, err := buildAggregateInput(ticker, f, m, sent)
	if err != nil {
		return out, faults.Wrap(faults.KindAggregation, err, "could not serialize stream results")
	}

	raw, err := s.completer.Complete(ctx, types.CompletionRequest{
		System:      system,
		User:        user,
		Temperature: s.cfg.LLM.Temperature,
		MaxTokens:   s.cfg.LLM.MaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		return out, faults.Wrap(faults.KindAggregation, err, "final recommendation call failed")
	}

	obj, ok := jsonutil.ExtractObject(raw)
	if !ok {
		return out, faults.New(faults.KindAggregation, "final recommendation contains no JSON object")
	}
	// A missing confidence key would decode to 0 and pass validation.
	if !gjson.Get(obj, "confidence").Exists() {
		return out, faults.New(faults.KindAggregation, "final recommendation is missing required field %q", "confidence")
	}
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return out, faults.Wrap(faults.KindAggregation, err, "final recommendation is not valid JSON")
	}
	out.Action = strings.ToUpper(strings.TrimSpace(out.Action))
	if err := s.validate.Struct(&out); err != nil {
		return out, faults.Wrap(faults.KindAggregation, err, "final recommendation violates output contract")
	}
	return out, nil
}

// buildAggregateInput serializes the three stream results into one labeled
// block. Retrieval detail is stripped first; it documents provenance for the
// caller and would only dilute the synthesis context.
func buildAggregateInput(ticker string, f types.FundamentalAnalysis, m types.MomentumAnalysis, s types.MarketSentiment) (string, error) {
	f.Retrieval = nil
	m.Retrieval = nil
	s.Retrieval = nil

	fb, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return "", err
	}
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	sb, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"Synthesize a final recommendation for %s from these analyses.\n\nFUNDAMENTAL ANALYSIS (10-K):\n%s\n\nMOMENTUM ANALYSIS (10-Q):\n%s\n\nMARKET SENTIMENT (news):\n%s",
		ticker, fb, mb, sb), nil
}
