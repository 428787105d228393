// Package agent orchestrates one full analysis request: resolve the ticker,
// run the three analysis streams concurrently, and fold their results into a
// final recommendation.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

// Request is one analysis request. Either Ticker or Message must be set;
// when Ticker is present resolution is skipped entirely.
type Request struct {
	Ticker         string
	Message        string
	IncludeDetails bool
}

// Orchestrator runs the full request pipeline under a single deadline.
type Orchestrator struct {
	resolver interfaces.Resolver
	streams  interfaces.Streams
	agg      interfaces.Aggregator
	timeout  time.Duration
}

func NewOrchestrator(resolver interfaces.Resolver, streams interfaces.Streams, agg interfaces.Aggregator, timeout time.Duration) *Orchestrator {
	return &Orchestrator{resolver: resolver, streams: streams, agg: agg, timeout: timeout}
}

// Run executes one request end to end. The three streams run concurrently
// and all of them are waited for even when one fails, so every failure can
// be named in the error. Any stream failing fails the whole request.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*types.AgentReport, error) {
	ctx, span := trace.StartSpan(ctx, "agent-run")
	defer span.End()

	start := time.Now()

	// The budget covers the whole request, resolution included; the model
	// clients carry no timeout of their own.
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		resolved, err := o.resolver.Resolve(ctx, req.Message)
		if err != nil {
			if ctx.Err() != nil && !errors.Is(err, faults.ErrNoCompany) {
				return nil, faults.Wrap(faults.KindTimeout, err, "analysis deadline exceeded during ticker resolution")
			}
			return nil, err
		}
		ticker = resolved
	}
	logger.Info(ctx, "Starting multi-stream analysis", "ticker", ticker)

	var (
		fundamental types.FundamentalAnalysis
		momentum    types.MomentumAnalysis
		sentiment   types.MarketSentiment
		streamErrs  [3]error
	)

	// Goroutines always return nil so one stream's failure never cancels
	// its siblings; errors are collected positionally and judged after.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fundamental, streamErrs[0] = o.streams.Fundamental(gctx, ticker)
		return nil
	})
	g.Go(func() error {
		momentum, streamErrs[1] = o.streams.Momentum(gctx, ticker)
		return nil
	})
	g.Go(func() error {
		sentiment, streamErrs[2] = o.streams.Sentiment(gctx, ticker)
		return nil
	})
	_ = g.Wait()

	if err := o.judgeStreams(ctx, streamErrs); err != nil {
		return nil, err
	}

	final, err := o.agg.Aggregate(ctx, ticker, fundamental, momentum, sentiment)
	if err != nil {
		if ctx.Err() != nil {
			return nil, faults.Wrap(faults.KindTimeout, err, "analysis deadline exceeded during aggregation")
		}
		return nil, err
	}

	if !req.IncludeDetails {
		fundamental.Retrieval = nil
		momentum.Retrieval = nil
		sentiment.Retrieval = nil
	}

	report := &types.AgentReport{
		Ticker:           ticker,
		ExecutionSeconds: time.Since(start).Seconds(),
		Fundamental:      fundamental,
		Momentum:         momentum,
		Sentiment:        sentiment,
		Final:            final,
	}
	logger.Recommendation(ctx, ticker, final.Action, final.Confidence,
		"execution_seconds", report.ExecutionSeconds)
	return report, nil
}

// judgeStreams applies the all-or-nothing policy: if any stream failed the
// request fails, with every broken stream named in the aggregation error.
func (o *Orchestrator) judgeStreams(ctx context.Context, streamErrs [3]error) error {
	names := [3]string{types.StreamFundamental, types.StreamMomentum, types.StreamSentiment}
	var failures []faults.StreamFailure
	for i, err := range streamErrs {
		if err == nil {
			continue
		}
		logger.ErrorWithErr(ctx, "Analysis stream failed", err, "stream", names[i])
		failures = append(failures, faults.StreamFailure{
			Stream:  names[i],
			Kind:    faults.KindOf(err),
			Message: err.Error(),
		})
	}
	if len(failures) == 0 {
		return nil
	}
	if ctx.Err() != nil && allTimeouts(streamErrs[:]) {
		return faults.New(faults.KindTimeout, "analysis deadline exceeded")
	}
	fe := faults.New(faults.KindAggregation, "%d of 3 analysis streams failed", len(failures))
	fe.Streams = failures
	return fe
}

func allTimeouts(errs []error) bool {
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.DeadlineExceeded) && !faults.IsKind(err, faults.KindTimeout) {
			return false
		}
	}
	return true
}
