// Package analysisobs wraps the analysis streams with spans and timing logs.
package analysisobs

import (
	"context"
	"time"

	"sec-rag-agent/internal/interfaces"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

type observableStreams struct {
	streams interfaces.Streams
}

var _ interfaces.Streams = (*observableStreams)(nil)

// Wrap adds observability middleware around an analysis streams implementation.
func Wrap(streams interfaces.Streams) interfaces.Streams {
	return &observableStreams{streams: streams}
}

func (os *observableStreams) Fundamental(ctx context.Context, ticker string) (types.FundamentalAnalysis, error) {
	ctx, span := trace.StartSpan(ctx, "analysis.Fundamental")
	defer span.End()

	start := time.Now()
	result, err := os.streams.Fundamental(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Fundamental analysis failed", err, "ticker", ticker)
		return result, err
	}
	logger.InfoSkip(ctx, 1, "Fundamental analysis completed",
		"ticker", ticker,
		"grade", result.InvestmentGrade,
		"insufficient_data", result.InsufficientData,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (os *observableStreams) Momentum(ctx context.Context, ticker string) (types.MomentumAnalysis, error) {
	ctx, span := trace.StartSpan(ctx, "analysis.Momentum")
	defer span.End()

	start := time.Now()
	result, err := os.streams.Momentum(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Momentum analysis failed", err, "ticker", ticker)
		return result, err
	}
	logger.InfoSkip(ctx, 1, "Momentum analysis completed",
		"ticker", ticker,
		"momentum", result.OverallMomentum,
		"insufficient_data", result.InsufficientData,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (os *observableStreams) Sentiment(ctx context.Context, ticker string) (types.MarketSentiment, error) {
	ctx, span := trace.StartSpan(ctx, "analysis.Sentiment")
	defer span.End()

	start := time.Now()
	result, err := os.streams.Sentiment(ctx, ticker)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Sentiment analysis failed", err, "ticker", ticker)
		return result, err
	}
	logger.InfoSkip(ctx, 1, "Sentiment analysis completed",
		"ticker", ticker,
		"score", result.SentimentScore,
		"insufficient_data", result.InsufficientData,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
