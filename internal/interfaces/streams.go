package interfaces

import (
	"context"

	"sec-rag-agent/internal/types"
)

// Streams exposes the three analysis pipelines. Each call is a pure function
// of (ticker, corpus) with no shared mutable state, so the orchestrator may
// run them concurrently.
type Streams interface {
	Fundamental(ctx context.Context, ticker string) (types.FundamentalAnalysis, error)
	Momentum(ctx context.Context, ticker string) (types.MomentumAnalysis, error)
	Sentiment(ctx context.Context, ticker string) (types.MarketSentiment, error)
}

// Aggregator folds the three stream results into the final recommendation.
type Aggregator interface {
	Aggregate(ctx context.Context, ticker string, f types.FundamentalAnalysis, m types.MomentumAnalysis, s types.MarketSentiment) (types.FinalRecommendation, error)
}
