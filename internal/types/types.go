package types

// Passage is one retrieved excerpt from the vector index, ordered by the
// index's relevance score. Title and Date are only present for news chunks.
type Passage struct {
	Text     string  `json:"text"`
	SourceID string  `json:"source_id"`
	Score    float64 `json:"score"`
	Title    string  `json:"title,omitempty"`
	Date     string  `json:"date,omitempty"`
}

// SearchQuery is a single semantic query against the index.
type SearchQuery struct {
	Text    string
	Filters map[string]string
	Limit   int
}

// CompletionRequest carries one chat call to the language model.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	ForceJSON   bool
}

// RetrievalDetail records what a stream actually retrieved. Populated by the
// analyzers and surfaced on /agent when include_details is set.
type RetrievalDetail struct {
	Queries  []string `json:"queries"`
	Passages int      `json:"passages"`
	Sources  []string `json:"sources"`
}

// FundamentalAnalysis is the structured output of the 10-K stream. Validate
// tags enforce the output contract: exactly three strengths and concerns,
// grade and recommendation from fixed sets, confidence in [0,1].
type FundamentalAnalysis struct {
	InvestmentThesis string   `json:"investment_thesis" validate:"required"`
	InvestmentGrade  string   `json:"investment_grade" validate:"required,oneof=A B C D"`
	ConfidenceScore  float64  `json:"confidence_score" validate:"min=0,max=1"`
	KeyStrengths     []string `json:"key_strengths" validate:"len=3,dive,required"`
	KeyConcerns      []string `json:"key_concerns" validate:"len=3,dive,required"`
	Recommendation   string   `json:"recommendation" validate:"required,oneof=buy hold sell avoid"`

	InsufficientData bool             `json:"insufficient_data,omitempty"`
	Retrieval        *RetrievalDetail `json:"retrieval,omitempty"`
}

// MomentumAnalysis is the structured output of the 10-Q stream.
type MomentumAnalysis struct {
	OverallMomentum  string   `json:"overall_momentum" validate:"required,oneof=positive neutral negative"`
	MomentumStrength string   `json:"momentum_strength" validate:"required,oneof=strong moderate weak"`
	KeyDrivers       []string `json:"key_momentum_drivers" validate:"len=3,dive,required"`
	MomentumRisks    []string `json:"momentum_risks" validate:"len=3,dive,required"`
	ShortTermOutlook string   `json:"short_term_outlook" validate:"required,oneof=bullish neutral bearish"`
	MomentumScore    float64  `json:"momentum_score" validate:"min=0,max=10"`

	InsufficientData bool             `json:"insufficient_data,omitempty"`
	Retrieval        *RetrievalDetail `json:"retrieval,omitempty"`
}

// MarketSentiment is the structured output of the news stream. Score runs
// 1-10 with 5-6 meaning neutral.
type MarketSentiment struct {
	SentimentScore     float64  `json:"sentiment_score" validate:"min=1,max=10"`
	SentimentDirection string   `json:"sentiment_direction" validate:"required,oneof=positive neutral negative"`
	KeyNewsThemes      []string `json:"key_news_themes" validate:"min=1,dive,required"`
	RecentCatalysts    []string `json:"recent_catalysts"`
	MarketOutlook      string   `json:"market_outlook" validate:"required"`

	InsufficientData bool             `json:"insufficient_data,omitempty"`
	Retrieval        *RetrievalDetail `json:"retrieval,omitempty"`
}

// FinalRecommendation is the terminal artifact of one /agent request.
type FinalRecommendation struct {
	Action           string   `json:"action" validate:"required,oneof=BUY HOLD SELL"`
	Confidence       float64  `json:"confidence" validate:"min=0,max=1"`
	Rationale        string   `json:"rationale" validate:"required"`
	KeyRisks         []string `json:"key_risks" validate:"min=1,dive,required"`
	KeyOpportunities []string `json:"key_opportunities" validate:"min=1,dive,required"`
	TimeHorizon      string   `json:"time_horizon" validate:"required"`
}

// AgentReport is the combined multi-stream result returned by /agent.
type AgentReport struct {
	Ticker           string              `json:"ticker"`
	ExecutionSeconds float64             `json:"execution_time"`
	Fundamental      FundamentalAnalysis `json:"fundamental_analysis"`
	Momentum         MomentumAnalysis    `json:"momentum_analysis"`
	Sentiment        MarketSentiment     `json:"market_sentiment"`
	Final            FinalRecommendation `json:"final_recommendation"`
}

// Stream names used for error attribution and logging.
const (
	StreamFundamental = "fundamental"
	StreamMomentum    = "momentum"
	StreamSentiment   = "sentiment"
)
