package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/prompt"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/types"
)

type fakeRetriever struct {
	documents map[string][]types.Passage // keyed by form type
	news      []types.Passage
	err       error
	docCalls  []string
}

func (f *fakeRetriever) QueryDocuments(ctx context.Context, ticker, query, formType string, limit int) ([]types.Passage, error) {
	f.docCalls = append(f.docCalls, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.documents[formType], nil
}

func (f *fakeRetriever) QueryNews(ctx context.Context, ticker, query string, limit int) ([]types.Passage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.news, nil
}

type fakeCompleter struct {
	response string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(ctx context.Context, req types.CompletionRequest) (string, error) {
	f.lastUser = req.User
	return f.response, f.err
}

func testEngine(t *testing.T, retriever *fakeRetriever, completer *fakeCompleter) *Engine {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{promptFundamental, promptMomentum, promptSentiment} {
		if err := os.WriteFile(filepath.Join(dir, name+".md"), []byte("You are an analyst."), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &store.Config{}
	cfg.Retrieval.DocumentLimit = 3
	cfg.Retrieval.NewsLimit = 10
	cfg.Retrieval.MaxContextChars = 15000
	cfg.LLM.MaxTokens = 4096

	plans := &store.QueryPlans{
		Fundamental: store.StreamPlan{Queries: []string{"business overview", "risk factors"}},
		Momentum:    store.StreamPlan{Queries: []string{"quarterly results"}},
		Sentiment:   store.SentimentPlan{Query: "{ticker} stock news"},
	}
	return NewEngine(retriever, completer, prompt.NewManager(dir), plans, cfg)
}

const validFundamental = `{
	"investment_thesis": "Durable franchise with expanding services revenue.",
	"investment_grade": "a",
	"confidence_score": 0.85,
	"key_strengths": ["Brand", "Cash generation", "Ecosystem lock-in"],
	"key_concerns": ["Hardware cyclicality", "Regulatory pressure", "China exposure"],
	"recommendation": "Buy"
}`

func TestFundamentalHappyPath(t *testing.T) {
	retriever := &fakeRetriever{documents: map[string][]types.Passage{
		"10-K": {{Text: "business is strong", SourceID: "doc1"}},
	}}
	completer := &fakeCompleter{response: validFundamental}

	result, err := testEngine(t, retriever, completer).Fundamental(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fundamental failed: %v", err)
	}

	// Casing is normalized before validation.
	if result.InvestmentGrade != "A" {
		t.Errorf("Expected grade A, got %s", result.InvestmentGrade)
	}
	if result.Recommendation != "buy" {
		t.Errorf("Expected recommendation buy, got %s", result.Recommendation)
	}
	if result.InsufficientData {
		t.Error("Expected sufficient data")
	}

	if len(retriever.docCalls) != 2 {
		t.Errorf("Expected one retrieval per plan query, got %d", len(retriever.docCalls))
	}
	if !strings.Contains(completer.lastUser, "Analyze this 10-K content for AAPL") {
		t.Errorf("Unexpected user prompt: %s", completer.lastUser)
	}
	if !strings.Contains(completer.lastUser, "business is strong") {
		t.Error("Expected retrieved content in the prompt")
	}

	if result.Retrieval == nil || result.Retrieval.Passages != 2 {
		t.Errorf("Expected retrieval detail with 2 passages, got %+v", result.Retrieval)
	}
}

func TestFundamentalEmptyCorpus(t *testing.T) {
	retriever := &fakeRetriever{documents: map[string][]types.Passage{}}
	completer := &fakeCompleter{response: "should not be called"}

	result, err := testEngine(t, retriever, completer).Fundamental(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("Fundamental failed: %v", err)
	}
	if !result.InsufficientData {
		t.Error("Expected insufficient-data flag on empty corpus")
	}
	if result.ConfidenceScore != 0 {
		t.Errorf("Expected zero confidence, got %f", result.ConfidenceScore)
	}
	if len(result.KeyStrengths) != 3 || len(result.KeyConcerns) != 3 {
		t.Error("Insufficient-data result must still satisfy the output contract")
	}
	if completer.lastUser != "" {
		t.Error("Model must not be called on empty corpus")
	}
}

func TestFundamentalCardinalityViolation(t *testing.T) {
	retriever := &fakeRetriever{documents: map[string][]types.Passage{
		"10-K": {{Text: "content", SourceID: "doc1"}},
	}}
	completer := &fakeCompleter{response: `{
		"investment_thesis": "thesis",
		"investment_grade": "B",
		"confidence_score": 0.5,
		"key_strengths": ["only", "two"],
		"key_concerns": ["a", "b", "c"],
		"recommendation": "hold"
	}`}

	_, err := testEngine(t, retriever, completer).Fundamental(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("Expected validation error for two strengths")
	}
	if !faults.IsKind(err, faults.KindModelOutput) {
		t.Errorf("Expected model output fault, got %v", err)
	}
	var fe *faults.Error
	if !errors.As(err, &fe) || fe.Stream != types.StreamFundamental {
		t.Errorf("Expected fault attributed to fundamental stream, got %v", err)
	}
}

func TestFundamentalMissingConfidenceScore(t *testing.T) {
	retriever := &fakeRetriever{documents: map[string][]types.Passage{
		"10-K": {{Text: "content", SourceID: "doc1"}},
	}}
	// No confidence_score key; it must not be accepted as a silent zero,
	// which is the value insufficient-data results carry.
	completer := &fakeCompleter{response: `{
		"investment_thesis": "thesis",
		"investment_grade": "B",
		"key_strengths": ["a", "b", "c"],
		"key_concerns": ["d", "e", "f"],
		"recommendation": "hold"
	}`}

	result, err := testEngine(t, retriever, completer).Fundamental(context.Background(), "AAPL")
	if err == nil {
		t.Fatalf("Expected error for missing confidence_score, got confidence=%f insufficient=%v",
			result.ConfidenceScore, result.InsufficientData)
	}
	if !faults.IsKind(err, faults.KindModelOutput) {
		t.Errorf("Expected model output fault, got %v", err)
	}
	if !strings.Contains(err.Error(), "confidence_score") {
		t.Errorf("Expected missing field named in error, got %v", err)
	}
}

func TestMomentumMissingScore(t *testing.T) {
	retriever := &fakeRetriever{documents: map[string][]types.Passage{
		"10-Q": {{Text: "quarterly content", SourceID: "doc1"}},
	}}
	completer := &fakeCompleter{response: `{
		"overall_momentum": "positive",
		"momentum_strength": "strong",
		"key_momentum_drivers": ["a", "b", "c"],
		"momentum_risks": ["d", "e", "f"],
		"short_term_outlook": "bullish"
	}`}

	_, err := testEngine(t, retriever, completer).Momentum(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("Expected error for missing momentum_score")
	}
	if !faults.IsKind(err, faults.KindModelOutput) {
		t.Errorf("Expected model output fault, got %v", err)
	}
}

func TestMomentumBadEnum(t *testing.T) {
	retriever := &fakeRetriever{documents: map[string][]types.Passage{
		"10-Q": {{Text: "quarterly content", SourceID: "doc1"}},
	}}
	completer := &fakeCompleter{response: `{
		"overall_momentum": "sideways",
		"momentum_strength": "strong",
		"key_momentum_drivers": ["a", "b", "c"],
		"momentum_risks": ["a", "b", "c"],
		"short_term_outlook": "bullish",
		"momentum_score": 7.5
	}`}

	_, err := testEngine(t, retriever, completer).Momentum(context.Background(), "AAPL")
	if !faults.IsKind(err, faults.KindModelOutput) {
		t.Fatalf("Expected model output fault for bad enum, got %v", err)
	}
}

func TestMomentumNormalizesEnums(t *testing.T) {
	retriever := &fakeRetriever{documents: map[string][]types.Passage{
		"10-Q": {{Text: "quarterly content", SourceID: "doc1"}},
	}}
	completer := &fakeCompleter{response: `{
		"overall_momentum": "Positive",
		"momentum_strength": "STRONG",
		"key_momentum_drivers": ["a", "b", "c"],
		"momentum_risks": ["a", "b", "c"],
		"short_term_outlook": " bullish ",
		"momentum_score": 8
	}`}

	result, err := testEngine(t, retriever, completer).Momentum(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Momentum failed: %v", err)
	}
	if result.OverallMomentum != "positive" || result.ShortTermOutlook != "bullish" {
		t.Errorf("Expected normalized enums, got %+v", result)
	}
}

func TestSentimentNeutralOnNoNews(t *testing.T) {
	retriever := &fakeRetriever{}
	completer := &fakeCompleter{response: "should not be called"}

	result, err := testEngine(t, retriever, completer).Sentiment(context.Background(), "ZZZZ")
	if err != nil {
		t.Fatalf("Sentiment failed: %v", err)
	}
	if result.SentimentScore != 5.5 {
		t.Errorf("Expected neutral score 5.5, got %f", result.SentimentScore)
	}
	if result.SentimentDirection != "neutral" {
		t.Errorf("Expected neutral direction, got %s", result.SentimentDirection)
	}
	if !result.InsufficientData {
		t.Error("Expected insufficient-data flag")
	}
}

func TestSentimentHappyPath(t *testing.T) {
	retriever := &fakeRetriever{news: []types.Passage{
		{Text: "earnings beat expectations", SourceID: "n1", Title: "Q3 Beat", Date: "2025-08-01"},
	}}
	completer := &fakeCompleter{response: `{
		"sentiment_score": 7.8,
		"sentiment_direction": "positive",
		"key_news_themes": ["earnings strength"],
		"recent_catalysts": ["Q3 beat"],
		"market_outlook": "Coverage frames near-term prospects favorably."
	}`}

	result, err := testEngine(t, retriever, completer).Sentiment(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Sentiment failed: %v", err)
	}
	if result.SentimentScore != 7.8 {
		t.Errorf("Unexpected score: %f", result.SentimentScore)
	}
	if !strings.Contains(completer.lastUser, "TITLE: Q3 Beat") {
		t.Error("Expected news formatting with titles in the prompt")
	}
	if result.Retrieval == nil || result.Retrieval.Queries[0] != "AAPL stock news" {
		t.Errorf("Expected templated sentiment query in detail, got %+v", result.Retrieval)
	}
}

func TestRetrievalFailurePropagates(t *testing.T) {
	retriever := &fakeRetriever{err: faults.New(faults.KindRetrieval, "index down")}
	completer := &fakeCompleter{}

	_, err := testEngine(t, retriever, completer).Fundamental(context.Background(), "AAPL")
	if !faults.IsKind(err, faults.KindRetrieval) {
		t.Fatalf("Expected retrieval fault, got %v", err)
	}
}
