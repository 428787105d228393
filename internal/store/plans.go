package store

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// QueryPlans are the fixed retrieval queries each stream runs. Loaded once
// at startup and never mutated afterward.
type QueryPlans struct {
	Fundamental StreamPlan    `yaml:"fundamental"`
	Momentum    StreamPlan    `yaml:"momentum"`
	Sentiment   SentimentPlan `yaml:"sentiment"`
}

// StreamPlan is an ordered list of query strings against one filing type.
type StreamPlan struct {
	Queries []string `yaml:"queries"`
}

// SentimentPlan uses a single query templated with the ticker symbol.
type SentimentPlan struct {
	Query string `yaml:"query"`
}

// QueryFor substitutes the ticker into the sentiment query template.
func (p SentimentPlan) QueryFor(ticker string) string {
	return strings.ReplaceAll(p.Query, "{ticker}", ticker)
}

func LoadQueryPlans(path string) (*QueryPlans, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		AnalysisQueries QueryPlans `yaml:"analysis_queries"`
	}
	if err := yaml.Unmarshal(b, &wrapper); err != nil {
		return nil, err
	}
	p := wrapper.AnalysisQueries

	if len(p.Fundamental.Queries) == 0 {
		return nil, fmt.Errorf("query plans: fundamental.queries cannot be empty")
	}
	if len(p.Momentum.Queries) == 0 {
		return nil, fmt.Errorf("query plans: momentum.queries cannot be empty")
	}
	if strings.TrimSpace(p.Sentiment.Query) == "" {
		return nil, fmt.Errorf("query plans: sentiment.query cannot be empty")
	}
	return &p, nil
}

// TickerMappings maps lowercase company names and aliases to ticker symbols.
type TickerMappings map[string]string

func LoadTickerMappings(path string) (TickerMappings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Mappings map[string]string `yaml:"company_ticker_mappings"`
	}
	if err := yaml.Unmarshal(b, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Mappings) == 0 {
		return nil, fmt.Errorf("ticker mappings: company_ticker_mappings cannot be empty")
	}

	m := make(TickerMappings, len(wrapper.Mappings))
	for name, ticker := range wrapper.Mappings {
		m[strings.ToLower(strings.TrimSpace(name))] = strings.ToUpper(strings.TrimSpace(ticker))
	}
	return m, nil
}
