package qdrant

import (
	"context"
	"fmt"
	"os"
	"sort"

	"sec-rag-agent/internal/api"
	"sec-rag-agent/internal/faults"
	"sec-rag-agent/internal/logger"
	"sec-rag-agent/internal/store"
	"sec-rag-agent/internal/trace"
	"sec-rag-agent/internal/types"
)

// Searcher queries a Qdrant collection over its REST API. Embedding happens
// server-side: queries are sent as documents with the model names the
// collection was built with, candidates come from dense + sparse prefetch
// and the final order from late-interaction rerank.
type Searcher struct {
	client     *api.Client
	collection string
	prefetch   int
	dense      vectorSpec
	sparse     vectorSpec
	late       vectorSpec
}

type vectorSpec struct {
	model string
	using string
}

func NewSearcher(cfg *store.Config) *Searcher {
	opts := []api.ClientOption{
		api.WithBaseURL(cfg.Qdrant.URL),
		api.WithTimeout(cfg.QdrantTimeout()),
		api.WithLogging(true),
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		opts = append(opts, api.WithHeader("api-key", key))
	}
	return &Searcher{
		client:     api.NewClient(opts...),
		collection: cfg.Qdrant.Collection,
		prefetch:   cfg.Qdrant.PrefetchLimit,
		dense:      vectorSpec{model: cfg.Qdrant.DenseModel, using: cfg.Qdrant.DenseVector},
		sparse:     vectorSpec{model: cfg.Qdrant.SparseModel, using: cfg.Qdrant.SparseVector},
		late:       vectorSpec{model: cfg.Qdrant.LateModel, using: cfg.Qdrant.LateVector},
	}
}

type inferenceQuery struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type prefetchClause struct {
	Query inferenceQuery `json:"query"`
	Using string         `json:"using"`
	Limit int            `json:"limit"`
}

type matchClause struct {
	Key   string `json:"key"`
	Match struct {
		Value string `json:"value"`
	} `json:"match"`
}

type filterClause struct {
	Must []matchClause `json:"must"`
}

type queryRequest struct {
	Prefetch    []prefetchClause `json:"prefetch"`
	Query       inferenceQuery   `json:"query"`
	Using       string           `json:"using"`
	Limit       int              `json:"limit"`
	WithPayload bool             `json:"with_payload"`
	Filter      *filterClause    `json:"filter,omitempty"`
}

type queryResponse struct {
	Result struct {
		Points []struct {
			Score   float64 `json:"score"`
			Payload struct {
				Text     string         `json:"text"`
				Metadata map[string]any `json:"metadata"`
			} `json:"payload"`
		} `json:"points"`
	} `json:"result"`
}

// Search implements the Searcher interface. A successful call with no
// matching points returns an empty slice; any transport, auth, or server
// failure comes back as a retrieval fault.
func (s *Searcher) Search(ctx context.Context, q types.SearchQuery) ([]types.Passage, error) {
	ctx, span := trace.StartSpan(ctx, "qdrant-query-points")
	defer span.End()

	req := queryRequest{
		Prefetch: []prefetchClause{
			{Query: inferenceQuery{Text: q.Text, Model: s.dense.model}, Using: s.dense.using, Limit: s.prefetch},
			{Query: inferenceQuery{Text: q.Text, Model: s.sparse.model}, Using: s.sparse.using, Limit: s.prefetch},
		},
		Query:       inferenceQuery{Text: q.Text, Model: s.late.model},
		Using:       s.late.using,
		Limit:       q.Limit,
		WithPayload: true,
		Filter:      buildFilter(q.Filters),
	}

	path := fmt.Sprintf("/collections/%s/points/query", s.collection)
	resp, err := s.client.POST(ctx, path, req)
	if err != nil {
		return nil, faults.Wrap(faults.KindRetrieval, err, "vector index query failed")
	}

	var qr queryResponse
	if err := resp.DecodeJSON(&qr); err != nil {
		return nil, faults.Wrap(faults.KindRetrieval, err, "vector index returned malformed response")
	}

	passages := make([]types.Passage, 0, len(qr.Result.Points))
	for _, point := range qr.Result.Points {
		p := types.Passage{
			Text:  point.Payload.Text,
			Score: point.Score,
		}
		if meta := point.Payload.Metadata; meta != nil {
			p.SourceID = metaString(meta, "document_id")
			p.Title = metaString(meta, "title")
			p.Date = metaString(meta, "date")
		}
		passages = append(passages, p)
	}

	logger.Debug(ctx, "Vector index query completed", "query_chars", len(q.Text), "passages", len(passages))
	return passages, nil
}

// buildFilter converts metadata filters into Qdrant must-match conditions.
// Keys are sorted so the request body is deterministic.
func buildFilter(filters map[string]string) *filterClause {
	if len(filters) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	must := make([]matchClause, 0, len(keys))
	for _, key := range keys {
		clause := matchClause{Key: "metadata." + key}
		clause.Match.Value = filters[key]
		must = append(must, clause)
	}
	return &filterClause{Must: must}
}

func metaString(meta map[string]any, key string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
