package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	openaisdk "github.com/openai/openai-go"
	contractx "github.com/suthimate/offerlens/agent/contract"
)

// CaseRanker reorders retrieved cases by relevance to the live query.
// It is an optional enhancement on top of exact-triple retrieval; the
// memory-retrieval stage falls back to recency order when ranking fails.
type CaseRanker interface {
	Rank(ctx context.Context, query string, cases []contractx.DiagnosticCase) ([]contractx.DiagnosticCase, error)
}

// EmbeddingRanker ranks cases by cosine similarity between the live
// query and each stored case's original user query.
type EmbeddingRanker struct {
	client *openaisdk.Client
	model  string
}

func NewEmbeddingRanker(client *openaisdk.Client, model string) *EmbeddingRanker {
	if model == "" {
		model = string(openaisdk.EmbeddingModelTextEmbedding3Small)
	}
	return &EmbeddingRanker{client: client, model: model}
}

func (r *EmbeddingRanker) Rank(
	ctx context.Context,
	query string,
	cases []contractx.DiagnosticCase,
) ([]contractx.DiagnosticCase, error) {
	if len(cases) < 2 {
		return cases, nil
	}

	inputs := make([]string, 0, len(cases)+1)
	inputs = append(inputs, query)
	for _, c := range cases {
		inputs = append(inputs, c.UserQuery)
	}

	res, err := r.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(r.model),
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
	})
	if err != nil {
		return nil, fmt.Errorf("embed case queries: %w", err)
	}
	if len(res.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(res.Data), len(inputs))
	}

	queryVec := res.Data[0].Embedding
	type scored struct {
		c     contractx.DiagnosticCase
		score float64
	}
	ranked := make([]scored, 0, len(cases))
	for i, c := range cases {
		ranked = append(ranked, scored{c: c, score: cosine(queryVec, res.Data[i+1].Embedding)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]contractx.DiagnosticCase, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.c)
	}
	return out, nil
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
