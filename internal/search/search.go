package search

import (
	"context"
	"math"
	"sort"

	"github.com/fyrsmithlabs/reposcope/internal/corpus"
	"github.com/fyrsmithlabs/reposcope/internal/embeddings"
	"go.uber.org/zap"
)

// Result is one ranked hit of a similarity search.
type Result struct {
	Chunk corpus.Chunk
	Score float64
}

// Results is the outcome of one similarity search. A degraded search
// returns no hits but is not an error: the Reason field names the
// cause so callers and tests can observe the degradation.
type Results struct {
	Hits     []Result
	Degraded bool
	Reason   string
}

// Search embeds the query and ranks all embedded chunks by cosine
// similarity, returning the top k.
//
// Two conditions degrade to an empty result set instead of failing:
// an index with no embedded chunks, and a query-embedding failure.
func Search(ctx context.Context, embedder embeddings.Embedder, chunks []corpus.Chunk, query string, k int, logger *zap.Logger) Results {
	if logger == nil {
		logger = zap.NewNop()
	}

	embedded := 0
	for i := range chunks {
		if chunks[i].Embedded() {
			embedded++
		}
	}
	if embedded == 0 {
		return Results{Degraded: true, Reason: "no embedded chunks in index"}
	}

	queryVec, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed, returning empty result set", zap.Error(err))
		return Results{Degraded: true, Reason: "query embedding failed"}
	}

	hits := make([]Result, 0, embedded)
	for i := range chunks {
		if !chunks[i].Embedded() {
			continue
		}
		score, ok := cosineSimilarity(queryVec, chunks[i].Embedding)
		if !ok {
			continue
		}
		hits = append(hits, Result{Chunk: chunks[i], Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}

	return Results{Hits: hits}
}

// cosineSimilarity returns dot(a,b) / (||a|| * ||b||). The second
// return value is false for mismatched dimensions or zero vectors.
func cosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), true
}
