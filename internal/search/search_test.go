package search

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/reposcope/internal/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns canned vectors keyed by input text.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if vec, ok := s.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := s.EmbedQuery(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func embeddedChunk(name string, vec []float32) corpus.Chunk {
	return corpus.Chunk{ID: name, FileName: name, Content: name, Embedding: vec}
}

func TestCosineSimilaritySelfIsOne(t *testing.T) {
	v := []float32{0.3, -0.5, 0.81}
	score, ok := cosineSimilarity(v, v)
	require.True(t, ok)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineSimilarityOrthogonal(t *testing.T) {
	score, ok := cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.True(t, ok)
	assert.InDelta(t, 0.0, score, 1e-9)
}

func TestCosineSimilarityOpposite(t *testing.T) {
	score, ok := cosineSimilarity([]float32{1, 2}, []float32{-1, -2})
	require.True(t, ok)
	assert.InDelta(t, -1.0, score, 1e-9)
}

func TestCosineSimilarityRejectsMismatchedAndZero(t *testing.T) {
	_, ok := cosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	assert.False(t, ok)
	_, ok = cosineSimilarity([]float32{0, 0}, []float32{1, 0})
	assert.False(t, ok)
	_, ok = cosineSimilarity(nil, nil)
	assert.False(t, ok)
}

func TestSearchEmptyIndexDegrades(t *testing.T) {
	emb := &stubEmbedder{}
	chunks := []corpus.Chunk{
		{ID: "1", FileName: "a.go", Content: "no embedding here"},
	}

	res := Search(context.Background(), emb, chunks, "query", 5, nil)
	assert.True(t, res.Degraded)
	assert.Empty(t, res.Hits)
	// No query-embedding call is made for an empty index.
	assert.Equal(t, 0, emb.calls)
}

func TestSearchQueryEmbeddingFailureDegrades(t *testing.T) {
	emb := &stubEmbedder{err: errors.New("service down")}
	chunks := []corpus.Chunk{embeddedChunk("a.go", []float32{1, 0, 0})}

	res := Search(context.Background(), emb, chunks, "query", 5, nil)
	assert.True(t, res.Degraded)
	assert.Equal(t, "query embedding failed", res.Reason)
	assert.Empty(t, res.Hits)
}

func TestSearchRanksByDescendingSimilarity(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{
		"query": {1, 0, 0},
	}}
	chunks := []corpus.Chunk{
		embeddedChunk("far.go", []float32{0, 1, 0}),
		embeddedChunk("near.go", []float32{1, 0.1, 0}),
		embeddedChunk("exact.go", []float32{2, 0, 0}),
		{ID: "skip", FileName: "skip.go", Content: "unembedded"},
	}

	res := Search(context.Background(), emb, chunks, "query", 10, nil)
	require.False(t, res.Degraded)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, "exact.go", res.Hits[0].Chunk.FileName)
	assert.Equal(t, "near.go", res.Hits[1].Chunk.FileName)
	assert.Equal(t, "far.go", res.Hits[2].Chunk.FileName)
	assert.InDelta(t, 1.0, res.Hits[0].Score, 1e-9)
}

func TestSearchLimitsToTopK(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"query": {1, 0, 0}}}
	var chunks []corpus.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, embeddedChunk("f", []float32{1, float32(i), 0}))
	}

	res := Search(context.Background(), emb, chunks, "query", 3, nil)
	require.Len(t, res.Hits, 3)
	// Scores are non-increasing.
	assert.GreaterOrEqual(t, res.Hits[0].Score, res.Hits[1].Score)
	assert.GreaterOrEqual(t, res.Hits[1].Score, res.Hits[2].Score)
}

func TestSearchSkipsDimensionMismatch(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float32{"query": {1, 0, 0}}}
	chunks := []corpus.Chunk{
		embeddedChunk("good.go", []float32{1, 0, 0}),
		embeddedChunk("bad.go", []float32{1, 0}),
	}

	res := Search(context.Background(), emb, chunks, "query", 10, nil)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "good.go", res.Hits[0].Chunk.FileName)
}
