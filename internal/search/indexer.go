// Package search builds an in-memory semantic index over corpus
// chunks and ranks them by cosine similarity.
package search

import (
	"context"
	"time"

	"github.com/fyrsmithlabs/reposcope/internal/corpus"
	"github.com/fyrsmithlabs/reposcope/internal/embeddings"
	"github.com/fyrsmithlabs/reposcope/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// defaultRequestInterval spaces embedding calls to respect the
// provider's rate limits.
const defaultRequestInterval = 200 * time.Millisecond

// Progress reports indexing progress after each embedding attempt.
type Progress struct {
	Current int
	Total   int
}

// Indexer requests embeddings for chunks one at a time.
//
// Requests are strictly sequential and throttled. A failed embedding
// call leaves that chunk without an embedding instead of aborting the
// whole index; search then degrades per file rather than globally.
type Indexer struct {
	embedder embeddings.Embedder
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewIndexer creates an indexer with the default throttle.
func NewIndexer(embedder embeddings.Embedder, logger *zap.Logger) *Indexer {
	return NewIndexerWithInterval(embedder, defaultRequestInterval, logger)
}

// NewIndexerWithInterval creates an indexer with a custom inter-request
// interval. Zero disables throttling.
func NewIndexerWithInterval(embedder embeddings.Embedder, interval time.Duration, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Indexer{
		embedder: embedder,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.Named("indexer"),
	}
}

// Index attaches embeddings to the given chunks in place and returns
// the full list, embedded and un-embedded alike. onProgress may be
// nil. Cancelling the context stops further requests and returns the
// chunks processed so far together with the context error.
func (ix *Indexer) Index(ctx context.Context, chunks []corpus.Chunk, onProgress func(Progress)) ([]corpus.Chunk, error) {
	total := len(chunks)

	for i := range chunks {
		if err := ix.limiter.Wait(ctx); err != nil {
			return chunks, err
		}

		vec, err := ix.embedder.EmbedQuery(ctx, chunks[i].Content)
		if err != nil {
			metrics.EmbeddingRequests.WithLabelValues("error").Inc()
			ix.logger.Warn("embedding failed, keeping chunk without embedding",
				zap.String("file", chunks[i].FileName),
				zap.Error(err),
			)
		} else {
			metrics.EmbeddingRequests.WithLabelValues("success").Inc()
			chunks[i].Embedding = vec
		}

		if onProgress != nil {
			onProgress(Progress{Current: i + 1, Total: total})
		}
	}

	embedded := 0
	for i := range chunks {
		if chunks[i].Embedded() {
			embedded++
		}
	}
	ix.logger.Info("indexing complete",
		zap.Int("chunks", total),
		zap.Int("embedded", embedded),
	)

	return chunks, nil
}
