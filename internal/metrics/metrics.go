// Package metrics exposes Prometheus metrics for the ingestion and
// indexing pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FilesFetched counts per-file download outcomes.
	// Labels: result (success, error)
	FilesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reposcope",
			Subsystem: "ingest",
			Name:      "files_fetched_total",
			Help:      "Total number of per-file download attempts by outcome",
		},
		[]string{"result"},
	)

	// FetchSessions counts completed fetch sessions.
	// Labels: result (success, cancelled, error)
	FetchSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reposcope",
			Subsystem: "ingest",
			Name:      "fetch_sessions_total",
			Help:      "Total number of fetch sessions by outcome",
		},
		[]string{"result"},
	)

	// CorpusBytes records the size of assembled corpora.
	CorpusBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reposcope",
			Subsystem: "ingest",
			Name:      "corpus_bytes",
			Help:      "Size in bytes of assembled corpora",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// EmbeddingRequests counts chunk embedding attempts.
	// Labels: result (success, error)
	EmbeddingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reposcope",
			Subsystem: "index",
			Name:      "embedding_requests_total",
			Help:      "Total number of chunk embedding attempts by outcome",
		},
		[]string{"result"},
	)

	// APICacheLookups counts GitHub API cache hits and misses.
	// Labels: result (hit, miss)
	APICacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reposcope",
			Subsystem: "githubapi",
			Name:      "cache_lookups_total",
			Help:      "Total number of GitHub API response cache lookups",
		},
		[]string{"result"},
	)
)
