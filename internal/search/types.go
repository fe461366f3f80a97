// Package search implements the hybrid retrieval and reranking
// pipeline: HyDE query expansion, dense and sparse retrieval channels
// fused with reciprocal rank fusion, champion-document detection, and
// adaptive reranking with query-class sizing.
package search

import (
	"context"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/llm"
)

// ScoredChunk is a chunk plus its per-query rank scores. Ephemeral:
// built during retrieval, never persisted.
type ScoredChunk struct {
	Chunk domain.Chunk

	// VectorRank and BM25Rank are 1-based; zero means the chunk was
	// absent from that channel.
	VectorScore float64
	VectorRank  int
	BM25Score   float64
	BM25Rank    int

	RRFScore    float64
	RerankScore float64
}

// InBothChannels reports whether both channels surfaced the chunk
func (s ScoredChunk) InBothChannels() bool {
	return s.VectorRank > 0 && s.BM25Rank > 0
}

// VectorHit is a dense-channel result
type VectorHit struct {
	Chunk domain.Chunk
	Score float64
}

// SparseHit is a sparse-channel result
type SparseHit struct {
	Chunk domain.Chunk
	Score float64
}

// ChunkStore is the persistence surface the pipeline reads from
type ChunkStore interface {
	// FindSimilar returns the nearest chunks to the embedding, ordered
	// by descending similarity, restricted to fileIDs when non-empty.
	FindSimilar(ctx context.Context, tenantID string, embedding []float32, limit int, fileIDs []string) ([]VectorHit, error)
	// ScanAll returns every chunk in scope. Used once per sparse index
	// build, not per query.
	ScanAll(ctx context.Context, tenantID string, fileIDs []string) ([]domain.Chunk, error)
}

// UsageFunc receives token accounting for every internal LLM call so
// aggregate cost can be surfaced upstream. step labels the pipeline
// stage ("hyde", "rerank", "answer").
type UsageFunc func(step string, usage llm.Usage)

// Degradation marks a locally-recovered dependency or parse failure.
// A degraded-but-nonempty result must stay distinguishable from a
// genuine "nothing found".
type Degradation string

const (
	DegradedHyDE           Degradation = "hyde_failed"
	DegradedDense          Degradation = "dense_unavailable"
	DegradedSparse         Degradation = "sparse_unavailable"
	DegradedCrossEncoder   Degradation = "cross_encoder_unavailable"
	DegradedRerankParse    Degradation = "rerank_parse_failed"
	DegradedRerankFailed   Degradation = "rerank_failed"
)
