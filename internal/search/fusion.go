package search

import (
	"sort"
	"strings"

	"github.com/knowvex/knowvex/internal/domain"
)

// Fuse merges the dense and sparse channel results via reciprocal rank
// fusion: rrf = Σ over channels 1/(k + rank), a channel contributing
// nothing for chunks it did not return. The union is deduplicated by
// chunk ID, sorted descending by RRF score with deterministic
// tie-breaks, and truncated to limit.
//
// A chunk surfaced by both channels always outranks a chunk surfaced
// by one channel at a comparable rank because the scores are additive.
func Fuse(dense []VectorHit, sparse []SparseHit, k, limit int) []ScoredChunk {
	merged := make(map[string]*ScoredChunk, len(dense)+len(sparse))

	for i, hit := range dense {
		rank := i + 1
		merged[hit.Chunk.ID] = &ScoredChunk{
			Chunk:       hit.Chunk,
			VectorScore: hit.Score,
			VectorRank:  rank,
		}
	}

	for i, hit := range sparse {
		rank := i + 1
		if existing, ok := merged[hit.Chunk.ID]; ok {
			existing.BM25Score = hit.Score
			existing.BM25Rank = rank
			continue
		}
		merged[hit.Chunk.ID] = &ScoredChunk{
			Chunk:     hit.Chunk,
			BM25Score: hit.Score,
			BM25Rank:  rank,
		}
	}

	fused := make([]ScoredChunk, 0, len(merged))
	for _, sc := range merged {
		sc.RRFScore = 0
		if sc.VectorRank > 0 {
			sc.RRFScore += 1.0 / float64(k+sc.VectorRank)
		}
		if sc.BM25Rank > 0 {
			sc.RRFScore += 1.0 / float64(k+sc.BM25Rank)
		}
		fused = append(fused, *sc)
	}

	sort.Slice(fused, func(i, j int) bool {
		return lessFused(fused[i], fused[j])
	})

	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}

// lessFused orders fused results: RRF score descending, then presence
// in both channels, then BM25 score descending, then chunk ID. The ID
// tie-break makes fusion a pure function of its inputs.
func lessFused(a, b ScoredChunk) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.InBothChannels() != b.InBothChannels() {
		return a.InBothChannels()
	}
	if a.BM25Score != b.BM25Score {
		return a.BM25Score > b.BM25Score
	}
	return a.Chunk.ID < b.Chunk.ID
}

// FilterMail drops chunks from mail-sync files. Mail search is a
// separate retrieval surface; applied post-fusion.
func FilterMail(chunks []ScoredChunk) []ScoredChunk {
	filtered := make([]ScoredChunk, 0, len(chunks))
	for _, sc := range chunks {
		if strings.HasPrefix(sc.Chunk.FileID, domain.MailFilePrefix) {
			continue
		}
		filtered = append(filtered, sc)
	}
	return filtered
}

// FilterScope drops chunks outside a restricted scope. Fusion and
// reranking must never smuggle an out-of-scope chunk into the output.
func FilterScope(chunks []ScoredChunk, scope domain.Scope) []ScoredChunk {
	if !scope.IsRestricted() {
		return chunks
	}
	filtered := make([]ScoredChunk, 0, len(chunks))
	for _, sc := range chunks {
		if scope.Contains(sc.Chunk.FileID) {
			filtered = append(filtered, sc)
		}
	}
	return filtered
}
