package search

// ChampionDecision records the outcome of champion-document detection
type ChampionDecision struct {
	Accepted   bool
	FileID     string
	Filename   string
	ChunkCount int
	MatchScore float64
}

// DetectChampion decides whether one document dominates the top of the
// fused ranking strongly enough to skip reranking. The top ChampionTopN
// chunks are counted per file; a file supplying at least
// ChampionMinCount of them is a candidate, accepted only if its
// filename clears the name-match floor against the query — a
// numerically dominant document whose name has nothing to do with the
// question is more likely noise than signal.
//
// singleFile force-disables detection: dominance inside one file is
// trivially total and uninformative, so those queries always rerank.
func DetectChampion(fused []ScoredChunk, query string, cfg Config, singleFile bool) ChampionDecision {
	if singleFile || len(fused) == 0 {
		return ChampionDecision{}
	}

	top := fused
	if len(top) > cfg.ChampionTopN {
		top = top[:cfg.ChampionTopN]
	}

	counts := make(map[string]int)
	names := make(map[string]string)
	for _, sc := range top {
		if sc.Chunk.FileID == "" {
			continue
		}
		counts[sc.Chunk.FileID]++
		names[sc.Chunk.FileID] = sc.Chunk.Filename
	}

	var bestID string
	bestCount := 0
	for id, n := range counts {
		if n > bestCount || (n == bestCount && id < bestID) {
			bestID = id
			bestCount = n
		}
	}

	if bestCount < cfg.ChampionMinCount {
		return ChampionDecision{}
	}

	decision := ChampionDecision{
		FileID:     bestID,
		Filename:   names[bestID],
		ChunkCount: bestCount,
		MatchScore: FilenameMatchScore(query, names[bestID]),
	}

	decision.Accepted = decision.MatchScore >= cfg.ChampionNameMatchFloor
	return decision
}

// ChampionChunks returns every fused chunk belonging to the champion
// file, preserving fused order.
func ChampionChunks(fused []ScoredChunk, fileID string) []ScoredChunk {
	out := make([]ScoredChunk, 0, len(fused))
	for _, sc := range fused {
		if sc.Chunk.FileID == fileID {
			out = append(out, sc)
		}
	}
	return out
}
