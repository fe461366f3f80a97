package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowvex/knowvex/internal/domain"
)

func testChunk(id, fileID string) domain.Chunk {
	return domain.Chunk{
		ID:       id,
		FileID:   fileID,
		TenantID: "tenant-1",
		Filename: fileID + ".pdf",
		Content:  "content of " + id,
	}
}

func TestFuse(t *testing.T) {
	dense := []VectorHit{
		{Chunk: testChunk("c1", "f1"), Score: 0.95},
		{Chunk: testChunk("c2", "f1"), Score: 0.90},
		{Chunk: testChunk("c3", "f2"), Score: 0.85},
	}
	sparse := []SparseHit{
		{Chunk: testChunk("c3", "f2"), Score: 12.0},
		{Chunk: testChunk("c4", "f2"), Score: 8.0},
	}

	fused := Fuse(dense, sparse, 60, 10)
	require.Len(t, fused, 4)

	// c3 appears in both channels, so its additive score beats every
	// single-channel chunk
	assert.Equal(t, "c3", fused[0].Chunk.ID)
	assert.True(t, fused[0].InBothChannels())
	assert.InDelta(t, 1.0/63.0+1.0/61.0, fused[0].RRFScore, 1e-12)

	assert.Equal(t, "c1", fused[1].Chunk.ID)
	assert.InDelta(t, 1.0/61.0, fused[1].RRFScore, 1e-12)

	seen := make(map[string]bool)
	for _, sc := range fused {
		assert.False(t, seen[sc.Chunk.ID], "duplicate chunk %s", sc.Chunk.ID)
		seen[sc.Chunk.ID] = true
	}
}

func TestFuseIsDeterministic(t *testing.T) {
	dense := []VectorHit{
		{Chunk: testChunk("b", "f1"), Score: 0.9},
		{Chunk: testChunk("d", "f2"), Score: 0.8},
	}
	sparse := []SparseHit{
		{Chunk: testChunk("a", "f1"), Score: 5.0},
		{Chunk: testChunk("c", "f3"), Score: 5.0},
	}

	first := Fuse(dense, sparse, 60, 10)
	for i := 0; i < 20; i++ {
		again := Fuse(dense, sparse, 60, 10)
		assert.Equal(t, first, again)
	}
}

func TestFuseTieBreaks(t *testing.T) {
	// Same rank in opposite channels gives an identical RRF score;
	// higher BM25 score wins, then chunk ID.
	dense := []VectorHit{
		{Chunk: testChunk("zz", "f1"), Score: 0.9},
	}
	sparse := []SparseHit{
		{Chunk: testChunk("aa", "f2"), Score: 3.0},
	}

	fused := Fuse(dense, sparse, 60, 10)
	require.Len(t, fused, 2)
	assert.Equal(t, "aa", fused[0].Chunk.ID)
	assert.Equal(t, "zz", fused[1].Chunk.ID)
}

func TestFuseEmptySparsePreservesDenseOrder(t *testing.T) {
	dense := []VectorHit{
		{Chunk: testChunk("c1", "f1"), Score: 0.95},
		{Chunk: testChunk("c2", "f1"), Score: 0.90},
		{Chunk: testChunk("c3", "f2"), Score: 0.85},
	}

	fused := Fuse(dense, nil, 60, 10)
	require.Len(t, fused, 3)
	for i, id := range []string{"c1", "c2", "c3"} {
		assert.Equal(t, id, fused[i].Chunk.ID)
		assert.Zero(t, fused[i].BM25Rank)
	}
}

func TestFuseTruncatesToLimit(t *testing.T) {
	var dense []VectorHit
	for i := 0; i < 20; i++ {
		dense = append(dense, VectorHit{Chunk: testChunk(string(rune('a'+i)), "f1"), Score: 1.0 - float64(i)*0.01})
	}

	fused := Fuse(dense, nil, 60, 5)
	assert.Len(t, fused, 5)
}

func TestFilterMail(t *testing.T) {
	chunks := []ScoredChunk{
		{Chunk: testChunk("c1", "f1")},
		{Chunk: testChunk("c2", "mail_abc")},
		{Chunk: testChunk("c3", "f2")},
	}

	filtered := FilterMail(chunks)
	require.Len(t, filtered, 2)
	assert.Equal(t, "c1", filtered[0].Chunk.ID)
	assert.Equal(t, "c3", filtered[1].Chunk.ID)
}

func TestFilterScope(t *testing.T) {
	chunks := []ScoredChunk{
		{Chunk: testChunk("c1", "fileA")},
		{Chunk: testChunk("c2", "fileB")},
		{Chunk: testChunk("c3", "fileC")},
	}

	t.Run("restricted scope drops outsiders", func(t *testing.T) {
		scope := domain.Scope{TenantID: "tenant-1", FileIDs: []string{"fileA", "fileB"}}
		filtered := FilterScope(chunks, scope)
		require.Len(t, filtered, 2)
		for _, sc := range filtered {
			assert.True(t, scope.Contains(sc.Chunk.FileID))
		}
	})

	t.Run("unrestricted scope passes everything", func(t *testing.T) {
		scope := domain.Scope{TenantID: "tenant-1"}
		assert.Len(t, FilterScope(chunks, scope), 3)
	})
}
