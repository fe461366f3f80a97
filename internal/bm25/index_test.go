package bm25

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowvex/knowvex/internal/domain"
)

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "c1", FileID: "f1", Filename: "invoice.pdf", Content: "invoice total 4500 TRY for february"},
		{ID: "c2", FileID: "f1", Filename: "invoice.pdf", Content: "payment due within thirty days"},
		{ID: "c3", FileID: "f2", Filename: "contract.pdf", Content: "the supplier agrees to deliver monthly"},
	}
}

func TestBuildAndSearch(t *testing.T) {
	idx, err := Build(testChunks())
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 3, idx.Size())

	results, err := idx.Search(context.Background(), "invoice total", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Greater(t, results[0].Score, 0.0)
}

func TestSearchTurkishQuery(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "c1", FileID: "f1", Content: "müşteri faturası şubat ayı"},
		{ID: "c2", FileID: "f1", Content: "tedarikçi sözleşmesi imzalandı"},
	}
	idx, err := Build(chunks)
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "faturası", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c1", results[0].ChunkID)
}

func TestSearchEmptyQuery(t *testing.T) {
	idx, err := Build(testChunks())
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRespectsLimit(t *testing.T) {
	idx, err := Build(testChunks())
	require.NoError(t, err)
	defer idx.Close()

	results, err := idx.Search(context.Background(), "invoice payment supplier", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestChunkLookup(t *testing.T) {
	idx, err := Build(testChunks())
	require.NoError(t, err)
	defer idx.Close()

	chunk, ok := idx.Chunk("c2")
	assert.True(t, ok)
	assert.Equal(t, "f1", chunk.FileID)

	_, ok = idx.Chunk("missing")
	assert.False(t, ok)
}

func TestBuildEmpty(t *testing.T) {
	idx, err := Build(nil)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 0, idx.Size())

	results, err := idx.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
