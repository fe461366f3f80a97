package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, chunkText("", DefaultChunkConfig()))
	assert.Nil(t, chunkText("   \n\t ", DefaultChunkConfig()))
}

func TestChunkText_ShortTextSingleChunk(t *testing.T) {
	chunks := chunkText("a short document", DefaultChunkConfig())
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short document", chunks[0])
}

func TestChunkText_SplitsLongText(t *testing.T) {
	text := strings.Repeat("kelime ", 500) // ~3500 chars
	cfg := DefaultChunkConfig()

	chunks := chunkText(text, cfg)
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), cfg.MaxChars)
		assert.NotEqual(t, "", strings.TrimSpace(c))
	}
}

func TestChunkText_CutsOnWordBoundary(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta ", 100)
	chunks := chunkText(text, ChunkConfig{MaxChars: 100, MinChars: 30, Overlap: 0})

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks[:len(chunks)-1] {
		// a cut mid-word would leave a partial token at the edge
		for _, word := range strings.Fields(c) {
			assert.Contains(t, []string{"alpha", "beta", "gamma", "delta"}, word)
		}
	}
}

func TestChunkText_OverlapRepeatsTail(t *testing.T) {
	text := strings.Repeat("one two three four five six seven eight nine ten ", 50)
	cfg := ChunkConfig{MaxChars: 200, MinChars: 50, Overlap: 60}

	chunks := chunkText(text, cfg)
	require.Greater(t, len(chunks), 1)

	// the start of each following chunk re-covers the end of the previous
	for i := 1; i < len(chunks); i++ {
		head := strings.Fields(chunks[i])[0]
		assert.Contains(t, chunks[i-1], head)
	}
}

func TestChunkText_MaxChunksCap(t *testing.T) {
	text := strings.Repeat("word ", 1000)
	chunks := chunkText(text, ChunkConfig{MaxChars: 100, MinChars: 20, Overlap: 0, MaxChunks: 3})
	assert.Len(t, chunks, 3)
}

func TestChunkText_ZeroMaxCharsUsesDefaults(t *testing.T) {
	text := strings.Repeat("x ", 2000)
	chunks := chunkText(text, ChunkConfig{})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), DefaultChunkConfig().MaxChars)
	}
}
