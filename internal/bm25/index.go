package bm25

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/knowvex/knowvex/internal/domain"
)

const (
	// WordTokenizerName is the name of the registered word tokenizer
	WordTokenizerName = "knowvex_word"
	// AnalyzerName is the name of the registered analyzer
	AnalyzerName = "knowvex_text"
)

func init() {
	_ = registry.RegisterTokenizer(WordTokenizerName, wordTokenizerConstructor)
}

func wordTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &wordTokenizer{}, nil
}

// indexedDoc is the document structure handed to Bleve
type indexedDoc struct {
	Content string `json:"content"`
}

// Result is a single sparse-channel hit
type Result struct {
	ChunkID string
	Score   float64
}

// Index is an in-memory BM25 index over a fixed set of chunks. Indexes
// are immutable after Build: scope changes produce a new Index via the
// cache rather than mutating a shared one.
type Index struct {
	index  bleve.Index
	chunks map[string]domain.Chunk
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": WordTokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = AnalyzerName

	return indexMapping, nil
}

// Build creates an in-memory index over the given chunks
func Build(chunks []domain.Chunk) (*Index, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	byID := make(map[string]domain.Chunk, len(chunks))

	batch := idx.NewBatch()
	for _, chunk := range chunks {
		if err := batch.Index(chunk.ID, indexedDoc{Content: chunk.Content}); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to index chunk %s: %w", chunk.ID, err)
		}
		byID[chunk.ID] = chunk
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to execute batch: %w", err)
	}

	return &Index{index: idx, chunks: byID}, nil
}

// Search returns chunks matching the query, scored by BM25
func (x *Index) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return []Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	searchRequest := bleve.NewSearchRequest(matchQuery)
	searchRequest.Size = limit

	result, err := x.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		results = append(results, Result{ChunkID: hit.ID, Score: hit.Score})
	}

	return results, nil
}

// Chunk returns the indexed chunk for an ID
func (x *Index) Chunk(id string) (domain.Chunk, bool) {
	chunk, ok := x.chunks[id]
	return chunk, ok
}

// Size returns the number of indexed chunks
func (x *Index) Size() int {
	return len(x.chunks)
}

// Close releases index resources
func (x *Index) Close() error {
	return x.index.Close()
}
