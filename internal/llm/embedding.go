package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected embedding dimension
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Embedder defines the interface for embedding generation
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingAPI defines the raw vendor call, split out for testability
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// OpenAIEmbedder implements Embedder with a dimension check on every result
type OpenAIEmbedder struct {
	api        EmbeddingAPI
	dimensions int
}

type openAIEmbeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func (a *openAIEmbeddingAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

// EmbedderConfig configures an OpenAIEmbedder
type EmbedderConfig struct {
	APIKey     string
	Model      openai.EmbeddingModel
	Dimensions int
}

// NewOpenAIEmbedder creates an embedder using defaults
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return NewOpenAIEmbedderWithConfig(EmbedderConfig{APIKey: apiKey})
}

// NewOpenAIEmbedderWithConfig creates an embedder with explicit configuration
func NewOpenAIEmbedderWithConfig(cfg EmbedderConfig) *OpenAIEmbedder {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &OpenAIEmbedder{
		api:        &openAIEmbeddingAdapter{client: openai.NewClient(cfg.APIKey), model: model},
		dimensions: dimensions,
	}
}

// NewOpenAIEmbedderWithAPI creates an embedder with an explicit EmbeddingAPI
func NewOpenAIEmbedderWithAPI(api EmbeddingAPI, dimensions int) *OpenAIEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &OpenAIEmbedder{api: api, dimensions: dimensions}
}

// Embed generates an embedding for the given text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := e.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	if len(embedding) != e.dimensions {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongDimensions, e.dimensions, len(embedding))
	}

	return embedding, nil
}
