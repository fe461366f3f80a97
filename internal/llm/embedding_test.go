package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingAPI is a mock for the OpenAI embedding API
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func TestOpenAIEmbedder_Embed_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	embedder := NewOpenAIEmbedderWithAPI(mockAPI, 1536)

	ctx := context.Background()
	text := "This is a test document about quarterly invoices."
	expected := make([]float32, 1536)
	for i := range expected {
		expected[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expected, nil)

	embedding, err := embedder.Embed(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 1536)
	assert.Equal(t, expected, embedding)
	mockAPI.AssertExpectations(t)
}

func TestOpenAIEmbedder_Embed_EmptyText(t *testing.T) {
	embedder := NewOpenAIEmbedder("")

	embedding, err := embedder.Embed(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestOpenAIEmbedder_Embed_APIError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	embedder := NewOpenAIEmbedderWithAPI(mockAPI, 1536)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "text").Return(nil, errors.New("API rate limit exceeded"))

	embedding, err := embedder.Embed(ctx, "text")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Contains(t, err.Error(), "failed to create embedding")
	mockAPI.AssertExpectations(t)
}

func TestOpenAIEmbedder_Embed_WrongDimensions(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	embedder := NewOpenAIEmbedderWithAPI(mockAPI, 1536)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "text").Return(make([]float32, 512), nil)

	embedding, err := embedder.Embed(ctx, "text")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, ErrWrongDimensions)
	mockAPI.AssertExpectations(t)
}
