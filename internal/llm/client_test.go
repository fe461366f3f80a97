package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockChatAPI is a mock for the OpenAI chat API
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

func chatResponse(text string, promptTokens, completionTokens int) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text}},
		},
		Usage: openai.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
		},
	}
}

func TestOpenAIClient_Complete_Success(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := NewOpenAIClientWithAPI(mockAPI, "gpt-4o")

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o" && len(req.Messages) == 2
	})).Return(chatResponse("the answer", 120, 15), nil)

	resp, err := client.Complete(ctx, CompletionRequest{
		System: "You answer questions.",
		Prompt: "what is the invoice total?",
	})

	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Text)
	assert.Equal(t, 120, resp.Usage.InputTokens)
	assert.Equal(t, 15, resp.Usage.OutputTokens)
	assert.False(t, resp.Usage.Estimated)
	mockAPI.AssertExpectations(t)
}

func TestOpenAIClient_Complete_ModelOverride(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := NewOpenAIClientWithAPI(mockAPI, "gpt-4o")

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "gpt-4o-mini"
	})).Return(chatResponse("ok", 10, 1), nil)

	_, err := client.Complete(ctx, CompletionRequest{Model: "gpt-4o-mini", Prompt: "hi"})

	require.NoError(t, err)
	mockAPI.AssertExpectations(t)
}

func TestOpenAIClient_Complete_EstimatesUsageWhenMissing(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := NewOpenAIClientWithAPI(mockAPI, "gpt-4o")

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.Anything).Return(chatResponse("four char text..", 0, 0), nil)

	resp, err := client.Complete(ctx, CompletionRequest{Prompt: "a prompt of some length here"})

	require.NoError(t, err)
	assert.True(t, resp.Usage.Estimated)
	assert.Equal(t, EstimateTokens("a prompt of some length here"), resp.Usage.InputTokens)
	assert.Equal(t, EstimateTokens("four char text.."), resp.Usage.OutputTokens)
}

func TestOpenAIClient_Complete_EmptyPrompt(t *testing.T) {
	client := NewOpenAIClientWithAPI(new(MockChatAPI), "gpt-4o")

	_, err := client.Complete(context.Background(), CompletionRequest{})

	assert.Equal(t, ErrEmptyPrompt, err)
}

func TestOpenAIClient_Complete_APIError(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := NewOpenAIClientWithAPI(mockAPI, "gpt-4o")

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.Anything).
		Return(openai.ChatCompletionResponse{}, errors.New("rate limit exceeded"))

	_, err := client.Complete(ctx, CompletionRequest{Prompt: "hi"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestOpenAIClient_Complete_NoChoices(t *testing.T) {
	mockAPI := new(MockChatAPI)
	client := NewOpenAIClientWithAPI(mockAPI, "gpt-4o")

	ctx := context.Background()
	mockAPI.On("CreateChatCompletion", ctx, mock.Anything).Return(openai.ChatCompletionResponse{}, nil)

	_, err := client.Complete(ctx, CompletionRequest{Prompt: "hi"})

	assert.Equal(t, ErrNoChoices, err)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
