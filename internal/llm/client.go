// Package llm wraps the OpenAI API behind narrow interfaces so services
// depend on completion and embedding behavior, not on a vendor SDK.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyPrompt is returned when the prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrNoChoices is returned when the API returns no completion choices
	ErrNoChoices = errors.New("no completion choices returned")
)

// Usage is the normalized token accounting for a single call. Estimated
// is set when the provider did not report usage and counts were derived
// from text length instead.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Estimated    bool
}

// Response is a normalized completion result
type Response struct {
	Text  string
	Usage Usage
}

// CompletionRequest describes a single chat completion call
type CompletionRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// Client defines the interface for chat completions
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (Response, error)
}

// ChatAPI defines the raw vendor call, split out for testability
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIClient implements Client against the OpenAI chat API
type OpenAIClient struct {
	api          ChatAPI
	defaultModel string
}

// NewOpenAIClient creates a new OpenAIClient
func NewOpenAIClient(apiKey, defaultModel string) *OpenAIClient {
	return &OpenAIClient{
		api:          openai.NewClient(apiKey),
		defaultModel: defaultModel,
	}
}

// NewOpenAIClientWithAPI creates a client with an explicit ChatAPI implementation
func NewOpenAIClientWithAPI(api ChatAPI, defaultModel string) *OpenAIClient {
	return &OpenAIClient{
		api:          api,
		defaultModel: defaultModel,
	}
}

// Complete runs a chat completion and normalizes the response
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (Response, error) {
	if req.Prompt == "" {
		return Response{}, ErrEmptyPrompt
	}

	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Response{}, ErrNoChoices
	}

	text := resp.Choices[0].Message.Content

	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	if resp.Usage.PromptTokens == 0 && resp.Usage.CompletionTokens == 0 {
		usage = Usage{
			InputTokens:  EstimateTokens(req.System) + EstimateTokens(req.Prompt),
			OutputTokens: EstimateTokens(text),
			Estimated:    true,
		}
	}

	return Response{Text: text, Usage: usage}, nil
}

// EstimateTokens approximates the token count of a text. Used when a
// provider response carries no usage block; roughly four characters per
// token for the corpus languages.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
