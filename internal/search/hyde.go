package search

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/knowvex/knowvex/internal/llm"
)

const hydeSystemPrompt = `You are a research assistant. Rewrite the user's question as if it were a passage taken from a document that answers it (for example an email, an offer, or a report). Return only the rewritten passage, nothing else. Write in the language of the question.`

// HyDE rewrites a question into a hypothetical answer-document so the
// dense channel embeds text that resembles the corpus instead of a
// question. Skipped for single-file scopes where there is no ambiguity
// about which document holds the answer.
type HyDE struct {
	client llm.Client
	model  string
}

// NewHyDE creates a HyDE expander using the given (cheap-tier) model
func NewHyDE(client llm.Client, model string) *HyDE {
	return &HyDE{client: client, model: model}
}

// Expand returns the expansion text for a question. Never fails: on
// generation error the original question is returned verbatim with
// degraded set, and the caller records the degradation.
func (h *HyDE) Expand(ctx context.Context, question string, usage UsageFunc) (text string, degraded bool) {
	prompt := fmt.Sprintf("Original question: %q\n\nA sample document passage that could answer this question:", question)

	resp, err := h.client.Complete(ctx, llm.CompletionRequest{
		Model:  h.model,
		System: hydeSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		log.Printf("search: hyde expansion failed, using raw question: %v", err)
		return question, true
	}

	if usage != nil {
		usage("hyde", resp.Usage)
	}

	expanded := strings.TrimSpace(resp.Text)
	if expanded == "" {
		return question, true
	}
	return expanded, false
}
