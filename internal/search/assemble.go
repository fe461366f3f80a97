package search

import (
	"fmt"
	"strings"
)

// EmptyContextPlaceholder is what the answer prompt receives when
// retrieval produced nothing; the model is expected to say it cannot
// answer rather than hallucinate from an empty context.
const EmptyContextPlaceholder = "No document excerpt matching the question was found."

// AssembleContext renders the final selection into the prompt context
// block, attributing every excerpt to its source file. The per-class
// cap keeps list answers complete while bounding token spend for
// narrow questions.
func AssembleContext(chunks []ScoredChunk, cls Classification) string {
	if len(chunks) == 0 {
		return EmptyContextPlaceholder
	}

	limit := BudgetFor(cls).AssembleCap
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}

	parts := make([]string, 0, len(chunks))
	for i, sc := range chunks {
		parts = append(parts, fmt.Sprintf("--- Excerpt #%d (Source: %s) ---\n%s", i+1, sc.Chunk.Filename, sc.Chunk.Content))
	}
	return strings.Join(parts, "\n\n")
}
