package search

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/knowvex/knowvex/internal/llm"
)

// crossEncoderMaxChars bounds the document text sent per pair; the
// cross-encoder's own input window is short and scoring the head of a
// chunk is enough.
const crossEncoderMaxChars = 512

const rerankSystemPrompt = `You are a research assistant. Your task is to identify the excerpts most relevant to answering the user's question.

Rules:
1. For questions about what a department or person did, select every excerpt about those activities, not just ones naming them.
2. For "which suppliers" / "which companies" questions, select every excerpt containing a concrete company or supplier name, and every excerpt about contracts, purchase orders, offers or invoices. Skip excerpts that only contain generic procedure or form boilerplate — unless a company name appears in them.
3. An incomplete list is a wrong answer. When in doubt, include the excerpt.`

var numberPattern = regexp.MustCompile(`\d+`)

// Reranker picks the final, best-ordered chunk set when the champion
// short-circuit did not apply. Two strategies: a cross-encoder sidecar
// (preferred for large pools, materially faster at scale) and LLM
// excerpt selection (fallback, and preferred for small pools where its
// flexibility outweighs latency).
type Reranker struct {
	cross  CrossEncoder
	client llm.Client
	model  string
	cfg    Config
}

// NewReranker creates a Reranker. cross may be nil, in which case every
// pool goes through LLM selection.
func NewReranker(cross CrossEncoder, client llm.Client, model string, cfg Config) *Reranker {
	return &Reranker{cross: cross, client: client, model: model, cfg: cfg}
}

// Rerank returns the final selection for the query, honoring the
// class's pool cap and minimum-output floor. Degradations report any
// locally-recovered failures.
func (r *Reranker) Rerank(ctx context.Context, query string, pool []ScoredChunk, cls Classification, usage UsageFunc) ([]ScoredChunk, []Degradation) {
	if len(pool) == 0 {
		return nil, nil
	}

	budget := BudgetFor(cls)
	if len(pool) > budget.PoolCap {
		pool = pool[:budget.PoolCap]
	}

	var degradations []Degradation

	if r.cross != nil && len(pool) > r.cfg.CrossEncoderPool {
		selected, err := r.crossEncoderSelect(ctx, query, pool, budget)
		if err == nil {
			return backfill(selected, pool, budget.MinOutput), degradations
		}
		log.Printf("search: cross-encoder rerank failed, falling back to llm selection: %v", err)
		degradations = append(degradations, DegradedCrossEncoder)
	}

	selected, deg := r.llmSelect(ctx, query, pool, cls, budget, usage)
	degradations = append(degradations, deg...)
	return backfill(selected, pool, budget.MinOutput), degradations
}

// crossEncoderSelect scores every (query, head-of-chunk) pair jointly
// and keeps the top CrossEncoderTopK.
func (r *Reranker) crossEncoderSelect(ctx context.Context, query string, pool []ScoredChunk, budget Budget) ([]ScoredChunk, error) {
	docs := make([]string, len(pool))
	for i, sc := range pool {
		docs[i] = clipText(sc.Chunk.Content, crossEncoderMaxChars)
	}

	scores, err := r.cross.Score(ctx, query, docs)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, len(pool))
	order := make([]int, len(pool))
	for i := range pool {
		scored[i] = pool[i]
		scored[i].RerankScore = scores[i]
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scored[order[a]].RerankScore > scored[order[b]].RerankScore
	})

	topK := budget.CrossEncoderTopK
	if topK > len(order) {
		topK = len(order)
	}

	out := make([]ScoredChunk, 0, topK)
	for _, idx := range order[:topK] {
		out = append(out, scored[idx])
	}
	return out, nil
}

// llmSelect presents numbered excerpts to the LLM and parses the
// selected numbers out of free text. Parse failure falls back to a
// deterministic prefix take sized per class.
func (r *Reranker) llmSelect(ctx context.Context, query string, pool []ScoredChunk, cls Classification, budget Budget, usage UsageFunc) ([]ScoredChunk, []Degradation) {
	var excerpts strings.Builder
	for i, sc := range pool {
		fmt.Fprintf(&excerpts, "[[EXCERPT %d]]\n%s\n\n", i+1, sc.Chunk.Content)
	}

	prompt := fmt.Sprintf(`User's question: %q

Below are numbered excerpts. %s
Example format: "1, 3, 7, 12, 15, 20, 25, ..."

Excerpts:
%s
Write the numbers (comma separated) of ALL excerpts relevant to answering the question:`,
		query, selectionInstruction(cls), excerpts.String())

	resp, err := r.client.Complete(ctx, llm.CompletionRequest{
		Model:  r.model,
		System: rerankSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		log.Printf("search: llm rerank failed, taking first %d candidates: %v", budget.ParseFallback, err)
		return prefixTake(pool, budget.ParseFallback), []Degradation{DegradedRerankFailed}
	}

	if usage != nil {
		usage("rerank", resp.Usage)
	}

	indices := parseSelection(resp.Text, len(pool))
	if len(indices) == 0 {
		log.Printf("search: llm rerank selected nothing, taking first %d candidates", budget.ParseFallback)
		return prefixTake(pool, budget.ParseFallback), []Degradation{DegradedRerankParse}
	}

	selected := make([]ScoredChunk, 0, len(indices))
	for _, idx := range indices {
		selected = append(selected, pool[idx])
	}
	return selected, nil
}

// selectionInstruction returns the class-specific steering text for
// LLM selection. List classes push for exhaustive selection because a
// partial enumeration is a wrong answer.
func selectionInstruction(cls Classification) string {
	switch cls.Class {
	case ClassListIntent:
		switch cls.ListKind {
		case ListSupplier:
			return `This is a SUPPLIER/COMPANY LIST question. Select every excerpt containing a concrete company or supplier name, and every excerpt about contracts, purchase orders, offers or invoices. Skip generic procedure or blank-form text unless a company name appears in it. Select broadly — an excerpt with even one company name must be selected, and different excerpts may name different companies.`
		case ListNames:
			return `This is a NAME LIST question. Select every excerpt containing a concrete person, candidate or company name, including interview summaries, CVs and application documents. An excerpt with even one name must be selected. An incomplete list is wrong — select until every name is covered.`
		default:
			return `This is a LIST question. Select every excerpt containing concrete names, companies or data. Skip excerpts that only contain procedure definitions or blank forms. Select broadly rather than risk an incomplete list.`
		}
	case ClassCompanyAndDocType:
		return `This is a COMPANY/DOCUMENT DETAIL question. Select every excerpt containing the company name from the question, every excerpt matching the document type (offer, contract, invoice, purchase order), and prefer excerpts where both appear. Filenames and email domains mentioning the company count too.`
	case ClassCompanyOnly:
		return `This is a COMPANY DETAIL question. Select every excerpt containing the company name from the question, including filenames and email domains that mention it.`
	default:
		return `List ONLY the numbers of the excerpts most relevant to the question.`
	}
}

// parseSelection extracts 1-based excerpt numbers from free text,
// deduplicated, preserving the LLM's order, converted to 0-based.
func parseSelection(text string, poolSize int) []int {
	matches := numberPattern.FindAllString(text, -1)
	seen := make(map[int]struct{}, len(matches))
	indices := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil || n < 1 || n > poolSize {
			continue
		}
		idx := n - 1
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}
	return indices
}

// backfill enforces the class minimum: a selection below the floor is
// topped up with the highest-scoring unselected candidates by original
// fused score, or replaced by the whole pool when the pool itself is
// at or below the floor. Under-selection is a correctness bug for
// enumeration questions; over-selection only costs tokens.
func backfill(selected, pool []ScoredChunk, minOutput int) []ScoredChunk {
	if len(selected) >= minOutput {
		return selected
	}
	if len(pool) <= minOutput {
		out := make([]ScoredChunk, len(pool))
		copy(out, pool)
		return out
	}

	chosen := make(map[string]struct{}, len(selected))
	for _, sc := range selected {
		chosen[sc.Chunk.ID] = struct{}{}
	}

	out := append([]ScoredChunk(nil), selected...)
	// pool is in descending fused order, so walking it front to back
	// appends the best unselected candidates first
	for _, sc := range pool {
		if len(out) >= minOutput {
			break
		}
		if _, ok := chosen[sc.Chunk.ID]; ok {
			continue
		}
		out = append(out, sc)
	}
	return out
}

func prefixTake(pool []ScoredChunk, n int) []ScoredChunk {
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]ScoredChunk, n)
	copy(out, pool[:n])
	return out
}

// clipText truncates text to at most max bytes without splitting a rune
func clipText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	clipped := text[:max]
	for !utf8.ValidString(clipped) {
		clipped = clipped[:len(clipped)-1]
	}
	return clipped
}
