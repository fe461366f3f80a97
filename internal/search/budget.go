package search

// Budget is the per-class sizing contract. Under-sizing silently
// produces incomplete list answers; over-sizing wastes context budget.
type Budget struct {
	// PoolCap bounds the candidate pool handed to the reranker.
	PoolCap int
	// MinOutput is the guaranteed selection floor; the backfill rule
	// tops a smaller selection up to min(pool, MinOutput).
	MinOutput int
	// AssembleCap bounds how many chunks the context assembler emits.
	AssembleCap int
	// ParseFallback is the prefix-take size when the reranker LLM
	// response yields no parseable selection.
	ParseFallback int
	// CrossEncoderTopK is the truncation size for the cross-encoder
	// strategy, before backfill.
	CrossEncoderTopK int
}

// BudgetFor returns the sizing for a classification. The table is the
// single source of truth for reranking and assembly, which are tuned
// together.
func BudgetFor(cls Classification) Budget {
	switch cls.Class {
	case ClassListIntent:
		b := Budget{
			PoolCap:          300,
			AssembleCap:      200,
			MinOutput:        120,
			ParseFallback:    100,
			CrossEncoderTopK: 200,
		}
		switch cls.ListKind {
		case ListSupplier:
			b.MinOutput = 250
			b.AssembleCap = 300
		case ListNames:
			b.MinOutput = 150
			b.AssembleCap = 250
		}
		return b
	case ClassCompanyAndDocType:
		return Budget{
			PoolCap:          200,
			MinOutput:        50,
			AssembleCap:      80,
			ParseFallback:    50,
			CrossEncoderTopK: 50,
		}
	case ClassCompanyOnly:
		return Budget{
			PoolCap:          150,
			MinOutput:        30,
			AssembleCap:      60,
			ParseFallback:    30,
			CrossEncoderTopK: 50,
		}
	case ClassCountIntent:
		return Budget{
			PoolCap:          150,
			MinOutput:        50,
			AssembleCap:      150,
			ParseFallback:    20,
			CrossEncoderTopK: 50,
		}
	default:
		return Budget{
			PoolCap:          150,
			MinOutput:        20,
			AssembleCap:      100,
			ParseFallback:    20,
			CrossEncoderTopK: 50,
		}
	}
}
