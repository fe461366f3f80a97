package search

// Config carries the retrieval tuning constants. The values are
// empirically tuned, not derived; they ship as defaults and are
// overridable through app configuration.
type Config struct {
	// RRFK is the rank-fusion smoothing constant. Larger values flatten
	// the difference between top ranks.
	RRFK int

	// UnscopedLimit, ListIntentLimit and ScopedLimit bound the fused
	// candidate list. Unscoped search gets a larger budget because it
	// has a larger pool to recover from; list-intent queries dig
	// deeper still.
	UnscopedLimit   int
	ListIntentLimit int
	ScopedLimit     int

	// Champion detection: of the top ChampionTopN fused chunks, one
	// file must supply at least ChampionMinCount and its filename must
	// clear ChampionNameMatchFloor against the query.
	ChampionTopN           int
	ChampionMinCount       int
	ChampionNameMatchFloor float64

	// CrossEncoderPool is the candidate count above which the
	// cross-encoder strategy is preferred over LLM selection.
	CrossEncoderPool int
}

// DefaultConfig returns the production defaults
func DefaultConfig() Config {
	return Config{
		RRFK:                   60,
		UnscopedLimit:          300,
		ListIntentLimit:        500,
		ScopedLimit:            150,
		ChampionTopN:           10,
		ChampionMinCount:       5,
		ChampionNameMatchFloor: 0.15,
		CrossEncoderPool:       50,
	}
}

// SearchLimit returns the fused-list budget for a scope and class
func (c Config) SearchLimit(restricted bool, cls Classification) int {
	if restricted {
		return c.ScopedLimit
	}
	if cls.Class == ClassListIntent {
		return c.ListIntentLimit
	}
	return c.UnscopedLimit
}
