package service

import "context"

// SearchLogEntry captures one answered question for retrieval quality
// evaluation: what was asked, how it was classified, what degraded and
// what it cost.
type SearchLogEntry struct {
	TenantID       string
	APIKeyID       string
	Question       string
	QueryClass     string
	ChampionFileID string
	Degradations   []string
	ResultCount    int
	DurationMs     int
	InputTokens    int
	OutputTokens   int
}

// SearchLogRepositoryInterface persists search logs.
type SearchLogRepositoryInterface interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) (string, error)
}
