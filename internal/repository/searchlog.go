package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowvex/knowvex/internal/service"
)

// SearchLogRepository stores one row per answered question, feeding
// retrieval quality evaluation.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	degradations := entry.Degradations
	if degradations == nil {
		degradations = []string{}
	}
	degradationsJSON, _ := json.Marshal(degradations)

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO search_logs
			(tenant_id, api_key_id, question, query_class, champion_file_id, degradations,
			 result_count, duration_ms, input_tokens, output_tokens)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		entry.TenantID,
		entry.APIKeyID,
		entry.Question,
		entry.QueryClass,
		nullableString(entry.ChampionFileID),
		degradationsJSON,
		entry.ResultCount,
		entry.DurationMs,
		entry.InputTokens,
		entry.OutputTokens,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
