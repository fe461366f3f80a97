package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/search"
)

// ChunkRepository persists file chunks with their embeddings and serves
// both retrieval channels: vector similarity for dense search and full
// scans for sparse index builds.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceForFile deletes a file's chunks and inserts the new set.
// Runs inside the indexing transaction so readers never see a half
// reindexed file.
func (r *ChunkRepository) ReplaceForFile(ctx context.Context, fileID string, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE file_id = $1`, fileID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := c.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(id, file_id, tenant_id, folder_id, filename, chunk_index, content, embedding, created_at, updated_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID,
			c.FileID,
			c.TenantID,
			nullableString(c.FolderID),
			c.Filename,
			c.ChunkIndex,
			c.Content,
			pgvector.NewVector(c.Embedding),
			createdAt,
			updatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *ChunkRepository) DeleteForFile(ctx context.Context, fileID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE file_id = $1`, fileID)
	return err
}

// FindSimilar returns the nearest chunks to the embedding by cosine
// distance, restricted to fileIDs when non-empty.
func (r *ChunkRepository) FindSimilar(ctx context.Context, tenantID string, embedding []float32, limit int, fileIDs []string) ([]search.VectorHit, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT id, file_id, tenant_id, folder_id, filename, chunk_index, content,
		       1.0 / (1.0 + (embedding <=> $1)) AS score
		FROM chunks
		WHERE tenant_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`
	args := []any{vec, tenantID, limit}

	if len(fileIDs) > 0 {
		query = `
		SELECT id, file_id, tenant_id, folder_id, filename, chunk_index, content,
		       1.0 / (1.0 + (embedding <=> $1)) AS score
		FROM chunks
		WHERE tenant_id = $2 AND file_id = ANY($3)
		ORDER BY embedding <=> $1
		LIMIT $4`
		args = []any{vec, tenantID, fileIDs, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []search.VectorHit
	for rows.Next() {
		var c domain.Chunk
		var folderID *string
		var score float64
		if err := rows.Scan(&c.ID, &c.FileID, &c.TenantID, &folderID, &c.Filename, &c.ChunkIndex, &c.Content, &score); err != nil {
			return nil, err
		}
		if folderID != nil {
			c.FolderID = *folderID
		}
		hits = append(hits, search.VectorHit{Chunk: c, Score: score})
	}
	return hits, rows.Err()
}

// ScanAll returns every chunk in scope without embeddings. Feeds sparse
// index builds, which only need text.
func (r *ChunkRepository) ScanAll(ctx context.Context, tenantID string, fileIDs []string) ([]domain.Chunk, error) {
	query := `
		SELECT id, file_id, tenant_id, folder_id, filename, chunk_index, content
		FROM chunks
		WHERE tenant_id = $1`
	args := []any{tenantID}

	if len(fileIDs) > 0 {
		query += ` AND file_id = ANY($2)`
		args = append(args, fileIDs)
	}

	query += ` ORDER BY file_id, chunk_index`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var folderID *string
		if err := rows.Scan(&c.ID, &c.FileID, &c.TenantID, &folderID, &c.Filename, &c.ChunkIndex, &c.Content); err != nil {
			return nil, err
		}
		if folderID != nil {
			c.FolderID = *folderID
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE tenant_id = $1`,
		tenantID,
	).Scan(&count)
	return count, err
}
