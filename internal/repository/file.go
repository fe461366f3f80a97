package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/pagination"
	"github.com/knowvex/knowvex/internal/service"
)

type FileRepository struct {
	db dbtx
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: pool}
}

func NewFileRepositoryWithTx(tx pgx.Tx) *FileRepository {
	return &FileRepository{db: tx}
}

func (r *FileRepository) Create(ctx context.Context, f *domain.File) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO files (id, tenant_id, folder_id, filename, mime_type, sha256, storage_key, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.ID, f.TenantID, nullableString(f.FolderID), f.Filename, f.MimeType, f.SHA256, f.StorageKey, f.Status, f.CreatedAt, f.UpdatedAt,
	)
	return err
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	var f domain.File
	var folderID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, folder_id, filename, mime_type, sha256, storage_key, status, created_at, updated_at
		 FROM files WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.TenantID, &folderID, &f.Filename, &f.MimeType, &f.SHA256, &f.StorageKey, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	if folderID != nil {
		f.FolderID = *folderID
	}
	return &f, nil
}

// GetBySHA256 looks up a tenant's file by content hash, for upload
// deduplication.
func (r *FileRepository) GetBySHA256(ctx context.Context, tenantID, sha256 string) (*domain.File, error) {
	var f domain.File
	var folderID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, folder_id, filename, mime_type, sha256, storage_key, status, created_at, updated_at
		 FROM files WHERE tenant_id = $1 AND sha256 = $2`,
		tenantID, sha256,
	).Scan(&f.ID, &f.TenantID, &folderID, &f.Filename, &f.MimeType, &f.SHA256, &f.StorageKey, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	if folderID != nil {
		f.FolderID = *folderID
	}
	return &f, nil
}

func (r *FileRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.File, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, folder_id, filename, mime_type, sha256, storage_key, status, created_at, updated_at
		 FROM files WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFileRows(rows)
}

func (r *FileRepository) ListByFolder(ctx context.Context, folderID string) ([]*domain.File, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, folder_id, filename, mime_type, sha256, storage_key, status, created_at, updated_at
		 FROM files WHERE folder_id = $1 ORDER BY created_at DESC`,
		folderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFileRows(rows)
}

func (r *FileRepository) ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*service.FilePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, folder_id, filename, mime_type, sha256, storage_key, status, created_at, updated_at
			 FROM files
			 WHERE tenant_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			tenantID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, folder_id, filename, mime_type, sha256, storage_key, status, created_at, updated_at
			 FROM files
			 WHERE tenant_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			tenantID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files, err := scanFileRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(files) > limit
	if hasMore {
		files = files[:limit]
	}

	var nextCursor string
	if hasMore && len(files) > 0 {
		last := files[len(files)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.FilePageResult{
		Items:      files,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListReadyIDs returns the IDs of every indexed file in the tenant,
// excluding mail-sync files when excludeMail is set.
func (r *FileRepository) ListReadyIDs(ctx context.Context, tenantID string, excludeMail bool) ([]string, error) {
	query := `SELECT id FROM files WHERE tenant_id = $1 AND status = $2`
	args := []any{tenantID, domain.FileStatusReady}
	if excludeMail {
		query += ` AND id NOT LIKE $3`
		args = append(args, domain.MailFilePrefix+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *FileRepository) UpdateStatus(ctx context.Context, id string, status domain.FileStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE files SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM files WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func scanFileRows(rows pgx.Rows) ([]*domain.File, error) {
	var files []*domain.File
	for rows.Next() {
		var f domain.File
		var folderID *string
		if err := rows.Scan(&f.ID, &f.TenantID, &folderID, &f.Filename, &f.MimeType, &f.SHA256, &f.StorageKey, &f.Status, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if folderID != nil {
			f.FolderID = *folderID
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}
