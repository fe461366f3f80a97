package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/knowvex/knowvex/internal/domain"
)

type FolderRepository struct {
	pool *pgxpool.Pool
}

func NewFolderRepository(pool *pgxpool.Pool) *FolderRepository {
	return &FolderRepository{pool: pool}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO folders (id, tenant_id, parent_id, name, created_at) VALUES ($1, $2, $3, $4, $5)`,
		folder.ID, folder.TenantID, nullableString(folder.ParentID), folder.Name, folder.CreatedAt,
	)
	return err
}

func (r *FolderRepository) GetByID(ctx context.Context, id string) (*domain.Folder, error) {
	var f domain.Folder
	var parentID *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, parent_id, name, created_at FROM folders WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.TenantID, &parentID, &f.Name, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, err
	}
	if parentID != nil {
		f.ParentID = *parentID
	}
	return &f, nil
}

func (r *FolderRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Folder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, parent_id, name, created_at FROM folders WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFolders(rows)
}

// ListChildren returns the direct child folders of parentID.
func (r *FolderRepository) ListChildren(ctx context.Context, parentID string) ([]*domain.Folder, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, parent_id, name, created_at FROM folders WHERE parent_id = $1 ORDER BY created_at DESC`,
		parentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFolders(rows)
}

func scanFolders(rows pgx.Rows) ([]*domain.Folder, error) {
	var folders []*domain.Folder
	for rows.Next() {
		var f domain.Folder
		var parentID *string
		if err := rows.Scan(&f.ID, &f.TenantID, &parentID, &f.Name, &f.CreatedAt); err != nil {
			return nil, err
		}
		if parentID != nil {
			f.ParentID = *parentID
		}
		folders = append(folders, &f)
	}
	return folders, rows.Err()
}

func (r *FolderRepository) Update(ctx context.Context, folder *domain.Folder) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE folders SET name = $1 WHERE id = $2`,
		folder.Name, folder.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFolderNotFound
	}
	return nil
}

func (r *FolderRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM folders WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFolderNotFound
	}
	return nil
}
