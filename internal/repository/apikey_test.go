//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/testutil"
)

func createTestTenant(ctx context.Context, t *testing.T, repo *TenantRepository) *domain.Tenant {
	t.Helper()
	tenant := &domain.Tenant{
		ID:        uuid.NewString(),
		Name:      "Tenant " + uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, tenant))
	return tenant
}

func TestAPIKeyRepository_CreateAndGetByHash(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenant := createTestTenant(ctx, t, NewTenantRepository(pool))
	repo := NewAPIKeyRepository(pool)

	key := &domain.APIKey{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		Name:      "ci key",
		Role:      domain.APIKeyRoleAdmin,
		KeyHash:   "hash-abc",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	require.NoError(t, repo.Create(ctx, key))

	retrieved, err := repo.GetByHash(ctx, "hash-abc")
	require.NoError(t, err)
	assert.Equal(t, key.ID, retrieved.ID)
	assert.Equal(t, domain.APIKeyRoleAdmin, retrieved.Role)
	assert.Nil(t, retrieved.RevokedAt)

	_, err = repo.GetByHash(ctx, "no-such-hash")
	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAPIKeyRepository_Revoke(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenant := createTestTenant(ctx, t, NewTenantRepository(pool))
	repo := NewAPIKeyRepository(pool)

	key := &domain.APIKey{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		Name:      "member key",
		Role:      domain.APIKeyRoleMember,
		KeyHash:   "hash-member",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, key))

	require.NoError(t, repo.Revoke(ctx, key.ID))

	retrieved, err := repo.GetByID(ctx, key.ID)
	require.NoError(t, err)
	assert.NotNil(t, retrieved.RevokedAt)
	assert.True(t, retrieved.IsRevoked())

	// revoking twice finds no unrevoked row
	assert.ErrorIs(t, repo.Revoke(ctx, key.ID), domain.ErrAPIKeyNotFound)
}

func TestAPIKeyRepository_FilePermissions(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	tenant := createTestTenant(ctx, t, tenantRepo)
	other := createTestTenant(ctx, t, tenantRepo)

	keyRepo := NewAPIKeyRepository(pool)
	fileRepo := NewFileRepository(pool)

	key := &domain.APIKey{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		Name:      "member",
		Role:      domain.APIKeyRoleMember,
		KeyHash:   "hash-perm",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, keyRepo.Create(ctx, key))

	now := time.Now().UTC().Truncate(time.Microsecond)
	ownFile := domain.NewFile("file-own", tenant.ID, "", "a.pdf", "application/pdf", "sha-a", "key-a", domain.FileStatusReady, now)
	foreignFile := domain.NewFile("file-foreign", other.ID, "", "b.pdf", "application/pdf", "sha-b", "key-b", domain.FileStatusReady, now)
	require.NoError(t, fileRepo.Create(ctx, ownFile))
	require.NoError(t, fileRepo.Create(ctx, foreignFile))

	require.NoError(t, keyRepo.GrantFileAccess(ctx, key.ID, ownFile.ID))
	// grant is idempotent
	require.NoError(t, keyRepo.GrantFileAccess(ctx, key.ID, ownFile.ID))
	// a grant pointing at another tenant's file must not surface
	require.NoError(t, keyRepo.GrantFileAccess(ctx, key.ID, foreignFile.ID))

	ids, err := keyRepo.ListAccessibleFileIDs(ctx, tenant.ID, key.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ownFile.ID}, ids)

	require.NoError(t, keyRepo.RevokeFileAccess(ctx, key.ID, ownFile.ID))
	ids, err = keyRepo.ListAccessibleFileIDs(ctx, tenant.ID, key.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
