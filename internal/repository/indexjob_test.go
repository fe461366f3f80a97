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

func TestIndexJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenant := createTestTenant(ctx, t, NewTenantRepository(pool))
	fileRepo := NewFileRepository(pool)
	file := createTestFile(ctx, t, fileRepo, uuid.NewString(), tenant.ID, "doc.pdf")

	repo := NewIndexJobRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := domain.NewIndexJob(uuid.NewString(), file.ID, domain.IndexJobStatusPending, 0, "", now, nil)
	require.NoError(t, repo.Create(ctx, job))

	claimed, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
	assert.Equal(t, domain.IndexJobStatusProcessing, claimed[0].Status)

	// claimed jobs are no longer pending
	again, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestIndexJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenant := createTestTenant(ctx, t, NewTenantRepository(pool))
	fileRepo := NewFileRepository(pool)
	file := createTestFile(ctx, t, fileRepo, uuid.NewString(), tenant.ID, "doc.pdf")

	repo := NewIndexJobRepository(pool)

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := domain.NewIndexJob(uuid.NewString(), file.ID, domain.IndexJobStatusPending, 0, "", now, nil)
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.IndexJobStatusFailed, "boom"))

	retrieved, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexJobStatusFailed, retrieved.Status)
	assert.Equal(t, "boom", retrieved.Error)
	assert.NotNil(t, retrieved.ProcessedAt)

	require.NoError(t, repo.IncrementRetries(ctx, job.ID))
	retrieved, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, retrieved.Retries)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.NewString(), domain.IndexJobStatusCompleted, ""), ErrIndexJobNotFound)
}
