package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/telemetry"
)

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	ReplaceForFile(ctx context.Context, fileID string, chunks []domain.Chunk) error
	DeleteForFile(ctx context.Context, fileID string) error
}

// IndexJobRepositoryInterface defines the repository interface for index job persistence
type IndexJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IndexJob) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.IndexJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.IndexJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// EmbedderInterface generates one embedding per text.
type EmbedderInterface interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IndexingService turns an uploaded file into searchable chunks: fetch
// the bytes, split, embed, replace the file's chunk rows and invalidate
// the tenant's sparse indexes. Called by the background worker.
type IndexingService struct {
	fileRepo      FileRepositoryInterface
	storageClient StorageClientInterface
	embedder      EmbedderInterface
	sparse        SparseInvalidator
	txRunner      TxRunner
	chunkCfg      ChunkConfig
}

func NewIndexingService(
	fileRepo FileRepositoryInterface,
	storageClient StorageClientInterface,
	embedder EmbedderInterface,
	sparse SparseInvalidator,
	txRunner TxRunner,
) *IndexingService {
	return &IndexingService{
		fileRepo:      fileRepo,
		storageClient: storageClient,
		embedder:      embedder,
		sparse:        sparse,
		txRunner:      txRunner,
		chunkCfg:      DefaultChunkConfig(),
	}
}

// IndexFile runs the full indexing pass for one file. On failure the
// file is marked failed and the error is returned so the job layer can
// retry.
func (s *IndexingService) IndexFile(ctx context.Context, fileID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IndexingService.IndexFile", telemetry.SpanAttributes{
		FileID:    fileID,
		Operation: "index",
	})
	defer span.End()

	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	if err := s.fileRepo.UpdateStatus(ctx, fileID, domain.FileStatusIndexing); err != nil {
		return err
	}

	if err := s.indexFile(ctx, file); err != nil {
		if statusErr := s.fileRepo.UpdateStatus(ctx, fileID, domain.FileStatusFailed); statusErr != nil {
			return fmt.Errorf("indexing failed: %w (status update also failed: %v)", err, statusErr)
		}
		return err
	}

	s.sparse.Invalidate(file.TenantID)
	return nil
}

func (s *IndexingService) indexFile(ctx context.Context, file *domain.File) error {
	body, err := s.storageClient.GetObject(ctx, file.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to fetch file bytes: %w", err)
	}

	text := extractText(body)
	pieces := chunkText(text, s.chunkCfg)

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.embedder.Embed(ctx, piece)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}

		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", file.ID, i),
			FileID:     file.ID,
			TenantID:   file.TenantID,
			FolderID:   file.FolderID,
			Filename:   file.Filename,
			ChunkIndex: i,
			Content:    piece,
			Embedding:  embedding,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().ReplaceForFile(ctx, file.ID, chunks); err != nil {
			return fmt.Errorf("failed to replace chunks: %w", err)
		}
		return repos.Files().UpdateStatus(ctx, file.ID, domain.FileStatusReady)
	})
}

// extractText treats the stored bytes as plain text, dropping anything
// that is not valid UTF-8. Binary formats are expected to be converted
// to text before upload.
func extractText(body []byte) string {
	if utf8.Valid(body) {
		return string(body)
	}
	return strings.ToValidUTF8(string(body), "")
}
