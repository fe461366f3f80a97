package service

import (
	"context"
	"fmt"
	"time"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/pagination"
	"github.com/knowvex/knowvex/internal/telemetry"
)

type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (*ObjectMetadata, error)
}

type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

type FilePageResult struct {
	Items      []*domain.File
	NextCursor string
	HasMore    bool
}

// FileRepositoryInterface defines the repository interface for file persistence
type FileRepositoryInterface interface {
	Create(ctx context.Context, f *domain.File) error
	GetByID(ctx context.Context, id string) (*domain.File, error)
	GetBySHA256(ctx context.Context, tenantID, sha256 string) (*domain.File, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.File, error)
	ListByFolder(ctx context.Context, folderID string) ([]*domain.File, error)
	ListByTenantWithCursor(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*FilePageResult, error)
	ListReadyIDs(ctx context.Context, tenantID string, excludeMail bool) ([]string, error)
	UpdateStatus(ctx context.Context, id string, status domain.FileStatus) error
	Delete(ctx context.Context, id string) error
}

// SparseInvalidator drops cached sparse indexes for a tenant after its
// chunk set changes.
type SparseInvalidator interface {
	Invalidate(tenantID string)
}

// FileService owns the file lifecycle: presigned upload, registration,
// re-index and deletion. Indexing itself happens in the background
// worker; this service only queues jobs.
type FileService struct {
	fileRepo      FileRepositoryInterface
	storageClient StorageClientInterface
	sparse        SparseInvalidator
	txRunner      TxRunner
	uuidGen       UUIDGenerator
}

func NewFileService(
	fileRepo FileRepositoryInterface,
	storageClient StorageClientInterface,
	sparse SparseInvalidator,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *FileService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &FileService{
		fileRepo:      fileRepo,
		storageClient: storageClient,
		sparse:        sparse,
		txRunner:      txRunner,
		uuidGen:       uuidGen,
	}
}

type InitUploadInput struct {
	TenantID    string
	FolderID    string
	Filename    string
	ContentType string
}

type InitUploadResult struct {
	FileID     string
	StorageKey string
	UploadURL  string
}

// InitUpload reserves a file ID and returns a presigned PUT URL. No row
// is written until CompleteUpload confirms the bytes landed.
func (s *FileService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	if input.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if input.Filename == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}

	fileID := s.uuidGen.NewString()
	storageKey := buildStorageKey(input.TenantID, fileID, input.Filename)

	uploadURL, err := s.storageClient.GenerateUploadURL(ctx, storageKey, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &InitUploadResult{
		FileID:     fileID,
		StorageKey: storageKey,
		UploadURL:  uploadURL,
	}, nil
}

type CompleteUploadInput struct {
	FileID      string
	TenantID    string
	FolderID    string
	Filename    string
	ContentType string
	StorageKey  string
	SHA256      string
}

// CompleteUpload verifies the object exists, registers the file and
// queues its index job in one transaction.
func (s *FileService) CompleteUpload(ctx context.Context, input CompleteUploadInput) (*domain.File, error) {
	ctx, span := telemetry.StartSpan(ctx, "FileService.CompleteUpload", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		FileID:    input.FileID,
		Operation: "upload",
	})
	defer span.End()

	if _, err := s.storageClient.HeadObject(ctx, input.StorageKey); err != nil {
		return nil, fmt.Errorf("failed to verify uploaded file: %w", err)
	}

	if input.SHA256 != "" {
		if existing, err := s.fileRepo.GetBySHA256(ctx, input.TenantID, input.SHA256); err == nil && existing != nil {
			return nil, domain.ErrFileAlreadyExists
		}
	}

	now := time.Now().UTC()
	file := domain.NewFile(
		input.FileID, input.TenantID, input.FolderID,
		input.Filename, input.ContentType, input.SHA256, input.StorageKey,
		domain.FileStatusPending, now,
	)

	if err := domain.ValidateFile(file); err != nil {
		return nil, err
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Files().Create(ctx, file); err != nil {
			return fmt.Errorf("failed to create file record: %w", err)
		}

		job := domain.NewIndexJob(s.uuidGen.NewString(), file.ID, domain.IndexJobStatusPending, 0, "", now, nil)
		if err := repos.IndexJobs().Create(ctx, job); err != nil {
			return fmt.Errorf("failed to queue index job: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return file, nil
}

// Reindex queues a fresh index job for an already-registered file. The
// new chunk set replaces the old one when the job runs.
func (s *FileService) Reindex(ctx context.Context, tenantID, fileID string) error {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if file.TenantID != tenantID {
		return domain.ErrScopeMismatch
	}

	now := time.Now().UTC()
	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Files().UpdateStatus(ctx, fileID, domain.FileStatusPending); err != nil {
			return err
		}
		job := domain.NewIndexJob(s.uuidGen.NewString(), fileID, domain.IndexJobStatusPending, 0, "", now, nil)
		return repos.IndexJobs().Create(ctx, job)
	})
}

func (s *FileService) GetByID(ctx context.Context, tenantID, fileID string) (*domain.File, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.TenantID != tenantID {
		return nil, domain.ErrFileNotFound
	}
	return file, nil
}

func (s *FileService) GetDownloadURL(ctx context.Context, tenantID, fileID string) (string, error) {
	file, err := s.GetByID(ctx, tenantID, fileID)
	if err != nil {
		return "", err
	}

	url, err := s.storageClient.GenerateDownloadURL(ctx, file.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return url, nil
}

type ListFilesInput struct {
	TenantID string
	Cursor   string
	Limit    int
}

type ListFilesOutput struct {
	Items   []*domain.File
	Cursor  string
	HasMore bool
}

func (s *FileService) ListFiles(ctx context.Context, input ListFilesInput) (*ListFilesOutput, error) {
	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.fileRepo.ListByTenantWithCursor(ctx, input.TenantID, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListFilesOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// Delete removes the file's chunks and record, then its stored bytes
// and the tenant's cached sparse indexes.
func (s *FileService) Delete(ctx context.Context, tenantID, fileID string) error {
	ctx, span := telemetry.StartSpan(ctx, "FileService.Delete", telemetry.SpanAttributes{
		TenantID:  tenantID,
		FileID:    fileID,
		Operation: "delete",
	})
	defer span.End()

	file, err := s.GetByID(ctx, tenantID, fileID)
	if err != nil {
		return err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().DeleteForFile(ctx, fileID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		return repos.Files().Delete(ctx, fileID)
	})
	if err != nil {
		return err
	}

	if err := s.storageClient.DeleteObject(ctx, file.StorageKey); err != nil {
		return fmt.Errorf("failed to delete from storage: %w", err)
	}

	s.sparse.Invalidate(tenantID)
	return nil
}

func buildStorageKey(tenantID, fileID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", tenantID, fileID, filename)
}
