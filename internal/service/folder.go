package service

import (
	"context"
	"time"

	"github.com/knowvex/knowvex/internal/domain"
)

type FolderRepositoryInterface interface {
	Create(ctx context.Context, folder *domain.Folder) error
	GetByID(ctx context.Context, id string) (*domain.Folder, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Folder, error)
	ListChildren(ctx context.Context, parentID string) ([]*domain.Folder, error)
	Update(ctx context.Context, folder *domain.Folder) error
	Delete(ctx context.Context, id string) error
}

// FolderService manages folders and expands folder scopes into file
// ID sets for retrieval.
type FolderService struct {
	folderRepo FolderRepositoryInterface
	fileRepo   FileRepositoryInterface
	uuidGen    UUIDGenerator
}

func NewFolderService(folderRepo FolderRepositoryInterface, fileRepo FileRepositoryInterface, uuidGen UUIDGenerator) *FolderService {
	if uuidGen == nil {
		uuidGen = &DefaultUUIDGenerator{}
	}
	return &FolderService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		uuidGen:    uuidGen,
	}
}

func (s *FolderService) Create(ctx context.Context, tenantID, parentID, name string) (*domain.Folder, error) {
	if parentID != "" {
		parent, err := s.folderRepo.GetByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent.TenantID != tenantID {
			return nil, domain.ErrFolderNotFound
		}
	}

	folder := domain.NewFolder(s.uuidGen.NewString(), tenantID, parentID, name, time.Now().UTC())

	if err := domain.ValidateFolder(folder); err != nil {
		return nil, err
	}

	if err := s.folderRepo.Create(ctx, folder); err != nil {
		return nil, err
	}

	return folder, nil
}

func (s *FolderService) GetByID(ctx context.Context, tenantID, folderID string) (*domain.Folder, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.TenantID != tenantID {
		return nil, domain.ErrFolderNotFound
	}
	return folder, nil
}

func (s *FolderService) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Folder, error) {
	return s.folderRepo.ListByTenant(ctx, tenantID)
}

func (s *FolderService) Rename(ctx context.Context, tenantID, folderID, name string) (*domain.Folder, error) {
	folder, err := s.GetByID(ctx, tenantID, folderID)
	if err != nil {
		return nil, err
	}

	folder.Name = name
	if err := domain.ValidateFolder(folder); err != nil {
		return nil, err
	}

	if err := s.folderRepo.Update(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// Delete removes the folder record. Files keep their rows; the folder
// reference is cleared by the schema.
func (s *FolderService) Delete(ctx context.Context, tenantID, folderID string) error {
	if _, err := s.GetByID(ctx, tenantID, folderID); err != nil {
		return err
	}
	return s.folderRepo.Delete(ctx, folderID)
}

// ExpandToFileIDs resolves folder IDs into the IDs of the files they
// contain, descending into subfolders. Folders outside the tenant
// surface as a scope mismatch.
func (s *FolderService) ExpandToFileIDs(ctx context.Context, tenantID string, folderIDs []string) ([]string, error) {
	var fileIDs []string
	seenFiles := make(map[string]struct{})
	visited := make(map[string]struct{})

	queue := make([]string, 0, len(folderIDs))
	for _, folderID := range folderIDs {
		folder, err := s.folderRepo.GetByID(ctx, folderID)
		if err != nil {
			return nil, err
		}
		if folder.TenantID != tenantID {
			return nil, domain.ErrScopeMismatch
		}
		queue = append(queue, folderID)
	}

	for len(queue) > 0 {
		folderID := queue[0]
		queue = queue[1:]

		if _, ok := visited[folderID]; ok {
			continue
		}
		visited[folderID] = struct{}{}

		files, err := s.fileRepo.ListByFolder(ctx, folderID)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if _, ok := seenFiles[f.ID]; ok {
				continue
			}
			seenFiles[f.ID] = struct{}{}
			fileIDs = append(fileIDs, f.ID)
		}

		children, err := s.folderRepo.ListChildren(ctx, folderID)
		if err != nil {
			return nil, err
		}
		for _, child := range children {
			queue = append(queue, child.ID)
		}
	}

	return fileIDs, nil
}
