package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowvex/knowvex/internal/domain"
)

func TestFolderCreate(t *testing.T) {
	folderRepo := new(MockFolderRepository)
	svc := NewFolderService(folderRepo, new(MockFileRepository), NewMockUUIDGenerator("folder-1"))

	folderRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.Folder) bool {
		return f.ID == "folder-1" && f.TenantID == "tenant-1" && f.Name == "contracts"
	})).Return(nil)

	folder, err := svc.Create(context.Background(), "tenant-1", "", "contracts")
	require.NoError(t, err)
	assert.Equal(t, "contracts", folder.Name)
}

func TestFolderCreate_EmptyName(t *testing.T) {
	svc := NewFolderService(new(MockFolderRepository), new(MockFileRepository), nil)

	_, err := svc.Create(context.Background(), "tenant-1", "", "")
	assert.Error(t, err)
}

func TestFolderCreate_Nested(t *testing.T) {
	folderRepo := new(MockFolderRepository)
	svc := NewFolderService(folderRepo, new(MockFileRepository), NewMockUUIDGenerator("folder-2"))

	folderRepo.On("GetByID", mock.Anything, "folder-1").Return(
		&domain.Folder{ID: "folder-1", TenantID: "tenant-1", Name: "contracts"}, nil)
	folderRepo.On("Create", mock.Anything, mock.MatchedBy(func(f *domain.Folder) bool {
		return f.ParentID == "folder-1"
	})).Return(nil)

	folder, err := svc.Create(context.Background(), "tenant-1", "folder-1", "2026")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", folder.ParentID)
}

func TestFolderCreate_ForeignParent(t *testing.T) {
	folderRepo := new(MockFolderRepository)
	svc := NewFolderService(folderRepo, new(MockFileRepository), nil)

	folderRepo.On("GetByID", mock.Anything, "folder-1").Return(
		&domain.Folder{ID: "folder-1", TenantID: "tenant-2", Name: "x"}, nil)

	_, err := svc.Create(context.Background(), "tenant-1", "folder-1", "sub")
	assert.Equal(t, domain.ErrFolderNotFound, err)
}

func TestFolderGetByID_WrongTenant(t *testing.T) {
	folderRepo := new(MockFolderRepository)
	svc := NewFolderService(folderRepo, new(MockFileRepository), nil)

	folderRepo.On("GetByID", mock.Anything, "folder-1").Return(
		&domain.Folder{ID: "folder-1", TenantID: "tenant-2", Name: "x"}, nil)

	_, err := svc.GetByID(context.Background(), "tenant-1", "folder-1")
	assert.Equal(t, domain.ErrFolderNotFound, err)
}

func TestExpandToFileIDs(t *testing.T) {
	folderRepo := new(MockFolderRepository)
	fileRepo := new(MockFileRepository)
	svc := NewFolderService(folderRepo, fileRepo, nil)

	folderRepo.On("GetByID", mock.Anything, "folder-1").Return(
		&domain.Folder{ID: "folder-1", TenantID: "tenant-1", Name: "a"}, nil)
	folderRepo.On("GetByID", mock.Anything, "folder-2").Return(
		&domain.Folder{ID: "folder-2", TenantID: "tenant-1", Name: "b"}, nil)
	fileRepo.On("ListByFolder", mock.Anything, "folder-1").Return(
		[]*domain.File{{ID: "f1"}, {ID: "f2"}}, nil)
	fileRepo.On("ListByFolder", mock.Anything, "folder-2").Return(
		[]*domain.File{{ID: "f2"}, {ID: "f3"}}, nil)
	folderRepo.On("ListChildren", mock.Anything, "folder-1").Return(nil, nil)
	folderRepo.On("ListChildren", mock.Anything, "folder-2").Return(nil, nil)

	ids, err := svc.ExpandToFileIDs(context.Background(), "tenant-1", []string{"folder-1", "folder-2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2", "f3"}, ids)
}

func TestExpandToFileIDs_Recursive(t *testing.T) {
	folderRepo := new(MockFolderRepository)
	fileRepo := new(MockFileRepository)
	svc := NewFolderService(folderRepo, fileRepo, nil)

	folderRepo.On("GetByID", mock.Anything, "root").Return(
		&domain.Folder{ID: "root", TenantID: "tenant-1", Name: "root"}, nil)
	folderRepo.On("ListChildren", mock.Anything, "root").Return(
		[]*domain.Folder{{ID: "child", TenantID: "tenant-1", ParentID: "root", Name: "child"}}, nil)
	folderRepo.On("ListChildren", mock.Anything, "child").Return(nil, nil)
	fileRepo.On("ListByFolder", mock.Anything, "root").Return(
		[]*domain.File{{ID: "f1"}}, nil)
	fileRepo.On("ListByFolder", mock.Anything, "child").Return(
		[]*domain.File{{ID: "f2"}}, nil)

	ids, err := svc.ExpandToFileIDs(context.Background(), "tenant-1", []string{"root"})
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, ids)
}

func TestExpandToFileIDs_ForeignFolder(t *testing.T) {
	folderRepo := new(MockFolderRepository)
	svc := NewFolderService(folderRepo, new(MockFileRepository), nil)

	folderRepo.On("GetByID", mock.Anything, "folder-x").Return(
		&domain.Folder{ID: "folder-x", TenantID: "tenant-2", Name: "x"}, nil)

	_, err := svc.ExpandToFileIDs(context.Background(), "tenant-1", []string{"folder-x"})
	assert.Equal(t, domain.ErrScopeMismatch, err)
}

func TestExpandToFileIDs_Empty(t *testing.T) {
	svc := NewFolderService(new(MockFolderRepository), new(MockFileRepository), nil)

	ids, err := svc.ExpandToFileIDs(context.Background(), "tenant-1", nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
