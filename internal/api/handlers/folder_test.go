package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/knowvex/knowvex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockFolderService struct {
	mock.Mock
}

func (m *MockFolderService) Create(ctx context.Context, tenantID, parentID, name string) (*domain.Folder, error) {
	args := m.Called(ctx, tenantID, parentID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Folder), args.Error(1)
}

func (m *MockFolderService) GetByID(ctx context.Context, tenantID, folderID string) (*domain.Folder, error) {
	args := m.Called(ctx, tenantID, folderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Folder), args.Error(1)
}

func (m *MockFolderService) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Folder, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Folder), args.Error(1)
}

func (m *MockFolderService) Rename(ctx context.Context, tenantID, folderID, name string) (*domain.Folder, error) {
	args := m.Called(ctx, tenantID, folderID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Folder), args.Error(1)
}

func (m *MockFolderService) Delete(ctx context.Context, tenantID, folderID string) error {
	args := m.Called(ctx, tenantID, folderID)
	return args.Error(0)
}

func newTestFolder() *domain.Folder {
	return domain.NewFolder("folder-1", "tenant-456", "", "Contracts", time.Now().UTC())
}

func TestFolderHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockFolderService)
	handler := NewFolderHandler(mockSvc)

	mockSvc.On("Create", mock.Anything, "tenant-456", "", "Contracts").Return(newTestFolder(), nil)

	body := jsonBody(t, map[string]string{"name": "Contracts"})
	req := requestWithKey(http.MethodPost, "/folders", body, adminTestKey())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "folder-1", data["id"])
	mockSvc.AssertExpectations(t)
}

func TestFolderHandler_Create_MemberForbidden(t *testing.T) {
	mockSvc := new(MockFolderService)
	handler := NewFolderHandler(mockSvc)

	body := jsonBody(t, map[string]string{"name": "Contracts"})
	req := requestWithKey(http.MethodPost, "/folders", body, memberTestKey())
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	mockSvc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestFolderHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockFolderService)
	handler := NewFolderHandler(mockSvc)

	mockSvc.On("GetByID", mock.Anything, "tenant-456", "folder-999").Return(nil, domain.ErrFolderNotFound)

	req := requestWithKey(http.MethodGet, "/folders/folder-999", nil, memberTestKey())
	req = withURLParam(req, "id", "folder-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFolderHandler_List_Success(t *testing.T) {
	mockSvc := new(MockFolderService)
	handler := NewFolderHandler(mockSvc)

	mockSvc.On("ListByTenant", mock.Anything, "tenant-456").
		Return([]*domain.Folder{newTestFolder()}, nil)

	req := requestWithKey(http.MethodGet, "/folders", nil, memberTestKey())
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Len(t, data["items"], 1)
	mockSvc.AssertExpectations(t)
}

func TestFolderHandler_Rename_Success(t *testing.T) {
	mockSvc := new(MockFolderService)
	handler := NewFolderHandler(mockSvc)

	renamed := newTestFolder()
	renamed.Name = "Archive"
	mockSvc.On("Rename", mock.Anything, "tenant-456", "folder-1", "Archive").Return(renamed, nil)

	body := jsonBody(t, map[string]string{"name": "Archive"})
	req := requestWithKey(http.MethodPut, "/folders/folder-1", body, adminTestKey())
	req = withURLParam(req, "id", "folder-1")
	w := httptest.NewRecorder()

	handler.Rename(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Archive")
	mockSvc.AssertExpectations(t)
}

func TestFolderHandler_Delete_Success(t *testing.T) {
	mockSvc := new(MockFolderService)
	handler := NewFolderHandler(mockSvc)

	mockSvc.On("Delete", mock.Anything, "tenant-456", "folder-1").Return(nil)

	req := requestWithKey(http.MethodDelete, "/folders/folder-1", nil, adminTestKey())
	req = withURLParam(req, "id", "folder-1")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}
