package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/knowvex/knowvex/internal/api/handlers"
	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "knv_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, token string) (*domain.APIKey, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

type MockAnswerService struct {
	mock.Mock
}

func (m *MockAnswerService) Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskOutput), args.Error(1)
}

func (m *MockAnswerService) Search(ctx context.Context, input service.AskInput) (*service.SearchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchOutput), args.Error(1)
}

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InitUploadResult), args.Error(1)
}

func (m *MockFileService) CompleteUpload(ctx context.Context, input service.CompleteUploadInput) (*domain.File, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockFileService) GetByID(ctx context.Context, tenantID, fileID string) (*domain.File, error) {
	args := m.Called(ctx, tenantID, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockFileService) GetDownloadURL(ctx context.Context, tenantID, fileID string) (string, error) {
	args := m.Called(ctx, tenantID, fileID)
	return args.String(0), args.Error(1)
}

func (m *MockFileService) ListFiles(ctx context.Context, input service.ListFilesInput) (*service.ListFilesOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListFilesOutput), args.Error(1)
}

func (m *MockFileService) Reindex(ctx context.Context, tenantID, fileID string) error {
	args := m.Called(ctx, tenantID, fileID)
	return args.Error(0)
}

func (m *MockFileService) Delete(ctx context.Context, tenantID, fileID string) error {
	args := m.Called(ctx, tenantID, fileID)
	return args.Error(0)
}

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

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateTenant(ctx context.Context, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, tenantID, name string, role domain.APIKeyRole) (string, *domain.APIKey, error) {
	args := m.Called(ctx, tenantID, name, role)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*domain.APIKey), args.Error(2)
}

func (m *MockAuthService) ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAuthService) RevokeAPIKey(ctx context.Context, tenantID, keyID string) error {
	args := m.Called(ctx, tenantID, keyID)
	return args.Error(0)
}

func (m *MockAuthService) GrantFileAccess(ctx context.Context, tenantID, apiKeyID, fileID string) error {
	args := m.Called(ctx, tenantID, apiKeyID, fileID)
	return args.Error(0)
}

func (m *MockAuthService) RevokeFileAccess(ctx context.Context, tenantID, apiKeyID, fileID string) error {
	args := m.Called(ctx, tenantID, apiKeyID, fileID)
	return args.Error(0)
}

func (m *MockAuthService) AccessibleFileIDs(ctx context.Context, tenantID, apiKeyID string) ([]string, error) {
	args := m.Called(ctx, tenantID, apiKeyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func setupRouter() (http.Handler, *MockAuthenticator, *MockAnswerService, *MockFileService, *MockAuthService) {
	authenticator := new(MockAuthenticator)
	answerSvc := new(MockAnswerService)
	fileSvc := new(MockFileService)
	folderSvc := new(MockFolderService)
	authSvc := new(MockAuthService)

	cfg := RouterConfig{
		Authenticator: authenticator,
		AskHandler:    handlers.NewAskHandler(answerSvc),
		FileHandler:   handlers.NewFileHandler(fileSvc),
		FolderHandler: handlers.NewFolderHandler(folderSvc),
		AuthHandler:   handlers.NewAuthHandler(authSvc),
	}

	router := NewRouter(cfg)
	return router, authenticator, answerSvc, fileSvc, authSvc
}

func adminKey() *domain.APIKey {
	return domain.NewAPIKey("key-1", "tenant-789", "ops", domain.RoleAdmin, "hash", time.Now().UTC(), nil)
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, authenticator, _, _, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/ask"},
		{http.MethodPost, "/search"},
		{http.MethodPost, "/files/init"},
		{http.MethodPost, "/files/complete"},
		{http.MethodGet, "/files"},
		{http.MethodGet, "/files/123"},
		{http.MethodGet, "/files/123/download"},
		{http.MethodPost, "/files/123/reindex"},
		{http.MethodDelete, "/files/123"},
		{http.MethodGet, "/folders"},
		{http.MethodPost, "/folders"},
		{http.MethodGet, "/apikeys"},
		{http.MethodDelete, "/apikeys/123"},
		{http.MethodPost, "/apikeys/123/grants"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	authenticator.AssertExpectations(t)
}

func TestRouter_Ask_WithValidAuth(t *testing.T) {
	router, authenticator, answerSvc, _, _ := setupRouter()

	authenticator.On("Authenticate", mock.Anything, testToken).Return(adminKey(), nil)
	answerSvc.On("Ask", mock.Anything, mock.MatchedBy(func(input service.AskInput) bool {
		return input.Key.TenantID == "tenant-789" && input.Question == "Who supplies steel?"
	})).Return(&service.AskOutput{Answer: "Acme.", QueryClass: "default"}, nil)

	body := bytes.NewReader([]byte(`{"question":"Who supplies steel?"}`))
	req := httptest.NewRequest(http.MethodPost, "/ask", body)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	authenticator.AssertExpectations(t)
	answerSvc.AssertExpectations(t)
}

func TestRouter_FileRoutes_WithValidAuth(t *testing.T) {
	router, authenticator, _, fileSvc, _ := setupRouter()

	authenticator.On("Authenticate", mock.Anything, testToken).Return(adminKey(), nil)
	file := domain.NewFile(
		"file-123", "tenant-789", "",
		"report.pdf", "application/pdf", "abc", "tenant-789/file-123/report.pdf",
		domain.FileStatusReady, time.Now().UTC(),
	)
	fileSvc.On("GetByID", mock.Anything, "tenant-789", "file-123").Return(file, nil)

	req := httptest.NewRequest(http.MethodGet, "/files/file-123", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	fileSvc.AssertExpectations(t)
}

func TestRouter_TenantCreation_NoAuthRequired(t *testing.T) {
	router, _, _, _, authSvc := setupRouter()

	tenant := domain.NewTenant("tenant-123", "Acme", time.Now().UTC())
	authSvc.On("CreateTenant", mock.Anything, "Acme").Return(tenant, nil)

	body := bytes.NewReader([]byte(`{"name":"Acme"}`))
	req := httptest.NewRequest(http.MethodPost, "/tenants", body)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	authSvc.AssertExpectations(t)
}

func TestRouter_APIKeyCreation_NoAuthRequired(t *testing.T) {
	router, _, _, _, authSvc := setupRouter()

	key := domain.NewAPIKey("key-2", "tenant-123", "reader", domain.RoleMember, "hash", time.Now().UTC(), nil)
	authSvc.On("CreateAPIKey", mock.Anything, "tenant-123", "reader", domain.RoleMember).
		Return("knv_secret", key, nil)

	body := bytes.NewReader([]byte(`{"tenant_id":"tenant-123","name":"reader","role":"member"}`))
	req := httptest.NewRequest(http.MethodPost, "/apikeys", body)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	authSvc.AssertExpectations(t)
}
