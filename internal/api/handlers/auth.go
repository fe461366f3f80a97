package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/knowvex/knowvex/internal/api"
	"github.com/knowvex/knowvex/internal/api/middleware"
	"github.com/knowvex/knowvex/internal/domain"
	"github.com/go-chi/chi/v5"
)

type AuthService interface {
	CreateTenant(ctx context.Context, name string) (*domain.Tenant, error)
	CreateAPIKey(ctx context.Context, tenantID, name string, role domain.APIKeyRole) (string, *domain.APIKey, error)
	ListAPIKeys(ctx context.Context, tenantID string) ([]*domain.APIKey, error)
	RevokeAPIKey(ctx context.Context, tenantID, keyID string) error
	GrantFileAccess(ctx context.Context, tenantID, apiKeyID, fileID string) error
	RevokeFileAccess(ctx context.Context, tenantID, apiKeyID, fileID string) error
	AccessibleFileIDs(ctx context.Context, tenantID, apiKeyID string) ([]string, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CreateTenantRequest struct {
	Name string `json:"name"`
}

type TenantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type CreateAPIKeyRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
}

type APIKeyResponse struct {
	ID      string `json:"id"`
	Token   string `json:"token,omitempty"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Revoked bool   `json:"revoked"`
}

type GrantRequest struct {
	FileID string `json:"file_id"`
}

func apiKeyToResponse(k *domain.APIKey) *APIKeyResponse {
	return &APIKeyResponse{
		ID:      k.ID,
		Name:    k.Name,
		Role:    string(k.Role),
		Revoked: k.IsRevoked(),
	}
}

// requireAdmin returns the authenticated key when it carries the admin
// role, writing the error response otherwise.
func requireAdmin(w http.ResponseWriter, r *http.Request) *domain.APIKey {
	key := middleware.GetAPIKey(r.Context())
	if key == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	if !key.IsAdmin() {
		api.Error(w, http.StatusForbidden, "admin role required")
		return nil
	}
	return key
}

func (h *AuthHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	tenant, err := h.svc.CreateTenant(r.Context(), req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, TenantResponse{
		ID:        tenant.ID,
		Name:      tenant.Name,
		CreatedAt: tenant.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.TenantID == "" {
		api.Error(w, http.StatusBadRequest, "tenant_id is required")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	token, key, err := h.svc.CreateAPIKey(r.Context(), req.TenantID, req.Name, domain.APIKeyRole(req.Role))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := apiKeyToResponse(key)
	resp.Token = token
	api.Success(w, http.StatusCreated, resp)
}

type APIKeyListResponse struct {
	Items []*APIKeyResponse `json:"items"`
}

func (h *AuthHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), key.TenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*APIKeyResponse, len(keys))
	for i, k := range keys {
		responses[i] = apiKeyToResponse(k)
	}

	api.Success(w, http.StatusOK, APIKeyListResponse{Items: responses})
}

func (h *AuthHandler) RevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.RevokeAPIKey(r.Context(), key.TenantID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *AuthHandler) GrantFileAccess(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		api.Error(w, http.StatusBadRequest, "file_id is required")
		return
	}

	if err := h.svc.GrantFileAccess(r.Context(), key.TenantID, id, req.FileID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, map[string]string{"status": "granted"})
}

func (h *AuthHandler) RevokeFileAccess(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	id := chi.URLParam(r, "id")
	fileID := chi.URLParam(r, "fileID")
	if id == "" || fileID == "" {
		api.Error(w, http.StatusBadRequest, "id and fileID are required")
		return
	}

	if err := h.svc.RevokeFileAccess(r.Context(), key.TenantID, id, fileID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "revoked"})
}

type GrantListResponse struct {
	FileIDs []string `json:"file_ids"`
}

func (h *AuthHandler) ListFileAccess(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	fileIDs, err := h.svc.AccessibleFileIDs(r.Context(), key.TenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, GrantListResponse{FileIDs: fileIDs})
}
