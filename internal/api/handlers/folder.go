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

type FolderService interface {
	Create(ctx context.Context, tenantID, parentID, name string) (*domain.Folder, error)
	GetByID(ctx context.Context, tenantID, folderID string) (*domain.Folder, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Folder, error)
	Rename(ctx context.Context, tenantID, folderID, name string) (*domain.Folder, error)
	Delete(ctx context.Context, tenantID, folderID string) error
}

type FolderHandler struct {
	svc FolderService
}

func NewFolderHandler(svc FolderService) *FolderHandler {
	return &FolderHandler{svc: svc}
}

type FolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

type FolderResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ParentID  string `json:"parent_id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func folderToResponse(f *domain.Folder) *FolderResponse {
	return &FolderResponse{
		ID:        f.ID,
		TenantID:  f.TenantID,
		ParentID:  f.ParentID,
		Name:      f.Name,
		CreatedAt: f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	var req FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	folder, err := h.svc.Create(r.Context(), key.TenantID, req.ParentID, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, folderToResponse(folder))
}

func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := middleware.GetAPIKey(r.Context())
	if key == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	folder, err := h.svc.GetByID(r.Context(), key.TenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, folderToResponse(folder))
}

type FolderListResponse struct {
	Items []*FolderResponse `json:"items"`
}

func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	key := middleware.GetAPIKey(r.Context())
	if key == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	folders, err := h.svc.ListByTenant(r.Context(), key.TenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*FolderResponse, len(folders))
	for i, f := range folders {
		responses[i] = folderToResponse(f)
	}

	api.Success(w, http.StatusOK, FolderListResponse{Items: responses})
}

func (h *FolderHandler) Rename(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req FolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	folder, err := h.svc.Rename(r.Context(), key.TenantID, id, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, folderToResponse(folder))
}

func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), key.TenantID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
