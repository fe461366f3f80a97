package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/knowvex/knowvex/internal/api"
	"github.com/knowvex/knowvex/internal/api/middleware"
	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/service"
	"github.com/go-chi/chi/v5"
)

type FileService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	CompleteUpload(ctx context.Context, input service.CompleteUploadInput) (*domain.File, error)
	GetByID(ctx context.Context, tenantID, fileID string) (*domain.File, error)
	GetDownloadURL(ctx context.Context, tenantID, fileID string) (string, error)
	ListFiles(ctx context.Context, input service.ListFilesInput) (*service.ListFilesOutput, error)
	Reindex(ctx context.Context, tenantID, fileID string) error
	Delete(ctx context.Context, tenantID, fileID string) error
}

type FileHandler struct {
	svc FileService
}

func NewFileHandler(svc FileService) *FileHandler {
	return &FileHandler{svc: svc}
}

type InitUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FolderID    string `json:"folder_id,omitempty"`
}

type InitUploadResponse struct {
	FileID     string `json:"file_id"`
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

type CompleteUploadRequest struct {
	FileID      string `json:"file_id"`
	StorageKey  string `json:"storage_key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SHA256      string `json:"sha256"`
	FolderID    string `json:"folder_id,omitempty"`
}

type FileResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	FolderID  string `json:"folder_id,omitempty"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SHA256    string `json:"sha256"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

func fileToResponse(f *domain.File) *FileResponse {
	return &FileResponse{
		ID:        f.ID,
		TenantID:  f.TenantID,
		FolderID:  f.FolderID,
		Filename:  f.Filename,
		MimeType:  f.MimeType,
		SHA256:    f.SHA256,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *FileHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.ContentType == "" {
		api.Error(w, http.StatusBadRequest, "content_type is required")
		return
	}

	input := service.InitUploadInput{
		TenantID:    key.TenantID,
		FolderID:    req.FolderID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	}

	result, err := h.svc.InitUpload(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, InitUploadResponse{
		FileID:     result.FileID,
		StorageKey: result.StorageKey,
		UploadURL:  result.UploadURL,
	})
}

func (h *FileHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	var req CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.FileID == "" {
		api.Error(w, http.StatusBadRequest, "file_id is required")
		return
	}
	if req.StorageKey == "" {
		api.Error(w, http.StatusBadRequest, "storage_key is required")
		return
	}
	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.SHA256 == "" {
		api.Error(w, http.StatusBadRequest, "sha256 is required")
		return
	}

	input := service.CompleteUploadInput{
		FileID:      req.FileID,
		TenantID:    key.TenantID,
		FolderID:    req.FolderID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		StorageKey:  req.StorageKey,
		SHA256:      req.SHA256,
	}

	file, err := h.svc.CompleteUpload(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, fileToResponse(file))
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.svc.GetByID(r.Context(), key.TenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

func (h *FileHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
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

	url, err := h.svc.GetDownloadURL(r.Context(), key.TenantID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, DownloadURLResponse{DownloadURL: url})
}

type FileListResponse struct {
	Items   []*FileResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	key := middleware.GetAPIKey(r.Context())
	if key == nil {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.ListFiles(r.Context(), service.ListFilesInput{
		TenantID: key.TenantID,
		Cursor:   cursor,
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*FileResponse, len(output.Items))
	for i, f := range output.Items {
		responses[i] = fileToResponse(f)
	}

	api.Success(w, http.StatusOK, FileListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *FileHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	key := requireAdmin(w, r)
	if key == nil {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Reindex(r.Context(), key.TenantID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
