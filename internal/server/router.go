package server

import (
	"net/http"

	"github.com/knowvex/knowvex/internal/api"
	"github.com/knowvex/knowvex/internal/api/handlers"
	"github.com/knowvex/knowvex/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	Authenticator middleware.Authenticator
	AskHandler    *handlers.AskHandler
	FileHandler   *handlers.FileHandler
	FolderHandler *handlers.FolderHandler
	AuthHandler   *handlers.AuthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.Authenticator))

		r.Post("/ask", cfg.AskHandler.Ask)
		r.Post("/search", cfg.AskHandler.Search)

		r.Route("/files", func(r chi.Router) {
			r.Post("/init", cfg.FileHandler.InitUpload)
			r.Post("/complete", cfg.FileHandler.CompleteUpload)
			r.Get("/", cfg.FileHandler.List)
			r.Get("/{id}", cfg.FileHandler.Get)
			r.Get("/{id}/download", cfg.FileHandler.GetDownloadURL)
			r.Post("/{id}/reindex", cfg.FileHandler.Reindex)
			r.Delete("/{id}", cfg.FileHandler.Delete)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Post("/", cfg.FolderHandler.Create)
			r.Get("/", cfg.FolderHandler.List)
			r.Get("/{id}", cfg.FolderHandler.Get)
			r.Put("/{id}", cfg.FolderHandler.Rename)
			r.Delete("/{id}", cfg.FolderHandler.Delete)
		})

		// Key creation stays unauthenticated below; management is
		// admin-scoped, so these live inside the auth group.
		r.Get("/apikeys", cfg.AuthHandler.ListAPIKeys)
		r.Delete("/apikeys/{id}", cfg.AuthHandler.RevokeAPIKey)
		r.Get("/apikeys/{id}/grants", cfg.AuthHandler.ListFileAccess)
		r.Post("/apikeys/{id}/grants", cfg.AuthHandler.GrantFileAccess)
		r.Delete("/apikeys/{id}/grants/{fileID}", cfg.AuthHandler.RevokeFileAccess)
	})

	r.Post("/tenants", cfg.AuthHandler.CreateTenant)
	r.Post("/apikeys", cfg.AuthHandler.CreateAPIKey)

	return r
}
