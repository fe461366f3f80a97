package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/knowvex/knowvex/internal/api"
	"github.com/knowvex/knowvex/internal/domain"
)

type contextKey string

const APIKeyKey contextKey = "api_key"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.APIKey, error)
}

func APIKeyAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			key, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			// Logging middleware upstream of auth only sees the original
			// request context, so the tenant also travels on a header.
			r.Header.Set("X-Tenant-ID", key.TenantID)
			ctx := context.WithValue(r.Context(), APIKeyKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAPIKey returns the authenticated key, or nil outside an authed route.
func GetAPIKey(ctx context.Context) *domain.APIKey {
	key, _ := ctx.Value(APIKeyKey).(*domain.APIKey)
	return key
}

// GetTenantID returns the authenticated key's tenant, or "".
func GetTenantID(ctx context.Context) string {
	if key := GetAPIKey(ctx); key != nil {
		return key.TenantID
	}
	return ""
}
