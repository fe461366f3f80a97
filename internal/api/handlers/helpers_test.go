package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/knowvex/knowvex/internal/api/middleware"
	"github.com/knowvex/knowvex/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func adminTestKey() *domain.APIKey {
	return domain.NewAPIKey("key-admin", "tenant-456", "ops", domain.RoleAdmin, "hash", time.Now().UTC(), nil)
}

func memberTestKey() *domain.APIKey {
	return domain.NewAPIKey("key-member", "tenant-456", "reader", domain.RoleMember, "hash", time.Now().UTC(), nil)
}

func requestWithKey(method, path string, body io.Reader, key *domain.APIKey) *http.Request {
	req := httptest.NewRequest(method, path, body)
	ctx := context.WithValue(req.Context(), middleware.APIKeyKey, key)
	return req.WithContext(ctx)
}

func withURLParam(req *http.Request, name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
