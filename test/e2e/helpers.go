//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/knowvex/knowvex/internal/api/handlers"
	"github.com/knowvex/knowvex/internal/bm25"
	"github.com/knowvex/knowvex/internal/jobs"
	"github.com/knowvex/knowvex/internal/llm"
	"github.com/knowvex/knowvex/internal/repository"
	"github.com/knowvex/knowvex/internal/search"
	"github.com/knowvex/knowvex/internal/server"
	"github.com/knowvex/knowvex/internal/service"
	"github.com/knowvex/knowvex/internal/storage"
	"github.com/knowvex/knowvex/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	BinaryDir    string
	TenantID     string
	APIKeyID     string
	AuthToken    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-files",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// Bootstrap creates a tenant and admin API key for testing
func (e *E2ETestEnv) Bootstrap() {
	tenantResp, err := e.Post("/tenants", map[string]string{"name": "E2E Test Tenant"}, "")
	if err != nil {
		e.T.Fatalf("failed to create tenant: %v", err)
	}

	var tenantData struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(tenantResp.Data, &tenantData); err != nil {
		e.T.Fatalf("failed to parse tenant response: %v", err)
	}
	e.TenantID = tenantData.ID

	keyResp, err := e.Post("/apikeys", map[string]string{
		"tenant_id": e.TenantID,
		"name":      "e2e-test-key",
		"role":      "admin",
	}, "")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}

	var keyData struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(keyResp.Data, &keyData); err != nil {
		e.T.Fatalf("failed to parse key response: %v", err)
	}
	e.APIKeyID = keyData.ID
	e.AuthToken = keyData.Token
}

// CreateMemberKey creates a member-role key in the bootstrap tenant.
func (e *E2ETestEnv) CreateMemberKey(name string) (string, string) {
	keyResp, err := e.Post("/apikeys", map[string]string{
		"tenant_id": e.TenantID,
		"name":      name,
		"role":      "member",
	}, "")
	if err != nil {
		e.T.Fatalf("failed to create member key: %v", err)
	}

	var keyData struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(keyResp.Data, &keyData); err != nil {
		e.T.Fatalf("failed to parse member key response: %v", err)
	}
	return keyData.ID, keyData.Token
}

// BuildBinaries builds the knowvex and knowvexd binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "knowvex-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "knowvexd"), "./cmd/knowvexd")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build knowvexd: %v\n%s", err, out)
	}

	cmd = exec.Command("go", "build", "-o", filepath.Join(tmpDir, "knowvex"), "./cmd/knowvex")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build knowvex: %v\n%s", err, out)
	}
}

// RunKnowvex runs the knowvex CLI command
func (e *E2ETestEnv) RunKnowvex(workDir string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "knowvex"), args...)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("KNOWVEX_API_KEY=%s", e.AuthToken),
		fmt.Sprintf("KNOWVEX_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadFile uploads a file to the presigned URL
func (e *E2ETestEnv) UploadFile(uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequest("PUT", uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}

	return nil
}

// DownloadFile downloads a file from the presigned URL
func (e *E2ETestEnv) DownloadFile(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// UploadAndComplete runs the full init/upload/complete flow and returns the file ID.
func (e *E2ETestEnv) UploadAndComplete(filename string, content []byte, authToken string) string {
	initResp, err := e.Post("/files/init", map[string]interface{}{
		"filename":     filename,
		"content_type": "text/plain",
	}, authToken)
	if err != nil {
		e.T.Fatalf("failed to init upload: %v", err)
	}

	var init struct {
		FileID     string `json:"file_id"`
		StorageKey string `json:"storage_key"`
		UploadURL  string `json:"upload_url"`
	}
	if err := json.Unmarshal(initResp.Data, &init); err != nil {
		e.T.Fatalf("failed to parse init response: %v", err)
	}

	if err := e.UploadFile(init.UploadURL, content, "text/plain"); err != nil {
		e.T.Fatalf("failed to upload content: %v", err)
	}

	_, err = e.Post("/files/complete", map[string]interface{}{
		"file_id":      init.FileID,
		"storage_key":  init.StorageKey,
		"filename":     filename,
		"content_type": "text/plain",
		"sha256":       SHA256Sum(content),
	}, authToken)
	if err != nil {
		e.T.Fatalf("failed to complete upload: %v", err)
	}

	return init.FileID
}

// WaitForFileReady polls the file status until it leaves the indexing pipeline.
func (e *E2ETestEnv) WaitForFileReady(fileID, authToken string, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	var status string
	for time.Now().Before(deadline) {
		resp, err := e.Get("/files/"+fileID, authToken)
		if err != nil {
			e.T.Fatalf("failed to get file status: %v", err)
		}

		var f struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(resp.Data, &f); err != nil {
			e.T.Fatalf("failed to parse file response: %v", err)
		}
		status = f.Status

		if status == "ready" || status == "failed" {
			return status
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("file %s did not finish indexing within %v (last status: %s)", fileID, timeout, status)
	return status
}

// SHA256Sum calculates SHA256 hash of data
func SHA256Sum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// startServer starts the HTTP server with the full pipeline wired to a
// deterministic embedder and LLM so no external API is needed.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	fileRepo := repository.NewFileRepository(pool)
	folderRepo := repository.NewFolderRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	indexJobRepo := repository.NewIndexJobRepository(pool)
	searchLogRepo := repository.NewSearchLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, fileRepo, uuidGen)

	storageClient := &e2eStorageAdapter{client: s3Client}
	sparseCache := bm25.NewCache()
	embedder := &stubEmbedder{dims: 1536}
	chatClient := &stubLLM{}

	fileSvc := service.NewFileService(fileRepo, storageClient, sparseCache, txRunner, uuidGen)
	folderSvc := service.NewFolderService(folderRepo, fileRepo, uuidGen)
	indexingSvc := service.NewIndexingService(fileRepo, storageClient, embedder, sparseCache, txRunner)

	worker := jobs.NewWorker(jobs.NewIndexWorker(indexJobRepo, indexingSvc), 50*time.Millisecond)
	go worker.Start(ctx)

	engine := search.NewEngine(chunkRepo, embedder, chatClient, "stub-model", nil, sparseCache, search.DefaultConfig())
	answerSvc := service.NewAnswerService(engine, chatClient, "stub-model", fileRepo, folderSvc, apiKeyRepo, searchLogRepo)

	cfg := server.RouterConfig{
		Authenticator: authSvc,
		AskHandler:    handlers.NewAskHandler(answerSvc),
		FileHandler:   handlers.NewFileHandler(fileSvc),
		FolderHandler: handlers.NewFolderHandler(folderSvc),
		AuthHandler:   handlers.NewAuthHandler(authSvc),
	}

	router := server.NewRouter(cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		worker.Stop()
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// e2eStorageAdapter adapts S3Client to StorageClientInterface
type e2eStorageAdapter struct {
	client *storage.S3Client
}

func (a *e2eStorageAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *e2eStorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *e2eStorageAdapter) GetObject(ctx context.Context, key string) ([]byte, error) {
	return a.client.GetObject(ctx, key)
}

func (a *e2eStorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

func (a *e2eStorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
	meta, err := a.client.HeadObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return &service.ObjectMetadata{
		ContentLength: meta.ContentLength,
		ContentType:   meta.ContentType,
		ETag:          meta.ETag,
	}, nil
}

// stubEmbedder hashes the text into a deterministic vector. Relevance in
// these tests comes from the sparse channel; the dense channel only needs
// to be stable and well-formed.
type stubEmbedder struct {
	dims int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, s.dims)
	sum := sha256.Sum256([]byte(text))
	for i := 0; i < s.dims; i++ {
		word := binary.BigEndian.Uint32(sum[(i*4)%28 : (i*4)%28+4])
		vec[i] = float32(word%1000)/1000.0 - 0.5
	}
	return vec, nil
}

// stubLLM answers every completion with a selection string that covers
// the rerank pool and doubles as the synthesized answer text.
type stubLLM struct{}

func (s *stubLLM) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Response, error) {
	return llm.Response{
		Text:  "1, 2, 3, 4, 5, 6, 7, 8, 9, 10",
		Usage: llm.Usage{InputTokens: 10, OutputTokens: 10},
	}, nil
}
