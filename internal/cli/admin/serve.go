package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knowvex/knowvex/internal/api/handlers"
	"github.com/knowvex/knowvex/internal/bm25"
	"github.com/knowvex/knowvex/internal/config"
	"github.com/knowvex/knowvex/internal/database"
	"github.com/knowvex/knowvex/internal/domain"
	"github.com/knowvex/knowvex/internal/jobs"
	"github.com/knowvex/knowvex/internal/llm"
	"github.com/knowvex/knowvex/internal/repository"
	"github.com/knowvex/knowvex/internal/search"
	"github.com/knowvex/knowvex/internal/server"
	"github.com/knowvex/knowvex/internal/service"
	"github.com/knowvex/knowvex/internal/storage"
	"github.com/knowvex/knowvex/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the knowvex API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

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

	if cfg.InitTenantName != "" {
		if err := bootstrapInitialTenant(ctx, cfg, authSvc); err != nil {
			return fmt.Errorf("failed to bootstrap initial tenant: %w", err)
		}
	}

	var storageClient service.StorageClientInterface
	if cfg.HasS3() {
		s3Config := storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		}
		s3Client, err := storage.NewS3Client(ctx, s3Config)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = &S3StorageAdapter{client: s3Client}
	}

	sparseCache := bm25.NewCache()

	var chatClient llm.Client
	var embedder llm.Embedder
	if cfg.HasOpenAI() {
		chatClient = llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ChatModel)
		embedder = llm.NewOpenAIEmbedderWithConfig(llm.EmbedderConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      openai.EmbeddingModel(cfg.EmbeddingModel),
			Dimensions: cfg.EmbeddingDims,
		})
	}

	var cross search.CrossEncoder
	if cfg.HasReranker() {
		cross = search.NewHTTPCrossEncoder(search.HTTPCrossEncoderConfig{
			Endpoint: cfg.RerankerEndpoint,
			Model:    cfg.RerankerModel,
			Timeout:  cfg.RerankerTimeout,
		})
		log.Printf("cross-encoder sidecar configured at %s", cfg.RerankerEndpoint)
	}

	searchCfg := search.Config{
		RRFK:                   cfg.SearchRRFK,
		UnscopedLimit:          cfg.SearchUnscopedLimit,
		ListIntentLimit:        cfg.SearchListIntentLimit,
		ScopedLimit:            cfg.SearchScopedLimit,
		ChampionTopN:           cfg.ChampionTopN,
		ChampionMinCount:       cfg.ChampionMinCount,
		ChampionNameMatchFloor: cfg.ChampionNameMatchFloor,
		CrossEncoderPool:       cfg.RerankCrossEncoderPool,
	}

	var fileSvc handlers.FileService
	if storageClient != nil {
		fileSvc = service.NewFileService(fileRepo, storageClient, sparseCache, txRunner, uuidGen)
	} else {
		log.Println("file service disabled: S3 configuration required")
		fileSvc = &NoOpFileService{}
	}
	folderSvc := service.NewFolderService(folderRepo, fileRepo, uuidGen)

	var indexWorker *jobs.Worker
	if storageClient != nil && embedder != nil {
		indexingSvc := service.NewIndexingService(fileRepo, storageClient, embedder, sparseCache, txRunner)
		processor := jobs.NewIndexWorker(indexJobRepo, indexingSvc)
		indexWorker = jobs.NewWorker(processor, cfg.WorkerInterval)
		go indexWorker.Start(ctx)
		log.Println("index worker started")
	} else {
		log.Println("index worker disabled: S3 and OpenAI configuration required")
	}

	fileHandler := handlers.NewFileHandler(fileSvc)
	folderHandler := handlers.NewFolderHandler(folderSvc)
	authHandler := handlers.NewAuthHandler(authSvc)

	var askHandler *handlers.AskHandler
	if chatClient != nil && embedder != nil {
		engine := search.NewEngine(chunkRepo, embedder, chatClient, cfg.UtilityModel, cross, sparseCache, searchCfg)
		answerSvc := service.NewAnswerService(engine, chatClient, cfg.ChatModel, fileRepo, folderSvc, apiKeyRepo, searchLogRepo)
		askHandler = handlers.NewAskHandler(answerSvc)
	} else {
		askHandler = handlers.NewAskHandler(&NoOpAnswerService{})
	}

	routerCfg := server.RouterConfig{
		Authenticator: authSvc,
		AskHandler:    askHandler,
		FileHandler:   fileHandler,
		FolderHandler: folderHandler,
		AuthHandler:   authHandler,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if indexWorker != nil {
		indexWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

type S3StorageAdapter struct {
	client *storage.S3Client
}

func (a *S3StorageAdapter) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return a.client.GenerateUploadURL(ctx, key, contentType)
}

func (a *S3StorageAdapter) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return a.client.GenerateDownloadURL(ctx, key)
}

func (a *S3StorageAdapter) GetObject(ctx context.Context, key string) ([]byte, error) {
	return a.client.GetObject(ctx, key)
}

func (a *S3StorageAdapter) DeleteObject(ctx context.Context, key string) error {
	return a.client.DeleteObject(ctx, key)
}

func (a *S3StorageAdapter) HeadObject(ctx context.Context, key string) (*service.ObjectMetadata, error) {
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

// NoOpAnswerService stands in when OpenAI is not configured.
type NoOpAnswerService struct{}

func (s *NoOpAnswerService) Ask(ctx context.Context, input service.AskInput) (*service.AskOutput, error) {
	return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "answer service not configured: KNOWVEX_OPENAI_API_KEY required")
}

func (s *NoOpAnswerService) Search(ctx context.Context, input service.AskInput) (*service.SearchOutput, error) {
	return nil, domain.NewDomainError(domain.ErrCodeUnavailable, "answer service not configured: KNOWVEX_OPENAI_API_KEY required")
}

// NoOpFileService stands in when S3 is not configured.
type NoOpFileService struct{}

var errStorageNotConfigured = domain.NewDomainError(domain.ErrCodeUnavailable, "file storage not configured: S3 settings required")

func (s *NoOpFileService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	return nil, errStorageNotConfigured
}

func (s *NoOpFileService) CompleteUpload(ctx context.Context, input service.CompleteUploadInput) (*domain.File, error) {
	return nil, errStorageNotConfigured
}

func (s *NoOpFileService) GetByID(ctx context.Context, tenantID, fileID string) (*domain.File, error) {
	return nil, errStorageNotConfigured
}

func (s *NoOpFileService) GetDownloadURL(ctx context.Context, tenantID, fileID string) (string, error) {
	return "", errStorageNotConfigured
}

func (s *NoOpFileService) ListFiles(ctx context.Context, input service.ListFilesInput) (*service.ListFilesOutput, error) {
	return nil, errStorageNotConfigured
}

func (s *NoOpFileService) Reindex(ctx context.Context, tenantID, fileID string) error {
	return errStorageNotConfigured
}

func (s *NoOpFileService) Delete(ctx context.Context, tenantID, fileID string) error {
	return errStorageNotConfigured
}

func bootstrapInitialTenant(ctx context.Context, cfg *config.Config, authSvc *service.AuthService) error {
	tenant, err := authSvc.GetTenantByName(ctx, cfg.InitTenantName)
	if err != nil && err != domain.ErrTenantNotFound {
		return fmt.Errorf("failed to check existing tenant: %w", err)
	}

	if tenant == nil {
		tenant, err = authSvc.CreateTenant(ctx, cfg.InitTenantName)
		if err != nil {
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		log.Printf("bootstrap: created tenant '%s' (id: %s)", tenant.Name, tenant.ID)
	} else {
		log.Printf("bootstrap: tenant '%s' already exists (id: %s)", tenant.Name, tenant.ID)
	}

	if cfg.InitAPIKey != "" {
		if !service.IsValidAPIToken(cfg.InitAPIKey) {
			return fmt.Errorf("invalid KNOWVEX_INIT_API_KEY format (expected 'knv_<64 hex chars>')")
		}

		if existing, err := authSvc.Authenticate(ctx, cfg.InitAPIKey); err == nil && existing != nil {
			log.Printf("bootstrap: API key already exists (id: %s)", existing.ID)
			return nil
		}

		if err := authSvc.CreateAPIKeyWithToken(ctx, tenant.ID, "bootstrap", domain.RoleAdmin, cfg.InitAPIKey); err != nil {
			return fmt.Errorf("failed to create API key: %w", err)
		}
		log.Printf("bootstrap: created admin API key")
	}

	return nil
}

func runMigrations(databaseURL string) error {
	// golang-migrate drives its own connection over database/sql
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if upErr == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
