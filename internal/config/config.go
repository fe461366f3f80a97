package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"knowvex-files"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	ChatModel       string `envconfig:"CHAT_MODEL" default:"gpt-4o"`
	UtilityModel    string `envconfig:"UTILITY_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDims   int    `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`

	// Cross-encoder sidecar. Empty endpoint means the reranker falls
	// back to LLM excerpt selection for every pool size.
	RerankerEndpoint string        `envconfig:"RERANKER_ENDPOINT"`
	RerankerModel    string        `envconfig:"RERANKER_MODEL" default:"bge-reranker-v2-m3"`
	RerankerTimeout  time.Duration `envconfig:"RERANKER_TIMEOUT" default:"30s"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	WorkerInterval time.Duration `envconfig:"WORKER_INTERVAL" default:"5s"`

	// Retrieval tuning. Defaults mirror production values; exposed so
	// operators can adjust recall/latency trade-offs per deployment.
	SearchRRFK              int     `envconfig:"SEARCH_RRF_K" default:"60"`
	SearchUnscopedLimit     int     `envconfig:"SEARCH_UNSCOPED_LIMIT" default:"300"`
	SearchListIntentLimit   int     `envconfig:"SEARCH_LIST_INTENT_LIMIT" default:"500"`
	SearchScopedLimit       int     `envconfig:"SEARCH_SCOPED_LIMIT" default:"150"`
	ChampionTopN            int     `envconfig:"CHAMPION_TOP_N" default:"10"`
	ChampionMinCount        int     `envconfig:"CHAMPION_MIN_COUNT" default:"5"`
	ChampionNameMatchFloor  float64 `envconfig:"CHAMPION_NAME_MATCH_FLOOR" default:"0.15"`
	RerankCrossEncoderPool  int     `envconfig:"RERANK_CROSS_ENCODER_POOL" default:"50"`

	// Bootstrap: create initial tenant and API key on startup
	InitTenantName string `envconfig:"INIT_TENANT_NAME"`
	InitAPIKey     string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("KNOWVEX", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasReranker() bool {
	return c.RerankerEndpoint != ""
}
