package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

type Config struct {
	Port        string `envconfig:"PORT" default:"8000"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	TLSCertFile string `envconfig:"TLS_CERT_FILE" default:"localhost.crt"`
	TLSKeyFile  string `envconfig:"TLS_KEY_FILE" default:"localhost.key"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	// VectorDatabaseURL defaults to DatabaseURL.
	VectorDatabaseURL string `envconfig:"VECTOR_DATABASE_URL"`
	VectorIndexName   string `envconfig:"VECTOR_INDEX_NAME" default:"llm-query-retrieval"`

	BearerToken string `envconfig:"BEARER_TOKEN" required:"true"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`
	TopK         int `envconfig:"TOP_K" default:"5"`
	// DocumentScopedSearch restricts retrieval to the document being asked about.
	// By default clauses are searched across every indexed document.
	DocumentScopedSearch bool `envconfig:"DOCUMENT_SCOPED_SEARCH" default:"false"`

	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"60s"`
	FetchAttempts int           `envconfig:"FETCH_ATTEMPTS" default:"3"`
	FetchMaxBytes int64         `envconfig:"FETCH_MAX_BYTES" default:"104857600"`
	// FetchRateLimit is outbound fetches per second; 0 disables limiting.
	FetchRateLimit float64 `envconfig:"FETCH_RATE_LIMIT" default:"0"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"openai"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL"`
	// EmbeddingDimensions of 0 selects the provider default (384 for openai, 768 for gemini).
	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS"`

	LLMProvider     string `envconfig:"LLM_PROVIDER" default:"gemini"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIChatModel string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiModel     string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`

	AnalyzeDecisions bool `envconfig:"ANALYZE_DECISIONS" default:"false"`

	// LockMode selects the per-document ingestion lock: "local" or "postgres".
	LockMode string `envconfig:"LOCK_MODE" default:"local"`

	RepairInterval time.Duration `envconfig:"REPAIR_INTERVAL" default:"5m"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docqa-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	Timezone string `envconfig:"TIMEZONE" default:"Asia/Kolkata"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCQA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.VectorDatabaseURL == "" {
		cfg.VectorDatabaseURL = cfg.DatabaseURL
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

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("DOCQA_CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("DOCQA_CHUNK_OVERLAP must be in [0, %d), got %d", c.ChunkSize, c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("DOCQA_TOP_K must be positive, got %d", c.TopK)
	}
	if c.FetchAttempts <= 0 {
		return fmt.Errorf("DOCQA_FETCH_ATTEMPTS must be positive, got %d", c.FetchAttempts)
	}
	switch c.EmbeddingProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported DOCQA_EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}
	switch c.LLMProvider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unsupported DOCQA_LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.LockMode {
	case "local", "postgres":
	default:
		return fmt.Errorf("unsupported DOCQA_LOCK_MODE %q", c.LockMode)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasTLS reports whether both certificate files exist on disk.
func (c *Config) HasTLS() bool {
	if c.TLSCertFile == "" || c.TLSKeyFile == "" {
		return false
	}
	if _, err := os.Stat(c.TLSCertFile); err != nil {
		return false
	}
	if _, err := os.Stat(c.TLSKeyFile); err != nil {
		return false
	}
	return true
}

// Location returns the configured display timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
