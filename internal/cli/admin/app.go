package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/docqa/internal/config"
	"github.com/cloo-solutions/docqa/internal/database"
	"github.com/cloo-solutions/docqa/internal/extractor"
	"github.com/cloo-solutions/docqa/internal/fetcher"
	"github.com/cloo-solutions/docqa/internal/gemini"
	"github.com/cloo-solutions/docqa/internal/openai"
	"github.com/cloo-solutions/docqa/internal/repository"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/cloo-solutions/docqa/internal/storage"
	"github.com/cloo-solutions/docqa/internal/vectorindex"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
)

// app is the wired pipeline shared by serve and the administrative commands.
type app struct {
	cfg         *config.Config
	pool        *pgxpool.Pool
	index       *vectorindex.Index
	chunks      *repository.ChunkRepository
	coordinator *service.Coordinator

	closers []func()
}

type appOptions struct {
	migrate bool
	// checkEmbedder fails startup when the embedding model cannot produce vectors.
	checkEmbedder bool
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	if opts.migrate {
		if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	var err error
	a.pool, err = database.Open(ctx, cfg.DatabaseURL, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.closers = append(a.closers, a.pool.Close)
	log.Println("connected to database")

	// The vector pool connects lazily; an unreachable vector database leaves the
	// index degraded instead of failing startup.
	vectorPool := a.pool
	if cfg.VectorDatabaseURL != cfg.DatabaseURL {
		vectorPool, err = database.OpenLazy(ctx, cfg.VectorDatabaseURL, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to configure vector database: %w", err)
		}
		a.closers = append(a.closers, vectorPool.Close)
	}

	var geminiClient *gemini.Client
	if cfg.EmbeddingProvider == "gemini" || cfg.LLMProvider == "gemini" {
		geminiClient, err = gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = geminiClient.Close() })
	}

	embedder, err := newEmbedder(cfg, geminiClient)
	if err != nil {
		return nil, err
	}
	if opts.checkEmbedder {
		if err := vectorindex.CheckEmbedder(ctx, embedder); err != nil {
			return nil, err
		}
		log.Printf("embedding model ready (provider: %s, dimensions: %d)", cfg.EmbeddingProvider, embedder.Dimensions())
	}

	generator, err := newGenerator(cfg, geminiClient)
	if err != nil {
		return nil, err
	}

	a.index = vectorindex.New(vectorPool, embedder, cfg.VectorIndexName)
	a.index.Available(ctx)

	docs := repository.NewDocumentRepository(a.pool)
	a.chunks = repository.NewChunkRepository(a.pool)
	queries := repository.NewQueryRepository(a.pool)

	var locker service.DocumentLocker
	if cfg.LockMode == "postgres" {
		locker = repository.NewAdvisoryLocker(a.pool)
	} else {
		locker = service.NewLocalLocker()
	}

	deps := service.CoordinatorDeps{
		Documents: docs,
		Chunks:    a.chunks,
		Queries:   queries,
		Tx:        repository.NewTxRunner(a.pool),
		Locker:    locker,
		Fetcher: fetcher.New(fetcher.Config{
			Attempts:  cfg.FetchAttempts,
			Timeout:   cfg.FetchTimeout,
			MaxBytes:  cfg.FetchMaxBytes,
			RateLimit: cfg.FetchRateLimit,
		}),
		Extractor: extractor.New(),
		Index:     a.index,
		Generator: generator,
	}

	if cfg.HasS3() {
		archive, err := storage.NewArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Printf("WARN: S3 bucket %s unavailable, archiving disabled: %v", cfg.S3Bucket, err)
		} else {
			log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
			deps.Archiver = archive
		}
	}

	a.coordinator = service.NewCoordinator(deps, service.CoordinatorConfig{
		Chunking: service.ChunkConfig{
			MaxChars: cfg.ChunkSize,
			Overlap:  cfg.ChunkOverlap,
		},
		TopK:             cfg.TopK,
		DocumentScoped:   cfg.DocumentScopedSearch,
		AnalyzeDecisions: cfg.AnalyzeDecisions,
	})

	ok = true
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newEmbedder(cfg *config.Config, gc *gemini.Client) (vectorindex.Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "gemini":
		return gemini.NewEmbedder(gc, cfg.EmbeddingModel, cfg.EmbeddingDimensions), nil
	default:
		if !cfg.HasOpenAI() {
			return nil, fmt.Errorf("%w: DOCQA_OPENAI_API_KEY is required for the openai embedding provider", openai.ErrNoAPIKey)
		}
		return openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		}), nil
	}
}

func newGenerator(cfg *config.Config, gc *gemini.Client) (service.Generator, error) {
	switch cfg.LLMProvider {
	case "openai":
		if !cfg.HasOpenAI() {
			return nil, fmt.Errorf("%w: DOCQA_OPENAI_API_KEY is required for the openai llm provider", openai.ErrNoAPIKey)
		}
		return openai.NewChatClient(cfg.OpenAIAPIKey, cfg.OpenAIChatModel, ""), nil
	default:
		return gemini.NewGenerator(gc, cfg.GeminiModel, ""), nil
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
