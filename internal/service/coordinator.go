package service

import (
	"context"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/vectorindex"
	"github.com/google/uuid"
)

// DocumentRepositoryInterface defines persistence of documents keyed by URL.
type DocumentRepositoryInterface interface {
	GetOrCreate(ctx context.Context, url string) (*domain.Document, error)
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkRepositoryInterface defines persistence of document chunks.
type ChunkRepositoryInterface interface {
	HasChunks(ctx context.Context, documentID string) (bool, error)
	CreateBatch(ctx context.Context, chunks []*domain.DocumentChunk) error
	ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error)
	GetByVectorIDs(ctx context.Context, vectorIDs []string) (map[string]*domain.DocumentChunk, error)
	ListPlaceholders(ctx context.Context, limit int) ([]*domain.DocumentChunk, error)
	UpdateVectorID(ctx context.Context, chunkID, vectorID string) error
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
}

// QueryRepositoryInterface defines persistence of questions and answers.
type QueryRepositoryInterface interface {
	CreateQuery(ctx context.Context, q *domain.UserQuery) error
	CreateAnswer(ctx context.Context, a *domain.Answer) error
	History(ctx context.Context, documentID string, cursor *pagination.Cursor, limit int) (*HistoryPage, error)
}

// HistoryPage is one page of a document's query history, newest first.
type HistoryPage struct {
	Items      []domain.QueryHistoryEntry
	NextCursor string
	HasMore    bool
}

// VectorIndex is the similarity store the coordinator indexes chunks into.
type VectorIndex interface {
	Available(ctx context.Context) bool
	Upsert(ctx context.Context, documentID string, chunks []vectorindex.Chunk) ([]string, bool)
	Query(ctx context.Context, text string, topK int, filter vectorindex.Filter) vectorindex.QueryResult
	Delete(ctx context.Context, documentID string)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Extractor interface {
	Extract(ctx context.Context, raw []byte) (string, error)
}

// Generator is a text completion backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Archiver stores the raw bytes of fetched documents.
type Archiver interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ArchiveKey is the object key of a document's archived PDF.
func ArchiveKey(documentID string) string {
	return "documents/" + documentID + ".pdf"
}

// CoordinatorConfig holds the tunables of the ingestion and answering pipeline.
type CoordinatorConfig struct {
	Chunking ChunkConfig
	TopK     int
	// DocumentScoped filters retrieval to the asked document instead of searching
	// all indexed documents.
	DocumentScoped bool
	// AnalyzeDecisions runs decision analysis on every generated answer.
	AnalyzeDecisions bool
}

// CoordinatorDeps are the collaborators shared across requests.
type CoordinatorDeps struct {
	Documents DocumentRepositoryInterface
	Chunks    ChunkRepositoryInterface
	Queries   QueryRepositoryInterface
	Tx        TxRunner
	Locker    DocumentLocker
	Fetcher   Fetcher
	Extractor Extractor
	Index     VectorIndex
	Generator Generator
	// Archiver is optional.
	Archiver Archiver
}

// Coordinator turns document URLs into indexed chunks and answers questions over them.
type Coordinator struct {
	docs      DocumentRepositoryInterface
	chunks    ChunkRepositoryInterface
	queries   QueryRepositoryInterface
	tx        TxRunner
	locker    DocumentLocker
	fetcher   Fetcher
	extractor Extractor
	index     VectorIndex
	generator Generator
	archiver  Archiver
	analyzer  *DecisionAnalyzer
	cfg       CoordinatorConfig
	uuidGen   UUIDGenerator
}

func NewCoordinator(deps CoordinatorDeps, cfg CoordinatorConfig) *Coordinator {
	if cfg.Chunking.MaxChars <= 0 {
		cfg.Chunking = DefaultChunkConfig()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	c := &Coordinator{
		docs:      deps.Documents,
		chunks:    deps.Chunks,
		queries:   deps.Queries,
		tx:        deps.Tx,
		locker:    locker,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		index:     deps.Index,
		generator: deps.Generator,
		archiver:  deps.Archiver,
		cfg:       cfg,
		uuidGen:   &DefaultUUIDGenerator{},
	}
	if cfg.AnalyzeDecisions && deps.Generator != nil {
		c.analyzer = NewDecisionAnalyzer(deps.Generator)
	}
	return c
}

// NewCoordinatorWithUUIDGen creates a Coordinator with a custom UUID generator (for testing)
func NewCoordinatorWithUUIDGen(deps CoordinatorDeps, cfg CoordinatorConfig, uuidGen UUIDGenerator) *Coordinator {
	c := NewCoordinator(deps, cfg)
	c.uuidGen = uuidGen
	return c
}
