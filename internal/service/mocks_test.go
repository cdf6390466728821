package service

import (
	"context"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/vectorindex"
	"github.com/stretchr/testify/mock"
)

// MockDocumentRepository is a mock implementation of DocumentRepositoryInterface
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) GetOrCreate(ctx context.Context, url string) (*domain.Document, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockChunkRepository is a mock implementation of ChunkRepositoryInterface
type MockChunkRepository struct {
	mock.Mock
}

func (m *MockChunkRepository) HasChunks(ctx context.Context, documentID string) (bool, error) {
	args := m.Called(ctx, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockChunkRepository) CreateBatch(ctx context.Context, chunks []*domain.DocumentChunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DocumentChunk), args.Error(1)
}

func (m *MockChunkRepository) GetByVectorIDs(ctx context.Context, vectorIDs []string) (map[string]*domain.DocumentChunk, error) {
	args := m.Called(ctx, vectorIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*domain.DocumentChunk), args.Error(1)
}

func (m *MockChunkRepository) ListPlaceholders(ctx context.Context, limit int) ([]*domain.DocumentChunk, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DocumentChunk), args.Error(1)
}

func (m *MockChunkRepository) UpdateVectorID(ctx context.Context, chunkID, vectorID string) error {
	args := m.Called(ctx, chunkID, vectorID)
	return args.Error(0)
}

func (m *MockChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(int64), args.Error(1)
}

// MockQueryRepository is a mock implementation of QueryRepositoryInterface
type MockQueryRepository struct {
	mock.Mock
}

func (m *MockQueryRepository) CreateQuery(ctx context.Context, q *domain.UserQuery) error {
	args := m.Called(ctx, q)
	return args.Error(0)
}

func (m *MockQueryRepository) CreateAnswer(ctx context.Context, a *domain.Answer) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockQueryRepository) History(ctx context.Context, documentID string, cursor *pagination.Cursor, limit int) (*HistoryPage, error) {
	args := m.Called(ctx, documentID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*HistoryPage), args.Error(1)
}

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockVectorIndex) Upsert(ctx context.Context, documentID string, chunks []vectorindex.Chunk) ([]string, bool) {
	args := m.Called(ctx, documentID, chunks)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	if fn, ok := args.Get(0).(func(context.Context, string, []vectorindex.Chunk) []string); ok {
		return fn(ctx, documentID, chunks), args.Bool(1)
	}
	return args.Get(0).([]string), args.Bool(1)
}

func (m *MockVectorIndex) Query(ctx context.Context, text string, topK int, filter vectorindex.Filter) vectorindex.QueryResult {
	args := m.Called(ctx, text, topK, filter)
	return args.Get(0).(vectorindex.QueryResult)
}

func (m *MockVectorIndex) Delete(ctx context.Context, documentID string) {
	m.Called(ctx, documentID)
}

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, raw []byte) (string, error) {
	args := m.Called(ctx, raw)
	return args.String(0), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockArchiver) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockUUIDGenerator returns the given ids in order, then "default-uuid".
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		uuid := m.uuids[m.callCount]
		m.callCount++
		return uuid
	}
	return "default-uuid"
}

type coordinatorMocks struct {
	docs      *MockDocumentRepository
	chunks    *MockChunkRepository
	queries   *MockQueryRepository
	tx        *testTxRunner
	fetcher   *MockFetcher
	extractor *MockExtractor
	index     *MockVectorIndex
	generator *MockGenerator
}

func newCoordinatorMocks() *coordinatorMocks {
	m := &coordinatorMocks{
		docs:      new(MockDocumentRepository),
		chunks:    new(MockChunkRepository),
		queries:   new(MockQueryRepository),
		fetcher:   new(MockFetcher),
		extractor: new(MockExtractor),
		index:     new(MockVectorIndex),
		generator: new(MockGenerator),
	}
	m.tx = &testTxRunner{repos: &testTxRepos{chunks: m.chunks, queries: m.queries}}
	return m
}

func (m *coordinatorMocks) deps() CoordinatorDeps {
	return CoordinatorDeps{
		Documents: m.docs,
		Chunks:    m.chunks,
		Queries:   m.queries,
		Tx:        m.tx,
		Fetcher:   m.fetcher,
		Extractor: m.extractor,
		Index:     m.index,
		Generator: m.generator,
	}
}
