// Package vectorindex stores chunk embeddings in a pgvector table and serves
// cosine top-k retrieval over them.
package vectorindex

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

const (
	// DeleteLimit caps the number of vector ids resolved per Delete call.
	DeleteLimit = 10000
	// insertBatchRows keeps multi-row inserts well under the bind parameter limit.
	insertBatchRows = 500
)

// Embedder turns texts into fixed-dimension vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// DB is the subset of pgxpool.Pool used by the index.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Chunk is one unit of text to index. Index is the chunk's ordinal within its document.
type Chunk struct {
	Index int
	Text  string
}

type Filter struct {
	DocumentID string
}

type QueryResult struct {
	Matches []domain.RetrievalMatch
	// Degraded is set when the index could not serve the query.
	Degraded bool
}

type Index struct {
	db       DB
	embedder Embedder
	table    string

	once     sync.Once
	degraded atomic.Bool

	newSuffix func() string
}

func New(db DB, embedder Embedder, name string) *Index {
	return &Index{
		db:        db,
		embedder:  embedder,
		table:     TableName(name),
		newSuffix: randomSuffix,
	}
}

var nonIdent = regexp.MustCompile(`[^a-z0-9_]+`)

// TableName maps an index name such as "llm-query-retrieval" to a SQL identifier.
func TableName(name string) string {
	t := nonIdent.ReplaceAllString(strings.ToLower(name), "_")
	t = strings.Trim(t, "_")
	if t == "" {
		return "vectors"
	}
	if t[0] >= '0' && t[0] <= '9' {
		t = "v_" + t
	}
	return t
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (x *Index) Table() string {
	return x.table
}

// Available creates the backing table on first use and reports whether the index is usable.
// A failed creation is not retried.
func (x *Index) Available(ctx context.Context) bool {
	x.once.Do(func() {
		if err := x.create(context.WithoutCancel(ctx)); err != nil {
			log.Printf("WARN: vector index %s unavailable, continuing in degraded mode: %v", x.table, err)
			x.degraded.Store(true)
			return
		}
		log.Printf("vector index %s ready (dimensions: %d)", x.table, x.embedder.Dimensions())
	})
	return !x.degraded.Load()
}

func (x *Index) create(ctx context.Context) error {
	table := pgx.Identifier{x.table}.Sanitize()
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			full_text TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, table, x.embedder.Dimensions()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_cosine_ops)`,
			pgx.Identifier{x.table + "_embedding_idx"}.Sanitize(), table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
			pgx.Identifier{x.table + "_document_idx"}.Sanitize(), table),
	}
	for _, stmt := range stmts {
		if _, err := x.db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (x *Index) vectorID(prefix, documentID string, ordinal int) string {
	return fmt.Sprintf("%s%s_%d_%s", prefix, documentID, ordinal, x.newSuffix())
}

func (x *Index) placeholders(prefix, documentID string, chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = x.vectorID(prefix, documentID, c.Index)
	}
	return ids
}

// Upsert embeds and stores chunks, returning one vector id per chunk in input order.
// It never fails: when the index is unavailable the ids are local_ placeholders, and
// when embedding or writing fails they are fallback_ placeholders. degraded reports
// that placeholders were returned.
func (x *Index) Upsert(ctx context.Context, documentID string, chunks []Chunk) (ids []string, degraded bool) {
	if !x.Available(ctx) {
		log.Printf("WARN: vector index degraded, assigning local ids to %d chunks of document %s", len(chunks), documentID)
		return x.placeholders(domain.LocalVectorPrefix, documentID, chunks), true
	}
	if len(chunks) == 0 {
		return []string{}, false
	}

	ctx, span := telemetry.StartSpan(ctx, "vectorindex.upsert", telemetry.SpanAttributes{
		DocumentID: documentID,
		Count:      len(chunks),
		Operation:  "upsert",
	})
	defer span.End()

	ids, err := x.upsert(ctx, documentID, chunks)
	if err != nil {
		span.SetError(err)
		log.Printf("WARN: vector upsert failed for document %s, assigning fallback ids: %v", documentID, err)
		return x.placeholders(domain.FallbackVectorPrefix, documentID, chunks), true
	}
	return ids, false
}

func (x *Index) upsert(ctx context.Context, documentID string, chunks []Chunk) ([]string, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed chunks: expected %d vectors, got %d", len(chunks), len(vectors))
	}

	ids := x.placeholders("", documentID, chunks)
	table := pgx.Identifier{x.table}.Sanitize()

	for start := 0; start < len(chunks); start += insertBatchRows {
		end := min(start+insertBatchRows, len(chunks))

		var sb strings.Builder
		fmt.Fprintf(&sb, `INSERT INTO %s (id, document_id, chunk_index, text, full_text, embedding) VALUES `, table)
		args := make([]any, 0, (end-start)*6)
		for i := start; i < end; i++ {
			if i > start {
				sb.WriteString(", ")
			}
			n := len(args)
			fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
			args = append(args,
				ids[i],
				documentID,
				chunks[i].Index,
				domain.TruncateRunes(chunks[i].Text, domain.MaxClauseTextLength),
				chunks[i].Text,
				pgvector.NewVector(vectors[i]),
			)
		}
		sb.WriteString(` ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, text = EXCLUDED.text, full_text = EXCLUDED.full_text`)

		if _, err := x.db.Exec(ctx, sb.String(), args...); err != nil {
			return nil, fmt.Errorf("write vectors: %w", err)
		}
	}
	return ids, nil
}

// Query returns the topK chunks most similar to text, best first. Failures yield an
// empty degraded result.
func (x *Index) Query(ctx context.Context, text string, topK int, filter Filter) QueryResult {
	if !x.Available(ctx) {
		log.Printf("WARN: vector index degraded, query returns no matches")
		return QueryResult{Degraded: true}
	}

	ctx, span := telemetry.StartSpan(ctx, "vectorindex.query", telemetry.SpanAttributes{
		DocumentID: filter.DocumentID,
		Operation:  "query",
	})
	defer span.End()

	matches, err := x.query(ctx, text, topK, filter)
	if err != nil {
		span.SetError(err)
		log.Printf("WARN: vector query failed, returning no matches: %v", err)
		return QueryResult{Degraded: true}
	}
	return QueryResult{Matches: matches}
}

func (x *Index) query(ctx context.Context, text string, topK int, filter Filter) ([]domain.RetrievalMatch, error) {
	if topK <= 0 {
		return []domain.RetrievalMatch{}, nil
	}

	vectors, err := x.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: expected 1 vector, got %d", len(vectors))
	}

	sql := fmt.Sprintf(`SELECT id, document_id, chunk_index, full_text, 1 - (embedding <=> $1) AS score FROM %s`,
		pgx.Identifier{x.table}.Sanitize())
	args := []any{pgvector.NewVector(vectors[0])}
	if filter.DocumentID != "" {
		sql += ` WHERE document_id = $2`
		args = append(args, filter.DocumentID)
	}
	sql += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT %d`, topK)

	rows, err := x.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]domain.RetrievalMatch, 0, topK)
	for rows.Next() {
		var m domain.RetrievalMatch
		if err := rows.Scan(&m.VectorID, &m.DocumentID, &m.ChunkIndex, &m.Text, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Delete removes every vector of documentID. Errors are logged, not returned.
func (x *Index) Delete(ctx context.Context, documentID string) {
	if !x.Available(ctx) {
		return
	}

	table := pgx.Identifier{x.table}.Sanitize()
	rows, err := x.db.Query(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE document_id = $1 LIMIT %d`, table, DeleteLimit),
		documentID,
	)
	if err != nil {
		x.deleteFailed(ctx, documentID, fmt.Errorf("resolve ids: %w", err))
		return
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		x.deleteFailed(ctx, documentID, fmt.Errorf("resolve ids: %w", err))
		return
	}
	if len(ids) == 0 {
		return
	}

	if _, err := x.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, table), ids); err != nil {
		x.deleteFailed(ctx, documentID, err)
		return
	}
	log.Printf("deleted %d vectors for document %s", len(ids), documentID)
}

// deleteFailed reports a swallowed delete error; the vectors stay behind until the next delete.
func (x *Index) deleteFailed(ctx context.Context, documentID string, err error) {
	log.Printf("WARN: vector delete for document %s: %v", documentID, err)
	telemetry.CaptureError(ctx, fmt.Errorf("vector delete for document %s: %w", documentID, err))
}
