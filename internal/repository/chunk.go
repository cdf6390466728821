package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkRepository handles persistence of document chunks and their vector ids.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) HasChunks(ctx context.Context, documentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM document_chunks WHERE document_id = $1)`,
		documentID,
	).Scan(&exists)
	return exists, err
}

// CreateBatch inserts chunks in order. Run it inside a transaction so a document's
// chunk set is written all at once.
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []*domain.DocumentChunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks (id, document_id, chunk_index, chunk_text, vector_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.DocumentID, c.ChunkIndex, c.Text, c.VectorID, createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

const chunkColumns = `id, document_id, chunk_index, chunk_text, vector_id, created_at`

func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// GetByVectorIDs returns the chunks stored under the given vector ids, keyed by vector id.
// Unknown ids are absent from the map.
func (r *ChunkRepository) GetByVectorIDs(ctx context.Context, vectorIDs []string) (map[string]*domain.DocumentChunk, error) {
	out := make(map[string]*domain.DocumentChunk, len(vectorIDs))
	if len(vectorIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks WHERE vector_id = ANY($1)`,
		vectorIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks, err := scanChunkRows(rows)
	if err != nil {
		return nil, err
	}
	for _, c := range chunks {
		out[c.VectorID] = c
	}
	return out, nil
}

// ListPlaceholders returns up to limit chunks whose vector id was assigned locally,
// oldest first.
func (r *ChunkRepository) ListPlaceholders(ctx context.Context, limit int) ([]*domain.DocumentChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+` FROM document_chunks
		 WHERE starts_with(vector_id, $1) OR starts_with(vector_id, $2)
		 ORDER BY created_at, document_id, chunk_index
		 LIMIT $3`,
		domain.LocalVectorPrefix, domain.FallbackVectorPrefix, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (r *ChunkRepository) UpdateVectorID(ctx context.Context, chunkID, vectorID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE document_chunks SET vector_id = $2 WHERE id = $1`,
		chunkID, vectorID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanChunkRows(rows pgx.Rows) ([]*domain.DocumentChunk, error) {
	var chunks []*domain.DocumentChunk
	for rows.Next() {
		var c domain.DocumentChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.VectorID, &c.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}
