package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

// GetOrCreate returns the document for url, inserting it on first sight. Concurrent
// callers for the same url receive the same row.
func (r *DocumentRepository) GetOrCreate(ctx context.Context, url string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.QueryRow(ctx,
		`INSERT INTO documents (id, url, uploaded_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
		 RETURNING id, url, uploaded_at`,
		uuid.NewString(), url,
	).Scan(&doc.ID, &doc.URL, &doc.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.QueryRow(ctx,
		`SELECT id, url, uploaded_at FROM documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.URL, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByURL(ctx context.Context, url string) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.QueryRow(ctx,
		`SELECT id, url, uploaded_at FROM documents WHERE url = $1`,
		url,
	).Scan(&doc.ID, &doc.URL, &doc.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Delete removes the document; chunks, queries and answers cascade.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
