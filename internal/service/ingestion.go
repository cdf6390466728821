package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/telemetry"
	"github.com/cloo-solutions/docqa/internal/vectorindex"
)

// IngestResult describes the outcome of EnsureIngested.
type IngestResult struct {
	Document   *domain.Document
	ChunkCount int
	// Reused is set when the document already had chunks and nothing was processed.
	Reused bool
	// Degraded is set when chunks were stored with placeholder vector ids.
	Degraded bool
}

// EnsureIngested makes sure the document at url is chunked and indexed exactly once.
// Pipeline errors are returned as-is; the document row stays without chunks and the
// next call retries.
func (c *Coordinator) EnsureIngested(ctx context.Context, url string) (*IngestResult, error) {
	if err := domain.ValidateDocumentURL(url); err != nil {
		return nil, err
	}

	doc, err := c.docs.GetOrCreate(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create document: %w", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "service.ensure_ingested", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	unlock, err := c.locker.Lock(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock document %s: %w", doc.ID, err)
	}
	defer unlock()

	has, err := c.chunks.HasChunks(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check chunks: %w", err)
	}
	if has {
		log.Printf("document %s already ingested, reusing chunks", doc.ID)
		return &IngestResult{Document: doc, Reused: true}, nil
	}

	result, err := c.ingest(ctx, doc)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return result, nil
}

func (c *Coordinator) ingest(ctx context.Context, doc *domain.Document) (*IngestResult, error) {
	start := time.Now()

	raw, err := c.fetch(ctx, doc)
	if err != nil {
		return nil, err
	}

	text, err := c.extract(ctx, doc, raw)
	if err != nil {
		return nil, err
	}

	texts := ChunkText(text, c.cfg.Chunking)
	if len(texts) == 0 {
		return nil, domain.ErrEmptyContent
	}

	indexChunks := make([]vectorindex.Chunk, len(texts))
	for i, t := range texts {
		indexChunks[i] = vectorindex.Chunk{Index: i, Text: t}
	}
	// An earlier attempt may have written vectors before failing to persist chunks.
	c.index.Delete(ctx, doc.ID)
	vectorIDs, degraded := c.index.Upsert(ctx, doc.ID, indexChunks)
	if len(vectorIDs) != len(texts) {
		return nil, fmt.Errorf("vector index returned %d ids for %d chunks", len(vectorIDs), len(texts))
	}

	now := time.Now().UTC()
	records := make([]*domain.DocumentChunk, len(texts))
	for i, t := range texts {
		records[i] = domain.NewDocumentChunk(c.uuidGen.NewString(), doc.ID, i, t, vectorIDs[i], now)
	}

	err = c.tx.WithTx(ctx, func(repos TxRepositories) error {
		return repos.Chunks().CreateBatch(ctx, records)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist chunks: %w", err)
	}

	c.archive(ctx, doc.ID, raw)

	log.Printf("ingested document %s: %d chunks in %s (degraded: %t)", doc.ID, len(records), time.Since(start).Round(time.Millisecond), degraded)
	return &IngestResult{Document: doc, ChunkCount: len(records), Degraded: degraded}, nil
}

func (c *Coordinator) fetch(ctx context.Context, doc *domain.Document) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.fetch", telemetry.SpanAttributes{DocumentID: doc.ID, Operation: "fetch"})
	defer span.End()

	raw, err := c.fetcher.Fetch(ctx, doc.URL)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return raw, nil
}

func (c *Coordinator) extract(ctx context.Context, doc *domain.Document, raw []byte) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.extract", telemetry.SpanAttributes{DocumentID: doc.ID, Operation: "extract"})
	defer span.End()

	text, err := c.extractor.Extract(ctx, raw)
	if err != nil {
		span.SetError(err)
		return "", err
	}
	return text, nil
}

func (c *Coordinator) archive(ctx context.Context, documentID string, raw []byte) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.PutObject(ctx, ArchiveKey(documentID), raw, "application/pdf"); err != nil {
		log.Printf("WARN: failed to archive document %s: %v", documentID, err)
	}
}

// PurgeResult reports what Purge removed.
type PurgeResult struct {
	DocumentID    string
	ChunksDeleted int64
}

// Purge removes a document's vectors, chunks and archived PDF. The document row is
// deleted too when deleteDocument is set. Vector and archive cleanup is best-effort.
func (c *Coordinator) Purge(ctx context.Context, documentID string, deleteDocument bool) (*PurgeResult, error) {
	if _, err := c.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	c.index.Delete(ctx, documentID)

	n, err := c.chunks.DeleteByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete chunks: %w", err)
	}

	if c.archiver != nil {
		if err := c.archiver.DeleteObject(ctx, ArchiveKey(documentID)); err != nil {
			log.Printf("WARN: failed to delete archived document %s: %v", documentID, err)
		}
	}

	if deleteDocument {
		if err := c.docs.Delete(ctx, documentID); err != nil {
			return nil, fmt.Errorf("failed to delete document: %w", err)
		}
	}

	return &PurgeResult{DocumentID: documentID, ChunksDeleted: n}, nil
}
