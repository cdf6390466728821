package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/vectorindex"
)

// DefaultRepairBatch is the number of placeholder chunks handled per pass.
const DefaultRepairBatch = 200

// PlaceholderStore lists and updates chunks stored with placeholder vector ids.
type PlaceholderStore interface {
	ListPlaceholders(ctx context.Context, limit int) ([]*domain.DocumentChunk, error)
	UpdateVectorID(ctx context.Context, chunkID, vectorID string) error
}

// RepairIndex is the part of the vector index the repair pass needs.
type RepairIndex interface {
	Available(ctx context.Context) bool
	Upsert(ctx context.Context, documentID string, chunks []vectorindex.Chunk) ([]string, bool)
}

// VectorRepair re-indexes chunks that were stored while the vector index was down
// or rejected the write.
type VectorRepair struct {
	chunks PlaceholderStore
	index  RepairIndex
	batch  int
}

func NewVectorRepair(chunks PlaceholderStore, index RepairIndex) *VectorRepair {
	return &VectorRepair{chunks: chunks, index: index, batch: DefaultRepairBatch}
}

func (r *VectorRepair) Process(ctx context.Context) error {
	if !r.index.Available(ctx) {
		return nil
	}

	pending, err := r.chunks.ListPlaceholders(ctx, r.batch)
	if err != nil {
		return fmt.Errorf("list placeholder chunks: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var order []string
	byDoc := make(map[string][]*domain.DocumentChunk)
	for _, c := range pending {
		if _, ok := byDoc[c.DocumentID]; !ok {
			order = append(order, c.DocumentID)
		}
		byDoc[c.DocumentID] = append(byDoc[c.DocumentID], c)
	}

	repaired := 0
	for _, docID := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.repairDocument(ctx, docID, byDoc[docID])
		repaired += n
		if err != nil {
			log.Printf("WARN: vector repair for document %s: %v", docID, err)
		}
	}

	if repaired > 0 {
		log.Printf("vector repair: re-indexed %d of %d chunks", repaired, len(pending))
	}
	return nil
}

func (r *VectorRepair) repairDocument(ctx context.Context, documentID string, chunks []*domain.DocumentChunk) (int, error) {
	items := make([]vectorindex.Chunk, len(chunks))
	for i, c := range chunks {
		items[i] = vectorindex.Chunk{Index: c.ChunkIndex, Text: c.Text}
	}

	ids, degraded := r.index.Upsert(ctx, documentID, items)
	if degraded {
		return 0, fmt.Errorf("index still degraded")
	}

	for i, c := range chunks {
		if err := r.chunks.UpdateVectorID(ctx, c.ID, ids[i]); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}
