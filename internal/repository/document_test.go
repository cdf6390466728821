//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	first, err := repo.GetOrCreate(ctx, "https://example.com/policy.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.UploadedAt.IsZero())

	second, err := repo.GetOrCreate(ctx, "https://example.com/policy.pdf")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	byURL, err := repo.GetByURL(ctx, "https://example.com/policy.pdf")
	require.NoError(t, err)
	assert.Equal(t, first.ID, byURL.ID)
}

func TestDocumentRepository_GetOrCreate_Concurrent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := repo.GetOrCreate(ctx, "https://example.com/shared.pdf")
			if err == nil {
				ids[i] = doc.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	err = repo.Delete(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docs := NewDocumentRepository(pool)
	chunks := NewChunkRepository(pool)

	doc, err := docs.GetOrCreate(ctx, "https://example.com/cascade.pdf")
	require.NoError(t, err)
	require.NoError(t, chunks.CreateBatch(ctx, []*domain.DocumentChunk{
		domain.NewDocumentChunk(uuid.NewString(), doc.ID, 0, "text", "vec-1", time.Now().UTC()),
	}))

	require.NoError(t, docs.Delete(ctx, doc.ID))

	has, err := chunks.HasChunks(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, has)
}
