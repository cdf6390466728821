//go:build integration

package vectorindex

import (
	"context"
	"strings"
	"testing"

	"github.com/cloo-solutions/docqa/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordEmbedder maps texts onto four fixed axes so similarity is predictable.
type keywordEmbedder struct{}

func (keywordEmbedder) Dimensions() int { return 4 }

func (keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	keywords := []string{"grace", "maternity", "cataract", "organ"}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 4)
		for k, kw := range keywords {
			if strings.Contains(strings.ToLower(t), kw) {
				v[k] = 1
			}
		}
		v[3] += 0.01
		out[i] = v
	}
	return out, nil
}

func TestIntegration_Index_UpsertQueryDelete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	x := New(pool, keywordEmbedder{}, "llm-query-retrieval")
	require.True(t, x.Available(ctx))

	ids, degraded := x.Upsert(ctx, "doc-a", []Chunk{
		{Index: 0, Text: "A grace period of thirty days is provided."},
		{Index: 1, Text: "Maternity expenses are covered after 24 months."},
		{Index: 2, Text: "Cataract surgery has a two year waiting period."},
	})
	require.False(t, degraded)
	require.Len(t, ids, 3)
	assert.True(t, strings.HasPrefix(ids[0], "doc-a_0_"))
	assert.True(t, strings.HasPrefix(ids[2], "doc-a_2_"))

	_, degraded = x.Upsert(ctx, "doc-b", []Chunk{{Index: 0, Text: "Organ donor expenses are covered."}})
	require.False(t, degraded)

	result := x.Query(ctx, "What is the grace period?", 2, Filter{})
	require.False(t, result.Degraded)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, ids[0], result.Matches[0].VectorID)
	assert.Equal(t, "doc-a", result.Matches[0].DocumentID)
	assert.Equal(t, 0, result.Matches[0].ChunkIndex)
	assert.Contains(t, result.Matches[0].Text, "thirty days")
	assert.GreaterOrEqual(t, result.Matches[0].Score, result.Matches[1].Score)

	filtered := x.Query(ctx, "organ donor", 5, Filter{DocumentID: "doc-a"})
	for _, m := range filtered.Matches {
		assert.Equal(t, "doc-a", m.DocumentID)
	}

	x.Delete(ctx, "doc-a")

	after := x.Query(ctx, "grace period", 5, Filter{DocumentID: "doc-a"})
	assert.False(t, after.Degraded)
	assert.Empty(t, after.Matches)

	other := x.Query(ctx, "organ donor", 5, Filter{DocumentID: "doc-b"})
	assert.Len(t, other.Matches, 1)
}

func TestIntegration_Index_LongTextPayloadTruncated(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	x := New(pool, keywordEmbedder{}, "payloads")
	long := strings.Repeat("grace ", 400)

	ids, degraded := x.Upsert(ctx, "doc", []Chunk{{Index: 0, Text: long}})
	require.False(t, degraded)

	var display, full string
	err := pool.QueryRow(ctx, `SELECT text, full_text FROM payloads WHERE id = $1`, ids[0]).Scan(&display, &full)
	require.NoError(t, err)
	assert.Len(t, []rune(display), 1000)
	assert.Equal(t, long, full)
}
