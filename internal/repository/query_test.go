//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRepository_History(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	doc, err := NewDocumentRepository(pool).GetOrCreate(ctx, "https://example.com/h.pdf")
	require.NoError(t, err)
	chunks := seedChunks(t, doc.ID, "v0", "v1")
	require.NoError(t, NewChunkRepository(pool).CreateBatch(ctx, chunks))

	repo := NewQueryRepository(pool)
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 3; i++ {
		q := &domain.UserQuery{ID: uuid.NewString(), DocumentID: doc.ID, Text: "question", CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, repo.CreateQuery(ctx, q))

		amount := 5000.0
		answer := &domain.Answer{
			ID:        uuid.NewString(),
			QueryID:   q.ID,
			Text:      "answer",
			Decision:  domain.DecisionApproved,
			Amount:    &amount,
			CreatedAt: q.CreatedAt,
			Clauses: []domain.AnswerClause{
				{ID: uuid.NewString(), ChunkID: chunks[0].ID, ClauseText: "first", SimilarityScore: 0.9},
				{ID: uuid.NewString(), ChunkID: chunks[1].ID, ClauseText: "second", SimilarityScore: 0.4},
			},
		}
		require.NoError(t, repo.CreateAnswer(ctx, answer))
	}

	page, err := repo.History(ctx, doc.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Items[0].Query.CreatedAt.After(page.Items[1].Query.CreatedAt))

	first := page.Items[0]
	require.Len(t, first.Answers, 1)
	assert.Equal(t, domain.DecisionApproved, first.Answers[0].Decision)
	require.NotNil(t, first.Answers[0].Amount)
	assert.Equal(t, 5000.0, *first.Answers[0].Amount)
	require.Len(t, first.Answers[0].Clauses, 2)
	assert.Equal(t, "first", first.Answers[0].Clauses[0].ClauseText)

	cursor, err := pagination.Decode(page.NextCursor)
	require.NoError(t, err)
	rest, err := repo.History(ctx, doc.ID, cursor, 2)
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.False(t, rest.HasMore)
	assert.Empty(t, rest.NextCursor)
}

func TestQueryRepository_AnswerWithoutClauses(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	doc, err := NewDocumentRepository(pool).GetOrCreate(ctx, "https://example.com/n.pdf")
	require.NoError(t, err)

	repo := NewQueryRepository(pool)
	q := &domain.UserQuery{ID: uuid.NewString(), DocumentID: doc.ID, Text: "q", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreateQuery(ctx, q))
	require.NoError(t, repo.CreateAnswer(ctx, &domain.Answer{ID: uuid.NewString(), QueryID: q.ID, Text: "fallback"}))

	page, err := repo.History(ctx, doc.ID, nil, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Len(t, page.Items[0].Answers, 1)
	answer := page.Items[0].Answers[0]
	assert.Equal(t, domain.DecisionNotApplicable, answer.Decision)
	assert.Nil(t, answer.Amount)
	assert.Empty(t, answer.Clauses)
}

func TestAdvisoryLocker_Serializes(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	locker := NewAdvisoryLocker(pool)

	unlock, err := locker.Lock(ctx, "doc-1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "doc-1")
	assert.Error(t, err)

	other, err := locker.Lock(ctx, "doc-2")
	require.NoError(t, err)
	other()

	unlock()

	again, err := locker.Lock(ctx, "doc-1")
	require.NoError(t, err)
	again()
}
