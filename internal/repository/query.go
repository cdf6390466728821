package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryRepository stores user questions with their answers and supporting clauses.
type QueryRepository struct {
	db dbtx
}

func NewQueryRepository(pool *pgxpool.Pool) *QueryRepository {
	return &QueryRepository{db: pool}
}

func NewQueryRepositoryWithTx(tx pgx.Tx) *QueryRepository {
	return &QueryRepository{db: tx}
}

func (r *QueryRepository) CreateQuery(ctx context.Context, q *domain.UserQuery) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO user_queries (id, document_id, query_text, created_at) VALUES ($1, $2, $3, $4)`,
		q.ID, q.DocumentID, q.Text, q.CreatedAt,
	)
	return err
}

// CreateAnswer inserts the answer followed by its clauses.
func (r *QueryRepository) CreateAnswer(ctx context.Context, a *domain.Answer) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	decision := a.Decision
	if decision == "" {
		decision = domain.DecisionNotApplicable
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO answers (id, query_id, answer_text, decision, amount, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.QueryID, a.Text, decision, a.Amount, createdAt,
	)
	if err != nil {
		return err
	}

	for _, c := range a.Clauses {
		_, err := r.db.Exec(ctx,
			`INSERT INTO answer_clauses (id, answer_id, chunk_id, clause_text, similarity_score) VALUES ($1, $2, $3, $4, $5)`,
			c.ID, a.ID, c.ChunkID, c.ClauseText, c.SimilarityScore,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// History returns up to limit queries of a document, newest first, with their answers
// and clauses. The cursor continues after the last query of the previous page.
func (r *QueryRepository) History(ctx context.Context, documentID string, cursor *pagination.Cursor, limit int) (*service.HistoryPage, error) {
	limit = pagination.ClampLimit(limit, service.DefaultHistoryLimit, service.MaxHistoryLimit)

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, document_id, query_text, created_at FROM user_queries
			 WHERE document_id = $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			documentID, cursor.CreatedAt, cursor.ID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, document_id, query_text, created_at FROM user_queries
			 WHERE document_id = $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			documentID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}

	var entries []domain.QueryHistoryEntry
	for rows.Next() {
		var q domain.UserQuery
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Text, &q.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, domain.QueryHistoryEntry{Query: q})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries, nextCursor, hasMore := pagination.Trim(entries, limit, func(e domain.QueryHistoryEntry) (string, time.Time) {
		return e.Query.ID, e.Query.CreatedAt
	})

	for i := range entries {
		answers, err := r.answersFor(ctx, entries[i].Query.ID)
		if err != nil {
			return nil, err
		}
		entries[i].Answers = answers
	}

	return &service.HistoryPage{
		Items:      entries,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *QueryRepository) answersFor(ctx context.Context, queryID string) ([]domain.Answer, error) {
	rows, err := r.db.Query(ctx,
		`SELECT a.id, a.query_id, a.answer_text, a.decision, a.amount, a.created_at,
		        c.id, c.chunk_id, c.clause_text, c.similarity_score
		 FROM answers a
		 LEFT JOIN answer_clauses c ON c.answer_id = a.id
		 WHERE a.query_id = $1
		 ORDER BY a.created_at, a.id, c.similarity_score DESC`,
		queryID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		var a domain.Answer
		var amount pgtype.Float8
		var clauseID, chunkID, clauseText pgtype.Text
		var score pgtype.Float8
		if err := rows.Scan(&a.ID, &a.QueryID, &a.Text, &a.Decision, &amount, &a.CreatedAt,
			&clauseID, &chunkID, &clauseText, &score); err != nil {
			return nil, err
		}

		if len(answers) == 0 || answers[len(answers)-1].ID != a.ID {
			if amount.Valid {
				v := amount.Float64
				a.Amount = &v
			}
			answers = append(answers, a)
		}
		if clauseID.Valid {
			last := &answers[len(answers)-1]
			last.Clauses = append(last.Clauses, domain.AnswerClause{
				ID:              clauseID.String,
				AnswerID:        last.ID,
				ChunkID:         chunkID.String,
				ClauseText:      clauseText.String,
				SimilarityScore: score.Float64,
			})
		}
	}
	return answers, rows.Err()
}
