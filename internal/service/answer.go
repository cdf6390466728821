package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/pagination"
	"github.com/cloo-solutions/docqa/internal/telemetry"
	"github.com/cloo-solutions/docqa/internal/vectorindex"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// AnswerResult is the answer to one question.
type AnswerResult struct {
	QueryID  string
	AnswerID string
	Text     string
	// RetrievalAvailable is false when the vector index could not be searched.
	RetrievalAvailable bool
	Matches            []domain.RetrievalMatch
	Decision           string
	Amount             *float64
}

// BatchResult holds answers in question order.
type BatchResult struct {
	DocumentID         string
	Answers            []string
	RetrievalAvailable bool
}

// AnswerQuestion records question, retrieves supporting chunks and generates an answer.
// Generator failures produce FallbackAnswer instead of an error.
func (c *Coordinator) AnswerQuestion(ctx context.Context, documentID, question string) (*AnswerResult, error) {
	if question == "" {
		return nil, domain.ErrMissingRequiredField
	}

	query := &domain.UserQuery{
		ID:         c.uuidGen.NewString(),
		DocumentID: documentID,
		Text:       question,
		CreatedAt:  time.Now().UTC(),
	}

	ctx, span := telemetry.StartSpan(ctx, "service.answer_question", telemetry.SpanAttributes{
		DocumentID: documentID,
		QueryID:    query.ID,
		Operation:  "answer",
	})
	defer span.End()

	if err := c.queries.CreateQuery(ctx, query); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to record query: %w", err)
	}

	var filter vectorindex.Filter
	if c.cfg.DocumentScoped {
		filter.DocumentID = documentID
	}
	retrieval := c.index.Query(ctx, question, c.cfg.TopK, filter)
	available := !retrieval.Degraded

	text := c.generate(ctx, question, retrieval.Matches, available)

	answer := &domain.Answer{
		ID:        c.uuidGen.NewString(),
		QueryID:   query.ID,
		Text:      text,
		Decision:  domain.DecisionNotApplicable,
		CreatedAt: time.Now().UTC(),
	}
	if c.analyzer != nil {
		analysis := c.analyzer.Analyze(ctx, question, text, FormatClauses(retrieval.Matches))
		answer.Decision = analysis.Decision
		answer.Amount = analysis.Amount
	}

	if err := c.saveAnswer(ctx, documentID, answer, retrieval.Matches); err != nil {
		span.SetError(err)
		return nil, err
	}

	return &AnswerResult{
		QueryID:            query.ID,
		AnswerID:           answer.ID,
		Text:               text,
		RetrievalAvailable: available,
		Matches:            retrieval.Matches,
		Decision:           answer.Decision,
		Amount:             answer.Amount,
	}, nil
}

func (c *Coordinator) generate(ctx context.Context, question string, matches []domain.RetrievalMatch, available bool) string {
	ctx, span := telemetry.StartSpan(ctx, "service.generate", telemetry.SpanAttributes{
		Count:     len(matches),
		Operation: "generate",
	})
	defer span.End()

	text, err := c.generator.Generate(ctx, BuildAnswerPrompt(question, matches, available))
	if err != nil {
		span.SetError(err)
		log.Printf("ERROR: answer generation failed: %v", err)
		return FallbackAnswer(question)
	}
	return text
}

// saveAnswer stores the answer with one clause per match whose vector id maps to a
// stored chunk of documentID. Other matches are skipped.
func (c *Coordinator) saveAnswer(ctx context.Context, documentID string, answer *domain.Answer, matches []domain.RetrievalMatch) error {
	vectorIDs := make([]string, len(matches))
	for i, m := range matches {
		vectorIDs[i] = m.VectorID
	}

	return c.tx.WithTx(ctx, func(repos TxRepositories) error {
		byVector := map[string]*domain.DocumentChunk{}
		if len(vectorIDs) > 0 {
			var err error
			byVector, err = repos.Chunks().GetByVectorIDs(ctx, vectorIDs)
			if err != nil {
				return fmt.Errorf("failed to resolve clause chunks: %w", err)
			}
		}

		for _, m := range matches {
			chunk, ok := byVector[m.VectorID]
			if !ok || chunk.DocumentID != documentID {
				log.Printf("WARN: match %s has no stored chunk in document %s, skipping clause", m.VectorID, documentID)
				continue
			}
			answer.Clauses = append(answer.Clauses, domain.AnswerClause{
				ID:              c.uuidGen.NewString(),
				AnswerID:        answer.ID,
				ChunkID:         chunk.ID,
				ClauseText:      domain.TruncateRunes(m.Text, domain.MaxClauseTextLength),
				SimilarityScore: m.Score,
			})
		}

		if err := repos.Queries().CreateAnswer(ctx, answer); err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}
		return nil
	})
}

// ProcessDocumentQueries ingests url if needed and answers questions in order. The first
// failure aborts the batch.
func (c *Coordinator) ProcessDocumentQueries(ctx context.Context, url string, questions []string) (*BatchResult, error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	ingest, err := c.EnsureIngested(ctx, url)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{
		DocumentID:         ingest.Document.ID,
		Answers:            make([]string, 0, len(questions)),
		RetrievalAvailable: true,
	}
	for i, q := range questions {
		answer, err := c.AnswerQuestion(ctx, ingest.Document.ID, q)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		result.Answers = append(result.Answers, answer.Text)
		result.RetrievalAvailable = result.RetrievalAvailable && answer.RetrievalAvailable
	}

	log.Printf("answered %d questions for document %s", len(questions), ingest.Document.ID)
	return result, nil
}

// History returns a page of the recorded questions and answers of a document,
// newest first. An empty cursor starts from the most recent query.
func (c *Coordinator) History(ctx context.Context, documentID, cursor string, limit int) (*HistoryPage, error) {
	decoded, err := pagination.Decode(cursor)
	if err != nil {
		return nil, domain.ErrInvalidInput.Wrap(err)
	}
	limit = pagination.ClampLimit(limit, DefaultHistoryLimit, MaxHistoryLimit)
	if _, err := c.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return c.queries.History(ctx, documentID, decoded, limit)
}

// Chunks lists a document's chunks in ordinal order.
func (c *Coordinator) Chunks(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error) {
	if _, err := c.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	return c.chunks.ListByDocument(ctx, documentID)
}
