package domain

import "time"

// MaxClauseTextLength bounds the clause text stored with an answer and the
// display text stored in the vector payload.
const MaxClauseTextLength = 1000

// UserQuery is a question asked against a document.
type UserQuery struct {
	ID         string
	DocumentID string
	Text       string
	CreatedAt  time.Time
}

// Decision values produced by answer analysis.
const (
	DecisionApproved      = "approved"
	DecisionRejected      = "rejected"
	DecisionNeedsReview   = "needs_review"
	DecisionNotApplicable = "not_applicable"
)

// Answer is the generated response to a UserQuery.
type Answer struct {
	ID        string
	QueryID   string
	Text      string
	Decision  string
	Amount    *float64
	CreatedAt time.Time
	Clauses   []AnswerClause
}

// AnswerClause links an answer to a chunk that supported it.
type AnswerClause struct {
	ID              string
	AnswerID        string
	ChunkID         string
	ClauseText      string
	SimilarityScore float64
}

// RetrievalMatch is a single vector search hit.
type RetrievalMatch struct {
	VectorID   string
	DocumentID string
	ChunkIndex int
	Text       string
	Score      float64
}

// QueryHistoryEntry is a query with the answers recorded for it.
type QueryHistoryEntry struct {
	Query   UserQuery
	Answers []Answer
}

// TruncateRunes cuts s to at most n characters.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
