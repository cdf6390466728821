package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/domain"
	"github.com/cloo-solutions/docqa/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	History(ctx context.Context, documentID, cursor string, limit int) (*service.HistoryPage, error)
	Chunks(ctx context.Context, documentID string) ([]*domain.DocumentChunk, error)
}

type DocumentHandler struct {
	svc DocumentService
	loc *time.Location
}

// NewDocumentHandler formats timestamps in loc; nil means UTC.
func NewDocumentHandler(svc DocumentService, loc *time.Location) *DocumentHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &DocumentHandler{svc: svc, loc: loc}
}

type ClauseResponse struct {
	ChunkID         string  `json:"chunk_id"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
}

type AnswerResponse struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Decision  string           `json:"decision"`
	Amount    *float64         `json:"amount,omitempty"`
	CreatedAt string           `json:"created_at"`
	Clauses   []ClauseResponse `json:"clauses"`
}

type HistoryItemResponse struct {
	QueryID   string           `json:"query_id"`
	Question  string           `json:"question"`
	CreatedAt string           `json:"created_at"`
	Answers   []AnswerResponse `json:"answers"`
}

type HistoryResponse struct {
	Items   []HistoryItemResponse `json:"items"`
	Cursor  string                `json:"cursor,omitempty"`
	HasMore bool                  `json:"has_more"`
}

type ChunkResponse struct {
	ID         string `json:"id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	VectorID   string `json:"vector_id"`
}

func (h *DocumentHandler) History(w http.ResponseWriter, r *http.Request) {
	documentID := chi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	page, err := h.svc.History(r.Context(), documentID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := HistoryResponse{
		Items:   make([]HistoryItemResponse, 0, len(page.Items)),
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}
	for _, entry := range page.Items {
		resp.Items = append(resp.Items, h.historyItem(entry))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *DocumentHandler) historyItem(entry domain.QueryHistoryEntry) HistoryItemResponse {
	item := HistoryItemResponse{
		QueryID:   entry.Query.ID,
		Question:  entry.Query.Text,
		CreatedAt: entry.Query.CreatedAt.In(h.loc).Format(time.RFC3339),
		Answers:   make([]AnswerResponse, 0, len(entry.Answers)),
	}
	for _, a := range entry.Answers {
		ar := AnswerResponse{
			ID:        a.ID,
			Text:      a.Text,
			Decision:  a.Decision,
			Amount:    a.Amount,
			CreatedAt: a.CreatedAt.In(h.loc).Format(time.RFC3339),
			Clauses:   make([]ClauseResponse, 0, len(a.Clauses)),
		}
		for _, c := range a.Clauses {
			ar.Clauses = append(ar.Clauses, ClauseResponse{
				ChunkID:         c.ChunkID,
				Text:            c.ClauseText,
				SimilarityScore: c.SimilarityScore,
			})
		}
		item.Answers = append(item.Answers, ar)
	}
	return item
}

func (h *DocumentHandler) Chunks(w http.ResponseWriter, r *http.Request) {
	chunks, err := h.svc.Chunks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		resp = append(resp, ChunkResponse{
			ID:         c.ID,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
			VectorID:   c.VectorID,
		})
	}
	api.Success(w, http.StatusOK, resp)
}
