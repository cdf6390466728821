package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docqa/internal/api"
	"github.com/cloo-solutions/docqa/internal/service"
)

type QueryService interface {
	ProcessDocumentQueries(ctx context.Context, url string, questions []string) (*service.BatchResult, error)
}

// RunHandler serves the batch question endpoint.
type RunHandler struct {
	svc QueryService
}

func NewRunHandler(svc QueryService) *RunHandler {
	return &RunHandler{svc: svc}
}

type RunRequest struct {
	Documents string   `json:"documents"`
	Questions []string `json:"questions"`
}

type RunResponse struct {
	Answers []string `json:"answers"`
	// RetrievalAvailable is false when any answer was produced without vector retrieval.
	RetrievalAvailable bool `json:"retrieval_available"`
}

func (h *RunHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Documents) == "" {
		api.Error(w, http.StatusBadRequest, "documents is required")
		return
	}
	if len(req.Questions) == 0 {
		api.Error(w, http.StatusBadRequest, "questions is required")
		return
	}

	result, err := h.svc.ProcessDocumentQueries(r.Context(), req.Documents, req.Questions)
	if err != nil {
		log.Printf("ERROR: processing %d questions for %s: %v", len(req.Questions), req.Documents, err)
		api.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	api.JSON(w, http.StatusOK, RunResponse{
		Answers:            result.Answers,
		RetrievalAvailable: result.RetrievalAvailable,
	})
}
