package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/docqa/internal/api"
)

const healthTimeout = 3 * time.Second

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	version string
}

func NewHealthHandler(db Pinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

// Health reports database connectivity. It always answers 200 so the body carries the detail.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		api.JSON(w, http.StatusOK, HealthResponse{
			Status:   "unhealthy",
			Version:  h.version,
			Database: "disconnected",
			Error:    err.Error(),
		})
		return
	}

	api.JSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Database: "connected",
	})
}

// Root is a liveness banner.
func Root(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, map[string]string{"message": "LLM Query Retrieval System is running"})
}
