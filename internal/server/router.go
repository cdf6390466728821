package server

import (
	"net/http"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

type RouterConfig struct {
	BearerToken     string
	RunHandler      *handlers.RunHandler
	HealthHandler   *handlers.HealthHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/", handlers.Root)
	r.Get("/health", cfg.HealthHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.BearerToken))

		r.Post("/hackrx/run", cfg.RunHandler.Run)

		r.Route("/documents/{id}", func(r chi.Router) {
			r.Get("/history", cfg.DocumentHandler.History)
			r.Get("/chunks", cfg.DocumentHandler.Chunks)
		})
	})

	return r
}
