package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/drafthaus/cadindex/internal/app"
)

// NewRouter creates the API router.
func NewRouter(application *app.App) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(application.Cfg.Server.RequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"cadindex"}`))
	})

	h := newHandlers(application)
	r.Get("/stats", h.getStats)
	r.Post("/ingest", h.postIngest)
	r.Get("/search", h.getSearch)
	r.Post("/ask", h.postAsk)
	r.Get("/files", h.listFiles)
	r.Get("/files/{id}", h.getFile)
	r.Delete("/files/{id}", h.deleteFile)

	return r
}
