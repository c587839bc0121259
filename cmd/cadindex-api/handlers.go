package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/drafthaus/cadindex/internal/app"
	"github.com/drafthaus/cadindex/internal/domain"
	"github.com/drafthaus/cadindex/internal/observability"
)

type handlers struct {
	app    *app.App
	logger *observability.Logger
}

func newHandlers(application *app.App) *handlers {
	return &handlers{app: application, logger: application.Logger.WithComponent("api")}
}

type errorDTO struct {
	Error string `json:"error"`
}

type recordDTO struct {
	ContentID   string         `json:"contentId"`
	Filename    string         `json:"filename"`
	Path        string         `json:"path"`
	FileKind    string         `json:"fileKind"`
	Description string         `json:"description"`
	Specs       map[string]any `json:"specs,omitempty"`
	EntityCount int            `json:"entityCount"`
	LayerCount  int            `json:"layerCount"`
	BlockCount  int            `json:"blockCount"`
	Score       *float32       `json:"score,omitempty"`
}

func toRecordDTO(rec domain.CanonicalRecord, score *float32) recordDTO {
	return recordDTO{
		ContentID:   rec.ContentID,
		Filename:    rec.Filename,
		Path:        rec.AbsolutePath,
		FileKind:    string(rec.FileKind),
		Description: rec.Description,
		Specs:       rec.Specs,
		EntityCount: rec.EntityCount,
		LayerCount:  rec.LayerCount,
		BlockCount:  rec.BlockCount,
		Score:       score,
	}
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("Response encoding failed")
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorDTO{Error: msg})
}

// getStats handles GET /stats.
func (h *handlers) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Store.Stats(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byKind := make(map[string]int, len(stats.ByKind))
	for kind, n := range stats.ByKind {
		byKind[string(kind)] = n
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"totalRecords":   stats.TotalRecords,
		"indexedVectors": stats.Indexed,
		"byKind":         byKind,
	})
}

type ingestRequestDTO struct {
	Paths []string `json:"paths"`
}

type ingestResultDTO struct {
	Path      string `json:"path"`
	ContentID string `json:"contentId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// postIngest handles POST /ingest. Files must be reachable on the
// server's filesystem; uploads are out of scope.
func (h *handlers) postIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Paths) == 0 {
		h.writeError(w, http.StatusBadRequest, "paths is required")
		return
	}

	results := h.app.Orchestrator.IngestBatch(r.Context(), req.Paths, nil)
	dtos := make([]ingestResultDTO, len(results))
	for i, res := range results {
		dtos[i] = ingestResultDTO{
			Path:      res.Path,
			ContentID: res.ContentID,
			Status:    string(res.Status),
			Reason:    res.Reason,
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": dtos})
}

// getSearch handles GET /search?q=...&k=...&kind=....
func (h *handlers) getSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	k := 5
	if v := r.URL.Query().Get("k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		k = parsed
	}
	kind := domain.FileKind(r.URL.Query().Get("kind"))
	if kind != "" && kind != domain.KindDWG && kind != domain.KindPDF {
		h.writeError(w, http.StatusBadRequest, "kind must be dwg or pdf")
		return
	}

	results, err := h.app.Search.Query(r.Context(), query, k, kind)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dtos := make([]recordDTO, len(results))
	for i, res := range results {
		score := res.Score
		dtos[i] = toRecordDTO(res.Record, &score)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": dtos})
}

type askRequestDTO struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

// postAsk handles POST /ask.
func (h *handlers) postAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Question == "" {
		h.writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.K < 1 {
		req.K = 3
	}

	answer, err := h.app.Search.Ask(r.Context(), req.Question, req.K)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sources := make([]recordDTO, len(answer.Sources))
	for i, src := range answer.Sources {
		score := src.Score
		sources[i] = toRecordDTO(src.Record, &score)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"answer": answer.Text, "sources": sources})
}

// listFiles handles GET /files.
func (h *handlers) listFiles(w http.ResponseWriter, r *http.Request) {
	records, err := h.app.Store.List(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	dtos := make([]recordDTO, len(records))
	for i, rec := range records {
		dtos[i] = toRecordDTO(rec, nil)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"files": dtos})
}

// getFile handles GET /files/{id}.
func (h *handlers) getFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.app.Store.Get(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, toRecordDTO(*rec, nil))
}

// deleteFile handles DELETE /files/{id}.
func (h *handlers) deleteFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.app.Store.Get(r.Context(), id); errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "record not found")
		return
	} else if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.app.Store.Delete(r.Context(), id); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
