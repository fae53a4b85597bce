// Package api implements the Inksync REST surface using chi: record
// inspection and a manual sync trigger.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inksync/internal/apperr"
	"github.com/starford/inksync/internal/metastore"
	"github.com/starford/inksync/internal/syncer"
)

// Handler serves the record and sync endpoints.
type Handler struct {
	store    *metastore.Store
	session  *syncer.Session
	inboxDir string
}

// NewHandler creates a Handler over the metadata store and sync session.
func NewHandler(store *metastore.Store, session *syncer.Session, inboxDir string) *Handler {
	return &Handler{store: store, session: session, inboxDir: inboxDir}
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(h *Handler, authEnabled bool, token string) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/records", h.ListRecords)
	r.Get("/records/{noteID}", h.GetRecord)
	r.Post("/sync", h.TriggerSync)

	return r
}

// ListRecords returns every tracked note record.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.All()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs, "total": len(recs)})
}

// GetRecord returns the record with the given stable note identifier.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteID")
	rec, err := h.store.FindByNoteID(noteID)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("record not found: "+noteID))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// TriggerSync runs a sync batch over the inbox and reports the outcome.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	batch, err := h.session.SyncDir(r.Context(), h.inboxDir)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, batchBody(batch))
}

type batchResponse struct {
	Total     int                 `json:"total"`
	Succeeded int                 `json:"succeeded"`
	Skipped   int                 `json:"skipped"`
	Failed    int                 `json:"failed"`
	Notes     map[string]noteBody `json:"notes"`
}

type noteBody struct {
	Success      bool     `json:"success"`
	Skipped      bool     `json:"skipped,omitempty"`
	CreatedPaths []string `json:"created_paths,omitempty"`
	Errors       []string `json:"errors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

func batchBody(batch syncer.BatchResult) batchResponse {
	out := batchResponse{
		Total:     batch.Total,
		Succeeded: batch.Succeeded,
		Skipped:   batch.Skipped,
		Failed:    batch.Failed,
		Notes:     make(map[string]noteBody, len(batch.Results)),
	}
	for name, res := range batch.Results {
		nb := noteBody{
			Success:      res.Success,
			Skipped:      res.Skipped,
			CreatedPaths: res.CreatedPaths,
			Warnings:     res.Warnings,
		}
		for _, e := range res.Errors {
			nb.Errors = append(nb.Errors, e.Error())
		}
		out.Notes[name] = nb
	}
	return out
}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
