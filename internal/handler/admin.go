package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glansab/backoffice/internal/auth"
	"github.com/glansab/backoffice/internal/orphan"
)

// OrphanInspector reads and requeues orphaned identities.
type OrphanInspector interface {
	Stats(ctx context.Context) (orphan.QueueStats, error)
	DeadLetters(ctx context.Context, limit int) ([]orphan.DeadLetter, error)
	Requeue(ctx context.Context, id string) (string, error)
}

// AdminHandler provides admin-only endpoints for operations.
type AdminHandler struct {
	orphans OrphanInspector
	logger  *slog.Logger
	started time.Time
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(orphans OrphanInspector, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		orphans: orphans,
		logger:  logger,
		started: time.Now(),
	}
}

// StatsResponse represents operational statistics.
type StatsResponse struct {
	Timestamp time.Time          `json:"timestamp"`
	Service   string             `json:"service"`
	Version   string             `json:"version"`
	Uptime    string             `json:"uptime"`
	Orphans   *orphan.QueueStats `json:"orphan_identities,omitempty"`
}

// DeadLetterListResponse lists dead-lettered orphan identities.
type DeadLetterListResponse struct {
	DeadLetters []orphan.DeadLetter `json:"dead_letters"`
	Total       int                 `json:"total"`
}

// RequeueResponse reports where a requeued identity went.
type RequeueResponse struct {
	StreamID string `json:"stream_id"`
}

// Stats handles GET /api/v1/admin/stats.
// The orphan queue sizes are omitted when Redis cannot be read.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	response := StatsResponse{
		Timestamp: time.Now().UTC(),
		Service:   "backoffice",
		Version:   Version,
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}

	if h.orphans != nil {
		stats, err := h.orphans.Stats(r.Context())
		if err != nil {
			h.logger.Warn("orphan stats unavailable", "error", err)
		} else {
			response.Orphans = &stats
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// DeadLetters handles GET /api/v1/admin/orphans?limit=.
func (h *AdminHandler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	dls, err := h.orphans.DeadLetters(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DeadLetterListResponse{DeadLetters: dls, Total: len(dls)})
}

// Requeue handles POST /api/v1/admin/orphans/{id}/requeue.
func (h *AdminHandler) Requeue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	streamID, err := h.orphans.Requeue(r.Context(), id)
	switch {
	case errors.Is(err, orphan.ErrDeadLetterNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "dead letter not found")
		return
	case errors.Is(err, orphan.ErrInvalidRecord):
		writeError(w, http.StatusUnprocessableEntity, "INVALID_RECORD", err.Error())
		return
	case err != nil:
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("orphan_requeued",
		"dead_letter_id", id,
		"stream_id", streamID,
		"requested_by", auth.UserIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusAccepted, RequeueResponse{StreamID: streamID})
}
