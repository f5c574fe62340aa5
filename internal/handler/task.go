package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glansab/backoffice/internal/handler/dto"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/service"
)

// TaskService is the sales task logic used by TaskHandler.
type TaskService interface {
	List(ctx context.Context, session *model.Session, mine bool) ([]*model.SalesTask, error)
	Create(ctx context.Context, session *model.Session, in service.TaskInput) (*model.SalesTask, error)
	Update(ctx context.Context, session *model.Session, id string, in service.TaskUpdate) (*model.SalesTask, error)
	Notes(ctx context.Context, orgID, taskID string) ([]*model.TaskNote, error)
	AddNote(ctx context.Context, session *model.Session, taskID, content string) (*model.TaskNote, error)
}

// TaskHandler handles HTTP requests for sales tasks.
type TaskHandler struct {
	svc    TaskService
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/tasks?mine=true.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	mine := r.URL.Query().Get("mine") == "true"
	tasks, err := h.svc.List(r.Context(), session, mine)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Create handles POST /api/v1/tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.TaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.svc.Create(r.Context(), session, req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// Update handles PATCH /api/v1/tasks/{id}.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.TaskUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	task, err := h.svc.Update(r.Context(), session, chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Notes handles GET /api/v1/tasks/{id}/notes.
func (h *TaskHandler) Notes(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	notes, err := h.svc.Notes(r.Context(), session.OrganisationID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// AddNote handles POST /api/v1/tasks/{id}/notes.
func (h *TaskHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	note, err := h.svc.AddNote(r.Context(), session, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}
