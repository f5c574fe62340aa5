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

// UserService is the profile logic used by UserHandler.
type UserService interface {
	List(ctx context.Context, orgID string) ([]*model.UserProfile, error)
	Unassigned(ctx context.Context, orgID string) ([]*model.UserProfile, error)
	Get(ctx context.Context, orgID, id string) (*model.UserProfile, error)
	Update(ctx context.Context, orgID, id string, in service.ProfileUpdate) (*model.UserProfile, error)
}

// UserHandler handles HTTP requests for user profiles. User creation is
// served by ProvisioningHandler.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	users, err := h.svc.List(r.Context(), session.OrganisationID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Unassigned handles GET /api/v1/users/unassigned.
func (h *UserHandler) Unassigned(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	users, err := h.svc.Unassigned(r.Context(), session.OrganisationID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get handles GET /api/v1/users/{id}.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Get(r.Context(), session.OrganisationID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Update handles PUT /api/v1/users/{id}.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.ProfileUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	user, err := h.svc.Update(r.Context(), session.OrganisationID, chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("user_updated", "user_id", user.ID, "updated_by", session.UserID)
	writeJSON(w, http.StatusOK, user)
}
