package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glansab/backoffice/internal/handler/dto"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
	"github.com/glansab/backoffice/internal/service"
)

// TeamService is the team logic used by TeamHandler.
type TeamService interface {
	List(ctx context.Context, orgID string, filter repository.TeamFilter) ([]*model.Team, error)
	Board(ctx context.Context, orgID string, filter repository.TeamFilter) (*service.TeamBoard, error)
	Stats(ctx context.Context, orgID string) (model.TeamStats, error)
	Get(ctx context.Context, orgID, id string) (*model.Team, error)
	Create(ctx context.Context, orgID string, in service.TeamInput) (*model.Team, error)
	Update(ctx context.Context, orgID, id string, in service.TeamInput) (*model.Team, error)
	Delete(ctx context.Context, orgID, id string) error
	AddMember(ctx context.Context, orgID, teamID string, in service.MemberInput) (*model.TeamMember, error)
	RemoveMember(ctx context.Context, orgID, memberID string) error
}

// TeamHandler handles HTTP requests for teams and team members.
type TeamHandler struct {
	svc    TeamService
	logger *slog.Logger
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(svc TeamService, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{
		svc:    svc,
		logger: logger,
	}
}

func teamFilter(r *http.Request) repository.TeamFilter {
	specialty := r.URL.Query().Get("specialty")
	if specialty == "all" {
		specialty = ""
	}
	return repository.TeamFilter{
		Search:    r.URL.Query().Get("search"),
		Specialty: model.TeamSpecialty(specialty),
	}
}

// List handles GET /api/v1/teams?search=&specialty=.
func (h *TeamHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	teams, err := h.svc.List(r.Context(), session.OrganisationID, teamFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// Board handles GET /api/v1/teams/board.
func (h *TeamHandler) Board(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	board, err := h.svc.Board(r.Context(), session.OrganisationID, teamFilter(r))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Stats handles GET /api/v1/teams/stats.
func (h *TeamHandler) Stats(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.Stats(r.Context(), session.OrganisationID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Get handles GET /api/v1/teams/{id}.
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	team, err := h.svc.Get(r.Context(), session.OrganisationID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Create handles POST /api/v1/teams.
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.TeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	team, err := h.svc.Create(r.Context(), session.OrganisationID, req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

// Update handles PUT /api/v1/teams/{id}.
func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.TeamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	team, err := h.svc.Update(r.Context(), session.OrganisationID, chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Delete handles DELETE /api/v1/teams/{id}.
func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), session.OrganisationID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddMember handles POST /api/v1/teams/{id}/members.
func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.MemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	m, err := h.svc.AddMember(r.Context(), session.OrganisationID, chi.URLParam(r, "id"), service.MemberInput(req))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// RemoveMember handles DELETE /api/v1/team-members/{memberID}.
func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveMember(r.Context(), session.OrganisationID, chi.URLParam(r, "memberID")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
