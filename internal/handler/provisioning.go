package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/glansab/backoffice/internal/auth"
	"github.com/glansab/backoffice/internal/handler/dto"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/provisioning"
)

const provisionedMessage = "User created successfully"

// Provisioner creates users.
type Provisioner interface {
	Provision(ctx context.Context, req provisioning.Request) (*model.UserProfile, error)
}

// ProvisioningHandler serves the user creation endpoints. Responses keep
// the bare {"message"} / {"error"} shape existing clients parse.
type ProvisioningHandler struct {
	svc    Provisioner
	logger *slog.Logger
}

// NewProvisioningHandler creates a new ProvisioningHandler.
func NewProvisioningHandler(svc Provisioner, logger *slog.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{
		svc:    svc,
		logger: logger,
	}
}

// Create handles POST /functions/v1/create-user and POST /api/v1/users.
// Every failure is a 400 with the error message, except an organisation
// outside the caller's, which is a 403.
func (h *ProvisioningHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writePlainError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if session := auth.SessionFromContext(r.Context()); session != nil {
		req.OrganisationID = strings.TrimSpace(req.OrganisationID)
		if req.OrganisationID == "" {
			req.OrganisationID = session.OrganisationID
		}
		if req.OrganisationID != session.OrganisationID {
			h.logger.Warn("provisioning rejected: foreign organisation",
				"caller", session.UserID,
				"organisation_id", req.OrganisationID,
			)
			writePlainError(w, http.StatusForbidden, "organisation_id does not match your organisation")
			return
		}
	}

	if _, err := h.svc.Provision(r.Context(), req.ToRequest()); err != nil {
		writePlainError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: provisionedMessage})
}

// Options answers preflight requests that reach the router without an
// Origin header.
func (h *ProvisioningHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writePlainError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.PlainError{Error: message})
}
