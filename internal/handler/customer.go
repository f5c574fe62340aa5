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

// CustomerService is the customer logic used by CustomerHandler.
type CustomerService interface {
	Search(ctx context.Context, orgID, q string, page, limit int) (*service.CustomerPage, error)
	Get(ctx context.Context, orgID, id string) (*model.Customer, error)
	Details(ctx context.Context, orgID, id string) (*service.CustomerDetails, error)
	Create(ctx context.Context, orgID string, in service.CustomerInput) (*model.Customer, error)
	Update(ctx context.Context, orgID, id string, in service.CustomerInput) (*model.Customer, error)
	Delete(ctx context.Context, orgID, id string) error
}

// CustomerHandler handles HTTP requests for customers.
type CustomerHandler struct {
	svc    CustomerService
	logger *slog.Logger
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(svc CustomerService, logger *slog.Logger) *CustomerHandler {
	return &CustomerHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/customers?q=&page=&limit=.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	page, err := h.svc.Search(r.Context(), session.OrganisationID,
		r.URL.Query().Get("q"), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Get handles GET /api/v1/customers/{id}.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	c, err := h.svc.Get(r.Context(), session.OrganisationID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Interactions handles GET /api/v1/customers/{id}/interactions.
func (h *CustomerHandler) Interactions(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	details, err := h.svc.Details(r.Context(), session.OrganisationID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// Create handles POST /api/v1/customers.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	c, err := h.svc.Create(r.Context(), session.OrganisationID, req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/v1/customers/{id}.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.CustomerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	c, err := h.svc.Update(r.Context(), session.OrganisationID, chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/v1/customers/{id}.
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
