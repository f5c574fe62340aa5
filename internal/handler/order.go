package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/glansab/backoffice/internal/handler/dto"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/service"
)

// OrderService is the order logic used by OrderHandler.
type OrderService interface {
	List(ctx context.Context, orgID string, f service.OrderFilter) (*service.OrderList, error)
	Board(ctx context.Context, orgID string, f service.OrderFilter) (*service.OrderBoard, error)
	Get(ctx context.Context, orgID, id string) (*model.Order, error)
	Create(ctx context.Context, orgID string, in service.OrderInput) (*model.Order, error)
	Update(ctx context.Context, orgID, id string, in service.OrderInput) (*model.Order, error)
	Delete(ctx context.Context, orgID, id string) error
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	svc    OrderService
	logger *slog.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /api/v1/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	filter, err := parseOrderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	list, err := h.svc.List(r.Context(), session.OrganisationID, filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Board handles GET /api/v1/orders/board: the filtered list plus users,
// customers, products and teams.
func (h *OrderHandler) Board(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	filter, err := parseOrderFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}

	board, err := h.svc.Board(r.Context(), session.OrganisationID, filter)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Get handles GET /api/v1/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	o, err := h.svc.Get(r.Context(), session.OrganisationID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Create handles POST /api/v1/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	o, err := h.svc.Create(r.Context(), session.OrganisationID, req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// Update handles PUT /api/v1/orders/{id}.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req dto.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	o, err := h.svc.Update(r.Context(), session.OrganisationID, chi.URLParam(r, "id"), req.ToInput())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// Delete handles DELETE /api/v1/orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// parseOrderFilter reads q, status, customer, user, team, date_from,
// date_to and view. "all" is accepted for the select filters.
func parseOrderFilter(r *http.Request) (service.OrderFilter, error) {
	query := r.URL.Query()
	selected := func(name string) string {
		v := strings.TrimSpace(query.Get(name))
		if v == "all" {
			return ""
		}
		return v
	}

	f := service.OrderFilter{
		Query:      query.Get("q"),
		Status:     model.OrderStatus(selected("status")),
		CustomerID: selected("customer"),
		UserID:     selected("user"),
		TeamID:     selected("team"),
		View:       selected("view"),
	}

	if f.Status != "" && !f.Status.IsValid() {
		return f, fmt.Errorf("unknown order status %q", f.Status)
	}
	switch f.View {
	case "", service.ViewList, service.ViewArchive:
	default:
		return f, fmt.Errorf("view must be %q or %q", service.ViewList, service.ViewArchive)
	}

	var err error
	if f.DateFrom, err = queryDate(query.Get("date_from")); err != nil {
		return f, err
	}
	if f.DateTo, err = queryDate(query.Get("date_to")); err != nil {
		return f, err
	}
	return f, nil
}

func queryDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := dto.ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
