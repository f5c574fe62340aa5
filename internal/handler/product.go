package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/glansab/backoffice/internal/model"
)

// ProductLister loads the product library.
type ProductLister interface {
	ListProducts(ctx context.Context, orgID string) ([]*model.Product, error)
}

// ProductHandler serves the product library used when building orders.
type ProductHandler struct {
	products ProductLister
	logger   *slog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products ProductLister, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

// List handles GET /api/v1/products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}

	products, err := h.products.ListProducts(r.Context(), session.OrganisationID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}
