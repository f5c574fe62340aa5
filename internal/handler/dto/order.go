package dto

import (
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/service"
)

// LineItemRequest is one line item of an order write.
type LineItemRequest struct {
	ProductID   *string `json:"product_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        *string `json:"unit"`
}

// OrderRequest is the body of an order create or update.
type OrderRequest struct {
	Title            string            `json:"title"`
	Description      *string           `json:"description"`
	CustomerID       *string           `json:"customer_id"`
	AssignedToUserID *string           `json:"assigned_to_user_id"`
	AssignedToTeamID *string           `json:"assigned_to_team_id"`
	Status           model.OrderStatus `json:"status"`
	Value            *float64          `json:"value"`
	LineItems        []LineItemRequest `json:"order_line_items"`
	Notes            []string          `json:"notes"`
}

// ToInput converts the body to service input.
func (r *OrderRequest) ToInput() service.OrderInput {
	in := service.OrderInput{
		Title:            r.Title,
		Description:      r.Description,
		CustomerID:       r.CustomerID,
		AssignedToUserID: r.AssignedToUserID,
		AssignedToTeamID: r.AssignedToTeamID,
		Status:           r.Status,
		Value:            r.Value,
		Notes:            r.Notes,
		LineItems:        make([]service.LineItemInput, 0, len(r.LineItems)),
	}
	for _, li := range r.LineItems {
		in.LineItems = append(in.LineItems, service.LineItemInput(li))
	}
	return in
}
