package model

import (
	"slices"
	"time"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// OrderStatus constants, in workflow order.
const (
	OrderOpen       OrderStatus = "öppen_order"
	OrderBooked     OrderStatus = "bokad_bekräftad"
	OrderInProgress OrderStatus = "pågående"
	OrderCompleted  OrderStatus = "slutförd"
	OrderInvoiced   OrderStatus = "fakturerad"
	OrderArchived   OrderStatus = "arkiverad"
)

// OrderStatuses lists all statuses in workflow order.
var OrderStatuses = []OrderStatus{
	OrderOpen, OrderBooked, OrderInProgress, OrderCompleted, OrderInvoiced, OrderArchived,
}

// IsValid reports whether the status is known.
func (s OrderStatus) IsValid() bool {
	return slices.Contains(OrderStatuses, s)
}

// Order is a confirmed piece of work for a customer.
type Order struct {
	ID               string           `json:"id"`
	OrganisationID   string           `json:"organisation_id"`
	Title            string           `json:"title"`
	Description      *string          `json:"description"`
	CustomerID       *string          `json:"customer_id"`
	CustomerName     *string          `json:"customer_name,omitempty"`
	AssignedToUserID *string          `json:"assigned_to_user_id"`
	AssignedToTeamID *string          `json:"assigned_to_team_id"`
	Status           OrderStatus      `json:"status"`
	Value            *float64         `json:"value"`
	LineItems        []*OrderLineItem `json:"order_line_items"`
	Notes            []*OrderNote     `json:"notes"`
	CreatedAt        time.Time        `json:"created_at"`
}

// ValueOrZero returns the order value, treating NULL as zero.
func (o *Order) ValueOrZero() float64 {
	if o.Value == nil {
		return 0
	}
	return *o.Value
}

// OrderLineItem is one product row on an order.
type OrderLineItem struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductID   *string `json:"product_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Unit        *string `json:"unit"`
}

// Total returns quantity times unit price.
func (li *OrderLineItem) Total() float64 {
	return li.Quantity * li.UnitPrice
}

// OrderNote is a free text note on an order.
type OrderNote struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is an entry in the organisation's product library.
type Product struct {
	ID             string    `json:"id"`
	OrganisationID string    `json:"organisation_id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	BasePrice      float64   `json:"base_price"`
	Unit           string    `json:"unit"`
	CreatedAt      time.Time `json:"created_at"`
}
