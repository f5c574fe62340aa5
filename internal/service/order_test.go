package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glansab/backoffice/internal/model"
)

func floatPtr(f float64) *float64 { return &f }

var orderNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func sampleOrders() []*model.Order {
	return []*model.Order{
		{ID: "o1", Title: "Fönsterputs villa", CustomerName: strPtr("Andersson"), CustomerID: strPtr("c1"),
			Status: model.OrderOpen, Value: floatPtr(1000), CreatedAt: orderNow.AddDate(0, 0, -2)},
		{ID: "o2", Title: "Taktvätt", CustomerName: strPtr("Berg AB"), CustomerID: strPtr("c2"),
			AssignedToTeamID: strPtr("t1"), Status: model.OrderBooked, Value: floatPtr(5000), CreatedAt: orderNow.AddDate(0, 0, -60)},
		{ID: "o3", Title: "Fasadtvätt", AssignedToUserID: strPtr("u1"),
			Status: model.OrderCompleted, CreatedAt: orderNow.AddDate(0, 0, -200)},
		{ID: "o4", Title: "Gammal order", Status: model.OrderArchived, Value: floatPtr(9000),
			CreatedAt: orderNow.AddDate(0, 0, -1)},
	}
}

func orderIDs(orders []*model.Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}

func TestFilterOrders(t *testing.T) {
	day := func(offset int) *time.Time {
		d := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
		return &d
	}

	tests := []struct {
		name   string
		filter OrderFilter
		want   []string
	}{
		{"list view hides archived, newest first", OrderFilter{}, []string{"o1", "o2", "o3"}},
		{"archive view shows only archived", OrderFilter{View: ViewArchive}, []string{"o4"}},
		{"archive view ignores status", OrderFilter{View: ViewArchive, Status: model.OrderOpen}, []string{"o4"}},
		{"status", OrderFilter{Status: model.OrderBooked}, []string{"o2"}},
		{"search title", OrderFilter{Query: "FÖNSTER"}, []string{"o1"}},
		{"search customer name", OrderFilter{Query: "berg"}, []string{"o2"}},
		{"search id", OrderFilter{Query: "#o3"}, []string{"o3"}},
		{"customer", OrderFilter{CustomerID: "c1"}, []string{"o1"}},
		{"user", OrderFilter{UserID: "u1"}, []string{"o3"}},
		{"team", OrderFilter{TeamID: "t1"}, []string{"o2"}},
		{"date to includes whole day", OrderFilter{DateTo: day(0)}, []string{"o1", "o2", "o3"}},
		{"date to excludes later days", OrderFilter{DateTo: day(-1)}, []string{"o2", "o3"}},
		{"date from", OrderFilter{DateFrom: day(-100)}, []string{"o1", "o2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterOrders(sampleOrders(), tt.filter)
			assert.Equal(t, tt.want, orderIDs(got))
		})
	}
}

func TestComputeOrderStats(t *testing.T) {
	all := sampleOrders()
	filtered := FilterOrders(all, OrderFilter{Status: model.OrderOpen})

	stats := ComputeOrderStats(all, filtered, orderNow)

	assert.Equal(t, 1000.0, stats.TotalFilteredValue)
	assert.Equal(t, 6000.0, stats.TotalAllTimeValue, "archived orders are excluded")
	assert.Equal(t, 1000.0, stats.TotalLastMonthValue)
	assert.Equal(t, 6000.0, stats.TotalLast6MonthsValue)
}

func TestOrderService_CreateDerivesValueFromLineItems(t *testing.T) {
	store := &fakeBoardStore{}
	svc := NewOrderService(store, store, discardLogger(), nil)

	o, err := svc.Create(context.Background(), "org-1", OrderInput{
		Title:            "Fönsterputs",
		Value:            floatPtr(1),
		AssignedToUserID: strPtr(""),
		AssignedToTeamID: strPtr(""),
		LineItems: []LineItemInput{
			{Name: "Fönster", Quantity: 12, UnitPrice: 40},
			{Name: "Stege", Quantity: 1, UnitPrice: 150, ProductID: strPtr("")},
		},
		Notes: []string{"  ", "Portkod 1234"},
	})
	require.NoError(t, err)

	require.NotNil(t, o.Value)
	assert.Equal(t, 630.0, *o.Value)
	assert.Nil(t, o.AssignedToUserID)
	assert.Nil(t, o.AssignedToTeamID)
	assert.Nil(t, o.LineItems[1].ProductID)
	assert.Equal(t, model.OrderOpen, o.Status)
	require.Len(t, o.Notes, 1)
	assert.Equal(t, "Portkod 1234", o.Notes[0].Content)
}

func TestOrderService_CreateWithoutLineItemsKeepsValue(t *testing.T) {
	store := &fakeBoardStore{}
	svc := NewOrderService(store, store, discardLogger(), nil)

	o, err := svc.Create(context.Background(), "org-1", OrderInput{Title: "Offertjobb", Value: floatPtr(4200)})
	require.NoError(t, err)
	assert.Equal(t, 4200.0, *o.Value)
}

func TestBuildOrder_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   OrderInput
	}{
		{"missing title", OrderInput{Title: " "}},
		{"unknown status", OrderInput{Title: "A", Status: "klar"}},
		{"blank line item", OrderInput{Title: "A", LineItems: []LineItemInput{{Name: ""}}}},
		{"negative quantity", OrderInput{Title: "A", LineItems: []LineItemInput{{Name: "x", Quantity: -1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildOrder(tt.in)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestOrderService_Board(t *testing.T) {
	store := &fakeBoardStore{
		orders:   sampleOrders(),
		profiles: []*model.UserProfile{{ID: "u1"}},
		teams:    []*model.Team{{ID: "t1"}},
	}
	svc := NewOrderService(store, store, discardLogger(), nil)
	svc.now = func() time.Time { return orderNow }

	board, err := svc.Board(context.Background(), "org-1", OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, board.Orders, 3)
	assert.Len(t, board.Users, 1)
	assert.Len(t, board.Teams, 1)
	assert.Equal(t, 6000.0, board.Stats.TotalFilteredValue)
}

func TestOrderService_BoardFailsWhenAnyLoadFails(t *testing.T) {
	boom := errors.New("products unavailable")
	store := &fakeBoardStore{orders: sampleOrders(), failOn: "products", err: boom}
	svc := NewOrderService(store, store, discardLogger(), nil)

	_, err := svc.Board(context.Background(), "org-1", OrderFilter{})
	assert.ErrorIs(t, err, boom)
}

func TestOrderService_UpdateRequiresStatus(t *testing.T) {
	store := &fakeBoardStore{orders: sampleOrders()}
	svc := NewOrderService(store, store, discardLogger(), nil)

	_, err := svc.Update(context.Background(), "org-1", "o1", OrderInput{Title: "Ny titel"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)

	_, err = svc.Update(context.Background(), "org-1", "missing", OrderInput{Title: "x", Status: model.OrderOpen})
	assert.ErrorIs(t, err, ErrNotFound)
}
