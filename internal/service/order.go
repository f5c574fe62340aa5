package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
)

// Order list views.
const (
	ViewList    = "list"
	ViewArchive = "archive"
)

// OrderStore is the persistence needed by OrderService.
type OrderStore interface {
	ListOrders(ctx context.Context, orgID string) ([]*model.Order, error)
	GetOrder(ctx context.Context, orgID, id string) (*model.Order, error)
	CreateOrder(ctx context.Context, o *model.Order) error
	UpdateOrder(ctx context.Context, o *model.Order) error
	DeleteOrder(ctx context.Context, orgID, id string) error
}

// LookupStore provides the reference lists shown next to orders and teams.
type LookupStore interface {
	ListProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error)
	ListCustomers(ctx context.Context, orgID string) ([]*model.Customer, error)
	ListProducts(ctx context.Context, orgID string) ([]*model.Product, error)
	ListTeams(ctx context.Context, orgID string, filter repository.TeamFilter) ([]*model.Team, error)
}

// OrderService handles order business logic.
type OrderService struct {
	store   OrderStore
	lookups LookupStore
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(store OrderStore, lookups LookupStore, logger *slog.Logger, recorder metrics.Recorder) *OrderService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &OrderService{
		store:   store,
		lookups: lookups,
		logger:  logger.With("component", "orders"),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OrderFilter narrows an order listing. Empty fields do not filter.
type OrderFilter struct {
	Query      string
	Status     model.OrderStatus
	CustomerID string
	UserID     string
	TeamID     string
	DateFrom   *time.Time
	DateTo     *time.Time
	View       string
}

// OrderStats are value totals over orders.
type OrderStats struct {
	TotalFilteredValue    float64 `json:"totalFilteredValue"`
	TotalAllTimeValue     float64 `json:"totalAllTimeValue"`
	TotalLastMonthValue   float64 `json:"totalLastMonthValue"`
	TotalLast6MonthsValue float64 `json:"totalLast6MonthsValue"`
}

// OrderList is a filtered order listing with stats.
type OrderList struct {
	Orders []*model.Order `json:"orders"`
	Stats  OrderStats     `json:"stats"`
}

// OrderBoard is an order listing with every lookup the order views need.
type OrderBoard struct {
	OrderList
	Users     []*model.UserProfile `json:"users"`
	Customers []*model.Customer    `json:"customers"`
	Products  []*model.Product     `json:"products"`
	Teams     []*model.Team        `json:"teams"`
}

// LineItemInput is one line item of an order write.
type LineItemInput struct {
	ProductID   *string
	Name        string
	Description *string
	Quantity    float64
	UnitPrice   float64
	Unit        *string
}

// OrderInput carries the editable fields of an order. Notes are appended.
type OrderInput struct {
	Title            string
	Description      *string
	CustomerID       *string
	AssignedToUserID *string
	AssignedToTeamID *string
	Status           model.OrderStatus
	Value            *float64
	LineItems        []LineItemInput
	Notes            []string
}

// List returns filtered orders and stats.
func (s *OrderService) List(ctx context.Context, orgID string, f OrderFilter) (*OrderList, error) {
	orders, err := s.store.ListOrders(ctx, orgID)
	if err != nil {
		return nil, err
	}
	filtered := FilterOrders(orders, f)
	return &OrderList{
		Orders: filtered,
		Stats:  ComputeOrderStats(orders, filtered, s.now()),
	}, nil
}

// Board loads orders and all lookups concurrently. Any failed load fails
// the whole board.
func (s *OrderService) Board(ctx context.Context, orgID string, f OrderFilter) (*OrderBoard, error) {
	var (
		orders []*model.Order
		board  OrderBoard
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orders, err = s.store.ListOrders(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		board.Users, err = s.lookups.ListProfiles(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		board.Customers, err = s.lookups.ListCustomers(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		board.Products, err = s.lookups.ListProducts(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		board.Teams, err = s.lookups.ListTeams(gctx, orgID, repository.TeamFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	board.Orders = FilterOrders(orders, f)
	board.Stats = ComputeOrderStats(orders, board.Orders, s.now())
	return &board, nil
}

// Get returns one order with line items and notes.
func (s *OrderService) Get(ctx context.Context, orgID, id string) (*model.Order, error) {
	o, err := s.store.GetOrder(ctx, orgID, id)
	return o, mapStoreError(err)
}

// Create validates and stores a new order.
func (s *OrderService) Create(ctx context.Context, orgID string, in OrderInput) (*model.Order, error) {
	o, err := buildOrder(in)
	if err != nil {
		return nil, err
	}
	if o.Status == "" {
		o.Status = model.OrderOpen
	}
	o.ID = uuid.New().String()
	o.OrganisationID = orgID
	o.CreatedAt = s.now()

	if err := s.store.CreateOrder(ctx, o); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("order", opCreate)
	s.logger.Info("order created", "order_id", o.ID, "organisation_id", orgID, "status", o.Status)
	return o, nil
}

// Update validates and writes an order, replacing its line items.
func (s *OrderService) Update(ctx context.Context, orgID, id string, in OrderInput) (*model.Order, error) {
	o, err := buildOrder(in)
	if err != nil {
		return nil, err
	}
	if o.Status == "" {
		return nil, invalid("status", "status is required")
	}
	o.ID = id
	o.OrganisationID = orgID

	if err := s.store.UpdateOrder(ctx, o); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("order", opUpdate)
	return s.Get(ctx, orgID, id)
}

// Delete removes an order.
func (s *OrderService) Delete(ctx context.Context, orgID, id string) error {
	if err := s.store.DeleteOrder(ctx, orgID, id); err != nil {
		return mapStoreError(err)
	}
	s.metrics.IncMutation("order", opDelete)
	s.logger.Info("order deleted", "order_id", id, "organisation_id", orgID)
	return nil
}

// buildOrder validates input and maps it onto an order. Empty foreign keys
// become nil and the value is derived from the line items when present.
func buildOrder(in OrderInput) (*model.Order, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title", "title is required")
	}
	if in.Status != "" && !in.Status.IsValid() {
		return nil, invalid("status", "unknown order status %q", in.Status)
	}

	o := &model.Order{
		Title:            title,
		Description:      nullIfBlank(in.Description),
		CustomerID:       nullIfBlank(in.CustomerID),
		AssignedToUserID: nullIfBlank(in.AssignedToUserID),
		AssignedToTeamID: nullIfBlank(in.AssignedToTeamID),
		Status:           in.Status,
		Value:            in.Value,
		LineItems:        make([]*model.OrderLineItem, 0, len(in.LineItems)),
	}

	for i, li := range in.LineItems {
		name := strings.TrimSpace(li.Name)
		if name == "" {
			return nil, invalid("line_items", "line item %d: name is required", i+1)
		}
		if li.Quantity < 0 || li.UnitPrice < 0 {
			return nil, invalid("line_items", "line item %d: quantity and unit_price must not be negative", i+1)
		}
		o.LineItems = append(o.LineItems, &model.OrderLineItem{
			ProductID:   nullIfBlank(li.ProductID),
			Name:        name,
			Description: nullIfBlank(li.Description),
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			Unit:        nullIfBlank(li.Unit),
		})
	}

	if len(o.LineItems) > 0 {
		total := LineItemsTotal(o.LineItems)
		o.Value = &total
	}

	for _, n := range in.Notes {
		if content := strings.TrimSpace(n); content != "" {
			o.Notes = append(o.Notes, &model.OrderNote{Content: content})
		}
	}

	return o, nil
}

// LineItemsTotal sums quantity times unit price.
func LineItemsTotal(items []*model.OrderLineItem) float64 {
	var total float64
	for _, li := range items {
		total += li.Total()
	}
	return total
}

// FilterOrders applies f and sorts the result newest first. The archive
// view shows only archived orders and ignores the status filter; the list
// view hides archived orders.
func FilterOrders(orders []*model.Order, f OrderFilter) []*model.Order {
	q := strings.ToLower(strings.TrimSpace(f.Query))

	var dateTo time.Time
	if f.DateTo != nil {
		dateTo = endOfDay(*f.DateTo)
	}

	out := make([]*model.Order, 0, len(orders))
	for _, o := range orders {
		archived := o.Status == model.OrderArchived
		if f.View == ViewArchive {
			if !archived {
				continue
			}
		} else if archived {
			continue
		}

		if q != "" && !matchesOrderQuery(o, q) {
			continue
		}
		if f.Status != "" && f.View != ViewArchive && o.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && deref(o.CustomerID) != f.CustomerID {
			continue
		}
		if f.UserID != "" && deref(o.AssignedToUserID) != f.UserID {
			continue
		}
		if f.TeamID != "" && deref(o.AssignedToTeamID) != f.TeamID {
			continue
		}
		if f.DateFrom != nil && o.CreatedAt.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && o.CreatedAt.After(dateTo) {
			continue
		}
		out = append(out, o)
	}

	slices.SortStableFunc(out, func(a, b *model.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

func matchesOrderQuery(o *model.Order, q string) bool {
	if strings.Contains(strings.ToLower(o.Title), q) {
		return true
	}
	if o.CustomerName != nil && strings.Contains(strings.ToLower(*o.CustomerName), q) {
		return true
	}
	return strings.Contains("#"+strings.ToLower(o.ID), q)
}

// endOfDay returns the last instant of t's calendar day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// ComputeOrderStats totals the filtered orders and the non-archived orders
// of all time, the last 30 days and the last 180 days.
func ComputeOrderStats(all, filtered []*model.Order, now time.Time) OrderStats {
	var stats OrderStats
	for _, o := range filtered {
		stats.TotalFilteredValue += o.ValueOrZero()
	}

	lastMonth := now.AddDate(0, 0, -30)
	last6Months := now.AddDate(0, 0, -180)
	for _, o := range all {
		if o.Status == model.OrderArchived {
			continue
		}
		v := o.ValueOrZero()
		stats.TotalAllTimeValue += v
		if o.CreatedAt.After(lastMonth) {
			stats.TotalLastMonthValue += v
		}
		if o.CreatedAt.After(last6Months) {
			stats.TotalLast6MonthsValue += v
		}
	}
	return stats
}
