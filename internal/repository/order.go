package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/glansab/backoffice/internal/model"
)

const orderSelect = `
		SELECT o.id, o.organisation_id, o.title, o.description, o.customer_id, c.name, o.assigned_to_user_id,
			o.assigned_to_team_id, o.status, o.value, o.created_at
		FROM orders o
		LEFT JOIN customers c ON c.id = o.customer_id AND c.organisation_id = o.organisation_id
`

// ListOrders returns every order of the organisation with its line items,
// newest first. Filtering happens in the service layer.
func (r *Repository) ListOrders(ctx context.Context, orgID string) ([]*model.Order, error) {
	rows, err := r.pool.Query(ctx, orderSelect+` WHERE o.organisation_id = $1 ORDER BY o.created_at DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]string, len(orders))
	byID := make(map[string]*model.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.LineItems = make([]*model.OrderLineItem, 0)
	}

	items, err := r.lineItems(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, li := range items {
		if o, ok := byID[li.OrderID]; ok {
			o.LineItems = append(o.LineItems, li)
		}
	}

	return orders, nil
}

// GetOrder retrieves an order with line items and notes.
func (r *Repository) GetOrder(ctx context.Context, orgID, id string) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE o.organisation_id = $1 AND o.id = $2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if o.LineItems, err = r.lineItems(ctx, r.pool, []string{o.ID}); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, content, created_at
		FROM order_notes WHERE order_id = $1 ORDER BY created_at`, o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order notes: %w", err)
	}
	o.Notes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.OrderNote, error) {
		var n model.OrderNote
		err := row.Scan(&n.ID, &n.OrderID, &n.Content, &n.CreatedAt)
		return &n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan order notes: %w", err)
	}

	return o, nil
}

// CreateOrder inserts an order with its line items and notes in one transaction.
func (r *Repository) CreateOrder(ctx context.Context, o *model.Order) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := checkOrderReferences(ctx, tx, o); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, organisation_id, title, description, customer_id, assigned_to_user_id,
				assigned_to_team_id, status, value, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			o.ID,
			o.OrganisationID,
			o.Title,
			o.Description,
			o.CustomerID,
			o.AssignedToUserID,
			o.AssignedToTeamID,
			o.Status,
			o.Value,
			o.CreatedAt,
		)
		if err != nil {
			return mapWriteError(err, "failed to create order")
		}

		if err := insertLineItems(ctx, tx, o); err != nil {
			return err
		}
		return insertOrderNotes(ctx, tx, o.ID, o.Notes)
	})
}

// UpdateOrder writes the order fields, replaces its line items and appends
// any new notes in one transaction.
func (r *Repository) UpdateOrder(ctx context.Context, o *model.Order) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := checkOrderReferences(ctx, tx, o); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			UPDATE orders SET
				title = $3,
				description = $4,
				customer_id = $5,
				assigned_to_user_id = $6,
				assigned_to_team_id = $7,
				status = $8,
				value = $9
			WHERE organisation_id = $1 AND id = $2
			RETURNING created_at`,
			o.OrganisationID,
			o.ID,
			o.Title,
			o.Description,
			o.CustomerID,
			o.AssignedToUserID,
			o.AssignedToTeamID,
			o.Status,
			o.Value,
		).Scan(&o.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return mapWriteError(err, "failed to update order")
		}

		if _, err := tx.Exec(ctx, `DELETE FROM order_line_items WHERE order_id = $1`, o.ID); err != nil {
			return fmt.Errorf("failed to clear line items: %w", err)
		}
		if err := insertLineItems(ctx, tx, o); err != nil {
			return err
		}
		return insertOrderNotes(ctx, tx, o.ID, o.Notes)
	})
}

// DeleteOrder removes an order; line items and notes cascade.
func (r *Repository) DeleteOrder(ctx context.Context, orgID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE organisation_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListProducts returns the organisation's product library ordered by name.
func (r *Repository) ListProducts(ctx context.Context, orgID string) ([]*model.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organisation_id, name, description, base_price, unit, created_at
		FROM product_library WHERE organisation_id = $1 ORDER BY name`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Product, error) {
		var p model.Product
		err := row.Scan(&p.ID, &p.OrganisationID, &p.Name, &p.Description, &p.BasePrice, &p.Unit, &p.CreatedAt)
		return &p, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return products, nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) lineItems(ctx context.Context, q querier, orderIDs []string) ([]*model.OrderLineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, name, description, quantity, unit_price, unit
		FROM order_line_items WHERE order_id = ANY($1) ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load line items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.OrderLineItem, error) {
		var li model.OrderLineItem
		err := row.Scan(&li.ID, &li.OrderID, &li.ProductID, &li.Name, &li.Description, &li.Quantity, &li.UnitPrice, &li.Unit)
		return &li, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan line items: %w", err)
	}
	return items, nil
}

// checkOrderReferences verifies that the customer, assignees and products of o
// belong to its organisation.
func checkOrderReferences(ctx context.Context, tx pgx.Tx, o *model.Order) error {
	refs := []orgRef{
		ref(refCustomers, o.CustomerID),
		ref(refProfiles, o.AssignedToUserID),
		ref(refTeams, o.AssignedToTeamID),
	}
	for _, li := range o.LineItems {
		refs = append(refs, ref(refProducts, li.ProductID))
	}
	return checkReferences(ctx, tx, o.OrganisationID, refs...)
}

func insertLineItems(ctx context.Context, tx pgx.Tx, o *model.Order) error {
	if len(o.LineItems) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, li := range o.LineItems {
		if li.ID == "" {
			li.ID = uuid.New().String()
		}
		li.OrderID = o.ID
		batch.Queue(`
			INSERT INTO order_line_items (id, order_id, product_id, name, description, quantity, unit_price, unit, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			li.ID, li.OrderID, li.ProductID, li.Name, li.Description, li.Quantity, li.UnitPrice, li.Unit, i,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapWriteError(err, "failed to insert line items")
	}
	return nil
}

func insertOrderNotes(ctx context.Context, tx pgx.Tx, orderID string, notes []*model.OrderNote) error {
	for _, n := range notes {
		if n.ID != "" {
			continue
		}
		n.ID = uuid.New().String()
		n.OrderID = orderID
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO order_notes (id, order_id, content, created_at) VALUES ($1, $2, $3, $4)`,
			n.ID, n.OrderID, n.Content, n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order note: %w", err)
		}
	}
	return nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrganisationID,
		&o.Title,
		&o.Description,
		&o.CustomerID,
		&o.CustomerName,
		&o.AssignedToUserID,
		&o.AssignedToTeamID,
		&o.Status,
		&o.Value,
		&o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
