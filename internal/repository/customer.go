package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/glansab/backoffice/internal/model"
)

const customerColumns = `id, organisation_id, name, email, phone_number, address, postal_code, city, customer_type,
		org_number, sales_area, vat_handling, e_invoice_address, invoice_delivery_method, created_at, updated_at`

// CustomerPage is one page of a customer search.
type CustomerPage struct {
	Customers  []*model.Customer
	TotalCount int
}

// SearchCustomers returns one page of the organisation's customers whose
// name, email or phone number contains q, ordered by name.
func (r *Repository) SearchCustomers(ctx context.Context, orgID, q string, page, limit int) (*CustomerPage, error) {
	if page < 1 {
		page = 1
	}

	query := `
		SELECT ` + customerColumns + `, COUNT(*) OVER() AS total_count
		FROM customers
		WHERE organisation_id = $1
	`
	args := []any{orgID}

	if q = strings.TrimSpace(q); q != "" {
		query += ` AND (name ILIKE $2 OR email ILIKE $2 OR phone_number ILIKE $2)`
		args = append(args, likePattern(q))
	}

	query += fmt.Sprintf(" ORDER BY name, id LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, (page-1)*limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}
	defer rows.Close()

	result := &CustomerPage{Customers: make([]*model.Customer, 0, limit)}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(append(customerDest(&c), &result.TotalCount)...); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		result.Customers = append(result.Customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}

	// Past the last page COUNT(*) OVER() yields no row
	if len(result.Customers) == 0 && page > 1 {
		if err := r.pool.QueryRow(ctx, countCustomersQuery(q != ""), args[:len(args)-2]...).Scan(&result.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to count customers: %w", err)
		}
	}

	return result, nil
}

func countCustomersQuery(withSearch bool) string {
	query := `SELECT COUNT(*) FROM customers WHERE organisation_id = $1`
	if withSearch {
		query += ` AND (name ILIKE $2 OR email ILIKE $2 OR phone_number ILIKE $2)`
	}
	return query
}

// ListCustomers returns all customers of the organisation ordered by name.
func (r *Repository) ListCustomers(ctx context.Context, orgID string) ([]*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE organisation_id = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0)
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(customerDest(&c)...); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// GetCustomer retrieves a customer of the organisation by id.
func (r *Repository) GetCustomer(ctx context.Context, orgID, id string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE organisation_id = $1 AND id = $2`

	var c model.Customer
	if err := r.pool.QueryRow(ctx, query, orgID, id).Scan(customerDest(&c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

// FindDuplicateCustomer reports which field of a customer collides with an
// existing record: "email" takes precedence over "name". excludeID skips the
// record being edited. Returns "" when there is no collision.
func (r *Repository) FindDuplicateCustomer(ctx context.Context, orgID, email, name, excludeID string) (string, error) {
	query := `
		SELECT
			COALESCE(bool_or($2 <> '' AND lower(email) = lower($2)), FALSE),
			COALESCE(bool_or(lower(name) = lower($3)), FALSE)
		FROM customers
		WHERE organisation_id = $1
		  AND ($4 = '' OR id <> $4)
		  AND ((email IS NOT NULL AND $2 <> '' AND lower(email) = lower($2)) OR lower(name) = lower($3))
	`

	var emailTaken, nameTaken bool
	err := r.pool.QueryRow(ctx, query, orgID, strings.TrimSpace(email), strings.TrimSpace(name), excludeID).
		Scan(&emailTaken, &nameTaken)
	if err != nil {
		return "", fmt.Errorf("failed to check duplicate customer: %w", err)
	}

	switch {
	case emailTaken:
		return "email", nil
	case nameTaken:
		return "name", nil
	default:
		return "", nil
	}
}

// CreateCustomer inserts a customer.
func (r *Repository) CreateCustomer(ctx context.Context, c *model.Customer) error {
	query := `
		INSERT INTO customers (id, organisation_id, name, email, phone_number, address, postal_code, city, customer_type,
			org_number, sales_area, vat_handling, e_invoice_address, invoice_delivery_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		c.OrganisationID,
		c.Name,
		c.Email,
		c.PhoneNumber,
		c.Address,
		c.PostalCode,
		c.City,
		c.CustomerType,
		c.OrgNumber,
		c.SalesArea,
		c.VATHandling,
		c.EInvoiceAddress,
		c.InvoiceDeliveryMethod,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return mapWriteError(err, "failed to create customer")
	}
	return nil
}

// UpdateCustomer writes all mutable customer fields.
func (r *Repository) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	query := `
		UPDATE customers SET
			name = $3,
			email = $4,
			phone_number = $5,
			address = $6,
			postal_code = $7,
			city = $8,
			customer_type = $9,
			org_number = $10,
			sales_area = $11,
			vat_handling = $12,
			e_invoice_address = $13,
			invoice_delivery_method = $14,
			updated_at = $15
		WHERE organisation_id = $1 AND id = $2
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		c.OrganisationID,
		c.ID,
		c.Name,
		c.Email,
		c.PhoneNumber,
		c.Address,
		c.PostalCode,
		c.City,
		c.CustomerType,
		c.OrgNumber,
		c.SalesArea,
		c.VATHandling,
		c.EInvoiceAddress,
		c.InvoiceDeliveryMethod,
		c.UpdatedAt,
	).Scan(&c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapWriteError(err, "failed to update customer")
	}
	return nil
}

// DeleteCustomer removes a customer of the organisation.
func (r *Repository) DeleteCustomer(ctx context.Context, orgID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE organisation_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCustomerInteractions loads leads, quotes, jobs and invoices of a
// customer concurrently, newest first.
func (r *Repository) GetCustomerInteractions(ctx context.Context, orgID, customerID string) (*model.CustomerInteractions, error) {
	ci := &model.CustomerInteractions{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, customer_id, title, status, estimated_value, assigned_to, created_at
			FROM leads WHERE organisation_id = $1 AND customer_id = $2 ORDER BY created_at DESC`, orgID, customerID)
		if err != nil {
			return fmt.Errorf("failed to load leads: %w", err)
		}
		ci.Leads, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Lead, error) {
			var l model.Lead
			err := row.Scan(&l.ID, &l.CustomerID, &l.Title, &l.Status, &l.EstimatedValue, &l.AssignedTo, &l.CreatedAt)
			return &l, err
		})
		if err != nil {
			return fmt.Errorf("failed to scan leads: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, customer_id, title, status, total_amount, created_at
			FROM quotes WHERE organisation_id = $1 AND customer_id = $2 ORDER BY created_at DESC`, orgID, customerID)
		if err != nil {
			return fmt.Errorf("failed to load quotes: %w", err)
		}
		ci.Quotes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Quote, error) {
			var q model.Quote
			err := row.Scan(&q.ID, &q.CustomerID, &q.Title, &q.Status, &q.TotalAmount, &q.CreatedAt)
			return &q, err
		})
		if err != nil {
			return fmt.Errorf("failed to scan quotes: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, customer_id, title, status, value, assigned_to, created_at
			FROM jobs WHERE organisation_id = $1 AND customer_id = $2 ORDER BY created_at DESC`, orgID, customerID)
		if err != nil {
			return fmt.Errorf("failed to load jobs: %w", err)
		}
		ci.Jobs, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Job, error) {
			var j model.Job
			err := row.Scan(&j.ID, &j.CustomerID, &j.Title, &j.Status, &j.Value, &j.AssignedTo, &j.CreatedAt)
			return &j, err
		})
		if err != nil {
			return fmt.Errorf("failed to scan jobs: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, customer_id, invoice_number, status, amount, created_at
			FROM invoices WHERE organisation_id = $1 AND customer_id = $2 ORDER BY created_at DESC`, orgID, customerID)
		if err != nil {
			return fmt.Errorf("failed to load invoices: %w", err)
		}
		ci.Invoices, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Invoice, error) {
			var inv model.Invoice
			err := row.Scan(&inv.ID, &inv.CustomerID, &inv.InvoiceNumber, &inv.Status, &inv.Amount, &inv.CreatedAt)
			return &inv, err
		})
		if err != nil {
			return fmt.Errorf("failed to scan invoices: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ci, nil
}

func customerDest(c *model.Customer) []any {
	return []any{
		&c.ID,
		&c.OrganisationID,
		&c.Name,
		&c.Email,
		&c.PhoneNumber,
		&c.Address,
		&c.PostalCode,
		&c.City,
		&c.CustomerType,
		&c.OrgNumber,
		&c.SalesArea,
		&c.VATHandling,
		&c.EInvoiceAddress,
		&c.InvoiceDeliveryMethod,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}
