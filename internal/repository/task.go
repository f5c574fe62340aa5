package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/glansab/backoffice/internal/model"
)

const taskSelect = `
		SELECT t.id, t.organisation_id, t.user_id, t.title, t.description, t.due_date, t.created_by, t.order_id,
			o.title, t.status, t.is_completed, t.created_at
		FROM sales_tasks t
		LEFT JOIN orders o ON o.id = t.order_id AND o.organisation_id = t.organisation_id
`

// ListTasks returns the organisation's tasks. With userID set only tasks
// assigned to or created by that user are returned. Open tasks come first,
// then by due date.
func (r *Repository) ListTasks(ctx context.Context, orgID, userID string) ([]*model.SalesTask, error) {
	query := taskSelect + ` WHERE t.organisation_id = $1`
	args := []any{orgID}
	if userID != "" {
		query += ` AND (t.user_id = $2 OR t.created_by = $2)`
		args = append(args, userID)
	}
	query += ` ORDER BY t.is_completed, t.due_date NULLS LAST, t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.SalesTask, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}
	return tasks, nil
}

// GetTask retrieves a task of the organisation by id.
func (r *Repository) GetTask(ctx context.Context, orgID, id string) (*model.SalesTask, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, taskSelect+` WHERE t.organisation_id = $1 AND t.id = $2`, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts a sales task. The assignee and the linked order must
// belong to the task's organisation.
func (r *Repository) CreateTask(ctx context.Context, t *model.SalesTask) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		err := checkReferences(ctx, tx, t.OrganisationID,
			refValue(refProfiles, t.UserID),
			ref(refOrders, t.OrderID),
		)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO sales_tasks (id, organisation_id, user_id, title, description, due_date, created_by, order_id,
				status, is_completed, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			t.ID,
			t.OrganisationID,
			t.UserID,
			t.Title,
			t.Description,
			t.DueDate,
			t.CreatedBy,
			t.OrderID,
			t.Status,
			t.IsCompleted,
			t.CreatedAt,
		)
		if err != nil {
			return mapWriteError(err, "failed to create task")
		}
		return nil
	})
}

// UpdateTaskStatus sets status and completion, optionally storing a note in
// the same transaction.
func (r *Repository) UpdateTaskStatus(ctx context.Context, t *model.SalesTask, note *model.TaskNote) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE sales_tasks SET status = $3, is_completed = $4
			WHERE organisation_id = $1 AND id = $2`,
			t.OrganisationID, t.ID, t.Status, t.IsCompleted,
		)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if note == nil {
			return nil
		}
		return insertTaskNote(ctx, tx, note)
	})
}

// CreateTaskNote stores a note on a task of the organisation.
func (r *Repository) CreateTaskNote(ctx context.Context, orgID string, n *model.TaskNote) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sales_tasks WHERE organisation_id = $1 AND id = $2)`,
			orgID, n.TaskID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check task: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return insertTaskNote(ctx, tx, n)
	})
}

// ListTaskNotes returns the notes of a task, oldest first.
func (r *Repository) ListTaskNotes(ctx context.Context, orgID, taskID string) ([]*model.TaskNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT n.id, n.task_id, n.user_id, n.content, n.created_at
		FROM task_notes n
		JOIN sales_tasks t ON t.id = n.task_id
		WHERE t.organisation_id = $1 AND n.task_id = $2
		ORDER BY n.created_at`, orgID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task notes: %w", err)
	}
	notes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.TaskNote, error) {
		var n model.TaskNote
		err := row.Scan(&n.ID, &n.TaskID, &n.UserID, &n.Content, &n.CreatedAt)
		return &n, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan task notes: %w", err)
	}
	return notes, nil
}

func insertTaskNote(ctx context.Context, tx pgx.Tx, n *model.TaskNote) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO task_notes (id, task_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.TaskID, n.UserID, n.Content, n.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err, "failed to create task note")
	}
	return nil
}

func scanTask(row pgx.Row) (*model.SalesTask, error) {
	var t model.SalesTask
	err := row.Scan(
		&t.ID,
		&t.OrganisationID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.CreatedBy,
		&t.OrderID,
		&t.OrderTitle,
		&t.Status,
		&t.IsCompleted,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
