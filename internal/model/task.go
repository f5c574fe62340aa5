package model

import "time"

// TaskStatus is the state of a sales task.
type TaskStatus string

// TaskStatus constants.
const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
	TaskDenied    TaskStatus = "denied"
)

// IsValid reports whether the status is known.
func (s TaskStatus) IsValid() bool {
	return s == TaskPending || s == TaskCompleted || s == TaskDenied
}

// SalesTask is a to-do assigned to a user, optionally tied to an order.
type SalesTask struct {
	ID             string      `json:"id"`
	OrganisationID string      `json:"organisation_id"`
	UserID         string      `json:"user_id"`
	Title          string      `json:"title"`
	Description    *string     `json:"description"`
	DueDate        *time.Time  `json:"due_date"`
	CreatedBy      string      `json:"created_by"`
	OrderID        *string     `json:"order_id"`
	OrderTitle     *string     `json:"order_title,omitempty"`
	Status         TaskStatus  `json:"status"`
	IsCompleted    bool        `json:"is_completed"`
	Notes          []*TaskNote `json:"notes,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// TaskNote is a comment left on a task.
type TaskNote struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
