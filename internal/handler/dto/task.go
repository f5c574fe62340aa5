package dto

import (
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/service"
)

// TaskRequest is the body of a task create.
type TaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	DueDate     *Date   `json:"due_date"`
	UserID      string  `json:"user_id"`
	OrderID     *string `json:"order_id"`
}

// ToInput converts the body to service input.
func (r *TaskRequest) ToInput() service.TaskInput {
	return service.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Ptr(),
		AssigneeID:  r.UserID,
		OrderID:     r.OrderID,
	}
}

// TaskUpdateRequest toggles completion or sets a status.
type TaskUpdateRequest struct {
	IsCompleted *bool             `json:"is_completed"`
	Status      *model.TaskStatus `json:"status"`
	Note        *string           `json:"note"`
}

// ToInput converts the body to service input.
func (r *TaskUpdateRequest) ToInput() service.TaskUpdate {
	return service.TaskUpdate(*r)
}

// NoteRequest is the body of a task note.
type NoteRequest struct {
	Content string `json:"content"`
}
