package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/model"
)

// TaskStore is the persistence needed by TaskService.
type TaskStore interface {
	ListTasks(ctx context.Context, orgID, userID string) ([]*model.SalesTask, error)
	GetTask(ctx context.Context, orgID, id string) (*model.SalesTask, error)
	CreateTask(ctx context.Context, t *model.SalesTask) error
	UpdateTaskStatus(ctx context.Context, t *model.SalesTask, note *model.TaskNote) error
	CreateTaskNote(ctx context.Context, orgID string, n *model.TaskNote) error
	ListTaskNotes(ctx context.Context, orgID, taskID string) ([]*model.TaskNote, error)
}

// TaskService handles sales task business logic.
type TaskService struct {
	store   TaskStore
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewTaskService creates a new TaskService.
func NewTaskService(store TaskStore, logger *slog.Logger, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		store:   store,
		logger:  logger.With("component", "tasks"),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// TaskInput carries the fields of a new task.
type TaskInput struct {
	Title       string
	Description *string
	DueDate     *time.Time
	AssigneeID  string
	OrderID     *string
}

// TaskUpdate changes completion or status. Exactly one of IsCompleted and
// Status must be set. A non-blank Note is stored as a task note.
type TaskUpdate struct {
	IsCompleted *bool
	Status      *model.TaskStatus
	Note        *string
}

// List returns the organisation's tasks, or only the caller's when mine is set.
func (s *TaskService) List(ctx context.Context, session *model.Session, mine bool) ([]*model.SalesTask, error) {
	userID := ""
	if mine {
		userID = session.UserID
	}
	return s.store.ListTasks(ctx, session.OrganisationID, userID)
}

// Create validates and stores a task created by the caller.
func (s *TaskService) Create(ctx context.Context, session *model.Session, in TaskInput) (*model.SalesTask, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalid("title", "title is required")
	}
	assignee := strings.TrimSpace(in.AssigneeID)
	if assignee == "" {
		return nil, invalid("user_id", "assignee is required")
	}

	t := &model.SalesTask{
		ID:             uuid.New().String(),
		OrganisationID: session.OrganisationID,
		UserID:         assignee,
		Title:          title,
		Description:    nullIfBlank(in.Description),
		DueDate:        in.DueDate,
		CreatedBy:      session.UserID,
		OrderID:        nullIfBlank(in.OrderID),
		Status:         model.TaskPending,
		CreatedAt:      s.now(),
	}

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("task", opCreate)
	s.logger.Info("task created", "task_id", t.ID, "assignee", assignee, "created_by", session.UserID)
	return t, nil
}

// Update toggles completion or sets a status. Completion and status are
// kept consistent: completed means is_completed.
//
// Only the assignee or an admin may set a status, and only while the task is
// pending. The completion toggle is also open to the task's creator and moves
// a task between pending and completed; denied tasks are closed.
func (s *TaskService) Update(ctx context.Context, session *model.Session, id string, in TaskUpdate) (*model.SalesTask, error) {
	if (in.IsCompleted == nil) == (in.Status == nil) {
		return nil, invalid("status", "exactly one of is_completed and status is required")
	}
	if in.Status != nil && !in.Status.IsValid() {
		return nil, invalid("status", "status must be pending, completed or denied")
	}

	t, err := s.store.GetTask(ctx, session.OrganisationID, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if in.IsCompleted != nil {
		if !canToggleTask(session, t) {
			return nil, ErrForbidden
		}
		if t.Status == model.TaskDenied {
			return nil, ErrConflict
		}
		t.IsCompleted = *in.IsCompleted
		t.Status = model.TaskPending
		if t.IsCompleted {
			t.Status = model.TaskCompleted
		}
	} else {
		if !canDecideTask(session, t) {
			return nil, ErrForbidden
		}
		if t.Status != model.TaskPending {
			return nil, ErrConflict
		}
		t.Status = *in.Status
		t.IsCompleted = t.Status == model.TaskCompleted
	}

	var note *model.TaskNote
	if content := nullIfBlank(in.Note); content != nil {
		note = &model.TaskNote{
			ID:        uuid.New().String(),
			TaskID:    t.ID,
			UserID:    session.UserID,
			Content:   *content,
			CreatedAt: s.now(),
		}
	}

	if err := s.store.UpdateTaskStatus(ctx, t, note); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("task", opUpdate)
	return t, nil
}

func canDecideTask(session *model.Session, t *model.SalesTask) bool {
	return session.UserID == t.UserID || session.IsAdmin()
}

func canToggleTask(session *model.Session, t *model.SalesTask) bool {
	return canDecideTask(session, t) || session.UserID == t.CreatedBy
}

// Notes returns the notes of a task.
func (s *TaskService) Notes(ctx context.Context, orgID, taskID string) ([]*model.TaskNote, error) {
	return s.store.ListTaskNotes(ctx, orgID, taskID)
}

// AddNote stores a non-blank note by the caller.
func (s *TaskService) AddNote(ctx context.Context, session *model.Session, taskID, content string) (*model.TaskNote, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "content is required")
	}

	n := &model.TaskNote{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		UserID:    session.UserID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.store.CreateTaskNote(ctx, session.OrganisationID, n); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("task_note", opCreate)
	return n, nil
}
