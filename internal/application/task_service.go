package application

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/policy"
	"github.com/taskboard/taskboard/internal/domain/repository"
	"github.com/taskboard/taskboard/internal/events"
	"github.com/taskboard/taskboard/pkg/patch"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// TaskService implements task CRUD over the task store, enforcing the
// authorization policy on every operation and publishing a broadcast event for
// every successful mutation. Broadcasts are fire-and-forget: a publish failure
// is logged and the mutation still succeeds.
type TaskService struct {
	Tasks  repository.TaskRepository
	Users  repository.UserRepository
	Bus    events.Bus
	Logger *logrus.Logger
}

func NewTaskService(tasks repository.TaskRepository, users repository.UserRepository, bus events.Bus, logger *logrus.Logger) *TaskService {
	return &TaskService{Tasks: tasks, Users: users, Bus: bus, Logger: logger}
}

// Pagination is the list metadata block returned alongside every page.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// ListInput carries the optional list filters. Zero values mean "no filter".
type ListInput struct {
	Page      int
	Limit     int
	Status    string
	Priority  string
	Search    string
	DueBefore *time.Time
}

func taskRefs(t *entity.Task) policy.TaskRefs {
	r := policy.TaskRefs{CreatedBy: t.CreatedBy}
	if t.AssignedTo != nil {
		r.AssignedTo = *t.AssignedTo
	}
	return r
}

// List returns one page of tasks visible to the actor, newest first.
// Non-admins only ever see tasks they created or are assigned to.
func (s *TaskService) List(ctx context.Context, actor policy.Actor, in ListInput) ([]*entity.ExpandedTask, Pagination, error) {
	if in.Page < 1 {
		in.Page = defaultPage
	}
	if in.Limit < 1 {
		in.Limit = defaultLimit
	}
	if in.Status != "" && !entity.Status(in.Status).Valid() {
		return nil, Pagination{}, newValidationError("status", "must be TODO, IN_PROGRESS, or DONE")
	}
	if in.Priority != "" && !entity.Priority(in.Priority).Valid() {
		return nil, Pagination{}, newValidationError("priority", "must be LOW, MEDIUM, or HIGH")
	}

	f := repository.TaskFilter{
		Status:    entity.Status(in.Status),
		Priority:  entity.Priority(in.Priority),
		Search:    in.Search,
		DueBefore: in.DueBefore,
		Page:      in.Page,
		Limit:     in.Limit,
	}
	if !actor.IsAdmin() {
		f.VisibleTo = actor.ID
	}

	tasks, total, err := s.Tasks.List(ctx, f)
	if err != nil {
		return nil, Pagination{}, err
	}
	pages := (total + in.Limit - 1) / in.Limit
	return tasks, Pagination{Page: in.Page, Limit: in.Limit, Total: total, Pages: pages}, nil
}

// GetByID returns the expanded task, or ErrNotFound / ErrForbidden.
func (s *TaskService) GetByID(ctx context.Context, actor policy.Actor, id string) (*entity.ExpandedTask, error) {
	t, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanRead(actor, taskRefs(t)) {
		return nil, ErrForbidden
	}
	return s.Tasks.GetExpanded(ctx, id)
}

// CreateTaskInput is the create payload after JSON binding. Status/Priority
// default to TODO/MEDIUM when empty; an empty AssignedTo means unassigned.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     *time.Time
	AssignedTo  string
}

// Create persists a new task and broadcasts task:created before returning.
// CreatedBy is always the actor: a client-supplied value is ignored.
func (s *TaskService) Create(ctx context.Context, actor policy.Actor, in CreateTaskInput) (*entity.ExpandedTask, error) {
	t := &entity.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      entity.StatusTodo,
		Priority:    entity.PriorityMedium,
		DueDate:     in.DueDate,
		CreatedBy:   actor.ID,
	}
	if in.Status != "" {
		t.Status = entity.Status(in.Status)
	}
	if in.Priority != "" {
		t.Priority = entity.Priority(in.Priority)
	}

	if err := s.validateTitle(t.Title); err != nil {
		return nil, err
	}
	if err := s.validateFields(t); err != nil {
		return nil, err
	}
	assignee, err := s.resolveAssignee(ctx, in.AssignedTo)
	if err != nil {
		return nil, err
	}
	t.AssignedTo = assignee

	if err := s.Tasks.Create(ctx, t); err != nil {
		return nil, err
	}
	expanded, err := s.Tasks.GetExpanded(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TaskCreated, expanded)
	return expanded, nil
}

// TaskPatch is the typed partial-update payload: each field is either absent,
// explicitly cleared (JSON null), or set. Absent fields are left untouched;
// present-but-empty fields are applied, including clearing optional ones.
type TaskPatch struct {
	Title       patch.Field[string]    `json:"title"`
	Description patch.Field[string]    `json:"description"`
	Status      patch.Field[string]    `json:"status"`
	Priority    patch.Field[string]    `json:"priority"`
	DueDate     patch.Field[time.Time] `json:"dueDate"`
	AssignedTo  patch.Field[string]    `json:"assignedTo"`
}

// Update applies the patch under canUpdate, re-validates, persists, and
// broadcasts task:updated with the full expanded task.
func (s *TaskService) Update(ctx context.Context, actor policy.Actor, id string, p TaskPatch) (*entity.ExpandedTask, error) {
	t, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdate(actor, taskRefs(t)) {
		return nil, ErrForbidden
	}

	if p.Title.Present {
		if p.Title.IsClear() {
			return nil, newValidationError("title", "cannot be empty")
		}
		t.Title = p.Title.Value
	}
	if p.Description.Present {
		if p.Description.IsClear() {
			t.Description = ""
		} else {
			t.Description = p.Description.Value
		}
	}
	if p.Status.IsSet() {
		t.Status = entity.Status(p.Status.Value)
	} else if p.Status.IsClear() {
		return nil, newValidationError("status", "must be TODO, IN_PROGRESS, or DONE")
	}
	if p.Priority.IsSet() {
		t.Priority = entity.Priority(p.Priority.Value)
	} else if p.Priority.IsClear() {
		return nil, newValidationError("priority", "must be LOW, MEDIUM, or HIGH")
	}
	if p.DueDate.Present {
		if p.DueDate.IsClear() {
			t.DueDate = nil
		} else {
			due := p.DueDate.Value
			t.DueDate = &due
		}
	}
	if p.AssignedTo.Present {
		if p.AssignedTo.IsClear() {
			t.AssignedTo = nil
		} else {
			assignee, err := s.resolveAssignee(ctx, p.AssignedTo.Value)
			if err != nil {
				return nil, err
			}
			t.AssignedTo = assignee
		}
	}

	if err := s.validateTitle(t.Title); err != nil {
		return nil, err
	}
	if err := s.validateFields(t); err != nil {
		return nil, err
	}

	if err := s.Tasks.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	expanded, err := s.Tasks.GetExpanded(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.TaskUpdated, expanded)
	return expanded, nil
}

// Delete removes the task under canDelete and broadcasts task:deleted {id}.
func (s *TaskService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	t, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(actor, taskRefs(t)) {
		return ErrForbidden
	}
	if err := s.Tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.publish(ctx, events.TaskDeleted, events.DeletedPayload{ID: id})
	return nil
}

func (s *TaskService) getTask(ctx context.Context, id string) (*entity.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	t, err := s.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *TaskService) validateTitle(title string) error {
	if title == "" {
		return newValidationError("title", "is required")
	}
	if utf8.RuneCountInString(title) > entity.MaxTitleLen {
		return newValidationError("title", "cannot exceed 200 characters")
	}
	return nil
}

func (s *TaskService) validateFields(t *entity.Task) error {
	if utf8.RuneCountInString(t.Description) > entity.MaxDescriptionLen {
		return newValidationError("description", "cannot exceed 1000 characters")
	}
	if !t.Status.Valid() {
		return newValidationError("status", "must be TODO, IN_PROGRESS, or DONE")
	}
	if !t.Priority.Valid() {
		return newValidationError("priority", "must be LOW, MEDIUM, or HIGH")
	}
	return nil
}

// resolveAssignee normalizes an empty assignee to "no assignee" and verifies a
// non-empty one references an existing user.
func (s *TaskService) resolveAssignee(ctx context.Context, id string) (*string, error) {
	if id == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, newValidationError("assignedTo", "must be a valid user ID")
	}
	if _, err := s.Users.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newValidationError("assignedTo", "must reference an existing user")
		}
		return nil, err
	}
	return &id, nil
}

func (s *TaskService) publish(ctx context.Context, typ string, payload any) {
	ev, err := events.New(typ, payload)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("event", typ).Error("marshal event failed")
		}
		return
	}
	if err := s.Bus.Publish(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("event", typ).Warn("broadcast publish failed")
	}
}
