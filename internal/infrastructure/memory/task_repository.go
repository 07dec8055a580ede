package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/repository"
)

type TaskRepository struct {
	mu    sync.Mutex
	tasks map[string]*entity.Task
	order []string // insertion order, oldest first
	users *UserRepository
}

func NewTaskRepository(users *UserRepository) *TaskRepository {
	return &TaskRepository{tasks: make(map[string]*entity.Task), users: users}
}

func (r *TaskRepository) Create(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	r.tasks[t.ID] = &cp
	r.order = append(r.order, t.ID)
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TaskRepository) expand(t *entity.Task) *entity.ExpandedTask {
	e := &entity.ExpandedTask{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedBy:   r.users.ref(t.CreatedBy),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		ref := r.users.ref(*t.AssignedTo)
		e.AssignedTo = &ref
	}
	return e
}

func (r *TaskRepository) GetExpanded(_ context.Context, id string) (*entity.ExpandedTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.expand(t), nil
}

func matches(t *entity.Task, f repository.TaskFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Search)) {
		return false
	}
	if f.DueBefore != nil && (t.DueDate == nil || t.DueDate.After(*f.DueBefore)) {
		return false
	}
	if f.VisibleTo != "" {
		assigned := t.AssignedTo != nil && *t.AssignedTo == f.VisibleTo
		if t.CreatedBy != f.VisibleTo && !assigned {
			return false
		}
	}
	return true
}

func (r *TaskRepository) List(_ context.Context, f repository.TaskFilter) ([]*entity.ExpandedTask, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*entity.Task
	// newest first
	for i := len(r.order) - 1; i >= 0; i-- {
		t := r.tasks[r.order[i]]
		if matches(t, f) {
			matched = append(matched, t)
		}
	}
	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	out := make([]*entity.ExpandedTask, 0, end-start)
	for _, t := range matched[start:end] {
		out = append(out, r.expand(t))
	}
	return out, total, nil
}

func (r *TaskRepository) Update(_ context.Context, t *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return repository.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
