package repository

import (
	"context"
	"time"

	"github.com/taskboard/taskboard/internal/domain/entity"
)

// TaskFilter describes the filtered, paginated list query. VisibleTo, when
// non-empty, restricts results to tasks the given user created or is assigned
// to; admins list with it left empty.
type TaskFilter struct {
	Status    entity.Status
	Priority  entity.Priority
	Search    string // case-insensitive title substring
	DueBefore *time.Time
	VisibleTo string
	Page      int
	Limit     int
}

// TaskRepository defines the interface for task persistence. The task store
// exclusively owns task records; the application layer is the only writer.
type TaskRepository interface {
	Create(ctx context.Context, t *entity.Task) error
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	// GetExpanded resolves creator/assignee references to public profiles.
	GetExpanded(ctx context.Context, id string) (*entity.ExpandedTask, error)
	// List returns one page ordered by creation time descending plus the
	// total count matching the filter.
	List(ctx context.Context, f TaskFilter) ([]*entity.ExpandedTask, int, error)
	Update(ctx context.Context, t *entity.Task) error
	Delete(ctx context.Context, id string) error
}
