package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/repository"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, description, status, priority, due_date, assigned_to, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.AssignedTo, t.CreatedBy)

	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	t := &entity.Task{}
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, description, status, priority, due_date, assigned_to, created_by, created_at, updated_at
		FROM tasks
		WHERE id = $1
	`, id)
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.AssignedTo, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// expandedSelect joins the creator (required) and assignee (optional) so one
// query yields the full wire shape.
const expandedSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.due_date,
	       t.created_at, t.updated_at,
	       c.id, c.email,
	       a.id, a.email
	FROM tasks t
	JOIN users c ON c.id = t.created_by
	LEFT JOIN users a ON a.id = t.assigned_to
`

func scanExpanded(row pgx.Row) (*entity.ExpandedTask, error) {
	t := &entity.ExpandedTask{}
	var assigneeID, assigneeEmail *string
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate,
		&t.CreatedAt, &t.UpdatedAt,
		&t.CreatedBy.ID, &t.CreatedBy.Email,
		&assigneeID, &assigneeEmail); err != nil {
		return nil, err
	}
	if assigneeID != nil {
		t.AssignedTo = &entity.UserRef{ID: *assigneeID, Email: *assigneeEmail}
	}
	return t, nil
}

func (r *TaskRepository) GetExpanded(ctx context.Context, id string) (*entity.ExpandedTask, error) {
	row := r.pool.QueryRow(ctx, expandedSelect+` WHERE t.id = $1`, id)
	t, err := scanExpanded(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes %, _ and \ in user input match literally inside ILIKE
// patterns.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// buildWhere assembles the filter predicates shared by the page query and the
// count query.
func buildWhere(f repository.TaskFilter) (string, []any) {
	conds := make([]string, 0, 5)
	args := make([]any, 0, 5)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("t.status = $%d", f.Status)
	}
	if f.Priority != "" {
		add("t.priority = $%d", f.Priority)
	}
	if f.Search != "" {
		add("t.title ILIKE '%%' || $%d || '%%'", escapeLike(f.Search))
	}
	if f.DueBefore != nil {
		add("t.due_date <= $%d", *f.DueBefore)
	}
	if f.VisibleTo != "" {
		args = append(args, f.VisibleTo)
		n := len(args)
		conds = append(conds, fmt.Sprintf("(t.created_by = $%d OR t.assigned_to = $%d)", n, n))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *TaskRepository) List(ctx context.Context, f repository.TaskFilter) ([]*entity.ExpandedTask, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM tasks t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	pageArgs := append(args, f.Limit, offset)
	query := fmt.Sprintf("%s%s ORDER BY t.created_at DESC LIMIT $%d OFFSET $%d",
		expandedSelect, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]*entity.ExpandedTask, 0)
	for rows.Next() {
		t, err := scanExpanded(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *entity.Task) error {
	t.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4,
		    due_date = $5, assigned_to = $6, updated_at = $7
		WHERE id = $8
	`, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.AssignedTo, t.UpdatedAt, t.ID)
	if err != nil {
		return mapPgError(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
