package repository

import (
	"context"
	"errors"

	"github.com/taskboard/taskboard/internal/domain/entity"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	// List returns all users ordered by creation time descending.
	List(ctx context.Context) ([]*entity.User, error)
	// Search returns up to limit non-admin users whose email contains query
	// (case-insensitive), ordered by email ascending.
	Search(ctx context.Context, query string, limit int) ([]*entity.User, error)
}
