package application

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/policy"
	"github.com/taskboard/taskboard/internal/domain/repository"
	"github.com/taskboard/taskboard/pkg/helpers"
)

const searchLimit = 10

// UserService covers the administrative roster plus the assignment-picker
// search.
type UserService struct {
	Repo    repository.UserRepository
	Indexer *UserIndexer
	Logger  *logrus.Logger
}

func NewUserService(repo repository.UserRepository, indexer *UserIndexer, logger *logrus.Logger) *UserService {
	return &UserService{Repo: repo, Indexer: indexer, Logger: logger}
}

// List returns all users, newest first. Admin only.
func (s *UserService) List(ctx context.Context, actor policy.Actor) ([]entity.PublicProfile, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entity.PublicProfile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// Create adds a user to the roster. Admin only.
func (s *UserService) Create(ctx context.Context, actor policy.Actor, email, password string, role entity.Role) (*entity.User, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, newValidationError("email", "must be a valid email")
	}
	if len(password) < minPasswordLen {
		return nil, newValidationError("password", "must be at least 6 characters long")
	}
	if !role.Valid() {
		return nil, newValidationError("role", "must be either admin or user")
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{Email: email, Password: hash, Role: role}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	s.Indexer.IndexUser(ctx, u)
	return u, nil
}

// GetByID returns a public profile; permitted for admins and self-lookups.
func (s *UserService) GetByID(ctx context.Context, actor policy.Actor, id string) (entity.PublicProfile, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return entity.PublicProfile{}, ErrForbidden
	}
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.PublicProfile{}, ErrNotFound
		}
		return entity.PublicProfile{}, err
	}
	return u.Public(), nil
}

// Search returns up to 10 non-admin users matching the query, for the
// assignment picker. Served from Elasticsearch when configured, otherwise
// straight from the repository.
func (s *UserService) Search(ctx context.Context, query string) ([]entity.UserRef, error) {
	if refs, ok := s.Indexer.Search(ctx, query, searchLimit); ok {
		return refs, nil
	}
	users, err := s.Repo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	refs := make([]entity.UserRef, 0, len(users))
	for _, u := range users {
		refs = append(refs, u.Ref())
	}
	return refs, nil
}
