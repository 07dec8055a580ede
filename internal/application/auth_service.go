package application

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/repository"
	"github.com/taskboard/taskboard/pkg/helpers"
)

const (
	minPasswordLen  = 6
	profileCacheTTL = 15 * time.Minute
)

func profileKey(userID string) string {
	return "user:profile:" + userID
}

// AuthService validates credentials and issues signed, time-bound identity
// tokens. Tokens carry no server-side revocation list: they are valid until
// their embedded expiry.
type AuthService struct {
	Repo    repository.UserRepository
	JWT     *helpers.JWTManager
	Redis   *redis.Client
	Indexer *UserIndexer
	Logger  *logrus.Logger
}

func NewAuthService(repo repository.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, indexer *UserIndexer, logger *logrus.Logger) *AuthService {
	return &AuthService{Repo: repo, JWT: jwt, Redis: rdb, Indexer: indexer, Logger: logger}
}

// NormalizeEmail lower-cases and trims an email address; the stored form is
// always normalized so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// Register creates a user and returns it along with a signed token. Role
// defaults to user when empty.
func (s *AuthService) Register(ctx context.Context, email, password string, role entity.Role) (*entity.User, string, error) {
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return nil, "", newValidationError("email", "must be a valid email")
	}
	if len(password) < minPasswordLen {
		return nil, "", newValidationError("password", "must be at least 6 characters long")
	}
	if role == "" {
		role = entity.RoleUser
	}
	if !role.Valid() {
		return nil, "", newValidationError("role", "must be either admin or user")
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	u := &entity.User{Email: email, Password: hash, Role: role}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", err
	}

	s.Indexer.IndexUser(ctx, u)

	token, _, err := s.JWT.GenerateToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login checks the credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	u, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil || u == nil {
		return nil, "", ErrInvalidCredentials
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, _, err := s.JWT.GenerateToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GetProfile returns the public profile, served from the redis cache when
// warm. The cache is a read optimization only, never an auth decision.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (entity.PublicProfile, error) {
	if s.Redis != nil {
		var cached entity.PublicProfile
		if hit, err := helpers.RedisGetJSON(ctx, s.Redis, profileKey(userID), &cached); err == nil && hit {
			return cached, nil
		}
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return entity.PublicProfile{}, ErrNotFound
		}
		return entity.PublicProfile{}, err
	}
	p := u.Public()
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, profileKey(userID), p, profileCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", userID).Warn("profile cache set failed")
		}
	}
	return p, nil
}

// UpdateProfileInput uses pointers so callers can change email, password, or
// both in one call.
type UpdateProfileInput struct {
	Email           *string
	CurrentPassword string
	NewPassword     string
}

// UpdateProfile updates email and/or password. A password change requires the
// current password to match the stored hash.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if in.NewPassword != "" {
		if !helpers.CompareHashAndPassword(u.Password, in.CurrentPassword) {
			return nil, ErrInvalidCredentials
		}
		if len(in.NewPassword) < minPasswordLen {
			return nil, newValidationError("newPassword", "must be at least 6 characters long")
		}
		hash, err := helpers.HashPassword(in.NewPassword)
		if err != nil {
			return nil, err
		}
		u.Password = hash
	}
	if in.Email != nil {
		email := NormalizeEmail(*in.Email)
		if !validEmail(email) {
			return nil, newValidationError("email", "must be a valid email")
		}
		u.Email = email
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	if s.Redis != nil {
		if err := helpers.RedisDel(ctx, s.Redis, profileKey(u.ID)); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("profile cache invalidation failed")
		}
	}
	s.Indexer.IndexUser(ctx, u)
	return u, nil
}
