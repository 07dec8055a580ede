package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/infrastructure/memory"
	"github.com/taskboard/taskboard/pkg/helpers"
)

func newAuthService() (*AuthService, *memory.UserRepository) {
	repo := memory.NewUserRepository()
	jwt := helpers.NewJWTManager("test-secret", time.Hour)
	return NewAuthService(repo, jwt, nil, nil, nil), repo
}

func TestRegisterIssuesToken(t *testing.T) {
	svc, _ := newAuthService()

	u, token, err := svc.Register(context.Background(), "  Alice@Example.COM ", "secret1", "")
	require.NoError(t, err)

	assert.Equal(t, "alice@example.com", u.Email, "email must be normalized")
	assert.Equal(t, entity.RoleUser, u.Role, "role defaults to user")
	assert.NotEqual(t, "secret1", u.Password, "password must be stored hashed")

	claims, err := svc.JWT.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		role     entity.Role
		field    string
	}{
		{"bad email", "not-an-email", "secret1", "", "email"},
		{"short password", "a@b.com", "12345", "", "password"},
		{"bad role", "a@b.com", "secret1", "superuser", "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.email, tt.password, tt.role)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, "A@B.com", "secret2", "")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)

	u, token, err := svc.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "a@b.com", u.Email)

	// wrong password and unknown email are indistinguishable
	_, _, err = svc.Login(ctx, "a@b.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "nobody@b.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGetProfile(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	u, _, err := svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)

	p, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, "a@b.com", p.Email)

	_, err = svc.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfilePasswordChange(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	u, _, err := svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)

	// wrong current password
	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{CurrentPassword: "secret1", NewPassword: "secret2"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "a@b.com", "secret2")
	require.NoError(t, err)
}

func TestUpdateProfileEmailChange(t *testing.T) {
	svc, _ := newAuthService()
	ctx := context.Background()

	u, _, err := svc.Register(ctx, "a@b.com", "secret1", "")
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, "taken@b.com", "secret1", "")
	require.NoError(t, err)

	newEmail := "New@B.com"
	updated, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &newEmail})
	require.NoError(t, err)
	assert.Equal(t, "new@b.com", updated.Email)

	taken := "taken@b.com"
	_, err = svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Email: &taken})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}
