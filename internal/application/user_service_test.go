package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/policy"
	"github.com/taskboard/taskboard/internal/infrastructure/memory"
)

func newUserFixture(t *testing.T) (*UserService, policy.Actor, policy.Actor) {
	t.Helper()
	repo := memory.NewUserRepository()
	svc := NewUserService(repo, nil, nil)

	ctx := context.Background()
	admin := &entity.User{Email: "admin@example.com", Password: "x", Role: entity.RoleAdmin}
	user := &entity.User{Email: "user@example.com", Password: "x", Role: entity.RoleUser}
	require.NoError(t, repo.Create(ctx, admin))
	require.NoError(t, repo.Create(ctx, user))

	return svc, policy.Actor{ID: admin.ID, Role: "admin"}, policy.Actor{ID: user.ID, Role: "user"}
}

func TestUserListAdminOnly(t *testing.T) {
	svc, admin, user := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.List(ctx, user)
	assert.ErrorIs(t, err, ErrForbidden)

	users, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestUserCreateAdminOnly(t *testing.T) {
	svc, admin, user := newUserFixture(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, user, "new@example.com", "secret1", entity.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)

	created, err := svc.Create(ctx, admin, "New@Example.com", "secret1", entity.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", created.Email)

	_, err = svc.Create(ctx, admin, "new@example.com", "secret1", entity.RoleUser)
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.Create(ctx, admin, "bad@example.com", "123", entity.RoleUser)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")
}

func TestUserGetByIDSelfOrAdmin(t *testing.T) {
	svc, admin, user := newUserFixture(t)
	ctx := context.Background()

	// self lookup
	p, err := svc.GetByID(ctx, user, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.ID)

	// admin lookup of anyone
	p, err = svc.GetByID(ctx, admin, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.ID)

	// user lookup of someone else
	_, err = svc.GetByID(ctx, user, admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.GetByID(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserSearchExcludesAdminsAndCaps(t *testing.T) {
	repo := memory.NewUserRepository()
	svc := NewUserService(repo, nil, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.User{Email: "boss@corp.com", Password: "x", Role: entity.RoleAdmin}))
	for _, e := range []string{"carol@corp.com", "alice@corp.com", "bob@corp.com"} {
		require.NoError(t, repo.Create(ctx, &entity.User{Email: e, Password: "x", Role: entity.RoleUser}))
	}
	for i := 0; i < 12; i++ {
		email := string(rune('a'+i)) + "-extra@corp.com"
		require.NoError(t, repo.Create(ctx, &entity.User{Email: email, Password: "x", Role: entity.RoleUser}))
	}

	refs, err := svc.Search(ctx, "corp")
	require.NoError(t, err)
	assert.Len(t, refs, 10, "search result is capped")
	for _, r := range refs {
		assert.NotEqual(t, "boss@corp.com", r.Email)
	}

	refs, err = svc.Search(ctx, "ALICE")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "alice@corp.com", refs[0].Email)
}
