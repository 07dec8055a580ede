package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/taskboard/taskboard/internal/application"
	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/events"
	"github.com/taskboard/taskboard/internal/infrastructure/memory"
	"github.com/taskboard/taskboard/internal/interface/middleware"
	"github.com/taskboard/taskboard/pkg/helpers"
	"github.com/taskboard/taskboard/pkg/validation"
)

var setupOnce sync.Once

type apiFixture struct {
	engine *gin.Engine
	users  *memory.UserRepository
	jwt    *helpers.JWTManager
	seen   *[]events.Event
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	setupOnce.Do(func() {
		gin.SetMode(gin.TestMode)
		validation.Init()
	})

	users := memory.NewUserRepository()
	tasks := memory.NewTaskRepository(users)
	bus := events.NewMemoryBus()
	var seen []events.Event
	bus.Subscribe(func(ev events.Event) { seen = append(seen, ev) })

	jwt := helpers.NewJWTManager("test-secret", time.Hour)

	authSvc := application.NewAuthService(users, jwt, nil, nil, nil)
	taskSvc := application.NewTaskService(tasks, users, bus, nil)
	userSvc := application.NewUserService(users, nil, nil)

	engine := gin.New()
	api := engine.Group("/api")

	ah := NewAuthHandler(authSvc, nil)
	th := NewTaskHandler(taskSvc, nil)
	uh := NewUserHandler(userSvc, nil)

	api.POST("/auth/register", ah.Register)
	api.POST("/auth/login", ah.Login)

	auth := api.Group("/")
	auth.Use(middleware.Auth(jwt))
	{
		auth.GET("/auth/me", ah.Me)
		auth.PUT("/auth/me", ah.UpdateMe)

		auth.GET("/tasks", th.List)
		auth.POST("/tasks", th.Create)
		auth.GET("/tasks/:id", th.Get)
		auth.PUT("/tasks/:id", th.Update)
		auth.DELETE("/tasks/:id", th.Delete)

		auth.GET("/users/search", uh.Search)
		auth.GET("/users/:id", uh.GetByID)
		auth.GET("/users", middleware.RequireAdmin(), uh.List)
		auth.POST("/users", middleware.RequireAdmin(), uh.Create)
	}

	return &apiFixture{engine: engine, users: users, jwt: jwt, seen: &seen}
}

// signUp creates an account directly and returns its token.
func (f *apiFixture) signUp(t *testing.T, email string, role entity.Role) (string, string) {
	t.Helper()
	hash, err := helpers.HashPassword("secret1")
	require.NoError(t, err)
	u := &entity.User{Email: email, Password: hash, Role: role}
	require.NoError(t, f.users.Create(context.Background(), u))
	token, _, err := f.jwt.GenerateToken(u.ID, u.Email, string(u.Role))
	require.NoError(t, err)
	return u.ID, token
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Errors  map[string]string
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var e envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestRegisterLoginFlow(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "Alice@Example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg struct {
		Token string `json:"token"`
		User  struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &reg))
	require.NotEmpty(t, reg.Token)
	require.Equal(t, "alice@example.com", reg.User.Email)
	require.Equal(t, "user", reg.User.Role)

	// token works against a protected route
	w = f.do(t, http.MethodGet, "/api/auth/me", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// wrong password
	w = f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "wrong00",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// correct password
	w = f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "alice@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterValidationErrors(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "not-an-email", "password": "123",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	e := decode(t, w)
	require.False(t, e.Success)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/tasks", "/api/auth/me", "/api/users"} {
		w := f.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := f.do(t, http.MethodGet, "/api/tasks", "garbage.token.here", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	_, aliceTok := f.signUp(t, "alice@example.com", entity.RoleUser)
	bobID, bobTok := f.signUp(t, "bob@example.com", entity.RoleUser)

	// create with a spoofed createdBy; the server must ignore it
	w := f.do(t, http.MethodPost, "/api/tasks", aliceTok, gin.H{
		"title":      "write report",
		"assignedTo": bobID,
		"createdBy":  bobID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Task entity.ExpandedTask `json:"task"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	require.Equal(t, "alice@example.com", created.Task.CreatedBy.Email)
	require.NotNil(t, created.Task.AssignedTo)
	require.Equal(t, bobID, created.Task.AssignedTo.ID)
	require.Equal(t, entity.StatusTodo, created.Task.Status)

	id := created.Task.ID

	// assignee may update
	w = f.do(t, http.MethodPut, "/api/tasks/"+id, bobTok, gin.H{"status": "DONE"})
	require.Equal(t, http.StatusOK, w.Code)

	// null clears the assignee
	w = f.do(t, http.MethodPut, "/api/tasks/"+id, aliceTok, json.RawMessage(`{"assignedTo":null}`))
	require.Equal(t, http.StatusOK, w.Code)
	var updated struct {
		Task entity.ExpandedTask `json:"task"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &updated))
	require.Nil(t, updated.Task.AssignedTo)
	require.Equal(t, entity.StatusDone, updated.Task.Status, "absent fields stay put")

	// bob lost access with the assignment
	w = f.do(t, http.MethodGet, "/api/tasks/"+id, bobTok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodDelete, "/api/tasks/"+id, aliceTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/tasks/"+id, aliceTok, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	// mutations broadcast in order
	types := make([]string, 0, len(*f.seen))
	for _, ev := range *f.seen {
		types = append(types, ev.Type)
	}
	require.Equal(t, []string{
		events.TaskCreated, events.TaskUpdated, events.TaskUpdated, events.TaskDeleted,
	}, types)
}

func TestTaskListVisibilityAndMeta(t *testing.T) {
	f := newAPIFixture(t)
	_, aliceTok := f.signUp(t, "alice@example.com", entity.RoleUser)
	_, bobTok := f.signUp(t, "bob@example.com", entity.RoleUser)
	_, adminTok := f.signUp(t, "admin@example.com", entity.RoleAdmin)

	for i := 0; i < 3; i++ {
		w := f.do(t, http.MethodPost, "/api/tasks", aliceTok, gin.H{"title": "alice task"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w := f.do(t, http.MethodPost, "/api/tasks", bobTok, gin.H{"title": "bob task"})
	require.Equal(t, http.StatusCreated, w.Code)

	check := func(token string, want int) {
		w := f.do(t, http.MethodGet, "/api/tasks", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		e := decode(t, w)
		var data struct {
			Tasks []entity.ExpandedTask `json:"tasks"`
		}
		require.NoError(t, json.Unmarshal(e.Data, &data))
		require.Len(t, data.Tasks, want)
		var meta struct {
			Page  int `json:"page"`
			Limit int `json:"limit"`
			Total int `json:"total"`
			Pages int `json:"pages"`
		}
		require.NoError(t, json.Unmarshal(e.Meta, &meta))
		require.Equal(t, want, meta.Total)
		require.Equal(t, 1, meta.Page)
		require.Equal(t, 10, meta.Limit)
	}
	check(aliceTok, 3)
	check(bobTok, 1)
	check(adminTok, 4)

	// invalid enum filter
	w = f.do(t, http.MethodGet, "/api/tasks?status=OPEN", aliceTok, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// malformed due date
	w = f.do(t, http.MethodGet, "/api/tasks?dueDate=tomorrow", aliceTok, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserRoutesAuthorization(t *testing.T) {
	f := newAPIFixture(t)
	userID, userTok := f.signUp(t, "user@example.com", entity.RoleUser)
	otherID, _ := f.signUp(t, "other@example.com", entity.RoleUser)
	_, adminTok := f.signUp(t, "admin@example.com", entity.RoleAdmin)

	// roster is admin-only
	w := f.do(t, http.MethodGet, "/api/users", userTok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(t, http.MethodGet, "/api/users", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// so is creation
	w = f.do(t, http.MethodPost, "/api/users", userTok, gin.H{"email": "x@y.com", "password": "secret1"})
	require.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(t, http.MethodPost, "/api/users", adminTok, gin.H{"email": "x@y.com", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)

	// self or admin lookups only
	w = f.do(t, http.MethodGet, "/api/users/"+userID, userTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/api/users/"+otherID, userTok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = f.do(t, http.MethodGet, "/api/users/"+otherID, adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// search is open to any authenticated user and skips admins
	w = f.do(t, http.MethodGet, "/api/users/search?query=example", userTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Users []entity.UserRef `json:"users"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Len(t, data.Users, 2)
	for _, u := range data.Users {
		require.NotEqual(t, "admin@example.com", u.Email)
	}
}

func TestUserSearchQueryParamFilters(t *testing.T) {
	f := newAPIFixture(t)
	_, tok := f.signUp(t, "alice@example.com", entity.RoleUser)
	f.signUp(t, "bob@example.com", entity.RoleUser)

	w := f.do(t, http.MethodGet, "/api/users/search?query=bob", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Users []entity.UserRef `json:"users"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &data))
	require.Len(t, data.Users, 1, "the query parameter must narrow the result")
	require.Equal(t, "bob@example.com", data.Users[0].Email)
}

func TestUpdateProfileOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	_, tok := f.signUp(t, "user@example.com", entity.RoleUser)

	// password change needs the current password
	w := f.do(t, http.MethodPut, "/api/auth/me", tok, gin.H{
		"currentPassword": "wrong", "newPassword": "secret2",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPut, "/api/auth/me", tok, gin.H{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "user@example.com", "password": "secret2",
	})
	require.Equal(t, http.StatusOK, w.Code)
}
