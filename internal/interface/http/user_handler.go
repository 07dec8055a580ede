package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/taskboard/internal/application"
	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/interface/middleware"
	"github.com/taskboard/taskboard/pkg/response"
	"github.com/taskboard/taskboard/pkg/validation"
)

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// List GET /api/users (admin)
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Svc.List(c.Request.Context(), middleware.ActorFromCtx(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": users}, "users", nil)
}

// Create POST /api/users (admin)
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "validation failed", validation.ToDetails(err))
		return
	}
	role := entity.Role(req.Role)
	if role == "" {
		role = entity.RoleUser
	}
	u, err := h.Svc.Create(c.Request.Context(), middleware.ActorFromCtx(c), req.Email, req.Password, role)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"user": u.Public()}, "user created", nil)
}

// Search GET /api/users/search?query=
// Returns up to 10 non-admin users for the assignment picker. Any
// authenticated user may call it.
func (h *UserHandler) Search(c *gin.Context) {
	refs, err := h.Svc.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"users": refs}, "users", nil)
}

// GetByID GET /api/users/:id (admin or self)
func (h *UserHandler) GetByID(c *gin.Context) {
	p, err := h.Svc.GetByID(c.Request.Context(), middleware.ActorFromCtx(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": p}, "user", nil)
}
