package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskboard/taskboard/internal/container"
	handlers "github.com/taskboard/taskboard/internal/interface/http"
	"github.com/taskboard/taskboard/internal/interface/middleware"
	"github.com/taskboard/taskboard/pkg/helpers"
)

type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID()))
	{
		// /users/search must be registered before /users/:id
		auth.GET("/users/search", m.Handler.Search)
		auth.GET("/users/:id", m.Handler.GetByID)
		auth.GET("/users", middleware.RequireAdmin(), m.Handler.List)
		auth.POST("/users", middleware.RequireAdmin(), m.Handler.Create)
	}
}
