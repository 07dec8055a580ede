package router

import (
	"github.com/taskboard/taskboard/internal/application"
	"github.com/taskboard/taskboard/internal/container"
	pginfra "github.com/taskboard/taskboard/internal/infrastructure/postgres"
	handlers "github.com/taskboard/taskboard/internal/interface/http"
	"github.com/taskboard/taskboard/internal/router/modules"
)

// InitModules builds every feature module from the container singletons and
// registers it with the router registry. Called once during startup.
func InitModules(r *Registry) {
	logger := container.GetLogger()

	userRepo := pginfra.NewUserRepository(container.GetPGPool())
	taskRepo := pginfra.NewTaskRepository(container.GetPGPool())

	indexer := application.NewUserIndexer(container.GetES(), container.GetConfig().ESUsersIndex, logger)

	authSvc := application.NewAuthService(userRepo, container.GetJWT(), container.GetRedis(), indexer, logger)
	taskSvc := application.NewTaskService(taskRepo, userRepo, container.GetBus(), logger)
	userSvc := application.NewUserService(userRepo, indexer, logger)

	r.Add(modules.NewAuthModule(handlers.NewAuthHandler(authSvc, logger), container.GetJWT()))
	r.Add(modules.NewTaskModule(handlers.NewTaskHandler(taskSvc, logger), container.GetJWT()))
	r.Add(modules.NewUserModule(handlers.NewUserHandler(userSvc, logger), container.GetJWT()))
}
