// Command seed ensures the bootstrap admin account exists. Safe to run
// repeatedly: an existing account is left untouched.
package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/taskboard/taskboard/config"
	"github.com/taskboard/taskboard/internal/application"
	"github.com/taskboard/taskboard/internal/domain/entity"
	"github.com/taskboard/taskboard/internal/domain/repository"
	pginfra "github.com/taskboard/taskboard/internal/infrastructure/postgres"
	"github.com/taskboard/taskboard/pkg/helpers"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	repo := pginfra.NewUserRepository(pool)
	email := application.NormalizeEmail(cfg.SeedAdminEmail)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		logger.WithField("email", email).Info("admin account already exists")
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("lookup failed: %v", err)
	}

	hash, err := helpers.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		log.Fatalf("hash password failed: %v", err)
	}
	u := &entity.User{Email: email, Password: hash, Role: entity.RoleAdmin}
	if err := repo.Create(ctx, u); err != nil {
		log.Fatalf("create admin failed: %v", err)
	}
	logger.WithField("email", email).Info("admin account created")
}
