// @title                       Todo API
// @version                     1.0
// @description                 Multi-user todo list service with token authentication.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the session token.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/todoapp/todo-api/internal/api"
	"github.com/todoapp/todo-api/internal/api/handler"
	"github.com/todoapp/todo-api/internal/core/service"
	mongostore "github.com/todoapp/todo-api/internal/infrastructure/db/mongo"
	redisstore "github.com/todoapp/todo-api/internal/infrastructure/db/redis"
	httpserver "github.com/todoapp/todo-api/internal/infrastructure/http"
	"github.com/todoapp/todo-api/internal/pkg/config"
	"github.com/todoapp/todo-api/internal/pkg/token"
	"github.com/todoapp/todo-api/pkg/logger"
)

const serviceName = "todo-api"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		fallback := logger.New(logger.Options{Service: serviceName})
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})
	if cfg.WeakSecret() {
		log.Warn().Int("min_length", config.MinSecretLength).Msg("JWT_SECRET is shorter than recommended")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited")
		stop()
		os.Exit(1)
	}
}

// run owns every resource opened after configuration so deferred closes
// complete before main decides the exit code.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongostore.Disconnect(context.Background(), mongoClient, cfg.ShutdownTimeout); err != nil {
			log.Error().Err(err).Msg("failed to disconnect from mongodb")
		}
	}()

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}()

	userRepo := mongostore.NewUserRepository(db)
	todoRepo := mongostore.NewTodoRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	if err := todoRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("todo indexes: %w", err)
	}

	tokens, err := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}

	authService, err := service.NewAuthService(userRepo, tokens, log)
	if err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	todoService := service.NewTodoService(todoRepo, redisstore.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL), log)

	e := api.NewRouter(api.Dependencies{
		AuthService: authService,
		TodoService: todoService,
		Tokens:      tokens,
		Logger:      log,
		HealthChecks: map[string]handler.PingFunc{
			"mongodb": mongostore.HealthCheck(mongoClient),
			"redis":   redisstore.HealthCheck(rdb),
		},
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := httpserver.NewServer(e, cfg.Port, cfg.ShutdownTimeout, log)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
