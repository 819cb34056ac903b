package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/todoapp/todo-api/docs"
	"github.com/todoapp/todo-api/internal/api/handler"
	"github.com/todoapp/todo-api/internal/api/middleware"
	"github.com/todoapp/todo-api/internal/core/ports"
)

const bodyLimit = "1M"

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	AuthService ports.AuthService
	TodoService ports.TodoService
	Tokens      middleware.TokenVerifier
	Logger      zerolog.Logger

	// HealthChecks are pinged by GET /health/ready, keyed by dependency name.
	HealthChecks map[string]handler.PingFunc
	// CORSOrigins defaults to any origin when empty.
	CORSOrigins []string
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			handler.HeaderIdempotencyKey,
		},
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	authMiddleware := middleware.Auth(deps.Tokens, deps.Logger)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.AuthService)
	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/me", authHandler.Me, authMiddleware)

	// --- Todo routes (owner is always the token subject) ---
	todoHandler := handler.NewTodoHandler(deps.TodoService)
	todos := e.Group("/api/todos", authMiddleware)
	todos.GET("", todoHandler.List)
	todos.POST("", todoHandler.Create)
	todos.GET("/:id", todoHandler.Get)
	todos.PUT("/:id", todoHandler.Update)
	todos.DELETE("/:id", todoHandler.Delete)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.HealthChecks)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)

	// --- Operational endpoints ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
