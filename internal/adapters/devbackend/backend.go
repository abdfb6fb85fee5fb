// Package devbackend is an in-memory stand-in for the REST backend. It
// serves the same endpoints the console consumes, for local development and
// for tests that need a live collaborator.
package devbackend

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/taskmaster/console/docs"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/config"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// SessionCookie carries the token for clients using the cookie transport.
const SessionCookie = "session"

// Backend represents the stand-in HTTP server
type Backend struct {
	echo   *echo.Echo
	store  *Store
	cfg    config.DevBackendConfig
	logger *logger.Logger
	now    func() time.Time
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Option configures a Backend.
type Option func(*Backend)

// WithClock replaces the time source used for tokens and timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// New creates the stand-in, seeded with demo data when cfg.Seed is set.
func New(cfg config.DevBackendConfig, appLogger *logger.Logger, opts ...Option) (*Backend, error) {
	if appLogger == nil {
		appLogger = logger.NewNop()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}

	b := &Backend{
		cfg:    cfg,
		logger: appLogger.WithComponent("devbackend"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.store = NewStore(b.now)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.HTTPErrorHandler = errorHandler(b.logger)
	b.echo = e

	b.setupMiddleware()
	b.setupRoutes()

	if cfg.Seed {
		if err := b.Seed(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// setupMiddleware configures middleware
func (b *Backend) setupMiddleware() {
	b.echo.Use(middleware.Recover())
	b.echo.Use(middleware.RequestID())
	b.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
			}
			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
			}
			b.logger.Debugw("Backend request", fields...)
			return nil
		},
	}))
}

// setupRoutes configures all routes
func (b *Backend) setupRoutes() {
	managers := b.requireRole(entities.RoleAdmin, entities.RoleProjectManager)
	auth := b.authMiddleware()

	b.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	b.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	api := b.echo.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/login", b.login)
	authGroup.POST("/logout", b.logout, auth)
	authGroup.GET("/me", b.me, auth)

	projects := api.Group("/projects", auth)
	projects.GET("", b.listProjects)
	projects.POST("", b.createProject, managers)
	projects.GET("/:id", b.getProject)
	projects.PATCH("/:id", b.updateProject, managers)
	projects.DELETE("/:id", b.deleteProject, managers)
	projects.POST("/:id/members", b.addMember, managers)
	projects.GET("/:id/tasks", b.listProjectTasks)
	projects.GET("/:id/document", b.getDocument)

	tasks := api.Group("/tasks", auth)
	tasks.POST("", b.createTask, managers)
	tasks.PATCH("/:id", b.updateTask)
	tasks.DELETE("/:id", b.deleteTask, managers)

	users := api.Group("/users", auth, managers)
	users.GET("", b.listUsers)
	users.POST("", b.createUser)
	users.PATCH("/:id", b.updateUser)

	notifications := api.Group("/notifications", auth)
	notifications.GET("", b.listNotifications)
	notifications.GET("/pending", b.pendingNotifications)
	notifications.GET("/received", b.receivedNotifications)
	notifications.POST("/:id/accept", b.acceptNotification)
	notifications.POST("/:id/refuse", b.refuseNotification)
}

// Handler exposes the router, e.g. for httptest.
func (b *Backend) Handler() http.Handler {
	return b.echo
}

// Store exposes the data set for seeding and assertions.
func (b *Backend) Store() *Store {
	return b.store
}

// Start starts the HTTP server
func (b *Backend) Start(address string) error {
	b.logger.Infow("Starting dev backend", "address", address)
	return b.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (b *Backend) Shutdown(ctx context.Context) error {
	b.logger.Infow("Shutting down dev backend")
	return b.echo.Shutdown(ctx)
}
