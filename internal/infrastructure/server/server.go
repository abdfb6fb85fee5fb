package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/taskmaster/console/internal/adapters/api"
	httpHandlers "github.com/taskmaster/console/internal/adapters/http"
	"github.com/taskmaster/console/internal/application/query"
	"github.com/taskmaster/console/internal/application/services"
	"github.com/taskmaster/console/internal/infrastructure/config"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/session"
)

// Server represents the web console
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	client   *api.Client
	cookies  *session.CookieStore
	caches   *query.Registry
	registry *prometheus.Registry
	clock    query.Clock
	now      func() time.Time
	stop     context.CancelFunc
}

// Option customises a Server
type Option func(*Server)

// WithClock replaces the clock driving cache staleness and sweeping.
func WithClock(clock query.Clock) Option {
	return func(s *Server) {
		s.clock = clock
		s.now = clock.Now
	}
}

// WithHTTPClient replaces the client used to reach the backend.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Server) {
		s.client = api.New(s.config.Backend, api.WithHTTPClient(hc), api.WithLogger(s.logger), api.WithMetrics(api.NewMetrics(s.registry)))
	}
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance
func New(cfg *config.Config, appLogger *logger.Logger, opts ...Option) (*Server, error) {
	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: services.Validator()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	renderer, err := httpHandlers.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	e.Renderer = renderer

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	s := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		registry: prometheus.NewRegistry(),
		clock:    query.RealClock(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = api.New(cfg.Backend, api.WithLogger(appLogger), api.WithMetrics(api.NewMetrics(s.registry)))
	}

	s.cookies = session.NewCookieStore(cfg.Session, appLogger)
	s.caches = query.NewRegistry(cfg.Cache.IdleTTL, s.clock, func() *query.Cache {
		return query.NewCache(
			query.WithClock(s.clock),
			query.WithDefaultStaleTime(cfg.Cache.StaleTime),
			query.WithLogger(appLogger),
		)
	}, appLogger)

	// Initialize handlers
	authHandler := httpHandlers.NewAuthHandler(appLogger)
	dashboardHandler := httpHandlers.NewDashboardHandler(cfg.Notifications.PollInterval, s.now, appLogger)
	projectHandler := httpHandlers.NewProjectHandler(s.now, appLogger)
	taskHandler := httpHandlers.NewTaskHandler(appLogger)
	userHandler := httpHandlers.NewUserHandler(appLogger)
	notificationHandler := httpHandlers.NewNotificationHandler(appLogger)

	// Setup middleware
	s.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled {
		s.setupMetrics()
	}

	// Setup routes
	s.setupRoutes(authHandler, dashboardHandler, projectHandler, taskHandler, userHandler, notificationHandler)

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Caches is the per-browser cache registry.
func (s *Server) Caches() *query.Registry {
	return s.caches
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper:      skipInfra,
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			s.logger.LogRequest(logger.Request{
				Method:    values.Method,
				URI:       values.URI,
				Status:    values.Status,
				Latency:   values.Latency,
				RemoteIP:  values.RemoteIP,
				UserAgent: values.UserAgent,
				RequestID: values.RequestID,
				Err:       values.Error,
			})
			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost},
		AllowCredentials: s.config.Security.CORSAllowedOrigins != "*",
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitRequests > 0 {
		window := s.config.Security.RateLimitWindow
		if window <= 0 {
			window = time.Minute
		}
		limit := rate.Limit(float64(s.config.Security.RateLimitRequests) / window.Seconds())
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Skipper: skipInfra,
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(
				middleware.RateLimiterMemoryStoreConfig{Rate: limit, Burst: s.config.Security.RateLimitRequests, ExpiresIn: window},
			),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(context echo.Context, err error) error {
				return echo.NewHTTPError(http.StatusForbidden, "rate limit exceeded")
			},
			DenyHandler: func(context echo.Context, identifier string, err error) error {
				s.logger.LogSecurityEvent("rate_limited", "", identifier, map[string]interface{}{
					"endpoint": context.Request().URL.Path,
				})
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			},
		}))
	}

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Project documents are uploaded through the console
	s.echo.Use(middleware.BodyLimit("10M"))

	// Timeout middleware
	if s.config.Server.WriteTimeout > 0 {
		s.echo.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Skipper: skipInfra,
			Timeout: s.config.Server.WriteTimeout,
		}))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(
	authHandler *httpHandlers.AuthHandler,
	dashboardHandler *httpHandlers.DashboardHandler,
	projectHandler *httpHandlers.ProjectHandler,
	taskHandler *httpHandlers.TaskHandler,
	userHandler *httpHandlers.UserHandler,
	notificationHandler *httpHandlers.NotificationHandler,
) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Embedded assets
	s.echo.GET("/static/*", echo.WrapHandler(httpHandlers.StaticHandler()))

	// Everything below needs a session and passes the route guard
	web := s.echo.Group("", s.RouteGuard, s.sessionLoader)

	web.GET("/login", authHandler.ShowLogin)
	web.POST("/login", authHandler.Login)
	web.POST("/logout", authHandler.Logout)

	managers := s.RequireRole()

	web.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/dashboard")
	}, s.requireUser)
	web.GET("/dashboard", dashboardHandler.Dashboard, s.requireUser)
	web.GET("/client", dashboardHandler.Client, s.requireUser)

	projectGroup := web.Group("/projects", s.requireUser)
	projectGroup.GET("", projectHandler.ListProjects)
	projectGroup.POST("", projectHandler.CreateProject, managers)
	projectGroup.GET("/:id", projectHandler.ShowProject)
	projectGroup.POST("/:id/members", projectHandler.AddMember, managers)
	projectGroup.POST("/:id/delete", projectHandler.DeleteProject, managers)

	taskGroup := web.Group("/tasks", s.requireUser)
	taskGroup.POST("", taskHandler.CreateTask, managers)
	taskGroup.POST("/:id", taskHandler.UpdateTask)
	taskGroup.POST("/:id/advance", taskHandler.AdvanceTask)
	taskGroup.POST("/:id/delete", taskHandler.DeleteTask, managers)

	userGroup := web.Group("/users", s.requireUser, managers)
	userGroup.GET("", userHandler.ListUsers)
	userGroup.POST("", userHandler.CreateUser)
	userGroup.POST("/:id", userHandler.UpdateUser)

	notificationGroup := web.Group("/notifications", s.requireUser)
	notificationGroup.GET("", notificationHandler.Inbox)
	notificationGroup.GET("/received", notificationHandler.Received, managers)
	notificationGroup.POST("/:id/accept", notificationHandler.Accept)
	notificationGroup.POST("/:id/refuse", notificationHandler.Refuse)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Total number of HTTP requests served by the console",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Console HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	s.registry.MustRegister(requestsTotal, requestDuration)

	// Custom metrics middleware
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	// Metrics endpoint
	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   s.now().UTC().Format(time.RFC3339),
	})
}

// readinessCheck reports whether the backend answers at all. Any HTTP
// status counts, an unauthenticated /auth/me included.
func (s *Server) readinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := s.client.Do(ctx, http.MethodGet, "/auth/me", nil, nil)
	if api.IsNetwork(err) {
		s.logger.Warnw("Backend unreachable", "base_url", s.client.BaseURL(), "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not ready",
			"backend": "unreachable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"backend": "ok",
	})
}

// Start starts the server and the idle-cache sweeper
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.caches.Run(ctx)

	address := s.config.Server.Addr()
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	s.logger.Infow("Starting web console",
		"address", address,
		"backend", s.client.BaseURL(),
		"environment", s.config.App.Environment,
	)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down web console")
	if s.stop != nil {
		s.stop()
	}
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders the error page, or JSON for the endpoints
// scripts call.
func customErrorHandler(appLogger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Erreur interne du serveur"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			appLogger.Errorw("Request error", "error", err, "path", c.Request().URL.Path, "status", code)
		} else {
			appLogger.Debugw("Request error", "error", err, "path", c.Request().URL.Path, "status", code)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else if wantsJSON(c) {
			err = c.JSON(code, map[string]string{"message": message})
		} else {
			err = httpHandlers.RenderError(c, code, message)
		}
		if err != nil {
			appLogger.Errorw("Failed to write error response", "error", err)
		}
	}
}
