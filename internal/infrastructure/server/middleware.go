package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/adapters/api"
	httpHandlers "github.com/taskmaster/console/internal/adapters/http"
	"github.com/taskmaster/console/internal/application/services"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/session"
)

// publicPaths are reachable without a session.
var publicPaths = map[string]bool{
	services.LoginPath: true,
}

// infraPrefixes bypass the guard and the session.
var infraPrefixes = []string{"/static/", "/favicon", "/health", "/ready", "/metrics"}

func skipInfra(c echo.Context) bool {
	path := c.Request().URL.Path
	for _, prefix := range infraPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// wantsJSON is true for the endpoints the dashboard script polls.
func wantsJSON(c echo.Context) bool {
	if strings.HasPrefix(c.Request().URL.Path, "/notifications") && c.Request().Method == http.MethodGet {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

// RouteGuard sends browsers without the session mirror cookie to the login
// page. It only looks at the cookie; whether the token is still accepted is
// requireUser's business.
func (s *Server) RouteGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if skipInfra(c) || publicPaths[c.Request().URL.Path] {
			return next(c)
		}
		if !s.cookies.HasMirror(c.Request()) {
			if wantsJSON(c) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Session expirée")
			}
			return c.Redirect(http.StatusSeeOther, services.LoginPath)
		}
		return next(c)
	}
}

// sessionLoader binds the browser's session cookie and cache to a fresh
// workspace for this request.
func (s *Server) sessionLoader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if skipInfra(c) {
			return next(c)
		}
		store := s.cookies.Bind(c.Response(), c.Request())
		sess := session.New(store, s.logger)
		cache := s.caches.Get(store.ID())

		requestID := c.Response().Header().Get(echo.HeaderXRequestID)
		ws := services.NewWorkspace(s.client, sess, cache, services.WorkspaceOptions{
			MeStaleTime: s.config.Cache.MeStaleTime,
			Logger:      s.logger.WithRequestID(requestID),
		})
		httpHandlers.SetWorkspace(c, ws)
		return next(c)
	}
}

// requireUser resolves the signed-in user. A rejected token has already
// been cleared by the auth service, so the browser goes back to login.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		state := httpHandlers.WorkspaceFrom(c).Auth.Current(c.Request().Context())
		if state.Err != nil {
			s.logger.Warnw("Could not resolve current user", "error", state.Err)
			if api.IsNetwork(state.Err) {
				return echo.NewHTTPError(http.StatusBadGateway, "Le serveur est injoignable.")
			}
			return echo.NewHTTPError(http.StatusBadGateway, api.Message(state.Err, "Session indisponible"))
		}
		if !state.IsAuthenticated {
			if wantsJSON(c) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Session expirée")
			}
			return c.Redirect(http.StatusSeeOther, services.LoginPath)
		}

		httpHandlers.SetUser(c, state.User)
		return next(c)
	}
}

// RequireRole lets the given roles through, managers when none are given.
// Everyone else is sent back to the dashboard.
func (s *Server) RequireRole(roles ...entities.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := httpHandlers.UserFrom(c)
			if user == nil {
				return c.Redirect(http.StatusSeeOther, services.LoginPath)
			}

			allowed := len(roles) == 0 && user.IsManager()
			for _, role := range roles {
				if user.Role == role {
					allowed = true
					break
				}
			}
			if allowed {
				return next(c)
			}

			s.logger.LogSecurityEvent("insufficient_permissions",
				user.ID,
				c.RealIP(),
				map[string]interface{}{
					"required_roles": roles,
					"user_role":      user.Role,
					"endpoint":       c.Request().URL.Path,
				})

			if wantsJSON(c) {
				return echo.NewHTTPError(http.StatusForbidden, "Accès refusé")
			}
			return c.Redirect(http.StatusSeeOther, "/dashboard")
		}
	}
}
