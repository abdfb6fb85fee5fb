package http

import (
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/application/services"
	"github.com/taskmaster/console/internal/domain/entities"
)

const (
	ctxWorkspace = "workspace"
	ctxUser      = "user"
)

// SetWorkspace attaches the request's workspace.
func SetWorkspace(c echo.Context, ws *services.Workspace) {
	c.Set(ctxWorkspace, ws)
}

// WorkspaceFrom returns the workspace the session loader attached, or nil.
func WorkspaceFrom(c echo.Context) *services.Workspace {
	ws, _ := c.Get(ctxWorkspace).(*services.Workspace)
	return ws
}

// SetUser attaches the signed-in user.
func SetUser(c echo.Context, u *entities.User) {
	c.Set(ctxUser, u)
}

// UserFrom returns the signed-in user, or nil on public pages.
func UserFrom(c echo.Context) *entities.User {
	u, _ := c.Get(ctxUser).(*entities.User)
	return u
}
