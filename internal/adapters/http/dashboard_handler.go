package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// DashboardHandler serves the landing pages
type DashboardHandler struct {
	pollInterval time.Duration
	now          func() time.Time
	logger       *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler. pollInterval is how
// often the received-responses panel refreshes itself.
func NewDashboardHandler(pollInterval time.Duration, now func() time.Time, logger *logger.Logger) *DashboardHandler {
	if now == nil {
		now = time.Now
	}
	return &DashboardHandler{pollInterval: pollInterval, now: now, logger: logger}
}

// QuickAction is a shortcut tile on the dashboard.
type QuickAction struct {
	Label string
	Href  string
}

type dashboardView struct {
	Greeting      string
	RoleLabel     string
	Actions       []QuickAction
	ProjectCount  int
	Notifications []entities.Notification
	// Pending is true for the assignee's inbox, false for a manager's
	// received responses.
	Pending          bool
	NotificationsErr string
	RefreshURL       string
	RefreshMillis    int64
}

// Greeting picks the salutation for the hour of day.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 5:
		return "Bonsoir"
	case h < 12:
		return "Bonjour"
	case h < 18:
		return "Bon après-midi"
	default:
		return "Bonsoir"
	}
}

// QuickActions lists the shortcuts a role gets. Administration entries are
// only offered to managers.
func QuickActions(role entities.Role) []QuickAction {
	actions := []QuickAction{{Label: "Projets", Href: "/projects"}}
	if role.IsManager() {
		actions = append(actions,
			QuickAction{Label: "Nouveau projet", Href: "/projects#new-project"},
			QuickAction{Label: "Utilisateurs", Href: "/users"},
		)
	}
	if role == entities.RoleClient {
		actions = append(actions, QuickAction{Label: "Mes projets", Href: "/client"})
	}
	return actions
}

// Dashboard renders the home page
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	ws := WorkspaceFrom(c)
	user := UserFrom(c)

	view := dashboardView{
		Greeting:  Greeting(h.now()),
		RoleLabel: user.Role.Label(),
		Actions:   QuickActions(user.Role),
	}

	if projects := ws.Projects.List(ctx); projects.Err == nil {
		view.ProjectCount = len(projects.Data)
	} else {
		h.logger.Warnw("Dashboard project count unavailable", "error", projects.Err)
	}

	if user.Role == entities.RoleEmployee {
		inbox := ws.Notifications.Inbox(ctx, user.Role)
		view.Pending = true
		view.Notifications = inbox.Data
		view.RefreshURL = "/notifications"
		if inbox.Err != nil {
			view.NotificationsErr = formError(inbox.Err)
		}
	} else if user.Role.IsManager() {
		received := ws.Notifications.Received(ctx)
		view.Notifications = received.Data
		view.RefreshURL = "/notifications/received"
		view.RefreshMillis = h.pollInterval.Milliseconds()
		if received.Err != nil {
			view.NotificationsErr = formError(received.Err)
		}
	}

	return c.Render(http.StatusOK, "dashboard", newPage(c, "Tableau de bord", "dashboard", view))
}

type clientView struct {
	Projects []entities.Project
}

// Client renders the projects the signed-in client belongs to
func (h *DashboardHandler) Client(c echo.Context) error {
	ws := WorkspaceFrom(c)
	user := UserFrom(c)

	state := ws.Projects.ForMember(c.Request().Context(), user.ID)
	page := newPage(c, "Mes projets", "client", clientView{Projects: state.Data})
	if state.Err != nil {
		page.Error = formError(state.Err)
	}
	return c.Render(http.StatusOK, "client", page)
}
