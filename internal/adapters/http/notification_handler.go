package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// NotificationHandler serves the notification panels
type NotificationHandler struct {
	logger *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(logger *logger.Logger) *NotificationHandler {
	return &NotificationHandler{logger: logger}
}

// NotificationItem is the JSON shape the dashboard refresher renders.
type NotificationItem struct {
	ID           string                      `json:"id"`
	Kind         entities.NotificationKind   `json:"kind"`
	Status       entities.NotificationStatus `json:"status"`
	Task         string                      `json:"task"`
	Project      string                      `json:"project"`
	EmployeeName string                      `json:"employeeName,omitempty"`
	Invite       bool                        `json:"invite"`
	CreatedAt    time.Time                   `json:"createdAt"`
}

func notificationItems(ns []entities.Notification) []NotificationItem {
	items := make([]NotificationItem, 0, len(ns))
	for i := range ns {
		n := &ns[i]
		items = append(items, NotificationItem{
			ID:           n.ID,
			Kind:         n.Kind(),
			Status:       n.Status,
			Task:         n.TaskLabel(),
			Project:      n.ProjectLabel(),
			EmployeeName: n.EmployeeName,
			Invite:       n.IsProjectInvite(),
			CreatedAt:    n.CreatedAt,
		})
	}
	return items
}

// Inbox returns the caller's offers, refetched from the backend
func (h *NotificationHandler) Inbox(c echo.Context) error {
	ws := WorkspaceFrom(c)
	ws.Notifications.Refetch()
	state := ws.Notifications.Inbox(c.Request().Context(), UserFrom(c).Role)
	if state.Err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, formError(state.Err))
	}
	return c.JSON(http.StatusOK, notificationItems(state.Data))
}

// Received returns the answers to the caller's offers, refetched from the
// backend
func (h *NotificationHandler) Received(c echo.Context) error {
	ws := WorkspaceFrom(c)
	ws.Notifications.Refetch()
	state := ws.Notifications.Received(c.Request().Context())
	if state.Err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, formError(state.Err))
	}
	return c.JSON(http.StatusOK, notificationItems(state.Data))
}

// Accept accepts an offer from the dashboard
func (h *NotificationHandler) Accept(c echo.Context) error {
	id := c.Param("id")
	if err := WorkspaceFrom(c).Notifications.Accept(c.Request().Context(), id); err != nil {
		return redirectWithError(c, "/dashboard", err)
	}
	return redirectWithNotice(c, "/dashboard", "Affectation acceptée.")
}

// Refuse refuses an offer from the dashboard
func (h *NotificationHandler) Refuse(c echo.Context) error {
	id := c.Param("id")
	if err := WorkspaceFrom(c).Notifications.Refuse(c.Request().Context(), id); err != nil {
		return redirectWithError(c, "/dashboard", err)
	}
	return redirectWithNotice(c, "/dashboard", "Affectation refusée.")
}
