package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
)

// TaskHandler handles the Kanban board forms
type TaskHandler struct {
	logger *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(logger *logger.Logger) *TaskHandler {
	return &TaskHandler{logger: logger}
}

func projectPage(projectID string) string {
	if projectID == "" {
		return "/projects"
	}
	return "/projects/" + projectID
}

// formPointer returns the trimmed value of a submitted field, or nil when
// the form did not carry it.
func formPointer(c echo.Context, name string) *string {
	if _, ok := c.Request().PostForm[name]; !ok {
		return nil
	}
	v := strings.TrimSpace(c.FormValue(name))
	return &v
}

// CreateTask handles the new-task form
func (h *TaskHandler) CreateTask(c echo.Context) error {
	projectID := c.FormValue("projectId")
	req := ports.CreateTaskRequest{
		ProjectID:   projectID,
		Title:       strings.TrimSpace(c.FormValue("title")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Status:      entities.TaskStatus(c.FormValue("status")),
		Priority:    entities.Priority(c.FormValue("priority")),
	}
	if req.Status == "" {
		req.Status = entities.TaskStatusTodo
	}
	if req.Priority == "" {
		req.Priority = entities.PriorityMedium
	}
	if assignee := strings.TrimSpace(c.FormValue("assigneeId")); assignee != "" {
		req.AssigneeID = &assignee
	}
	due, err := optionalDate("dueDate", c.FormValue("dueDate"))
	if err != nil {
		return redirectWithError(c, projectPage(projectID), err)
	}
	req.DueDate = due

	if _, err := WorkspaceFrom(c).Tasks.Create(c.Request().Context(), req); err != nil {
		h.logger.Warnw("Create task failed", "project_id", projectID, "error", err)
		return redirectWithError(c, projectPage(projectID), err)
	}
	return redirectWithNotice(c, projectPage(projectID), "Tâche créée.")
}

// UpdateTask handles the edit-task form. Only the submitted fields change.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id := c.Param("id")
	if _, err := c.FormParams(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	projectID := c.FormValue("projectId")

	req := ports.UpdateTaskRequest{
		Title:       formPointer(c, "title"),
		Description: formPointer(c, "description"),
		AssigneeID:  formPointer(c, "assigneeId"),
	}
	if v := formPointer(c, "status"); v != nil && *v != "" {
		status := entities.TaskStatus(*v)
		req.Status = &status
	}
	if v := formPointer(c, "priority"); v != nil && *v != "" {
		priority := entities.Priority(*v)
		req.Priority = &priority
	}
	if v := formPointer(c, "dueDate"); v != nil {
		due, err := optionalDate("dueDate", *v)
		if err != nil {
			return redirectWithError(c, projectPage(projectID), err)
		}
		req.DueDate = due
	}

	if _, err := WorkspaceFrom(c).Tasks.Update(c.Request().Context(), id, req); err != nil {
		h.logger.Warnw("Update task failed", "task_id", id, "error", err)
		return redirectWithError(c, projectPage(projectID), err)
	}
	return redirectWithNotice(c, projectPage(projectID), "Tâche mise à jour.")
}

// AdvanceTask moves a task to the next Kanban column
func (h *TaskHandler) AdvanceTask(c echo.Context) error {
	ctx := c.Request().Context()
	ws := WorkspaceFrom(c)
	id := c.Param("id")
	projectID := c.FormValue("projectId")

	tasks := ws.Tasks.List(ctx, projectID)
	if tasks.Err != nil {
		return redirectWithError(c, projectPage(projectID), tasks.Err)
	}
	for _, task := range tasks.Data {
		if task.ID != id {
			continue
		}
		if _, err := ws.Tasks.Advance(ctx, task); err != nil {
			h.logger.Warnw("Advance task failed", "task_id", id, "error", err)
			return redirectWithError(c, projectPage(projectID), err)
		}
		return c.Redirect(http.StatusSeeOther, projectPage(projectID))
	}
	return echo.NewHTTPError(http.StatusNotFound, "Tâche introuvable")
}

// DeleteTask handles task deletion
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id := c.Param("id")
	projectID := c.FormValue("projectId")
	if err := WorkspaceFrom(c).Tasks.Delete(c.Request().Context(), projectID, id); err != nil {
		h.logger.Warnw("Delete task failed", "task_id", id, "error", err)
		return redirectWithError(c, projectPage(projectID), err)
	}
	return redirectWithNotice(c, projectPage(projectID), "Tâche supprimée.")
}
