package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/ports"
)

// TaskAPI covers /tasks. Listing goes through the owning project.
type TaskAPI struct {
	client   *Client
	projects *ProjectAPI
}

func NewTaskAPI(client *Client) *TaskAPI {
	return &TaskAPI{client: client, projects: NewProjectAPI(client)}
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

func (a *TaskAPI) ListByProject(ctx context.Context, projectID string) ([]entities.Task, error) {
	return a.projects.Tasks(ctx, projectID)
}

func (a *TaskAPI) Create(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := a.client.Do(ctx, http.MethodPost, "/tasks", req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *TaskAPI) Update(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	var task entities.Task
	if err := a.client.Do(ctx, http.MethodPatch, taskPath(id), req, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (a *TaskAPI) Delete(ctx context.Context, id string) error {
	return a.client.Do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}
