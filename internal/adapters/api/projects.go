package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/ports"
)

// ProjectAPI covers /projects and its sub-resources.
type ProjectAPI struct {
	client *Client
}

func NewProjectAPI(client *Client) *ProjectAPI {
	return &ProjectAPI{client: client}
}

func projectPath(id string) string {
	return "/projects/" + url.PathEscape(id)
}

func (a *ProjectAPI) List(ctx context.Context) ([]entities.Project, error) {
	var projects []entities.Project
	if err := a.client.Do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (a *ProjectAPI) Get(ctx context.Context, id string) (*entities.Project, error) {
	var project entities.Project
	if err := a.client.Do(ctx, http.MethodGet, projectPath(id), nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (a *ProjectAPI) Create(ctx context.Context, req ports.CreateProjectRequest) (*entities.Project, error) {
	var project entities.Project
	if err := a.client.Do(ctx, http.MethodPost, "/projects", req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// CreateWithDocument posts the project as multipart/form-data with the
// document under the "document" field.
func (a *ProjectAPI) CreateWithDocument(ctx context.Context, req ports.CreateProjectRequest, doc ports.Document) (*entities.Project, error) {
	fields := map[string]string{
		"name":        req.Name,
		"description": req.Description,
		"status":      string(req.Status),
	}
	if req.StartDate != nil {
		fields["startDate"] = req.StartDate.String()
	}
	if req.EndDate != nil {
		fields["endDate"] = req.EndDate.String()
	}
	if req.OwnerID != "" {
		fields["ownerId"] = req.OwnerID
	}

	body := &Multipart{
		Fields: fields,
		Files: []File{{
			Field:       "document",
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			Content:     doc.Content,
		}},
	}

	var project entities.Project
	if err := a.client.Do(ctx, http.MethodPost, "/projects", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (a *ProjectAPI) Update(ctx context.Context, id string, req ports.UpdateProjectRequest) (*entities.Project, error) {
	var project entities.Project
	if err := a.client.Do(ctx, http.MethodPatch, projectPath(id), req, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (a *ProjectAPI) Delete(ctx context.Context, id string) error {
	return a.client.Do(ctx, http.MethodDelete, projectPath(id), nil, nil)
}

// AddMember returns the updated project when the backend sends one, nil
// otherwise.
func (a *ProjectAPI) AddMember(ctx context.Context, id string, req ports.AddMemberRequest) (*entities.Project, error) {
	var project entities.Project
	if err := a.client.Do(ctx, http.MethodPost, projectPath(id)+"/members", req, &project); err != nil {
		return nil, err
	}
	if project.ID == "" {
		return nil, nil
	}
	return &project, nil
}

func (a *ProjectAPI) Tasks(ctx context.Context, id string) ([]entities.Task, error) {
	var tasks []entities.Task
	if err := a.client.Do(ctx, http.MethodGet, projectPath(id)+"/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}
