package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/services"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
)

// ProjectHandler handles the project list and project detail pages
type ProjectHandler struct {
	now    func() time.Time
	logger *logger.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(now func() time.Time, logger *logger.Logger) *ProjectHandler {
	if now == nil {
		now = time.Now
	}
	return &ProjectHandler{now: now, logger: logger}
}

type projectForm struct {
	Name        string
	Description string
	Status      string
	StartDate   string
	EndDate     string
}

type projectsView struct {
	Buckets   []entities.Bucket
	Projects  []entities.Project
	Search    string
	Status    string
	Statuses  []entities.ProjectStatus
	CanManage bool
	Form      projectForm
}

// ListProjects renders the filterable project list
func (h *ProjectHandler) ListProjects(c echo.Context) error {
	return h.renderList(c, http.StatusOK, projectForm{Status: string(entities.ProjectStatusPlanned)}, nil)
}

func (h *ProjectHandler) renderList(c echo.Context, status int, form projectForm, formErr error) error {
	ws := WorkspaceFrom(c)
	user := UserFrom(c)
	search := strings.TrimSpace(c.QueryParam("q"))
	active := c.QueryParam("status")
	if active == "" {
		active = entities.FilterAll
	}

	state := ws.Projects.List(c.Request().Context())
	view := projectsView{
		Buckets:   entities.ProjectBuckets(state.Data, search, active),
		Projects:  entities.FilterProjects(state.Data, active, search),
		Search:    search,
		Status:    active,
		Statuses:  entities.ProjectStatuses,
		CanManage: user.IsManager(),
		Form:      form,
	}

	page := newPage(c, "Projets", "projects", view)
	if state.Err != nil {
		page.Error = formError(state.Err)
	}
	if formErr != nil {
		page.Error = formError(formErr)
	}
	return c.Render(status, "projects", page)
}

// CreateProject handles the new-project form, with an optional document
func (h *ProjectHandler) CreateProject(c echo.Context) error {
	form := projectForm{
		Name:        strings.TrimSpace(c.FormValue("name")),
		Description: strings.TrimSpace(c.FormValue("description")),
		Status:      c.FormValue("status"),
		StartDate:   c.FormValue("startDate"),
		EndDate:     c.FormValue("endDate"),
	}
	req := ports.CreateProjectRequest{
		Name:        form.Name,
		Description: form.Description,
		Status:      entities.ProjectStatus(form.Status),
	}

	var err error
	if req.StartDate, err = optionalDate("startDate", form.StartDate); err != nil {
		return h.renderList(c, http.StatusUnprocessableEntity, form, err)
	}
	if req.EndDate, err = optionalDate("endDate", form.EndDate); err != nil {
		return h.renderList(c, http.StatusUnprocessableEntity, form, err)
	}

	doc, err := readDocument(c)
	if err != nil {
		return h.renderList(c, http.StatusUnprocessableEntity, form, err)
	}

	ws := WorkspaceFrom(c)
	var project *entities.Project
	if doc != nil {
		project, err = ws.Projects.CreateWithDocument(c.Request().Context(), req, *doc)
	} else {
		project, err = ws.Projects.Create(c.Request().Context(), req)
	}
	if err != nil {
		h.logger.Warnw("Create project failed", "error", err)
		return h.renderList(c, formStatus(err), form, err)
	}

	return redirectWithNotice(c, "/projects/"+project.ID, "Projet créé.")
}

func optionalDate(field, raw string) (*entities.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := entities.ParseDate(raw)
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{field: "must be a date"}}
	}
	return &d, nil
}

// readDocument returns the uploaded document, or nil when none was sent.
func readDocument(c echo.Context) (*ports.Document, error) {
	fh, err := c.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if fh.Filename == "" && fh.Size == 0 {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &ports.Document{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     content,
	}, nil
}

// MemberView is one row of a project's member list.
type MemberView struct {
	ID   string
	Name string
	Role string
}

type projectView struct {
	Project    *entities.Project
	Board      entities.Board
	Members    []MemberView
	Candidates []entities.User
	Assignees  []entities.User
	Names      map[string]string
	Overdue    map[string]bool
	CanManage  bool
	Priorities []entities.Priority
}

// ShowProject renders a project with its Kanban board
func (h *ProjectHandler) ShowProject(c echo.Context) error {
	ctx := c.Request().Context()
	ws := WorkspaceFrom(c)
	user := UserFrom(c)
	id := c.Param("id")

	detail, err := ws.Projects.Detail(ctx, id)
	if detail.Project.Data == nil {
		if err == nil || api.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "Projet introuvable")
		}
		return echo.NewHTTPError(http.StatusBadGateway, formError(err))
	}
	project := detail.Project.Data

	view := projectView{
		Project:    project,
		Board:      detail.Board(),
		Names:      map[string]string{user.ID: user.Name},
		Overdue:    make(map[string]bool),
		CanManage:  user.IsManager(),
		Priorities: []entities.Priority{entities.PriorityLow, entities.PriorityMedium, entities.PriorityHigh},
	}

	now := h.now()
	for _, col := range view.Board.Columns {
		for i := range col.Tasks {
			if col.Tasks[i].IsOverdue(now) {
				view.Overdue[col.Tasks[i].ID] = true
			}
		}
	}

	if view.CanManage {
		users := ws.Users.List(ctx)
		if users.Err != nil {
			h.logger.Warnw("User list unavailable for project page", "project_id", id, "error", users.Err)
		}
		for _, u := range users.Data {
			view.Names[u.ID] = u.Name
			if project.HasMember(u.ID) && u.Role == entities.RoleEmployee && u.IsActive {
				view.Assignees = append(view.Assignees, u)
			}
		}
		view.Candidates = entities.MemberCandidates(users.Data, project)
	}

	for _, m := range project.Members {
		name := view.Names[m.UserID]
		if name == "" {
			name = m.UserID
		}
		view.Members = append(view.Members, MemberView{ID: m.UserID, Name: name, Role: m.RoleInProject})
	}

	page := newPage(c, project.Name, "projects", view)
	if detail.Tasks.Err != nil {
		page.Error = formError(detail.Tasks.Err)
	}
	return c.Render(http.StatusOK, "project", page)
}

// AddMember handles the add-member form
func (h *ProjectHandler) AddMember(c echo.Context) error {
	id := c.Param("id")
	back := "/projects/" + id

	var req ports.AddMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := WorkspaceFrom(c).Projects.AddMember(c.Request().Context(), id, req); err != nil {
		h.logger.Warnw("Add member failed", "project_id", id, "error", err)
		return redirectWithError(c, back, err)
	}
	return redirectWithNotice(c, back, "Membre ajouté.")
}

// DeleteProject handles project deletion
func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	id := c.Param("id")
	if err := WorkspaceFrom(c).Projects.Delete(c.Request().Context(), id); err != nil {
		h.logger.Warnw("Delete project failed", "project_id", id, "error", err)
		return redirectWithError(c, "/projects/"+id, err)
	}
	return redirectWithNotice(c, "/projects", "Projet supprimé.")
}
