package devbackend

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/ports"
)

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	return c.Validate(req)
}

// Auth

func (b *Backend) login(c echo.Context) error {
	var req ports.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	rec, ok := b.store.userByEmail(req.Email)
	if !ok || !passwordMatches(rec.PasswordHash, req.Password) {
		b.logger.Warnw("Login attempt with invalid credentials", "email", req.Email)
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if !rec.IsActive {
		b.logger.Warnw("Login attempt with inactive account", "email", req.Email, "user_id", rec.ID)
		return echo.NewHTTPError(http.StatusForbidden, "Account is inactive")
	}

	user := rec.User
	token, err := b.issueToken(&user)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(b.cfg.TokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	b.logger.Infow("User logged in", "user_id", user.ID)
	return c.JSON(http.StatusOK, ports.LoginResponse{Token: token, User: &user})
}

func (b *Backend) logout(c echo.Context) error {
	b.store.Revoke(tokenID(c), tokenExpiry(c))
	c.SetCookie(&http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Logged out successfully"})
}

func (b *Backend) me(c echo.Context) error {
	user, err := b.store.GetUser(currentUserID(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Projects

// visibleProject returns the project when the caller may see it. Outsiders
// get a 404 so project ids do not leak.
func (b *Backend) visibleProject(c echo.Context, id string) (*entities.Project, error) {
	project, err := b.store.GetProject(id)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if !currentRole(c).IsManager() && !project.HasMember(currentUserID(c)) {
		return nil, toHTTPError(entities.ErrProjectNotFound)
	}
	return project, nil
}

func (b *Backend) listProjects(c echo.Context) error {
	userID := currentUserID(c)
	if currentRole(c).IsManager() {
		userID = ""
	}
	return c.JSON(http.StatusOK, b.store.ListProjects(userID))
}

func (b *Backend) getProject(c echo.Context) error {
	project, err := b.visibleProject(c, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

func (b *Backend) createProject(c echo.Context) error {
	var (
		req ports.CreateProjectRequest
		doc *document
		err error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		req, doc, err = readMultipartProject(c)
		if err != nil {
			return err
		}
		if err := c.Validate(&req); err != nil {
			return err
		}
	} else if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	owner := req.OwnerID
	if owner == "" {
		owner = currentUserID(c)
	}
	project := b.store.CreateProject(entities.Project{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		OwnerID:     owner,
		Members:     []entities.ProjectMember{{UserID: owner, RoleInProject: string(entities.RoleProjectManager)}},
	}, doc)

	b.logger.Infow("Project created", "project_id", project.ID, "name", project.Name)
	return c.JSON(http.StatusCreated, project)
}

func readMultipartProject(c echo.Context) (ports.CreateProjectRequest, *document, error) {
	req := ports.CreateProjectRequest{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Status:      entities.ProjectStatus(c.FormValue("status")),
		OwnerID:     c.FormValue("ownerId"),
	}
	for field, dst := range map[string]**entities.Date{"startDate": &req.StartDate, "endDate": &req.EndDate} {
		raw := c.FormValue(field)
		if raw == "" {
			continue
		}
		d, err := entities.ParseDate(raw)
		if err != nil {
			return req, nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		*dst = &d
	}

	fh, err := c.FormFile("document")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid document")
	}
	f, err := fh.Open()
	if err != nil {
		return req, nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid document")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return req, nil, echo.NewHTTPError(http.StatusBadRequest, "Invalid document")
	}
	return req, &document{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Content:     content,
	}, nil
}

func (b *Backend) getDocument(c echo.Context) error {
	project, err := b.visibleProject(c, c.Param("id"))
	if err != nil {
		return err
	}
	doc, ok := b.store.Document(project.ID)
	if !ok {
		return errNotFound("document not found")
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+doc.Filename+`"`)
	return c.Blob(http.StatusOK, contentType, doc.Content)
}

func (b *Backend) updateProject(c echo.Context) error {
	var req ports.UpdateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	project, err := b.store.UpdateProject(c.Param("id"), func(p *entities.Project) error {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Status != nil {
			p.Status = *req.Status
		}
		if req.StartDate != nil {
			p.StartDate = req.StartDate
		}
		if req.EndDate != nil {
			p.EndDate = req.EndDate
		}
		return nil
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, project)
}

func (b *Backend) deleteProject(c echo.Context) error {
	if err := b.store.DeleteProject(c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (b *Backend) addMember(c echo.Context) error {
	var req ports.AddMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if _, err := b.store.GetUser(req.UserID); err != nil {
		return toHTTPError(err)
	}
	project, err := b.store.AddMember(c.Param("id"), entities.ProjectMember{
		UserID:        req.UserID,
		RoleInProject: req.RoleInProject,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, project)
}

func (b *Backend) listProjectTasks(c echo.Context) error {
	project, err := b.visibleProject(c, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b.store.ListProjectTasks(project.ID))
}

// Tasks

func (b *Backend) createTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var assignee *entities.User
	if req.AssigneeID != nil && *req.AssigneeID != "" {
		u, err := b.store.GetUser(*req.AssigneeID)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "assignee not found")
		}
		assignee = u
	}

	task, err := b.store.CreateTask(entities.Task{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return toHTTPError(err)
	}

	if assignee != nil {
		b.offerTask(c, task, assignee)
	}
	b.logger.Infow("Task created", "task_id", task.ID, "project_id", task.ProjectID)
	return c.JSON(http.StatusCreated, task)
}

// offerTask sends the assignee a pending assignment offer.
func (b *Backend) offerTask(c echo.Context, task *entities.Task, assignee *entities.User) {
	projectName := ""
	if p, err := b.store.GetProject(task.ProjectID); err == nil {
		projectName = p.Name
	}
	b.store.CreateNotification(entities.Notification{
		TaskID:       task.ID,
		ProjectID:    task.ProjectID,
		SenderID:     currentUserID(c),
		ReceiverID:   assignee.ID,
		EmployeeID:   assignee.ID,
		Status:       entities.NotificationPending,
		TaskTitle:    task.Title,
		ProjectName:  projectName,
		EmployeeName: assignee.Name,
	})
}

func (b *Backend) updateTask(c echo.Context) error {
	var req ports.UpdateTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	current, err := b.store.GetTask(c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	userID := currentUserID(c)
	if !currentRole(c).IsManager() {
		onlyStatus := req.Title == nil && req.Description == nil && req.Priority == nil &&
			req.AssigneeID == nil && req.DueDate == nil
		if !current.IsAssignedTo(userID) || !onlyStatus {
			b.logger.LogSecurityEvent("task_update_denied", userID, c.RealIP(), map[string]interface{}{
				"task_id": current.ID,
			})
			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}

	var reassigned *entities.User
	if req.AssigneeID != nil && *req.AssigneeID != "" && !current.IsAssignedTo(*req.AssigneeID) {
		u, err := b.store.GetUser(*req.AssigneeID)
		if err != nil {
			return echo.NewHTTPError(http.StatusNotFound, "assignee not found")
		}
		reassigned = u
	}

	task, err := b.store.UpdateTask(current.ID, func(t *entities.Task) error {
		if req.Title != nil {
			t.Title = *req.Title
		}
		if req.Description != nil {
			t.Description = *req.Description
		}
		if req.Status != nil {
			t.Status = *req.Status
		}
		if req.Priority != nil {
			t.Priority = *req.Priority
		}
		if req.DueDate != nil {
			t.DueDate = req.DueDate
		}
		if req.AssigneeID != nil {
			if *req.AssigneeID == "" {
				t.AssigneeID = nil
			} else {
				id := *req.AssigneeID
				t.AssigneeID = &id
			}
		}
		return nil
	})
	if err != nil {
		return toHTTPError(err)
	}

	if reassigned != nil {
		b.offerTask(c, task, reassigned)
	}
	return c.JSON(http.StatusOK, task)
}

func (b *Backend) deleteTask(c echo.Context) error {
	if err := b.store.DeleteTask(c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Users

func (b *Backend) listUsers(c echo.Context) error {
	return c.JSON(http.StatusOK, b.store.ListUsers())
}

func (b *Backend) createUser(c echo.Context) error {
	var req ports.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	hash, err := hashPassword(req.Password)
	if err != nil {
		return err
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	user, err := b.store.CreateUser(entities.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		IsActive: active,
	}, hash)
	if err != nil {
		return toHTTPError(err)
	}
	b.logger.LogUserAction(currentUserID(c), "create_user", map[string]interface{}{"created_user_id": user.ID})
	return c.JSON(http.StatusCreated, user)
}

func (b *Backend) updateUser(c echo.Context) error {
	var req ports.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	var newHash string
	if req.Password != nil {
		h, err := hashPassword(*req.Password)
		if err != nil {
			return err
		}
		newHash = h
	}

	user, err := b.store.UpdateUser(c.Param("id"), func(u *entities.User, hash *string) error {
		if req.Name != nil {
			u.Name = *req.Name
		}
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.Role != nil {
			u.Role = *req.Role
		}
		if req.IsActive != nil {
			u.IsActive = *req.IsActive
		}
		if newHash != "" {
			*hash = newHash
		}
		return nil
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Notifications

func (b *Backend) listNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, b.store.ListNotifications(currentUserID(c), nil))
}

func (b *Backend) pendingNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, b.store.ListNotifications(currentUserID(c), func(n *entities.Notification) bool {
		return !n.Response && n.IsPending()
	}))
}

func (b *Backend) receivedNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, b.store.ListNotifications(currentUserID(c), func(n *entities.Notification) bool {
		return n.Response
	}))
}

func (b *Backend) acceptNotification(c echo.Context) error {
	return b.answer(c, entities.NotificationAccepted)
}

func (b *Backend) refuseNotification(c echo.Context) error {
	return b.answer(c, entities.NotificationRejected)
}

// answer resolves an offer addressed to the caller and routes the outcome
// back to whoever sent it.
func (b *Backend) answer(c echo.Context, to entities.NotificationStatus) error {
	userID := currentUserID(c)
	n, err := b.store.GetNotification(c.Param("id"))
	if err != nil {
		return err
	}
	if n.ReceiverID != userID {
		return errNotFound("notification not found")
	}
	if n.Response {
		return echo.NewHTTPError(http.StatusBadRequest, "responses cannot be answered")
	}

	resolved, err := b.store.ResolveNotification(n.ID, to)
	if err != nil {
		return toHTTPError(err)
	}

	me, _ := b.store.GetUser(userID)
	switch {
	case to == entities.NotificationAccepted:
		role := string(entities.RoleEmployee)
		if me != nil {
			role = string(me.Role)
		}
		if _, err := b.store.AddMember(n.ProjectID, entities.ProjectMember{UserID: userID, RoleInProject: role}); err != nil {
			var he *echo.HTTPError
			if !errors.As(err, &he) || he.Code != http.StatusConflict {
				b.logger.Warnw("Failed to add member after acceptance", "project_id", n.ProjectID, "error", err)
			}
		}
	case n.TaskID != "":
		_, err := b.store.UpdateTask(n.TaskID, func(t *entities.Task) error {
			if t.IsAssignedTo(userID) {
				t.AssigneeID = nil
			}
			return nil
		})
		if err != nil && !errors.Is(err, entities.ErrTaskNotFound) {
			b.logger.Warnw("Failed to unassign refused task", "task_id", n.TaskID, "error", err)
		}
	}

	employeeName := n.EmployeeName
	if me != nil {
		employeeName = me.Name
	}
	b.store.CreateNotification(entities.Notification{
		TaskID:       n.TaskID,
		ProjectID:    n.ProjectID,
		SenderID:     userID,
		ReceiverID:   n.SenderID,
		EmployeeID:   userID,
		Status:       to,
		TaskTitle:    n.TaskTitle,
		ProjectName:  n.ProjectName,
		EmployeeName: employeeName,
		Response:     true,
	})

	b.logger.Infow("Notification answered", "notification_id", n.ID, "status", to)
	return c.JSON(http.StatusOK, resolved)
}
