package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
)

// UserHandler handles user administration
type UserHandler struct {
	logger *logger.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(logger *logger.Logger) *UserHandler {
	return &UserHandler{logger: logger}
}

type userForm struct {
	ID    string
	Name  string
	Email string
	Role  string
}

type usersView struct {
	Buckets []entities.Bucket
	Users   []entities.User
	Search  string
	Role    string
	Roles   []entities.Role
	Form    userForm
	Editing string
}

// ListUsers renders the filterable user list
func (h *UserHandler) ListUsers(c echo.Context) error {
	return h.render(c, http.StatusOK, userForm{Role: string(entities.RoleEmployee)}, nil)
}

func (h *UserHandler) render(c echo.Context, status int, form userForm, formErr error) error {
	ws := WorkspaceFrom(c)
	search := strings.TrimSpace(c.QueryParam("q"))
	active := c.QueryParam("role")
	if active == "" {
		active = entities.FilterAll
	}

	state := ws.Users.List(c.Request().Context())
	view := usersView{
		Buckets: entities.UserBuckets(state.Data, search, active),
		Users:   entities.FilterUsers(state.Data, active, search),
		Search:  search,
		Role:    active,
		Roles:   entities.Roles,
		Form:    form,
		Editing: form.ID,
	}

	page := newPage(c, "Utilisateurs", "users", view)
	if state.Err != nil {
		page.Error = formError(state.Err)
	}
	if formErr != nil {
		page.Error = formError(formErr)
	}
	return c.Render(status, "users", page)
}

// CreateUser handles the new-user form
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req ports.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	form := userForm{Name: req.Name, Email: req.Email, Role: string(req.Role)}
	if _, err := WorkspaceFrom(c).Users.Create(c.Request().Context(), req); err != nil {
		h.logger.Warnw("Create user failed", "email", req.Email, "error", err)
		return h.render(c, formStatus(err), form, err)
	}
	return redirectWithNotice(c, "/users", "Utilisateur créé.")
}

// UpdateUser handles the edit-user form. An empty password keeps the
// current one.
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id := c.Param("id")
	if _, err := c.FormParams(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	req := ports.UpdateUserRequest{
		Name:  formPointer(c, "name"),
		Email: formPointer(c, "email"),
	}
	if v := formPointer(c, "role"); v != nil && *v != "" {
		role := entities.Role(*v)
		req.Role = &role
	}
	if v := formPointer(c, "password"); v != nil && *v != "" {
		req.Password = v
	}
	// Unchecked checkboxes are not submitted; the hidden marker says the
	// form carried the field.
	if formPointer(c, "isActivePresent") != nil {
		active := c.FormValue("isActive") == "true"
		req.IsActive = &active
	}

	if _, err := WorkspaceFrom(c).Users.Update(c.Request().Context(), id, req); err != nil {
		h.logger.Warnw("Update user failed", "user_id", id, "error", err)
		form := userForm{ID: id, Name: c.FormValue("name"), Email: c.FormValue("email"), Role: c.FormValue("role")}
		return h.render(c, formStatus(err), form, err)
	}
	return redirectWithNotice(c, "/users", "Utilisateur mis à jour.")
}
