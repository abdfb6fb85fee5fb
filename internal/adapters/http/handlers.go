package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/adapters/api"
	"github.com/taskmaster/console/internal/application/services"
	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
	"github.com/taskmaster/console/internal/ports"
)

const genericError = "Une erreur est survenue. Réessayez."

// Page is what every template receives.
type Page struct {
	Title  string
	Nav    string
	User   *entities.User
	Error  string
	Notice string
	Data   interface{}
}

func newPage(c echo.Context, title, nav string, data interface{}) Page {
	return Page{
		Title:  title,
		Nav:    nav,
		User:   UserFrom(c),
		Error:  c.QueryParam("error"),
		Notice: c.QueryParam("notice"),
		Data:   data,
	}
}

// formError picks the message shown in a form's error banner: field
// messages first, then the backend's message, then a generic fallback.
func formError(err error) string {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return strings.TrimPrefix(verr.Error(), "validation failed: ")
	case errors.Is(err, entities.ErrUnknownRole):
		return "Rôle utilisateur non reconnu."
	case api.IsNetwork(err):
		return "Le serveur est injoignable."
	default:
		return api.Message(err, genericError)
	}
}

// formStatus is the status a form page is re-rendered with after err.
func formStatus(err error) int {
	var verr *services.ValidationError
	var apiErr *api.APIError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrUnknownRole):
		return http.StatusForbidden
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	default:
		return http.StatusBadGateway
	}
}

// redirectWithError sends the browser back to path with a banner message.
func redirectWithError(c echo.Context, path string, err error) error {
	return c.Redirect(http.StatusSeeOther, withQuery(path, "error", formError(err)))
}

func redirectWithNotice(c echo.Context, path, notice string) error {
	return c.Redirect(http.StatusSeeOther, withQuery(path, "notice", notice))
}

func withQuery(path, key, value string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + key + "=" + url.QueryEscape(value)
}

// AuthHandler handles sign-in and sign-out
type AuthHandler struct {
	logger *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(logger *logger.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

type loginView struct {
	Email string
}

// ShowLogin renders the sign-in form, or forwards a signed-in user to their
// landing page.
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	ws := WorkspaceFrom(c)
	if state := ws.Auth.Current(c.Request().Context()); state.IsAuthenticated {
		if path, ok := entities.RoleRedirect(state.Role); ok {
			return c.Redirect(http.StatusSeeOther, path)
		}
	}
	return c.Render(http.StatusOK, "login", newPage(c, "Connexion", "login", loginView{}))
}

// Login handles the sign-in form
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	req.Email = strings.TrimSpace(req.Email)

	res, err := WorkspaceFrom(c).Auth.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.Warnw("Login failed", "email", req.Email, "error", err)
		page := newPage(c, "Connexion", "login", loginView{Email: req.Email})
		page.Error = formError(err)
		return c.Render(formStatus(err), "login", page)
	}

	return c.Redirect(http.StatusSeeOther, res.Redirect)
}

// Logout signs the browser out whatever the backend answers
func (h *AuthHandler) Logout(c echo.Context) error {
	path := WorkspaceFrom(c).Auth.Logout(c.Request().Context())
	return c.Redirect(http.StatusSeeOther, path)
}

// ErrorView is the data of the error page.
type ErrorView struct {
	Code    int
	Message string
}

// RenderError renders the error page with code.
func RenderError(c echo.Context, code int, message string) error {
	page := newPage(c, "Erreur", "", ErrorView{Code: code, Message: message})
	page.Error = ""
	return c.Render(code, "error", page)
}
