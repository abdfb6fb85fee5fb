package devbackend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/taskmaster/console/internal/domain/entities"
	"github.com/taskmaster/console/internal/infrastructure/logger"
)

func errConflict(format string, args ...interface{}) error {
	return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf(format, args...))
}

func errNotFound(msg string) error {
	return echo.NewHTTPError(http.StatusNotFound, msg)
}

// toHTTPError maps store and domain errors onto status codes.
func toHTTPError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, entities.ErrUserNotFound),
		errors.Is(err, entities.ErrProjectNotFound),
		errors.Is(err, entities.ErrTaskNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrNotificationResolved):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrInvalidStatus):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// errorHandler renders every failure as {"message": ...}. Validation errors
// carry one message per field.
func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  interface{}
		)

		var he *echo.HTTPError
		var verrs validator.ValidationErrors
		switch {
		case errors.As(err, &verrs):
			code = http.StatusBadRequest
			messages := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				messages = append(messages, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			msg = messages
		case errors.As(err, &he):
			code = he.Code
			msg = he.Message
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		default:
			msg = http.StatusText(code)
		}

		if code == http.StatusInternalServerError {
			log.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, map[string]interface{}{"message": msg})
			}
			if err != nil {
				log.Errorw("Error sending response", "error", err)
			}
		}
	}
}
