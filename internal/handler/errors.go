package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// respond maps a repository or service error onto an HTTP response.
// Unexpected errors are logged and reported without detail.
func respond(c echo.Context, log logrus.FieldLogger, err error) error {
	var (
		verr *repository.ValidationError
		herr *echo.HTTPError
	)
	switch {
	case errors.As(err, &herr):
		return herr
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"errors": verr.Fields})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrSeatTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seat already taken"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	}
	log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request().Method,
		"path":   c.Request().URL.Path,
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}
