package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/access"
)

// Authorize enforces policy for every route it wraps.  It must run after
// Identify.
func Authorize(policy access.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch access.Decide(RoleOf(c), policy, c.Request().Method) {
			case access.Unauthenticated:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			case access.Forbidden:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
