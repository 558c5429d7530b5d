package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/access"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

// Context keys set by Identify.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Identify resolves the caller from an optional Bearer access token.  A
// request without an Authorization header continues as anonymous; a header
// carrying a bad token is rejected with 401 so clients notice expiry.
func Identify(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				c.Set(ctxRole, access.Anonymous)
				return next(c)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRole, access.RoleFromClaim(claims.Role))
			return next(c)
		}
	}
}
