package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/access"
)

// UserID returns the authenticated user's id set by Identify.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// RoleOf returns the caller's role, Anonymous when Identify did not run.
func RoleOf(c echo.Context) access.Role {
	if r, ok := c.Get(ctxRole).(access.Role); ok {
		return r
	}
	return access.Anonymous
}

// userKey is the rate limit identity: the numeric id or "guest".
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
