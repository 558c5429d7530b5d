package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request with method, path, status and
// latency.  Server errors are logged at error level.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			entry := log.WithFields(logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"route":      c.Path(),
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"ip":         c.RealIP(),
			})
			switch {
			case res.Status >= 500:
				entry.Error("request failed")
			case res.Status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request handled")
			}
			return nil
		}
	}
}
