package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/theatre-reservation/internal/access"
	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

const testSecret = "test-secret"

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

// newServer wires Identify and Authorize the way the router does and
// echoes the resolved identity back.
func newServer(policy access.Policy) *echo.Echo {
	e := echo.New()
	h := func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": id, "role": RoleOf(c).String()})
	}
	g := e.Group("", Identify(testSecret), Authorize(policy))
	g.GET("/r", h)
	g.POST("/r", h)
	return e
}

func do(e *echo.Echo, method, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/r", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIdentifyAnonymous(t *testing.T) {
	e := echo.New()
	e.GET("/r", func(c echo.Context) error {
		id, ok := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user_id": id, "ok": ok, "role": RoleOf(c).String()})
	}, Identify(testSecret))

	rec := do(e, http.MethodGet, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":0,"ok":false,"role":"anonymous"}`, rec.Body.String())
}

func TestIdentifyRejectsBadToken(t *testing.T) {
	e := newServer(access.AdminOrAuthenticatedReadOnly)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "Basic abc").Code)
}

func TestAuthorizeAdminOrAuthenticatedReadOnly(t *testing.T) {
	e := newServer(access.AdminOrAuthenticatedReadOnly)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, bearer(t, 3, "USER")).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPost, bearer(t, 3, "USER")).Code)

	rec := do(e, http.MethodPost, bearer(t, 1, "ADMIN"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":1,"role":"admin"}`, rec.Body.String())
}

func TestAuthorizeAuthenticatedOnly(t *testing.T) {
	e := newServer(access.AuthenticatedOnly)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "").Code)

	rec := do(e, http.MethodGet, bearer(t, 9, "USER"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":9,"role":"authenticated"}`, rec.Body.String())
}

func TestTokenBucketPassThroughWithoutRedis(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	e := echo.New()
	e.Use(NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, log))
	e.GET("/r", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, do(e, http.MethodGet, "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/plays", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/plays")

	cfg := config.RateLimitConfig{Prefix: "theatre:rl", KeyStrategy: "ip_user_route"}
	assert.Equal(t, "theatre:rl:ip:10.0.0.1:user:guest:route:GET /plays", buildRateKey(cfg, c))

	c.Set(ctxUserID, uint64(12))
	cfg.KeyStrategy = "user"
	assert.Equal(t, "theatre:rl:user:12", buildRateKey(cfg, c))
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	hook := &captureHook{}
	log.AddHook(hook)

	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/r", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	rec := do(e, http.MethodGet, "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	require.Len(t, hook.entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.entries[0].Level)
	assert.Equal(t, http.StatusTeapot, hook.entries[0].Data["status"])
}

type captureHook struct{ entries []*logrus.Entry }

func (h *captureHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *captureHook) Fire(e *logrus.Entry) error {
	h.entries = append(h.entries, e)
	return nil
}
