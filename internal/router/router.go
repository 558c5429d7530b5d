// Package router maps HTTP verbs and paths to handlers.  Every API route
// and the policy guarding it are listed in one table so access rules can
// be reviewed and tested in a single place.
package router

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-reservation/internal/access"
	"github.com/iliyamo/theatre-reservation/internal/handler"
	"github.com/iliyamo/theatre-reservation/internal/middleware"
)

// APIPrefix is the path prefix of every API route.
const APIPrefix = "/v1"

// Handlers bundles the resource handlers the table points at.
type Handlers struct {
	Auth         *handler.AuthHandler
	Genres       *handler.GenreHandler
	Actors       *handler.ActorHandler
	Halls        *handler.HallHandler
	Plays        *handler.PlayHandler
	Performances *handler.PerformanceHandler
	Reservations *handler.ReservationHandler
}

// Route is one entry of the table.  Public routes skip authorization;
// the rest are checked against Policy.
type Route struct {
	Method  string
	Path    string
	Handler echo.HandlerFunc
	Policy  access.Policy
	Public  bool
}

type crud interface {
	List(echo.Context) error
	Get(echo.Context) error
	Create(echo.Context) error
	Update(echo.Context) error
	Delete(echo.Context) error
}

func resource(path string, h crud, policy access.Policy) []Route {
	item := path + "/:id"
	return []Route{
		{Method: http.MethodGet, Path: path, Handler: h.List, Policy: policy},
		{Method: http.MethodPost, Path: path, Handler: h.Create, Policy: policy},
		{Method: http.MethodGet, Path: item, Handler: h.Get, Policy: policy},
		{Method: http.MethodPut, Path: item, Handler: h.Update, Policy: policy},
		{Method: http.MethodPatch, Path: item, Handler: h.Update, Policy: policy},
		{Method: http.MethodDelete, Path: item, Handler: h.Delete, Policy: policy},
	}
}

// Routes returns the API route table, paths relative to APIPrefix.
func Routes(h Handlers) []Route {
	catalog := access.AdminOrAuthenticatedReadOnly
	var rs []Route
	rs = append(rs,
		Route{Method: http.MethodPost, Path: "/auth/register", Handler: h.Auth.Register, Public: true},
		Route{Method: http.MethodPost, Path: "/auth/login", Handler: h.Auth.Login, Public: true},
		Route{Method: http.MethodPost, Path: "/auth/refresh", Handler: h.Auth.Refresh, Public: true},
		Route{Method: http.MethodPost, Path: "/auth/refresh-access", Handler: h.Auth.RefreshAccess, Public: true},
		Route{Method: http.MethodPost, Path: "/auth/logout", Handler: h.Auth.Logout, Public: true},
		Route{Method: http.MethodGet, Path: "/auth/me", Handler: h.Auth.Me, Policy: access.AuthenticatedOnly},
	)
	rs = append(rs, resource("/genres", h.Genres, catalog)...)
	rs = append(rs, resource("/actors", h.Actors, catalog)...)
	rs = append(rs, resource("/theatre-halls", h.Halls, catalog)...)
	rs = append(rs, resource("/plays", h.Plays, catalog)...)
	rs = append(rs, Route{Method: http.MethodPost, Path: "/plays/:id/upload-image", Handler: h.Plays.UploadImage, Policy: access.AdminOnly})
	rs = append(rs, resource("/performances", h.Performances, catalog)...)
	rs = append(rs,
		Route{Method: http.MethodGet, Path: "/reservations", Handler: h.Reservations.List, Policy: access.AuthenticatedOnly},
		Route{Method: http.MethodPost, Path: "/reservations", Handler: h.Reservations.Create, Policy: access.AuthenticatedOnly},
		Route{Method: http.MethodGet, Path: "/reservations/:id", Handler: h.Reservations.Get, Policy: access.AuthenticatedOnly},
		Route{Method: http.MethodDelete, Path: "/reservations/:id", Handler: h.Reservations.Delete, Policy: access.AuthenticatedOnly},
	)
	return rs
}

// RegisterAPI mounts the table under APIPrefix.  Identify runs first so the
// extra middleware (rate limiting) can key on the caller.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, extra ...echo.MiddlewareFunc) {
	mws := append([]echo.MiddlewareFunc{middleware.Identify(jwtSecret)}, extra...)
	g := e.Group(APIPrefix, mws...)
	for _, r := range Routes(h) {
		if r.Public {
			g.Add(r.Method, r.Path, r.Handler)
			continue
		}
		g.Add(r.Method, r.Path, r.Handler, middleware.Authorize(r.Policy))
	}
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterMedia serves uploaded blobs read-only under mediaURL.
func RegisterMedia(e *echo.Echo, mediaURL, root string) {
	e.Static(mediaURL, root)
}
