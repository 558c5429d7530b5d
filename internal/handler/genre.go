package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// GenreHandler serves /genres.
type GenreHandler struct {
	Genres *repository.GenreRepo
	Log    logrus.FieldLogger
}

func NewGenreHandler(genres *repository.GenreRepo, log logrus.FieldLogger) *GenreHandler {
	return &GenreHandler{Genres: genres, Log: log}
}

type genreReq struct {
	Name *string `json:"name"`
}

func (r genreReq) apply(g *model.Genre) error {
	verr := &repository.ValidationError{}
	if r.Name != nil {
		g.Name = *r.Name
	}
	g.Name = requireName(verr, "name", g.Name)
	return verr.OrNil()
}

func (h *GenreHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	genres, err := h.Genres.List(ctx)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, genres)
}

func (h *GenreHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	g, err := h.Genres.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GenreHandler) Create(c echo.Context) error {
	var req genreReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	var g model.Genre
	if err := req.apply(&g); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Genres.Create(ctx, &g); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, g)
}

// Update handles PUT (replace) and PATCH (merge) alike: PUT starts from an
// empty genre, PATCH from the stored one.
func (h *GenreHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var req genreReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	g, err := h.Genres.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if c.Request().Method == http.MethodPut {
		*g = model.Genre{ID: id}
	}
	if err := req.apply(g); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Genres.Update(ctx, g); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, g)
}

func (h *GenreHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Genres.Delete(ctx, id); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
