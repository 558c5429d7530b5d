package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// ActorHandler serves /actors.
type ActorHandler struct {
	Actors *repository.ActorRepo
	Log    logrus.FieldLogger
}

func NewActorHandler(actors *repository.ActorRepo, log logrus.FieldLogger) *ActorHandler {
	return &ActorHandler{Actors: actors, Log: log}
}

type actorReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

func (r actorReq) apply(a *model.Actor) error {
	verr := &repository.ValidationError{}
	if r.FirstName != nil {
		a.FirstName = *r.FirstName
	}
	if r.LastName != nil {
		a.LastName = *r.LastName
	}
	a.FirstName = requireName(verr, "first_name", a.FirstName)
	a.LastName = requireName(verr, "last_name", a.LastName)
	a.SetFullName()
	return verr.OrNil()
}

func (h *ActorHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	actors, err := h.Actors.List(ctx)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, actors)
}

func (h *ActorHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Actors.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *ActorHandler) Create(c echo.Context) error {
	var req actorReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	var a model.Actor
	if err := req.apply(&a); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Actors.Create(ctx, &a); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *ActorHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var req actorReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	a, err := h.Actors.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if c.Request().Method == http.MethodPut {
		*a = model.Actor{ID: id}
	}
	if err := req.apply(a); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Actors.Update(ctx, a); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *ActorHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Actors.Delete(ctx, id); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
