package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// HallHandler serves /theatre-halls.
type HallHandler struct {
	Halls *repository.HallRepo
	Log   logrus.FieldLogger
}

func NewHallHandler(halls *repository.HallRepo, log logrus.FieldLogger) *HallHandler {
	return &HallHandler{Halls: halls, Log: log}
}

type hallReq struct {
	Name       *string `json:"name"`
	Rows       *int    `json:"rows"`
	SeatsInRow *int    `json:"seats_in_row"`
}

func (r hallReq) apply(hall *model.TheatreHall) error {
	verr := &repository.ValidationError{}
	if r.Name != nil {
		hall.Name = *r.Name
	}
	if r.Rows != nil {
		hall.Rows = *r.Rows
	}
	if r.SeatsInRow != nil {
		hall.SeatsInRow = *r.SeatsInRow
	}
	hall.Name = requireName(verr, "name", hall.Name)
	if hall.Rows < 1 {
		verr.Add("rows", "rows must be a positive integer")
	}
	if hall.SeatsInRow < 1 {
		verr.Add("seats_in_row", "seats_in_row must be a positive integer")
	}
	hall.ComputeCapacity()
	return verr.OrNil()
}

func (h *HallHandler) List(c echo.Context) error {
	ctx, cancel := dbCtx(c)
	defer cancel()
	halls, err := h.Halls.List(ctx)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, halls)
}

func (h *HallHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	hall, err := h.Halls.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, hall)
}

func (h *HallHandler) Create(c echo.Context) error {
	var req hallReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	var hall model.TheatreHall
	if err := req.apply(&hall); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Halls.Create(ctx, &hall); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, hall)
}

func (h *HallHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var req hallReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	hall, err := h.Halls.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if c.Request().Method == http.MethodPut {
		*hall = model.TheatreHall{ID: id}
	}
	if err := req.apply(hall); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Halls.Update(ctx, hall); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, hall)
}

func (h *HallHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Halls.Delete(ctx, id); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
