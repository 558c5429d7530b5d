package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// PerformanceHandler serves /performances.
type PerformanceHandler struct {
	Performances *repository.PerformanceRepo
	Media        config.MediaConfig
	Log          logrus.FieldLogger
}

func NewPerformanceHandler(performances *repository.PerformanceRepo, media config.MediaConfig, log logrus.FieldLogger) *PerformanceHandler {
	return &PerformanceHandler{Performances: performances, Media: media, Log: log}
}

type performanceReq struct {
	Play        *uint64 `json:"play"`
	TheatreHall *uint64 `json:"theatre_hall"`
	ShowTime    *string `json:"show_time"`
}

func (r performanceReq) apply(p *model.Performance) error {
	verr := &repository.ValidationError{}
	if r.Play != nil {
		p.PlayID = *r.Play
	}
	if r.TheatreHall != nil {
		p.TheatreHallID = *r.TheatreHall
	}
	if r.ShowTime != nil {
		t, err := repository.ParseShowTime(strings.TrimSpace(*r.ShowTime))
		if err != nil {
			verr.Add("show_time", err.Error())
		} else {
			p.ShowTime = t
		}
	}
	if p.PlayID == 0 {
		verr.Add("play", "this field is required")
	}
	if p.TheatreHallID == 0 {
		verr.Add("theatre_hall", "this field is required")
	}
	if p.ShowTime.IsZero() && verr.Fields["show_time"] == "" {
		verr.Add("show_time", "this field is required")
	}
	return verr.OrNil()
}

// List supports ?date=YYYY-MM-DD and ?play=<title substring>.
func (h *PerformanceHandler) List(c echo.Context) error {
	date, err := repository.ParseDate("date", c.QueryParam("date"))
	if err != nil {
		return respond(c, h.Log, err)
	}
	f := repository.PerformanceFilter{Date: date, PlayTitle: strings.TrimSpace(c.QueryParam("play"))}

	ctx, cancel := dbCtx(c)
	defer cancel()
	items, err := h.Performances.List(ctx, f)
	if err != nil {
		return respond(c, h.Log, err)
	}
	for i := range items {
		items[i].PlayImage = imageURL(h.Media.URL, items[i].PlayImage)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *PerformanceHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	d, err := h.Performances.GetDetail(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	d.Play.Image = imageURL(h.Media.URL, d.Play.Image)
	return c.JSON(http.StatusOK, d)
}

func (h *PerformanceHandler) Create(c echo.Context) error {
	var req performanceReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	var p model.Performance
	if err := req.apply(&p); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Performances.Create(ctx, &p); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PerformanceHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	var req performanceReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	p, err := h.Performances.GetByID(ctx, id)
	if err != nil {
		return respond(c, h.Log, err)
	}
	if c.Request().Method == http.MethodPut {
		*p = model.Performance{ID: id}
	}
	if err := req.apply(p); err != nil {
		return respond(c, h.Log, err)
	}
	if err := h.Performances.Update(ctx, p); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PerformanceHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Performances.Delete(ctx, id); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
