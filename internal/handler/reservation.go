package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/config"
	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/repository"
	"github.com/iliyamo/theatre-reservation/internal/service"
)

// ReservationHandler serves /reservations.  Every route is scoped to the
// authenticated user; the user id never comes from the request body.
type ReservationHandler struct {
	Reservations *repository.ReservationRepo
	Booking      *service.BookingService
	Media        config.MediaConfig
	Log          logrus.FieldLogger
}

func NewReservationHandler(reservations *repository.ReservationRepo, booking *service.BookingService,
	media config.MediaConfig, log logrus.FieldLogger) *ReservationHandler {
	return &ReservationHandler{Reservations: reservations, Booking: booking, Media: media, Log: log}
}

type reservationReq struct {
	Tickets []service.TicketInput `json:"tickets"`
}

func (h *ReservationHandler) withURLs(d *model.ReservationDetail) {
	for i := range d.Tickets {
		pf := &d.Tickets[i].Performance
		pf.PlayImage = imageURL(h.Media.URL, pf.PlayImage)
	}
}

// List returns the caller's reservations, newest first, ten per page by
// default.
func (h *ReservationHandler) List(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := parsePage(c)
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	items, total, err := h.Reservations.ListByUser(ctx, uid, p.Size, p.offset())
	if err != nil {
		return respond(c, h.Log, err)
	}
	if len(items) == 0 && p.Number > 1 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "invalid page"})
	}
	for i := range items {
		h.withURLs(&items[i])
	}
	return c.JSON(http.StatusOK, paginated[model.ReservationDetail]{
		Count:    total,
		Next:     pageLink(c, p, p.Number+1, total),
		Previous: pageLink(c, p, p.Number-1, total),
		Results:  items,
	})
}

func (h *ReservationHandler) Get(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	d, err := h.Reservations.GetByIDForUser(ctx, id, uid)
	if err != nil {
		return respond(c, h.Log, err)
	}
	h.withURLs(d)
	return c.JSON(http.StatusOK, d)
}

// Create books all requested tickets in one transaction.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req reservationReq
	if err := bind(c, &req); err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	res, err := h.Booking.CreateReservation(ctx, uid, req.Tickets)
	if err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Delete cancels a reservation and frees its seats.
func (h *ReservationHandler) Delete(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respond(c, h.Log, err)
	}
	ctx, cancel := dbCtx(c)
	defer cancel()
	if err := h.Reservations.DeleteForUser(ctx, id, uid); err != nil {
		return respond(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
