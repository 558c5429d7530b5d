// Package service holds the booking workflow and the event publisher it
// notifies.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/queue"
	"github.com/iliyamo/theatre-reservation/internal/repository"
)

// TicketInput is one requested place.
type TicketInput struct {
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
	PerformanceID uint64 `json:"performance"`
}

// publishTimeout bounds the post-commit event publish.
const publishTimeout = 3 * time.Second

// BookingService creates reservations atomically: either the reservation
// and all of its tickets are stored or nothing is.
type BookingService struct {
	db           *sql.DB
	reservations *repository.ReservationRepo
	tickets      *repository.TicketRepo
	performances *repository.PerformanceRepo
	publisher    EventPublisher
	log          logrus.FieldLogger
}

// NewBookingService wires the repositories used by a booking.  A nil
// publisher disables events.
func NewBookingService(db *sql.DB, reservations *repository.ReservationRepo, tickets *repository.TicketRepo,
	performances *repository.PerformanceRepo, publisher EventPublisher, log logrus.FieldLogger) *BookingService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &BookingService{
		db:           db,
		reservations: reservations,
		tickets:      tickets,
		performances: performances,
		publisher:    publisher,
		log:          log,
	}
}

// CreateReservation books every requested place for userID.  Seat range
// violations and unknown performances are *repository.ValidationError; a
// place someone else holds is repository.ErrSeatTaken.
func (s *BookingService) CreateReservation(ctx context.Context, userID uint64, inputs []TicketInput) (res *model.Reservation, err error) {
	if userID == 0 {
		return nil, errors.New("booking: missing user")
	}
	if len(inputs) == 0 {
		return nil, repository.NewValidationError("tickets", "at least one ticket is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	halls := make(map[uint64]model.TheatreHall, len(inputs))
	for _, in := range inputs {
		if _, ok := halls[in.PerformanceID]; ok {
			continue
		}
		hall, herr := s.performances.HallForPerformanceTx(ctx, tx, in.PerformanceID)
		if errors.Is(herr, repository.ErrNotFound) {
			return nil, repository.NewValidationError("tickets",
				fmt.Sprintf("performance %d does not exist", in.PerformanceID))
		}
		if herr != nil {
			return nil, herr
		}
		halls[in.PerformanceID] = *hall
	}
	for _, in := range inputs {
		if err = repository.ValidateSeat(in.Row, in.Seat, halls[in.PerformanceID]); err != nil {
			return nil, err
		}
	}

	res = &model.Reservation{UserID: userID}
	if err = s.reservations.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	res.Tickets = make([]model.Ticket, 0, len(inputs))
	for _, in := range inputs {
		t := model.Ticket{Row: in.Row, Seat: in.Seat, PerformanceID: in.PerformanceID, ReservationID: res.ID}
		if err = s.tickets.InsertTx(ctx, tx, halls[in.PerformanceID], &t); err != nil {
			return nil, err
		}
		res.Tickets = append(res.Tickets, t)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}

	s.publish(ctx, res)
	return res, nil
}

// publish is best effort; the reservation is already committed.
func (s *BookingService) publish(ctx context.Context, res *model.Reservation) {
	ev := queue.ReservationCreatedEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		Tickets:       make([]queue.EventTicket, 0, len(res.Tickets)),
		CreatedAt:     res.CreatedAt,
	}
	for _, t := range res.Tickets {
		ev.Tickets = append(ev.Tickets, queue.EventTicket{PerformanceID: t.PerformanceID, Row: t.Row, Seat: t.Seat})
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishReservationCreated(pctx, ev); err != nil {
		s.log.WithError(err).WithField("reservation_id", res.ID).Warn("publish reservation.created failed")
	}
}
