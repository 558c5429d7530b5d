package model

import "time"

// Reservation groups one or more tickets bought by a user in a single
// request.  A reservation owns its tickets; deleting it removes them.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – user who made the reservation (taken from the session).
//	CreatedAt – creation timestamp set by the database.
//	Tickets   – tickets created together with the reservation.
type Reservation struct {
	ID        uint64    `json:"id"`         // reservations.id
	UserID    uint64    `json:"-"`          // reservations.user_id
	CreatedAt time.Time `json:"created_at"` // reservations.created_at
	Tickets   []Ticket  `json:"tickets"`
}

// Ticket holds a single seat in one performance.  The triple
// (PerformanceID, Row, Seat) is unique across all tickets.
type Ticket struct {
	ID            uint64 `json:"id"`          // tickets.id
	Row           int    `json:"row"`         // tickets.row_num
	Seat          int    `json:"seat"`        // tickets.seat_num
	PerformanceID uint64 `json:"performance"` // tickets.performance_id
	ReservationID uint64 `json:"-"`           // tickets.reservation_id
}

// TicketDetail is a ticket with enough performance context to display it
// in a reservation listing.
type TicketDetail struct {
	ID          uint64              `json:"id"`
	Row         int                 `json:"row"`
	Seat        int                 `json:"seat"`
	Performance PerformanceListItem `json:"performance"`
}

// ReservationDetail is a reservation with expanded tickets.
type ReservationDetail struct {
	ID        uint64         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Tickets   []TicketDetail `json:"tickets"`
}
