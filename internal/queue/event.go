// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

import "time"

// ReservationCreatedQueue is the durable queue reservation events go to.
const ReservationCreatedQueue = "reservation.created"

// ReservationCreatedEvent is published once a reservation and all of its
// tickets are committed.
type ReservationCreatedEvent struct {
	ReservationID uint64        `json:"reservation_id"`
	UserID        uint64        `json:"user_id"`
	Tickets       []EventTicket `json:"tickets"`
	CreatedAt     time.Time     `json:"created_at"`
}

// EventTicket is one booked place.
type EventTicket struct {
	PerformanceID uint64 `json:"performance_id"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
}
