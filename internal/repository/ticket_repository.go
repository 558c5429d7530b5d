package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// TicketRepo writes tickets.  There is no update path: a ticket is created
// with its reservation and removed only when the reservation is deleted.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// ValidateSeat checks that row and seat fall inside the hall grid.  Rows
// are checked before seats and only the first violation is reported.
func ValidateSeat(row, seat int, hall model.TheatreHall) error {
	checks := []struct {
		field, hallField string
		value, limit     int
	}{
		{"row", "rows", row, hall.Rows},
		{"seat", "seats_in_row", seat, hall.SeatsInRow},
	}
	for _, c := range checks {
		if c.value < 1 || c.value > c.limit {
			return NewValidationError(c.field, fmt.Sprintf(
				"%s number must be in available range: (1, %s): (1, %d)", c.field, c.hallField, c.limit))
		}
	}
	return nil
}

// InsertTx validates t against hall and inserts it inside tx.  A second
// ticket for the same performance, row and seat yields ErrSeatTaken.
func (r *TicketRepo) InsertTx(ctx context.Context, tx *sql.Tx, hall model.TheatreHall, t *model.Ticket) error {
	if err := ValidateSeat(t.Row, t.Seat, hall); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (row_num, seat_num, performance_id, reservation_id) VALUES (?, ?, ?, ?)`,
		t.Row, t.Seat, t.PerformanceID, t.ReservationID)
	if err != nil {
		if IsDuplicateKey(err) {
			return fmt.Errorf("performance %d row %d seat %d: %w", t.PerformanceID, t.Row, t.Seat, ErrSeatTaken)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}
