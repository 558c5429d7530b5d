package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// ReservationRepo persists reservations.  Tickets are written through
// TicketRepo inside the same transaction; reads here expand them with
// performance context.  Every read and delete is scoped to the owning user.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts a reservation for res.UserID inside tx and fills in the
// generated ID and creation time.  The caller commits or rolls back.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	out, err := tx.ExecContext(ctx, `INSERT INTO reservations (user_id) VALUES (?)`, res.UserID)
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	if err := tx.QueryRowContext(ctx, `SELECT created_at FROM reservations WHERE id = ?`, res.ID).
		Scan(&res.CreatedAt); err != nil {
		return err
	}
	res.CreatedAt = res.CreatedAt.UTC()
	return nil
}

// ListByUser returns one page of the user's reservations, newest first,
// together with the total number of reservations the user has.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.ReservationDetail, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM reservations WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.ReservationDetail, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(&d.ID, &d.CreatedAt); err != nil {
			return nil, 0, err
		}
		d.CreatedAt = d.CreatedAt.UTC()
		d.Tickets = make([]model.TicketDetail, 0)
		index[d.ID] = len(out)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return out, total, nil
	}

	ids := make([]uint64, 0, len(out))
	for _, d := range out {
		ids = append(ids, d.ID)
	}
	tickets, err := ticketDetails(ctx, r.db, `t.reservation_id IN (`+placeholders(len(ids))+`)`, idArgs(ids)...)
	if err != nil {
		return nil, 0, err
	}
	for _, t := range tickets {
		d := &out[index[t.reservationID]]
		d.Tickets = append(d.Tickets, t.TicketDetail)
	}
	return out, total, nil
}

// GetByIDForUser returns a reservation only when it belongs to userID.
// Foreign reservations are reported as ErrNotFound.
func (r *ReservationRepo) GetByIDForUser(ctx context.Context, reservationID, userID uint64) (*model.ReservationDetail, error) {
	var d model.ReservationDetail
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at FROM reservations WHERE id = ? AND user_id = ?`, reservationID, userID).
		Scan(&d.ID, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	tickets, err := ticketDetails(ctx, r.db, `t.reservation_id = ?`, d.ID)
	if err != nil {
		return nil, err
	}
	d.Tickets = make([]model.TicketDetail, 0, len(tickets))
	for _, t := range tickets {
		d.Tickets = append(d.Tickets, t.TicketDetail)
	}
	return &d, nil
}

// DeleteForUser removes the user's reservation; its tickets go with it
// and the seats become available again.
func (r *ReservationRepo) DeleteForUser(ctx context.Context, reservationID, userID uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reservations WHERE id = ? AND user_id = ?`, reservationID, userID)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

type reservationTicket struct {
	model.TicketDetail
	reservationID uint64
}

// ticketDetails loads tickets matching cond with their performance summary.
func ticketDetails(ctx context.Context, q querier, cond string, args ...any) ([]reservationTicket, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT t.id, t.reservation_id, t.row_num, t.seat_num,
		        pf.id, pf.show_time, p.title, p.image, h.name, h.num_rows, h.seats_in_row,
		        h.num_rows * h.seats_in_row -
		          (SELECT COUNT(*) FROM tickets sold WHERE sold.performance_id = pf.id)
		 FROM tickets t
		 JOIN performances pf ON pf.id = t.performance_id
		 JOIN plays p ON p.id = pf.play_id
		 JOIN theatre_halls h ON h.id = pf.theatre_hall_id
		 WHERE `+cond+`
		 ORDER BY t.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []reservationTicket
	for rows.Next() {
		var (
			t                    reservationTicket
			image                sql.NullString
			hallRows, seatsInRow int
		)
		pf := &t.Performance
		if err := rows.Scan(&t.ID, &t.reservationID, &t.Row, &t.Seat,
			&pf.ID, &pf.ShowTime, &pf.PlayTitle, &image, &pf.TheatreHallName, &hallRows, &seatsInRow,
			&pf.TicketsAvailable); err != nil {
			return nil, err
		}
		pf.ShowTime = pf.ShowTime.UTC()
		pf.PlayImage = nullStringPtr(image)
		pf.TheatreHallCapacity = hallRows * seatsInRow
		out = append(out, t)
	}
	return out, rows.Err()
}
