package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// PerformanceRepo persists performances and computes seat availability.
// Availability is derived from the ticket count on every read so it always
// reflects the latest committed bookings.
type PerformanceRepo struct {
	db *sql.DB
}

// NewPerformanceRepo constructs a PerformanceRepo with the given DB handle.
func NewPerformanceRepo(db *sql.DB) *PerformanceRepo { return &PerformanceRepo{db: db} }

// availabilityExpr is rows × seats_in_row − sold tickets for the grouped
// performance.  The unique (performance, row, seat) key together with seat
// bounds keeps it within [0, capacity].
const availabilityExpr = `h.num_rows * h.seats_in_row - COUNT(t.id)`

// List returns performances matching f, latest show time first.
func (r *PerformanceRepo) List(ctx context.Context, f PerformanceFilter) ([]model.PerformanceListItem, error) {
	cond, args := Where(f.Predicates()...)
	q := `SELECT pf.id, pf.show_time, p.title, p.image, h.name, h.num_rows, h.seats_in_row,
	             ` + availabilityExpr + ` AS tickets_available
	      FROM performances pf
	      JOIN plays p ON p.id = pf.play_id
	      JOIN theatre_halls h ON h.id = pf.theatre_hall_id
	      LEFT JOIN tickets t ON t.performance_id = pf.id
	      WHERE ` + cond + `
	      GROUP BY pf.id, pf.show_time, p.title, p.image, h.name, h.num_rows, h.seats_in_row
	      ORDER BY pf.show_time DESC, pf.id DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PerformanceListItem, 0)
	for rows.Next() {
		var it model.PerformanceListItem
		var image sql.NullString
		var hallRows, seatsInRow int
		if err := rows.Scan(&it.ID, &it.ShowTime, &it.PlayTitle, &image, &it.TheatreHallName,
			&hallRows, &seatsInRow, &it.TicketsAvailable); err != nil {
			return nil, err
		}
		it.PlayImage = nullStringPtr(image)
		it.TheatreHallCapacity = hallRows * seatsInRow
		it.ShowTime = it.ShowTime.UTC()
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetByID returns the bare performance row.
func (r *PerformanceRepo) GetByID(ctx context.Context, id uint64) (*model.Performance, error) {
	var p model.Performance
	err := r.db.QueryRowContext(ctx, `SELECT id, play_id, theatre_hall_id, show_time FROM performances WHERE id = ?`, id).
		Scan(&p.ID, &p.PlayID, &p.TheatreHallID, &p.ShowTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ShowTime = p.ShowTime.UTC()
	return &p, nil
}

// GetDetail returns the performance with nested play and hall, the
// availability count and every taken seat.
func (r *PerformanceRepo) GetDetail(ctx context.Context, id uint64) (*model.PerformanceDetail, error) {
	var d model.PerformanceDetail
	var playID uint64
	const q = `SELECT pf.id, pf.show_time, pf.play_id, h.id, h.name, h.num_rows, h.seats_in_row,
	                  ` + availabilityExpr + `
	           FROM performances pf
	           JOIN theatre_halls h ON h.id = pf.theatre_hall_id
	           LEFT JOIN tickets t ON t.performance_id = pf.id
	           WHERE pf.id = ?
	           GROUP BY pf.id, pf.show_time, pf.play_id, h.id, h.name, h.num_rows, h.seats_in_row`
	err := r.db.QueryRowContext(ctx, q, id).Scan(&d.ID, &d.ShowTime, &playID,
		&d.TheatreHall.ID, &d.TheatreHall.Name, &d.TheatreHall.Rows, &d.TheatreHall.SeatsInRow, &d.TicketsAvailable)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.ShowTime = d.ShowTime.UTC()
	d.TheatreHall.ComputeCapacity()

	play, err := loadPlayDetail(ctx, r.db, playID)
	if err != nil {
		return nil, err
	}
	d.Play = *play

	if d.TakenPlaces, err = takenPlaces(ctx, r.db, id); err != nil {
		return nil, err
	}
	return &d, nil
}

func takenPlaces(ctx context.Context, q querier, performanceID uint64) ([]model.Seat, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT row_num, seat_num FROM tickets WHERE performance_id = ? ORDER BY row_num, seat_num`, performanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.Row, &s.Seat); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// HallForPerformanceTx loads the hall of a performance inside tx with a
// shared lock so the grid cannot change while tickets are validated.
func (r *PerformanceRepo) HallForPerformanceTx(ctx context.Context, tx *sql.Tx, performanceID uint64) (*model.TheatreHall, error) {
	h, err := scanHall(tx.QueryRowContext(ctx,
		`SELECT h.id, h.name, h.num_rows, h.seats_in_row
		 FROM performances pf JOIN theatre_halls h ON h.id = pf.theatre_hall_id
		 WHERE pf.id = ? LOCK IN SHARE MODE`, performanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func performanceRefError(err error) error {
	if IsMissingReference(err) {
		return (&ValidationError{}).
			Add("play", "play or theatre hall does not exist").
			Add("theatre_hall", "play or theatre hall does not exist")
	}
	return err
}

// Create inserts a performance and assigns the generated ID.
func (r *PerformanceRepo) Create(ctx context.Context, p *model.Performance) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO performances (play_id, theatre_hall_id, show_time) VALUES (?, ?, ?)`,
		p.PlayID, p.TheatreHallID, p.ShowTime.UTC())
	if err != nil {
		return performanceRefError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update overwrites play, hall and show time.  The performance row and the
// target hall are locked first, and every sold ticket must still fit the
// target hall's grid.
func (r *PerformanceRepo) Update(ctx context.Context, p *model.Performance) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	var id uint64
	err = tx.QueryRowContext(ctx, `SELECT id FROM performances WHERE id = ? FOR UPDATE`, p.ID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	hall, err := lockHallTx(ctx, tx, p.TheatreHallID)
	if errors.Is(err, ErrNotFound) {
		return NewValidationError("theatre_hall", "theatre hall does not exist")
	}
	if err != nil {
		return err
	}
	maxRow, maxSeat, err := soldBounds(ctx, tx, `WHERE t.performance_id = ?`, p.ID)
	if err != nil {
		return err
	}
	if maxRow > hall.Rows || maxSeat > hall.SeatsInRow {
		return NewValidationError("theatre_hall",
			fmt.Sprintf("tickets are sold up to row %d, seat %d; hall has %d rows of %d seats",
				maxRow, maxSeat, hall.Rows, hall.SeatsInRow))
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE performances SET play_id = ?, theatre_hall_id = ?, show_time = ? WHERE id = ?`,
		p.PlayID, p.TheatreHallID, p.ShowTime.UTC(), p.ID)
	return performanceRefError(err)
}

// Delete removes a performance and its tickets.
func (r *PerformanceRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM performances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

// ErrShowTimeFormat is returned by ParseShowTime for unparseable input.
var ErrShowTimeFormat = errors.New("show_time must be RFC3339, YYYY-MM-DD HH:MM:SS or YYYY-MM-DD")

// ParseShowTime accepts RFC3339, "YYYY-MM-DD HH:MM:SS" and "YYYY-MM-DD".
// Values without a zone are taken as UTC.
func ParseShowTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrShowTimeFormat
}
