package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// HallRepo provides CRUD for theatre halls.  Capacity is never stored; it
// is filled in on every read.
type HallRepo struct {
	db *sql.DB
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo { return &HallRepo{db: db} }

const hallColumns = `id, name, num_rows, seats_in_row`

func scanHall(row interface{ Scan(...any) error }) (model.TheatreHall, error) {
	var h model.TheatreHall
	if err := row.Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsInRow); err != nil {
		return h, err
	}
	h.ComputeCapacity()
	return h, nil
}

// List returns all halls ordered by id.
func (r *HallRepo) List(ctx context.Context) ([]model.TheatreHall, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+hallColumns+` FROM theatre_halls ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.TheatreHall, 0)
	for rows.Next() {
		h, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// GetByID retrieves a hall.  It returns ErrNotFound when no row is found.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.TheatreHall, error) {
	h, err := scanHall(r.db.QueryRowContext(ctx, `SELECT `+hallColumns+` FROM theatre_halls WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts a hall and assigns the generated ID.
func (r *HallRepo) Create(ctx context.Context, h *model.TheatreHall) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO theatre_halls (name, num_rows, seats_in_row) VALUES (?, ?, ?)`,
		h.Name, h.Rows, h.SeatsInRow)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	h.ComputeCapacity()
	return nil
}

// Update overwrites the hall's name and seating grid.  The grid may not
// shrink below a row or seat that already has a ticket.  The hall row is
// locked FOR UPDATE before the check, which waits out any booking holding
// it in share mode, so no ticket can be sold between the check and the
// write.
func (r *HallRepo) Update(ctx context.Context, h *model.TheatreHall) (err error) {
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

	if _, err = lockHallTx(ctx, tx, h.ID); err != nil {
		return err
	}
	maxRow, maxSeat, err := soldBounds(ctx, tx,
		`JOIN performances pf ON pf.id = t.performance_id WHERE pf.theatre_hall_id = ?`, h.ID)
	if err != nil {
		return err
	}
	verr := &ValidationError{}
	if h.Rows < maxRow {
		verr.Add("rows", fmt.Sprintf("tickets are sold up to row %d", maxRow))
	}
	if h.SeatsInRow < maxSeat {
		verr.Add("seats_in_row", fmt.Sprintf("tickets are sold up to seat %d", maxSeat))
	}
	if err = verr.OrNil(); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE theatre_halls SET name = ?, num_rows = ?, seats_in_row = ? WHERE id = ?`,
		h.Name, h.Rows, h.SeatsInRow, h.ID); err != nil {
		return err
	}
	h.ComputeCapacity()
	return nil
}

// lockHallTx reads a hall inside tx with an exclusive row lock.
func lockHallTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.TheatreHall, error) {
	h, err := scanHall(tx.QueryRowContext(ctx,
		`SELECT `+hallColumns+` FROM theatre_halls WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// soldBounds returns the highest sold row and seat among tickets matching
// cond, which follows "FROM tickets t".  Both are 0 when nothing is sold.
func soldBounds(ctx context.Context, q querier, cond string, args ...any) (maxRow, maxSeat int, err error) {
	err = q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(t.row_num), 0), COALESCE(MAX(t.seat_num), 0) FROM tickets t `+cond, args...).
		Scan(&maxRow, &maxSeat)
	return maxRow, maxSeat, err
}

// Delete removes a hall; its performances and their tickets cascade.
func (r *HallRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM theatre_halls WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}
