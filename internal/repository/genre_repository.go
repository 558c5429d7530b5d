package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// GenreRepo persists genres.  Names are unique; a duplicate insert or
// rename is reported as a validation error on the name field.
type GenreRepo struct {
	db *sql.DB
}

// NewGenreRepo constructs a GenreRepo with the given DB handle.
func NewGenreRepo(db *sql.DB) *GenreRepo { return &GenreRepo{db: db} }

func duplicateGenre(name string) error {
	return NewValidationError("name", fmt.Sprintf("genre with name %q already exists", name))
}

// List returns every genre ordered by name.
func (r *GenreRepo) List(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Genre, 0)
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetByID returns ErrNotFound when no genre has the id.
func (r *GenreRepo) GetByID(ctx context.Context, id uint64) (*model.Genre, error) {
	var g model.Genre
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM genres WHERE id = ?`, id).Scan(&g.ID, &g.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts g and sets its ID.
func (r *GenreRepo) Create(ctx context.Context, g *model.Genre) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO genres (name) VALUES (?)`, g.Name)
	if err != nil {
		if IsDuplicateKey(err) {
			return duplicateGenre(g.Name)
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

// Update renames a genre.  MySQL reports zero affected rows when the new
// name equals the old one, so existence is checked separately.
func (r *GenreRepo) Update(ctx context.Context, g *model.Genre) error {
	if _, err := r.GetByID(ctx, g.ID); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, `UPDATE genres SET name = ? WHERE id = ?`, g.Name, g.ID); err != nil {
		if IsDuplicateKey(err) {
			return duplicateGenre(g.Name)
		}
		return err
	}
	return nil
}

// Delete removes a genre; play links go with it via ON DELETE CASCADE.
func (r *GenreRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM genres WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}
