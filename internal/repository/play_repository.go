package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/theatre-reservation/internal/model"
)

// PlayRepo persists plays together with their genre and actor links.
// Link tables are rewritten as a whole on every create or update inside
// the same transaction as the play row.
type PlayRepo struct {
	db *sql.DB
}

// NewPlayRepo constructs a PlayRepo with the given DB handle.
func NewPlayRepo(db *sql.DB) *PlayRepo { return &PlayRepo{db: db} }

// List returns plays matching f ordered by title.  Genre and actor names
// are loaded with one extra query each for the whole page.
func (r *PlayRepo) List(ctx context.Context, f PlayFilter) ([]model.PlayListItem, error) {
	cond, args := Where(f.Predicates()...)
	rows, err := r.db.QueryContext(ctx, `SELECT p.id, p.title, p.image FROM plays p WHERE `+cond+` ORDER BY p.title, p.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.PlayListItem, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var it model.PlayListItem
		var image sql.NullString
		if err := rows.Scan(&it.ID, &it.Title, &image); err != nil {
			return nil, err
		}
		it.Image = nullStringPtr(image)
		it.Genres = []string{}
		it.Actors = []string{}
		index[it.ID] = len(out)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]uint64, 0, len(out))
	for _, it := range out {
		ids = append(ids, it.ID)
	}
	genres, err := r.db.QueryContext(ctx,
		`SELECT pg.play_id, g.name FROM play_genres pg JOIN genres g ON g.id = pg.genre_id
		 WHERE pg.play_id IN (`+placeholders(len(ids))+`) ORDER BY g.name`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer genres.Close()
	for genres.Next() {
		var pid uint64
		var name string
		if err := genres.Scan(&pid, &name); err != nil {
			return nil, err
		}
		out[index[pid]].Genres = append(out[index[pid]].Genres, name)
	}
	if err := genres.Err(); err != nil {
		return nil, err
	}

	actors, err := r.db.QueryContext(ctx,
		`SELECT pa.play_id, a.first_name, a.last_name FROM play_actors pa JOIN actors a ON a.id = pa.actor_id
		 WHERE pa.play_id IN (`+placeholders(len(ids))+`) ORDER BY a.id`, idArgs(ids)...)
	if err != nil {
		return nil, err
	}
	defer actors.Close()
	for actors.Next() {
		var pid uint64
		var first, last string
		if err := actors.Scan(&pid, &first, &last); err != nil {
			return nil, err
		}
		out[index[pid]].Actors = append(out[index[pid]].Actors, first+" "+last)
	}
	return out, actors.Err()
}

// GetByID returns the play with its genre and actor ids.
func (r *PlayRepo) GetByID(ctx context.Context, id uint64) (*model.Play, error) {
	var p model.Play
	var desc, image sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, title, description, image FROM plays WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &desc, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Description = nullStringPtr(desc)
	p.Image = nullStringPtr(image)
	if p.GenreIDs, err = linkedIDs(ctx, r.db, `SELECT genre_id FROM play_genres WHERE play_id = ? ORDER BY genre_id`, id); err != nil {
		return nil, err
	}
	if p.ActorIDs, err = linkedIDs(ctx, r.db, `SELECT actor_id FROM play_actors WHERE play_id = ? ORDER BY actor_id`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetDetail returns the play with nested genres and actors.
func (r *PlayRepo) GetDetail(ctx context.Context, id uint64) (*model.PlayDetail, error) {
	return loadPlayDetail(ctx, r.db, id)
}

func loadPlayDetail(ctx context.Context, q querier, id uint64) (*model.PlayDetail, error) {
	var d model.PlayDetail
	var desc, image sql.NullString
	err := q.QueryRowContext(ctx, `SELECT id, title, description, image FROM plays WHERE id = ?`, id).
		Scan(&d.ID, &d.Title, &desc, &image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Description = nullStringPtr(desc)
	d.Image = nullStringPtr(image)

	d.Genres = []model.Genre{}
	grows, err := q.QueryContext(ctx,
		`SELECT g.id, g.name FROM play_genres pg JOIN genres g ON g.id = pg.genre_id WHERE pg.play_id = ? ORDER BY g.name`, id)
	if err != nil {
		return nil, err
	}
	defer grows.Close()
	for grows.Next() {
		var g model.Genre
		if err := grows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		d.Genres = append(d.Genres, g)
	}
	if err := grows.Err(); err != nil {
		return nil, err
	}

	d.Actors = []model.Actor{}
	arows, err := q.QueryContext(ctx,
		`SELECT a.id, a.first_name, a.last_name FROM play_actors pa JOIN actors a ON a.id = pa.actor_id WHERE pa.play_id = ? ORDER BY a.id`, id)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var a model.Actor
		if err := arows.Scan(&a.ID, &a.FirstName, &a.LastName); err != nil {
			return nil, err
		}
		a.SetFullName()
		d.Actors = append(d.Actors, a)
	}
	return &d, arows.Err()
}

// Create inserts the play and its links in one transaction.  Unknown
// genre or actor ids roll everything back with a ValidationError.
func (r *PlayRepo) Create(ctx context.Context, p *model.Play) (err error) {
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

	res, err := tx.ExecContext(ctx, `INSERT INTO plays (title, description) VALUES (?, ?)`, p.Title, p.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return replaceLinks(ctx, tx, p)
}

// Update overwrites title, description and both link sets.  The image is
// managed separately through SetImage.
func (r *PlayRepo) Update(ctx context.Context, p *model.Play) (err error) {
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

	var exists uint64
	if err = tx.QueryRowContext(ctx, `SELECT id FROM plays WHERE id = ? FOR UPDATE`, p.ID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE plays SET title = ?, description = ? WHERE id = ?`, p.Title, p.Description, p.ID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM play_genres WHERE play_id = ?`, p.ID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM play_actors WHERE play_id = ?`, p.ID); err != nil {
		return err
	}
	return replaceLinks(ctx, tx, p)
}

// SetImage stores the storage key of the play's uploaded image.  Keys are
// unique per upload, so an unchanged row means the play is gone.
func (r *PlayRepo) SetImage(ctx context.Context, id uint64, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE plays SET image = ? WHERE id = ?`, key, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

// Delete removes a play; links, performances and tickets cascade.
func (r *PlayRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plays WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return rowsAffectedOrNotFound(res)
}

func replaceLinks(ctx context.Context, tx *sql.Tx, p *model.Play) error {
	p.GenreIDs = uniqueIDs(p.GenreIDs)
	p.ActorIDs = uniqueIDs(p.ActorIDs)
	if err := insertLinks(ctx, tx, "play_genres", "genre_id", p.ID, p.GenreIDs); err != nil {
		if IsMissingReference(err) {
			return NewValidationError("genres", "one or more genres do not exist")
		}
		return err
	}
	if err := insertLinks(ctx, tx, "play_actors", "actor_id", p.ID, p.ActorIDs); err != nil {
		if IsMissingReference(err) {
			return NewValidationError("actors", "one or more actors do not exist")
		}
		return err
	}
	return nil
}

func insertLinks(ctx context.Context, tx *sql.Tx, table, column string, playID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)*2)
	for _, id := range ids {
		values = append(values, "(?, ?)")
		args = append(args, playID, id)
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO `+table+` (play_id, `+column+`) VALUES `+strings.Join(values, ", "), args...)
	return err
}

func linkedIDs(ctx context.Context, q querier, query string, id uint64) ([]uint64, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]uint64, 0)
	for rows.Next() {
		var v uint64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
