package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/theatre-reservation/internal/model"
	"github.com/iliyamo/theatre-reservation/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,is_staff,is_active,created_at"

// Create hashes password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password string, isStaff bool, cost int) (uint64, error) {
	email = NormalizeEmail(email)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, is_staff) VALUES (?,?,?)",
		email, hash, isStaff)
	if err != nil {
		if IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsStaff, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
