package model

import "time"

// Role names carried in the JWT role claim.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User represents an application user record as stored in the `users`
// table.  Staff users administer the catalog; everyone else may only read
// it and manage their own reservations.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	IsStaff      – grants the ADMIN role.
//	IsActive     – inactive users cannot log in.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	IsStaff      bool      // users.is_staff
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
}

// Role maps the staff flag to the role claim value.
func (u User) Role() string {
	if u.IsStaff {
		return RoleAdmin
	}
	return RoleUser
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is never stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
