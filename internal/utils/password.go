package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch means the hash is well formed but the password is wrong.
var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword bcrypt-hashes plain.  A cost outside bcrypt's range falls
// back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword returns nil when plain matches hash, ErrPasswordMismatch
// for a wrong password, and the bcrypt error for a damaged hash.
func VerifyPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}
