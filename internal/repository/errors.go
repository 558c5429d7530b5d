// Package repository holds data access logic for theatre entities along
// with the error values handlers use to choose a response.  Handlers
// should translate ErrNotFound into 404, anything wrapping ErrConflict
// into 409 and *ValidationError into 400.
package repository

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict signals that a write collides with existing state, usually
// a unique key.  More specific conflicts wrap it.
var ErrConflict = errors.New("conflict")

// ErrSeatTaken is returned when a ticket for the same performance, row
// and seat already exists.
var ErrSeatTaken = fmt.Errorf("%w: seat already taken", ErrConflict)

// ErrEmailExists is returned when registering an email twice.
var ErrEmailExists = fmt.Errorf("%w: email already exists", ErrConflict)

// MySQL server error numbers the repositories care about.
const (
	mysqlDuplicateEntry = 1062
	mysqlNoReferenced   = 1452
)

// ValidationError carries field-level messages.  It is produced before a
// write reaches the database or when a foreign key points nowhere.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError with a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Add records another field message and returns the receiver.
func (e *ValidationError) Add(field, msg string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
	return e
}

// Empty reports whether no field has been recorded.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// OrNil returns nil for an empty error so callers can build errors
// incrementally and return the result directly.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// IsDuplicateKey reports whether err is a unique key violation.
func IsDuplicateKey(err error) bool { return mysqlErrorNumber(err) == mysqlDuplicateEntry }

// IsMissingReference reports whether err is a foreign key violation caused
// by a referenced row that does not exist.
func IsMissingReference(err error) bool { return mysqlErrorNumber(err) == mysqlNoReferenced }
