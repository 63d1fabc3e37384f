package store

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a lookup by id, name or key matches no row.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a UNIQUE constraint.
	ErrConflict = errors.New("conflict")
)

// DecodeError reports a row that does not decode into its typed record.
// It is never retried: the stored data itself is wrong.
type DecodeError struct {
	Entity string // "card", "user" or "trade"
	Column string // empty when the whole row failed to scan
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("decode %s.%s: %v", e.Entity, e.Column, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Entity, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// isUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
