// Package repository defines the MySQL-backed stores and the error types
// reused across them. These sentinel values allow higher layers such as
// handlers and the ticket service to distinguish between failure
// scenarios. ErrNotFound replaces sql.ErrNoRows at the package boundary,
// ErrForbidden indicates that the resource belongs to another club, and
// ErrConflict signals a uniqueness or state conflict (e.g. a slug that is
// already taken).
package repository

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource owned by another club. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// noRows maps sql.ErrNoRows to ErrNotFound and leaves other errors alone.
func noRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
