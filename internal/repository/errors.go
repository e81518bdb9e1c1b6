// Package repository persists drivers, routes, trips, samples and the login
// session in the agent's local SQLite database.
package repository

import (
	"errors"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrTripNotFound      = errors.New("trip not found")
	ErrActiveTripExists  = errors.New("driver already has an active trip")
	ErrInvalidTransition = errors.New("invalid trip status transition")
	ErrTripNotActive     = errors.New("trip is not active")
)

// isUniqueViolation reports whether err is a UNIQUE index failure
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
