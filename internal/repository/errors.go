package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no record. A miss is a
	// normal outcome for callers; test with errors.Is.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when an insert violates the unique
	// email constraint. The constraint, not the caller, resolves concurrent
	// registrations for the same address.
	ErrDuplicateEmail = errors.New("email already registered")
)
