package database

import "errors"

var (
	// ErrNotFound is returned when a requested project does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedDriver is returned for a driver other than sqlite or postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrDatabaseNotExist is returned when the SQLite file is missing and
	// creation was not requested.
	ErrDatabaseNotExist = errors.New("database does not exist")
)
