package database

import "errors"

var (
	// ErrReportNotFound is returned when no archived report matches a lookup.
	ErrReportNotFound = errors.New("report not found")

	// ErrDatabaseNotFound is returned when the SQLite file does not exist
	// and Options.CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)
