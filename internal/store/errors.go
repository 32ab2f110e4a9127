package store

import "errors"

// Sentinel errors returned by store operations.
var (
	// ErrDuplicateID is returned by Load when two entries share an id.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrNotFound is returned when no entry has the requested id.
	ErrNotFound = errors.New("entry not found")

	// ErrLevelOutOfRange is returned by Find when a key has fewer levels than requested.
	ErrLevelOutOfRange = errors.New("level out of range")

	// ErrInconsistentIndex means the comment index no longer matches the entries.
	// It signals a bug, not a user error.
	ErrInconsistentIndex = errors.New("comment index inconsistent with entries")
)
