package repository

import "errors"

// Sentinel kinds for view store errors.
var (
	ErrNotFound = errors.New("view not found")
	ErrExists   = errors.New("view already exists")
	ErrCapacity = errors.New("too many open views")
)
