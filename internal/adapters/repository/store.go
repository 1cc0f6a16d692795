// Package repository holds the open show-detail views.
package repository

import (
	"context"
	"time"

	"github.com/okian/koishow/internal/app/session"
)

// View is one open show-detail page and its editor session.
type View struct {
	ID       string
	ShowID   string
	Session  *session.Session
	OpenedAt time.Time
}

// Store provides access to the open views.
type Store interface {
	// Put adds a view. Returns ErrExists if the ID is taken and ErrCapacity
	// when the store is full.
	Put(ctx context.Context, v *View) error

	// Get returns a view and marks it as used.
	// Returns ErrNotFound if the view is unknown or has expired.
	Get(ctx context.Context, id string) (*View, error)

	// Delete removes a view. Returns ErrNotFound if the view is unknown.
	Delete(ctx context.Context, id string) error

	// Count returns the number of open views.
	Count(ctx context.Context) int
}
