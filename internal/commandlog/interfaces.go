package commandlog

import (
	"context"
	"time"
)

// Store defines the interface for command log persistence
type Store interface {
	// CreateEntry persists a new entry
	CreateEntry(ctx context.Context, entry *Entry) error

	// ListEntries returns the newest entries first
	ListEntries(ctx context.Context, limit int) ([]*Entry, error)

	// ListByAction returns the newest entries for one action first
	ListByAction(ctx context.Context, action string, limit int) ([]*Entry, error)

	// DeleteOlderThan removes entries recorded before cutoff and returns how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}
