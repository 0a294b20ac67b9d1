// Package store persists per-user dialog state. The contract is a plain
// get/put keyed by user id: last writer wins, no cross-user transactions.
package store

import (
	"context"
	"time"
)

// User is one user's persisted dialog state. Data must stay
// JSON-serializable: it round-trips through the database as a JSON blob.
type User struct {
	ID        string         `db:"id"`
	Data      map[string]any `db:"-"`
	Intent    string         `db:"intent"` // previous turn's matched intent
	UpdatedAt time.Time      `db:"updated_at"`
}

// Users is the persistence contract consumed by the dispatch engine.
type Users interface {
	// Get returns the user's state, or (nil, nil) when the id is unknown.
	Get(ctx context.Context, id string) (*User, error)
	// Put upserts: insert for a new id, update otherwise.
	Put(ctx context.Context, user *User) error
	// Delete removes the user's state; no-op for an unknown id.
	Delete(ctx context.Context, id string) error
	// Close releases the underlying connection(s).
	Close() error
}
