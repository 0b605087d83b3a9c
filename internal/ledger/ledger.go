// Package ledger defines the row store contract shared by the hearts,
// mastery, and streak engines, and the recompute cycle they all run.
//
// Every engine state is a small per-(user, key) record recomputed lazily
// from elapsed time on read. The store keeps a version per row; writes are
// conditional on the version observed at read, so two concurrent recomputes
// of the same stale row cannot silently clobber each other.
package ledger

import "context"

// Row is a versioned state record. Data is the JSON-encoded state owned by
// exactly one engine.
type Row struct {
	Version int64
	Data    []byte
}

// Keyed pairs a row with its key, for listing.
type Keyed struct {
	Key string
	Row Row
}

// Store is the abstract row store. Implementations map driver failures to
// ErrStoreUnavailable and lost conditional updates to ErrConflict.
type Store interface {
	// Get returns the row for (userID, key), or ErrNotFound.
	Get(ctx context.Context, userID, key string) (Row, error)

	// Insert creates the row at version 1. Returns ErrConflict if the row
	// already exists (a concurrent creator won).
	Insert(ctx context.Context, userID, key string, data []byte) (Row, error)

	// Update replaces the row's data iff its version still equals
	// expectedVersion, bumping the version. Returns ErrConflict on a lost
	// race and ErrNotFound if the row vanished.
	Update(ctx context.Context, userID, key string, expectedVersion int64, data []byte) (Row, error)

	// List returns all rows for userID whose key starts with prefix,
	// ordered by key.
	List(ctx context.Context, userID, prefix string) ([]Keyed, error)
}
