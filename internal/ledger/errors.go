package ledger

import "errors"

var (
	// ErrNotFound indicates the row does not exist. The engines recover by
	// lazy initialization; callers never see it.
	ErrNotFound = errors.New("ledger: row not found")

	// ErrConflict indicates a conditional update lost a race. Mutate
	// retries; callers see ErrConcurrentModification if retries run out.
	ErrConflict = errors.New("ledger: version conflict")

	// ErrConcurrentModification is surfaced after the recompute cycle lost
	// the version race on every retry.
	ErrConcurrentModification = errors.New("ledger: concurrent modification")

	// ErrStoreUnavailable wraps transient persistence failures. Callers may
	// retry; no engine state was mutated.
	ErrStoreUnavailable = errors.New("ledger: store unavailable")
)
