package ledger

import (
	"context"
	"errors"
	"fmt"
)

// maxRetries bounds how many times a recompute cycle is rerun after losing
// the version race. Contention is per-user per-resource, so one retry almost
// always resolves it.
const maxRetries = 3

// InitFunc produces the default record for a row created lazily on first
// access.
type InitFunc func() ([]byte, error)

// RecomputeFunc maps stored state to new state. It returns the new data and
// whether it differs from the stored data; unchanged states are not
// rewritten.
type RecomputeFunc func(data []byte) (newData []byte, changed bool, err error)

// Mutate runs the shared read-recompute-conditionally-write cycle for one
// row. Absent rows are initialized with init and persisted before the
// recompute runs, so the first read behaves like every later read. On a
// version conflict the full cycle reruns against the fresh row; after
// maxRetries losses it surfaces ErrConcurrentModification.
func Mutate(ctx context.Context, s Store, userID, key string, init InitFunc, fn RecomputeFunc) (Row, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		row, err := s.Get(ctx, userID, key)
		if errors.Is(err, ErrNotFound) {
			data, ierr := init()
			if ierr != nil {
				return Row{}, fmt.Errorf("init %s/%s: %w", userID, key, ierr)
			}
			row, err = s.Insert(ctx, userID, key, data)
			if errors.Is(err, ErrConflict) {
				// A concurrent creator won; reread and continue.
				continue
			}
		}
		if err != nil {
			return Row{}, err
		}

		newData, changed, err := fn(row.Data)
		if err != nil {
			return Row{}, err
		}
		if !changed {
			return row, nil
		}

		updated, err := s.Update(ctx, userID, key, row.Version, newData)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if errors.Is(err, ErrNotFound) {
			// Rows are never deleted; treat a vanished row as a race.
			continue
		}
		if err != nil {
			return Row{}, err
		}
		return updated, nil
	}
	return Row{}, fmt.Errorf("%s/%s: %w", userID, key, ErrConcurrentModification)
}
