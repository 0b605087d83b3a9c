// Package hearts implements the regeneration engine: a capped counter that
// refills one unit per period, recomputed lazily from elapsed time whenever
// it is read.
package hearts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tmodak/parlo/internal/clock"
	"github.com/tmodak/parlo/internal/ledger"
)

// MinRegenPeriod floors the regeneration period. A zero or negative period
// would mean divide-by-zero or infinite regeneration.
const MinRegenPeriod = time.Second

// Config holds the defaults used when a record is created lazily.
type Config struct {
	Max         int
	RegenPeriod time.Duration
}

// DefaultConfig returns the standard five-heart, 30-minute setup.
func DefaultConfig() Config {
	return Config{
		Max:         5,
		RegenPeriod: 30 * time.Minute,
	}
}

// Service manages regenerating resource counters.
type Service struct {
	store ledger.Store
	clock clock.Clock
	cfg   Config
}

// NewService creates a regeneration engine over the given store and clock.
func NewService(store ledger.Store, clk clock.Clock, cfg Config) *Service {
	return &Service{store: store, clock: clk, cfg: cfg}
}

// GetState returns the caught-up state for (userID, resourceKey), creating a
// full record on first access. Regenerated units are persisted; reads that
// regenerate nothing write nothing.
func (s *Service) GetState(ctx context.Context, userID, resourceKey string) (State, error) {
	var out State
	_, err := s.mutate(ctx, userID, resourceKey, func(st *State, now time.Time) (bool, error) {
		out = *st
		return false, nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

// Consume catches up, then spends one unit. Fails with
// *ErrInsufficientResource when the counter is empty, without mutating
// anything.
func (s *Service) Consume(ctx context.Context, userID, resourceKey string) (State, error) {
	var out State
	_, err := s.mutate(ctx, userID, resourceKey, func(st *State, now time.Time) (bool, error) {
		if st.Current == 0 {
			return false, &ErrInsufficientResource{
				Resource:        resourceKey,
				NextAvailableIn: st.NextUnitIn(now),
			}
		}
		if st.Full() {
			// The regeneration timer is idle at capacity; spending the
			// first unit starts it.
			st.LastUpdate = now
		}
		st.Current--
		out = *st
		return true, nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

// RefillFull restores the counter to capacity, e.g. for a purchased or
// rewarded refill.
func (s *Service) RefillFull(ctx context.Context, userID, resourceKey string) (State, error) {
	var out State
	_, err := s.mutate(ctx, userID, resourceKey, func(st *State, now time.Time) (bool, error) {
		st.Current = st.Max
		st.LastUpdate = now
		out = *st
		return true, nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

// IncreaseCapacity grows Max by amount. When fillNew is true the new slots
// arrive full; when false they arrive empty and regenerate normally.
func (s *Service) IncreaseCapacity(ctx context.Context, userID, resourceKey string, amount int, fillNew bool) (State, error) {
	if amount <= 0 {
		return State{}, fmt.Errorf("increase capacity: amount must be positive, got %d", amount)
	}
	var out State
	_, err := s.mutate(ctx, userID, resourceKey, func(st *State, now time.Time) (bool, error) {
		wasFull := st.Full()
		st.Max += amount
		if fillNew {
			st.Current += amount
		}
		if wasFull || st.Full() {
			// The timer was idle at the old capacity; new empty slots
			// start regenerating now, not retroactively.
			st.LastUpdate = now
		}
		out = *st
		return true, nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

// AdjustRegenRate lengthens (positive delta) or shortens (negative delta)
// the regeneration period, floored at MinRegenPeriod. The stored phase is
// caught up under the old period before the new one takes effect.
func (s *Service) AdjustRegenRate(ctx context.Context, userID, resourceKey string, delta time.Duration) (State, error) {
	var out State
	_, err := s.mutate(ctx, userID, resourceKey, func(st *State, now time.Time) (bool, error) {
		period := st.RegenPeriod + delta
		if period < MinRegenPeriod {
			period = MinRegenPeriod
		}
		st.RegenPeriod = period
		out = *st
		return true, nil
	})
	if err != nil {
		return State{}, err
	}
	return out, nil
}

// mutate runs the standard cycle: load (lazily initializing to a full
// counter), sanitize, regenerate from elapsed time, apply op, persist when
// anything changed.
func (s *Service) mutate(ctx context.Context, userID, resourceKey string, op func(*State, time.Time) (bool, error)) (ledger.Row, error) {
	now := s.clock.Now()

	init := func() ([]byte, error) {
		return json.Marshal(State{
			Current:     s.cfg.Max,
			Max:         s.cfg.Max,
			LastUpdate:  now,
			RegenPeriod: s.cfg.RegenPeriod,
		})
	}

	return ledger.Mutate(ctx, s.store, userID, resourceKey, init, func(data []byte) ([]byte, bool, error) {
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, false, fmt.Errorf("decode %s state: %w", resourceKey, err)
		}

		changed := sanitize(&st, userID, resourceKey, s.cfg)
		changed = regenerate(&st, now) || changed

		opChanged, err := op(&st, now)
		if err != nil {
			return nil, false, err
		}
		changed = changed || opChanged

		if !changed {
			return data, false, nil
		}
		newData, err := json.Marshal(st)
		if err != nil {
			return nil, false, fmt.Errorf("encode %s state: %w", resourceKey, err)
		}
		return newData, true, nil
	})
}

// regenerate advances st to now. Negative elapsed (clock skew) regenerates
// nothing and never costs units. The unit count is capped at the missing
// amount before the timestamp advance, so weeks of absence advance
// LastUpdate by exactly enough to reach capacity rather than by an
// astronomical stride.
func regenerate(st *State, now time.Time) bool {
	elapsed := now.Sub(st.LastUpdate)
	if elapsed < 0 {
		return false
	}

	units := int(elapsed / st.RegenPeriod)
	if missing := st.Max - st.Current; units > missing {
		units = missing
	}
	if units <= 0 {
		return false
	}

	st.Current += units
	if st.Full() {
		// At capacity there is no next unit to carry phase toward.
		st.LastUpdate = now
	} else {
		// Advance by whole periods only, preserving the sub-period
		// remainder toward the next unit.
		st.LastUpdate = st.LastUpdate.Add(time.Duration(units) * st.RegenPeriod)
	}
	return true
}

// sanitize clamps stored values back into their invariants. Violations come
// from external tampering or prior bugs; they are repaired and logged, never
// surfaced.
func sanitize(st *State, userID, resourceKey string, cfg Config) bool {
	changed := false
	if st.Max < 1 {
		log.Printf("hearts: %s/%s max %d out of range, resetting to %d", userID, resourceKey, st.Max, cfg.Max)
		st.Max = cfg.Max
		changed = true
	}
	if st.RegenPeriod < MinRegenPeriod {
		log.Printf("hearts: %s/%s regen period %s too short, flooring", userID, resourceKey, st.RegenPeriod)
		st.RegenPeriod = MinRegenPeriod
		if cfg.RegenPeriod >= MinRegenPeriod {
			st.RegenPeriod = cfg.RegenPeriod
		}
		changed = true
	}
	if st.Current < 0 {
		log.Printf("hearts: %s/%s current %d negative, clamping to 0", userID, resourceKey, st.Current)
		st.Current = 0
		changed = true
	}
	if st.Current > st.Max {
		log.Printf("hearts: %s/%s current %d above max %d, clamping", userID, resourceKey, st.Current, st.Max)
		st.Current = st.Max
		changed = true
	}
	return changed
}
