package hearts

import "time"

// State is the stored record for one capped, rate-limited counter.
type State struct {
	// Current is the number of units available, in [0, Max].
	Current int `json:"current"`
	// Max is the capacity, at least 1.
	Max int `json:"max"`
	// LastUpdate marks the start of the in-flight regeneration period.
	// It is monotonically non-decreasing across persisted writes.
	LastUpdate time.Time `json:"last_update"`
	// RegenPeriod is the time to regenerate one unit.
	RegenPeriod time.Duration `json:"regen_period"`
}

// Full reports whether the counter is at capacity.
func (s State) Full() bool {
	return s.Current >= s.Max
}

// NextUnitIn returns how long until the next unit regenerates, given now.
// Returns 0 when already full.
func (s State) NextUnitIn(now time.Time) time.Duration {
	if s.Full() {
		return 0
	}
	elapsed := now.Sub(s.LastUpdate)
	if elapsed < 0 {
		// Clock skew: the stored phase is in the future; a full period is
		// the most honest answer.
		return s.RegenPeriod
	}
	return s.RegenPeriod - elapsed%s.RegenPeriod
}
