package mastery

import (
	"strings"
	"time"
)

// MaxStrength is the upper bound of the mastery score.
const MaxStrength = 100

// keyPrefix namespaces skill rows within a user's ledger.
const keyPrefix = "skill:"

// SkillState is the stored mastery record for one skill.
type SkillState struct {
	SkillID string `json:"skill_id"`
	// Strength is the mastery score, in [0, MaxStrength]. It decays with
	// elapsed time and rises with recorded practice.
	Strength int `json:"strength"`
	// LastPracticedAt changes only on RecordPractice, never on decay.
	LastPracticedAt time.Time `json:"last_practiced_at"`
	// NextDueAt is when the skill next surfaces for review.
	NextDueAt time.Time `json:"next_due_at"`
	// DecayRatePerDay is how many strength points a full day of neglect
	// costs.
	DecayRatePerDay int `json:"decay_rate_per_day"`
	// PracticeInterval is how far NextDueAt advances on practice.
	PracticeInterval time.Duration `json:"practice_interval"`
	// DecayedDays counts whole days of decay already applied since the
	// last practice, so repeated reads at the same instant never decay
	// twice.
	DecayedDays int `json:"decayed_days"`
}

// Due reports whether the skill is due for review at now.
func (st SkillState) Due(now time.Time) bool {
	return !now.Before(st.NextDueAt)
}

func skillKey(skillID string) string {
	return keyPrefix + skillID
}

func skillIDFromKey(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}
