package mastery

import "time"

// PracticeResult is the audit record returned by RecordPractice.
type PracticeResult struct {
	ID               string
	SkillID          string
	Score            int
	TimeSpentSeconds int
	Mistakes         int
	// Strength is the resulting mastery score after the session.
	Strength    int
	PracticedAt time.Time
}

// speedBonus rewards faster completion, scaled against target. The bands
// mirror the response-time scoring used for fluency: full bonus at or under
// half the target, linear falloff through the target, zero at double it.
func speedBonus(timeSpent, target time.Duration, maxBonus int) int {
	if target <= 0 || maxBonus <= 0 {
		return 0
	}
	ratio := float64(timeSpent) / float64(target)

	var score float64
	switch {
	case ratio <= 0.5:
		score = 1.0
	case ratio <= 1.0:
		score = 1.0 - (ratio - 0.5)
	case ratio < 2.0:
		score = 0.5 - 0.5*(ratio-1.0)
	default:
		score = 0.0
	}
	return int(score * float64(maxBonus))
}

func clampIncrease(raw, headroom int) int {
	if raw < 0 {
		return 0
	}
	if raw > headroom {
		return headroom
	}
	return raw
}
