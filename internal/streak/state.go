package streak

import (
	"fmt"
	"time"
)

// Calendar days are pinned to UTC with a hard midnight boundary; there is
// no grace window.
const dateLayout = "2006-01-02"

const (
	streakKey     = "streak"
	goalKeyPrefix = "goal:"
)

// StreakState is the stored per-user streak record.
type StreakState struct {
	// CurrentStreak counts consecutive UTC days with a completed goal.
	CurrentStreak int `json:"current_streak"`
	// LongestStreak never drops below CurrentStreak at any persisted write.
	LongestStreak int `json:"longest_streak"`
	// LastActivityDate is the UTC calendar date of the last rollover.
	LastActivityDate string `json:"last_activity_date"`
}

// DailyGoalState is the stored per-user per-date goal record.
type DailyGoalState struct {
	Date      string `json:"date"`
	TargetXP  int    `json:"target_xp"`
	CurrentXP int    `json:"current_xp"`
	Completed bool   `json:"completed"`
	// RewardGranted is a one-way latch: a day's completion reward is
	// granted at most once, ever.
	RewardGranted bool `json:"reward_granted"`
}

// Reward is the economy outcome returned to the caller, which applies it to
// the user's XP/currency ledger.
type Reward struct {
	XPDelta           int
	CurrencyDelta     int
	UnlockedRewardIDs []string
}

// GoalProgress is the result of an EarnXP call. Reward is non-nil only on
// the call that granted it.
type GoalProgress struct {
	Goal   DailyGoalState
	Streak StreakState
	Reward *Reward
}

// DateOf returns the UTC calendar date of t.
func DateOf(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// dayGap returns the whole-day distance from one date to another. Returns
// an error on malformed dates.
func dayGap(from, to string) (int, error) {
	a, err := time.Parse(dateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", from, err)
	}
	b, err := time.Parse(dateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", to, err)
	}
	return int(b.Sub(a) / (24 * time.Hour)), nil
}

func goalKey(date string) string {
	return goalKeyPrefix + date
}

// yesterdayOf returns the date one day before the given UTC date. Malformed
// dates yield an empty string, which never matches a stored goal row.
func yesterdayOf(date string) string {
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dateLayout)
}
