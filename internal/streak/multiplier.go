package streak

// Multiplier maps streak length to the reward scalar. It is a fixed step
// function, monotonically non-decreasing in streak length, and touches no
// state.
func Multiplier(streakDays int) float64 {
	switch {
	case streakDays >= 30:
		return 2.0
	case streakDays >= 14:
		return 1.5
	case streakDays >= 7:
		return 1.3
	case streakDays >= 3:
		return 1.2
	default:
		return 1.0
	}
}

// milestoneBadges maps streak lengths to reward IDs unlocked the day the
// streak first reaches them.
var milestoneBadges = map[int]string{
	3:  "streak-badge-3",
	7:  "streak-badge-7",
	14: "streak-badge-14",
	30: "streak-badge-30",
}
