// Package streak implements the streak and daily-goal engine: a per-user
// consecutive-day counter rolled over lazily at UTC day boundaries, and a
// per-day XP target whose completion reward is granted exactly once.
package streak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/tmodak/parlo/internal/clock"
	"github.com/tmodak/parlo/internal/ledger"
	"github.com/tmodak/parlo/internal/store"
)

// Config holds the defaults for lazily created goal records and the
// completion reward.
type Config struct {
	TargetXP        int
	BaseRewardXP    int
	BaseRewardCoins int
}

// DefaultConfig returns the standard 50 XP daily target.
func DefaultConfig() Config {
	return Config{
		TargetXP:        50,
		BaseRewardXP:    20,
		BaseRewardCoins: 10,
	}
}

// Service manages streak and daily-goal state.
type Service struct {
	store  ledger.Store
	clock  clock.Clock
	cfg    Config
	events store.EventRepo // optional; nil disables the audit log
}

// NewService creates a streak engine. events may be nil.
func NewService(st ledger.Store, clk clock.Clock, cfg Config, events store.EventRepo) *Service {
	return &Service{store: st, clock: clk, cfg: cfg, events: events}
}

// RolloverIfNeeded advances the streak state machine to today's UTC date.
// A one-day gap with yesterday's goal completed extends the streak; a
// missed day or an incomplete yesterday resets it to zero. LongestStreak is
// raised to CurrentStreak at every write, never the reverse. Today's goal
// row is created fresh. Calling it again the same day changes nothing.
func (s *Service) RolloverIfNeeded(ctx context.Context, userID string) (StreakState, error) {
	now := s.clock.Now()
	today := DateOf(now)

	// Yesterday's completion is frozen history by the time a rollover
	// observes it; a plain read outside the streak row's update cycle is
	// safe.
	yesterdayDone, err := s.goalCompleted(ctx, userID, yesterdayOf(today))
	if err != nil {
		return StreakState{}, err
	}

	var out StreakState
	_, err = ledger.Mutate(ctx, s.store, userID, streakKey,
		func() ([]byte, error) {
			return json.Marshal(StreakState{LastActivityDate: today})
		},
		func(data []byte) ([]byte, bool, error) {
			st, changed, err := decodeStreak(data, userID)
			if err != nil {
				return nil, false, err
			}

			if st.LastActivityDate != today {
				gap, err := dayGap(st.LastActivityDate, today)
				if err != nil {
					return nil, false, err
				}
				switch {
				case gap == 1 && yesterdayDone:
					st.CurrentStreak++
				case gap < 0:
					// Clock skew: the stored date is ahead of now. Leave
					// the streak alone rather than punish the user.
					out = st
					if !changed {
						return data, false, nil
					}
					newData, err := json.Marshal(st)
					return newData, err == nil, err
				default:
					st.CurrentStreak = 0
				}
				st.LastActivityDate = today
				changed = true
			}

			if st.LongestStreak < st.CurrentStreak {
				st.LongestStreak = st.CurrentStreak
				changed = true
			}

			out = st
			if !changed {
				return data, false, nil
			}
			newData, err := json.Marshal(st)
			return newData, err == nil, err
		})
	if err != nil {
		return StreakState{}, err
	}

	// Materialize today's goal row so reads after the rollover see it.
	if _, err := s.loadGoal(ctx, userID, today); err != nil {
		return StreakState{}, err
	}
	return out, nil
}

// EarnXP rolls over if needed, adds amount to today's goal, and on crossing
// the target grants the completion reward exactly once: base reward scaled
// by the streak multiplier. Repeat calls after completion, even with a zero
// amount, never re-grant — the latch is re-checked inside the conditional
// update cycle, so a retried partial write cannot grant twice.
func (s *Service) EarnXP(ctx context.Context, userID string, amount int) (GoalProgress, error) {
	if amount < 0 {
		return GoalProgress{}, fmt.Errorf("earn xp: negative amount %d", amount)
	}

	streakSt, err := s.RolloverIfNeeded(ctx, userID)
	if err != nil {
		return GoalProgress{}, err
	}

	now := s.clock.Now()
	today := DateOf(now)

	var goal DailyGoalState
	granted := false
	_, err = ledger.Mutate(ctx, s.store, userID, goalKey(today), s.goalInit(today),
		func(data []byte) ([]byte, bool, error) {
			g, changed, err := decodeGoal(data, userID, today)
			if err != nil {
				return nil, false, err
			}
			granted = false

			if amount > 0 {
				g.CurrentXP += amount
				changed = true
			}
			if g.CurrentXP >= g.TargetXP && !g.Completed {
				g.Completed = true
				changed = true
			}
			if g.Completed && !g.RewardGranted {
				g.RewardGranted = true
				granted = true
				changed = true
			}

			goal = g
			if !changed {
				return data, false, nil
			}
			newData, err := json.Marshal(g)
			return newData, err == nil, err
		})
	if err != nil {
		return GoalProgress{}, err
	}

	progress := GoalProgress{Goal: goal, Streak: streakSt}
	if granted {
		reward := s.completionReward(streakSt.CurrentStreak)
		progress.Reward = &reward
		s.appendRewardEvent(ctx, userID, today, streakSt.CurrentStreak, reward, now)
	}
	return progress, nil
}

// Goal returns today's goal state, rolling over first.
func (s *Service) Goal(ctx context.Context, userID string) (GoalProgress, error) {
	return s.EarnXP(ctx, userID, 0)
}

// completionReward scales the base reward by the streak multiplier and
// attaches any badge the streak unlocked today.
func (s *Service) completionReward(streakDays int) Reward {
	m := Multiplier(streakDays)
	r := Reward{
		XPDelta:       int(math.Round(float64(s.cfg.BaseRewardXP) * m)),
		CurrencyDelta: int(math.Round(float64(s.cfg.BaseRewardCoins) * m)),
	}
	if badge, ok := milestoneBadges[streakDays]; ok {
		r.UnlockedRewardIDs = []string{badge}
	}
	return r
}

func (s *Service) appendRewardEvent(ctx context.Context, userID, date string, streakDays int, r Reward, now time.Time) {
	if s.events == nil {
		return
	}
	err := s.events.AppendReward(ctx, store.RewardEventData{
		EventID:       uuid.NewString(),
		Timestamp:     now,
		UserID:        userID,
		GoalDate:      date,
		StreakDays:    streakDays,
		Multiplier:    Multiplier(streakDays),
		XPDelta:       r.XPDelta,
		CurrencyDelta: r.CurrencyDelta,
		UnlockedIDs:   r.UnlockedRewardIDs,
	})
	if errors.Is(err, store.ErrDuplicateEvent) {
		// The latch row said ungranted but the log disagrees; the unique
		// index wins and the grant stays single.
		log.Printf("streak: reward for %s/%s already logged", userID, date)
		return
	}
	if err != nil {
		log.Printf("streak: append reward event for %s/%s: %v", userID, date, err)
	}
}

// goalCompleted reports whether the goal row for date exists and completed.
func (s *Service) goalCompleted(ctx context.Context, userID, date string) (bool, error) {
	row, err := s.store.Get(ctx, userID, goalKey(date))
	if errors.Is(err, ledger.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	g, _, err := decodeGoal(row.Data, userID, date)
	if err != nil {
		return false, err
	}
	return g.Completed, nil
}

// loadGoal reads the goal row for date, creating it lazily.
func (s *Service) loadGoal(ctx context.Context, userID, date string) (DailyGoalState, error) {
	var out DailyGoalState
	_, err := ledger.Mutate(ctx, s.store, userID, goalKey(date), s.goalInit(date),
		func(data []byte) ([]byte, bool, error) {
			g, changed, err := decodeGoal(data, userID, date)
			if err != nil {
				return nil, false, err
			}
			out = g
			if !changed {
				return data, false, nil
			}
			newData, err := json.Marshal(g)
			return newData, err == nil, err
		})
	if err != nil {
		return DailyGoalState{}, err
	}
	return out, nil
}

func (s *Service) goalInit(date string) ledger.InitFunc {
	return func() ([]byte, error) {
		return json.Marshal(DailyGoalState{
			Date:     date,
			TargetXP: s.cfg.TargetXP,
		})
	}
}

func decodeStreak(data []byte, userID string) (StreakState, bool, error) {
	var st StreakState
	if err := json.Unmarshal(data, &st); err != nil {
		return StreakState{}, false, fmt.Errorf("decode streak state: %w", err)
	}
	changed := false
	if st.CurrentStreak < 0 {
		log.Printf("streak: %s current streak %d negative, clamping to 0", userID, st.CurrentStreak)
		st.CurrentStreak = 0
		changed = true
	}
	if st.LongestStreak < st.CurrentStreak {
		log.Printf("streak: %s longest %d below current %d, repairing", userID, st.LongestStreak, st.CurrentStreak)
		st.LongestStreak = st.CurrentStreak
		changed = true
	}
	return st, changed, nil
}

func decodeGoal(data []byte, userID, date string) (DailyGoalState, bool, error) {
	var g DailyGoalState
	if err := json.Unmarshal(data, &g); err != nil {
		return DailyGoalState{}, false, fmt.Errorf("decode goal state for %s: %w", date, err)
	}
	changed := false
	if g.TargetXP <= 0 {
		log.Printf("streak: %s/%s target %d invalid, resetting", userID, date, g.TargetXP)
		g.TargetXP = 1
		changed = true
	}
	if g.CurrentXP < 0 {
		log.Printf("streak: %s/%s xp %d negative, clamping to 0", userID, date, g.CurrentXP)
		g.CurrentXP = 0
		changed = true
	}
	if g.Completed && g.CurrentXP < g.TargetXP {
		log.Printf("streak: %s/%s marked complete below target, repairing", userID, date)
		g.Completed = false
		changed = true
	}
	if g.RewardGranted && !g.Completed {
		// The latch only tightens: an incoherent granted-but-incomplete
		// row keeps the grant so it can never fire twice.
		log.Printf("streak: %s/%s reward granted without completion", userID, date)
	}
	return g, changed, nil
}
