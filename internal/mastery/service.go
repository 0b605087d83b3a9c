// Package mastery implements the decay engine: a bounded per-skill strength
// score that drops with elapsed whole days and rises with recorded practice.
package mastery

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tmodak/parlo/internal/clock"
	"github.com/tmodak/parlo/internal/ledger"
	"github.com/tmodak/parlo/internal/store"
)

// Config holds the defaults for lazily created skill records and the
// practice reward formula.
type Config struct {
	DecayRatePerDay  int
	PracticeInterval time.Duration
	BaseIncrease     int
	SpeedTarget      time.Duration
	MaxSpeedBonus    int
	MistakePenalty   int
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DecayRatePerDay:  5,
		PracticeInterval: 3 * 24 * time.Hour,
		BaseIncrease:     20,
		SpeedTarget:      60 * time.Second,
		MaxSpeedBonus:    10,
		MistakePenalty:   2,
	}
}

// Service manages per-skill mastery state.
type Service struct {
	store  ledger.Store
	clock  clock.Clock
	cfg    Config
	events store.EventRepo // optional; nil disables the audit log
}

// NewService creates a decay engine. events may be nil.
func NewService(st ledger.Store, clk clock.Clock, cfg Config, events store.EventRepo) *Service {
	return &Service{store: st, clock: clk, cfg: cfg, events: events}
}

// GetStrength returns the decayed-to-now state for (userID, skillID),
// creating a full-strength record on first access. Decay only reduces
// Strength; the practice bookkeeping fields are untouched.
func (s *Service) GetStrength(ctx context.Context, userID, skillID string) (SkillState, error) {
	now := s.clock.Now()
	var out SkillState
	_, err := ledger.Mutate(ctx, s.store, userID, skillKey(skillID), s.initFunc(skillID, now),
		func(data []byte) ([]byte, bool, error) {
			st, changed, err := s.decode(data, userID, skillID)
			if err != nil {
				return nil, false, err
			}
			changed = decay(&st, now) || changed
			out = st
			if !changed {
				return data, false, nil
			}
			newData, err := json.Marshal(st)
			return newData, err == nil, err
		})
	if err != nil {
		return SkillState{}, err
	}
	return out, nil
}

// RecordPractice decays the skill to current truth, applies the practice
// increase, advances the due date, and appends an audit event. The returned
// result carries the session inputs and the resulting strength.
func (s *Service) RecordPractice(ctx context.Context, userID, skillID string, score, timeSpentSeconds, mistakes int) (PracticeResult, error) {
	if timeSpentSeconds < 0 {
		return PracticeResult{}, fmt.Errorf("record practice: negative time spent %d", timeSpentSeconds)
	}
	if mistakes < 0 {
		return PracticeResult{}, fmt.Errorf("record practice: negative mistake count %d", mistakes)
	}

	now := s.clock.Now()
	var out SkillState
	_, err := ledger.Mutate(ctx, s.store, userID, skillKey(skillID), s.initFunc(skillID, now),
		func(data []byte) ([]byte, bool, error) {
			st, _, err := s.decode(data, userID, skillID)
			if err != nil {
				return nil, false, err
			}
			decay(&st, now)

			bonus := speedBonus(time.Duration(timeSpentSeconds)*time.Second, s.cfg.SpeedTarget, s.cfg.MaxSpeedBonus)
			raw := s.cfg.BaseIncrease + bonus - mistakes*s.cfg.MistakePenalty
			st.Strength += clampIncrease(raw, MaxStrength-st.Strength)
			st.LastPracticedAt = now
			st.NextDueAt = now.Add(st.PracticeInterval)
			st.DecayedDays = 0

			out = st
			newData, err := json.Marshal(st)
			return newData, err == nil, err
		})
	if err != nil {
		return PracticeResult{}, err
	}

	result := PracticeResult{
		ID:               uuid.NewString(),
		SkillID:          skillID,
		Score:            score,
		TimeSpentSeconds: timeSpentSeconds,
		Mistakes:         mistakes,
		Strength:         out.Strength,
		PracticedAt:      now,
	}

	if s.events != nil {
		err := s.events.AppendPractice(ctx, store.PracticeEventData{
			EventID:       result.ID,
			Timestamp:     now,
			UserID:        userID,
			SkillID:       skillID,
			Score:         score,
			TimeSpentSecs: timeSpentSeconds,
			Mistakes:      mistakes,
			StrengthAfter: out.Strength,
		})
		if err != nil {
			// State is already committed; the audit trail is best effort.
			log.Printf("mastery: append practice event for %s/%s: %v", userID, skillID, err)
		}
	}
	return result, nil
}

// ListDue returns every skill with NextDueAt at or before now, weakest and
// longest-overdue first: ascending by decayed strength, then NextDueAt,
// then SkillID. The decayed view is computed for ordering; nothing is
// persisted.
func (s *Service) ListDue(ctx context.Context, userID string) ([]SkillState, error) {
	now := s.clock.Now()
	rows, err := s.store.List(ctx, userID, keyPrefix)
	if err != nil {
		return nil, err
	}

	var due []SkillState
	for _, kr := range rows {
		st, _, err := s.decode(kr.Row.Data, userID, skillIDFromKey(kr.Key))
		if err != nil {
			return nil, err
		}
		decay(&st, now)
		if st.Due(now) {
			due = append(due, st)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].Strength != due[j].Strength {
			return due[i].Strength < due[j].Strength
		}
		if !due[i].NextDueAt.Equal(due[j].NextDueAt) {
			return due[i].NextDueAt.Before(due[j].NextDueAt)
		}
		return due[i].SkillID < due[j].SkillID
	})
	return due, nil
}

func (s *Service) initFunc(skillID string, now time.Time) ledger.InitFunc {
	return func() ([]byte, error) {
		return json.Marshal(SkillState{
			SkillID:          skillID,
			Strength:         MaxStrength,
			LastPracticedAt:  now,
			NextDueAt:        now.Add(s.cfg.PracticeInterval),
			DecayRatePerDay:  s.cfg.DecayRatePerDay,
			PracticeInterval: s.cfg.PracticeInterval,
		})
	}
}

// decode unmarshals and repairs a stored skill record. Out-of-range values
// are clamped and logged, never surfaced.
func (s *Service) decode(data []byte, userID, skillID string) (SkillState, bool, error) {
	var st SkillState
	if err := json.Unmarshal(data, &st); err != nil {
		return SkillState{}, false, fmt.Errorf("decode skill %s state: %w", skillID, err)
	}

	changed := false
	if st.Strength < 0 {
		log.Printf("mastery: %s/%s strength %d negative, clamping to 0", userID, skillID, st.Strength)
		st.Strength = 0
		changed = true
	}
	if st.Strength > MaxStrength {
		log.Printf("mastery: %s/%s strength %d above %d, clamping", userID, skillID, st.Strength, MaxStrength)
		st.Strength = MaxStrength
		changed = true
	}
	if st.PracticeInterval <= 0 {
		log.Printf("mastery: %s/%s practice interval %s invalid, resetting", userID, skillID, st.PracticeInterval)
		st.PracticeInterval = s.cfg.PracticeInterval
		changed = true
	}
	if st.DecayRatePerDay < 0 {
		log.Printf("mastery: %s/%s decay rate %d negative, resetting", userID, skillID, st.DecayRatePerDay)
		st.DecayRatePerDay = s.cfg.DecayRatePerDay
		changed = true
	}
	if st.NextDueAt.Before(st.LastPracticedAt) {
		log.Printf("mastery: %s/%s due date precedes last practice, repairing", userID, skillID)
		st.NextDueAt = st.LastPracticedAt.Add(st.PracticeInterval)
		changed = true
	}
	return st, changed, nil
}

// decay applies whole-day decay since the last practice, once per day.
// DecayedDays records how many days have already been charged, so reading
// twice at the same instant changes nothing the second time. Negative
// elapsed (clock skew) decays nothing.
func decay(st *SkillState, now time.Time) bool {
	elapsed := now.Sub(st.LastPracticedAt)
	if elapsed < 0 {
		return false
	}

	days := int(elapsed / (24 * time.Hour))
	if days <= st.DecayedDays {
		return false
	}

	points := (days - st.DecayedDays) * st.DecayRatePerDay
	st.DecayedDays = days
	st.Strength -= points
	if st.Strength < 0 {
		st.Strength = 0
	}
	return true
}
