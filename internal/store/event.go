package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrDuplicateEvent indicates an event with the same identity was already
// recorded. For reward events (user_id, goal_date) is unique, so the table
// itself backstops the one-grant-per-day latch.
var ErrDuplicateEvent = errors.New("store: duplicate event")

// sequenceCounter manages the global monotonic sequence number shared by
// practice and reward events. Each event type lives in its own table, so
// per-table auto-increment IDs can't establish cross-type ordering; this
// shared counter assigns a single increasing sequence to every event. The
// mutex serializes within the process; the RETURNING clause makes the
// increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// PracticeEventData captures one recorded practice session.
type PracticeEventData struct {
	EventID       string
	Timestamp     time.Time
	UserID        string
	SkillID       string
	Score         int
	TimeSpentSecs int
	Mistakes      int
	StrengthAfter int
}

// PracticeRecord is a stored practice event.
type PracticeRecord struct {
	PracticeEventData
	Sequence int64
}

// RewardEventData captures one daily-goal completion reward grant.
type RewardEventData struct {
	EventID       string
	Timestamp     time.Time
	UserID        string
	GoalDate      string
	StreakDays    int
	Multiplier    float64
	XPDelta       int
	CurrencyDelta int
	UnlockedIDs   []string
}

// RewardRecord is a stored reward event.
type RewardRecord struct {
	RewardEventData
	Sequence int64
}

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit int       // max results (0 = unlimited)
	After int64     // sequence > After
	From  time.Time // timestamp >= From
	To    time.Time // timestamp <= To
}

// EventRepo provides append and query access to the engine's audit events.
type EventRepo interface {
	AppendPractice(ctx context.Context, data PracticeEventData) error
	AppendReward(ctx context.Context, data RewardEventData) error
	QueryPractice(ctx context.Context, userID string, opts QueryOpts) ([]PracticeRecord, error)
	QueryRewards(ctx context.Context, userID string, opts QueryOpts) ([]RewardRecord, error)
}

// Events returns the EventRepo backed by this store.
func (s *Store) Events() EventRepo {
	return &eventRepo{db: s.db, seq: &sequenceCounter{db: s.db}}
}

type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *eventRepo) AppendPractice(ctx context.Context, data PracticeEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO practice_events
		 (event_id, sequence, timestamp, user_id, skill_id, score, time_spent_secs, mistakes, strength_after)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.EventID, seqNum, data.Timestamp.Unix(), data.UserID, data.SkillID,
		data.Score, data.TimeSpentSecs, data.Mistakes, data.StrengthAfter,
	)
	if err != nil {
		return fmt.Errorf("save practice event: %w", err)
	}
	return nil
}

func (r *eventRepo) AppendReward(ctx context.Context, data RewardEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}

	unlocked, err := json.Marshal(data.UnlockedIDs)
	if err != nil {
		return fmt.Errorf("marshal unlocked ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reward_events
		 (event_id, sequence, timestamp, user_id, goal_date, streak_days, multiplier, xp_delta, currency_delta, unlocked_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		data.EventID, seqNum, data.Timestamp.Unix(), data.UserID, data.GoalDate,
		data.StreakDays, data.Multiplier, data.XPDelta, data.CurrencyDelta, string(unlocked),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("save reward event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryPractice(ctx context.Context, userID string, opts QueryOpts) ([]PracticeRecord, error) {
	query := `SELECT event_id, sequence, timestamp, skill_id, score, time_spent_secs, mistakes, strength_after
	          FROM practice_events WHERE user_id = ?`
	args := []any{userID}
	query, args = applyOpts(query, args, opts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query practice events: %w", err)
	}
	defer rows.Close()

	var records []PracticeRecord
	for rows.Next() {
		var rec PracticeRecord
		var ts int64
		if err := rows.Scan(&rec.EventID, &rec.Sequence, &ts, &rec.SkillID,
			&rec.Score, &rec.TimeSpentSecs, &rec.Mistakes, &rec.StrengthAfter); err != nil {
			return nil, fmt.Errorf("scan practice event: %w", err)
		}
		rec.UserID = userID
		rec.Timestamp = time.Unix(ts, 0).UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *eventRepo) QueryRewards(ctx context.Context, userID string, opts QueryOpts) ([]RewardRecord, error) {
	query := `SELECT event_id, sequence, timestamp, goal_date, streak_days, multiplier, xp_delta, currency_delta, unlocked_ids
	          FROM reward_events WHERE user_id = ?`
	args := []any{userID}
	query, args = applyOpts(query, args, opts)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reward events: %w", err)
	}
	defer rows.Close()

	var records []RewardRecord
	for rows.Next() {
		var rec RewardRecord
		var ts int64
		var unlocked string
		if err := rows.Scan(&rec.EventID, &rec.Sequence, &ts, &rec.GoalDate,
			&rec.StreakDays, &rec.Multiplier, &rec.XPDelta, &rec.CurrencyDelta, &unlocked); err != nil {
			return nil, fmt.Errorf("scan reward event: %w", err)
		}
		rec.UserID = userID
		rec.Timestamp = time.Unix(ts, 0).UTC()
		if err := json.Unmarshal([]byte(unlocked), &rec.UnlockedIDs); err != nil {
			return nil, fmt.Errorf("unmarshal unlocked ids: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func applyOpts(query string, args []any, opts QueryOpts) (string, []any) {
	if opts.After > 0 {
		query += ` AND sequence > ?`
		args = append(args, opts.After)
	}
	if !opts.From.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, opts.From.Unix())
	}
	if !opts.To.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, opts.To.Unix())
	}
	query += ` ORDER BY sequence DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	return query, args
}
