package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmodak/parlo/internal/ledger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is not asserted here.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestLedgerGetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Ledger().Get(context.Background(), "u1", "hearts")
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLedgerInsertGetUpdate(t *testing.T) {
	s := openTestStore(t)
	rows := s.Ledger()
	ctx := context.Background()

	row, err := rows.Insert(ctx, "u1", "hearts", []byte(`{"n":5}`))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if row.Version != 1 {
		t.Errorf("insert version = %d, want 1", row.Version)
	}

	// Double insert conflicts.
	_, err = rows.Insert(ctx, "u1", "hearts", []byte(`{"n":9}`))
	if !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("double insert err = %v, want ErrConflict", err)
	}

	got, err := rows.Get(ctx, "u1", "hearts")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Data) != `{"n":5}` {
		t.Errorf("data = %q, want original", got.Data)
	}

	updated, err := rows.Update(ctx, "u1", "hearts", 1, []byte(`{"n":4}`))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("update version = %d, want 2", updated.Version)
	}

	// Stale version loses.
	_, err = rows.Update(ctx, "u1", "hearts", 1, []byte(`{"n":0}`))
	if !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("stale update err = %v, want ErrConflict", err)
	}

	// Missing row reports not found, not conflict.
	_, err = rows.Update(ctx, "u1", "absent", 1, []byte(`{}`))
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("absent update err = %v, want ErrNotFound", err)
	}
}

func TestLedgerListPrefix(t *testing.T) {
	s := openTestStore(t)
	rows := s.Ledger()
	ctx := context.Background()

	for _, key := range []string{"skill:b", "skill:a", "goal:2026-01-01", "streak"} {
		if _, err := rows.Insert(ctx, "u1", key, []byte(`{}`)); err != nil {
			t.Fatalf("insert %s: %v", key, err)
		}
	}
	// Another user's rows must not leak in.
	if _, err := rows.Insert(ctx, "u2", "skill:z", []byte(`{}`)); err != nil {
		t.Fatal(err)
	}

	got, err := rows.List(ctx, "u1", "skill:")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("list returned %d rows, want 2", len(got))
	}
	if got[0].Key != "skill:a" || got[1].Key != "skill:b" {
		t.Errorf("keys = %s, %s; want skill:a, skill:b", got[0].Key, got[1].Key)
	}
}

func TestEventSequenceOrdering(t *testing.T) {
	s := openTestStore(t)
	events := s.Events()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	for i, skill := range []string{"greetings", "numbers", "colors"} {
		err := events.AppendPractice(ctx, PracticeEventData{
			EventID:       "p" + skill,
			Timestamp:     now,
			UserID:        "u1",
			SkillID:       skill,
			Score:         90,
			TimeSpentSecs: 30 + i,
		})
		if err != nil {
			t.Fatalf("append %s: %v", skill, err)
		}
	}

	got, err := events.QueryPractice(ctx, "u1", QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	// Newest first.
	if got[0].SkillID != "colors" || got[2].SkillID != "greetings" {
		t.Errorf("order = %s..%s, want colors..greetings", got[0].SkillID, got[2].SkillID)
	}
	if got[0].Sequence <= got[1].Sequence || got[1].Sequence <= got[2].Sequence {
		t.Error("sequences not strictly descending")
	}

	limited, err := events.QueryPractice(ctx, "u1", QueryOpts{Limit: 1})
	if err != nil {
		t.Fatalf("query limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d events", len(limited))
	}
}

func TestRewardEventDuplicateGoalDate(t *testing.T) {
	s := openTestStore(t)
	events := s.Events()
	ctx := context.Background()

	data := RewardEventData{
		EventID:    "r1",
		Timestamp:  time.Now(),
		UserID:     "u1",
		GoalDate:   "2026-08-29",
		StreakDays: 7,
		Multiplier: 1.3,
		XPDelta:    26,
	}
	if err := events.AppendReward(ctx, data); err != nil {
		t.Fatalf("append: %v", err)
	}

	data.EventID = "r2"
	err := events.AppendReward(ctx, data)
	if !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("second reward for same day: err = %v, want ErrDuplicateEvent", err)
	}

	got, err := events.QueryRewards(ctx, "u1", QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d rewards, want 1", len(got))
	}
}
