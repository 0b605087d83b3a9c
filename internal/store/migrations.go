package store

import "fmt"

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "ledger_rows: versioned per-user state records",
		SQL: `
CREATE TABLE ledger_rows (
    user_id    TEXT NOT NULL,
    key        TEXT NOT NULL,
    version    INTEGER NOT NULL DEFAULT 1,
    data       TEXT NOT NULL,
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (user_id, key)
);

CREATE INDEX idx_ledger_user ON ledger_rows(user_id);
`,
	},
	{
		Version:     2,
		Description: "global_sequence: monotone counter shared by all event types",
		SQL: `
CREATE TABLE global_sequence (
    id       INTEGER PRIMARY KEY CHECK (id = 1),
    next_val INTEGER NOT NULL DEFAULT 1
);

INSERT INTO global_sequence (id, next_val) VALUES (1, 1);
`,
	},
	{
		Version:     3,
		Description: "practice_events: per-session practice audit log",
		SQL: `
CREATE TABLE practice_events (
    id              INTEGER PRIMARY KEY,
    event_id        TEXT NOT NULL UNIQUE,
    sequence        INTEGER NOT NULL UNIQUE,
    timestamp       INTEGER NOT NULL,
    user_id         TEXT NOT NULL,
    skill_id        TEXT NOT NULL,
    score           INTEGER NOT NULL,
    time_spent_secs INTEGER NOT NULL,
    mistakes        INTEGER NOT NULL,
    strength_after  INTEGER NOT NULL
);

CREATE INDEX idx_practice_user  ON practice_events(user_id);
CREATE INDEX idx_practice_skill ON practice_events(user_id, skill_id);
`,
	},
	{
		Version:     4,
		Description: "reward_events: daily-goal completion rewards",
		SQL: `
CREATE TABLE reward_events (
    id             INTEGER PRIMARY KEY,
    event_id       TEXT NOT NULL UNIQUE,
    sequence       INTEGER NOT NULL UNIQUE,
    timestamp      INTEGER NOT NULL,
    user_id        TEXT NOT NULL,
    goal_date      TEXT NOT NULL,
    streak_days    INTEGER NOT NULL,
    multiplier     REAL NOT NULL,
    xp_delta       INTEGER NOT NULL,
    currency_delta INTEGER NOT NULL,
    unlocked_ids   TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX idx_reward_user ON reward_events(user_id);
CREATE UNIQUE INDEX idx_reward_goal ON reward_events(user_id, goal_date);
`,
	},
}

// migrate applies pending migrations in order, tracking the applied version
// in schema_migrations.
func (s *Store) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at  INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, unixepoch())`,
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}
