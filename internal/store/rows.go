package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmodak/parlo/internal/ledger"
)

// Ledger returns the ledger.Store backed by the ledger_rows table.
func (s *Store) Ledger() ledger.Store {
	return &ledgerRepo{db: s.db}
}

type ledgerRepo struct {
	db *sql.DB
}

func (r *ledgerRepo) Get(ctx context.Context, userID, key string) (ledger.Row, error) {
	var row ledger.Row
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT version, data FROM ledger_rows WHERE user_id = ? AND key = ?`,
		userID, key,
	).Scan(&row.Version, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Row{}, ledger.ErrNotFound
	}
	if err != nil {
		return ledger.Row{}, unavailable("get row", err)
	}
	row.Data = []byte(data)
	return row, nil
}

func (r *ledgerRepo) Insert(ctx context.Context, userID, key string, data []byte) (ledger.Row, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_rows (user_id, key, version, data, updated_at) VALUES (?, ?, 1, ?, ?)`,
		userID, key, string(data), time.Now().Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.Row{}, ledger.ErrConflict
		}
		return ledger.Row{}, unavailable("insert row", err)
	}
	return ledger.Row{Version: 1, Data: data}, nil
}

func (r *ledgerRepo) Update(ctx context.Context, userID, key string, expectedVersion int64, data []byte) (ledger.Row, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_rows SET version = version + 1, data = ?, updated_at = ?
		 WHERE user_id = ? AND key = ? AND version = ?`,
		string(data), time.Now().Unix(), userID, key, expectedVersion,
	)
	if err != nil {
		return ledger.Row{}, unavailable("update row", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ledger.Row{}, unavailable("update row", err)
	}
	if n == 0 {
		// Either the version moved or the row never existed.
		var exists int
		err := r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM ledger_rows WHERE user_id = ? AND key = ?`,
			userID, key,
		).Scan(&exists)
		if err != nil {
			return ledger.Row{}, unavailable("check row", err)
		}
		if exists == 0 {
			return ledger.Row{}, ledger.ErrNotFound
		}
		return ledger.Row{}, ledger.ErrConflict
	}
	return ledger.Row{Version: expectedVersion + 1, Data: data}, nil
}

func (r *ledgerRepo) List(ctx context.Context, userID, prefix string) ([]ledger.Keyed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, version, data FROM ledger_rows
		 WHERE user_id = ? AND key >= ? AND key < ?
		 ORDER BY key`,
		userID, prefix, prefixUpperBound(prefix),
	)
	if err != nil {
		return nil, unavailable("list rows", err)
	}
	defer rows.Close()

	var out []ledger.Keyed
	for rows.Next() {
		var k ledger.Keyed
		var data string
		if err := rows.Scan(&k.Key, &k.Row.Version, &data); err != nil {
			return nil, unavailable("scan row", err)
		}
		k.Row.Data = []byte(data)
		out = append(out, k)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list rows", err)
	}
	return out, nil
}

// prefixUpperBound returns the smallest string greater than every string
// with the given prefix, for range scans on the key column.
func prefixUpperBound(prefix string) string {
	if prefix == "" {
		return "￿"
	}
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return string(b[:i+1])
		}
	}
	return prefix + "￿"
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// it does not export a typed error for them.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed")
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ledger.ErrStoreUnavailable, err)
}
