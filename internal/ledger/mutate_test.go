package ledger

import (
	"context"
	"errors"
	"testing"
)

// memStore is a minimal in-memory Store for exercising the recompute loop.
// conflictNext forces the next n Update calls to lose the version race.
type memStore struct {
	rows         map[string]Row
	conflictNext int
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]Row)}
}

func (m *memStore) key(userID, key string) string { return userID + "/" + key }

func (m *memStore) Get(ctx context.Context, userID, key string) (Row, error) {
	row, ok := m.rows[m.key(userID, key)]
	if !ok {
		return Row{}, ErrNotFound
	}
	return row, nil
}

func (m *memStore) Insert(ctx context.Context, userID, key string, data []byte) (Row, error) {
	k := m.key(userID, key)
	if _, ok := m.rows[k]; ok {
		return Row{}, ErrConflict
	}
	row := Row{Version: 1, Data: data}
	m.rows[k] = row
	return row, nil
}

func (m *memStore) Update(ctx context.Context, userID, key string, expectedVersion int64, data []byte) (Row, error) {
	if m.conflictNext > 0 {
		m.conflictNext--
		return Row{}, ErrConflict
	}
	k := m.key(userID, key)
	row, ok := m.rows[k]
	if !ok {
		return Row{}, ErrNotFound
	}
	if row.Version != expectedVersion {
		return Row{}, ErrConflict
	}
	row = Row{Version: expectedVersion + 1, Data: data}
	m.rows[k] = row
	return row, nil
}

func (m *memStore) List(ctx context.Context, userID, prefix string) ([]Keyed, error) {
	return nil, nil
}

func TestMutateLazyInit(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()

	calls := 0
	row, err := Mutate(ctx, s, "u1", "hearts",
		func() ([]byte, error) { return []byte(`{"n":5}`), nil },
		func(data []byte) ([]byte, bool, error) {
			calls++
			if string(data) != `{"n":5}` {
				t.Errorf("recompute saw %q, want initialized data", data)
			}
			return data, false, nil
		})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if row.Version != 1 {
		t.Errorf("version = %d, want 1 (initial record persisted)", row.Version)
	}
	if calls != 1 {
		t.Errorf("recompute ran %d times, want 1", calls)
	}

	// The initialized record must already be stored.
	stored, err := s.Get(ctx, "u1", "hearts")
	if err != nil {
		t.Fatalf("get after init: %v", err)
	}
	if string(stored.Data) != `{"n":5}` {
		t.Errorf("stored data = %q, want initialized default", stored.Data)
	}
}

func TestMutateUnchangedWritesNothing(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()

	if _, err := s.Insert(ctx, "u1", "hearts", []byte(`{"n":3}`)); err != nil {
		t.Fatal(err)
	}
	row, err := Mutate(ctx, s, "u1", "hearts", nil,
		func(data []byte) ([]byte, bool, error) { return data, false, nil })
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if row.Version != 1 {
		t.Errorf("version = %d, want 1 (no write)", row.Version)
	}
}

func TestMutateRetriesOnConflict(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()

	if _, err := s.Insert(ctx, "u1", "hearts", []byte(`{"n":3}`)); err != nil {
		t.Fatal(err)
	}
	s.conflictNext = 2

	attempts := 0
	row, err := Mutate(ctx, s, "u1", "hearts", nil,
		func(data []byte) ([]byte, bool, error) {
			attempts++
			return []byte(`{"n":2}`), true, nil
		})
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if attempts != 3 {
		t.Errorf("recompute ran %d times, want 3 (two lost races)", attempts)
	}
	if row.Version != 2 {
		t.Errorf("version = %d, want 2", row.Version)
	}
}

func TestMutateSurfacesConcurrentModification(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()

	if _, err := s.Insert(ctx, "u1", "hearts", []byte(`{"n":3}`)); err != nil {
		t.Fatal(err)
	}
	s.conflictNext = 100

	_, err := Mutate(ctx, s, "u1", "hearts", nil,
		func(data []byte) ([]byte, bool, error) {
			return []byte(`{"n":2}`), true, nil
		})
	if !errors.Is(err, ErrConcurrentModification) {
		t.Fatalf("err = %v, want ErrConcurrentModification", err)
	}
}

func TestMutateRecomputeErrorAborts(t *testing.T) {
	s := newMemStore()
	ctx := context.Background()

	if _, err := s.Insert(ctx, "u1", "hearts", []byte(`{"n":0}`)); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("insufficient")
	_, err := Mutate(ctx, s, "u1", "hearts", nil,
		func(data []byte) ([]byte, bool, error) { return nil, false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want recompute error", err)
	}
	stored, _ := s.Get(ctx, "u1", "hearts")
	if string(stored.Data) != `{"n":0}` {
		t.Errorf("stored data mutated to %q on failed recompute", stored.Data)
	}
}
