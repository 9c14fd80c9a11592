package database

import (
	"context"
	"sort"
	"sync"
)

type memoryTxKey struct{}

type snapshotter interface {
	snapshot() (restore func())
}

// MemoryDB is an in-process store with the same all-or-nothing semantics as
// the PostgreSQL backend. Transactions are serialized by a single mutex and
// rolled back by restoring table snapshots.
type MemoryDB struct {
	mu     sync.Mutex
	tables []snapshotter
}

// NewMemoryDB creates an empty in-memory store
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{}
}

// WithinTransaction implements Transactor.
func (m *MemoryDB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if m.inTransaction(ctx) {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), 0, len(m.tables))
	for _, t := range m.tables {
		restores = append(restores, t.snapshot())
	}

	defer func() {
		if r := recover(); r != nil {
			for _, restore := range restores {
				restore()
			}
			panic(r)
		}
	}()

	if err := fn(context.WithValue(ctx, memoryTxKey{}, m)); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// Run executes fn with exclusive access to the tables, joining the
// transaction in ctx if there is one.
func (m *MemoryDB) Run(ctx context.Context, fn func() error) error {
	if m.inTransaction(ctx) {
		return fn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

func (m *MemoryDB) inTransaction(ctx context.Context) bool {
	owner, ok := ctx.Value(memoryTxKey{}).(*MemoryDB)
	return ok && owner == m
}

func (m *MemoryDB) register(t snapshotter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = append(m.tables, t)
}

// Table is a keyed collection of rows stored by value. Rows must not share
// mutable state with the caller; slices are copied by the repositories that
// own them.
type Table[T any] struct {
	rows   map[uint]T
	nextID uint
}

// NewTable creates a table registered with db for rollback.
func NewTable[T any](db *MemoryDB) *Table[T] {
	t := &Table[T]{rows: make(map[uint]T)}
	db.register(t)
	return t
}

// NextID allocates the next identifier, starting at 1.
func (t *Table[T]) NextID() uint {
	t.nextID++
	return t.nextID
}

// Put inserts or replaces the row with the given id.
func (t *Table[T]) Put(id uint, row T) {
	if id > t.nextID {
		t.nextID = id
	}
	t.rows[id] = row
}

// Get returns the row with the given id.
func (t *Table[T]) Get(id uint) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

// Delete removes the row with the given id.
func (t *Table[T]) Delete(id uint) {
	delete(t.rows, id)
}

// All returns every row ordered by id.
func (t *Table[T]) All() []T {
	return t.Filter(nil)
}

// Filter returns the rows accepted by keep, ordered by id. A nil keep accepts
// every row.
func (t *Table[T]) Filter(keep func(T) bool) []T {
	ids := make([]uint, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		row := t.rows[id]
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	return len(t.rows)
}

func (t *Table[T]) snapshot() func() {
	rows := make(map[uint]T, len(t.rows))
	for id, row := range t.rows {
		rows[id] = row
	}
	nextID := t.nextID
	return func() {
		t.rows = rows
		t.nextID = nextID
	}
}
