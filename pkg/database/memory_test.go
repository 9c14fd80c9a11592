package database

import (
	"context"
	"errors"
	"testing"
)

type row struct {
	ID   uint
	Name string
}

func TestMemoryDBRollsBackOnError(t *testing.T) {
	db := NewMemoryDB()
	table := NewTable[row](db)
	ctx := context.Background()

	err := db.WithinTransaction(ctx, func(ctx context.Context) error {
		id := table.NextID()
		table.Put(id, row{ID: id, Name: "kept"})
		return nil
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err = db.WithinTransaction(ctx, func(ctx context.Context) error {
		id := table.NextID()
		table.Put(id, row{ID: id, Name: "discarded"})
		table.Delete(1)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	rows := table.All()
	if len(rows) != 1 || rows[0].Name != "kept" {
		t.Fatalf("rollback did not restore rows: %+v", rows)
	}
	if next := table.NextID(); next != 2 {
		t.Fatalf("rollback did not restore id sequence, next id %d", next)
	}
}

func TestMemoryDBNestedTransactionJoinsOuter(t *testing.T) {
	db := NewMemoryDB()
	table := NewTable[row](db)
	ctx := context.Background()

	err := db.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := db.WithinTransaction(ctx, func(ctx context.Context) error {
			table.Put(table.NextID(), row{Name: "inner"})
			return nil
		}); err != nil {
			return err
		}
		return db.Run(ctx, func() error {
			if table.Len() != 1 {
				t.Errorf("inner write not visible to outer transaction")
			}
			return errors.New("abort outer")
		})
	})
	if err == nil {
		t.Fatal("expected outer error")
	}
	if table.Len() != 0 {
		t.Fatalf("inner write survived outer rollback")
	}
}

func TestTableFilterOrdersByID(t *testing.T) {
	db := NewMemoryDB()
	table := NewTable[row](db)
	table.Put(3, row{ID: 3, Name: "c"})
	table.Put(1, row{ID: 1, Name: "a"})
	table.Put(2, row{ID: 2, Name: "b"})

	got := table.Filter(func(r row) bool { return r.Name != "b" })
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if next := table.NextID(); next != 4 {
		t.Fatalf("Put did not advance the id sequence, next id %d", next)
	}
}
