package app

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	invdomain "github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/config"
	"github.com/tair/plantops/pkg/database"
)

func openPostgres(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.OpenGorm(dsn, config.DatabaseConfig{MaxOpenConns: 10, MaxIdleConns: 2})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store, err := newGormStore(db)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresConcurrentOutboundNeverOverdraws(t *testing.T) {
	store := openPostgres(t)
	ctx := context.Background()
	l := ledger.NewLedger(store.Inventory, store.Tx, prometheus.NewRegistry())

	part := &invdomain.Part{
		PartNumber:  "IT-" + uuid.NewString()[:8],
		Name:        "Integration part",
		Unit:        "pcs",
		CreatedByID: 1,
	}
	if err := store.Inventory.CreatePart(ctx, part); err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := l.Post(ctx, ledger.PostingRequest{
		PartID: part.ID, Kind: invdomain.MovementInbound, Quantity: decimal.NewFromInt(10), ActorID: 1,
	}); err != nil {
		t.Fatalf("inbound: %v", err)
	}

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Post(ctx, ledger.PostingRequest{
				PartID: part.ID, Kind: invdomain.MovementOutbound, Quantity: decimal.NewFromInt(3), ActorID: 1,
			})
			switch {
			case err == nil:
				mu.Lock()
				accepted++
				mu.Unlock()
			case !apperr.Is(err, apperr.KindInsufficientStock):
				t.Errorf("outbound: %v", err)
			}
		}()
	}
	wg.Wait()

	if accepted != 3 {
		t.Fatalf("expected 3 accepted postings, got %d", accepted)
	}
	replay, err := l.Replay(ctx, part.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Consistent || !replay.Projected.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("unexpected replay %+v", replay)
	}
}
