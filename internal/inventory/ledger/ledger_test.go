package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	"github.com/tair/plantops/internal/inventory/repository"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	db     *database.MemoryDB
	repo   *repository.MemoryRepository
	ledger *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := database.NewMemoryDB()
	repo := repository.NewMemoryRepository(db)
	return &fixture{
		db:     db,
		repo:   repo,
		ledger: ledger.NewLedger(repo, db, prometheus.NewRegistry()),
	}
}

func (f *fixture) part(t *testing.T, number string, minimum string) *domain.Part {
	t.Helper()
	part := &domain.Part{
		PartNumber:   number,
		Name:         number,
		Unit:         "pcs",
		MinimumStock: dec(minimum),
		Price:        dec("3.20"),
		CreatedByID:  1,
	}
	if err := f.repo.CreatePart(context.Background(), part); err != nil {
		t.Fatalf("create part: %v", err)
	}
	return part
}

func (f *fixture) post(t *testing.T, partID uint, kind domain.MovementKind, qty string) (*ledger.PostingResult, error) {
	t.Helper()
	return f.ledger.Post(context.Background(), ledger.PostingRequest{
		PartID:   partID,
		Kind:     kind,
		Quantity: dec(qty),
		ActorID:  1,
	})
}

func (f *fixture) quantity(t *testing.T, partID uint) decimal.Decimal {
	t.Helper()
	part, err := f.repo.FindPart(context.Background(), partID)
	if err != nil {
		t.Fatalf("find part: %v", err)
	}
	return part.CurrentQuantity
}

func TestOutboundBelowThresholdThenRejected(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "X", "5")

	if _, err := f.post(t, part.ID, domain.MovementInbound, "10"); err != nil {
		t.Fatalf("inbound: %v", err)
	}

	res, err := f.post(t, part.ID, domain.MovementOutbound, "6")
	if err != nil {
		t.Fatalf("outbound 6: %v", err)
	}
	if !res.Part.CurrentQuantity.Equal(dec("4")) || !res.BelowMinimum {
		t.Fatalf("expected quantity 4 below minimum, got %s below=%v", res.Part.CurrentQuantity, res.BelowMinimum)
	}

	_, err = f.post(t, part.ID, domain.MovementOutbound, "10")
	var stockErr *apperr.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if !stockErr.Available.Equal(dec("4")) || !stockErr.Requested.Equal(dec("10")) {
		t.Fatalf("unexpected error detail: %+v", stockErr)
	}
	if q := f.quantity(t, part.ID); !q.Equal(dec("4")) {
		t.Fatalf("rejected posting changed quantity to %s", q)
	}

	movements, err := f.repo.ListMovements(context.Background(), part.ID)
	if err != nil {
		t.Fatalf("list movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("rejected posting left a movement behind: %d movements", len(movements))
	}
}

func TestRecountSetsAbsoluteValue(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "R", "0")

	for _, v := range []string{"0", "17", "3.5", "0"} {
		res, err := f.post(t, part.ID, domain.MovementRecount, v)
		if err != nil {
			t.Fatalf("recount %s: %v", v, err)
		}
		if !res.Part.CurrentQuantity.Equal(dec(v)) {
			t.Fatalf("recount %s produced %s", v, res.Part.CurrentQuantity)
		}
	}

	if _, err := f.post(t, part.ID, domain.MovementRecount, "-1"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("negative recount accepted: %v", err)
	}
}

func TestPostingValidation(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "V", "0")
	orderID, lineID := uint(9), uint(3)

	tests := []struct {
		name string
		req  ledger.PostingRequest
	}{
		{"zero inbound", ledger.PostingRequest{PartID: part.ID, Kind: domain.MovementInbound, Quantity: decimal.Zero}},
		{"negative outbound", ledger.PostingRequest{PartID: part.ID, Kind: domain.MovementOutbound, Quantity: dec("-2")}},
		{"missing part", ledger.PostingRequest{Kind: domain.MovementInbound, Quantity: dec("1")}},
		{"line without order", ledger.PostingRequest{PartID: part.ID, Kind: domain.MovementInbound, Quantity: dec("1"), PurchaseOrderLineID: &lineID}},
		{"outbound with order line", ledger.PostingRequest{PartID: part.ID, Kind: domain.MovementOutbound, Quantity: dec("1"), PurchaseOrderID: &orderID, PurchaseOrderLineID: &lineID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.ledger.Post(context.Background(), tt.req); !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if _, err := f.post(t, 999, domain.MovementInbound, "1"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown part, got %v", err)
	}
}

func TestReplayMatchesProjectionAfterRandomPostings(t *testing.T) {
	f := newFixture(t)
	parts := []*domain.Part{f.part(t, "A", "2"), f.part(t, "B", "0"), f.part(t, "C", "1")}

	// A clock that sometimes steps backwards must not break replay order.
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(7))
	f.ledger.WithClock(func() time.Time {
		return base.Add(time.Duration(rng.Intn(1000)) * time.Second)
	})

	kinds := []domain.MovementKind{domain.MovementInbound, domain.MovementOutbound, domain.MovementRecount}
	for i := 0; i < 300; i++ {
		part := parts[rng.Intn(len(parts))]
		kind := kinds[rng.Intn(len(kinds))]
		qty := decimal.NewFromInt(int64(rng.Intn(20))).Add(decimal.New(int64(rng.Intn(4)), -1))

		_, err := f.post(t, part.ID, kind, qty.String())
		if err != nil && !apperr.Is(err, apperr.KindInsufficientStock) && !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("posting %d: %v", i, err)
		}
	}

	for _, part := range parts {
		res, err := f.ledger.Replay(context.Background(), part.ID)
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if !res.Consistent {
			t.Fatalf("part %s drifted: projected %s, replayed %s", part.PartNumber, res.Projected, res.Replayed)
		}
		if res.Projected.IsNegative() {
			t.Fatalf("part %s went negative: %s", part.PartNumber, res.Projected)
		}
	}

	drifts, err := f.ledger.Audit(context.Background())
	if err != nil || len(drifts) != 0 {
		t.Fatalf("audit: %v %+v", err, drifts)
	}
}

func TestAuditReportsDrift(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "D", "0")
	if _, err := f.post(t, part.ID, domain.MovementInbound, "5"); err != nil {
		t.Fatalf("inbound: %v", err)
	}

	// Simulate a write that bypassed the ledger.
	if err := f.repo.UpdateQuantity(context.Background(), part.ID, dec("8")); err != nil {
		t.Fatalf("update: %v", err)
	}

	drifts, err := f.ledger.Audit(context.Background())
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(drifts) != 1 || drifts[0].PartID != part.ID || !drifts[0].Replayed.Equal(dec("5")) {
		t.Fatalf("unexpected drifts: %+v", drifts)
	}
}

func TestReverse(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "REV", "0")
	ctx := context.Background()

	in, err := f.post(t, part.ID, domain.MovementInbound, "8")
	if err != nil {
		t.Fatalf("inbound: %v", err)
	}

	rev, err := f.ledger.Reverse(ctx, in.Movement.ID, 2, "booked on wrong part")
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if rev.Movement.Kind != domain.MovementOutbound || !rev.Part.CurrentQuantity.IsZero() {
		t.Fatalf("unexpected reversal: %+v", rev.Movement)
	}
	if rev.Movement.ReversesMovementID == nil || *rev.Movement.ReversesMovementID != in.Movement.ID {
		t.Fatal("reversal does not reference the original movement")
	}

	t.Run("only once", func(t *testing.T) {
		if _, err := f.ledger.Reverse(ctx, in.Movement.ID, 2, "again"); !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("reversal is not reversible", func(t *testing.T) {
		if _, err := f.ledger.Reverse(ctx, rev.Movement.ID, 2, "undo"); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("recount is not reversible", func(t *testing.T) {
		rc, err := f.post(t, part.ID, domain.MovementRecount, "3")
		if err != nil {
			t.Fatalf("recount: %v", err)
		}
		if _, err := f.ledger.Reverse(ctx, rc.Movement.ID, 2, "undo"); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("outbound reversal needs stock", func(t *testing.T) {
		in2, err := f.post(t, part.ID, domain.MovementInbound, "5")
		if err != nil {
			t.Fatalf("inbound: %v", err)
		}
		if _, err := f.post(t, part.ID, domain.MovementOutbound, "7"); err != nil {
			t.Fatalf("outbound: %v", err)
		}
		if _, err := f.ledger.Reverse(ctx, in2.Movement.ID, 2, "undo"); !apperr.Is(err, apperr.KindInsufficientStock) {
			t.Fatalf("expected insufficient stock, got %v", err)
		}
	})
}

func TestPostingJoinsOuterTransaction(t *testing.T) {
	f := newFixture(t)
	part := f.part(t, "TX", "0")
	ctx := context.Background()

	abort := errors.New("abort")
	err := f.db.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := f.ledger.Post(ctx, ledger.PostingRequest{PartID: part.ID, Kind: domain.MovementInbound, Quantity: dec("4"), ActorID: 1}); err != nil {
			return err
		}
		return abort
	})
	if !errors.Is(err, abort) {
		t.Fatalf("expected abort, got %v", err)
	}

	if q := f.quantity(t, part.ID); !q.IsZero() {
		t.Fatalf("posting survived rollback, quantity %s", q)
	}
	movements, _ := f.repo.ListMovements(ctx, part.ID)
	if len(movements) != 0 {
		t.Fatalf("movement survived rollback")
	}
}
