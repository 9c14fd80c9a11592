package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tair/plantops/pkg/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestValidateQuantity(t *testing.T) {
	tests := []struct {
		kind MovementKind
		qty  string
		ok   bool
	}{
		{MovementInbound, "1", true},
		{MovementInbound, "0", false},
		{MovementInbound, "-1", false},
		{MovementOutbound, "0.5", true},
		{MovementOutbound, "0", false},
		{MovementRecount, "0", true},
		{MovementRecount, "12", true},
		{MovementRecount, "-0.1", false},
		{MovementKind("transfer"), "1", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.qty, func(t *testing.T) {
			err := ValidateQuantity(tt.kind, dec(tt.qty))
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestApply(t *testing.T) {
	current := dec("10")
	if got := Apply(current, MovementInbound, dec("2.5")); !got.Equal(dec("12.5")) {
		t.Errorf("inbound: got %s", got)
	}
	if got := Apply(current, MovementOutbound, dec("6")); !got.Equal(dec("4")) {
		t.Errorf("outbound: got %s", got)
	}
	if got := Apply(current, MovementRecount, dec("3")); !got.Equal(dec("3")) {
		t.Errorf("recount: got %s", got)
	}
}

func TestReplayOrdersByPostingTimeThenID(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	movements := []StockMovement{
		// Listed out of order on purpose.
		{ID: 3, Kind: MovementOutbound, Quantity: dec("2"), PostedAt: base.Add(time.Hour)},
		{ID: 2, Kind: MovementRecount, Quantity: dec("7"), PostedAt: base},
		{ID: 1, Kind: MovementInbound, Quantity: dec("10"), PostedAt: base},
	}

	// inbound 10, recount 7, outbound 2
	if got := Replay(movements); !got.Equal(dec("5")) {
		t.Fatalf("Replay = %s, want 5", got)
	}
	if movements[0].ID != 3 {
		t.Fatal("Replay must not reorder its input")
	}
}
