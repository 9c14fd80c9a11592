package domain

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tair/plantops/pkg/apperr"
)

func TestOrderTransitionTable(t *testing.T) {
	statuses := []OrderStatus{
		OrderDraft, OrderPendingApproval, OrderApproved, OrderOrdered,
		OrderPartiallyReceived, OrderReceived, OrderClosed, OrderCancelled,
	}
	triggers := []OrderTrigger{
		TriggerSubmit, TriggerApprove, TriggerPlace, TriggerReceivePartial,
		TriggerReceiveFull, TriggerClose, TriggerCancel,
	}
	legal := map[OrderStatus]map[OrderTrigger]OrderStatus{
		OrderDraft:             {TriggerSubmit: OrderPendingApproval},
		OrderPendingApproval:   {TriggerApprove: OrderApproved},
		OrderApproved:          {TriggerPlace: OrderOrdered},
		OrderOrdered:           {TriggerReceivePartial: OrderPartiallyReceived, TriggerReceiveFull: OrderReceived},
		OrderPartiallyReceived: {TriggerReceivePartial: OrderPartiallyReceived, TriggerReceiveFull: OrderReceived},
		OrderReceived:          {TriggerClose: OrderClosed, TriggerCancel: OrderCancelled},
		OrderClosed:            {TriggerCancel: OrderCancelled},
	}

	for _, from := range statuses {
		for _, trigger := range triggers {
			order := &PurchaseOrder{ID: 1, Status: from}
			err := order.Apply(trigger)

			want, ok := legal[from][trigger]
			if ok {
				if err != nil || order.Status != want {
					t.Errorf("%s --%s--> expected %s, got %s (%v)", from, trigger, want, order.Status, err)
				}
				continue
			}
			if !apperr.Is(err, apperr.KindInvalidTransition) {
				t.Errorf("%s --%s--> should be rejected, got %v", from, trigger, err)
			}
			if order.Status != from {
				t.Errorf("rejected transition changed status to %s", order.Status)
			}
		}
	}
}

func TestCancelOnlyAfterReceipt(t *testing.T) {
	for _, s := range []OrderStatus{OrderDraft, OrderPendingApproval, OrderApproved, OrderOrdered, OrderPartiallyReceived} {
		if _, ok := s.Next(TriggerCancel); ok {
			t.Errorf("%s must not be cancellable", s)
		}
	}
}

func TestReceiptTrigger(t *testing.T) {
	line := func(ordered, received int64) PurchaseOrderLine {
		return PurchaseOrderLine{QuantityOrdered: decimal.NewFromInt(ordered), QuantityReceived: decimal.NewFromInt(received)}
	}

	tests := []struct {
		name    string
		lines   []PurchaseOrderLine
		want    OrderTrigger
		changed bool
	}{
		{"nothing received", []PurchaseOrderLine{line(5, 0), line(3, 0)}, "", false},
		{"one partial", []PurchaseOrderLine{line(5, 2), line(3, 0)}, TriggerReceivePartial, true},
		{"one complete one open", []PurchaseOrderLine{line(5, 5), line(3, 0)}, TriggerReceivePartial, true},
		{"all complete", []PurchaseOrderLine{line(5, 5), line(3, 3)}, TriggerReceiveFull, true},
		{"no lines", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &PurchaseOrder{Lines: tt.lines}
			got, ok := order.ReceiptTrigger()
			if got != tt.want || ok != tt.changed {
				t.Fatalf("got %q %v, want %q %v", got, ok, tt.want, tt.changed)
			}
		})
	}
}

func TestQuoteTransitionsAreLinear(t *testing.T) {
	tests := []struct {
		from, to QuoteStatus
		ok       bool
	}{
		{QuoteOpen, QuoteSent, true},
		{QuoteSent, QuoteQuoteReceived, true},
		{QuoteQuoteReceived, QuoteClosed, true},
		{QuoteOpen, QuoteQuoteReceived, false},
		{QuoteOpen, QuoteClosed, false},
		{QuoteClosed, QuoteOpen, false},
		{QuoteSent, QuoteOpen, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.ok {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}

	if !QuoteSent.PricesEditable() || QuoteClosed.PricesEditable() || QuoteSent.LinesEditable() {
		t.Fatal("unexpected edit rules")
	}
}
