package notify

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tair/plantops/pkg/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (s *recordingSink) Send(ctx context.Context, event Event) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func TestDispatcherDeliversAndFillsDefaults(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 4, prometheus.NewRegistry())

	d.Notify(context.Background(), Event{Kind: KindOrderApproved, EntityType: "purchase_order", EntityID: 7, ActorID: 2})
	d.Close()

	if len(sink.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(sink.events))
	}
	ev := sink.events[0]
	if ev.ID == "" || ev.OccurredAt.IsZero() {
		t.Fatalf("defaults not filled: %+v", ev)
	}
	if got := testutil.ToFloat64(d.sent.WithLabelValues(string(KindOrderApproved), "sent")); got != 1 {
		t.Fatalf("sent counter = %v", got)
	}
}

func TestDispatcherSwallowsSinkErrors(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	sink := &recordingSink{err: errors.New("broker down")}
	d := NewDispatcher(sink, 4, prometheus.NewRegistry())

	d.Notify(context.Background(), Event{Kind: KindOrderReceived, EntityID: 1})
	d.Close()

	if got := testutil.ToFloat64(d.sent.WithLabelValues(string(KindOrderReceived), "failed")); got != 1 {
		t.Fatalf("failed counter = %v", got)
	}
	if out := logs.String(); !strings.Contains(out, "Failed to deliver notification") || !strings.Contains(out, "broker down") {
		t.Fatalf("delivery failure not logged: %q", out)
	}
}

func TestDispatcherNeverBlocks(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	d := NewDispatcher(sink, 1, prometheus.NewRegistry())

	// One event is held by the worker, one fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		d.Notify(context.Background(), Event{Kind: KindStockBelowMinimum, EntityID: uint(i)})
	}
	close(sink.block)
	d.Close()

	dropped := testutil.ToFloat64(d.sent.WithLabelValues(string(KindStockBelowMinimum), "dropped"))
	sent := testutil.ToFloat64(d.sent.WithLabelValues(string(KindStockBelowMinimum), "sent"))
	if dropped+sent != 5 || dropped < 3 {
		t.Fatalf("unexpected delivery: sent=%v dropped=%v", sent, dropped)
	}

	// Notify after Close is dropped, not a panic.
	d.Notify(context.Background(), Event{Kind: KindStockBelowMinimum})
}
