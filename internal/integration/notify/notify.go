package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tair/plantops/pkg/logger"
)

// Kind names a notification decision
type Kind string

// Notification kinds
const (
	KindQuoteSent              Kind = "quote.sent"
	KindQuoteReceived          Kind = "quote.quote_received"
	KindOrderSubmitted         Kind = "order.submitted"
	KindOrderApproved          Kind = "order.approved"
	KindOrderOrdered           Kind = "order.ordered"
	KindOrderPartiallyReceived Kind = "order.partially_received"
	KindOrderReceived          Kind = "order.received"
	KindOrderClosed            Kind = "order.closed"
	KindOrderCancelled         Kind = "order.cancelled"
	KindStockBelowMinimum      Kind = "stock.below_minimum"
)

// Event is the decision to notify about a change of an entity
type Event struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	EntityType      string    `json:"entity_type"`
	EntityID        uint      `json:"entity_id"`
	ActorID         uint      `json:"actor_id"`
	DepartmentScope []uint    `json:"department_scope"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Trigger receives notification decisions. Implementations must not block
// and must not fail the caller.
type Trigger interface {
	Notify(ctx context.Context, event Event)
}

// Sink delivers events somewhere
type Sink interface {
	Send(ctx context.Context, event Event) error
}

type queued struct {
	ctx   context.Context
	event Event
}

// Dispatcher is an asynchronous Trigger. Events are queued and delivered to
// the sink by a background worker; a full queue drops the event.
type Dispatcher struct {
	sink    Sink
	queue   chan queued
	timeout time.Duration
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	sent *prometheus.CounterVec
}

// NewDispatcher creates a dispatcher and starts its worker
func NewDispatcher(sink Sink, buffer int, reg prometheus.Registerer) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan queued, buffer),
		timeout: 10 * time.Second,
		done:    make(chan struct{}),
		sent: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantops_notifications_total",
				Help: "Notification decisions by kind and delivery result",
			},
			[]string{"kind", "result"},
		),
	}
	go d.run()
	return d
}

// Notify queues event for delivery
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	// Keep trace values but detach from the request's cancellation.
	item := queued{ctx: context.WithoutCancel(ctx), event: event}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.sent.WithLabelValues(string(event.Kind), "dropped").Inc()
		return
	}
	select {
	case d.queue <- item:
	default:
		d.sent.WithLabelValues(string(event.Kind), "dropped").Inc()
		logger.Error(ctx).
			Str("kind", string(event.Kind)).
			Uint("entity_id", event.EntityID).
			Msg("Notification queue full, event dropped")
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for item := range d.queue {
		d.deliver(item)
	}
}

func (d *Dispatcher) deliver(item queued) {
	ctx, cancel := context.WithTimeout(item.ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.sent.WithLabelValues(string(item.event.Kind), "failed").Inc()
			logger.Error(ctx).Interface("panic", r).Str("kind", string(item.event.Kind)).Msg("Notification sink panicked")
		}
	}()

	if err := d.sink.Send(ctx, item.event); err != nil {
		d.sent.WithLabelValues(string(item.event.Kind), "failed").Inc()
		logger.Error(ctx).
			Err(err).
			Str("kind", string(item.event.Kind)).
			Str("entity_type", item.event.EntityType).
			Uint("entity_id", item.event.EntityID).
			Msg("Failed to deliver notification")
		return
	}
	d.sent.WithLabelValues(string(item.event.Kind), "sent").Inc()
}

// Close stops accepting events and waits until the queue is drained
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}
