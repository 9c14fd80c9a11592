package command

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tair/plantops/internal/integration/attachments"
	"github.com/tair/plantops/internal/integration/labelprinter"
	"github.com/tair/plantops/internal/integration/notify"
	invdomain "github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	invusecase "github.com/tair/plantops/internal/inventory/usecase"
	"github.com/tair/plantops/internal/organization/access"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/internal/procurement/usecase"
	"github.com/tair/plantops/pkg/database"
)

// Metrics counts workflow activity
type Metrics struct {
	transitions *prometheus.CounterVec
	receipts    *prometheus.CounterVec
}

// NewMetrics registers the procurement metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantops_workflow_transitions_total",
				Help: "Quote request and purchase order status changes",
			},
			[]string{"entity", "to"},
		),
		receipts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plantops_goods_receipts_total",
				Help: "Goods receipts by result",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) transition(entity, to string) {
	if m != nil {
		m.transitions.WithLabelValues(entity, to).Inc()
	}
}

func (m *Metrics) receipt(result string) {
	if m != nil {
		m.receipts.WithLabelValues(result).Inc()
	}
}

// Dependencies are the collaborators shared by the procurement commands
type Dependencies struct {
	Repo     domain.Repository
	Tx       database.Transactor
	Guard    *usecase.Guard
	Resolver *access.Resolver

	Parts     invdomain.Repository
	PartGuard *invusecase.PartGuard
	Ledger    *ledger.Ledger

	Notifier notify.Trigger
	Printer  labelprinter.Printer
	Store    attachments.Store
	Metrics  *Metrics
	Clock    func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

func (d *Dependencies) notify(ctx context.Context, event notify.Event) {
	if d.Notifier != nil {
		d.Notifier.Notify(ctx, event)
	}
}

func (d *Dependencies) notifyOrder(ctx context.Context, kind notify.Kind, order *domain.PurchaseOrder, actorID uint) {
	d.notify(ctx, notify.Event{
		Kind:            kind,
		EntityType:      domain.EntityPurchaseOrder,
		EntityID:        order.ID,
		ActorID:         actorID,
		DepartmentScope: append([]uint(nil), order.DepartmentIDs...),
	})
}

func (d *Dependencies) notifyQuote(ctx context.Context, kind notify.Kind, quote *domain.QuoteRequest, actorID uint) {
	d.notify(ctx, notify.Event{
		Kind:            kind,
		EntityType:      domain.EntityQuoteRequest,
		EntityID:        quote.ID,
		ActorID:         actorID,
		DepartmentScope: quote.DepartmentIDs(),
	})
}

func uintPtr(v uint) *uint { return &v }

func timePtr(t time.Time) *time.Time { return &t }
