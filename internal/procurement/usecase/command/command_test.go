package command_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/integration/attachments"
	"github.com/tair/plantops/internal/integration/export"
	"github.com/tair/plantops/internal/integration/labelprinter"
	"github.com/tair/plantops/internal/integration/notify"
	invdomain "github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	invrepo "github.com/tair/plantops/internal/inventory/repository"
	invusecase "github.com/tair/plantops/internal/inventory/usecase"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/graph"
	orgrepo "github.com/tair/plantops/internal/organization/repository"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/internal/procurement/repository"
	"github.com/tair/plantops/internal/procurement/usecase"
	"github.com/tair/plantops/internal/procurement/usecase/command"
	"github.com/tair/plantops/internal/procurement/usecase/query"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

type recordingTrigger struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingTrigger) Notify(_ context.Context, event notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTrigger) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

type recordingPrinter struct {
	mu   sync.Mutex
	jobs []labelprinter.Job
	err  error
}

func (p *recordingPrinter) Print(_ context.Context, job labelprinter.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobs = append(p.jobs, job)
	return p.err
}

// failingReceipts breaks the last write of a goods receipt
type failingReceipts struct {
	domain.Repository
}

func (failingReceipts) CreateGoodsReceipt(context.Context, *domain.GoodsReceipt) error {
	return errors.New("connection reset")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(v uint) *uint { return &v }

type fixture struct {
	deps     *command.Dependencies
	repo     *repository.MemoryRepository
	parts    *invrepo.MemoryRepository
	trigger  *recordingTrigger
	printer  *recordingPrinter
	registry *prometheus.Registry

	createQuote *command.CreateQuoteHandler
	quoteLines  *command.QuoteLinesHandler
	quoteMove   *command.QuoteTransitionHandler
	accept      *command.AcceptQuotedPricesHandler
	fromQuote   *command.CreateOrderFromQuoteHandler
	createOrder *command.CreateOrderHandler
	orderLines  *command.OrderLinesHandler
	orderACL    *command.SetOrderDepartmentsHandler
	orderMove   *command.OrderTransitionHandler
	receive     *command.ReceiveGoodsHandler
	attach      *command.AttachHandler

	getOrder    *query.GetOrderHandler
	listOrders  *query.ListOrdersHandler
	receipts    *query.ListGoodsReceiptsHandler
	attachments *query.AttachmentsHandler
	export      *query.ExportHandler

	buyer    *orgdomain.Employee
	approver *orgdomain.Employee
	outsider *orgdomain.Employee
	admin    *orgdomain.Employee
}

var everyPermission = []orgdomain.Permission{
	orgdomain.PermissionManageParts, orgdomain.PermissionBookStock, orgdomain.PermissionCreateOrders,
	orgdomain.PermissionApproveOrders, orgdomain.PermissionManageQuotes,
}

// Departments: Plant(1) > Maintenance(2); Logistics(3) > Stores(4) is a
// separate root and Stores is inactive.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := database.NewMemoryDB()

	departments := orgrepo.NewMemoryRepository(db)
	for _, d := range []orgdomain.Department{
		{Name: "Plant", Active: true},
		{Name: "Maintenance", ParentID: ptr(1), Active: true},
		{Name: "Logistics", Active: true},
		{Name: "Stores", ParentID: ptr(3)},
	} {
		d := d
		if err := departments.CreateDepartment(ctx, &d); err != nil {
			t.Fatalf("create department: %v", err)
		}
	}
	resolver := access.NewResolver(graph.NewCache(departments))

	parts := invrepo.NewMemoryRepository(db)
	repo := repository.NewMemoryRepository(db)
	registry := prometheus.NewRegistry()
	trigger := &recordingTrigger{}
	printer := &recordingPrinter{}
	store := attachments.NewMemoryStore()
	guard := usecase.NewGuard(repo, resolver)

	deps := &command.Dependencies{
		Repo:      repo,
		Tx:        db,
		Guard:     guard,
		Resolver:  resolver,
		Parts:     parts,
		PartGuard: invusecase.NewPartGuard(parts, resolver),
		Ledger:    ledger.NewLedger(parts, db, registry),
		Notifier:  trigger,
		Printer:   printer,
		Store:     store,
		Metrics:   command.NewMetrics(registry),
		Clock:     func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) },
	}

	f := &fixture{
		deps:     deps,
		repo:     repo,
		parts:    parts,
		trigger:  trigger,
		printer:  printer,
		registry: registry,

		getOrder:    query.NewGetOrderHandler(guard),
		listOrders:  query.NewListOrdersHandler(repo, guard),
		receipts:    query.NewListGoodsReceiptsHandler(repo, guard),
		attachments: query.NewAttachmentsHandler(repo, guard, store),
		export:      query.NewExportHandler(guard, export.NewExcelExporter()),

		buyer:    &orgdomain.Employee{ID: 10, Active: true, PrimaryDepartmentID: ptr(2), Permissions: everyPermission},
		approver: &orgdomain.Employee{ID: 11, Active: true, PrimaryDepartmentID: ptr(1), Permissions: []orgdomain.Permission{orgdomain.PermissionApproveOrders}},
		outsider: &orgdomain.Employee{ID: 20, Active: true, PrimaryDepartmentID: ptr(3), Permissions: everyPermission},
		admin:    &orgdomain.Employee{ID: 1, Active: true, Permissions: []orgdomain.Permission{orgdomain.PermissionAdmin}},
	}
	f.wire(deps)
	return f
}

func (f *fixture) wire(deps *command.Dependencies) {
	f.createQuote = command.NewCreateQuoteHandler(deps)
	f.quoteLines = command.NewQuoteLinesHandler(deps)
	f.quoteMove = command.NewQuoteTransitionHandler(deps)
	f.accept = command.NewAcceptQuotedPricesHandler(deps)
	f.fromQuote = command.NewCreateOrderFromQuoteHandler(deps)
	f.createOrder = command.NewCreateOrderHandler(deps)
	f.orderLines = command.NewOrderLinesHandler(deps)
	f.orderACL = command.NewSetOrderDepartmentsHandler(deps)
	f.orderMove = command.NewOrderTransitionHandler(deps)
	f.receive = command.NewReceiveGoodsHandler(deps)
	f.attach = command.NewAttachHandler(deps)
}

func (f *fixture) newPart(t *testing.T, number string) *invdomain.Part {
	t.Helper()
	part := &invdomain.Part{
		PartNumber:    number,
		Name:          "Part " + number,
		Unit:          "pcs",
		MinimumStock:  dec("5"),
		CreatedByID:   f.buyer.ID,
		DepartmentIDs: []uint{2},
	}
	if err := f.parts.CreatePart(context.Background(), part); err != nil {
		t.Fatalf("create part: %v", err)
	}
	return part
}

// placedOrder creates an order with the given lines and moves it to Ordered
func (f *fixture) placedOrder(t *testing.T, lines ...command.OrderLineInput) *domain.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	order, err := f.createOrder.Handle(ctx, f.buyer, command.CreateOrderCommand{SupplierID: 7, Lines: lines})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if _, err := f.orderMove.Submit(ctx, f.buyer, order.ID, "urgent"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.orderMove.Approve(ctx, f.approver, order.ID, []byte("signature")); err != nil {
		t.Fatalf("approve: %v", err)
	}
	order, err = f.orderMove.Place(ctx, f.buyer, order.ID)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	return order
}

func partLine(part *invdomain.Part, qty string) command.OrderLineInput {
	return command.OrderLineInput{PartID: &part.ID, Quantity: dec(qty), UnitPrice: dec("3.10"), Currency: "eur"}
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	if !apperr.Is(err, kind) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
}

func TestQuoteToPurchaseOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.createQuote.Handle(ctx, f.buyer, command.CreateQuoteCommand{
		SupplierID: 7,
		Lines:      []command.QuoteLineInput{{OrderNumber: "ABC-1", Quantity: dec("4"), Unit: "pcs"}},
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if quote.Status != domain.QuoteOpen || *quote.DepartmentID != 2 {
		t.Fatalf("unexpected new quote %+v", quote)
	}
	lineID := quote.Lines[0].ID

	_, err = f.fromQuote.Handle(ctx, f.buyer, quote.ID)
	assertKind(t, err, apperr.KindInvalidTransition)
	_, err = f.quoteMove.Handle(ctx, f.buyer, quote.ID, domain.QuoteQuoteReceived)
	assertKind(t, err, apperr.KindInvalidTransition)

	if _, err := f.quoteMove.Handle(ctx, f.buyer, quote.ID, domain.QuoteSent); err != nil {
		t.Fatalf("send: %v", err)
	}
	_, err = f.quoteLines.Add(ctx, f.buyer, quote.ID, command.QuoteLineInput{OrderNumber: "X", Quantity: dec("1")})
	assertKind(t, err, apperr.KindInvalidTransition)

	if _, err := f.quoteMove.Handle(ctx, f.buyer, quote.ID, domain.QuoteQuoteReceived); err != nil {
		t.Fatalf("quote received: %v", err)
	}
	if _, err := f.quoteLines.SetPrice(ctx, f.buyer, quote.ID, lineID, dec("12.50"), "eur"); err != nil {
		t.Fatalf("set price: %v", err)
	}

	order, err := f.fromQuote.Handle(ctx, f.buyer, quote.ID)
	if err != nil {
		t.Fatalf("create order from quote: %v", err)
	}
	if len(order.Lines) != 1 || !order.Lines[0].UnitPrice.Equal(dec("12.50")) || order.Lines[0].Currency != "EUR" {
		t.Fatalf("quoted price not copied: %+v", order.Lines)
	}
	if order.Lines[0].OrderNumber != "ABC-1" || order.Status != domain.OrderDraft {
		t.Fatalf("unexpected order %+v", order)
	}

	closed, err := f.repo.FindQuote(ctx, quote.ID)
	if err != nil {
		t.Fatalf("find quote: %v", err)
	}
	if closed.Status != domain.QuoteClosed || closed.PurchaseOrderID == nil || *closed.PurchaseOrderID != order.ID {
		t.Fatalf("quote should be closed and linked, got %+v", closed)
	}
	_, err = f.quoteLines.SetPrice(ctx, f.buyer, quote.ID, lineID, dec("1"), "EUR")
	assertKind(t, err, apperr.KindInvalidTransition)

	want := []notify.Kind{notify.KindQuoteSent, notify.KindQuoteReceived}
	if got := f.trigger.kinds(); len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("notifications = %v, want %v", got, want)
	}
}

// receivedQuote creates a quote with lines and moves it to QuoteReceived
func (f *fixture) receivedQuote(t *testing.T, actor *orgdomain.Employee, lines ...command.QuoteLineInput) *domain.QuoteRequest {
	t.Helper()
	ctx := context.Background()
	quote, err := f.createQuote.Handle(ctx, actor, command.CreateQuoteCommand{SupplierID: 7, Lines: lines})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	for _, to := range []domain.QuoteStatus{domain.QuoteSent, domain.QuoteQuoteReceived} {
		if _, err := f.quoteMove.Handle(ctx, actor, quote.ID, to); err != nil {
			t.Fatalf("move to %s: %v", to, err)
		}
	}
	return quote
}

func TestOrderFromQuoteValidatesDepartments(t *testing.T) {
	tests := []struct {
		name       string
		department uint
	}{
		{"missing department", 99},
		{"inactive department", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			actor := &orgdomain.Employee{ID: 30, Active: true, PrimaryDepartmentID: ptr(tt.department), Permissions: everyPermission}

			_, err := f.createOrder.Handle(ctx, actor, command.CreateOrderCommand{
				SupplierID: 7,
				Lines:      []command.OrderLineInput{{Description: "gasket", Quantity: dec("1")}},
			})
			assertKind(t, err, apperr.KindValidation)

			quote := f.receivedQuote(t, actor, command.QuoteLineInput{Description: "gasket", Quantity: dec("1")})
			_, err = f.fromQuote.Handle(ctx, actor, quote.ID)
			assertKind(t, err, apperr.KindValidation)

			stored, err := f.repo.FindQuote(ctx, quote.ID)
			if err != nil {
				t.Fatalf("find quote: %v", err)
			}
			if stored.Status != domain.QuoteQuoteReceived || stored.PurchaseOrderID != nil {
				t.Fatalf("quote changed by rejected order: %+v", stored)
			}
			orders, err := f.listOrders.Handle(ctx, f.admin, query.ListQuery{})
			if err != nil || len(orders) != 0 {
				t.Fatalf("orders = %d (%v), want none", len(orders), err)
			}
		})
	}
}

func TestOrderFromQuoteChecksPartVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part := &invdomain.Part{
		PartNumber:    "P-9",
		Name:          "Seal kit",
		Unit:          "pcs",
		CreatedByID:   f.admin.ID,
		DepartmentIDs: []uint{2},
	}
	if err := f.parts.CreatePart(ctx, part); err != nil {
		t.Fatalf("create part: %v", err)
	}
	quote := f.receivedQuote(t, f.buyer, command.QuoteLineInput{PartID: &part.ID, Quantity: dec("2")})

	// The part moves out of the buyer's departments after the quote was sent.
	if err := f.parts.SetPartDepartments(ctx, part.ID, []uint{3}); err != nil {
		t.Fatalf("set part departments: %v", err)
	}

	_, err := f.fromQuote.Handle(ctx, f.buyer, quote.ID)
	assertKind(t, err, apperr.KindNotFound)

	stored, err := f.repo.FindQuote(ctx, quote.ID)
	if err != nil {
		t.Fatalf("find quote: %v", err)
	}
	if stored.Status != domain.QuoteQuoteReceived {
		t.Fatalf("quote status = %s, want %s", stored.Status, domain.QuoteQuoteReceived)
	}
}

func TestAcceptQuotedPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part := f.newPart(t, "P-1")

	quote, err := f.createQuote.Handle(ctx, f.buyer, command.CreateQuoteCommand{
		SupplierID: 7,
		Lines: []command.QuoteLineInput{
			{PartID: &part.ID, Quantity: dec("2")},
			{Description: "uncatalogued gasket", Quantity: dec("1")},
		},
	})
	if err != nil {
		t.Fatalf("create quote: %v", err)
	}
	if quote.Lines[0].OrderNumber != "P-1" || quote.Lines[0].Unit != "pcs" {
		t.Fatalf("part data not copied to line: %+v", quote.Lines[0])
	}
	for _, l := range quote.Lines {
		if _, err := f.quoteLines.SetPrice(ctx, f.buyer, quote.ID, l.ID, dec("7.25"), "EUR"); err != nil {
			t.Fatalf("set price: %v", err)
		}
	}

	_, err = f.accept.Handle(ctx, f.buyer, quote.ID)
	assertKind(t, err, apperr.KindInvalidTransition)

	for _, to := range []domain.QuoteStatus{domain.QuoteSent, domain.QuoteQuoteReceived} {
		if _, err := f.quoteMove.Handle(ctx, f.buyer, quote.ID, to); err != nil {
			t.Fatalf("move to %s: %v", to, err)
		}
	}
	_, err = f.accept.Handle(ctx, f.outsider, quote.ID)
	assertKind(t, err, apperr.KindNotFound)

	accepted, err := f.accept.Handle(ctx, f.buyer, quote.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.PricesAcceptedAt == nil {
		t.Fatal("acceptance time not recorded")
	}

	updated, err := f.parts.FindPart(ctx, part.ID)
	if err != nil {
		t.Fatalf("find part: %v", err)
	}
	if !updated.Price.Equal(dec("7.25")) || updated.PriceCurrency != "EUR" || updated.PriceAsOf == nil {
		t.Fatalf("catalog price not updated: %+v", updated)
	}
}

func TestReceiveGoods(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part := f.newPart(t, "P-1")
	order := f.placedOrder(t, partLine(part, "20"))
	lineID := order.Lines[0].ID

	res, err := f.receive.Handle(ctx, f.buyer, command.ReceiveGoodsCommand{
		OrderID: order.ID, Lines: map[uint]decimal.Decimal{lineID: dec("10")}, DeliveryNote: "LS-1",
	})
	if err != nil {
		t.Fatalf("first receipt: %v", err)
	}
	if res.Order.Status != domain.OrderPartiallyReceived || !res.Order.Lines[0].QuantityReceived.Equal(dec("10")) {
		t.Fatalf("after first receipt: status %s, received %s", res.Order.Status, res.Order.Lines[0].QuantityReceived)
	}
	if len(res.Postings) != 1 || !res.Postings[0].Part.CurrentQuantity.Equal(dec("10")) {
		t.Fatalf("stock not posted: %+v", res.Postings)
	}
	movement := res.Postings[0].Movement
	if movement.PurchaseOrderLineID == nil || *movement.PurchaseOrderLineID != lineID || !movement.UnitPrice.Equal(dec("3.10")) {
		t.Fatalf("movement does not reference the order line: %+v", movement)
	}

	res, err = f.receive.Handle(ctx, f.buyer, command.ReceiveGoodsCommand{
		OrderID: order.ID, Lines: map[uint]decimal.Decimal{lineID: dec("10")},
	})
	if err != nil {
		t.Fatalf("second receipt: %v", err)
	}
	if res.Order.Status != domain.OrderReceived || res.Order.ReceivedAt == nil {
		t.Fatalf("order should be received, got %s", res.Order.Status)
	}

	_, err = f.receive.Handle(ctx, f.buyer, command.ReceiveGoodsCommand{
		OrderID: order.ID, Lines: map[uint]decimal.Decimal{lineID: dec("1")},
	})
	if err == nil {
		t.Fatal("receiving beyond the ordered quantity should fail")
	}

	stored, _ := f.parts.FindPart(ctx, part.ID)
	if !stored.CurrentQuantity.Equal(dec("20")) {
		t.Fatalf("stock = %s, want 20", stored.CurrentQuantity)
	}
	receipts, err := f.receipts.Handle(ctx, f.buyer, order.ID)
	if err != nil || len(receipts) != 2 {
		t.Fatalf("receipts = %d (%v), want 2", len(receipts), err)
	}
	if receipts[0].Lines[0].StockMovementID == nil {
		t.Fatal("receipt line should link its stock movement")
	}
	if len(f.printer.jobs) != 2 || f.printer.jobs[0].PartID != part.ID {
		t.Fatalf("expected one label per received line, got %+v", f.printer.jobs)
	}
	expected := `
# HELP plantops_goods_receipts_total Goods receipts by result
# TYPE plantops_goods_receipts_total counter
plantops_goods_receipts_total{result="ok"} 2
plantops_goods_receipts_total{result="rejected"} 1
`
	if err := testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "plantops_goods_receipts_total"); err != nil {
		t.Fatal(err)
	}

	kinds := f.trigger.kinds()
	if kinds[len(kinds)-1] != notify.KindOrderReceived {
		t.Fatalf("last notification = %s, want %s", kinds[len(kinds)-1], notify.KindOrderReceived)
	}
}

func TestReceiveRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.newPart(t, "A"), f.newPart(t, "B")
	order := f.placedOrder(t, partLine(a, "5"), partLine(b, "3"))
	lineA, lineB := order.Lines[0].ID, order.Lines[1].ID

	tests := []struct {
		name  string
		lines map[uint]decimal.Decimal
		kind  apperr.Kind
	}{
		{"one line over", map[uint]decimal.Decimal{lineA: dec("5"), lineB: dec("4")}, apperr.KindValidation},
		{"negative", map[uint]decimal.Decimal{lineA: dec("1"), lineB: dec("-1")}, apperr.KindValidation},
		{"unknown line", map[uint]decimal.Decimal{lineA: dec("1"), 999: dec("1")}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.receive.Handle(ctx, f.buyer, command.ReceiveGoodsCommand{OrderID: order.ID, Lines: tt.lines})
			assertKind(t, err, tt.kind)
		})
	}

	// A failure after the stock postings rolls the postings back too.
	broken := *f.deps
	broken.Repo = failingReceipts{f.repo}
	_, err := command.NewReceiveGoodsHandler(&broken).Handle(ctx, f.buyer, command.ReceiveGoodsCommand{
		OrderID: order.ID, Lines: map[uint]decimal.Decimal{lineA: dec("5"), lineB: dec("3")},
	})
	if err == nil {
		t.Fatal("expected the receipt write to fail")
	}

	for _, p := range []*invdomain.Part{a, b} {
		stored, _ := f.parts.FindPart(ctx, p.ID)
		if !stored.CurrentQuantity.IsZero() {
			t.Fatalf("part %s stock = %s after rejected batch", p.PartNumber, stored.CurrentQuantity)
		}
		movements, _ := f.parts.ListMovements(ctx, p.ID)
		if len(movements) != 0 {
			t.Fatalf("part %s has %d movements after rejected batch", p.PartNumber, len(movements))
		}
	}
	current, _ := f.getOrder.Handle(ctx, f.buyer, order.ID)
	if current.Status != domain.OrderOrdered || !current.TotalReceived().IsZero() {
		t.Fatalf("order changed by rejected batch: %s %s", current.Status, current.TotalReceived())
	}

	// Zero quantities are ignored.
	res, err := f.receive.Handle(ctx, f.buyer, command.ReceiveGoodsCommand{
		OrderID: order.ID, Lines: map[uint]decimal.Decimal{lineA: decimal.Zero},
	})
	if err != nil || res.Receipt != nil || res.Order.Status != domain.OrderOrdered {
		t.Fatalf("empty receipt: %+v %v", res, err)
	}
}

func TestReceivedTotalNeverDecreases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.newPart(t, "A"), f.newPart(t, "B")
	order := f.placedOrder(t, partLine(a, "5"), partLine(b, "3"),
		command.OrderLineInput{Description: "pallet", Quantity: dec("2")})
	lineA, lineB, lineC := order.Lines[0].ID, order.Lines[1].ID, order.Lines[2].ID

	batches := []struct {
		lines    map[uint]decimal.Decimal
		accepted bool
		status   domain.OrderStatus
	}{
		{map[uint]decimal.Decimal{lineA: dec("2")}, true, domain.OrderPartiallyReceived},
		{map[uint]decimal.Decimal{lineA: dec("4"), lineB: dec("1")}, false, domain.OrderPartiallyReceived},
		{map[uint]decimal.Decimal{lineB: dec("3"), lineC: dec("1")}, true, domain.OrderPartiallyReceived},
		{map[uint]decimal.Decimal{lineB: dec("1"), lineC: dec("-1")}, false, domain.OrderPartiallyReceived},
		{map[uint]decimal.Decimal{lineA: decimal.Zero}, true, domain.OrderPartiallyReceived},
		{map[uint]decimal.Decimal{lineA: dec("3"), lineC: dec("2")}, false, domain.OrderPartiallyReceived},
		{map[uint]decimal.Decimal{lineA: dec("3"), lineC: dec("1")}, true, domain.OrderReceived},
		{map[uint]decimal.Decimal{lineA: dec("1")}, false, domain.OrderReceived},
	}

	total := decimal.Zero
	for i, batch := range batches {
		_, err := f.receive.Handle(ctx, f.buyer, command.ReceiveGoodsCommand{OrderID: order.ID, Lines: batch.lines})
		if batch.accepted && err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
		if !batch.accepted && err == nil {
			t.Fatalf("batch %d should have been rejected", i)
		}

		current, err := f.getOrder.Handle(ctx, f.buyer, order.ID)
		if err != nil {
			t.Fatalf("get order: %v", err)
		}
		received := current.TotalReceived()
		if received.LessThan(total) {
			t.Fatalf("batch %d: received total dropped from %s to %s", i, total, received)
		}
		if !batch.accepted && !received.Equal(total) {
			t.Fatalf("batch %d: rejected batch changed the total from %s to %s", i, total, received)
		}
		if current.Status != batch.status {
			t.Fatalf("batch %d: status = %s, want %s", i, current.Status, batch.status)
		}
		total = received
	}

	if !total.Equal(dec("10")) {
		t.Fatalf("final total = %s, want 10", total)
	}
}

func TestReceiveKeepsGoingWhenPrinterFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part := f.newPart(t, "P-1")
	order := f.placedOrder(t, partLine(part, "2"), command.OrderLineInput{Description: "shipping box", Quantity: dec("1")})
	f.printer.err = errors.New("printer offline")

	res, err := f.receive.Handle(ctx, f.buyer, command.ReceiveGoodsCommand{
		OrderID: order.ID,
		Lines:   map[uint]decimal.Decimal{order.Lines[0].ID: dec("2"), order.Lines[1].ID: dec("1")},
	})
	if err != nil {
		t.Fatalf("receipt failed because of the printer: %v", err)
	}
	if res.Order.Status != domain.OrderReceived {
		t.Fatalf("status = %s, want received", res.Order.Status)
	}
	if len(res.Postings) != 1 {
		t.Fatalf("only catalogued lines are posted, got %d postings", len(res.Postings))
	}
	if res.Receipt.Lines[1].StockMovementID != nil {
		t.Fatal("line without part must not reference a movement")
	}
	if len(f.printer.jobs) != 2 {
		t.Fatalf("print jobs = %d, want 2", len(f.printer.jobs))
	}
}

func TestOrderWorkflowPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part := f.newPart(t, "P-1")

	order, err := f.createOrder.Handle(ctx, f.buyer, command.CreateOrderCommand{SupplierID: 7, Lines: []command.OrderLineInput{partLine(part, "1")}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(order.DepartmentIDs) != 1 || order.DepartmentIDs[0] != 2 {
		t.Fatalf("ACL should default to the primary department, got %v", order.DepartmentIDs)
	}

	_, err = f.orderMove.Submit(ctx, f.outsider, order.ID, "")
	assertKind(t, err, apperr.KindNotFound)
	_, err = f.orderMove.Approve(ctx, f.approver, order.ID, []byte("sig"))
	assertKind(t, err, apperr.KindInvalidTransition)

	if _, err := f.orderMove.Submit(ctx, f.buyer, order.ID, "please"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.orderLines.Add(ctx, f.buyer, order.ID, command.OrderLineInput{Description: "extra", Quantity: dec("1")}); err != nil {
		t.Fatalf("lines are editable while pending approval: %v", err)
	}

	noApprove := &orgdomain.Employee{ID: 12, Active: true, PrimaryDepartmentID: ptr(2), Permissions: []orgdomain.Permission{orgdomain.PermissionCreateOrders}}
	_, err = f.orderMove.Approve(ctx, noApprove, order.ID, []byte("sig"))
	assertKind(t, err, apperr.KindForbidden)
	_, err = f.orderMove.Approve(ctx, f.approver, order.ID, nil)
	assertKind(t, err, apperr.KindValidation)

	approved, err := f.orderMove.Approve(ctx, f.approver, order.ID, []byte("sig"))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if len(approved.SignatureDigest) != 64 || *approved.ApprovedByID != f.approver.ID {
		t.Fatalf("approval not recorded: %+v", approved)
	}
	_, err = f.orderLines.Add(ctx, f.buyer, order.ID, command.OrderLineInput{Description: "late", Quantity: dec("1")})
	assertKind(t, err, apperr.KindInvalidTransition)

	_, err = f.orderMove.Place(ctx, f.approver, order.ID)
	assertKind(t, err, apperr.KindForbidden)
	if _, err := f.orderMove.Place(ctx, f.buyer, order.ID); err != nil {
		t.Fatalf("place: %v", err)
	}
	_, err = f.orderMove.Cancel(ctx, f.approver, order.ID, "changed mind")
	assertKind(t, err, apperr.KindInvalidTransition)
	_, err = f.orderMove.Close(ctx, f.buyer, order.ID)
	assertKind(t, err, apperr.KindInvalidTransition)
}

func TestOrderCreatorLosesAccessAfterForeignApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loner := &orgdomain.Employee{ID: 30, Active: true, Permissions: everyPermission}

	order, err := f.createOrder.Handle(ctx, loner, command.CreateOrderCommand{
		SupplierID: 7, Lines: []command.OrderLineInput{{OrderNumber: "N-1", Quantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(order.DepartmentIDs) != 0 {
		t.Fatalf("employee without department should create an order without ACL, got %v", order.DepartmentIDs)
	}
	if _, err := f.orderMove.Submit(ctx, loner, order.ID, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}

	list, _ := f.listOrders.Handle(ctx, loner, query.ListQuery{})
	if len(list) != 1 {
		t.Fatalf("creator should list the pending order, got %d", len(list))
	}

	if _, err := f.orderMove.Approve(ctx, f.admin, order.ID, []byte("sig")); err != nil {
		t.Fatalf("approve: %v", err)
	}
	_, err = f.getOrder.Handle(ctx, loner, order.ID)
	assertKind(t, err, apperr.KindNotFound)
	list, _ = f.listOrders.Handle(ctx, loner, query.ListQuery{})
	if len(list) != 0 {
		t.Fatalf("creator should no longer list the order, got %d", len(list))
	}

	if _, err := f.orderACL.Handle(ctx, f.admin, order.ID, []uint{3}); err != nil {
		t.Fatalf("set departments: %v", err)
	}
	if _, err := f.getOrder.Handle(ctx, f.outsider, order.ID); err != nil {
		t.Fatalf("ACL department should grant access: %v", err)
	}
}

func TestDiscardDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, err := f.createOrder.Handle(ctx, f.buyer, command.CreateOrderCommand{SupplierID: 7, OrderNumber: "PO-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.createOrder.Handle(ctx, f.buyer, command.CreateOrderCommand{SupplierID: 7, OrderNumber: "PO-1"})
	assertKind(t, err, apperr.KindValidation)

	if err := f.orderMove.Discard(ctx, f.buyer, order.ID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	_, err = f.getOrder.Handle(ctx, f.buyer, order.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestAttachmentsAndExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	part := f.newPart(t, "P-1")
	order := f.placedOrder(t, partLine(part, "4"))

	att, err := f.attach.Handle(ctx, f.buyer, command.AttachCommand{
		EntityType: domain.EntityPurchaseOrder, EntityID: order.ID,
		FileName: "../confirmation.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if att.FileName != "confirmation.pdf" || att.Size != 8 || att.UploadedByID != f.buyer.ID {
		t.Fatalf("unexpected metadata %+v", att)
	}

	_, err = f.attach.Handle(ctx, f.outsider, command.AttachCommand{
		EntityType: domain.EntityPurchaseOrder, EntityID: order.ID, FileName: "x", Data: []byte("x"),
	})
	assertKind(t, err, apperr.KindNotFound)

	list, err := f.attachments.List(ctx, f.buyer, domain.EntityPurchaseOrder, order.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list attachments: %d %v", len(list), err)
	}
	_, data, err := f.attachments.Download(ctx, f.buyer, att.ID)
	if err != nil || string(data) != "%PDF-1.7" {
		t.Fatalf("download: %q %v", data, err)
	}
	_, _, err = f.attachments.Download(ctx, f.outsider, att.ID)
	assertKind(t, err, apperr.KindNotFound)

	doc, err := f.export.Order(ctx, f.buyer, order.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.ContentType != export.ContentTypeXLSX || len(doc.Data) == 0 {
		t.Fatalf("unexpected export %q (%d bytes)", doc.ContentType, len(doc.Data))
	}
}
