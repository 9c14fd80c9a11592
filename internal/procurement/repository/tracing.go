package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/plantops/internal/procurement/domain"
)

var tracer = otel.Tracer("procurement-repository")

// RepositoryWithTracing wraps a repository with tracing
type RepositoryWithTracing struct {
	next domain.Repository
}

// NewRepositoryWithTracing creates a new repository with tracing
func NewRepositoryWithTracing(next domain.Repository) *RepositoryWithTracing {
	return &RepositoryWithTracing{next: next}
}

func (r *RepositoryWithTracing) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "repository."+op, trace.WithAttributes(attrs...))
}

func quoteAttr(id uint) attribute.KeyValue { return attribute.Int("quote.id", int(id)) }
func orderAttr(id uint) attribute.KeyValue { return attribute.Int("order.id", int(id)) }

func (r *RepositoryWithTracing) CreateQuote(ctx context.Context, quote *domain.QuoteRequest) error {
	ctx, span := r.start(ctx, "CreateQuote", attribute.Int("quote.lines", len(quote.Lines)))
	defer span.End()

	if err := r.next.CreateQuote(ctx, quote); err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(quoteAttr(quote.ID))
	return nil
}

func (r *RepositoryWithTracing) FindQuote(ctx context.Context, id uint) (*domain.QuoteRequest, error) {
	ctx, span := r.start(ctx, "FindQuote", quoteAttr(id))
	defer span.End()

	quote, err := r.next.FindQuote(ctx, id)
	recordError(span, err)
	return quote, err
}

func (r *RepositoryWithTracing) LockQuote(ctx context.Context, id uint) (*domain.QuoteRequest, error) {
	ctx, span := r.start(ctx, "LockQuote", quoteAttr(id))
	defer span.End()

	quote, err := r.next.LockQuote(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("quote.status", string(quote.Status)))
	return quote, nil
}

func (r *RepositoryWithTracing) UpdateQuote(ctx context.Context, quote *domain.QuoteRequest) error {
	ctx, span := r.start(ctx, "UpdateQuote", quoteAttr(quote.ID), attribute.String("quote.status", string(quote.Status)))
	defer span.End()

	err := r.next.UpdateQuote(ctx, quote)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) ListQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.QuoteRequest, error) {
	ctx, span := r.start(ctx, "ListQuotes",
		attribute.Bool("query.all", filter.All),
		attribute.String("query.status", string(filter.Status)),
		attribute.Int("query.limit", filter.Limit),
		attribute.Int("query.offset", filter.Offset),
	)
	defer span.End()

	quotes, err := r.next.ListQuotes(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(quotes)))
	return quotes, nil
}

func (r *RepositoryWithTracing) AddQuoteLine(ctx context.Context, line *domain.QuoteRequestLine) error {
	ctx, span := r.start(ctx, "AddQuoteLine", quoteAttr(line.QuoteRequestID))
	defer span.End()

	err := r.next.AddQuoteLine(ctx, line)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) UpdateQuoteLine(ctx context.Context, line *domain.QuoteRequestLine) error {
	ctx, span := r.start(ctx, "UpdateQuoteLine", quoteAttr(line.QuoteRequestID), attribute.Int("line.id", int(line.ID)))
	defer span.End()

	err := r.next.UpdateQuoteLine(ctx, line)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) DeleteQuoteLine(ctx context.Context, quoteID, lineID uint) error {
	ctx, span := r.start(ctx, "DeleteQuoteLine", quoteAttr(quoteID), attribute.Int("line.id", int(lineID)))
	defer span.End()

	err := r.next.DeleteQuoteLine(ctx, quoteID, lineID)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) CreateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	ctx, span := r.start(ctx, "CreateOrder", attribute.Int("order.lines", len(order.Lines)))
	defer span.End()

	if err := r.next.CreateOrder(ctx, order); err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(orderAttr(order.ID))
	return nil
}

func (r *RepositoryWithTracing) FindOrder(ctx context.Context, id uint) (*domain.PurchaseOrder, error) {
	ctx, span := r.start(ctx, "FindOrder", orderAttr(id))
	defer span.End()

	order, err := r.next.FindOrder(ctx, id)
	recordError(span, err)
	return order, err
}

func (r *RepositoryWithTracing) LockOrder(ctx context.Context, id uint) (*domain.PurchaseOrder, error) {
	ctx, span := r.start(ctx, "LockOrder", orderAttr(id))
	defer span.End()

	order, err := r.next.LockOrder(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("order.status", string(order.Status)))
	return order, nil
}

func (r *RepositoryWithTracing) UpdateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	ctx, span := r.start(ctx, "UpdateOrder", orderAttr(order.ID), attribute.String("order.status", string(order.Status)))
	defer span.End()

	err := r.next.UpdateOrder(ctx, order)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) DeleteOrder(ctx context.Context, id uint) error {
	ctx, span := r.start(ctx, "DeleteOrder", orderAttr(id))
	defer span.End()

	err := r.next.DeleteOrder(ctx, id)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.PurchaseOrder, error) {
	ctx, span := r.start(ctx, "ListOrders",
		attribute.Bool("query.all", filter.All),
		attribute.String("query.status", string(filter.Status)),
		attribute.Int("query.limit", filter.Limit),
		attribute.Int("query.offset", filter.Offset),
	)
	defer span.End()

	orders, err := r.next.ListOrders(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(orders)))
	return orders, nil
}

func (r *RepositoryWithTracing) AddOrderLine(ctx context.Context, line *domain.PurchaseOrderLine) error {
	ctx, span := r.start(ctx, "AddOrderLine", orderAttr(line.PurchaseOrderID))
	defer span.End()

	err := r.next.AddOrderLine(ctx, line)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) UpdateOrderLine(ctx context.Context, line *domain.PurchaseOrderLine) error {
	ctx, span := r.start(ctx, "UpdateOrderLine", orderAttr(line.PurchaseOrderID), attribute.Int("line.id", int(line.ID)))
	defer span.End()

	err := r.next.UpdateOrderLine(ctx, line)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) DeleteOrderLine(ctx context.Context, orderID, lineID uint) error {
	ctx, span := r.start(ctx, "DeleteOrderLine", orderAttr(orderID), attribute.Int("line.id", int(lineID)))
	defer span.End()

	err := r.next.DeleteOrderLine(ctx, orderID, lineID)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) SetOrderDepartments(ctx context.Context, orderID uint, departmentIDs []uint) error {
	ctx, span := r.start(ctx, "SetOrderDepartments", orderAttr(orderID), attribute.Int("departments.count", len(departmentIDs)))
	defer span.End()

	err := r.next.SetOrderDepartments(ctx, orderID, departmentIDs)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) CreateGoodsReceipt(ctx context.Context, receipt *domain.GoodsReceipt) error {
	ctx, span := r.start(ctx, "CreateGoodsReceipt", orderAttr(receipt.PurchaseOrderID), attribute.Int("receipt.lines", len(receipt.Lines)))
	defer span.End()

	err := r.next.CreateGoodsReceipt(ctx, receipt)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) ListGoodsReceipts(ctx context.Context, orderID uint) ([]domain.GoodsReceipt, error) {
	ctx, span := r.start(ctx, "ListGoodsReceipts", orderAttr(orderID))
	defer span.End()

	receipts, err := r.next.ListGoodsReceipts(ctx, orderID)
	recordError(span, err)
	return receipts, err
}

func (r *RepositoryWithTracing) CreateAttachment(ctx context.Context, attachment *domain.Attachment) error {
	ctx, span := r.start(ctx, "CreateAttachment",
		attribute.String("attachment.entity_type", attachment.EntityType),
		attribute.Int("attachment.entity_id", int(attachment.EntityID)),
	)
	defer span.End()

	err := r.next.CreateAttachment(ctx, attachment)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) FindAttachment(ctx context.Context, id uint) (*domain.Attachment, error) {
	ctx, span := r.start(ctx, "FindAttachment", attribute.Int("attachment.id", int(id)))
	defer span.End()

	attachment, err := r.next.FindAttachment(ctx, id)
	recordError(span, err)
	return attachment, err
}

func (r *RepositoryWithTracing) ListAttachments(ctx context.Context, entityType string, entityID uint) ([]domain.Attachment, error) {
	ctx, span := r.start(ctx, "ListAttachments",
		attribute.String("attachment.entity_type", entityType),
		attribute.Int("attachment.entity_id", int(entityID)),
	)
	defer span.End()

	attachments, err := r.next.ListAttachments(ctx, entityType, entityID)
	recordError(span, err)
	return attachments, err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
