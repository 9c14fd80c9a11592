package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/plantops/internal/inventory/domain"
)

var tracer = otel.Tracer("inventory-repository")

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

func (r *RepositoryWithTracing) CreatePart(ctx context.Context, part *domain.Part) error {
	ctx, span := r.start(ctx, "CreatePart", attribute.String("part.number", part.PartNumber))
	defer span.End()

	if err := r.next.CreatePart(ctx, part); err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(attribute.Int("part.id", int(part.ID)))
	return nil
}

func (r *RepositoryWithTracing) FindPart(ctx context.Context, id uint) (*domain.Part, error) {
	ctx, span := r.start(ctx, "FindPart", attribute.Int("part.id", int(id)))
	defer span.End()

	part, err := r.next.FindPart(ctx, id)
	recordError(span, err)
	return part, err
}

func (r *RepositoryWithTracing) LockPart(ctx context.Context, id uint) (*domain.Part, error) {
	ctx, span := r.start(ctx, "LockPart", attribute.Int("part.id", int(id)))
	defer span.End()

	part, err := r.next.LockPart(ctx, id)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("part.current_quantity", part.CurrentQuantity.String()))
	return part, nil
}

func (r *RepositoryWithTracing) ListParts(ctx context.Context, filter domain.PartFilter) ([]domain.Part, error) {
	ctx, span := r.start(ctx, "ListParts",
		attribute.Bool("query.all", filter.All),
		attribute.Int("query.limit", filter.Limit),
		attribute.Int("query.offset", filter.Offset),
	)
	defer span.End()

	parts, err := r.next.ListParts(ctx, filter)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(parts)))
	return parts, nil
}

func (r *RepositoryWithTracing) UpdatePart(ctx context.Context, part *domain.Part) error {
	ctx, span := r.start(ctx, "UpdatePart", attribute.Int("part.id", int(part.ID)))
	defer span.End()

	err := r.next.UpdatePart(ctx, part)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) UpdateQuantity(ctx context.Context, partID uint, quantity decimal.Decimal) error {
	ctx, span := r.start(ctx, "UpdateQuantity",
		attribute.Int("part.id", int(partID)),
		attribute.String("quantity.new_value", quantity.String()),
	)
	defer span.End()

	err := r.next.UpdateQuantity(ctx, partID, quantity)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) SetPartDepartments(ctx context.Context, partID uint, departmentIDs []uint) error {
	ctx, span := r.start(ctx, "SetPartDepartments",
		attribute.Int("part.id", int(partID)),
		attribute.Int("departments.count", len(departmentIDs)),
	)
	defer span.End()

	err := r.next.SetPartDepartments(ctx, partID, departmentIDs)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) ListPartIDs(ctx context.Context) ([]uint, error) {
	ctx, span := r.start(ctx, "ListPartIDs")
	defer span.End()

	ids, err := r.next.ListPartIDs(ctx)
	recordError(span, err)
	return ids, err
}

func (r *RepositoryWithTracing) AppendMovement(ctx context.Context, movement *domain.StockMovement) error {
	ctx, span := r.start(ctx, "AppendMovement",
		attribute.Int("part.id", int(movement.PartID)),
		attribute.String("movement.kind", string(movement.Kind)),
		attribute.String("movement.quantity", movement.Quantity.String()),
	)
	defer span.End()

	if err := r.next.AppendMovement(ctx, movement); err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(attribute.Int("movement.id", int(movement.ID)))
	return nil
}

func (r *RepositoryWithTracing) FindMovement(ctx context.Context, id uint) (*domain.StockMovement, error) {
	ctx, span := r.start(ctx, "FindMovement", attribute.Int("movement.id", int(id)))
	defer span.End()

	movement, err := r.next.FindMovement(ctx, id)
	recordError(span, err)
	return movement, err
}

func (r *RepositoryWithTracing) FindReversal(ctx context.Context, id uint) (*domain.StockMovement, error) {
	ctx, span := r.start(ctx, "FindReversal", attribute.Int("movement.id", int(id)))
	defer span.End()

	movement, err := r.next.FindReversal(ctx, id)
	recordError(span, err)
	return movement, err
}

func (r *RepositoryWithTracing) ListMovements(ctx context.Context, partID uint) ([]domain.StockMovement, error) {
	ctx, span := r.start(ctx, "ListMovements", attribute.Int("part.id", int(partID)))
	defer span.End()

	movements, err := r.next.ListMovements(ctx, partID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(movements)))
	return movements, nil
}

func (r *RepositoryWithTracing) LastMovement(ctx context.Context, partID uint) (*domain.StockMovement, error) {
	ctx, span := r.start(ctx, "LastMovement", attribute.Int("part.id", int(partID)))
	defer span.End()

	movement, err := r.next.LastMovement(ctx, partID)
	recordError(span, err)
	return movement, err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
