package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/plantops/internal/organization/domain"
)

var tracer = otel.Tracer("organization-repository")

// RepositoryWithTracing wraps a repository with tracing
type RepositoryWithTracing struct {
	next domain.Repository
}

// NewRepositoryWithTracing creates a new repository with tracing
func NewRepositoryWithTracing(next domain.Repository) *RepositoryWithTracing {
	return &RepositoryWithTracing{next: next}
}

func (r *RepositoryWithTracing) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	ctx, span := tracer.Start(ctx, "repository.ListDepartments")
	defer span.End()

	departments, err := r.next.ListDepartments(ctx)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("result.count", len(departments)))
	return departments, nil
}

func (r *RepositoryWithTracing) FindDepartment(ctx context.Context, id uint) (*domain.Department, error) {
	ctx, span := tracer.Start(ctx, "repository.FindDepartment",
		trace.WithAttributes(attribute.Int("department.id", int(id))),
	)
	defer span.End()

	department, err := r.next.FindDepartment(ctx, id)
	recordError(span, err)
	return department, err
}

func (r *RepositoryWithTracing) CreateDepartment(ctx context.Context, department *domain.Department) error {
	ctx, span := tracer.Start(ctx, "repository.CreateDepartment",
		trace.WithAttributes(attribute.String("department.name", department.Name)),
	)
	defer span.End()

	if err := r.next.CreateDepartment(ctx, department); err != nil {
		recordError(span, err)
		return err
	}
	span.SetAttributes(attribute.Int("department.id", int(department.ID)))
	return nil
}

func (r *RepositoryWithTracing) UpdateDepartment(ctx context.Context, department *domain.Department) error {
	ctx, span := tracer.Start(ctx, "repository.UpdateDepartment",
		trace.WithAttributes(
			attribute.Int("department.id", int(department.ID)),
			attribute.Bool("department.active", department.Active),
		),
	)
	defer span.End()

	err := r.next.UpdateDepartment(ctx, department)
	recordError(span, err)
	return err
}

func (r *RepositoryWithTracing) FindEmployee(ctx context.Context, id uint) (*domain.Employee, error) {
	ctx, span := tracer.Start(ctx, "repository.FindEmployee",
		trace.WithAttributes(attribute.Int("employee.id", int(id))),
	)
	defer span.End()

	employee, err := r.next.FindEmployee(ctx, id)
	recordError(span, err)
	return employee, err
}

func (r *RepositoryWithTracing) SaveEmployee(ctx context.Context, employee *domain.Employee) error {
	ctx, span := tracer.Start(ctx, "repository.SaveEmployee")
	defer span.End()

	err := r.next.SaveEmployee(ctx, employee)
	recordError(span, err)
	return err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
