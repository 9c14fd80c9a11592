package access

import (
	"context"

	"github.com/tair/plantops/internal/organization/domain"
)

type actorKey struct{}

// WithActor stores the authenticated employee in ctx
func WithActor(ctx context.Context, emp *domain.Employee) context.Context {
	return context.WithValue(ctx, actorKey{}, emp)
}

// ActorFrom returns the authenticated employee stored in ctx
func ActorFrom(ctx context.Context) (*domain.Employee, bool) {
	emp, ok := ctx.Value(actorKey{}).(*domain.Employee)
	return emp, ok && emp != nil
}
