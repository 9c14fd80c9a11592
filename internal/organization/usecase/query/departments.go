package query

import (
	"context"

	"github.com/tair/plantops/internal/organization/access"
	"github.com/tair/plantops/internal/organization/domain"
)

// VisibleDepartmentsHandler lists the departments an employee can see
type VisibleDepartmentsHandler struct {
	repo     domain.Repository
	resolver *access.Resolver
}

// NewVisibleDepartmentsHandler creates a new visible departments handler
func NewVisibleDepartmentsHandler(repo domain.Repository, resolver *access.Resolver) *VisibleDepartmentsHandler {
	return &VisibleDepartmentsHandler{repo: repo, resolver: resolver}
}

// Handle executes the query
func (h *VisibleDepartmentsHandler) Handle(ctx context.Context, actor *domain.Employee) ([]domain.Department, error) {
	visible, err := h.resolver.VisibleDepartments(ctx, actor)
	if err != nil {
		return nil, err
	}

	departments, err := h.repo.ListDepartments(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Department, 0, len(visible))
	for _, d := range departments {
		if visible.Contains(d.ID) {
			out = append(out, d)
		}
	}
	return out, nil
}
