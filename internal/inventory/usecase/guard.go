package usecase

import (
	"context"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
)

// PartGuard loads parts on behalf of an actor. Parts the actor may not see
// are reported as not found.
type PartGuard struct {
	repo     domain.Repository
	resolver *access.Resolver
}

// NewPartGuard creates a part guard
func NewPartGuard(repo domain.Repository, resolver *access.Resolver) *PartGuard {
	return &PartGuard{repo: repo, resolver: resolver}
}

// Load returns the part if actor may access it
func (g *PartGuard) Load(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.Part, error) {
	part, err := g.repo.FindPart(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := g.Check(ctx, actor, part); err != nil {
		return nil, err
	}
	return part, nil
}

// Check reports a not found error if actor may not access part
func (g *PartGuard) Check(ctx context.Context, actor *orgdomain.Employee, part *domain.Part) error {
	ok, err := g.resolver.CanAccessPart(ctx, actor, access.Resource{
		CreatedByID:   part.CreatedByID,
		DepartmentIDs: part.DepartmentIDs,
	})
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("part", part.ID)
	}
	return nil
}

// Filter returns the list filter matching actor's visibility
func (g *PartGuard) Filter(ctx context.Context, actor *orgdomain.Employee) (domain.PartFilter, error) {
	if actor == nil || !actor.Active {
		// Matches nothing: no part has creator 0.
		return domain.PartFilter{}, nil
	}
	if actor.IsAdmin() {
		return domain.PartFilter{All: true}, nil
	}
	visible, err := g.resolver.VisibleDepartments(ctx, actor)
	if err != nil {
		return domain.PartFilter{}, err
	}
	return domain.PartFilter{CreatorID: actor.ID, DepartmentIDs: visible.Slice()}, nil
}
