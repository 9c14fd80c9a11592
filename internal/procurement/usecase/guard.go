package usecase

import (
	"context"

	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/pkg/apperr"
)

// Guard loads quote requests and purchase orders on behalf of an actor.
// Records the actor may not see are reported as not found.
type Guard struct {
	repo     domain.Repository
	resolver *access.Resolver
}

// NewGuard creates a procurement guard
func NewGuard(repo domain.Repository, resolver *access.Resolver) *Guard {
	return &Guard{repo: repo, resolver: resolver}
}

// Quote returns the quote request if actor may see it
func (g *Guard) Quote(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.QuoteRequest, error) {
	return g.checkedQuote(ctx, actor, id, g.repo.FindQuote)
}

// LockQuote is Quote with a row lock held until the transaction ends
func (g *Guard) LockQuote(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.QuoteRequest, error) {
	return g.checkedQuote(ctx, actor, id, g.repo.LockQuote)
}

func (g *Guard) checkedQuote(ctx context.Context, actor *orgdomain.Employee, id uint,
	load func(context.Context, uint) (*domain.QuoteRequest, error)) (*domain.QuoteRequest, error) {
	quote, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := g.resolver.CanAccessQuote(ctx, actor, access.Resource{
		CreatedByID:   quote.CreatedByID,
		DepartmentIDs: quote.DepartmentIDs(),
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("quote request", id)
	}
	return quote, nil
}

// Order returns the purchase order if actor may see it
func (g *Guard) Order(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.PurchaseOrder, error) {
	return g.checkedOrder(ctx, actor, id, g.repo.FindOrder)
}

// LockOrder is Order with a row lock held until the transaction ends
func (g *Guard) LockOrder(ctx context.Context, actor *orgdomain.Employee, id uint) (*domain.PurchaseOrder, error) {
	return g.checkedOrder(ctx, actor, id, g.repo.LockOrder)
}

func (g *Guard) checkedOrder(ctx context.Context, actor *orgdomain.Employee, id uint,
	load func(context.Context, uint) (*domain.PurchaseOrder, error)) (*domain.PurchaseOrder, error) {
	order, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := g.resolver.CanAccessOrder(ctx, actor, access.OrderResource{
		CreatedByID:   order.CreatedByID,
		ApprovedByID:  order.ApprovedByID,
		DepartmentIDs: order.DepartmentIDs,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("purchase order", id)
	}
	return order, nil
}

// Entity checks that actor may see the quote request or purchase order an
// attachment belongs to.
func (g *Guard) Entity(ctx context.Context, actor *orgdomain.Employee, entityType string, id uint) error {
	var err error
	switch entityType {
	case domain.EntityPurchaseOrder:
		_, err = g.Order(ctx, actor, id)
	case domain.EntityQuoteRequest:
		_, err = g.Quote(ctx, actor, id)
	default:
		err = apperr.Validation("unknown attachment entity type %q", entityType)
	}
	return err
}

// QuoteFilter returns the list filter matching actor's visibility
func (g *Guard) QuoteFilter(ctx context.Context, actor *orgdomain.Employee) (domain.QuoteFilter, error) {
	all, creator, visible, err := g.scope(ctx, actor)
	if err != nil {
		return domain.QuoteFilter{}, err
	}
	return domain.QuoteFilter{All: all, CreatorID: creator, DepartmentIDs: visible}, nil
}

// OrderFilter returns the list filter matching actor's visibility
func (g *Guard) OrderFilter(ctx context.Context, actor *orgdomain.Employee) (domain.OrderFilter, error) {
	all, creator, visible, err := g.scope(ctx, actor)
	if err != nil {
		return domain.OrderFilter{}, err
	}
	return domain.OrderFilter{All: all, CreatorID: creator, DepartmentIDs: visible}, nil
}

func (g *Guard) scope(ctx context.Context, actor *orgdomain.Employee) (all bool, creator uint, visible []uint, err error) {
	if actor == nil || !actor.Active {
		// Matches nothing: no record has creator 0.
		return false, 0, nil, nil
	}
	if actor.IsAdmin() {
		return true, 0, nil, nil
	}
	set, err := g.resolver.VisibleDepartments(ctx, actor)
	if err != nil {
		return false, 0, nil, err
	}
	return false, actor.ID, set.Slice(), nil
}
