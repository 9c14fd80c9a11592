package access

import (
	"context"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/graph"
	"github.com/tair/plantops/pkg/apperr"
)

// GraphSource provides the current department graph
type GraphSource interface {
	Graph(ctx context.Context) (*graph.Graph, error)
}

// Resource describes the ownership of a part or quote request
type Resource struct {
	CreatedByID   uint
	DepartmentIDs []uint
}

// OrderResource describes the ownership of a purchase order
type OrderResource struct {
	CreatedByID   uint
	ApprovedByID  *uint
	DepartmentIDs []uint
}

// Resolver decides visibility and mutation rights of employees
type Resolver struct {
	graphs GraphSource
}

// NewResolver creates a resolver over the department graph
func NewResolver(graphs GraphSource) *Resolver {
	return &Resolver{graphs: graphs}
}

// VisibleDepartments returns the union of the descendants of every department
// the employee belongs to. Inactive employees see nothing.
func (r *Resolver) VisibleDepartments(ctx context.Context, emp *domain.Employee) (graph.IDSet, error) {
	if emp == nil || !emp.Active {
		return graph.IDSet{}, nil
	}
	g, err := r.graphs.Graph(ctx)
	if err != nil {
		return nil, err
	}
	return g.Closure(emp.DepartmentIDs()), nil
}

// CanAccessPart grants admins, the creator, and employees whose visible
// departments intersect the part's ACL.
func (r *Resolver) CanAccessPart(ctx context.Context, emp *domain.Employee, part Resource) (bool, error) {
	return r.canAccessOwned(ctx, emp, part)
}

// CanAccessQuote applies the part rule to quote requests.
func (r *Resolver) CanAccessQuote(ctx context.Context, emp *domain.Employee, quote Resource) (bool, error) {
	return r.canAccessOwned(ctx, emp, quote)
}

// CanAccessOrder grants admins and employees whose visible departments
// intersect the order's ACL. The creator keeps access only until a different
// employee has approved the order.
func (r *Resolver) CanAccessOrder(ctx context.Context, emp *domain.Employee, order OrderResource) (bool, error) {
	if emp == nil || !emp.Active {
		return false, nil
	}
	if emp.IsAdmin() {
		return true, nil
	}
	if order.CreatedByID == emp.ID && (order.ApprovedByID == nil || *order.ApprovedByID == emp.ID) {
		return true, nil
	}
	return r.intersects(ctx, emp, order.DepartmentIDs)
}

func (r *Resolver) canAccessOwned(ctx context.Context, emp *domain.Employee, res Resource) (bool, error) {
	if emp == nil || !emp.Active {
		return false, nil
	}
	if emp.IsAdmin() {
		return true, nil
	}
	if res.CreatedByID != 0 && res.CreatedByID == emp.ID {
		return true, nil
	}
	return r.intersects(ctx, emp, res.DepartmentIDs)
}

func (r *Resolver) intersects(ctx context.Context, emp *domain.Employee, acl []uint) (bool, error) {
	// Without memberships only self-created entities are visible.
	if len(emp.DepartmentIDs()) == 0 || len(acl) == 0 {
		return false, nil
	}
	visible, err := r.VisibleDepartments(ctx, emp)
	if err != nil {
		return false, err
	}
	return visible.Intersects(acl), nil
}

// ValidateAssignable checks that every id names an existing, active
// department. Used before writing department ACL entries.
func (r *Resolver) ValidateAssignable(ctx context.Context, ids []uint) error {
	g, err := r.graphs.Graph(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !g.Has(id) {
			return apperr.Validation("department %d does not exist", id)
		}
		if !g.IsActive(id) {
			return apperr.Validation("department %d is inactive", id)
		}
	}
	return nil
}

// Require returns a forbidden error unless emp holds p
func Require(emp *domain.Employee, p domain.Permission) error {
	if !emp.Has(p) {
		return apperr.Forbidden("missing permission %s", p)
	}
	return nil
}
