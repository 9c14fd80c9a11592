package access

import (
	"context"
	"testing"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/graph"
	"github.com/tair/plantops/pkg/apperr"
)

type staticGraph struct{ g *graph.Graph }

func (s staticGraph) Graph(context.Context) (*graph.Graph, error) { return s.g, nil }

func ptr(id uint) *uint { return &id }

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	g, err := graph.Build([]domain.Department{
		{ID: 1, Name: "Plant", Active: true},
		{ID: 2, Name: "Maintenance", ParentID: ptr(1), Active: true},
		{ID: 3, Name: "Electrical", ParentID: ptr(2), Active: true},
		{ID: 4, Name: "Office", Active: true},
		{ID: 5, Name: "Archive", ParentID: ptr(4), Active: false},
	})
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return NewResolver(staticGraph{g: g})
}

func employee(id uint, primary *uint, perms ...domain.Permission) *domain.Employee {
	return &domain.Employee{ID: id, PrimaryDepartmentID: primary, Active: true, Permissions: perms}
}

func TestVisibleDepartments(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	emp := employee(1, ptr(2))
	emp.MembershipIDs = []uint{4}

	visible, err := r.VisibleDepartments(ctx, emp)
	if err != nil {
		t.Fatalf("visible: %v", err)
	}
	for _, id := range []uint{2, 3, 4, 5} {
		if !visible.Contains(id) {
			t.Errorf("department %d should be visible", id)
		}
	}
	if visible.Contains(1) {
		t.Error("parent department must not be visible")
	}
}

func TestCanAccessPart(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	inactiveAdmin := employee(9, nil, domain.PermissionAdmin)
	inactiveAdmin.Active = false

	tests := []struct {
		name string
		emp  *domain.Employee
		part Resource
		want bool
	}{
		{"admin without departments", employee(1, nil, domain.PermissionAdmin), Resource{CreatedByID: 2, DepartmentIDs: []uint{4}}, true},
		{"creator without overlap", employee(2, ptr(4)), Resource{CreatedByID: 2, DepartmentIDs: []uint{3}}, true},
		{"creator without memberships", employee(2, nil), Resource{CreatedByID: 2}, true},
		{"ancestor department sees descendant acl", employee(3, ptr(1)), Resource{CreatedByID: 7, DepartmentIDs: []uint{3}}, true},
		{"descendant department does not see ancestor acl", employee(3, ptr(3)), Resource{CreatedByID: 7, DepartmentIDs: []uint{2}}, false},
		{"no intersection", employee(3, ptr(4)), Resource{CreatedByID: 7, DepartmentIDs: []uint{2}}, false},
		{"no memberships and not creator", employee(3, nil), Resource{CreatedByID: 7, DepartmentIDs: []uint{1}}, false},
		{"empty acl", employee(3, ptr(1)), Resource{CreatedByID: 7}, false},
		{"inactive admin", inactiveAdmin, Resource{CreatedByID: 9}, false},
		{"nil employee", nil, Resource{CreatedByID: 0, DepartmentIDs: []uint{1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.CanAccessPart(ctx, tt.emp, tt.part)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanAccessPart() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanAccessOrder(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		emp   *domain.Employee
		order OrderResource
		want  bool
	}{
		{"admin", employee(1, nil, domain.PermissionAdmin), OrderResource{CreatedByID: 2, DepartmentIDs: []uint{4}}, true},
		{"department member", employee(3, ptr(2)), OrderResource{CreatedByID: 2, DepartmentIDs: []uint{3}}, true},
		{"creator before approval", employee(2, ptr(4)), OrderResource{CreatedByID: 2, DepartmentIDs: []uint{3}}, true},
		{"creator who approved", employee(2, ptr(4)), OrderResource{CreatedByID: 2, ApprovedByID: ptr(2), DepartmentIDs: []uint{3}}, true},
		{"creator after foreign approval", employee(2, ptr(4)), OrderResource{CreatedByID: 2, ApprovedByID: ptr(8), DepartmentIDs: []uint{3}}, false},
		{"outsider", employee(3, ptr(4)), OrderResource{CreatedByID: 2, DepartmentIDs: []uint{2}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.CanAccessOrder(ctx, tt.emp, tt.order)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanAccessOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateAssignable(t *testing.T) {
	r := newResolver(t)
	ctx := context.Background()

	if err := r.ValidateAssignable(ctx, []uint{1, 3}); err != nil {
		t.Fatalf("active departments rejected: %v", err)
	}
	if err := r.ValidateAssignable(ctx, []uint{5}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("inactive department accepted: %v", err)
	}
	if err := r.ValidateAssignable(ctx, []uint{42}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown department accepted: %v", err)
	}
}

func TestRequire(t *testing.T) {
	emp := employee(1, nil, domain.PermissionBookStock)
	if err := Require(emp, domain.PermissionBookStock); err != nil {
		t.Fatalf("granted permission rejected: %v", err)
	}
	if err := Require(emp, domain.PermissionApproveOrders); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := Require(employee(2, nil, domain.PermissionAdmin), domain.PermissionApproveOrders); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}
}
