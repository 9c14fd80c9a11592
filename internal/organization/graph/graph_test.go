package graph

import (
	"context"
	"reflect"
	"testing"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
)

func ptr(id uint) *uint { return &id }

// plant(1) -> maintenance(2) -> electrical(3)
//          -> production(4)
// office(5)
func sampleTree() []domain.Department {
	return []domain.Department{
		{ID: 1, Name: "Plant", Active: true},
		{ID: 2, Name: "Maintenance", ParentID: ptr(1), Active: true},
		{ID: 3, Name: "Electrical", ParentID: ptr(2), Active: true},
		{ID: 4, Name: "Production", ParentID: ptr(1), Active: false},
		{ID: 5, Name: "Office", Active: true},
	}
}

func TestDescendantsInclusive(t *testing.T) {
	g, err := Build(sampleTree())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	tests := []struct {
		id   uint
		want []uint
	}{
		{1, []uint{1, 2, 3, 4}},
		{2, []uint{2, 3}},
		{3, []uint{3}},
		{5, []uint{5}},
		{99, []uint{}},
	}
	for _, tt := range tests {
		if got := g.Descendants(tt.id).Slice(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Descendants(%d) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestClosureUnionsMemberships(t *testing.T) {
	g, err := Build(sampleTree())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got := g.Closure([]uint{2, 5}).Slice()
	if want := []uint{2, 3, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Closure = %v, want %v", got, want)
	}
	if len(g.Closure(nil)) != 0 {
		t.Fatal("empty membership must yield an empty closure")
	}
}

func TestInactiveDepartmentsStayInClosure(t *testing.T) {
	g, err := Build(sampleTree())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !g.Descendants(1).Contains(4) {
		t.Fatal("inactive department dropped from closure")
	}
	if g.IsActive(4) || !g.Has(4) {
		t.Fatal("inactive department not reported as existing but inactive")
	}
}

func TestBuildRejectsStructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		nodes []domain.Department
	}{
		{"self loop", []domain.Department{{ID: 1, ParentID: ptr(1)}}},
		{"two cycle", []domain.Department{{ID: 1, ParentID: ptr(2)}, {ID: 2, ParentID: ptr(1)}}},
		{"cycle below root", []domain.Department{
			{ID: 1},
			{ID: 2, ParentID: ptr(4)},
			{ID: 3, ParentID: ptr(2)},
			{ID: 4, ParentID: ptr(3)},
		}},
		{"missing parent", []domain.Department{{ID: 1, ParentID: ptr(7)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.nodes)
			if !apperr.Is(err, apperr.KindStructural) {
				t.Fatalf("expected structural error, got %v", err)
			}
		})
	}
}

func TestWouldCreateCycle(t *testing.T) {
	g, err := Build(sampleTree())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if !g.WouldCreateCycle(1, ptr(3)) {
		t.Error("moving a root below its grandchild must be a cycle")
	}
	if !g.WouldCreateCycle(2, ptr(2)) {
		t.Error("self parent must be a cycle")
	}
	if g.WouldCreateCycle(3, ptr(5)) {
		t.Error("moving into a disjoint tree is not a cycle")
	}
	if g.WouldCreateCycle(3, nil) {
		t.Error("moving to the root level is not a cycle")
	}
}

type countingLister struct {
	calls int
	nodes []domain.Department
}

func (l *countingLister) ListDepartments(context.Context) ([]domain.Department, error) {
	l.calls++
	return l.nodes, nil
}

func TestCacheReloadsAfterInvalidate(t *testing.T) {
	lister := &countingLister{nodes: sampleTree()}
	cache := NewCache(lister)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cache.Graph(ctx); err != nil {
			t.Fatalf("graph: %v", err)
		}
	}
	if lister.calls != 1 {
		t.Fatalf("expected one load, got %d", lister.calls)
	}

	lister.nodes = append(lister.nodes, domain.Department{ID: 6, ParentID: ptr(5), Active: true})
	cache.Invalidate()

	g, err := cache.Graph(ctx)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if lister.calls != 2 || !g.Descendants(5).Contains(6) {
		t.Fatalf("cache did not reload after invalidate")
	}
}
