package command_test

import (
	"context"
	"testing"

	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/graph"
	"github.com/tair/plantops/internal/organization/repository"
	"github.com/tair/plantops/internal/organization/treelock"
	"github.com/tair/plantops/internal/organization/usecase/command"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

type recordingPublisher struct {
	changed []uint
}

func (p *recordingPublisher) TreeChanged(_ context.Context, departmentID, _ uint) error {
	p.changed = append(p.changed, departmentID)
	return nil
}

type fixture struct {
	cache      *graph.Cache
	publisher  *recordingPublisher
	create     *command.CreateDepartmentHandler
	move       *command.MoveDepartmentHandler
	rename     *command.RenameDepartmentHandler
	deactivate *command.DeactivateDepartmentHandler
	admin      *domain.Employee
}

func newFixture() *fixture {
	db := database.NewMemoryDB()
	repo := repository.NewMemoryRepository(db)
	cache := graph.NewCache(repo)
	publisher := &recordingPublisher{}
	editor := command.NewTreeEditor(repo, db, treelock.NewLocalLocker(), publisher, cache)

	return &fixture{
		cache:      cache,
		publisher:  publisher,
		create:     command.NewCreateDepartmentHandler(editor),
		move:       command.NewMoveDepartmentHandler(editor),
		rename:     command.NewRenameDepartmentHandler(editor),
		deactivate: command.NewDeactivateDepartmentHandler(editor),
		admin: &domain.Employee{
			ID:          1,
			Active:      true,
			Permissions: []domain.Permission{domain.PermissionManageDepartments},
		},
	}
}

func TestDepartmentTreeEdits(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	plant, err := f.create.Handle(ctx, f.admin, command.CreateDepartmentCommand{Name: "Plant"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	maintenance, err := f.create.Handle(ctx, f.admin, command.CreateDepartmentCommand{Name: "Maintenance", ParentID: &plant.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	// Warm the cache, then edit and expect the edit to be visible.
	if _, err := f.cache.Graph(ctx); err != nil {
		t.Fatalf("graph: %v", err)
	}
	electrical, err := f.create.Handle(ctx, f.admin, command.CreateDepartmentCommand{Name: "Electrical", ParentID: &maintenance.ID})
	if err != nil {
		t.Fatalf("create grandchild: %v", err)
	}
	g, err := f.cache.Graph(ctx)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if !g.Descendants(plant.ID).Contains(electrical.ID) {
		t.Fatal("cache was not invalidated after edit")
	}

	t.Run("move into own subtree is rejected", func(t *testing.T) {
		_, err := f.move.Handle(ctx, f.admin, command.MoveDepartmentCommand{ID: plant.ID, ParentID: &electrical.ID})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("move to root", func(t *testing.T) {
		moved, err := f.move.Handle(ctx, f.admin, command.MoveDepartmentCommand{ID: electrical.ID})
		if err != nil {
			t.Fatalf("move: %v", err)
		}
		if moved.ParentID != nil {
			t.Fatalf("expected root, got parent %d", *moved.ParentID)
		}
	})

	t.Run("rename", func(t *testing.T) {
		renamed, err := f.rename.Handle(ctx, f.admin, command.RenameDepartmentCommand{ID: maintenance.ID, Name: "Facility Maintenance"})
		if err != nil || renamed.Name != "Facility Maintenance" {
			t.Fatalf("rename: %v %+v", err, renamed)
		}
	})

	t.Run("inactive parent cannot receive children", func(t *testing.T) {
		if _, err := f.deactivate.Handle(ctx, f.admin, maintenance.ID); err != nil {
			t.Fatalf("deactivate: %v", err)
		}
		_, err := f.create.Handle(ctx, f.admin, command.CreateDepartmentCommand{Name: "Mechanical", ParentID: &maintenance.ID})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	if len(f.publisher.changed) != 6 {
		t.Fatalf("expected 6 tree change events, got %v", f.publisher.changed)
	}
}

func TestDepartmentEditsRequirePermission(t *testing.T) {
	f := newFixture()
	clerk := &domain.Employee{ID: 2, Active: true, Permissions: []domain.Permission{domain.PermissionBookStock}}

	_, err := f.create.Handle(context.Background(), clerk, command.CreateDepartmentCommand{Name: "Plant"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
