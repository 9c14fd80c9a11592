package command

import (
	"context"
	"strings"

	"github.com/tair/plantops/internal/organization/access"
	"github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/organization/graph"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
	"github.com/tair/plantops/pkg/logger"
)

// TreeEditor runs department tree edits under the tree lock and keeps the
// graph caches in sync. It is shared by the department command handlers.
type TreeEditor struct {
	repo      domain.Repository
	tx        database.Transactor
	locker    domain.TreeLocker
	publisher domain.TreeChangePublisher
	cache     *graph.Cache
}

// NewTreeEditor creates a tree editor. publisher may be nil for single
// instance deployments.
func NewTreeEditor(
	repo domain.Repository,
	tx database.Transactor,
	locker domain.TreeLocker,
	publisher domain.TreeChangePublisher,
	cache *graph.Cache,
) *TreeEditor {
	return &TreeEditor{repo: repo, tx: tx, locker: locker, publisher: publisher, cache: cache}
}

// edit authorizes actor, then runs fn against a fresh graph inside a
// transaction while holding the tree lock.
func (e *TreeEditor) edit(ctx context.Context, actor *domain.Employee, fn func(ctx context.Context, g *graph.Graph) (*domain.Department, error)) (*domain.Department, error) {
	if err := access.Require(actor, domain.PermissionManageDepartments); err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var changed *domain.Department
	err = e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// Build from the store rather than the cache; another instance may
		// have edited the tree before we got the lock.
		departments, err := e.repo.ListDepartments(ctx)
		if err != nil {
			return err
		}
		g, err := graph.Build(departments)
		if err != nil {
			return err
		}
		changed, err = fn(ctx, g)
		return err
	})
	e.cache.Invalidate()
	if err != nil {
		return nil, err
	}

	if e.publisher != nil {
		if err := e.publisher.TreeChanged(ctx, changed.ID, actor.ID); err != nil {
			logger.Error(ctx).Err(err).Uint("department_id", changed.ID).Msg("Failed to publish department tree change")
		}
	}

	logger.Info(ctx).
		Uint("department_id", changed.ID).
		Uint("actor_id", actor.ID).
		Msg("Department tree changed")
	return changed, nil
}

func validateParent(g *graph.Graph, parentID *uint) error {
	if parentID == nil {
		return nil
	}
	if !g.Has(*parentID) {
		return apperr.Validation("parent department %d does not exist", *parentID)
	}
	if !g.IsActive(*parentID) {
		return apperr.Validation("parent department %d is inactive", *parentID)
	}
	return nil
}

// CreateDepartmentCommand represents the command to create a department
type CreateDepartmentCommand struct {
	Name     string
	ParentID *uint
}

// CreateDepartmentHandler handles department creation
type CreateDepartmentHandler struct {
	editor *TreeEditor
}

// NewCreateDepartmentHandler creates a new create department handler
func NewCreateDepartmentHandler(editor *TreeEditor) *CreateDepartmentHandler {
	return &CreateDepartmentHandler{editor: editor}
}

// Handle executes the create department command
func (h *CreateDepartmentHandler) Handle(ctx context.Context, actor *domain.Employee, cmd CreateDepartmentCommand) (*domain.Department, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, apperr.Validation("department name is required")
	}

	return h.editor.edit(ctx, actor, func(ctx context.Context, g *graph.Graph) (*domain.Department, error) {
		if err := validateParent(g, cmd.ParentID); err != nil {
			return nil, err
		}
		department := &domain.Department{Name: name, ParentID: cmd.ParentID, Active: true}
		if err := h.editor.repo.CreateDepartment(ctx, department); err != nil {
			return nil, err
		}
		return department, nil
	})
}

// MoveDepartmentCommand re-parents a department. A nil parent makes it a root.
type MoveDepartmentCommand struct {
	ID       uint
	ParentID *uint
}

// MoveDepartmentHandler handles department moves
type MoveDepartmentHandler struct {
	editor *TreeEditor
}

// NewMoveDepartmentHandler creates a new move department handler
func NewMoveDepartmentHandler(editor *TreeEditor) *MoveDepartmentHandler {
	return &MoveDepartmentHandler{editor: editor}
}

// Handle executes the move department command
func (h *MoveDepartmentHandler) Handle(ctx context.Context, actor *domain.Employee, cmd MoveDepartmentCommand) (*domain.Department, error) {
	return h.editor.edit(ctx, actor, func(ctx context.Context, g *graph.Graph) (*domain.Department, error) {
		department, err := h.editor.repo.FindDepartment(ctx, cmd.ID)
		if err != nil {
			return nil, err
		}
		if err := validateParent(g, cmd.ParentID); err != nil {
			return nil, err
		}
		if g.WouldCreateCycle(department.ID, cmd.ParentID) {
			return nil, apperr.Validation("moving department %d below %d would create a cycle", department.ID, *cmd.ParentID)
		}

		department.ParentID = cmd.ParentID
		if err := h.editor.repo.UpdateDepartment(ctx, department); err != nil {
			return nil, err
		}
		return department, nil
	})
}

// RenameDepartmentCommand renames a department
type RenameDepartmentCommand struct {
	ID   uint
	Name string
}

// RenameDepartmentHandler handles department renames
type RenameDepartmentHandler struct {
	editor *TreeEditor
}

// NewRenameDepartmentHandler creates a new rename department handler
func NewRenameDepartmentHandler(editor *TreeEditor) *RenameDepartmentHandler {
	return &RenameDepartmentHandler{editor: editor}
}

// Handle executes the rename department command
func (h *RenameDepartmentHandler) Handle(ctx context.Context, actor *domain.Employee, cmd RenameDepartmentCommand) (*domain.Department, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, apperr.Validation("department name is required")
	}

	return h.editor.edit(ctx, actor, func(ctx context.Context, _ *graph.Graph) (*domain.Department, error) {
		department, err := h.editor.repo.FindDepartment(ctx, cmd.ID)
		if err != nil {
			return nil, err
		}
		department.Name = name
		if err := h.editor.repo.UpdateDepartment(ctx, department); err != nil {
			return nil, err
		}
		return department, nil
	})
}

// DeactivateDepartmentHandler deactivates a department. The department stays
// in the tree so existing ACL entries keep resolving.
type DeactivateDepartmentHandler struct {
	editor *TreeEditor
}

// NewDeactivateDepartmentHandler creates a new deactivate department handler
func NewDeactivateDepartmentHandler(editor *TreeEditor) *DeactivateDepartmentHandler {
	return &DeactivateDepartmentHandler{editor: editor}
}

// Handle executes the deactivate department command
func (h *DeactivateDepartmentHandler) Handle(ctx context.Context, actor *domain.Employee, id uint) (*domain.Department, error) {
	return h.editor.edit(ctx, actor, func(ctx context.Context, _ *graph.Graph) (*domain.Department, error) {
		department, err := h.editor.repo.FindDepartment(ctx, id)
		if err != nil {
			return nil, err
		}
		if !department.Active {
			return department, nil
		}
		department.Active = false
		if err := h.editor.repo.UpdateDepartment(ctx, department); err != nil {
			return nil, err
		}
		return department, nil
	})
}
