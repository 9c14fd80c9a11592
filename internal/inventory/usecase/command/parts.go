package command

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	"github.com/tair/plantops/internal/inventory/usecase"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
	"github.com/tair/plantops/pkg/logger"
)

// CreatePartCommand represents the command to create a part
type CreatePartCommand struct {
	PartNumber    string
	Name          string
	Description   string
	SupplierID    *uint
	Unit          string
	MinimumStock  decimal.Decimal
	Price         decimal.Decimal
	PriceCurrency string
	// DepartmentIDs defaults to the actor's primary department
	DepartmentIDs []uint
	// InitialQuantity is posted as a recount when set
	InitialQuantity *decimal.Decimal
}

// CreatePartHandler handles create part command
type CreatePartHandler struct {
	repo     domain.Repository
	tx       database.Transactor
	ledger   *ledger.Ledger
	resolver *access.Resolver
}

// NewCreatePartHandler creates a new create part handler
func NewCreatePartHandler(repo domain.Repository, tx database.Transactor, l *ledger.Ledger, resolver *access.Resolver) *CreatePartHandler {
	return &CreatePartHandler{repo: repo, tx: tx, ledger: l, resolver: resolver}
}

// Handle executes the create part command
func (h *CreatePartHandler) Handle(ctx context.Context, actor *orgdomain.Employee, cmd CreatePartCommand) (*domain.Part, error) {
	if err := access.Require(actor, orgdomain.PermissionManageParts); err != nil {
		return nil, err
	}

	part := &domain.Part{
		PartNumber:    strings.TrimSpace(cmd.PartNumber),
		Name:          strings.TrimSpace(cmd.Name),
		Description:   cmd.Description,
		SupplierID:    cmd.SupplierID,
		Unit:          strings.TrimSpace(cmd.Unit),
		MinimumStock:  cmd.MinimumStock,
		Price:         cmd.Price,
		PriceCurrency: cmd.PriceCurrency,
		CreatedByID:   actor.ID,
		DepartmentIDs: cmd.DepartmentIDs,
	}
	switch {
	case part.PartNumber == "":
		return nil, apperr.Validation("part number is required")
	case part.Name == "":
		return nil, apperr.Validation("part name is required")
	case part.Unit == "":
		return nil, apperr.Validation("unit is required")
	case part.MinimumStock.IsNegative():
		return nil, apperr.Validation("minimum stock cannot be negative")
	case part.Price.IsNegative():
		return nil, apperr.Validation("price cannot be negative")
	}
	if len(part.DepartmentIDs) == 0 && actor.PrimaryDepartmentID != nil {
		part.DepartmentIDs = []uint{*actor.PrimaryDepartmentID}
	}
	if err := h.resolver.ValidateAssignable(ctx, part.DepartmentIDs); err != nil {
		return nil, err
	}

	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := h.repo.CreatePart(ctx, part); err != nil {
			return err
		}
		if cmd.InitialQuantity == nil {
			return nil
		}
		res, err := h.ledger.Post(ctx, ledger.PostingRequest{
			PartID:    part.ID,
			Kind:      domain.MovementRecount,
			Quantity:  *cmd.InitialQuantity,
			ActorID:   actor.ID,
			Reference: "initial stock",
		})
		if err != nil {
			return err
		}
		part.CurrentQuantity = res.Part.CurrentQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Uint("part_id", part.ID).
		Str("part_number", part.PartNumber).
		Uint("actor_id", actor.ID).
		Msg("Part created")
	return part, nil
}

// SetSuccessorCommand links a part to the part that replaces it. A nil
// successor clears the link.
type SetSuccessorCommand struct {
	PartID      uint
	SuccessorID *uint
}

// SetSuccessorHandler handles successor changes
type SetSuccessorHandler struct {
	repo  domain.Repository
	tx    database.Transactor
	guard *usecase.PartGuard
}

// NewSetSuccessorHandler creates a new set successor handler
func NewSetSuccessorHandler(repo domain.Repository, tx database.Transactor, guard *usecase.PartGuard) *SetSuccessorHandler {
	return &SetSuccessorHandler{repo: repo, tx: tx, guard: guard}
}

// Handle executes the set successor command
func (h *SetSuccessorHandler) Handle(ctx context.Context, actor *orgdomain.Employee, cmd SetSuccessorCommand) (*domain.Part, error) {
	if err := access.Require(actor, orgdomain.PermissionManageParts); err != nil {
		return nil, err
	}

	var part *domain.Part
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		part, err = h.guard.Load(ctx, actor, cmd.PartID)
		if err != nil {
			return err
		}

		if cmd.SuccessorID != nil {
			if *cmd.SuccessorID == part.ID {
				return apperr.Validation("a part cannot succeed itself")
			}
			successor, err := h.guard.Load(ctx, actor, *cmd.SuccessorID)
			if err != nil {
				return err
			}
			if err := h.checkChain(ctx, part.ID, successor); err != nil {
				return err
			}
		}

		part.SuccessorID = cmd.SuccessorID
		return h.repo.UpdatePart(ctx, part)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Uint("part_id", part.ID).Interface("successor_id", part.SuccessorID).Msg("Part successor set")
	return part, nil
}

// checkChain follows the successor chain starting at next and fails if it
// leads back to partID.
func (h *SetSuccessorHandler) checkChain(ctx context.Context, partID uint, next *domain.Part) error {
	seen := map[uint]struct{}{next.ID: {}}
	for next.SuccessorID != nil {
		id := *next.SuccessorID
		if id == partID {
			return apperr.Validation("successor %d would create a cycle", next.ID)
		}
		if _, ok := seen[id]; ok {
			// An existing loop that does not contain partID.
			return nil
		}
		seen[id] = struct{}{}

		var err error
		next, err = h.repo.FindPart(ctx, id)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MarkEndOfLifeHandler sets or clears the end-of-life flag
type MarkEndOfLifeHandler struct {
	repo  domain.Repository
	tx    database.Transactor
	guard *usecase.PartGuard
}

// NewMarkEndOfLifeHandler creates a new end-of-life handler
func NewMarkEndOfLifeHandler(repo domain.Repository, tx database.Transactor, guard *usecase.PartGuard) *MarkEndOfLifeHandler {
	return &MarkEndOfLifeHandler{repo: repo, tx: tx, guard: guard}
}

// Handle executes the command
func (h *MarkEndOfLifeHandler) Handle(ctx context.Context, actor *orgdomain.Employee, partID uint, endOfLife bool) (*domain.Part, error) {
	if err := access.Require(actor, orgdomain.PermissionManageParts); err != nil {
		return nil, err
	}

	var part *domain.Part
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		part, err = h.guard.Load(ctx, actor, partID)
		if err != nil {
			return err
		}
		part.EndOfLife = endOfLife
		return h.repo.UpdatePart(ctx, part)
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// SetPartDepartmentsHandler replaces the department ACL of a part
type SetPartDepartmentsHandler struct {
	repo     domain.Repository
	tx       database.Transactor
	guard    *usecase.PartGuard
	resolver *access.Resolver
}

// NewSetPartDepartmentsHandler creates a new part ACL handler
func NewSetPartDepartmentsHandler(repo domain.Repository, tx database.Transactor, guard *usecase.PartGuard, resolver *access.Resolver) *SetPartDepartmentsHandler {
	return &SetPartDepartmentsHandler{repo: repo, tx: tx, guard: guard, resolver: resolver}
}

// Handle executes the command
func (h *SetPartDepartmentsHandler) Handle(ctx context.Context, actor *orgdomain.Employee, partID uint, departmentIDs []uint) (*domain.Part, error) {
	if err := access.Require(actor, orgdomain.PermissionManageParts); err != nil {
		return nil, err
	}
	if err := h.resolver.ValidateAssignable(ctx, departmentIDs); err != nil {
		return nil, err
	}

	var part *domain.Part
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if _, err = h.guard.Load(ctx, actor, partID); err != nil {
			return err
		}
		if err := h.repo.SetPartDepartments(ctx, partID, departmentIDs); err != nil {
			return err
		}
		part, err = h.repo.FindPart(ctx, partID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Uint("part_id", partID).Interface("department_ids", part.DepartmentIDs).Msg("Part departments replaced")
	return part, nil
}
