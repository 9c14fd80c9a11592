package command

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/integration/notify"
	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	"github.com/tair/plantops/internal/inventory/usecase"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/pkg/apperr"
)

// BookStockCommand represents a manual stock booking
type BookStockCommand struct {
	PartID          uint
	Kind            domain.MovementKind
	Quantity        decimal.Decimal
	Reference       string
	ShiftLogTopicID *uint
	CostCenter      string
}

// BookStockHandler handles manual stock bookings
type BookStockHandler struct {
	ledger   *ledger.Ledger
	guard    *usecase.PartGuard
	notifier notify.Trigger
}

// NewBookStockHandler creates a new book stock handler
func NewBookStockHandler(l *ledger.Ledger, guard *usecase.PartGuard, notifier notify.Trigger) *BookStockHandler {
	return &BookStockHandler{ledger: l, guard: guard, notifier: notifier}
}

// Handle executes the book stock command
func (h *BookStockHandler) Handle(ctx context.Context, actor *orgdomain.Employee, cmd BookStockCommand) (*ledger.PostingResult, error) {
	part, err := h.guard.Load(ctx, actor, cmd.PartID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, orgdomain.PermissionBookStock); err != nil {
		return nil, err
	}
	if !cmd.Kind.Valid() {
		return nil, apperr.Validation("unknown movement kind %q", cmd.Kind)
	}

	res, err := h.ledger.Post(ctx, ledger.PostingRequest{
		PartID:          part.ID,
		Kind:            cmd.Kind,
		Quantity:        cmd.Quantity,
		ActorID:         actor.ID,
		Reference:       strings.TrimSpace(cmd.Reference),
		ShiftLogTopicID: cmd.ShiftLogTopicID,
		CostCenter:      strings.TrimSpace(cmd.CostCenter),
	})
	if err != nil {
		return nil, err
	}

	NotifyBelowMinimum(ctx, h.notifier, res, actor.ID)
	return res, nil
}

// ReverseMovementHandler handles movement reversals
type ReverseMovementHandler struct {
	repo     domain.Repository
	ledger   *ledger.Ledger
	guard    *usecase.PartGuard
	notifier notify.Trigger
}

// NewReverseMovementHandler creates a new reverse movement handler
func NewReverseMovementHandler(repo domain.Repository, l *ledger.Ledger, guard *usecase.PartGuard, notifier notify.Trigger) *ReverseMovementHandler {
	return &ReverseMovementHandler{repo: repo, ledger: l, guard: guard, notifier: notifier}
}

// Handle reverses movementID with reason
func (h *ReverseMovementHandler) Handle(ctx context.Context, actor *orgdomain.Employee, movementID uint, reason string) (*ledger.PostingResult, error) {
	reason = strings.TrimSpace(reason)

	movement, err := h.repo.FindMovement(ctx, movementID)
	if err != nil {
		return nil, err
	}
	if _, err := h.guard.Load(ctx, actor, movement.PartID); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("movement", movementID)
		}
		return nil, err
	}
	if err := access.Require(actor, orgdomain.PermissionBookStock); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, apperr.Validation("a reason is required to reverse a movement")
	}

	res, err := h.ledger.Reverse(ctx, movementID, actor.ID, reason)
	if err != nil {
		return nil, err
	}

	NotifyBelowMinimum(ctx, h.notifier, res, actor.ID)
	return res, nil
}

// NotifyBelowMinimum emits a stock.below_minimum decision when a committed
// posting left the part under its minimum.
func NotifyBelowMinimum(ctx context.Context, notifier notify.Trigger, res *ledger.PostingResult, actorID uint) {
	if notifier == nil || res == nil || !res.BelowMinimum {
		return
	}
	notifier.Notify(ctx, notify.Event{
		Kind:            notify.KindStockBelowMinimum,
		EntityType:      "part",
		EntityID:        res.Part.ID,
		ActorID:         actorID,
		DepartmentScope: res.Part.DepartmentIDs,
	})
}
