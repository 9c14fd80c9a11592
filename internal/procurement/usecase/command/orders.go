package command

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/tair/plantops/internal/integration/notify"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/logger"
)

// OrderLineInput describes an ordered item
type OrderLineInput struct {
	PartID      *uint
	OrderNumber string
	Description string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Currency    string
}

// CreateOrderCommand represents the command to create a purchase order
type CreateOrderCommand struct {
	SupplierID  uint
	OrderNumber string
	// DepartmentIDs defaults to the actor's primary department
	DepartmentIDs []uint
	Lines         []OrderLineInput
}

// CreateOrderHandler handles create purchase order command
type CreateOrderHandler struct {
	d *Dependencies
}

// NewCreateOrderHandler creates a new create purchase order handler
func NewCreateOrderHandler(d *Dependencies) *CreateOrderHandler {
	return &CreateOrderHandler{d: d}
}

// Handle executes the create purchase order command
func (h *CreateOrderHandler) Handle(ctx context.Context, actor *orgdomain.Employee, cmd CreateOrderCommand) (*domain.PurchaseOrder, error) {
	if err := access.Require(actor, orgdomain.PermissionCreateOrders); err != nil {
		return nil, err
	}
	if cmd.SupplierID == 0 {
		return nil, apperr.Validation("supplier is required")
	}

	departments := defaultDepartments(actor, cmd.DepartmentIDs)
	if err := h.d.Resolver.ValidateAssignable(ctx, departments); err != nil {
		return nil, err
	}

	order := &domain.PurchaseOrder{
		SupplierID:    cmd.SupplierID,
		CreatedByID:   actor.ID,
		DepartmentID:  actor.PrimaryDepartmentID,
		Status:        domain.OrderDraft,
		DepartmentIDs: departments,
	}
	if number := strings.TrimSpace(cmd.OrderNumber); number != "" {
		order.OrderNumber = &number
	}
	for i, in := range cmd.Lines {
		line, err := h.d.orderLine(ctx, actor, in)
		if err != nil {
			return nil, err
		}
		line.Position = i + 1
		order.Lines = append(order.Lines, *line)
	}

	if err := h.d.Repo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	h.d.Metrics.transition(domain.EntityPurchaseOrder, string(domain.OrderDraft))
	logger.Info(ctx).
		Uint("order_id", order.ID).
		Uint("supplier_id", order.SupplierID).
		Int("lines", len(order.Lines)).
		Msg("Purchase order created")
	return order, nil
}

func (d *Dependencies) orderLine(ctx context.Context, actor *orgdomain.Employee, in OrderLineInput) (*domain.PurchaseOrderLine, error) {
	if !in.Quantity.IsPositive() {
		return nil, apperr.Validation("quantity must be positive, got %s", in.Quantity.String())
	}
	if in.UnitPrice.IsNegative() {
		return nil, apperr.Validation("unit price must not be negative, got %s", in.UnitPrice.String())
	}
	line := &domain.PurchaseOrderLine{
		PartID:           in.PartID,
		OrderNumber:      strings.TrimSpace(in.OrderNumber),
		Description:      strings.TrimSpace(in.Description),
		Unit:             strings.TrimSpace(in.Unit),
		QuantityOrdered:  in.Quantity,
		QuantityReceived: decimal.Zero,
		UnitPrice:        in.UnitPrice,
		Currency:         strings.ToUpper(strings.TrimSpace(in.Currency)),
	}

	if in.PartID == nil {
		if line.OrderNumber == "" && line.Description == "" {
			return nil, apperr.Validation("a line without a part needs an order number or description")
		}
		return line, nil
	}

	part, err := d.PartGuard.Load(ctx, actor, *in.PartID)
	if err != nil {
		return nil, err
	}
	if line.OrderNumber == "" {
		line.OrderNumber = part.PartNumber
	}
	if line.Description == "" {
		line.Description = part.Name
	}
	if line.Unit == "" {
		line.Unit = part.Unit
	}
	return line, nil
}

// OrderLinesHandler edits the lines of a purchase order before approval
type OrderLinesHandler struct {
	d *Dependencies
}

// NewOrderLinesHandler creates a new order lines handler
func NewOrderLinesHandler(d *Dependencies) *OrderLinesHandler {
	return &OrderLinesHandler{d: d}
}

func (h *OrderLinesHandler) editable(ctx context.Context, actor *orgdomain.Employee, orderID uint) (*domain.PurchaseOrder, error) {
	order, err := h.d.Guard.LockOrder(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, orgdomain.PermissionCreateOrders); err != nil {
		return nil, err
	}
	if !order.Status.LinesEditable() {
		return nil, apperr.InvalidState("lines of purchase order %d cannot be edited in status %s", order.ID, order.Status)
	}
	return order, nil
}

// Add appends a line to the order
func (h *OrderLinesHandler) Add(ctx context.Context, actor *orgdomain.Employee, orderID uint, in OrderLineInput) (*domain.PurchaseOrderLine, error) {
	var line *domain.PurchaseOrderLine
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := h.editable(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if line, err = h.d.orderLine(ctx, actor, in); err != nil {
			return err
		}
		line.PurchaseOrderID = order.ID
		line.Position = nextOrderPosition(order)
		return h.d.Repo.AddOrderLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Update replaces a line's item data, quantity and price
func (h *OrderLinesHandler) Update(ctx context.Context, actor *orgdomain.Employee, orderID, lineID uint, in OrderLineInput) (*domain.PurchaseOrderLine, error) {
	var line *domain.PurchaseOrderLine
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := h.editable(ctx, actor, orderID)
		if err != nil {
			return err
		}
		current := order.Line(lineID)
		if current == nil {
			return apperr.NotFound("purchase order line", lineID)
		}
		if line, err = h.d.orderLine(ctx, actor, in); err != nil {
			return err
		}
		line.ID = current.ID
		line.PurchaseOrderID = order.ID
		line.Position = current.Position
		line.QuoteRequestLineID = current.QuoteRequestLineID
		line.QuantityReceived = current.QuantityReceived
		return h.d.Repo.UpdateOrderLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// Remove deletes a line
func (h *OrderLinesHandler) Remove(ctx context.Context, actor *orgdomain.Employee, orderID, lineID uint) error {
	return h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := h.editable(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if order.Line(lineID) == nil {
			return apperr.NotFound("purchase order line", lineID)
		}
		return h.d.Repo.DeleteOrderLine(ctx, order.ID, lineID)
	})
}

func nextOrderPosition(order *domain.PurchaseOrder) int {
	pos := 0
	for _, l := range order.Lines {
		if l.Position > pos {
			pos = l.Position
		}
	}
	return pos + 1
}

// SetOrderDepartmentsHandler replaces the visibility departments of an order
type SetOrderDepartmentsHandler struct {
	d *Dependencies
}

// NewSetOrderDepartmentsHandler creates a new set order departments handler
func NewSetOrderDepartmentsHandler(d *Dependencies) *SetOrderDepartmentsHandler {
	return &SetOrderDepartmentsHandler{d: d}
}

// Handle executes the set order departments command
func (h *SetOrderDepartmentsHandler) Handle(ctx context.Context, actor *orgdomain.Employee, orderID uint, departmentIDs []uint) (*domain.PurchaseOrder, error) {
	var order *domain.PurchaseOrder
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := h.d.Guard.LockOrder(ctx, actor, orderID); err != nil {
			return err
		}
		if err := access.Require(actor, orgdomain.PermissionCreateOrders); err != nil {
			return err
		}
		if err := h.d.Resolver.ValidateAssignable(ctx, departmentIDs); err != nil {
			return err
		}
		if err := h.d.Repo.SetOrderDepartments(ctx, orderID, departmentIDs); err != nil {
			return err
		}
		var err error
		order, err = h.d.Repo.FindOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).Uint("order_id", orderID).Interface("department_ids", order.DepartmentIDs).Msg("Purchase order departments replaced")
	return order, nil
}

// OrderTransitionHandler performs the user-driven purchase order
// transitions. Receiving is done by ReceiveGoodsHandler.
type OrderTransitionHandler struct {
	d *Dependencies
}

// NewOrderTransitionHandler creates a new order transition handler
func NewOrderTransitionHandler(d *Dependencies) *OrderTransitionHandler {
	return &OrderTransitionHandler{d: d}
}

type orderStep struct {
	permission orgdomain.Permission
	trigger    domain.OrderTrigger
	kind       notify.Kind
	// apply validates and records the step on the locked order
	apply func(order *domain.PurchaseOrder, actorID uint, now time.Time) error
}

func (h *OrderTransitionHandler) run(ctx context.Context, actor *orgdomain.Employee, orderID uint, step orderStep) (*domain.PurchaseOrder, error) {
	var order *domain.PurchaseOrder
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		if order, err = h.d.Guard.LockOrder(ctx, actor, orderID); err != nil {
			return err
		}
		if err := access.Require(actor, step.permission); err != nil {
			return err
		}
		if err := order.Apply(step.trigger); err != nil {
			return err
		}
		if step.apply != nil {
			if err := step.apply(order, actor.ID, h.d.now()); err != nil {
				return err
			}
		}
		return h.d.Repo.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	h.d.Metrics.transition(domain.EntityPurchaseOrder, string(order.Status))
	h.d.notifyOrder(ctx, step.kind, order, actor.ID)
	logger.Info(ctx).
		Uint("order_id", order.ID).
		Str("trigger", string(step.trigger)).
		Str("status", string(order.Status)).
		Msg("Purchase order status changed")
	return order, nil
}

// Submit requests approval of a draft order
func (h *OrderTransitionHandler) Submit(ctx context.Context, actor *orgdomain.Employee, orderID uint, note string) (*domain.PurchaseOrder, error) {
	return h.run(ctx, actor, orderID, orderStep{
		permission: orgdomain.PermissionCreateOrders,
		trigger:    domain.TriggerSubmit,
		kind:       notify.KindOrderSubmitted,
		apply: func(o *domain.PurchaseOrder, actorID uint, now time.Time) error {
			if len(o.Lines) == 0 {
				return apperr.Validation("purchase order %d has no lines", o.ID)
			}
			o.SubmissionNote = strings.TrimSpace(note)
			o.SubmittedAt, o.SubmittedByID = timePtr(now), uintPtr(actorID)
			return nil
		},
	})
}

// Approve approves a pending order with the approver's signature
func (h *OrderTransitionHandler) Approve(ctx context.Context, actor *orgdomain.Employee, orderID uint, signature []byte) (*domain.PurchaseOrder, error) {
	if len(signature) == 0 {
		return nil, apperr.Validation("a signature is required to approve an order")
	}
	return h.run(ctx, actor, orderID, orderStep{
		permission: orgdomain.PermissionApproveOrders,
		trigger:    domain.TriggerApprove,
		kind:       notify.KindOrderApproved,
		apply: func(o *domain.PurchaseOrder, actorID uint, now time.Time) error {
			digest := blake2b.Sum256(signature)
			o.Signature = append([]byte(nil), signature...)
			o.SignatureDigest = hex.EncodeToString(digest[:])
			o.ApprovedAt, o.ApprovedByID = timePtr(now), uintPtr(actorID)
			return nil
		},
	})
}

// Place records that the approved order was sent to the supplier
func (h *OrderTransitionHandler) Place(ctx context.Context, actor *orgdomain.Employee, orderID uint) (*domain.PurchaseOrder, error) {
	return h.run(ctx, actor, orderID, orderStep{
		permission: orgdomain.PermissionBookStock,
		trigger:    domain.TriggerPlace,
		kind:       notify.KindOrderOrdered,
		apply: func(o *domain.PurchaseOrder, actorID uint, now time.Time) error {
			o.OrderedAt, o.OrderedByID = timePtr(now), uintPtr(actorID)
			return nil
		},
	})
}

// Close closes a fully received order
func (h *OrderTransitionHandler) Close(ctx context.Context, actor *orgdomain.Employee, orderID uint) (*domain.PurchaseOrder, error) {
	return h.run(ctx, actor, orderID, orderStep{
		permission: orgdomain.PermissionCreateOrders,
		trigger:    domain.TriggerClose,
		kind:       notify.KindOrderClosed,
		apply: func(o *domain.PurchaseOrder, actorID uint, now time.Time) error {
			o.ClosedAt, o.ClosedByID = timePtr(now), uintPtr(actorID)
			return nil
		},
	})
}

// Cancel cancels a received or closed order
func (h *OrderTransitionHandler) Cancel(ctx context.Context, actor *orgdomain.Employee, orderID uint, reason string) (*domain.PurchaseOrder, error) {
	return h.run(ctx, actor, orderID, orderStep{
		permission: orgdomain.PermissionApproveOrders,
		trigger:    domain.TriggerCancel,
		kind:       notify.KindOrderCancelled,
		apply: func(o *domain.PurchaseOrder, actorID uint, now time.Time) error {
			o.CancelReason = strings.TrimSpace(reason)
			o.CancelledAt, o.CancelledByID = timePtr(now), uintPtr(actorID)
			return nil
		},
	})
}

// Discard tombstones a draft order
func (h *OrderTransitionHandler) Discard(ctx context.Context, actor *orgdomain.Employee, orderID uint) error {
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := h.d.Guard.LockOrder(ctx, actor, orderID)
		if err != nil {
			return err
		}
		if err := access.Require(actor, orgdomain.PermissionCreateOrders); err != nil {
			return err
		}
		if order.Status != domain.OrderDraft {
			return apperr.InvalidState("only draft orders can be discarded, order %d is %s", order.ID, order.Status)
		}
		return h.d.Repo.DeleteOrder(ctx, order.ID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx).Uint("order_id", orderID).Msg("Draft purchase order discarded")
	return nil
}
