package command

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tair/plantops/internal/integration/labelprinter"
	"github.com/tair/plantops/internal/integration/notify"
	invdomain "github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/internal/inventory/ledger"
	invcommand "github.com/tair/plantops/internal/inventory/usecase/command"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/logger"
)

// ReceiveGoodsCommand books a delivery against an order. Lines maps order
// line ids to received quantities; zero quantities are ignored.
type ReceiveGoodsCommand struct {
	OrderID      uint
	Lines        map[uint]decimal.Decimal
	DeliveryNote string
}

// ReceiptResult is the outcome of a goods receipt
type ReceiptResult struct {
	Order *domain.PurchaseOrder `json:"order"`
	// Receipt is nil when nothing new was received
	Receipt  *domain.GoodsReceipt   `json:"receipt,omitempty"`
	Postings []ledger.PostingResult `json:"postings"`
	// StatusChanged is false when the order kept its status
	StatusChanged bool `json:"status_changed"`
}

// ReceiveGoodsHandler applies received quantities to an order's lines and
// posts the matching inbound stock movements
type ReceiveGoodsHandler struct {
	d *Dependencies
}

// NewReceiveGoodsHandler creates a new receive goods handler
func NewReceiveGoodsHandler(d *Dependencies) *ReceiveGoodsHandler {
	return &ReceiveGoodsHandler{d: d}
}

type receivedLine struct {
	line     *domain.PurchaseOrderLine
	quantity decimal.Decimal
}

// Handle executes the receive goods command. The whole batch is applied in
// one transaction or rejected.
func (h *ReceiveGoodsHandler) Handle(ctx context.Context, actor *orgdomain.Employee, cmd ReceiveGoodsCommand) (*ReceiptResult, error) {
	result, err := h.receive(ctx, actor, cmd)
	if err != nil {
		h.d.Metrics.receipt("rejected")
		logger.Warn(ctx).Err(err).Uint("order_id", cmd.OrderID).Msg("Goods receipt rejected")
		return nil, err
	}
	if result.Receipt == nil {
		h.d.Metrics.receipt("empty")
		return result, nil
	}

	h.d.Metrics.receipt("ok")
	if result.StatusChanged {
		h.d.Metrics.transition(domain.EntityPurchaseOrder, string(result.Order.Status))
	}
	kind := notify.KindOrderPartiallyReceived
	if result.Order.Status == domain.OrderReceived {
		kind = notify.KindOrderReceived
	}
	h.d.notifyOrder(ctx, kind, result.Order, actor.ID)
	for i := range result.Postings {
		invcommand.NotifyBelowMinimum(ctx, h.d.Notifier, &result.Postings[i], actor.ID)
	}
	h.printLabels(ctx, actor, result)

	logger.Info(ctx).
		Uint("order_id", result.Order.ID).
		Uint("receipt_id", result.Receipt.ID).
		Int("lines", len(result.Receipt.Lines)).
		Str("status", string(result.Order.Status)).
		Msg("Goods received")
	return result, nil
}

func (h *ReceiveGoodsHandler) receive(ctx context.Context, actor *orgdomain.Employee, cmd ReceiveGoodsCommand) (*ReceiptResult, error) {
	for lineID, qty := range cmd.Lines {
		if qty.IsNegative() {
			return nil, apperr.Validation("received quantity of line %d must not be negative, got %s", lineID, qty.String())
		}
	}

	var result *ReceiptResult
	err := h.d.Tx.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := h.d.Guard.LockOrder(ctx, actor, cmd.OrderID)
		if err != nil {
			return err
		}
		if err := access.Require(actor, orgdomain.PermissionBookStock); err != nil {
			return err
		}
		if !order.Status.Receivable() {
			return apperr.InvalidState("goods cannot be received against purchase order %d in status %s", order.ID, order.Status)
		}

		batch, err := h.validate(order, cmd.Lines)
		if err != nil {
			return err
		}
		result = &ReceiptResult{Order: order}
		if len(batch) == 0 {
			return nil
		}

		now := h.d.now()
		receipt := &domain.GoodsReceipt{
			PurchaseOrderID: order.ID,
			DeliveryNote:    strings.TrimSpace(cmd.DeliveryNote),
			ReceivedByID:    actor.ID,
			ReceivedAt:      now,
		}
		reference := receiptReference(order, receipt.DeliveryNote)

		for _, item := range batch {
			receiptLine := domain.GoodsReceiptLine{
				PurchaseOrderLineID: item.line.ID,
				Quantity:            item.quantity,
			}
			if item.line.PartID != nil {
				unitPrice := item.line.UnitPrice
				posting, err := h.d.Ledger.Post(ctx, ledger.PostingRequest{
					PartID:              *item.line.PartID,
					Kind:                invdomain.MovementInbound,
					Quantity:            item.quantity,
					ActorID:             actor.ID,
					Reference:           reference,
					PurchaseOrderID:     uintPtr(order.ID),
					PurchaseOrderLineID: uintPtr(item.line.ID),
					UnitPrice:           &unitPrice,
				})
				if err != nil {
					return err
				}
				receiptLine.StockMovementID = uintPtr(posting.Movement.ID)
				result.Postings = append(result.Postings, *posting)
			}

			item.line.QuantityReceived = item.line.QuantityReceived.Add(item.quantity)
			if err := h.d.Repo.UpdateOrderLine(ctx, item.line); err != nil {
				return err
			}
			receipt.Lines = append(receipt.Lines, receiptLine)
		}

		if trigger, ok := order.ReceiptTrigger(); ok {
			before := order.Status
			if err := order.Apply(trigger); err != nil {
				return err
			}
			if order.Status == domain.OrderReceived {
				order.ReceivedAt = timePtr(now)
			}
			result.StatusChanged = order.Status != before
			if err := h.d.Repo.UpdateOrder(ctx, order); err != nil {
				return err
			}
		}

		if err := h.d.Repo.CreateGoodsReceipt(ctx, receipt); err != nil {
			return err
		}
		result.Receipt = receipt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// validate checks every quantity of the batch before anything is written and
// returns the non-zero receipts in line position order.
func (h *ReceiveGoodsHandler) validate(order *domain.PurchaseOrder, lines map[uint]decimal.Decimal) ([]receivedLine, error) {
	batch := make([]receivedLine, 0, len(lines))
	for lineID, qty := range lines {
		line := order.Line(lineID)
		if line == nil {
			return nil, apperr.Validation("line %d does not belong to purchase order %d", lineID, order.ID)
		}
		if qty.IsZero() {
			continue
		}
		if line.QuantityReceived.Add(qty).GreaterThan(line.QuantityOrdered) {
			return nil, apperr.Validation(
				"receiving %s on line %d exceeds the ordered quantity %s (%s already received)",
				qty.String(), lineID, line.QuantityOrdered.String(), line.QuantityReceived.String())
		}
		batch = append(batch, receivedLine{line: line, quantity: qty})
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].line.Position != batch[j].line.Position {
			return batch[i].line.Position < batch[j].line.Position
		}
		return batch[i].line.ID < batch[j].line.ID
	})
	return batch, nil
}

func receiptReference(order *domain.PurchaseOrder, deliveryNote string) string {
	ref := fmt.Sprintf("goods receipt for purchase order #%d", order.ID)
	if order.OrderNumber != nil {
		ref = fmt.Sprintf("goods receipt for purchase order %s", *order.OrderNumber)
	}
	if deliveryNote != "" {
		ref += ", delivery note " + deliveryNote
	}
	return ref
}

// printLabels sends one label job per received line. Printing never fails
// the receipt.
func (h *ReceiveGoodsHandler) printLabels(ctx context.Context, actor *orgdomain.Employee, result *ReceiptResult) {
	if h.d.Printer == nil {
		return
	}
	reference := receiptReference(result.Order, result.Receipt.DeliveryNote)
	for _, rl := range result.Receipt.Lines {
		line := result.Order.Line(rl.PurchaseOrderLineID)
		if line == nil {
			continue
		}
		job := labelprinter.Job{
			JobID:       uuid.NewString(),
			PartNumber:  line.OrderNumber,
			Description: line.Description,
			Quantity:    rl.Quantity,
			Reference:   reference,
			RequestedBy: actor.ID,
			RequestedAt: result.Receipt.ReceivedAt,
		}
		if line.PartID != nil {
			job.PartID = *line.PartID
		}
		if err := h.d.Printer.Print(ctx, job); err != nil {
			logger.Error(ctx).Err(err).
				Uint("order_id", result.Order.ID).
				Uint("line_id", line.ID).
				Msg("Failed to print receipt label")
		}
	}
}
