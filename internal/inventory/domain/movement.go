package domain

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tair/plantops/pkg/apperr"
)

// MovementKind is the kind of a stock posting
type MovementKind string

const (
	MovementInbound  MovementKind = "inbound"
	MovementOutbound MovementKind = "outbound"
	MovementRecount  MovementKind = "recount"
)

// Valid reports whether k is a known kind
func (k MovementKind) Valid() bool {
	switch k {
	case MovementInbound, MovementOutbound, MovementRecount:
		return true
	}
	return false
}

// ErrImmutableMovement is returned by the persistence hooks on any attempt to
// change a written movement.
var ErrImmutableMovement = errors.New("stock movements are immutable")

// StockMovement is one ledger entry. Rows are never updated or deleted;
// mistakes are corrected by new offsetting entries.
type StockMovement struct {
	ID                  uint            `json:"id" gorm:"primaryKey"`
	PartID              uint            `json:"part_id" gorm:"not null;index:idx_movements_replay,priority:1"`
	Kind                MovementKind    `json:"kind" gorm:"type:varchar(16);not null"`
	Quantity            decimal.Decimal `json:"quantity" gorm:"type:numeric(18,4);not null"`
	QuantityBefore      decimal.Decimal `json:"quantity_before" gorm:"type:numeric(18,4);not null"`
	QuantityAfter       decimal.Decimal `json:"quantity_after" gorm:"type:numeric(18,4);not null"`
	Reference           string          `json:"reference,omitempty"`
	ShiftLogTopicID     *uint           `json:"shift_log_topic_id,omitempty"`
	PurchaseOrderID     *uint           `json:"purchase_order_id,omitempty" gorm:"index"`
	PurchaseOrderLineID *uint           `json:"purchase_order_line_id,omitempty"`
	CostCenter          string          `json:"cost_center,omitempty"`
	UnitPrice           decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,4);not null"`
	PostedAt            time.Time       `json:"posted_at" gorm:"not null;index:idx_movements_replay,priority:2"`
	ActorID             uint            `json:"actor_id" gorm:"not null"`
	ReversesMovementID  *uint           `json:"reverses_movement_id,omitempty" gorm:"uniqueIndex"`
	CreatedAt           time.Time       `json:"created_at"`
}

// TableName specifies the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// BeforeUpdate rejects updates
func (m *StockMovement) BeforeUpdate(*gorm.DB) error {
	return ErrImmutableMovement
}

// BeforeDelete rejects deletes
func (m *StockMovement) BeforeDelete(*gorm.DB) error {
	return ErrImmutableMovement
}

// ValidateQuantity checks the quantity rule of a posting kind. Inbound and
// outbound need a positive delta, recount a non-negative absolute value.
func ValidateQuantity(kind MovementKind, quantity decimal.Decimal) error {
	switch kind {
	case MovementInbound, MovementOutbound:
		if !quantity.IsPositive() {
			return apperr.Validation("%s quantity must be positive, got %s", kind, quantity.String())
		}
	case MovementRecount:
		if quantity.IsNegative() {
			return apperr.Validation("recount quantity must not be negative, got %s", quantity.String())
		}
	default:
		return apperr.Validation("unknown movement kind %q", kind)
	}
	return nil
}

// Apply computes the quantity after a posting. It does not reject negative
// results; the ledger does.
func Apply(current decimal.Decimal, kind MovementKind, quantity decimal.Decimal) decimal.Decimal {
	switch kind {
	case MovementInbound:
		return current.Add(quantity)
	case MovementOutbound:
		return current.Sub(quantity)
	case MovementRecount:
		return quantity
	default:
		return current
	}
}

// SortForReplay orders movements by posting time, then id.
func SortForReplay(movements []StockMovement) {
	sort.SliceStable(movements, func(i, j int) bool {
		if !movements[i].PostedAt.Equal(movements[j].PostedAt) {
			return movements[i].PostedAt.Before(movements[j].PostedAt)
		}
		return movements[i].ID < movements[j].ID
	})
}

// Replay recomputes a quantity from zero over the given movements.
func Replay(movements []StockMovement) decimal.Decimal {
	ordered := make([]StockMovement, len(movements))
	copy(ordered, movements)
	SortForReplay(ordered)

	quantity := decimal.Zero
	for _, m := range ordered {
		quantity = Apply(quantity, m.Kind, m.Quantity)
	}
	return quantity
}
