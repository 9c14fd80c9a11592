package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tair/plantops/pkg/apperr"
)

// OrderStatus is the status of a purchase order
type OrderStatus string

// Purchase order statuses
const (
	OrderDraft             OrderStatus = "draft"
	OrderPendingApproval   OrderStatus = "pending_approval"
	OrderApproved          OrderStatus = "approved"
	OrderOrdered           OrderStatus = "ordered"
	OrderPartiallyReceived OrderStatus = "partially_received"
	OrderReceived          OrderStatus = "received"
	OrderClosed            OrderStatus = "closed"
	OrderCancelled         OrderStatus = "cancelled"
)

// OrderTrigger is an event that moves a purchase order
type OrderTrigger string

// Purchase order triggers
const (
	TriggerSubmit         OrderTrigger = "submit"
	TriggerApprove        OrderTrigger = "approve"
	TriggerPlace          OrderTrigger = "place"
	TriggerReceivePartial OrderTrigger = "receive_partial"
	TriggerReceiveFull    OrderTrigger = "receive_full"
	TriggerClose          OrderTrigger = "close"
	TriggerCancel         OrderTrigger = "cancel"
)

// orderTransitions is the complete table of legal moves. Cancellation is
// only possible after the goods arrived.
var orderTransitions = map[OrderStatus]map[OrderTrigger]OrderStatus{
	OrderDraft:           {TriggerSubmit: OrderPendingApproval},
	OrderPendingApproval: {TriggerApprove: OrderApproved},
	OrderApproved:        {TriggerPlace: OrderOrdered},
	OrderOrdered: {
		TriggerReceivePartial: OrderPartiallyReceived,
		TriggerReceiveFull:    OrderReceived,
	},
	OrderPartiallyReceived: {
		TriggerReceivePartial: OrderPartiallyReceived,
		TriggerReceiveFull:    OrderReceived,
	},
	OrderReceived: {
		TriggerClose:  OrderClosed,
		TriggerCancel: OrderCancelled,
	},
	OrderClosed: {TriggerCancel: OrderCancelled},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderDraft, OrderPendingApproval, OrderApproved, OrderOrdered,
		OrderPartiallyReceived, OrderReceived, OrderClosed, OrderCancelled:
		return true
	}
	return false
}

// LinesEditable reports whether lines may be added, edited or removed
func (s OrderStatus) LinesEditable() bool {
	return s == OrderDraft || s == OrderPendingApproval
}

// Receivable reports whether goods may be received against the order
func (s OrderStatus) Receivable() bool {
	return s == OrderOrdered || s == OrderPartiallyReceived
}

// Next returns the status trigger leads to from s
func (s OrderStatus) Next(trigger OrderTrigger) (OrderStatus, bool) {
	to, ok := orderTransitions[s][trigger]
	return to, ok
}

// PurchaseOrder is a binding order to a supplier
type PurchaseOrder struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	OrderNumber    *string     `json:"order_number,omitempty" gorm:"uniqueIndex"`
	SupplierID     uint        `json:"supplier_id" gorm:"not null;index"`
	QuoteRequestID *uint       `json:"quote_request_id,omitempty" gorm:"index"`
	CreatedByID    uint        `json:"created_by_id" gorm:"not null;index"`
	DepartmentID   *uint       `json:"department_id,omitempty"`
	Status         OrderStatus `json:"status" gorm:"type:varchar(32);not null;index"`

	SubmissionNote  string     `json:"submission_note"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	SubmittedByID   *uint      `json:"submitted_by_id,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedByID    *uint      `json:"approved_by_id,omitempty"`
	Signature       []byte     `json:"-" gorm:"type:bytea"`
	SignatureDigest string     `json:"signature_digest,omitempty"`
	OrderedAt       *time.Time `json:"ordered_at,omitempty"`
	OrderedByID     *uint      `json:"ordered_by_id,omitempty"`
	ReceivedAt      *time.Time `json:"received_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	ClosedByID      *uint      `json:"closed_by_id,omitempty"`
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`
	CancelledByID   *uint      `json:"cancelled_by_id,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// DeletedAt tombstones discarded drafts
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Lines []PurchaseOrderLine `json:"lines" gorm:"foreignKey:PurchaseOrderID"`
	// Visibility ACL, stored in purchase_order_departments
	DepartmentIDs []uint `json:"department_ids" gorm:"-"`
}

// TableName specifies the table name
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// Line returns the line with id, or nil
func (o *PurchaseOrder) Line(id uint) *PurchaseOrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// Apply moves the order by trigger or returns an InvalidTransitionError
func (o *PurchaseOrder) Apply(trigger OrderTrigger) error {
	to, ok := o.Status.Next(trigger)
	if !ok {
		return &apperr.InvalidTransitionError{
			Entity: "purchase order",
			ID:     o.ID,
			From:   string(o.Status),
			To:     string(trigger),
		}
	}
	o.Status = to
	return nil
}

// ReceiptTrigger derives the receiving trigger from the line quantities.
// ok is false when nothing has been received yet.
func (o *PurchaseOrder) ReceiptTrigger() (trigger OrderTrigger, ok bool) {
	if len(o.Lines) == 0 {
		return "", false
	}
	complete, started := true, false
	for _, line := range o.Lines {
		if line.QuantityReceived.IsPositive() {
			started = true
		}
		if !line.Complete() {
			complete = false
		}
	}
	switch {
	case complete:
		return TriggerReceiveFull, true
	case started:
		return TriggerReceivePartial, true
	default:
		return "", false
	}
}

// TotalReceived sums the received quantities of all lines
func (o *PurchaseOrder) TotalReceived() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.QuantityReceived)
	}
	return total
}

// PurchaseOrderLine is one ordered item
type PurchaseOrderLine struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	PurchaseOrderID    uint            `json:"purchase_order_id" gorm:"not null;index"`
	Position           int             `json:"position" gorm:"not null"`
	PartID             *uint           `json:"part_id,omitempty" gorm:"index"`
	QuoteRequestLineID *uint           `json:"quote_request_line_id,omitempty"`
	OrderNumber        string          `json:"order_number"`
	Description        string          `json:"description"`
	Unit               string          `json:"unit"`
	QuantityOrdered    decimal.Decimal `json:"quantity_ordered" gorm:"type:numeric(18,4);not null"`
	QuantityReceived   decimal.Decimal `json:"quantity_received" gorm:"type:numeric(18,4);not null"`
	UnitPrice          decimal.Decimal `json:"unit_price" gorm:"type:numeric(18,4);not null"`
	Currency           string          `json:"currency"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name
func (PurchaseOrderLine) TableName() string {
	return "purchase_order_lines"
}

// Outstanding returns the quantity still to be received
func (l *PurchaseOrderLine) Outstanding() decimal.Decimal {
	return l.QuantityOrdered.Sub(l.QuantityReceived)
}

// Complete reports whether the full ordered quantity has been received
func (l *PurchaseOrderLine) Complete() bool {
	return l.QuantityReceived.Equal(l.QuantityOrdered)
}

// PurchaseOrderDepartment is a visibility ACL entry of an order
type PurchaseOrderDepartment struct {
	PurchaseOrderID uint `gorm:"primaryKey"`
	DepartmentID    uint `gorm:"primaryKey;index"`
}

// TableName specifies the table name
func (PurchaseOrderDepartment) TableName() string {
	return "purchase_order_departments"
}

// OrderFilter selects the purchase orders visible to an actor
type OrderFilter struct {
	All           bool
	CreatorID     uint
	DepartmentIDs []uint
	Status        OrderStatus
	Limit         int
	Offset        int
}
