package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// GoodsReceipt records one delivery booked against a purchase order
type GoodsReceipt struct {
	ID              uint               `json:"id" gorm:"primaryKey"`
	PurchaseOrderID uint               `json:"purchase_order_id" gorm:"not null;index"`
	DeliveryNote    string             `json:"delivery_note"`
	ReceivedByID    uint               `json:"received_by_id" gorm:"not null"`
	ReceivedAt      time.Time          `json:"received_at" gorm:"not null"`
	Lines           []GoodsReceiptLine `json:"lines" gorm:"foreignKey:GoodsReceiptID"`
}

// TableName specifies the table name
func (GoodsReceipt) TableName() string {
	return "goods_receipts"
}

// GoodsReceiptLine is the quantity received for one order line
type GoodsReceiptLine struct {
	ID                  uint            `json:"id" gorm:"primaryKey"`
	GoodsReceiptID      uint            `json:"goods_receipt_id" gorm:"not null;index"`
	PurchaseOrderLineID uint            `json:"purchase_order_line_id" gorm:"not null;index"`
	Quantity            decimal.Decimal `json:"quantity" gorm:"type:numeric(18,4);not null"`
	// StockMovementID is empty for lines without a catalogued part
	StockMovementID *uint `json:"stock_movement_id,omitempty"`
}

// TableName specifies the table name
func (GoodsReceiptLine) TableName() string {
	return "goods_receipt_lines"
}

// Attachment entity types
const (
	EntityPurchaseOrder = "purchase_order"
	EntityQuoteRequest  = "quote_request"
)

// Attachment is the metadata of a stored file. The bytes live in the
// attachment store under StorageKey.
type Attachment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	EntityType   string    `json:"entity_type" gorm:"type:varchar(32);not null;index:idx_attachment_entity"`
	EntityID     uint      `json:"entity_id" gorm:"not null;index:idx_attachment_entity"`
	FileName     string    `json:"file_name" gorm:"not null"`
	StorageKey   string    `json:"storage_key" gorm:"not null;uniqueIndex"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Description  string    `json:"description"`
	UploadedByID uint      `json:"uploaded_by_id" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name
func (Attachment) TableName() string {
	return "attachments"
}

// Repository defines the contract for procurement data access. Find and
// Lock methods return the entity with its lines ordered by position; Lock
// holds a row lock until the surrounding transaction ends.
type Repository interface {
	CreateQuote(ctx context.Context, quote *QuoteRequest) error
	FindQuote(ctx context.Context, id uint) (*QuoteRequest, error)
	LockQuote(ctx context.Context, id uint) (*QuoteRequest, error)
	// UpdateQuote writes the header of a quote request, not its lines.
	UpdateQuote(ctx context.Context, quote *QuoteRequest) error
	ListQuotes(ctx context.Context, filter QuoteFilter) ([]QuoteRequest, error)
	AddQuoteLine(ctx context.Context, line *QuoteRequestLine) error
	UpdateQuoteLine(ctx context.Context, line *QuoteRequestLine) error
	DeleteQuoteLine(ctx context.Context, quoteID, lineID uint) error

	CreateOrder(ctx context.Context, order *PurchaseOrder) error
	FindOrder(ctx context.Context, id uint) (*PurchaseOrder, error)
	LockOrder(ctx context.Context, id uint) (*PurchaseOrder, error)
	// UpdateOrder writes the header of a purchase order, not its lines.
	UpdateOrder(ctx context.Context, order *PurchaseOrder) error
	// DeleteOrder tombstones the order.
	DeleteOrder(ctx context.Context, id uint) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error)
	AddOrderLine(ctx context.Context, line *PurchaseOrderLine) error
	UpdateOrderLine(ctx context.Context, line *PurchaseOrderLine) error
	DeleteOrderLine(ctx context.Context, orderID, lineID uint) error
	SetOrderDepartments(ctx context.Context, orderID uint, departmentIDs []uint) error

	CreateGoodsReceipt(ctx context.Context, receipt *GoodsReceipt) error
	ListGoodsReceipts(ctx context.Context, orderID uint) ([]GoodsReceipt, error)

	CreateAttachment(ctx context.Context, attachment *Attachment) error
	FindAttachment(ctx context.Context, id uint) (*Attachment, error)
	ListAttachments(ctx context.Context, entityType string, entityID uint) ([]Attachment, error)
}
