package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuoteStatus is the status of a quote request
type QuoteStatus string

// Quote request statuses, in order
const (
	QuoteOpen          QuoteStatus = "open"
	QuoteSent          QuoteStatus = "sent"
	QuoteQuoteReceived QuoteStatus = "quote_received"
	QuoteClosed        QuoteStatus = "closed"
)

// quoteTransitions is linear; no status may be skipped.
var quoteTransitions = map[QuoteStatus]QuoteStatus{
	QuoteOpen:          QuoteSent,
	QuoteSent:          QuoteQuoteReceived,
	QuoteQuoteReceived: QuoteClosed,
}

// Valid reports whether s is a known status
func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteOpen, QuoteSent, QuoteQuoteReceived, QuoteClosed:
		return true
	}
	return false
}

// CanTransitionTo reports whether to is the next status after s
func (s QuoteStatus) CanTransitionTo(to QuoteStatus) bool {
	next, ok := quoteTransitions[s]
	return ok && next == to
}

// LinesEditable reports whether lines may be added, edited or removed
func (s QuoteStatus) LinesEditable() bool {
	return s == QuoteOpen
}

// PricesEditable reports whether quoted prices may be entered
func (s QuoteStatus) PricesEditable() bool {
	return s == QuoteOpen || s == QuoteSent || s == QuoteQuoteReceived
}

// QuoteRequest is a request to a supplier for pricing
type QuoteRequest struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	SupplierID   uint        `json:"supplier_id" gorm:"not null;index"`
	CreatedByID  uint        `json:"created_by_id" gorm:"not null;index"`
	DepartmentID *uint       `json:"department_id,omitempty" gorm:"index"`
	Status       QuoteStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	Note         string      `json:"note"`

	SentAt            *time.Time `json:"sent_at,omitempty"`
	SentByID          *uint      `json:"sent_by_id,omitempty"`
	QuoteReceivedAt   *time.Time `json:"quote_received_at,omitempty"`
	QuoteReceivedByID *uint      `json:"quote_received_by_id,omitempty"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	ClosedByID        *uint      `json:"closed_by_id,omitempty"`
	PricesAcceptedAt  *time.Time `json:"prices_accepted_at,omitempty"`
	PurchaseOrderID   *uint      `json:"purchase_order_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Lines []QuoteRequestLine `json:"lines" gorm:"foreignKey:QuoteRequestID"`
}

// TableName specifies the table name
func (QuoteRequest) TableName() string {
	return "quote_requests"
}

// DepartmentIDs returns the departments that see the quote request
func (q *QuoteRequest) DepartmentIDs() []uint {
	if q.DepartmentID == nil {
		return nil
	}
	return []uint{*q.DepartmentID}
}

// Line returns the line with id, or nil
func (q *QuoteRequest) Line(id uint) *QuoteRequestLine {
	for i := range q.Lines {
		if q.Lines[i].ID == id {
			return &q.Lines[i]
		}
	}
	return nil
}

// QuoteRequestLine is one requested item. PartID is empty for parts that
// are not catalogued yet.
type QuoteRequestLine struct {
	ID             uint             `json:"id" gorm:"primaryKey"`
	QuoteRequestID uint             `json:"quote_request_id" gorm:"not null;index"`
	Position       int              `json:"position" gorm:"not null"`
	PartID         *uint            `json:"part_id,omitempty" gorm:"index"`
	OrderNumber    string           `json:"order_number"`
	Description    string           `json:"description"`
	Quantity       decimal.Decimal  `json:"quantity" gorm:"type:numeric(18,4);not null"`
	Unit           string           `json:"unit"`
	QuotedPrice    *decimal.Decimal `json:"quoted_price,omitempty" gorm:"type:numeric(18,4)"`
	QuotedCurrency string           `json:"quoted_currency"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// TableName specifies the table name
func (QuoteRequestLine) TableName() string {
	return "quote_request_lines"
}

// QuoteFilter selects the quote requests visible to an actor
type QuoteFilter struct {
	All           bool
	CreatorID     uint
	DepartmentIDs []uint
	Status        QuoteStatus
	Limit         int
	Offset        int
}
