package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Part is a spare part of the catalog. CurrentQuantity is a projection of
// the part's stock movements and is only written by the ledger.
type Part struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	PartNumber      string          `json:"part_number" gorm:"uniqueIndex;not null"`
	Name            string          `json:"name" gorm:"not null"`
	Description     string          `json:"description"`
	SupplierID      *uint           `json:"supplier_id,omitempty" gorm:"index"`
	Unit            string          `json:"unit" gorm:"not null"`
	MinimumStock    decimal.Decimal `json:"minimum_stock" gorm:"type:numeric(18,4);not null"`
	CurrentQuantity decimal.Decimal `json:"current_quantity" gorm:"type:numeric(18,4);not null"`
	Price           decimal.Decimal `json:"price" gorm:"type:numeric(18,4);not null"`
	PriceCurrency   string          `json:"price_currency"`
	PriceAsOf       *time.Time      `json:"price_as_of,omitempty"`
	EndOfLife       bool            `json:"end_of_life" gorm:"not null"`
	SuccessorID     *uint           `json:"successor_id,omitempty"`
	CreatedByID     uint            `json:"created_by_id" gorm:"not null;index"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-" gorm:"index"`

	// Department ACL, stored in part_departments
	DepartmentIDs []uint `json:"department_ids" gorm:"-"`
}

// TableName specifies the table name
func (Part) TableName() string {
	return "parts"
}

// BelowMinimum reports whether stock is under the minimum threshold
func (p *Part) BelowMinimum() bool {
	return p.CurrentQuantity.LessThan(p.MinimumStock)
}

// PartDepartment is a department ACL entry of a part
type PartDepartment struct {
	PartID       uint `gorm:"primaryKey"`
	DepartmentID uint `gorm:"primaryKey;index"`
}

// TableName specifies the table name
func (PartDepartment) TableName() string {
	return "part_departments"
}

// PartFilter selects the parts visible to an actor. All bypasses the
// visibility rule for admins.
type PartFilter struct {
	All           bool
	CreatorID     uint
	DepartmentIDs []uint
	Search        string
	Limit         int
	Offset        int
}

// Repository defines the contract for inventory data access
type Repository interface {
	CreatePart(ctx context.Context, part *Part) error
	FindPart(ctx context.Context, id uint) (*Part, error)
	// LockPart loads the part and holds a row lock until the surrounding
	// transaction ends.
	LockPart(ctx context.Context, id uint) (*Part, error)
	ListParts(ctx context.Context, filter PartFilter) ([]Part, error)
	// UpdatePart writes the catalog fields of a part. It never writes
	// CurrentQuantity.
	UpdatePart(ctx context.Context, part *Part) error
	UpdateQuantity(ctx context.Context, partID uint, quantity decimal.Decimal) error
	SetPartDepartments(ctx context.Context, partID uint, departmentIDs []uint) error
	ListPartIDs(ctx context.Context) ([]uint, error)

	AppendMovement(ctx context.Context, movement *StockMovement) error
	FindMovement(ctx context.Context, id uint) (*StockMovement, error)
	// FindReversal returns the movement reversing id, or nil.
	FindReversal(ctx context.Context, id uint) (*StockMovement, error)
	// ListMovements returns the journal of a part in replay order.
	ListMovements(ctx context.Context, partID uint) ([]StockMovement, error)
	// LastMovement returns the latest movement of a part in replay order, or
	// nil.
	LastMovement(ctx context.Context, partID uint) (*StockMovement, error)
}
