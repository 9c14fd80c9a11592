package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

// GormRepository is the PostgreSQL procurement repository
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates the procurement tables
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&domain.QuoteRequest{}, &domain.QuoteRequestLine{},
		&domain.PurchaseOrder{}, &domain.PurchaseOrderLine{}, &domain.PurchaseOrderDepartment{},
		&domain.GoodsReceipt{}, &domain.GoodsReceiptLine{},
		&domain.Attachment{},
	)
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

// Quote requests

func (r *GormRepository) CreateQuote(ctx context.Context, quote *domain.QuoteRequest) error {
	if err := database.Conn(ctx, r.db).Create(quote).Error; err != nil {
		return fmt.Errorf("failed to create quote request: %w", err)
	}
	return nil
}

func (r *GormRepository) FindQuote(ctx context.Context, id uint) (*domain.QuoteRequest, error) {
	return r.findQuote(database.Conn(ctx, r.db), id)
}

func (r *GormRepository) LockQuote(ctx context.Context, id uint) (*domain.QuoteRequest, error) {
	return r.findQuote(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormRepository) findQuote(db *gorm.DB, id uint) (*domain.QuoteRequest, error) {
	var quote domain.QuoteRequest
	err := db.First(&quote, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("quote request", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find quote request: %w", err)
	}
	if err := byPosition(db.Session(&gorm.Session{NewDB: true})).
		Where("quote_request_id = ?", id).
		Find(&quote.Lines).Error; err != nil {
		return nil, fmt.Errorf("failed to load quote request lines: %w", err)
	}
	return &quote, nil
}

func (r *GormRepository) UpdateQuote(ctx context.Context, quote *domain.QuoteRequest) error {
	err := database.Conn(ctx, r.db).Model(quote).Omit(clause.Associations).
		Select("status", "note", "sent_at", "sent_by_id", "quote_received_at", "quote_received_by_id",
			"closed_at", "closed_by_id", "prices_accepted_at", "purchase_order_id", "updated_at").
		Updates(quote).Error
	if err != nil {
		return fmt.Errorf("failed to update quote request: %w", err)
	}
	return nil
}

func (r *GormRepository) ListQuotes(ctx context.Context, filter domain.QuoteFilter) ([]domain.QuoteRequest, error) {
	q := database.Conn(ctx, r.db).Model(&domain.QuoteRequest{})
	if !filter.All {
		q = q.Where("created_by_id = ? OR department_id = ANY(?)",
			filter.CreatorID, pq.Array(toInt64s(filter.DepartmentIDs)))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var quotes []domain.QuoteRequest
	if err := q.Preload("Lines", byPosition).Order("id DESC").Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("failed to list quote requests: %w", err)
	}
	return quotes, nil
}

func (r *GormRepository) AddQuoteLine(ctx context.Context, line *domain.QuoteRequestLine) error {
	line.ID = 0
	if err := database.Conn(ctx, r.db).Create(line).Error; err != nil {
		return fmt.Errorf("failed to add quote request line: %w", err)
	}
	return nil
}

func (r *GormRepository) UpdateQuoteLine(ctx context.Context, line *domain.QuoteRequestLine) error {
	res := database.Conn(ctx, r.db).Model(line).
		Where("quote_request_id = ?", line.QuoteRequestID).
		Select("position", "part_id", "order_number", "description", "quantity", "unit",
			"quoted_price", "quoted_currency", "updated_at").
		Updates(line)
	if res.Error != nil {
		return fmt.Errorf("failed to update quote request line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("quote request line", line.ID)
	}
	return nil
}

func (r *GormRepository) DeleteQuoteLine(ctx context.Context, quoteID, lineID uint) error {
	res := database.Conn(ctx, r.db).
		Where("id = ? AND quote_request_id = ?", lineID, quoteID).
		Delete(&domain.QuoteRequestLine{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete quote request line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("quote request line", lineID)
	}
	return nil
}

// Purchase orders

func (r *GormRepository) CreateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			if database.IsUniqueViolation(err) && order.OrderNumber != nil {
				return apperr.Validation("duplicate order number %q", *order.OrderNumber)
			}
			return fmt.Errorf("failed to create purchase order: %w", err)
		}
		return replaceOrderDepartments(tx, order.ID, order.DepartmentIDs)
	})
}

func (r *GormRepository) FindOrder(ctx context.Context, id uint) (*domain.PurchaseOrder, error) {
	return r.findOrder(database.Conn(ctx, r.db), id)
}

func (r *GormRepository) LockOrder(ctx context.Context, id uint) (*domain.PurchaseOrder, error) {
	return r.findOrder(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormRepository) findOrder(db *gorm.DB, id uint) (*domain.PurchaseOrder, error) {
	var order domain.PurchaseOrder
	err := db.First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("purchase order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find purchase order: %w", err)
	}

	fresh := db.Session(&gorm.Session{NewDB: true})
	if err := byPosition(fresh).Where("purchase_order_id = ?", id).Find(&order.Lines).Error; err != nil {
		return nil, fmt.Errorf("failed to load purchase order lines: %w", err)
	}
	if err := fresh.Model(&domain.PurchaseOrderDepartment{}).
		Where("purchase_order_id = ?", id).
		Order("department_id").
		Pluck("department_id", &order.DepartmentIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to load purchase order departments: %w", err)
	}
	return &order, nil
}

func (r *GormRepository) UpdateOrder(ctx context.Context, order *domain.PurchaseOrder) error {
	err := database.Conn(ctx, r.db).Model(order).Omit(clause.Associations).
		Select("order_number", "status", "submission_note", "submitted_at", "submitted_by_id",
			"approved_at", "approved_by_id", "signature", "signature_digest",
			"ordered_at", "ordered_by_id", "received_at", "closed_at", "closed_by_id",
			"cancelled_at", "cancelled_by_id", "cancel_reason", "updated_at").
		Updates(order).Error
	if err != nil {
		if database.IsUniqueViolation(err) && order.OrderNumber != nil {
			return apperr.Validation("duplicate order number %q", *order.OrderNumber)
		}
		return fmt.Errorf("failed to update purchase order: %w", err)
	}
	return nil
}

func (r *GormRepository) DeleteOrder(ctx context.Context, id uint) error {
	res := database.Conn(ctx, r.db).Delete(&domain.PurchaseOrder{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete purchase order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("purchase order", id)
	}
	return nil
}

func (r *GormRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.PurchaseOrder, error) {
	db := database.Conn(ctx, r.db)
	q := db.Model(&domain.PurchaseOrder{})

	if !filter.All {
		acl := db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.PurchaseOrderDepartment{}).
			Select("purchase_order_id").
			Where("department_id = ANY(?)", pq.Array(toInt64s(filter.DepartmentIDs)))
		q = q.Where("(created_by_id = ? AND (approved_by_id IS NULL OR approved_by_id = ?)) OR id IN (?)",
			filter.CreatorID, filter.CreatorID, acl)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var orders []domain.PurchaseOrder
	if err := q.Preload("Lines", byPosition).Order("id DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uint, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	var entries []domain.PurchaseOrderDepartment
	if err := db.Session(&gorm.Session{NewDB: true}).
		Where("purchase_order_id IN ?", ids).
		Order("department_id").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load purchase order departments: %w", err)
	}
	byOrder := make(map[uint][]uint, len(orders))
	for _, e := range entries {
		byOrder[e.PurchaseOrderID] = append(byOrder[e.PurchaseOrderID], e.DepartmentID)
	}
	for i := range orders {
		orders[i].DepartmentIDs = byOrder[orders[i].ID]
	}
	return orders, nil
}

func (r *GormRepository) AddOrderLine(ctx context.Context, line *domain.PurchaseOrderLine) error {
	line.ID = 0
	if err := database.Conn(ctx, r.db).Create(line).Error; err != nil {
		return fmt.Errorf("failed to add purchase order line: %w", err)
	}
	return nil
}

func (r *GormRepository) UpdateOrderLine(ctx context.Context, line *domain.PurchaseOrderLine) error {
	res := database.Conn(ctx, r.db).Model(line).
		Where("purchase_order_id = ?", line.PurchaseOrderID).
		Select("position", "part_id", "order_number", "description", "unit", "quantity_ordered",
			"quantity_received", "unit_price", "currency", "updated_at").
		Updates(line)
	if res.Error != nil {
		return fmt.Errorf("failed to update purchase order line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("purchase order line", line.ID)
	}
	return nil
}

func (r *GormRepository) DeleteOrderLine(ctx context.Context, orderID, lineID uint) error {
	res := database.Conn(ctx, r.db).
		Where("id = ? AND purchase_order_id = ?", lineID, orderID).
		Delete(&domain.PurchaseOrderLine{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete purchase order line: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("purchase order line", lineID)
	}
	return nil
}

func (r *GormRepository) SetOrderDepartments(ctx context.Context, orderID uint, departmentIDs []uint) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return replaceOrderDepartments(tx, orderID, departmentIDs)
	})
}

func replaceOrderDepartments(tx *gorm.DB, orderID uint, departmentIDs []uint) error {
	if err := tx.Where("purchase_order_id = ?", orderID).Delete(&domain.PurchaseOrderDepartment{}).Error; err != nil {
		return fmt.Errorf("failed to reset purchase order departments: %w", err)
	}
	if len(departmentIDs) == 0 {
		return nil
	}
	rows := make([]domain.PurchaseOrderDepartment, 0, len(departmentIDs))
	for _, id := range departmentIDs {
		rows = append(rows, domain.PurchaseOrderDepartment{PurchaseOrderID: orderID, DepartmentID: id})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save purchase order departments: %w", err)
	}
	return nil
}

// Goods receipts

func (r *GormRepository) CreateGoodsReceipt(ctx context.Context, receipt *domain.GoodsReceipt) error {
	if err := database.Conn(ctx, r.db).Create(receipt).Error; err != nil {
		return fmt.Errorf("failed to record goods receipt: %w", err)
	}
	return nil
}

func (r *GormRepository) ListGoodsReceipts(ctx context.Context, orderID uint) ([]domain.GoodsReceipt, error) {
	var receipts []domain.GoodsReceipt
	err := database.Conn(ctx, r.db).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("purchase_order_id = ?", orderID).
		Order("id").
		Find(&receipts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list goods receipts: %w", err)
	}
	return receipts, nil
}

// Attachments

func (r *GormRepository) CreateAttachment(ctx context.Context, attachment *domain.Attachment) error {
	if err := database.Conn(ctx, r.db).Create(attachment).Error; err != nil {
		return fmt.Errorf("failed to save attachment: %w", err)
	}
	return nil
}

func (r *GormRepository) FindAttachment(ctx context.Context, id uint) (*domain.Attachment, error) {
	var attachment domain.Attachment
	err := database.Conn(ctx, r.db).First(&attachment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("attachment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attachment: %w", err)
	}
	return &attachment, nil
}

func (r *GormRepository) ListAttachments(ctx context.Context, entityType string, entityID uint) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := database.Conn(ctx, r.db).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id").
		Find(&attachments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
