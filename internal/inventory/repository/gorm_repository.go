package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tair/plantops/internal/inventory/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/database"
)

// GormRepository is the PostgreSQL inventory repository
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new gorm backed repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// AutoMigrate creates the inventory tables
func (r *GormRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Part{}, &domain.PartDepartment{}, &domain.StockMovement{})
}

func (r *GormRepository) CreatePart(ctx context.Context, part *domain.Part) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(part).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return apperr.Validation("duplicate part number %q", part.PartNumber)
			}
			return fmt.Errorf("failed to create part: %w", err)
		}
		return replaceDepartments(tx, part.ID, part.DepartmentIDs)
	})
}

func (r *GormRepository) FindPart(ctx context.Context, id uint) (*domain.Part, error) {
	return r.findPart(database.Conn(ctx, r.db), id)
}

func (r *GormRepository) LockPart(ctx context.Context, id uint) (*domain.Part, error) {
	return r.findPart(database.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormRepository) findPart(db *gorm.DB, id uint) (*domain.Part, error) {
	var part domain.Part
	err := db.First(&part, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("part", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find part: %w", err)
	}

	if err := db.Session(&gorm.Session{NewDB: true}).
		Model(&domain.PartDepartment{}).
		Where("part_id = ?", id).
		Order("department_id").
		Pluck("department_id", &part.DepartmentIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to load part departments: %w", err)
	}
	return &part, nil
}

func (r *GormRepository) ListParts(ctx context.Context, filter domain.PartFilter) ([]domain.Part, error) {
	db := database.Conn(ctx, r.db)
	q := db.Model(&domain.Part{})

	if !filter.All {
		acl := db.Session(&gorm.Session{NewDB: true}).
			Model(&domain.PartDepartment{}).
			Select("part_id").
			Where("department_id = ANY(?)", pq.Array(toInt64s(filter.DepartmentIDs)))
		q = q.Where("created_by_id = ? OR id IN (?)", filter.CreatorID, acl)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("part_number ILIKE ? OR name ILIKE ?", like, like)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var parts []domain.Part
	if err := q.Order("part_number").Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	if len(parts) == 0 {
		return parts, nil
	}

	ids := make([]uint, len(parts))
	for i, p := range parts {
		ids[i] = p.ID
	}
	var entries []domain.PartDepartment
	if err := db.Session(&gorm.Session{NewDB: true}).
		Where("part_id IN ?", ids).
		Order("department_id").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load part departments: %w", err)
	}
	byPart := make(map[uint][]uint, len(parts))
	for _, e := range entries {
		byPart[e.PartID] = append(byPart[e.PartID], e.DepartmentID)
	}
	for i := range parts {
		parts[i].DepartmentIDs = byPart[parts[i].ID]
	}
	return parts, nil
}

func (r *GormRepository) UpdatePart(ctx context.Context, part *domain.Part) error {
	err := database.Conn(ctx, r.db).Model(part).
		Select("name", "description", "supplier_id", "unit", "minimum_stock", "price",
			"price_currency", "price_as_of", "end_of_life", "successor_id", "updated_at").
		Updates(part).Error
	if err != nil {
		return fmt.Errorf("failed to update part: %w", err)
	}
	return nil
}

func (r *GormRepository) UpdateQuantity(ctx context.Context, partID uint, quantity decimal.Decimal) error {
	err := database.Conn(ctx, r.db).Model(&domain.Part{ID: partID}).
		Update("current_quantity", quantity).Error
	if err != nil {
		return fmt.Errorf("failed to update part quantity: %w", err)
	}
	return nil
}

func (r *GormRepository) SetPartDepartments(ctx context.Context, partID uint, departmentIDs []uint) error {
	return database.Conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		return replaceDepartments(tx, partID, departmentIDs)
	})
}

func replaceDepartments(tx *gorm.DB, partID uint, departmentIDs []uint) error {
	if err := tx.Where("part_id = ?", partID).Delete(&domain.PartDepartment{}).Error; err != nil {
		return fmt.Errorf("failed to reset part departments: %w", err)
	}
	if len(departmentIDs) == 0 {
		return nil
	}
	rows := make([]domain.PartDepartment, 0, len(departmentIDs))
	for _, id := range departmentIDs {
		rows = append(rows, domain.PartDepartment{PartID: partID, DepartmentID: id})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save part departments: %w", err)
	}
	return nil
}

func (r *GormRepository) ListPartIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := database.Conn(ctx, r.db).Model(&domain.Part{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list part ids: %w", err)
	}
	return ids, nil
}

func (r *GormRepository) AppendMovement(ctx context.Context, movement *domain.StockMovement) error {
	if err := database.Conn(ctx, r.db).Create(movement).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return apperr.Conflict("movement %d has already been reversed", derefOrZero(movement.ReversesMovementID))
		}
		return fmt.Errorf("failed to append stock movement: %w", err)
	}
	return nil
}

func (r *GormRepository) FindMovement(ctx context.Context, id uint) (*domain.StockMovement, error) {
	var movement domain.StockMovement
	err := database.Conn(ctx, r.db).First(&movement, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("stock movement", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find stock movement: %w", err)
	}
	return &movement, nil
}

func (r *GormRepository) FindReversal(ctx context.Context, id uint) (*domain.StockMovement, error) {
	var movement domain.StockMovement
	err := database.Conn(ctx, r.db).Where("reverses_movement_id = ?", id).First(&movement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reversal: %w", err)
	}
	return &movement, nil
}

func (r *GormRepository) ListMovements(ctx context.Context, partID uint) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	err := database.Conn(ctx, r.db).
		Where("part_id = ?", partID).
		Order("posted_at, id").
		Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}

func (r *GormRepository) LastMovement(ctx context.Context, partID uint) (*domain.StockMovement, error) {
	var movement domain.StockMovement
	err := database.Conn(ctx, r.db).
		Where("part_id = ?", partID).
		Order("posted_at DESC, id DESC").
		First(&movement).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find last stock movement: %w", err)
	}
	return &movement, nil
}

func toInt64s(ids []uint) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func derefOrZero(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}
